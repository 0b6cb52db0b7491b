package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jmylchreest/swatch/internal/capture"
	"github.com/jmylchreest/swatch/internal/capture/webcam"
	"github.com/jmylchreest/swatch/internal/config"
	"github.com/jmylchreest/swatch/internal/image"
	"github.com/jmylchreest/swatch/internal/plugin/executor"
	"github.com/jmylchreest/swatch/internal/session"
	pluginapi "github.com/jmylchreest/swatch/pkg/plugin"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	envFiles   []string
	listen     string
	camera     int
	pluginPath string
	pluginArgs map[string]string
	image      string
	maxUpload  int64
	cacheDir   string
	origins    []string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the interactive session server",
		Long: `Run the websocket session server.

Each websocket connection on /ws gets its own picker and capture workflow.
Images can be uploaded to a session with POST /upload?session=<id>.

The live frame source is chosen in this order: a fixed --image, a frame
source plugin (--plugin or SWATCH_PLUGIN_PATH), then the local camera
(--camera or SWATCH_CAMERA_INDEX; a negative index disables it).

Settings are read from .env and SWATCH_* environment variables; flags
override both.

Examples:
  # Serve on the default address using camera 0
  swatch serve

  # Serve a fixed image as the live source
  swatch serve --image testcard.png --listen :9000

  # Use an external frame source plugin
  swatch serve --plugin ./swatch-source-image --plugin-arg image=card.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	opts.addFlags(cmd.Flags())
	return cmd
}

func (o *serveOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringSliceVar(&o.envFiles, "env-file", nil, "dotenv files to load (default .env)")
	fs.StringVarP(&o.listen, "listen", "l", "", "address to listen on")
	fs.IntVar(&o.camera, "camera", 0, "camera index (negative disables the camera)")
	fs.StringVar(&o.pluginPath, "plugin", "", "frame source plugin binary")
	fs.StringToStringVar(&o.pluginArgs, "plugin-arg", nil, "argument passed to the frame source plugin (key=value)")
	fs.StringVar(&o.image, "image", "", "serve a fixed image file or URL as the live source")
	fs.Int64Var(&o.maxUpload, "max-upload", 0, "maximum upload size in bytes")
	fs.StringVar(&o.cacheDir, "cache-dir", "", "cache images fetched from URLs in this directory")
	fs.StringSliceVar(&o.origins, "allow-origin", nil, "additional websocket origins to accept")
}

// resolveConfig loads the environment configuration and applies explicitly set flags.
func resolveConfig(flags *pflag.FlagSet, opts *serveOptions) (config.Config, error) {
	cfg, err := config.Load(opts.envFiles...)
	if err != nil {
		return config.Config{}, err
	}

	if flags.Changed("listen") {
		cfg.ListenAddr = opts.listen
	}
	if flags.Changed("camera") {
		cfg.CameraIndex = opts.camera
	}
	if flags.Changed("plugin") {
		cfg.PluginPath = opts.pluginPath
	}
	if flags.Changed("max-upload") {
		cfg.MaxUploadBytes = opts.maxUpload
	}
	if flags.Changed("cache-dir") {
		cfg.ImageCacheDir = opts.cacheDir
	}
	if flags.Changed("allow-origin") {
		cfg.AllowedOrigins = append(cfg.AllowedOrigins, opts.origins...)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// selectDevice picks the live frame source. A nil device means only uploads
// can be sampled.
func selectDevice(ctx context.Context, cfg config.Config, opts *serveOptions, logger hclog.Logger) (capture.Device, error) {
	switch {
	case opts.image != "":
		if err := image.ValidateImagePath(opts.image); err != nil {
			return nil, fmt.Errorf("invalid image path: %w", err)
		}
		var loaderOpts []image.SmartOption
		if cfg.ImageCacheDir != "" {
			loaderOpts = append(loaderOpts, image.WithCacheDir(cfg.ImageCacheDir))
		}
		img, err := image.NewSmartLoader(loaderOpts...).LoadContext(ctx, opts.image)
		if err != nil {
			return nil, fmt.Errorf("failed to load image: %w", err)
		}
		logger.Info("serving fixed image as live source", "source", opts.image)
		return capture.NewImageDevice(img), nil

	case cfg.PluginPath != "":
		req := pluginapi.OpenRequest{Verbose: logger.IsDebug()}
		if len(opts.pluginArgs) > 0 {
			req.PluginArgs = make(map[string]any, len(opts.pluginArgs))
			for k, v := range opts.pluginArgs {
				req.PluginArgs[k] = v
			}
		}
		dev, err := executor.New(cfg.PluginPath,
			executor.WithLogger(logger.Named("plugin")),
			executor.WithOpenRequest(req),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to configure frame source plugin: %w", err)
		}
		logger.Info("using frame source plugin", "path", cfg.PluginPath)
		return dev, nil

	case cfg.CameraEnabled():
		if !webcam.Supported {
			logger.Warn("camera support not built in; rebuild with -tags gocv", "index", cfg.CameraIndex)
		} else {
			logger.Info("using local camera", "index", cfg.CameraIndex)
		}
		return webcam.New(cfg.CameraIndex, logger.Named("webcam")), nil

	default:
		logger.Info("no live source configured; uploads only")
		return nil, nil
	}
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cfg, err := resolveConfig(cmd.Flags(), opts)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg.Level())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	device, err := selectDevice(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}

	srv := session.NewServer(session.Options{
		Device:         device,
		MaxUploadBytes: cfg.MaxUploadBytes,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger.Named("session"),
	})

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr, err)
	}
	return serve(ctx, ln, srv, logger)
}

// serve runs srv on ln until ctx is cancelled, then shuts down gracefully.
func serve(ctx context.Context, ln net.Listener, srv *session.Server, logger hclog.Logger) error {
	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true}),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("session server listening", "addr", ln.Addr().String())
		errCh <- httpSrv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("session server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down session server")
	srv.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down session server: %w", err)
	}
	return nil
}
