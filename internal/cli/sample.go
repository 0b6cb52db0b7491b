package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/swatch/internal/capture"
	"github.com/jmylchreest/swatch/internal/colour"
	"github.com/jmylchreest/swatch/internal/image"
	"github.com/jmylchreest/swatch/internal/picker"
	"github.com/jmylchreest/swatch/internal/sampler"
)

type sampleOptions struct {
	at       string
	display  string
	white    string
	format   string
	cacheDir string
}

func newSampleCmd() *cobra.Command {
	opts := &sampleOptions{}
	cmd := &cobra.Command{
		Use:   "sample <image>",
		Short: "Sample the colour of one pixel in an image",
		Long: `Sample the colour of a single pixel in an image, optionally correcting it
against a white reference point.

Points are given in display coordinates. When --display is omitted the image
is assumed to be shown at its native size, so points are pixel coordinates.
The image may be a local file (optionally .gz, .xz or .bz2 compressed) or an
http(s) URL.

Examples:
  # Sample the centre of a 1920x1080 photo shown at 480x270
  swatch sample photo.jpg --at 240,135 --display 480x270

  # Calibrate against a white card before sampling
  swatch sample photo.jpg --white 12,40 --at 300,200

  # JSON output including the raw and reference colours
  swatch sample photo.jpg --at 10,10 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSample(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.at, "at", "", "point to sample, as x,y (required)")
	cmd.Flags().StringVar(&opts.display, "display", "", "rendered size and offset of the image, as WxH[+X+Y]")
	cmd.Flags().StringVar(&opts.white, "white", "", "white reference point, as x,y")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "hex", "output format (hex, json)")
	cmd.Flags().StringVar(&opts.cacheDir, "cache-dir", "", "cache images fetched from URLs in this directory")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

// sampleResult is the JSON form of a sampled colour.
type sampleResult struct {
	Hex        string `json:"hex"`
	Raw        string `json:"raw"`
	Reference  string `json:"reference,omitempty"`
	Degenerate bool   `json:"degenerate,omitempty"`
	Session    string `json:"session"`
}

func runSample(cmd *cobra.Command, opts *sampleOptions, source string) error {
	if opts.format != "hex" && opts.format != "json" {
		return fmt.Errorf("unsupported format: %s", opts.format)
	}
	at, err := parsePoint(opts.at)
	if err != nil {
		return fmt.Errorf("invalid --at: %w", err)
	}
	var white *sampler.Point
	if opts.white != "" {
		p, err := parsePoint(opts.white)
		if err != nil {
			return fmt.Errorf("invalid --white: %w", err)
		}
		white = &p
	}

	logger := newLogger(cmd, hclog.NoLevel)

	var loaderOpts []image.SmartOption
	if opts.cacheDir != "" {
		loaderOpts = append(loaderOpts, image.WithCacheDir(opts.cacheDir))
	}
	if err := image.ValidateImagePath(source); err != nil {
		return fmt.Errorf("invalid image path: %w", err)
	}
	logger.Debug("loading image", "source", source)
	img, err := image.NewSmartLoader(loaderOpts...).LoadContext(cmd.Context(), source)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	b := img.Bounds()
	logger.Debug("image loaded", "width", b.Dx(), "height", b.Dy())

	display := sampler.Rect{Width: float64(b.Dx()), Height: float64(b.Dy())}
	if opts.display != "" {
		if display, err = parseDisplay(opts.display); err != nil {
			return fmt.Errorf("invalid --display: %w", err)
		}
	}

	wf := capture.NewWorkflow(nil, capture.Callbacks{}, capture.WithLogger(logger.Named("capture")))
	defer wf.Close()
	if err := wf.LoadImage(img); err != nil {
		return err
	}

	result := sampleResult{Session: wf.SessionID()}
	if white != nil {
		if err := wf.BeginCalibration(); err != nil {
			return err
		}
		out := wf.Pointer(picker.Pointer{X: white.X, Y: white.Y, Phase: picker.PhaseUp}, display)
		if out.Kind != capture.OutcomeCalibrated {
			return fmt.Errorf("white reference %s is outside the image", opts.white)
		}
		result.Reference = out.Hex
		result.Degenerate = out.Degenerate
	}

	out := wf.Pointer(picker.Pointer{X: at.X, Y: at.Y, Phase: picker.PhaseUp}, display)
	if out.Kind != capture.OutcomeCommitted {
		return fmt.Errorf("sample point %s is outside the image", opts.at)
	}
	sampled := out.Colour
	result.Hex = sampled.Hex()
	result.Raw = out.Raw.Hex()

	w := cmd.OutOrStdout()
	if opts.format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if isTerminal(w) {
		fmt.Fprintln(w, colour.FormatColourWithPreview(sampled, 8))
		return nil
	}
	fmt.Fprintf(w, "#%s\n", result.Hex)
	return nil
}

// parsePoint parses "x,y".
func parsePoint(s string) (sampler.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return sampler.Point{}, fmt.Errorf("expected x,y: %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return sampler.Point{}, fmt.Errorf("invalid x: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return sampler.Point{}, fmt.Errorf("invalid y: %w", err)
	}
	return sampler.Point{X: x, Y: y}, nil
}

// parseDisplay parses "WxH" or "WxH+X+Y".
func parseDisplay(s string) (sampler.Rect, error) {
	size, offset, hasOffset := strings.Cut(s, "+")
	ws, hs, ok := strings.Cut(strings.ToLower(size), "x")
	if !ok {
		return sampler.Rect{}, fmt.Errorf("expected WxH: %q", s)
	}
	var r sampler.Rect
	var err error
	if r.Width, err = strconv.ParseFloat(ws, 64); err != nil {
		return sampler.Rect{}, fmt.Errorf("invalid width: %w", err)
	}
	if r.Height, err = strconv.ParseFloat(hs, 64); err != nil {
		return sampler.Rect{}, fmt.Errorf("invalid height: %w", err)
	}
	if r.Empty() {
		return sampler.Rect{}, errors.New("display size must be positive")
	}
	if hasOffset {
		xs, ys, ok := strings.Cut(offset, "+")
		if !ok {
			return sampler.Rect{}, fmt.Errorf("expected WxH+X+Y: %q", s)
		}
		if r.X, err = strconv.ParseFloat(xs, 64); err != nil {
			return sampler.Rect{}, fmt.Errorf("invalid x offset: %w", err)
		}
		if r.Y, err = strconv.ParseFloat(ys, 64); err != nil {
			return sampler.Rect{}, fmt.Errorf("invalid y offset: %w", err)
		}
	}
	return r, nil
}
