// Package config loads swatch settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvListenAddr     = "SWATCH_LISTEN_ADDR"
	EnvCameraIndex    = "SWATCH_CAMERA_INDEX"
	EnvPluginPath     = "SWATCH_PLUGIN_PATH"
	EnvMaxUploadBytes = "SWATCH_MAX_UPLOAD_BYTES"
	EnvLogLevel       = "SWATCH_LOG_LEVEL"
	EnvImageCacheDir  = "SWATCH_IMAGE_CACHE_DIR"
	EnvAllowedOrigins = "SWATCH_ALLOWED_ORIGINS"
)

// Config holds runtime settings.
type Config struct {
	// ListenAddr is the address the session server binds.
	ListenAddr string
	// CameraIndex selects the local camera; negative disables it.
	CameraIndex int
	// PluginPath is a frame source plugin binary used instead of the camera.
	PluginPath string
	// MaxUploadBytes bounds decoded image uploads.
	MaxUploadBytes int64
	// LogLevel is an hclog level name.
	LogLevel string
	// ImageCacheDir caches images fetched from URLs. Empty disables caching.
	ImageCacheDir string
	// AllowedOrigins lists websocket origins accepted besides same-origin.
	AllowedOrigins []string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		ListenAddr:     "127.0.0.1:8787",
		CameraIndex:    0,
		MaxUploadBytes: 16 * 1024 * 1024,
		LogLevel:       "info",
	}
}

// Load reads the given .env files (".env" when none are named) without
// overriding variables already set, then builds a Config from the environment.
// Missing .env files are not an error.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	def := Default()
	cfg := Config{
		ListenAddr:     getEnv(EnvListenAddr, def.ListenAddr),
		CameraIndex:    getEnvInt(EnvCameraIndex, def.CameraIndex),
		PluginPath:     getEnv(EnvPluginPath, ""),
		MaxUploadBytes: getEnvInt64(EnvMaxUploadBytes, def.MaxUploadBytes),
		LogLevel:       strings.ToLower(getEnv(EnvLogLevel, def.LogLevel)),
		ImageCacheDir:  getEnv(EnvImageCacheDir, ""),
		AllowedOrigins: getEnvList(EnvAllowedOrigins),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("listen address must not be empty")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max upload bytes must be > 0")
	}
	if c.LogLevel != "" && hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		return fmt.Errorf("invalid log level: %q", c.LogLevel)
	}
	return nil
}

// Level returns the configured log level, defaulting to Info.
func (c Config) Level() hclog.Level {
	if l := hclog.LevelFromString(c.LogLevel); l != hclog.NoLevel {
		return l
	}
	return hclog.Info
}

// CameraEnabled reports whether a local camera should be used.
func (c Config) CameraEnabled() bool {
	return c.PluginPath == "" && c.CameraIndex >= 0
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
