package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
)

// clearEnv unsets every swatch variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvListenAddr, EnvCameraIndex, EnvPluginPath, EnvMaxUploadBytes,
		EnvLogLevel, EnvImageCacheDir, EnvAllowedOrigins,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := Default()
	if cfg.ListenAddr != def.ListenAddr || cfg.MaxUploadBytes != def.MaxUploadBytes || cfg.CameraIndex != 0 {
		t.Errorf("Load() = %+v, want defaults %+v", cfg, def)
	}
	if !cfg.CameraEnabled() {
		t.Error("camera disabled by default")
	}
	if cfg.Level() != hclog.Info {
		t.Errorf("Level() = %v, want info", cfg.Level())
	}
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvListenAddr, ":9000")
	t.Setenv(EnvCameraIndex, "-1")
	t.Setenv(EnvMaxUploadBytes, "1024")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvAllowedOrigins, "https://a.example, ,https://b.example")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.CameraEnabled() {
		t.Error("camera enabled with negative index")
	}
	if cfg.MaxUploadBytes != 1024 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if cfg.Level() != hclog.Debug {
		t.Errorf("Level() = %v, want debug", cfg.Level())
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := EnvListenAddr + "=:7000\n" + EnvPluginPath + "=/opt/swatch/source\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv(EnvListenAddr, ":8000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ListenAddr != ":8000" {
		t.Errorf("ListenAddr = %q, environment should win over .env", cfg.ListenAddr)
	}
	if cfg.PluginPath != "/opt/swatch/source" {
		t.Errorf("PluginPath = %q", cfg.PluginPath)
	}
	if cfg.CameraEnabled() {
		t.Error("camera enabled while a plugin is configured")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty listen address", func(c *Config) { c.ListenAddr = " " }, true},
		{"zero upload limit", func(c *Config) { c.MaxUploadBytes = 0 }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"empty log level", func(c *Config) { c.LogLevel = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
