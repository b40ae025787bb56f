package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./lyricslide.db" {
			t.Errorf("expected database path ./lyricslide.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 5000 {
			t.Errorf("expected server port 5000, got %d", config.Server.Port)
		}

		if config.Deck.FontSize != 30 {
			t.Errorf("expected deck font size 30, got %d", config.Deck.FontSize)
		}

		if config.Sizer.MinSize != 12 || config.Sizer.MaxSize != 44 || config.Sizer.Step != 2 {
			t.Errorf("unexpected sizer defaults: %+v", config.Sizer)
		}

		if config.Deck.Watermark != "IPC Gilgal" {
			t.Errorf("expected watermark IPC Gilgal, got %s", config.Deck.Watermark)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
host = "0.0.0.0"
port = 8080

[deck]
font_size = 36
watermark = "Sunday Service"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}

		if config.Deck.FontSize != 36 || config.Deck.Watermark != "Sunday Service" {
			t.Errorf("unexpected deck config %+v", config.Deck)
		}

		if config.Sizer.MaxSize != 44 {
			t.Errorf("missing keys should keep defaults, got max_size %d", config.Sizer.MaxSize)
		}
	})

	t.Run("LoadConfig rejects invalid sizer bounds", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		bad := "[sizer]\nmin_size = 50\nmax_size = 20\n"
		if err := os.WriteFile(configPath, []byte(bad), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadConfig rejects unknown storage backend", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[storage]\nbackend = \"s3\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/config.toml"); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
