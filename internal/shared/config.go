package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Database DatabaseConfig `toml:"database"`
	Storage  StorageConfig  `toml:"storage"`
	Server   ServerConfig   `toml:"server"`
	Lyrics   LyricsConfig   `toml:"lyrics"`
	Deck     DeckConfig     `toml:"deck"`
	Sizer    SizerConfig    `toml:"sizer"`
	Export   ExportConfig   `toml:"export"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// StorageConfig selects where saved presentations live.
type StorageConfig struct {
	Backend  string `toml:"backend"`
	FilePath string `toml:"file_path"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LyricsConfig contains settings for the lyrics client and the upstream scraper.
type LyricsConfig struct {
	BaseURL           string  `toml:"base_url"`
	GeniusAPIURL      string  `toml:"genius_api_url"`
	GeniusToken       string  `toml:"genius_token"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// DeckConfig contains the global style defaults and propagation policy for new decks.
type DeckConfig struct {
	Background           string `toml:"background"`
	FontSize             int    `toml:"font_size"`
	Transition           string `toml:"transition"`
	Watermark            string `toml:"watermark"`
	ApplyBackgroundToAll bool   `toml:"apply_background_to_all"`
	ApplyFontSizeToAll   bool   `toml:"apply_font_size_to_all"`
	PreserveEdits        bool   `toml:"preserve_edits"`
}

// SizerConfig contains auto-fit bounds and the reference rendering box.
type SizerConfig struct {
	MinSize   int `toml:"min_size"`
	MaxSize   int `toml:"max_size"`
	Step      int `toml:"step"`
	BoxWidth  int `toml:"box_width"`
	BoxHeight int `toml:"box_height"`
}

// ExportConfig contains export output settings.
type ExportConfig struct {
	OutputDir string `toml:"output_dir"`
	FixZip    bool   `toml:"fix_zip"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks value ranges that would otherwise break the sizer or the server.
func (c *Config) Validate() error {
	if c.Sizer.MinSize <= 0 || c.Sizer.MaxSize < c.Sizer.MinSize {
		return fmt.Errorf("%w: sizer bounds must satisfy 0 < min_size <= max_size", ErrInvalidConfig)
	}
	if c.Sizer.Step <= 0 {
		return fmt.Errorf("%w: sizer step must be positive", ErrInvalidConfig)
	}
	if c.Deck.FontSize <= 0 {
		return fmt.Errorf("%w: deck font_size must be positive", ErrInvalidConfig)
	}
	switch c.Storage.Backend {
	case "sqlite", "file":
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
