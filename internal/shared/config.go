package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Playback PlaybackConfig `toml:"playback"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Feed     FeedConfig     `toml:"feed"`
}

// PlaybackConfig contains sequencer timing settings.
type PlaybackConfig struct {
	TickMS          int    `toml:"tick_ms"`
	ImageDurationMS int    `toml:"image_duration_ms"`
	DropExpired     bool   `toml:"drop_expired"`
	LogPath         string `toml:"log_path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the remote control surface.
type ServerConfig struct {
	Host              string  `toml:"host"`
	Port              int     `toml:"port"`
	CommandsPerSecond float64 `toml:"commands_per_second"`
	Burst             int     `toml:"burst"`
}

// FeedConfig contains snapshot source settings.
type FeedConfig struct {
	FixturePath       string  `toml:"fixture_path"`
	ProxyURL          string  `toml:"proxy_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// TickResolution returns the configured clock resolution.
func (c PlaybackConfig) TickResolution() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

// ImageDuration returns the configured display duration for images.
func (c PlaybackConfig) ImageDuration() time.Duration {
	return time.Duration(c.ImageDurationMS) * time.Millisecond
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate reports the first setting that cannot drive a playback session.
func (c *Config) Validate() error {
	switch {
	case c.Playback.TickMS <= 0:
		return fmt.Errorf("%w: playback.tick_ms must be positive, got %d", ErrInvalidConfig, c.Playback.TickMS)
	case c.Playback.ImageDurationMS <= 0:
		return fmt.Errorf("%w: playback.image_duration_ms must be positive, got %d", ErrInvalidConfig, c.Playback.ImageDurationMS)
	case c.Playback.ImageDurationMS < c.Playback.TickMS:
		return fmt.Errorf("%w: playback.image_duration_ms (%d) is shorter than one tick (%d)", ErrInvalidConfig, c.Playback.ImageDurationMS, c.Playback.TickMS)
	case c.Database.Path == "":
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: server.port out of range: %d", ErrInvalidConfig, c.Server.Port)
	case c.Server.CommandsPerSecond < 0 || c.Feed.RequestsPerSecond < 0:
		return fmt.Errorf("%w: rate limits cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
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

// LoadConfigOrDefault loads path when it exists and falls back to [DefaultConfig] otherwise.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
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
