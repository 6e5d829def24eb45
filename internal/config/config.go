package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/thyrook/clanker/internal/decision"
	"github.com/thyrook/clanker/internal/engine"
	"github.com/thyrook/clanker/internal/vision"
)

// Config represents the application configuration
type Config struct {
	AppName   string          `json:"app_name"`
	Version   string          `json:"version"`
	Vision    vision.Config   `json:"vision"`
	Engine    engine.Options  `json:"engine"`
	Play      PlayConfig      `json:"play"`
	Storage   StorageConfig   `json:"storage"`
	Interface InterfaceConfig `json:"interface"`
}

// PlayConfig contains player loop settings
type PlayConfig struct {
	Premove             bool `json:"premove"`               // Premove captures after each move
	PremoveElo          int  `json:"premove_elo"`           // Strength used to predict the opponent
	ActionPauseMs       int  `json:"action_pause_ms"`       // Pause before each mouse action
	FastPauseMs         int  `json:"fast_pause_ms"`         // Pause when our clock is low
	PremovePauseMs      int  `json:"premove_pause_ms"`      // Pause for premoves
	ValidateEngine      bool `json:"validate_engine"`       // Check positions with a throwaway engine
	ValidationDepth     int  `json:"validation_depth"`      // Search depth of that check
	ValidationTimeoutMs int  `json:"validation_timeout_ms"` // Longest wait for that engine
}

// StorageConfig contains move history settings
type StorageConfig struct {
	HistoryPath string `json:"history_path"` // Empty disables the history
	HistorySize int    `json:"history_size"`
}

// InterfaceConfig contains console and logging settings
type InterfaceConfig struct {
	LogLevel string `json:"log_level"`
	LogPath  string `json:"log_path"` // Empty logs to stdout only
	Quiet    bool   `json:"quiet"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		AppName: "clanker",
		Version: "0.3.0",
		Vision:  *vision.DefaultConfig(),
		Engine:  engine.DefaultOptions(),
		Play: PlayConfig{
			Premove:             false,
			PremoveElo:          2000,
			ActionPauseMs:       100,
			FastPauseMs:         1,
			PremovePauseMs:      10,
			ValidateEngine:      true,
			ValidationDepth:     1,
			ValidationTimeoutMs: 2000,
		},
		Storage: StorageConfig{
			HistoryPath: "data/history.db",
			HistorySize: 10000,
		},
		Interface: InterfaceConfig{
			LogLevel: "info",
			LogPath:  "logs/clanker.log",
		},
	}
}

// Load reads and parses the configuration file. Missing fields keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, falling back to the defaults when it cannot be
// read.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Vision.Validate(); err != nil {
		return fmt.Errorf("vision: %w", err)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	if c.Play.PremoveElo < 0 {
		return fmt.Errorf("invalid premove elo: %d", c.Play.PremoveElo)
	}
	if c.Play.ActionPauseMs < 0 || c.Play.FastPauseMs < 0 || c.Play.PremovePauseMs < 0 {
		return fmt.Errorf("pauses must be non-negative")
	}
	if c.Play.ValidateEngine && (c.Play.ValidationDepth < 1 || c.Play.ValidationDepth > 64) {
		return fmt.Errorf("invalid validation depth: %d (must be 1-64)", c.Play.ValidationDepth)
	}
	if c.Play.ValidateEngine && c.Play.ValidationTimeoutMs <= 0 {
		return fmt.Errorf("invalid validation timeout: %dms", c.Play.ValidationTimeoutMs)
	}

	if c.Storage.HistorySize <= 0 {
		return fmt.Errorf("invalid history size: %d", c.Storage.HistorySize)
	}

	switch c.Interface.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Interface.LogLevel)
	}

	return nil
}

// EnsureDirectories creates the parent directories of every configured path
func (c *Config) EnsureDirectories() error {
	for _, path := range []string{c.Storage.HistoryPath, c.Interface.LogPath} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
	}
	return nil
}

// HistoryEnabled reports whether played moves are persisted.
func (c *Config) HistoryEnabled() bool {
	return c.Storage.HistoryPath != ""
}

// ValidationTimeout is the longest a validation engine may take per position.
func (c *Config) ValidationTimeout() time.Duration {
	return time.Duration(c.Play.ValidationTimeoutMs) * time.Millisecond
}

// PlayerConfig converts the play section into the player's settings.
func (c *Config) PlayerConfig() decision.PlayConfig {
	pc := decision.DefaultPlayConfig()
	pc.Elo = c.Engine.Elo
	pc.PremoveElo = c.Play.PremoveElo
	pc.Premove = c.Play.Premove
	pc.ActionPause = time.Duration(c.Play.ActionPauseMs) * time.Millisecond
	pc.FastPause = time.Duration(c.Play.FastPauseMs) * time.Millisecond
	pc.PremovePause = time.Duration(c.Play.PremovePauseMs) * time.Millisecond
	if c.Vision.FPS > 0 {
		pc.PollInterval = time.Second / time.Duration(c.Vision.FPS)
	}
	return pc
}
