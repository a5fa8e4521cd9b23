// Package config handles configuration management using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents waywall's on-disk configuration. Scripting and scene
// configuration (Lua, shaders) are external collaborators and are not
// represented here; only the knobs the core itself consumes are modelled.
type Config struct {
	Input    InputConfig    `mapstructure:"input"`
	Cursor   CursorConfig   `mapstructure:"cursor"`
	Xwayland XwaylandConfig `mapstructure:"xwayland"`
	UI       UIConfig       `mapstructure:"ui"`
}

// InputConfig contains keyboard/pointer tuning consumed by the seat and
// pointer-constraints components.
type InputConfig struct {
	XkbLayout                 string  `mapstructure:"xkb_layout"`
	XkbVariant                string  `mapstructure:"xkb_variant"`
	XkbModel                  string  `mapstructure:"xkb_model"`
	XkbOptions                string  `mapstructure:"xkb_options"`
	RepeatRate                int32   `mapstructure:"repeat_rate"`
	RepeatDelay               int32   `mapstructure:"repeat_delay"`
	ConfinePointerSensitivity float64 `mapstructure:"confine_pointer_sensitivity"`
}

// CursorConfig selects the xcursor theme used by the cursor component.
type CursorConfig struct {
	Theme string `mapstructure:"theme"`
	Size  int32  `mapstructure:"size"`
}

// XwaylandConfig controls whether and how the Xwayland subsystem is spawned.
type XwaylandConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Binary  string `mapstructure:"binary"`
}

// UIConfig controls the root surface's static appearance.
type UIConfig struct {
	BackgroundColor string `mapstructure:"background_color"`
}

// DefaultConfig provides sensible defaults for every section.
var DefaultConfig = Config{
	Input: InputConfig{
		XkbLayout:                 "us",
		RepeatRate:                25,
		RepeatDelay:               600,
		ConfinePointerSensitivity: 1.0,
	},
	Cursor: CursorConfig{
		Theme: "default",
		Size:  24,
	},
	Xwayland: XwaylandConfig{
		Enabled: true,
		Binary:  "Xwayland",
	},
	UI: UIConfig{
		BackgroundColor: "#000000",
	},
}

var cfg *Config

// Init loads the configuration from disk, falling back to DefaultConfig for
// any value the file does not set.
func Init(path string) error {
	viper.SetConfigType("toml")

	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("waywall")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "waywall"))
		}
		viper.AddConfigPath(".")
	}

	viper.SetDefault("input", DefaultConfig.Input)
	viper.SetDefault("cursor", DefaultConfig.Cursor)
	viper.SetDefault("xwayland", DefaultConfig.Xwayland)
	viper.SetDefault("ui", DefaultConfig.UI)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// Get returns the current configuration, or DefaultConfig if Init has not
// been called (used by tests).
func Get() *Config {
	if cfg == nil {
		d := DefaultConfig
		return &d
	}
	return cfg
}
