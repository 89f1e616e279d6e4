// Package config loads the stackbox and stackboxd TOML configuration files.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values for the stackbox command line.
const (
	DefaultSince     = "48h"
	DefaultSortField = "created"
	DefaultSortOrder = "desc"
	DefaultFormat    = "plain"
	DefaultAppName   = "stackbox"
	DefaultPlainTmpl = "{{.Record.Ref}} {{.Record.Title}} ({{.RelativeTime}})"
	DefaultDmenuTmpl = "{{kindIcon .Record.Kind}} {{.Record.Title}} - {{truncate .Record.Content 50}} | {{.RelativeTime}}"
)

// Config represents the stackbox command line configuration.
type Config struct {
	History   HistoryConfig   `toml:"history"`
	Client    ClientConfig    `toml:"client"`
	Templates TemplatesConfig `toml:"templates"`
	Demo      DemoConfig      `toml:"demo"`
}

// HistoryConfig holds the defaults of `stackbox history`.
type HistoryConfig struct {
	Since     string `toml:"since"` // "" or "0" = all time
	Limit     int    `toml:"limit"` // 0 = unlimited
	SortField string `toml:"sort_field"`
	SortOrder string `toml:"sort_order"`
	Format    string `toml:"format"`
}

// ClientConfig holds the defaults used when sending widgets to stackboxd.
type ClientConfig struct {
	AppName string `toml:"app_name"`
	// Wait blocks message box commands until a button is pressed.
	Wait bool `toml:"wait"`
}

// TemplatesConfig holds output templates.
type TemplatesConfig struct {
	Plain  string            `toml:"plain"`
	Dmenu  string            `toml:"dmenu"`
	Custom map[string]string `toml:"custom"`
}

// DemoConfig holds `stackbox demo` settings.
type DemoConfig struct {
	ShowHelp bool `toml:"show_help"`
	// ClipboardCommand overrides clipboard detection, e.g. "wl-copy".
	ClipboardCommand string `toml:"clipboard_command"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		History: HistoryConfig{
			Since:     DefaultSince,
			SortField: DefaultSortField,
			SortOrder: DefaultSortOrder,
			Format:    DefaultFormat,
		},
		Client: ClientConfig{
			AppName: DefaultAppName,
			Wait:    true,
		},
		Templates: TemplatesConfig{
			Plain:  DefaultPlainTmpl,
			Dmenu:  DefaultDmenuTmpl,
			Custom: make(map[string]string),
		},
		Demo: DemoConfig{
			ShowHelp: true,
		},
	}
}

// configDir returns $XDG_CONFIG_HOME/stackbox or ~/.config/stackbox.
func configDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "stackbox")
}

// ConfigPath returns the path to the command line config file.
func ConfigPath() string {
	dir := configDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.toml")
}

// LoadConfig loads configuration from path, or ConfigPath when empty.
// A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Templates.Custom == nil {
		cfg.Templates.Custom = make(map[string]string)
	}

	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetTemplate returns the named template. Custom templates win over the
// built-in ones; an unknown name returns "".
func (c *Config) GetTemplate(name string) string {
	if tmpl, ok := c.Templates.Custom[name]; ok {
		return tmpl
	}

	switch name {
	case "plain":
		return c.Templates.Plain
	case "dmenu":
		return c.Templates.Dmenu
	default:
		return ""
	}
}
