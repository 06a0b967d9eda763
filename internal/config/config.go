// Package config loads debug-flow settings from defaults, an optional YAML
// file and DEBUG_FLOW_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const (
	DefaultFile = "debug-flow.yml"
	EnvPrefix   = "DEBUG_FLOW_"
)

type Theme string

const (
	ThemeAuto  Theme = "auto"
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Config is the top-level configuration, corresponding to debug-flow.yml.
type Config struct {
	// Repository is the git repository served by `debug-flow serve`.
	Repository string         `yaml:"repository" koanf:"repository"`
	Server     ServerConfig   `yaml:"server" koanf:"server"`
	Database   DatabaseConfig `yaml:"database" koanf:"database"`
	Client     ClientConfig   `yaml:"client" koanf:"client"`
	Editor     EditorConfig   `yaml:"editor" koanf:"editor"`
	Log        LogConfig      `yaml:"log" koanf:"log"`
}

type ServerConfig struct {
	Host           string        `yaml:"host" koanf:"host"`
	Port           int           `yaml:"port" koanf:"port"`
	AllowAll       bool          `yaml:"allow_all" koanf:"allow_all"`
	RequestTimeout time.Duration `yaml:"request_timeout" koanf:"request_timeout"`
	WatchDelay     time.Duration `yaml:"watch_delay" koanf:"watch_delay"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" koanf:"path"`
}

// ClientConfig is used by every command that talks to a running server.
type ClientConfig struct {
	URL     string        `yaml:"url" koanf:"url"`
	Timeout time.Duration `yaml:"timeout" koanf:"timeout"`
}

type EditorConfig struct {
	// StateDir keeps the unsaved document and view preferences between
	// runs. Empty disables persistence.
	StateDir     string        `yaml:"state_dir" koanf:"state_dir"`
	PersistDelay time.Duration `yaml:"persist_delay" koanf:"persist_delay"`
	Theme        Theme         `yaml:"theme" koanf:"theme"`
}

type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Repository: ".",
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8000,
			RequestTimeout: 60 * time.Second,
			WatchDelay:     350 * time.Millisecond,
		},
		Database: DatabaseConfig{Path: filepath.Join(defaultDataDir(), "flows.db")},
		Client: ClientConfig{
			URL:     "http://127.0.0.1:8000",
			Timeout: 30 * time.Second,
		},
		Editor: EditorConfig{
			StateDir:     defaultDataDir(),
			PersistDelay: 500 * time.Millisecond,
			Theme:        ThemeAuto,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "debug-flow")
	}
	return ".debug-flow"
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides. A missing file is not an error. Nested keys
// are separated by a double underscore: DEBUG_FLOW_SERVER__PORT sets
// server.port.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validThemes = map[Theme]bool{
	ThemeAuto:  true,
	ThemeDark:  true,
	ThemeLight: true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"text":   true,
	"json":   true,
	"logfmt": true,
}

// Validate checks that the configuration contains valid values. Every
// problem is reported.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if c.Server.RequestTimeout < 0 {
		errs = append(errs, errors.New("server.request_timeout must be non-negative"))
	}
	if c.Server.WatchDelay < 0 {
		errs = append(errs, errors.New("server.watch_delay must be non-negative"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if u, err := url.Parse(c.Client.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("client.url %q must be an absolute URL", c.Client.URL))
	}
	if c.Client.Timeout < 0 {
		errs = append(errs, errors.New("client.timeout must be non-negative"))
	}
	if c.Editor.PersistDelay < 0 {
		errs = append(errs, errors.New("editor.persist_delay must be non-negative"))
	}
	if !validThemes[c.Editor.Theme] {
		errs = append(errs, fmt.Errorf("invalid editor.theme %q: must be one of auto, dark, light", c.Editor.Theme))
	}
	if !validLogFormats[c.Log.Format] {
		errs = append(errs, fmt.Errorf("invalid log.format %q: must be one of text, json, logfmt", c.Log.Format))
	}
	if !validLogLevels[c.Log.Level] {
		errs = append(errs, fmt.Errorf("invalid log.level %q: must be one of debug, info, warn, error", c.Log.Level))
	}
	return errors.Join(errs...)
}
