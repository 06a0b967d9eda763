package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.Port)
	}
	if cfg.Editor.Theme != ThemeAuto {
		t.Errorf("expected default theme %q, got %q", ThemeAuto, cfg.Editor.Theme)
	}
	if cfg.Client.URL != "http://127.0.0.1:8000" {
		t.Errorf("unexpected default client url %q", cfg.Client.URL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", DefaultFile)

	original := DefaultConfig()
	original.Repository = "/src/project"
	original.Server.Port = 9001
	original.Server.AllowAll = true
	original.Server.WatchDelay = 2 * time.Second
	original.Editor.Theme = ThemeDark
	original.Log.Format = "json"

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "watch_delay: 2s") {
		t.Errorf("durations should be written in human form:\n%s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Repository != original.Repository {
		t.Errorf("repository: got %q, want %q", loaded.Repository, original.Repository)
	}
	if loaded.Server != original.Server {
		t.Errorf("server: got %+v, want %+v", loaded.Server, original.Server)
	}
	if loaded.Editor != original.Editor {
		t.Errorf("editor: got %+v, want %+v", loaded.Editor, original.Editor)
	}
	if loaded.Log != original.Log {
		t.Errorf("log: got %+v, want %+v", loaded.Log, original.Log)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yml"))
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Server.Port != DefaultConfig().Server.Port {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("port: got %d, want 7000", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Log.Level != "info" {
		t.Errorf("unset keys must keep their defaults, got %+v", cfg)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("DEBUG_FLOW_REPOSITORY", "/tmp/repo")
	t.Setenv("DEBUG_FLOW_SERVER__PORT", "8123")
	t.Setenv("DEBUG_FLOW_SERVER__ALLOW_ALL", "true")
	t.Setenv("DEBUG_FLOW_CLIENT__TIMEOUT", "5s")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Repository != "/tmp/repo" {
		t.Errorf("repository override failed: got %q", loaded.Repository)
	}
	if loaded.Server.Port != 8123 || !loaded.Server.AllowAll {
		t.Errorf("server override failed: got %+v", loaded.Server)
	}
	if loaded.Client.Timeout != 5*time.Second {
		t.Errorf("client timeout override failed: got %v", loaded.Client.Timeout)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"DEBUG_FLOW_REPOSITORY":        "repository",
		"DEBUG_FLOW_SERVER__PORT":      "server.port",
		"DEBUG_FLOW_EDITOR__STATE_DIR": "editor.state_dir",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"negative timeout", func(c *Config) { c.Server.RequestTimeout = -time.Second }, "request_timeout"},
		{"empty database", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"relative client url", func(c *Config) { c.Client.URL = "localhost:8000" }, "client.url"},
		{"unknown theme", func(c *Config) { c.Editor.Theme = "solarized" }, "editor.theme"},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"unknown level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Server.Port = -1
	cfg.Log.Level = "loud"
	if err := cfg.Validate(); strings.Count(err.Error(), "\n") != 1 {
		t.Errorf("expected both problems reported, got %q", err)
	}
}
