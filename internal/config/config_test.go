package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAPIURL, EnvSessionPath, EnvDebug} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
api:
  base_url: "https://search.example.com"
  timeout_secs: 30
search:
  default_top_k: 25
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.BaseURL != "https://search.example.com" || cfg.API.Timeout() != 30*time.Second {
		t.Errorf("unexpected api config: %+v", cfg.API)
	}
	if cfg.Search.DefaultTopK != 25 {
		t.Errorf("default_top_k = %d", cfg.Search.DefaultTopK)
	}
	if cfg.Session.Path == "" || !filepath.IsAbs(cfg.Session.Path) {
		t.Errorf("session path should be absolute, got %q", cfg.Session.Path)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("base_url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout() != 0 {
		t.Errorf("timeout = %v, want 0", cfg.API.Timeout())
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("api:\n  base_url: http://file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvAPIURL, "http://env:9000")
	t.Setenv(EnvSessionPath, "./state/session.db")
	t.Setenv(EnvDebug, "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.BaseURL != "http://env:9000" {
		t.Errorf("base_url = %q", cfg.API.BaseURL)
	}
	if want := filepath.Join(dir, "state", "session.db"); cfg.Session.Path != want {
		t.Errorf("session path = %q, want %q", cfg.Session.Path, want)
	}
	if !cfg.Debug {
		t.Error("debug should be enabled from env")
	}

	t.Setenv(EnvDebug, "maybe")
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid debug value")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
session:
  path: "./data/session.db"
watch:
  directories: ["./dev/sample"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "session.db"); cfg.Session.Path != want {
		t.Errorf("session path = %s, want %s", cfg.Session.Path, want)
	}
	if len(cfg.Watch.Directories) != 1 {
		t.Fatalf("watch directories: got %d", len(cfg.Watch.Directories))
	}
	if want := filepath.Join(dir, "dev", "sample"); cfg.Watch.Directories[0] != want {
		t.Errorf("watch directory = %s, want %s", cfg.Watch.Directories[0], want)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Search.DefaultTopK != 10 {
		t.Errorf("default top_k: got %d", cfg.Search.DefaultTopK)
	}
	if cfg.Upload.PollInterval() != 2*time.Second {
		t.Errorf("poll interval: got %v", cfg.Upload.PollInterval())
	}
	if len(cfg.Upload.Extensions) != len(DefaultExtensions) || cfg.Upload.Extensions[0] != ".txt" {
		t.Errorf("upload extensions: got %v", cfg.Upload.Extensions)
	}
	if cfg.Watch.Recursive != nil {
		t.Error("recursive should stay unset without directories")
	}
}

func TestApplyDefaults_WatchRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Watch: WatchConfig{Directories: []string{"/tmp/docs"}}}
	ApplyDefaults(cfg)
	if cfg.Watch.Recursive == nil || !*cfg.Watch.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	f := false
	tests := []struct {
		name string
		w    WatchConfig
		want bool
	}{
		{"nil_returns_true", WatchConfig{}, true},
		{"false_returns_false", WatchConfig{Recursive: &f}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.w.RecursiveOrDefault(); got != tt.want {
				t.Errorf("RecursiveOrDefault() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSave(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "saved.yaml")
	cfg := &Config{
		API:     APIConfig{BaseURL: "http://saved:8000"},
		Session: SessionConfig{Path: "/tmp/session.db"},
		Watch:   WatchConfig{Directories: []string{"/tmp/inbox"}},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.API.BaseURL != "http://saved:8000" || loaded.Session.Path != "/tmp/session.db" {
		t.Errorf("loaded = %+v", loaded)
	}
	if len(loaded.Watch.Directories) != 1 || loaded.Watch.Directories[0] != "/tmp/inbox" {
		t.Errorf("watch directories = %v", loaded.Watch.Directories)
	}
}
