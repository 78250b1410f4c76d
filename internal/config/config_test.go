package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Bind != "127.0.0.1" {
		t.Errorf("Bind = %q, want 127.0.0.1", cfg.Server.Bind)
	}
	if cfg.Evolve.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Evolve.Workers)
	}
	if cfg.Evolve.Debounce.Duration != 2*time.Second {
		t.Errorf("Debounce = %v, want 2s", cfg.Evolve.Debounce)
	}
	if !cfg.Database.Enabled {
		t.Error("Database.Enabled = false, want true")
	}
}

func TestLoadMissingDefaultFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("INSTINCT_HOME", home)
	t.Setenv("INSTINCT_DB", "")
	t.Setenv("INSTINCT_LOG_LEVEL", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Home != home {
		t.Errorf("Home = %q, want %q", cfg.Home, home)
	}
	if got, want := cfg.InstinctsDir(), filepath.Join(home, "instincts", "personal"); got != want {
		t.Errorf("InstinctsDir = %q, want %q", got, want)
	}
	if got, want := cfg.ObservationsFile(), filepath.Join(home, "observations.jsonl"); got != want {
		t.Errorf("ObservationsFile = %q, want %q", got, want)
	}
}

func TestLoadFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("INSTINCT_HOME", home)
	t.Setenv("INSTINCT_DB", "")
	t.Setenv("INSTINCT_LOG_LEVEL", "")

	content := `
[paths]
instincts = "/abs/instincts"

[server]
port = 40000

[evolve]
workers = 8
debounce = "500ms"
interval = "1h"

[log]
level = "debug"
`
	if err := os.WriteFile(filepath.Join(home, "instinct.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.InstinctsDir() != "/abs/instincts" {
		t.Errorf("InstinctsDir = %q, want /abs/instincts", cfg.InstinctsDir())
	}
	if cfg.ListenAddr() != "127.0.0.1:40000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr())
	}
	if cfg.Evolve.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Evolve.Workers)
	}
	if cfg.Evolve.Debounce.Duration != 500*time.Millisecond {
		t.Errorf("Debounce = %v, want 500ms", cfg.Evolve.Debounce)
	}
	if cfg.Evolve.Interval.Duration != time.Hour {
		t.Errorf("Interval = %v, want 1h", cfg.Evolve.Interval)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	// Unset keys keep defaults
	if cfg.Paths.Observations != "observations.jsonl" {
		t.Errorf("Observations = %q", cfg.Paths.Observations)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("INSTINCT_HOME", home)
	t.Setenv("INSTINCT_DB", "/tmp/other.db")
	t.Setenv("INSTINCT_LOG_LEVEL", "warn")

	path := filepath.Join(t.TempDir(), "custom.toml")
	if err := os.WriteFile(path, []byte("[log]\nlevel = \"debug\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath() != "/tmp/other.db" {
		t.Errorf("DBPath = %q, want /tmp/other.db", cfg.DBPath())
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn (env wins)", cfg.Log.Level)
	}
}

func TestLoadExplicitMissing(t *testing.T) {
	t.Setenv("INSTINCT_HOME", t.TempDir())
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing explicit config, got nil")
	}
}

func TestLoadInvalid(t *testing.T) {
	home := t.TempDir()
	t.Setenv("INSTINCT_HOME", home)

	cases := []string{
		"[evolve]\nworkers = 0\n",
		"[evolve]\ndebounce = \"soon\"\n",
		"not = [valid toml",
	}
	for _, c := range cases {
		path := filepath.Join(t.TempDir(), "bad.toml")
		if err := os.WriteFile(path, []byte(c), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("Load(%q): expected error, got nil", c)
		}
	}
}

func TestLoadHomeWins(t *testing.T) {
	t.Setenv("INSTINCT_HOME", t.TempDir())
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, "instinct.toml"), []byte("[evolve]\nworkers = 2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadHome("", home)
	if err != nil {
		t.Fatalf("LoadHome: %v", err)
	}
	if cfg.Home != home {
		t.Errorf("Home = %q, want %q", cfg.Home, home)
	}
	if cfg.Evolve.Workers != 2 {
		t.Errorf("Workers = %d, want 2 (file under the explicit home is read)", cfg.Evolve.Workers)
	}
	if cfg.InstinctsDir() != filepath.Join(home, "instincts", "personal") {
		t.Errorf("InstinctsDir = %q", cfg.InstinctsDir())
	}
}
