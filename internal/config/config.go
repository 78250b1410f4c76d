package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all instinct configuration.
type Config struct {
	// Home is the homunculus directory; relative paths below resolve against it.
	Home     string         `toml:"home"`
	Paths    PathsConfig    `toml:"paths"`
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Evolve   EvolveConfig   `toml:"evolve"`
	Log      LogConfig      `toml:"log"`
}

type PathsConfig struct {
	Instincts    string `toml:"instincts"`    // default: instincts/personal
	Observations string `toml:"observations"` // default: observations.jsonl
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path    string `toml:"path"` // default: instinct.db
	Enabled bool   `toml:"enabled"`
}

type EvolveConfig struct {
	Workers  int      `toml:"workers"`
	Debounce Duration `toml:"debounce"` // evolve --watch settle time
	Interval Duration `toml:"interval"` // periodic pass under serve; 0 disables
}

type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // console or json
}

// Duration is a time.Duration that reads TOML strings like "2s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultHome returns ~/.claude/homunculus.
func DefaultHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".claude", "homunculus"), nil
}

// Default returns a Config with sensible defaults. Home is left empty and
// resolved by Load.
func Default() Config {
	return Config{
		Paths: PathsConfig{
			Instincts:    filepath.Join("instincts", "personal"),
			Observations: "observations.jsonl",
		},
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
		Database: DatabaseConfig{
			Path:    "instinct.db",
			Enabled: true,
		},
		Evolve: EvolveConfig{
			Workers:  4,
			Debounce: Duration{2 * time.Second},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration: defaults, then the TOML file at path (or
// <home>/instinct.toml when path is empty; a missing default file is fine),
// then environment overrides INSTINCT_HOME, INSTINCT_DB and INSTINCT_LOG_LEVEL.
func Load(path string) (Config, error) {
	return LoadHome(path, "")
}

// LoadHome is Load with an explicit home directory that wins over both the
// file and INSTINCT_HOME. An empty home behaves like Load.
func LoadHome(path, home string) (Config, error) {
	cfg := Default()

	if env := os.Getenv("INSTINCT_HOME"); env != "" {
		cfg.Home = env
	}
	if home != "" {
		cfg.Home = home
	}
	if cfg.Home == "" {
		def, err := DefaultHome()
		if err != nil {
			return cfg, err
		}
		cfg.Home = def
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.Home, "instinct.toml")
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	// The environment wins over the file, the caller over both.
	if env := os.Getenv("INSTINCT_HOME"); env != "" {
		cfg.Home = env
	}
	if home != "" {
		cfg.Home = home
	}
	if db := os.Getenv("INSTINCT_DB"); db != "" {
		cfg.Database.Path = db
	}
	if lvl := os.Getenv("INSTINCT_LOG_LEVEL"); lvl != "" {
		cfg.Log.Level = lvl
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise fail later and less clearly.
func (c *Config) Validate() error {
	if c.Evolve.Workers < 1 {
		return fmt.Errorf("evolve.workers must be at least 1, got %d", c.Evolve.Workers)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Evolve.Debounce.Duration < 0 || c.Evolve.Interval.Duration < 0 {
		return errors.New("evolve durations must not be negative")
	}
	return nil
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Home, p)
}

// InstinctsDir returns the absolute instincts directory.
func (c *Config) InstinctsDir() string { return c.resolve(c.Paths.Instincts) }

// ObservationsFile returns the absolute observation log path.
func (c *Config) ObservationsFile() string { return c.resolve(c.Paths.Observations) }

// DBPath returns the absolute history database path.
func (c *Config) DBPath() string { return c.resolve(c.Database.Path) }

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
