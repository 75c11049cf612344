// Package config loads delegate runtime settings from TOML.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/Swind/go-delegate/core"
)

// EnvLogLevel overrides the configured log level when set.
const EnvLogLevel = "DELEGATE_LOG_LEVEL"

// Config is the resolved runtime configuration.
type Config struct {
	Log      LogConfig
	Delegate DelegateConfig
	Workers  []WorkerConfig
}

type LogConfig struct {
	Level   string
	NoColor bool
}

// DelegateConfig holds defaults for blocking delegates.
type DelegateConfig struct {
	// WaitTimeout is the default wait for blocking delegates. core.WaitInfinite waits forever.
	WaitTimeout time.Duration
}

// WorkerConfig describes one worker thread.
type WorkerConfig struct {
	Name            string
	HistoryCapacity int
}

// fileConfig is the TOML key mapping.
type fileConfig struct {
	Log struct {
		Level   string `toml:"level"`
		NoColor bool   `toml:"no_color"`
	} `toml:"log"`
	Delegate struct {
		WaitTimeout Duration `toml:"wait_timeout"`
	} `toml:"delegate"`
	Workers []struct {
		Name            string `toml:"name"`
		HistoryCapacity int    `toml:"history_capacity"`
	} `toml:"workers"`
}

// Duration decodes TOML strings such as "250ms" or "infinite".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	switch strings.ToLower(raw) {
	case "infinite", "forever", "-1":
		d.Duration = core.WaitInfinite
		return nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log:      LogConfig{Level: "info"},
		Delegate: DelegateConfig{WaitTimeout: core.WaitInfinite},
		Workers:  []WorkerConfig{{Name: "main", HistoryCapacity: 100}},
	}
}

// Load reads path and overlays it on Default.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return cfg, nil
}

// Decode reads TOML from r and overlays it on Default. Environment overrides
// are applied last, then the result is validated.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.NewDecoder(r).Decode(&raw)
	if err != nil {
		return Config{}, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}
	if meta.IsDefined("delegate", "wait_timeout") {
		cfg.Delegate.WaitTimeout = raw.Delegate.WaitTimeout.Duration
	}
	if meta.IsDefined("workers") {
		cfg.Workers = nil
		for _, w := range raw.Workers {
			cfg.Workers = append(cfg.Workers, WorkerConfig{
				Name:            strings.TrimSpace(w.Name),
				HistoryCapacity: w.HistoryCapacity,
			})
		}
	}

	applyEnvOverrides(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if lvl := strings.TrimSpace(os.Getenv(EnvLogLevel)); lvl != "" {
		cfg.Log.Level = lvl
	}
}

// Validate checks a Config for values the runtime cannot use.
func Validate(cfg Config) error {
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		return err
	}
	if cfg.Delegate.WaitTimeout < 0 && cfg.Delegate.WaitTimeout != core.WaitInfinite {
		return fmt.Errorf("delegate wait_timeout must be positive or infinite, got %s", cfg.Delegate.WaitTimeout)
	}
	seen := make(map[string]bool, len(cfg.Workers))
	for i, w := range cfg.Workers {
		if w.Name == "" {
			return fmt.Errorf("worker[%d] invalid: name is required", i)
		}
		if seen[w.Name] {
			return fmt.Errorf("worker[%d] invalid: duplicate name %q", i, w.Name)
		}
		if w.HistoryCapacity < 0 {
			return fmt.Errorf("worker[%d] invalid: history_capacity must not be negative", i)
		}
		seen[w.Name] = true
	}
	return nil
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(raw string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "disabled", "off", "none":
		return zerolog.Disabled, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", raw)
	}
}

// NewLogger builds the console logger described by cfg.Log.
func (cfg Config) NewLogger(w io.Writer) core.Logger {
	level, err := ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    cfg.Log.NoColor,
		TimeFormat: time.RFC3339,
	}
	return core.NewZerologLogger(zerolog.New(output).Level(level).With().Timestamp().Logger())
}

// DelegateOptions returns core options carrying the configured timeout.
func (cfg Config) DelegateOptions() []core.Option {
	return []core.Option{core.WithTimeout(cfg.Delegate.WaitTimeout)}
}
