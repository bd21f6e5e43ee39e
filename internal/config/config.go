// Package config loads the emulator's settings file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"go.tigermatt.uk/rosslar"
	"go.tigermatt.uk/rosslar/internal/port"
)

// DefaultPath is read when no file is named and it exists.
const DefaultPath = "rosslaremu.yaml"

var ErrInvalid = errors.New("invalid config")

type Config struct {
	SerialPort    string        `yaml:"serial_port"`
	Driver        string        `yaml:"driver"`
	Baud          int           `yaml:"baud"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Patience      time.Duration `yaml:"patience"`
	Turnaround    time.Duration `yaml:"turnaround"`
	Record        string        `yaml:"record"`
	MetricsAddr   string        `yaml:"metrics_addr"`
	LogLevel      string        `yaml:"log_level"`
}

func Default() Config {
	return Config{
		Driver:        string(port.BugST),
		Baud:          9600,
		ReadTimeout:   50 * time.Millisecond,
		FlushInterval: rosslar.DefaultFlushInterval,
		Patience:      rosslar.DefaultPatience,
		Turnaround:    rosslar.DefaultTurnaround,
		LogLevel:      "info",
	}
}

// Load reads path over the defaults. An empty path reads DefaultPath if
// it exists and otherwise returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	optional := path == ""
	if optional {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.SerialPort) == "" {
		errs = append(errs, errors.New("serial_port is required"))
	}
	if _, err := port.ParseDriver(c.Driver); err != nil {
		errs = append(errs, err)
	}
	if c.Baud <= 0 {
		errs = append(errs, fmt.Errorf("baud must be positive, got %d", c.Baud))
	}
	for _, d := range []struct {
		name string
		v    time.Duration
	}{
		{"read_timeout", c.ReadTimeout},
		{"flush_interval", c.FlushInterval},
		{"patience", c.Patience},
		{"turnaround", c.Turnaround},
	} {
		if d.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", d.name, d.v))
		}
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
