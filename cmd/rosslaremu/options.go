package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go.tigermatt.uk/rosslar/internal/config"
	"go.tigermatt.uk/rosslar/internal/port"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// linkFlags are the settings every command that opens a port accepts.
type linkFlags struct {
	driver      string
	baud        int
	readTimeout time.Duration
}

func (f *linkFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.driver, "driver", "", "Serial driver: bugst or tarm")
	cmd.Flags().IntVar(&f.baud, "baud", 0, "Baud rate")
	cmd.Flags().DurationVar(&f.readTimeout, "read-timeout", 0, "Serial read timeout")
}

// load reads the config file and lays the flags that were set over it.
func (o *rootOptions) load(cmd *cobra.Command, link *linkFlags, device string) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}

	if device != "" {
		cfg.SerialPort = device
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if link != nil {
		if cmd.Flags().Changed("driver") {
			cfg.Driver = link.driver
		}
		if cmd.Flags().Changed("baud") {
			cfg.Baud = link.baud
		}
		if cmd.Flags().Changed("read-timeout") {
			cfg.ReadTimeout = link.readTimeout
		}
	}

	return cfg, nil
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func openPort(cfg config.Config) (port.Port, string, error) {
	driver, err := port.ParseDriver(cfg.Driver)
	if err != nil {
		return nil, "", err
	}

	return port.Open(port.Options{
		Spec:        cfg.SerialPort,
		Driver:      driver,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
}

func listenStop() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
