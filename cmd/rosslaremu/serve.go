package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"go.tigermatt.uk/rosslar"
)

type serveFlags struct {
	linkFlags
	flushInterval time.Duration
	patience      time.Duration
	turnaround    time.Duration
	record        string
	metricsAddr   string
}

func serveCommand(opts *rootOptions) *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve [DEVICE]",
		Short: "Answer door queries on a serial port",
		Long: `Answer door queries on a serial port.

DEVICE is a port name or path, a USB serial number, a VID:PID pair or
part of the USB product description. It overrides serial_port from the
config file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, opts, &f, args)
		},
	}
	f.register(cmd)
	cmd.Flags().DurationVar(&f.flushInterval, "flush-interval", 0, "How often due replies are written")
	cmd.Flags().DurationVar(&f.patience, "patience", 0, "How long a partial frame is kept")
	cmd.Flags().DurationVar(&f.turnaround, "turnaround", 0, "Delay before a reply is released")
	cmd.Flags().StringVar(&f.record, "record", "", "Record the session to FILE")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}

func serve(cmd *cobra.Command, opts *rootOptions, f *serveFlags, args []string) error {
	var device string
	if len(args) > 0 {
		device = args[0]
	}

	cfg, err := opts.load(cmd, &f.linkFlags, device)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("flush-interval") {
		cfg.FlushInterval = f.flushInterval
	}
	if cmd.Flags().Changed("patience") {
		cfg.Patience = f.patience
	}
	if cmd.Flags().Changed("turnaround") {
		cfg.Turnaround = f.turnaround
	}
	if cmd.Flags().Changed("record") {
		cfg.Record = f.record
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	session := uuid.NewString()
	logger = logger.With("session", session)

	p, name, err := openPort(cfg)
	if err != nil {
		return err
	}
	defer p.Close()
	logger.Info("opened serial port", "port", name, "spec", cfg.SerialPort, "driver", cfg.Driver, "baud", cfg.Baud)

	e := &rosslar.Emulator{
		Port:          p,
		Sink:          rosslar.LogSink(logger),
		Logger:        logger,
		Session:       session,
		FlushInterval: cfg.FlushInterval,
		Patience:      cfg.Patience,
		Turnaround:    cfg.Turnaround,
	}

	if cfg.Record != "" {
		out, err := os.Create(cfg.Record)
		if err != nil {
			return fmt.Errorf("creating recording: %w", err)
		}
		defer out.Close()
		e.Recorder = &rosslar.Recorder{Dest: out}
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		if e.Metrics, err = rosslar.NewMetrics(reg); err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}

		srv := metricsServer(cfg.MetricsAddr, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", "err", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	ctx, stop := listenStop()
	defer stop()

	return e.Run(ctx)
}

func metricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
