// Package app wires configuration, logging and tracing for binaries built
// on blockx.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/comalice/blockx"
	"github.com/comalice/blockx/binding"
	"github.com/comalice/blockx/block"
	"github.com/comalice/blockx/internal/ctxlog"
	"github.com/comalice/blockx/internal/production"
)

// Version is reported as the tracing service version.
const Version = "0.1.0"

// App holds the shared dependencies of one run.
type App struct {
	Config      *Config
	Logger      *slog.Logger
	Transmitter blockx.Transmitter

	closers []func(context.Context) error
}

// New validates cfg and builds the logger and trace transmitter. Logs and
// traces without a file go to outW.
func New(ctx context.Context, outW io.Writer, cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{
		Config: cfg,
		Logger: NewLogger(cfg.Log.Level, cfg.Log.Format, outW),
	}
	if err := a.setupTrace(ctx, outW); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.Logger.Debug("app configured", "exporter", cfg.Trace.Exporter, "synchronous", cfg.Engine.Synchronous)
	return a, nil
}

func (a *App) setupTrace(ctx context.Context, outW io.Writer) error {
	tc := a.Config.Trace
	if tc.Exporter == "none" {
		return nil
	}
	w := outW
	if tc.File != "" {
		f, err := os.Create(tc.File)
		if err != nil {
			return fmt.Errorf("trace file: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return f.Close() })
		w = f
	}

	switch tc.Exporter {
	case "yaml":
		t := production.NewYAMLTransmitter(w)
		a.closers = append(a.closers, func(context.Context) error { return t.Close() })
		a.Transmitter = t
	case "stdout", "otel":
		tp, err := production.NewStdoutProvider(ctx, tc.Service, Version, w)
		if err != nil {
			return fmt.Errorf("trace provider: %w", err)
		}
		a.closers = append(a.closers, tp.Shutdown)
		a.Transmitter = production.NewOTelTransmitter(tp)
	}
	return nil
}

// Context returns ctx carrying the app logger.
func (a *App) Context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.Logger)
}

// MachineOptions returns the machine options implied by the configuration.
func (a *App) MachineOptions() []blockx.Option {
	return append([]blockx.Option{blockx.WithLogger(a.Logger)}, a.engineOptions()...)
}

func (a *App) engineOptions() []blockx.Option {
	var opts []blockx.Option
	if a.Transmitter != nil {
		opts = append(opts, blockx.WithTransmitter(a.Transmitter))
	}
	if a.Config.Engine.Synchronous {
		opts = append(opts, blockx.Synchronous())
	}
	return opts
}

// BlockOptions returns the block options implied by the configuration.
func (a *App) BlockOptions() []block.Option {
	return []block.Option{
		block.WithLogger(a.Logger),
		block.WithPoolSize(a.Config.Engine.PoolSize),
		block.WithMachineOptions(a.MachineOptions()...),
	}
}

// ConstraintOptions returns the constraint options implied by the
// configuration.
func (a *App) ConstraintOptions() []binding.Option {
	return []binding.Option{
		binding.WithLogger(a.Logger),
		binding.WithMachineOptions(a.engineOptions()...),
	}
}

// Close flushes and releases trace sinks in reverse order.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}
