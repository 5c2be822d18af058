package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/comalice/blockx/block"
	"github.com/comalice/blockx/internal/app"
	"github.com/comalice/blockx/internal/production"
)

// ExitError carries the process exit code for a failed run.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	config      *app.Config
	dot         bool
	descriptors string
}

func parse(args []string, outW io.Writer) (*options, bool, error) {
	fs := flag.NewFlagSet("blockx-demo", flag.ContinueOnError)
	fs.SetOutput(outW)
	fs.Usage = func() {
		fmt.Fprint(outW, `
blockx-demo - runs a thermostat network and a water phase model.

Usage:
  blockx-demo [options]

Options:
`)
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "Path to a YAML configuration file.")
	logLevel := fs.String("log-level", "", "Override the log level: debug, info, warn or error.")
	logFormat := fs.String("log-format", "", "Override the log format: text or json.")
	duration := fs.Duration("duration", 0, "Override how long the model runs.")
	sync := fs.Bool("sync", false, "Run every machine synchronously.")
	dot := fs.Bool("dot", false, "Print the water topology in DOT format after the run.")
	descriptors := fs.String("descriptors", "", "Directory to write topology descriptors to.")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	cfg := app.DefaultConfig()
	if *configPath != "" {
		loaded, err := app.LoadConfig(*configPath)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		cfg = loaded
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *duration > 0 {
		cfg.Model.Duration = *duration
	}
	if *sync {
		cfg.Engine.Synchronous = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return &options{config: cfg, dot: *dot, descriptors: *descriptors}, false, nil
}

func run(ctx context.Context, outW io.Writer, args []string) error {
	opts, shouldExit, err := parse(args, outW)
	if err != nil || shouldExit {
		return err
	}

	a, err := app.New(ctx, outW, opts.config)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			a.Logger.Warn("closing trace sinks failed", "error", err)
		}
	}()

	p, err := buildPlant(a)
	if err != nil {
		return err
	}
	if opts.descriptors != "" {
		if err := writeDescriptors(a.Logger, opts.descriptors, p.root); err != nil {
			return err
		}
	}

	runCtx, cancel := context.WithCancel(a.Context(ctx))
	defer cancel()

	if err := p.root.Start(runCtx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	p.feed(opts.config.Model.Temperatures, opts.config.Model.SamplePeriod)

	select {
	case <-ctx.Done():
		a.Logger.Info("interrupted, stopping")
	case <-time.After(opts.config.Model.Duration):
	}
	phase := p.water.Machine().CurrentName()

	p.root.Stop()
	cancel()
	if err := p.root.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(outW, "temperature: %.2f\n", p.temperature.Get())
	fmt.Fprintf(outW, "heater power: %.0f\n", p.power.Get())
	fmt.Fprintf(outW, "comfort deviation: %.2f\n", p.comfort.Output().Get())
	fmt.Fprintf(outW, "controller runs: %d\n", p.controller.Performed())
	fmt.Fprintf(outW, "water phase: %s\n", phase)

	if opts.dot {
		m := p.water.Machine()
		v := &production.DefaultVisualizer{}
		fmt.Fprintln(outW, v.ExportDOT(m.Topology(), m.Current()))
	}
	return nil
}

// writeDescriptors stores the descriptor of every machine in the block
// tree rooted at b.
func writeDescriptors(logger *slog.Logger, dir string, b *block.Block) error {
	w, err := production.NewDescriptorWriter(dir, ".yaml")
	if err != nil {
		return err
	}
	var walk func(*block.Block) error
	walk = func(b *block.Block) error {
		if m := b.Machine(); m != nil {
			path, err := w.Write(production.Describe(m.Topology()))
			if err != nil {
				return fmt.Errorf("describe %s: %w", b.Path(), err)
			}
			logger.Debug("descriptor written", "block", b.Path(), "path", path)
		}
		for _, part := range b.Parts() {
			if err := walk(part); err != nil {
				return err
			}
		}
		return nil
	}
	start := time.Now()
	if err := walk(b); err != nil {
		return err
	}
	logger.Info("descriptors written", "dir", dir, "elapsed", time.Since(start))
	return nil
}
