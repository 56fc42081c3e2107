// internal/app/app.go
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"parani/internal/cli"
	"parani/internal/cmdutil"
	"parani/internal/dispatch"
	"parani/internal/metrics"
	"parani/internal/tracing"
	"parani/internal/version"
	"parani/internal/writers"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitUsage    = 2
	ExitRuntime  = 3
	ExitCanceled = 130
)

// RunContext parses argv, runs the requested policies and writes reports to
// stdout. Logs, errors and trace spans go to stderr. It returns the process
// exit code.
func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)
	defer func() { _ = outw.Flush() }()

	fs := cli.NewFlagSet("parani")
	fs.SetOutput(io.Discard)

	usage := func(code int) int {
		fs.SetOutput(outw)
		fs.Usage()
		if e := outw.Flush(); writers.IsBrokenPipe(e) {
			return ExitOK
		} else if e != nil {
			_, _ = fmt.Fprintln(stderr, e)
			return ExitRuntime
		}
		return code
	}

	if len(argv) == 0 {
		_, _ = cli.ParseArgs(fs, []string{"-h"})
		return usage(ExitOK)
	}

	opts, err := cli.ParseArgs(fs, argv)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return usage(ExitOK)
		}
		_, _ = fmt.Fprintln(stderr, "error:", err)
		return usage(ExitUsage)
	}

	if opts.Version {
		_, _ = fmt.Fprintf(outw, "parani version %s\n", version.Version)
		if e := outw.Flush(); writers.IsBrokenPipe(e) {
			return ExitOK
		} else if e != nil {
			_, _ = fmt.Fprintln(stderr, e)
			return ExitRuntime
		}
		return ExitOK
	}

	log := cmdutil.NewLogger(stderr, opts.Debug, opts.Quiet)

	if opts.Trace {
		shutdown, err := tracing.Init(stderr, "parani", version.Version)
		if err != nil {
			log.Error().Err(err).Msg("tracing init failed")
			return ExitRuntime
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn().Err(err).Msg("tracing shutdown")
			}
		}()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	d, err := dispatch.New(
		dispatch.Config{Reference: opts.Reference, Candidates: opts.Candidates, Workers: workers},
		dispatch.WithLogger(log),
		dispatch.WithMetrics(m),
	)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "error:", err)
		return ExitUsage
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	inCh, writeErr := writers.StartReportWriter(outw, opts.Output, opts.Header(), 0)
	_, runErr := cmdutil.RunPolicies(ctx, d, opts.DispatchPolicies(), func(r dispatch.Report) error {
		select {
		case inCh <- r:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	close(inCh)

	if opts.MetricsFile != "" {
		if err := metrics.WriteFile(opts.MetricsFile, reg); err != nil {
			log.Warn().Err(err).Str("path", opts.MetricsFile).Msg("metrics not written")
		}
	}

	if werr := <-writeErr; writers.IsBrokenPipe(werr) {
		return ExitOK
	} else if werr != nil {
		_, _ = fmt.Fprintln(stderr, werr)
		return ExitRuntime
	}
	if e := outw.Flush(); writers.IsBrokenPipe(e) {
		return ExitOK
	} else if e != nil {
		_, _ = fmt.Fprintln(stderr, e)
		return ExitRuntime
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return ExitCanceled
		}
		_, _ = fmt.Fprintln(stderr, "error:", runErr)
		return ExitRuntime
	}
	return ExitOK
}

// Run is RunContext with a background context.
func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}
