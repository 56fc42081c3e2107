// Package appshell wires a RunContext-style entry point to the process:
// signals, standard streams and the exit code.
package appshell

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// RunFunc is the shape of app.RunContext.
type RunFunc func(ctx context.Context, argv []string, stdout, stderr io.Writer) int

// Exit code forced when the context is canceled by a signal.
const exitInterrupted = 130

// Main runs fn with a context canceled on SIGINT or SIGTERM and exits with
// its code. A second signal exits immediately.
func Main(fn RunFunc) {
	os.Exit(run(fn, os.Args[1:], os.Stdout, os.Stderr, func(c chan<- os.Signal) {
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	}))
}

func run(fn RunFunc, argv []string, stdout, stderr io.Writer, notify func(chan<- os.Signal)) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 2)
	notify(sigs)
	defer signal.Stop(sigs)

	done := make(chan struct{})
	go func() {
		select {
		case s := <-sigs:
			_, _ = fmt.Fprintf(stderr, "received %s, stopping (again to force)\n", s)
			cancel()
		case <-done:
			return
		}
		select {
		case <-sigs:
			os.Exit(exitInterrupted)
		case <-done:
		}
	}()

	code := fn(ctx, argv, stdout, stderr)
	close(done)
	if ctx.Err() != nil && code == 0 {
		code = exitInterrupted
	}
	return code
}
