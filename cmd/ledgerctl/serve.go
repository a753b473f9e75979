package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"

	"github.com/josh-kwaku/ledger-engine/internal/app"
)

// runServe hosts the health and metrics endpoints until interrupted. With
// -stdin it also applies commands streamed on standard input.
func runServe(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	stdin := fs.Bool("stdin", false, "apply newline-delimited JSON commands from stdin")
	if err := parse(fs, args); err != nil {
		return err
	}

	var workers []func(context.Context) error
	if *stdin {
		workers = append(workers, func(ctx context.Context) error {
			// A read on stdin cannot be interrupted, so shutdown does not
			// wait for it.
			done := make(chan error, 1)
			go func() { done <- applyStream(ctx, a.Ledger, os.Stdin, out) }()
			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				return nil
			}
		})
	}

	err := a.Serve(ctx, workers...)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
