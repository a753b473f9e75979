package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/josh-kwaku/ledger-engine/internal/app"
	"github.com/josh-kwaku/ledger-engine/internal/config"
	"github.com/josh-kwaku/ledger-engine/internal/handler"
	"github.com/josh-kwaku/ledger-engine/internal/logging"
)

const usage = `usage: ledgerctl <command> [flags]

accounts:
  open        open an account for an owner
  get         show an account
  list        list an owner's accounts
  balance     show an account's balances
  block       block an account
  unblock     unblock an account
  deactivate  deactivate an account
  limit       change an account's credit limit

transactions:
  process     process a credit, debit, reserve, capture or transfer
  reverse     reverse a processed transaction
  statement   list an account's transactions for a period
  apply       process newline-delimited JSON commands from a file or stdin

server:
  serve       run the health and metrics server, optionally applying stdin
`

var errUsage = errors.New("usage")

type command func(ctx context.Context, a *app.App, args []string, out io.Writer) error

var commands = map[string]command{
	"open":       runOpen,
	"get":        runGet,
	"list":       runList,
	"balance":    runBalance,
	"block":      runBlock,
	"unblock":    runUnblock,
	"deactivate": runDeactivate,
	"limit":      runLimit,
	"process":    runProcess,
	"reverse":    runReverse,
	"statement":  runStatement,
	"apply":      runApply,
	"serve":      runServe,
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	logger := logging.Init("ledgerctl", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start ledger", "error", err)
		return 1
	}
	defer a.Close()

	err = cmd(ctx, a, args[1:], stdout)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		if werr := handler.WriteJSON(stderr, handler.NewFailure(handler.AppErrorFor(err), nil)); werr != nil {
			logger.Error("failed to write error", "error", werr)
		}
		return 1
	}
}
