package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/josh-kwaku/ledger-engine/internal/app"
	"github.com/josh-kwaku/ledger-engine/internal/domain"
	"github.com/josh-kwaku/ledger-engine/internal/handler"
	"github.com/josh-kwaku/ledger-engine/internal/logging"
	"github.com/josh-kwaku/ledger-engine/internal/service/ledger"
)

// commandLine is one line of apply input. A line with reverses set is a
// reversal of that transaction.
type commandLine struct {
	Kind                 string     `json:"kind"`
	AccountID            uuid.UUID  `json:"account_id"`
	DestinationAccountID *uuid.UUID `json:"destination_account_id,omitempty"`
	Amount               string     `json:"amount"`
	Currency             string     `json:"currency"`
	ReferenceID          string     `json:"reference_id"`
	Description          string     `json:"description,omitempty"`
	Reverses             *uuid.UUID `json:"reverses,omitempty"`
}

type lineResult struct {
	Line int `json:"line"`
	handler.APIResponse
}

func runApply(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("apply", flag.ContinueOnError)
	path := fs.String("file", "-", "input file, - for stdin")
	if err := parse(fs, args); err != nil {
		return err
	}

	in := io.Reader(os.Stdin)
	if *path != "-" {
		f, err := os.Open(*path)
		if err != nil {
			return fmt.Errorf("runApply: %w", err)
		}
		defer f.Close()
		in = f
	}

	stop := a.StartDispatcher(ctx)
	defer stop()
	return applyStream(ctx, a.Ledger, in, out)
}

type ledgerService interface {
	Process(ctx context.Context, cmd ledger.Command) (*ledger.Result, error)
	Reverse(ctx context.Context, transactionID uuid.UUID, referenceID string) (*ledger.Result, error)
}

// applyStream processes each line in order and writes one result line per
// input line. Bad lines are reported and skipped.
func applyStream(ctx context.Context, svc ledgerService, in io.Reader, out io.Writer) error {
	log := logging.FromContext(ctx)
	enc := json.NewEncoder(out)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		n++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		res, err := applyLine(ctx, svc, raw)
		r := lineResult{Line: n}
		if err != nil {
			log.Warn("apply line failed", "line", n, "error", err)
			r.APIResponse = handler.NewFailure(handler.AppErrorFor(err), nil)
		} else {
			r.APIResponse = handler.NewSuccess(res)
		}
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("applyStream: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("applyStream: %w", err)
	}
	log.Info("apply finished", "lines", n)
	return nil
}

func applyLine(ctx context.Context, svc ledgerService, raw []byte) (*ledger.Result, error) {
	var line commandLine
	if err := json.Unmarshal(raw, &line); err != nil {
		return nil, fmt.Errorf("applyLine: %w: %v", handler.ErrInvalidRequest, err)
	}
	if line.Reverses != nil {
		return svc.Reverse(ctx, *line.Reverses, line.ReferenceID)
	}

	amount, err := domain.ParseMoney(line.Amount)
	if err != nil {
		return nil, err
	}
	return svc.Process(ctx, ledger.Command{
		Kind:                 domain.TransactionKind(line.Kind),
		AccountID:            line.AccountID,
		DestinationAccountID: line.DestinationAccountID,
		Amount:               amount.Int64(),
		Currency:             line.Currency,
		ReferenceID:          line.ReferenceID,
		Description:          line.Description,
	})
}
