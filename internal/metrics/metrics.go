package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/josh-kwaku/ledger-engine/internal/domain"
)

const (
	MetricTransactionsProcessed = "ledger_transactions_processed_total"
	MetricTransactionsFailed    = "ledger_transactions_failed_total"
	MetricTransactionDuration   = "ledger_transaction_duration_seconds"
	MetricAccountsOpened        = "ledger_accounts_opened_total"

	instrumentationName = "github.com/josh-kwaku/ledger-engine"
)

// Recorder is safe to use as a nil pointer, in which case it records nothing.
type Recorder struct {
	processed      metric.Int64Counter
	failed         metric.Int64Counter
	duration       metric.Float64Histogram
	accountsOpened metric.Int64Counter
}

func New(meter metric.Meter) (*Recorder, error) {
	processed, err := meter.Int64Counter(MetricTransactionsProcessed,
		metric.WithDescription("Ledger transactions that completed successfully"))
	if err != nil {
		return nil, fmt.Errorf("metrics.New: %w", err)
	}
	failed, err := meter.Int64Counter(MetricTransactionsFailed,
		metric.WithDescription("Ledger transactions rejected by a business rule"))
	if err != nil {
		return nil, fmt.Errorf("metrics.New: %w", err)
	}
	duration, err := meter.Float64Histogram(MetricTransactionDuration,
		metric.WithDescription("Time spent processing a ledger operation"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("metrics.New: %w", err)
	}
	opened, err := meter.Int64Counter(MetricAccountsOpened,
		metric.WithDescription("Accounts opened"))
	if err != nil {
		return nil, fmt.Errorf("metrics.New: %w", err)
	}

	return &Recorder{
		processed:      processed,
		failed:         failed,
		duration:       duration,
		accountsOpened: opened,
	}, nil
}

// NewGlobal uses the process-wide meter provider.
func NewGlobal() (*Recorder, error) {
	return New(otel.Meter(instrumentationName))
}

func (r *Recorder) RecordTransaction(ctx context.Context, kind domain.TransactionKind, status domain.TransactionStatus, elapsed time.Duration) {
	if r == nil {
		return
	}
	kindAttr := metric.WithAttributes(attribute.String("kind", string(kind)))

	switch status {
	case domain.TransactionStatusFailed:
		r.failed.Add(ctx, 1, kindAttr)
	case domain.TransactionStatusProcessed:
		r.processed.Add(ctx, 1, kindAttr)
	}
	r.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("status", string(status)),
	))
}

func (r *Recorder) RecordAccountOpened(ctx context.Context) {
	if r == nil {
		return
	}
	r.accountsOpened.Add(ctx, 1)
}
