// Package ledger executes ledger operations against accounts: it validates
// commands, serializes work per account, runs each operation inside one
// atomic unit and replays operations whose reference was already recorded.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/ledger-engine/internal/domain"
	"github.com/josh-kwaku/ledger-engine/internal/repository"
)

type accountReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

type transactionReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerTransaction, error)
	GetByReferenceID(ctx context.Context, referenceID string) (*domain.LedgerTransaction, error)
	ListByAccountAndPeriod(ctx context.Context, accountID uuid.UUID, start, end time.Time) ([]domain.LedgerTransaction, error)
}

type locker interface {
	Lock(ctx context.Context, ids ...uuid.UUID) (func(), error)
}

type publisher interface {
	Publish(ctx context.Context, events []domain.Event) error
}

type recorder interface {
	RecordTransaction(ctx context.Context, kind domain.TransactionKind, status domain.TransactionStatus, elapsed time.Duration)
}

type Options struct {
	Currency        string
	StatementWindow time.Duration
	// ReplayMaxRetries bounds how often an operation that lost a reference
	// race is retried as a replay.
	ReplayMaxRetries uint64
	Clock            func() time.Time
}

func DefaultOptions() Options {
	return Options{
		Currency:         "BRL",
		StatementWindow:  30 * 24 * time.Hour,
		ReplayMaxRetries: 5,
		Clock:            time.Now,
	}
}

type Service struct {
	accounts     accountReader
	transactions transactionReader
	units        repository.UnitOfWork
	locks        locker
	events       publisher
	metrics      recorder
	opts         Options
}

func NewService(
	accounts accountReader,
	transactions transactionReader,
	units repository.UnitOfWork,
	locks locker,
	events publisher,
	metrics recorder,
	opts Options,
) *Service {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if events == nil {
		events = discard{}
	}
	if metrics == nil {
		metrics = discard{}
	}
	return &Service{
		accounts:     accounts,
		transactions: transactions,
		units:        units,
		locks:        locks,
		events:       events,
		metrics:      metrics,
		opts:         opts,
	}
}

type discard struct{}

func (discard) Publish(context.Context, []domain.Event) error { return nil }

func (discard) RecordTransaction(context.Context, domain.TransactionKind, domain.TransactionStatus, time.Duration) {
}

// now is truncated to microseconds so stored and returned timestamps agree
// with what Postgres keeps.
func (s *Service) now() time.Time {
	return s.opts.Clock().UTC().Truncate(time.Microsecond)
}
