package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/josh-kwaku/ledger-engine/internal/domain"
)

// Unit is an atomic unit of work. Writes become visible only on Commit;
// Rollback after Commit is a no-op.
type Unit interface {
	GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	UpdateAccount(ctx context.Context, account *domain.Account) error
	GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*domain.LedgerTransaction, error)
	InsertTransaction(ctx context.Context, tx *domain.LedgerTransaction) error
	UpdateTransaction(ctx context.Context, tx *domain.LedgerTransaction) error
	Commit() error
	Rollback() error
}

type UnitOfWork interface {
	Begin(ctx context.Context) (Unit, error)
}
