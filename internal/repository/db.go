package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/josh-kwaku/ledger-engine/internal/domain"
)

type scanner interface {
	Scan(dest ...any) error
}

// DB is the Postgres implementation of UnitOfWork.
type DB struct {
	pool         *sql.DB
	accounts     *AccountRepository
	transactions *TransactionRepository
}

func NewDB(pool *sql.DB) *DB {
	return &DB{
		pool:         pool,
		accounts:     NewAccountRepository(pool),
		transactions: NewTransactionRepository(pool),
	}
}

func (d *DB) Conn() *sql.DB {
	return d.pool
}

func (d *DB) Accounts() *AccountRepository { return d.accounts }

func (d *DB) Transactions() *TransactionRepository { return d.transactions }

func (d *DB) Begin(ctx context.Context) (Unit, error) {
	tx, err := d.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Begin: %w", err)
	}
	return &pgUnit{tx: tx, accounts: d.accounts, transactions: d.transactions}, nil
}

type pgUnit struct {
	tx           *sql.Tx
	accounts     *AccountRepository
	transactions *TransactionRepository
}

func (u *pgUnit) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return u.accounts.GetForUpdate(ctx, u.tx, id)
}

func (u *pgUnit) UpdateAccount(ctx context.Context, account *domain.Account) error {
	return u.accounts.Update(ctx, u.tx, account)
}

func (u *pgUnit) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*domain.LedgerTransaction, error) {
	return u.transactions.GetForUpdate(ctx, u.tx, id)
}

func (u *pgUnit) InsertTransaction(ctx context.Context, t *domain.LedgerTransaction) error {
	return u.transactions.Create(ctx, u.tx, t)
}

func (u *pgUnit) UpdateTransaction(ctx context.Context, t *domain.LedgerTransaction) error {
	return u.transactions.Update(ctx, u.tx, t)
}

func (u *pgUnit) Commit() error {
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("Commit: %w", err)
	}
	return nil
}

func (u *pgUnit) Rollback() error {
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("Rollback: %w", err)
	}
	return nil
}

func isDuplicateKey(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
