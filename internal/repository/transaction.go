package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/ledger-engine/internal/domain"
)

const transactionColumns = `id, account_id, destination_account_id, reference_id, kind,
	amount, status, description, reverses_id, available_after, reserved_after,
	error, created_at, processed_at, reversed_at`

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerTransaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM ledger_transactions WHERE id = $1`, id,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) GetByReferenceID(ctx context.Context, referenceID string) (*domain.LedgerTransaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM ledger_transactions WHERE reference_id = $1`, referenceID,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByReferenceID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByReferenceID: %w", err)
	}
	return t, nil
}

// ListByAccountAndPeriod returns transactions where the account is the
// source or the transfer destination, newest first. Bounds are inclusive.
func (r *TransactionRepository) ListByAccountAndPeriod(ctx context.Context, accountID uuid.UUID, start, end time.Time) ([]domain.LedgerTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM ledger_transactions
		WHERE (account_id = $1 OR destination_account_id = $1)
			AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at DESC, id`,
		accountID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByAccountAndPeriod: %w", err)
	}
	defer rows.Close()

	var txns []domain.LedgerTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByAccountAndPeriod: scan: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByAccountAndPeriod: rows: %w", err)
	}
	return txns, nil
}

func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, t *domain.LedgerTransaction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		t.ID, t.AccountID, t.DestinationAccountID, t.ReferenceID, t.Kind,
		t.Amount, t.Status, t.Description, t.ReversesID, t.AvailableAfter, t.ReservedAfter,
		t.Error, t.CreatedAt, t.ProcessedAt, t.ReversedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("Create: %w", domain.ErrDuplicateReference)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.LedgerTransaction, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM ledger_transactions WHERE id = $1 FOR UPDATE`, id,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return t, nil
}

// Update persists the mutable part of a transaction: status, snapshot,
// error text and the processed/reversed timestamps.
func (r *TransactionRepository) Update(ctx context.Context, tx *sql.Tx, t *domain.LedgerTransaction) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE ledger_transactions
		SET status = $1, available_after = $2, reserved_after = $3, error = $4,
			processed_at = $5, reversed_at = $6
		WHERE id = $7`,
		t.Status, t.AvailableAfter, t.ReservedAfter, t.Error,
		t.ProcessedAt, t.ReversedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Update: %w", domain.ErrNotFound)
	}
	return nil
}

func scanTransaction(s scanner) (*domain.LedgerTransaction, error) {
	var (
		t           domain.LedgerTransaction
		destination uuid.NullUUID
		reverses    uuid.NullUUID
		description sql.NullString
		errText     sql.NullString
		processedAt sql.NullTime
		reversedAt  sql.NullTime
	)
	err := s.Scan(
		&t.ID, &t.AccountID, &destination, &t.ReferenceID, &t.Kind,
		&t.Amount, &t.Status, &description, &reverses, &t.AvailableAfter, &t.ReservedAfter,
		&errText, &t.CreatedAt, &processedAt, &reversedAt,
	)
	if err != nil {
		return nil, err
	}

	if destination.Valid {
		t.DestinationAccountID = &destination.UUID
	}
	if reverses.Valid {
		t.ReversesID = &reverses.UUID
	}
	if description.Valid {
		t.Description = &description.String
	}
	if errText.Valid {
		t.Error = &errText.String
	}
	if processedAt.Valid {
		ts := processedAt.Time.UTC()
		t.ProcessedAt = &ts
	}
	if reversedAt.Valid {
		ts := reversedAt.Time.UTC()
		t.ReversedAt = &ts
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}
