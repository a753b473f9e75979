package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/ledger-engine/internal/domain"
)

func SeedAccount(t *testing.T, db *sql.DB, available, reserved, creditLimit int64) *domain.Account {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	a := &domain.Account{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Number:      uuid.NewString()[:11],
		Available:   domain.Money(available),
		Reserved:    domain.Money(reserved),
		CreditLimit: domain.Money(creditLimit),
		Status:      domain.AccountStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := db.Exec(
		`INSERT INTO accounts (id, owner_id, number, available, reserved, credit_limit, status, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.OwnerID, a.Number, a.Available, a.Reserved, a.CreditLimit, a.Status, a.Version, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return a
}

func GetAccountBalances(t *testing.T, db *sql.DB, accountID uuid.UUID) (available, reserved int64) {
	t.Helper()

	err := db.QueryRow(`SELECT available, reserved FROM accounts WHERE id = $1`, accountID).
		Scan(&available, &reserved)
	if err != nil {
		t.Fatalf("get account balances %s: %v", accountID, err)
	}
	return available, reserved
}

func CountTransactions(t *testing.T, db *sql.DB, referenceID string) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM ledger_transactions WHERE reference_id = $1`, referenceID).Scan(&count)
	if err != nil {
		t.Fatalf("count transactions for %s: %v", referenceID, err)
	}
	return count
}
