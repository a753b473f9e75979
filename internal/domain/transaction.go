package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TransactionKind string

const (
	KindCredit   TransactionKind = "credit"
	KindDebit    TransactionKind = "debit"
	KindReserve  TransactionKind = "reserve"
	KindCapture  TransactionKind = "capture"
	KindTransfer TransactionKind = "transfer"
	KindReversal TransactionKind = "reversal"
)

func (k TransactionKind) IsValid() bool {
	switch k {
	case KindCredit, KindDebit, KindReserve, KindCapture, KindTransfer, KindReversal:
		return true
	}
	return false
}

// Reversible reports whether a processed transaction of this kind has an
// inverse. Credits and transfers do not.
func (k TransactionKind) Reversible() bool {
	switch k {
	case KindDebit, KindReserve, KindCapture:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusProcessed TransactionStatus = "processed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusReversed  TransactionStatus = "reversed"
)

type LedgerTransaction struct {
	ID                   uuid.UUID
	AccountID            uuid.UUID
	DestinationAccountID *uuid.UUID
	ReferenceID          string
	Kind                 TransactionKind
	Amount               Money
	Status               TransactionStatus
	Description          *string
	ReversesID           *uuid.UUID
	AvailableAfter       Money
	ReservedAfter        Money
	Error                *string
	CreatedAt            time.Time
	ProcessedAt          *time.Time
	ReversedAt           *time.Time
}

func NewPendingTransaction(kind TransactionKind, account Account, referenceID string, amount Money, now time.Time) LedgerTransaction {
	return LedgerTransaction{
		ID:             uuid.New(),
		AccountID:      account.ID,
		ReferenceID:    referenceID,
		Kind:           kind,
		Amount:         amount,
		Status:         TransactionStatusPending,
		AvailableAfter: account.Available,
		ReservedAfter:  account.Reserved,
		CreatedAt:      now,
	}
}

// Timestamp is processed_at when set, created_at otherwise.
func (t LedgerTransaction) Timestamp() time.Time {
	if t.ProcessedAt != nil {
		return *t.ProcessedAt
	}
	return t.CreatedAt
}

func (t LedgerTransaction) MarkProcessed(snapshot Account, now time.Time) (LedgerTransaction, error) {
	if t.Status != TransactionStatusPending {
		return t, fmt.Errorf("MarkProcessed: %s: %w", t.Status, ErrInvalidTransition)
	}
	t.Status = TransactionStatusProcessed
	t.ProcessedAt = &now
	t.AvailableAfter = snapshot.Available
	t.ReservedAfter = snapshot.Reserved
	return t, nil
}

func (t LedgerTransaction) MarkFailed(reason error, snapshot Account) (LedgerTransaction, error) {
	if t.Status != TransactionStatusPending {
		return t, fmt.Errorf("MarkFailed: %s: %w", t.Status, ErrInvalidTransition)
	}
	msg := reason.Error()
	t.Status = TransactionStatusFailed
	t.Error = &msg
	t.AvailableAfter = snapshot.Available
	t.ReservedAfter = snapshot.Reserved
	return t, nil
}

// MarkReversed leaves ProcessedAt and the balance snapshot untouched so a
// replay of the original reference reports what it reported before.
func (t LedgerTransaction) MarkReversed(now time.Time) (LedgerTransaction, error) {
	switch t.Status {
	case TransactionStatusProcessed:
	case TransactionStatusReversed:
		return t, fmt.Errorf("MarkReversed: %w", ErrAlreadyReversed)
	default:
		return t, fmt.Errorf("MarkReversed: %s: %w", t.Status, ErrTransactionNotProcessed)
	}
	t.Status = TransactionStatusReversed
	t.ReversedAt = &now
	return t, nil
}
