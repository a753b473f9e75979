package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/ledger-engine/internal/domain"
)

type Command struct {
	Kind                 domain.TransactionKind
	AccountID            uuid.UUID
	DestinationAccountID *uuid.UUID
	// Amount is in minor units.
	Amount      int64
	Currency    string
	ReferenceID string
	Description string
}

type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailed  ResultStatus = "failed"
	ResultPending ResultStatus = "pending"
)

// Result describes a recorded transaction. Balances are the primary
// account's, captured when the transaction was recorded, so replaying a
// reference yields the same Result.
type Result struct {
	TransactionID    uuid.UUID    `json:"transaction_id"`
	ReferenceID      string       `json:"reference_id"`
	Kind             string       `json:"kind"`
	Status           ResultStatus `json:"status"`
	Balance          int64        `json:"balance"`
	AvailableBalance int64        `json:"available_balance"`
	ReservedBalance  int64        `json:"reserved_balance"`
	Timestamp        time.Time    `json:"timestamp"`
	ErrorMessage     string       `json:"error_message,omitempty"`
}

func newResult(t domain.LedgerTransaction) *Result {
	r := &Result{
		TransactionID:    t.ID,
		ReferenceID:      t.ReferenceID,
		Kind:             string(t.Kind),
		Status:           resultStatus(t.Status),
		Balance:          int64(t.AvailableAfter + t.ReservedAfter),
		AvailableBalance: t.AvailableAfter.Int64(),
		ReservedBalance:  t.ReservedAfter.Int64(),
		Timestamp:        t.Timestamp(),
	}
	if t.Error != nil {
		r.ErrorMessage = *t.Error
	}
	return r
}

func resultStatus(s domain.TransactionStatus) ResultStatus {
	switch s {
	case domain.TransactionStatusProcessed, domain.TransactionStatusReversed:
		return ResultSuccess
	case domain.TransactionStatusFailed:
		return ResultFailed
	default:
		return ResultPending
	}
}

type StatementEntry struct {
	TransactionID        uuid.UUID  `json:"transaction_id"`
	ReferenceID          string     `json:"reference_id"`
	Kind                 string     `json:"kind"`
	Status               string     `json:"status"`
	Amount               int64      `json:"amount"`
	Description          string     `json:"description,omitempty"`
	DestinationAccountID *uuid.UUID `json:"destination_account_id,omitempty"`
	ReversesID           *uuid.UUID `json:"reverses_id,omitempty"`
	// Incoming marks a transfer received from another account.
	Incoming     bool       `json:"incoming"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}

type Statement struct {
	AccountID        uuid.UUID        `json:"account_id"`
	AccountNumber    string           `json:"account_number"`
	Start            time.Time        `json:"start"`
	End              time.Time        `json:"end"`
	AvailableBalance int64            `json:"available_balance"`
	ReservedBalance  int64            `json:"reserved_balance"`
	Balance          int64            `json:"balance"`
	Entries          []StatementEntry `json:"entries"`
	Count            int              `json:"count"`
}

func newStatementEntry(accountID uuid.UUID, t domain.LedgerTransaction) StatementEntry {
	e := StatementEntry{
		TransactionID:        t.ID,
		ReferenceID:          t.ReferenceID,
		Kind:                 string(t.Kind),
		Status:               string(t.Status),
		Amount:               t.Amount.Int64(),
		DestinationAccountID: t.DestinationAccountID,
		ReversesID:           t.ReversesID,
		Incoming:             t.AccountID != accountID,
		CreatedAt:            t.CreatedAt,
		ProcessedAt:          t.ProcessedAt,
	}
	if t.Description != nil {
		e.Description = *t.Description
	}
	if t.Error != nil {
		e.ErrorMessage = *t.Error
	}
	return e
}
