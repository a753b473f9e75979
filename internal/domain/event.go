package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeBalanceUpdated       EventType = "balance.updated"
	EventTypeTransactionProcessed EventType = "transaction.processed"
	EventTypeAccountStatusChanged EventType = "account.status_changed"
)

type Event interface {
	Type() EventType
	Aggregate() uuid.UUID
	Meta() EventMeta
}

type EventMeta struct {
	EventID    uuid.UUID `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewEventMeta(now time.Time) EventMeta {
	return EventMeta{EventID: uuid.New(), OccurredAt: now}
}

func (m EventMeta) Meta() EventMeta { return m }

type BalanceUpdated struct {
	EventMeta
	AccountID uuid.UUID `json:"account_id"`
	Available Money     `json:"available"`
	Reserved  Money     `json:"reserved"`
	Total     Money     `json:"total"`
}

func (BalanceUpdated) Type() EventType { return EventTypeBalanceUpdated }
func (e BalanceUpdated) Aggregate() uuid.UUID { return e.AccountID }

func NewBalanceUpdated(a Account, now time.Time) BalanceUpdated {
	return BalanceUpdated{
		EventMeta: NewEventMeta(now),
		AccountID: a.ID,
		Available: a.Available,
		Reserved:  a.Reserved,
		Total:     a.Total(),
	}
}

type TransactionProcessed struct {
	EventMeta
	TransactionID        uuid.UUID       `json:"transaction_id"`
	AccountID            uuid.UUID       `json:"account_id"`
	DestinationAccountID *uuid.UUID      `json:"destination_account_id,omitempty"`
	Kind                 TransactionKind `json:"kind"`
	Amount               Money           `json:"amount"`
}

func (TransactionProcessed) Type() EventType { return EventTypeTransactionProcessed }
func (e TransactionProcessed) Aggregate() uuid.UUID { return e.AccountID }

type AccountStatusChanged struct {
	EventMeta
	AccountID uuid.UUID     `json:"account_id"`
	OwnerID   uuid.UUID     `json:"owner_id"`
	From      AccountStatus `json:"from"`
	To        AccountStatus `json:"to"`
}

func (AccountStatusChanged) Type() EventType { return EventTypeAccountStatusChanged }
func (e AccountStatusChanged) Aggregate() uuid.UUID { return e.AccountID }
