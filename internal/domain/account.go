package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusBlocked  AccountStatus = "blocked"
	AccountStatusInactive AccountStatus = "inactive"
)

func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountStatusActive, AccountStatusBlocked, AccountStatusInactive:
		return true
	}
	return false
}

type Account struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Number      string
	Available   Money
	Reserved    Money
	CreditLimit Money
	Status      AccountStatus
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Total and AvailableLimit do not check for overflow. Every balance or
// limit change goes through CheckTotals first, so a stored account always
// has representable totals.
func (a Account) Total() Money { return a.Available + a.Reserved }

func (a Account) IsActive() bool { return a.Status == AccountStatusActive }

// AvailableLimit is the spendable amount including the credit line.
func (a Account) AvailableLimit() Money { return a.Available + a.CreditLimit }

func (a Account) Block(now time.Time) (Account, Event, error) {
	if a.Status != AccountStatusActive {
		return a, nil, fmt.Errorf("Block: %w", a.transitionErr())
	}
	return a.withStatus(AccountStatusBlocked, now)
}

func (a Account) Unblock(now time.Time) (Account, Event, error) {
	if a.Status != AccountStatusBlocked {
		return a, nil, fmt.Errorf("Unblock: %w", a.transitionErr())
	}
	return a.withStatus(AccountStatusActive, now)
}

// Deactivate closes the account for good.
func (a Account) Deactivate(now time.Time) (Account, Event, error) {
	if a.Status == AccountStatusInactive {
		return a, nil, fmt.Errorf("Deactivate: %w", ErrAccountInactive)
	}
	return a.withStatus(AccountStatusInactive, now)
}

func (a Account) WithCreditLimit(limit Money, now time.Time) (Account, error) {
	if limit < 0 {
		return a, fmt.Errorf("WithCreditLimit: %w", ErrInvalidAmount)
	}
	if a.Status == AccountStatusInactive {
		return a, fmt.Errorf("WithCreditLimit: %w", ErrAccountInactive)
	}
	a.CreditLimit = limit
	if err := a.CheckTotals(); err != nil {
		return a, fmt.Errorf("WithCreditLimit: %w", err)
	}
	a.UpdatedAt = now
	return a, nil
}

// CheckTotals returns ErrOverflow when available+reserved or
// available+credit_limit does not fit in Money.
func (a Account) CheckTotals() error {
	if _, err := a.Available.Add(a.Reserved); err != nil {
		return err
	}
	if _, err := a.Available.Add(a.CreditLimit); err != nil {
		return err
	}
	return nil
}

func (a Account) withStatus(to AccountStatus, now time.Time) (Account, Event, error) {
	ev := AccountStatusChanged{
		EventMeta: NewEventMeta(now),
		AccountID: a.ID,
		OwnerID:   a.OwnerID,
		From:      a.Status,
		To:        to,
	}
	a.Status = to
	a.UpdatedAt = now
	return a, ev, nil
}

func (a Account) transitionErr() error {
	if a.Status == AccountStatusInactive {
		return ErrAccountInactive
	}
	return ErrInvalidTransition
}
