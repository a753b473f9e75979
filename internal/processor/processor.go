// Package processor applies a single ledger operation to account state.
//
// Apply is pure: it takes the current state of the accounts involved and
// returns their new state plus the events the change produced. Callers are
// responsible for locking, persistence and publishing.
package processor

import (
	"errors"
	"fmt"
	"time"

	"github.com/josh-kwaku/ledger-engine/internal/domain"
)

type Request struct {
	Transaction domain.LedgerTransaction
	Account     domain.Account
	// Destination is required for transfers.
	Destination *domain.Account
	// Original is the transaction being undone, required for reversals.
	Original *domain.LedgerTransaction
	Now      time.Time
}

type Outcome struct {
	Transaction domain.LedgerTransaction
	// Original is set when a reversal succeeded and carries the reversed record.
	Original *domain.LedgerTransaction
	// Accounts holds the mutated accounts, primary first. Empty on rejection.
	Accounts  []domain.Account
	Events    []domain.Event
	Rejection error
}

func (o Outcome) Rejected() bool { return o.Rejection != nil }

// Apply returns an error only for malformed requests. Business rule
// failures come back as a rejected Outcome with a failed transaction.
func Apply(req Request) (Outcome, error) {
	tx := req.Transaction
	if tx.Status != domain.TransactionStatusPending {
		return Outcome{}, fmt.Errorf("Apply: %s: %w", tx.Status, domain.ErrInvalidTransition)
	}
	if tx.AccountID != req.Account.ID {
		return Outcome{}, fmt.Errorf("Apply: transaction account %s does not match %s", tx.AccountID, req.Account.ID)
	}

	var (
		accounts []domain.Account
		original *domain.LedgerTransaction
		err      error
	)

	switch tx.Kind {
	case domain.KindCredit:
		accounts, err = credit(req.Account, tx.Amount)
	case domain.KindDebit:
		accounts, err = debit(req.Account, tx.Amount)
	case domain.KindReserve:
		accounts, err = reserve(req.Account, tx.Amount)
	case domain.KindCapture:
		accounts, err = capture(req.Account, tx.Amount)
	case domain.KindTransfer:
		if req.Destination == nil {
			return Outcome{}, fmt.Errorf("Apply: transfer without destination account")
		}
		accounts, err = transfer(req.Account, *req.Destination, tx.Amount)
	case domain.KindReversal:
		if req.Original == nil {
			return Outcome{}, fmt.Errorf("Apply: reversal without original transaction")
		}
		if req.Original.AccountID != req.Account.ID {
			return Outcome{}, fmt.Errorf("Apply: original transaction belongs to account %s", req.Original.AccountID)
		}
		accounts, original, err = reverse(req.Account, *req.Original, req.Now)
	default:
		return Outcome{}, fmt.Errorf("Apply: %q: %w", tx.Kind, domain.ErrUnknownOperation)
	}
	if err == nil {
		err = checkTotals(accounts)
	}

	if err != nil {
		if errors.Is(err, domain.ErrUnderflow) {
			err = domain.ErrInsufficientFunds
		}
		if !domain.IsRejection(err) {
			return Outcome{}, fmt.Errorf("Apply: %w", err)
		}
		failed, ferr := tx.MarkFailed(err, req.Account)
		if ferr != nil {
			return Outcome{}, fmt.Errorf("Apply: %w", ferr)
		}
		return Outcome{Transaction: failed, Rejection: err}, nil
	}

	events := make([]domain.Event, 0, len(accounts)+1)
	for i := range accounts {
		accounts[i].UpdatedAt = req.Now
		events = append(events, domain.NewBalanceUpdated(accounts[i], req.Now))
	}

	processed, err := tx.MarkProcessed(accounts[0], req.Now)
	if err != nil {
		return Outcome{}, fmt.Errorf("Apply: %w", err)
	}
	events = append(events, domain.TransactionProcessed{
		EventMeta:            domain.NewEventMeta(req.Now),
		TransactionID:        processed.ID,
		AccountID:            processed.AccountID,
		DestinationAccountID: processed.DestinationAccountID,
		Kind:                 processed.Kind,
		Amount:               processed.Amount,
	})

	return Outcome{
		Transaction: processed,
		Original:    original,
		Accounts:    accounts,
		Events:      events,
	}, nil
}

// checkTotals rejects a change that would leave an account whose derived
// totals overflow, even when each balance fits on its own.
func checkTotals(accounts []domain.Account) error {
	for _, a := range accounts {
		if err := a.CheckTotals(); err != nil {
			return err
		}
	}
	return nil
}

func credit(a domain.Account, amount domain.Money) ([]domain.Account, error) {
	available, err := a.Available.Add(amount)
	if err != nil {
		return nil, err
	}
	a.Available = available
	return []domain.Account{a}, nil
}

// debit floors available at zero when the amount exceeds it; the remainder
// is covered by the credit line, which is not tracked as drawn.
func debit(a domain.Account, amount domain.Money) ([]domain.Account, error) {
	if err := domain.CheckDebit(a, amount); err != nil {
		return nil, err
	}
	a.Available = a.Available - a.Available.Min(amount)
	return []domain.Account{a}, nil
}

func reserve(a domain.Account, amount domain.Money) ([]domain.Account, error) {
	if err := domain.CheckReserve(a, amount); err != nil {
		return nil, err
	}
	reserved, err := a.Reserved.Add(amount)
	if err != nil {
		return nil, err
	}
	a.Available -= amount
	a.Reserved = reserved
	return []domain.Account{a}, nil
}

func capture(a domain.Account, amount domain.Money) ([]domain.Account, error) {
	if err := domain.CheckCapture(a, amount); err != nil {
		return nil, err
	}
	a.Reserved -= amount
	return []domain.Account{a}, nil
}

func transfer(src, dst domain.Account, amount domain.Money) ([]domain.Account, error) {
	if err := domain.CheckTransfer(src, dst, amount); err != nil {
		return nil, err
	}
	debited, err := debit(src, amount)
	if err != nil {
		return nil, err
	}
	credited, err := credit(dst, amount)
	if err != nil {
		return nil, err
	}
	return []domain.Account{debited[0], credited[0]}, nil
}

func reverse(a domain.Account, orig domain.LedgerTransaction, now time.Time) ([]domain.Account, *domain.LedgerTransaction, error) {
	if !orig.Kind.Reversible() {
		return nil, nil, domain.ErrReversalUnsupported
	}
	switch orig.Status {
	case domain.TransactionStatusProcessed:
	case domain.TransactionStatusReversed:
		return nil, nil, domain.ErrAlreadyReversed
	default:
		return nil, nil, domain.ErrTransactionNotProcessed
	}

	var err error
	switch orig.Kind {
	case domain.KindDebit:
		a.Available, err = a.Available.Add(orig.Amount)
	case domain.KindReserve:
		a.Reserved, err = a.Reserved.Sub(orig.Amount)
		if err == nil {
			a.Available, err = a.Available.Add(orig.Amount)
		}
	case domain.KindCapture:
		a.Reserved, err = a.Reserved.Add(orig.Amount)
	}
	if err != nil {
		return nil, nil, err
	}

	reversed, err := orig.MarkReversed(now)
	if err != nil {
		return nil, nil, err
	}
	return []domain.Account{a}, &reversed, nil
}
