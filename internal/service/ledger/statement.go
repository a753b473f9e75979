package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/ledger-engine/internal/domain"
)

// GetStatement lists the transactions that touched accountID between start
// and end, newest first. A missing start defaults to the statement window
// before now, a missing end to now. Incoming transfers are included.
func (s *Service) GetStatement(ctx context.Context, accountID uuid.UUID, start, end *time.Time) (*Statement, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("GetStatement: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("GetStatement: %w", err)
	}

	now := s.now()
	to := now
	if end != nil {
		to = end.UTC()
	}
	from := now.Add(-s.opts.StatementWindow)
	if start != nil {
		from = start.UTC()
	}
	if from.After(to) {
		return nil, fmt.Errorf("GetStatement: %w", domain.ErrInvalidPeriod)
	}

	txns, err := s.transactions.ListByAccountAndPeriod(ctx, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("GetStatement: %w", err)
	}

	entries := make([]StatementEntry, 0, len(txns))
	for _, t := range txns {
		entries = append(entries, newStatementEntry(accountID, t))
	}

	return &Statement{
		AccountID:        account.ID,
		AccountNumber:    account.Number,
		Start:            from,
		End:              to,
		AvailableBalance: account.Available.Int64(),
		ReservedBalance:  account.Reserved.Int64(),
		Balance:          account.Total().Int64(),
		Entries:          entries,
		Count:            len(entries),
	}, nil
}
