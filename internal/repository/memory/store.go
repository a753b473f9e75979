// Package memory is an in-process implementation of the ledger storage
// contracts. Units stage their writes and apply them on Commit under a
// single mutex, so a rolled back unit leaves no trace.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/ledger-engine/internal/domain"
	"github.com/josh-kwaku/ledger-engine/internal/repository"
)

type Store struct {
	mu           sync.RWMutex
	accounts     map[uuid.UUID]domain.Account
	numbers      map[string]uuid.UUID
	transactions map[uuid.UUID]domain.LedgerTransaction
	references   map[string]uuid.UUID
	// inflight holds references inserted by units that have not finished.
	// The channel is closed when the owning unit commits or rolls back.
	inflight map[string]chan struct{}
}

func NewStore() *Store {
	return &Store{
		accounts:     make(map[uuid.UUID]domain.Account),
		numbers:      make(map[string]uuid.UUID),
		transactions: make(map[uuid.UUID]domain.LedgerTransaction),
		references:   make(map[string]uuid.UUID),
		inflight:     make(map[string]chan struct{}),
	}
}

func (s *Store) Accounts() *AccountRepository { return &AccountRepository{s: s} }

func (s *Store) Transactions() *TransactionRepository { return &TransactionRepository{s: s} }

func (s *Store) Begin(ctx context.Context) (repository.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("Begin: %w", err)
	}
	return &unit{
		s:        s,
		accounts: make(map[uuid.UUID]domain.Account),
		acctBase: make(map[uuid.UUID]int64),
		txBase:   make(map[uuid.UUID]domain.TransactionStatus),
		inserted: make(map[uuid.UUID]domain.LedgerTransaction),
		updated:  make(map[uuid.UUID]domain.LedgerTransaction),
	}, nil
}

type AccountRepository struct {
	s *Store
}

func (r *AccountRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
	}
	return &a, nil
}

func (r *AccountRepository) GetByOwnerID(_ context.Context, ownerID uuid.UUID) ([]domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Account
	for _, a := range r.s.accounts {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *AccountRepository) Create(_ context.Context, account *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.accounts[account.ID]; ok {
		return fmt.Errorf("Create: account %s already exists", account.ID)
	}
	if _, ok := r.s.numbers[account.Number]; ok {
		return fmt.Errorf("Create: %w", domain.ErrAccountNumberTaken)
	}
	r.s.accounts[account.ID] = *account
	r.s.numbers[account.Number] = account.ID
	return nil
}

type TransactionRepository struct {
	s *Store
}

func (r *TransactionRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.LedgerTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.transactions[id]
	if !ok {
		return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
	}
	return &t, nil
}

func (r *TransactionRepository) GetByReferenceID(_ context.Context, referenceID string) (*domain.LedgerTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.references[referenceID]
	if !ok {
		return nil, fmt.Errorf("GetByReferenceID: %w", domain.ErrNotFound)
	}
	t := r.s.transactions[id]
	return &t, nil
}

func (r *TransactionRepository) ListByAccountAndPeriod(_ context.Context, accountID uuid.UUID, start, end time.Time) ([]domain.LedgerTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.LedgerTransaction
	for _, t := range r.s.transactions {
		involved := t.AccountID == accountID ||
			(t.DestinationAccountID != nil && *t.DestinationAccountID == accountID)
		if !involved || t.CreatedAt.Before(start) || t.CreatedAt.After(end) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

type unit struct {
	s        *Store
	done     bool
	accounts map[uuid.UUID]domain.Account
	acctBase map[uuid.UUID]int64
	txBase   map[uuid.UUID]domain.TransactionStatus
	inserted map[uuid.UUID]domain.LedgerTransaction
	updated  map[uuid.UUID]domain.LedgerTransaction
}

func (u *unit) GetAccountForUpdate(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	if a, ok := u.accounts[id]; ok {
		return &a, nil
	}

	u.s.mu.RLock()
	a, ok := u.s.accounts[id]
	u.s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("GetAccountForUpdate: %w", domain.ErrNotFound)
	}
	u.accounts[id] = a
	u.acctBase[id] = a.Version
	return &a, nil
}

func (u *unit) UpdateAccount(_ context.Context, account *domain.Account) error {
	staged, ok := u.accounts[account.ID]
	if !ok || staged.Version != account.Version {
		return fmt.Errorf("UpdateAccount: %w", domain.ErrVersionConflict)
	}
	account.Version++
	u.accounts[account.ID] = *account
	return nil
}

func (u *unit) GetTransactionForUpdate(_ context.Context, id uuid.UUID) (*domain.LedgerTransaction, error) {
	if t, ok := u.updated[id]; ok {
		return &t, nil
	}
	if t, ok := u.inserted[id]; ok {
		return &t, nil
	}

	u.s.mu.RLock()
	t, ok := u.s.transactions[id]
	u.s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("GetTransactionForUpdate: %w", domain.ErrNotFound)
	}
	u.txBase[id] = t.Status
	return &t, nil
}

// InsertTransaction waits while another unit holds the same reference, the
// way a unique index does, and fails with ErrDuplicateReference only once
// that unit has committed it.
func (u *unit) InsertTransaction(ctx context.Context, t *domain.LedgerTransaction) error {
	for {
		u.s.mu.Lock()
		if _, ok := u.s.references[t.ReferenceID]; ok {
			u.s.mu.Unlock()
			return fmt.Errorf("InsertTransaction: %w", domain.ErrDuplicateReference)
		}
		held, busy := u.s.inflight[t.ReferenceID]
		if !busy {
			u.s.inflight[t.ReferenceID] = make(chan struct{})
			u.inserted[t.ID] = *t
			u.s.mu.Unlock()
			return nil
		}
		u.s.mu.Unlock()

		select {
		case <-held:
		case <-ctx.Done():
			return fmt.Errorf("InsertTransaction: %w", ctx.Err())
		}
	}
}

func (u *unit) UpdateTransaction(_ context.Context, t *domain.LedgerTransaction) error {
	if _, ok := u.inserted[t.ID]; ok {
		u.inserted[t.ID] = *t
		return nil
	}
	if _, ok := u.txBase[t.ID]; !ok {
		return fmt.Errorf("UpdateTransaction: %w", domain.ErrNotFound)
	}
	u.updated[t.ID] = *t
	return nil
}

func (u *unit) Commit() error {
	if u.done {
		return fmt.Errorf("Commit: unit already finished")
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.done = true
	defer u.release()

	for id, base := range u.acctBase {
		if u.s.accounts[id].Version != base {
			return fmt.Errorf("Commit: account %s: %w", id, domain.ErrVersionConflict)
		}
	}
	for id, base := range u.txBase {
		if u.s.transactions[id].Status != base {
			return fmt.Errorf("Commit: transaction %s: %w", id, domain.ErrVersionConflict)
		}
	}

	for id, a := range u.accounts {
		if a.Version != u.acctBase[id] {
			u.s.accounts[id] = a
		}
	}
	for id, t := range u.inserted {
		u.s.transactions[id] = t
		u.s.references[t.ReferenceID] = id
	}
	for id, t := range u.updated {
		u.s.transactions[id] = t
	}
	return nil
}

func (u *unit) Rollback() error {
	if u.done {
		return nil
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.done = true
	u.release()
	return nil
}

// release must be called with s.mu held.
func (u *unit) release() {
	for _, t := range u.inserted {
		if held, ok := u.s.inflight[t.ReferenceID]; ok {
			close(held)
			delete(u.s.inflight, t.ReferenceID)
		}
	}
}
