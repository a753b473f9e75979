package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/theplant/luhn"

	"github.com/josh-kwaku/ledger-engine/internal/domain"
	"github.com/josh-kwaku/ledger-engine/internal/logging"
	"github.com/josh-kwaku/ledger-engine/internal/repository"
)

const (
	accountNumberDigits = 10
	maxNumberAttempts   = 5
)

type AccountOptions struct {
	DefaultCreditLimit domain.Money
	Clock              func() time.Time
}

type AccountService struct {
	accounts     accountRepository
	units        repository.UnitOfWork
	locks        accountLocker
	events       eventPublisher
	metrics      accountRecorder
	defaultLimit domain.Money
	now          clock
}

func NewAccountService(
	accounts accountRepository,
	units repository.UnitOfWork,
	locks accountLocker,
	events eventPublisher,
	metrics accountRecorder,
	opts AccountOptions,
) *AccountService {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &AccountService{
		accounts:     accounts,
		units:        units,
		locks:        locks,
		events:       events,
		metrics:      metrics,
		defaultLimit: opts.DefaultCreditLimit,
		now:          opts.Clock,
	}
}

type Balance struct {
	AccountID      uuid.UUID `json:"account_id"`
	Available      int64     `json:"available"`
	Reserved       int64     `json:"reserved"`
	Total          int64     `json:"total"`
	CreditLimit    int64     `json:"credit_limit"`
	AvailableLimit int64     `json:"available_limit"`
	Status         string    `json:"status"`
}

// OpenAccount creates an active account with zero balances. A nil
// creditLimit uses the configured default.
func (s *AccountService) OpenAccount(ctx context.Context, ownerID uuid.UUID, creditLimit *int64) (*domain.Account, error) {
	log := logging.FromContext(ctx)

	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("OpenAccount: %w", domain.ErrInvalidOwner)
	}
	limit := s.defaultLimit
	if creditLimit != nil {
		m, err := domain.NewMoney(*creditLimit)
		if err != nil {
			return nil, fmt.Errorf("OpenAccount: credit limit: %w", domain.ErrInvalidAmount)
		}
		limit = m
	}

	now := s.timestamp()
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		number, err := generateAccountNumber()
		if err != nil {
			return nil, fmt.Errorf("OpenAccount: %w", err)
		}

		account := &domain.Account{
			ID:          uuid.New(),
			OwnerID:     ownerID,
			Number:      number,
			CreditLimit: limit,
			Status:      domain.AccountStatusActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		err = s.accounts.Create(ctx, account)
		if errors.Is(err, domain.ErrAccountNumberTaken) {
			log.Warn("account number collision, regenerating", "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("OpenAccount: %w", err)
		}

		if s.metrics != nil {
			s.metrics.RecordAccountOpened(ctx)
		}
		log.Info("account opened",
			"account_id", account.ID,
			"owner_id", ownerID,
			"credit_limit", limit,
		)
		return account, nil
	}

	return nil, fmt.Errorf("OpenAccount: %w", domain.ErrAccountNumberTaken)
}

func (s *AccountService) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	a, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetAccount: %w", notFoundAsAccount(err))
	}
	return a, nil
}

func (s *AccountService) ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error) {
	accounts, err := s.accounts.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	return accounts, nil
}

func (s *AccountService) GetBalance(ctx context.Context, id uuid.UUID) (*Balance, error) {
	a, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetBalance: %w", notFoundAsAccount(err))
	}
	return &Balance{
		AccountID:      a.ID,
		Available:      a.Available.Int64(),
		Reserved:       a.Reserved.Int64(),
		Total:          a.Total().Int64(),
		CreditLimit:    a.CreditLimit.Int64(),
		AvailableLimit: a.AvailableLimit().Int64(),
		Status:         string(a.Status),
	}, nil
}

func (s *AccountService) BlockAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	a, err := s.transition(ctx, id, domain.Account.Block)
	if err != nil {
		return nil, fmt.Errorf("BlockAccount: %w", err)
	}
	return a, nil
}

func (s *AccountService) UnblockAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	a, err := s.transition(ctx, id, domain.Account.Unblock)
	if err != nil {
		return nil, fmt.Errorf("UnblockAccount: %w", err)
	}
	return a, nil
}

func (s *AccountService) DeactivateAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	a, err := s.transition(ctx, id, domain.Account.Deactivate)
	if err != nil {
		return nil, fmt.Errorf("DeactivateAccount: %w", err)
	}
	return a, nil
}

func (s *AccountService) UpdateCreditLimit(ctx context.Context, id uuid.UUID, limit int64) (*domain.Account, error) {
	a, err := s.transition(ctx, id, func(a domain.Account, now time.Time) (domain.Account, domain.Event, error) {
		updated, err := a.WithCreditLimit(domain.Money(limit), now)
		return updated, nil, err
	})
	if err != nil {
		return nil, fmt.Errorf("UpdateCreditLimit: %w", err)
	}
	return a, nil
}

// transition applies change to the locked account and persists the result
// in one unit. The event, if any, is published after commit.
func (s *AccountService) transition(ctx context.Context, id uuid.UUID, change func(domain.Account, time.Time) (domain.Account, domain.Event, error)) (*domain.Account, error) {
	log := logging.FromContext(ctx)

	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("transition: lock: %w", err)
	}
	defer unlock()

	u, err := s.units.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("transition: begin: %w", err)
	}
	defer u.Rollback()

	current, err := u.GetAccountForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("transition: %w", notFoundAsAccount(err))
	}

	updated, event, err := change(*current, s.timestamp())
	if err != nil {
		return nil, fmt.Errorf("transition: %w", err)
	}
	if err := u.UpdateAccount(ctx, &updated); err != nil {
		return nil, fmt.Errorf("transition: %w", err)
	}
	if err := u.Commit(); err != nil {
		return nil, fmt.Errorf("transition: commit: %w", err)
	}

	log.Info("account updated",
		"account_id", id,
		"status", updated.Status,
		"credit_limit", updated.CreditLimit,
	)
	if event != nil && s.events != nil {
		if err := s.events.Publish(ctx, []domain.Event{event}); err != nil {
			log.Error("failed to publish account event", "account_id", id, "error", err)
		}
	}
	return &updated, nil
}

func (s *AccountService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func notFoundAsAccount(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrAccountNotFound
	}
	return err
}

// generateAccountNumber returns ten random digits followed by a Luhn check
// digit.
func generateAccountNumber() (string, error) {
	digits := make([]byte, accountNumberDigits)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generateAccountNumber: %w", err)
		}
		digits[i] = '0' + byte(n.Int64())
	}

	base, err := strconv.Atoi(string(digits))
	if err != nil {
		return "", fmt.Errorf("generateAccountNumber: %w", err)
	}
	return string(digits) + strconv.Itoa(checkDigit(base)), nil
}

func checkDigit(base int) int {
	return luhn.CalculateLuhn(base)
}

// ValidAccountNumber reports whether number has the generated shape and a
// correct check digit.
func ValidAccountNumber(number string) bool {
	if len(number) != accountNumberDigits+1 {
		return false
	}
	for _, c := range number {
		if c < '0' || c > '9' {
			return false
		}
	}
	n, err := strconv.Atoi(number)
	if err != nil {
		return false
	}
	return luhn.Valid(n)
}
