package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/josh-kwaku/ledger-engine/internal/domain"
	"github.com/josh-kwaku/ledger-engine/internal/lock"
	"github.com/josh-kwaku/ledger-engine/internal/logging"
	"github.com/josh-kwaku/ledger-engine/internal/processor"
	"github.com/josh-kwaku/ledger-engine/internal/repository"
)

// operation is a single ledger write identified by its reference.
type operation struct {
	reference string
	kind      domain.TransactionKind
	lockIDs   []uuid.UUID
	apply     func(ctx context.Context, u repository.Unit, now time.Time) (processor.Outcome, error)
}

// callerErrors reach the caller as they are. Anything else is a fault and
// is reported as ErrProcessingFailed.
var callerErrors = []error{
	domain.ErrAccountNotFound,
	domain.ErrDestinationAccountNotFound,
	domain.ErrTransactionNotFound,
	context.Canceled,
	context.DeadlineExceeded,
}

// Process records cmd and applies it. Business rule failures are recorded
// and returned as a failed Result with a nil error. A reference that was
// recorded before is replayed without touching balances.
func (s *Service) Process(ctx context.Context, cmd Command) (*Result, error) {
	if err := s.validate(cmd); err != nil {
		return nil, fmt.Errorf("Process: %w", err)
	}

	ids := []uuid.UUID{cmd.AccountID}
	if cmd.DestinationAccountID != nil {
		ids = append(ids, *cmd.DestinationAccountID)
	}

	res, err := s.run(ctx, operation{
		reference: cmd.ReferenceID,
		kind:      cmd.Kind,
		lockIDs:   ids,
		apply: func(ctx context.Context, u repository.Unit, now time.Time) (processor.Outcome, error) {
			return s.applyCommand(ctx, u, cmd, now)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Process: %w", err)
	}
	return res, nil
}

// Reverse undoes a processed debit, reserve or capture. The reversal is a
// transaction of its own, recorded under referenceID.
func (s *Service) Reverse(ctx context.Context, transactionID uuid.UUID, referenceID string) (*Result, error) {
	if strings.TrimSpace(referenceID) == "" {
		return nil, fmt.Errorf("Reverse: %w", domain.ErrInvalidReference)
	}

	original, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Reverse: %w", domain.ErrTransactionNotFound)
		}
		return nil, fmt.Errorf("Reverse: %w", s.classify(ctx, err))
	}

	res, err := s.run(ctx, operation{
		reference: referenceID,
		kind:      domain.KindReversal,
		lockIDs:   []uuid.UUID{original.AccountID},
		apply: func(ctx context.Context, u repository.Unit, now time.Time) (processor.Outcome, error) {
			return s.applyReversal(ctx, u, original.AccountID, original.ID, referenceID, now)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Reverse: %w", err)
	}
	return res, nil
}

func (s *Service) validate(cmd Command) error {
	if cmd.Kind == domain.KindReversal {
		return fmt.Errorf("validate: %w", domain.ErrReversalViaProcess)
	}
	if !cmd.Kind.IsValid() {
		return fmt.Errorf("validate: %q: %w", cmd.Kind, domain.ErrUnknownOperation)
	}
	if cmd.Amount <= 0 {
		return fmt.Errorf("validate: %w", domain.ErrInvalidAmount)
	}
	if !strings.EqualFold(strings.TrimSpace(cmd.Currency), s.opts.Currency) {
		return fmt.Errorf("validate: %q: %w", cmd.Currency, domain.ErrUnsupportedCurrency)
	}
	if strings.TrimSpace(cmd.ReferenceID) == "" {
		return fmt.Errorf("validate: %w", domain.ErrInvalidReference)
	}

	isTransfer := cmd.Kind == domain.KindTransfer
	if isTransfer != (cmd.DestinationAccountID != nil) {
		return fmt.Errorf("validate: %w", domain.ErrDestinationRequired)
	}
	if isTransfer && *cmd.DestinationAccountID == cmd.AccountID {
		return fmt.Errorf("validate: %w", domain.ErrSelfTransfer)
	}
	return nil
}

// run replays op when its reference is already recorded and executes it
// otherwise. Losing an insert race on the reference is retried, which turns
// into a replay once the winner commits.
func (s *Service) run(ctx context.Context, op operation) (*Result, error) {
	ctx = logging.With(ctx, "reference_id", op.reference, "kind", op.kind)
	log := logging.FromContext(ctx)
	started := time.Now()

	var result *Result
	attempt := func() error {
		prior, err := s.transactions.GetByReferenceID(ctx, op.reference)
		if err == nil {
			log.Info("replaying recorded transaction", "transaction_id", prior.ID, "status", prior.Status)
			result = newResult(*prior)
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return backoff.Permanent(fmt.Errorf("lookup reference: %w", err))
		}

		tx, err := s.execute(ctx, op)
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateReference) {
				log.Debug("reference recorded concurrently, retrying as replay")
				return err
			}
			return backoff.Permanent(err)
		}

		s.metrics.RecordTransaction(ctx, tx.Kind, tx.Status, time.Since(started))
		result = newResult(*tx)
		return nil
	}

	if err := backoff.Retry(attempt, s.replayBackOff(ctx)); err != nil {
		return nil, s.classify(ctx, err)
	}
	return result, nil
}

func (s *Service) replayBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, s.opts.ReplayMaxRetries), ctx)
}

// execute holds the account locks for the whole unit. Once they are held the
// unit runs to completion even if the caller goes away.
func (s *Service) execute(ctx context.Context, op operation) (*domain.LedgerTransaction, error) {
	unlock, err := s.locks.Lock(ctx, op.lockIDs...)
	if err != nil {
		return nil, fmt.Errorf("execute: lock: %w", err)
	}
	defer unlock()

	ctx = context.WithoutCancel(ctx)
	log := logging.FromContext(ctx)

	u, err := s.units.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("execute: begin: %w", err)
	}
	defer u.Rollback()

	out, err := op.apply(ctx, u, s.now())
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	if err := u.Commit(); err != nil {
		return nil, fmt.Errorf("execute: commit: %w", err)
	}

	tx := out.Transaction
	if out.Rejected() {
		log.Warn("transaction rejected",
			"transaction_id", tx.ID,
			"account_id", tx.AccountID,
			"amount", tx.Amount,
			"reason", out.Rejection,
		)
		return &tx, nil
	}

	log.Info("transaction processed",
		"transaction_id", tx.ID,
		"account_id", tx.AccountID,
		"amount", tx.Amount,
		"available", tx.AvailableAfter,
		"reserved", tx.ReservedAfter,
	)
	if err := s.events.Publish(ctx, out.Events); err != nil {
		log.Error("failed to publish events", "transaction_id", tx.ID, "error", err)
	}
	return &tx, nil
}

func (s *Service) applyCommand(ctx context.Context, u repository.Unit, cmd Command, now time.Time) (processor.Outcome, error) {
	locked, err := loadAccounts(ctx, u, cmd.AccountID, cmd.DestinationAccountID)
	if err != nil {
		return processor.Outcome{}, fmt.Errorf("applyCommand: %w", err)
	}
	source := locked[cmd.AccountID]

	tx := domain.NewPendingTransaction(cmd.Kind, *source, cmd.ReferenceID, domain.Money(cmd.Amount), now)
	tx.DestinationAccountID = cmd.DestinationAccountID
	if desc := strings.TrimSpace(cmd.Description); desc != "" {
		tx.Description = &desc
	}
	if err := u.InsertTransaction(ctx, &tx); err != nil {
		return processor.Outcome{}, fmt.Errorf("applyCommand: %w", err)
	}

	req := processor.Request{Transaction: tx, Account: *source, Now: now}
	if cmd.DestinationAccountID != nil {
		req.Destination = locked[*cmd.DestinationAccountID]
	}
	return record(ctx, u, req)
}

func (s *Service) applyReversal(ctx context.Context, u repository.Unit, accountID, originalID uuid.UUID, referenceID string, now time.Time) (processor.Outcome, error) {
	locked, err := loadAccounts(ctx, u, accountID, nil)
	if err != nil {
		return processor.Outcome{}, fmt.Errorf("applyReversal: %w", err)
	}
	account := locked[accountID]

	original, err := u.GetTransactionForUpdate(ctx, originalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return processor.Outcome{}, fmt.Errorf("applyReversal: %w", domain.ErrTransactionNotFound)
		}
		return processor.Outcome{}, fmt.Errorf("applyReversal: %w", err)
	}

	tx := domain.NewPendingTransaction(domain.KindReversal, *account, referenceID, original.Amount, now)
	tx.ReversesID = &original.ID
	desc := fmt.Sprintf("reversal of %s", original.ID)
	tx.Description = &desc
	if err := u.InsertTransaction(ctx, &tx); err != nil {
		return processor.Outcome{}, fmt.Errorf("applyReversal: %w", err)
	}

	return record(ctx, u, processor.Request{
		Transaction: tx,
		Account:     *account,
		Original:    original,
		Now:         now,
	})
}

// record applies req and stages every resulting write on u. A rejected
// outcome only rewrites the transaction as failed.
func record(ctx context.Context, u repository.Unit, req processor.Request) (processor.Outcome, error) {
	out, err := processor.Apply(req)
	if err != nil {
		return processor.Outcome{}, fmt.Errorf("record: %w", err)
	}

	for i := range out.Accounts {
		if err := u.UpdateAccount(ctx, &out.Accounts[i]); err != nil {
			return processor.Outcome{}, fmt.Errorf("record: %w", err)
		}
	}
	if out.Original != nil {
		if err := u.UpdateTransaction(ctx, out.Original); err != nil {
			return processor.Outcome{}, fmt.Errorf("record: original: %w", err)
		}
	}
	if err := u.UpdateTransaction(ctx, &out.Transaction); err != nil {
		return processor.Outcome{}, fmt.Errorf("record: %w", err)
	}
	return out, nil
}

// loadAccounts reads the rows for update in the same order the locker
// acquires them.
func loadAccounts(ctx context.Context, u repository.Unit, source uuid.UUID, destination *uuid.UUID) (map[uuid.UUID]*domain.Account, error) {
	ids := []uuid.UUID{source}
	if destination != nil {
		ids = append(ids, *destination)
	}

	locked := make(map[uuid.UUID]*domain.Account, len(ids))
	for _, id := range lock.Ordered(ids...) {
		a, err := u.GetAccountForUpdate(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loadAccounts: %w", err)
		}
		locked[id] = a
	}

	if _, ok := locked[source]; !ok {
		return nil, fmt.Errorf("loadAccounts: %s: %w", source, domain.ErrAccountNotFound)
	}
	if destination != nil {
		if _, ok := locked[*destination]; !ok {
			return nil, fmt.Errorf("loadAccounts: %s: %w", *destination, domain.ErrDestinationAccountNotFound)
		}
	}
	return locked, nil
}

// classify hides storage faults behind ErrProcessingFailed after logging
// the cause.
func (s *Service) classify(ctx context.Context, err error) error {
	for _, known := range callerErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	logging.FromContext(ctx).Error("transaction processing failed", "error", err)
	return domain.ErrProcessingFailed
}
