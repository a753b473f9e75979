package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/ledger-engine/internal/domain"
	"github.com/josh-kwaku/ledger-engine/internal/lock"
	"github.com/josh-kwaku/ledger-engine/internal/repository"
	"github.com/josh-kwaku/ledger-engine/internal/repository/memory"
)

var t0 = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type capturePublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *capturePublisher) Publish(_ context.Context, events []domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturePublisher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type countingRecorder struct {
	mu    sync.Mutex
	calls map[domain.TransactionStatus]int
}

func (r *countingRecorder) RecordTransaction(_ context.Context, _ domain.TransactionKind, status domain.TransactionStatus, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[domain.TransactionStatus]int)
	}
	r.calls[status]++
}

type fixture struct {
	store     *memory.Store
	clock     *clock
	publisher *capturePublisher
	recorder  *countingRecorder
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithUnits(t, nil)
}

// newFixtureWithUnits lets a test wrap the store's units of work.
func newFixtureWithUnits(t *testing.T, wrap func(repository.UnitOfWork) repository.UnitOfWork) *fixture {
	t.Helper()
	f := &fixture{
		store:     memory.NewStore(),
		clock:     &clock{now: t0},
		publisher: &capturePublisher{},
		recorder:  &countingRecorder{},
	}
	var units repository.UnitOfWork = f.store
	if wrap != nil {
		units = wrap(units)
	}
	opts := DefaultOptions()
	opts.Clock = f.clock.Now
	f.svc = NewService(f.store.Accounts(), f.store.Transactions(), units, lock.NewKeyed(), f.publisher, f.recorder, opts)
	return f
}

func (f *fixture) openAccount(t *testing.T, available, creditLimit int64) domain.Account {
	t.Helper()
	a := domain.Account{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Number:      uuid.NewString(),
		Available:   domain.Money(available),
		CreditLimit: domain.Money(creditLimit),
		Status:      domain.AccountStatusActive,
		CreatedAt:   t0,
		UpdatedAt:   t0,
	}
	require.NoError(t, f.store.Accounts().Create(context.Background(), &a))
	return a
}

func (f *fixture) balances(t *testing.T, id uuid.UUID) (available, reserved int64) {
	t.Helper()
	a, err := f.store.Accounts().GetByID(context.Background(), id)
	require.NoError(t, err)
	return a.Available.Int64(), a.Reserved.Int64()
}

func command(kind domain.TransactionKind, account uuid.UUID, amount int64, ref string) Command {
	return Command{
		Kind:        kind,
		AccountID:   account,
		Amount:      amount,
		Currency:    "BRL",
		ReferenceID: ref,
	}
}

func TestProcess_AccountLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acct := f.openAccount(t, 0, 500_00)

	steps := []struct {
		name          string
		cmd           Command
		wantAvailable int64
		wantReserved  int64
	}{
		{"credit", command(domain.KindCredit, acct.ID, 1000_00, "ref-credit"), 1000_00, 0},
		{"reserve", command(domain.KindReserve, acct.ID, 300_00, "ref-reserve"), 700_00, 300_00},
		{"capture", command(domain.KindCapture, acct.ID, 300_00, "ref-capture"), 700_00, 0},
		{"debit drawing on the credit line", command(domain.KindDebit, acct.ID, 900_00, "ref-debit"), 0, 0},
	}

	for _, step := range steps {
		res, err := f.svc.Process(ctx, step.cmd)
		require.NoError(t, err, step.name)
		assert.Equal(t, ResultSuccess, res.Status, step.name)
		assert.Equal(t, step.wantAvailable, res.AvailableBalance, step.name)
		assert.Equal(t, step.wantReserved, res.ReservedBalance, step.name)
		assert.Equal(t, step.wantAvailable+step.wantReserved, res.Balance, step.name)
		assert.Equal(t, t0, res.Timestamp, step.name)

		available, reserved := f.balances(t, acct.ID)
		assert.Equal(t, step.wantAvailable, available, step.name)
		assert.Equal(t, step.wantReserved, reserved, step.name)
	}

	assert.Equal(t, 4, f.recorder.calls[domain.TransactionStatusProcessed])
}

func TestProcess_ReplayIsIdentical(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acct := f.openAccount(t, 700_00, 500_00)
	cmd := command(domain.KindDebit, acct.ID, 900_00, "ref-replay")

	first, err := f.svc.Process(ctx, cmd)
	require.NoError(t, err)
	published := f.publisher.Len()

	f.clock.Advance(time.Hour)
	second, err := f.svc.Process(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))

	available, _ := f.balances(t, acct.ID)
	assert.Equal(t, int64(0), available)
	assert.Equal(t, published, f.publisher.Len(), "replay must not publish")
	assert.Equal(t, 1, f.recorder.calls[domain.TransactionStatusProcessed])
}

func TestProcess_RejectionIsRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acct := f.openAccount(t, 100_00, 50_00)
	cmd := command(domain.KindDebit, acct.ID, 150_01, "ref-too-much")

	res, err := f.svc.Process(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, ResultFailed, res.Status)
	assert.Equal(t, domain.ErrInsufficientFunds.Error(), res.ErrorMessage)
	assert.Equal(t, int64(100_00), res.AvailableBalance)
	assert.Zero(t, f.publisher.Len())

	stored, err := f.store.Transactions().GetByReferenceID(ctx, "ref-too-much")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusFailed, stored.Status)
	assert.Nil(t, stored.ProcessedAt)

	replayed, err := f.svc.Process(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, res, replayed)

	available, _ := f.balances(t, acct.ID)
	assert.Equal(t, int64(100_00), available)
	assert.Equal(t, 1, f.recorder.calls[domain.TransactionStatusFailed])
}

func TestProcess_AccountStatusGates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acct := f.openAccount(t, 100_00, 0)

	u, err := f.store.Begin(ctx)
	require.NoError(t, err)
	locked, err := u.GetAccountForUpdate(ctx, acct.ID)
	require.NoError(t, err)
	blocked, _, err := locked.Block(t0)
	require.NoError(t, err)
	require.NoError(t, u.UpdateAccount(ctx, &blocked))
	require.NoError(t, u.Commit())

	res, err := f.svc.Process(ctx, command(domain.KindDebit, acct.ID, 10_00, "ref-blocked-debit"))
	require.NoError(t, err)
	assert.Equal(t, ResultFailed, res.Status)
	assert.Equal(t, domain.ErrAccountNotActive.Error(), res.ErrorMessage)

	res, err = f.svc.Process(ctx, command(domain.KindCredit, acct.ID, 10_00, "ref-blocked-credit"))
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, res.Status)
	assert.Equal(t, int64(110_00), res.AvailableBalance)
}

func TestProcess_InvalidCommands(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acct := f.openAccount(t, 100_00, 0)
	other := f.openAccount(t, 0, 0)

	withDest := func(c Command, id uuid.UUID) Command {
		c.DestinationAccountID = &id
		return c
	}
	withCurrency := func(c Command, cur string) Command {
		c.Currency = cur
		return c
	}

	tests := []struct {
		name    string
		cmd     Command
		wantErr error
	}{
		{"zero amount", command(domain.KindCredit, acct.ID, 0, "r1"), domain.ErrInvalidAmount},
		{"negative amount", command(domain.KindDebit, acct.ID, -5, "r2"), domain.ErrInvalidAmount},
		{"unsupported currency", withCurrency(command(domain.KindCredit, acct.ID, 10, "r3"), "USD"), domain.ErrUnsupportedCurrency},
		{"unknown kind", command("refund", acct.ID, 10, "r4"), domain.ErrUnknownOperation},
		{"reversal through process", command(domain.KindReversal, acct.ID, 10, "r5"), domain.ErrReversalViaProcess},
		{"blank reference", command(domain.KindCredit, acct.ID, 10, "  "), domain.ErrInvalidReference},
		{"transfer without destination", command(domain.KindTransfer, acct.ID, 10, "r6"), domain.ErrDestinationRequired},
		{"debit with destination", withDest(command(domain.KindDebit, acct.ID, 10, "r7"), other.ID), domain.ErrDestinationRequired},
		{"self transfer", withDest(command(domain.KindTransfer, acct.ID, 10, "r8"), acct.ID), domain.ErrSelfTransfer},
		{"missing account", command(domain.KindCredit, uuid.New(), 10, "r9"), domain.ErrAccountNotFound},
		{"missing destination", withDest(command(domain.KindTransfer, acct.ID, 10, "r10"), uuid.New()), domain.ErrDestinationAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.Process(ctx, tt.cmd)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, res)

			_, err = f.store.Transactions().GetByReferenceID(ctx, tt.cmd.ReferenceID)
			assert.ErrorIs(t, err, domain.ErrNotFound, "invalid commands are not recorded")
		})
	}

	available, _ := f.balances(t, acct.ID)
	assert.Equal(t, int64(100_00), available)
}

func TestProcess_CurrencyIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	acct := f.openAccount(t, 0, 0)

	cmd := command(domain.KindCredit, acct.ID, 1_00, "ref-lower")
	cmd.Currency = "brl"
	res, err := f.svc.Process(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, res.Status)
}

func TestProcess_TransferPublishesBothBalances(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.openAccount(t, 500_00, 0)
	dst := f.openAccount(t, 100_00, 0)

	cmd := command(domain.KindTransfer, src.ID, 200_00, "ref-transfer")
	cmd.DestinationAccountID = &dst.ID
	cmd.Description = "rent"

	res, err := f.svc.Process(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, res.Status)
	assert.Equal(t, int64(300_00), res.AvailableBalance)

	srcAvail, _ := f.balances(t, src.ID)
	dstAvail, _ := f.balances(t, dst.ID)
	assert.Equal(t, int64(300_00), srcAvail)
	assert.Equal(t, int64(300_00), dstAvail)
	assert.Equal(t, int64(600_00), srcAvail+dstAvail)

	require.Equal(t, 3, f.publisher.Len())
	balances := map[uuid.UUID]domain.Money{}
	for _, ev := range f.publisher.events {
		if bu, ok := ev.(domain.BalanceUpdated); ok {
			balances[bu.AccountID] = bu.Available
		}
	}
	assert.Equal(t, map[uuid.UUID]domain.Money{src.ID: 300_00, dst.ID: 300_00}, balances)

	stored, err := f.store.Transactions().GetByID(ctx, res.TransactionID)
	require.NoError(t, err)
	require.NotNil(t, stored.Description)
	assert.Equal(t, "rent", *stored.Description)
}

func TestReverse(t *testing.T) {
	ctx := context.Background()

	t.Run("credit cannot be reversed", func(t *testing.T) {
		f := newFixture(t)
		acct := f.openAccount(t, 0, 0)
		credit, err := f.svc.Process(ctx, command(domain.KindCredit, acct.ID, 100_00, "ref-c"))
		require.NoError(t, err)

		res, err := f.svc.Reverse(ctx, credit.TransactionID, "rev-c")
		require.NoError(t, err)
		assert.Equal(t, ResultFailed, res.Status)
		assert.Equal(t, domain.ErrReversalUnsupported.Error(), res.ErrorMessage)

		available, _ := f.balances(t, acct.ID)
		assert.Equal(t, int64(100_00), available)
	})

	t.Run("reserve is released", func(t *testing.T) {
		f := newFixture(t)
		acct := f.openAccount(t, 1000_00, 0)
		reserve, err := f.svc.Process(ctx, command(domain.KindReserve, acct.ID, 300_00, "ref-r"))
		require.NoError(t, err)

		res, err := f.svc.Reverse(ctx, reserve.TransactionID, "rev-r")
		require.NoError(t, err)
		assert.Equal(t, ResultSuccess, res.Status)
		assert.Equal(t, int64(1000_00), res.AvailableBalance)
		assert.Equal(t, int64(0), res.ReservedBalance)

		original, err := f.store.Transactions().GetByID(ctx, reserve.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusReversed, original.Status)
		require.NotNil(t, original.ReversedAt)

		reversal, err := f.store.Transactions().GetByID(ctx, res.TransactionID)
		require.NoError(t, err)
		require.NotNil(t, reversal.ReversesID)
		assert.Equal(t, reserve.TransactionID, *reversal.ReversesID)
		require.NotNil(t, reversal.Description)
		assert.Equal(t, fmt.Sprintf("reversal of %s", reserve.TransactionID), *reversal.Description)

		again, err := f.svc.Reverse(ctx, reserve.TransactionID, "rev-r-2")
		require.NoError(t, err)
		assert.Equal(t, ResultFailed, again.Status)
		assert.Equal(t, domain.ErrAlreadyReversed.Error(), again.ErrorMessage)

		replayed, err := f.svc.Reverse(ctx, reserve.TransactionID, "rev-r")
		require.NoError(t, err)
		assert.Equal(t, res, replayed)

		// replaying the original reference still reports its own outcome
		orig, err := f.svc.Process(ctx, command(domain.KindReserve, acct.ID, 300_00, "ref-r"))
		require.NoError(t, err)
		assert.Equal(t, reserve, orig)
	})

	t.Run("capture is restored to reserved", func(t *testing.T) {
		f := newFixture(t)
		acct := f.openAccount(t, 1000_00, 0)
		_, err := f.svc.Process(ctx, command(domain.KindReserve, acct.ID, 300_00, "ref-r"))
		require.NoError(t, err)
		capture, err := f.svc.Process(ctx, command(domain.KindCapture, acct.ID, 300_00, "ref-cap"))
		require.NoError(t, err)

		res, err := f.svc.Reverse(ctx, capture.TransactionID, "rev-cap")
		require.NoError(t, err)
		assert.Equal(t, ResultSuccess, res.Status)
		assert.Equal(t, int64(700_00), res.AvailableBalance)
		assert.Equal(t, int64(300_00), res.ReservedBalance)
	})

	t.Run("debit is refunded", func(t *testing.T) {
		f := newFixture(t)
		acct := f.openAccount(t, 1000_00, 0)
		debit, err := f.svc.Process(ctx, command(domain.KindDebit, acct.ID, 250_00, "ref-d"))
		require.NoError(t, err)

		res, err := f.svc.Reverse(ctx, debit.TransactionID, "rev-d")
		require.NoError(t, err)
		assert.Equal(t, int64(1000_00), res.AvailableBalance)
	})

	t.Run("failed transaction cannot be reversed", func(t *testing.T) {
		f := newFixture(t)
		acct := f.openAccount(t, 0, 0)
		debit, err := f.svc.Process(ctx, command(domain.KindDebit, acct.ID, 10_00, "ref-fail"))
		require.NoError(t, err)
		require.Equal(t, ResultFailed, debit.Status)

		res, err := f.svc.Reverse(ctx, debit.TransactionID, "rev-fail")
		require.NoError(t, err)
		assert.Equal(t, ResultFailed, res.Status)
		assert.Equal(t, domain.ErrTransactionNotProcessed.Error(), res.ErrorMessage)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Reverse(ctx, uuid.New(), "rev-x")
		require.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})

	t.Run("blank reference", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Reverse(ctx, uuid.New(), "")
		require.ErrorIs(t, err, domain.ErrInvalidReference)
	})
}

func TestProcess_OppositeTransfersDoNotDeadlock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.openAccount(t, 1000_00, 0)
	b := f.openAccount(t, 1000_00, 0)

	const rounds = 50
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)

	transfer := func(from, to uuid.UUID, ref string) {
		defer wg.Done()
		cmd := command(domain.KindTransfer, from, 10_00, ref)
		cmd.DestinationAccountID = &to
		res, err := f.svc.Process(ctx, cmd)
		if err != nil {
			errs <- err
			return
		}
		if res.Status != ResultSuccess {
			errs <- fmt.Errorf("%s: %s", ref, res.ErrorMessage)
		}
	}

	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go transfer(a.ID, b.ID, fmt.Sprintf("a-to-b-%d", i))
		go transfer(b.ID, a.ID, fmt.Sprintf("b-to-a-%d", i))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("transfers did not finish")
	}
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	aAvail, _ := f.balances(t, a.ID)
	bAvail, _ := f.balances(t, b.ID)
	assert.Equal(t, int64(1000_00), aAvail)
	assert.Equal(t, int64(1000_00), bAvail)
}

func TestProcess_ConcurrentSameReferenceAppliesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acct := f.openAccount(t, 0, 0)
	cmd := command(domain.KindCredit, acct.ID, 25_00, "ref-race")

	const callers = 10
	results := make([]*Result, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Process(ctx, cmd)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}

	available, _ := f.balances(t, acct.ID)
	assert.Equal(t, int64(25_00), available)
}

// slowUnits holds every commit for delay, long enough to outlast the replay
// backoff if a racing insert failed fast instead of waiting.
type slowUnits struct {
	repository.UnitOfWork
	delay time.Duration
}

func (s slowUnits) Begin(ctx context.Context) (repository.Unit, error) {
	u, err := s.UnitOfWork.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &slowUnit{Unit: u, delay: s.delay}, nil
}

type slowUnit struct {
	repository.Unit
	delay time.Duration
}

func (u *slowUnit) Commit() error {
	time.Sleep(u.delay)
	return u.Unit.Commit()
}

func TestProcess_SameReferenceOnDifferentAccountsWithSlowCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixtureWithUnits(t, func(inner repository.UnitOfWork) repository.UnitOfWork {
		return slowUnits{UnitOfWork: inner, delay: 500 * time.Millisecond}
	})
	a := f.openAccount(t, 0, 0)
	b := f.openAccount(t, 0, 0)

	results := make([]*Result, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, id := range []uuid.UUID{a.ID, b.ID} {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Process(ctx, command(domain.KindCredit, id, 10_00, "ref-slow"))
		}(i, id)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0], results[1])

	aAvail, _ := f.balances(t, a.ID)
	bAvail, _ := f.balances(t, b.ID)
	assert.Equal(t, int64(10_00), aAvail+bAvail)
}

var errDiskFull = errors.New("disk full")

type faultyUnits struct {
	repository.UnitOfWork
	failOn string
}

func (f faultyUnits) Begin(ctx context.Context) (repository.Unit, error) {
	u, err := f.UnitOfWork.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &faultyUnit{Unit: u, failOn: f.failOn}, nil
}

type faultyUnit struct {
	repository.Unit
	failOn string
}

func (u *faultyUnit) UpdateAccount(ctx context.Context, a *domain.Account) error {
	if u.failOn == "update" {
		return errDiskFull
	}
	return u.Unit.UpdateAccount(ctx, a)
}

func (u *faultyUnit) Commit() error {
	if u.failOn == "commit" {
		return errDiskFull
	}
	return u.Unit.Commit()
}

func TestProcess_StorageFaultRollsBack(t *testing.T) {
	for _, failOn := range []string{"update", "commit"} {
		t.Run(failOn, func(t *testing.T) {
			ctx := context.Background()
			f := newFixtureWithUnits(t, func(inner repository.UnitOfWork) repository.UnitOfWork {
				return faultyUnits{UnitOfWork: inner, failOn: failOn}
			})
			acct := f.openAccount(t, 100_00, 0)

			res, err := f.svc.Process(ctx, command(domain.KindCredit, acct.ID, 50_00, "ref-fault"))
			require.ErrorIs(t, err, domain.ErrProcessingFailed)
			assert.NotErrorIs(t, err, errDiskFull)
			assert.Nil(t, res)

			available, _ := f.balances(t, acct.ID)
			assert.Equal(t, int64(100_00), available)
			_, err = f.store.Transactions().GetByReferenceID(ctx, "ref-fault")
			assert.ErrorIs(t, err, domain.ErrNotFound)
			assert.Zero(t, f.publisher.Len())
		})
	}
}

func TestProcess_CancelledCallerBeforeLock(t *testing.T) {
	f := newFixture(t)
	acct := f.openAccount(t, 0, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Process(ctx, command(domain.KindCredit, acct.ID, 1_00, "ref-cancelled"))
	require.ErrorIs(t, err, context.Canceled)

	available, _ := f.balances(t, acct.ID)
	assert.Zero(t, available)
}

func TestGetStatement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acct := f.openAccount(t, 0, 0)
	other := f.openAccount(t, 500_00, 0)

	credit, err := f.svc.Process(ctx, command(domain.KindCredit, acct.ID, 100_00, "st-credit"))
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	debit, err := f.svc.Process(ctx, command(domain.KindDebit, acct.ID, 30_00, "st-debit"))
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	in := command(domain.KindTransfer, other.ID, 50_00, "st-transfer-in")
	in.DestinationAccountID = &acct.ID
	transfer, err := f.svc.Process(ctx, in)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)

	t.Run("default window", func(t *testing.T) {
		st, err := f.svc.GetStatement(ctx, acct.ID, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, acct.Number, st.AccountNumber)
		assert.Equal(t, t0.Add(3*time.Hour), st.End)
		assert.Equal(t, st.End.Add(-30*24*time.Hour), st.Start)
		assert.Equal(t, int64(120_00), st.Balance)

		require.Equal(t, 3, st.Count)
		require.Len(t, st.Entries, 3)
		assert.Equal(t, transfer.TransactionID, st.Entries[0].TransactionID)
		assert.True(t, st.Entries[0].Incoming)
		assert.Equal(t, debit.TransactionID, st.Entries[1].TransactionID)
		assert.False(t, st.Entries[1].Incoming)
		assert.Equal(t, credit.TransactionID, st.Entries[2].TransactionID)
	})

	t.Run("explicit bounds are inclusive", func(t *testing.T) {
		start, end := t0.Add(time.Hour), t0.Add(time.Hour)
		st, err := f.svc.GetStatement(ctx, acct.ID, &start, &end)
		require.NoError(t, err)
		require.Equal(t, 1, st.Count)
		assert.Equal(t, debit.TransactionID, st.Entries[0].TransactionID)
	})

	t.Run("empty period", func(t *testing.T) {
		start := t0.Add(-48 * time.Hour)
		end := t0.Add(-24 * time.Hour)
		st, err := f.svc.GetStatement(ctx, acct.ID, &start, &end)
		require.NoError(t, err)
		assert.Zero(t, st.Count)
		assert.NotNil(t, st.Entries)
	})

	t.Run("start after end", func(t *testing.T) {
		start, end := t0.Add(time.Hour), t0
		_, err := f.svc.GetStatement(ctx, acct.ID, &start, &end)
		require.ErrorIs(t, err, domain.ErrInvalidPeriod)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := f.svc.GetStatement(ctx, uuid.New(), nil, nil)
		require.ErrorIs(t, err, domain.ErrAccountNotFound)
	})
}
