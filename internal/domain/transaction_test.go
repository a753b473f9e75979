package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionKind(t *testing.T) {
	for _, k := range []TransactionKind{KindCredit, KindDebit, KindReserve, KindCapture, KindTransfer, KindReversal} {
		assert.True(t, k.IsValid(), k)
	}
	assert.False(t, TransactionKind("refund").IsValid())

	assert.True(t, KindDebit.Reversible())
	assert.True(t, KindReserve.Reversible())
	assert.True(t, KindCapture.Reversible())
	assert.False(t, KindCredit.Reversible())
	assert.False(t, KindTransfer.Reversible())
	assert.False(t, KindReversal.Reversible())
}

func TestLedgerTransaction_Lifecycle(t *testing.T) {
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	a := activeAccount()

	tx := NewPendingTransaction(KindDebit, a, "ref-1", 100_00, created)
	assert.Equal(t, TransactionStatusPending, tx.Status)
	assert.Equal(t, created, tx.Timestamp())

	processedAt := created.Add(time.Second)
	after := a
	after.Available = 600_00
	processed, err := tx.MarkProcessed(after, processedAt)
	require.NoError(t, err)
	assert.Equal(t, TransactionStatusProcessed, processed.Status)
	assert.Equal(t, processedAt, processed.Timestamp())
	assert.Equal(t, Money(600_00), processed.AvailableAfter)

	_, err = processed.MarkProcessed(after, processedAt)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = processed.MarkFailed(errors.New("x"), after)
	require.ErrorIs(t, err, ErrInvalidTransition)

	reversed, err := processed.MarkReversed(processedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, TransactionStatusReversed, reversed.Status)
	assert.Equal(t, processedAt, reversed.Timestamp())
	assert.Equal(t, processed.AvailableAfter, reversed.AvailableAfter)

	_, err = reversed.MarkReversed(processedAt)
	require.ErrorIs(t, err, ErrAlreadyReversed)
}

func TestLedgerTransaction_MarkFailed(t *testing.T) {
	a := activeAccount()
	tx := NewPendingTransaction(KindReserve, a, "ref-2", 5000_00, time.Now())

	failed, err := tx.MarkFailed(ErrInsufficientFunds, a)
	require.NoError(t, err)
	assert.Equal(t, TransactionStatusFailed, failed.Status)
	require.NotNil(t, failed.Error)
	assert.Equal(t, "insufficient funds", *failed.Error)
	assert.Nil(t, failed.ProcessedAt)

	_, err = failed.MarkReversed(time.Now())
	require.ErrorIs(t, err, ErrTransactionNotProcessed)
}

func TestIsRejection(t *testing.T) {
	assert.True(t, IsRejection(ErrInsufficientFunds))
	assert.True(t, IsRejection(ErrAccountNotActive))
	assert.True(t, IsRejection(ErrReversalUnsupported))
	assert.False(t, IsRejection(ErrStorageFailure))
	assert.False(t, IsRejection(ErrDuplicateReference))
	assert.False(t, IsRejection(ErrAccountNotFound))
}
