package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceChecks(t *testing.T) {
	a := Account{Status: AccountStatusActive, Available: 100_00, Reserved: 50_00, CreditLimit: 25_00}
	blocked := a
	blocked.Status = AccountStatusBlocked

	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"debit up to full spendable", CanDebit(a, 175_00), true},
		{"debit beyond spendable", CanDebit(a, 175_01), false},
		{"debit on blocked", CanDebit(blocked, 1), false},
		{"reserve within available", CanReserve(a, 100_00), true},
		{"reserve ignores credit line", CanReserve(a, 100_01), false},
		{"capture within reserved", CanCapture(a, 50_00), true},
		{"capture beyond reserved", CanCapture(a, 50_01), false},
		{"transfer between active accounts", CanTransfer(a, a, 175_00), true},
		{"transfer to blocked", CanTransfer(a, blocked, 1), false},
		{"transfer from blocked", CanTransfer(blocked, a, 1), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.got)
		})
	}
}

func TestCheckErrors(t *testing.T) {
	a := Account{Status: AccountStatusActive, Available: 10}
	inactive := Account{Status: AccountStatusInactive, Available: 10}

	require.NoError(t, CheckDebit(a, 10))
	require.ErrorIs(t, CheckDebit(a, 11), ErrInsufficientFunds)
	require.ErrorIs(t, CheckDebit(inactive, 1), ErrAccountNotActive)
	require.ErrorIs(t, CheckReserve(inactive, 1), ErrAccountNotActive)
	require.ErrorIs(t, CheckCapture(a, 1), ErrInsufficientFunds)
	require.ErrorIs(t, CheckTransfer(a, inactive, 1), ErrAccountNotActive)
}

func TestCanDebit_LargeBalancesDoNotWrap(t *testing.T) {
	a := Account{
		Status:      AccountStatusActive,
		Available:   math.MaxInt64,
		Reserved:    math.MaxInt64,
		CreditLimit: math.MaxInt64,
	}
	assert.True(t, CanDebit(a, math.MaxInt64))
}
