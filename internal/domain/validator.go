package domain

import "math"

// CanDebit counts available, reserved and the credit line as spendable.
func CanDebit(a Account, amount Money) bool {
	return a.IsActive() && spendable(a) >= uint64(amount)
}

func CanReserve(a Account, amount Money) bool {
	return a.IsActive() && a.Available >= amount
}

func CanCapture(a Account, amount Money) bool {
	return a.IsActive() && a.Reserved >= amount
}

func CanTransfer(src, dst Account, amount Money) bool {
	return dst.IsActive() && CanDebit(src, amount)
}

func CheckDebit(a Account, amount Money) error {
	if !a.IsActive() {
		return ErrAccountNotActive
	}
	if !CanDebit(a, amount) {
		return ErrInsufficientFunds
	}
	return nil
}

func CheckReserve(a Account, amount Money) error {
	if !a.IsActive() {
		return ErrAccountNotActive
	}
	if !CanReserve(a, amount) {
		return ErrInsufficientFunds
	}
	return nil
}

func CheckCapture(a Account, amount Money) error {
	if !a.IsActive() {
		return ErrAccountNotActive
	}
	if !CanCapture(a, amount) {
		return ErrInsufficientFunds
	}
	return nil
}

func CheckTransfer(src, dst Account, amount Money) error {
	if !src.IsActive() || !dst.IsActive() {
		return ErrAccountNotActive
	}
	return CheckDebit(src, amount)
}

// spendable saturates instead of wrapping.
func spendable(a Account) uint64 {
	sum := uint64(a.Available) + uint64(a.Reserved)
	if math.MaxUint64-sum < uint64(a.CreditLimit) {
		return math.MaxUint64
	}
	return sum + uint64(a.CreditLimit)
}
