package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (centavos). It is never negative.
type Money int64

const minorUnitExp = 2

func NewMoney(minor int64) (Money, error) {
	if minor < 0 {
		return 0, fmt.Errorf("NewMoney: %w", ErrInvalidAmount)
	}
	return Money(minor), nil
}

// ParseMoney reads a decimal string such as "150.25" into minor units.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("ParseMoney: %w", ErrInvalidAmount)
	}
	if d.IsNegative() || !d.Equal(d.Truncate(minorUnitExp)) {
		return 0, fmt.Errorf("ParseMoney: %w", ErrInvalidAmount)
	}
	minor := d.Shift(minorUnitExp)
	if minor.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, fmt.Errorf("ParseMoney: %w", ErrOverflow)
	}
	return Money(minor.IntPart()), nil
}

func (m Money) Int64() int64 { return int64(m) }

func (m Money) IsZero() bool { return m == 0 }

func (m Money) Add(o Money) (Money, error) {
	if o > math.MaxInt64-m {
		return 0, ErrOverflow
	}
	return m + o, nil
}

func (m Money) Sub(o Money) (Money, error) {
	if o > m {
		return 0, ErrUnderflow
	}
	return m - o, nil
}

func (m Money) Min(o Money) Money {
	if o < m {
		return o
	}
	return m
}

func (m Money) String() string {
	return decimal.New(int64(m), -minorUnitExp).StringFixed(minorUnitExp)
}
