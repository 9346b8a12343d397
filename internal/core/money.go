// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between minor units and decimal representations.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmountCents bounds a single transaction amount (100 billion in major
// units). Totals of any realistic number of such amounts stay inside int64.
const MaxAmountCents int64 = 10_000_000_000_000

var maxCents = decimal.NewFromInt(math.MaxInt64)

// ParseAmount converts a decimal string to minor units with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// on the third decimal place. The result is always positive and at most
// MaxAmountCents.
// Returns ErrInvalidAmount for invalid formats, negative, zero or oversized amounts.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234, nil
//	ParseAmount("12,34")  -> 1234, nil
//	ParseAmount("12.345") -> 1235, nil
//	ParseAmount("0")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m, ok := fromDecimal(d)
	if !ok {
		return Money{}, ErrInvalidAmount
	}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// MoneyFromFloat converts a float amount, e.g. a stored legacy value, rounding
// to two decimals. NaN and infinities become zero.
func MoneyFromFloat(f float64) Money {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Money{}
	}
	m, ok := fromDecimal(decimal.NewFromFloat(f))
	if !ok {
		return Money{}
	}
	return m
}

func fromDecimal(d decimal.Decimal) (Money, bool) {
	c := d.Round(2).Shift(2)
	if c.Abs().GreaterThan(maxCents) {
		return Money{}, false
	}
	return Money{Cents: c.IntPart()}, true
}

// Add returns the sum of both amounts, saturating at the int64 bounds instead
// of wrapping.
func (m Money) Add(o Money) Money {
	sum := m.Cents + o.Cents
	switch {
	case o.Cents > 0 && sum < m.Cents:
		return Money{Cents: math.MaxInt64}
	case o.Cents < 0 && sum > m.Cents:
		return Money{Cents: math.MinInt64}
	}
	return Money{Cents: sum}
}

// Sub returns m minus o; the result may be negative. It saturates like Add.
func (m Money) Sub(o Money) Money {
	diff := m.Cents - o.Cents
	switch {
	case o.Cents < 0 && diff < m.Cents:
		return Money{Cents: math.MaxInt64}
	case o.Cents > 0 && diff > m.Cents:
		return Money{Cents: math.MinInt64}
	}
	return Money{Cents: diff}
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float64 returns the major-unit value for chart series.
// Use Cents for calculations to avoid floating-point drift.
func (m Money) Float64() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a quoted decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return ErrInvalidAmount
	}
	v, ok := fromDecimal(d)
	if !ok {
		return ErrInvalidAmount
	}
	*m = v
	return nil
}
