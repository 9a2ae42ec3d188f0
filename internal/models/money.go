package models

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// MoneyPlaces and MoneyMaxDigits mirror the NUMERIC(10,2) columns.
	MoneyPlaces    = 2
	MoneyMaxDigits = 10
)

var moneyLimit = decimal.New(1, MoneyMaxDigits-MoneyPlaces)

// Money is a fixed-point amount. It scans from and writes to NUMERIC columns
// through the embedded decimal and serialises as a string with two places.
type Money struct {
	decimal.Decimal
}

// NewMoney parses a decimal string such as "100.00".
func NewMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{d}, nil
}

// MustMoney is NewMoney for literals; it panics on malformed input.
func MustMoney(s string) Money {
	m, err := NewMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func ZeroMoney() Money { return Money{decimal.Zero} }

func (m Money) Add(o Money) Money { return Money{m.Decimal.Add(o.Decimal)} }

func (m Money) Equal(o Money) bool { return m.Decimal.Equal(o.Decimal) }

func (m Money) String() string { return m.StringFixed(MoneyPlaces) }

// CheckPrecision reports whether m fits NUMERIC(10,2).
func (m Money) CheckPrecision() error {
	if m.Exponent() < -MoneyPlaces && !m.Decimal.Equal(m.Round(MoneyPlaces)) {
		return fmt.Errorf("ensure that there are no more than %d decimal places", MoneyPlaces)
	}
	if m.Abs().GreaterThanOrEqual(moneyLimit) {
		return fmt.Errorf("ensure that there are no more than %d digits in total", MoneyMaxDigits)
	}
	return nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both "12.50" and 12.50.
func (m *Money) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("amount may not be null")
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("a valid number is required: %w", err)
	}
	m.Decimal = d
	return nil
}
