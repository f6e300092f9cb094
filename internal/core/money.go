// Package core provides money and calendar date handling.
//
// Money wraps an arbitrary-precision decimal so sums such as 45.50 + 85.00
// stay exact. On the wire it is a plain JSON number, as the remote API
// expects.
package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	dateLayout     = "2006-01-02"
	currencySymbol = "₹"
)

var minAmount = decimal.New(1, -2)

type (
	Money struct {
		decimal.Decimal
	}

	// Date is a calendar date without time of day, stored at UTC midnight.
	Date struct {
		time.Time
	}
)

// ParseMoney parses a decimal string. Both dot and comma separators are accepted.
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{Decimal: d}, nil
}

// MustMoney is ParseMoney for literals known to be valid.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(fmt.Sprintf("core: invalid money literal %q", s))
	}
	return m
}

func (m Money) Add(o Money) Money {
	return Money{Decimal: m.Decimal.Add(o.Decimal)}
}

func (m Money) Equal(o Money) bool {
	return m.Decimal.Equal(o.Decimal)
}

// Validate enforces the minimum expense amount of 0.01.
func (m Money) Validate() error {
	if m.Decimal.LessThan(minAmount) {
		return ErrInvalidAmount
	}
	return nil
}

// Format renders the amount for display, e.g. "₹45.50".
func (m Money) Format() string {
	if m.IsNegative() {
		return "-" + currencySymbol + m.Neg().StringFixed(2)
	}
	return currencySymbol + m.StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	return m.Decimal.UnmarshalJSON(b)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, NewValidationError("date", fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s))
	}
	return Date{Time: t}, nil
}

// Today returns the calendar date of now in now's location.
func Today(now time.Time) Date {
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	// Accept full timestamps as well; only the calendar part is kept.
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
