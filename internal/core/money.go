// Package core holds the domain records and the money handling used by
// every other package.
//
// This file implements exact decimal currency handling. The supported
// currency has a 3-decimal smallest unit (0.001), so every computed
// value is rounded half away from zero at three decimals before it is
// stored or compared. Raw floats are never persisted.
package core

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyDecimals is the precision of the base currency's smallest unit.
const CurrencyDecimals = 3

type Money struct {
	Amount decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{Amount: d}.Round()
}

func MoneyFromInt(n int64) Money {
	return Money{Amount: decimal.NewFromInt(n)}
}

func MoneyZero() Money {
	return Money{Amount: decimal.Zero}
}

// Round normalizes to the canonical 3-decimal representation, rounding
// half away from zero. Round is idempotent.
func (m Money) Round() Money {
	return Money{Amount: m.Amount.Round(CurrencyDecimals)}
}

func (m Money) Add(other Money) Money {
	return Money{Amount: m.Amount.Add(other.Amount)}.Round()
}

func (m Money) Sub(other Money) Money {
	return Money{Amount: m.Amount.Sub(other.Amount)}.Round()
}

// MulInt multiplies by an installment count.
func (m Money) MulInt(n int) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(int64(n)))}.Round()
}

// DivInt splits evenly across n parts, rounded to the smallest unit.
func (m Money) DivInt(n int) Money {
	return Money{Amount: m.Amount.Div(decimal.NewFromInt(int64(n)))}.Round()
}

func (m Money) IsZero() bool     { return m.Amount.IsZero() }
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }
func (m Money) IsPositive() bool { return m.Amount.IsPositive() }

func (m Money) Cmp(other Money) int { return m.Amount.Cmp(other.Amount) }

func (m Money) Equal(other Money) bool {
	return m.Amount.Round(CurrencyDecimals).Equal(other.Amount.Round(CurrencyDecimals))
}

// Float64 is for presentation only; calculations stay on the decimal.
func (m Money) Float64() float64 {
	f, _ := m.Amount.Float64()
	return f
}

// String renders the canonical 3-decimal form, e.g. "3600.000".
func (m Money) String() string {
	return m.Amount.StringFixed(CurrencyDecimals)
}

// MarshalJSON emits the canonical 3-decimal string, e.g. "300.000".
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// Bare JSON numbers are accepted too.
		s = string(b)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ErrInvalidAmount
	}
	m.Amount = d.Round(CurrencyDecimals)
	return nil
}

// arabicDigits maps Arabic-Indic and Eastern Arabic-Indic digits to
// their Latin equivalents. '٫' is the Arabic decimal separator and '٬'
// the Arabic thousands separator.
var arabicDigits = strings.NewReplacer(
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	"٫", ".", "٬", "", "٪", "%",
)

// NormalizeDigits rewrites Arabic-Indic numerals and separators into
// their Latin forms so a single set of patterns can match both scripts.
func NormalizeDigits(s string) string {
	return arabicDigits.Replace(s)
}

// ParseAmount parses a monetary amount written with Latin or
// Arabic-Indic digits, with optional thousands separators, into the
// canonical 3-decimal representation.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(NormalizeDigits(s))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return NewMoney(d), nil
}

// FormatCurrency renders the integer part with thousands separation and
// always three fractional digits. Digits are always Latin numerals
// regardless of display language; the Arabic locale only switches the
// separators ('٬' for grouping, '٫' for the decimal point).
func FormatCurrency(m Money, locale string) string {
	group, point := ",", "."
	if strings.HasPrefix(strings.ToLower(locale), "ar") {
		group, point = "٬", "٫"
	}
	fixed := m.Amount.StringFixed(CurrencyDecimals)
	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	parts := strings.SplitN(fixed, ".", 2)
	intPart, fracPart := parts[0], parts[1]

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(group)
		}
		b.WriteRune(r)
	}
	b.WriteString(point)
	b.WriteString(fracPart)
	return b.String()
}
