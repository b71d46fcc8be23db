package ledger

import (
	"encoding/json"
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits kept on amounts.
const AmountScale = 2

var (
	// ErrAmountMissing indicates no amount was supplied.
	ErrAmountMissing = errors.New("amount is required")
	// ErrAmountInvalid indicates the amount could not be read as a number.
	ErrAmountInvalid = errors.New("amount must be a number")
	// ErrAmountOutOfRange indicates the amount does not fit the ledger column.
	ErrAmountOutOfRange = errors.New("amount is out of range")
	// ErrAmountTooSmall indicates a non-zero amount that rounds to zero cents.
	ErrAmountTooSmall = errors.New("amount must be at least 0.01 in magnitude")
)

// maxAmount is the exclusive bound on |amount| (NUMERIC(14,2)).
var maxAmount = decimal.New(1, 12)

// Exponent bounds checked before any rescaling. Rounding a decimal costs
// a power of ten as large as its exponent, so extreme exponents are
// rejected up front.
const (
	maxExponent = 12
	minExponent = -64
)

// ParseAmount coerces a decoded request value into a decimal amount.
// Numbers, numeric strings and decimals are accepted; nil means missing.
// The result is rounded half away from zero to AmountScale digits; a
// non-zero amount that would round to zero is rejected so its sign, and
// with it the transaction kind, is never lost.
func ParseAmount(v any) (decimal.Decimal, error) {
	var (
		d   decimal.Decimal
		err error
	)

	switch val := v.(type) {
	case nil:
		return decimal.Zero, ErrAmountMissing
	case decimal.Decimal:
		d = val
	case *decimal.Decimal:
		if val == nil {
			return decimal.Zero, ErrAmountMissing
		}
		d = *val
	case json.Number:
		d, err = parseDecimalString(string(val))
	case string:
		d, err = parseDecimalString(val)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return decimal.Zero, ErrAmountInvalid
		}
		d = decimal.NewFromFloat(val)
	case int:
		d = decimal.NewFromInt(int64(val))
	case int32:
		d = decimal.NewFromInt32(val)
	case int64:
		d = decimal.NewFromInt(val)
	default:
		return decimal.Zero, ErrAmountInvalid
	}
	if err != nil {
		return decimal.Zero, err
	}

	return bound(d)
}

// bound applies the range and precision rules, cheapest checks first.
func bound(d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsZero() {
		return decimal.Zero, nil
	}
	if d.Exponent() > maxExponent {
		return decimal.Zero, ErrAmountOutOfRange
	}
	if d.Exponent() < minExponent {
		return decimal.Zero, ErrAmountInvalid
	}
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, ErrAmountOutOfRange
	}

	rounded := d.Round(AmountScale)
	if rounded.IsZero() {
		return decimal.Zero, ErrAmountTooSmall
	}
	if rounded.Abs().GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, ErrAmountOutOfRange
	}
	return rounded, nil
}

// parseDecimalString parses a trimmed numeric string.
// Comma decimal separators are not accepted.
func parseDecimalString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrAmountInvalid
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrAmountInvalid
	}

	return d, nil
}
