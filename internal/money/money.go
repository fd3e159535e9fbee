// Package money holds the few places where integer cents meet decimal math:
// fee computation and display formatting. Everything else passes int64 cents.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrFeeExceedsGross = errors.New("fee exceeds gross amount")

// FeePolicy is the platform fee charged on money forwarded to a payee:
// fee = round(gross*Rate + FixedCents), rounded half away from zero.
type FeePolicy struct {
	Rate       decimal.Decimal
	FixedCents int64
}

// DefaultFeePolicy is 5.5% + $0.30.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{Rate: decimal.RequireFromString("0.055"), FixedCents: 30}
}

// Fee returns the platform fee in cents for gross cents.
func (p FeePolicy) Fee(gross int64) int64 {
	return decimal.NewFromInt(gross).
		Mul(p.Rate).
		Add(decimal.NewFromInt(p.FixedCents)).
		Round(0).
		IntPart()
}

// Split returns (fee, net). net must stay positive for money to move.
func (p FeePolicy) Split(gross int64) (int64, int64, error) {
	fee := p.Fee(gross)
	net := gross - fee

	if net <= 0 {
		return 0, 0, fmt.Errorf("%w: gross %d, fee %d", ErrFeeExceedsGross, gross, fee)
	}

	return fee, net, nil
}

// Format renders cents as a dollar string, e.g. 2500 -> "$25.00", -30 -> "-$0.30".
func Format(cents int64) string {
	d := decimal.New(cents, -2)
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}

	return "$" + d.StringFixed(2)
}
