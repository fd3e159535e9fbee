package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFeeSplit(t *testing.T) {
	t.Parallel()

	policy := DefaultFeePolicy()

	tests := []struct {
		name    string
		gross   int64
		wantFee int64
		wantNet int64
	}{
		{name: "hundred dollars", gross: 10000, wantFee: 580, wantNet: 9420},
		{name: "half cent tie rounds up", gross: 2500, wantFee: 168, wantNet: 2332},
		{name: "below half rounds down", gross: 1005, wantFee: 85, wantNet: 920},
		{name: "one dollar", gross: 100, wantFee: 36, wantNet: 64},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fee, net, err := policy.Split(tc.gross)
			if err != nil {
				t.Fatalf("Split(%d): %v", tc.gross, err)
			}

			if fee != tc.wantFee || net != tc.wantNet {
				t.Fatalf("split mismatch: want %d/%d, got %d/%d", tc.wantFee, tc.wantNet, fee, net)
			}

			if fee+net != tc.gross {
				t.Fatalf("fee+net must equal gross: %d+%d != %d", fee, net, tc.gross)
			}
		})
	}
}

func TestSplitRejectsAmountsEatenByFee(t *testing.T) {
	t.Parallel()

	_, _, err := DefaultFeePolicy().Split(30)
	if !errors.Is(err, ErrFeeExceedsGross) {
		t.Fatalf("expected ErrFeeExceedsGross, got %v", err)
	}
}

func TestFeeCustomPolicy(t *testing.T) {
	t.Parallel()

	p := FeePolicy{Rate: decimal.RequireFromString("0.029"), FixedCents: 0}
	if got := p.Fee(5000); got != 145 {
		t.Fatalf("fee mismatch: want 145, got %d", got)
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := map[int64]string{
		2500:  "$25.00",
		0:     "$0.00",
		5:     "$0.05",
		-2500: "-$25.00",
		-30:   "-$0.30",
	}

	for cents, want := range tests {
		if got := Format(cents); got != want {
			t.Fatalf("Format(%d): want %q, got %q", cents, want, got)
		}
	}
}
