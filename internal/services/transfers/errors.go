package transfers

import "errors"

var (
	ErrUnauthenticated     = errors.New("requester is not authenticated")
	ErrForbidden           = errors.New("requester is not an admin of the club")
	ErrInvalidAmount       = errors.New("amount must be positive and exceed the fee")
	ErrInsufficientBalance = errors.New("club balance is insufficient")
	ErrPayeeNotOnboarded   = errors.New("payee cannot receive payouts")
	ErrNoPayee             = errors.New("club has no designated payee")
	ErrTransferFailed      = errors.New("transfer to payee failed")
	// ErrTransferUnknown means the transfer call ended without an answer. The
	// payout stays pending until the provider confirms or rejects it.
	ErrTransferUnknown = errors.New("transfer outcome unknown")
	ErrPayoutInDoubt   = errors.New("an earlier payout of the club has an unknown outcome")

	errAlreadyRecorded = errors.New("payout already recorded")
)

// Reason returns the stable code reported to callers for err, or "" when err
// is not a payout rejection.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrPayeeNotOnboarded):
		return "payee_not_onboarded"
	case errors.Is(err, ErrNoPayee):
		return "no_payee"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ErrTransferUnknown):
		return "transfer_unknown"
	case errors.Is(err, ErrPayoutInDoubt):
		return "payout_in_doubt"
	default:
		return ""
	}
}
