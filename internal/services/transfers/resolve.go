package transfers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/payouts"
)

type ResolveOutcome string

const (
	ResolveBooked  ResolveOutcome = "booked"
	ResolveFailed  ResolveOutcome = "failed"
	ResolveUnknown ResolveOutcome = "unknown"
	ResolveNoop    ResolveOutcome = "noop"
)

// InDoubtReport counts what one ResolveInDoubt pass did.
type InDoubtReport struct {
	Scanned int
	Booked  int
	Failed  int
	Unknown int
	Errors  int
}

// ResolveInDoubt settles payouts whose transfer outcome was lost. Payouts
// younger than grace are left alone so an in-flight request finishes first.
func (e *Engine) ResolveInDoubt(ctx context.Context, grace time.Duration, limit int) (InDoubtReport, error) {
	var rep InDoubtReport

	list, err := e.payouts.ListInDoubt(ctx, limit)
	if err != nil {
		return rep, fmt.Errorf("list in-doubt payouts: %w", err)
	}

	cutoff := e.now().Add(-grace)

	for _, p := range list {
		if p.CreatedAt.After(cutoff) {
			continue
		}

		rep.Scanned++

		out, err := e.ResolvePayout(ctx, p)
		if err != nil {
			rep.Errors++

			slog.ErrorContext(ctx, "in-doubt payout not resolved", "payout_id", p.ID, "err", err)

			continue
		}

		switch out {
		case ResolveBooked:
			rep.Booked++
		case ResolveFailed:
			rep.Failed++
		case ResolveUnknown:
			rep.Unknown++
		case ResolveNoop:
		}
	}

	return rep, nil
}

// ResolvePayout asks the provider again with the original idempotency key,
// so a transfer that already landed is returned instead of sent twice.
func (e *Engine) ResolvePayout(ctx context.Context, p payouts.Payout) (ResolveOutcome, error) {
	if !p.InDoubt() {
		return ResolveNoop, nil
	}

	payee, err := e.users.Get(ctx, p.RecipientUserID)
	if err != nil {
		return "", fmt.Errorf("get payee: %w", err)
	}

	if payee.PayeeAccountID == "" {
		return "", fmt.Errorf("%w: payee %s has no account", ErrPayeeNotOnboarded, payee.ID)
	}

	tr, err := e.provider.CreateTransfer(ctx, e.transferParams(p, payee.PayeeAccountID))
	if err != nil {
		if errors.Is(err, provider.ErrOutcomeUnknown) {
			return ResolveUnknown, nil
		}

		failed := e.fail(ctx, p, err)
		e.notify(ctx, failed, payouts.StatusFailed, failed.FailureReason)

		return ResolveFailed, nil
	}

	_, err = e.complete(ctx, p, tr, payee.PayeeAccountID)
	if err != nil {
		if errors.Is(err, errAlreadyRecorded) {
			return ResolveNoop, nil
		}

		return "", err
	}

	slog.InfoContext(ctx, "in-doubt payout booked", "payout_id", p.ID, "transfer_id", tr.ID)

	return ResolveBooked, nil
}
