// Package settlement applies provider payout callbacks to payout records.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/money"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/notify"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/payouts"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/users"
)

type Outcome string

const (
	OutcomeSettled   Outcome = "settled"
	OutcomeFailed    Outcome = "failed"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeUnknown   Outcome = "unknown"
)

type Tracker struct {
	payouts  payouts.Payouts
	users    users.Users
	notifier notify.Notifier
	now      func() time.Time
}

func NewTracker(payoutsRepo payouts.Payouts, usersRepo users.Users, n notify.Notifier) *Tracker {
	if n == nil {
		n = notify.LogNotifier{}
	}

	return &Tracker{
		payouts:  payoutsRepo,
		users:    usersRepo,
		notifier: n,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// HandlePayoutUpdate moves the payout matching u.Ref along pending -> paid or
// to failed. Unknown references are logged and acknowledged. Money is not
// re-credited on failure: it already left the platform with the transfer.
func (t *Tracker) HandlePayoutUpdate(ctx context.Context, u provider.PayoutUpdate) (Outcome, error) {
	p, err := t.payouts.GetByProviderRef(ctx, u.Provider, u.Ref)
	if err != nil {
		if errors.Is(err, payouts.ErrPayoutNotFound) {
			slog.WarnContext(ctx, "payout update for unknown reference", "provider", u.Provider, "ref", u.Ref, "status", u.Status)

			return OutcomeUnknown, nil
		}

		return "", fmt.Errorf("find payout: %w", err)
	}

	at := u.OccurredAt
	if at.IsZero() {
		at = t.now()
	}

	var (
		from    []payouts.Status
		to      payouts.Status
		outcome Outcome
	)

	switch u.Status {
	case provider.PayoutPaid:
		from, to, outcome = []payouts.Status{payouts.StatusPending}, payouts.StatusPaid, OutcomeSettled
	case provider.PayoutFailed:
		from, to, outcome = []payouts.Status{payouts.StatusPending, payouts.StatusPaid}, payouts.StatusFailed, OutcomeFailed
	default:
		return "", fmt.Errorf("unsupported payout status %q", u.Status)
	}

	changed, err := t.payouts.Transition(ctx, p.ID, from, to, u.FailureReason, at)
	if err != nil {
		return "", fmt.Errorf("transition payout %s: %w", p.ID, err)
	}

	if !changed {
		return OutcomeUnchanged, nil
	}

	slog.InfoContext(ctx, "payout status changed", "payout_id", p.ID, "from", p.Status, "to", to, "reason", u.FailureReason)

	t.NotifyStatus(ctx, p, to, u.FailureReason)

	return outcome, nil
}

// NotifyStatus emails the initiating admin, or the payee, that a payout
// became paid or failed.
func (t *Tracker) NotifyStatus(ctx context.Context, p payouts.Payout, to payouts.Status, reason string) {
	recipient := p.RecipientUserID
	if p.InitiatedBy.Valid {
		recipient = p.InitiatedBy.UUID
	}

	u, err := t.users.Get(ctx, recipient)
	if err != nil {
		slog.WarnContext(ctx, "payout notification skipped", "payout_id", p.ID, "err", err)

		return
	}

	msg := notify.Message{ToName: u.Name, ToEmail: u.Email}

	if to == payouts.StatusPaid {
		msg.Subject = "Payout completed"
		msg.Text = fmt.Sprintf("Your payout of %s has arrived.", money.Format(p.Net))
	} else {
		msg.Subject = "Payout failed"
		msg.Text = fmt.Sprintf("Your payout of %s failed: %s. Please check the payout account details.", money.Format(p.Net), reason)
	}

	err = t.notifier.Notify(ctx, msg)
	if err != nil {
		slog.WarnContext(ctx, "payout notification not delivered", "payout_id", p.ID, "err", err)
	}
}
