// Package transfers moves club money to a payee: a transfer of the net
// amount to the payee's connected account, a best-effort instant payout, and
// the matching payout record and ledger entries.
package transfers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/infra/pgutils"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/money"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/clubs"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/ledger"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/memberships"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/payouts"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/users"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/bookkeeping"
)

type Deps struct {
	Tx          pgutils.TxRunner
	Clubs       clubs.Clubs
	Users       users.Users
	Memberships memberships.Memberships
	Payouts     payouts.Payouts
	Bookkeeper  *bookkeeping.Bookkeeper
	Provider    provider.Provider
	Fees        money.FeePolicy
	Currency    string
	// Notices is told when a payout is settled or fails outside the
	// provider callbacks. Optional.
	Notices StatusNotifier
}

// StatusNotifier informs people about a payout reaching a final status.
type StatusNotifier interface {
	NotifyStatus(ctx context.Context, p payouts.Payout, to payouts.Status, reason string)
}

type Engine struct {
	tx          pgutils.TxRunner
	clubs       clubs.Clubs
	users       users.Users
	memberships memberships.Memberships
	payouts     payouts.Payouts
	book        *bookkeeping.Bookkeeper
	provider    provider.Provider
	fees        money.FeePolicy
	currency    string
	notices     StatusNotifier
	now         func() time.Time
}

func New(d Deps) *Engine {
	return &Engine{
		tx:          d.Tx,
		clubs:       d.Clubs,
		users:       d.Users,
		memberships: d.Memberships,
		payouts:     d.Payouts,
		book:        d.Bookkeeper,
		provider:    d.Provider,
		fees:        d.Fees,
		currency:    d.Currency,
		notices:     d.Notices,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type Result struct {
	Payout payouts.Payout
	Fee    int64
	Net    int64
	// Balance is the club balance after the payout entry.
	Balance int64
}

type PayoutRequest struct {
	ClubID uuid.UUID
	// RequestedBy is the authenticated admin; invalid means anonymous.
	RequestedBy  uuid.NullUUID
	TargetUserID uuid.UUID
	AmountCents  int64
	Description  string
}

// RequestPayout sends an admin-initiated payout. Preconditions are checked
// before any provider call, in order: authentication, admin role, amount,
// balance, payee onboarding, no payout of the club in doubt.
func (e *Engine) RequestPayout(ctx context.Context, req PayoutRequest) (Result, error) {
	if !req.RequestedBy.Valid {
		return Result{}, ErrUnauthenticated
	}

	m, err := e.memberships.Get(ctx, req.ClubID, req.RequestedBy.UUID)
	if err != nil {
		if errors.Is(err, memberships.ErrMembershipNotFound) {
			return Result{}, ErrForbidden
		}

		return Result{}, fmt.Errorf("get membership: %w", err)
	}

	if m.Role != memberships.RoleAdmin {
		return Result{}, ErrForbidden
	}

	if req.AmountCents <= 0 {
		return Result{}, ErrInvalidAmount
	}

	club, err := e.clubs.Get(ctx, req.ClubID)
	if err != nil {
		return Result{}, fmt.Errorf("get club: %w", err)
	}

	if club.Balance < req.AmountCents {
		return Result{}, fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientBalance, club.Balance, req.AmountCents)
	}

	target, err := e.payee(ctx, req.TargetUserID)
	if err != nil {
		return Result{}, err
	}

	err = e.checkInDoubt(ctx, club.ID)
	if err != nil {
		return Result{}, err
	}

	desc := req.Description
	if desc == "" {
		desc = "Payout to " + displayName(target)
	}

	return e.move(ctx, movement{
		club:        club,
		payee:       target,
		gross:       req.AmountCents,
		initiatedBy: req.RequestedBy,
		description: desc,
	})
}

// SettleToPayee forwards gross from the club balance to the club payee.
// It is triggered by the system after a payment is applied.
func (e *Engine) SettleToPayee(ctx context.Context, clubID uuid.UUID, gross int64) (Result, error) {
	club, err := e.clubs.Get(ctx, clubID)
	if err != nil {
		return Result{}, fmt.Errorf("get club: %w", err)
	}

	if !club.PayeeUserID.Valid {
		return Result{}, ErrNoPayee
	}

	payee, err := e.payee(ctx, club.PayeeUserID.UUID)
	if err != nil {
		return Result{}, err
	}

	if gross <= 0 {
		return Result{}, ErrInvalidAmount
	}

	if club.Balance < gross {
		return Result{}, fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientBalance, club.Balance, gross)
	}

	err = e.checkInDoubt(ctx, club.ID)
	if err != nil {
		return Result{}, err
	}

	return e.move(ctx, movement{
		club:        club,
		payee:       payee,
		gross:       gross,
		auto:        true,
		description: "Auto payout to " + displayName(payee),
	})
}

func (e *Engine) payee(ctx context.Context, userID uuid.UUID) (users.User, error) {
	u, err := e.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return users.User{}, fmt.Errorf("%w: user %s not found", ErrPayeeNotOnboarded, userID)
		}

		return users.User{}, fmt.Errorf("get payee: %w", err)
	}

	if !u.CanReceivePayouts() {
		return users.User{}, ErrPayeeNotOnboarded
	}

	return u, nil
}

// checkInDoubt refuses new money movement while an earlier transfer of the
// club may or may not have landed.
func (e *Engine) checkInDoubt(ctx context.Context, clubID uuid.UUID) error {
	p, err := e.payouts.FirstInDoubt(ctx, clubID)
	if err != nil {
		if errors.Is(err, payouts.ErrPayoutNotFound) {
			return nil
		}

		return fmt.Errorf("check in-doubt payouts: %w", err)
	}

	return fmt.Errorf("%w: payout %s", ErrPayoutInDoubt, p.ID)
}

type movement struct {
	club        clubs.Club
	payee       users.User
	gross       int64
	initiatedBy uuid.NullUUID
	auto        bool
	description string
}

// rawResponses is what the provider returned, kept on the payout for audit.
type rawResponses struct {
	Transfer      json.RawMessage `json:"transfer,omitempty"`
	TransferError string          `json:"transfer_error,omitempty"`
	Payout        json.RawMessage `json:"payout,omitempty"`
	PayoutError   string          `json:"payout_error,omitempty"`
}

func (r rawResponses) bytes() []byte {
	b, err := json.Marshal(r)
	if err != nil {
		return nil
	}

	return b
}

// move records the payout as pending before any provider call, so a crash or
// a lost response leaves a payout in doubt instead of an untracked transfer.
func (e *Engine) move(ctx context.Context, m movement) (Result, error) {
	fee, net, err := e.fees.Split(m.gross)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}

	now := e.now()
	rec := payouts.Payout{
		ID:              uuid.New(),
		ClubID:          m.club.ID,
		Amount:          m.gross,
		Fee:             fee,
		Net:             net,
		Provider:        e.provider.Name(),
		Status:          payouts.StatusPending,
		InitiatedBy:     m.initiatedBy,
		RecipientUserID: m.payee.ID,
		Auto:            m.auto,
		Description:     m.description,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = e.tx.WithTx(ctx, func(tx *sql.Tx) error {
		return e.payouts.Create(ctx, tx, rec)
	})
	if err != nil {
		return Result{}, fmt.Errorf("create payout: %w", err)
	}

	res := Result{Payout: rec, Fee: fee, Net: net, Balance: m.club.Balance}

	// 1. Transfer the net amount; the fee stays with the platform.
	tr, err := e.provider.CreateTransfer(ctx, e.transferParams(rec, m.payee.PayeeAccountID))
	if err != nil {
		if errors.Is(err, provider.ErrOutcomeUnknown) {
			slog.WarnContext(ctx, "transfer outcome unknown, payout held in doubt",
				"payout_id", rec.ID, "club_id", rec.ClubID, "err", err)

			return res, fmt.Errorf("%w: payout %s: %w", ErrTransferUnknown, rec.ID, err)
		}

		res.Payout = e.fail(ctx, rec, err)

		return res, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	return e.complete(ctx, rec, tr, m.payee.PayeeAccountID)
}

func (e *Engine) transferParams(rec payouts.Payout, destination string) provider.TransferParams {
	return provider.TransferParams{
		AmountCents:        rec.Net,
		Currency:           e.currency,
		DestinationAccount: destination,
		IdempotencyKey:     rec.ID.String() + "-transfer",
		Metadata: map[string]string{
			"payout_id": rec.ID.String(),
			"club_id":   rec.ClubID.String(),
		},
	}
}

// complete runs the steps after an accepted transfer: the best-effort instant
// payout, then the payout record, the debit and the fee memo in one tx.
func (e *Engine) complete(ctx context.Context, rec payouts.Payout, tr provider.Transfer, destination string) (Result, error) {
	res := Result{Payout: rec, Fee: rec.Fee, Net: rec.Net}
	now := e.now()

	rec.ProviderTransferID = tr.ID
	raw := rawResponses{Transfer: tr.Raw}

	// 2. Instant payout to the payee's bank, best effort.
	po, err := e.provider.CreateInstantPayout(ctx, provider.InstantPayoutParams{
		AmountCents:    rec.Net,
		Currency:       e.currency,
		Account:        destination,
		IdempotencyKey: rec.ID.String() + "-payout",
		Metadata: map[string]string{
			"payout_id": rec.ID.String(),
			"club_id":   rec.ClubID.String(),
		},
	})
	if err != nil {
		slog.WarnContext(ctx, "instant payout not accepted, funds wait for standard payout",
			"payout_id", rec.ID, "transfer_id", tr.ID, "err", err)

		raw.PayoutError = err.Error()
	} else {
		rec.ProviderBatchID = po.ID
		rec.Status = payouts.StatusPaid
		rec.SettledAt = &now
		raw.Payout = po.Raw
	}

	rec.RawResponse = raw.bytes()
	res.Payout = rec

	// 3. Record the transfer, the debit and the fee memo together.
	var debit ledger.Entry

	err = e.tx.WithTx(ctx, func(tx *sql.Tx) error {
		changed, err := e.payouts.ConfirmTransfer(ctx, tx, rec)
		if err != nil {
			return fmt.Errorf("confirm payout: %w", err)
		}

		if !changed {
			return errAlreadyRecorded
		}

		debit, err = e.book.Post(ctx, tx, bookkeeping.Posting{
			ClubID:            rec.ClubID,
			Type:              ledger.TypePayout,
			Amount:            -rec.Amount,
			ActorUserID:       rec.InitiatedBy,
			Provider:          rec.Provider,
			ProviderPaymentID: tr.ID,
			Description:       rec.Description,
		})
		if err != nil {
			return fmt.Errorf("post payout: %w", err)
		}

		_, err = e.book.Post(ctx, tx, bookkeeping.Posting{
			ClubID:            rec.ClubID,
			Type:              ledger.TypePlatformFee,
			Amount:            rec.Fee,
			Memo:              true,
			ActorUserID:       rec.InitiatedBy,
			Provider:          rec.Provider,
			ProviderPaymentID: tr.ID,
			Description:       "Platform fee for " + rec.Description,
		})
		if err != nil {
			return fmt.Errorf("post platform fee: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, errAlreadyRecorded) {
			return res, fmt.Errorf("payout %s: %w", rec.ID, err)
		}

		// The payout stays in doubt and the sweep books it with the same transfer key.
		slog.ErrorContext(ctx, "transfer sent but not recorded",
			"payout_id", rec.ID,
			"transfer_id", tr.ID,
			"club_id", rec.ClubID,
			"gross_cents", rec.Amount,
			"err", err,
		)

		return res, fmt.Errorf("record payout %s: %w", rec.ID, err)
	}

	res.Balance = debit.BalanceAfter

	slog.InfoContext(ctx, "payout sent",
		"payout_id", rec.ID,
		"club_id", rec.ClubID,
		"auto", rec.Auto,
		"gross_cents", rec.Amount,
		"fee_cents", rec.Fee,
		"net_cents", rec.Net,
		"status", rec.Status,
	)

	if rec.Status == payouts.StatusPaid {
		e.notify(ctx, rec, payouts.StatusPaid, "")
	}

	return res, nil
}

// fail marks a pending payout failed after a definite transfer rejection.
// The balance is untouched.
func (e *Engine) fail(ctx context.Context, rec payouts.Payout, cause error) payouts.Payout {
	now := e.now()

	rec.Status = payouts.StatusFailed
	rec.FailureReason = cause.Error()
	rec.SettledAt = &now

	changed, err := e.payouts.Transition(ctx, rec.ID, []payouts.Status{payouts.StatusPending}, payouts.StatusFailed, rec.FailureReason, now)
	if err != nil || !changed {
		slog.ErrorContext(ctx, "failed payout not recorded", "payout_id", rec.ID, "changed", changed, "err", err)
	}

	slog.WarnContext(ctx, "transfer failed", "payout_id", rec.ID, "club_id", rec.ClubID, "reason", rec.FailureReason)

	return rec
}

func (e *Engine) notify(ctx context.Context, p payouts.Payout, to payouts.Status, reason string) {
	if e.notices != nil {
		e.notices.NotifyStatus(ctx, p, to, reason)
	}
}

func displayName(u users.User) string {
	if u.Name != "" {
		return u.Name
	}

	return u.Email
}
