// Package onboarding connects users to the payment provider so they can
// receive club payouts.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/provider"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/users"
)

type Service struct {
	users      users.Users
	provider   provider.Provider
	refreshURL string
	returnURL  string
}

func New(usersRepo users.Users, p provider.Provider, refreshURL, returnURL string) *Service {
	return &Service{users: usersRepo, provider: p, refreshURL: refreshURL, returnURL: returnURL}
}

// StartOnboarding returns a hosted onboarding link, creating the connected
// account on first use. Payouts stay disabled until the provider reports the
// account ready.
func (s *Service) StartOnboarding(ctx context.Context, userID uuid.UUID) (provider.AccountLink, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return provider.AccountLink{}, fmt.Errorf("get user: %w", err)
	}

	accountID := u.PayeeAccountID
	if accountID == "" {
		acct, err := s.provider.CreateConnectedAccount(ctx, provider.AccountParams{Email: u.Email, UserID: u.ID.String()})
		if err != nil {
			return provider.AccountLink{}, fmt.Errorf("create connected account: %w", err)
		}

		err = s.users.SetPayeeAccount(ctx, u.ID, acct.ID)
		if err != nil {
			return provider.AccountLink{}, fmt.Errorf("store connected account: %w", err)
		}

		accountID = acct.ID

		slog.InfoContext(ctx, "connected account created", "user_id", u.ID, "account_id", accountID)
	}

	link, err := s.provider.CreateAccountLink(ctx, accountID, s.refreshURL, s.returnURL)
	if err != nil {
		return provider.AccountLink{}, fmt.Errorf("create account link: %w", err)
	}

	return link, nil
}

// HandleAccountUpdated records whether a connected account can receive payouts.
func (s *Service) HandleAccountUpdated(ctx context.Context, u provider.AccountUpdate) error {
	err := s.users.SetPayoutsEnabled(ctx, u.AccountID, u.PayoutsEnabled)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			slog.WarnContext(ctx, "account update for unknown account", "account_id", u.AccountID)

			return nil
		}

		return fmt.Errorf("set payouts enabled: %w", err)
	}

	slog.InfoContext(ctx, "payee account updated",
		"account_id", u.AccountID,
		"payouts_enabled", u.PayoutsEnabled,
		"details_submitted", u.DetailsSubmitted,
	)

	return nil
}
