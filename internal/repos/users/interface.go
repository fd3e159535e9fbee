package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID    uuid.UUID
	Email string
	Name  string
	// PayeeAccountID is the connected account at the payment provider, empty until onboarding starts.
	PayeeAccountID string
	PayoutsEnabled bool
	CreatedAt      time.Time
}

// CanReceivePayouts reports whether money can be forwarded to the user.
func (u User) CanReceivePayouts() bool {
	return u.PayeeAccountID != "" && u.PayoutsEnabled
}

type Users interface {
	Get(ctx context.Context, userID uuid.UUID) (User, error)
	// FindByEmail matches case-insensitively and returns the oldest user on ties.
	FindByEmail(ctx context.Context, email string) (User, error)
	SetPayeeAccount(ctx context.Context, userID uuid.UUID, accountID string) error
	SetPayoutsEnabled(ctx context.Context, accountID string, enabled bool) error
}
