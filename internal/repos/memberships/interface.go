package memberships

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrMembershipNotFound = errors.New("membership not found")

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

type Membership struct {
	ClubID           uuid.UUID
	UserID           uuid.UUID
	Role             Role
	JoinedViaPayment bool
	CreatedAt        time.Time
}

type Memberships interface {
	Get(ctx context.Context, clubID, userID uuid.UUID) (Membership, error)
	// Ensure inserts m unless the user already belongs to the club and reports whether a row was created.
	Ensure(ctx context.Context, tx *sql.Tx, m Membership) (bool, error)
}
