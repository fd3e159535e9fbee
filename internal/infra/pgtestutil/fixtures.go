package pgtestutil

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
)

// Fixture ids returned by Seed.
type Fixture struct {
	ClubID     uuid.UUID
	AdminID    uuid.UUID
	MemberID   uuid.UUID
	EventID    uuid.UUID
	Assignment uuid.UUID
}

// Seed inserts a club with an admin payee, a member, a public event priced at
// amount and one open assignment of the member for that event.
func Seed(t *testing.T, db *sql.DB, amount int64) Fixture {
	t.Helper()

	f := Fixture{
		ClubID:     uuid.New(),
		AdminID:    uuid.New(),
		MemberID:   uuid.New(),
		EventID:    uuid.New(),
		Assignment: uuid.New(),
	}

	stmts := []struct {
		q    string
		args []any
	}{
		{`INSERT INTO users (id, email, name) VALUES ($1, $2, 'Admin')`, []any{f.AdminID, f.AdminID.String() + "@admin.test"}},
		{`INSERT INTO users (id, email, name) VALUES ($1, $2, 'Member')`, []any{f.MemberID, f.MemberID.String() + "@member.test"}},
		{`INSERT INTO clubs (id, name, payee_user_id) VALUES ($1, 'Test Club', $2)`, []any{f.ClubID, f.AdminID}},
		{`INSERT INTO memberships (club_id, user_id, role) VALUES ($1, $2, 'admin')`, []any{f.ClubID, f.AdminID}},
		{`INSERT INTO events (id, club_id, title, amount, is_public) VALUES ($1, $2, 'Dues', $3, TRUE)`, []any{f.EventID, f.ClubID, amount}},
		{`INSERT INTO assignments (id, event_id, club_id, user_id, assigned_amount) VALUES ($1, $2, $3, $4, $5)`,
			[]any{f.Assignment, f.EventID, f.ClubID, f.MemberID, amount}},
	}

	for _, s := range stmts {
		_, err := db.ExecContext(t.Context(), s.q, s.args...)
		if err != nil {
			t.Fatalf("seed %q: %v", s.q, err)
		}
	}

	return f
}
