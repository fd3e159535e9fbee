// Package reconcile finds paid assignments whose booking never landed and
// books or links them.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/repos/assignments"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/payments"
	"github.com/chrisdten3/tally-pwa-backup-sub000/internal/services/transfers"
)

const defaultBatchSize = 100

// Repairer books a single paid assignment.
type Repairer interface {
	RepairBooking(ctx context.Context, a assignments.Assignment) (payments.RepairOutcome, error)
}

// PayoutResolver retries transfers whose outcome was lost.
type PayoutResolver interface {
	ResolveInDoubt(ctx context.Context, grace time.Duration, limit int) (transfers.InDoubtReport, error)
}

type Report struct {
	Scanned int
	Booked  int
	Linked  int
	Skipped int
	Failed  int

	Payouts transfers.InDoubtReport
}

type Sweeper struct {
	assignments assignments.Assignments
	repairer    Repairer
	batch       int

	resolver PayoutResolver
	grace    time.Duration
}

func NewSweeper(assignmentsRepo assignments.Assignments, r Repairer, batch int) *Sweeper {
	if batch <= 0 {
		batch = defaultBatchSize
	}

	return &Sweeper{assignments: assignmentsRepo, repairer: r, batch: batch}
}

// WithPayouts makes every run also resolve in-doubt payouts older than grace.
func (s *Sweeper) WithPayouts(r PayoutResolver, grace time.Duration) *Sweeper {
	s.resolver = r
	s.grace = grace

	return s
}

// Run repairs one batch, then resolves in-doubt payouts when configured. A
// failing assignment is counted and logged; the rest of the batch still runs.
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	list, err := s.assignments.ListUnbooked(ctx, s.batch)
	if err != nil {
		return Report{}, fmt.Errorf("list unbooked assignments: %w", err)
	}

	rep := Report{Scanned: len(list)}

	for _, a := range list {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}

		out, err := s.repairer.RepairBooking(ctx, a)
		if err != nil {
			rep.Failed++

			slog.ErrorContext(ctx, "repair booking failed", "assignment_id", a.ID, "err", err)

			continue
		}

		switch out {
		case payments.RepairBooked:
			rep.Booked++
		case payments.RepairLinked:
			rep.Linked++
		case payments.RepairSkipped:
			rep.Skipped++

			slog.WarnContext(ctx, "paid assignment needs manual review", "assignment_id", a.ID, "club_id", a.ClubID)
		}
	}

	if rep.Scanned > 0 {
		slog.InfoContext(ctx, "reconciliation sweep done",
			"scanned", rep.Scanned,
			"booked", rep.Booked,
			"linked", rep.Linked,
			"skipped", rep.Skipped,
			"failed", rep.Failed,
		)
	}

	if s.resolver == nil {
		return rep, nil
	}

	rep.Payouts, err = s.resolver.ResolveInDoubt(ctx, s.grace, s.batch)
	if err != nil {
		return rep, fmt.Errorf("resolve in-doubt payouts: %w", err)
	}

	if p := rep.Payouts; p.Scanned > 0 {
		slog.InfoContext(ctx, "in-doubt payouts swept",
			"scanned", p.Scanned,
			"booked", p.Booked,
			"failed", p.Failed,
			"unknown", p.Unknown,
			"errors", p.Errors,
		)
	}

	return rep, nil
}

// Start runs the sweeper every interval until the returned scheduler is shut
// down. Overlapping runs are skipped.
func Start(ctx context.Context, s *Sweeper, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			_, err := s.Run(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "reconciliation sweep failed", "err", err)
			}
		}),
		gocron.WithName("reconcile-bookings"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}

	sched.Start()

	return sched, nil
}
