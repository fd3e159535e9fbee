package shutdownqueue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestShutdownRunsTasksInLIFOOrder(t *testing.T) {
	t.Parallel()

	var (
		q     Queue
		order []string
	)

	for _, name := range []string{"postgres", "redis", "http"} {
		q.Add(name, func(context.Context) error {
			order = append(order, name)

			return nil
		})
	}

	q.Add("nil", nil)

	if q.Len() != 3 {
		t.Fatalf("queued tasks mismatch: want 3, got %d", q.Len())
	}

	err := q.Shutdown(t.Context())
	if err != nil {
		t.Fatalf("Shutdown error: %v", err)
	}

	want := []string{"http", "redis", "postgres"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("order mismatch: want %v, got %v", want, order)
	}
}

func TestShutdownCollectsErrorsAndPanics(t *testing.T) {
	t.Parallel()

	var q Queue

	errBoom := errors.New("boom")
	ran := 0

	q.Add("first", func(context.Context) error {
		ran++

		return nil
	})
	q.Add("panics", func(context.Context) error {
		panic("kaboom")
	})
	q.Add("fails", func(context.Context) error {
		return errBoom
	})

	err := q.Shutdown(t.Context())
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom in %v", err)
	}

	if !strings.Contains(err.Error(), "panics: panic: kaboom") {
		t.Fatalf("panic not reported with task name: %v", err)
	}

	if ran != 1 {
		t.Fatalf("remaining task should still run: ran=%d", ran)
	}
}

func TestShutdownIsIdempotentAndClosesQueue(t *testing.T) {
	t.Parallel()

	var (
		q     Queue
		calls int
	)

	q.Add("once", func(context.Context) error {
		calls++

		return nil
	})

	for range 3 {
		err := q.Shutdown(t.Context())
		if err != nil {
			t.Fatalf("Shutdown error: %v", err)
		}
	}

	q.Add("late", func(context.Context) error {
		calls++

		return nil
	})

	if q.Len() != 0 {
		t.Fatalf("late task must be ignored, queued=%d", q.Len())
	}

	if calls != 1 {
		t.Fatalf("calls mismatch: want 1, got %d", calls)
	}
}

func TestShutdownStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	var (
		q   Queue
		ran bool
	)

	q.Add("never", func(context.Context) error {
		ran = true

		return nil
	})

	ctx, cancel := context.WithTimeout(t.Context(), time.Nanosecond)
	defer cancel()

	<-ctx.Done()

	err := q.Shutdown(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	if ran {
		t.Fatal("task ran after context ended")
	}
}
