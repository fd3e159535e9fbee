// Package notify delivers fully formed messages to people. Callers treat
// delivery as best-effort.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrNoRecipient = errors.New("message has no recipient")

type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
}

type Notifier interface {
	Notify(ctx context.Context, m Message) error
}

// LogNotifier only logs; it is used when no mail provider is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, m Message) error {
	if m.ToEmail == "" {
		return ErrNoRecipient
	}

	slog.InfoContext(ctx, "notification", "to", m.ToEmail, "subject", m.Subject)

	return nil
}

// Recorder keeps messages in memory.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
	// Err, when set, is returned from every Notify call after recording.
	Err error
}

func (r *Recorder) Notify(_ context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.msgs = append(r.msgs, m)

	return r.Err
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Message(nil), r.msgs...)
}
