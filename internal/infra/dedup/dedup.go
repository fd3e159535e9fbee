// Package dedup drops provider redeliveries before they reach the database.
// It is an optimisation only: correctness comes from the database guards.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "dues:webhook:"

	valueProcessing = "processing"
	valueDone       = "done"
)

// State is what a Claim found for a delivery id.
type State int

const (
	// Claimed means the caller owns the delivery and must Complete or Release it.
	Claimed State = iota
	// Processing means another delivery of the same id is still running.
	Processing
	// Done means the id was already processed successfully.
	Done
)

type Claimer interface {
	Claim(ctx context.Context, id string) (State, error)
	// Complete marks id processed so later redeliveries are dropped.
	Complete(ctx context.Context, id string) error
	// Release forgets id so a redelivery is processed again.
	Release(ctx context.Context, id string) error
}

// Redis keeps a short-lived "processing" marker while a delivery runs and a
// long-lived "done" marker once it succeeded. A crashed worker's marker
// expires after processingTTL.
type Redis struct {
	rdb           *redis.Client
	processingTTL time.Duration
	doneTTL       time.Duration
}

func NewRedis(rdb *redis.Client, processingTTL, doneTTL time.Duration) *Redis {
	return &Redis{rdb: rdb, processingTTL: processingTTL, doneTTL: doneTTL}
}

func (r *Redis) Claim(ctx context.Context, id string) (State, error) {
	key := keyPrefix + id

	ok, err := r.rdb.SetNX(ctx, key, valueProcessing, r.processingTTL).Result()
	if err != nil {
		return Processing, fmt.Errorf("claim %s: %w", id, err)
	}

	if ok {
		return Claimed, nil
	}

	v, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Released or expired between the two calls; let the provider retry.
		return Processing, nil
	}

	if err != nil {
		return Processing, fmt.Errorf("read claim %s: %w", id, err)
	}

	if v == valueDone {
		return Done, nil
	}

	return Processing, nil
}

func (r *Redis) Complete(ctx context.Context, id string) error {
	err := r.rdb.Set(ctx, keyPrefix+id, valueDone, r.doneTTL).Err()
	if err != nil {
		return fmt.Errorf("complete %s: %w", id, err)
	}

	return nil
}

func (r *Redis) Release(ctx context.Context, id string) error {
	err := r.rdb.Del(ctx, keyPrefix+id).Err()
	if err != nil {
		return fmt.Errorf("release %s: %w", id, err)
	}

	return nil
}

// Noop claims everything.
type Noop struct{}

func (Noop) Claim(context.Context, string) (State, error) {
	return Claimed, nil
}

func (Noop) Complete(context.Context, string) error {
	return nil
}

func (Noop) Release(context.Context, string) error {
	return nil
}
