package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SweepElector implements Redis-based leader election using SETNX with TTL.
// When several instances run the same sweep schedule, only the one holding
// the lock performs the pass; the rest skip their tick.
type SweepElector struct {
	rdb        *redis.Client
	instanceID string
	lockKey    string
	lockTTL    time.Duration
}

// NewSweepElector creates a leader election coordinator for the sweeper.
// instanceID should be unique per instance (e.g., hostname-PID).
func NewSweepElector(rdb *redis.Client, instanceID string) *SweepElector {
	return &SweepElector{
		rdb:        rdb,
		instanceID: instanceID,
		lockKey:    "sweep:leader",
		lockTTL:    5 * time.Minute,
	}
}

// TryAcquire attempts to take the sweep lock.
// Returns true if this instance now holds it, false if another instance does.
func (e *SweepElector) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := e.rdb.SetNX(ctx, e.lockKey, e.instanceID, e.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire sweep lock: %w", err)
	}
	return ok, nil
}

// Release gives the lock back after a completed pass so a different instance
// can take the next tick. The TTL covers the crash case.
func (e *SweepElector) Release(ctx context.Context) error {
	// Delete only if we still hold the lock (avoid deleting another instance's)
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`

	_, err := e.rdb.Eval(ctx, script, []string{e.lockKey}, e.instanceID).Result()
	return err
}
