package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is an anonymous, cookie-bound identity with a sliding expiry.
// All items are scoped to exactly one session.
type Session struct {
	ID        uuid.UUID
	ExpiresAt time.Time
}

// Expired reports whether the session's expiry lies before now. An expired
// session must not authorize item access even if its record still exists;
// physical deletion is the sweeper's job.
func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

// SessionRepository is the persistence contract for session records.
type SessionRepository interface {
	// Put creates or overwrites a session record.
	Put(ctx context.Context, session Session) error

	// Get returns the session record or ErrSessionNotFound.
	Get(ctx context.Context, sessionID uuid.UUID) (*Session, error)

	// Touch extends an existing session's expiry (sliding window).
	// Returns ErrSessionNotFound if the record is gone.
	Touch(ctx context.Context, sessionID uuid.UUID, expiresAt time.Time) error

	Delete(ctx context.Context, sessionID uuid.UUID) error

	// ListAll enumerates every session record, live and expired alike.
	ListAll(ctx context.Context) ([]Session, error)
}
