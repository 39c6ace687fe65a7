package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/snaplist/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	scanCount        = 100

	// Keys carry a Redis TTL of twice the remaining lifetime as a backstop.
	// The sweeper is the authoritative cleanup path (it also cascades to
	// items); the TTL only bounds growth if the sweeper is down for long.
	ttlBackstopFactor = 2
)

// SessionRepo implements domain.SessionRepository on Redis. Each session is a
// plain key holding the expiry as unix milliseconds, which keeps enumeration
// a single SCAN plus GETs.
type SessionRepo struct {
	rdb   *goredis.Client
	clock clockwork.Clock
}

func NewSessionRepo(rdb *goredis.Client, clock clockwork.Clock) *SessionRepo {
	return &SessionRepo{rdb: rdb, clock: clock}
}

func (s *SessionRepo) Put(ctx context.Context, session domain.Session) error {
	sk := sessionKey(session.ID)
	value := strconv.FormatInt(session.ExpiresAt.UnixMilli(), 10)
	return s.rdb.Set(ctx, sk, value, s.backstopTTL(session.ExpiresAt)).Err()
}

func (s *SessionRepo) Get(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	sk := sessionKey(sessionID)

	value, err := s.rdb.Get(ctx, sk).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	expiresAt, err := parseExpiry(value)
	if err != nil {
		return nil, fmt.Errorf("corrupt session record %s: %w", sk, err)
	}

	return &domain.Session{ID: sessionID, ExpiresAt: expiresAt}, nil
}

func (s *SessionRepo) Touch(ctx context.Context, sessionID uuid.UUID, expiresAt time.Time) error {
	sk := sessionKey(sessionID)
	value := strconv.FormatInt(expiresAt.UnixMilli(), 10)

	// XX: only refresh records that still exist, never resurrect a swept one.
	set, err := s.rdb.SetXX(ctx, sk, value, s.backstopTTL(expiresAt)).Result()
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if !set {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *SessionRepo) Delete(ctx context.Context, sessionID uuid.UUID) error {
	return s.rdb.Del(ctx, sessionKey(sessionID)).Err()
}

func (s *SessionRepo) ListAll(ctx context.Context) ([]domain.Session, error) {
	var sessions []domain.Session
	var cursor uint64

	for {
		// Check context cancellation/timeout before each scan iteration
		select {
		case <-ctx.Done():
			return sessions, fmt.Errorf("scan cancelled after %d sessions: %w", len(sessions), ctx.Err())
		default:
		}

		keys, nextCursor, err := s.rdb.Scan(ctx, cursor, sessionKeyPrefix+"*", scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}

		for _, key := range keys {
			if session, ok := s.readSession(ctx, key); ok {
				sessions = append(sessions, session)
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return sessions, nil
}

func (s *SessionRepo) readSession(ctx context.Context, key string) (domain.Session, bool) {
	value, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		// goredis.Nil means the key vanished between SCAN and GET
		if !errors.Is(err, goredis.Nil) {
			slog.Error("ListAll: failed to read key", "key", key, "error", err)
		}
		return domain.Session{}, false
	}

	id, err := uuid.Parse(strings.TrimPrefix(key, sessionKeyPrefix))
	if err != nil {
		slog.Warn("ListAll: invalid UUID key", "key", key, "error", err)
		return domain.Session{}, false
	}

	expiresAt, err := parseExpiry(value)
	if err != nil {
		slog.Warn("ListAll: corrupt session record", "key", key, "error", err)
		return domain.Session{}, false
	}

	return domain.Session{ID: id, ExpiresAt: expiresAt}, true
}

func (s *SessionRepo) backstopTTL(expiresAt time.Time) time.Duration {
	ttl := expiresAt.Sub(s.clock.Now()) * ttlBackstopFactor
	if ttl <= 0 {
		ttl = time.Minute
	}
	return ttl
}

func parseExpiry(value string) (time.Time, error) {
	millis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(millis), nil
}

func sessionKey(sessionID uuid.UUID) string {
	return sessionKeyPrefix + sessionID.String()
}
