package server

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/snaplist/internal/domain"
	"github.com/pscheid92/snaplist/internal/logging"
)

// requestIDMiddleware tags every request's context with a short random ID so
// log lines from one request can be stitched together.
func requestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := logging.NewRequestID()
		ctx := logging.WithRequestID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(echo.HeaderXRequestID, id)
		return next(c)
	}
}

// Session cookie keys
const (
	sessionCookieName = "snaplist_session"
	cookieKeySID      = "sid"

	// ctxKeySessionID is where the resolved session ID lands in the Echo context.
	ctxKeySessionID = "sessionID"
)

// resolveSession derives the caller's session for every API request.
//
// A valid, unexpired session token is refreshed (sliding window) and passed
// through. Anything else - no cookie, bad signature, unknown or expired
// record - gets a fresh session bound to the caller via the cookie. Resolution
// never fails the request: if the session store is down, the request proceeds
// with a zero session ID, which makes List return empty and mutations return
// an internal error from the service's nil-session guard.
func (s *Server) resolveSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		// A decode error (tampered or stale cookie) still yields a usable
		// fresh cookie, so the error itself is ignored.
		cookie, _ := s.cookies.Get(c.Request(), sessionCookieName)

		now := s.clock.Now()
		expiresAt := now.Add(s.config.SessionMaxAge)

		if raw, ok := cookie.Values[cookieKeySID].(string); ok {
			if sid, err := uuid.Parse(raw); err == nil {
				record, err := s.sessions.Get(ctx, sid)
				switch {
				case err == nil && !record.Expired(now):
					if err := s.sessions.Touch(ctx, sid, expiresAt); err != nil {
						slog.WarnContext(ctx, "Session resolver: failed to refresh expiry", "session_id", sid.String(), "error", err)
					}
					// Re-save so the browser cookie's Max-Age slides along
					// with the server-side expiry.
					if err := cookie.Save(c.Request(), c.Response()); err != nil {
						slog.WarnContext(ctx, "Session resolver: failed to refresh cookie", "session_id", sid.String(), "error", err)
					}
					c.Set(ctxKeySessionID, sid)
					return next(c)

				case err != nil && !errors.Is(err, domain.ErrSessionNotFound):
					slog.ErrorContext(ctx, "Session resolver: session store unavailable", "error", err)
					c.Set(ctxKeySessionID, uuid.Nil)
					return next(c)
				}
				// Unknown or expired record: fall through and mint a new one.
			}
		}

		sid := uuid.New()
		if err := s.sessions.Put(ctx, domain.Session{ID: sid, ExpiresAt: expiresAt}); err != nil {
			slog.ErrorContext(ctx, "Session resolver: failed to create session", "error", err)
			c.Set(ctxKeySessionID, uuid.Nil)
			return next(c)
		}

		cookie.Values[cookieKeySID] = sid.String()
		if err := cookie.Save(c.Request(), c.Response()); err != nil {
			slog.ErrorContext(ctx, "Session resolver: failed to write cookie", "session_id", sid.String(), "error", err)
		}

		c.Set(ctxKeySessionID, sid)
		return next(c)
	}
}

// sessionID extracts the resolved session ID from the Echo context.
// Returns uuid.Nil if resolution did not run or failed.
func sessionID(c echo.Context) uuid.UUID {
	if sid, ok := c.Get(ctxKeySessionID).(uuid.UUID); ok {
		return sid
	}
	return uuid.Nil
}
