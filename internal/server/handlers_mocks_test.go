package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/snaplist/internal/config"
	"github.com/pscheid92/snaplist/internal/domain"
	apperrors "github.com/pscheid92/snaplist/internal/errors"
)

// --- Mock todo service ---

type mockTodoService struct {
	listFn   func(ctx context.Context, sessionID uuid.UUID) ([]domain.Item, error)
	createFn func(ctx context.Context, sessionID uuid.UUID, text string, completed bool) (*domain.Item, error)
	updateFn func(ctx context.Context, sessionID, itemID uuid.UUID, patch domain.ItemPatch) (*domain.Item, error)
	deleteFn func(ctx context.Context, sessionID, itemID uuid.UUID) error
}

func (m *mockTodoService) List(ctx context.Context, sessionID uuid.UUID) ([]domain.Item, error) {
	if m.listFn != nil {
		return m.listFn(ctx, sessionID)
	}
	return []domain.Item{}, nil
}

func (m *mockTodoService) Create(ctx context.Context, sessionID uuid.UUID, text string, completed bool) (*domain.Item, error) {
	if m.createFn != nil {
		return m.createFn(ctx, sessionID, text, completed)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTodoService) Update(ctx context.Context, sessionID, itemID uuid.UUID, patch domain.ItemPatch) (*domain.Item, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, sessionID, itemID, patch)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTodoService) Delete(ctx context.Context, sessionID, itemID uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, sessionID, itemID)
	}
	return errors.New("not implemented")
}

// --- In-memory session repository ---

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]domain.Session
	getErr   error
	putErr   error
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[uuid.UUID]domain.Session)}
}

func (m *memSessionRepo) Put(_ context.Context, session domain.Session) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return nil
}

func (m *memSessionRepo) Get(_ context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

func (m *memSessionRepo) Touch(_ context.Context, sessionID uuid.UUID, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.ExpiresAt = expiresAt
	m.sessions[sessionID] = session
	return nil
}

func (m *memSessionRepo) Delete(_ context.Context, sessionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *memSessionRepo) ListAll(_ context.Context) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessions := make([]domain.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (m *memSessionRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *memSessionRepo) setExpiry(sessionID uuid.UUID, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session := m.sessions[sessionID]
	session.ExpiresAt = expiresAt
	m.sessions[sessionID] = session
}

// --- In-memory item repository (double-match semantics) ---

type memItemRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]domain.Item // keyed by item ID
}

func newMemItemRepo() *memItemRepo {
	return &memItemRepo{items: make(map[uuid.UUID]domain.Item)}
}

func (m *memItemRepo) ListBySession(_ context.Context, sessionID uuid.UUID) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []domain.Item{}
	for _, item := range m.items {
		if item.SessionID == sessionID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *memItemRepo) Insert(_ context.Context, sessionID uuid.UUID, text string, completed bool) (*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item := domain.Item{ID: uuid.New(), SessionID: sessionID, Text: text, Completed: completed}
	m.items[item.ID] = item
	return &item, nil
}

func (m *memItemRepo) UpdateOwned(_ context.Context, sessionID, itemID uuid.UUID, patch domain.ItemPatch) (*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok || item.SessionID != sessionID {
		return nil, domain.ErrItemNotFound
	}
	if patch.Text != nil {
		item.Text = *patch.Text
	}
	if patch.Completed != nil {
		item.Completed = *patch.Completed
	}
	m.items[itemID] = item
	return &item, nil
}

func (m *memItemRepo) DeleteOwned(_ context.Context, sessionID, itemID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok || item.SessionID != sessionID {
		return domain.ErrItemNotFound
	}
	delete(m.items, itemID)
	return nil
}

func (m *memItemRepo) DeleteBySession(_ context.Context, sessionID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, item := range m.items {
		if item.SessionID == sessionID {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

// --- Test server construction ---

type serverOption func(*Server)

func withRedisHealthCheck(checker redisHealthChecker) serverOption {
	return func(s *Server) { s.redisHealthCheck = checker }
}

func withPostgresHealthCheck(checker postgresHealthChecker) serverOption {
	return func(s *Server) { s.postgresHealthCheck = checker }
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:        "test",
		Port:          "8080",
		SessionSecret: "test-session-secret",
		SessionMaxAge: 720 * time.Hour,
		SweepInterval: time.Hour,
	}
}

func newTestServer(t *testing.T, todos domain.TodoService, sessions domain.SessionRepository, opts ...serverOption) *Server {
	t.Helper()

	if sessions == nil {
		sessions = newMemSessionRepo()
	}

	srv := NewServer(testConfig(), todos, sessions, nil, nil, clockwork.NewFakeClock())
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// callHandler invokes a handler through the error middleware so structured
// errors turn into HTTP responses, the way they do in production.
func callHandler(h echo.HandlerFunc, c echo.Context) error {
	return apperrors.Middleware()(h)(c)
}
