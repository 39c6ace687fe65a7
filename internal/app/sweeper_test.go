package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/snaplist/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- In-memory fakes ---

type fakeSessionStore struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]domain.Session
	deleteErr map[uuid.UUID]error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions:  make(map[uuid.UUID]domain.Session),
		deleteErr: make(map[uuid.UUID]error),
	}
}

func (f *fakeSessionStore) Put(_ context.Context, session domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeSessionStore) Get(_ context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

func (f *fakeSessionStore) Touch(_ context.Context, sessionID uuid.UUID, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.ExpiresAt = expiresAt
	f.sessions[sessionID] = session
	return nil
}

func (f *fakeSessionStore) Delete(_ context.Context, sessionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[sessionID]; err != nil {
		return err
	}
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeSessionStore) ListAll(_ context.Context) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sessions := make([]domain.Session, 0, len(f.sessions))
	for _, session := range f.sessions {
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (f *fakeSessionStore) has(sessionID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sessions[sessionID]
	return ok
}

type fakeItemStore struct {
	mu        sync.Mutex
	items     map[uuid.UUID][]domain.Item // keyed by session ID
	deleteErr map[uuid.UUID]error
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{
		items:     make(map[uuid.UUID][]domain.Item),
		deleteErr: make(map[uuid.UUID]error),
	}
}

func (f *fakeItemStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Item(nil), f.items[sessionID]...), nil
}

func (f *fakeItemStore) Insert(_ context.Context, sessionID uuid.UUID, text string, completed bool) (*domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := domain.Item{ID: uuid.New(), SessionID: sessionID, Text: text, Completed: completed}
	f.items[sessionID] = append(f.items[sessionID], item)
	return &item, nil
}

func (f *fakeItemStore) UpdateOwned(_ context.Context, _, _ uuid.UUID, _ domain.ItemPatch) (*domain.Item, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeItemStore) DeleteOwned(_ context.Context, _, _ uuid.UUID) error {
	return errors.New("not implemented")
}

func (f *fakeItemStore) DeleteBySession(_ context.Context, sessionID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[sessionID]; err != nil {
		return 0, err
	}
	n := int64(len(f.items[sessionID]))
	delete(f.items, sessionID)
	return n, nil
}

func (f *fakeItemStore) count(sessionID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items[sessionID])
}

// --- Helpers ---

func seedSession(t *testing.T, sessions *fakeSessionStore, items *fakeItemStore, expiresAt time.Time, itemCount int) uuid.UUID {
	t.Helper()
	sid := uuid.New()
	require.NoError(t, sessions.Put(context.Background(), domain.Session{ID: sid, ExpiresAt: expiresAt}))
	for i := 0; i < itemCount; i++ {
		_, err := items.Insert(context.Background(), sid, "task", false)
		require.NoError(t, err)
	}
	return sid
}

// --- Tests ---

func TestSweeper_Sweep_RemovesExpiredSessionAndItems(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sessions := newFakeSessionStore()
	items := newFakeItemStore()

	expired := seedSession(t, sessions, items, clock.Now().Add(-time.Hour), 3)
	live := seedSession(t, sessions, items, clock.Now().Add(time.Hour), 2)

	sweeper := NewSweeper(sessions, items, clock, time.Hour)
	sweeper.Sweep(context.Background())

	assert.False(t, sessions.has(expired), "expired session should be purged")
	assert.Zero(t, items.count(expired), "expired session's items should be purged")

	assert.True(t, sessions.has(live), "live session must be untouched")
	assert.Equal(t, 2, items.count(live), "live session's items must be untouched")
}

func TestSweeper_Sweep_NothingExpired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sessions := newFakeSessionStore()
	items := newFakeItemStore()

	live := seedSession(t, sessions, items, clock.Now().Add(time.Minute), 1)

	sweeper := NewSweeper(sessions, items, clock, time.Hour)
	sweeper.Sweep(context.Background())

	assert.True(t, sessions.has(live))
	assert.Equal(t, 1, items.count(live))
}

func TestSweeper_Sweep_FailureDoesNotBlockOtherSessions(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sessions := newFakeSessionStore()
	items := newFakeItemStore()

	failing := seedSession(t, sessions, items, clock.Now().Add(-time.Hour), 2)
	healthy := seedSession(t, sessions, items, clock.Now().Add(-time.Hour), 2)
	items.deleteErr[failing] = errors.New("store unavailable")

	sweeper := NewSweeper(sessions, items, clock, time.Hour)
	sweeper.Sweep(context.Background())

	// The healthy session's cleanup proceeds despite the failure next door.
	assert.False(t, sessions.has(healthy))
	assert.Zero(t, items.count(healthy))

	// The failing session keeps its record so the next tick retries the
	// whole unit: items first, then the record.
	assert.True(t, sessions.has(failing))
	assert.Equal(t, 2, items.count(failing))

	// Next tick with the store recovered finishes the job.
	delete(items.deleteErr, failing)
	sweeper.Sweep(context.Background())
	assert.False(t, sessions.has(failing))
	assert.Zero(t, items.count(failing))
}

func TestSweeper_Sweep_SessionDeleteFailureIsIsolated(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sessions := newFakeSessionStore()
	items := newFakeItemStore()

	stuck := seedSession(t, sessions, items, clock.Now().Add(-time.Hour), 1)
	sessions.deleteErr[stuck] = errors.New("store unavailable")

	sweeper := NewSweeper(sessions, items, clock, time.Hour)
	sweeper.Sweep(context.Background())

	// Items went first and are gone; the record survives for the next tick.
	assert.Zero(t, items.count(stuck))
	assert.True(t, sessions.has(stuck))

	delete(sessions.deleteErr, stuck)
	sweeper.Sweep(context.Background())
	assert.False(t, sessions.has(stuck))
}

func TestSweeper_StartStop_SweepsOnTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sessions := newFakeSessionStore()
	items := newFakeItemStore()

	expired := seedSession(t, sessions, items, clock.Now().Add(-time.Minute), 1)

	sweeper := NewSweeper(sessions, items, clock, time.Hour)
	sweeper.Start()
	defer sweeper.Stop()

	clock.Advance(time.Hour)

	assert.Eventually(t, func() bool {
		return !sessions.has(expired) && items.count(expired) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSweeper_Sweep_NonLeaderSkips(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sessions := newFakeSessionStore()
	items := newFakeItemStore()
	rdb := setupTestRedis(t)

	expired := seedSession(t, sessions, items, clock.Now().Add(-time.Hour), 1)

	// Another instance already holds the lock.
	other := NewSweepElector(rdb, "other-instance")
	acquired, err := other.TryAcquire(context.Background())
	require.NoError(t, err)
	require.True(t, acquired)

	elector := NewSweepElector(rdb, "this-instance")
	sweeper := NewSweeper(sessions, items, clock, time.Hour).WithElector(elector)
	sweeper.Sweep(context.Background())

	assert.True(t, sessions.has(expired), "non-leader must not sweep")
	assert.Equal(t, 1, items.count(expired))

	// Once the lock is free, the next pass proceeds and releases after itself.
	require.NoError(t, other.Release(context.Background()))
	sweeper.Sweep(context.Background())
	assert.False(t, sessions.has(expired))

	acquired, err = other.TryAcquire(context.Background())
	require.NoError(t, err)
	assert.True(t, acquired, "lock should be released after the pass")
}

func TestSweeper_Stop_Idempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sweeper := NewSweeper(newFakeSessionStore(), newFakeItemStore(), clock, time.Hour)

	sweeper.Start()
	sweeper.Stop()
	sweeper.Stop()
}
