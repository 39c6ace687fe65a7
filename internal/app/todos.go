package app

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pscheid92/snaplist/internal/domain"
	"github.com/pscheid92/snaplist/internal/metrics"
)

// TodoService implements domain.TodoService. It owns input validation and
// delegates persistence to the item repository; ownership checks happen
// inside the repository's double-match queries.
type TodoService struct {
	items domain.ItemRepository
}

func NewTodoService(items domain.ItemRepository) *TodoService {
	return &TodoService{items: items}
}

// List returns all items owned by the session. A zero session ID short-circuits
// to an empty slice: a caller without a resolved session must never see data,
// and an unfiltered query would be the worst possible failure mode here.
func (s *TodoService) List(ctx context.Context, sessionID uuid.UUID) ([]domain.Item, error) {
	if sessionID == uuid.Nil {
		return []domain.Item{}, nil
	}
	return s.items.ListBySession(ctx, sessionID)
}

// Create inserts a new item owned by the session. Unlike List, a zero session
// ID is an error here: an insert under the zero ID would produce an item no
// session owns and the sweeper can never reach.
func (s *TodoService) Create(ctx context.Context, sessionID uuid.UUID, text string, completed bool) (*domain.Item, error) {
	if sessionID == uuid.Nil {
		return nil, domain.ErrNoSession
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyText
	}

	item, err := s.items.Insert(ctx, sessionID, text, completed)
	if err != nil {
		return nil, err
	}

	metrics.ItemsCreatedTotal.Inc()
	return item, nil
}

func (s *TodoService) Update(ctx context.Context, sessionID, itemID uuid.UUID, patch domain.ItemPatch) (*domain.Item, error) {
	if sessionID == uuid.Nil {
		return nil, domain.ErrNoSession
	}
	if patch.IsEmpty() {
		return nil, domain.ErrEmptyPatch
	}
	if patch.Text != nil && strings.TrimSpace(*patch.Text) == "" {
		return nil, domain.ErrEmptyText
	}

	return s.items.UpdateOwned(ctx, sessionID, itemID, patch)
}

func (s *TodoService) Delete(ctx context.Context, sessionID, itemID uuid.UUID) error {
	if sessionID == uuid.Nil {
		return domain.ErrNoSession
	}
	if err := s.items.DeleteOwned(ctx, sessionID, itemID); err != nil {
		return err
	}

	metrics.ItemsDeletedTotal.WithLabelValues("api").Inc()
	return nil
}
