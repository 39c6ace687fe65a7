package domain

import (
	"context"

	"github.com/google/uuid"
)

// TodoService is the application-layer contract consumed by the HTTP transport.
//
// Every operation is scoped to the caller's session ID. A zero (uuid.Nil)
// session ID makes List return an empty slice rather than an error, so a
// failed session resolution can never leak another session's items.
type TodoService interface {
	List(ctx context.Context, sessionID uuid.UUID) ([]Item, error)
	Create(ctx context.Context, sessionID uuid.UUID, text string, completed bool) (*Item, error)
	Update(ctx context.Context, sessionID, itemID uuid.UUID, patch ItemPatch) (*Item, error)
	Delete(ctx context.Context, sessionID, itemID uuid.UUID) error
}
