package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/snaplist/internal/domain"
	apperrors "github.com/pscheid92/snaplist/internal/errors"
)

// itemView is the client-facing item shape. The owning session ID stays
// server-side.
type itemView struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

func toItemView(item *domain.Item) itemView {
	return itemView{
		ID:        item.ID.String(),
		Text:      item.Text,
		Completed: item.Completed,
	}
}

func okResult(c echo.Context, result any) error {
	if err := c.JSON(http.StatusOK, map[string]any{"ok": true, "result": result}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type createTodoRequest struct {
	Text      *string `json:"text"`
	Completed *bool   `json:"completed"`
}

type patchTodoRequest struct {
	Text      *string `json:"text"`
	Completed *bool   `json:"completed"`
}

func (s *Server) handleListTodos(c echo.Context) error {
	items, err := s.todos.List(c.Request().Context(), sessionID(c))
	if err != nil {
		return apperrors.InternalError("failed to list items", err)
	}

	views := make([]itemView, 0, len(items))
	for i := range items {
		views = append(views, toItemView(&items[i]))
	}
	return okResult(c, views)
}

func (s *Server) handleCreateTodo(c echo.Context) error {
	var req createTodoRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	if req.Text == nil {
		return apperrors.ValidationError("text must be a non-empty string").WithField("field", "text")
	}

	completed := false
	if req.Completed != nil {
		completed = *req.Completed
	}

	item, err := s.todos.Create(c.Request().Context(), sessionID(c), *req.Text, completed)
	if err != nil {
		return translateTodoError(err, "failed to create item")
	}
	return okResult(c, toItemView(item))
}

func (s *Server) handleUpdateTodo(c echo.Context) error {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.ValidationError("invalid item id").WithField("id", c.Param("id"))
	}

	var req patchTodoRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	patch := domain.ItemPatch{Text: req.Text, Completed: req.Completed}
	item, err := s.todos.Update(c.Request().Context(), sessionID(c), itemID, patch)
	if err != nil {
		return translateTodoError(err, "failed to update item")
	}
	return okResult(c, toItemView(item))
}

func (s *Server) handleDeleteTodo(c echo.Context) error {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.ValidationError("invalid item id").WithField("id", c.Param("id"))
	}

	if err := s.todos.Delete(c.Request().Context(), sessionID(c), itemID); err != nil {
		return translateTodoError(err, "failed to delete item")
	}
	return okResult(c, nil)
}

// translateTodoError maps service errors onto the HTTP error taxonomy. The
// not-found message is the opaque reason code "not_found": whether the item
// exists under another session is deliberately indistinguishable.
func translateTodoError(err error, internalMsg string) error {
	switch {
	case errors.Is(err, domain.ErrEmptyText):
		return apperrors.ValidationError("text must be a non-empty string").WithField("field", "text")
	case errors.Is(err, domain.ErrEmptyPatch):
		return apperrors.ValidationError("patch must set text and/or completed")
	case errors.Is(err, domain.ErrItemNotFound):
		return apperrors.NotFoundError("not_found")
	default:
		return apperrors.InternalError(internalMsg, err)
	}
}
