package domain

import "errors"

var (
	ErrItemNotFound    = errors.New("item not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrNoSession       = errors.New("no resolved session")
	ErrEmptyText       = errors.New("text must be a non-empty string")
	ErrEmptyPatch      = errors.New("patch must set text and/or completed")
)
