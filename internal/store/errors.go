package store

import "errors"

var (
	ErrNotFound          = errors.New("entity not found")
	ErrUnknownEntityType = errors.New("unknown entity type")
	ErrMissingServerID   = errors.New("missing server id")
)
