package greenhouse

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownKind   = errors.New("unknown kind")
	ErrInvalidTarget = errors.New("invalid target")
	ErrDuplicateID   = errors.New("duplicate greenhouse id")
)
