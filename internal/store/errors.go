package store

import "errors"

var (
	// ErrNotFound means the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict means an optimistic update lost the race: the row's
	// version no longer matches the caller's copy. Callers should re-read and
	// retry rather than abort.
	ErrVersionConflict = errors.New("version conflict")

	// ErrDuplicateEdge means an active relationship of the same type already
	// exists between the ordered (source, target, agent) triple.
	ErrDuplicateEdge = errors.New("duplicate active relationship")
)
