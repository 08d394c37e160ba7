package gitstore

import "errors"

// Sentinel errors surfaced by the store. Anything else coming out of this
// package is a wrapped filesystem or repository failure and is fatal to the
// operation that produced it.
var (
	// ErrNotFound means the entity's file does not exist. Callers treat it
	// as "does not exist yet", never as a storage failure.
	ErrNotFound = errors.New("document not found")

	// ErrMalformedDocument means a file exists but does not parse.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrDuplicateSnapshot means a snapshot name collides with an existing
	// tag. Snapshot names are permanent, so the caller must pick another.
	ErrDuplicateSnapshot = errors.New("duplicate snapshot name")

	// ErrRevisionNotFound means the requested revision id is not in the
	// project's history.
	ErrRevisionNotFound = errors.New("revision not found")
)
