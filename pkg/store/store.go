// Package store implements the Document Store (spec §4.2): transactional
// persistence of a document's (content, version) pair plus an
// append-only operation log, keyed by (document_id, applied_version).
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Document is spec §3's Document entity.
type Document struct {
	ID        string
	Title     string
	Content   string
	Version   int64
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Operation is spec §3's Operation entity — immutable once committed.
type Operation struct {
	ID             int64
	DocumentID     string
	UserID         string
	BaseVersion    int64
	Position       int
	InsertText     string
	DeleteLen      int
	AppliedVersion int64
	CreatedAt      time.Time
}

// Error kinds from spec §7/§4.2. Kind is checked with errors.Is against
// these sentinels; adapters wrap them with context via fmt.Errorf("%w").
var (
	ErrNotFound        = errors.New("document not found")
	ErrConflict        = errors.New("conflicting commit")
	ErrStorageFailure  = errors.New("storage failure")
)

// TxFunc is invoked by RunEditTransaction with the current document state
// and the operations missed since the caller's base_version, in
// applied_version ascending order. It must return the new content,
// new version, and the Operation record to append — or an error, in
// which case the whole transaction rolls back.
type TxFunc func(currentContent string, currentVersion int64, missed []*Operation) (newContent string, newVersion int64, op *Operation, err error)

// Store is the transactional critical section spec §4.2 describes.
// Implementations must acquire an exclusive hold on the document row
// for the duration of RunEditTransaction so that two transactions
// against the same document cannot interleave (spec §5).
type Store interface {
	// RunEditTransaction acquires the document row lock, reads current
	// content/version and missed operations, invokes fn, and commits the
	// result atomically. Returns the committed operation and new version,
	// or an error wrapping ErrNotFound, ErrConflict, or ErrStorageFailure.
	RunEditTransaction(ctx context.Context, documentID string, baseVersion int64, fn TxFunc) (*Operation, int64, error)

	// GetDocument reads a document's current (content, version) without
	// taking the write lock — used for the pipeline's cheap preflight
	// check and for a session's initial snapshot.
	GetDocument(ctx context.Context, documentID string) (*Document, error)

	// CreateDocument is the external-collaborator surface spec §1 calls
	// out of scope for the core proper, but it's the one write the
	// supplemented REST layer (SPEC_FULL §12) needs against the same
	// store the core uses.
	CreateDocument(ctx context.Context, id, title, ownerID string) (*Document, error)

	// ListOperations returns the full operation log for a document in
	// applied_version ascending order.
	ListOperations(ctx context.Context, documentID string) ([]*Operation, error)

	Close() error
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

func storageFailuref(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrStorageFailure}, args...)...)
}
