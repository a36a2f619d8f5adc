package store

import (
	"context"
	"sync"
	"time"
)

// memoryDoc is the in-process state for one document: content/version
// plus its append-only operation log, guarded by its own mutex so that
// RunEditTransaction on one document never blocks another (spec §5).
type memoryDoc struct {
	mu  sync.Mutex
	doc Document
	ops []*Operation
}

// MemoryStore is a pure in-memory Store implementation — no third-party
// dependency, no backing database. It is the adapter used by the bulk
// of the pipeline/hub test suite and by `cmd/server` when no DSN is
// configured (mirroring the teacher's "database optional" story).
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]*memoryDoc
	seq  int64 // operation ID counter
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*memoryDoc)}
}

func (s *MemoryStore) getOrNil(id string) *memoryDoc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[id]
}

// CreateDocument creates a new document at version 0 if it doesn't already exist.
func (s *MemoryStore) CreateDocument(_ context.Context, id, title, ownerID string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.docs[id]; ok {
		d := existing.doc
		return &d, nil
	}

	now := time.Now()
	md := &memoryDoc{doc: Document{
		ID: id, Title: title, Content: "", Version: 0, OwnerID: ownerID,
		CreatedAt: now, UpdatedAt: now,
	}}
	s.docs[id] = md
	d := md.doc
	return &d, nil
}

// GetDocument returns a snapshot of the document's current state.
func (s *MemoryStore) GetDocument(_ context.Context, id string) (*Document, error) {
	md := s.getOrNil(id)
	if md == nil {
		return nil, notFoundf("document %q", id)
	}
	md.mu.Lock()
	defer md.mu.Unlock()
	d := md.doc
	return &d, nil
}

// ListOperations returns the full operation log in applied_version ascending order.
func (s *MemoryStore) ListOperations(_ context.Context, id string) ([]*Operation, error) {
	md := s.getOrNil(id)
	if md == nil {
		return nil, notFoundf("document %q", id)
	}
	md.mu.Lock()
	defer md.mu.Unlock()

	out := make([]*Operation, len(md.ops))
	copy(out, md.ops)
	return out, nil
}

// RunEditTransaction holds the document's mutex for the duration of fn,
// which stands in for the row-level exclusive lock a real database would
// take (spec §4.2, §5): two calls against the same document cannot
// interleave because they serialize on this same mutex.
func (s *MemoryStore) RunEditTransaction(_ context.Context, documentID string, baseVersion int64, fn TxFunc) (*Operation, int64, error) {
	md := s.getOrNil(documentID)
	if md == nil {
		return nil, 0, notFoundf("document %q", documentID)
	}

	md.mu.Lock()
	defer md.mu.Unlock()

	var missed []*Operation
	for _, op := range md.ops {
		if op.AppliedVersion > baseVersion {
			missed = append(missed, op)
		}
	}

	newContent, newVersion, op, err := fn(md.doc.Content, md.doc.Version, missed)
	if err != nil {
		return nil, md.doc.Version, err
	}

	s.mu.Lock()
	op.ID = s.seq + 1
	s.seq++
	s.mu.Unlock()
	op.DocumentID = documentID
	op.AppliedVersion = newVersion
	op.CreatedAt = time.Now()

	md.doc.Content = newContent
	md.doc.Version = newVersion
	md.doc.UpdatedAt = op.CreatedAt
	md.ops = append(md.ops, op)

	committed := *op
	return &committed, newVersion, nil
}

// Close is a no-op for the in-memory adapter.
func (s *MemoryStore) Close() error { return nil }
