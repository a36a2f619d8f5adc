// Package pipeline turns a validated inbound edit into a committed
// operation and a broadcast-ready payload, per spec §4.3: preflight
// version check, transactional commit (OT transform, apply, persist),
// then ack/broadcast dispatch. Grounded end to end on
// original_source/app/api/v1/routes/websocket.py's websocket_endpoint
// function and on the teacher's Kolabpad.ApplyEdit for the
// per-document-serialized-critical-section shape.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/collabtext/core/internal/protocol"
	"github.com/collabtext/core/pkg/hub"
	"github.com/collabtext/core/pkg/logger"
	"github.com/collabtext/core/pkg/metrics"
	"github.com/collabtext/core/pkg/ot"
	"github.com/collabtext/core/pkg/store"
)

// Inbound is a validated client edit awaiting commit.
type Inbound struct {
	DocumentID string
	UserID     string
	// SessionID identifies the originating Hub subscriber so the
	// post-commit broadcast excludes it (spec §4.3: "ack" to sender,
	// "op" to everyone else). Zero means "no session to exclude" — fine
	// for callers (such as tests) that never registered a session with
	// the Hub.
	SessionID uint64
	Edit      ot.Edit
}

// Result is what the pipeline hands back to the caller for delivery:
// Ack goes to the sender, Broadcast (when non-nil) goes to everyone
// else subscribed to the document.
type Result struct {
	Ack       *protocol.ServerFrame
	Broadcast *protocol.ServerFrame
}

// Pipeline wires the Document Store, the per-document worker queue, and
// the Session Hub together.
type Pipeline struct {
	store store.Store
	hub   *hub.Hub
	queue *docQueue
}

// New builds a Pipeline. hub may be nil for callers that only need
// commit semantics, not fan-out.
func New(s store.Store, h *hub.Hub) *Pipeline {
	return &Pipeline{store: s, hub: h, queue: newDocQueue()}
}

// Submit runs in.Edit through the full commit path and returns the
// frames to deliver. It never returns both a commit error and a
// sync-needed Result — preflight staleness short-circuits before the
// transaction, and transactional failures (StorageFailure included) are
// reported as an error frame, not an error return. The exceptions are
// NotFound from the transaction and any error from the preflight
// document read: those are returned, and the caller (the session
// handler) turns them into a connection close.
func (p *Pipeline) Submit(ctx context.Context, in Inbound) (*Result, error) {
	// Preflight version check (spec §4.3): advisory, cheap, skips the
	// transaction entirely for trivially stale edits.
	doc, err := p.store.GetDocument(ctx, in.DocumentID)
	if err != nil {
		return nil, err
	}
	if in.Edit.BaseVersion != doc.Version {
		metrics.EditConflicts.WithLabelValues(in.DocumentID).Inc()
		frame := protocol.NewSyncNeededFrame(doc.Content, doc.Version)
		return &Result{Ack: frame}, nil
	}

	return p.queue.run(in.DocumentID, func() (*Result, error) {
		return p.commit(ctx, in)
	})
}

func (p *Pipeline) commit(ctx context.Context, in Inbound) (*Result, error) {
	op, newVersion, err := p.store.RunEditTransaction(ctx, in.DocumentID, in.Edit.BaseVersion,
		func(currentContent string, currentVersion int64, missed []*store.Operation) (string, int64, *store.Operation, error) {
			applied := make([]ot.AppliedOp, len(missed))
			for i, m := range missed {
				applied[i] = ot.AppliedOp{
					Position:   m.Position,
					InsertText: m.InsertText,
					DeleteLen:  m.DeleteLen,
					UserID:     m.UserID,
				}
			}
			metrics.TransformFanIn.Observe(float64(len(applied)))

			transformed := ot.Transform(in.Edit, in.UserID, applied)
			newContent := ot.ApplyOperation(currentContent, transformed.Position, transformed.DeleteLen, transformed.InsertText)
			newVersion := currentVersion + 1

			op := &store.Operation{
				UserID:      in.UserID,
				BaseVersion: in.Edit.BaseVersion,
				Position:    transformed.Position,
				InsertText:  transformed.InsertText,
				DeleteLen:   transformed.DeleteLen,
			}
			return newContent, newVersion, op, nil
		})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		logger.Error("pipeline: commit failed for document %s: %v", in.DocumentID, err)
		message := "internal error committing edit"
		return &Result{Ack: protocol.NewErrorFrame(message)}, nil
	}

	metrics.EditsCommitted.WithLabelValues(in.DocumentID).Inc()

	view := toOperationView(op)
	ack := protocol.NewAckFrame(view, newVersion)
	broadcast := protocol.NewOpFrame(view, newVersion)

	if p.hub != nil {
		// Broadcast happens synchronously with the commit so that any
		// two commits on this document are delivered to subscribers in
		// the same order they were applied (spec §5 ordering guarantee);
		// the worker queue already guarantees that order for commits
		// themselves.
		p.hub.Broadcast(in.DocumentID, in.SessionID, broadcast)
	}

	return &Result{Ack: ack, Broadcast: broadcast}, nil
}

func toOperationView(op *store.Operation) *protocol.OperationView {
	return &protocol.OperationView{
		ID:          op.ID,
		DocID:       op.DocumentID,
		UserID:      op.UserID,
		BaseVersion: op.BaseVersion,
		Position:    op.Position,
		InsertText:  op.InsertText,
		DeleteLen:   op.DeleteLen,
		CreatedAt:   formatTimestamp(op.CreatedAt),
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Close releases the per-document worker goroutines. Safe to call once
// during shutdown.
func (p *Pipeline) Close() {
	p.queue.closeAll()
}
