package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/collabtext/core/pkg/hub"
	"github.com/collabtext/core/pkg/ot"
	"github.com/collabtext/core/pkg/store"
)

func newTestPipeline(t *testing.T) (*Pipeline, store.Store) {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	_, err := s.CreateDocument(context.Background(), "doc-1", "Untitled", "owner-1")
	require.NoError(t, err)
	return New(s, hub.New(8)), s
}

// Scenario A — sequential insert.
func TestScenarioASequentialInsert(t *testing.T) {
	p, s := newTestPipeline(t)

	result, err := p.Submit(context.Background(), Inbound{
		DocumentID: "doc-1", UserID: "aaa",
		Edit: ot.Edit{Position: 0, InsertText: "Hello", DeleteLen: 0, BaseVersion: 0},
	})
	require.NoError(t, err)
	require.Equal(t, "ack", result.Ack.Type)
	require.Equal(t, int64(1), *result.Ack.UpdatedVersion)

	doc, err := s.GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Equal(t, "Hello", doc.Content)
	require.Equal(t, int64(1), doc.Version)
}

// Scenario B — concurrent insert at position 0, user_id tie-break.
func TestScenarioBConcurrentTieBreak(t *testing.T) {
	p, s := newTestPipeline(t)

	ctx := context.Background()
	editA := Inbound{DocumentID: "doc-1", UserID: "aaa", Edit: ot.Edit{Position: 0, InsertText: "Hi", BaseVersion: 0}}
	editB := Inbound{DocumentID: "doc-1", UserID: "bbb", Edit: ot.Edit{Position: 0, InsertText: "Hi", BaseVersion: 0}}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _, _ = p.Submit(ctx, editA) }()
	go func() { defer wg.Done(); _, _ = p.Submit(ctx, editB) }()
	wg.Wait()

	doc, err := s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Equal(t, "HiHi", doc.Content)
	require.Equal(t, int64(2), doc.Version)
}

// Scenario C — insert vs delete overlap. Both edits are issued against
// base_version 0, so exercising the transform requires bypassing
// Submit's preflight (which would otherwise reject the second edit as
// stale the instant the first has committed) — p.commit is called
// directly, same as Submit does internally once preflight passes, so
// this still drives the real RunEditTransaction/ot.Transform path with
// a deterministic commit order instead of an unreproducible race.
func TestScenarioCInsertVsDeleteOverlap(t *testing.T) {
	p, s := newTestPipeline(t)
	ctx := context.Background()

	_, err := s.RunEditTransaction(ctx, "doc-1", 0, func(content string, version int64, missed []*store.Operation) (string, int64, *store.Operation, error) {
		return "abcdef", 0, &store.Operation{UserID: "seed", BaseVersion: 0}, nil
	})
	require.NoError(t, err)

	// Op1: delete [1,4) committed first.
	res1, err := p.commit(ctx, Inbound{
		DocumentID: "doc-1", UserID: "op1",
		Edit: ot.Edit{Position: 1, DeleteLen: 3, BaseVersion: 0},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), *res1.Ack.UpdatedVersion)

	doc, err := s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Equal(t, "aef", doc.Content)

	// Op2: insert "X" at pos=3, base_version still 0 (missed op1).
	res2, err := p.commit(ctx, Inbound{
		DocumentID: "doc-1", UserID: "op2",
		Edit: ot.Edit{Position: 3, InsertText: "X", BaseVersion: 0},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), *res2.Ack.UpdatedVersion)

	doc, err = s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Equal(t, "aXef", doc.Content)
}

// Scenario D — stale base_version triggers sync_needed, no Operation row.
func TestScenarioDStaleBaseVersion(t *testing.T) {
	p, s := newTestPipeline(t)
	ctx := context.Background()

	_, err := s.RunEditTransaction(ctx, "doc-1", 0, func(content string, version int64, missed []*store.Operation) (string, int64, *store.Operation, error) {
		return "z", 5, &store.Operation{UserID: "seed", BaseVersion: 0}, nil
	})
	require.NoError(t, err)

	result, err := p.Submit(ctx, Inbound{
		DocumentID: "doc-1", UserID: "client",
		Edit: ot.Edit{Position: 0, InsertText: "q", BaseVersion: 3},
	})
	require.NoError(t, err)
	require.Equal(t, "sync_needed", result.Ack.Type)
	require.Equal(t, "z", *result.Ack.Content)
	require.Equal(t, int64(5), *result.Ack.Version)
	require.Nil(t, result.Broadcast)

	ops, err := s.ListOperations(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, ops, 1, "stale edit must not append a new Operation row")
}

func TestSubmitBroadcastsToOtherSubscribers(t *testing.T) {
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()
	_, err := s.CreateDocument(ctx, "doc-1", "Untitled", "owner-1")
	require.NoError(t, err)

	h := hub.New(8)
	p := New(s, h)

	sub := h.Connect("doc-1", 42)

	result, err := p.Submit(ctx, Inbound{
		DocumentID: "doc-1", UserID: "aaa",
		Edit: ot.Edit{Position: 0, InsertText: "hi", BaseVersion: 0},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Broadcast)

	frame := <-sub
	require.Equal(t, "op", frame.Type)
	require.Equal(t, "hi", frame.Op.InsertText)
}
