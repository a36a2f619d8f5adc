// Package hub fans server frames out to every connected subscriber of a
// document. It is the multi-document generalization of the teacher's
// Kolabpad.subscribers map in pkg/server/kolabpad.go, which only ever ran
// one document per process; here a single Hub multiplexes many documents
// the way the teacher's pkg/server/server.go multiplexed many Kolabpad
// instances behind a sync.Map.
package hub

import (
	"sync"

	"github.com/collabtext/core/internal/protocol"
	"github.com/collabtext/core/pkg/logger"
	"github.com/collabtext/core/pkg/metrics"
)

// subscriber is one connected session's outbound channel. Buffered sends
// protect the broadcaster from a single slow reader; a full channel drops
// the frame for that subscriber only, mirroring the teacher's
// broadcast's non-blocking select/default.
type subscriber struct {
	id uint64
	ch chan *protocol.ServerFrame
}

type document struct {
	mu          sync.RWMutex
	subscribers map[uint64]*subscriber
}

// Hub tracks subscriber sets per document id.
type Hub struct {
	bufferSize int

	mu   sync.RWMutex
	docs map[string]*document
}

// New creates a Hub whose per-subscriber channels are buffered to
// bufferSize frames.
func New(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Hub{bufferSize: bufferSize, docs: make(map[string]*document)}
}

func (h *Hub) docFor(documentID string) *document {
	h.mu.Lock()
	defer h.mu.Unlock()

	d, ok := h.docs[documentID]
	if !ok {
		d = &document{subscribers: make(map[uint64]*subscriber)}
		h.docs[documentID] = d
	}
	return d
}

// Connect registers sessionID as a subscriber of documentID and returns
// the channel frames will arrive on. Call Disconnect when the session
// ends to release the channel.
func (h *Hub) Connect(documentID string, sessionID uint64) <-chan *protocol.ServerFrame {
	d := h.docFor(documentID)

	d.mu.Lock()
	defer d.mu.Unlock()

	sub := &subscriber{id: sessionID, ch: make(chan *protocol.ServerFrame, h.bufferSize)}
	d.subscribers[sessionID] = sub

	metrics.ActiveSessions.WithLabelValues(documentID).Set(float64(len(d.subscribers)))
	return sub.ch
}

// Disconnect removes sessionID from documentID's subscriber set and
// closes its channel. Safe to call more than once. If the subscriber
// set becomes empty, the document entry itself is dropped from the
// Hub so its memory doesn't accumulate across document churn.
func (h *Hub) Disconnect(documentID string, sessionID uint64) {
	h.mu.Lock()
	d, ok := h.docs[documentID]
	if !ok {
		h.mu.Unlock()
		return
	}

	d.mu.Lock()
	if sub, ok := d.subscribers[sessionID]; ok {
		close(sub.ch)
		delete(d.subscribers, sessionID)
	}
	count := len(d.subscribers)
	d.mu.Unlock()

	if count == 0 {
		delete(h.docs, documentID)
	}
	h.mu.Unlock()

	metrics.ActiveSessions.WithLabelValues(documentID).Set(float64(count))
}

// Broadcast delivers frame to every current subscriber of documentID
// except excludeSessionID (0 broadcasts to everyone, including the
// sender — pass the origin session's id to echo-suppress it). A
// subscriber whose channel is full is skipped rather than blocking the
// rest of the fan-out, grounded on original_source's
// ConnectionManager.broadcast catching per-connection send failures.
func (h *Hub) Broadcast(documentID string, excludeSessionID uint64, frame *protocol.ServerFrame) {
	h.mu.RLock()
	d, ok := h.docs[documentID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	delivered := 0
	for id, sub := range d.subscribers {
		if id == excludeSessionID {
			continue
		}
		select {
		case sub.ch <- frame:
			delivered++
		default:
			logger.Warn("hub: dropping frame for slow subscriber %d on document %s", id, documentID)
		}
	}
	metrics.BroadcastFanOut.Observe(float64(delivered))
}

// SessionCount returns the number of currently connected subscribers for
// documentID.
func (h *Hub) SessionCount(documentID string) int {
	h.mu.RLock()
	d, ok := h.docs[documentID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}
