// Package server is the transport boundary: websocket accept, the
// per-connection read loop, and the HTTP routes the core exposes.
// Generalized from the teacher's pkg/server/connection.go and server.go,
// which drove a single in-memory Kolabpad directly — here every session
// goes through the Edit Pipeline and Session Hub instead of touching
// document state itself.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/collabtext/core/internal/protocol"
	"github.com/collabtext/core/pkg/hub"
	"github.com/collabtext/core/pkg/logger"
	"github.com/collabtext/core/pkg/ot"
	"github.com/collabtext/core/pkg/pipeline"
	"github.com/collabtext/core/pkg/store"
)

var sessionSeq atomic.Uint64

func nextSessionID() uint64 { return sessionSeq.Add(1) }

// session is one client's websocket connection lifecycle.
type session struct {
	id           uint64
	documentID   string
	userID       string
	conn         *websocket.Conn
	hub          *hub.Hub
	pipeline     *pipeline.Pipeline
	store        store.Store
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// handle drives the connection until it closes: send init, start the
// broadcast forwarder, then loop reading client frames. Mirrors the
// teacher's Connection.Handle shape (sendInitial → go broadcastUpdates →
// read loop → handleMessage) but every edit goes through
// pipeline.Submit instead of Kolabpad.ApplyEdit.
func (s *session) handle(ctx context.Context) error {
	doc, err := s.store.GetDocument(ctx, s.documentID)
	if err != nil {
		_ = s.send(ctx, protocol.NewErrorFrame("Document not found"))
		return fmt.Errorf("session %d: %w", s.id, err)
	}

	if err := s.send(ctx, protocol.NewInitFrame(doc.Content, doc.Version)); err != nil {
		return fmt.Errorf("send init: %w", err)
	}

	updates := s.hub.Connect(s.documentID, s.id)
	defer s.hub.Disconnect(s.documentID, s.id)

	forwarderDone := make(chan struct{})
	go s.forwardBroadcasts(ctx, updates, forwarderDone)
	defer func() { <-forwarderDone }()

	for {
		readCtx, cancel := context.WithTimeout(ctx, s.readTimeout)
		_, data, err := s.conn.Read(readCtx)
		cancel()
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		// Decoded here rather than with wsjson.Read, which closes the
		// connection on a decode error; a bad frame only earns an error reply.
		var msg protocol.ClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = s.send(ctx, protocol.NewErrorFrame("Invalid message format: "+err.Error()))
			continue
		}

		result, err := s.pipeline.Submit(ctx, pipeline.Inbound{
			DocumentID: s.documentID,
			UserID:     s.userID,
			SessionID:  s.id,
			Edit: ot.Edit{
				Position:    msg.Position,
				InsertText:  msg.Insert(),
				DeleteLen:   msg.DeleteLen,
				BaseVersion: msg.BaseVersion,
			},
		})
		if err != nil {
			logger.Error("session %d: submit failed: %v", s.id, err)
			_ = s.send(ctx, protocol.NewErrorFrame("Document not found"))
			return err
		}

		// If the sender has already disconnected, this send fails and the
		// session ends; the edit has already been committed and broadcast
		// by Submit, so only the ack is lost (spec §5 cancellation rule).
		if err := s.send(ctx, result.Ack); err != nil {
			return fmt.Errorf("send ack: %w", err)
		}
	}
}

// forwardBroadcasts relays Hub frames (other sessions' committed ops) to
// this connection until the Hub closes the channel or ctx is cancelled.
func (s *session) forwardBroadcasts(ctx context.Context, updates <-chan *protocol.ServerFrame, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-updates:
			if !ok {
				return
			}
			if err := s.send(ctx, frame); err != nil {
				logger.Warn("session %d: forward broadcast failed: %v", s.id, err)
				return
			}
		}
	}
}

func (s *session) send(ctx context.Context, frame *protocol.ServerFrame) error {
	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, s.conn, frame)
}

func isMalformedFrame(err error) bool {
	// wsjson.Read wraps json.Unmarshal errors without a stable sentinel;
	// anything that isn't a close/context error is treated as a bad
	// frame per spec §6 ("Malformed JSON or schema").
	if websocket.CloseStatus(err) != -1 {
		return false
	}
	return err != context.DeadlineExceeded && err != context.Canceled
}
