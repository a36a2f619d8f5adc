package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/collabtext/core/internal/protocol"
	"github.com/collabtext/core/pkg/auth"
	"github.com/collabtext/core/pkg/hub"
	"github.com/collabtext/core/pkg/logger"
	"github.com/collabtext/core/pkg/metrics"
	"github.com/collabtext/core/pkg/pipeline"
	"github.com/collabtext/core/pkg/store"
)

// Config carries the transport-level settings the teacher's Config
// struct in cmd/server/main.go held inline; here it's a field set the
// caller builds from internal/config and passes in, so pkg/server has
// no direct env dependency of its own.
type Config struct {
	BroadcastBufferSize int
	WSReadTimeout       time.Duration
	WSWriteTimeout      time.Duration
	IdleDocumentTTL     time.Duration
}

// Server is the HTTP entry point: it wires the websocket session
// handler, the supplemented REST surface (mounted separately by the
// caller, see internal/restapi), and the ambient /healthz and /metrics
// endpoints.
type Server struct {
	cfg      Config
	store    store.Store
	hub      *hub.Hub
	pipeline *pipeline.Pipeline
	verifier auth.Verifier
	mux      *http.ServeMux

	mu         sync.Mutex
	lastAccess map[string]time.Time
	startTime  time.Time

	httpServer *http.Server
}

// New builds a Server. The caller owns st's and p's lifetimes (p.Close,
// which Shutdown also calls, releases the pipeline's worker goroutines).
func New(cfg Config, st store.Store, h *hub.Hub, p *pipeline.Pipeline, verifier auth.Verifier) *Server {
	s := &Server{
		cfg:        cfg,
		store:      st,
		hub:        h,
		pipeline:   p,
		verifier:   verifier,
		mux:        http.NewServeMux(),
		lastAccess: make(map[string]time.Time),
		startTime:  time.Now(),
	}

	s.mux.HandleFunc("/api/socket/", s.handleSocket)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.Handle("/metrics", metrics.Handler())

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleSocket upgrades to a websocket and runs the session loop.
// Route: /api/socket/{document_id}?token=...
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	documentID := strings.TrimPrefix(r.URL.Path, "/api/socket/")
	if documentID == "" {
		http.Error(w, "document ID required", http.StatusBadRequest)
		return
	}

	token := r.URL.Query().Get("token")
	identity, authErr := s.verifier.Verify(token)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		logger.Error("socket %s: accept failed: %v", documentID, err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	// AuthFailure (spec §7): close with the policy-violation code rather
	// than completing the handshake as if the connection were usable,
	// grounded on original_source's websocket_endpoint doing the same
	// close(code=WS_1008_POLICY_VIOLATION) once the handshake is already
	// accepted.
	if authErr != nil {
		logger.Warn("socket %s: auth failed: %v", documentID, authErr)
		conn.Close(protocol.ClosePolicyViolation, "unauthorized")
		return
	}

	s.touch(documentID)

	sess := &session{
		id:           nextSessionID(),
		documentID:   documentID,
		userID:       identity.UserID,
		conn:         conn,
		hub:          s.hub,
		pipeline:     s.pipeline,
		store:        s.store,
		readTimeout:  s.cfg.WSReadTimeout,
		writeTimeout: s.cfg.WSWriteTimeout,
	}

	if err := sess.handle(r.Context()); err != nil {
		logger.Info("socket %s: session %d ended: %v", documentID, sess.id, err)
	}

	conn.Close(websocket.StatusNormalClosure, "")
}

// healthzResponse mirrors the teacher's Stats payload shape, swapping
// its in-memory document count for the number of documents this server
// has accepted a connection for and not yet evicted as idle (the Store,
// not this process, is now the source of truth for documents).
type healthzResponse struct {
	StartTime     int64 `json:"start_time"`
	OpenDocuments int   `json:"open_documents"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	openDocuments := len(s.lastAccess)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthzResponse{
		StartTime:     s.startTime.Unix(),
		OpenDocuments: openDocuments,
	})
}

func (s *Server) touch(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess[documentID] = time.Now()
}

// StartIdleEvictor runs until ctx is cancelled, periodically dropping a
// document's lastAccess entry (not the document itself in the Store —
// spec §3: "the core reads and mutates [documents] but never destroys
// them") once it has no subscribers and its last connection was accepted
// more than cfg.IdleDocumentTTL ago. Generalized from the teacher's
// StartCleaner/cleanupExpiredDocuments, which deleted documents from its
// in-memory map on the same schedule; here eviction only drops this
// server's own bookkeeping (the Hub already forgets a document when its
// last subscriber disconnects), since the Store already persists
// everything a reconnecting client needs.
func (s *Server) StartIdleEvictor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evictIdle()
		}
	}
}

func (s *Server) evictIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for documentID, last := range s.lastAccess {
		if s.hub.SessionCount(documentID) > 0 {
			continue
		}
		if now.Sub(last) > s.cfg.IdleDocumentTTL {
			delete(s.lastAccess, documentID)
			logger.Debug("evicting idle document %s from hub bookkeeping", documentID)
		}
	}
}

// ListenAndServe starts the HTTP server on addr, blocking until it
// returns an error (including http.ErrServerClosed after Shutdown).
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s}
	logger.Info("server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops accepting new connections and releases the
// pipeline's worker goroutines. Mirrors the teacher's Shutdown, whose
// job was killing live Rustpad sessions; here the session loop exits on
// its own once the websocket connections close, so Shutdown only needs
// to stop the listener and the pipeline.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.pipeline.Close()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
