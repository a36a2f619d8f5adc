// Package restapi is the supplemented document CRUD surface (document
// creation and read-only lookups) that sits alongside the websocket
// edit pipeline. Grounded on original_source/app/api/v1/routes/document.py
// and app/db/crud/document.py — create_doc/get_doc/get_doc_ops map
// directly onto the three handlers below, reading and writing through
// the same pkg/store.Store the edit pipeline uses rather than a
// separate ORM session.
package restapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/collabtext/core/pkg/auth"
	"github.com/collabtext/core/pkg/store"
)

// Handler serves the /api/v1/docs routes.
type Handler struct {
	store    store.Store
	verifier auth.Verifier
	mux      *http.ServeMux
}

// New builds a Handler. Mount it under /api/v1/docs/ on the caller's mux.
func New(st store.Store, verifier auth.Verifier) *Handler {
	h := &Handler{store: st, verifier: verifier, mux: http.NewServeMux()}
	h.mux.HandleFunc("/api/v1/docs", h.handleCreate)
	h.mux.HandleFunc("/api/v1/docs/", h.handleDocRoute)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// docCreateRequest mirrors original_source's DocCreate schema.
type docCreateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// docResponse mirrors original_source's DocOut schema.
type docResponse struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Version int64  `json:"version"`
}

// operationResponse mirrors original_source's OperationOut schema.
type operationResponse struct {
	ID          int64  `json:"id"`
	DocID       string `json:"doc_id"`
	UserID      string `json:"user_id"`
	BaseVersion int64  `json:"base_version"`
	Position    int    `json:"position"`
	InsertText  string `json:"insert_text"`
	DeleteLen   int    `json:"delete_len"`
}

// handleCreate is POST /api/v1/docs (create_doc).
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	identity, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req docCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		req.Title = "Untitled Document"
	}

	id := uuid.NewString()
	doc, err := h.store.CreateDocument(r.Context(), id, req.Title, identity.UserID)
	if err != nil {
		http.Error(w, "failed to create document", http.StatusInternalServerError)
		return
	}
	if req.Content != "" {
		doc, err = h.seedContent(r, doc.ID, req.Content)
		if err != nil {
			http.Error(w, "failed to seed document content", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusCreated, toDocResponse(doc))
}

// seedContent commits an initial insert so that content supplied at
// creation time (original_source's DocCreate.content) lands through the
// same transactional path every other edit takes, rather than writing
// around the version/operation-log invariant.
func (h *Handler) seedContent(r *http.Request, documentID, content string) (*store.Document, error) {
	_, _, err := h.store.RunEditTransaction(r.Context(), documentID, 0,
		func(_ string, _ int64, _ []*store.Operation) (string, int64, *store.Operation, error) {
			op := &store.Operation{
				DocumentID: documentID,
				UserID:     "system",
				Position:   0,
				InsertText: content,
			}
			return content, 1, op, nil
		})
	if err != nil {
		return nil, err
	}
	return h.store.GetDocument(r.Context(), documentID)
}

// handleDocRoute dispatches GET /api/v1/docs/{id} (get_doc) and
// GET /api/v1/docs/{id}/ops (get_doc_ops).
func (h *Handler) handleDocRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, ok := h.authenticate(w, r); !ok {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/docs/")
	if rest == "" {
		http.NotFound(w, r)
		return
	}

	if docID, ok := strings.CutSuffix(rest, "/ops"); ok {
		h.getOps(w, r, docID)
		return
	}

	h.getDoc(w, r, rest)
}

func (h *Handler) getDoc(w http.ResponseWriter, r *http.Request, docID string) {
	doc, err := h.store.GetDocument(r.Context(), docID)
	if err != nil {
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toDocResponse(doc))
}

func (h *Handler) getOps(w http.ResponseWriter, r *http.Request, docID string) {
	ops, err := h.store.ListOperations(r.Context(), docID)
	if err != nil {
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	}
	if len(ops) == 0 {
		http.Error(w, "No operations found for this document", http.StatusNotFound)
		return
	}

	views := make([]operationResponse, len(ops))
	for i, op := range ops {
		views[i] = operationResponse{
			ID:          op.ID,
			DocID:       op.DocumentID,
			UserID:      op.UserID,
			BaseVersion: op.BaseVersion,
			Position:    op.Position,
			InsertText:  op.InsertText,
			DeleteLen:   op.DeleteLen,
		}
	}
	writeJSON(w, http.StatusOK, views)
}

// authenticate mirrors original_source's get_current_user dependency:
// every route in this package requires a bearer token.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	identity, err := h.verifier.Verify(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return auth.Identity{}, false
	}
	return identity, true
}

func toDocResponse(doc *store.Document) docResponse {
	return docResponse{ID: doc.ID, Title: doc.Title, Content: doc.Content, Version: doc.Version}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
