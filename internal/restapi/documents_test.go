package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/collabtext/core/pkg/auth"
	"github.com/collabtext/core/pkg/store"
)

func testHandler(t *testing.T) (*Handler, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	t.Cleanup(func() { st.Close() })
	return New(st, auth.AnonymousVerifier{}), st
}

func doRequest(h *Handler, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateDocumentRequiresAuth(t *testing.T) {
	h, _ := testHandler(t)
	rec := doRequest(h, http.MethodPost, "/api/v1/docs", "", []byte(`{}`))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateDocumentDefaultsTitleAndSeedsContent(t *testing.T) {
	h, _ := testHandler(t)

	reqBody, err := json.Marshal(docCreateRequest{Content: "hello"})
	require.NoError(t, err)

	rec := doRequest(h, http.MethodPost, "/api/v1/docs", "user-a", reqBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp docResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Untitled Document", resp.Title)
	require.Equal(t, "hello", resp.Content)
	require.Equal(t, int64(1), resp.Version)
	require.NotEmpty(t, resp.ID)
}

func TestGetDocumentNotFound(t *testing.T) {
	h, _ := testHandler(t)
	rec := doRequest(h, http.MethodGet, "/api/v1/docs/missing", "user-a", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetDocumentAndOps(t *testing.T) {
	h, st := testHandler(t)
	_, err := st.CreateDocument(context.Background(), "doc-1", "Title", "owner")
	require.NoError(t, err)

	rec := doRequest(h, http.MethodGet, "/api/v1/docs/doc-1", "user-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp docResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "doc-1", resp.ID)

	opsRec := doRequest(h, http.MethodGet, "/api/v1/docs/doc-1/ops", "user-a", nil)
	require.Equal(t, http.StatusNotFound, opsRec.Code, "a freshly created document has no operations yet")
}
