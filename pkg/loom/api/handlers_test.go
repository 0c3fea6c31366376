package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomcms/loom/pkg/loom"
	"github.com/loomcms/loom/pkg/loom/repo/memory"
)

func newTestServer(t *testing.T, options ...loom.Option) *httptest.Server {
	t.Helper()

	options = append([]loom.Option{loom.WithRepository(memory.New())}, options...)
	svc, err := loom.New(context.Background(), options...)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(ActorFromHeaders)
	r.Mount("/content-types", NewTypeHandler(svc).Routes())
	r.Mount("/content", NewEntryHandler(svc).Routes())

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

type testClient struct {
	t       *testing.T
	baseURL string
	actorID string
	role    string
}

func (c *testClient) do(method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.baseURL+path, &buf)
	require.NoError(c.t, err)
	if c.actorID != "" {
		req.Header.Set("X-Actor-ID", c.actorID)
		req.Header.Set("X-Actor-Role", c.role)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&decoded)
	}
	return resp, decoded
}

func articleBody() map[string]interface{} {
	return map[string]interface{}{
		"api_id":       "article",
		"display_name": "Article",
		"fields": []map[string]interface{}{
			{"name": "title", "type": "text", "required": true},
			{"name": "body", "type": "richtext"},
		},
	}
}

func TestContentTypeEndpoints(t *testing.T) {
	srv := newTestServer(t)
	admin := &testClient{t: t, baseURL: srv.URL, actorID: uuid.New().String(), role: PrivilegedRole}

	resp, created := admin.do(http.MethodPost, "/content-types", articleBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "article", created["api_id"])

	resp, _ = admin.do(http.MethodPost, "/content-types", articleBody())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, got := admin.do(http.MethodGet, "/content-types/article", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Article", got["display_name"])

	resp, list := admin.do(http.MethodGet, "/content-types", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list["content_types"], 1)

	replacement := articleBody()
	replacement["display_name"] = "Story"
	resp, replaced := admin.do(http.MethodPut, "/content-types/article", replacement)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Story", replaced["display_name"])

	resp, _ = admin.do(http.MethodDelete, "/content-types/article", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = admin.do(http.MethodGet, "/content-types/article", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestContentTypeValidationStatus(t *testing.T) {
	srv := newTestServer(t)
	admin := &testClient{t: t, baseURL: srv.URL, actorID: uuid.New().String(), role: PrivilegedRole}

	bad := articleBody()
	bad["api_id"] = "Not-Valid"
	resp, body := admin.do(http.MethodPost, "/content-types", bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestMutationsRequireActor(t *testing.T) {
	srv := newTestServer(t)
	anon := &testClient{t: t, baseURL: srv.URL}

	resp, body := anon.do(http.MethodPost, "/content-types", articleBody())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "authentication required", body["error"])

	// Reads stay open.
	resp, _ = anon.do(http.MethodGet, "/content-types", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEntryEndpoints(t *testing.T) {
	srv := newTestServer(t)
	author := &testClient{t: t, baseURL: srv.URL, actorID: uuid.New().String(), role: "editor"}
	admin := &testClient{t: t, baseURL: srv.URL, actorID: uuid.New().String(), role: PrivilegedRole}

	resp, _ := admin.do(http.MethodPost, "/content-types", articleBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, created := author.do(http.MethodPost, "/content/article", map[string]interface{}{"title": "hello"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "hello", created["title"])
	assert.Equal(t, "draft", created["state"])
	assert.Equal(t, author.actorID, created["created_by"])
	entryID := created["id"].(string)

	resp, got := author.do(http.MethodGet, "/content/article/"+entryID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", got["title"])

	resp, updated := author.do(http.MethodPut, "/content/article/"+entryID, map[string]interface{}{"body": "text"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text", updated["body"])
	assert.Equal(t, "hello", updated["title"])

	resp, transitioned := author.do(http.MethodPut, "/content/article/"+entryID+"/state", map[string]interface{}{"state": "published"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "published", transitioned["state"])

	resp, _ = author.do(http.MethodDelete, "/content/article/"+entryID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = author.do(http.MethodGet, "/content/article/"+entryID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEntryErrorStatuses(t *testing.T) {
	srv := newTestServer(t)
	author := &testClient{t: t, baseURL: srv.URL, actorID: uuid.New().String(), role: "editor"}
	admin := &testClient{t: t, baseURL: srv.URL, actorID: uuid.New().String(), role: PrivilegedRole}

	resp, _ := admin.do(http.MethodPost, "/content-types", articleBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Unknown type.
	resp, _ = author.do(http.MethodPost, "/content/ghost", map[string]interface{}{"title": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Missing required field.
	resp, body := author.do(http.MethodPost, "/content/article", map[string]interface{}{"body": "no title"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "title")

	// Malformed entry id reads as missing.
	resp, _ = author.do(http.MethodGet, "/content/article/not-a-uuid", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Foreign entry is forbidden to a non-owner.
	resp, created := author.do(http.MethodPost, "/content/article", map[string]interface{}{"title": "mine"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	stranger := &testClient{t: t, baseURL: srv.URL, actorID: uuid.New().String(), role: "editor"}
	resp, _ = stranger.do(http.MethodPut, "/content/article/"+created["id"].(string), map[string]interface{}{"title": "theirs"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Invalid workflow target.
	resp, _ = author.do(http.MethodPut, "/content/article/"+created["id"].(string)+"/state", map[string]interface{}{"state": "archived"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListEntriesEndpoint(t *testing.T) {
	srv := newTestServer(t)
	author := &testClient{t: t, baseURL: srv.URL, actorID: uuid.New().String(), role: "editor"}
	admin := &testClient{t: t, baseURL: srv.URL, actorID: uuid.New().String(), role: PrivilegedRole}

	resp, _ := admin.do(http.MethodPost, "/content-types", articleBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	for i := 0; i < 12; i++ {
		resp, _ := author.do(http.MethodPost, "/content/article", map[string]interface{}{
			"title": fmt.Sprintf("article %02d", i),
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, list := author.do(http.MethodGet, "/content/article?page=2&limit=10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list["entries"], 2)
	assert.Equal(t, float64(12), list["total_count"])

	resp, list = author.do(http.MethodGet, "/content/article?search=article+03", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list["entries"], 1)
}

func TestApprovalGateOverHTTP(t *testing.T) {
	srv := newTestServer(t, loom.WithSettings(loom.StaticSettings{ContentApproval: true}))
	author := &testClient{t: t, baseURL: srv.URL, actorID: uuid.New().String(), role: "editor"}
	admin := &testClient{t: t, baseURL: srv.URL, actorID: uuid.New().String(), role: PrivilegedRole}

	resp, _ := admin.do(http.MethodPost, "/content-types", articleBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, created := author.do(http.MethodPost, "/content/article", map[string]interface{}{"title": "gated"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	entryID := created["id"].(string)

	// The author's publish request lands in pending approval.
	resp, body := author.do(http.MethodPut, "/content/article/"+entryID+"/state", map[string]interface{}{"state": "published"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pending_approval", body["state"])

	// The admin approves.
	resp, body = admin.do(http.MethodPut, "/content/article/"+entryID+"/state", map[string]interface{}{"state": "published"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "published", body["state"])
}

func TestActorFromHeadersParsing(t *testing.T) {
	var captured *loom.Actor
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor, ok := ActorFromContext(r.Context()); ok {
			captured = &actor
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := ActorFromHeaders(inner)

	// Valid headers attach an actor.
	id := uuid.New()
	captured = nil
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-ID", id.String())
	req.Header.Set("X-Actor-Role", PrivilegedRole)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, captured)
	assert.Equal(t, id, captured.ID)
	assert.True(t, captured.Privileged)

	// A non-admin role is not privileged.
	captured = nil
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-ID", id.String())
	req.Header.Set("X-Actor-Role", "editor")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, captured)
	assert.False(t, captured.Privileged)

	// Malformed or absent identity means anonymous.
	captured = nil
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-ID", "not-a-uuid")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Nil(t, captured)
}
