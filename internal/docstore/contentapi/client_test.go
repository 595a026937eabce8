package contentapi

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/MrSnakeDoc/sitedir/internal/docstore"
	"github.com/MrSnakeDoc/sitedir/internal/docstore/storetest"
	"github.com/MrSnakeDoc/sitedir/internal/logger"
)

// fakeRepo mimics the contents API closely enough for the client:
// blob SHA as revision, 409 on stale sha, 422 on create over an existing file.
// Files larger than rawAbove (when set) are only served through the raw media type.
type fakeRepo struct {
	mu       sync.Mutex
	files    map[string][]byte
	prefix   string
	lastAuth string
	calls    int
	rawAbove int
}

func newFakeRepo(prefix string) *fakeRepo {
	return &fakeRepo{files: make(map[string][]byte), prefix: prefix}
}

func blobSHA(b []byte) string {
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

func (f *fakeRepo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.lastAuth = r.Header.Get("Authorization")

	path, ok := strings.CutPrefix(r.URL.Path, f.prefix)
	if !ok {
		http.Error(w, `{"message":"bad route"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	cur, exists := f.files[path]

	switch r.Method {
	case http.MethodGet:
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		if r.Header.Get("Accept") == mediaRaw {
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write(cur)
			return
		}
		if f.rawAbove > 0 && len(cur) > f.rawAbove {
			_ = json.NewEncoder(w).Encode(contentResponse{Type: "file", Encoding: "none", SHA: blobSHA(cur)})
			return
		}
		enc := base64.StdEncoding.EncodeToString(cur)
		// The real API wraps at 60 columns.
		var wrapped strings.Builder
		for i := 0; i < len(enc); i += 60 {
			end := min(i+60, len(enc))
			wrapped.WriteString(enc[i:end])
			wrapped.WriteString("\n")
		}
		_ = json.NewEncoder(w).Encode(contentResponse{
			Type: "file", Encoding: "base64", Content: wrapped.String(), SHA: blobSHA(cur),
		})

	case http.MethodPut:
		var req putRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch {
		case req.SHA == "" && exists:
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"Invalid request. \"sha\" wasn't supplied."}`))
			return
		case req.SHA != "" && !exists:
			w.WriteHeader(http.StatusNotFound)
			return
		case req.SHA != "" && req.SHA != blobSHA(cur):
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"is at abc but expected def"}`))
			return
		}
		data, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.files[path] = data
		status := http.StatusOK
		if !exists {
			status = http.StatusCreated
		}
		w.WriteHeader(status)
		var resp putResponse
		resp.Content.SHA = blobSHA(data)
		_ = json.NewEncoder(w).Encode(resp)

	case http.MethodDelete:
		var req deleteRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.SHA != blobSHA(cur) {
			w.WriteHeader(http.StatusConflict)
			return
		}
		delete(f.files, path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}
}

func newTestClient(t *testing.T, repo *fakeRepo) *Client {
	t.Helper()
	srv := httptest.NewServer(repo)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL: srv.URL,
		Owner:   "acme",
		Repo:    "links",
		Branch:  "main",
		Token:   "token-123",
	}, srv.Client(), logger.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestClientContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store {
		return newTestClient(t, newFakeRepo("/repos/acme/links/contents/"))
	})
}

func TestClient_SendsBearerToken(t *testing.T) {
	repo := newFakeRepo("/repos/acme/links/contents/")
	c := newTestClient(t, repo)

	_, _ = c.Read(t.Context(), "data/websites.json")

	if repo.lastAuth != "Bearer token-123" {
		t.Errorf("Authorization = %q, want bearer token", repo.lastAuth)
	}
}

func TestClient_ReadsLargeFilesRaw(t *testing.T) {
	repo := newFakeRepo("/repos/acme/links/contents/")
	repo.rawAbove = 1 << 10
	c := newTestClient(t, repo)

	payload := []byte(strings.Repeat(`{"data":"QUJD"}`, 200))
	rev, err := c.Write(t.Context(), "icons/example.com.json", payload, nil)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	doc, err := c.Read(t.Context(), "icons/example.com.json")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(doc.Content) != string(payload) || doc.Revision != rev {
		t.Errorf("Read() = %d bytes rev %q, want %d bytes rev %q", len(doc.Content), doc.Revision, len(payload), rev)
	}
}

func TestClient_PathPrefix(t *testing.T) {
	repo := newFakeRepo("/repos/acme/links/contents/")
	srv := httptest.NewServer(repo)
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Owner: "acme", Repo: "links", PathPrefix: "/site/"}, srv.Client(), logger.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := c.Write(t.Context(), "data/config.json", []byte(`{}`), nil); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, ok := repo.files["site/data/config.json"]; !ok {
		t.Errorf("file not stored under prefix, have %v", repo.files)
	}
}

func TestClient_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Resource not accessible by integration"}`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Owner: "acme", Repo: "links"}, srv.Client(), logger.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.Read(t.Context(), "data/websites.json")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Read() error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusForbidden || !strings.Contains(apiErr.Message, "not accessible") {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestNew_RequiresRepo(t *testing.T) {
	if _, err := New(Config{Owner: "acme"}, nil, logger.Nop()); err == nil {
		t.Fatal("New() should require a repository")
	}
}
