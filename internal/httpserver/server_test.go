package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/sitedir/internal/config"
	"github.com/MrSnakeDoc/sitedir/internal/directory"
	"github.com/MrSnakeDoc/sitedir/internal/docstore"
	"github.com/MrSnakeDoc/sitedir/internal/docstore/memory"
	"github.com/MrSnakeDoc/sitedir/internal/httpserver/deps"
	"github.com/MrSnakeDoc/sitedir/internal/httpserver/mw"
	"github.com/MrSnakeDoc/sitedir/internal/icon"
	"github.com/MrSnakeDoc/sitedir/internal/logger"
	"github.com/MrSnakeDoc/sitedir/internal/mutate"
	"github.com/MrSnakeDoc/sitedir/internal/scheduler"
)

type stubIcons struct {
	resolveErr error
	refreshed  []string
	evicted    []string
	cached     *icon.CachedIcon
}

func (s *stubIcons) Resolve(context.Context, string) (icon.Icon, error) {
	return icon.Icon{Data: []byte("\x89PNG"), ContentType: "image/png", Source: "favicon.ico"}, s.resolveErr
}

func (s *stubIcons) Refresh(_ context.Context, domain, override string) (icon.Icon, error) {
	if _, err := icon.NormalizeDomain(domain); err != nil {
		return icon.Icon{}, err
	}
	s.refreshed = append(s.refreshed, domain+"|"+override)
	if strings.Contains(override, "typo") {
		return icon.Icon{}, icon.ErrAllSourcesExhausted
	}
	return icon.Synthesize(domain), nil
}

func (s *stubIcons) Cached(_ context.Context, domain string) (*icon.CachedIcon, error) {
	if _, err := icon.NormalizeDomain(domain); err != nil {
		return nil, err
	}
	return s.cached, nil
}

func (s *stubIcons) Evict(_ context.Context, domain string) error {
	s.evicted = append(s.evicted, domain)
	return nil
}

type stubScheduler struct{ accept bool }

func (s stubScheduler) TriggerIconRefresh() bool { return s.accept }
func (s stubScheduler) Status() scheduler.Status { return scheduler.Status{} }

type failingStore struct{ docstore.Store }

func (failingStore) Read(context.Context, string) (docstore.Document, error) {
	return docstore.Document{}, errors.New("connection refused")
}

type fixture struct {
	handler http.Handler
	icons   *stubIcons
	dir     *directory.Service
}

func newFixture(t *testing.T, edit func(d *deps.Deps)) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{
		icons: &stubIcons{},
		dir:   directory.New(mutate.New(store, logger.Nop()), logger.Nop()),
	}
	d := deps.Deps{
		Logger:             logger.Nop(),
		StartTime:          time.Now(),
		StoreBackend:       config.BackendMemory,
		Store:              store,
		Icons:              f.icons,
		Scheduler:          stubScheduler{accept: true},
		Directory:          f.dir,
		PublicLimiter:      mw.NewRateLimiter(mw.RateLimitConfig{Burst: 100, RefillPerIPPerMin: 100}),
		PublicRequestLimit: 5 * time.Second,
		AdminRequestLimit:  5 * time.Second,
	}
	if edit != nil {
		edit(&d)
	}
	srv := New(&config.Config{ListenPort: ":0"}, logger.Nop(), d)
	f.handler = srv.http.Handler
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestIconRoute(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodGet, "/icon/example.com", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get("X-Icon-Source") != "favicon.ico" {
		t.Errorf("X-Icon-Source = %q", rec.Header().Get("X-Icon-Source"))
	}
	if rec.Header().Get("X-Icon-Cache") != "" {
		t.Errorf("unexpected X-Icon-Cache on a cached icon")
	}
}

func TestIconRoute_CacheWriteFailureStillServes(t *testing.T) {
	f := newFixture(t, nil)
	f.icons.resolveErr = &icon.CacheWriteError{Domain: "example.com", Err: docstore.ErrConflict}

	rec := f.do(http.MethodGet, "/icon/example.com", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Icon-Cache"); got != "write-failed" {
		t.Errorf("X-Icon-Cache = %q, want write-failed", got)
	}
}

func TestRefreshRoute_InvalidDomain(t *testing.T) {
	f := newFixture(t, nil)
	if rec := f.do(http.MethodPost, "/icon/bad..domain/refresh", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAdminIconRoutes(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodPost, "/icon/example.com/refresh?url=https://cdn.example.com/logo.png", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", rec.Code, rec.Body)
	}
	var body struct {
		Synthesized bool `json:"synthesized"`
		Cached      bool `json:"cached"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Synthesized || !body.Cached {
		t.Errorf("refresh body = %+v", body)
	}
	if len(f.icons.refreshed) != 1 || f.icons.refreshed[0] != "example.com|https://cdn.example.com/logo.png" {
		t.Errorf("refreshed = %v", f.icons.refreshed)
	}

	if rec := f.do(http.MethodDelete, "/icon/example.com", ""); rec.Code != http.StatusNoContent {
		t.Errorf("evict status = %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/icons/refresh", ""); rec.Code != http.StatusAccepted {
		t.Errorf("batch refresh status = %d", rec.Code)
	}
}

func TestRefreshRoute_FailedOverride(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodPost, "/icon/example.com/refresh?url=https://typo.example.com/icon.png", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestIconCacheEntryRoute(t *testing.T) {
	fetched := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, func(d *deps.Deps) {
		d.TimeNow = func() time.Time { return fetched.Add(90 * time.Minute) }
	})

	if rec := f.do(http.MethodGet, "/icon/example.com/cache", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing entry status = %d, want 404", rec.Code)
	}

	f.icons.cached = &icon.CachedIcon{
		Domain:    "example.com",
		Icon:      icon.Icon{Data: []byte("\x89PNG"), ContentType: "image/png", Source: "favicon.ico"},
		FetchedAt: fetched,
		Revision:  "7",
	}
	rec := f.do(http.MethodGet, "/icon/example.com/cache", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var body struct {
		Source   string `json:"source"`
		Age      string `json:"age"`
		Revision string `json:"revision"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Source != "favicon.ico" || body.Age != "1h30m0s" || body.Revision != "7" {
		t.Errorf("body = %+v", body)
	}

	if rec := f.do(http.MethodGet, "/icon/bad..domain/cache", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid domain status = %d, want 400", rec.Code)
	}
}

func TestBatchRefresh_AlreadyRunning(t *testing.T) {
	f := newFixture(t, func(d *deps.Deps) { d.Scheduler = stubScheduler{accept: false} })
	if rec := f.do(http.MethodPost, "/icons/refresh", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
}

func TestAdminRoutes_CIDRRestricted(t *testing.T) {
	f := newFixture(t, func(d *deps.Deps) {
		d.AllowedCIDRS = []string{"10.0.0.0/8"}
		d.TrustProxy = false
	})

	// httptest requests come from 192.0.2.1.
	if rec := f.do(http.MethodDelete, "/icon/example.com", ""); rec.Code != http.StatusForbidden {
		t.Errorf("evict status = %d, want 403", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/icon/example.com", ""); rec.Code != http.StatusOK {
		t.Errorf("public icon status = %d, want 200", rec.Code)
	}
}

func TestDirectoryRoutes(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	cat, err := f.dir.AddCategory(ctx, directory.Category{Name: "Tools"}, "")
	if err != nil {
		t.Fatalf("AddCategory() error = %v", err)
	}

	rec := f.do(http.MethodPost, "/api/websites",
		`{"name":"Go","url":"https://go.dev","category":"`+cat.ID+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d, body %s", rec.Code, rec.Body)
	}

	rec = f.do(http.MethodPost, "/api/websites",
		`{"name":"Go again","url":"https://GO.dev/","category":"`+cat.ID+`"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}

	rec = f.do(http.MethodPost, "/api/websites", `{"name":"","url":"nope","category":"`+cat.ID+`"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid status = %d, want 422", rec.Code)
	}

	rec = f.do(http.MethodGet, "/api/websites", "")
	var sites []directory.Website
	if err := json.Unmarshal(rec.Body.Bytes(), &sites); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sites) != 1 || sites[0].URL != "https://go.dev" {
		t.Errorf("websites = %+v", sites)
	}
}

func decodeTree(t *testing.T, rec *httptest.ResponseRecorder) []directory.Category {
	t.Helper()
	var tree []directory.Category
	if err := json.Unmarshal(rec.Body.Bytes(), &tree); err != nil {
		t.Fatalf("decode tree %s: %v", rec.Body, err)
	}
	return tree
}

func TestCategoryRoutes(t *testing.T) {
	f := newFixture(t, nil)

	add := func(body string) directory.Category {
		t.Helper()
		rec := f.do(http.MethodPost, "/api/categories", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("add %s status = %d, body %s", body, rec.Code, rec.Body)
		}
		var c directory.Category
		if err := json.Unmarshal(rec.Body.Bytes(), &c); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return c
	}

	tools := add(`{"name":"Tools"}`)
	docs := add(`{"name":"Docs"}`)
	cli := add(`{"name":"CLI","parent":"` + tools.ID + `"}`)

	if rec := f.do(http.MethodPost, "/api/categories", `{"name":"cli","parent":"`+tools.ID+`"}`); rec.Code != http.StatusConflict {
		t.Errorf("duplicate child status = %d, want 409", rec.Code)
	}

	rec := f.do(http.MethodPatch, "/api/categories/"+cli.ID, `{"name":"Shell"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("rename status = %d, body %s", rec.Code, rec.Body)
	}
	if tree := decodeTree(t, rec); tree[0].Children[0].Name != "Shell" {
		t.Errorf("tree after rename = %+v", tree)
	}

	rec = f.do(http.MethodPost, "/api/categories/"+cli.ID+"/move", `{"parent":"`+docs.ID+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("move status = %d, body %s", rec.Code, rec.Body)
	}
	if tree := decodeTree(t, rec); len(tree[0].Children) != 0 || len(tree[1].Children) != 1 {
		t.Errorf("tree after move = %+v", tree)
	}

	rec = f.do(http.MethodPost, "/api/categories/"+cli.ID+"/promote", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("promote status = %d, body %s", rec.Code, rec.Body)
	}
	if tree := decodeTree(t, rec); len(tree) != 3 {
		t.Errorf("tree after promote = %+v", tree)
	}

	rec = f.do(http.MethodPost, "/api/categories/"+cli.ID+"/demote", `{"parent":"`+tools.ID+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("demote status = %d, body %s", rec.Code, rec.Body)
	}
	if tree := decodeTree(t, rec); len(tree) != 2 || len(tree[0].Children) != 1 {
		t.Errorf("tree after demote = %+v", tree)
	}

	if rec := f.do(http.MethodPost, "/api/categories/"+tools.ID+"/promote", ""); rec.Code != http.StatusConflict {
		t.Errorf("promote top level status = %d, want 409", rec.Code)
	}

	if _, err := f.dir.AddWebsite(t.Context(), directory.Website{Name: "Go", URL: "https://go.dev", Category: docs.ID}); err != nil {
		t.Fatalf("AddWebsite() error = %v", err)
	}
	if rec := f.do(http.MethodDelete, "/api/categories/"+docs.ID, ""); rec.Code != http.StatusConflict {
		t.Errorf("delete used category status = %d, want 409", rec.Code)
	}
	if rec := f.do(http.MethodDelete, "/api/categories/"+cli.ID, ""); rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := f.do(http.MethodDelete, "/api/categories/"+cli.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestWebsiteEditRoutes(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	cat, err := f.dir.AddCategory(ctx, directory.Category{Name: "Tools"}, "")
	if err != nil {
		t.Fatalf("AddCategory() error = %v", err)
	}
	goSite, err := f.dir.AddWebsite(ctx, directory.Website{Name: "Go", URL: "https://go.dev", Category: cat.ID})
	if err != nil {
		t.Fatalf("AddWebsite() error = %v", err)
	}
	rust, err := f.dir.AddWebsite(ctx, directory.Website{Name: "Rust", URL: "https://www.rust-lang.org", Category: cat.ID})
	if err != nil {
		t.Fatalf("AddWebsite() error = %v", err)
	}

	rec := f.do(http.MethodPatch, "/api/websites/"+goSite.ID,
		`{"name":"Go docs","url":"https://go.dev/doc","category":"`+cat.ID+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body)
	}
	var updated directory.Website
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.ID != goSite.ID || updated.Name != "Go docs" || !updated.CreatedAt.Equal(goSite.CreatedAt) {
		t.Errorf("updated = %+v", updated)
	}

	rec = f.do(http.MethodPatch, "/api/websites/"+goSite.ID,
		`{"name":"Clash","url":"https://www.rust-lang.org/","category":"`+cat.ID+`"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("url clash status = %d, want 409", rec.Code)
	}
	rec = f.do(http.MethodPatch, "/api/websites/missing",
		`{"name":"Ghost","url":"https://ghost.example.org","category":"`+cat.ID+`"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown website status = %d, want 404", rec.Code)
	}

	if rec := f.do(http.MethodPut, "/api/websites/order", `{"ids":["`+rust.ID+`"]}`); rec.Code != http.StatusNoContent {
		t.Fatalf("reorder status = %d, body %s", rec.Code, rec.Body)
	}
	sites, err := f.dir.ListWebsites(ctx)
	if err != nil || len(sites) != 2 || sites[0].ID != rust.ID {
		t.Errorf("order after reorder = %+v, %v", sites, err)
	}
	if rec := f.do(http.MethodPut, "/api/websites/order", `{"ids":["nope"]}`); rec.Code != http.StatusNotFound {
		t.Errorf("reorder unknown status = %d, want 404", rec.Code)
	}
}

func TestFriendAndConfigRoutes(t *testing.T) {
	f := newFixture(t, nil)

	if rec := f.do(http.MethodPost, "/api/friends", `{"name":"Blog","url":"https://blog.example.org"}`); rec.Code != http.StatusCreated {
		t.Fatalf("add friend status = %d, body %s", rec.Code, rec.Body)
	}
	if rec := f.do(http.MethodPost, "/api/friends", `{"name":"Blog","url":"https://blog.example.org/"}`); rec.Code != http.StatusConflict {
		t.Errorf("duplicate friend status = %d, want 409", rec.Code)
	}
	if rec := f.do(http.MethodDelete, "/api/friends", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("remove without url status = %d, want 400", rec.Code)
	}
	if rec := f.do(http.MethodDelete, "/api/friends?url=https://blog.example.org", ""); rec.Code != http.StatusNoContent {
		t.Errorf("remove friend status = %d", rec.Code)
	}
	if rec := f.do(http.MethodDelete, "/api/friends?url=https://blog.example.org", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second remove status = %d, want 404", rec.Code)
	}

	if rec := f.do(http.MethodPut, "/api/config", `{"title":"My links","footer":"hi"}`); rec.Code != http.StatusOK {
		t.Fatalf("update config status = %d, body %s", rec.Code, rec.Body)
	}
	var cfg directory.SiteConfig
	if err := json.Unmarshal(f.do(http.MethodGet, "/api/config", "").Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Title != "My links" || cfg.Footer != "hi" {
		t.Errorf("config = %+v", cfg)
	}
	if rec := f.do(http.MethodPut, "/api/config", `{"title":""}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid config status = %d, want 422", rec.Code)
	}
}

func TestDirectoryAdminRoutes_CIDRRestricted(t *testing.T) {
	f := newFixture(t, func(d *deps.Deps) { d.AllowedCIDRS = []string{"10.0.0.0/8"} })
	for _, c := range []struct{ method, path string }{
		{http.MethodPost, "/api/categories"},
		{http.MethodPut, "/api/config"},
		{http.MethodPost, "/api/friends"},
		{http.MethodPut, "/api/websites/order"},
	} {
		if rec := f.do(c.method, c.path, `{}`); rec.Code != http.StatusForbidden {
			t.Errorf("%s %s status = %d, want 403", c.method, c.path, rec.Code)
		}
	}
}

func TestEmptyListsEncodeAsArrays(t *testing.T) {
	f := newFixture(t, nil)
	for _, path := range []string{"/api/websites", "/api/categories", "/api/friends", "/api/submissions"} {
		rec := f.do(http.MethodGet, path, "")
		if strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Errorf("GET %s = %q, want []", path, rec.Body)
		}
	}
}

func TestSubmissionFlow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	cat, err := f.dir.AddCategory(ctx, directory.Category{Name: "Docs"}, "")
	if err != nil {
		t.Fatalf("AddCategory() error = %v", err)
	}

	rec := f.do(http.MethodPost, "/api/submissions",
		`{"name":"MDN","url":"https://developer.mozilla.org","category":"`+cat.ID+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body)
	}
	var sub struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil || sub.ID == "" {
		t.Fatalf("submit body = %s", rec.Body)
	}

	if rec := f.do(http.MethodPost, "/api/submissions", `{"name":"x","url":"https://a.b","unknown":1}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown field status = %d, want 400", rec.Code)
	}

	rec = f.do(http.MethodPost, "/api/submissions/"+sub.ID+"/approve", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status = %d, body %s", rec.Code, rec.Body)
	}
	if rec := f.do(http.MethodPost, "/api/submissions/"+sub.ID+"/reject", ""); rec.Code != http.StatusNotFound {
		t.Errorf("reject after approve status = %d, want 404", rec.Code)
	}

	sites, err := f.dir.ListWebsites(ctx)
	if err != nil || len(sites) != 1 {
		t.Fatalf("websites = %v, %v", sites, err)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	f := newFixture(t, nil)

	if rec := f.do(http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
	// The config document is missing; the store still answered.
	if rec := f.do(http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d", rec.Code)
	}
	rec := f.do(http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Errorf("metrics status = %d", rec.Code)
	}

	rec = f.do(http.MethodGet, "/infra", "")
	var infra struct {
		Mode string `json:"mode"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &infra); err != nil {
		t.Fatalf("decode infra: %v", err)
	}
	if infra.Mode != "operational" {
		t.Errorf("infra mode = %q, want operational", infra.Mode)
	}
}

func TestReadiness_StoreDown(t *testing.T) {
	f := newFixture(t, func(d *deps.Deps) { d.Store = failingStore{} })
	if rec := f.do(http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d, want 503", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "Not Found") {
		t.Errorf("unknown route = %d %q", rec.Code, rec.Body)
	}
	if rec := f.do(http.MethodPut, "/healthz", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("wrong method = %d, want 405", rec.Code)
	}
}

func TestServeAndStop(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := New(&config.Config{}, logger.Nop(), deps.Deps{Logger: logger.Nop(), Store: memory.New()})

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Serve() after Stop = %v, want nil", err)
	}
}
