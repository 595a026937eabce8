package icon

import (
	"bytes"
	"io"
	"net/http"
	"sync"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x10\x00\x00\x00\x10\x08\x06\x00\x00\x00")

type route func(req *http.Request) (*http.Response, error)

// fakeDoer answers by exact URL and records every request. Unknown URLs get a 404.
type fakeDoer struct {
	mu     sync.Mutex
	routes map[string]route
	calls  []string
}

func newFakeDoer() *fakeDoer {
	return &fakeDoer{routes: make(map[string]route)}
}

func (f *fakeDoer) on(url string, r route) *fakeDoer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[url] = r
	return f
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.URL.String())
	r, ok := f.routes[req.URL.String()]
	f.mu.Unlock()

	if !ok {
		return respond(http.StatusNotFound, "text/plain", []byte("not found")), nil
	}
	return r(req)
}

func (f *fakeDoer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func respond(status int, contentType string, body []byte) *http.Response {
	h := make(http.Header)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(bytes.NewReader(body)),
	}
}

func serve(status int, contentType string, body []byte) route {
	return func(*http.Request) (*http.Response, error) {
		return respond(status, contentType, body), nil
	}
}

// hang blocks until the request context ends.
func hang(req *http.Request) (*http.Response, error) {
	<-req.Context().Done()
	return nil, req.Context().Err()
}
