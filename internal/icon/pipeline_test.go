package icon

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/sitedir/internal/logger"
)

var testSources = []Source{
	{Name: "first", Template: "https://one.test/{host}.ico"},
	{Name: "second", Template: "https://two.test/{host}.ico"},
	{Name: "third", Template: "https://three.test/{host}.ico"},
}

func newTestPipeline(doer HTTPDoer, opts ...PipelineOption) *Pipeline {
	opts = append([]PipelineOption{WithSources(testSources)}, opts...)
	return NewPipeline(doer, logger.Nop(), opts...)
}

func TestPipeline_FirstCandidateWins(t *testing.T) {
	doer := newFakeDoer().
		on("https://one.test/example.com.ico", serve(200, "image/png", pngBytes)).
		on("https://three.test/example.com.ico", serve(200, "image/png", []byte("\x89PNG\r\n\x1a\nother")))

	res := newTestPipeline(doer).Fetch(t.Context(), "example.com", "")

	if !res.Found || res.Err() != nil {
		t.Fatalf("Fetch() found = %v, err = %v", res.Found, res.Err())
	}
	if !bytes.Equal(res.Icon.Data, pngBytes) || res.Icon.Source != "first" {
		t.Errorf("icon = %s from %q, want first candidate bytes", res.Icon.ContentType, res.Icon.Source)
	}
	if calls := doer.Calls(); len(calls) != 1 {
		t.Errorf("calls = %v, want exactly one", calls)
	}
	if len(res.Attempts) != 1 || res.Attempts[0].Err != nil {
		t.Errorf("attempts = %+v", res.Attempts)
	}
}

func TestPipeline_FallsThroughInOrder(t *testing.T) {
	doer := newFakeDoer().
		on("https://one.test/example.com.ico", serve(500, "text/plain", []byte("boom"))).
		on("https://two.test/example.com.ico", serve(200, "text/html", []byte("<html></html>"))).
		on("https://three.test/example.com.ico", serve(200, "image/x-icon; charset=binary", pngBytes))

	res := newTestPipeline(doer).Fetch(t.Context(), "https://example.com/some/page", "")

	if !res.Found || res.Icon.Source != "third" {
		t.Fatalf("Fetch() = %+v, want third candidate", res)
	}
	if res.Icon.ContentType != "image/x-icon" {
		t.Errorf("content type = %q, want parameters stripped", res.Icon.ContentType)
	}

	want := []string{ReasonStatus, ReasonContentType}
	for i, reason := range want {
		var se *SourceError
		if !errors.As(res.Attempts[i].Err, &se) || se.Reason != reason {
			t.Errorf("attempt %d error = %v, want reason %s", i, res.Attempts[i].Err, reason)
		}
		if !errors.Is(res.Attempts[i].Err, ErrSourceUnavailable) {
			t.Errorf("attempt %d should match ErrSourceUnavailable", i)
		}
	}
}

func TestPipeline_RejectsBodies(t *testing.T) {
	tests := []struct {
		name   string
		route  route
		reason string
	}{
		{"empty body", serve(200, "image/png", nil), ReasonEmpty},
		{"html error page", serve(200, "image/png", []byte("<!DOCTYPE html><html><body>blocked</body></html>")), ReasonNotImage},
		{"too large", serve(200, "image/png", bytes.Repeat([]byte{0x01}, MaxIconBytes+1)), ReasonTooLarge},
		{"no content type", serve(200, "", pngBytes), ReasonContentType},
		{"redirect status", serve(302, "image/png", pngBytes), ReasonStatus},
		{"transport", func(*http.Request) (*http.Response, error) { return nil, errors.New("connection refused") }, ReasonTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := newFakeDoer().on("https://only.test/example.com", tt.route)
			p := NewPipeline(doer, logger.Nop(), WithSources([]Source{{Name: "only", Template: "https://only.test/{host}"}}))

			res := p.Fetch(t.Context(), "example.com", "")
			if res.Found {
				t.Fatal("Fetch() should not accept the body")
			}
			if !errors.Is(res.Err(), ErrAllSourcesExhausted) {
				t.Errorf("Err() = %v, want ErrAllSourcesExhausted", res.Err())
			}
			var se *SourceError
			if len(res.Attempts) != 1 || !errors.As(res.Attempts[0].Err, &se) || se.Reason != tt.reason {
				t.Errorf("attempts = %+v, want one with reason %s", res.Attempts, tt.reason)
			}
		})
	}
}

func TestPipeline_Timeout(t *testing.T) {
	doer := newFakeDoer().
		on("https://one.test/slow.test.ico", hang).
		on("https://two.test/slow.test.ico", serve(200, "image/png", pngBytes))

	res := newTestPipeline(doer, WithTimeout(20*time.Millisecond)).Fetch(t.Context(), "slow.test", "")

	if !res.Found || res.Icon.Source != "second" {
		t.Fatalf("Fetch() = %+v, want second candidate after timeout", res)
	}
	var se *SourceError
	if !errors.As(res.Attempts[0].Err, &se) || se.Reason != ReasonTimeout {
		t.Errorf("first attempt = %v, want timeout", res.Attempts[0].Err)
	}
}

func TestPipeline_IgnoresCallerCancellation(t *testing.T) {
	doer := newFakeDoer().on("https://one.test/example.com.ico", func(req *http.Request) (*http.Response, error) {
		if err := req.Context().Err(); err != nil {
			return nil, err
		}
		return respond(200, "image/png", pngBytes), nil
	})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if res := newTestPipeline(doer).Fetch(ctx, "example.com", ""); !res.Found {
		t.Fatalf("Fetch() with cancelled caller context = %+v, want success", res.Attempts)
	}
}

func TestPipeline_OverrideReplacesList(t *testing.T) {
	doer := newFakeDoer().
		on("https://one.test/example.com.ico", serve(200, "image/png", pngBytes)).
		on("https://cdn.test/logo.svg", serve(200, "image/svg+xml", []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`)))

	res := newTestPipeline(doer).Fetch(t.Context(), "example.com", "https://cdn.test/logo.svg")

	if !res.Found || res.Icon.Source != OverrideSource {
		t.Fatalf("Fetch() = %+v, want override", res)
	}
	if calls := doer.Calls(); len(calls) != 1 || calls[0] != "https://cdn.test/logo.svg" {
		t.Errorf("calls = %v, want only the override", calls)
	}
}

func TestPipeline_InvalidOverride(t *testing.T) {
	doer := newFakeDoer()
	res := newTestPipeline(doer).Fetch(t.Context(), "example.com", "ftp://cdn.test/logo.png")

	var se *SourceError
	if res.Found || len(res.Attempts) != 1 || !errors.As(res.Attempts[0].Err, &se) || se.Reason != ReasonInvalidURL {
		t.Fatalf("Fetch() = %+v, want one invalid-url attempt", res)
	}
	if len(doer.Calls()) != 0 {
		t.Error("an invalid override must not hit the network")
	}
}

func TestPipeline_MalformedInput(t *testing.T) {
	doer := newFakeDoer()
	for _, in := range []string{"", "   ", "http://", "bad host.com", "-lead.example"} {
		res := newTestPipeline(doer).Fetch(t.Context(), in, "")
		if res.Found || len(res.Attempts) != 0 {
			t.Errorf("Fetch(%q) = %+v, want no attempts", in, res)
		}
	}
	if len(doer.Calls()) != 0 {
		t.Errorf("calls = %v, want none", doer.Calls())
	}
}

func TestPipeline_SendsUserAgent(t *testing.T) {
	var ua string
	doer := newFakeDoer().on("https://one.test/example.com.ico", func(req *http.Request) (*http.Response, error) {
		ua = req.Header.Get("User-Agent")
		return respond(200, "image/png", pngBytes), nil
	})

	newTestPipeline(doer, WithUserAgent("sitedir-test/0")).Fetch(t.Context(), "example.com", "")

	if ua != "sitedir-test/0" {
		t.Errorf("User-Agent = %q", ua)
	}
}

func TestCandidates_DefaultOrder(t *testing.T) {
	got := Candidates(DefaultSources, "example.com", "")
	if len(got) != len(DefaultSources) {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].URL != "https://example.com/favicon.ico" {
		t.Errorf("first candidate = %q", got[0].URL)
	}
	for _, c := range got {
		if strings.Contains(c.URL, "{host}") {
			t.Errorf("%s left a placeholder: %s", c.Name, c.URL)
		}
	}
}
