package icon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/MrSnakeDoc/sitedir/internal/logger"
	"github.com/MrSnakeDoc/sitedir/internal/metrics"
	"github.com/MrSnakeDoc/sitedir/internal/utils"
)

const (
	// DefaultFetchTimeout bounds a single candidate.
	DefaultFetchTimeout = 8 * time.Second
	// MaxIconBytes caps the body read from any candidate.
	MaxIconBytes = 1 << 20
)

var (
	// ErrSourceUnavailable matches every per-candidate failure.
	ErrSourceUnavailable = errors.New("icon: source unavailable")
	// ErrAllSourcesExhausted is reported when no candidate produced an image.
	ErrAllSourcesExhausted = errors.New("icon: all sources exhausted")
)

// Reasons a candidate is rejected.
const (
	ReasonInvalidURL  = "invalid-url"
	ReasonTransport   = "transport"
	ReasonTimeout     = "timeout"
	ReasonStatus      = "status"
	ReasonContentType = "content-type"
	ReasonEmpty       = "empty"
	ReasonTooLarge    = "too-large"
	ReasonNotImage    = "not-image"
)

// SourceError is the failed outcome of one candidate.
type SourceError struct {
	Candidate Candidate
	Reason    string
	Status    int
	Err       error
}

func (e *SourceError) Error() string {
	msg := fmt.Sprintf("icon source %s (%s): %s", e.Candidate.Name, e.Candidate.URL, e.Reason)
	if e.Status != 0 {
		msg += fmt.Sprintf(" %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SourceError) Unwrap() error { return e.Err }

func (e *SourceError) Is(target error) bool { return target == ErrSourceUnavailable }

// Attempt is the typed outcome of one candidate: Err == nil means it was accepted.
type Attempt struct {
	Candidate Candidate
	Err       error
	Elapsed   time.Duration
}

// Result is what a pipeline run produced.
type Result struct {
	Host     string
	Icon     Icon
	Found    bool
	Attempts []Attempt
}

// Err returns nil when an icon was found, ErrAllSourcesExhausted otherwise.
func (r Result) Err() error {
	if r.Found {
		return nil
	}
	return ErrAllSourcesExhausted
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher is what the cache manager needs from a pipeline.
type Fetcher interface {
	Fetch(ctx context.Context, input, override string) Result
}

type Pipeline struct {
	client    HTTPDoer
	sources   []Source
	timeout   time.Duration
	userAgent string
	logger    logger.Logger
}

type PipelineOption func(*Pipeline)

// WithSources replaces the default candidate order.
func WithSources(sources []Source) PipelineOption {
	return func(p *Pipeline) { p.sources = sources }
}

// WithTimeout sets the per-candidate bound.
func WithTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithUserAgent(ua string) PipelineOption {
	return func(p *Pipeline) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

// NewPipeline builds a pipeline. client may be nil.
func NewPipeline(client HTTPDoer, log logger.Logger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		client:    client,
		sources:   DefaultSources,
		timeout:   DefaultFetchTimeout,
		userAgent: "sitedir-icon-fetcher/1.0",
		logger:    log,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = &http.Client{}
	}
	return p
}

// Fetch tries candidates strictly in order and returns the first image.
// A malformed input makes no attempt at all. Each candidate is bounded by
// the pipeline timeout only; cancelling ctx does not abort an attempt.
func (p *Pipeline) Fetch(ctx context.Context, input, override string) Result {
	host, err := ParseHost(input)
	if err != nil {
		p.logger.Debug("icon pipeline skipped: unparsable input", logger.String("input", input))
		return Result{}
	}

	res := Result{Host: host}
	for _, c := range Candidates(p.sources, host, override) {
		start := time.Now()
		icon, err := p.try(ctx, c)
		res.Attempts = append(res.Attempts, Attempt{Candidate: c, Err: err, Elapsed: time.Since(start)})

		if err != nil {
			var se *SourceError
			reason := ReasonTransport
			if errors.As(err, &se) {
				reason = se.Reason
			}
			metrics.IconSourceAttempts.WithLabelValues(c.Name, reason).Inc()
			p.logger.Debug("icon source failed",
				logger.String("host", host),
				logger.String("source", c.Name),
				logger.String("reason", reason),
				logger.Error(err))
			continue
		}

		metrics.IconSourceAttempts.WithLabelValues(c.Name, "ok").Inc()
		res.Icon, res.Found = icon, true
		return res
	}

	p.logger.Info("no icon source succeeded",
		logger.String("host", host),
		logger.Int("attempts", len(res.Attempts)))
	return res
}

func (p *Pipeline) try(ctx context.Context, c Candidate) (Icon, error) {
	fail := func(reason string, status int, err error) (Icon, error) {
		return Icon{}, &SourceError{Candidate: c, Reason: reason, Status: status, Err: err}
	}

	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fail(ReasonInvalidURL, 0, err)
	}

	attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, c.URL, http.NoBody)
	if err != nil {
		return fail(ReasonInvalidURL, 0, err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return fail(ReasonTimeout, 0, err)
		}
		return fail(ReasonTransport, 0, err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(ReasonStatus, resp.StatusCode, nil)
	}

	contentType := mediaType(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(contentType, "image/") {
		return fail(ReasonContentType, resp.StatusCode, fmt.Errorf("declared %q", contentType))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxIconBytes+1))
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return fail(ReasonTimeout, resp.StatusCode, err)
		}
		return fail(ReasonTransport, resp.StatusCode, err)
	}
	switch {
	case len(data) == 0:
		return fail(ReasonEmpty, resp.StatusCode, nil)
	case len(data) > MaxIconBytes:
		return fail(ReasonTooLarge, resp.StatusCode, nil)
	}

	// Some services answer image/* with an HTML error page.
	if sniffed := mimetype.Detect(data); sniffed.Is("text/html") || sniffed.Is("application/json") {
		return fail(ReasonNotImage, resp.StatusCode, fmt.Errorf("body looks like %s", sniffed.String()))
	}

	return Icon{Data: data, ContentType: contentType, Source: c.Name}, nil
}

func mediaType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(header))
	}
	return mt
}
