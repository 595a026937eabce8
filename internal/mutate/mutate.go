// Package mutate runs read-modify-write cycles against the document store.
//
// A transform is applied to the content read at revision R and written back
// with R as the expected revision. When another writer got there first the
// document is re-read and the transform re-applied to the fresh content, so
// transforms must be pure functions of their input.
package mutate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/sitedir/internal/docstore"
	"github.com/MrSnakeDoc/sitedir/internal/logger"
)

// DefaultMaxAttempts is the number of read-apply-write rounds before giving up.
const DefaultMaxAttempts = 4

// ErrNoChange may be returned by a transform to skip the write.
var ErrNoChange = errors.New("mutate: no change")

// TransformFunc computes the new content from the current one.
// exists is false when the document has never been written.
type TransformFunc func(current []byte, exists bool) ([]byte, error)

// Result describes a finished mutation.
type Result struct {
	Revision string // revision after the write, or the unchanged one on ErrNoChange
	Attempts int
	Changed  bool
}

type Service struct {
	store       docstore.Store
	logger      logger.Logger
	maxAttempts int
	observe     func(path string, attempts int, err error)
}

type Option func(*Service)

// WithMaxAttempts overrides the conflict retry budget.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithObserver registers a callback invoked once per finished Mutate call.
func WithObserver(fn func(path string, attempts int, err error)) Option {
	return func(s *Service) { s.observe = fn }
}

func New(store docstore.Store, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:       store,
		logger:      log,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying document store for plain reads.
func (s *Service) Store() docstore.Store { return s.store }

// Mutate applies fn to the document at path under CAS and returns the new revision.
// When the retry budget is exhausted the returned error matches docstore.ErrConflict.
func (s *Service) Mutate(ctx context.Context, path string, fn TransformFunc) (Result, error) {
	res, err := s.mutate(ctx, path, fn)
	if s.observe != nil {
		s.observe(path, res.Attempts, err)
	}
	return res, err
}

func (s *Service) mutate(ctx context.Context, path string, fn TransformFunc) (Result, error) {
	var res Result

	for res.Attempts < s.maxAttempts {
		res.Attempts++

		var (
			current  []byte
			expected *string
			exists   bool
		)
		doc, err := s.store.Read(ctx, path)
		switch {
		case err == nil:
			current, exists = doc.Content, true
			expected = docstore.Rev(doc.Revision)
			res.Revision = doc.Revision
		case errors.Is(err, docstore.ErrNotFound):
		default:
			return res, fmt.Errorf("mutate %s: read: %w", path, err)
		}

		next, err := fn(current, exists)
		if errors.Is(err, ErrNoChange) {
			return res, nil
		}
		if err != nil {
			return res, err
		}

		rev, err := s.store.Write(ctx, path, next, expected)
		if err == nil {
			res.Revision, res.Changed = rev, true
			return res, nil
		}
		if !docstore.IsConflict(err) {
			return res, fmt.Errorf("mutate %s: write: %w", path, err)
		}

		s.logger.Debug("document changed underneath, retrying",
			logger.String("path", path),
			logger.Int("attempt", res.Attempts))

		if err := ctx.Err(); err != nil {
			return res, err
		}
	}

	s.logger.Warn("giving up on document mutation after repeated conflicts",
		logger.String("path", path),
		logger.Int("attempts", res.Attempts))

	return res, fmt.Errorf("mutate %s: %d attempts: %w", path, res.Attempts, docstore.ErrConflict)
}

// JSON runs a typed transform over a JSON document. A missing document
// decodes as the zero value of T.
func JSON[T any](ctx context.Context, s *Service, path string, fn func(doc *T) error) (Result, error) {
	return s.Mutate(ctx, path, func(current []byte, exists bool) ([]byte, error) {
		var doc T
		if exists && len(current) > 0 {
			if err := json.Unmarshal(current, &doc); err != nil {
				return nil, fmt.Errorf("decode %s: %w", path, err)
			}
		}
		if err := fn(&doc); err != nil {
			return nil, err
		}
		return json.MarshalIndent(doc, "", "  ")
	})
}

// ReadJSON reads and decodes a JSON document. A missing document yields the zero value.
func ReadJSON[T any](ctx context.Context, store docstore.Store, path string) (T, string, error) {
	var doc T
	d, err := store.Read(ctx, path)
	if errors.Is(err, docstore.ErrNotFound) {
		return doc, "", nil
	}
	if err != nil {
		return doc, "", err
	}
	if len(d.Content) > 0 {
		if err := json.Unmarshal(d.Content, &doc); err != nil {
			return doc, "", fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return doc, d.Revision, nil
}
