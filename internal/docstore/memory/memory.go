// Package memory is an in-process docstore backend. It backs tests and the
// "memory" backend option for local development.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/MrSnakeDoc/sitedir/internal/docstore"
)

type entry struct {
	content []byte
	rev     uint64
}

// Store keeps documents in a map guarded by a mutex.
type Store struct {
	mu      sync.Mutex
	docs    map[string]entry
	nextRev uint64

	// Hooks for tests. Called with the lock released.
	BeforeWrite func(path string)
}

func New() *Store {
	return &Store{docs: make(map[string]entry)}
}

func (s *Store) Read(_ context.Context, path string) (docstore.Document, error) {
	path = docstore.CleanPath(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.docs[path]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return docstore.Document{
		Path:     path,
		Content:  append([]byte(nil), e.content...),
		Revision: formatRev(e.rev),
	}, nil
}

func (s *Store) Write(_ context.Context, path string, content []byte, expected *string) (string, error) {
	path = docstore.CleanPath(path)
	if s.BeforeWrite != nil {
		s.BeforeWrite(path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.docs[path]
	if expected == nil {
		if exists {
			return "", docstore.ErrAlreadyExists
		}
	} else if !exists || formatRev(cur.rev) != *expected {
		return "", docstore.ErrConflict
	}

	s.nextRev++
	s.docs[path] = entry{content: append([]byte(nil), content...), rev: s.nextRev}
	return formatRev(s.nextRev), nil
}

func (s *Store) Delete(_ context.Context, path string, expected string) error {
	path = docstore.CleanPath(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.docs[path]
	if !exists {
		return docstore.ErrNotFound
	}
	if formatRev(cur.rev) != expected {
		return docstore.ErrConflict
	}
	delete(s.docs, path)
	return nil
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func formatRev(r uint64) string { return strconv.FormatUint(r, 10) }
