// Package docstore is the key/value view over the version-controlled content
// host. Every mutation in sitedir is a read followed by a compare-and-swap
// write that presents the revision token obtained from that read.
package docstore

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when the path does not exist.
	ErrNotFound = errors.New("docstore: not found")
	// ErrConflict is returned when the presented revision is not the live one.
	ErrConflict = errors.New("docstore: revision conflict")
	// ErrAlreadyExists is returned by a create-only write on an occupied path.
	ErrAlreadyExists = errors.New("docstore: already exists")
)

// Document is a stored blob plus the revision token it was read at.
type Document struct {
	Path     string
	Content  []byte
	Revision string
}

// Store is implemented by every backend.
//
// Write with expected == nil is create-only. Write with a non-nil expected
// revision succeeds only if it still matches the live revision; a path that
// disappeared in between is reported as ErrConflict too.
type Store interface {
	Read(ctx context.Context, path string) (Document, error)
	Write(ctx context.Context, path string, content []byte, expected *string) (string, error)
	Delete(ctx context.Context, path string, expected string) error
}

// Rev is a convenience for passing an expected revision.
func Rev(r string) *string { return &r }

// CleanPath normalises a logical path: no leading or trailing slash, no empty segments.
func CleanPath(p string) string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, s := range parts {
		s = strings.TrimSpace(s)
		if s == "" || s == "." {
			continue
		}
		out = append(out, s)
	}
	return strings.Join(out, "/")
}

// IsConflict reports whether err means "someone wrote first, re-read and retry".
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrAlreadyExists)
}
