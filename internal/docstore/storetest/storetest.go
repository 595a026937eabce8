// Package storetest holds the behaviour every docstore backend must share.
package storetest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/MrSnakeDoc/sitedir/internal/docstore"
)

// Run exercises the read / create-only / CAS write / CAS delete contract
// against a fresh store returned by newStore for each subtest.
func Run(t *testing.T, newStore func(t *testing.T) docstore.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("read missing", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Read(ctx, "icons/missing.example"); !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("Read() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("create then read", func(t *testing.T) {
		s := newStore(t)
		rev, err := s.Write(ctx, "data/websites.json", []byte(`[]`), nil)
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if rev == "" {
			t.Fatal("Write() returned empty revision")
		}

		doc, err := s.Read(ctx, "data/websites.json")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if !bytes.Equal(doc.Content, []byte(`[]`)) {
			t.Errorf("Read() content = %q", doc.Content)
		}
		if doc.Revision != rev {
			t.Errorf("Read() revision = %q, want %q", doc.Revision, rev)
		}
	})

	t.Run("create only rejects occupied path", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Write(ctx, "a.json", []byte("1"), nil); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if _, err := s.Write(ctx, "a.json", []byte("2"), nil); !errors.Is(err, docstore.ErrAlreadyExists) {
			t.Fatalf("second create error = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("cas write", func(t *testing.T) {
		s := newStore(t)
		rev1, err := s.Write(ctx, "a.json", []byte("1"), nil)
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		rev2, err := s.Write(ctx, "a.json", []byte("2"), docstore.Rev(rev1))
		if err != nil {
			t.Fatalf("CAS Write() error = %v", err)
		}
		if rev2 == rev1 {
			t.Error("CAS Write() must produce a new revision")
		}

		// Stale token loses.
		if _, err := s.Write(ctx, "a.json", []byte("3"), docstore.Rev(rev1)); !errors.Is(err, docstore.ErrConflict) {
			t.Fatalf("stale Write() error = %v, want ErrConflict", err)
		}

		doc, err := s.Read(ctx, "a.json")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if string(doc.Content) != "2" {
			t.Errorf("content = %q, want %q", doc.Content, "2")
		}
	})

	t.Run("cas write on missing path conflicts", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Write(ctx, "gone.json", []byte("x"), docstore.Rev("1")); !errors.Is(err, docstore.ErrConflict) {
			t.Fatalf("Write() error = %v, want ErrConflict", err)
		}
	})

	t.Run("cas delete", func(t *testing.T) {
		s := newStore(t)
		rev1, err := s.Write(ctx, "icons/example.com", []byte("x"), nil)
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		rev2, err := s.Write(ctx, "icons/example.com", []byte("y"), docstore.Rev(rev1))
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		if err := s.Delete(ctx, "icons/example.com", rev1); !errors.Is(err, docstore.ErrConflict) {
			t.Fatalf("stale Delete() error = %v, want ErrConflict", err)
		}
		if err := s.Delete(ctx, "icons/example.com", rev2); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := s.Read(ctx, "icons/example.com"); !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("Read() after delete error = %v, want ErrNotFound", err)
		}
		if err := s.Delete(ctx, "icons/example.com", rev2); !errors.Is(err, docstore.ErrNotFound) {
			t.Fatalf("Delete() on missing error = %v, want ErrNotFound", err)
		}
	})

	t.Run("binary safe", func(t *testing.T) {
		s := newStore(t)
		payload := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff, 0x0a}
		if _, err := s.Write(ctx, "icons/bin.example", payload, nil); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		doc, err := s.Read(ctx, "icons/bin.example")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if !bytes.Equal(doc.Content, payload) {
			t.Errorf("content = %v, want %v", doc.Content, payload)
		}
	})
}
