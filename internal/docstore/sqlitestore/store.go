// Package sqlitestore implements docstore.Store on a local SQLite file.
// The revision is an integer column; a CAS write is an UPDATE guarded by it.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/MrSnakeDoc/sitedir/internal/docstore"
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
	path    TEXT PRIMARY KEY,
	content BLOB NOT NULL,
	rev     INTEGER NOT NULL
)`

type Store struct {
	db *sql.DB
}

var _ docstore.Store = (*Store)(nil)

// Open opens (or creates) the database at dsn and ensures the schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// One writer at a time keeps "database is locked" out of the picture.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Read(ctx context.Context, path string) (docstore.Document, error) {
	path = docstore.CleanPath(path)

	var (
		content []byte
		rev     int64
	)
	err := s.db.QueryRowContext(ctx, "SELECT content, rev FROM documents WHERE path = ?", path).Scan(&content, &rev)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return docstore.Document{Path: path, Content: content, Revision: strconv.FormatInt(rev, 10)}, nil
}

func (s *Store) Write(ctx context.Context, path string, content []byte, expected *string) (string, error) {
	path = docstore.CleanPath(path)
	if content == nil {
		content = []byte{}
	}

	if expected == nil {
		_, err := s.db.ExecContext(ctx, "INSERT INTO documents (path, content, rev) VALUES (?, ?, 1)", path, content)
		if isUniqueViolation(err) {
			return "", docstore.ErrAlreadyExists
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", path, err)
		}
		return "1", nil
	}

	exp, err := strconv.ParseInt(*expected, 10, 64)
	if err != nil {
		return "", docstore.ErrConflict
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE documents SET content = ?, rev = rev + 1 WHERE path = ? AND rev = ?", content, path, exp)
	if err != nil {
		return "", fmt.Errorf("update %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", path, err)
	}
	if n == 0 {
		return "", docstore.ErrConflict
	}
	return strconv.FormatInt(exp+1, 10), nil
}

func (s *Store) Delete(ctx context.Context, path string, expected string) error {
	path = docstore.CleanPath(path)

	exp, err := strconv.ParseInt(expected, 10, 64)
	if err != nil {
		exp = -1
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE path = ? AND rev = ?", path, exp)
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	// Nothing deleted: tell apart a missing path from a stale token.
	if _, err := s.Read(ctx, path); err != nil {
		return err
	}
	return docstore.ErrConflict
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrConstraint
	}
	return false
}
