// Package redisstore implements docstore.Store on Redis. Each document is a
// hash {content, rev}; the compare-and-swap is done server side in Lua so the
// check and the write cannot interleave with another client.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/sitedir/internal/docstore"
)

const (
	codeExists   = -1
	codeConflict = -2
	codeMissing  = -3
)

// KEYS[1] document, KEYS[2] its revision counter; ARGV[1] content, ARGV[2] expected rev ("" = create-only).
var writeScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'rev')
if ARGV[2] == '' then
  if cur then return -1 end
else
  if not cur or cur ~= ARGV[2] then return -2 end
end
local rev = redis.call('INCR', KEYS[2])
redis.call('HSET', KEYS[1], 'content', ARGV[1], 'rev', tostring(rev))
return rev
`)

// KEYS[1] document; ARGV[1] expected rev.
var deleteScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'rev')
if not cur then return -3 end
if cur ~= ARGV[1] then return -2 end
redis.call('DEL', KEYS[1])
return 1
`)

// Store handles Redis operations for documents.
type Store struct {
	client redis.UniversalClient
}

var _ docstore.Store = (*Store)(nil)

// NewStore creates a new Redis document store
func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) Read(ctx context.Context, path string) (docstore.Document, error) {
	path = docstore.CleanPath(path)

	vals, err := s.client.HMGet(ctx, DocumentKey(path), "content", "rev").Result()
	if err != nil {
		return docstore.Document{}, fmt.Errorf("failed to read document %s: %w", path, err)
	}
	if len(vals) != 2 || vals[1] == nil {
		return docstore.Document{}, docstore.ErrNotFound
	}

	content, _ := vals[0].(string)
	rev, ok := vals[1].(string)
	if !ok {
		return docstore.Document{}, fmt.Errorf("document %s has malformed revision %v", path, vals[1])
	}

	return docstore.Document{Path: path, Content: []byte(content), Revision: rev}, nil
}

func (s *Store) Write(ctx context.Context, path string, content []byte, expected *string) (string, error) {
	path = docstore.CleanPath(path)

	exp := ""
	if expected != nil {
		exp = *expected
		if exp == "" {
			return "", docstore.ErrConflict
		}
	}

	code, err := writeScript.Run(ctx, s.client,
		[]string{DocumentKey(path), RevisionKey(path)}, content, exp).Int64()
	if err != nil {
		return "", fmt.Errorf("failed to write document %s: %w", path, err)
	}

	switch code {
	case codeExists:
		return "", docstore.ErrAlreadyExists
	case codeConflict:
		return "", docstore.ErrConflict
	}
	return strconv.FormatInt(code, 10), nil
}

func (s *Store) Delete(ctx context.Context, path string, expected string) error {
	path = docstore.CleanPath(path)

	code, err := deleteScript.Run(ctx, s.client, []string{DocumentKey(path)}, expected).Int64()
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", path, err)
	}

	switch code {
	case codeMissing:
		return docstore.ErrNotFound
	case codeConflict:
		return docstore.ErrConflict
	}
	return nil
}

// Ping reports whether Redis answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
