// Package directory manages the site's JSON documents: websites, the
// category tree, the submission queue, friend links and the site config.
// Every change is a read-modify-write cycle through mutate.Service, so
// concurrent editors never silently overwrite each other.
package directory

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/sitedir/internal/logger"
	"github.com/MrSnakeDoc/sitedir/internal/mutate"
)

var (
	ErrNotFound      = errors.New("directory: entry not found")
	ErrDuplicate     = errors.New("directory: duplicate entry")
	ErrInvalid       = errors.New("directory: invalid entry")
	ErrCategoryInUse = errors.New("directory: category in use")
	ErrInvalidMove   = errors.New("directory: invalid category move")
)

type Service struct {
	mut    *mutate.Service
	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

func New(mut *mutate.Service, log logger.Logger) *Service {
	return &Service{
		mut:    mut,
		logger: log,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func readList[T any](ctx context.Context, s *Service, path string) ([]T, error) {
	list, _, err := mutate.ReadJSON[[]T](ctx, s.mut.Store(), path)
	return list, err
}

// canonicalURL is the form URLs are compared in: lower-cased scheme and
// host, no fragment, no trailing slash.
func canonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.ToLower(raw), "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}

func sameURL(a, b string) bool { return canonicalURL(a) == canonicalURL(b) }

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
