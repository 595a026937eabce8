package icon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/sitedir/internal/docstore"
	"github.com/MrSnakeDoc/sitedir/internal/logger"
	"github.com/MrSnakeDoc/sitedir/internal/metrics"
)

// ErrCacheWriteFailed matches every CacheWriteError.
var ErrCacheWriteFailed = errors.New("icon: cache write failed")

// CacheWriteError means the icon returned alongside it was not cached.
type CacheWriteError struct {
	Domain string
	Err    error
}

func (e *CacheWriteError) Error() string {
	return fmt.Sprintf("icon cache write for %s failed: %v", e.Domain, e.Err)
}

func (e *CacheWriteError) Unwrap() error { return e.Err }

func (e *CacheWriteError) Is(target error) bool { return target == ErrCacheWriteFailed }

// cacheEntry is the stored form of a cached icon.
type cacheEntry struct {
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"data"`
	Source      string    `json:"source"`
	Synthesized bool      `json:"synthesized,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// CachedIcon is a cache entry together with its storage revision.
type CachedIcon struct {
	Domain    string
	Icon      Icon
	FetchedAt time.Time
	Revision  string
}

// Manager owns the icon cache entries in the document store.
type Manager struct {
	store   docstore.Store
	fetcher Fetcher
	logger  logger.Logger
	now     func() time.Time
}

func NewManager(store docstore.Store, fetcher Fetcher, log logger.Logger) *Manager {
	return &Manager{
		store:   store,
		fetcher: fetcher,
		logger:  log,
		now:     time.Now,
	}
}

// Resolve serves the cached icon for domain, fetching and caching it on a
// miss. When nothing can be fetched a placeholder is returned and cached on a
// best-effort basis. A returned *CacheWriteError comes with a usable icon.
// Misses for IP literals and hosts outside the public suffix list are never
// fetched; they get an uncached placeholder. Refresh is not restricted.
func (m *Manager) Resolve(ctx context.Context, domain string) (Icon, error) {
	key, err := NormalizeDomain(domain)
	if err != nil {
		m.logger.Debug("unparsable domain, serving placeholder", logger.String("domain", domain))
		metrics.IconResolutions.WithLabelValues("resolve", "synthesized").Inc()
		return Synthesize(domain), nil
	}

	cached, rev, err := m.lookup(ctx, key)
	if err == nil && cached != nil {
		metrics.IconResolutions.WithLabelValues("resolve", "hit").Inc()
		return cached.Icon, nil
	}
	if err != nil {
		m.logger.Warn("icon cache read failed, resolving without cache",
			logger.String("domain", key),
			logger.Error(err))
	}

	if !IsPublicHost(key) {
		m.logger.Debug("refusing to fetch icon for a non-public host", logger.String("domain", key))
		metrics.IconResolutions.WithLabelValues("resolve", "rejected").Inc()
		return Synthesize(key), nil
	}

	res := m.fetcher.Fetch(ctx, key, "")
	if res.Found {
		metrics.IconResolutions.WithLabelValues("resolve", "fetched").Inc()
		return res.Icon, m.persist(ctx, key, res.Icon, rev)
	}

	icon := Synthesize(key)
	metrics.IconResolutions.WithLabelValues("resolve", "synthesized").Inc()
	if werr := m.persist(ctx, key, icon, rev); werr != nil {
		m.logger.Warn("placeholder icon not cached",
			logger.String("domain", key),
			logger.Error(werr))
	}
	return icon, nil
}

// Refresh re-runs the pipeline regardless of the cache and overwrites the
// entry, using its revision when one exists. With override set only that URL
// is tried, and a miss returns ErrAllSourcesExhausted without writing.
// Without override a miss never replaces a fetched icon: the entry is kept
// and returned with Stale set. Only a missing or synthesized entry is
// replaced by a placeholder.
func (m *Manager) Refresh(ctx context.Context, domain, override string) (Icon, error) {
	key, err := NormalizeDomain(domain)
	if err != nil {
		return Icon{}, fmt.Errorf("%w: %q", ErrInvalidDomain, domain)
	}

	res := m.fetcher.Fetch(ctx, key, override)
	if !res.Found && override != "" {
		metrics.IconResolutions.WithLabelValues("refresh", "failed").Inc()
		return Icon{}, fmt.Errorf("refresh %s from %s: %w", key, override, res.Err())
	}

	cached, rev, lerr := m.lookup(ctx, key)
	if lerr != nil {
		m.logger.Warn("icon cache read failed before refresh",
			logger.String("domain", key),
			logger.Error(lerr))
	}

	if res.Found {
		metrics.IconResolutions.WithLabelValues("refresh", "fetched").Inc()
		return res.Icon, m.persist(ctx, key, res.Icon, rev)
	}

	if cached != nil && !cached.Icon.Synthesized {
		metrics.IconResolutions.WithLabelValues("refresh", "kept").Inc()
		m.logger.Info("refresh found no icon, keeping the cached one",
			logger.String("domain", key),
			logger.Time("fetched_at", cached.FetchedAt))
		kept := cached.Icon
		kept.Stale = true
		return kept, nil
	}

	icon := Synthesize(key)
	if lerr != nil {
		// The current entry is unknown and may hold a fetched icon.
		return icon, &CacheWriteError{Domain: key, Err: lerr}
	}
	metrics.IconResolutions.WithLabelValues("refresh", "synthesized").Inc()
	m.logger.Info("refresh found no icon, using placeholder", logger.String("domain", key))
	return icon, m.persist(ctx, key, icon, rev)
}

// Evict removes the cache entry for domain. A missing entry is not an error.
func (m *Manager) Evict(ctx context.Context, domain string) error {
	key, err := NormalizeDomain(domain)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDomain, domain)
	}
	path := CachePath(key)

	for attempt := 1; ; attempt++ {
		doc, err := m.store.Read(ctx, path)
		if errors.Is(err, docstore.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("evict %s: %w", key, err)
		}

		err = m.store.Delete(ctx, path, doc.Revision)
		switch {
		case err == nil, errors.Is(err, docstore.ErrNotFound):
			m.logger.Info("icon evicted", logger.String("domain", key))
			return nil
		case errors.Is(err, docstore.ErrConflict) && attempt < 2:
			continue
		default:
			return fmt.Errorf("evict %s: %w", key, err)
		}
	}
}

// Cached returns the cache entry for domain without touching the network.
// It returns (nil, nil) on a miss.
func (m *Manager) Cached(ctx context.Context, domain string) (*CachedIcon, error) {
	key, err := NormalizeDomain(domain)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDomain, domain)
	}
	cached, _, err := m.lookup(ctx, key)
	return cached, err
}

// lookup reads the entry for key. On a miss it returns nil and a nil revision.
// An undecodable entry is reported as a miss but its revision is kept so the
// next write can overwrite it.
func (m *Manager) lookup(ctx context.Context, key string) (*CachedIcon, *string, error) {
	doc, err := m.store.Read(ctx, CachePath(key))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	rev := docstore.Rev(doc.Revision)

	var e cacheEntry
	if err := json.Unmarshal(doc.Content, &e); err != nil || len(e.Data) == 0 {
		m.logger.Warn("discarding corrupt icon cache entry", logger.String("domain", key))
		return nil, rev, nil
	}

	return &CachedIcon{
		Domain: key,
		Icon: Icon{
			Data:        e.Data,
			ContentType: e.ContentType,
			Source:      e.Source,
			Synthesized: e.Synthesized,
		},
		FetchedAt: e.FetchedAt,
		Revision:  doc.Revision,
	}, rev, nil
}

// persist writes icon under key using rev as the expected revision (nil =
// create-only). One conflict is absorbed by re-reading the live revision.
func (m *Manager) persist(ctx context.Context, key string, icon Icon, rev *string) error {
	path := CachePath(key)
	content, err := json.Marshal(cacheEntry{
		ContentType: icon.ContentType,
		Data:        icon.Data,
		Source:      icon.Source,
		Synthesized: icon.Synthesized,
		FetchedAt:   m.now().UTC(),
	})
	if err != nil {
		return &CacheWriteError{Domain: key, Err: err}
	}

	_, err = m.store.Write(ctx, path, content, rev)
	if err != nil && docstore.IsConflict(err) {
		m.logger.Debug("icon cache entry changed underneath, retrying once", logger.String("domain", key))

		rev = nil
		doc, rerr := m.store.Read(ctx, path)
		switch {
		case rerr == nil:
			rev = docstore.Rev(doc.Revision)
		case !errors.Is(rerr, docstore.ErrNotFound):
			err = rerr
		}
		if rerr == nil || errors.Is(rerr, docstore.ErrNotFound) {
			_, err = m.store.Write(ctx, path, content, rev)
		}
	}
	if err != nil {
		metrics.IconCacheWriteFailures.Inc()
		return &CacheWriteError{Domain: key, Err: err}
	}

	m.logger.Debug("icon cached",
		logger.String("domain", key),
		logger.String("source", icon.Source))
	return nil
}
