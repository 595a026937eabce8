package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/sitedir/internal/httpserver/deps"
	"github.com/MrSnakeDoc/sitedir/internal/icon"
	"github.com/MrSnakeDoc/sitedir/internal/logger"
)

// HeaderIconCache is set to "write-failed" when an icon is served but could
// not be cached.
const HeaderIconCache = "X-Icon-Cache"

// Icon serves the icon for a domain, resolving it on a cache miss.
// It always answers with an image.
func Icon(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		domain := chi.URLParam(r, "domain")

		ic, err := d.Icons.Resolve(r.Context(), domain)
		if err != nil {
			if !errors.Is(err, icon.ErrCacheWriteFailed) {
				writeError(w, d.Logger, err)
				return
			}
			d.Logger.Warn("serving uncached icon",
				logger.String("domain", domain),
				logger.Error(err))
			w.Header().Set(HeaderIconCache, "write-failed")
		}

		writeIcon(w, ic)
	}
}

type refreshResponse struct {
	Domain      string `json:"domain"`
	Source      string `json:"source"`
	ContentType string `json:"content_type"`
	Bytes       int    `json:"bytes"`
	Synthesized bool   `json:"synthesized"`
	Stale       bool   `json:"stale"`
	Cached      bool   `json:"cached"`
}

// RefreshIcon re-fetches the icon of one domain. ?url= restricts the fetch
// to that address.
func RefreshIcon(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		domain := chi.URLParam(r, "domain")
		override := r.URL.Query().Get("url")

		ic, err := d.Icons.Refresh(r.Context(), domain, override)
		cached := true
		if err != nil {
			if !errors.Is(err, icon.ErrCacheWriteFailed) {
				writeError(w, d.Logger, err)
				return
			}
			cached = false
			w.Header().Set(HeaderIconCache, "write-failed")
		}

		d.Logger.Info("icon refreshed",
			logger.String("domain", domain),
			logger.String("source", ic.Source),
			logger.Bool("stale", ic.Stale),
			logger.Bool("override", override != ""),
			logger.String("remote_ip", r.RemoteAddr))

		writeJSON(w, http.StatusOK, refreshResponse{
			Domain:      domain,
			Source:      ic.Source,
			ContentType: ic.ContentType,
			Bytes:       len(ic.Data),
			Synthesized: ic.Synthesized,
			Stale:       ic.Stale,
			Cached:      cached,
		})
	}
}

type cacheEntryResponse struct {
	Domain      string    `json:"domain"`
	Source      string    `json:"source"`
	ContentType string    `json:"content_type"`
	Bytes       int       `json:"bytes"`
	Synthesized bool      `json:"synthesized"`
	FetchedAt   time.Time `json:"fetched_at"`
	Age         string    `json:"age"`
	Revision    string    `json:"revision"`
}

// IconCacheEntry describes the stored entry of a domain without fetching.
func IconCacheEntry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cached, err := d.Icons.Cached(r.Context(), chi.URLParam(r, "domain"))
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		if cached == nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "no cached icon"})
			return
		}

		now := time.Now
		if d.TimeNow != nil {
			now = d.TimeNow
		}
		writeJSON(w, http.StatusOK, cacheEntryResponse{
			Domain:      cached.Domain,
			Source:      cached.Icon.Source,
			ContentType: cached.Icon.ContentType,
			Bytes:       len(cached.Icon.Data),
			Synthesized: cached.Icon.Synthesized,
			FetchedAt:   cached.FetchedAt,
			Age:         now().Sub(cached.FetchedAt).Truncate(time.Second).String(),
			Revision:    cached.Revision,
		})
	}
}

// EvictIcon drops the cached icon of a domain.
func EvictIcon(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Icons.Evict(r.Context(), chi.URLParam(r, "domain")); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// RefreshAllIcons starts a background refresh of every listed site's icon.
func RefreshAllIcons(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Scheduler == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "background jobs are disabled"})
			return
		}

		if !d.Scheduler.TriggerIconRefresh() {
			d.Logger.Warn("icon refresh already in progress",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "icon refresh already in progress, please wait"})
			return
		}

		d.Logger.Info("manual icon refresh triggered via endpoint",
			logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

func writeIcon(w http.ResponseWriter, ic icon.Icon) {
	h := w.Header()
	h.Set("Content-Type", ic.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(ic.Data)))
	h.Set("X-Icon-Source", ic.Source)
	h.Set("X-Content-Type-Options", "nosniff")
	if ic.Synthesized {
		h.Set("Cache-Control", "public, max-age=3600")
	} else {
		h.Set("Cache-Control", "public, max-age=86400")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(ic.Data)
}
