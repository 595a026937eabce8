package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/sitedir/internal/directory"
	"github.com/MrSnakeDoc/sitedir/internal/httpserver/deps"
)

func ListWebsites(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := d.Directory.ListWebsites(r.Context())
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(list))
	}
}

func AddWebsite(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in directory.Website
		if !decodeJSON(w, r, &in) {
			return
		}
		site, err := d.Directory.AddWebsite(r.Context(), in)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, site)
	}
}

// UpdateWebsite replaces the editable fields of the website in the path.
func UpdateWebsite(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in directory.Website
		if !decodeJSON(w, r, &in) {
			return
		}
		in.ID = chi.URLParam(r, "id")
		site, err := d.Directory.UpdateWebsite(r.Context(), in)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, site)
	}
}

// ReorderWebsites moves the listed ids to the front, in order.
func ReorderWebsites(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			IDs []string `json:"ids"`
		}
		if !decodeJSON(w, r, &in) {
			return
		}
		if err := d.Directory.Reorder(r.Context(), in.IDs); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteWebsite(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Directory.DeleteWebsite(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ListCategories(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := d.Directory.ListCategories(r.Context())
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(cats))
	}
}

func ListFriends(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		friends, err := d.Directory.ListFriends(r.Context())
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(friends))
	}
}

func AddFriend(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in directory.FriendLink
		if !decodeJSON(w, r, &in) {
			return
		}
		if err := d.Directory.AddFriend(r.Context(), in); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, in)
	}
}

// RemoveFriend drops the friend link given by ?url=.
func RemoveFriend(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("url")
		if target == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing url parameter"})
			return
		}
		if err := d.Directory.RemoveFriend(r.Context(), target); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func GetConfig(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := d.Directory.GetConfig(r.Context())
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

func UpdateConfig(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in directory.SiteConfig
		if !decodeJSON(w, r, &in) {
			return
		}
		cfg, err := d.Directory.UpdateConfig(r.Context(), in)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

type submitRequest struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Submit queues a visitor proposal.
func Submit(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in submitRequest
		if !decodeJSON(w, r, &in) {
			return
		}
		sub, err := d.Directory.Submit(r.Context(), directory.PendingSubmission{
			Name:        in.Name,
			URL:         in.URL,
			Description: in.Description,
			Category:    in.Category,
			Email:       in.Email,
		})
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": sub.ID, "status": sub.Status})
	}
}

func ListPending(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := d.Directory.ListPending(r.Context())
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(list))
	}
}

func Approve(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		site, err := d.Directory.Approve(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, site)
	}
}

func Reject(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Directory.Reject(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
