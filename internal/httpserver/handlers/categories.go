package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/sitedir/internal/directory"
	"github.com/MrSnakeDoc/sitedir/internal/httpserver/deps"
)

type categoryRequest struct {
	Name   string `json:"name"`
	Icon   string `json:"icon,omitempty"`
	Parent string `json:"parent,omitempty"`
}

type parentRequest struct {
	Parent string `json:"parent"`
}

// AddCategory creates a category, under "parent" when given.
func AddCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in categoryRequest
		if !decodeJSON(w, r, &in) {
			return
		}
		cat, err := d.Directory.AddCategory(r.Context(), directory.Category{Name: in.Name, Icon: in.Icon}, in.Parent)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, cat)
	}
}

func RenameCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Name string `json:"name"`
		}
		if !decodeJSON(w, r, &in) {
			return
		}
		categoryDone(w, r, d, d.Directory.RenameCategory(r.Context(), chi.URLParam(r, "id"), in.Name))
	}
}

func DeleteCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryDone(w, r, d, d.Directory.DeleteCategory(r.Context(), chi.URLParam(r, "id")))
	}
}

func PromoteCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryDone(w, r, d, d.Directory.PromoteCategory(r.Context(), chi.URLParam(r, "id")))
	}
}

// DemoteCategory nests a top-level category under {"parent": id}.
func DemoteCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in parentRequest
		if !decodeJSON(w, r, &in) {
			return
		}
		categoryDone(w, r, d, d.Directory.DemoteCategory(r.Context(), chi.URLParam(r, "id"), in.Parent))
	}
}

// MoveCategory re-parents a subcategory to {"parent": id}.
func MoveCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in parentRequest
		if !decodeJSON(w, r, &in) {
			return
		}
		categoryDone(w, r, d, d.Directory.MoveCategory(r.Context(), chi.URLParam(r, "id"), in.Parent))
	}
}

// categoryDone answers a tree change with the resulting tree.
func categoryDone(w http.ResponseWriter, r *http.Request, d deps.Deps, err error) {
	if err != nil {
		writeError(w, d.Logger, err)
		return
	}
	cats, err := d.Directory.ListCategories(r.Context())
	if err != nil {
		writeError(w, d.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(cats))
}
