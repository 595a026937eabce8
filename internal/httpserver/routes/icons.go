package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/sitedir/internal/httpserver/deps"
	"github.com/MrSnakeDoc/sitedir/internal/httpserver/handlers"
)

func init() { Register(registerIcons) }

func registerIcons(r chi.Router, d deps.Deps) {
	r.With(public(d)...).Get("/icon/{domain}", handlers.Icon(d))

	r.Group(func(r chi.Router) {
		r.Use(admin(d)...)
		r.Get("/icon/{domain}/cache", handlers.IconCacheEntry(d))
		r.Post("/icon/{domain}/refresh", handlers.RefreshIcon(d))
		r.Delete("/icon/{domain}", handlers.EvictIcon(d))
		r.Post("/icons/refresh", handlers.RefreshAllIcons(d))
	})
}
