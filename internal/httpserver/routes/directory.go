package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/sitedir/internal/httpserver/deps"
	"github.com/MrSnakeDoc/sitedir/internal/httpserver/handlers"
)

func init() { Register(registerDirectory) }

func registerDirectory(r chi.Router, d deps.Deps) {
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(public(d)...)
			r.Get("/websites", handlers.ListWebsites(d))
			r.Get("/categories", handlers.ListCategories(d))
			r.Get("/friends", handlers.ListFriends(d))
			r.Get("/config", handlers.GetConfig(d))
			r.Post("/submissions", handlers.Submit(d))
		})

		r.Group(func(r chi.Router) {
			r.Use(admin(d)...)
			r.Post("/websites", handlers.AddWebsite(d))
			r.Put("/websites/order", handlers.ReorderWebsites(d))
			r.Patch("/websites/{id}", handlers.UpdateWebsite(d))
			r.Delete("/websites/{id}", handlers.DeleteWebsite(d))

			r.Post("/categories", handlers.AddCategory(d))
			r.Patch("/categories/{id}", handlers.RenameCategory(d))
			r.Delete("/categories/{id}", handlers.DeleteCategory(d))
			r.Post("/categories/{id}/promote", handlers.PromoteCategory(d))
			r.Post("/categories/{id}/demote", handlers.DemoteCategory(d))
			r.Post("/categories/{id}/move", handlers.MoveCategory(d))

			r.Post("/friends", handlers.AddFriend(d))
			r.Delete("/friends", handlers.RemoveFriend(d))

			r.Put("/config", handlers.UpdateConfig(d))

			r.Get("/submissions", handlers.ListPending(d))
			r.Post("/submissions/{id}/approve", handlers.Approve(d))
			r.Post("/submissions/{id}/reject", handlers.Reject(d))
		})
	})
}
