package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrSnakeDoc/sitedir/internal/httpserver/deps"
	"github.com/MrSnakeDoc/sitedir/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/sitedir/internal/httpserver/mw"
)

func init() { Register(registerHealth) }

func registerHealth(r chi.Router, d deps.Deps) {
	cidr := mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)

	r.Get("/healthz", handlers.Healthz(d))
	r.With(cidr).Get("/readyz", handlers.Readyz(d))
	r.With(cidr).Handle("/metrics", promhttp.Handler())
	r.With(cidr, mw.EnforceHost(d.AllowedHosts, d.Logger)).Get("/infra", handlers.Infra(d))
}
