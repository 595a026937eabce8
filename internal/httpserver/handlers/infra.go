package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/sitedir/internal/httpserver/deps"
)

type componentStatus struct {
	OK         bool   `json:"ok"`
	Backend    string `json:"backend,omitempty"`
	Mode       string `json:"mode,omitempty"`
	LastRun    string `json:"last_run,omitempty"`
	Refreshed  *int   `json:"refreshed,omitempty"`
	Kept       *int   `json:"kept,omitempty"`
	Failed     *int   `json:"failed,omitempty"`
	Workers    int    `json:"workers,omitempty"`
	Delay      string `json:"delay,omitempty"`
	Reconciled *int   `json:"reconciled,omitempty"`
	Impact     string `json:"impact,omitempty"`
	Error      string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		components := map[string]componentStatus{
			"store": checkStore(r.Context(), d),
		}
		for name, st := range schedulerStatus(d) {
			components[name] = st
		}

		response := infraResponse{
			Mode:       determineMode(components),
			Components: components,
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

func determineMode(components map[string]componentStatus) string {
	if store, ok := components["store"]; ok && !store.OK {
		return "critical" // nothing can be read or written
	}

	// Icons are still served, just never refreshed in the background.
	if refresh, ok := components["icon_refresh"]; ok && !refresh.OK {
		return "degraded"
	}

	return "operational"
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	st := componentStatus{Backend: d.StoreBackend}
	if d.StorePinger == nil {
		st.OK = d.Store != nil
		if !st.OK {
			st.Error = "store not initialized"
		}
		return st
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.StorePinger.Ping(ctx); err != nil {
		st.Error = "timeout"
		return st
	}
	st.OK = true
	return st
}

func schedulerStatus(d deps.Deps) map[string]componentStatus {
	if d.Scheduler == nil {
		return map[string]componentStatus{
			"icon_refresh": {OK: false, Mode: "disabled", Impact: "icons-refreshed-on-demand-only"},
		}
	}

	s := d.Scheduler.Status()
	refresh := componentStatus{OK: true, Mode: "idle", LastRun: formatRun(s.LastIconRefresh)}
	if s.IconRefreshRunning {
		refresh.Mode = "running"
	}
	if p := s.IconPolicy; p != nil {
		refresh.Workers, refresh.Delay = p.MaxConcurrency, p.Delay.String()
	}
	if rep := s.LastIconReport; rep != nil {
		refreshed, kept, failed := rep.Refreshed, rep.Kept, rep.Failed
		refresh.Refreshed, refresh.Kept, refresh.Failed = &refreshed, &kept, &failed
		if rep.Err != nil && rep.Refreshed+rep.Synthesized+rep.Kept == 0 {
			refresh.OK = false
			refresh.Error = "last run refreshed nothing"
		}
	}

	reconciled := s.LastReconciled
	return map[string]componentStatus{
		"icon_refresh": refresh,
		"reconcile":    {OK: true, LastRun: formatRun(s.LastReconcile), Reconciled: &reconciled},
	}
}

func formatRun(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("2006-01-02 15:04:05")
}
