package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/ideabox/internal/httpserver/deps"
	"github.com/MrSnakeDoc/ideabox/internal/logger"
)

type componentStatus struct {
	OK     bool   `json:"ok"`
	Mode   string `json:"mode,omitempty"`
	Impact string `json:"impact,omitempty"`
	Error  string `json:"error,omitempty"`
}

type readyzResponse struct {
	Ready      bool                       `json:"ready"`
	Status     string                     `json:"status"` // "ok" | "degraded" | "down"
	Components map[string]componentStatus `json:"components"`
}

// Readyz pings the store and the list cache. A failing store makes the
// instance unready; a failing cache only degrades it.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		components := map[string]componentStatus{
			"store": checkStore(ctx, d),
			"cache": checkCache(ctx, d),
		}

		resp := readyzResponse{
			Ready:      components["store"].OK,
			Status:     determineStatus(components),
			Components: components,
		}

		w.Header().Set("Cache-Control", "no-store")
		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

func determineStatus(components map[string]componentStatus) string {
	if !components["store"].OK {
		return "down"
	}
	if !components["cache"].OK {
		return "degraded"
	}
	return "ok"
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	if err := d.Ideas.Ping(ctx); err != nil {
		d.Logger.Warn("readyz: store ping failed", logger.Error(err))
		return componentStatus{OK: false, Mode: d.StoreKind, Impact: "api-unavailable", Error: err.Error()}
	}
	return componentStatus{OK: true, Mode: d.StoreKind}
}

func checkCache(ctx context.Context, d deps.Deps) componentStatus {
	enabled, err := d.Ideas.PingCache(ctx)
	switch {
	case !enabled:
		return componentStatus{OK: true, Mode: "disabled"}
	case err != nil:
		d.Logger.Warn("readyz: cache ping failed", logger.Error(err))
		return componentStatus{OK: false, Mode: "redis", Impact: "lists-read-from-store", Error: err.Error()}
	default:
		return componentStatus{OK: true, Mode: "redis"}
	}
}
