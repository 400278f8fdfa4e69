package routes

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MrSnakeDoc/ideabox/internal/httpserver/deps"
	"github.com/MrSnakeDoc/ideabox/internal/httpserver/mw"
	"github.com/MrSnakeDoc/ideabox/internal/logger"
)

const ideaCountTimeout = 2 * time.Second

func init() { Register(registerMetrics) }

func registerMetrics(r chi.Router, d deps.Deps) {
	if d.Metrics == nil {
		return
	}
	err := d.Metrics.Registry().Register(ideaCountGauge(d))
	var are prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &are) {
		d.Logger.Warn("idea gauge not registered", logger.Error(err))
	}
	r.With(opsOnly(d)).Handle("/metrics", d.Metrics.Handler())
}

// ideaCountGauge reports the stored idea count at scrape time. A store error
// is exported as NaN.
func ideaCountGauge(d deps.Deps) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ideabox_ideas",
		Help: "Number of stored ideas",
	}, func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), ideaCountTimeout)
		defer cancel()
		n, err := d.Ideas.Count(ctx)
		if err != nil {
			d.Logger.Warn("idea count for metrics failed", logger.Error(err))
			return math.NaN()
		}
		return float64(n)
	})
}

// opsOnly restricts a route to the configured operator CIDRs.
func opsOnly(d deps.Deps) func(http.Handler) http.Handler {
	cfg := mw.OpsAccessConfig{
		Allowed:    d.AllowedCIDRS,
		TrustProxy: d.TrustProxy,
		Log:        d.Logger,
	}
	if d.Metrics != nil {
		cfg.OnReject = d.Metrics.OpsRefused
	}
	return mw.OpsAccess(cfg)
}
