package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/ideabox/internal/logger"
	"github.com/MrSnakeDoc/ideabox/internal/utils"
)

// OpsAccessConfig gates the operational endpoints (readyz, metrics).
type OpsAccessConfig struct {
	Allowed    []string // exact IPs or CIDRs; empty disables the gate
	TrustProxy bool     // resolve IP from proxy headers when true
	Log        logger.Logger
	OnReject   func(ip string) // may be nil
}

// OpsAccess answers 403 with a JSON error to clients outside cfg.Allowed.
func OpsAccess(cfg OpsAccessConfig) func(http.Handler) http.Handler {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	m := utils.NewIPMatcher(cfg.Allowed)
	if m.IsEmpty() {
		return func(next http.Handler) http.Handler { return next }
	}
	log = log.With(logger.String("component", "ops-access"))
	log.Debug("ops endpoints restricted",
		logger.Int("rules", len(cfg.Allowed)),
		logger.Bool("trust_proxy", cfg.TrustProxy))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, cfg.TrustProxy)
			if m.Allow(ip) {
				next.ServeHTTP(w, r)
				return
			}

			log.Warn("ops endpoint refused",
				logger.String("ip", ip),
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path))
			if cfg.OnReject != nil {
				cfg.OnReject(ip)
			}
			writeError(w, http.StatusForbidden, "forbidden")
		})
	}
}
