package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/api/responses"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/config"
	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
)

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Sunflower-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every named dependency answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Sunflower-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
