package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/eventhub/eventhub-backend/api/responses"
	"github.com/eventhub/eventhub-backend/pkg/config"
	pkgerrors "github.com/eventhub/eventhub-backend/pkg/errors"
	"github.com/eventhub/eventhub-backend/pkg/logger"
)

const (
	envHeader    = "X-EventHub-Env"
	readyTimeout = 2 * time.Second
)

type pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and Redis. Either failing reports 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, database, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := map[string]pinger{"database": database, "redis": cache}
		status := map[string]string{}
		for name, dep := range checks {
			if dep == nil {
				status[name] = "unconfigured"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				status[name] = "down"
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
				}
				continue
			}
			status[name] = "ok"
		}
		for name, state := range status {
			if state != "ok" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, name+" not ready").WithDetails(status))
				return
			}
		}
		status["status"] = "ready"
		responses.WriteSuccess(w, status)
	}
}
