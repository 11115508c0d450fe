package middleware

import (
	"net/http"
	"strings"

	"github.com/eventhub/eventhub-backend/api/responses"
	pkgAuth "github.com/eventhub/eventhub-backend/pkg/auth"
	"github.com/eventhub/eventhub-backend/pkg/config"
	pkgerrors "github.com/eventhub/eventhub-backend/pkg/errors"
	"github.com/eventhub/eventhub-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the actor.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			actor := pkgAuth.ActorFromClaims(claims)
			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithUserID(ctx, actor.UserID.String())
				ctx = logg.WithActorRole(ctx, string(actor.Role))
				if actor.VendorID != nil {
					ctx = logg.WithVendorID(ctx, actor.VendorID.String())
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
