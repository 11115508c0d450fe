package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/eventhub/eventhub-backend/pkg/auth"
	pkgerrors "github.com/eventhub/eventhub-backend/pkg/errors"
)

type contextKey string

const ctxActor contextKey = "actor"

// ActorFromContext returns the authenticated caller, if any.
func ActorFromContext(ctx context.Context) (auth.Actor, bool) {
	if ctx == nil {
		return auth.Actor{}, false
	}
	actor, ok := ctx.Value(ctxActor).(auth.Actor)
	return actor, ok
}

// WithActor injects the authenticated caller into the context.
func WithActor(ctx context.Context, actor auth.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

func UserIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.UserID.String()
	}
	return ""
}

func VendorIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok && actor.VendorID != nil {
		return actor.VendorID.String()
	}
	return ""
}

// RequestActor returns the authenticated caller or an unauthorized error.
func RequestActor(r *http.Request) (auth.Actor, error) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		return auth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return actor, nil
}

// RequestVendorID returns the caller's vendor id or a forbidden error.
func RequestVendorID(r *http.Request) (uuid.UUID, error) {
	actor, err := RequestActor(r)
	if err != nil {
		return uuid.Nil, err
	}
	if actor.VendorID == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor account required")
	}
	return *actor.VendorID, nil
}
