package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/hatidph/hatid-backend/api/responses"
	"github.com/hatidph/hatid-backend/pkg/enums"
	pkgerrors "github.com/hatidph/hatid-backend/pkg/errors"
	"github.com/hatidph/hatid-backend/pkg/logger"
)

// The gateway in front of this service terminates authentication and forwards
// the resolved identity in these headers.
const (
	userIDHeader       = "X-User-Id"
	actorRoleHeader    = "X-Actor-Role"
	restaurantIDHeader = "X-Restaurant-Id"
)

type contextKey string

const (
	ctxUserID       contextKey = "user_id"
	ctxRole         contextKey = "actor_role"
	ctxRestaurantID contextKey = "restaurant_id"
)

// Actor resolves the acting user from the trusted gateway headers and rejects
// requests that carry no usable identity.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID, err := uuid.Parse(r.Header.Get(userIDHeader))
			if err != nil || userID == uuid.Nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing or invalid user identity"))
				return
			}
			role, err := enums.ParseActorRole(r.Header.Get(actorRoleHeader))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing or invalid actor role"))
				return
			}

			ctx = context.WithValue(ctx, ctxUserID, userID)
			ctx = context.WithValue(ctx, ctxRole, role)
			if raw := r.Header.Get(restaurantIDHeader); raw != "" {
				if restaurantID, err := uuid.Parse(raw); err == nil {
					ctx = context.WithValue(ctx, ctxRestaurantID, restaurantID)
				}
			}
			if logg != nil {
				ctx = logg.WithActorRole(ctx, role.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route subtree to the listed roles.
func RequireRole(logg *logger.Logger, roles ...enums.ActorRole) func(http.Handler) http.Handler {
	allowed := make(map[enums.ActorRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if _, ok := allowed[RoleFromContext(ctx)]; !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role not allowed for this resource"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func UserIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxUserID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func RoleFromContext(ctx context.Context) enums.ActorRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.ActorRole); ok {
		return v
	}
	return ""
}

// RestaurantIDFromContext returns the vendor's restaurant, or nil for other roles.
func RestaurantIDFromContext(ctx context.Context) *uuid.UUID {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxRestaurantID).(uuid.UUID); ok {
		return &v
	}
	return nil
}
