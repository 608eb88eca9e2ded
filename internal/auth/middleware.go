package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/impify/impify/internal/api"
)

type contextKey string

const UserClaimsKey contextKey = "user_claims"

func Middleware(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			claims, err := jwtMgr.ValidateAccessToken(parts[1])
			if err != nil {
				api.HandleError(w, api.ErrInvalidToken)
				return
			}
			if _, err := uuid.Parse(claims.UserID); err != nil {
				api.HandleError(w, api.ErrInvalidToken)
				return
			}

			ctx := WithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must run after Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetUserClaims(r.Context()).IsAdmin() {
			api.HandleError(w, api.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithClaims(ctx context.Context, claims *AccessClaims) context.Context {
	return context.WithValue(ctx, UserClaimsKey, claims)
}

func GetUserClaims(ctx context.Context) *AccessClaims {
	claims, _ := ctx.Value(UserClaimsKey).(*AccessClaims)
	return claims
}

// UserID returns the authenticated caller's id, or api.ErrUnauthorized.
func UserID(ctx context.Context) (uuid.UUID, error) {
	claims := GetUserClaims(ctx)
	if claims == nil {
		return uuid.Nil, api.ErrUnauthorized
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, api.ErrUnauthorized
	}
	return id, nil
}
