package jwtmiddleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/linemk/gogol-pizza/internal/domain/models"
	security "github.com/linemk/gogol-pizza/internal/jwt-new"
)

type contextKey string

const (
	UserIDKey    contextKey = "userID"
	PrincipalKey contextKey = "principal"
)

// NewJWTMiddleware accepts a token from "Authorization: Bearer <token>" or from the named cookie.
func NewJWTMiddleware(secret, cookieName string) func(http.Handler) http.Handler {
	if secret == "" {
		panic("jwt secret is not set")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, msg := extractToken(r, cookieName)
			if tokenStr == "" {
				unauthorized(w, msg)
				return
			}

			principal, err := security.ParseToken(tokenStr, secret)
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request, cookieName string) (string, string) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", "invalid token format"
		}
		return parts[1], ""
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return c.Value, ""
		}
	}
	return "", "missing token"
}

// RequireRoles must run after NewJWTMiddleware.
func RequireRoles(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				unauthorized(w, "missing token")
				return
			}
			if !p.Is(roles...) {
				writeError(w, http.StatusForbidden, "forbidden", "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal stores both the principal and the bare user id.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, p.UserID)
	return context.WithValue(ctx, PrincipalKey, p)
}

func FromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDKey).(int64)
	return id, ok
}

func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	if p, ok := ctx.Value(PrincipalKey).(models.Principal); ok {
		return p, true
	}
	// a bare user id is treated as a client
	if id, ok := FromContext(ctx); ok {
		return models.Principal{UserID: id, Role: models.RoleClient}, true
	}
	return models.Principal{}, false
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusUnauthorized, msg, "unauthorized")
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}
