package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/skillsvault/backend/internal/httpx"
)

type contextKey string

const (
	ctxUserKey  contextKey = "user_id"
	ctxAdminKey contextKey = "is_admin"
)

// TokenValidator resolves a bearer token to the user it was issued for.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (userID uuid.UUID, isAdmin bool, err error)
}

// RequireAuth validates the Bearer token and puts the user id into the request
// context. Downstream code treats that id as the acting user.
func RequireAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				httpx.Fail(w, http.StatusUnauthorized, "missing or malformed Authorization header")
				return
			}
			userID, isAdmin, err := tokens.ValidateToken(r.Context(), raw)
			if err != nil || userID == uuid.Nil {
				httpx.Fail(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := WithUserID(r.Context(), userID)
			ctx = context.WithValue(ctx, ctxAdminKey, isAdmin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdminFromCtx(r.Context()) {
			httpx.Fail(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserIDFromCtx returns the authenticated user id or uuid.Nil.
func UserIDFromCtx(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxUserKey).(uuid.UUID)
	return id
}

// WithUserID returns a context carrying the given user id.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxUserKey, id)
}

func IsAdminFromCtx(ctx context.Context) bool {
	ok, _ := ctx.Value(ctxAdminKey).(bool)
	return ok
}

// WithAdmin marks the context as belonging to an admin.
func WithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxAdminKey, true)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
