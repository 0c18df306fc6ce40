package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	h "eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

type contextKey string

const userKey contextKey = "user"

// UserLoader resolves the account behind a verified token.
type UserLoader interface {
	Me(ctx context.Context, userID string) (*domain.User, error)
}

// SetUser returns a context carrying the authenticated user. Used by auth middleware.
func SetUser(ctx context.Context, user *domain.User) context.Context {
	if user != nil {
		noteUser(ctx, user.ID)
	}
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user from the context, if present.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userKey).(*domain.User)
	return u, ok && u != nil
}

// UserIDFromContext returns the authenticated user ID from the context, if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	u, ok := UserFromContext(ctx)
	if !ok {
		return "", false
	}
	return u.ID, true
}

// RequireAuth returns a wrapper that validates the Bearer token, loads the user and stores it in the
// request context. Deactivated accounts still pass; registration reports them as user_inactive.
func RequireAuth(verifier domain.TokenVerifier, users UserLoader, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing authorization header")
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid authorization format")
				return
			}
			token := strings.TrimSpace(auth[len(prefix):])
			if token == "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing token")
				return
			}
			userID, err := verifier.Verify(token)
			if err != nil {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid or expired token")
				return
			}
			user, err := users.Me(r.Context(), userID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "account no longer exists")
					return
				}
				logger.ErrorContext(r.Context(), "load authenticated user", "user_id", userID, "err", err)
				h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, "internal server error")
				return
			}
			next(w, r.WithContext(SetUser(r.Context(), user)))
		}
	}
}

// RequireRole allows the request through only for users holding one of roles.
// It must run after RequireAuth.
func RequireRole(roles ...domain.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
				return
			}
			if !slices.Contains(roles, user.Role) {
				h.WriteJSONError(w, http.StatusForbidden, h.ErrCodeForbidden, "forbidden")
				return
			}
			next(w, r)
		}
	}
}
