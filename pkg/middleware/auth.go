package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/taskhub/taskhub/pkg/auth"
	"github.com/taskhub/taskhub/pkg/contextkeys"
	"github.com/taskhub/taskhub/pkg/httputil"
	"github.com/taskhub/taskhub/pkg/observability"
	"github.com/taskhub/taskhub/pkg/storage"
)

// TokenVerifier verifies bearer tokens. Implemented by auth.TokenIssuer.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// UserSource loads accounts by email. Implemented by storage backends.
type UserSource interface {
	GetUserByEmail(ctx context.Context, email string) (*storage.User, error)
}

// AuthMiddleware authenticates requests from a bearer token.
//
// The request walks: extract header, verify signature and expiry, load the
// account for the subject, check the active flag. Every failure before the
// active check is a uniform 401 so callers cannot distinguish an unknown
// account from a bad token; an inactive account is a 403.
type AuthMiddleware struct {
	tokens TokenVerifier
	users  UserSource
	logger *observability.Logger
}

// NewAuthMiddleware creates the authentication middleware
func NewAuthMiddleware(tokens TokenVerifier, users UserSource, logger *observability.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		users:  users,
		logger: logger,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		claims, err := m.tokens.Verify(parts[1])
		if err != nil {
			httputil.WriteUnauthorized(w, "could not validate credentials")
			return
		}

		user, err := m.users.GetUserByEmail(r.Context(), claims.Subject)
		if err != nil {
			// Unknown subject answers exactly like a bad token,
			// but a storage failure is not a credential problem
			if errors.Is(err, storage.ErrNotFound) {
				httputil.WriteUnauthorized(w, "could not validate credentials")
				return
			}
			m.logger.WithError(err).Error("failed to load user for token subject")
			httputil.WriteInternalError(w)
			return
		}

		if !user.IsActive {
			httputil.WriteForbidden(w, "user account is inactive")
			return
		}

		ctx := contextkeys.WithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromRequest returns the authenticated user, or nil when the request
// did not pass through AuthMiddleware
func UserFromRequest(r *http.Request) *storage.User {
	user, _ := r.Context().Value(contextkeys.UserKey).(*storage.User)
	return user
}

// RequireAdmin layers an admin check on top of AuthMiddleware
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromRequest(r)
		if user == nil {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		if !user.IsAdmin {
			httputil.WriteForbidden(w, "admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
