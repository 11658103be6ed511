package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"go.uber.org/zap"
)

type contextKey string

const (
	UserKey      contextKey = "user"
	SessionIDKey contextKey = "session_id"
)

// Authenticator resolves a bearer token to the user it was issued to
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// AuthMiddleware rejects requests without a valid bearer token for an existing user
func AuthMiddleware(auth Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				logger.Debug("Missing bearer token")
				RespondWithError(w, http.StatusUnauthorized, "Not authorized, no token")
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					logger.Debug("Token user no longer exists")
					RespondWithError(w, http.StatusUnauthorized, "Not authorized, user not found")
					return
				}
				logger.Debug("Token validation failed", zap.Error(err))
				RespondWithError(w, http.StatusUnauthorized, "Not authorized, token failed")
				return
			}

			logger.Debug("User authenticated",
				zap.String("user_id", user.ID.String()),
				zap.Bool("is_admin", user.IsAdmin),
			)

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalAuth attaches the user when a valid bearer token is present and
// lets every request through
func OptionalAuth(auth Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				logger.Debug("Ignoring invalid optional token", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser stores the authenticated user in ctx
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// GetUser extracts the authenticated user from request context
func GetUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserKey).(*domain.User)
	return user, ok && user != nil
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
