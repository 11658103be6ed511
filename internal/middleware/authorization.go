package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// RequireAdmin middleware ensures the authenticated user is flagged as admin.
// It must run after AuthMiddleware.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				logger.Warn("User not found in context")
				RespondWithError(w, http.StatusUnauthorized, "Not authorized as an admin")
				return
			}

			if !user.IsAdmin {
				logger.Warn("Non-admin user attempted to access admin endpoint",
					zap.String("user_id", user.ID.String()),
					zap.String("path", r.URL.Path),
				)
				RespondWithError(w, http.StatusUnauthorized, "Not authorized as an admin")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
