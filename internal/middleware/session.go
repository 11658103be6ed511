package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionHeader carries the shopper session that owns the cart and checkout
const SessionHeader = "X-Session-ID"

// SessionMiddleware resolves the shopper session from the X-Session-ID header.
// A missing or malformed id starts a new session, echoed back in the response.
func SessionMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Header.Get(SessionHeader)
			if _, err := uuid.Parse(sessionID); err != nil {
				sessionID = uuid.NewString()
				logger.Debug("Starting new shopper session", zap.String("session_id", sessionID))
			}

			w.Header().Set(SessionHeader, sessionID)
			ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionID extracts the shopper session id from request context
func GetSessionID(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(SessionIDKey).(string)
	return sessionID, ok && sessionID != ""
}
