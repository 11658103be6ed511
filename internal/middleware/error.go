package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every error reply. Trace is only filled in
// outside production.
type ErrorResponse struct {
	Message   string                 `json:"message"`
	Code      string                 `json:"code"`
	Timestamp string                 `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Trace     string                 `json:"trace,omitempty"`
}

// RespondWithError sends a structured error response
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithErrorDetails(w, statusCode, message, nil)
}

// RespondWithErrorDetails sends a structured error response with additional details
func RespondWithErrorDetails(w http.ResponseWriter, statusCode int, message string, details map[string]interface{}) {
	writeError(w, statusCode, ErrorResponse{
		Message: message,
		Details: details,
	})
}

// RespondWithValidationErrors sends validation error response
func RespondWithValidationErrors(w http.ResponseWriter, errors []ValidationError) {
	details := make(map[string]interface{})
	details["validation_errors"] = errors

	RespondWithErrorDetails(w, http.StatusBadRequest, "validation failed", details)
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors. A
// status the handler already wrote is kept, and nothing is appended once body
// bytes have gone out.
func ErrorHandlingMiddleware(logger *zap.Logger, isProduction bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					stack := string(debug.Stack())
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
						zap.String("stack", stack),
					)

					if ww.BytesWritten() > 0 {
						return
					}
					status := http.StatusInternalServerError
					if ww.Status() != 0 {
						status = ww.Status()
					}

					response := ErrorResponse{Message: "internal server error"}
					if !isProduction {
						response.Message = fmt.Sprint(err)
						response.Trace = stack
					}
					writeError(ww, status, response)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// NotFoundHandler answers unknown routes with the error body
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	RespondWithError(w, http.StatusNotFound, "Not Found - "+r.URL.Path)
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, response ErrorResponse) {
	response.Code = http.StatusText(statusCode)
	response.Timestamp = time.Now().UTC().Format(time.RFC3339)
	RespondWithJSON(w, statusCode, response)
}
