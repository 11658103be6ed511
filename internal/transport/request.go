package transport

import (
	"net/http"

	"storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// decodeRequest decodes and validates the JSON body into v. On failure the
// error reply has been written and false is returned.
func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}, logger *zap.Logger) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.Debug("Request validation failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// pathUUID parses a uuid URL parameter, answering 404 when it is malformed
func pathUUID(w http.ResponseWriter, r *http.Request, name, notFound string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, notFound)
		return uuid.Nil, false
	}
	return id, true
}

// sessionID returns the shopper session resolved by SessionMiddleware
func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.GetSessionID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing session")
		return "", false
	}
	return id, true
}
