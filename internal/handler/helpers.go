package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"vowcraft/internal/domain"
	"vowcraft/internal/httputil"
)

// handleError converts domain errors to HTTP responses.
// Conflicts carry the versions so clients can re-read and retry; validation
// failures carry the index and path of the offending operation when known.
func handleError(w http.ResponseWriter, err error) {
	var (
		conflictErr   *domain.ConflictError
		validationErr *domain.ValidationError
		externalErr   *domain.ExternalServiceError
		httpErr       domain.HTTPError
	)

	switch {
	case errors.As(err, &conflictErr):
		extras := map[string]interface{}{
			"resource_type":    conflictErr.ResourceType,
			"resource_id":      conflictErr.ResourceID,
			"expected_version": conflictErr.ExpectedVersion,
		}
		if conflictErr.ActualVersion > 0 {
			extras["current_version"] = conflictErr.ActualVersion
		}
		httputil.RespondErrorWithExtras(w, http.StatusConflict, conflictErr.Error(), extras)
	case errors.As(err, &validationErr):
		var extras map[string]interface{}
		if validationErr.OpIndex >= 0 {
			extras = map[string]interface{}{
				"op_index": validationErr.OpIndex,
				"path":     validationErr.Path,
			}
		}
		httputil.RespondErrorWithExtras(w, http.StatusBadRequest, err.Error(), extras)
	case errors.As(err, &externalErr):
		// provider errors can echo request details; keep them in the logs
		httputil.RespondErrorWithExtras(w, http.StatusBadGateway, "the generative model is unavailable, try again",
			map[string]interface{}{"service": externalErr.Service})
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &httpErr):
		httputil.RespondError(w, httpErr.StatusCode(), err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// logFailure logs errors that surface as 5xx; client errors are expected traffic.
func logFailure(logger *slog.Logger, r *http.Request, err error) {
	var externalErr *domain.ExternalServiceError
	switch {
	case errors.As(err, &externalErr):
		logger.Warn("external service failed", "path", r.URL.Path, "service", externalErr.Service, "error", err)
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrUnauthorized):
	default:
		logger.Error("request failed", "path", r.URL.Path, "method", r.Method, "error", err)
	}
}

// fail logs and writes an error response
func fail(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	logFailure(logger, r, err)
	handleError(w, err)
}
