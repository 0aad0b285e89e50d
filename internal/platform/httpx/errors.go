// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/periodclose/internal/close"
)

// Sentinel errors for transport-level failures.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var blocked *close.ValidationBlockedError
	if errors.As(err, &blocked) {
		JSON(w, http.StatusUnprocessableEntity, ProblemDetail{
			Type:    "validation-blocked",
			Title:   "Validation Blocked",
			Status:  http.StatusUnprocessableEntity,
			Detail:  err.Error(),
			Results: blocked.Results,
		})
		return
	}
	var input *close.InputError
	if errors.As(err, &input) {
		JSON(w, http.StatusBadRequest, ProblemDetail{
			Type:   "invalid-input",
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
			Fields: input.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, close.ErrPeriodNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
		return
	}

	kind := close.Classify(err)
	switch kind {
	case close.KindValidation:
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case close.KindPermission:
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case close.KindConflict:
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case close.KindTransient:
		w.Header().Set("Retry-After", "1")
		Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "temporary failure, retry later")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
