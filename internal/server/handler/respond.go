package handler

import (
	"errors"
	"net/http"

	"github.com/decms-project/decms/internal/custody"
)

// custodyStatus maps the custody error taxonomy onto HTTP status codes.
// ErrStorage deliberately surfaces as 500: the unit was rolled back and the
// caller may retry under its own policy.
func custodyStatus(err error) int {
	switch {
	case errors.Is(err, custody.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, custody.ErrEvidenceNotFound):
		return http.StatusNotFound
	case errors.Is(err, custody.ErrNotCustodian):
		return http.StatusForbidden
	case errors.Is(err, custody.ErrGenesisMissing), errors.Is(err, custody.ErrHashCollision):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// publicError returns the message safe to expose for a custody error. Storage
// failures are masked; everything else in the taxonomy is caller-actionable.
func publicError(err error) string {
	if errors.Is(err, custody.ErrStorage) {
		return "storage failure"
	}
	return err.Error()
}
