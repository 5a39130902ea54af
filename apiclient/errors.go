package apiclient

import (
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
)

// APIError is a non-success backend response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend returned %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// Unwrap maps the status onto the gateway's sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case http.StatusForbidden:
		return apperrors.ErrForbidden
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusBadRequest:
		return apperrors.ErrInvalidRequest
	default:
		return apperrors.ErrBackend
	}
}
