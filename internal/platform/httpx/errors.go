package httpx

import (
	"errors"
	"net/http"

	"github.com/skolara/skolara/internal/shared"
)

// Error codes drawn from the fixed API vocabulary.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeTokenAbsent        = "TOKEN_ABSENT"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
	CodeLogoutFailed       = "LOGOUT_FAILED"
)

// RespondError maps domain errors to their HTTP status and error code.
// Credential and token failures are deliberately flattened into generic
// messages so the response never reveals which check failed.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		Error(w, http.StatusUnauthorized, CodeInvalidCredentials, "The provided credentials are incorrect")
	case errors.Is(err, shared.ErrTokenExpired):
		Error(w, http.StatusUnauthorized, CodeTokenExpired, "Token has expired")
	case errors.Is(err, shared.ErrTokenInvalid):
		Error(w, http.StatusUnauthorized, CodeTokenInvalid, "Token is invalid")
	case errors.Is(err, shared.ErrTokenAbsent):
		Error(w, http.StatusUnauthorized, CodeTokenAbsent, "Token is required")
	case errors.Is(err, shared.ErrForbidden):
		Error(w, http.StatusForbidden, CodeForbidden, "Insufficient permissions")
	case errors.Is(err, shared.ErrNotFound):
		Error(w, http.StatusNotFound, CodeNotFound, "Resource not found")
	default:
		Error(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
	}
}
