// Package httpx provides HTTP response utilities.
package httpx

import (
	"net/http"

	"github.com/dunvault/dunvault/internal/shared"
)

// StatusFor maps the error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	switch shared.KindOf(err) {
	case shared.KindInvalidInput:
		return http.StatusBadRequest
	case shared.KindInvalidCredentials, shared.KindTokenInvalid:
		return http.StatusUnauthorized
	case shared.KindAccountInactive, shared.KindForbidden:
		return http.StatusForbidden
	case shared.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
// Internal detail never reaches the body.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeProblem(w, ProblemDetail{
		Title:  http.StatusText(status),
		Status: status,
		Kind:   string(shared.KindOf(err)),
		Detail: shared.UserSafeMessage(err),
	})
}
