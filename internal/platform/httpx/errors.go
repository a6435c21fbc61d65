package httpx

import (
	"errors"
	"net/http"

	"github.com/saltastro/saltapi/internal/shared"
)

// ErrValidation marks client input that failed validation.
var ErrValidation = errors.New("validation failed")

// RespondError maps domain errors to HTTP responses using RFC7807.
// Authorization failures only ever say "not authorized".
func RespondError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrValidation) {
		Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	status := shared.StatusFor(err)
	detail := shared.UserSafeMessage(err)
	if status == http.StatusInternalServerError {
		detail = ""
	}
	Problem(w, status, http.StatusText(status), detail)
}
