// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/civic-registry/console/internal/registry"
	"github.com/civic-registry/console/internal/shared"
)

// ErrValidation marks a request the console rejected before calling the API.
var ErrValidation = errors.New("validation failed")

// RespondError maps console and registry errors to RFC7807 responses.
func RespondError(w http.ResponseWriter, err error) {
	var apiErr *registry.APIError
	switch {
	case errors.Is(err, shared.ErrUnknownScreen), errors.Is(err, registry.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", shared.UserSafeMessage(err, err.Error()))
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case registry.IsTransport(err):
		Problem(w, http.StatusBadGateway, "Registry Unavailable", shared.UserSafeMessage(err, ""))
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		Problem(w, apiErr.Status, http.StatusText(apiErr.Status), apiErr.Message)
	case errors.As(err, &apiErr):
		Problem(w, http.StatusBadGateway, "Registry Error", apiErr.Message)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
