package shared

import (
	"errors"

	"github.com/civic-registry/console/internal/listctl"
	"github.com/civic-registry/console/internal/registry"
)

var (
	// ErrUnknownScreen is returned for routes naming no catalog screen.
	ErrUnknownScreen = errors.New("unknown screen")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage picks the text shown to an operator for err. Messages
// written by the registry API are shown verbatim, transport failures get a
// connectivity hint and anything else falls back.
func UserSafeMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if registry.IsTransport(err) {
		return "The registry API is unreachable. Try again shortly."
	}
	if errors.Is(err, registry.ErrNotFound) {
		return listctl.Message(err, "Record not found.")
	}
	return listctl.Message(err, fallback)
}
