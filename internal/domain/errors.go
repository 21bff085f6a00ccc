package domain

import (
	"errors"
	"fmt"
)

// Error kinds, one per failure class the orchestrator can surface to the
// user. Wrap with fmt.Errorf("...: %w", Err...) and match with errors.Is.
var (
	// ErrAuth indicates a rejected authorization or refresh exchange. The
	// user must re-connect their account.
	ErrAuth = errors.New("authorization failed")
	// ErrFetch indicates an upstream API failure or malformed payload. The
	// user may retry the sync.
	ErrFetch = errors.New("activity fetch failed")
	// ErrStorage indicates the database was unreachable or rejected a write.
	ErrStorage = errors.New("storage failed")
	// ErrNoToken is returned when no token row exists for an athlete. It
	// wraps ErrAuth so callers can treat it as "re-authorize".
	ErrNoToken = fmt.Errorf("no stored token: %w", ErrAuth)
)

// Kind collapses an error chain to its taxonomy name for display and
// metrics labels. Unrecognized errors report as "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrFetch):
		return "fetch"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "internal"
	}
}
