package provider

import (
	"errors"
	"fmt"
)

// Error is raised for any non-2xx backend response, transport failure, or a
// fundamentally malformed response envelope. The raw body is preserved
// verbatim for diagnosis. Status is zero when the request never reached the
// backend.
type Error struct {
	Provider string
	Status   int
	Body     string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s provider error: %s", e.Provider, e.Body)
	}
	return fmt.Sprintf("%s provider error (status %d): %s", e.Provider, e.Status, e.Body)
}

// IsProviderError reports whether err carries a *Error anywhere in its chain.
func IsProviderError(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}
