package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/crmdesk/crmctl/internal/errs"
)

// StatusError is a server-reported failure: the backend answered with a
// non-2xx status and, when the error body carried one, its message.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

// Unwrap maps authorization-relevant statuses to sentinels so callers can
// branch with errors.Is instead of matching message strings.
func (e *StatusError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return errs.ErrUnauthorized
	case http.StatusForbidden:
		return errs.ErrForbidden
	case http.StatusNotFound:
		return errs.ErrNotFound
	}
	return nil
}

// IsForbidden reports whether err is a server-side authorization denial.
// Views branch on it: deny-and-redirect rather than notify-and-stay.
func IsForbidden(err error) bool { return errors.Is(err, errs.ErrForbidden) }

// IsServerError reports whether the backend produced a response at all.
// False for an API failure means a network-level error with no response.
func IsServerError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}
