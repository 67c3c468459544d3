package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

const (
	exitFailure     = 1
	exitUsage       = 2
	exitAuth        = 3
	exitUnavailable = 4
)

// usageError marks bad flags or arguments.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }

func (e usageError) Unwrap() error { return e.err }

// describe turns any command error into a one-line notification.
func describe(err error) string {
	var (
		vErr    *domain.ValidationError
		tErr    *domain.TransportError
		httpErr *domain.HTTPError
		uErr    usageError
	)
	switch {
	case errors.As(err, &uErr):
		return uErr.Error()
	case errors.As(err, &vErr):
		if vErr.Field == "" {
			return "invalid input: " + vErr.Message
		}
		return fmt.Sprintf("invalid input: %s %s", vErr.Field, vErr.Message)
	case errors.Is(err, domain.ErrNotAuthenticated):
		return "not signed in; run `splitup login` first"
	case errors.Is(err, domain.ErrInvalidCredentials):
		if errors.As(err, &httpErr) && httpErr.Status == http.StatusTooManyRequests {
			return "too many attempts; try again later"
		}
		return "invalid credentials or verification code"
	case errors.As(err, &tErr):
		return fmt.Sprintf("cannot reach the SplitUp API: %v", tErr.Err)
	case errors.As(err, &httpErr):
		return describeStatus(httpErr)
	default:
		return err.Error()
	}
}

func describeStatus(e *domain.HTTPError) string {
	switch e.Status {
	case http.StatusUnauthorized:
		return "the server rejected the session; sign in again"
	case http.StatusForbidden:
		return "permission denied"
	case http.StatusNotFound:
		return "not found"
	case http.StatusTooManyRequests:
		return "too many attempts; try again later"
	}
	if e.Message != "" {
		return fmt.Sprintf("request failed (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("request failed (%d %s)", e.Status, http.StatusText(e.Status))
}

func exitCode(err error) int {
	var (
		vErr *domain.ValidationError
		tErr *domain.TransportError
		uErr usageError
	)
	switch {
	case errors.As(err, &uErr), errors.As(err, &vErr):
		return exitUsage
	case errors.Is(err, domain.ErrNotAuthenticated), errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, errStaffOnly):
		return exitAuth
	case errors.As(err, &tErr):
		return exitUnavailable
	}
	switch domain.StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return exitAuth
	}
	return exitFailure
}
