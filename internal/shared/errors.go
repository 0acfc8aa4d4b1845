package shared

import (
	"context"
	"errors"
	"net"
)

var (

	// common errors
	ErrNotFound = errors.New("not found")

	// remote API errors
	ErrNotModified        = errors.New("not modified")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrMaintenance        = errors.New("server is in maintenance mode")
	ErrUnexpectedStatus   = errors.New("unexpected status code")
	ErrMalformedResponse  = errors.New("malformed server response")

	// sync-specific errors
	ErrAccountNotFound = errors.New("account does not exist")
)

// Retryable reports whether err describes a transient condition: the affected
// note stays dirty and is picked up again on the next cycle. Authentication
// failures and malformed payloads are not transient.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrMalformedResponse) {
		return false
	}
	if errors.Is(err, ErrMaintenance) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, ErrUnexpectedStatus)
}
