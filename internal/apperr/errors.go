// Package apperr defines the error taxonomy shared across the panel core.
//
// Configuration errors mean the user must supply something through
// settings; request errors carry the upstream HTTP status; data format
// and validation errors abort their operation without partial output.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is returned when an operation needs the API
	// credential and none has been committed yet.
	ErrMissingCredential = errors.New("api credential not set")

	// ErrMissingProfile is returned when no profile identifier could be
	// discovered from the page path or the persisted slot.
	ErrMissingProfile = errors.New("profile id not set")

	// ErrNotFound is returned for lookups that match nothing.
	ErrNotFound = errors.New("not found")

	// ErrPreloadActive is returned when a preload session is started
	// while another one is still running.
	ErrPreloadActive = errors.New("preload session already active")

	// ErrInvalidCredential is returned when a captured credential fails
	// the shape check or the authenticated probe.
	ErrInvalidCredential = errors.New("invalid api credential")
)

// RequestError is a non-2xx response from the remote API. It is surfaced
// once and never retried automatically.
type RequestError struct {
	Status int
	Text   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Text)
}

// DataFormatError reports remote data that is missing an expected shape,
// such as a CSV export without the required columns.
type DataFormatError struct {
	Reason string
}

func (e *DataFormatError) Error() string {
	return "data format: " + e.Reason
}
