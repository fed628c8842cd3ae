package captcha

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidArgument is returned for bad configuration input and for requests rejected by HTTPAware
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUntested is returned when the last response is read before any verification
	ErrUntested = errors.New("captcha has not been verified yet")

	// ErrClientSetup is returned when the verification client could not be prepared
	ErrClientSetup = errors.New("could not prepare reCAPTCHA client")
)

// RejectedError is returned by HTTPAware.Check when a request did not pass
// verification. The message is safe to return in a response.
type RejectedError struct {
	Message    string
	StatusCode int
}

func newRejectedError(message string) *RejectedError {
	return &RejectedError{
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func (r *RejectedError) Error() string {
	return r.Message
}

// Unwrap allows errors.Is(err, ErrInvalidArgument)
func (r *RejectedError) Unwrap() error {
	return ErrInvalidArgument
}
