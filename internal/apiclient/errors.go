package apiclient

import (
	"errors"
	"fmt"
)

// TransportError reports that a request never produced an HTTP response.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: transport: %v", e.Endpoint, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a response body that was not the expected JSON.
type DecodeError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response (status %d): %v", e.Endpoint, e.Status, e.Err)
}
func (e *DecodeError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx status on an endpoint whose body is not a
// JSON outcome (image bytes, status reads).
type StatusError struct {
	Endpoint string
	Status   int
}

func (e *StatusError) Error() string { return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.Status) }

// IsTransport reports whether err is a network-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsDecode reports whether err is an unparseable response body.
func IsDecode(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// IsNotFound reports whether err carries a 404 status.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == 404
}
