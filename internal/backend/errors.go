package backend

import "fmt"

// RequestFailedError is returned when the endpoint answers with a non-2xx status.
type RequestFailedError struct {
	Status int
	Body   string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("API request failed: %d", e.Status)
}

// TransportError is returned when no response was received at all:
// connection refused, DNS failure, timeout, body read failure.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ResponseFormatError is returned when a 2xx body does not carry an
// assistant message.
type ResponseFormatError struct {
	Reason string
}

func (e *ResponseFormatError) Error() string {
	return "invalid response format from AI API: " + e.Reason
}
