package chatbot

import (
	"errors"

	"EduProChat/internal/backend"
)

// Kind is the terminal state of one Submit call.
type Kind string

const (
	KindIgnored          Kind = "ignored"
	KindRejectedCooldown Kind = "rejected_cooldown"
	KindRejectedBusy     Kind = "rejected_busy"
	KindSucceeded        Kind = "succeeded"
	KindFailed           Kind = "failed"
)

// Health is the connection indicator shown next to the widget title.
type Health string

const (
	HealthConnected    Health = "connected"
	HealthDisconnected Health = "disconnected"
	HealthError        Health = "error"
)

// Local rejections. They never reach the endpoint.
var (
	ErrRejectedCooldown = errors.New("submission rejected: cooldown")
	ErrRejectedBusy     = errors.New("submission rejected: request in flight")
)

// Canned assistant replies.
const (
	MsgCooldown     = "Please wait a moment before sending another message."
	MsgBusy         = "I'm still processing your previous message. Please wait."
	MsgAuth         = "Authentication error. Please contact support."
	MsgRateLimited  = "Too many requests. Please wait a moment before trying again."
	MsgServerError  = "Server error. Please try again in a few moments."
	MsgConnectivity = "I apologize, but I'm having trouble connecting to my AI service right now. Please try again in a moment or contact our support team for assistance."
)

// Outcome reports what a Submit call did. Reply is the assistant text that
// was appended to the transcript, empty for KindIgnored.
type Outcome struct {
	Kind   Kind
	Reply  string
	Health Health
	Err    error
}

// classify maps a failed completion to the reply shown to the user and the
// resulting connection health.
func classify(err error) (string, Health) {
	var reqErr *backend.RequestFailedError
	var transportErr *backend.TransportError

	switch {
	case errors.As(err, &reqErr):
		switch {
		case reqErr.Status == 401:
			return MsgAuth, HealthError
		case reqErr.Status == 429:
			return MsgRateLimited, HealthError
		case reqErr.Status >= 500 && reqErr.Status <= 599:
			return MsgServerError, HealthError
		default:
			return MsgConnectivity, HealthError
		}
	case errors.As(err, &transportErr):
		return MsgConnectivity, HealthDisconnected
	default:
		// ResponseFormatError and request construction failures.
		return MsgConnectivity, HealthError
	}
}

// statusOf extracts the HTTP status of a RequestFailedError, or 0.
func statusOf(err error) int {
	var reqErr *backend.RequestFailedError
	if errors.As(err, &reqErr) {
		return reqErr.Status
	}
	return 0
}
