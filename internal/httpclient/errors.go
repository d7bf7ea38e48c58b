package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
)

// NetworkMessage is shown to users when the server could not be reached.
const NetworkMessage = "Unable to reach the server"

// Kind classifies a failed call.
type Kind int

const (
	// KindNetwork means no HTTP response was received.
	KindNetwork Kind = iota + 1
	// KindAPI means the server answered with a non-2xx status.
	KindAPI
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAPI:
		return "api"
	default:
		return "unknown"
	}
}

// Error is returned by Client.Do for transport failures and non-2xx answers.
type Error struct {
	Kind      Kind
	Status    int    // HTTP status, KindAPI only
	Detail    string // server-provided "detail" string, may be empty
	RequestID string
	Err       error // underlying transport error, KindNetwork only
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAPI:
		if e.Detail != "" {
			return fmt.Sprintf("api error %d: %s", e.Status, e.Detail)
		}
		return fmt.Sprintf("api error %d", e.Status)
	default:
		return fmt.Sprintf("network error: %v", e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the text to show for this error: the server detail when
// there is one, otherwise fallback. Network failures use NetworkMessage.
func (e *Error) Message(fallback string) string {
	if e.Kind == KindNetwork {
		return NetworkMessage
	}
	if e.Detail != "" {
		return e.Detail
	}
	return fallback
}

// parseDetail extracts a string "detail" field from a JSON error body.
// Anything else (invalid JSON, missing field, structured detail) yields "".
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(envelope.Detail, &detail); err != nil {
		return ""
	}
	return detail
}

// OpError is the service-level error: a failed operation with the message
// that should be shown for it.
type OpError struct {
	Op      string
	Message string
	Err     error
}

func (e *OpError) Error() string {
	return e.Op + ": " + e.Message
}

func (e *OpError) Unwrap() error { return e.Err }

// Wrap normalizes err into an *OpError for op. Messages come from
// (*Error).Message when err carries an *Error, and from fallback otherwise.
func Wrap(op string, err error, fallback string) *OpError {
	msg := fallback
	var httpErr *Error
	if errors.As(err, &httpErr) {
		msg = httpErr.Message(fallback)
	}
	return &OpError{Op: op, Message: msg, Err: err}
}

// Message returns the user-facing message carried by err, or fallback.
func Message(err error, fallback string) string {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Message
	}
	var httpErr *Error
	if errors.As(err, &httpErr) {
		return httpErr.Message(fallback)
	}
	return fallback
}
