package agent

import (
	"errors"
	"fmt"
	"net/http"
)

// RemoteError reports a transport failure or a non-2xx status from the agent
// endpoint. StatusCode is zero when no response was received.
type RemoteError struct {
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("agent endpoint returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("agent request failed: %v", e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// MalformedResponseError reports a response that arrived fine over HTTP but
// does not carry the expected agent, tool, or field.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "malformed agent response: " + e.Reason
}

func malformed(format string, args ...any) *MalformedResponseError {
	return &MalformedResponseError{Reason: fmt.Sprintf(format, args...)}
}

// ErrorKind classifies err for logs and metrics: "remote", "malformed", or
// "other".
func ErrorKind(err error) string {
	var re *RemoteError
	var me *MalformedResponseError
	switch {
	case errors.As(err, &me):
		return "malformed"
	case errors.As(err, &re):
		return "remote"
	default:
		return "other"
	}
}
