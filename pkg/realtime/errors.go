package realtime

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrNotConnected is returned by sends while the client is idle.
var ErrNotConnected = errors.New("realtime: not connected")

// ErrConnecting is returned by Connect while another Connect is in flight.
var ErrConnecting = errors.New("realtime: connect in progress")

// ConnectionError reports a failed connect. The client stays idle and
// Connect may be retried.
type ConnectionError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *ConnectionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("realtime: connect %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("realtime: connect %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ServerError is the body of an inbound error event.
type ServerError struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
	EventID string `json:"event_id,omitempty"`
}

func (e *ServerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("realtime server error %s/%s: %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("realtime server error %s: %s", e.Type, e.Message)
}

// redactURL drops credentials from a URL before it is logged or returned.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("api-key") {
		q.Set("api-key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	u.User = nil
	return u.String()
}
