package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	ErrEmptyPrompt    = errors.New("prompt is empty")
	ErrNoCandidates   = errors.New("no candidates in response")
	ErrNoImageData    = errors.New("no image data found in response")
	ErrEmptyImageData = errors.New("empty image data in response")
)

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return fmt.Sprintf("gemini API %s", e.Status)
	}
	return fmt.Sprintf("gemini API %s: %s", e.Status, body)
}

// Details renders the error body for humans: indented when it is JSON,
// trimmed verbatim otherwise.
func (e *APIError) Details() string {
	raw := bytes.TrimSpace(e.Body)
	if len(raw) == 0 {
		return ""
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err == nil {
		return out.String()
	}
	return string(raw)
}

// TransportError wraps failures that happened before a response arrived.
type TransportError struct {
	Err     error
	Timeout bool
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("request timed out: %v", e.Err)
	}
	return fmt.Sprintf("request: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func newTransportError(err error) *TransportError {
	timeout := errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}
	return &TransportError{Err: err, Timeout: timeout}
}

// ResponseError means the body was not a valid generateContent response.
type ResponseError struct {
	Err error
}

func (e *ResponseError) Error() string { return fmt.Sprintf("decode response: %v", e.Err) }

func (e *ResponseError) Unwrap() error { return e.Err }

// DecodeError means the inline image payload was not valid base64.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode base64: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }
