package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRequestFailed is returned when the collaborator cannot be reached
	// or answers with a non-success status.
	ErrRequestFailed = errors.New("search service request failed")

	// ErrMalformedResponse is returned when a response body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed search service response")

	// ErrProductNotFound is returned by Product for unknown identifiers.
	ErrProductNotFound = errors.New("product not found")
)

// Error describes a non-success HTTP answer from the collaborator.
// Message carries the collaborator's own error text, if it sent any.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("status %d", e.StatusCode)
}

func (e *Error) Unwrap() error { return ErrRequestFailed }

// ServiceMessage extracts collaborator-supplied error text from err.
// It returns "" when err carries none.
func ServiceMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// parseErrorBody pulls a human readable message out of an error body.
// FastAPI style {"detail": ...}, {"error": ...} and {"message": ...}
// are recognised; anything else yields "".
func parseErrorBody(body []byte) string {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return ""
	}
	for _, key := range []string{"error", "detail", "message"} {
		switch v := doc[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case []any:
			var parts []string
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					if msg, ok := m["msg"].(string); ok {
						parts = append(parts, msg)
					}
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, "; ")
			}
		}
	}
	return ""
}
