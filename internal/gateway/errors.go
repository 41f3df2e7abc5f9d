package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/alt-project/flixctl/internal/domain"
)

// APIError is a non-2xx response from the movie service.
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("movie service returned %d: %s", e.Status, e.Message)
}

// Unwrap lets errors.Is match domain.ErrUnauthorized on 401s.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	default:
		return nil
	}
}

// IsUnauthorized reports whether err is an authorization failure from the service.
// Callers respond by logging the session out.
func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}

// MessageOf returns the user-facing message for any request error.
func MessageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return domain.GenericFailureMessage
}

// ErrorMessage extracts a message from an error body. Shapes are tried in a fixed order:
// {"errors":{field:msg}} (first field in document order), {"error":{"message"}}, {"message"}.
// Anything else yields the generic failure message.
func ErrorMessage(body []byte) string {
	var envelope struct {
		Errors json.RawMessage `json:"errors"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if len(bytes.TrimSpace(body)) == 0 || json.Unmarshal(body, &envelope) != nil {
		return domain.GenericFailureMessage
	}

	if msg := firstFieldError(envelope.Errors); msg != "" {
		return msg
	}
	if envelope.Error != nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	return domain.GenericFailureMessage
}

// firstFieldError returns the first entry of a field error map, preserving document order.
// A value may be a string or a list of strings.
func firstFieldError(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return ""
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return ""
	}
	if !dec.More() {
		return ""
	}
	if _, err := dec.Token(); err != nil {
		return ""
	}

	var value any
	if err := dec.Decode(&value); err != nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}
