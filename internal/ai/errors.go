package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrInferenceTimeout    = errors.New("ai inference timeout")
	ErrInvalidResponse     = errors.New("ai provider returned invalid response")
	ErrNoMask              = errors.New("no segmentation mask in response")
)

// StatusError is a non-2xx reply from a remote model endpoint.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Code, e.Body)
}

// StatusCode exposes the HTTP status for retry classification.
func (e *StatusError) StatusCode() int { return e.Code }

// ClassifyTransportError maps transport-level errors to sentinel errors.
func ClassifyTransportError(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", provider, ErrInferenceTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %w: %v", provider, ErrInferenceTimeout, err)
	}
	return fmt.Errorf("%s: %w: %v", provider, ErrProviderUnavailable, err)
}

// truncateBody keeps error bodies readable in job status and logs.
func truncateBody(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "...(truncated)"
}

// NewStatusError builds a StatusError, capping the body at 512 bytes.
func NewStatusError(provider string, code int, body []byte) *StatusError {
	return &StatusError{Provider: provider, Code: code, Body: truncateBody(body, 512)}
}
