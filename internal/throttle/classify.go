package throttle

import (
	"errors"
	"net/http"
	"strings"
)

// StatusCoder is implemented by errors that carry a remote HTTP status.
type StatusCoder interface {
	StatusCode() int
}

var rateLimitSignatures = []string{
	"429",
	"503",
	"rate limit",
	"quota",
	"resource exhausted",
	"overloaded",
	"unavailable",
	"loading",
}

// IsRateLimited reports whether err looks like a rate-limit or availability
// failure that deserves exponential backoff.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		switch sc.StatusCode() {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range rateLimitSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
