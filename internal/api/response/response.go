// Package response renders the API's JSON envelopes. Successful calls are
// wrapped as {"data": ...}, failures as {"error": {"code", "message"}}.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Code is the machine-readable error code clients switch on.
type Code string

const (
	CodeInvalidRequest     Code = "INVALID_REQUEST"
	CodeInvalidURL         Code = "INVALID_URL"
	CodeInvalidImagePath   Code = "INVALID_IMAGE_PATH"
	CodeJobNotCompleted    Code = "JOB_NOT_COMPLETED"
	CodeJobNotFound        Code = "JOB_NOT_FOUND"
	CodeImageNotFound      Code = "IMAGE_NOT_FOUND"
	CodeNotFound           Code = "NOT_FOUND"
	CodeMethodNotAllowed   Code = "METHOD_NOT_ALLOWED"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeNotImplemented     Code = "NOT_IMPLEMENTED"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
)

var statusByCode = map[Code]int{
	CodeInvalidRequest:     http.StatusBadRequest,
	CodeInvalidURL:         http.StatusBadRequest,
	CodeInvalidImagePath:   http.StatusBadRequest,
	CodeJobNotCompleted:    http.StatusBadRequest,
	CodeJobNotFound:        http.StatusNotFound,
	CodeImageNotFound:      http.StatusNotFound,
	CodeNotFound:           http.StatusNotFound,
	CodeMethodNotAllowed:   http.StatusMethodNotAllowed,
	CodeRateLimitExceeded:  http.StatusTooManyRequests,
	CodeInternal:           http.StatusInternalServerError,
	CodeNotImplemented:     http.StatusNotImplemented,
	CodeServiceUnavailable: http.StatusServiceUnavailable,
}

// Status is the HTTP status sent with c. Unknown codes are server errors.
func (c Code) Status() int {
	if s, ok := statusByCode[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Problem is the body of an error envelope.
type Problem struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type dataEnvelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error Problem `json:"error"`
}

// internalBody is sent when a payload cannot be encoded.
var internalBody = []byte(`{"error":{"code":"INTERNAL_ERROR","message":"An unexpected error occurred"}}`)

// OK writes v as a 200 data envelope.
func OK(w http.ResponseWriter, v any) {
	write(w, http.StatusOK, dataEnvelope{Data: v})
}

// Error writes an error envelope with the status that belongs to code.
func Error(w http.ResponseWriter, code Code, message string) {
	ErrorWithDetails(w, code, message, nil)
}

// ErrorWithDetails is Error with a details object attached.
func ErrorWithDetails(w http.ResponseWriter, code Code, message string, details any) {
	write(w, code.Status(), errorEnvelope{Error: Problem{Code: code, Message: message, Details: details}})
}

// write encodes before touching the header so an unencodable payload still
// produces a well-formed 500.
func write(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("encoding response failed", "error", err)
		status, body = http.StatusInternalServerError, internalBody
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Debug("writing response failed", "error", err)
	}
}
