package response_test

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kiranshivaraju/studioshots/internal/api/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestOK_WrapsPayload(t *testing.T) {
	w := httptest.NewRecorder()
	response.OK(w, map[string]int{"progress": 40})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.JSONEq(t, `{"progress": 40}`, string(body["data"]))
	assert.NotContains(t, body, "error")
}

func TestError_StatusFollowsCode(t *testing.T) {
	cases := []struct {
		code response.Code
		want int
	}{
		{response.CodeInvalidURL, http.StatusBadRequest},
		{response.CodeJobNotCompleted, http.StatusBadRequest},
		{response.CodeJobNotFound, http.StatusNotFound},
		{response.CodeImageNotFound, http.StatusNotFound},
		{response.CodeRateLimitExceeded, http.StatusTooManyRequests},
		{response.CodeServiceUnavailable, http.StatusServiceUnavailable},
		{response.Code("SOMETHING_NEW"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			w := httptest.NewRecorder()
			response.Error(w, tc.code, "boom")

			assert.Equal(t, tc.want, w.Code)
			var p response.Problem
			require.NoError(t, json.Unmarshal(decode(t, w)["error"], &p))
			assert.Equal(t, tc.code, p.Code)
			assert.Equal(t, "boom", p.Message)
			assert.Nil(t, p.Details)
		})
	}
}

func TestError_OmitsEmptyDetails(t *testing.T) {
	w := httptest.NewRecorder()
	response.Error(w, response.CodeJobNotFound, "Job not found")

	assert.JSONEq(t, `{"code": "JOB_NOT_FOUND", "message": "Job not found"}`, string(decode(t, w)["error"]))
}

func TestErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()
	response.ErrorWithDetails(w, response.CodeRateLimitExceeded, "Too many requests",
		map[string]int{"limit": 2})

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t,
		`{"code": "RATE_LIMIT_EXCEEDED", "message": "Too many requests", "details": {"limit": 2}}`,
		string(decode(t, w)["error"]))
}

func TestOK_UnencodablePayloadIsServerError(t *testing.T) {
	w := httptest.NewRecorder()
	response.OK(w, math.Inf(1))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var p response.Problem
	require.NoError(t, json.Unmarshal(decode(t, w)["error"], &p))
	assert.Equal(t, response.CodeInternal, p.Code)
}
