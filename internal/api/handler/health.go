package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/kiranshivaraju/studioshots/internal/api/response"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
}

// NewHealthHandler returns an http.HandlerFunc for GET /health. A nil pinger
// reports redis as disabled. Redis is optional, so an unreachable one
// degrades the report without failing it.
func NewHealthHandler(redis Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "healthy", Redis: "disabled"}
		if redis != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			resp.Redis = "ok"
			if err := redis.Ping(ctx); err != nil {
				resp.Status = "degraded"
				resp.Redis = "unavailable"
			}
		}
		response.OK(w, resp)
	}
}

// NewRootHandler returns an http.HandlerFunc for GET /.
func NewRootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.OK(w, map[string]string{
			"message": "Studio Shots API",
			"status":  "running",
		})
	}
}
