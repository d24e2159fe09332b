// Package handler implements the HTTP endpoints of the studio shots API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kiranshivaraju/studioshots/internal/api/response"
	"github.com/kiranshivaraju/studioshots/internal/jobs"
	"github.com/kiranshivaraju/studioshots/pkg/models"
)

// JobService is the job lifecycle the handlers depend on.
type JobService interface {
	Submit(ctx context.Context, videoURL string) (models.JobState, error)
	Status(ctx context.Context, jobID string) (models.JobStatusView, error)
	Results(jobID string) (models.JobResults, error)
	Delete(ctx context.Context, jobID string) error
}

type processVideoRequest struct {
	YoutubeURL string `json:"youtube_url"`
}

// NewProcessVideoHandler returns an http.HandlerFunc for POST /api/process-video.
func NewProcessVideoHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req processVideoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, response.CodeInvalidRequest, "Invalid JSON body")
			return
		}
		if req.YoutubeURL == "" {
			response.Error(w, response.CodeInvalidRequest, "youtube_url is required")
			return
		}

		state, err := svc.Submit(r.Context(), req.YoutubeURL)
		if err != nil {
			if errors.Is(err, jobs.ErrInvalidURL) {
				response.Error(w, response.CodeInvalidURL,
					"youtube_url must be an absolute http(s) URL")
				return
			}
			slog.Error("submitting job failed", "error", err)
			response.Error(w, response.CodeServiceUnavailable,
				"The server is not accepting new jobs")
			return
		}

		response.OK(w, state.StatusView())
	}
}

// NewJobStatusHandler returns an http.HandlerFunc for GET /api/job-status/{jobID}.
func NewJobStatusHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.Status(r.Context(), chi.URLParam(r, "jobID"))
		if err != nil {
			writeJobError(w, err)
			return
		}
		response.OK(w, view)
	}
}

// NewResultsHandler returns an http.HandlerFunc for GET /api/results/{jobID}.
func NewResultsHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Results(chi.URLParam(r, "jobID"))
		if err != nil {
			writeJobError(w, err)
			return
		}
		response.OK(w, res)
	}
}

// NewDeleteJobHandler returns an http.HandlerFunc for DELETE /api/job/{jobID}.
func NewDeleteJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")
		if err := svc.Delete(r.Context(), jobID); err != nil {
			writeJobError(w, err)
			return
		}
		response.OK(w, map[string]string{"message": "Job deleted successfully"})
	}
}

func writeJobError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		response.Error(w, response.CodeJobNotFound, "Job not found")
	case errors.Is(err, jobs.ErrJobNotCompleted):
		response.Error(w, response.CodeJobNotCompleted, "Job not completed yet or failed")
	default:
		slog.Error("job request failed", "error", err)
		response.Error(w, response.CodeInternal, "An unexpected error occurred")
	}
}
