package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	mw "github.com/kiranshivaraju/studioshots/internal/api/middleware"
	"github.com/kiranshivaraju/studioshots/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit   *mw.RateLimit
	CORSOrigins []string

	RootHandler         http.HandlerFunc
	HealthHandler       http.HandlerFunc
	ProcessVideoHandler http.HandlerFunc
	JobStatusHandler    http.HandlerFunc
	ResultsHandler      http.HandlerFunc
	ImageHandler        http.HandlerFunc
	DeleteJobHandler    http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RealIP)
	r.Use(mw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{mw.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, response.CodeNotFound, "Resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, response.CodeMethodNotAllowed, "Method not allowed")
	})

	r.Get("/", orNotImplemented(deps.RootHandler))
	r.Get("/health", orNotImplemented(deps.HealthHandler))

	r.Route("/api", func(r chi.Router) {
		// only job submission is rate limited
		submit := r
		if deps.RateLimit != nil {
			submit = r.With(deps.RateLimit.Limit)
		}
		submit.Post("/process-video", orNotImplemented(deps.ProcessVideoHandler))

		r.Get("/job-status/{jobID}", orNotImplemented(deps.JobStatusHandler))
		r.Get("/results/{jobID}", orNotImplemented(deps.ResultsHandler))
		r.Get("/image/{jobID}/{imageType}/{filename}", orNotImplemented(deps.ImageHandler))
		r.Delete("/job/{jobID}", orNotImplemented(deps.DeleteJobHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, response.CodeNotImplemented, "Endpoint not yet implemented")
	}
}
