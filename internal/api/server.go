// Package api exposes the HTTP interface for scheduling crawl jobs and
// reading their results.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/statlake/harvester/internal/metrics"
	"github.com/statlake/harvester/internal/queue"
	"github.com/statlake/harvester/internal/scrape"
)

// ReadyFunc reports whether downstream dependencies are reachable.
type ReadyFunc func(ctx context.Context) error

// Server wires HTTP handlers to the job service.
type Server struct {
	router  chi.Router
	service *scrape.Service
	ready   ReadyFunc
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes. ready may be nil,
// in which case readiness always reports ok.
func NewServer(service *scrape.Service, ready ReadyFunc, logger *zap.Logger) *Server {
	s := &Server{
		service: service,
		ready:   ready,
		logger:  logger.Named("api"),
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/crawl", func(r chi.Router) {
		r.Post("/hockey", s.createJob(scrape.JobTypeHockey))
		r.Post("/oscar", s.createJob(scrape.JobTypeOscar))
		r.Post("/all", s.createJob(scrape.JobTypeAll))
	})

	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", s.listJobs)
		r.Route("/{job_id}", func(r chi.Router) {
			r.Get("/", s.getJob)
			r.Get("/results", s.getJobResults)
		})
	})

	r.Route("/results", func(r chi.Router) {
		r.Get("/hockey", s.listHockeyTeams)
		r.Get("/oscar", s.listOscarFilms)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// createJob accepts a crawl request. The response is 202: the job row exists
// and its message is on the queue, but no crawling has happened yet.
func (s *Server) createJob(jobType scrape.JobType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := s.service.CreateJob(r.Context(), jobType)
		if err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, scrape.ErrUnknownJobType):
				status = http.StatusBadRequest
			case errors.Is(err, queue.ErrBrokerUnavailable):
				status = http.StatusServiceUnavailable
			}
			s.writeError(w, status, err.Error())
			return
		}
		s.writeJSON(w, http.StatusAccepted, job)
	}
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.service.ListJobs(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.service.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, scrape.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) getJobResults(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	results, err := s.service.GetResults(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, scrape.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) listHockeyTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.service.AllHockeyTeams(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

func (s *Server) listOscarFilms(w http.ResponseWriter, r *http.Request) {
	films, err := s.service.AllOscarFilms(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"films": films})
}
