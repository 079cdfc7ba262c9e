// Package server assembles the HTTP API for site-improver.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/dizid/site-improver/internal/server/handlers"
	"github.com/dizid/site-improver/internal/server/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the HTTP server for the site-improver API.
type Server struct {
	httpServer *http.Server
}

// Options carries server assembly parameters beyond handler dependencies.
type Options struct {
	Addr         string
	SystemSecret string
}

// New creates a new API server.
func New(opts Options, deps handlers.Deps) *Server {
	h := handlers.New(deps)
	authMW := middleware.Auth(deps.Store)
	rateMW := middleware.RateLimit()
	internalMW := middleware.RequireInternalAuth(opts.SystemSecret)

	authed := func(fn http.HandlerFunc) http.Handler {
		return authMW(rateMW(fn))
	}
	internal := func(fn http.HandlerFunc) http.Handler {
		return internalMW(fn)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /tenants", h.CreateTenant)

	// Public authenticated apis
	mux.Handle("POST /pipeline", authed(h.RunPipeline))
	mux.Handle("GET /pipeline/{id}/status", authed(h.JobStatus))
	mux.Handle("GET /pipeline/{id}/events", authed(h.PipelineEvents))

	mux.Handle("GET /usage", authed(h.GetUsage))

	mux.Handle("GET /leads", authed(h.ListLeads))
	mux.Handle("POST /leads", authed(h.CreateLead))
	mux.Handle("GET /leads/stats", authed(h.LeadStats))
	mux.Handle("GET /leads/{id}", authed(h.GetLead))
	mux.Handle("PUT /leads/{id}", authed(h.UpdateLead))
	mux.Handle("DELETE /leads/{id}", authed(h.DeleteLead))

	mux.Handle("GET /deployments", authed(h.ListDeployments))
	mux.Handle("GET /deployments/{id}", authed(h.GetDeployment))
	mux.Handle("DELETE /deployments/{id}", authed(h.DeleteDeployment))

	// Internal endpoints. Called by the billing webhook and operators;
	// these should run behind strict network rules.
	mux.Handle("POST /internal/billing/rollover", internal(h.BillingRollover))
	mux.Handle("GET /internal/breakers", internal(h.ListBreakers))
	mux.Handle("POST /internal/breakers/{name}/reset", internal(h.ResetBreaker))

	return &Server{
		httpServer: &http.Server{
			Addr:        opts.Addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// No WriteTimeout: the events endpoint holds SSE streams open
			// far longer than any sane request deadline.
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
