// Package server exposes the dispatch service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	gql "github.com/graph-gophers/graphql-go"
	gqlerrors "github.com/graph-gophers/graphql-go/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/courierhub/internal/graphql"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const maxGraphQLBody = 1 << 20

// Server is the HTTP server for the courier hub.
type Server struct {
	port     int
	logger   *otelzap.Logger
	executor *graphql.Executor
	webhooks http.Handler
	gatherer prometheus.Gatherer
}

// Config holds server configuration. Webhooks and Gatherer are optional.
type Config struct {
	Port     int
	Executor *graphql.Executor
	Webhooks http.Handler
	Gatherer prometheus.Gatherer
	Logger   *otelzap.Logger
}

// New creates a new server instance.
func New(cfg Config) *Server {
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		port:     cfg.Port,
		logger:   cfg.Logger,
		executor: cfg.Executor,
		webhooks: cfg.Webhooks,
		gatherer: gatherer,
	}
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/graphql", s.handleGraphQL)
	if s.webhooks != nil {
		mux.Handle("/webhooks/{carrier}", s.webhooks)
	}
	return mux
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleGraphQL answers 200 for every executed document, errors included.
// Only transport failures use other status codes.
func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeResponse(w, http.StatusMethodNotAllowed, &gql.Response{
			Errors: []*gqlerrors.QueryError{gqlerrors.Errorf("method not allowed, use POST")},
		})
		return
	}

	var req graphql.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxGraphQLBody)).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, &gql.Response{
			Errors: []*gqlerrors.QueryError{gqlerrors.Errorf("invalid JSON: %v", err)},
		})
		return
	}
	if req.Query == "" {
		s.writeResponse(w, http.StatusBadRequest, &gql.Response{
			Errors: []*gqlerrors.QueryError{gqlerrors.Errorf("query is required")},
		})
		return
	}

	resp := s.executor.Execute(r.Context(), req)
	if len(resp.Errors) > 0 {
		s.logger.Ctx(r.Context()).Debug("GraphQL request returned errors",
			zap.String("operation", req.OperationName),
			zap.Int("errors", len(resp.Errors)),
		)
	}
	s.writeResponse(w, http.StatusOK, resp)
}

func (s *Server) writeResponse(w http.ResponseWriter, status int, resp *gql.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("Failed to write GraphQL response", zap.Error(err))
	}
}
