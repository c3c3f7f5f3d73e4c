// Package server provides the HTTP API of the listings dashboard.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"listings_dashboard/internal/dashboard"
	"listings_dashboard/internal/gateway"
	"listings_dashboard/internal/metrics"
)

const (
	maxRequestBody  = 10 * 1024 * 1024
	shutdownTimeout = 10 * time.Second
)

// Proxy relays requests to the external webhooks.
type Proxy interface {
	FetchListings(ctx context.Context) (*gateway.Response, error)
	SubmitOCRJob(ctx context.Context, body []byte) (*gateway.Response, error)
	FetchTestPing(ctx context.Context) (*gateway.Response, error)
}

// Trigger schedules an immediate refresh without waiting for it.
type Trigger interface {
	Trigger()
}

// Deps are the components the server exposes.
type Deps struct {
	Proxy   Proxy
	Session *dashboard.Session
	Poller  Trigger
	// Hub serves the websocket endpoint; nil disables it.
	Hub     http.Handler
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

// Server is the dashboard HTTP server.
type Server struct {
	httpServer *http.Server
	proxy      Proxy
	session    *dashboard.Session
	poller     Trigger
	metrics    *metrics.Metrics
	log        *zap.Logger
}

// New creates a server listening on addr.
func New(addr string, d Deps) *Server {
	s := &Server{
		proxy:   d.Proxy,
		session: d.Session,
		poller:  d.Poller,
		metrics: d.Metrics,
		log:     d.Log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/listings", s.allow(s.handleListings, http.MethodGet))
	mux.HandleFunc("/api/ocr", s.allow(s.handleOCR, http.MethodPost))
	mux.HandleFunc("/api/test", s.allow(s.handleTest, http.MethodGet))

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/alerts", s.handleAlerts)
	mux.HandleFunc("POST /api/alerts/read", s.handleMarkRead)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/seen", s.handleSeen)
	mux.HandleFunc("GET /health", s.handleHealth)
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}
	if d.Hub != nil {
		mux.Handle("GET /ws", d.Hub)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.withRequestID(s.withLogging(s.withCORS(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
