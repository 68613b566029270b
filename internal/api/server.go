// Package api provides the HTTP REST surface of the sales agent.
//
// Endpoints:
//
//	GET    /health            liveness probe
//	GET    /ready             readiness probe (pings the database)
//	POST   /api/ask           synchronous question answering
//	POST   /api/ask/stream    streaming answers via Server-Sent Events
//	DELETE /api/sessions/{id} clear one session's history
//	GET    /api/tools         list registered tools
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery)
//   - health.go: health check endpoints
//   - ask.go: question answering, streaming, session reset
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"salesagent/internal/log"
	"salesagent/internal/tool"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8090"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Streaming answers can take a while when several tool rounds run.
	WriteTimeout = 5 * time.Minute

	// IdleTimeout is the maximum time to wait for the next request on keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the sales agent's REST API.
type Server struct {
	mux *http.ServeMux

	health *HealthHandler
	ask    *AskHandler

	logger log.Logger
}

// NewServer creates a new HTTP server with all routes registered.
// pool may be nil; the readiness probe then reports not ready.
func NewServer(ag Agent, registry *tool.Registry, pool *pgxpool.Pool, logger log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:    mux,
		health: NewHealthHandler(pool, logger),
		ask:    NewAskHandler(ag, registryCatalogue{registry}, logger),
		logger: logger,
	}

	s.health.RegisterRoutes(mux)
	s.ask.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery -> logging -> handler
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware, loggingMiddleware)
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// registryCatalogue adapts a tool registry to the ToolCatalogue interface.
type registryCatalogue struct {
	registry *tool.Registry
}

func (c registryCatalogue) ToolInfo() []ToolInfo {
	if c.registry == nil {
		return nil
	}
	specs := c.registry.Specs()
	infos := make([]ToolInfo, 0, len(specs))
	for _, spec := range specs {
		infos = append(infos, ToolInfo{Name: spec.Name, Description: spec.Description})
	}
	return infos
}
