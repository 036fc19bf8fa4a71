// Package httpserver is the gin based HTTP server shared by the API.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	ReadHeaderTimeout = 5 * time.Second
	ShutdownTimeout   = 10 * time.Second
)

type Server struct {
	Router *gin.Engine
	Logger logrus.FieldLogger

	server http.Server

	mu    sync.Mutex
	error error
}

func NewServer(component string, port int, logger logrus.FieldLogger, responder ErrorResponder) *Server {
	logger = logger.WithField("component", component)

	defer logger.Info("Server created.")

	router := NewRouter(logger, responder)

	return &Server{
		Router: router,
		Logger: logger,
		server: http.Server{
			Addr:              fmt.Sprintf("0.0.0.0:%d", port),
			ReadHeaderTimeout: ReadHeaderTimeout,
			Handler:           router,
		},
	}
}

func (s *Server) Addr() string {
	return s.server.Addr
}

// Run serves until ctx is done or the server fails.
func (s *Server) Run(ctx context.Context) error {
	s.Logger.Info("Starting server at: ", s.server.Addr)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		s.server.Shutdown(shutdownCtx) //nolint:errcheck,contextcheck
	}()

	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	s.mu.Lock()
	s.error = err
	s.mu.Unlock()

	return fmt.Errorf("server failed: %w", err)
}

func (s *Server) HealthCheck() error {
	s.Logger.Debug("Server health check.")

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.error
}

func (s *Server) Shutdown() error {
	s.Logger.Debug("Server shutting down...")
	defer s.Logger.Debug("Server shot down.")

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	return s.server.Shutdown(ctx) //nolint:wrapcheck
}
