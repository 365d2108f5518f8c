// Package graceful coordinates process shutdown on SIGINT/SIGTERM.
package graceful

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rail-service/usdc-bridge/pkg/logger"
)

const defaultTimeout = 30 * time.Second

// Shutdowner is a component that drains within a deadline, like the poller.
type Shutdowner interface {
	Shutdown(timeout time.Duration) error
}

type namedCloser struct {
	name   string
	closer io.Closer
}

type ShutdownManager struct {
	server      *http.Server
	shutdowners []Shutdowner
	closers     []namedCloser
	timeout     time.Duration
	logger      *logger.Logger
}

func NewShutdownManager(server *http.Server, logger *logger.Logger) *ShutdownManager {
	return &ShutdownManager{
		server:  server,
		timeout: defaultTimeout,
		logger:  logger,
	}
}

// Register adds a component that is drained before the HTTP server stops.
func (sm *ShutdownManager) Register(s Shutdowner) {
	sm.shutdowners = append(sm.shutdowners, s)
}

// RegisterCloser adds a resource closed after the server, in registration order.
// Nil closers are ignored.
func (sm *ShutdownManager) RegisterCloser(name string, c io.Closer) {
	if c == nil {
		return
	}
	sm.closers = append(sm.closers, namedCloser{name: name, closer: c})
}

func (sm *ShutdownManager) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		sm.timeout = timeout
	}
}

// WaitForShutdown blocks until a termination signal arrives, then shuts down.
func (sm *ShutdownManager) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	<-quit

	sm.Shutdown()
}

// Shutdown drains registered components, stops the server and closes resources.
func (sm *ShutdownManager) Shutdown() {
	sm.logger.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	for _, s := range sm.shutdowners {
		if err := s.Shutdown(sm.timeout); err != nil {
			sm.logger.Warn("Component shutdown error", "error", err)
		}
	}

	if sm.server != nil {
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.Error("Server forced shutdown", "error", err)
		}
	}

	for _, c := range sm.closers {
		if err := c.closer.Close(); err != nil {
			sm.logger.Warn("Resource close error", "resource", c.name, "error", err)
		}
	}

	sm.logger.Info("Shutdown complete")
}
