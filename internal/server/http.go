package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// HTTP server timeouts.
const (
	DefaultHTTPReadHeaderTimeout = 10 * time.Second
	DefaultHTTPWriteTimeout      = 90 * time.Second
	DefaultHTTPIdleTimeout       = 120 * time.Second

	// DefaultShutdownTimeout bounds graceful shutdown of a server.
	DefaultShutdownTimeout = 30 * time.Second
)

// HTTPServer serves the router built by NewRouter.
type HTTPServer struct {
	httpServer *http.Server
	addr       string
}

// NewHTTPServer creates a server for handler on addr.
func NewHTTPServer(addr string, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		addr: addr,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: DefaultHTTPReadHeaderTimeout,
			WriteTimeout:      DefaultHTTPWriteTimeout,
			IdleTimeout:       DefaultHTTPIdleTimeout,
		},
	}
}

// StartWithReadySignal binds the listener, closes ready and serves until
// Shutdown is called.
func (s *HTTPServer) StartWithReadySignal(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.addr = ln.Addr().String()

	slog.Info("starting http server", "addr", s.addr)
	if ready != nil {
		close(ready)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	slog.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the server address. After start it is the bound address.
func (s *HTTPServer) Addr() string {
	return s.addr
}
