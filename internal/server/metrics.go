package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/teemow/meetslots/internal/instrumentation"
)

// DefaultMetricsAddr is where Prometheus scrapes unless configured otherwise.
const DefaultMetricsAddr = ":9090"

// MetricsServerConfig configures NewMetricsServer.
type MetricsServerConfig struct {
	Addr                    string
	InstrumentationProvider *instrumentation.Provider
}

// MetricsServer serves /metrics on a listener of its own so scrapes never
// share a port with the public booking API.
type MetricsServer struct {
	*HTTPServer
}

// NewMetricsServer requires an enabled provider using the Prometheus exporter.
func NewMetricsServer(cfg MetricsServerConfig) (*MetricsServer, error) {
	p := cfg.InstrumentationProvider
	switch {
	case p == nil:
		return nil, errors.New("instrumentation provider is required for metrics server")
	case !p.Enabled():
		return nil, errors.New("instrumentation provider is not enabled")
	case p.PrometheusHandler() == nil:
		return nil, errors.New("instrumentation provider does not export prometheus metrics")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultMetricsAddr
	}

	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", p.PrometheusHandler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	return &MetricsServer{HTTPServer: NewHTTPServer(cfg.Addr, r)}, nil
}
