package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetslots/internal/config"
	"github.com/teemow/meetslots/internal/instrumentation"
	"github.com/teemow/meetslots/internal/resources"
	"github.com/teemow/meetslots/internal/server"
	"github.com/teemow/meetslots/internal/tools/google_tools"
	"github.com/teemow/meetslots/internal/tools/slot_tools"
)

// Supported serve transports.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
	TransportHTTP           = "http"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// serveOptions collects the serve flags.
type serveOptions struct {
	Transport        string
	Addr             string
	Yolo             bool
	DisableStreaming bool
	SecureCookies    bool
	Metrics          MetricsConfig
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server and the booking API",
		Long: `Start the Model Context Protocol (MCP) server providing slot lookup and
booking tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: MCP over streamable HTTP at /mcp
  - http: streamable HTTP MCP plus the JSON booking API under /api/v1

Safety Mode:
  By default, the server operates in read-only mode, providing only slot
  lookups. Use --yolo to enable booking, invitation and admin tools.

Configuration is read from MEETSLOTS_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				if addr := os.Getenv(config.EnvHTTPAddr); addr != "" {
					opts.Addr = addr
				}
			}
			if !cmd.Flags().Changed("metrics-addr") {
				if addr := os.Getenv(config.EnvMetricsAddr); addr != "" {
					opts.Metrics.Addr = addr
				}
			}
			if !cmd.Flags().Changed("metrics-enabled") {
				if v, err := strconv.ParseBool(os.Getenv("METRICS_ENABLED")); err == nil {
					opts.Metrics.Enabled = v
				}
			}
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Transport, "transport", TransportStdio, "Transport type: stdio, streamable-http or http")
	cmd.Flags().StringVar(&opts.Addr, "addr", config.DefaultHTTPAddr, "HTTP server address (for streamable-http and http transports). Can also use MEETSLOTS_HTTP_ADDR env var.")
	cmd.Flags().BoolVar(&opts.Yolo, "yolo", false, "Enable write tools (booking, invitations, admin). Default is read-only mode.")
	cmd.Flags().BoolVar(&opts.DisableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")
	cmd.Flags().BoolVar(&opts.SecureCookies, "secure-cookies", false, "Mark organization session cookies as Secure (enable behind HTTPS)")
	cmd.Flags().BoolVar(&opts.Metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.Metrics.Addr, "metrics-addr", config.DefaultMetricsAddr, "Metrics server address. Can also use MEETSLOTS_METRICS_ADDR env var.")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	switch opts.Transport {
	case TransportStdio, TransportStreamableHTTP, TransportHTTP:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s, %s)",
			opts.Transport, TransportStdio, TransportStreamableHTTP, TransportHTTP)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := slog.Default()

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error during instrumentation shutdown", "error", err)
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	if opts.Transport != TransportStdio && opts.Metrics.Enabled && provider.Enabled() {
		metricsServer, err := startMetricsServer(opts.Metrics, provider)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("error during metrics server shutdown", "error", err)
			}
		}()
	}

	var metrics *instrumentation.Metrics
	if provider.Enabled() {
		metrics = provider.Metrics()
	}

	svcs, err := newServices(ctx, logger, metrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := svcs.Close(); err != nil {
			logger.Warn("error during server context shutdown", "error", err)
		}
	}()
	audit := instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)
	svcs.sc.SetAuditLogger(audit)
	svcs.booking.SetAuditLogger(audit)

	mcpSrv := mcpserver.NewMCPServer("meetslots", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	readOnly := !opts.Yolo
	if opts.Transport != TransportStdio {
		if readOnly {
			logger.Info("starting server in READ-ONLY mode (use --yolo to enable write tools)")
		} else {
			logger.Info("starting server with WRITE tools enabled (--yolo flag is set)")
		}
	}

	if err := registerAllTools(mcpSrv, svcs.sc, readOnly); err != nil {
		return err
	}

	switch opts.Transport {
	case TransportStdio:
		return runStdioServer(mcpSrv)
	default:
		return runHTTPServer(ctx, mcpSrv, svcs, opts, logger)
	}
}

func startMetricsServer(cfg MetricsConfig, provider *instrumentation.Provider) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    cfg.Addr,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		slog.Info("metrics server started", "addr", metricsServer.Addr())
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// runHTTPServer serves MCP over streamable HTTP and, for the http transport,
// the JSON booking API until ctx is cancelled.
func runHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, svcs *services, opts serveOptions, logger *slog.Logger) error {
	health := server.NewHealthChecker(svcs.sc, version)
	if p, ok := svcs.store.(interface{ Ping(context.Context) error }); ok {
		health.AddCheck("duration_store", p.Ping)
	}

	routerCfg := server.RouterConfig{
		Context: svcs.sc,
		Health:  health,
		MCPHandler: mcpserver.NewStreamableHTTPServer(mcpSrv,
			mcpserver.WithEndpointPath("/mcp"),
			mcpserver.WithDisableStreaming(opts.DisableStreaming),
		),
		Logger: logger,
	}

	if opts.Transport == TransportHTTP {
		sessions, err := server.NewSessionManager(svcs.cfg.CookieHashKey, svcs.cfg.CookieBlockKey, server.DefaultSessionTTL, opts.SecureCookies)
		if err != nil {
			return fmt.Errorf("failed to create session manager: %w", err)
		}
		if len(svcs.cfg.CookieHashKey) == 0 {
			logger.Warn("no cookie keys configured, organization sessions end on restart",
				"hash_key_env", config.EnvCookieHashKey)
		}
		routerCfg.EnableAPI = true
		routerCfg.Sessions = sessions
		routerCfg.LoginLimiter = server.NewIPRateLimiter(server.DefaultLoginRate, server.DefaultLoginBurst, logger)
	}

	router, err := server.NewRouter(routerCfg)
	if err != nil {
		return fmt.Errorf("failed to create router: %w", err)
	}

	httpServer := server.NewHTTPServer(opts.Addr, router)
	ready := make(chan struct{})
	serverErr := make(chan error, 1)
	go func() {
		if err := httpServer.StartWithReadySignal(ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ready:
		health.SetReady(true)
		logger.Info("meetslots server started", "transport", opts.Transport, "addr", httpServer.Addr())
	case err := <-serverErr:
		return fmt.Errorf("http server failed to start: %w", err)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err, ok := <-serverErr:
		if ok && err != nil {
			return fmt.Errorf("http server stopped with error: %w", err)
		}
		return nil
	}

	health.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Slot Tools",
			register: func() error {
				return slot_tools.RegisterSlotTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "Google Tools",
			register: func() error {
				return google_tools.RegisterGoogleTools(mcpSrv, ctx)
			},
		},
		{
			name: "Schedule Resources",
			register: func() error {
				return resources.RegisterScheduleResources(mcpSrv, ctx)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}
