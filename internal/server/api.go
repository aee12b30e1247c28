package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/teemow/meetslots/internal/booking"
	"github.com/teemow/meetslots/internal/durations"
	"github.com/teemow/meetslots/internal/google"
	"github.com/teemow/meetslots/internal/instrumentation"
	"github.com/teemow/meetslots/internal/logging"
	"github.com/teemow/meetslots/internal/slots"
)

const maxRequestBody = 1 << 20

// RouterConfig wires the HTTP surfaces onto one router.
type RouterConfig struct {
	Context *ServerContext
	Health  *HealthChecker

	// EnableAPI mounts the JSON API under /api/v1. Sessions and
	// LoginLimiter are required when it is set.
	EnableAPI    bool
	Sessions     *SessionManager
	LoginLimiter *IPRateLimiter

	// MCPHandler is mounted at /mcp when set.
	MCPHandler http.Handler

	Logger *slog.Logger
}

type api struct {
	sc       *ServerContext
	sessions *SessionManager
	logger   *slog.Logger
}

// NewRouter builds the chi router for the HTTP transports.
func NewRouter(cfg RouterConfig) (chi.Router, error) {
	if cfg.Context == nil {
		return nil, fmt.Errorf("server context is required")
	}
	if cfg.EnableAPI && (cfg.Sessions == nil || cfg.LoginLimiter == nil) {
		return nil, fmt.Errorf("sessions and login limiter are required for the API")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics(cfg.Context))

	if cfg.Health != nil {
		cfg.Health.RegisterHealthEndpoints(r)
	}
	if cfg.MCPHandler != nil {
		r.Handle("/mcp", cfg.MCPHandler)
	}

	if cfg.EnableAPI {
		a := &api{sc: cfg.Context, sessions: cfg.Sessions, logger: cfg.Logger}
		r.Route("/api/v1", func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Use(withHTTPSource)

			r.Get("/slots", a.handleSlots)
			r.Post("/bookings", a.handleBook)
			r.Get("/proposals", a.handlePropose)
			r.Post("/proposals/bookings", a.handleAutoBook)

			r.With(cfg.LoginLimiter.Middleware).Post("/org/login", a.handleLogin)
			r.Post("/org/logout", a.handleLogout)

			r.Group(func(r chi.Router) {
				r.Use(cfg.Sessions.RequireOrg)
				r.Get("/org/durations", a.handleListDurations)
				r.Put("/org/durations/{date}", a.handleSetDuration)
				r.Post("/invitations", a.handleInvite)
				r.Post("/declines/scan", a.handleScanDeclines)
			})
		})
	}

	return r, nil
}

// requestMetrics records every request against its route pattern.
func requestMetrics(sc *ServerContext) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			path := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				path = rctx.RoutePattern()
			}
			sc.Metrics().RecordHTTPRequest(r.Context(), r.Method, path, status, time.Since(start))
		})
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}

func withHTTPSource(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(booking.WithSource(r.Context(), instrumentation.SourceHTTP)))
	})
}

func (a *api) service(w http.ResponseWriter) *booking.Service {
	svc := a.sc.BookingService()
	if svc == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "booking service is not configured")
	}
	return svc
}

func (a *api) handleSlots(w http.ResponseWriter, r *http.Request) {
	svc := a.service(w)
	if svc == nil {
		return
	}
	day, err := slots.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	account, ok := accountParam(w, r.URL.Query().Get("account"))
	if !ok {
		return
	}

	avail, err := svc.Availability(r.Context(), account, day)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, avail)
}

// bookingRequest accepts either an explicit start and end or a date and a
// time of day sized by the stored duration.
type bookingRequest struct {
	Account string     `json:"account"`
	Email   string     `json:"email"`
	Summary string     `json:"summary"`
	Start   *time.Time `json:"start,omitempty"`
	End     *time.Time `json:"end,omitempty"`
	Date    string     `json:"date,omitempty"`
	Time    string     `json:"time,omitempty"`
}

func (a *api) resolveSlot(r *http.Request, svc *booking.Service, req bookingRequest) (slots.Slot, error) {
	if req.Start != nil && req.End != nil {
		return slots.Slot{Start: *req.Start, End: *req.End}, nil
	}
	if req.Date == "" || req.Time == "" {
		return slots.Slot{}, fmt.Errorf("%w: either start and end or date and time are required", booking.ErrInvalidRequest)
	}
	day, err := slots.ParseDate(req.Date)
	if err != nil {
		return slots.Slot{}, fmt.Errorf("%w: %v", booking.ErrInvalidRequest, err)
	}
	clock, err := slots.ParseClock(req.Time)
	if err != nil {
		return slots.Slot{}, fmt.Errorf("%w: %v", booking.ErrInvalidRequest, err)
	}
	return svc.SlotAt(r.Context(), day, clock)
}

func (a *api) handleBook(w http.ResponseWriter, r *http.Request) {
	svc := a.service(w)
	if svc == nil {
		return
	}
	var req bookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	account, ok := accountParam(w, req.Account)
	if !ok {
		return
	}
	slot, err := a.resolveSlot(r, svc, req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	result, err := svc.Book(r.Context(), booking.BookRequest{
		Account:   account,
		UserEmail: req.Email,
		Summary:   req.Summary,
		Slot:      slot,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (a *api) handlePropose(w http.ResponseWriter, r *http.Request) {
	svc := a.service(w)
	if svc == nil {
		return
	}
	account, ok := accountParam(w, r.URL.Query().Get("account"))
	if !ok {
		return
	}
	count := 0
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSONError(w, http.StatusBadRequest, "count must be a positive integer")
			return
		}
		count = n
	}

	proposals, err := svc.Propose(r.Context(), account, count)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"proposals": proposals})
}

func (a *api) handleAutoBook(w http.ResponseWriter, r *http.Request) {
	svc := a.service(w)
	if svc == nil {
		return
	}
	var req bookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	account, ok := accountParam(w, req.Account)
	if !ok {
		return
	}
	if req.Start == nil || req.End == nil {
		writeJSONError(w, http.StatusBadRequest, "start and end are required")
		return
	}

	result, err := svc.AutoBook(r.Context(), account, req.Email, slots.Slot{Start: *req.Start, End: *req.End})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (a *api) handleLogin(w http.ResponseWriter, r *http.Request) {
	svc := a.service(w)
	if svc == nil {
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := svc.AuthorizeOrg(req.Password); err != nil {
		a.logger.Warn("organization login failed", "remote_ip", clientIP(r))
		a.writeError(w, r, err)
		return
	}
	if err := a.sessions.Issue(w); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleLogout(w http.ResponseWriter, _ *http.Request) {
	a.sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleListDurations(w http.ResponseWriter, r *http.Request) {
	svc := a.service(w)
	if svc == nil {
		return
	}
	all, err := svc.SlotDurations(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"default_minutes": svc.Config().Slots.DefaultSlotDuration,
		"durations":       all,
	})
}

func (a *api) handleSetDuration(w http.ResponseWriter, r *http.Request) {
	svc := a.service(w)
	if svc == nil {
		return
	}
	day, err := slots.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		Minutes int `json:"minutes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := svc.SetSlotDuration(r.Context(), day, req.Minutes); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": day, "duration_minutes": req.Minutes})
}

func (a *api) handleInvite(w http.ResponseWriter, r *http.Request) {
	svc := a.service(w)
	if svc == nil {
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := svc.Invite(r.Context(), req.Email); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleScanDeclines(w http.ResponseWriter, r *http.Request) {
	result, err := a.sc.ScanDeclines(r.Context())
	if err != nil && result == nil {
		a.writeError(w, r, err)
		return
	}
	if err != nil {
		a.logger.Error("decline scan stopped early", logging.Err(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error(), "result": result})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// statusForError maps service errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, booking.ErrInvalidRequest),
		errors.Is(err, booking.ErrInvalidDate),
		errors.Is(err, durations.ErrInvalidDuration),
		errors.Is(err, slots.ErrInvalidConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, booking.ErrSlotUnavailable):
		return http.StatusConflict
	case errors.Is(err, booking.ErrOrgEventFailed):
		return http.StatusBadGateway
	case errors.Is(err, ErrShutdown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			logging.Err(err))
	}
	msg := err.Error()
	if errors.Is(err, booking.ErrUnauthorized) {
		msg = booking.ErrUnauthorized.Error()
	}
	writeJSONError(w, status, msg)
}

func accountParam(w http.ResponseWriter, account string) (string, bool) {
	if account == "" {
		return google.DefaultAccount, true
	}
	if err := google.ValidateAccountName(account); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return account, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
