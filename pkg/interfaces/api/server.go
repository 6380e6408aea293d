// Package api serves the plant services as a JSON HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vsinha/cashew/pkg/application/services"
	"github.com/vsinha/cashew/pkg/domain/entities"
	"github.com/vsinha/cashew/pkg/infrastructure/metrics"
)

// maxBodySize limits request bodies
const maxBodySize = 1 << 20

// Handler serves the API routes
type Handler struct {
	plant    *services.Plant
	metrics  *metrics.Metrics
	logger   *zap.Logger
	clock    func() time.Time
	location *time.Location
	ready    func(ctx context.Context) error
}

// Option configures a Handler
type Option func(*Handler)

// WithMetrics instruments requests and serves /metrics from m's registry
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithClock sets the clock used for default report dates
func WithClock(clock func() time.Time) Option {
	return func(h *Handler) { h.clock = clock }
}

// WithLocation sets the plant time zone that report dates are read in
func WithLocation(loc *time.Location) Option {
	return func(h *Handler) {
		if loc != nil {
			h.location = loc
		}
	}
}

// WithReadiness sets the check run by /healthz
func WithReadiness(check func(ctx context.Context) error) Option {
	return func(h *Handler) { h.ready = check }
}

// NewHandler creates the API handler
func NewHandler(plant *services.Plant, logger *zap.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		plant:    plant,
		logger:   logger,
		clock:    func() time.Time { return time.Now().UTC() },
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the API mux wrapped in request instrumentation
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.handleHealth)
	if h.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("GET /api/inventory", h.handleListItems)
	mux.HandleFunc("GET /api/inventory/low-stock", h.handleLowStock)
	mux.HandleFunc("GET /api/inventory/logs", h.handleInventoryLogs)
	mux.HandleFunc("POST /api/inventory/adjust", h.handleAdjust)
	mux.HandleFunc("PUT /api/inventory/{name}/reorder-level", h.handleReorderLevel)

	mux.HandleFunc("POST /api/production", h.handleRecord)
	mux.HandleFunc("GET /api/production", h.handleListProduction)
	mux.HandleFunc("GET /api/production/{id}", h.handleGetProduction)

	mux.HandleFunc("GET /api/reports/daily", h.handleDailyReport)
	mux.HandleFunc("GET /api/reports/range", h.handleRangeReport)
	mux.HandleFunc("GET /api/reports/inventory", h.handleInventoryReport)

	mux.HandleFunc("GET /api/lots", h.handleListLots)
	mux.HandleFunc("GET /api/trace/{lot}", h.handleTrace)

	mux.HandleFunc("POST /api/summaries/daily", h.handleSummarizeDay)
	mux.HandleFunc("POST /api/summaries/lot/{lot}", h.handleSummarizeLot)

	return h.instrument(mux)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.logger.Warn("Health check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument records request counts and latency per route pattern
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		if h.metrics != nil {
			h.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			h.metrics.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		}
		h.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", elapsed))
	})
}

// writeJSON writes a JSON response with the given status code
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("Failed to write JSON response", zap.Error(err))
	}
}

// errorResponse is the body of every error reply
type errorResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
	LogID    string   `json:"log_id,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeErrorBody(w, status, errorResponse{Error: message})
}

func writeErrorBody(w http.ResponseWriter, status int, body errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	var vErr *entities.ValidationError
	switch {
	case errors.As(err, &vErr), errors.Is(err, entities.ErrInvalidStage):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrItemNotFound),
		errors.Is(err, entities.ErrLogNotFound),
		errors.Is(err, entities.ErrLotNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, entities.ErrSummarizerDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError reports err to the client. Internal errors are logged and
// their details withheld.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}

	var vErr *entities.ValidationError
	if errors.As(err, &vErr) {
		body.Error = "validation failed"
		body.Problems = vErr.Problems
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
		body.Error = "internal error"
	}
	writeErrorBody(w, status, body)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// Serve runs an HTTP server on addr until ctx is cancelled, then shuts it
// down within shutdownTimeout
func Serve(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
