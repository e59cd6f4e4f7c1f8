// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"

	"github.com/okian/vibe/internal/adapters/repository"
	service "github.com/okian/vibe/internal/app"
	"github.com/okian/vibe/internal/domain/learner"
	"github.com/okian/vibe/internal/domain/model"
	"github.com/okian/vibe/internal/domain/scoring"
	"github.com/okian/vibe/pkg/logger"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AlignAndFuse(ctx context.Context, gestures, contexts []model.Event) ([]model.FusedReading, error)
	Recommend(ctx context.Context, req scoring.Request) (scoring.Result, error)
	Infer(ctx context.Context, req service.InferRequest) (service.InferResult, error)

	// RecordFeedback applies feedback synchronously and reports duplicates.
	RecordFeedback(ctx context.Context, fb model.Feedback) (bool, error)
	// EnqueueFeedback pushes feedback for async processing. Returns false on backpressure.
	EnqueueFeedback(ctx context.Context, fb model.Feedback) bool

	Profile(ctx context.Context, userID string) (*model.Profile, error)
}

// Server wires HTTP routes for the recommender API.
type Server struct {
	deps  Dependencies
	stats StatsProvider

	rateLimitRequests int
	rateLimitWindow   time.Duration
	now               func() time.Time
	logger            logger.Logger
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:            deps,
		stats:           stats,
		rateLimitWindow: time.Minute,
		now:             time.Now,
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the chi router with every API route attached.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.With(MetricsMiddleware("healthz")).Get("/healthz", HandleHealth)
	r.With(MetricsMiddleware("stats")).Get("/stats", s.handleStats)

	r.With(MetricsMiddleware("infer")).Post("/infer", s.handleInfer)
	r.With(MetricsMiddleware("fuse")).Post("/fuse", s.handleFuse)
	r.With(MetricsMiddleware("recommend")).Post("/recommend", s.handleRecommend)
	r.With(MetricsMiddleware("profiles")).Get("/profiles/{userID}", s.handleGetProfile)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit())
		r.With(MetricsMiddleware("feedback")).Post("/feedback", s.handlePostFeedback)
		r.With(MetricsMiddleware("feedback_batch")).Post("/feedback/batch", s.handlePostFeedbackBatch)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})
	return r
}

func (s *Server) rateLimit() func(http.Handler) http.Handler {
	if s.rateLimitRequests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		s.rateLimitRequests,
		s.rateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", nil)
		}),
	)
}

// timestampOr returns *ts, or the server clock when the client left it out.
func (s *Server) timestampOr(ts *int64) int64 {
	if ts != nil {
		return *ts
	}
	return s.now().Unix()
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decode reads a bounded JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, op string, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	if err := validateStruct(dst); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

// writeFailure maps an error to its status code and error body.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, learner.ErrInvalidOutcome):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, repository.ErrStorageUnavailable):
		s.logger.Error(r.Context(), "storage unavailable", logger.String("path", r.URL.Path), logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", err)
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	default:
		s.logger.Error(r.Context(), "request failed", logger.String("path", r.URL.Path), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
