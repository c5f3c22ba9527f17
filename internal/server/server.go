// Package server exposes the research pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-research/internal/config"
	"github.com/sells-group/opportunity-research/internal/model"
	"github.com/sells-group/opportunity-research/internal/pipeline"
)

// User-facing messages. Internal error detail is never returned.
const (
	MsgUnsupportedMedia   = "Content-Type must be application/json."
	MsgInvalidJSON        = "Request body must be valid JSON."
	MsgBodyTooLarge       = "Request body is too large."
	MsgValidationFailed   = "Validation failed."
	MsgServiceUnavailable = "The research service is temporarily unavailable. Please try again later."
	MsgUnexpectedFormat   = "The research service returned an unexpected format. Please try again."
	MsgInternal           = "An unexpected error occurred. Please try again later."
)

// Researcher runs one lookup.
type Researcher interface {
	Run(ctx context.Context, subject model.Subject) (*model.ResearchPayload, error)
}

// Limiter gates requests per client key.
type Limiter interface {
	Allow(key string) bool
	RetryAfter(key string) int
}

// Dispatcher hands a log entry off without blocking the response.
type Dispatcher interface {
	Dispatch(entry model.LogEntry)
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the time source used for log entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithIDGenerator overrides log entry ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Server) { s.newID = gen }
}

// Server handles lookup requests.
type Server struct {
	researcher Researcher
	limiter    Limiter
	dispatcher Dispatcher
	cfg        config.ServerConfig
	now        func() time.Time
	newID      func() string
}

// New builds a Server. limiter and dispatcher are shared for the process.
func New(researcher Researcher, limiter Limiter, dispatcher Dispatcher, cfg config.ServerConfig, opts ...Option) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 16 << 10
	}
	s := &Server{
		researcher: researcher,
		limiter:    limiter,
		dispatcher: dispatcher,
		cfg:        cfg,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Retry-After", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/api/opportunities", s.handleOpportunities)
	return r
}

type successResponse struct {
	Success       bool                   `json:"success"`
	Opportunities *model.ResearchPayload `json:"opportunities"`
}

type errorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	log := zap.L().With(zap.String("request_id", middleware.GetReqID(r.Context())))

	ip := s.clientIP(r)
	if !s.limiter.Allow(ip) {
		retry := s.limiter.RetryAfter(ip)
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		log.Warn("server: rate limited", zap.String("client_ip", ip), zap.Int("retry_after", retry))
		writeError(w, http.StatusTooManyRequests,
			fmt.Sprintf("Too many requests. Please try again in %d seconds.", retry), nil)
		return
	}

	if !isJSON(r.Header.Get("Content-Type")) {
		writeError(w, http.StatusUnsupportedMediaType, MsgUnsupportedMedia, nil)
		return
	}

	var req SubjectRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, MsgBodyTooLarge, nil)
			return
		}
		writeError(w, http.StatusBadRequest, MsgInvalidJSON, nil)
		return
	}

	subject, details := ValidateSubject(req)
	if len(details) > 0 {
		writeError(w, http.StatusBadRequest, MsgValidationFailed, details)
		return
	}

	start := time.Now()
	payload, err := s.researcher.Run(r.Context(), subject)
	if err != nil {
		status, msg := classify(err)
		log.Error("server: lookup failed",
			zap.String("kind", pipeline.KindOf(err).String()),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		writeError(w, status, msg, nil)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true, Opportunities: payload})

	entry := model.NewLogEntry(s.newID(), s.now(), subject, *payload)
	s.dispatcher.Dispatch(entry)
	log.Info("server: lookup complete",
		zap.String("entry_id", entry.ID),
		zap.Int("opportunities", len(payload.Opportunities)),
		zap.Duration("duration", time.Since(start)),
	)
}

func classify(err error) (int, string) {
	switch pipeline.KindOf(err) {
	case pipeline.KindUpstreamTimeout, pipeline.KindUpstreamServiceError:
		return http.StatusBadGateway, MsgServiceUnavailable
	case pipeline.KindMalformedResponse, pipeline.KindSchemaViolation:
		return http.StatusBadGateway, MsgUnexpectedFormat
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}

// clientIP uses the first X-Forwarded-For hop only when the proxy is trusted.
func (s *Server) clientIP(r *http.Request) string {
	if s.cfg.TrustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}

func writeError(w http.ResponseWriter, status int, msg string, details []string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg, Details: details})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: write response", zap.Error(err))
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
