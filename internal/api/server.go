// Package api exposes the engine over a thin JSON HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trialscout/trialscout/internal/config"
	"github.com/trialscout/trialscout/internal/engine"
	"github.com/trialscout/trialscout/internal/model"
)

// Server wraps the engine with HTTP handlers.
type Server struct {
	engine *engine.Engine
}

// NewRouter builds the chi router with middleware and all routes mounted.
func NewRouter(e *engine.Engine, cfg config.ServerConfig) http.Handler {
	s := &Server{engine: e}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/match", s.handleMatch)
	r.Post("/match/structured", s.handleMatchStructured)
	r.Post("/match/parse", s.handleMatchParse)
	r.Post("/competitor/analyze", s.handleCompetitorAnalyze)
	r.Post("/competitor/analyze/natural", s.handleCompetitorAnalyzeNatural)
	r.Get("/competitor/analyze/{nctID}", s.handleCompetitorAnalyzeByID)
	r.Post("/competitor/parse", s.handleCompetitorParse)

	return r
}

// requestID assigns each request a UUID, echoed in the response and carried
// through the chi request-ID context key for log correlation.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger logs one line per request with method, path, status, and
// elapsed time.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeError maps the engine's error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case model.IsValidation(err):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid_input", Detail: err.Error()})
	case model.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Detail: err.Error()})
	case model.IsExtractionUnavailable(err):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{
			Error:  "extraction_unavailable",
			Detail: "text extraction is unavailable; retry later or use the structured form",
		})
	case model.IsCorpusUnavailable(err):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "corpus_unavailable", Detail: "trial catalog is unavailable"})
	default:
		zap.L().Error("api: internal error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed_json", Detail: err.Error()})
		return false
	}
	return true
}
