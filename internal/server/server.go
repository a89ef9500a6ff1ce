// Package server exposes the answering pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/report-qa/internal/answer"
	"github.com/sells-group/report-qa/internal/config"
	"github.com/sells-group/report-qa/internal/model"
	"github.com/sells-group/report-qa/internal/retrieval"
)

// Answerer resolves one question.
type Answerer interface {
	AnswerWithTrace(ctx context.Context, q model.Question) (model.Answer, *answer.Trace, error)
}

// Server serves question answering over a loaded registry and index.
type Server struct {
	answerer  Answerer
	retriever answer.Retriever
	registry  []string
	cfg       config.ServerConfig
}

// New creates a Server.
func New(answerer Answerer, retriever answer.Retriever, registry []string, cfg config.ServerConfig) *Server {
	return &Server{answerer: answerer, retriever: retriever, registry: registry, cfg: cfg}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/answer", s.handleAnswer)
		r.Post("/search", s.handleSearch)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("server: listening", zap.Int("port", port), zap.Int("registry", len(s.registry)))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type answerRequest struct {
	Text string `json:"text"`
	Kind string `json:"kind"`
}

type answerResponse struct {
	model.Answer
	Companies []string `json:"companies"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	kind, err := model.ParseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, trace, err := s.answerer.AnswerWithTrace(r.Context(), model.Question{Text: req.Text, Kind: kind})
	if err != nil {
		zap.L().Error("server: answer failed", zap.String("question", req.Text), zap.Error(err))
		writeError(w, http.StatusBadGateway, "answer failed")
		return
	}
	companies := []string{}
	if trace != nil && trace.Companies != nil {
		companies = trace.Companies
	}
	if a.References == nil {
		a.References = []model.Reference{}
	}
	writeJSON(w, http.StatusOK, answerResponse{Answer: a, Companies: companies})
}

type searchRequest struct {
	Text string `json:"text"`
}

type searchResponse struct {
	Companies []string         `json:"companies"`
	Fragments []model.Fragment `json:"fragments"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	companies := retrieval.ExtractQueryCompanies(req.Text, s.registry)
	fragments, err := s.retriever.Retrieve(r.Context(), req.Text, companies)
	if err != nil {
		zap.L().Error("server: search failed", zap.String("question", req.Text), zap.Error(err))
		writeError(w, http.StatusBadGateway, "search failed")
		return
	}
	if companies == nil {
		companies = []string{}
	}
	if fragments == nil {
		fragments = []model.Fragment{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Companies: companies, Fragments: fragments})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
