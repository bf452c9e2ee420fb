// Package httpapi serves the read-only ops endpoints: liveness, worker
// status and per-check audit history.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/domain"
	apimw "github.com/hamed0406/uptimeworker/internal/httpapi/middleware"
	"github.com/hamed0406/uptimeworker/internal/repo"
	"github.com/hamed0406/uptimeworker/internal/scheduler"
)

type StatusSource interface {
	Status() scheduler.Status
}

type History interface {
	Read(checkID string) ([]domain.LogRecord, error)
	Archives(checkID string) ([]string, error)
}

type Server struct {
	Logger  *zap.Logger
	Status  StatusSource
	History History
	Checks  repo.CheckStore
}

func NewServer(l *zap.Logger, status StatusSource, history History, checks repo.CheckStore) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Logger: l, Status: status, History: history, Checks: checks}
}

func (s *Server) Router(rpm, burst int) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}))
	r.Use(apimw.RateLimit(rpm, burst))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/api/status", s.handleStatus)
	r.Get("/api/checks/{id}/history", s.handleHistory)

	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Status.Status())
}

type historyResponse struct {
	Check    *domain.Check      `json:"check,omitempty"`
	Records  []domain.LogRecord `json:"records"`
	Archives []string           `json:"archives"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := repo.ValidID(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid check id")
		return
	}

	resp := historyResponse{Records: []domain.LogRecord{}, Archives: []string{}}

	c, err := repo.LoadCheck(r.Context(), s.Checks, id)
	switch {
	case err == nil:
		resp.Check = c
	case errors.Is(err, repo.ErrNotFound):
	default:
		// a malformed record still has history worth showing
		s.Logger.Warn("history_check_error", zap.String("check_id", id), zap.Error(err))
	}

	recs, err := s.History.Read(id)
	if err != nil {
		s.Logger.Warn("history_read_error", zap.String("check_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not read history")
		return
	}
	if recs != nil {
		resp.Records = recs
	}
	archives, err := s.History.Archives(id)
	if err != nil {
		s.Logger.Warn("history_archives_error", zap.String("check_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list archives")
		return
	}
	for _, a := range archives {
		resp.Archives = append(resp.Archives, filepath.Base(a))
	}

	if resp.Check == nil && len(resp.Records) == 0 && len(resp.Archives) == 0 {
		writeError(w, http.StatusNotFound, "unknown check")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
