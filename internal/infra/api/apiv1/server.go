package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"salestool-radar/internal/domain"
	"salestool-radar/internal/domain/model"
	"salestool-radar/internal/usecase"
)

// Server exposes the pipeline, queue and dedup operations over HTTP.
// Every operation is synchronous request/response; nothing streams.
type Server struct {
	pipeline  usecase.PipelineUseCase
	queue     usecase.QueueUseCase
	dedup     usecase.DedupUseCase
	companies usecase.CompanyUseCase
	apiKey    string
	log       *zerolog.Logger
}

func NewServer(
	pipeline usecase.PipelineUseCase,
	queue usecase.QueueUseCase,
	dedup usecase.DedupUseCase,
	companies usecase.CompanyUseCase,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "api").Logger()
	return &Server{
		pipeline:  pipeline,
		queue:     queue,
		dedup:     dedup,
		companies: companies,
		apiKey:    apiKey,
		log:       &l,
	}
}

// Register mounts all v1 routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/batch/run", s.handleBatchRun)
		r.Post("/batch/postings/{id}", s.handleProcessSingle)
		r.Get("/batch/status", s.handleBatchStatus)

		r.Post("/queue/jobs", s.handleQueueAdd)
		r.Get("/queue/jobs", s.handleQueueList)
		r.Post("/queue/jobs/{id}/retry", s.handleQueueRetry)
		r.Post("/queue/jobs/{id}/cancel", s.handleQueueCancel)
		r.Delete("/queue/jobs/failed", s.handleQueueClearFailed)
		r.Get("/queue/stats", s.handleQueueStats)

		r.Get("/dedup/check", s.handleDedupCheck)
		r.Get("/dedup/similar", s.handleDedupSimilar)
		r.Get("/dedup/stats", s.handleDedupStats)

		r.Get("/companies", s.handleCompanyList)
		r.Get("/companies/{id}", s.handleCompanyGet)
		r.Patch("/companies/{id}/leads", s.handleCompanyLeads)
		r.Post("/companies/{id}/merge", s.handleCompanyMerge)
	})
}

// authMiddleware provides Bearer API-key auth for all v1 routes.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			// no key configured: open instance (dev)
			next.ServeHTTP(w, r)
			return
		}
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if parts[1] != s.apiKey {
			writeError(w, http.StatusForbidden, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ---- batch ----

func (s *Server) handleBatchRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Limit int `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	summary, err := s.pipeline.ProcessBatch(r.Context(), req.Limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleProcessSingle(w http.ResponseWriter, r *http.Request) {
	item, err := s.pipeline.ProcessSingle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleBatchStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Status())
}

// ---- queue ----

func (s *Server) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type        string          `json:"type"`
		Payload     json.RawMessage `json:"payload"`
		Priority    int             `json:"priority"`
		MaxAttempts int             `json:"max_attempts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id, err := s.queue.AddJob(r.Context(), req.Type, req.Payload, usecase.AddJobOptions{
		Priority:    req.Priority,
		MaxAttempts: req.MaxAttempts,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleQueueList(w http.ResponseWriter, r *http.Request) {
	status := model.QueueJobStatus(r.URL.Query().Get("status"))
	jobs, err := s.queue.JobsByStatus(r.Context(), status)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": queueJobsToAPI(jobs)})
}

func (s *Server) handleQueueRetry(w http.ResponseWriter, r *http.Request) {
	ok, err := s.queue.Retry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"retried": ok})
}

func (s *Server) handleQueueCancel(w http.ResponseWriter, r *http.Request) {
	ok, err := s.queue.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": ok})
}

func (s *Server) handleQueueClearFailed(w http.ResponseWriter, r *http.Request) {
	n, err := s.queue.ClearFailed(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.queue.Stats(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ---- dedup / companies ----

func (s *Server) handleDedupCheck(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	result, err := s.dedup.Check(r.Context(), name)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDedupSimilar(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	threshold := 0.0
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid threshold")
			return
		}
		threshold = t
	}

	matches, err := s.dedup.FindSimilar(r.Context(), name, threshold)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": matches})
}

func (s *Server) handleDedupStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.dedup.Stats(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCompanyList(w http.ResponseWriter, r *http.Request) {
	companies, err := s.companies.ListActive(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": companiesToAPI(companies)})
}

func (s *Server) handleCompanyGet(w http.ResponseWriter, r *http.Request) {
	c, err := s.companies.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, companyToAPI(c))
}

func (s *Server) handleCompanyLeads(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Generated bool `json:"generated"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, err := s.companies.SetLeadStatus(r.Context(), chi.URLParam(r, "id"), req.Generated)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, companyToAPI(c))
}

func (s *Server) handleCompanyMerge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DuplicateIDs []string `json:"duplicate_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.DuplicateIDs) == 0 {
		writeError(w, http.StatusBadRequest, "duplicate_ids is required")
		return
	}

	outcomes, err := s.dedup.MergeDuplicates(r.Context(), chi.URLParam(r, "id"), req.DuplicateIDs)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": outcomes})
}

// ---- helpers ----

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBatchRunning):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrCompanyMerged):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.log.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "error": msg})
}
