// Package handlers provides HTTP handlers for evaluation report operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/insight/internal/domain"
	"github.com/aristath/insight/internal/evaluation"
	"github.com/aristath/insight/internal/events"
	"github.com/aristath/insight/internal/modules/benchmarks"
	"github.com/aristath/insight/internal/modules/reports"
)

// Handler handles evaluation report HTTP requests
type Handler struct {
	repo       *reports.Repository
	evaluator  *evaluation.Evaluator
	benchmarks *benchmarks.Resolver
	bus        *events.Bus
	log        zerolog.Logger
}

// NewHandler creates a new reports handler. The resolver may be nil, in
// which case every evaluation builds its benchmarks from scratch.
func NewHandler(repo *reports.Repository, evaluator *evaluation.Evaluator, resolver *benchmarks.Resolver, bus *events.Bus, log zerolog.Logger) *Handler {
	return &Handler{
		repo:       repo,
		evaluator:  evaluator,
		benchmarks: resolver,
		bus:        bus,
		log:        log.With().Str("handler", "reports").Logger(),
	}
}

// EvaluateRequest is the wire form of an evaluation request.
type EvaluateRequest struct {
	EntityID       string                          `json:"entity_id"`
	Sector         string                          `json:"sector"`
	AsOf           *time.Time                      `json:"as_of"`
	Rows           []domain.FiscalRow              `json:"rows"`
	Multiples      domain.MultiplesHistory         `json:"multiples"`
	Meta           domain.EntityMeta               `json:"meta"`
	Samples        map[evaluation.Metric][]float64 `json:"samples"`
	SectorDefaults *domain.SectorDefaults          `json:"sector_defaults"`
	Seed           *int64                          `json:"seed"`
}

// HandleEvaluate handles POST /api/evaluations
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.EntityID == "" {
		http.Error(w, "entity_id is required", http.StatusBadRequest)
		return
	}

	asOf := time.Now().UTC()
	if req.AsOf != nil {
		asOf = req.AsOf.UTC()
	}

	h.bus.Publish(events.EvaluationStarted, "reports", events.ToMap(&events.EvaluationStartedData{
		EntityID: req.EntityID,
		Sector:   req.Sector,
	}))

	evalReq := evaluation.Request{
		EntityID:       req.EntityID,
		Sector:         req.Sector,
		AsOf:           asOf,
		Rows:           req.Rows,
		Multiples:      req.Multiples,
		Meta:           req.Meta,
		Samples:        req.Samples,
		SectorDefaults: req.SectorDefaults,
		Seed:           req.Seed,
	}
	if h.benchmarks != nil {
		evalReq.Benchmarks = h.benchmarks.Resolve(req.Sector, req.Samples, req.Seed)
	}
	report := h.evaluator.Evaluate(evalReq)

	if err := h.repo.Save(report, &evalReq); err != nil {
		h.log.Error().Err(err).Str("entity", req.EntityID).Msg("Failed to save report")
		http.Error(w, "Failed to save report", http.StatusInternalServerError)
		return
	}

	h.bus.Publish(events.ReportGenerated, "reports", events.ToMap(&events.ReportGeneratedData{
		ReportID:   report.ID,
		EntityID:   report.EntityID,
		Category:   string(report.Composite.Category),
		Score:      report.Composite.Score,
		Narratives: len(report.Narratives),
	}))

	h.writeJSON(w, http.StatusCreated, report)
}

// HandleGetReport handles GET /api/reports/{id}
func (h *Handler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := h.repo.GetByID(id)
	if errors.Is(err, reports.ErrNotFound) {
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("report_id", id).Msg("Failed to load report")
		http.Error(w, "Failed to load report", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

// HandleListReports handles GET /api/reports
func (h *Handler) HandleListReports(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.repo.ListRecent(queryLimit(r, 50))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list reports")
		http.Error(w, "Failed to list reports", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": summaries,
		"metadata": map[string]interface{}{
			"count":     len(summaries),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// HandleEntityReports handles GET /api/entities/{entityID}/reports
func (h *Handler) HandleEntityReports(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	summaries, err := h.repo.ListForEntity(entityID, queryLimit(r, 20))
	if err != nil {
		h.log.Error().Err(err).Str("entity", entityID).Msg("Failed to list entity reports")
		http.Error(w, "Failed to list reports", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": summaries,
		"metadata": map[string]interface{}{
			"entity_id": entityID,
			"count":     len(summaries),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// HandleLatestReport handles GET /api/entities/{entityID}/reports/latest
func (h *Handler) HandleLatestReport(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	report, err := h.repo.GetLatestForEntity(entityID)
	if errors.Is(err, reports.ErrNotFound) {
		http.Error(w, "No reports for entity", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("entity", entityID).Msg("Failed to load latest report")
		http.Error(w, "Failed to load report", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

// HandleContrast handles GET /api/contrast?subject=X&peer=Y
// Compares the latest reports of two entities.
func (h *Handler) HandleContrast(w http.ResponseWriter, r *http.Request) {
	subjectID := r.URL.Query().Get("subject")
	peerID := r.URL.Query().Get("peer")
	if subjectID == "" || peerID == "" {
		http.Error(w, "subject and peer are required", http.StatusBadRequest)
		return
	}

	subject, err := h.repo.GetLatestForEntity(subjectID)
	if errors.Is(err, reports.ErrNotFound) {
		http.Error(w, "No reports for subject", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("entity", subjectID).Msg("Failed to load subject report")
		http.Error(w, "Failed to load report", http.StatusInternalServerError)
		return
	}

	peer, err := h.repo.GetLatestForEntity(peerID)
	if errors.Is(err, reports.ErrNotFound) {
		http.Error(w, "No reports for peer", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("entity", peerID).Msg("Failed to load peer report")
		http.Error(w, "Failed to load report", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": evaluation.Contrast(subject, peer),
		"metadata": map[string]interface{}{
			"subject":   subjectID,
			"peer":      peerID,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
