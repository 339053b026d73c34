package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Alias1177/Tipster/internal/ledger"
	"github.com/Alias1177/Tipster/internal/resolver"
	"github.com/Alias1177/Tipster/internal/stats"
	"github.com/Alias1177/Tipster/models"
)

// WeightSource is the slice of the weight cache the handlers need.
type WeightSource interface {
	GetWeights(ctx context.Context) *models.WeightConfig
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	ledger     *ledger.Ledger
	reconciler *resolver.Reconciler
	stats      *stats.Aggregator
	weights    WeightSource
}

// NewHandler creates a new handler
func NewHandler(l *ledger.Ledger, r *resolver.Reconciler, s *stats.Aggregator, w WeightSource) *Handler {
	return &Handler{
		ledger:     l,
		reconciler: r,
		stats:      s,
		weights:    w,
	}
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "tipster",
	})
}

// RecordPrediction upserts a prediction record by match id.
func (h *Handler) RecordPrediction(w http.ResponseWriter, r *http.Request) {
	var rec models.PredictionRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	handle, err := h.ledger.Record(r.Context(), &rec)
	if err != nil {
		if errors.Is(err, ledger.ErrUnavailable) {
			respondError(w, http.StatusServiceUnavailable, "ledger unavailable")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := http.StatusOK
	if handle.IsNew {
		status = http.StatusCreated
	}
	respondJSON(w, status, handle)
}

// RecentPredictions lists the latest recorded predictions.
func (h *Handler) RecentPredictions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	records, err := h.ledger.FetchRecent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "ledger unavailable")
		return
	}
	if records == nil {
		records = []models.PredictionRecord{}
	}

	respondJSON(w, http.StatusOK, records)
}

// Reconcile triggers one batch reconciliation run.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciler.ReconcilePending(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, fmt.Sprintf("reconciliation failed: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// Stats returns windowed statistics for the requested period.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = models.PeriodAll
	}
	if !models.ValidPeriod(period) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown period %q", period))
		return
	}

	ws, err := h.stats.Compute(r.Context(), period)
	if err != nil {
		if errors.Is(err, ledger.ErrUnavailable) {
			respondError(w, http.StatusServiceUnavailable, "ledger unavailable")
			return
		}
		respondError(w, http.StatusInternalServerError, "stats computation failed")
		return
	}

	respondJSON(w, http.StatusOK, ws)
}

// Weights returns the current model weight configuration. This never
// fails; the cache degrades to defaults internally.
func (h *Handler) Weights(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.weights.GetWeights(r.Context()))
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
