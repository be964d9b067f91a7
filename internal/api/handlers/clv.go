package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/clv/backend/internal/contracts"
	"github.com/wonny/clv/backend/internal/report"
	"github.com/wonny/clv/backend/pkg/logger"
)

// ReportStore serves and refreshes the latest analysis report
type ReportStore interface {
	Latest(ctx context.Context) (*contracts.RunReport, error)
	Refresh(ctx context.Context) (*contracts.RunReport, error)
}

// CLVHandler handles CLV report endpoints
// ⭐ SSOT: CLV API 핸들러는 이 구조체에서만
type CLVHandler struct {
	store  ReportStore
	logger *logger.Logger
}

// NewCLVHandler creates a new CLV handler
func NewCLVHandler(store ReportStore, log *logger.Logger) *CLVHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CLVHandler{
		store:  store,
		logger: log,
	}
}

// SegmentsResponse is the body of GET /api/clv/segments
type SegmentsResponse struct {
	RunID             string                   `json:"run_id"`
	Segments          []contracts.SegmentStats `json:"segments"`
	PredictedSegments []contracts.SegmentStats `json:"predicted_segments"`
}

// RefreshResponse is the body of POST /api/clv/refresh
type RefreshResponse struct {
	Status   string               `json:"status"`
	RunID    string               `json:"run_id"`
	Metrics  contracts.RunMetrics `json:"metrics"`
	Warnings []string             `json:"warnings,omitempty"`
}

// GetReport returns the latest report
// GET /api/clv/report
func (h *CLVHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.latest(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

// GetSegments returns both segment reports of the latest run
// GET /api/clv/segments
func (h *CLVHandler) GetSegments(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.latest(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, SegmentsResponse{
		RunID:             rep.RunID,
		Segments:          rep.Segments,
		PredictedSegments: rep.PredictedSegments,
	})
}

// GetCustomer returns one customer's values
// GET /api/clv/customers/{id}
func (h *CLVHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid customer id")
		return
	}

	rep, ok := h.latest(w, r)
	if !ok {
		return
	}

	customer, found := rep.Customer(id)
	if !found {
		respondError(w, http.StatusNotFound, "Customer not found")
		return
	}
	respondJSON(w, http.StatusOK, customer)
}

// Refresh reruns the analysis
// POST /api/clv/refresh
func (h *CLVHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Report refresh triggered")

	rep, err := h.store.Refresh(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to refresh report")
		respondError(w, refreshStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, RefreshResponse{
		Status:   "success",
		RunID:    rep.RunID,
		Metrics:  rep.Metrics,
		Warnings: rep.Warnings,
	})
}

func (h *CLVHandler) latest(w http.ResponseWriter, r *http.Request) (*contracts.RunReport, bool) {
	rep, err := h.store.Latest(r.Context())
	if errors.Is(err, report.ErrNoReport) {
		respondError(w, http.StatusNotFound, "No report yet (POST /api/clv/refresh)")
		return nil, false
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get report")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve report")
		return nil, false
	}
	return rep, true
}

// refreshStatus maps pipeline errors to HTTP status codes
func refreshStatus(err error) int {
	switch {
	case errors.Is(err, contracts.ErrDataAccess):
		return http.StatusBadGateway
	case errors.Is(err, contracts.ErrMissingColumn),
		errors.Is(err, contracts.ErrEmptyInput),
		errors.Is(err, contracts.ErrInvalidValue),
		errors.Is(err, contracts.ErrModelFit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
