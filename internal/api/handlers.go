package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sinergia/leadquote/internal/leads"
	"github.com/sinergia/leadquote/internal/model"
	"github.com/sinergia/leadquote/internal/resilience"
	"github.com/sinergia/leadquote/internal/simulator"
)

// Quoter is the simulator surface the API needs. simulator.Service
// satisfies it.
type Quoter interface {
	State() simulator.State
	LoadedAt() time.Time
	Simulate(ctx context.Context, distributorID int, consumption any) (model.QuoteResult, error)
	States() []model.State
	DistributorsByState(stateID int) []model.DistributorSummary
	DistributorInfo(id int) (model.DistributorInfo, bool)
}

// LeadService is the lead surface the API needs. leads.Service satisfies it.
type LeadService interface {
	Capture(ctx context.Context, req leads.CaptureRequest) (*leads.CaptureResult, error)
	Stats(ctx context.Context) (model.LeadStats, error)
}

// BreakerSource reports circuit breaker states for /health.
type BreakerSource func() map[string]resilience.State

// Handler serves the HTTP API.
type Handler struct {
	quoter   Quoter
	leads    LeadService
	breakers []BreakerSource
}

// NewHandler returns a Handler. breakers feed the /health report.
func NewHandler(q Quoter, ls LeadService, breakers ...BreakerSource) *Handler {
	return &Handler{quoter: q, leads: ls, breakers: breakers}
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string             `json:"error"`
	Details string             `json:"details,omitempty"`
	Fields  []leads.FieldError `json:"fields,omitempty"`
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status   string            `json:"status"`
	RefData  string            `json:"refdata"`
	LoadedAt *time.Time        `json:"loaded_at,omitempty"`
	Breakers map[string]string `json:"breakers,omitempty"`
}

// SimulateRequest is the body of POST /api/simulate.
type SimulateRequest struct {
	DistributorID int `json:"distributor_id"`
	Consumption   any `json:"consumption"`
}

// Health reports the reference data state and the outbound breakers. It
// answers 503 until the reference data is ready.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	state := h.quoter.State()
	resp := HealthResponse{Status: "ok", RefData: state.String()}
	if t := h.quoter.LoadedAt(); !t.IsZero() {
		resp.LoadedAt = &t
	}

	for _, src := range h.breakers {
		for name, st := range src() {
			if resp.Breakers == nil {
				resp.Breakers = map[string]string{}
			}
			resp.Breakers[name] = st.String()
			if st != resilience.StateClosed && resp.Status == "ok" {
				resp.Status = "degraded"
			}
		}
	}

	code := http.StatusOK
	if state != simulator.StateReady {
		resp.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// ListStates returns every state.
func (h *Handler) ListStates(w http.ResponseWriter, _ *http.Request) {
	if !h.ready(w) {
		return
	}
	writeJSON(w, http.StatusOK, h.quoter.States())
}

// ListDistributors returns the active distributors of a state.
func (h *Handler) ListDistributors(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok || !h.ready(w) {
		return
	}
	writeJSON(w, http.StatusOK, h.quoter.DistributorsByState(id))
}

// GetDistributor returns the public detail of one distributor.
func (h *Handler) GetDistributor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok || !h.ready(w) {
		return
	}
	info, found := h.quoter.DistributorInfo(id)
	if !found {
		writeError(w, http.StatusNotFound, "distributor not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Simulate quotes one distributor and consumption. Business outcomes,
// denials included, are answered with 200.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	res, err := h.quoter.Simulate(r.Context(), req.DistributorID, req.Consumption)
	if err != nil {
		h.failure(w, "simulate", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CaptureLead stores a landing-page lead and answers with the quote and the
// delivery report.
func (h *Handler) CaptureLead(w http.ResponseWriter, r *http.Request) {
	var req leads.CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	res, err := h.leads.Capture(r.Context(), req)
	if err != nil {
		var verr *leads.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: verr.Fields})
			return
		}
		h.failure(w, "capture lead", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// LeadStats counts stored leads.
func (h *Handler) LeadStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.leads.Stats(r.Context())
	if err != nil {
		h.failure(w, "lead stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.quoter.State() != simulator.StateReady {
		writeError(w, http.StatusServiceUnavailable, "reference data not loaded", nil)
		return false
	}
	return true
}

// failure maps service errors to a status. Internal details are logged,
// not returned.
func (h *Handler) failure(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, simulator.ErrNotInitialized):
		writeError(w, http.StatusServiceUnavailable, "reference data not loaded", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled", nil)
	default:
		zap.L().Error("api: "+op+" failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, op+" failed", nil)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id", nil)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Debug("api: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
