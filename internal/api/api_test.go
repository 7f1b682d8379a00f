package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinergia/leadquote/internal/leads"
	"github.com/sinergia/leadquote/internal/model"
	"github.com/sinergia/leadquote/internal/refdata"
	"github.com/sinergia/leadquote/internal/resilience"
	"github.com/sinergia/leadquote/internal/simulator"
	"github.com/sinergia/leadquote/internal/store"
)

const testdataDir = "../refdata/testdata"

type failingLeads struct{}

func (failingLeads) Capture(context.Context, leads.CaptureRequest) (*leads.CaptureResult, error) {
	return nil, errors.New("database is locked")
}

func (failingLeads) Stats(context.Context) (model.LeadStats, error) {
	return model.LeadStats{}, errors.New("database is locked")
}

func newTestRouter(t *testing.T, breakers ...BreakerSource) (http.Handler, store.Store) {
	t.Helper()
	sim := simulator.New(refdata.NewDirSource(testdataDir))
	require.NoError(t, sim.Init(context.Background()))
	st := store.NewMemory()
	h := NewHandler(sim, leads.NewService(sim, st), breakers...)
	return NewRouter(h, nil), st
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth_Ready(t *testing.T) {
	h, _ := newTestRouter(t, func() map[string]resilience.State {
		return map[string]resilience.State{"emailjs:customer": resilience.StateClosed}
	})

	w := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ready", resp.RefData)
	assert.NotNil(t, resp.LoadedAt)
	assert.Equal(t, "closed", resp.Breakers["emailjs:customer"])
}

func TestHealth_DegradedBreaker(t *testing.T) {
	h, _ := newTestRouter(t, func() map[string]resilience.State {
		return map[string]resilience.State{"crm:notion": resilience.StateOpen}
	})

	w := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "degraded", decode[HealthResponse](t, w).Status)
}

func TestHealth_NotLoaded(t *testing.T) {
	sim := simulator.New(refdata.NewDirSource(testdataDir))
	h := NewRouter(NewHandler(sim, leads.NewService(sim, store.NewMemory())), nil)

	w := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "unavailable", resp.Status)
	assert.Equal(t, "uninitialized", resp.RefData)

	w = do(t, h, http.MethodGet, "/api/states", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(t, h, http.MethodPost, "/api/simulate", `{"distributor_id": 3, "consumption": 150}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t)
	w := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListStates(t *testing.T) {
	h, _ := newTestRouter(t)
	w := do(t, h, http.MethodGet, "/api/states", "")
	require.Equal(t, http.StatusOK, w.Code)

	states := decode[[]model.State](t, w)
	require.Len(t, states, 3)
	assert.Equal(t, "PR", states[0].Code)
}

func TestListDistributors(t *testing.T) {
	h, _ := newTestRouter(t)

	w := do(t, h, http.MethodGet, "/api/states/3/distributors", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.DistributorSummary](t, w), 3)

	w = do(t, h, http.MethodGet, "/api/states/2/distributors", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String(), "inactive distributors are hidden")

	w = do(t, h, http.MethodGet, "/api/states/abc/distributors", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDistributor(t *testing.T) {
	h, _ := newTestRouter(t)

	w := do(t, h, http.MethodGet, "/api/distributors/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[model.DistributorInfo](t, w)
	assert.Equal(t, "Copel", info.Name)
	assert.True(t, info.AcceptsPanels)
	assert.NotContains(t, w.Body.String(), "faixa")

	w = do(t, h, http.MethodGet, "/api/distributors/99", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSimulate(t *testing.T) {
	h, _ := newTestRouter(t)

	tests := []struct {
		name     string
		body     string
		outcome  model.Outcome
		eligible bool
	}{
		{"eligible", `{"distributor_id": 3, "consumption": 150}`, model.OutcomeEligible, true},
		{"numeric string", `{"distributor_id": 3, "consumption": "150"}`, model.OutcomeEligible, true},
		{"below distributor minimum", `{"distributor_id": 1, "consumption": 50}`, model.OutcomeDenied, false},
		{"inactive distributor", `{"distributor_id": 2, "consumption": 500}`, model.OutcomeDenied, false},
		{"negative", `{"distributor_id": 3, "consumption": -5}`, model.OutcomeInvalidInput, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/simulate", tt.body)
			require.Equal(t, http.StatusOK, w.Code)
			res := decode[model.QuoteResult](t, w)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, tt.eligible, res.Eligible)
		})
	}
}

func TestSimulate_BadBody(t *testing.T) {
	h, _ := newTestRouter(t)
	w := do(t, h, http.MethodPost, "/api/simulate", `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request body", decode[ErrorResponse](t, w).Error)
}

func TestCaptureLead(t *testing.T) {
	h, st := newTestRouter(t)

	w := do(t, h, http.MethodPost, "/api/leads/", `{
		"name": "Ana Souza",
		"email": "ana@example.com",
		"whatsapp": "11988887777",
		"state_id": 3,
		"distributor_id": 3,
		"consumption": 150
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	res := decode[leads.CaptureResult](t, w)
	require.NotNil(t, res.Lead)
	assert.True(t, res.Lead.Quote.Eligible)
	assert.True(t, res.CustomerEmail.Skipped)

	stored, err := st.GetLead(context.Background(), res.Lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", stored.Personal.Email)

	w = do(t, h, http.MethodGet, "/api/leads/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.LeadStats{Total: 1, Eligible: 1}, decode[model.LeadStats](t, w))
}

func TestCaptureLead_Validation(t *testing.T) {
	h, _ := newTestRouter(t)

	w := do(t, h, http.MethodPost, "/api/leads/", `{"name": "Ana", "email": "nope", "whatsapp": "11988887777", "distributor_id": 3, "consumption": 150}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "validation failed", resp.Error)
	require.Len(t, resp.Fields, 1)
	assert.Equal(t, "email", resp.Fields[0].Field)
}

func TestCaptureLead_InternalErrorHidden(t *testing.T) {
	sim := simulator.New(refdata.NewDirSource(testdataDir))
	require.NoError(t, sim.Init(context.Background()))
	h := NewRouter(NewHandler(sim, failingLeads{}), nil)

	w := do(t, h, http.MethodPost, "/api/leads/", `{"name": "Ana"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "locked")

	w = do(t, h, http.MethodGet, "/api/leads/stats", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	sim := simulator.New(refdata.NewDirSource(testdataDir))
	h := NewRouter(NewHandler(sim, failingLeads{}), []string{"https://sinergia.example"})

	req := httptest.NewRequest(http.MethodOptions, "/api/simulate", nil)
	req.Header.Set("Origin", "https://sinergia.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "https://sinergia.example", w.Header().Get("Access-Control-Allow-Origin"))
}
