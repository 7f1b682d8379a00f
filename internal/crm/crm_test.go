package crm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sinergia/leadquote/internal/model"
	"github.com/sinergia/leadquote/internal/resilience"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Name() string { return "mock" }

func (m *mockSink) Push(ctx context.Context, rec Record) (string, error) {
	args := m.Called(ctx, rec)
	return args.String(0), args.Error(1)
}

type mockSFClient struct {
	mock.Mock
}

func (m *mockSFClient) Query(ctx context.Context, soql string, out any) error {
	return m.Called(ctx, soql, out).Error(0)
}

func (m *mockSFClient) InsertOne(ctx context.Context, obj string, rec map[string]any) (string, error) {
	args := m.Called(ctx, obj, rec)
	return args.String(0), args.Error(1)
}

func (m *mockSFClient) UpdateOne(ctx context.Context, obj, id string, fields map[string]any) error {
	return m.Called(ctx, obj, id, fields).Error(0)
}

type mockNotionClient struct {
	mock.Mock
}

func (m *mockNotionClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func (m *mockNotionClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func (m *mockNotionClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, pageID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func testRecord() Record {
	return Record{
		Lead: &model.Lead{
			ID:            "lead_123",
			Personal:      model.PersonalData{Name: "Ana Maria Souza", Email: "ana@example.com", WhatsApp: "11988887777"},
			DistributorID: 3,
			Status:        model.LeadStatusNew,
			Quote: model.QuoteResult{
				Eligible:           true,
				Outcome:            model.OutcomeEligible,
				DistributorName:    "Enel SP",
				Consumption:        150,
				DiscountPercentage: decimal.RequireFromString("10"),
			},
		},
		StateName: "São Paulo",
	}
}

func fastRetry() resilience.RetryConfig {
	rc := resilience.DefaultRetryConfig()
	rc.InitialBackoff = time.Millisecond
	rc.MaxBackoff = 2 * time.Millisecond
	return rc
}

func TestForwarder_NilSinkSkips(t *testing.T) {
	f := NewForwarder(nil, fastRetry(), resilience.DefaultBreakerConfig())
	assert.False(t, f.Enabled())
	assert.True(t, f.Forward(context.Background(), testRecord()).Skipped)

	assert.Nil(t, f.BreakerStates())
}

func TestForwarder_Success(t *testing.T) {
	s := &mockSink{}
	s.On("Push", mock.Anything, mock.Anything).Return("ext-1", nil).Once()

	f := NewForwarder(s, fastRetry(), resilience.DefaultBreakerConfig())
	res := f.Forward(context.Background(), testRecord())
	assert.Equal(t, Result{Provider: "mock", Success: true, ExternalID: "ext-1"}, res)
	s.AssertExpectations(t)
}

func TestForwarder_RetriesTransient(t *testing.T) {
	s := &mockSink{}
	s.On("Push", mock.Anything, mock.Anything).
		Return("", resilience.NewTransientError(errors.New("503"), 503)).Once()
	s.On("Push", mock.Anything, mock.Anything).Return("ext-2", nil).Once()

	f := NewForwarder(s, fastRetry(), resilience.DefaultBreakerConfig())
	res := f.Forward(context.Background(), testRecord())
	assert.True(t, res.Success)
	s.AssertNumberOfCalls(t, "Push", 2)
}

func TestForwarder_FailureIsReported(t *testing.T) {
	s := &mockSink{}
	s.On("Push", mock.Anything, mock.Anything).Return("", errors.New("INVALID_FIELD"))

	f := NewForwarder(s, fastRetry(), resilience.BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	res := f.Forward(context.Background(), testRecord())
	assert.False(t, res.Success)
	assert.Equal(t, "mock", res.Provider)
	assert.Contains(t, res.Error, "INVALID_FIELD")

	assert.Equal(t, map[string]resilience.State{"crm:mock": resilience.StateOpen}, f.BreakerStates())
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in, first, last string
	}{
		{"Ana Maria Souza", "Ana Maria", "Souza"},
		{"Ana", "", "Ana"},
		{"  ", "", ""},
	}
	for _, tt := range tests {
		first, last := splitName(tt.in)
		assert.Equal(t, tt.first, first, tt.in)
		assert.Equal(t, tt.last, last, tt.in)
	}
}

func TestSalesforceSink_CreatesLead(t *testing.T) {
	c := &mockSFClient{}
	c.On("Query", mock.Anything, mock.MatchedBy(func(soql string) bool {
		return assert.Contains(t, soql, "ana@example.com")
	}), mock.Anything).Return(nil).Once()
	c.On("InsertOne", mock.Anything, "Lead", mock.MatchedBy(func(rec map[string]any) bool {
		return rec["LastName"] == "Souza" && rec["FirstName"] == "Ana Maria" &&
			rec["Company"] == salesforceCompany && rec["State"] == "São Paulo" &&
			rec["MobilePhone"] == "11988887777"
	})).Return("00Qnew", nil).Once()

	id, err := NewSalesforceSink(c).Push(context.Background(), testRecord())
	require.NoError(t, err)
	assert.Equal(t, "00Qnew", id)
	c.AssertExpectations(t)
}

func TestSalesforceFields_SingleName(t *testing.T) {
	rec := testRecord()
	rec.Lead.Personal.Name = "Ana"
	f := salesforceFields(rec)
	assert.Equal(t, "Ana", f["LastName"])
	assert.NotContains(t, f, "FirstName")
	assert.Contains(t, f["Description"], "lead_123")
}

func TestNotionSink_UpsertsByEmail(t *testing.T) {
	c := &mockNotionClient{}
	c.On("QueryDatabase", mock.Anything, "db-leads", mock.Anything).
		Return(&notionapi.DatabaseQueryResponse{Results: []notionapi.Page{{ID: "page-1"}}}, nil).Once()
	c.On("UpdatePage", mock.Anything, "page-1", mock.MatchedBy(func(req *notionapi.PageUpdateRequest) bool {
		cb, ok := req.Properties[propEligible].(notionapi.CheckboxProperty)
		return ok && cb.Checkbox
	})).Return(&notionapi.Page{ID: "page-1"}, nil).Once()

	id, err := NewNotionSink(c, "db-leads").Push(context.Background(), testRecord())
	require.NoError(t, err)
	assert.Equal(t, "page-1", id)
	c.AssertExpectations(t)
}

func TestNotionProperties(t *testing.T) {
	props := notionProperties(testRecord())
	num, ok := props[propDiscount].(notionapi.NumberProperty)
	require.True(t, ok)
	assert.Equal(t, 10.0, num.Number)

	st, ok := props[propStatus].(notionapi.StatusProperty)
	require.True(t, ok)
	assert.Equal(t, "novo", st.Status.Name)
}
