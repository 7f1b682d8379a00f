package salesforce

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leadFields() map[string]any {
	return map[string]any{
		"LastName": "Souza",
		"Company":  "Pessoa Física",
		"Email":    "ana@example.com",
	}
}

func TestFindLeadByEmail_NotFound(t *testing.T) {
	var gotSOQL string
	c := &mockClient{queryFn: func(_ context.Context, soql string, _ any) error {
		gotSOQL = soql
		return nil
	}}

	lead, err := FindLeadByEmail(context.Background(), c, "o'neil@example.com")
	require.NoError(t, err)
	assert.Nil(t, lead)
	assert.Contains(t, gotSOQL, `Email = 'o\'neil@example.com'`)
	assert.Contains(t, gotSOQL, "IsConverted = false")
}

func TestUpsertLeadByEmail_Creates(t *testing.T) {
	var inserted map[string]any
	c := &mockClient{
		insertOneFn: func(_ context.Context, obj string, rec map[string]any) (string, error) {
			assert.Equal(t, LeadObject, obj)
			inserted = rec
			return "00Qnew", nil
		},
		updateOneFn: func(context.Context, string, string, map[string]any) error {
			t.Fatal("unexpected update")
			return nil
		},
	}

	id, created, err := UpsertLeadByEmail(context.Background(), c, leadFields())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "00Qnew", id)
	assert.Equal(t, "Souza", inserted["LastName"])
}

func TestUpsertLeadByEmail_UpdatesExisting(t *testing.T) {
	var updatedID string
	c := &mockClient{
		queryFn: func(_ context.Context, _ string, out any) error {
			*(out.(*[]Lead)) = []Lead{{ID: "00Qold", Email: "ana@example.com"}}
			return nil
		},
		insertOneFn: func(context.Context, string, map[string]any) (string, error) {
			t.Fatal("unexpected insert")
			return "", nil
		},
		updateOneFn: func(_ context.Context, _ string, id string, _ map[string]any) error {
			updatedID = id
			return nil
		},
	}

	id, created, err := UpsertLeadByEmail(context.Background(), c, leadFields())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "00Qold", id)
	assert.Equal(t, "00Qold", updatedID)
}

func TestUpsertLeadByEmail_Validation(t *testing.T) {
	c := &mockClient{}

	f := leadFields()
	delete(f, "Email")
	_, _, err := UpsertLeadByEmail(context.Background(), c, f)
	assert.ErrorContains(t, err, "Email is required")

	f = leadFields()
	f["LastName"] = ""
	_, _, err = UpsertLeadByEmail(context.Background(), c, f)
	assert.ErrorContains(t, err, "LastName is required")
}

func TestUpsertLeadByEmail_QueryError(t *testing.T) {
	c := &mockClient{queryFn: func(context.Context, string, any) error {
		return errors.New("session expired")
	}}

	_, _, err := UpsertLeadByEmail(context.Background(), c, leadFields())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "find lead by email")
}
