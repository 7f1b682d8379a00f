package notion

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func emailFilter(value string) func(*notionapi.DatabaseQueryRequest) bool {
	return func(req *notionapi.DatabaseQueryRequest) bool {
		pf, ok := req.Filter.(notionapi.PropertyFilter)
		return ok && pf.Property == "Email" && pf.RichText != nil && pf.RichText.Equals == value
	}
}

func TestUpsertPage_Creates(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-leads", mock.MatchedBy(emailFilter("ana@example.com"))).
		Return(&notionapi.DatabaseQueryResponse{}, nil).Once()
	mc.On("CreatePage", ctx, mock.MatchedBy(func(req *notionapi.PageCreateRequest) bool {
		return req.Parent.DatabaseID == "db-leads" && req.Properties["Nome"] != nil
	})).Return(&notionapi.Page{ID: "page-new"}, nil).Once()

	id, created, err := UpsertPage(ctx, mc, "db-leads", "Email", "ana@example.com", notionapi.Properties{
		"Nome":  Title("Ana Souza"),
		"Email": Text("ana@example.com"),
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "page-new", id)
	mc.AssertExpectations(t)
}

func TestUpsertPage_UpdatesExisting(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-leads", mock.MatchedBy(emailFilter("ana@example.com"))).
		Return(&notionapi.DatabaseQueryResponse{Results: []notionapi.Page{{ID: "page-1"}}}, nil).Once()
	mc.On("UpdatePage", ctx, "page-1", mock.AnythingOfType("*notionapi.PageUpdateRequest")).
		Return(&notionapi.Page{ID: "page-1"}, nil).Once()

	id, created, err := UpsertPage(ctx, mc, "db-leads", "Email", "ana@example.com", notionapi.Properties{})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "page-1", id)
	mc.AssertExpectations(t)
}

func TestUpsertPage_CreateError(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-leads", mock.Anything).Return(&notionapi.DatabaseQueryResponse{}, nil).Once()
	mc.On("CreatePage", ctx, mock.Anything).Return(nil, assert.AnError).Once()

	_, _, err := UpsertPage(ctx, mc, "db-leads", "Email", "ana@example.com", notionapi.Properties{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion: upsert create")
}

func TestText(t *testing.T) {
	p := Text("São Paulo")
	require.Len(t, p.RichText, 1)
	assert.Equal(t, "São Paulo", p.RichText[0].Text.Content)
	assert.Equal(t, notionapi.PropertyTypeRichText, p.Type)
}
