package db

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var leadsUpsert = UpsertConfig{
	Table:        "leads",
	Columns:      []string{"id", "name", "status"},
	ConflictKeys: []string{"id"},
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, leadsUpsert, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBulkUpsert_InvalidConfig(t *testing.T) {
	rows := [][]any{{"lead_1", "Ana", "novo"}}

	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{Columns: []string{"id"}, ConflictKeys: []string{"id"}}, rows)
	assert.ErrorContains(t, err, "no table specified")

	_, err = BulkUpsert(context.Background(), nil, UpsertConfig{Table: "leads", ConflictKeys: []string{"id"}}, rows)
	assert.ErrorContains(t, err, "no columns specified")

	_, err = BulkUpsert(context.Background(), nil, UpsertConfig{Table: "leads", Columns: []string{"id"}}, rows)
	assert.ErrorContains(t, err, "no conflict keys specified")
}

func TestBulkUpsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := [][]any{{"lead_1", "Ana", "novo"}, {"lead_2", "Bruno", "contatado"}}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TEMP TABLE "_stage_leads" (LIKE "leads" INCLUDING DEFAULTS) ON COMMIT DROP`)).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_leads"}, []string{"id", "name", "status"}).
		WillReturnResult(2)
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT ("id") DO UPDATE SET "name" = EXCLUDED."name", "status" = EXCLUDED."status"`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, leadsUpsert, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_leads"}, []string{"id", "name", "status"}).
		WillReturnError(errors.New("copy refused"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, leadsUpsert, [][]any{{"lead_1", "Ana", "novo"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy into stage for leads")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSQL(t *testing.T) {
	cfg := UpsertConfig{
		Table:        "crm.leads",
		Columns:      []string{"id", "email"},
		ConflictKeys: []string{"id", "email"},
	}
	assert.Equal(t,
		`INSERT INTO "crm"."leads" ("id", "email") SELECT "id", "email" FROM "_stage_crm_leads" ON CONFLICT ("id", "email") DO NOTHING`,
		cfg.upsertSQL())

	cfg.UpdateCols = []string{"email"}
	assert.Contains(t, cfg.upsertSQL(), `DO UPDATE SET "email" = EXCLUDED."email"`)
}

func TestSanitizeTable(t *testing.T) {
	assert.Equal(t, `"leads"`, sanitizeTable("leads"))
	assert.Equal(t, `"crm"."leads"`, sanitizeTable("crm.leads"))
}
