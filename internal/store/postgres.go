package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sinergia/leadquote/internal/db"
	"github.com/sinergia/leadquote/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool. maxConns <= 0
// keeps the default of 10.
func NewPostgres(ctx context.Context, connString string, maxConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	if maxConns > 0 {
		pgxCfg.MaxConns = maxConns
	}
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id             TEXT PRIMARY KEY,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	name           TEXT NOT NULL,
	email          TEXT NOT NULL,
	whatsapp       TEXT NOT NULL,
	state_id       INTEGER NOT NULL DEFAULT 0,
	distributor_id INTEGER NOT NULL,
	eligible       BOOLEAN NOT NULL DEFAULT false,
	outcome        TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'novo',
	origin         TEXT NOT NULL DEFAULT '',
	quote          JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_eligible ON leads(eligible);
`

var leadsUpsert = db.UpsertConfig{
	Table:        "leads",
	Columns:      leadColumns,
	ConflictKeys: []string{"id"},
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var postgresSelectLeads = `SELECT ` + strings.Join(leadColumns, ", ") + ` FROM leads`

func (s *PostgresStore) SaveLead(ctx context.Context, lead *model.Lead) error {
	if err := validateLead(lead); err != nil {
		return err
	}
	row, err := leadRow(lead)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO leads (`+strings.Join(leadColumns, ", ")+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		row...,
	)
	return eris.Wrapf(err, "postgres: insert lead %s", lead.ID)
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	l, err := scanLead(s.pool.QueryRow(ctx, postgresSelectLeads+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get lead %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %s", id)
	}
	return l, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := postgresSelectLeads + ` WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Eligible != nil {
		query += fmt.Sprintf(` AND eligible = $%d`, argIdx)
		args = append(args, *filter.Eligible)
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.Since.UTC())
		argIdx++
	}
	query += ` ORDER BY created_at DESC, id DESC`

	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, filter.limit())
	argIdx++

	if offset := filter.offset(); offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus) error {
	if !status.Valid() {
		return eris.Errorf("postgres: invalid lead status %q", status)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE leads SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: update lead status %s", id)
	}
	return nil
}

// ImportLeads stages the rows with COPY and merges them by id.
func (s *PostgresStore) ImportLeads(ctx context.Context, leads []model.Lead) (int64, error) {
	rows := make([][]any, 0, len(leads))
	for i := range leads {
		if err := validateLead(&leads[i]); err != nil {
			return 0, err
		}
		row, err := leadRow(&leads[i])
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}
	n, err := db.BulkUpsert(ctx, s.pool, leadsUpsert, rows)
	return n, eris.Wrap(err, "postgres: import leads")
}

func (s *PostgresStore) Stats(ctx context.Context) (model.LeadStats, error) {
	var st model.LeadStats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN eligible THEN 1 ELSE 0 END), 0) FROM leads`,
	).Scan(&st.Total, &st.Eligible)
	if err != nil {
		return model.LeadStats{}, eris.Wrap(err, "postgres: lead stats")
	}
	st.NotEligible = st.Total - st.Eligible
	return st, nil
}

func (s *PostgresStore) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM leads`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete leads")
	}
	return tag.RowsAffected(), nil
}
