package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sinergia/leadquote/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id             TEXT PRIMARY KEY,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	name           TEXT NOT NULL,
	email          TEXT NOT NULL,
	whatsapp       TEXT NOT NULL,
	state_id       INTEGER NOT NULL DEFAULT 0,
	distributor_id INTEGER NOT NULL,
	eligible       INTEGER NOT NULL DEFAULT 0,
	outcome        TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'novo',
	origin         TEXT NOT NULL DEFAULT '',
	quote          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_eligible ON leads(eligible);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var sqliteInsertLead = `INSERT INTO leads (` + strings.Join(leadColumns, ", ") + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

var sqliteUpsertLead = sqliteInsertLead + ` ON CONFLICT(id) DO UPDATE SET ` + sqliteExcluded(leadColumns[1:])

func sqliteExcluded(cols []string) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = excluded." + c
	}
	return strings.Join(sets, ", ")
}

func (s *SQLiteStore) SaveLead(ctx context.Context, lead *model.Lead) error {
	if err := validateLead(lead); err != nil {
		return err
	}
	row, err := leadRow(lead)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, sqliteInsertLead, sqliteArgs(row)...); err != nil {
		return eris.Wrapf(err, "sqlite: insert lead %s", lead.ID)
	}
	return nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+strings.Join(leadColumns, ", ")+` FROM leads WHERE id = ?`, id)
	l, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get lead %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get lead %s", id)
	}
	return l, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + strings.Join(leadColumns, ", ") + ` FROM leads WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Eligible != nil {
		query += ` AND eligible = ?`
		args = append(args, *filter.Eligible)
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, filter.limit(), filter.offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus) error {
	if !status.Valid() {
		return eris.Errorf("sqlite: invalid lead status %q", status)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE leads SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead status %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) ImportLeads(ctx context.Context, leads []model.Lead) (int64, error) {
	if len(leads) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertLead)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import prepare")
	}
	defer stmt.Close()

	var n int64
	for i := range leads {
		if err := validateLead(&leads[i]); err != nil {
			return 0, err
		}
		row, err := leadRow(&leads[i])
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, sqliteArgs(row)...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: import lead %s", leads[i].ID)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: import commit")
	}
	return n, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (model.LeadStats, error) {
	var st model.LeadStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN eligible THEN 1 ELSE 0 END), 0) FROM leads`,
	).Scan(&st.Total, &st.Eligible)
	if err != nil {
		return model.LeadStats{}, eris.Wrap(err, "sqlite: lead stats")
	}
	st.NotEligible = st.Total - st.Eligible
	return st, nil
}

func (s *SQLiteStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete leads")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: rows affected")
}

// sqliteArgs stores the quote JSON as text so it stays readable in the
// sqlite3 shell.
func sqliteArgs(row []any) []any {
	if b, ok := row[len(row)-1].([]byte); ok {
		row[len(row)-1] = string(b)
	}
	return row
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "lead %s", id)
	}
	return nil
}
