package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/auditops/findings-assistant/internal/core/domain"
	"github.com/auditops/findings-assistant/internal/core/ports"
)

type FindingRepository struct {
	db *sql.DB
}

func NewFindingRepository(db *sql.DB) *FindingRepository {
	return &FindingRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *FindingRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/importer startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS findings (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	recommendation TEXT NOT NULL DEFAULT '',
	severity TEXT NOT NULL,
	status TEXT NOT NULL,
	department TEXT NOT NULL DEFAULT '',
	project_type TEXT NOT NULL DEFAULT '',
	year INTEGER NOT NULL DEFAULT 0,
	risk_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_findings_severity ON findings(severity);
CREATE INDEX IF NOT EXISTS idx_findings_status ON findings(status);
CREATE INDEX IF NOT EXISTS idx_findings_department ON findings(department);
CREATE INDEX IF NOT EXISTS idx_findings_year ON findings(year);
CREATE INDEX IF NOT EXISTS idx_findings_risk_score ON findings(risk_score DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// queryColumns whitelists the fields filter and sort clauses may reference.
// Everything else is rejected before any SQL is built.
var queryColumns = map[string]struct{}{
	"severity":     {},
	"status":       {},
	"department":   {},
	"project_type": {},
	"year":         {},
	"risk_score":   {},
	"title":        {},
	"created_at":   {},
	"updated_at":   {},
}

var filterOperators = map[domain.FilterOp]string{
	domain.OpEq:  "=",
	domain.OpNeq: "<>",
	domain.OpLt:  "<",
	domain.OpLte: "<=",
	domain.OpGt:  ">",
	domain.OpGte: ">=",
}

func (r *FindingRepository) Query(ctx context.Context, q ports.FindingQuery) ([]domain.Finding, error) {
	var b strings.Builder
	b.WriteString(`
SELECT id, title, description, recommendation, severity, status, department, project_type, year, risk_score, created_at, updated_at
FROM findings
`)

	args := make([]any, 0, len(q.Filters)+1)
	for i, f := range q.Filters {
		op, ok := filterOperators[f.Op]
		if !ok {
			return nil, domain.WrapError(domain.ErrInvalidInput, "query findings",
				fmt.Errorf("operator %q is not supported by the store", f.Op))
		}
		if _, ok := queryColumns[f.Field]; !ok {
			return nil, domain.WrapError(domain.ErrInvalidInput, "query findings",
				fmt.Errorf("unknown filter field %q", f.Field))
		}
		if i == 0 {
			b.WriteString("WHERE ")
		} else {
			b.WriteString("AND ")
		}
		args = append(args, f.Value)
		fmt.Fprintf(&b, "%s %s $%d\n", f.Field, op, len(args))
	}

	b.WriteString("ORDER BY ")
	for _, s := range q.Sorts {
		if _, ok := queryColumns[s.Field]; !ok {
			return nil, domain.WrapError(domain.ErrInvalidInput, "query findings",
				fmt.Errorf("unknown sort field %q", s.Field))
		}
		direction := "ASC"
		if s.Desc {
			direction = "DESC"
		}
		fmt.Fprintf(&b, "%s %s, ", s.Field, direction)
	}
	b.WriteString("id ASC")

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	fmt.Fprintf(&b, "\nLIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Finding, 0)
	for rows.Next() {
		finding, err := scanFinding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, finding)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate findings: %w", err)
	}
	return out, nil
}

func (r *FindingRepository) GetByID(ctx context.Context, id string) (*domain.Finding, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, description, recommendation, severity, status, department, project_type, year, risk_score, created_at, updated_at
FROM findings
WHERE id = $1
`, id)

	finding, err := scanFindingRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrFindingNotFound, "get finding by id",
				fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get finding by id: %w", err)
	}
	return &finding, nil
}

func (r *FindingRepository) Create(ctx context.Context, finding *domain.Finding) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO findings (id, title, description, recommendation, severity, status, department, project_type, year, risk_score, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`, finding.ID, finding.Title, finding.Description, finding.Recommendation,
		string(finding.Severity), string(finding.Status), finding.Department,
		finding.ProjectType, finding.Year, finding.RiskScore,
		finding.CreatedAt, finding.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create finding: %w", err)
	}
	return nil
}

func (r *FindingRepository) UpdateStatus(ctx context.Context, id string, status domain.FindingStatus) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE findings
SET status = $2, updated_at = $3
WHERE id = $1
`, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update finding status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update finding status rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrFindingNotFound, "update finding status",
			fmt.Errorf("id=%s", id))
	}
	return nil
}

type findingScanner interface {
	Scan(dest ...interface{}) error
}

func scanFinding(rows *sql.Rows) (domain.Finding, error) {
	return scanFindingFrom(rows)
}

func scanFindingRow(row *sql.Row) (domain.Finding, error) {
	return scanFindingFrom(row)
}

func scanFindingFrom(s findingScanner) (domain.Finding, error) {
	var f domain.Finding
	var severity, status string
	if err := s.Scan(
		&f.ID, &f.Title, &f.Description, &f.Recommendation,
		&severity, &status, &f.Department, &f.ProjectType,
		&f.Year, &f.RiskScore, &f.CreatedAt, &f.UpdatedAt,
	); err != nil {
		return domain.Finding{}, err
	}
	f.Severity = domain.Severity(severity)
	f.Status = domain.FindingStatus(status)
	return f, nil
}
