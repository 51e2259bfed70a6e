// Package query runs SQL over exported columnar files. An embedded
// in-process DuckDB engine reads the Parquet tables directly, so
// selections over millions of particle rows never touch the event
// graph model.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/xtxerr/hepio/config"
	"github.com/xtxerr/hepio/internal/errors"
	"github.com/xtxerr/hepio/internal/export/parquet"
)

// Options configures the query service.
type Options struct {
	// MemoryLimit caps engine memory, e.g. "1GB". Empty keeps the
	// engine default.
	MemoryLimit string

	// DefaultLimit bounds result sets when a query gives no limit
	// of its own.
	DefaultLimit int
}

// DefaultOptions returns the stock service configuration.
func DefaultOptions() Options {
	return Options{
		MemoryLimit:  config.DefaultQueryMemoryLimit,
		DefaultLimit: config.DefaultQueryLimit,
	}
}

// Service provides SQL access to exported particle and event tables.
type Service struct {
	mu   sync.RWMutex
	db   *sql.DB
	opts Options

	stats Stats
}

// Stats holds query statistics.
type Stats struct {
	QueriesExecuted int64
	RowsReturned    int64
	Errors          int64
}

// ParticleQuery selects particle rows from an exported table.
type ParticleQuery struct {
	// PIDs restricts to these PDG codes. Empty means all.
	PIDs []int

	// Statuses restricts to these status codes. Empty means all.
	Statuses []int

	// MinPt drops rows below this transverse momentum.
	MinPt float64

	// MaxAbsEta drops rows outside the pseudorapidity window.
	MaxAbsEta float64

	// EventNumber restricts to one event when non-nil.
	EventNumber *int64

	// Limit bounds the result set. Zero applies the service
	// default.
	Limit int
}

// New creates a query service backed by an in-memory engine.
func New(opts Options) (*Service, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if opts.MemoryLimit != "" {
		if _, err := db.Exec(fmt.Sprintf("SET memory_limit='%s'", opts.MemoryLimit)); err != nil {
			db.Close()
			return nil, fmt.Errorf("set memory limit: %w", err)
		}
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = config.DefaultQueryLimit
	}
	return &Service{db: db, opts: opts}, nil
}

// Close closes the engine.
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// QueryParticles runs a structured selection over the particle table
// at pattern (a path or glob of Parquet files).
func (s *Service) QueryParticles(ctx context.Context, pattern string, q ParticleQuery) ([]parquet.ParticleRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sqlText, args := buildParticleSQL(pattern, q, s.opts.DefaultLimit)
	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		s.fail()
		return nil, errors.Wrapf(errors.ErrStream, "query particles: %v", err)
	}
	defer rows.Close()

	var out []parquet.ParticleRow
	for rows.Next() {
		var r parquet.ParticleRow
		if err := rows.Scan(
			&r.EventNumber, &r.ParticleID, &r.PID, &r.Status,
			&r.Px, &r.Py, &r.Pz, &r.E, &r.Mass,
			&r.Pt, &r.Eta, &r.Phi,
			&r.ProductionVertex, &r.EndVertex,
		); err != nil {
			s.fail()
			return nil, fmt.Errorf("scan particle row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		s.fail()
		return nil, err
	}
	s.record(len(out))
	return out, nil
}

// buildParticleSQL assembles a filtered SELECT against read_parquet.
func buildParticleSQL(pattern string, q ParticleQuery, defaultLimit int) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT event_number, particle_id, pid, status,
px, py, pz, e, mass, pt, eta, phi,
production_vertex, end_vertex
FROM read_parquet($1)`)
	args := []any{pattern}
	next := 2

	var conds []string
	addList := func(column string, values []int) {
		if len(values) == 0 {
			return
		}
		ph := make([]string, len(values))
		for i, v := range values {
			ph[i] = fmt.Sprintf("$%d", next)
			args = append(args, v)
			next++
		}
		conds = append(conds, fmt.Sprintf("%s IN (%s)", column, strings.Join(ph, ", ")))
	}
	addList("pid", q.PIDs)
	addList("status", q.Statuses)
	if q.MinPt > 0 {
		conds = append(conds, fmt.Sprintf("pt >= $%d", next))
		args = append(args, q.MinPt)
		next++
	}
	if q.MaxAbsEta > 0 {
		conds = append(conds, fmt.Sprintf("abs(eta) <= $%d", next))
		args = append(args, q.MaxAbsEta)
		next++
	}
	if q.EventNumber != nil {
		conds = append(conds, fmt.Sprintf("event_number = $%d", next))
		args = append(args, *q.EventNumber)
		next++
	}
	if len(conds) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(conds, "\n  AND "))
	}
	sb.WriteString("\nORDER BY event_number, particle_id")

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	sb.WriteString(fmt.Sprintf("\nLIMIT %d", limit))
	return sb.String(), args
}

// SummaryRow is one line of the per-table summary.
type SummaryRow struct {
	PID   int32
	Count int64
	AvgPt float64
	MaxPt float64
}

// Summarize aggregates the particle table by PDG code.
func (s *Service) Summarize(ctx context.Context, pattern string) ([]SummaryRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT pid, count(*), avg(pt), max(pt)
		FROM read_parquet($1)
		GROUP BY pid
		ORDER BY count(*) DESC, pid`, pattern)
	if err != nil {
		s.fail()
		return nil, errors.Wrapf(errors.ErrStream, "summarize: %v", err)
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var r SummaryRow
		if err := rows.Scan(&r.PID, &r.Count, &r.AvgPt, &r.MaxPt); err != nil {
			s.fail()
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		s.fail()
		return nil, err
	}
	s.record(len(out))
	return out, nil
}

// Exec runs a raw SQL statement and returns the rows as strings, one
// slice per row, with the column names first. This is the engine
// behind the ad hoc query surface of the command line tool.
func (s *Service) Exec(ctx context.Context, sqlText string) ([]string, [][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, sqlText)
	if err != nil {
		s.fail()
		return nil, nil, errors.Wrapf(errors.ErrStream, "query: %v", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		s.fail()
		return nil, nil, err
	}

	var out [][]string
	values := make([]any, len(cols))
	holders := make([]sql.NullString, len(cols))
	for i := range holders {
		values[i] = &holders[i]
	}
	for rows.Next() {
		if err := rows.Scan(values...); err != nil {
			s.fail()
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		row := make([]string, len(cols))
		for i, h := range holders {
			if h.Valid {
				row[i] = h.String
			} else {
				row[i] = "NULL"
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		s.fail()
		return nil, nil, err
	}
	s.record(len(out))
	return cols, out, nil
}

// Stats returns a copy of the service counters.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Service) record(rows int) {
	s.stats.QueriesExecuted++
	s.stats.RowsReturned += int64(rows)
}

func (s *Service) fail() {
	s.stats.Errors++
}
