package academics

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the records table queried when none is configured.
const DefaultTable = "student_academics"

// PGStore reads records from a PostgreSQL table with the columns of Record.
type PGStore struct {
	pool  *pgxpool.Pool
	query string
}

var _ RecordStore = (*PGStore)(nil)

// OpenPGStore connects to dsn and verifies the connection.
func OpenPGStore(ctx context.Context, dsn, table string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("academics: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("academics: ping: %w", err)
	}
	return NewPGStore(pool, table), nil
}

// NewPGStore wraps an existing pool.
func NewPGStore(pool *pgxpool.Pool, table string) *PGStore {
	return &PGStore{pool: pool, query: recordsQuery(table)}
}

func recordsQuery(table string) string {
	table = strings.TrimSpace(table)
	if table == "" {
		table = DefaultTable
	}
	ident := pgx.Identifier(strings.Split(table, "."))
	return "SELECT student_id, name, branch, semester, subject, score, grade, attendance FROM " +
		ident.Sanitize() + " WHERE name = $1 ORDER BY semester, subject"
}

// RecordsByName returns every record whose name matches exactly.
func (s *PGStore) RecordsByName(ctx context.Context, name string) ([]Record, error) {
	rows, err := s.pool.Query(ctx, s.query, name)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Record])
}

// Close releases the pool.
func (s *PGStore) Close() {
	s.pool.Close()
}
