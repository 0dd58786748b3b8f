package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// TxCopyFn inserts rows inside an open transaction.
type TxCopyFn func(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error)

// SQLRepository implements Repository on top of database/sql. The sqlite,
// mysql and mssql backends embed it and differ only in dialect, the
// table-existence query and, for mssql, the bulk-copy primitive.
type SQLRepository struct {
	DB      *sql.DB
	Dialect Dialect
	// ExistsSQL takes the table name as its only argument.
	ExistsSQL string
	// MaxParams bounds the placeholders per INSERT statement.
	MaxParams int
	// Copy overrides the multi-row INSERT path.
	Copy TxCopyFn
}

var _ Repository = (*SQLRepository)(nil)

// Exec executes a statement on the pool.
func (r *SQLRepository) Exec(ctx context.Context, sqlText string, args ...any) error {
	if strings.TrimSpace(sqlText) == "" {
		return nil
	}
	if _, err := r.DB.ExecContext(ctx, sqlText, args...); err != nil {
		return fmt.Errorf("%s: exec: %w", r.Dialect.Name, err)
	}
	return nil
}

// TableExists runs ExistsSQL with name.
func (r *SQLRepository) TableExists(ctx context.Context, name string) (bool, error) {
	rows, err := r.DB.QueryContext(ctx, r.ExistsSQL, name)
	if err != nil {
		return false, fmt.Errorf("%s: table exists %s: %w", r.Dialect.Name, name, err)
	}
	defer rows.Close()
	found := rows.Next()
	return found, rows.Err()
}

// Strings returns the first column of query as strings.
func (r *SQLRepository) Strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", r.Dialect.Name, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", r.Dialect.Name, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Acquire reserves one *sql.Conn.
func (r *SQLRepository) Acquire(ctx context.Context) (Session, error) {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: acquire: %w", r.Dialect.Name, err)
	}
	return &sqlSession{repo: r, conn: conn}, nil
}

// Close closes the pool.
func (r *SQLRepository) Close() { _ = r.DB.Close() }

type sqlSession struct {
	repo *SQLRepository
	conn *sql.Conn
}

func (s *sqlSession) Release() { _ = s.conn.Close() }

func (s *sqlSession) Exists(ctx context.Context, query string, args ...any) (bool, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: exists: %w", s.repo.Dialect.Name, err)
	}
	defer rows.Close()
	found := rows.Next()
	return found, rows.Err()
}

// CopyFrom inserts rows in one transaction.
func (s *sqlSession) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	name := s.repo.Dialect.Name
	if len(columns) == 0 {
		return 0, fmt.Errorf("%s: CopyFrom: columns must not be empty", name)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("%s: CopyFrom: row %d length %d != columns length %d", name, i, len(row), len(columns))
		}
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin tx: %w", name, err)
	}

	copyFn := s.repo.Copy
	if copyFn == nil {
		copyFn = s.repo.insertRows
	}
	n, err := copyFn(ctx, tx, table, columns, rows)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", name, err)
	}
	return n, nil
}

// insertRows is the default TxCopyFn: multi-row INSERT statements sized to
// MaxParams.
func (r *SQLRepository) insertRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error) {
	size := BatchSize(r.MaxParams, len(columns))
	full := r.Dialect.InsertSQL(table, columns, size)

	return CopyBatches(ctx, columns, rows, size, func(ctx context.Context, columns []string, batch [][]any) (int64, error) {
		stmt := full
		if len(batch) != size {
			stmt = r.Dialect.InsertSQL(table, columns, len(batch))
		}
		args := make([]any, 0, len(batch)*len(columns))
		for _, row := range batch {
			args = append(args, row...)
		}
		res, err := tx.ExecContext(ctx, stmt, args...)
		if err != nil {
			return 0, fmt.Errorf("%s: insert %s: %w", r.Dialect.Name, table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return int64(len(batch)), nil
		}
		return n, nil
	})
}
