package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/franz/safetube/internal/util"
)

// Statement is one (sql, params) pair of a transaction batch
type Statement struct {
	SQL  string
	Args []any
}

// RunResult describes the outcome of a mutating statement
type RunResult struct {
	RowsAffected int64
	LastInsertID int64
}

// TxOptions controls ExecuteTransaction diagnostics. Silent only lowers
// log verbosity; it has no semantic effect.
type TxOptions struct {
	Silent bool
}

// IntegrityResult is the outcome of PRAGMA integrity_check
type IntegrityResult struct {
	OK     bool
	Errors []string
}

// Run executes a mutating or DDL statement. Driver errors (constraint
// violations, syntax errors, lock timeouts) are propagated verbatim.
func (s *Store) Run(ctx context.Context, query string, args ...any) (*RunResult, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.release(conn)
	defer func(start time.Time) { s.track(start, err) }(time.Now())

	var res sql.Result
	res, err = conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	result := &RunResult{}
	if n, err := res.RowsAffected(); err == nil {
		result.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		result.LastInsertID = id
	}
	return result, nil
}

// Get executes a statement expected to return zero or one row and scans it
// into dest. Returns (false, nil) when no row matched; "no rows" is never
// an error.
func (s *Store) Get(ctx context.Context, query string, args []any, dest ...any) (bool, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer s.release(conn)
	defer func(start time.Time) { s.track(start, err) }(time.Now())

	err = conn.QueryRowContext(ctx, query, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// All executes a statement returning zero or more rows and invokes scan for
// each. No implicit ordering is imposed; rows arrive as produced by the
// engine.
func (s *Store) All(ctx context.Context, query string, args []any, scan func(rows *sql.Rows) error) error {
	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer s.release(conn)
	defer func(start time.Time) { s.track(start, err) }(time.Now())

	var rows *sql.Rows
	rows, err = conn.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err = scan(rows); err != nil {
			return err
		}
	}
	err = rows.Err()
	return err
}

// ExecuteTransaction runs the statements in order on one connection inside
// an IMMEDIATE transaction. The first failing statement triggers a rollback
// and is the error surfaced; later statements are never attempted.
func (s *Store) ExecuteTransaction(ctx context.Context, stmts []Statement, opts *TxOptions) error {
	if opts == nil {
		opts = &TxOptions{}
	}

	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer s.release(conn)
	defer func(start time.Time) { s.track(start, err) }(time.Now())

	if _, err = conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for i, stmt := range stmts {
		if !opts.Silent {
			util.DebugLog("Transaction statement %d/%d", i+1, len(stmts))
		}
		if _, err = conn.ExecContext(ctx, stmt.SQL, stmt.Args...); err != nil {
			stmtErr := fmt.Errorf("transaction statement %d failed: %w", i+1, err)
			if _, rbErr := conn.ExecContext(ctx, "ROLLBACK"); rbErr != nil {
				// The original error stays the one surfaced.
				util.ErrorLog("Rollback failed: %v", rbErr)
			}
			err = stmtErr
			return err
		}
	}

	if _, err = conn.ExecContext(ctx, "COMMIT"); err != nil {
		commitErr := fmt.Errorf("failed to commit transaction: %w", err)
		if _, rbErr := conn.ExecContext(ctx, "ROLLBACK"); rbErr != nil {
			util.ErrorLog("Rollback failed: %v", rbErr)
		}
		err = commitErr
		return err
	}
	return nil
}

// CheckIntegrity runs the engine's built-in consistency check. A non-ok
// outcome is a reported result, not an error.
func (s *Store) CheckIntegrity(ctx context.Context) (*IntegrityResult, error) {
	conn, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.release(conn)
	defer func(start time.Time) { s.track(start, err) }(time.Now())

	var rows *sql.Rows
	rows, err = conn.QueryContext(ctx, "PRAGMA integrity_check")
	if err != nil {
		return nil, fmt.Errorf("integrity check query failed: %w", err)
	}
	defer rows.Close()

	var diagnostics []string
	for rows.Next() {
		var line string
		if err = rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("failed to scan integrity result: %w", err)
		}
		diagnostics = append(diagnostics, line)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("integrity check failed: %w", err)
	}

	if len(diagnostics) == 1 && diagnostics[0] == "ok" {
		return &IntegrityResult{OK: true, Errors: []string{}}, nil
	}
	return &IntegrityResult{OK: false, Errors: diagnostics}, nil
}
