package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/franz/safetube/internal/util"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	defaultMaxConnections = 5
	defaultAcquireTimeout = 10 * time.Second
	defaultBusyTimeoutMS  = 30000
	defaultCacheSizeKB    = 2048
	defaultJournalMode    = "WAL"
	defaultSynchronous    = "NORMAL"
	defaultTempStore      = "MEMORY"
)

// Config holds database configuration. The zero value is usable: every
// field falls back to a sensible default in New.
type Config struct {
	// Path is the database file location. Defaults to
	// <user config dir>/safetube/safetube.db.
	Path string

	// MaxConnections is the pooled connection count (default 5).
	MaxConnections int

	// AcquireTimeout bounds how long a caller waits for an idle
	// connection (default 10s).
	AcquireTimeout time.Duration

	// BusyTimeoutMS is how long a connection blocks on lock contention
	// before the engine reports SQLITE_BUSY (default 30000).
	BusyTimeoutMS int

	// CacheSizeKB is the per-file page cache size in KiB (default 2048).
	CacheSizeKB int

	JournalMode string // default WAL
	Synchronous string // default NORMAL
	TempStore   string // default MEMORY

	// DisableForeignKeys turns off foreign-key enforcement. Leave unset.
	DisableForeignKeys bool
}

// Metrics holds running query counters
type Metrics struct {
	QueriesExecuted int64
	QueryTimeTotal  time.Duration
	Errors          int64
}

// HealthStatus is a point-in-time snapshot of the pool for liveness probes
type HealthStatus struct {
	Initialized       bool
	Connected         bool
	PoolSize          int
	ActiveConnections int
	Metrics           Metrics
}

// HealthReport is the condensed health check result
type HealthReport struct {
	IsHealthy bool
	Version   string
}

// Store manages a pooled set of connections to a single SQLite file and is
// the only path through which application code touches the database.
// Construct one per process with New and share it.
type Store struct {
	cfg Config

	// mu serializes Initialize and Close. A second Initialize call while
	// the first is in flight blocks here until the first completes, then
	// sees the flag and no-ops.
	mu          sync.Mutex
	initialized atomic.Bool

	db      *sql.DB
	primary *sql.Conn
	pool    chan *sql.Conn
	conns   []*sql.Conn

	active          atomic.Int64
	queriesExecuted atomic.Int64
	queryTimeNanos  atomic.Int64
	queryErrors     atomic.Int64
}

// New creates a Store with defaults applied. The database is not touched
// until Initialize.
func New(cfg Config) *Store {
	if cfg.Path == "" {
		cfg.Path = DefaultPath()
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = defaultMaxConnections
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = defaultAcquireTimeout
	}
	if cfg.BusyTimeoutMS <= 0 {
		cfg.BusyTimeoutMS = defaultBusyTimeoutMS
	}
	if cfg.CacheSizeKB <= 0 {
		cfg.CacheSizeKB = defaultCacheSizeKB
	}
	if cfg.JournalMode == "" {
		cfg.JournalMode = defaultJournalMode
	}
	if cfg.Synchronous == "" {
		cfg.Synchronous = defaultSynchronous
	}
	if cfg.TempStore == "" {
		cfg.TempStore = defaultTempStore
	}
	return &Store{cfg: cfg}
}

// DefaultPath returns the database location under the user's config
// directory, falling back to the working directory if it cannot be
// resolved.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "safetube.db"
	}
	return filepath.Join(dir, "safetube", "safetube.db")
}

// Initialize opens the primary connection, applies pragmas, builds the
// connection pool and brings the schema up to date. It is idempotent and
// safe to call concurrently: later callers block until the first call
// completes, then return without re-initializing.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized.Load() {
		return nil
	}

	if err := util.EnsureDir(s.cfg.Path); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+s.cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// One handle per pooled connection plus the primary; dedicated
	// *sql.Conn objects below pin sessions so pragmas stick.
	db.SetMaxOpenConns(s.cfg.MaxConnections + 1)
	db.SetMaxIdleConns(s.cfg.MaxConnections + 1)
	db.SetConnMaxLifetime(0)

	primary, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to open primary connection: %w", err)
	}

	if err := applyPrimaryPragmas(ctx, primary, s.cfg); err != nil {
		primary.Close()
		db.Close()
		return err
	}

	pool := make(chan *sql.Conn, s.cfg.MaxConnections)
	conns := make([]*sql.Conn, 0, s.cfg.MaxConnections)
	for i := 0; i < s.cfg.MaxConnections; i++ {
		conn, err := db.Conn(ctx)
		if err == nil {
			err = applyPooledPragmas(ctx, conn, s.cfg)
		}
		if err != nil {
			for _, c := range conns {
				c.Close()
			}
			primary.Close()
			db.Close()
			return fmt.Errorf("failed to open pooled connection %d: %w", i+1, err)
		}
		conns = append(conns, conn)
		pool <- conn
	}

	s.db = db
	s.primary = primary
	s.pool = pool
	s.conns = conns
	s.initialized.Store(true)

	if err := s.initializeSchema(ctx); err != nil {
		s.closeLocked()
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	util.InfoLog("Database ready: %s (pool size %d)", s.cfg.Path, s.cfg.MaxConnections)
	return nil
}

// acquire pops an idle connection, waiting up to AcquireTimeout
func (s *Store) acquire(ctx context.Context) (*sql.Conn, error) {
	if !s.initialized.Load() {
		return nil, util.ErrNotInitialized
	}

	timer := time.NewTimer(s.cfg.AcquireTimeout)
	defer timer.Stop()

	select {
	case conn := <-s.pool:
		s.active.Add(1)
		return conn, nil
	case <-timer.C:
		return nil, fmt.Errorf("no idle connection after %s: %w", s.cfg.AcquireTimeout, util.ErrAcquireTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// release returns a connection to the idle set. Callers must release in a
// defer regardless of query outcome. A release racing Close finds the pool
// gone; the connection was already closed for it, so it is dropped rather
// than blocking the caller forever on a dead channel.
func (s *Store) release(conn *sql.Conn) {
	s.active.Add(-1)
	pool := s.pool
	if pool == nil {
		return
	}
	select {
	case pool <- conn:
	default:
	}
}

// track updates the running query counters
func (s *Store) track(start time.Time, err error) {
	s.queriesExecuted.Add(1)
	s.queryTimeNanos.Add(time.Since(start).Nanoseconds())
	if err != nil {
		s.queryErrors.Add(1)
	}
}

// Close closes every pooled connection and the primary connection and
// resets the store so a future Initialize starts clean. Calling Close on a
// store that was never initialized is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Store) closeLocked() error {
	if s.db == nil {
		return nil
	}

	s.initialized.Store(false)

	// Drain the idle set so nothing hands out a closing connection.
	for len(s.pool) > 0 {
		<-s.pool
	}
	var firstErr error
	for _, conn := range s.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.primary.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	s.db = nil
	s.primary = nil
	s.pool = nil
	s.conns = nil
	s.active.Store(0)
	return firstErr
}

// HealthCheck reports whether the primary connection answers queries. The
// connection is snapshotted under the lifecycle mutex so a concurrent Close
// cannot pull it away mid-check.
func (s *Store) HealthCheck(ctx context.Context) HealthReport {
	s.mu.Lock()
	primary := s.primary
	s.mu.Unlock()

	if primary == nil {
		return HealthReport{}
	}

	var version string
	if err := primary.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
		return HealthReport{}
	}
	return HealthReport{IsHealthy: true, Version: version}
}

// GetHealthStatus reports pool state and accumulated metrics
func (s *Store) GetHealthStatus() HealthStatus {
	initialized := s.initialized.Load()
	status := HealthStatus{
		Initialized: initialized,
		Connected:   initialized,
		Metrics: Metrics{
			QueriesExecuted: s.queriesExecuted.Load(),
			QueryTimeTotal:  time.Duration(s.queryTimeNanos.Load()),
			Errors:          s.queryErrors.Load(),
		},
	}
	if initialized {
		status.PoolSize = s.cfg.MaxConnections
		status.ActiveConnections = int(s.active.Load())
	}
	return status
}

// Path returns the database file location
func (s *Store) Path() string {
	return s.cfg.Path
}

// DriverVersion returns the SQLite library version string
func DriverVersion() string {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return ""
	}
	defer db.Close()

	var version string
	if err := db.QueryRow("SELECT sqlite_version()").Scan(&version); err != nil {
		return ""
	}
	return version
}
