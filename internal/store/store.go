package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// CurrentSchemaVersion is the layout version new stores are created at.
const CurrentSchemaVersion = 2

// Store provides durable storage for projects and records.
// Uses SQLite with WAL mode and a single connection (single writer).
type Store struct {
	db      *sql.DB
	now     func() time.Time
	log     zerolog.Logger
	metrics *metrics
	version int

	// cols records which optional record columns exist on the opened
	// layout. A store opened below version 2 has neither.
	cols recordColumns
}

type options struct {
	targetVersion int
	now           func() time.Time
	logger        zerolog.Logger
	registry      *prometheus.Registry
}

// Option configures Open.
type Option func(*options)

// WithTargetVersion opens (and if needed upgrades) the store at version v
// instead of CurrentSchemaVersion.
func WithTargetVersion(v int) Option {
	return func(o *options) { o.targetVersion = v }
}

// WithClock replaces the wall clock used to stamp timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry registers store metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// Open creates or opens a SQLite database at the given path and migrates it
// to the target version.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// Every failure is reported as an OPEN_FAILED *Error. Opening a store that
// is already at the target version changes nothing.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	o := options{
		targetVersion: CurrentSchemaVersion,
		now:           time.Now,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, openFailed(fmt.Errorf("open database: %w", err))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, openFailed(fmt.Errorf("connect to database: %w", err))
	}

	// SQLite only supports one writer at a time, and ":memory:" databases
	// exist per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, openFailed(err)
	}

	from, err := migrate(ctx, db, o.targetVersion)
	if err != nil {
		db.Close()
		return nil, openFailed(err)
	}
	if from != o.targetVersion {
		o.logger.Info().Int("from", from).Int("to", o.targetVersion).Msg("schema migrated")
	}

	cols, err := detectRecordColumns(ctx, db)
	if err != nil {
		db.Close()
		return nil, openFailed(err)
	}

	m, err := newMetrics(o.registry)
	if err != nil {
		db.Close()
		return nil, openFailed(fmt.Errorf("register metrics: %w", err))
	}

	o.logger.Debug().Str("path", path).Int("version", o.targetVersion).Msg("store opened")

	return &Store{
		db:      db,
		now:     o.now,
		log:     o.logger,
		metrics: m,
		version: o.targetVersion,
		cols:    cols,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Version returns the schema version the store was opened at.
func (s *Store) Version() int {
	return s.version
}

// Metrics returns the registry holding the store's operation metrics.
func (s *Store) Metrics() *prometheus.Registry {
	return s.metrics.registry
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// timestamps are stored as unix milliseconds.
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
