package store

import (
	"context"
	"database/sql"
	"fmt"
)

// migration upgrades the layout to version. apply runs inside the upgrade
// transaction and must be safe to run against a layout that already has
// some or all of what it creates.
type migration struct {
	version int
	apply   func(ctx context.Context, tx *sql.Tx) error
}

var migrations = []migration{
	{version: 1, apply: migrateToV1},
	{version: 2, apply: migrateToV2},
}

func latestVersion() int {
	return migrations[len(migrations)-1].version
}

// migrate brings the database to target and returns the version it found.
// Steps and the user_version bump share one transaction.
func migrate(ctx context.Context, db *sql.DB, target int) (int, error) {
	if target < 1 || target > latestVersion() {
		return 0, fmt.Errorf("unknown schema version %d (latest is %d)", target, latestVersion())
	}

	var current int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}

	if current > target {
		return current, fmt.Errorf("store is at schema version %d, newer than target %d", current, target)
	}
	if current == target {
		return current, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return current, fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, m := range migrations {
		if m.version <= current || m.version > target {
			continue
		}
		if err := m.apply(ctx, tx); err != nil {
			return current, fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", target)); err != nil {
		return current, fmt.Errorf("set user_version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return current, fmt.Errorf("commit migration: %w", err)
	}
	return current, nil
}

// migrateToV1 creates the first released layout: records without names or
// project references, and the stand-alone media table.
func migrateToV1(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			date      TEXT    NOT NULL,
			pages     BLOB    NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_records_timestamp ON records(timestamp);
		CREATE INDEX IF NOT EXISTS idx_records_date ON records(date);

		CREATE TABLE IF NOT EXISTS media (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id   INTEGER NOT NULL,
			type        TEXT    NOT NULL,
			data        BLOB    NOT NULL,
			captured_at INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_media_record_id ON media(record_id);
		CREATE INDEX IF NOT EXISTS idx_media_type ON media(type);
	`)
	if err != nil {
		return fmt.Errorf("create v1 tables: %w", err)
	}
	return nil
}

// migrateToV2 adds record names and project grouping.
func migrateToV2(ctx context.Context, tx *sql.Tx) error {
	columns := []struct {
		name string
		ddl  string
	}{
		{"name", `ALTER TABLE records ADD COLUMN name TEXT NOT NULL DEFAULT ''`},
		{"project_id", `ALTER TABLE records ADD COLUMN project_id INTEGER`},
	}
	for _, c := range columns {
		exists, err := hasColumn(ctx, tx, "records", c.name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := tx.ExecContext(ctx, c.ddl); err != nil {
			return fmt.Errorf("add records.%s: %w", c.name, err)
		}
	}

	_, err := tx.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_records_project_id ON records(project_id);
		CREATE INDEX IF NOT EXISTS idx_records_name ON records(name);

		CREATE TABLE IF NOT EXISTS projects (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT    NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			timestamp  INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_projects_name ON projects(name);
		CREATE INDEX IF NOT EXISTS idx_projects_timestamp ON projects(timestamp);
	`)
	if err != nil {
		return fmt.Errorf("create v2 tables: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func hasColumn(ctx context.Context, q queryer, table, column string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("inspect %s.%s: %w", table, column, err)
	}
	return n > 0, nil
}

func hasTable(ctx context.Context, q queryer, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("inspect table %s: %w", name, err)
	}
	return n > 0, nil
}

func hasIndex(ctx context.Context, q queryer, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?`, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("inspect index %s: %w", name, err)
	}
	return n > 0, nil
}

// recordColumns tracks the optional record columns of the opened layout,
// and whether it has a projects table at all.
type recordColumns struct {
	name     bool
	project  bool
	projects bool
}

func detectRecordColumns(ctx context.Context, db *sql.DB) (recordColumns, error) {
	var cols recordColumns
	var err error
	if cols.name, err = hasColumn(ctx, db, "records", "name"); err != nil {
		return cols, err
	}
	if cols.project, err = hasColumn(ctx, db, "records", "project_id"); err != nil {
		return cols, err
	}
	if cols.projects, err = hasTable(ctx, db, "projects"); err != nil {
		return cols, err
	}
	return cols, nil
}

// Indexes lists the secondary indexes present on the opened store, by
// table name.
func (s *Store) Indexes(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tbl_name, name FROM sqlite_master
		WHERE type = 'index' AND name LIKE 'idx_%'
		ORDER BY tbl_name, name
	`)
	if err != nil {
		return nil, fmt.Errorf("query indexes: %w", err)
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var table, name string
		if err := rows.Scan(&table, &name); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		out[table] = append(out[table], name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate indexes: %w", err)
	}
	return out, nil
}
