// Package sqliteexec is the default executor.Backend: a single embedded
// SQLite database opened through modernc.org/sqlite, with the WAL
// checkpoint and schema-version migration-on-boot mechanics the teacher
// ran across six separate databases, collapsed here onto the one backend
// database this gateway fronts.
package sqliteexec

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/horos/libsqld-gateway/internal/executor"
)

// SchemaVersion is bumped whenever a migration is added under
// MigrationsDir.
const SchemaVersion = 1

// DB is the default executor.Backend, wrapping one *sql.DB.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if absent) the SQLite file at path and returns a
// ready-to-use Backend. An empty path opens an in-process, non-persistent
// database — the shape used by package tests.
func Open(path string) (*DB, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite backend: %w", err)
	}
	conn.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers on one *sql.DB
	return &DB{conn: conn}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error { return d.conn.Close() }

// Checkpoint forces a WAL checkpoint, matching the boot-time recovery step
// the teacher ran over each of its six databases.
func (d *DB) Checkpoint(ctx context.Context) error {
	_, err := d.conn.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// Migrate applies any pending *.sql migrations found under migrationsDir,
// tracked via PRAGMA user_version exactly as the teacher's
// recoverDB/applyMigrations pair did per-database.
func (d *DB) Migrate(ctx context.Context, migrationsDir string) error {
	var version int
	if err := d.conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version >= SchemaVersion {
		return nil
	}
	if migrationsDir == "" {
		_, err := d.conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion))
		return err
	}
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		_, err := d.conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion))
		return err
	}

	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		var migVersion int
		fmt.Sscanf(name, "%d_", &migVersion)
		if migVersion <= version {
			continue
		}
		content, err := os.ReadFile(filepath.Join(migrationsDir, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := d.conn.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}

	_, err = d.conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion))
	return err
}

// Exec implements executor.Backend.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (executor.Cursor, error) {
	trimmed := strings.TrimSpace(query)
	upper := strings.ToUpper(trimmed)
	if strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "PRAGMA") || strings.HasPrefix(upper, "EXPLAIN") || strings.HasPrefix(upper, "WITH") {
		rows, err := d.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		return newRowCursor(rows)
	}

	res, err := d.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &execCursor{res: res}, nil
}

// Prepare implements executor.Preparer: for SELECT and WITH statements it
// runs the query unchanged (no arguments bound, rows left unread) and
// reports the column metadata of the result set. Any other statement kind
// returns nil columns without touching the database.
func (d *DB) Prepare(ctx context.Context, query string) ([]executor.ColumnMeta, error) {
	upper := strings.ToUpper(strings.TrimSpace(query))
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return nil, nil
	}
	rows, err := d.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return columnMeta(rows)
}

// ExecScript implements executor.Scripter for the pipeline engine's
// "sequence" request: an opaque, possibly multi-statement script run for
// side effects with no row data returned.
func (d *DB) ExecScript(ctx context.Context, script string) error {
	_, err := d.conn.ExecContext(ctx, script)
	return err
}

func columnMeta(rows *sql.Rows) ([]executor.ColumnMeta, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	cols := make([]executor.ColumnMeta, len(types))
	for i, t := range types {
		decl := t.DatabaseTypeName()
		cols[i] = executor.ColumnMeta{Name: t.Name(), DeclType: decl}
	}
	return cols, nil
}
