package sqliteexec

import (
	"context"
	"testing"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestExecCreateAndInsert(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	if _, err := db.Exec(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatal(err)
	}
	cur, err := db.Exec(ctx, "INSERT INTO t (name) VALUES (?)", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := cur.RowsAffected(); !ok || n != 1 {
		t.Fatalf("got n=%d ok=%v", n, ok)
	}
	if id, ok := cur.LastInsertID(); !ok || id != 1 {
		t.Fatalf("got id=%d ok=%v", id, ok)
	}
}

func TestExecSelectReturnsRows(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	db.Exec(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)")
	db.Exec(ctx, "INSERT INTO t (name) VALUES (?)", "alice")
	db.Exec(ctx, "INSERT INTO t (name) VALUES (?)", "bob")

	cur, err := db.Exec(ctx, "SELECT id, name FROM t ORDER BY id")
	if err != nil {
		t.Fatal(err)
	}
	cols, err := cur.Columns()
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 2 || cols[0].Name != "id" || cols[1].Name != "name" {
		t.Fatalf("got %+v", cols)
	}
	rows, err := cur.ToArray()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[1]["name"] != "bob" {
		t.Fatalf("got %+v", rows[1])
	}
}

func TestPrepareOnlyReportsColumnsForSelect(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	db.Exec(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)")

	cols, err := db.Prepare(ctx, "SELECT id, name FROM t")
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 2 {
		t.Fatalf("got %+v", cols)
	}

	cols, err = db.Prepare(ctx, "INSERT INTO t (name) VALUES ('x')")
	if err != nil {
		t.Fatal(err)
	}
	if cols != nil {
		t.Fatalf("expected nil columns for a non-SELECT statement, got %+v", cols)
	}
}

func TestExecScriptRunsMultipleStatements(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	err := db.ExecScript(ctx, `
		CREATE TABLE t (id INTEGER PRIMARY KEY);
		INSERT INTO t (id) VALUES (1);
		INSERT INTO t (id) VALUES (2);
	`)
	if err != nil {
		t.Fatal(err)
	}

	cur, err := db.Exec(ctx, "SELECT COUNT(*) AS n FROM t")
	if err != nil {
		t.Fatal(err)
	}
	rows, _ := cur.ToArray()
	if rows[0]["n"] != int64(2) {
		t.Fatalf("got %+v", rows[0])
	}
}

func TestMigrateSetsSchemaVersionWithoutMigrationsDir(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, ""); err != nil {
		t.Fatal(err)
	}

	cur, err := db.Exec(ctx, "PRAGMA user_version")
	if err != nil {
		t.Fatal(err)
	}
	rows, _ := cur.ToArray()
	if rows[0]["user_version"] != int64(SchemaVersion) {
		t.Fatalf("got %+v, want schema version %d", rows[0], SchemaVersion)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if err := db.Migrate(ctx, ""); err != nil {
		t.Fatal(err)
	}
}

func TestCheckpointDoesNotError(t *testing.T) {
	db := openTest(t)
	if err := db.Checkpoint(context.Background()); err != nil {
		t.Fatal(err)
	}
}
