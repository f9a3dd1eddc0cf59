package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/horos/libsqld-gateway/internal/values"
)

// fakeCursor is a minimal in-memory Cursor for exercising Executor without
// a real backend.
type fakeCursor struct {
	cols     []ColumnMeta
	rows     []map[string]any
	affected int64
	hasAff   bool
	lastID   int64
	hasID    bool
}

func (c *fakeCursor) Columns() ([]ColumnMeta, error)   { return c.cols, nil }
func (c *fakeCursor) ToArray() ([]map[string]any, error) { return c.rows, nil }
func (c *fakeCursor) RowsAffected() (int64, bool)      { return c.affected, c.hasAff }
func (c *fakeCursor) LastInsertID() (int64, bool)      { return c.lastID, c.hasID }

type fakeBackend struct {
	exec func(ctx context.Context, sql string, args ...any) (Cursor, error)
}

func (b *fakeBackend) Exec(ctx context.Context, sql string, args ...any) (Cursor, error) {
	return b.exec(ctx, sql, args...)
}

func TestExecuteTransactionControlShortCircuits(t *testing.T) {
	called := false
	backend := &fakeBackend{exec: func(ctx context.Context, sql string, args ...any) (Cursor, error) {
		called = true
		return nil, nil
	}}
	e := New(backend)

	res, err := e.Execute(context.Background(), "BEGIN", nil, nil, V2)
	if err != nil {
		t.Fatal(err)
	}
	if called {
		t.Fatal("BEGIN should never reach the backend")
	}
	if len(res.Rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(res.Rows))
	}
}

func TestExecuteSelectPopulatesRows(t *testing.T) {
	backend := &fakeBackend{exec: func(ctx context.Context, sql string, args ...any) (Cursor, error) {
		return &fakeCursor{
			cols: []ColumnMeta{{Name: "id"}, {Name: "name"}},
			rows: []map[string]any{
				{"id": int64(1), "name": "a"},
				{"id": int64(2), "name": "b"},
			},
		}, nil
	}}
	e := New(backend)

	res, err := e.Execute(context.Background(), "SELECT id, name FROM t", nil, nil, V2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
	if res.Rows[0][0].Int != 1 || res.Rows[0][1].Txt != "a" {
		t.Fatalf("unexpected row 0: %+v", res.Rows[0])
	}
	if res.AffectedRowCount != 0 {
		t.Fatalf("reads should report affected_row_count 0, got %d", res.AffectedRowCount)
	}
}

func TestExecuteWriteReportsAffectedRows(t *testing.T) {
	backend := &fakeBackend{exec: func(ctx context.Context, sql string, args ...any) (Cursor, error) {
		return &fakeCursor{affected: 3, hasAff: true}, nil
	}}
	e := New(backend)

	res, err := e.Execute(context.Background(), "UPDATE t SET x = 1", nil, nil, V2)
	if err != nil {
		t.Fatal(err)
	}
	if res.AffectedRowCount != 3 {
		t.Fatalf("got %d", res.AffectedRowCount)
	}
}

func TestExecuteInsertFallsBackToLastInsertRowIDProbe(t *testing.T) {
	calls := 0
	backend := &fakeBackend{exec: func(ctx context.Context, sql string, args ...any) (Cursor, error) {
		calls++
		if sql == "SELECT last_insert_rowid()" {
			return &fakeCursor{
				cols: []ColumnMeta{{Name: "last_insert_rowid()"}},
				rows: []map[string]any{{"last_insert_rowid()": int64(99)}},
			}, nil
		}
		return &fakeCursor{affected: 1, hasAff: true}, nil
	}}
	e := New(backend)

	res, err := e.Execute(context.Background(), "INSERT INTO t(x) VALUES(1)", nil, nil, V2)
	if err != nil {
		t.Fatal(err)
	}
	if res.LastInsertRowID == nil || *res.LastInsertRowID != 99 {
		t.Fatalf("expected probed last_insert_rowid 99, got %+v", res.LastInsertRowID)
	}
	if calls != 2 {
		t.Fatalf("expected insert + probe, got %d calls", calls)
	}
}

func TestExecuteV3PopulatesRowMetadata(t *testing.T) {
	backend := &fakeBackend{exec: func(ctx context.Context, sql string, args ...any) (Cursor, error) {
		return &fakeCursor{
			cols: []ColumnMeta{{Name: "id"}},
			rows: []map[string]any{{"id": int64(1)}},
		}, nil
	}}
	e := New(backend)

	res, err := e.Execute(context.Background(), "SELECT id FROM t", nil, nil, V3)
	if err != nil {
		t.Fatal(err)
	}
	if res.RowsRead != 1 {
		t.Fatalf("expected rows_read 1, got %d", res.RowsRead)
	}
}

func TestExecuteV1AlsoPopulatesRowMetadata(t *testing.T) {
	backend := &fakeBackend{exec: func(ctx context.Context, sql string, args ...any) (Cursor, error) {
		return &fakeCursor{cols: []ColumnMeta{{Name: "id"}}, rows: []map[string]any{{"id": int64(1)}}}, nil
	}}
	e := New(backend)

	res, err := e.Execute(context.Background(), "SELECT id FROM t", nil, nil, V1)
	if err != nil {
		t.Fatal(err)
	}
	if res.RowsRead != 1 {
		t.Fatalf("v1 responses carry rows_read too, got %+v", res)
	}
}

func TestExecuteV2OmitsRowMetadata(t *testing.T) {
	backend := &fakeBackend{exec: func(ctx context.Context, sql string, args ...any) (Cursor, error) {
		return &fakeCursor{cols: []ColumnMeta{{Name: "id"}}, rows: []map[string]any{{"id": int64(1)}}}, nil
	}}
	e := New(backend)

	res, err := e.Execute(context.Background(), "SELECT id FROM t", nil, nil, V2)
	if err != nil {
		t.Fatal(err)
	}
	if res.RowsRead != 0 || res.QueryDurationMs != 0 {
		t.Fatalf("v2 should not populate the v1/v3 metadata fields, got %+v", res)
	}
}

func TestExecuteBacksendErrorBecomesExecError(t *testing.T) {
	backend := &fakeBackend{exec: func(ctx context.Context, sql string, args ...any) (Cursor, error) {
		return nil, errors.New("disk full")
	}}
	e := New(backend)

	_, err := e.Execute(context.Background(), "SELECT 1", nil, nil, V2)
	if err == nil {
		t.Fatal("expected error")
	}
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecError, got %T", err)
	}
}

func TestExecuteNamedArgsBoundInPlaceholderOrder(t *testing.T) {
	var gotArgs []any
	backend := &fakeBackend{exec: func(ctx context.Context, sql string, args ...any) (Cursor, error) {
		// The INSERT is followed by an argument-less last_insert_rowid()
		// probe; keep the args of the statement itself.
		if sql != "SELECT last_insert_rowid()" {
			gotArgs = args
		}
		return &fakeCursor{affected: 1, hasAff: true}, nil
	}}
	e := New(backend)

	named := map[string]values.Value{
		"name": values.Text("bob"),
		"age":  values.Integer(30),
	}
	_, err := e.Execute(context.Background(), "INSERT INTO t(age, name) VALUES(:age, :name)", nil, named, V2)
	if err != nil {
		t.Fatal(err)
	}
	if len(gotArgs) != 2 || gotArgs[0] != int64(30) || gotArgs[1] != "bob" {
		t.Fatalf("expected args bound in SQL-text placeholder order, got %+v", gotArgs)
	}
}

func TestClassifyFirstToken(t *testing.T) {
	tests := []struct {
		sql   string
		class stmtClass
	}{
		{"  select * from t", classRead},
		{"INSERT INTO t VALUES (1)", classWrite},
		{"begin", classTxnControl},
		{"ROLLBACK", classTxnControl},
		{"PRAGMA user_version", classRead},
	}
	for _, tt := range tests {
		if got := classify(tt.sql); got != tt.class {
			t.Errorf("classify(%q) = %v, want %v", tt.sql, got, tt.class)
		}
	}
}

func TestDescribeUsesOptionalPreparer(t *testing.T) {
	e := New(&preparingBackend{cols: []ColumnMeta{{Name: "id"}}})

	res, err := e.Describe(context.Background(), "SELECT id FROM t")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Cols) != 1 || res.Cols[0].Name != "id" {
		t.Fatalf("got %+v", res.Cols)
	}
	if res.IsReadonly != true {
		t.Fatal("SELECT should be readonly")
	}
}

type preparingBackend struct {
	cols []ColumnMeta
}

func (b *preparingBackend) Exec(ctx context.Context, sql string, args ...any) (Cursor, error) {
	return &fakeCursor{}, nil
}

func (b *preparingBackend) Prepare(ctx context.Context, sql string) ([]ColumnMeta, error) {
	return b.cols, nil
}
