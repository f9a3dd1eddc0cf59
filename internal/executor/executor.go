// Package executor implements the Statement Executor: the single entry
// point that takes a resolved SQL string, its arguments, and a protocol
// version, and produces a StmtResult with version-specific metadata. It
// also intercepts transaction-control statements, since the backend always
// runs in autocommit (see Backend).
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/horos/libsqld-gateway/internal/values"
)

// Version selects which wire-protocol's result metadata to populate.
type Version int

const (
	V1 Version = iota
	V2
	V3
)

// ColumnMeta describes one result column.
type ColumnMeta struct {
	Name     string
	DeclType string // empty when unknown
}

// Cursor is the result of one Backend.Exec call.
type Cursor interface {
	Columns() ([]ColumnMeta, error)
	ToArray() ([]map[string]any, error)
	RowsAffected() (count int64, reported bool)
	LastInsertID() (id int64, reported bool)
}

// Backend is the external collaborator the protocol server executes
// against: an embedded SQLite-shaped query engine. It is explicitly out of
// scope as a deliverable (spec §1/§6) — this interface is the seam,
// implemented by internal/sqliteexec for running and testing the gateway.
type Backend interface {
	Exec(ctx context.Context, sql string, args ...any) (Cursor, error)
}

// Preparer is an optional Backend capability used by Describe to recover
// column metadata without executing a statement's side effects.
type Preparer interface {
	Prepare(ctx context.Context, sql string) ([]ColumnMeta, error)
}

// Scripter is an optional Backend capability used by the pipeline engine's
// "sequence" request to run an opaque multi-statement script.
type Scripter interface {
	ExecScript(ctx context.Context, sql string) error
}

// StmtResult is the structured output of executing one statement.
type StmtResult struct {
	Columns         []ColumnMeta
	Rows            [][]values.Value
	AffectedRowCount int64
	LastInsertRowID  *int64

	// Populated for v1 and v3; v2 leaves these at zero.
	RowsRead        int64
	RowsWritten     int64
	QueryDurationMs float64
}

// DescribeResult is the output of a "describe" stream request.
type DescribeResult struct {
	Params     []string
	Cols       []ColumnMeta
	IsExplain  bool
	IsReadonly bool
}

// ExecError wraps any failure reported by the backend; the executor never
// returns partial rows alongside an ExecError.
type ExecError struct {
	Message string
}

func (e *ExecError) Error() string { return e.Message }

// Executor wraps a Backend and applies the statement classification,
// parameter binding, and metadata rules in spec §4.2.
type Executor struct {
	Backend Backend
}

func New(b Backend) *Executor {
	return &Executor{Backend: b}
}

type stmtClass int

const (
	classRead stmtClass = iota
	classWrite
	classTxnControl
)

var txnControlPrefixes = []string{
	"BEGIN", "COMMIT", "ROLLBACK", "SAVEPOINT", "RELEASE",
}

var writePrefixes = []string{
	"INSERT", "UPDATE", "DELETE", "CREATE", "DROP", "ALTER",
}

func classify(sql string) stmtClass {
	token := firstToken(sql)
	for _, p := range txnControlPrefixes {
		if token == p {
			return classTxnControl
		}
	}
	for _, p := range writePrefixes {
		if token == p {
			return classWrite
		}
	}
	return classRead
}

// firstToken returns the first whitespace-delimited, uppercased token of a
// SQL statement, skipping leading whitespace. This is a heuristic prefix
// scan (spec §9), not a SQL parser.
func firstToken(sql string) string {
	s := strings.TrimSpace(sql)
	end := strings.IndexFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '('
	})
	if end == -1 {
		end = len(s)
	}
	return strings.ToUpper(s[:end])
}

// Execute runs one statement and returns its StmtResult.
func (e *Executor) Execute(ctx context.Context, sql string, positional []values.Value, named map[string]values.Value, version Version) (*StmtResult, error) {
	class := classify(sql)

	if class == classTxnControl {
		start := time.Now()
		res := &StmtResult{Columns: []ColumnMeta{}, Rows: [][]values.Value{}}
		if version != V2 {
			res.QueryDurationMs = msSince(start)
		}
		return res, nil
	}

	args, err := bindArgs(sql, positional, named)
	if err != nil {
		return nil, &ExecError{Message: err.Error()}
	}

	start := time.Now()
	cur, err := e.Backend.Exec(ctx, sql, args...)
	elapsed := msSince(start)
	if err != nil {
		return nil, &ExecError{Message: err.Error()}
	}

	cols, err := cur.Columns()
	if err != nil {
		return nil, &ExecError{Message: err.Error()}
	}
	raw, err := cur.ToArray()
	if err != nil {
		return nil, &ExecError{Message: err.Error()}
	}

	res := &StmtResult{Columns: cols, Rows: make([][]values.Value, 0, len(raw))}
	for _, rowMap := range raw {
		row := make([]values.Value, len(cols))
		for i, c := range cols {
			row[i] = nativeToValue(rowMap[c.Name])
		}
		res.Rows = append(res.Rows, row)
	}

	switch class {
	case classWrite:
		if n, ok := cur.RowsAffected(); ok {
			res.AffectedRowCount = n
		} else {
			res.AffectedRowCount = 1
		}
		if id, ok := cur.LastInsertID(); ok {
			res.LastInsertRowID = &id
		} else if firstToken(sql) == "INSERT" {
			if probeCur, perr := e.Backend.Exec(ctx, "SELECT last_insert_rowid()"); perr == nil {
				if rows, aerr := probeCur.ToArray(); aerr == nil && len(rows) == 1 {
					if pcols, cerr := probeCur.Columns(); cerr == nil && len(pcols) == 1 {
						if v, ok := rows[0][pcols[0].Name].(int64); ok {
							res.LastInsertRowID = &v
						}
					}
				}
			}
		}
		if version != V2 {
			res.RowsWritten = 1
		}
	case classRead:
		res.AffectedRowCount = 0
		if version != V2 {
			res.RowsRead = int64(len(res.Rows))
		}
	}

	if version != V2 {
		res.QueryDurationMs = elapsed
	}

	return res, nil
}

// Describe resolves metadata for a statement without fully executing it.
func (e *Executor) Describe(ctx context.Context, sql string) (*DescribeResult, error) {
	res := &DescribeResult{
		// Params is always empty: database/sql offers no portable way to
		// ask for a statement's parameter count.
		Params:     []string{},
		Cols:       []ColumnMeta{},
		IsExplain:  strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "EXPLAIN"),
		IsReadonly: classify(sql) != classWrite,
	}
	if p, ok := e.Backend.(Preparer); ok {
		cols, err := p.Prepare(ctx, sql)
		if err != nil {
			return nil, &ExecError{Message: err.Error()}
		}
		res.Cols = cols
	}
	return res, nil
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

func nativeToValue(v any) values.Value {
	switch t := v.(type) {
	case nil:
		return values.Null()
	case int64:
		return values.Integer(t)
	case int:
		return values.Integer(int64(t))
	case float64:
		return values.Float(t)
	case string:
		return values.Text(t)
	case []byte:
		return values.Blob(t)
	case bool:
		if t {
			return values.Integer(1)
		}
		return values.Integer(0)
	default:
		return values.Text(fmt.Sprintf("%v", t))
	}
}
