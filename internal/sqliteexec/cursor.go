package sqliteexec

import (
	"database/sql"

	"github.com/horos/libsqld-gateway/internal/executor"
)

// rowCursor wraps a *sql.Rows into a fully materialized executor.Cursor.
// Rows are drained eagerly because the pipeline engine may run a stream's
// next request before this one's response has been serialized, and
// modernc.org/sqlite serializes all statements against a single connection
// (see DB.conn.SetMaxOpenConns(1)).
type rowCursor struct {
	cols []executor.ColumnMeta
	rows []map[string]any
}

func newRowCursor(rows *sql.Rows) (*rowCursor, error) {
	defer rows.Close()

	cols, err := columnMeta(rows)
	if err != nil {
		return nil, err
	}

	c := &rowCursor{cols: cols}
	for rows.Next() {
		scanTargets := make([]any, len(cols))
		scanVals := make([]any, len(cols))
		for i := range scanTargets {
			scanTargets[i] = &scanVals[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col.Name] = scanVals[i]
		}
		c.rows = append(c.rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *rowCursor) Columns() ([]executor.ColumnMeta, error) { return c.cols, nil }

func (c *rowCursor) ToArray() ([]map[string]any, error) { return c.rows, nil }

func (c *rowCursor) RowsAffected() (int64, bool) { return 0, false }

func (c *rowCursor) LastInsertID() (int64, bool) { return 0, false }

// execCursor wraps a sql.Result for non-SELECT statements: no rows, but
// affected-row and last-insert-id metadata.
type execCursor struct {
	res sql.Result
}

func (c *execCursor) Columns() ([]executor.ColumnMeta, error) { return []executor.ColumnMeta{}, nil }

func (c *execCursor) ToArray() ([]map[string]any, error) { return []map[string]any{}, nil }

func (c *execCursor) RowsAffected() (int64, bool) {
	n, err := c.res.RowsAffected()
	if err != nil {
		return 0, false
	}
	return n, true
}

func (c *execCursor) LastInsertID() (int64, bool) {
	id, err := c.res.LastInsertId()
	if err != nil {
		return 0, false
	}
	return id, true
}
