// Package v1batch implements the v1 "simple batch" handler: an ordered
// list of statements run in autocommit against the shared backend, stopping
// at the first error (spec §4 — deliberately not given the per-request
// isolation the v2/v3 pipeline engine has; the source's all-or-nothing
// batch behavior is preserved here, unlike its named-parameter binding
// bug, which is not).
package v1batch

import (
	"context"

	"github.com/horos/libsqld-gateway/internal/executor"
	"github.com/horos/libsqld-gateway/internal/values"
)

// Statement is one v1 batch entry.
type Statement struct {
	SQL        string
	Positional []values.Value
	Named      map[string]values.Value
}

// Run executes stmts in order, stopping and returning the partial results
// plus the triggering error as soon as one statement fails.
func Run(ctx context.Context, exec *executor.Executor, stmts []Statement) ([]*executor.StmtResult, error) {
	results := make([]*executor.StmtResult, 0, len(stmts))
	for _, stmt := range stmts {
		res, err := exec.Execute(ctx, stmt.SQL, stmt.Positional, stmt.Named, executor.V1)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
