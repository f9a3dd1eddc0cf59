// Package pipeline implements the Pipeline Engine: the per-request
// dispatcher that runs an ordered list of stream requests against one
// checked-out Stream, isolating each request's failure from the rest
// (spec §6) the way the teacher's executeTool ran an ordered list of
// steps, substituting each step's result forward and stopping only the
// current step on error rather than the whole tool invocation.
package pipeline

import (
	"context"
	"fmt"

	"github.com/horos/libsqld-gateway/internal/executor"
	"github.com/horos/libsqld-gateway/internal/stream"
	"github.com/horos/libsqld-gateway/internal/values"
)

// Kind identifies one stream request's operation.
type Kind string

const (
	KindExecute      Kind = "execute"
	KindBatch        Kind = "batch"
	KindSequence     Kind = "sequence"
	KindDescribe     Kind = "describe"
	KindStoreSQL     Kind = "store_sql"
	KindCloseSQL     Kind = "close_sql"
	KindGetAutocommit Kind = "get_autocommit"
	KindClose        Kind = "close"
)

// Stmt is one statement to execute: either inline SQL or a reference to a
// previously stored SQL id (spec §4: store_sql/close_sql).
type Stmt struct {
	SQL        string
	SQLID      *int64
	Positional []values.Value
	Named      map[string]values.Value
}

// Cond is a boolean condition tree evaluated against prior batch step
// outcomes: ok{step}, error{step}, not{cond}.
type Cond struct {
	Type  string // "ok", "error", "not"
	Step  int
	Inner *Cond
}

func (c *Cond) eval(stepOK []bool) bool {
	if c == nil {
		return true
	}
	switch c.Type {
	case "ok":
		return c.Step >= 0 && c.Step < len(stepOK) && stepOK[c.Step]
	case "error":
		return c.Step >= 0 && c.Step < len(stepOK) && !stepOK[c.Step]
	case "not":
		return !c.Inner.eval(stepOK)
	default:
		return false
	}
}

// BatchStep is one conditionally-executed statement within a "batch"
// request.
type BatchStep struct {
	Stmt      Stmt
	Condition *Cond
}

// Request is one element of a pipeline's ordered request list.
type Request struct {
	Kind  Kind
	Stmt  Stmt
	Steps []BatchStep
	SQLID int64 // close_sql
}

// Result is the outcome of one Request: exactly one of Value/Error is set
// (spec §6: isolation means a failed request reports its own error and the
// remaining requests still run).
type Result struct {
	Kind  Kind
	Value any
	Error error
}

// BatchResult is returned for a "batch" request: two slices indexed by
// step. A step that ran successfully has its StmtResult set, a failed step
// has its error message set, and a step skipped by its condition has a nil
// result and an empty message.
type BatchResult struct {
	StepResults []*executor.StmtResult
	StepErrors  []string
}

// Engine dispatches stream requests against a checked-out stream using a
// statement executor.
type Engine struct {
	Executor *executor.Executor
}

func New(e *executor.Executor) *Engine { return &Engine{Executor: e} }

// Run executes reqs in order against s, returning one Result per request.
// A request's own failure never aborts the remaining requests.
func (eng *Engine) Run(ctx context.Context, s *stream.Stream, reqs []Request, version executor.Version) []Result {
	out := make([]Result, len(reqs))
	for i, req := range reqs {
		out[i] = eng.runOne(ctx, s, req, version)
	}
	return out
}

func (eng *Engine) runOne(ctx context.Context, s *stream.Stream, req Request, version executor.Version) Result {
	switch req.Kind {
	case KindExecute:
		sql, err := eng.resolveSQL(s, req.Stmt)
		if err != nil {
			return Result{Kind: req.Kind, Error: err}
		}
		res, err := eng.Executor.Execute(ctx, sql, req.Stmt.Positional, req.Stmt.Named, version)
		if err != nil {
			return Result{Kind: req.Kind, Error: err}
		}
		eng.trackAutocommit(s, sql)
		return Result{Kind: req.Kind, Value: res}

	case KindBatch:
		br := &BatchResult{
			StepResults: make([]*executor.StmtResult, len(req.Steps)),
			StepErrors:  make([]string, len(req.Steps)),
		}
		stepOK := make([]bool, len(req.Steps))
		for i, step := range req.Steps {
			if !step.Condition.eval(stepOK) {
				continue
			}
			sql, err := eng.resolveSQL(s, step.Stmt)
			if err != nil {
				br.StepErrors[i] = err.Error()
				stepOK[i] = false
				continue
			}
			res, err := eng.Executor.Execute(ctx, sql, step.Stmt.Positional, step.Stmt.Named, version)
			if err != nil {
				br.StepErrors[i] = err.Error()
				stepOK[i] = false
				continue
			}
			eng.trackAutocommit(s, sql)
			br.StepResults[i] = res
			stepOK[i] = true
		}
		return Result{Kind: req.Kind, Value: br}

	case KindSequence:
		sql, err := eng.resolveSQL(s, req.Stmt)
		if err != nil {
			return Result{Kind: req.Kind, Error: err}
		}
		scripter, ok := eng.Executor.Backend.(executor.Scripter)
		if !ok {
			return Result{Kind: req.Kind, Error: fmt.Errorf("backend does not support sequence execution")}
		}
		if err := scripter.ExecScript(ctx, sql); err != nil {
			return Result{Kind: req.Kind, Error: &executor.ExecError{Message: err.Error()}}
		}
		return Result{Kind: req.Kind, Value: struct{}{}}

	case KindDescribe:
		sql, err := eng.resolveSQL(s, req.Stmt)
		if err != nil {
			return Result{Kind: req.Kind, Error: err}
		}
		res, err := eng.Executor.Describe(ctx, sql)
		if err != nil {
			return Result{Kind: req.Kind, Error: err}
		}
		return Result{Kind: req.Kind, Value: res}

	case KindStoreSQL:
		if req.Stmt.SQLID == nil {
			return Result{Kind: req.Kind, Error: fmt.Errorf("store_sql requires sql_id")}
		}
		s.StoreSQL(*req.Stmt.SQLID, req.Stmt.SQL)
		return Result{Kind: req.Kind, Value: *req.Stmt.SQLID}

	case KindCloseSQL:
		s.CloseSQL(req.SQLID)
		return Result{Kind: req.Kind, Value: struct{}{}}

	case KindGetAutocommit:
		// The executor intercepts transaction-control statements, so the
		// backend is always in autocommit.
		return Result{Kind: req.Kind, Value: true}

	case KindClose:
		return Result{Kind: req.Kind, Value: struct{}{}}

	default:
		return Result{Kind: req.Kind, Error: fmt.Errorf("unknown request kind %q", req.Kind)}
	}
}

func (eng *Engine) resolveSQL(s *stream.Stream, stmt Stmt) (string, error) {
	if stmt.SQLID != nil {
		sql, ok := s.SQL(*stmt.SQLID)
		if !ok {
			return "", fmt.Errorf("no stored SQL with id %d", *stmt.SQLID)
		}
		return sql, nil
	}
	return stmt.SQL, nil
}

func (eng *Engine) trackAutocommit(s *stream.Stream, sql string) {
	switch classifyTxnControl(sql) {
	case "BEGIN":
		s.SetAutocommit(false)
	case "COMMIT", "ROLLBACK":
		s.SetAutocommit(true)
	}
}
