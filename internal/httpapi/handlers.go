package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/horos/libsqld-gateway/internal/executor"
	"github.com/horos/libsqld-gateway/internal/pipeline"
	"github.com/horos/libsqld-gateway/internal/protoerr"
	"github.com/horos/libsqld-gateway/internal/stream"
	"github.com/horos/libsqld-gateway/internal/values"
)

// handleProbe answers the capability-probe GET requests v2/v3 clients make
// before issuing a pipeline request.
func (s *Server) handleProbe(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"version": version})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	if !s.StartedAt.IsZero() {
		body["uptime"] = humanize.RelTime(s.StartedAt, time.Now(), "", "")
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": gatewayVersion})
}

func writeRouteError(w http.ResponseWriter, r *http.Request) {
	protoerr.WriteHTTP(w, &protoerr.RouteError{Message: fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// wireRequest is one entry of a pipeline request's "requests" array.
type wireRequest struct {
	Type  string     `json:"type"`
	Stmt  *wireStmt  `json:"stmt,omitempty"`
	Batch *wireBatch `json:"batch,omitempty"`
	SQLID *int64     `json:"sql_id,omitempty"`
	SQL   *string    `json:"sql,omitempty"`
}

// wireBatch is the nested object carrying a "batch" request's ordered
// steps, e.g. {"type":"batch","batch":{"steps":[...]}}.
type wireBatch struct {
	Steps []wireBatchStep `json:"steps"`
}

type wireStmt struct {
	SQL   string            `json:"sql,omitempty"`
	SQLID *int64            `json:"sql_id,omitempty"`
	Args  []json.RawMessage `json:"args,omitempty"`
	Named json.RawMessage   `json:"named_args,omitempty"`
}

type wireCond struct {
	Type  string    `json:"type"`
	Step  int       `json:"step"`
	Inner *wireCond `json:"cond,omitempty"`
}

type wireBatchStep struct {
	Stmt wireStmt  `json:"stmt"`
	Cond *wireCond `json:"condition,omitempty"`
}

type pipelineRequestBody struct {
	Baton    string        `json:"baton"`
	Requests []wireRequest `json:"requests"`
}

func (s *Server) handlePipeline(version string) http.HandlerFunc {
	ver := executor.V2
	if version == "v3" {
		ver = executor.V3
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var body pipelineRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			protoerr.WriteHTTP(w, &protoerr.FramingError{Message: "invalid pipeline request body: " + err.Error()})
			return
		}
		if s.MaxPipelineRequests > 0 && len(body.Requests) > s.MaxPipelineRequests {
			protoerr.WriteHTTP(w, &protoerr.RequestError{Message: "too many requests in one pipeline"})
			return
		}

		var st *stream.Stream
		var baton string
		var err error
		if body.Baton == "" {
			baton, st, err = s.Streams.Open()
		} else {
			baton, st, err = s.Streams.Checkout(body.Baton)
		}
		if err != nil {
			protoerr.WriteHTTP(w, &protoerr.StreamError{Message: err.Error()})
			return
		}

		reqs := make([]pipeline.Request, len(body.Requests))
		closeStream := false
		for i, wr := range body.Requests {
			req, closing, perr := decodeRequest(wr, version)
			if perr != nil {
				protoerr.WriteHTTP(w, perr)
				return
			}
			reqs[i] = req
			if closing {
				closeStream = true
			}
		}

		results := s.Engine.Run(r.Context(), st, reqs, ver)

		if closeStream {
			s.Streams.Close(baton)
			baton = ""
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"baton":   nullableString(baton),
			"results": encodeResults(results, version),
		})
	}
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func decodeRequest(wr wireRequest, version string) (pipeline.Request, bool, error) {
	switch wr.Type {
	case "execute":
		stmt, err := decodeStmt(wr.Stmt)
		if err != nil {
			return pipeline.Request{}, false, &protoerr.RequestError{Message: err.Error()}
		}
		return pipeline.Request{Kind: pipeline.KindExecute, Stmt: stmt}, false, nil

	case "batch":
		var rawSteps []wireBatchStep
		if wr.Batch != nil {
			rawSteps = wr.Batch.Steps
		}
		steps := make([]pipeline.BatchStep, len(rawSteps))
		for i, bs := range rawSteps {
			stmt, err := decodeStmt(&bs.Stmt)
			if err != nil {
				return pipeline.Request{}, false, &protoerr.RequestError{Message: err.Error()}
			}
			steps[i] = pipeline.BatchStep{Stmt: stmt, Condition: decodeCond(bs.Cond)}
		}
		return pipeline.Request{Kind: pipeline.KindBatch, Steps: steps}, false, nil

	case "sequence":
		stmt, err := decodeStmt(wr.Stmt)
		if err != nil {
			return pipeline.Request{}, false, &protoerr.RequestError{Message: err.Error()}
		}
		return pipeline.Request{Kind: pipeline.KindSequence, Stmt: stmt}, false, nil

	case "describe":
		stmt, err := decodeStmt(wr.Stmt)
		if err != nil {
			return pipeline.Request{}, false, &protoerr.RequestError{Message: err.Error()}
		}
		return pipeline.Request{Kind: pipeline.KindDescribe, Stmt: stmt}, false, nil

	case "store_sql":
		if wr.SQL == nil {
			return pipeline.Request{}, false, &protoerr.RequestError{Message: "store_sql requires sql"}
		}
		if wr.SQLID == nil {
			return pipeline.Request{}, false, &protoerr.RequestError{Message: "store_sql requires sql_id"}
		}
		return pipeline.Request{Kind: pipeline.KindStoreSQL, Stmt: pipeline.Stmt{SQL: *wr.SQL, SQLID: wr.SQLID}}, false, nil

	case "close_sql":
		if wr.SQLID == nil {
			return pipeline.Request{}, false, &protoerr.RequestError{Message: "close_sql requires sql_id"}
		}
		return pipeline.Request{Kind: pipeline.KindCloseSQL, SQLID: *wr.SQLID}, false, nil

	case "get_autocommit":
		return pipeline.Request{Kind: pipeline.KindGetAutocommit}, false, nil

	case "close":
		return pipeline.Request{Kind: pipeline.KindClose}, true, nil

	default:
		return pipeline.Request{}, false, &protoerr.RequestError{Message: "unknown request type " + wr.Type}
	}
}

func decodeCond(c *wireCond) *pipeline.Cond {
	if c == nil {
		return nil
	}
	return &pipeline.Cond{Type: c.Type, Step: c.Step, Inner: decodeCond(c.Inner)}
}

func decodeStmt(ws *wireStmt) (pipeline.Stmt, error) {
	if ws == nil {
		return pipeline.Stmt{}, fmt.Errorf("missing stmt")
	}
	stmt := pipeline.Stmt{SQL: ws.SQL, SQLID: ws.SQLID}

	if len(ws.Args) > 0 {
		stmt.Positional = make([]values.Value, len(ws.Args))
		for i, raw := range ws.Args {
			v, err := values.DecodeAny(raw)
			if err != nil {
				return pipeline.Stmt{}, fmt.Errorf("decode arg %d: %w", i, err)
			}
			stmt.Positional[i] = v
		}
	}

	if len(ws.Named) > 0 {
		named, err := values.DecodeNamedArgsV3(ws.Named)
		if err != nil {
			named, err = values.DecodeNamedArgsV2(ws.Named)
			if err != nil {
				return pipeline.Stmt{}, fmt.Errorf("decode named args: %w", err)
			}
		}
		stmt.Named = named
	}

	return stmt, nil
}

// encodeResults renders the pipeline response's "results" array. Spec §6:
// a successful request's slot is always the two-level envelope
// {"type":"ok","response":StreamResponse}; StreamResponse carries its own
// "type" naming the request kind. Only a failed request skips the "ok"
// wrapper and uses {"type":"error","error":{message}} directly.
func encodeResults(results []pipeline.Result, version string) []map[string]any {
	out := make([]map[string]any, len(results))
	for i, r := range results {
		if r.Error != nil {
			out[i] = map[string]any{"type": "error", "error": map[string]string{"message": r.Error.Error()}}
			continue
		}
		out[i] = map[string]any{"type": "ok", "response": encodeStreamResponse(r.Kind, r.Value, version)}
	}
	return out
}

// encodeStreamResponse renders the inner StreamResponse object nested
// under a successful result's "response" field.
func encodeStreamResponse(kind pipeline.Kind, v any, version string) map[string]any {
	switch val := v.(type) {
	case *executor.StmtResult:
		return map[string]any{"type": string(kind), "result": encodeStmtResult(val, version)}
	case *pipeline.BatchResult:
		results, errs := encodeBatchResult(val, version)
		return map[string]any{"type": string(kind), "step_results": results, "step_errors": errs}
	case *executor.DescribeResult:
		return map[string]any{
			"type":        string(kind),
			"params":      val.Params,
			"is_explain":  val.IsExplain,
			"is_readonly": val.IsReadonly,
			"cols":        encodeCols(val.Cols),
		}
	case int64:
		return map[string]any{"type": string(kind), "sql_id": val}
	case bool:
		return map[string]any{"type": string(kind), "is_autocommit": val}
	default:
		return map[string]any{"type": string(kind)}
	}
}

// encodeBatchResult renders a batch's per-step outcome as the two parallel
// arrays spec §4.4 requires: step_results (StmtResult or null for a
// skipped/failed step) and step_errors (the error message or null).
func encodeBatchResult(br *pipeline.BatchResult, version string) ([]any, []any) {
	results := make([]any, len(br.StepResults))
	errs := make([]any, len(br.StepErrors))
	for i, sr := range br.StepResults {
		if sr != nil {
			results[i] = encodeStmtResult(sr, version)
		}
		if br.StepErrors[i] != "" {
			errs[i] = br.StepErrors[i]
		}
	}
	return results, errs
}

func encodeStmtResult(res *executor.StmtResult, version string) map[string]any {
	cols := encodeCols(res.Columns)
	rows := make([][]json.RawMessage, len(res.Rows))
	for i, row := range res.Rows {
		encoded := make([]json.RawMessage, len(row))
		for j, v := range row {
			var raw json.RawMessage
			var err error
			if version == "v3" {
				raw, err = v.EncodeV3()
			} else {
				raw, err = v.EncodeV2()
			}
			if err != nil {
				raw = json.RawMessage("null")
			}
			encoded[j] = raw
		}
		rows[i] = encoded
	}

	body := map[string]any{
		"cols":               cols,
		"rows":               rows,
		"affected_row_count": res.AffectedRowCount,
		"last_insert_rowid":  res.LastInsertRowID,
	}
	if version == "v3" {
		body["rows_read"] = res.RowsRead
		body["rows_written"] = res.RowsWritten
		body["query_duration_ms"] = res.QueryDurationMs
	}
	return body
}

func encodeCols(cols []executor.ColumnMeta) []map[string]string {
	out := make([]map[string]string, len(cols))
	for i, c := range cols {
		out[i] = map[string]string{"name": c.Name, "decltype": c.DeclType}
	}
	return out
}
