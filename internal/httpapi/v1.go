package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/horos/libsqld-gateway/internal/executor"
	"github.com/horos/libsqld-gateway/internal/protoerr"
	"github.com/horos/libsqld-gateway/internal/v1batch"
	"github.com/horos/libsqld-gateway/internal/values"
)

// v1StmtBody is the object shape of a v1 statement element: {"q","params"}
// with params either a positional array or a named map.
type v1StmtBody struct {
	Q      string          `json:"q"`
	Params json.RawMessage `json:"params"`
}

type v1RequestBody struct {
	// Each element is either a bare SQL string or a v1StmtBody object
	// (spec §6); decode as raw JSON and branch on the leading token.
	Statements []json.RawMessage `json:"statements"`
}

// handleV1Batch implements the v1 "simple batch" endpoint: an ordered list
// of statements run to the first failure, with no stream/baton bookkeeping
// at all (spec §4: v1 is stateless per request).
func (s *Server) handleV1Batch(w http.ResponseWriter, r *http.Request) {
	var body v1RequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		protoerr.WriteHTTP(w, &protoerr.FramingError{Message: "invalid v1 batch body: " + err.Error()})
		return
	}

	stmts := make([]v1batch.Statement, len(body.Statements))
	for i, raw := range body.Statements {
		stmt, err := decodeV1Statement(raw)
		if err != nil {
			protoerr.WriteHTTP(w, &protoerr.RequestError{Message: err.Error()})
			return
		}
		stmts[i] = stmt
	}

	results, execErr := v1batch.Run(r.Context(), s.Executor, stmts)

	if execErr != nil {
		protoerr.WriteHTTP(w, &protoerr.RequestError{Message: execErr.Error()})
		return
	}

	writeJSON(w, http.StatusOK, encodeV1Results(results))
}

// decodeV1Statement accepts either a bare SQL string or a {"q","params"}
// object, distinguishing by the first non-whitespace byte of the raw JSON.
func decodeV1Statement(raw json.RawMessage) (v1batch.Statement, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var sql string
		if err := json.Unmarshal(raw, &sql); err != nil {
			return v1batch.Statement{}, fmt.Errorf("decode statement: %w", err)
		}
		return v1batch.Statement{SQL: sql}, nil
	}

	var st v1StmtBody
	if err := json.Unmarshal(raw, &st); err != nil {
		return v1batch.Statement{}, fmt.Errorf("decode statement: %w", err)
	}

	stmt := v1batch.Statement{SQL: st.Q}
	if len(st.Params) == 0 {
		return stmt, nil
	}

	trimmedParams := bytes.TrimSpace(st.Params)
	if len(trimmedParams) > 0 && trimmedParams[0] == '{' {
		named, err := values.DecodeNamedArgsV2(st.Params)
		if err != nil {
			return v1batch.Statement{}, fmt.Errorf("decode named params: %w", err)
		}
		stmt.Named = named
		return stmt, nil
	}

	var rawParams []json.RawMessage
	if err := json.Unmarshal(st.Params, &rawParams); err != nil {
		return v1batch.Statement{}, fmt.Errorf("decode params: %w", err)
	}
	positional := make([]values.Value, len(rawParams))
	for j, p := range rawParams {
		v, err := values.DecodeAny(p)
		if err != nil {
			return v1batch.Statement{}, fmt.Errorf("decode param %d: %w", j, err)
		}
		positional[j] = v
	}
	stmt.Positional = positional
	return stmt, nil
}

// encodeV1Results renders the v1 top-level response array, each element
// {"results":{columns,rows,rows_read,rows_written,query_duration_ms}}
// (spec §6). Columns are flat name strings, unlike the {name,decltype}
// objects v2/v3 use.
func encodeV1Results(results []*executor.StmtResult) []map[string]any {
	out := make([]map[string]any, len(results))
	for i, res := range results {
		out[i] = map[string]any{"results": encodeV1StmtResult(res)}
	}
	return out
}

func encodeV1StmtResult(res *executor.StmtResult) map[string]any {
	columns := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		columns[i] = c.Name
	}

	rows := make([][]json.RawMessage, len(res.Rows))
	for i, row := range res.Rows {
		encoded := make([]json.RawMessage, len(row))
		for j, v := range row {
			raw, err := v.EncodeV1()
			if err != nil {
				raw = json.RawMessage("null")
			}
			encoded[j] = raw
		}
		rows[i] = encoded
	}

	return map[string]any{
		"columns":           columns,
		"rows":              rows,
		"rows_read":         res.RowsRead,
		"rows_written":      res.RowsWritten,
		"query_duration_ms": res.QueryDurationMs,
	}
}
