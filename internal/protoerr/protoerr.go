// Package protoerr defines the gateway's typed error hierarchy and how
// each type maps onto an HTTP status and a JSON body, mirroring the
// teacher's RPCError{Code,Message,Data} shape adapted from JSON-RPC codes
// onto the protocol's framing/stream/request/route error classes (spec §7).
package protoerr

import (
	"encoding/json"
	"net/http"
)

// FramingError is returned when the HTTP request body itself cannot be
// parsed as the expected envelope (malformed JSON, wrong content-type).
type FramingError struct {
	Message string
}

func (e *FramingError) Error() string { return e.Message }

// StreamError is returned when a baton cannot be resolved to a live
// stream: unknown, already closed, or idle-evicted.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string { return e.Message }

// RequestError is returned when one pipeline request within an otherwise
// valid envelope is malformed (unknown kind, missing fields).
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string { return e.Message }

// RouteError is returned for unknown HTTP method/path combinations.
type RouteError struct {
	Message string
}

func (e *RouteError) Error() string { return e.Message }

// InternalError wraps any failure the gateway cannot attribute to client
// input.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string { return e.Message }

type body struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// WriteHTTP renders err as the protocol's JSON error envelope with the
// status code appropriate to its type.
func WriteHTTP(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"

	switch err.(type) {
	case *FramingError:
		status, code = http.StatusBadRequest, "FRAMING_ERROR"
	case *StreamError:
		status, code = http.StatusBadRequest, "STREAM_ERROR"
	case *RequestError:
		status, code = http.StatusBadRequest, "REQUEST_ERROR"
	case *RouteError:
		status, code = http.StatusNotFound, "ROUTE_ERROR"
	case *InternalError:
		status, code = http.StatusInternalServerError, "INTERNAL_ERROR"
	}

	var b body
	b.Error.Message = err.Error()
	b.Error.Code = code

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(b)
}
