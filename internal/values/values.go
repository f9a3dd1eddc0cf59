// Package values implements the protocol's tagged value encoding: the
// lossless conversion between backend row values and the wire
// representations used by v1, v2, and v3.
package values

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies which variant of the tagged union a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindText
	KindBlob
)

// Value is a tagged union of Null, Integer, Float, Text, and Blob.
type Value struct {
	Kind Kind
	Int  int64
	Flt  float64
	Txt  string
	Blb  []byte
}

func Null() Value               { return Value{Kind: KindNull} }
func Integer(v int64) Value     { return Value{Kind: KindInteger, Int: v} }
func Float(v float64) Value     { return Value{Kind: KindFloat, Flt: v} }
func Text(v string) Value       { return Value{Kind: KindText, Txt: v} }
func Blob(v []byte) Value       { return Value{Kind: KindBlob, Blb: v} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

// wireV2 is the {type,value} shape shared by v2 and v3 encoding.
type wireV2 struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// DecodeAny decodes a wire value that may be a raw JSON scalar (v1 shape)
// or a {type,value} tagged object (v2/v3 shape). Both forms are accepted
// regardless of protocol version, since a permissive decoder never loses
// information and the spec only mandates the *encoder* differ by version.
func DecodeAny(raw json.RawMessage) (Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Value{}, fmt.Errorf("empty value")
	}

	switch trimmed[0] {
	case '{':
		var w wireV2
		if err := json.Unmarshal(raw, &w); err != nil {
			return Value{}, fmt.Errorf("decode tagged value: %w", err)
		}
		return decodeTagged(w)
	case 'n':
		return Null(), nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, fmt.Errorf("decode text value: %w", err)
		}
		return Text(s), nil
	default:
		// Bare JSON number: v1 integers and floats both arrive this way.
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		var num json.Number
		if err := dec.Decode(&num); err != nil {
			return Value{}, fmt.Errorf("decode numeric value: %w", err)
		}
		return decodeNumber(string(num))
	}
}

func decodeTagged(w wireV2) (Value, error) {
	switch w.Type {
	case "null", "":
		return Null(), nil
	case "integer":
		var s string
		if err := json.Unmarshal(w.Value, &s); err == nil {
			return decodeNumber(s)
		}
		var n json.Number
		if err := json.Unmarshal(w.Value, &n); err != nil {
			return Value{}, fmt.Errorf("decode integer value: %w", err)
		}
		return decodeNumber(string(n))
	case "float":
		var f float64
		if err := json.Unmarshal(w.Value, &f); err != nil {
			return Value{}, fmt.Errorf("decode float value: %w", err)
		}
		return Float(f), nil
	case "text":
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return Value{}, fmt.Errorf("decode text value: %w", err)
		}
		return Text(s), nil
	case "blob":
		var b64 string
		if err := json.Unmarshal(w.Value, &b64); err != nil {
			return Value{}, fmt.Errorf("decode blob value: %w", err)
		}
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return Value{}, fmt.Errorf("decode blob base64: %w", err)
		}
		return Blob(raw), nil
	default:
		return Value{}, fmt.Errorf("unknown value type %q", w.Type)
	}
}

func decodeNumber(s string) (Value, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Integer(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, fmt.Errorf("decode number %q: %w", s, err)
	}
	return Float(f), nil
}

// EncodeV1 renders a raw JSON scalar for v1 responses; blobs become
// {"base64": ...} objects since v1 has no tagged-value envelope.
func (v Value) EncodeV1() (json.RawMessage, error) {
	switch v.Kind {
	case KindNull:
		return json.Marshal(nil)
	case KindInteger:
		return json.Marshal(v.Int)
	case KindFloat:
		return json.Marshal(v.Flt)
	case KindText:
		return json.Marshal(v.Txt)
	case KindBlob:
		return json.Marshal(map[string]string{"base64": base64.StdEncoding.EncodeToString(v.Blb)})
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.Kind)
	}
}

// EncodeV2 renders the {type,value} envelope used by both v2 and v3
// responses. Integers are emitted as decimal strings to preserve 64-bit
// magnitude across JSON's float64 number space.
func (v Value) EncodeV2() (json.RawMessage, error) {
	switch v.Kind {
	case KindNull:
		return json.Marshal(wireV2{Type: "null"})
	case KindInteger:
		val, _ := json.Marshal(strconv.FormatInt(v.Int, 10))
		return json.Marshal(wireV2{Type: "integer", Value: val})
	case KindFloat:
		val, _ := json.Marshal(v.Flt)
		return json.Marshal(wireV2{Type: "float", Value: val})
	case KindText:
		val, _ := json.Marshal(v.Txt)
		return json.Marshal(wireV2{Type: "text", Value: val})
	case KindBlob:
		val, _ := json.Marshal(base64.StdEncoding.EncodeToString(v.Blb))
		return json.Marshal(wireV2{Type: "blob", Value: val})
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.Kind)
	}
}

// EncodeV3 is identical to EncodeV2: the spec does not distinguish v2/v3
// value encoding, only result metadata differs between the two.
func (v Value) EncodeV3() (json.RawMessage, error) {
	return v.EncodeV2()
}

// namedPair is the v3 {name,value} shape used for named arguments.
type namedPair struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// DecodeNamedArgsV2 resolves v2's map-shaped named arguments.
func DecodeNamedArgsV2(raw json.RawMessage) (map[string]Value, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode named args: %w", err)
	}
	out := make(map[string]Value, len(m))
	for k, rv := range m {
		v, err := DecodeAny(rv)
		if err != nil {
			return nil, fmt.Errorf("decode named arg %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// DecodeNamedArgsV3 resolves v3's list-of-pairs named arguments into the
// same name→value mapping DecodeNamedArgsV2 produces.
func DecodeNamedArgsV3(raw json.RawMessage) (map[string]Value, error) {
	var pairs []namedPair
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, fmt.Errorf("decode named args: %w", err)
	}
	out := make(map[string]Value, len(pairs))
	for _, p := range pairs {
		v, err := DecodeAny(p.Value)
		if err != nil {
			return nil, fmt.Errorf("decode named arg %q: %w", p.Name, err)
		}
		out[p.Name] = v
	}
	return out, nil
}
