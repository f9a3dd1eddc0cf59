package values

import (
	"encoding/json"
	"testing"
)

func TestDecodeAnyV1Scalars(t *testing.T) {
	tests := []struct {
		raw  string
		kind Kind
	}{
		{"null", KindNull},
		{"42", KindInteger},
		{"-17", KindInteger},
		{"3.5", KindFloat},
		{`"hello"`, KindText},
	}
	for _, tt := range tests {
		v, err := DecodeAny(json.RawMessage(tt.raw))
		if err != nil {
			t.Fatalf("DecodeAny(%q): %v", tt.raw, err)
		}
		if v.Kind != tt.kind {
			t.Errorf("DecodeAny(%q).Kind = %v, want %v", tt.raw, v.Kind, tt.kind)
		}
	}
}

func TestDecodeAnyTaggedEnvelope(t *testing.T) {
	tests := []struct {
		raw  string
		kind Kind
	}{
		{`{"type":"null"}`, KindNull},
		{`{"type":"integer","value":"9007199254740993"}`, KindInteger},
		{`{"type":"float","value":1.5}`, KindFloat},
		{`{"type":"text","value":"hi"}`, KindText},
		{`{"type":"blob","value":"aGVsbG8="}`, KindBlob},
	}
	for _, tt := range tests {
		v, err := DecodeAny(json.RawMessage(tt.raw))
		if err != nil {
			t.Fatalf("DecodeAny(%q): %v", tt.raw, err)
		}
		if v.Kind != tt.kind {
			t.Errorf("DecodeAny(%q).Kind = %v, want %v", tt.raw, v.Kind, tt.kind)
		}
	}
}

func TestDecodeAnyLargeIntegerPreservesMagnitude(t *testing.T) {
	// Larger than float64 can exactly represent; must survive the
	// decimal-string round trip intact.
	v, err := DecodeAny(json.RawMessage(`{"type":"integer","value":"9223372036854775807"}`))
	if err != nil {
		t.Fatal(err)
	}
	if v.Int != 9223372036854775807 {
		t.Fatalf("got %d", v.Int)
	}
}

func TestDecodeAnyUnknownTypeErrors(t *testing.T) {
	if _, err := DecodeAny(json.RawMessage(`{"type":"weird"}`)); err == nil {
		t.Fatal("expected error for unknown tagged type")
	}
}

func TestDecodeAnyEmptyErrors(t *testing.T) {
	if _, err := DecodeAny(json.RawMessage(``)); err == nil {
		t.Fatal("expected error for empty value")
	}
}

func TestEncodeV1BlobUsesBase64Object(t *testing.T) {
	v := Blob([]byte("hi"))
	raw, err := v.EncodeV1()
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	if m["base64"] != "aGk=" {
		t.Fatalf("got %q", m["base64"])
	}
}

func TestEncodeV1ScalarsAreBare(t *testing.T) {
	raw, err := Integer(7).EncodeV1()
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "7" {
		t.Fatalf("got %s, want bare scalar 7", raw)
	}
}

func TestEncodeV2IntegerIsDecimalString(t *testing.T) {
	raw, err := Integer(9223372036854775807).EncodeV2()
	if err != nil {
		t.Fatal(err)
	}
	var w struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		t.Fatal(err)
	}
	if w.Type != "integer" || w.Value != "9223372036854775807" {
		t.Fatalf("got %+v", w)
	}
}

func TestEncodeV3MatchesV2(t *testing.T) {
	v := Text("hi")
	a, _ := v.EncodeV2()
	b, _ := v.EncodeV3()
	if string(a) != string(b) {
		t.Fatalf("v2/v3 text encoding diverged: %s vs %s", a, b)
	}
}

func TestRoundTripIntegerThroughV2Envelope(t *testing.T) {
	orig := Integer(-42)
	raw, err := orig.EncodeV2()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeAny(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != KindInteger || got.Int != -42 {
		t.Fatalf("got %+v", got)
	}
}

func TestDecodeNamedArgsV2(t *testing.T) {
	raw := json.RawMessage(`{"a":1,"b":"x"}`)
	named, err := DecodeNamedArgsV2(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(named) != 2 || named["a"].Int != 1 || named["b"].Txt != "x" {
		t.Fatalf("got %+v", named)
	}
}

func TestDecodeNamedArgsV3(t *testing.T) {
	raw := json.RawMessage(`[{"name":"a","value":1},{"name":"b","value":"x"}]`)
	named, err := DecodeNamedArgsV3(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(named) != 2 || named["a"].Int != 1 || named["b"].Txt != "x" {
		t.Fatalf("got %+v", named)
	}
}

func TestIsNull(t *testing.T) {
	if !Null().IsNull() {
		t.Fatal("Null() should report IsNull")
	}
	if Integer(0).IsNull() {
		t.Fatal("Integer(0) should not report IsNull")
	}
}
