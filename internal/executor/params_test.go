package executor

import (
	"testing"

	"github.com/horos/libsqld-gateway/internal/values"
)

func TestScanNamedPlaceholdersSkipsQuotedLiterals(t *testing.T) {
	sql := `SELECT * FROM t WHERE name = 'not:aplaceholder' AND id = :id`
	got := scanNamedPlaceholders(sql)
	if len(got) != 1 || got[0] != "id" {
		t.Fatalf("got %v, want [id]", got)
	}
}

func TestScanNamedPlaceholdersAllSigils(t *testing.T) {
	sql := `SELECT :a, @b, $c`
	got := scanNamedPlaceholders(sql)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestBindArgsPositionalPassthrough(t *testing.T) {
	args, err := bindArgs("SELECT ? ", []values.Value{values.Integer(1), values.Text("x")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(args) != 2 || args[0] != int64(1) || args[1] != "x" {
		t.Fatalf("got %+v", args)
	}
}

func TestBindArgsNamedMissingPlaceholderErrors(t *testing.T) {
	_, err := bindArgs("SELECT 1", nil, map[string]values.Value{"a": values.Integer(1)})
	if err == nil {
		t.Fatal("expected error when named args supplied but no placeholders found")
	}
}

func TestBindArgsNamedMissingValueErrors(t *testing.T) {
	_, err := bindArgs("SELECT :a, :b", nil, map[string]values.Value{"a": values.Integer(1)})
	if err == nil {
		t.Fatal("expected error for unbound placeholder :b")
	}
}

func TestToDriverValueNull(t *testing.T) {
	if toDriverValue(values.Null()) != nil {
		t.Fatal("expected nil for Null value")
	}
}
