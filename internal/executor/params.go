package executor

import (
	"fmt"

	"github.com/horos/libsqld-gateway/internal/values"
)

// bindArgs resolves a statement's positional and named arguments into the
// ordered []any database/sql expects. Named args are matched against
// :name/@name/$name placeholders found in SQL text order (spec §9 decision
// 1) rather than forwarded by map-iteration order, which the original
// source did and which is unreproducible across Go map implementations.
func bindArgs(sql string, positional []values.Value, named map[string]values.Value) ([]any, error) {
	if len(named) == 0 {
		out := make([]any, len(positional))
		for i, v := range positional {
			out[i] = toDriverValue(v)
		}
		return out, nil
	}

	names := scanNamedPlaceholders(sql)
	if len(names) == 0 {
		return nil, fmt.Errorf("named arguments supplied but no named placeholders found in statement")
	}

	out := make([]any, 0, len(names))
	for _, n := range names {
		v, ok := named[n]
		if !ok {
			return nil, fmt.Errorf("no value supplied for parameter %q", n)
		}
		out = append(out, toDriverValue(v))
	}
	return out, nil
}

// scanNamedPlaceholders returns the name of every :name/@name/$name token in
// sql, in the order they appear, skipping over quoted string/identifier
// literals so punctuation inside them is never mistaken for a placeholder
// sigil.
func scanNamedPlaceholders(sql string) []string {
	var names []string
	runes := []rune(sql)
	i := 0
	for i < len(runes) {
		c := runes[i]
		switch c {
		case '\'', '"', '`':
			quote := c
			i++
			for i < len(runes) && runes[i] != quote {
				i++
			}
			i++
		case ':', '@', '$':
			j := i + 1
			for j < len(runes) && isIdentRune(runes[j]) {
				j++
			}
			if j > i+1 {
				names = append(names, string(runes[i+1:j]))
			}
			i = j
		default:
			i++
		}
	}
	return names
}

func isIdentRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// toDriverValue converts a wire Value into the native Go type
// database/sql/driver expects as a bind argument.
func toDriverValue(v values.Value) any {
	switch v.Kind {
	case values.KindNull:
		return nil
	case values.KindInteger:
		return v.Int
	case values.KindFloat:
		return v.Flt
	case values.KindText:
		return v.Txt
	case values.KindBlob:
		return v.Blb
	default:
		return nil
	}
}
