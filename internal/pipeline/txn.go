package pipeline

import "strings"

// classifyTxnControl returns the upper-cased leading keyword of sql if it
// is a transaction-control statement the stream needs to track
// autocommit state for, or "" otherwise.
func classifyTxnControl(sql string) string {
	s := strings.TrimSpace(sql)
	end := strings.IndexFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '('
	})
	if end == -1 {
		end = len(s)
	}
	switch strings.ToUpper(s[:end]) {
	case "BEGIN":
		return "BEGIN"
	case "COMMIT", "END":
		return "COMMIT"
	case "ROLLBACK":
		return "ROLLBACK"
	default:
		return ""
	}
}
