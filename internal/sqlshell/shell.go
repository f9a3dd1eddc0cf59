// Package sqlshell is an interactive debug SQL REPL against the same
// backend database the gateway serves, adapted from the teacher's
// multi-database shell (internal/sqlshell/shell.go) down to the single
// backend this gateway fronts, and switched from the ncruces/go-sqlite3
// driver to modernc.org/sqlite for consistency with the rest of the
// module.
package sqlshell

import (
	"bufio"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

// Shell is an interactive or single-shot SQL REPL.
type Shell struct {
	dbPath string
	db     *sql.DB
	out    io.Writer
}

// New creates a shell against the backend database at dbPath. An empty
// path opens a transient in-memory database.
func New(dbPath string) *Shell {
	return &Shell{dbPath: dbPath, out: os.Stdout}
}

// Run executes a single query and prints its result.
func (s *Shell) Run(query string) error {
	if err := s.open(); err != nil {
		return err
	}
	defer s.close()
	return s.execAndPrint(query)
}

// Interactive starts a REPL reading from stdin until EOF or .quit.
func (s *Shell) Interactive() error {
	if err := s.open(); err != nil {
		return err
	}
	defer s.close()

	fmt.Fprintln(s.out, "libsqld SQL shell")
	fmt.Fprintln(s.out, "Type .help for commands, .quit to exit")
	fmt.Fprintln(s.out, "")

	reader := bufio.NewReader(os.Stdin)
	var multiline strings.Builder

	for {
		prompt := "sql> "
		if multiline.Len() > 0 {
			prompt = "...> "
		}
		fmt.Fprint(s.out, prompt)

		line, err := reader.ReadString('\n')
		if err == io.EOF {
			fmt.Fprintln(s.out, "\nBye!")
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)

		if strings.HasPrefix(line, ".") && multiline.Len() == 0 {
			if s.handleCommand(line) {
				continue
			}
			return nil
		}

		multiline.WriteString(line)
		multiline.WriteString(" ")

		query := strings.TrimSpace(multiline.String())
		if !strings.HasSuffix(query, ";") {
			continue
		}

		if err := s.execAndPrint(query); err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
		multiline.Reset()
	}
}

func (s *Shell) handleCommand(cmd string) bool {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true
	}

	switch parts[0] {
	case ".quit", ".exit", ".q":
		return false

	case ".help", ".h":
		fmt.Fprintln(s.out, "Commands:")
		fmt.Fprintln(s.out, "  .tables       List tables in the backend database")
		fmt.Fprintln(s.out, "  .schema [t]   Show schema (optionally for table t)")
		fmt.Fprintln(s.out, "  .quit         Exit shell")

	case ".tables":
		s.execAndPrint("SELECT name FROM sqlite_master WHERE type='table' ORDER BY name;")

	case ".schema":
		if len(parts) > 1 {
			s.execAndPrint(fmt.Sprintf("SELECT sql FROM sqlite_master WHERE name=%q;", parts[1]))
		} else {
			s.execAndPrint("SELECT sql FROM sqlite_master WHERE type='table' ORDER BY name;")
		}

	default:
		fmt.Fprintf(s.out, "Unknown command: %s\n", parts[0])
	}

	return true
}

func (s *Shell) open() error {
	dsn := s.dbPath
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", dsn, err)
	}
	db.Exec("PRAGMA journal_mode = WAL")
	db.Exec("PRAGMA busy_timeout = 5000")
	s.db = db
	return nil
}

func (s *Shell) close() {
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
}

func (s *Shell) execAndPrint(query string) error {
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	if len(cols) == 0 {
		fmt.Fprintln(s.out, "OK")
		return nil
	}

	fmt.Fprintln(s.out, strings.Join(cols, " | "))
	fmt.Fprintln(s.out, strings.Repeat("-", len(strings.Join(cols, " | "))))

	values := make([]any, len(cols))
	valuePtrs := make([]any, len(cols))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	count := 0
	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return err
		}

		var row []string
		for _, v := range values {
			if v == nil {
				row = append(row, "NULL")
			} else {
				row = append(row, fmt.Sprintf("%v", v))
			}
		}
		fmt.Fprintln(s.out, strings.Join(row, " | "))
		count++
	}

	fmt.Fprintf(s.out, "(%d rows)\n", count)
	return nil
}
