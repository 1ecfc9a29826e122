// Package emit renders generated rows as ordered SQL text: multi-row INSERT
// statements in dependency (parent-first) order, and DELETE statements in
// the reverse order, per spec.md §4.6. Nothing here ever opens a database
// connection — the SQL is text, not executed. Grounded on the teacher's
// byte-buffer value-formatting idiom in internal/seeder/loaddata.go, adapted
// from LOAD DATA's tab/backslash escaping to SQL single-quote escaping.
package emit

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ccard-fpt/generate-synthetic-data/internal/values"
)

// Emitter renders a table's generated rows as SQL statements.
type Emitter interface {
	// EmitInserts writes one or more multi-row INSERT statements covering
	// all of rows, at most maxRowsPerStatement rows per statement.
	EmitInserts(w io.Writer, schema, table string, columns []string, rows []values.Row, maxRowsPerStatement int) error

	// EmitDeletes writes DELETE statements removing rows by their primary
	// key values, in the order given (callers pass reverse insertion order).
	EmitDeletes(w io.Writer, schema, table string, pkColumns []string, pkValues [][]values.Value) error
}

// SQLEmitter is the concrete Emitter: backtick-quoted identifiers,
// single-quote-doubled string literals, bare NULL/numeric literals, and
// passthrough of "@name" user-variable references for LAST_INSERT_ID()
// interleaving (spec.md §4.6).
type SQLEmitter struct{}

func NewSQLEmitter() *SQLEmitter { return &SQLEmitter{} }

func (e *SQLEmitter) EmitInserts(w io.Writer, schemaName, table string, columns []string, rows []values.Row, maxRowsPerStatement int) error {
	if len(rows) == 0 {
		return nil
	}
	if maxRowsPerStatement <= 0 {
		maxRowsPerStatement = 1000
	}

	bw := bufio.NewWriter(w)
	prefix := insertPrefix(schemaName, table, columns)

	for start := 0; start < len(rows); start += maxRowsPerStatement {
		end := start + maxRowsPerStatement
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := bw.WriteString(prefix); err != nil {
			return err
		}
		for i, row := range rows[start:end] {
			if i > 0 {
				if _, err := bw.WriteString(",\n"); err != nil {
					return err
				}
			}
			if err := writeValueTuple(bw, row); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString(";\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (e *SQLEmitter) EmitDeletes(w io.Writer, schemaName, table string, pkColumns []string, pkValues [][]values.Value) error {
	if len(pkValues) == 0 {
		return nil
	}
	bw := bufio.NewWriter(w)
	qualified := quoteIdent(schemaName) + "." + quoteIdent(table)

	for _, tuple := range pkValues {
		if _, err := fmt.Fprintf(bw, "DELETE FROM %s WHERE ", qualified); err != nil {
			return err
		}
		for i, col := range pkColumns {
			if i > 0 {
				if _, err := bw.WriteString(" AND "); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(bw, "%s = ", quoteIdent(col)); err != nil {
				return err
			}
			if err := writeLiteral(bw, tuple[i]); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString(";\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func insertPrefix(schemaName, table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	return fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES\n",
		quoteIdent(schemaName), quoteIdent(table), strings.Join(quoted, ", "))
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func writeValueTuple(w *bufio.Writer, row values.Row) error {
	if err := w.WriteByte('('); err != nil {
		return err
	}
	for i, v := range row {
		if i > 0 {
			if _, err := w.WriteString(", "); err != nil {
				return err
			}
		}
		if err := writeLiteral(w, v); err != nil {
			return err
		}
	}
	return w.WriteByte(')')
}

// writeLiteral renders one Value as the SQL literal spec.md §4.6 requires:
// NULL bare, numbers bare, everything else single-quoted with doubled
// quotes, and "@name" user-variable references passed through unquoted.
func writeLiteral(w *bufio.Writer, v values.Value) error {
	switch v.Tag() {
	case values.TagNull:
		_, err := w.WriteString("NULL")
		return err
	case values.TagInt:
		_, err := w.WriteString(strconv.FormatInt(v.Int(), 10))
		return err
	case values.TagFloat:
		_, err := w.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, 64))
		return err
	case values.TagDecimal:
		_, err := w.WriteString(v.Str())
		return err
	case values.TagUserVariable:
		_, err := w.WriteString(v.Str())
		return err
	default:
		return writeQuotedString(w, v.Str())
	}
}

func writeQuotedString(w *bufio.Writer, s string) error {
	if name, ok := values.IsUserVariableRef(s); ok {
		_, err := w.WriteString(name)
		return err
	}
	if err := w.WriteByte('\''); err != nil {
		return err
	}
	for _, r := range s {
		if r == '\'' {
			if _, err := w.WriteString("''"); err != nil {
				return err
			}
			continue
		}
		if _, err := w.WriteRune(r); err != nil {
			return err
		}
	}
	return w.WriteByte('\'')
}
