// Package schema holds the system's immutable typed model of a database
// schema: columns, tables, unique indexes, and foreign keys (declared and
// "logical"). Once populated by Introspect, these records never change —
// spec.md §3's lifecycle invariant.
package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind classifies a column's semantic category, independent of the exact
// MySQL type name.
type Kind int

const (
	KindOther Kind = iota
	KindInteger
	KindDecimal
	KindString
	KindDate
	KindDateTime
	KindTimestamp
	KindEnum
	KindSet
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindTimestamp:
		return "timestamp"
	case KindEnum:
		return "enum"
	case KindSet:
		return "set"
	default:
		return "other"
	}
}

// Column is an immutable record of one table column's structural properties.
type Column struct {
	Name        string
	Kind        Kind
	DataType    string // raw INFORMATION_SCHEMA.DATA_TYPE, lowercased
	MaxLength   *int64 // strings only
	Precision   *int64 // decimals only
	Scale       *int64 // decimals only
	Nullable    bool
	Default     *string
	AutoAssign  bool     // AUTO_INCREMENT
	EnumValues  []string // ordered, for Kind == KindEnum || KindSet
}

// IsIntegerType reports whether the column holds a whole-number value.
func (c Column) IsIntegerType() bool { return c.Kind == KindInteger }

// UniqueIndex is a unique index (PRIMARY excluded by construction).
type UniqueIndex struct {
	Name    string
	Columns []string
}

// IsComposite reports whether the index spans 2+ columns.
func (u UniqueIndex) IsComposite() bool { return len(u.Columns) >= 2 }

// ForeignKey is a single-column declared foreign key.
type ForeignKey struct {
	Name             string
	ChildTable       string
	ChildColumn      string
	ParentTable      string
	ParentColumn     string
}

// Predicate is the single-equality condition grammar from spec.md §4.5:
// `<column> = '<literal>'`.
type Predicate struct {
	Column  string
	Literal string
}

var predicateRe = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*'((?:[^']|'')*)'\s*$`)

// ParsePredicate parses the single-equality condition grammar. It returns
// ok == false (never an error) for any other shape, per spec.md §4.5: "any
// other shape makes the predicate false."
func ParsePredicate(condition string) (Predicate, bool) {
	m := predicateRe.FindStringSubmatch(condition)
	if m == nil {
		return Predicate{}, false
	}
	literal := strings.ReplaceAll(m[2], "''", "'")
	return Predicate{Column: m[1], Literal: literal}, true
}

// Render is the inverse of ParsePredicate: render(column, literal) produces
// a condition string such that ParsePredicate(Render(...)) round-trips.
func Render(column, literal string) string {
	return fmt.Sprintf("%s = '%s'", column, strings.ReplaceAll(literal, "'", "''"))
}

// LogicalFK is a configuration-declared FK relationship, optionally
// conditional and optionally composite.
type LogicalFK struct {
	ChildTable        string
	ChildColumns      []string // single-column FKs have len 1
	ParentTable       string
	ParentColumns     []string // same length as ChildColumns
	Condition         *Predicate
	PopulationRate    *float64 // composite only; 0..1
}

// IsComposite reports whether the logical FK spans 2+ column pairs.
func (l LogicalFK) IsComposite() bool { return len(l.ChildColumns) >= 2 }

// Table is an immutable record of one table's structure.
type Table struct {
	Schema        string
	Name          string
	Columns       []Column
	PrimaryKey    []string // possibly empty, possibly composite
	AutoAssignPK  bool     // single-column PK with AUTO_INCREMENT
	Engine        string
	ExplicitPK    bool // set during introspection per spec.md §4.1
	UniqueIndexes []UniqueIndex
}

// QualifiedName returns "schema.table".
func (t *Table) QualifiedName() string { return t.Schema + "." + t.Name }

// Column looks up a column by name, or returns ok == false.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// IsPrimaryKeyColumn reports whether name is one of the table's PK columns.
func (t *Table) IsPrimaryKeyColumn(name string) bool {
	for _, c := range t.PrimaryKey {
		if c == name {
			return true
		}
	}
	return false
}

// Model is the full set of tables involved in a run, plus the declared and
// logical foreign keys that connect them.
type Model struct {
	Schema       string
	Tables       map[string]*Table // keyed by table name
	ForeignKeys  []ForeignKey      // declared FKs of configured child tables (parent may be unconfigured)
	LogicalFKs   []LogicalFK       // logical FKs of configured child tables (parent may be unconfigured)
	StaticSamples map[string][]any // "table.column" -> sampled static-FK values
}

// Table fetches a table by name.
func (m *Model) Table(name string) (*Table, bool) {
	t, ok := m.Tables[name]
	return t, ok
}

func classifyKind(dataType, columnType string) Kind {
	dt := strings.ToLower(dataType)
	switch dt {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint":
		return KindInteger
	case "decimal", "numeric", "float", "double":
		return KindDecimal
	case "varchar", "char", "text", "tinytext", "mediumtext", "longtext":
		return KindString
	case "date":
		return KindDate
	case "datetime":
		return KindDateTime
	case "timestamp":
		return KindTimestamp
	case "enum":
		return KindEnum
	case "set":
		return KindSet
	default:
		return KindOther
	}
}

var enumLiteralRe = regexp.MustCompile(`'((?:[^']|'')*)'`)

// parseEnumValues extracts the ordered literal list from a COLUMN_TYPE string
// like "enum('a','b','c')" or "set('r','w','x')".
func parseEnumValues(columnType string) []string {
	matches := enumLiteralRe.FindAllStringSubmatch(columnType, -1)
	values := make([]string, 0, len(matches))
	for _, m := range matches {
		values = append(values, strings.ReplaceAll(m[1], "''", "'"))
	}
	return values
}
