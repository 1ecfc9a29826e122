// Package catalog defines the read-only interface the schema introspector
// consumes to learn a live MySQL schema's structure, and a MySQL-backed
// implementation of it. The interface keeps the core pipeline (schema,
// depgraph, constraints, values, fkresolve) independent of any live
// connection — spec.md §6 treats "the catalog query layer against the live
// database" as an external collaborator, specified only at its interface.
package catalog

import "context"

// ColumnInfo is the raw per-column metadata the catalog can report, before
// the schema package turns it into its typed model.
type ColumnInfo struct {
	Name           string
	DataType       string // e.g. "varchar", "int", "enum" (INFORMATION_SCHEMA.DATA_TYPE)
	ColumnType     string // e.g. "enum('a','b')", "int unsigned" (COLUMN_TYPE)
	IsNullable     bool
	ColumnKey      string // "PRI", "UNI", "MUL", ""
	Extra          string // e.g. "auto_increment"
	MaxLength      *int64
	Precision      *int64
	Scale          *int64
	Default        *string
}

// UniqueIndexInfo is a single unique index (excluding PRIMARY), with its
// columns in declared order.
type UniqueIndexInfo struct {
	Name    string
	Columns []string
}

// ForeignKeyInfo is a single declared foreign key column reference.
type ForeignKeyInfo struct {
	Name             string
	Column           string
	ReferencedTable  string
	ReferencedColumn string
}

// EngineInfo carries the table's storage engine and, for auto_increment
// tables, the catalog's next assignable value.
type EngineInfo struct {
	Engine        string
	NextAutoValue int64 // 0 if the table has no AUTO_INCREMENT column
}

// Catalog is the read-only surface the introspector needs from a live (or
// faked) MySQL catalog.
type Catalog interface {
	// ListTables returns all base table names in schema.
	ListTables(ctx context.Context, schema string) ([]string, error)

	// Columns returns schema.table's columns in ordinal position order.
	Columns(ctx context.Context, schema, table string) ([]ColumnInfo, error)

	// PrimaryKey returns schema.table's primary-key columns in ordinal order
	// (empty if the table has no primary key).
	PrimaryKey(ctx context.Context, schema, table string) ([]string, error)

	// Engine returns schema.table's storage engine and next auto-increment value.
	Engine(ctx context.Context, schema, table string) (EngineInfo, error)

	// UniqueIndexes returns schema.table's unique indexes, excluding PRIMARY.
	UniqueIndexes(ctx context.Context, schema, table string) ([]UniqueIndexInfo, error)

	// ForeignKeys returns schema.table's declared foreign keys.
	ForeignKeys(ctx context.Context, schema, table string) ([]ForeignKeyInfo, error)

	// CurrentMaxPK returns the current MAX(column) for an integer PK column,
	// or 0 if the table is empty.
	CurrentMaxPK(ctx context.Context, schema, table, column string) (int64, error)

	// SampleDistinct returns up to limit distinct non-null values of
	// schema.table.column. For limit < 500 the catalog is free to use
	// random ordering (ORDER BY RAND()); larger samples take whatever
	// distinct values the engine returns first, to keep it cheap.
	SampleDistinct(ctx context.Context, schema, table, column string, limit int) ([]any, error)
}
