// Package config loads the JSON driving configuration described in
// spec.md §6: which tables to populate, how many rows, per-column value
// domains, static read-only value sources, and logical foreign keys.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// PopulateColumn is one entry of a table's populate_columns list. Either a
// bare column name (Column set, everything else zero) or an object with a
// closed set of keys.
type PopulateColumn struct {
	Column string   `json:"column"`
	Values []any    `json:"values,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Format string   `json:"format,omitempty"`
}

// UnmarshalJSON accepts either a bare JSON string (the column name) or an
// object carrying the extended keys, per spec.md §3's configuration entry.
func (p *PopulateColumn) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		p.Column = name
		return nil
	}

	type alias PopulateColumn
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("populate_columns entry: %w", err)
	}
	if a.Column == "" {
		return fmt.Errorf("populate_columns entry missing \"column\"")
	}
	*p = PopulateColumn(a)
	return nil
}

// StaticFK names a read-only production table a column's values are sampled
// from. No rows are generated for the static source.
type StaticFK struct {
	Column       string `json:"column"`
	StaticSchema string `json:"static_schema"`
	StaticTable  string `json:"static_table"`
	StaticColumn string `json:"static_column"`
}

// LogicalFK is a configuration-declared FK relationship, single-column or
// composite, optionally conditional.
type LogicalFK struct {
	// Single-column form.
	Column           string `json:"column,omitempty"`
	ReferencedSchema string `json:"referenced_schema,omitempty"`
	ReferencedTable  string `json:"referenced_table,omitempty"`
	ReferencedColumn string `json:"referenced_column,omitempty"`

	// Composite form.
	ChildColumns      []string `json:"child_columns,omitempty"`
	ReferencedColumns []string `json:"referenced_columns,omitempty"`

	Condition      string   `json:"condition,omitempty"`
	PopulationRate *float64 `json:"population_rate,omitempty"`
}

// IsComposite reports whether this entry uses the child_columns/
// referenced_columns (tuple) form rather than the single-column form.
func (l LogicalFK) IsComposite() bool { return len(l.ChildColumns) > 0 }

// TableEntry is one element of the top-level configuration array: a single
// table's row count, column generation overrides, and FK declarations.
type TableEntry struct {
	Schema                   string             `json:"schema"`
	Table                    string             `json:"table"`
	Rows                     int                `json:"rows,omitempty"`
	PopulateColumns          []PopulateColumn   `json:"populate_columns,omitempty"`
	StaticFKs                []StaticFK         `json:"static_fks,omitempty"`
	LogicalFKs               []LogicalFK        `json:"logical_fks,omitempty"`
	FKPopulationRate         map[string]float64 `json:"fk_population_rate,omitempty"`
	IgnoreSelfReferentialFKs bool               `json:"ignore_self_referential_fks,omitempty"`
	ExplicitPK               bool               `json:"explicit_pk,omitempty"`
}

// QualifiedName returns "schema.table".
func (e TableEntry) QualifiedName() string { return e.Schema + "." + e.Table }

// PopulateColumnFor looks up a populate_columns entry by column name.
func (e TableEntry) PopulateColumnFor(column string) (PopulateColumn, bool) {
	for _, pc := range e.PopulateColumns {
		if pc.Column == column {
			return pc, true
		}
	}
	return PopulateColumn{}, false
}

// Config is the parsed top-level JSON array plus lookup helpers.
type Config struct {
	Entries []TableEntry
	byName  map[string]*TableEntry
}

// Load reads and validates a configuration file. Invalid JSON or a missing
// mandatory key (schema/table) is fatal, per spec.md §6/§7.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates and indexes a raw JSON config document.
func Parse(data []byte) (*Config, error) {
	var entries []TableEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg := &Config{Entries: entries, byName: make(map[string]*TableEntry, len(entries))}
	for i := range entries {
		e := &entries[i]
		if e.Schema == "" || e.Table == "" {
			return nil, fmt.Errorf("config entry %d: \"schema\" and \"table\" are mandatory", i)
		}
		for _, pc := range e.PopulateColumns {
			if pc.Min != nil && pc.Max != nil && *pc.Min >= *pc.Max {
				return nil, fmt.Errorf("%s: populate_columns[%s]: min (%v) must be < max (%v)",
					e.QualifiedName(), pc.Column, *pc.Min, *pc.Max)
			}
			if pc.Format != "" && !hasExactlyOnePlaceholder(pc.Format) {
				return nil, fmt.Errorf("%s: populate_columns[%s]: format %q must contain exactly one integer placeholder",
					e.QualifiedName(), pc.Column, pc.Format)
			}
		}
		for _, lfk := range e.LogicalFKs {
			if lfk.IsComposite() && len(lfk.ChildColumns) != len(lfk.ReferencedColumns) {
				return nil, fmt.Errorf("%s: logical_fks: child_columns and referenced_columns must have equal length",
					e.QualifiedName())
			}
		}
		cfg.byName[e.QualifiedName()] = e
	}
	return cfg, nil
}

func hasExactlyOnePlaceholder(format string) bool {
	count := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		// Skip a literal "%%".
		if i+1 < len(format) && format[i+1] == '%' {
			i++
			continue
		}
		count++
	}
	return count == 1
}

// Entry looks up a table's configuration entry by "schema.table".
func (c *Config) Entry(qualifiedName string) (*TableEntry, bool) {
	if c == nil {
		return nil, false
	}
	e, ok := c.byName[qualifiedName]
	return e, ok
}

// Tables returns the ordered list of "schema.table" names the config names.
func (c *Config) Tables() []string {
	names := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		names[i] = e.QualifiedName()
	}
	return names
}
