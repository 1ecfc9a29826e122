package catalog

import (
	"context"
	"fmt"
	"math/rand/v2"
)

// StaticTable is the plain-Go-struct description of one table used to build
// a Static catalog for tests, mirroring exactly what MySQL would report.
type StaticTable struct {
	Name          string
	Columns       []ColumnInfo
	PrimaryKey    []string
	Engine        EngineInfo
	UniqueIndexes []UniqueIndexInfo
	ForeignKeys   []ForeignKeyInfo
	MaxPK         map[string]int64
	Samples       map[string][]any // column -> values available via SampleDistinct
}

// Static is an in-memory Catalog fake, used so introspection, constraint
// resolution, and pipeline logic can be unit-tested without a live MySQL
// server. The live MySQL implementation has no tests in this repository.
type Static struct {
	Schema string
	Tables map[string]*StaticTable
}

// NewStatic builds a Static catalog for a single schema from a list of tables.
func NewStatic(schema string, tables ...*StaticTable) *Static {
	s := &Static{Schema: schema, Tables: make(map[string]*StaticTable, len(tables))}
	for _, t := range tables {
		s.Tables[t.Name] = t
	}
	return s
}

func (s *Static) lookup(schema, table string) (*StaticTable, error) {
	if schema != s.Schema {
		return nil, fmt.Errorf("unknown schema %q", schema)
	}
	t, ok := s.Tables[table]
	if !ok {
		return nil, fmt.Errorf("table %q does not exist in schema %q", table, schema)
	}
	return t, nil
}

func (s *Static) ListTables(ctx context.Context, schema string) ([]string, error) {
	if schema != s.Schema {
		return nil, nil
	}
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	return names, nil
}

func (s *Static) Columns(ctx context.Context, schema, table string) ([]ColumnInfo, error) {
	t, err := s.lookup(schema, table)
	if err != nil {
		return nil, err
	}
	return t.Columns, nil
}

func (s *Static) PrimaryKey(ctx context.Context, schema, table string) ([]string, error) {
	t, err := s.lookup(schema, table)
	if err != nil {
		return nil, err
	}
	return t.PrimaryKey, nil
}

func (s *Static) Engine(ctx context.Context, schema, table string) (EngineInfo, error) {
	t, err := s.lookup(schema, table)
	if err != nil {
		return EngineInfo{}, err
	}
	return t.Engine, nil
}

func (s *Static) UniqueIndexes(ctx context.Context, schema, table string) ([]UniqueIndexInfo, error) {
	t, err := s.lookup(schema, table)
	if err != nil {
		return nil, err
	}
	return t.UniqueIndexes, nil
}

func (s *Static) ForeignKeys(ctx context.Context, schema, table string) ([]ForeignKeyInfo, error) {
	t, err := s.lookup(schema, table)
	if err != nil {
		return nil, err
	}
	return t.ForeignKeys, nil
}

func (s *Static) CurrentMaxPK(ctx context.Context, schema, table, column string) (int64, error) {
	t, err := s.lookup(schema, table)
	if err != nil {
		return 0, err
	}
	return t.MaxPK[column], nil
}

func (s *Static) SampleDistinct(ctx context.Context, schema, table, column string, limit int) ([]any, error) {
	t, err := s.lookup(schema, table)
	if err != nil {
		return nil, err
	}
	vals := t.Samples[column]
	if limit <= 0 || len(vals) <= limit {
		out := make([]any, len(vals))
		copy(out, vals)
		return out, nil
	}
	perm := rand.Perm(len(vals))[:limit]
	out := make([]any, limit)
	for i, idx := range perm {
		out[i] = vals[idx]
	}
	return out, nil
}
