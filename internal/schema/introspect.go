package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/ccard-fpt/generate-synthetic-data/internal/catalog"
	"github.com/ccard-fpt/generate-synthetic-data/internal/config"
	"github.com/ccard-fpt/generate-synthetic-data/internal/diagnostics"
)

// Options tunes the introspection pass.
type Options struct {
	// StaticSampleSize bounds how many distinct values are sampled per
	// static-FK source column (spec.md §4.1's "up to S distinct values").
	StaticSampleSize int
}

// Introspect loads every table named in cfg from cat, builds the typed
// schema Model, samples static-FK sources, detects tables that need
// explicit primary-key assignment, and prepares primary-key start sequences.
// It fails fatally (non-nil error) exactly where spec.md §4.1 says to.
func Introspect(ctx context.Context, cat catalog.Catalog, schemaName string, cfg *config.Config, opts Options, log *diagnostics.Logger) (*Model, map[string]int64, error) {
	if opts.StaticSampleSize <= 0 {
		opts.StaticSampleSize = 1000
	}

	model := &Model{
		Schema:        schemaName,
		Tables:        make(map[string]*Table),
		StaticSamples: make(map[string][]any),
	}

	for _, entry := range cfg.Entries {
		table, err := introspectTable(ctx, cat, entry.Schema, entry.Table)
		if err != nil {
			return nil, nil, fmt.Errorf("introspecting %s: %w", entry.QualifiedName(), err)
		}
		if entry.ExplicitPK {
			table.ExplicitPK = true
		}
		model.Tables[entry.Table] = table
	}

	// Collect declared FKs among configured tables, and sample static-FK sources.
	for _, entry := range cfg.Entries {
		fks, err := cat.ForeignKeys(ctx, entry.Schema, entry.Table)
		if err != nil {
			return nil, nil, fmt.Errorf("loading FKs for %s: %w", entry.QualifiedName(), err)
		}
		for _, fk := range fks {
			model.ForeignKeys = append(model.ForeignKeys, ForeignKey{
				Name:         fk.Name,
				ChildTable:   entry.Table,
				ChildColumn:  fk.Column,
				ParentTable:  fk.ReferencedTable,
				ParentColumn: fk.ReferencedColumn,
			})
		}

		for _, lfk := range entry.LogicalFKs {
			built, err := buildLogicalFK(entry.Table, lfk)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: logical_fks: %w", entry.QualifiedName(), err)
			}
			model.LogicalFKs = append(model.LogicalFKs, built)
		}

		for _, sfk := range entry.StaticFKs {
			vals, err := cat.SampleDistinct(ctx, sfk.StaticSchema, sfk.StaticTable, sfk.StaticColumn, opts.StaticSampleSize)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: sampling static_fks[%s]: %w", entry.QualifiedName(), sfk.Column, err)
			}
			if len(vals) == 0 {
				return nil, nil, fmt.Errorf("%s: static_fks[%s]: no values sampled from %s.%s.%s",
					entry.QualifiedName(), sfk.Column, sfk.StaticSchema, sfk.StaticTable, sfk.StaticColumn)
			}
			model.StaticSamples[entry.Table+"."+sfk.Column] = vals
		}
	}

	if err := validateConditionalFKDiscriminators(model); err != nil {
		return nil, nil, err
	}

	detectExplicitPK(model, cfg, log)

	if err := validateNotNullFKs(model, cfg); err != nil {
		return nil, nil, err
	}

	pkStart, err := preparePKSequences(ctx, cat, model, log)
	if err != nil {
		return nil, nil, err
	}

	return model, pkStart, nil
}

func introspectTable(ctx context.Context, cat catalog.Catalog, schemaName, tableName string) (*Table, error) {
	rawCols, err := cat.Columns(ctx, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	if len(rawCols) == 0 {
		return nil, fmt.Errorf("table does not exist")
	}

	pk, err := cat.PrimaryKey(ctx, schemaName, tableName)
	if err != nil {
		return nil, err
	}

	engineInfo, err := cat.Engine(ctx, schemaName, tableName)
	if err != nil {
		return nil, err
	}

	rawIdx, err := cat.UniqueIndexes(ctx, schemaName, tableName)
	if err != nil {
		return nil, err
	}

	cols := make([]Column, 0, len(rawCols))
	for _, rc := range rawCols {
		kind := classifyKind(rc.DataType, rc.ColumnType)
		col := Column{
			Name:       rc.Name,
			Kind:       kind,
			DataType:   strings.ToLower(rc.DataType),
			MaxLength:  rc.MaxLength,
			Precision:  rc.Precision,
			Scale:      rc.Scale,
			Nullable:   rc.IsNullable,
			Default:    rc.Default,
			AutoAssign: strings.Contains(rc.Extra, "auto_increment"),
		}
		if kind == KindEnum || kind == KindSet {
			col.EnumValues = parseEnumValues(rc.ColumnType)
		}
		cols = append(cols, col)
	}

	indexes := make([]UniqueIndex, 0, len(rawIdx))
	for _, ri := range rawIdx {
		indexes = append(indexes, UniqueIndex{Name: ri.Name, Columns: ri.Columns})
	}

	t := &Table{
		Schema:        schemaName,
		Name:          tableName,
		Columns:       cols,
		PrimaryKey:    pk,
		Engine:        engineInfo.Engine,
		UniqueIndexes: indexes,
	}
	if len(pk) == 1 {
		if c, ok := t.Column(pk[0]); ok {
			t.AutoAssignPK = c.AutoAssign
		}
	}
	return t, nil
}

func buildLogicalFK(childTable string, lfk config.LogicalFK) (LogicalFK, error) {
	built := LogicalFK{ChildTable: childTable}

	if lfk.IsComposite() {
		built.ChildColumns = lfk.ChildColumns
		built.ParentColumns = lfk.ReferencedColumns
	} else {
		if lfk.Column == "" || lfk.ReferencedColumn == "" {
			return LogicalFK{}, fmt.Errorf("entry must set either column/referenced_column or child_columns/referenced_columns")
		}
		built.ChildColumns = []string{lfk.Column}
		built.ParentColumns = []string{lfk.ReferencedColumn}
	}
	built.ParentTable = lfk.ReferencedTable
	built.PopulationRate = lfk.PopulationRate

	if lfk.Condition != "" {
		pred, ok := ParsePredicate(lfk.Condition)
		if !ok {
			return LogicalFK{}, fmt.Errorf("condition %q does not match the single-equality grammar", lfk.Condition)
		}
		built.Condition = &pred
	}

	return built, nil
}

// validateConditionalFKDiscriminators fails fatally if a conditional logical
// FK's discriminator column is absent from its child table, per spec.md §4.1.
func validateConditionalFKDiscriminators(model *Model) error {
	for _, lfk := range model.LogicalFKs {
		if lfk.Condition == nil {
			continue
		}
		child, ok := model.Table(lfk.ChildTable)
		if !ok {
			continue
		}
		if _, ok := child.Column(lfk.Condition.Column); !ok {
			return fmt.Errorf("%s: conditional FK discriminator column %q does not exist",
				lfk.ChildTable, lfk.Condition.Column)
		}
	}
	return nil
}

// detectExplicitPK marks tables per the three rules in spec.md §4.1.
func detectExplicitPK(model *Model, cfg *config.Config, log *diagnostics.Logger) {
	// Rule: config entry explicit_pk: true (already applied during table build,
	// repeated here defensively in case a table was built before its entry
	// was visited in a future refactor).
	for _, entry := range cfg.Entries {
		if !entry.ExplicitPK {
			continue
		}
		if t, ok := model.Table(entry.Table); ok {
			t.ExplicitPK = true
		}
	}

	// Rule: a configured child has 2+ NOT NULL FKs to 2+ distinct configured parents.
	notNullParentsByChild := make(map[string]map[string]bool)
	addEdge := func(child, parentTable, childCol string, nullable bool) {
		if nullable {
			return
		}
		if _, ok := model.Table(parentTable); !ok {
			return
		}
		if notNullParentsByChild[child] == nil {
			notNullParentsByChild[child] = make(map[string]bool)
		}
		notNullParentsByChild[child][parentTable] = true
	}
	for _, fk := range model.ForeignKeys {
		child, ok := model.Table(fk.ChildTable)
		if !ok {
			continue
		}
		col, ok := child.Column(fk.ChildColumn)
		if !ok {
			continue
		}
		addEdge(fk.ChildTable, fk.ParentTable, fk.ChildColumn, col.Nullable)
	}
	for _, lfk := range model.LogicalFKs {
		if lfk.IsComposite() {
			continue
		}
		child, ok := model.Table(lfk.ChildTable)
		if !ok {
			continue
		}
		col, ok := child.Column(lfk.ChildColumns[0])
		if !ok {
			continue
		}
		addEdge(lfk.ChildTable, lfk.ParentTable, lfk.ChildColumns[0], col.Nullable)
	}
	for child, parents := range notNullParentsByChild {
		if len(parents) < 2 {
			continue
		}
		for parentName := range parents {
			if t, ok := model.Table(parentName); ok && !t.ExplicitPK {
				t.ExplicitPK = true
				log.Debugf("%s: marked explicit-PK (child %s has NOT NULL FKs to %d distinct configured parents)",
					parentName, child, len(parents))
			}
		}
	}

	// Rule: composite logical FK references a column in the parent's primary key.
	for _, lfk := range model.LogicalFKs {
		if !lfk.IsComposite() {
			continue
		}
		parent, ok := model.Table(lfk.ParentTable)
		if !ok {
			continue
		}
		for _, parentCol := range lfk.ParentColumns {
			if parent.IsPrimaryKeyColumn(parentCol) {
				if !parent.ExplicitPK {
					parent.ExplicitPK = true
					log.Debugf("%s: marked explicit-PK (composite logical FK from %s references PK column %s)",
						lfk.ParentTable, lfk.ChildTable, parentCol)
				}
				break
			}
		}
	}
}

// validateNotNullFKs fails fatally if a NOT NULL FK column references a
// parent that is neither configured nor backed by a static-FK source.
func validateNotNullFKs(model *Model, cfg *config.Config) error {
	check := func(childTable, childCol, parentTable string) error {
		child, ok := model.Table(childTable)
		if !ok {
			return nil
		}
		col, ok := child.Column(childCol)
		if !ok || col.Nullable {
			return nil
		}
		if _, ok := model.Table(parentTable); ok {
			return nil
		}
		if _, ok := model.StaticSamples[childTable+"."+childCol]; ok {
			return nil
		}
		return fmt.Errorf("%s.%s: NOT NULL foreign key references unconfigured parent %q with no static-FK source",
			childTable, childCol, parentTable)
	}

	for _, fk := range model.ForeignKeys {
		if err := check(fk.ChildTable, fk.ChildColumn, fk.ParentTable); err != nil {
			return err
		}
	}
	for _, lfk := range model.LogicalFKs {
		for _, col := range lfk.ChildColumns {
			if err := check(lfk.ChildTable, col, lfk.ParentTable); err != nil {
				return err
			}
		}
	}
	return nil
}

// preparePKSequences computes, for every single-column-PK table that is
// either non-auto-increment or in the explicit-PK set, the starting integer
// value per spec.md §4.1: max(1, catalog_next_auto_value, current_max_pk+1).
func preparePKSequences(ctx context.Context, cat catalog.Catalog, model *Model, log *diagnostics.Logger) (map[string]int64, error) {
	starts := make(map[string]int64)

	for name, t := range model.Tables {
		if len(t.PrimaryKey) != 1 {
			continue
		}
		pkCol, ok := t.Column(t.PrimaryKey[0])
		if !ok || !pkCol.IsIntegerType() {
			continue
		}
		needsStart := !t.AutoAssignPK || t.ExplicitPK
		if !needsStart {
			continue
		}

		engineInfo, err := cat.Engine(ctx, t.Schema, t.Name)
		if err != nil {
			return nil, fmt.Errorf("%s: refreshing engine info for PK sequencing: %w", name, err)
		}
		maxPK, err := cat.CurrentMaxPK(ctx, t.Schema, t.Name, pkCol.Name)
		if err != nil {
			return nil, fmt.Errorf("%s: fetching current max PK: %w", name, err)
		}

		start := int64(1)
		if engineInfo.NextAutoValue > start {
			start = engineInfo.NextAutoValue
		}
		if maxPK+1 > start {
			start = maxPK + 1
		}
		starts[name] = start
		log.Debugf("%s: PK sequence for %s starts at %d", name, pkCol.Name, start)
	}

	return starts, nil
}
