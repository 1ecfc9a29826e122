// Package pipeline orchestrates a full run: introspect the schema, order
// tables by dependency, resolve UNIQUE constraints, generate base rows,
// resolve foreign keys, and emit SQL — in that order, per spec.md §2's
// top-level data flow. Table generation itself runs across a bounded worker
// pool (internal/values); everything else in this package runs
// single-threaded and in dependency order.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/ccard-fpt/generate-synthetic-data/internal/catalog"
	"github.com/ccard-fpt/generate-synthetic-data/internal/config"
	"github.com/ccard-fpt/generate-synthetic-data/internal/constraints"
	"github.com/ccard-fpt/generate-synthetic-data/internal/depgraph"
	"github.com/ccard-fpt/generate-synthetic-data/internal/diagnostics"
	"github.com/ccard-fpt/generate-synthetic-data/internal/emit"
	"github.com/ccard-fpt/generate-synthetic-data/internal/fkresolve"
	"github.com/ccard-fpt/generate-synthetic-data/internal/schema"
	"github.com/ccard-fpt/generate-synthetic-data/internal/values"
)

// Options configures a single Run.
type Options struct {
	Schema              string
	Seed                int64
	Workers             int
	MaxRowsPerStatement int
	DefaultRows         int
	StaticSampleSize    int
}

// Run executes the full pipeline and writes the resulting SQL to insertOut
// and deleteOut.
func Run(ctx context.Context, cat catalog.Catalog, cfg *config.Config, opts Options, insertOut, deleteOut io.Writer, log *diagnostics.Logger) error {
	model, pkStart, err := schema.Introspect(ctx, cat, opts.Schema, cfg, schema.Options{StaticSampleSize: opts.StaticSampleSize}, log)
	if err != nil {
		return fmt.Errorf("introspecting schema: %w", err)
	}

	order := depgraph.Resolve(model, log)
	log.Debugf("generation order: %s", depgraph.FormatOrder(order))

	rng := rand.New(rand.NewPCG(uint64(opts.Seed), uint64(opts.Seed)))

	generated := make(map[string][]values.Row, len(order))
	colIdx := make(map[string]fkresolve.ColumnIndex, len(order))
	pkValues := make(map[string][][]values.Value, len(order))

	emitter := emit.NewSQLEmitter()

	for _, tableName := range order {
		table, ok := model.Table(tableName)
		if !ok {
			continue
		}
		entry, _ := cfg.Entry(table.QualifiedName())

		rowCount := opts.DefaultRows
		if entry != nil && entry.Rows > 0 {
			rowCount = entry.Rows
		}
		if rowCount <= 0 {
			rowCount = 1
		}

		pv := fkresolve.ParentValues{
			Rows:   generated,
			Cols:   colIdx,
			Static: model.StaticSamples,
		}

		var preassignedPK map[string][]any
		if pkOverlap, reduced := fkresolve.PreallocatePKFK(tableName, model, pv, rowCount, rng, log); pkOverlap != nil {
			preassignedPK = pkOverlap
			rowCount = reduced
		}

		pools := buildUniquePools(table, entry, rowCount, rng, log)

		fkCols := fkColumnSet(model, tableName)
		plan := values.Plan(table, entry, fkCols, model.StaticSamples, pkStart[tableName], pools, rng, log)

		rows, err := values.GenerateRows(ctx, plan, rowCount, opts.Workers, opts.Seed, log)
		if err != nil {
			return fmt.Errorf("generating rows for %s: %w", tableName, err)
		}

		if len(preassignedPK) > 0 {
			applyPreassignedPK(table, plan, rows, preassignedPK)
		}

		assignStaticSamples(table, plan, rows, model.StaticSamples, rng)
		assignCompositeUnique(table, plan, rows, entry, model, generated, colIdx, rng, log)

		ci := fkresolve.NewColumnIndex(plan.Columns)

		// Published before resolving FKs (rather than after) so a
		// self-referencing FK can see this table's own already-generated
		// rows through pv.Rows/pv.Cols, which alias these same maps.
		generated[tableName] = rows
		colIdx[tableName] = ci

		fkresolve.Resolve(tableName, rows, ci, model, entry, pv, rng, log)

		if len(table.PrimaryKey) > 0 {
			pkValues[tableName] = extractPKTuples(table, ci, rows)
		}

		if err := emitter.EmitInserts(insertOut, table.Schema, table.Name, plan.Columns, rows, opts.MaxRowsPerStatement); err != nil {
			return fmt.Errorf("emitting inserts for %s: %w", tableName, err)
		}
	}

	for i := len(order) - 1; i >= 0; i-- {
		tableName := order[i]
		table, ok := model.Table(tableName)
		if !ok || len(table.PrimaryKey) == 0 {
			continue
		}
		if err := emitter.EmitDeletes(deleteOut, table.Schema, table.Name, table.PrimaryKey, pkValues[tableName]); err != nil {
			return fmt.Errorf("emitting deletes for %s: %w", tableName, err)
		}
	}

	return nil
}

func fkColumnSet(model *schema.Model, tableName string) map[string]bool {
	set := make(map[string]bool)
	for _, fk := range model.ForeignKeys {
		if fk.ChildTable == tableName {
			set[fk.ChildColumn] = true
		}
	}
	for _, lfk := range model.LogicalFKs {
		if lfk.ChildTable != tableName {
			continue
		}
		for _, c := range lfk.ChildColumns {
			set[c] = true
		}
	}
	return set
}

// buildUniquePools generates single-column UNIQUE value pools ahead of row
// generation, per spec.md §4.3/§4.4.
func buildUniquePools(table *schema.Table, entry *config.TableEntry, rowCount int, rng *rand.Rand, log *diagnostics.Logger) map[string][]any {
	pools := make(map[string][]any)
	class := constraints.Classify(table.UniqueIndexes)
	for _, idx := range class.SingleColumn {
		col, ok := table.Column(idx.Columns[0])
		if !ok {
			continue
		}
		var pc config.PopulateColumn
		if entry != nil {
			if p, ok := entry.PopulateColumnFor(col.Name); ok {
				pc = p
			}
		}
		pool := constraints.GeneratePool(col, pc, rowCount, rng, log, table.Name)
		pools[table.Name+"."+col.Name] = pool
	}
	return pools
}

func applyPreassignedPK(table *schema.Table, plan *values.Table, rows []values.Row, pkPool map[string][]any) {
	for _, pkCol := range table.PrimaryKey {
		vals, ok := pkPool[pkCol]
		if !ok {
			continue
		}
		ci := -1
		for i, c := range plan.Columns {
			if c == pkCol {
				ci = i
				break
			}
		}
		if ci < 0 {
			continue
		}
		for i, row := range rows {
			if i >= len(vals) {
				break
			}
			row[ci] = values.FromAny(vals[i])
		}
	}
}

func assignStaticSamples(table *schema.Table, plan *values.Table, rows []values.Row, staticSamples map[string][]any, rng *rand.Rand) {
	for i, colName := range plan.Columns {
		pool, ok := staticSamples[table.Name+"."+colName]
		if !ok || len(pool) == 0 {
			continue
		}
		for _, row := range rows {
			if !row[i].IsNull() {
				continue
			}
			row[i] = values.FromAny(pool[rng.IntN(len(pool))])
		}
	}
}

// assignCompositeUnique fills composite-UNIQUE columns from a stratified (or
// plain Cartesian) sample, per spec.md §4.3. FK columns inside the
// constraint are resolved first against already-generated parent rows so the
// Cartesian product can be built from real values.
func assignCompositeUnique(table *schema.Table, plan *values.Table, rows []values.Row, entry *config.TableEntry, model *schema.Model, generated map[string][]values.Row, colIdx map[string]fkresolve.ColumnIndex, rng *rand.Rand, log *diagnostics.Logger) {
	class := constraints.Classify(table.UniqueIndexes)
	if len(class.Composite) == 0 {
		return
	}

	colIdxByName := make(map[string]int, len(plan.Columns))
	for i, c := range plan.Columns {
		colIdxByName[c] = i
	}

	// Overlapping constraints share columns, so the shared columns come for
	// free once the tightest constraint in the group is satisfied. Every
	// OTHER constraint in the group still owns columns of its own (e.g.
	// UNIQUE(A,C)'s C when UNIQUE(A,P) is chosen as tightest) — those are
	// filled by a stratified sample keyed on the shared column, so the
	// non-shared values spread diversely across each shared value instead of
	// being left null forever.
	groups := constraints.FindOverlappingGroups(class.Composite)
	grouped := make(map[string]bool)
	for _, g := range groups {
		domainSize := func(column string) (int, bool) {
			return estimateDomainSize(table, column, entry, model, generated)
		}
		rep := constraints.SelectTightest(g.Constraints, domainSize, log, table.Name)
		assignOneComposite(table, rep, rows, colIdxByName, entry, model, generated, colIdx, rng, log)

		for _, c := range g.Constraints {
			grouped[c.Name] = true
			if c.Name == rep.Name {
				continue
			}
			assignNonSharedDiverse(table, g, c, rows, colIdxByName, entry, model, generated, colIdx, rng, log)
		}
	}

	for _, c := range class.Composite {
		if !grouped[c.Name] {
			assignOneComposite(table, c, rows, colIdxByName, entry, model, generated, colIdx, rng, log)
		}
	}
}

// assignNonSharedDiverse fills one overlap-group member's exclusive
// (non-shared) columns, once the group's tightest representative has already
// written the shared column(s). It samples the constraint's own Cartesian
// product with constraints.StratifiedSample, keyed on the group's first
// shared column, so distinct shared values each get a diverse spread of
// non-shared values (spec.md §4.3's Scenario 3: UNIQUE(A,C)+UNIQUE(A,P), 6000
// (A,C) tuples with a stratified distribution of P across them). Only the
// group's first shared column is used as the stratification key — every
// spec.md scenario involving overlap shares exactly one column.
func assignNonSharedDiverse(table *schema.Table, g constraints.OverlapGroup, c schema.UniqueIndex, rows []values.Row, colIdxByName map[string]int, entry *config.TableEntry, model *schema.Model, generated map[string][]values.Row, colIdx map[string]fkresolve.ColumnIndex, rng *rand.Rand, log *diagnostics.Logger) {
	if len(g.Shared) == 0 {
		return
	}
	sharedCol := g.Shared[0]
	sharedCI, ok := colIdxByName[sharedCol]
	if !ok {
		return
	}

	var nonShared []string
	for _, col := range c.Columns {
		if owner, ok := g.NonShared[col]; ok && owner == c.Name {
			nonShared = append(nonShared, col)
		}
	}
	if len(nonShared) == 0 {
		return
	}

	valueLists := make([][]any, len(c.Columns))
	for i, col := range c.Columns {
		valueLists[i] = domainValues(table, col, entry, model, generated, colIdx)
	}
	combos := constraints.CartesianProduct(c.Columns, valueLists)
	if len(combos) == 0 {
		log.Warnf("%s: could not build Cartesian product for UNIQUE %s, leaving its non-shared columns to default generation",
			table.Name, c.Name)
		return
	}

	stratified := constraints.StratifiedSample(combos, sharedCol, nonShared, len(rows), rng)
	if len(stratified) == 0 {
		return
	}
	if len(stratified) < len(rows) {
		log.Warnf("%s: UNIQUE %s only yields %d distinct combinations for %d rows",
			table.Name, c.Name, len(stratified), len(rows))
	}

	byShared := make(map[any][]constraints.Combination)
	for _, combo := range stratified {
		v := combo[sharedCol]
		byShared[v] = append(byShared[v], combo)
	}
	cursor := make(map[any]int, len(byShared))

	for _, row := range rows {
		key := valueToAny(row[sharedCI])
		bucket := byShared[key]
		if len(bucket) == 0 {
			continue
		}
		i := cursor[key] % len(bucket)
		cursor[key] = i + 1
		combo := bucket[i]
		for _, col := range nonShared {
			if ci, ok := colIdxByName[col]; ok {
				row[ci] = values.FromAny(combo[col])
			}
		}
	}
}

// assignOneComposite builds the Cartesian product for one composite UNIQUE
// constraint, draws a random sample of it without replacement, and writes
// that sample into rows. A
// constraint whose columns span more than one overlapping group's worth of
// composite UNIQUE columns only gets its OWN columns filled here — a
// constraint sharing columns with chosen is satisfied transitively since
// those columns were already written by the group's representative.
func assignOneComposite(table *schema.Table, chosen schema.UniqueIndex, rows []values.Row, colIdxByName map[string]int, entry *config.TableEntry, model *schema.Model, generated map[string][]values.Row, colIdx map[string]fkresolve.ColumnIndex, rng *rand.Rand, log *diagnostics.Logger) {
	valueLists := make([][]any, len(chosen.Columns))
	for i, col := range chosen.Columns {
		valueLists[i] = domainValues(table, col, entry, model, generated, colIdx)
	}
	combos := constraints.CartesianProduct(chosen.Columns, valueLists)
	if len(combos) == 0 {
		log.Warnf("%s: could not build Cartesian product for UNIQUE %s, leaving its columns to default generation",
			table.Name, chosen.Name)
		return
	}

	sample := constraints.SampleWithoutReplacement(combos, len(rows), rng)
	if len(sample) < len(rows) {
		log.Warnf("%s: UNIQUE %s only yields %d distinct combinations for %d rows",
			table.Name, chosen.Name, len(sample), len(rows))
	}

	for i, row := range rows {
		if i >= len(sample) {
			break
		}
		for col, val := range sample[i] {
			if ci, ok := colIdxByName[col]; ok {
				row[ci] = values.FromAny(val)
			}
		}
	}
}

func estimateDomainSize(table *schema.Table, column string, entry *config.TableEntry, model *schema.Model, generated map[string][]values.Row) (int, bool) {
	for _, fk := range model.ForeignKeys {
		if fk.ChildTable == table.Name && fk.ChildColumn == column {
			rows := generated[fk.ParentTable]
			if rows == nil {
				return 0, false
			}
			return len(rows), true
		}
	}
	if entry != nil {
		if pc, ok := entry.PopulateColumnFor(column); ok {
			if len(pc.Values) > 0 {
				return len(pc.Values), true
			}
			if pc.Min != nil && pc.Max != nil {
				return int(*pc.Max-*pc.Min) + 1, true
			}
		}
	}
	return 0, false
}

func domainValues(table *schema.Table, column string, entry *config.TableEntry, model *schema.Model, generated map[string][]values.Row, colIdx map[string]fkresolve.ColumnIndex) []any {
	for _, fk := range model.ForeignKeys {
		if fk.ChildTable != table.Name || fk.ChildColumn != column {
			continue
		}
		rows := generated[fk.ParentTable]
		parentCI, ok := colIdx[fk.ParentTable]
		idx, okIdx := parentCI[fk.ParentColumn]
		if !ok || !okIdx {
			return nil
		}
		out := make([]any, 0, len(rows))
		for _, r := range rows {
			if !r[idx].IsNull() {
				out = append(out, valueToAny(r[idx]))
			}
		}
		return out
	}
	if entry != nil {
		if pc, ok := entry.PopulateColumnFor(column); ok {
			if len(pc.Values) > 0 {
				return pc.Values
			}
		}
	}
	if col, ok := table.Column(column); ok && len(col.EnumValues) > 0 {
		out := make([]any, len(col.EnumValues))
		for i, v := range col.EnumValues {
			out[i] = v
		}
		return out
	}
	return nil
}

func valueToAny(v values.Value) any {
	switch v.Tag() {
	case values.TagInt:
		return v.Int()
	case values.TagFloat:
		return v.Float()
	default:
		return v.Str()
	}
}

func extractPKTuples(table *schema.Table, ci fkresolve.ColumnIndex, rows []values.Row) [][]values.Value {
	idxs := make([]int, len(table.PrimaryKey))
	for i, col := range table.PrimaryKey {
		idxs[i] = ci[col]
	}
	out := make([][]values.Value, len(rows))
	for i, row := range rows {
		tuple := make([]values.Value, len(idxs))
		for j, idx := range idxs {
			tuple[j] = row[idx]
		}
		out[i] = tuple
	}
	return out
}
