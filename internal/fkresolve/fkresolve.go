// Package fkresolve assigns foreign-key column values after every table's
// base rows have been generated, per spec.md §4.5: declared and logical FKs
// are resolved against already-materialized parent rows (or static-FK
// samples), conditional FKs pick a parent by evaluating a single-equality
// discriminator predicate, and PK-FK overlaps get pre-allocated so a
// single-column child PK that is also its sole FK draws from the parent's
// key space without duplicates. Grounded on the original implementation's
// resolve_fks_batch (original_source/generate_synthetic_data.py) and the
// teacher's FK-correlation cache in internal/generator/fkcorrelation.go.
package fkresolve

import (
	"math/rand/v2"

	"github.com/ccard-fpt/generate-synthetic-data/internal/config"
	"github.com/ccard-fpt/generate-synthetic-data/internal/constraints"
	"github.com/ccard-fpt/generate-synthetic-data/internal/diagnostics"
	"github.com/ccard-fpt/generate-synthetic-data/internal/schema"
	"github.com/ccard-fpt/generate-synthetic-data/internal/values"
)

// ColumnIndex maps a table's generated column names to their row index, as
// produced by values.Plan.
type ColumnIndex map[string]int

// NewColumnIndex builds a ColumnIndex from a values.Table's column order.
func NewColumnIndex(columns []string) ColumnIndex {
	idx := make(ColumnIndex, len(columns))
	for i, c := range columns {
		idx[c] = i
	}
	return idx
}

// ParentValues supplies the already-generated (or static-sampled) values a
// child table's FKs may reference.
type ParentValues struct {
	// Rows holds, per configured parent table, its generated rows plus the
	// ColumnIndex needed to read a named column out of them.
	Rows map[string][]values.Row
	Cols map[string]ColumnIndex

	// Static holds "table.column" -> sampled static-FK values for FKs whose
	// parent is an unconfigured, read-only production table.
	Static map[string][]any
}

// columnValues extracts every value of column across a parent table's rows.
func (pv ParentValues) columnValues(table, column string) []any {
	idx, ok := pv.Cols[table]
	if !ok {
		return nil
	}
	ci, ok := idx[column]
	if !ok {
		return nil
	}
	rows := pv.Rows[table]
	out := make([]any, 0, len(rows))
	for _, r := range rows {
		if r[ci].IsNull() {
			continue
		}
		out = append(out, cellToAny(r[ci]))
	}
	return out
}

func cellToAny(v values.Value) any {
	switch v.Tag() {
	case values.TagInt:
		return v.Int()
	case values.TagFloat:
		return v.Float()
	default:
		return v.Str()
	}
}

// Resolve assigns every declared and logical FK column on childTable's rows
// in place, using pv for parent data. rng drives random picks and must be
// seeded by the caller for reproducibility.
//
// A self-referencing FK (ParentTable == childTable) is resolved the same way
// as any other FK — against childTable's own already-generated rows, which
// the caller must have already published into pv before calling Resolve —
// unless entry.IgnoreSelfReferentialFKs opts out, per spec.md §4.2/§4.5: the
// flag leaves the column null instead (the column must be nullable for that
// to produce valid rows).
func Resolve(childTable string, rows []values.Row, colIdx ColumnIndex, model *schema.Model, entry *config.TableEntry, pv ParentValues, rng *rand.Rand, log *diagnostics.Logger) {
	ignoreSelfRef := entry != nil && entry.IgnoreSelfReferentialFKs

	// Single-column declared FKs, unconditional.
	for _, fk := range model.ForeignKeys {
		if fk.ChildTable != childTable {
			continue
		}
		ci, ok := colIdx[fk.ChildColumn]
		if !ok {
			continue
		}
		if fk.ParentTable == childTable && ignoreSelfRef {
			continue
		}
		pool := parentPool(fk.ParentTable, fk.ParentColumn, pv)
		assignFromPool(rows, ci, pool, childTable, fk.ChildColumn, rng, log)
	}

	// Logical FKs: group by (first) child column so conditional variants for
	// the same column are evaluated together, first-match-wins in config order.
	byColumn := make(map[string][]schema.LogicalFK)
	var order []string
	for _, lfk := range model.LogicalFKs {
		if lfk.ChildTable != childTable {
			continue
		}
		key := lfk.ChildColumns[0]
		if _, seen := byColumn[key]; !seen {
			order = append(order, key)
		}
		byColumn[key] = append(byColumn[key], lfk)
	}

	for _, col := range order {
		group := byColumn[col]
		resolveLogicalGroup(childTable, col, group, rows, colIdx, pv, ignoreSelfRef, rng, log)
	}

	applyPopulationRates(childTable, rows, colIdx, model, entry, rng)
}

func resolveLogicalGroup(childTable, column string, group []schema.LogicalFK, rows []values.Row, colIdx ColumnIndex, pv ParentValues, ignoreSelfRef bool, rng *rand.Rand, log *diagnostics.Logger) {
	ci, ok := colIdx[column]
	if !ok {
		return
	}

	var unconditional *schema.LogicalFK
	var conditionals []schema.LogicalFK
	for i := range group {
		if group[i].Condition == nil {
			unconditional = &group[i]
		} else {
			conditionals = append(conditionals, group[i])
		}
	}

	// Composite logical FKs (len(ChildColumns) > 1) are resolved as a unit:
	// every child column is filled from the same matching parent row.
	if len(group[0].ChildColumns) > 1 {
		resolveCompositeLogical(childTable, group, rows, colIdx, pv, ignoreSelfRef, rng, log)
		return
	}

	if len(conditionals) == 0 && unconditional != nil {
		if unconditional.ParentTable == childTable && ignoreSelfRef {
			return
		}
		pool := parentPool(unconditional.ParentTable, unconditional.ParentColumns[0], pv)
		assignFromPool(rows, ci, pool, childTable, column, rng, log)
		return
	}

	// Union-of-conditionals cache used as fallback when a row's discriminator
	// value matches none of the conditions and there is no unconditional FK.
	var unionPool []any
	condPools := make([][]any, len(conditionals))
	for i, c := range conditionals {
		if c.ParentTable == childTable && ignoreSelfRef {
			continue
		}
		condPools[i] = parentPool(c.ParentTable, c.ParentColumns[0], pv)
		unionPool = append(unionPool, condPools[i]...)
	}

	discIdx, hasDisc := colIdx[conditionals[0].Condition.Column]

	for _, row := range rows {
		if !hasDisc {
			continue
		}
		discVal := row[discIdx].Str()
		matched := false
		for i, c := range conditionals {
			if discVal == c.Condition.Literal {
				pool := condPools[i]
				assignOne(row, ci, pool, rng)
				matched = true
				break
			}
		}
		if !matched {
			if unconditional != nil && !(unconditional.ParentTable == childTable && ignoreSelfRef) {
				pool := parentPool(unconditional.ParentTable, unconditional.ParentColumns[0], pv)
				assignOne(row, ci, pool, rng)
			} else if len(unionPool) > 0 {
				assignOne(row, ci, unionPool, rng)
			}
		}
	}
}

func resolveCompositeLogical(childTable string, group []schema.LogicalFK, rows []values.Row, colIdx ColumnIndex, pv ParentValues, ignoreSelfRef bool, rng *rand.Rand, log *diagnostics.Logger) {
	for _, lfk := range group {
		if lfk.ParentTable == childTable && ignoreSelfRef {
			continue
		}
		parentRows := pv.Rows[lfk.ParentTable]
		if len(parentRows) == 0 {
			continue
		}
		pci := pv.Cols[lfk.ParentTable]

		childIdxs := make([]int, len(lfk.ChildColumns))
		ok := true
		for i, c := range lfk.ChildColumns {
			idx, present := colIdx[c]
			if !present {
				ok = false
				break
			}
			childIdxs[i] = idx
		}
		if !ok {
			continue
		}
		parentIdxs := make([]int, len(lfk.ParentColumns))
		for i, c := range lfk.ParentColumns {
			parentIdxs[i] = pci[c]
		}

		for _, row := range rows {
			if lfk.Condition != nil {
				discIdx, present := colIdx[lfk.Condition.Column]
				if !present || row[discIdx].Str() != lfk.Condition.Literal {
					continue
				}
			}
			already := true
			for _, ci := range childIdxs {
				if row[ci].IsNull() {
					already = false
					break
				}
			}
			if already {
				continue
			}
			parentRow := parentRows[rng.IntN(len(parentRows))]
			for i, ci := range childIdxs {
				row[ci] = parentRow[parentIdxs[i]]
			}
		}
	}
}

func parentPool(parentTable, parentColumn string, pv ParentValues) []any {
	if vals, ok := pv.Static[parentTable+"."+parentColumn]; ok {
		return vals
	}
	return pv.columnValues(parentTable, parentColumn)
}

func assignFromPool(rows []values.Row, ci int, pool []any, table, column string, rng *rand.Rand, log *diagnostics.Logger) {
	if len(pool) == 0 {
		log.Warnf("%s.%s: no parent values available to resolve foreign key", table, column)
		return
	}
	for _, row := range rows {
		// A row whose column was already preassigned (PreallocatePKFK's
		// Cartesian pre-allocation) keeps that value rather than being
		// overwritten by an independent random pick.
		if !row[ci].IsNull() {
			continue
		}
		assignOne(row, ci, pool, rng)
	}
}

func assignOne(row values.Row, ci int, pool []any, rng *rand.Rand) {
	if len(pool) == 0 {
		return
	}
	row[ci] = values.FromAny(pool[rng.IntN(len(pool))])
}

// applyPopulationRates treats each configured rate as the fraction of rows
// whose nullable FK column keeps its value: after every other assignment,
// each row independently keeps the value with probability rate and is set
// to NULL otherwise (rate 0.0 nulls every row, 1.0 nulls none). Values set
// by conditional-FK resolution are nulled the same way as any other.
func applyPopulationRates(childTable string, rows []values.Row, colIdx ColumnIndex, model *schema.Model, entry *config.TableEntry, rng *rand.Rand) {
	if entry == nil || len(entry.FKPopulationRate) == 0 {
		return
	}
	table, ok := model.Table(childTable)
	if !ok {
		return
	}
	for column, rate := range entry.FKPopulationRate {
		ci, ok := colIdx[column]
		if !ok {
			continue
		}
		col, ok := table.Column(column)
		if !ok || !col.Nullable {
			continue
		}
		for _, row := range rows {
			if rng.Float64() >= rate {
				row[ci] = values.Null()
			}
		}
	}
}

// PreallocatePKFK pre-assigns childTable's primary-key columns directly from
// its parent FK pools so that independent per-column FK resolution can't
// produce a duplicate PK tuple. Returns, per PK column that was pre-assigned,
// the per-row value to write (nil if no overlap was found — the caller falls
// through to ordinary FK resolution), and the (possibly reduced) row count to
// generate. Two cases, per spec.md §4.5:
//
//  1. A single-column PK that is also its sole FK column: the PK sequence is
//     replaced by a shuffled sample of the parent's key pool (without
//     replacement).
//  2. A multi-column PK whose every column is its own single-column FK (a
//     junction table, e.g. J(A_ID, B_ID) referencing A and B): the PK tuples
//     are pre-allocated as the Cartesian product of the referenced parents'
//     key pools, so e.g. 100 rows over a 10x10 domain enumerate each (A_ID,
//     B_ID) pair at most once instead of colliding at random.
func PreallocatePKFK(childTable string, model *schema.Model, pv ParentValues, rowCount int, rng *rand.Rand, log *diagnostics.Logger) (map[string][]any, int) {
	table, ok := model.Table(childTable)
	if !ok || len(table.PrimaryKey) == 0 {
		return nil, rowCount
	}
	if len(table.PrimaryKey) == 1 {
		return preallocateSingleColumnPK(table, model, pv, rowCount, rng, log)
	}
	return preallocateCompositePK(table, model, pv, rowCount, rng, log)
}

// singleColumnFKTarget reports the parent table/column a single childCol is
// a declared or single-column logical FK to, or ("", "") if it isn't one.
func singleColumnFKTarget(childTable, childCol string, model *schema.Model) (parentTable, parentCol string) {
	for _, fk := range model.ForeignKeys {
		if fk.ChildTable == childTable && fk.ChildColumn == childCol {
			return fk.ParentTable, fk.ParentColumn
		}
	}
	for _, lfk := range model.LogicalFKs {
		if lfk.ChildTable == childTable && len(lfk.ChildColumns) == 1 && lfk.ChildColumns[0] == childCol {
			return lfk.ParentTable, lfk.ParentColumns[0]
		}
	}
	return "", ""
}

func preallocateSingleColumnPK(table *schema.Table, model *schema.Model, pv ParentValues, rowCount int, rng *rand.Rand, log *diagnostics.Logger) (map[string][]any, int) {
	pkCol := table.PrimaryKey[0]
	parentTable, parentCol := singleColumnFKTarget(table.Name, pkCol, model)
	if parentTable == "" {
		return nil, rowCount
	}

	pool := parentPool(parentTable, parentCol, pv)
	if len(pool) == 0 {
		return nil, rowCount
	}

	shuffled := make([]any, len(pool))
	copy(shuffled, pool)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	if rowCount > len(shuffled) {
		log.Warnf("%s: only %d parent keys available for PK-FK overlap on %s, reducing row count from %d",
			table.Name, len(shuffled), pkCol, rowCount)
		rowCount = len(shuffled)
	}
	return map[string][]any{pkCol: shuffled[:rowCount]}, rowCount
}

// preallocateCompositePK handles a multi-column PK whose every column is
// individually a single-column FK (the junction-table case). Every other
// shape of multi-column PK (no FK coverage, or only partial coverage, or
// coverage by a composite FK rather than per-column single ones) returns nil
// and falls through to ordinary declared/logical FK resolution, which is the
// existing documented scope cut for the composite-FK-overlap sub-case.
func preallocateCompositePK(table *schema.Table, model *schema.Model, pv ParentValues, rowCount int, rng *rand.Rand, log *diagnostics.Logger) (map[string][]any, int) {
	pools := make([][]any, len(table.PrimaryKey))
	for i, pkCol := range table.PrimaryKey {
		parentTable, parentCol := singleColumnFKTarget(table.Name, pkCol, model)
		if parentTable == "" {
			return nil, rowCount
		}
		pool := parentPool(parentTable, parentCol, pv)
		if len(pool) == 0 {
			return nil, rowCount
		}
		pools[i] = pool
	}

	combos := constraints.CartesianProduct(table.PrimaryKey, pools)
	if len(combos) == 0 {
		return nil, rowCount
	}

	if rowCount > len(combos) {
		log.Warnf("%s: only %d distinct %v combinations available for composite PK-FK overlap, reducing row count from %d",
			table.Name, len(combos), table.PrimaryKey, rowCount)
		rowCount = len(combos)
	}

	sample := constraints.SampleWithoutReplacement(combos, rowCount, rng)
	out := make(map[string][]any, len(table.PrimaryKey))
	for _, pkCol := range table.PrimaryKey {
		vals := make([]any, len(sample))
		for r, combo := range sample {
			vals[r] = combo[pkCol]
		}
		out[pkCol] = vals
	}
	return out, rowCount
}
