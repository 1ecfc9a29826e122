// Package constraints resolves UNIQUE constraints (single-column and
// composite) before row generation: classifying them, detecting overlapping
// composite constraints, picking the tightest one when several compete for
// the same table, and building the pools of distinct value combinations that
// satisfy them. Grounded on the original implementation's ConstraintResolver
// (original_source/constraint_resolver.py) and adapted
// to the teacher's Go idiom used in internal/generator.
package constraints

import (
	"math/rand/v2"
	"sort"

	"github.com/ccard-fpt/generate-synthetic-data/internal/diagnostics"
	"github.com/ccard-fpt/generate-synthetic-data/internal/schema"
)

// Classification splits a table's UNIQUE indexes into single-column and
// composite groups, per spec.md §4.3.
type Classification struct {
	SingleColumn []schema.UniqueIndex
	Composite    []schema.UniqueIndex
}

// Classify separates single-column UNIQUE indexes from composite ones.
func Classify(indexes []schema.UniqueIndex) Classification {
	var c Classification
	for _, idx := range indexes {
		if idx.IsComposite() {
			c.Composite = append(c.Composite, idx)
		} else {
			c.SingleColumn = append(c.SingleColumn, idx)
		}
	}
	return c
}

// OverlapGroup is a set of composite UNIQUE constraints that share at least
// one column, along with the columns shared by every member and the
// non-shared columns attributed to the constraint that owns them.
type OverlapGroup struct {
	Constraints []schema.UniqueIndex
	Shared      []string          // columns present in every constraint of the group
	NonShared   map[string]string // column -> owning constraint name
}

// FindOverlappingGroups groups composite constraints connected by shared
// columns (transitively: A and C land in one group when each shares a column
// with B). A constraint with no overlap with any other is not included in any
// group.
func FindOverlappingGroups(composite []schema.UniqueIndex) []OverlapGroup {
	if len(composite) < 2 {
		return nil
	}

	adjacency := make([][]int, len(composite))
	for i, a := range composite {
		for j, b := range composite {
			if i == j {
				continue
			}
			if shareColumn(a.Columns, b.Columns) {
				adjacency[i] = append(adjacency[i], j)
			}
		}
	}

	visited := make([]bool, len(composite))
	var groups []OverlapGroup
	for i := range composite {
		if visited[i] || len(adjacency[i]) == 0 {
			continue
		}
		members := connectedComponent(i, adjacency)
		for _, m := range members {
			visited[m] = true
		}
		if len(members) < 2 {
			continue
		}
		sort.Ints(members)
		group := make([]schema.UniqueIndex, len(members))
		for k, m := range members {
			group[k] = composite[m]
		}
		groups = append(groups, buildOverlapGroup(group))
	}
	return groups
}

func connectedComponent(start int, adjacency [][]int) []int {
	seen := map[int]bool{start: true}
	queue := []int{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, next := range adjacency[n] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	return out
}

func shareColumn(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, c := range a {
		set[c] = true
	}
	for _, c := range b {
		if set[c] {
			return true
		}
	}
	return false
}

func buildOverlapGroup(group []schema.UniqueIndex) OverlapGroup {
	shared := columnSet(group[0].Columns)
	for _, uc := range group[1:] {
		shared = intersect(shared, columnSet(uc.Columns))
	}
	sharedCols := sortedKeys(shared)

	nonShared := make(map[string]string)
	for _, uc := range group {
		for _, col := range uc.Columns {
			if !shared[col] {
				nonShared[col] = uc.Name
			}
		}
	}
	return OverlapGroup{Constraints: group, Shared: sharedCols, NonShared: nonShared}
}

func columnSet(cols []string) map[string]bool {
	s := make(map[string]bool, len(cols))
	for _, c := range cols {
		s[c] = true
	}
	return s
}

func intersect(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for c := range a {
		if b[c] {
			out[c] = true
		}
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ColumnDomainSize estimates how many distinct values a column can take,
// for use in tightest-constraint selection. ok is false when the size
// cannot be determined (e.g. an FK column whose parent hasn't generated
// rows yet) — callers treat that as "unbounded".
type ColumnDomainSize func(column string) (size int, ok bool)

// SelectTightest picks the composite constraint estimated to have the fewest
// satisfying combinations, per spec.md §4.3. ties break by constraint name.
// When there is only one candidate it is returned without scoring.
func SelectTightest(candidates []schema.UniqueIndex, domainSize ColumnDomainSize, log *diagnostics.Logger, tableName string) schema.UniqueIndex {
	if len(candidates) == 1 {
		return candidates[0]
	}

	type scored struct {
		idx       schema.UniqueIndex
		combos    int64
		unbounded bool
	}
	scores := make([]scored, 0, len(candidates))
	for _, uc := range candidates {
		s := scored{idx: uc, combos: 1}
		for _, col := range uc.Columns {
			n, ok := domainSize(col)
			if !ok {
				s.unbounded = true
				break
			}
			s.combos *= int64(n)
		}
		scores = append(scores, s)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].unbounded != scores[j].unbounded {
			return !scores[i].unbounded
		}
		if scores[i].combos != scores[j].combos {
			return scores[i].combos < scores[j].combos
		}
		return scores[i].idx.Name < scores[j].idx.Name
	})

	for _, s := range scores {
		mark := ""
		if s.idx.Name == scores[0].idx.Name {
			mark = " (selected)"
		}
		if s.unbounded {
			log.Debugf("%s: composite UNIQUE %v %s: unknown combinations%s", tableName, s.idx.Columns, s.idx.Name, mark)
		} else {
			log.Debugf("%s: composite UNIQUE %v %s: %d combinations%s", tableName, s.idx.Columns, s.idx.Name, s.combos, mark)
		}
	}

	return scores[0].idx
}

// Combination is one row of values satisfying a composite UNIQUE constraint,
// keyed by column name.
type Combination map[string]any

// CartesianProduct builds every combination of valueLists (one list per
// column, in column order). Returns nil if any list is empty.
func CartesianProduct(columns []string, valueLists [][]any) []Combination {
	if len(valueLists) == 0 {
		return nil
	}
	for _, l := range valueLists {
		if len(l) == 0 {
			return nil
		}
	}

	total := 1
	for _, l := range valueLists {
		total *= len(l)
	}

	combos := make([]Combination, total)
	for i := range combos {
		combos[i] = make(Combination, len(columns))
	}

	stride := total
	for ci, l := range valueLists {
		stride /= len(l)
		for i := 0; i < total; i++ {
			val := l[(i/stride)%len(l)]
			combos[i][columns[ci]] = val
		}
	}
	return combos
}

// SampleWithoutReplacement draws n combinations from combos with no repeats,
// shuffling with rng. If n >= len(combos), all combinations are returned
// (shuffled).
func SampleWithoutReplacement(combos []Combination, n int, rng *rand.Rand) []Combination {
	shuffled := make([]Combination, len(combos))
	copy(shuffled, combos)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	if n >= len(shuffled) {
		return shuffled
	}
	return shuffled[:n]
}

// StratifiedSample samples targetSize combinations from combos, guaranteeing
// that every distinct value of sharedCol appears proportionally, per
// spec.md §4.3's diversity requirement. nonSharedCols are used to maximize
// diversity within each shared-value bucket.
func StratifiedSample(combos []Combination, sharedCol string, nonSharedCols []string, targetSize int, rng *rand.Rand) []Combination {
	byShared := make(map[any][]Combination)
	var sharedValues []any
	for _, c := range combos {
		v := c[sharedCol]
		if _, seen := byShared[v]; !seen {
			sharedValues = append(sharedValues, v)
		}
		byShared[v] = append(byShared[v], c)
	}
	if len(sharedValues) == 0 {
		return nil
	}

	rowsPerValue := targetSize / len(sharedValues)
	remainder := targetSize % len(sharedValues)

	rng.Shuffle(len(sharedValues), func(i, j int) { sharedValues[i], sharedValues[j] = sharedValues[j], sharedValues[i] })

	var selected []Combination
	for idx, sv := range sharedValues {
		available := byShared[sv]
		if len(available) == 0 {
			continue
		}
		need := rowsPerValue
		if idx < remainder {
			need++
		}
		selected = append(selected, selectDiverse(available, nonSharedCols, need, rng)...)
	}

	rng.Shuffle(len(selected), func(i, j int) { selected[i], selected[j] = selected[j], selected[i] })
	return selected
}

// selectDiverse picks need combinations from available, preferring ones that
// spread distinct values across nonSharedCols. Falls back to a random
// selection when need is 0, 1, larger than 10, or there are no non-shared
// columns to diversify on — mirroring the original resolver's heuristic.
func selectDiverse(available []Combination, nonSharedCols []string, need int, rng *rand.Rand) []Combination {
	if need <= 1 || need > 10 || len(nonSharedCols) == 0 {
		return SampleWithoutReplacement(toCombos(available), need, rng)
	}

	firstCol := nonSharedCols[0]
	byFirst := make(map[any][]Combination)
	var firstValues []any
	for _, c := range available {
		v := c[firstCol]
		if _, seen := byFirst[v]; !seen {
			firstValues = append(firstValues, v)
		}
		byFirst[v] = append(byFirst[v], c)
	}

	if len(firstValues) < need {
		return SampleWithoutReplacement(toCombos(available), need, rng)
	}

	rng.Shuffle(len(firstValues), func(i, j int) { firstValues[i], firstValues[j] = firstValues[j], firstValues[i] })

	usedValues := make(map[string]map[any]bool)
	for _, col := range nonSharedCols {
		usedValues[col] = make(map[any]bool)
	}

	var selected []Combination
	for _, fv := range firstValues[:need] {
		candidates := byFirst[fv]
		var best Combination
		for _, candidate := range candidates {
			conflicts := 0
			for _, col := range nonSharedCols[1:] {
				if usedValues[col][candidate[col]] {
					conflicts++
				}
			}
			if best == nil || conflicts == 0 {
				best = candidate
				if conflicts == 0 {
					break
				}
			}
		}
		if best == nil {
			best = candidates[rng.IntN(len(candidates))]
		}
		selected = append(selected, best)
		for _, col := range nonSharedCols {
			usedValues[col][best[col]] = true
		}
	}
	return selected
}

func toCombos(in []Combination) []Combination {
	out := make([]Combination, len(in))
	copy(out, in)
	return out
}
