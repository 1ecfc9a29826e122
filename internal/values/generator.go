package values

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"golang.org/x/sync/errgroup"

	"github.com/ccard-fpt/generate-synthetic-data/internal/config"
	"github.com/ccard-fpt/generate-synthetic-data/internal/diagnostics"
	"github.com/ccard-fpt/generate-synthetic-data/internal/schema"
)

// counterBatchSize is not referenced by the generator: the sequential PK
// counter is one shared atomic that hands out a single value per Add, with
// no per-worker batch reservation.
const counterBatchSize = 100

// minChunkSize is the floor chunk size used when splitting a table's row
// count across workers, per spec.md §5.
const minChunkSize = 100

// Row is one generated row, column-aligned with Table.Columns().
type Row []Value

// Table describes one table's generation plan: the column order, and the
// classified strategy for each.
type Table struct {
	Name       string
	Columns    []string // generated column order (excludes auto-inc skipped columns)
	strategies []columnStrategy
}

type strategyKind int

const (
	strategySkip strategyKind = iota // composite-UNIQUE column, filled by the caller
	strategyStaticFK
	strategyFKPlaceholder // left null; filled later by fkresolve
	strategySequential
	strategyUniquePool
	strategyConfigured
	strategyDefault
)

type columnStrategy struct {
	kind      strategyKind
	column    schema.Column
	pool      []any // strategyUniquePool
	poolCur   *atomic.Int64
	values    []any // strategyConfigured with explicit values list
	min, max  float64
	hasRange  bool
	format    string
	seq       *atomic.Int64
	staticKey string // "table.column" into model.StaticSamples
}

// Plan builds a Table generation plan for t, given its FK columns (left as
// placeholders), the config entry driving populate_columns, static-FK sample
// keys, and precomputed single-column-unique pools.
//
// fkColumns is the set of column names resolved by fkresolve: the child
// columns of declared and logical FKs, which get their value from a parent
// row. Conditional-FK discriminator columns are not in it.
func Plan(t *schema.Table, entry *config.TableEntry, fkColumns map[string]bool, staticSamples map[string][]any, pkStart int64, pools map[string][]any, rng *rand.Rand, log *diagnostics.Logger) *Table {
	plan := &Table{Name: t.Name}

	compositeUniqueCols := make(map[string]bool)
	for _, idx := range t.UniqueIndexes {
		if idx.IsComposite() {
			for _, c := range idx.Columns {
				compositeUniqueCols[c] = true
			}
		}
	}
	singleUniqueCols := make(map[string]bool)
	for _, idx := range t.UniqueIndexes {
		if !idx.IsComposite() {
			singleUniqueCols[idx.Columns[0]] = true
		}
	}

	var seq *atomic.Int64
	if pkStart > 0 {
		seq = &atomic.Int64{}
		seq.Store(pkStart)
	}

	for _, col := range t.Columns {
		if compositeUniqueCols[col.Name] {
			// Assigned holistically from the Cartesian/stratified sample by
			// the caller; skip default per-column generation entirely.
			plan.Columns = append(plan.Columns, col.Name)
			plan.strategies = append(plan.strategies, columnStrategy{kind: strategySkip, column: col})
			continue
		}

		if col.AutoAssign && !t.ExplicitPK {
			continue
		}

		staticKey := t.Name + "." + col.Name
		if _, ok := staticSamples[staticKey]; ok {
			plan.Columns = append(plan.Columns, col.Name)
			plan.strategies = append(plan.strategies, columnStrategy{kind: strategyStaticFK, column: col, staticKey: staticKey})
			continue
		}

		if fkColumns[col.Name] {
			plan.Columns = append(plan.Columns, col.Name)
			plan.strategies = append(plan.strategies, columnStrategy{kind: strategyFKPlaceholder, column: col})
			continue
		}

		if t.IsPrimaryKeyColumn(col.Name) && len(t.PrimaryKey) == 1 && col.IsIntegerType() && seq != nil {
			plan.Columns = append(plan.Columns, col.Name)
			plan.strategies = append(plan.strategies, columnStrategy{kind: strategySequential, column: col, seq: seq})
			continue
		}

		if singleUniqueCols[col.Name] {
			if pool, ok := pools[staticKey]; ok {
				plan.Columns = append(plan.Columns, col.Name)
				plan.strategies = append(plan.strategies, columnStrategy{kind: strategyUniquePool, column: col, pool: pool, poolCur: &atomic.Int64{}})
				continue
			}
		}

		if entry != nil {
			if pc, ok := entry.PopulateColumnFor(col.Name); ok {
				plan.Columns = append(plan.Columns, col.Name)
				s := columnStrategy{kind: strategyConfigured, column: col, values: pc.Values, format: pc.Format}
				if pc.Min != nil && pc.Max != nil {
					s.min, s.max, s.hasRange = *pc.Min, *pc.Max, true
				}
				plan.strategies = append(plan.strategies, s)
				continue
			}
		}

		plan.Columns = append(plan.Columns, col.Name)
		plan.strategies = append(plan.strategies, columnStrategy{kind: strategyDefault, column: col})
	}

	return plan
}

// GenerateRows produces numRows rows of plan's table, split across workers
// concurrently. Each chunk is seeded deterministically from (globalSeed,
// tableName, chunkStart), per spec.md §5, so the same seed always reproduces
// the same dataset regardless of worker-count scheduling order.
func GenerateRows(ctx context.Context, plan *Table, numRows, workers int, globalSeed int64, log *diagnostics.Logger) ([]Row, error) {
	if numRows <= 0 {
		return nil, nil
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := numRows / (workers * 4)
	if chunkSize < minChunkSize {
		chunkSize = minChunkSize
	}
	if chunkSize > numRows {
		chunkSize = numRows
	}

	var starts []int
	for start := 0; start < numRows; start += chunkSize {
		starts = append(starts, start)
	}

	rows := make([]Row, numRows)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	_ = gctx

	var warnMu sync.Mutex
	var poolWarned map[string]bool = make(map[string]bool)

	for _, start := range starts {
		start := start
		end := start + chunkSize
		if end > numRows {
			end = numRows
		}
		g.Go(func() error {
			seed := chunkSeed(plan.Name, start) ^ uint64(globalSeed)
			chunkRng := rand.New(rand.NewPCG(uint64(globalSeed), seed))
			faker := gofakeit.New(seed)
			for i := start; i < end; i++ {
				row := make(Row, len(plan.strategies))
				for ci, s := range plan.strategies {
					row[ci] = generateCell(s, i, chunkRng, faker, log, plan.Name, &warnMu, poolWarned)
				}
				rows[i] = row
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

func chunkSeed(tableName string, chunkStart int) uint64 {
	h := fnv.New64a()
	h.Write([]byte(tableName))
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(chunkStart >> (8 * i))
	}
	h.Write(b[:])
	return h.Sum64()
}

func generateCell(s columnStrategy, batchIdx int, rng *rand.Rand, faker *gofakeit.Faker, log *diagnostics.Logger, tableName string, warnMu *sync.Mutex, poolWarned map[string]bool) Value {
	switch s.kind {
	case strategySkip, strategyFKPlaceholder:
		return Null()

	case strategyStaticFK:
		// Filled in by the pipeline after generation, from model.StaticSamples;
		// left null here as a placeholder the same way FK columns are.
		return Null()

	case strategySequential:
		return Int(s.seq.Add(1) - 1)

	case strategyUniquePool:
		idx := s.poolCur.Add(1) - 1
		if int(idx) >= len(s.pool) {
			warnMu.Lock()
			if !poolWarned[tableName+"."+s.column.Name] {
				poolWarned[tableName+"."+s.column.Name] = true
				log.Warnf("%s.%s: unique value pool exhausted, emitting NULL for remaining rows", tableName, s.column.Name)
			}
			warnMu.Unlock()
			return Null()
		}
		return FromAny(s.pool[idx])

	case strategyConfigured:
		return configuredValue(s, batchIdx, rng)

	default:
		return maybeNull(s.column, rng, func() Value { return defaultValue(s.column, batchIdx, rng, faker) })
	}
}

func maybeNull(col schema.Column, rng *rand.Rand, gen func() Value) Value {
	if col.Nullable && rng.Float64() < 0.1 {
		return Null()
	}
	return gen()
}

func configuredValue(s columnStrategy, batchIdx int, rng *rand.Rand) Value {
	if len(s.values) > 0 {
		return FromAny(s.values[rng.IntN(len(s.values))])
	}
	if s.hasRange {
		switch s.column.Kind {
		case schema.KindInteger:
			span := int64(s.max) - int64(s.min) + 1
			return Int(int64(s.min) + rng.Int64N(span))
		case schema.KindDecimal:
			scale := int64(2)
			if s.column.Scale != nil {
				scale = *s.column.Scale
			}
			v := s.min + rng.Float64()*(s.max-s.min)
			return Decimal(FormatDecimal(v, scale))
		case schema.KindDate:
			return Date(randomDate(s.min, s.max, rng, "2006-01-02"))
		case schema.KindDateTime, schema.KindTimestamp:
			return DateTime(randomDate(s.min, s.max, rng, "2006-01-02 15:04:05"))
		default:
			v := s.min + rng.Float64()*(s.max-s.min)
			return Float(v)
		}
	}
	if s.format != "" {
		return String(formatPlaceholder(s.format, batchIdx))
	}
	return maybeNull(s.column, rng, func() Value { return defaultValue(s.column, batchIdx, rng, nil) })
}

func randomDate(minUnix, maxUnix float64, rng *rand.Rand, layout string) string {
	span := int64(maxUnix) - int64(minUnix)
	if span <= 0 {
		span = 1
	}
	t := time.Unix(int64(minUnix)+rng.Int64N(span), 0).UTC()
	return t.Format(layout)
}

func formatPlaceholder(format string, n int) string {
	return strings.Replace(format, "%d", itoa(n), 1)
}

func itoa(n int) string {
	neg := n < 0
	if neg {
		n = -n
	}
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

// defaultValue implements the name/type-based fallback heuristics, adapted
// from the teacher's name-based and type-based generators.
func defaultValue(col schema.Column, batchIdx int, rng *rand.Rand, faker *gofakeit.Faker) Value {
	if len(col.EnumValues) > 0 {
		choice := col.EnumValues[rng.IntN(len(col.EnumValues))]
		if col.Kind == schema.KindSet {
			return setValue(col.EnumValues, rng)
		}
		return String(choice)
	}

	if faker == nil {
		faker = gofakeit.New(0)
	}

	if v, ok := nameBasedValue(col, faker, rng); ok {
		return v
	}

	return typeBasedValue(col, batchIdx, rng, faker)
}

// setValue picks a random non-empty subset of members and joins it the way
// MySQL's SET column accepts, preserving declared member order.
func setValue(members []string, rng *rand.Rand) Value {
	k := 1 + rng.IntN(len(members))
	idx := rng.Perm(len(members))[:k]
	chosen := make(map[int]bool, k)
	for _, i := range idx {
		chosen[i] = true
	}
	var parts []string
	for i, m := range members {
		if chosen[i] {
			parts = append(parts, m)
		}
	}
	return SetLiteral(strings.Join(parts, ","))
}

func nameBasedValue(col schema.Column, faker *gofakeit.Faker, rng *rand.Rand) (Value, bool) {
	name := strings.ToLower(col.Name)
	str := col.Kind == schema.KindString
	num := col.Kind == schema.KindInteger || col.Kind == schema.KindDecimal
	date := col.Kind == schema.KindDate || col.Kind == schema.KindDateTime || col.Kind == schema.KindTimestamp

	switch {
	case str && name == "uuid":
		return String(clampToMaxLength(faker.UUID(), col)), true
	case str && (name == "email" || strings.HasSuffix(name, "_email")):
		return String(clampToMaxLength(faker.Email(), col)), true
	case str && (strings.Contains(name, "first_name") || strings.Contains(name, "firstname")):
		return String(clampToMaxLength(faker.FirstName(), col)), true
	case str && (strings.Contains(name, "last_name") || strings.Contains(name, "lastname")):
		return String(clampToMaxLength(faker.LastName(), col)), true
	case str && (name == "name" || strings.HasSuffix(name, "_name") || strings.HasPrefix(name, "name_")):
		return String(clampToMaxLength(faker.Name(), col)), true
	case str && strings.Contains(name, "phone"):
		return String(clampToMaxLength(faker.Phone(), col)), true
	case str && (strings.Contains(name, "username") || name == "login"):
		return String(clampToMaxLength(faker.Username(), col)), true
	case str && (name == "address" || name == "street" || strings.Contains(name, "address_line")):
		return String(clampToMaxLength(faker.Street(), col)), true
	case str && name == "city":
		return String(clampToMaxLength(faker.City(), col)), true
	case str && (name == "state" || name == "province"):
		return String(clampToMaxLength(faker.State(), col)), true
	case str && (strings.Contains(name, "zip") || strings.Contains(name, "postal")):
		return String(clampToMaxLength(faker.Zip(), col)), true
	case str && (name == "country" || name == "country_code"):
		return String(clampToMaxLength(faker.Country(), col)), true
	case str && (strings.Contains(name, "url") || strings.Contains(name, "website")):
		return String(clampToMaxLength(faker.URL(), col)), true
	case str && (strings.Contains(name, "company") || name == "organization"):
		return String(clampToMaxLength(faker.Company(), col)), true
	case str && (name == "description" || name == "bio" || name == "summary"):
		return String(clampToMaxLength(faker.Sentence(10), col)), true
	case date && (strings.Contains(name, "created_at") || strings.Contains(name, "updated_at") || strings.Contains(name, "deleted_at")):
		t := faker.DateRange(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC))
		return formatDateKind(col, t), true
	case (name == "age" || name == "years") && col.Kind == schema.KindInteger:
		return Int(int64(18 + rng.IntN(63))), true
	case date && (name == "date_of_birth" || name == "dob" || name == "birthday"):
		t := faker.DateRange(time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2005, 12, 31, 0, 0, 0, 0, time.UTC))
		return formatDateKind(col, t), true
	case num && (strings.Contains(name, "price") || strings.Contains(name, "amount") || strings.Contains(name, "cost")):
		v := faker.Price(1, 1000)
		if col.Kind == schema.KindDecimal {
			scale := int64(2)
			if col.Scale != nil {
				scale = *col.Scale
			}
			return Decimal(FormatDecimal(v, scale)), true
		}
		return Int(int64(v)), true
	}
	return Value{}, false
}

// clampToMaxLength truncates s to col.MaxLength when set, matching the
// truncation typeBasedValue and constraints.GeneratePool already apply —
// a name-heuristic match (e.g. faker.Company() against a narrow VARCHAR)
// must not violate the column's declared character maximum.
func clampToMaxLength(s string, col schema.Column) string {
	if col.MaxLength == nil {
		return s
	}
	max := int(*col.MaxLength)
	if max >= 0 && len(s) > max {
		return s[:max]
	}
	return s
}

func formatDateKind(col schema.Column, t time.Time) Value {
	switch col.Kind {
	case schema.KindDate:
		return Date(t.Format("2006-01-02"))
	default:
		return DateTime(t.Format("2006-01-02 15:04:05"))
	}
}

func typeBasedValue(col schema.Column, batchIdx int, rng *rand.Rand, faker *gofakeit.Faker) Value {
	switch col.Kind {
	case schema.KindInteger:
		return Int(rng.Int64N(1_000_000))
	case schema.KindDecimal:
		precision := int64(10)
		scale := int64(2)
		if col.Precision != nil {
			precision = *col.Precision
		}
		if col.Scale != nil {
			scale = *col.Scale
		}
		maxVal := math.Pow(10, float64(precision-scale)) - 1
		v := rng.Float64() * maxVal
		return Decimal(FormatDecimal(v, scale))
	case schema.KindString:
		length := 20
		if col.MaxLength != nil && int(*col.MaxLength) < length {
			length = int(*col.MaxLength)
		}
		if length <= 0 {
			length = 1
		}
		if !col.Nullable {
			// NOT NULL with no other guidance: 8-char alphanumeric fallback
			// per spec.md §4.4.
			if length > 8 {
				length = 8
			}
		}
		return String(faker.LetterN(uint(length)))
	case schema.KindDate:
		t := faker.DateRange(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))
		return Date(t.Format("2006-01-02"))
	case schema.KindDateTime, schema.KindTimestamp:
		t := faker.DateRange(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC))
		return DateTime(t.Format("2006-01-02 15:04:05"))
	default:
		return String(faker.LetterN(8))
	}
}
