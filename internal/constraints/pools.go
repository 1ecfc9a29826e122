package constraints

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/ccard-fpt/generate-synthetic-data/internal/config"
	"github.com/ccard-fpt/generate-synthetic-data/internal/diagnostics"
	"github.com/ccard-fpt/generate-synthetic-data/internal/schema"
)

const dateLayout = "2006-01-02"
const dateTimeLayout = "2006-01-02 15:04:05"

// sampleAttemptFactor bounds how many random draws GeneratePool tries, per
// spec.md §4.3's "~10x attempts" rule for sample-without-replacement over
// large domains. Only integer ranges then fall back to enumeration; decimal,
// date and random-string pools stop with whatever distinct values they drew.
const sampleAttemptFactor = 10

// GeneratePool builds up to needed distinct values for a single-column
// UNIQUE constraint on col, honoring an explicit values list or min/max
// range from pc when present. When fewer than needed distinct values exist,
// it returns as many as it can and logs a warning — pool exhaustion is never
// fatal (spec.md §7).
func GeneratePool(col schema.Column, pc config.PopulateColumn, needed int, rng *rand.Rand, log *diagnostics.Logger, tableName string) []any {
	if needed <= 0 {
		return nil
	}

	var pool []any
	switch {
	case len(pc.Values) > 0:
		pool = poolFromValues(pc.Values, needed, rng)
	case pc.Min != nil && pc.Max != nil:
		pool = poolFromRange(col, *pc.Min, *pc.Max, needed, rng)
	default:
		pool = poolFromDomain(col, needed, rng)
	}

	if len(pool) < needed {
		log.Warnf("%s.%s: unique value pool only has %d of %d requested values",
			tableName, col.Name, len(pool), needed)
	}

	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool
}

func poolFromValues(values []any, needed int, rng *rand.Rand) []any {
	seen := make(map[any]bool, len(values))
	var unique []any
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}
	rng.Shuffle(len(unique), func(i, j int) { unique[i], unique[j] = unique[j], unique[i] })
	if needed < len(unique) {
		return unique[:needed]
	}
	return unique
}

func poolFromRange(col schema.Column, min, max float64, needed int, rng *rand.Rand) []any {
	switch col.Kind {
	case schema.KindInteger:
		return integerRangePool(int64(min), int64(max), needed, rng)
	case schema.KindDate:
		return dateRangePool(min, max, needed, rng, dateLayout, 24*time.Hour)
	case schema.KindDateTime, schema.KindTimestamp:
		return dateRangePool(min, max, needed, rng, dateTimeLayout, time.Second)
	default:
		return decimalRangePool(min, max, needed, rng)
	}
}

func integerRangePool(min, max int64, needed int, rng *rand.Rand) []any {
	span := max - min + 1
	if span <= 0 {
		return nil
	}
	if int64(needed) >= span {
		out := make([]any, 0, span)
		for v := min; v <= max; v++ {
			out = append(out, v)
		}
		return out
	}

	seen := make(map[int64]bool, needed)
	var out []any
	maxAttempts := needed * sampleAttemptFactor
	for attempt := 0; attempt < maxAttempts && len(out) < needed; attempt++ {
		v := min + rng.Int64N(span)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	if len(out) < needed {
		// Fall back to enumerating the remainder deterministically.
		for v := min; v <= max && len(out) < needed; v++ {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

func decimalRangePool(min, max float64, needed int, rng *rand.Rand) []any {
	seen := make(map[string]bool, needed)
	var out []any
	maxAttempts := needed * sampleAttemptFactor
	for attempt := 0; attempt < maxAttempts && len(out) < needed; attempt++ {
		v := min + rng.Float64()*(max-min)
		key := fmt.Sprintf("%.6f", v)
		if !seen[key] {
			seen[key] = true
			out = append(out, v)
		}
	}
	return out
}

func dateRangePool(minUnix, maxUnix float64, needed int, rng *rand.Rand, layout string, granularity time.Duration) []any {
	minT := time.Unix(int64(minUnix), 0).UTC()
	maxT := time.Unix(int64(maxUnix), 0).UTC()
	span := int64(maxT.Sub(minT) / granularity)
	if span <= 0 {
		return []any{minT.Format(layout)}
	}

	if int64(needed) >= span+1 {
		out := make([]any, 0, span+1)
		for i := int64(0); i <= span; i++ {
			out = append(out, minT.Add(time.Duration(i)*granularity).Format(layout))
		}
		return out
	}

	seen := make(map[int64]bool, needed)
	var out []any
	maxAttempts := needed * sampleAttemptFactor
	for attempt := 0; attempt < maxAttempts && len(out) < needed; attempt++ {
		offset := rng.Int64N(span + 1)
		if !seen[offset] {
			seen[offset] = true
			out = append(out, minT.Add(time.Duration(offset)*granularity).Format(layout))
		}
	}
	return out
}

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// poolFromDomain generates unique random alphanumeric strings when no
// explicit values or range are configured, whatever col's kind. They are 8
// chars wide, or col's MaxLength when that is smaller.
func poolFromDomain(col schema.Column, needed int, rng *rand.Rand) []any {
	width := 8
	if col.MaxLength != nil && *col.MaxLength > 0 && int(*col.MaxLength) < width {
		width = int(*col.MaxLength)
	}

	seen := make(map[string]bool, needed)
	var out []any
	maxAttempts := needed * sampleAttemptFactor
	for attempt := 0; attempt < maxAttempts && len(out) < needed; attempt++ {
		s := randomAlphanumeric(width, rng)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func randomAlphanumeric(width int, rng *rand.Rand) string {
	b := make([]byte, width)
	for i := range b {
		b[i] = alphanumeric[rng.IntN(len(alphanumeric))]
	}
	return string(b)
}
