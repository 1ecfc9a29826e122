package constraints

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/ccard-fpt/generate-synthetic-data/internal/config"
	"github.com/ccard-fpt/generate-synthetic-data/internal/diagnostics"
	"github.com/ccard-fpt/generate-synthetic-data/internal/schema"
)

func float64p(v float64) *float64 { return &v }

func TestGeneratePoolZeroNeeded(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	if pool := GeneratePool(schema.Column{Name: "x"}, config.PopulateColumn{}, 0, rng, diagnostics.Default(), "t"); pool != nil {
		t.Fatalf("expected nil for needed<=0, got %+v", pool)
	}
}

func TestGeneratePoolFromExplicitValues(t *testing.T) {
	col := schema.Column{Name: "status", Kind: schema.KindString}
	pc := config.PopulateColumn{Values: []any{"a", "b", "b", "c"}}
	rng := rand.New(rand.NewPCG(3, 4))
	pool := GeneratePool(col, pc, 10, rng, diagnostics.Default(), "t")
	if len(pool) != 3 {
		t.Fatalf("expected 3 distinct values from {a,b,b,c}, got %+v", pool)
	}
}

func TestGeneratePoolFromExplicitValuesCapsAtNeeded(t *testing.T) {
	col := schema.Column{Name: "status", Kind: schema.KindString}
	pc := config.PopulateColumn{Values: []any{"a", "b", "c", "d"}}
	rng := rand.New(rand.NewPCG(3, 4))
	pool := GeneratePool(col, pc, 2, rng, diagnostics.Default(), "t")
	if len(pool) != 2 {
		t.Fatalf("expected pool capped at needed=2, got %+v", pool)
	}
}

func TestGeneratePoolIntegerRangeExhaustive(t *testing.T) {
	col := schema.Column{Name: "age", Kind: schema.KindInteger}
	pc := config.PopulateColumn{Min: float64p(1), Max: float64p(5)}
	rng := rand.New(rand.NewPCG(1, 2))
	pool := GeneratePool(col, pc, 10, rng, diagnostics.Default(), "t")
	if len(pool) != 5 {
		t.Fatalf("expected all 5 integers in [1,5] when needed exceeds span, got %+v", pool)
	}
}

func TestGeneratePoolIntegerRangeSampledNoDuplicates(t *testing.T) {
	col := schema.Column{Name: "age", Kind: schema.KindInteger}
	pc := config.PopulateColumn{Min: float64p(1), Max: float64p(1000)}
	rng := rand.New(rand.NewPCG(1, 2))
	pool := GeneratePool(col, pc, 20, rng, diagnostics.Default(), "t")
	if len(pool) != 20 {
		t.Fatalf("expected 20 distinct sampled values, got %d", len(pool))
	}
	seen := make(map[any]bool)
	for _, v := range pool {
		if seen[v] {
			t.Fatalf("duplicate value %v in integer range pool", v)
		}
		seen[v] = true
	}
}

func TestGeneratePoolDomainFallbackRandomStrings(t *testing.T) {
	maxLen := int64(5)
	col := schema.Column{Name: "code", Kind: schema.KindString, MaxLength: &maxLen}
	rng := rand.New(rand.NewPCG(9, 9))
	pool := GeneratePool(col, config.PopulateColumn{}, 4, rng, diagnostics.Default(), "t")
	if len(pool) != 4 {
		t.Fatalf("expected 4 generated strings, got %+v", pool)
	}
	for _, v := range pool {
		s, ok := v.(string)
		if !ok || len(s) != 5 {
			t.Fatalf("expected strings of length 5 (MaxLength), got %+v (%T)", v, v)
		}
	}
}

func TestGeneratePoolDateRangeExhaustive(t *testing.T) {
	col := schema.Column{Name: "d", Kind: schema.KindDate}
	start := float64(0)
	end := float64(3 * 24 * 60 * 60)
	pc := config.PopulateColumn{Min: &start, Max: &end}
	rng := rand.New(rand.NewPCG(1, 1))
	pool := GeneratePool(col, pc, 10, rng, diagnostics.Default(), "t")
	if len(pool) != 4 {
		t.Fatalf("expected 4 distinct days (span+1), got %+v", pool)
	}
}

func TestGeneratePoolLogsWarningWhenExhausted(t *testing.T) {
	col := schema.Column{Name: "status", Kind: schema.KindString}
	pc := config.PopulateColumn{Values: []any{"a", "b"}}
	var out strings.Builder
	log := diagnostics.New(&out, false)
	rng := rand.New(rand.NewPCG(1, 1))
	pool := GeneratePool(col, pc, 5, rng, log, "mytable")
	if len(pool) != 2 {
		t.Fatalf("expected only 2 values available, got %+v", pool)
	}
	if !strings.Contains(out.String(), "mytable") {
		t.Fatalf("expected exhaustion warning to mention the table name, got %q", out.String())
	}
}
