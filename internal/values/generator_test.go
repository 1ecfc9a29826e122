package values

import (
	"context"
	"testing"

	"github.com/ccard-fpt/generate-synthetic-data/internal/config"
	"github.com/ccard-fpt/generate-synthetic-data/internal/diagnostics"
	"github.com/ccard-fpt/generate-synthetic-data/internal/schema"
	"math/rand/v2"
)

func TestPlanSkipsAutoAssignPKWithoutExplicitPK(t *testing.T) {
	tbl := &schema.Table{
		Name:       "t",
		PrimaryKey: []string{"id"},
		Columns: []schema.Column{
			{Name: "id", Kind: schema.KindInteger, AutoAssign: true},
			{Name: "name", Kind: schema.KindString},
		},
	}
	plan := Plan(tbl, nil, nil, nil, 0, nil, rand.New(rand.NewPCG(1, 1)), diagnostics.Default())
	for _, c := range plan.Columns {
		if c == "id" {
			t.Fatalf("auto-assign PK without ExplicitPK should be excluded from the plan, got %v", plan.Columns)
		}
	}
}

func TestPlanKeepsAutoAssignPKWhenExplicit(t *testing.T) {
	tbl := &schema.Table{
		Name:       "t",
		PrimaryKey: []string{"id"},
		ExplicitPK: true,
		Columns: []schema.Column{
			{Name: "id", Kind: schema.KindInteger, AutoAssign: true},
		},
	}
	plan := Plan(tbl, nil, nil, nil, 0, nil, rand.New(rand.NewPCG(1, 1)), diagnostics.Default())
	if len(plan.Columns) != 1 || plan.Columns[0] != "id" {
		t.Fatalf("expected id to be kept in the plan when ExplicitPK, got %v", plan.Columns)
	}
}

func TestPlanSequentialPKStartsAtPKStart(t *testing.T) {
	tbl := &schema.Table{
		Name:       "t",
		PrimaryKey: []string{"id"},
		ExplicitPK: true,
		Columns: []schema.Column{
			{Name: "id", Kind: schema.KindInteger},
		},
	}
	plan := Plan(tbl, nil, nil, nil, 42, nil, rand.New(rand.NewPCG(1, 1)), diagnostics.Default())
	rows, err := GenerateRows(context.Background(), plan, 3, 1, 7, diagnostics.Default())
	if err != nil {
		t.Fatalf("GenerateRows: %v", err)
	}
	seen := make(map[int64]bool)
	for _, r := range rows {
		if r[0].Tag() != TagInt {
			t.Fatalf("expected sequential PK column to be an int, got tag %v", r[0].Tag())
		}
		if r[0].Int() < 42 {
			t.Fatalf("sequential PK value %d should be >= pkStart 42", r[0].Int())
		}
		seen[r[0].Int()] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 distinct sequential PK values, got %d", len(seen))
	}
}

func TestPlanFKPlaceholderLeftNull(t *testing.T) {
	tbl := &schema.Table{
		Name: "t",
		Columns: []schema.Column{
			{Name: "id", Kind: schema.KindInteger, AutoAssign: true},
			{Name: "customer_id", Kind: schema.KindInteger},
		},
	}
	fkCols := map[string]bool{"customer_id": true}
	plan := Plan(tbl, nil, fkCols, nil, 0, nil, rand.New(rand.NewPCG(1, 1)), diagnostics.Default())
	rows, err := GenerateRows(context.Background(), plan, 2, 1, 1, diagnostics.Default())
	if err != nil {
		t.Fatalf("GenerateRows: %v", err)
	}
	for _, r := range rows {
		if !r[0].IsNull() {
			t.Fatalf("FK placeholder column should be left NULL for later resolution, got %v", r[0])
		}
	}
}

func TestPlanStaticFKLeftNullPlaceholder(t *testing.T) {
	tbl := &schema.Table{
		Name: "t",
		Columns: []schema.Column{
			{Name: "region_id", Kind: schema.KindInteger},
		},
	}
	staticSamples := map[string][]any{"t.region_id": {1, 2, 3}}
	plan := Plan(tbl, nil, nil, staticSamples, 0, nil, rand.New(rand.NewPCG(1, 1)), diagnostics.Default())
	rows, err := GenerateRows(context.Background(), plan, 1, 1, 1, diagnostics.Default())
	if err != nil {
		t.Fatalf("GenerateRows: %v", err)
	}
	if !rows[0][0].IsNull() {
		t.Fatalf("static-FK column should be left NULL as a placeholder, got %v", rows[0][0])
	}
}

func TestPlanCompositeUniqueColumnsSkipped(t *testing.T) {
	tbl := &schema.Table{
		Name: "t",
		Columns: []schema.Column{
			{Name: "room", Kind: schema.KindString},
			{Name: "day", Kind: schema.KindString},
		},
		UniqueIndexes: []schema.UniqueIndex{
			{Name: "uq", Columns: []string{"room", "day"}},
		},
	}
	plan := Plan(tbl, nil, nil, nil, 0, nil, rand.New(rand.NewPCG(1, 1)), diagnostics.Default())
	rows, err := GenerateRows(context.Background(), plan, 1, 1, 1, diagnostics.Default())
	if err != nil {
		t.Fatalf("GenerateRows: %v", err)
	}
	if !rows[0][0].IsNull() || !rows[0][1].IsNull() {
		t.Fatalf("composite-unique columns should be left for holistic assignment, got %v", rows[0])
	}
}

func TestPlanSingleColumnUniquePool(t *testing.T) {
	tbl := &schema.Table{
		Name: "t",
		Columns: []schema.Column{
			{Name: "email", Kind: schema.KindString},
		},
		UniqueIndexes: []schema.UniqueIndex{
			{Name: "uq_email", Columns: []string{"email"}},
		},
	}
	pools := map[string][]any{"t.email": {"a@x.com", "b@x.com"}}
	plan := Plan(tbl, nil, nil, nil, 0, pools, rand.New(rand.NewPCG(1, 1)), diagnostics.Default())
	rows, err := GenerateRows(context.Background(), plan, 2, 1, 1, diagnostics.Default())
	if err != nil {
		t.Fatalf("GenerateRows: %v", err)
	}
	seen := make(map[string]bool)
	for _, r := range rows {
		seen[r[0].Str()] = true
	}
	if len(seen) != 2 {
		t.Fatalf("expected both pooled emails used without repeats, got %v", rows)
	}
}

func TestPlanConfiguredExplicitValues(t *testing.T) {
	tbl := &schema.Table{
		Name: "t",
		Columns: []schema.Column{
			{Name: "status", Kind: schema.KindString},
		},
	}
	entry := &config.TableEntry{
		PopulateColumns: []config.PopulateColumn{{Column: "status", Values: []any{"active", "inactive"}}},
	}
	plan := Plan(tbl, entry, nil, nil, 0, nil, rand.New(rand.NewPCG(1, 1)), diagnostics.Default())
	rows, err := GenerateRows(context.Background(), plan, 5, 1, 1, diagnostics.Default())
	if err != nil {
		t.Fatalf("GenerateRows: %v", err)
	}
	for _, r := range rows {
		v := r[0].Str()
		if v != "active" && v != "inactive" {
			t.Fatalf("expected a configured value, got %q", v)
		}
	}
}

func TestPlanEnumDefault(t *testing.T) {
	tbl := &schema.Table{
		Name: "t",
		Columns: []schema.Column{
			{Name: "status", Kind: schema.KindEnum, EnumValues: []string{"new", "shipped"}},
		},
	}
	plan := Plan(tbl, nil, nil, nil, 0, nil, rand.New(rand.NewPCG(1, 1)), diagnostics.Default())
	rows, err := GenerateRows(context.Background(), plan, 10, 2, 3, diagnostics.Default())
	if err != nil {
		t.Fatalf("GenerateRows: %v", err)
	}
	for _, r := range rows {
		v := r[0].Str()
		if v != "new" && v != "shipped" {
			t.Fatalf("expected an enum member, got %q", v)
		}
	}
}

func TestGenerateRowsDeterministicForSameSeed(t *testing.T) {
	tbl := &schema.Table{
		Name: "widgets",
		Columns: []schema.Column{
			{Name: "qty", Kind: schema.KindInteger, Nullable: false},
		},
	}
	plan := Plan(tbl, nil, nil, nil, 0, nil, rand.New(rand.NewPCG(1, 1)), diagnostics.Default())

	a, err := GenerateRows(context.Background(), plan, 50, 4, 99, diagnostics.Default())
	if err != nil {
		t.Fatalf("GenerateRows (a): %v", err)
	}
	b, err := GenerateRows(context.Background(), plan, 50, 4, 99, diagnostics.Default())
	if err != nil {
		t.Fatalf("GenerateRows (b): %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("row count mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i][0].Tag() != b[i][0].Tag() || a[i][0].Int() != b[i][0].Int() {
			t.Fatalf("row %d differs between runs with the same seed: %v vs %v", i, a[i][0], b[i][0])
		}
	}
}

func TestGenerateRowsZeroOrNegativeIsEmpty(t *testing.T) {
	tbl := &schema.Table{Name: "t", Columns: []schema.Column{{Name: "id", Kind: schema.KindInteger}}}
	plan := Plan(tbl, nil, nil, nil, 0, nil, rand.New(rand.NewPCG(1, 1)), diagnostics.Default())
	rows, err := GenerateRows(context.Background(), plan, 0, 1, 1, diagnostics.Default())
	if err != nil || rows != nil {
		t.Fatalf("GenerateRows(0) = %v, %v; want nil, nil", rows, err)
	}
}

func TestFormatPlaceholderReplacesFirstDigitToken(t *testing.T) {
	if got := formatPlaceholder("user%d", 7); got != "user7" {
		t.Fatalf("formatPlaceholder = %q", got)
	}
}

func TestSetValueJoinsSubsetPreservingOrder(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	v := setValue([]string{"a", "b", "c"}, rng)
	if v.Tag() != TagSetLiteral {
		t.Fatalf("expected a SetLiteral value, got %v", v.Tag())
	}
	if v.Str() == "" {
		t.Fatalf("expected a non-empty SET literal")
	}
	ordered := map[string]bool{"a": true, "b": true, "c": true, "a,b": true, "a,c": true, "b,c": true, "a,b,c": true}
	if !ordered[v.Str()] {
		t.Fatalf("expected members joined in declaration order, got %q", v.Str())
	}
}
