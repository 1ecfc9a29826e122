package depgraph

import (
	"strings"
	"testing"

	"github.com/ccard-fpt/generate-synthetic-data/internal/diagnostics"
	"github.com/ccard-fpt/generate-synthetic-data/internal/schema"
)

func table(name string) *schema.Table {
	return &schema.Table{Schema: "s", Name: name}
}

func modelOf(names []string, fks []schema.ForeignKey, lfks []schema.LogicalFK) *schema.Model {
	tables := make(map[string]*schema.Table, len(names))
	for _, n := range names {
		tables[n] = table(n)
	}
	return &schema.Model{Schema: "s", Tables: tables, ForeignKeys: fks, LogicalFKs: lfks}
}

func indexOf(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return -1
}

func TestResolveOrdersParentsBeforeChildren(t *testing.T) {
	model := modelOf(
		[]string{"orders", "customers", "order_items"},
		[]schema.ForeignKey{
			{ChildTable: "orders", ChildColumn: "customer_id", ParentTable: "customers", ParentColumn: "id"},
			{ChildTable: "order_items", ChildColumn: "order_id", ParentTable: "orders", ParentColumn: "id"},
		},
		nil,
	)
	order := Resolve(model, diagnostics.Default())
	if indexOf(order, "customers") > indexOf(order, "orders") {
		t.Fatalf("customers must precede orders: %v", order)
	}
	if indexOf(order, "orders") > indexOf(order, "order_items") {
		t.Fatalf("orders must precede order_items: %v", order)
	}
}

func TestResolveSelfReferenceIgnored(t *testing.T) {
	model := modelOf(
		[]string{"categories"},
		[]schema.ForeignKey{
			{ChildTable: "categories", ChildColumn: "parent_id", ParentTable: "categories", ParentColumn: "id"},
		},
		nil,
	)
	order := Resolve(model, diagnostics.Default())
	if len(order) != 1 || order[0] != "categories" {
		t.Fatalf("self-referencing table should order trivially, got %v", order)
	}
}

func TestResolveNeverFailsOnCycle(t *testing.T) {
	var buf strings.Builder
	log := diagnostics.New(&buf, false)

	model := modelOf(
		[]string{"a", "b"},
		[]schema.ForeignKey{
			{ChildTable: "a", ChildColumn: "b_id", ParentTable: "b", ParentColumn: "id"},
			{ChildTable: "b", ChildColumn: "a_id", ParentTable: "a", ParentColumn: "id"},
		},
		nil,
	)
	order := Resolve(model, log)
	if len(order) != 2 {
		t.Fatalf("cyclic model must still produce a full order, got %v", order)
	}
	if !strings.Contains(buf.String(), "WARNING") {
		t.Fatalf("expected a warning to be logged for the cycle, got %q", buf.String())
	}
}

func TestResolveLogicalFKOrdering(t *testing.T) {
	model := modelOf(
		[]string{"accounts", "users"},
		nil,
		[]schema.LogicalFK{
			{ChildTable: "accounts", ChildColumns: []string{"owner_id"}, ParentTable: "users", ParentColumns: []string{"id"}},
		},
	)
	order := Resolve(model, diagnostics.Default())
	if indexOf(order, "users") > indexOf(order, "accounts") {
		t.Fatalf("users must precede accounts: %v", order)
	}
}

func TestResolveIgnoresEdgesToUnconfiguredTables(t *testing.T) {
	model := modelOf(
		[]string{"orders"},
		[]schema.ForeignKey{
			{ChildTable: "orders", ChildColumn: "customer_id", ParentTable: "customers", ParentColumn: "id"},
		},
		nil,
	)
	order := Resolve(model, diagnostics.Default())
	if len(order) != 1 || order[0] != "orders" {
		t.Fatalf("edge to an unconfigured parent must be ignored, got %v", order)
	}
}

func TestResolveDeterministicForEqualIndegree(t *testing.T) {
	model := modelOf([]string{"zebra", "apple", "mango"}, nil, nil)
	order := Resolve(model, diagnostics.Default())
	want := []string{"apple", "mango", "zebra"}
	for i, w := range want {
		if order[i] != w {
			t.Fatalf("Resolve() = %v, want stable alphabetical order %v", order, want)
		}
	}
}

func TestFormatOrder(t *testing.T) {
	got := FormatOrder([]string{"a", "b"})
	if got != "[a, b]" {
		t.Fatalf("FormatOrder() = %q", got)
	}
}
