package config

import (
	"strings"
	"testing"
)

func TestParsePopulateColumnBareString(t *testing.T) {
	cfg, err := Parse([]byte(`[
		{"schema": "s", "table": "t", "populate_columns": ["status"]}
	]`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	entry, ok := cfg.Entry("s.t")
	if !ok {
		t.Fatalf("entry s.t not found")
	}
	if len(entry.PopulateColumns) != 1 || entry.PopulateColumns[0].Column != "status" {
		t.Fatalf("expected bare column name \"status\", got %+v", entry.PopulateColumns)
	}
}

func TestParsePopulateColumnObjectForm(t *testing.T) {
	cfg, err := Parse([]byte(`[
		{"schema": "s", "table": "t", "populate_columns": [
			{"column": "age", "min": 18, "max": 80}
		]}
	]`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	entry, _ := cfg.Entry("s.t")
	pc, ok := entry.PopulateColumnFor("age")
	if !ok {
		t.Fatalf("populate_columns[age] not found")
	}
	if pc.Min == nil || pc.Max == nil || *pc.Min != 18 || *pc.Max != 80 {
		t.Fatalf("unexpected min/max: %+v", pc)
	}
}

func TestParseMissingColumnKeyIsFatal(t *testing.T) {
	_, err := Parse([]byte(`[
		{"schema": "s", "table": "t", "populate_columns": [{"min": 1, "max": 2}]}
	]`))
	if err == nil {
		t.Fatalf("expected error for populate_columns entry missing \"column\"")
	}
}

func TestParseMandatorySchemaTable(t *testing.T) {
	_, err := Parse([]byte(`[{"table": "t"}]`))
	if err == nil || !strings.Contains(err.Error(), "mandatory") {
		t.Fatalf("expected mandatory schema/table error, got %v", err)
	}
}

func TestParseMinMustBeLessThanMax(t *testing.T) {
	_, err := Parse([]byte(`[
		{"schema": "s", "table": "t", "populate_columns": [
			{"column": "age", "min": 80, "max": 18}
		]}
	]`))
	if err == nil || !strings.Contains(err.Error(), "must be <") {
		t.Fatalf("expected min < max violation, got %v", err)
	}
}

func TestParseFormatPlaceholderValidation(t *testing.T) {
	cases := []struct {
		format  string
		wantErr bool
	}{
		{"user%d", false},
		{"literal%%percent%d", false},
		{"no-placeholder", true},
		{"too%d-many%d", true},
	}
	for _, c := range cases {
		_, err := Parse([]byte(`[
			{"schema": "s", "table": "t", "populate_columns": [
				{"column": "name", "format": "` + c.format + `"}
			]}
		]`))
		if c.wantErr && err == nil {
			t.Errorf("format %q: expected error, got nil", c.format)
		}
		if !c.wantErr && err != nil {
			t.Errorf("format %q: unexpected error: %v", c.format, err)
		}
	}
}

func TestParseCompositeLogicalFKLengthMismatch(t *testing.T) {
	_, err := Parse([]byte(`[
		{"schema": "s", "table": "t", "logical_fks": [
			{"child_columns": ["a", "b"], "referenced_columns": ["x"]}
		]}
	]`))
	if err == nil || !strings.Contains(err.Error(), "equal length") {
		t.Fatalf("expected composite length-mismatch error, got %v", err)
	}
}

func TestConfigTablesPreservesOrder(t *testing.T) {
	cfg, err := Parse([]byte(`[
		{"schema": "s", "table": "b"},
		{"schema": "s", "table": "a"}
	]`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := cfg.Tables()
	want := []string{"s.b", "s.a"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Tables() = %v, want %v", got, want)
	}
}

func TestNilConfigEntryLookup(t *testing.T) {
	var cfg *Config
	if _, ok := cfg.Entry("s.t"); ok {
		t.Fatalf("expected ok=false for nil Config")
	}
}
