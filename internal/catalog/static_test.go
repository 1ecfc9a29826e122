package catalog

import (
	"context"
	"testing"
)

func TestStaticListTablesWrongSchemaEmpty(t *testing.T) {
	s := NewStatic("s", &StaticTable{Name: "t"})
	names, err := s.ListTables(context.Background(), "other")
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	if names != nil {
		t.Fatalf("expected nil for a mismatched schema, got %v", names)
	}
}

func TestStaticListTablesReturnsAll(t *testing.T) {
	s := NewStatic("s", &StaticTable{Name: "a"}, &StaticTable{Name: "b"})
	names, err := s.ListTables(context.Background(), "s")
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 table names, got %v", names)
	}
}

func TestStaticLookupUnknownTableErrors(t *testing.T) {
	s := NewStatic("s", &StaticTable{Name: "t"})
	if _, err := s.Columns(context.Background(), "s", "missing"); err == nil {
		t.Fatalf("expected an error for an unknown table")
	}
}

func TestStaticLookupUnknownSchemaErrors(t *testing.T) {
	s := NewStatic("s", &StaticTable{Name: "t"})
	if _, err := s.Columns(context.Background(), "other", "t"); err == nil {
		t.Fatalf("expected an error for an unknown schema")
	}
}

func TestStaticCurrentMaxPK(t *testing.T) {
	s := NewStatic("s", &StaticTable{Name: "t", MaxPK: map[string]int64{"id": 41}})
	got, err := s.CurrentMaxPK(context.Background(), "s", "t", "id")
	if err != nil {
		t.Fatalf("CurrentMaxPK: %v", err)
	}
	if got != 41 {
		t.Fatalf("CurrentMaxPK = %d, want 41", got)
	}
}

func TestStaticSampleDistinctUnderLimitReturnsAll(t *testing.T) {
	s := NewStatic("s", &StaticTable{Name: "t", Samples: map[string][]any{"id": {1, 2, 3}}})
	got, err := s.SampleDistinct(context.Background(), "s", "t", "id", 10)
	if err != nil {
		t.Fatalf("SampleDistinct: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected all 3 samples, got %v", got)
	}
}

func TestStaticSampleDistinctOverLimitTruncatesWithoutDuplicates(t *testing.T) {
	s := NewStatic("s", &StaticTable{Name: "t", Samples: map[string][]any{"id": {1, 2, 3, 4, 5}}})
	got, err := s.SampleDistinct(context.Background(), "s", "t", "id", 2)
	if err != nil {
		t.Fatalf("SampleDistinct: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 samples, got %v", got)
	}
	if got[0] == got[1] {
		t.Fatalf("expected distinct sampled values, got %v", got)
	}
}

func TestStaticSampleDistinctZeroLimitReturnsAll(t *testing.T) {
	s := NewStatic("s", &StaticTable{Name: "t", Samples: map[string][]any{"id": {1, 2}}})
	got, err := s.SampleDistinct(context.Background(), "s", "t", "id", 0)
	if err != nil {
		t.Fatalf("SampleDistinct: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected all samples when limit<=0, got %v", got)
	}
}
