package values

import "testing"

func TestValueConstructorsAndAccessors(t *testing.T) {
	if !Null().IsNull() {
		t.Fatalf("Null() should report IsNull")
	}
	if Int(5).Int() != 5 || Int(5).Tag() != TagInt {
		t.Fatalf("Int(5) broken")
	}
	if Float(1.5).Float() != 1.5 || Float(1.5).Tag() != TagFloat {
		t.Fatalf("Float(1.5) broken")
	}
	if Decimal("1.50").Str() != "1.50" || Decimal("1.50").Tag() != TagDecimal {
		t.Fatalf("Decimal broken")
	}
	if String("x").Str() != "x" || String("x").Tag() != TagString {
		t.Fatalf("String broken")
	}
	if Date("2024-01-01").Tag() != TagDate {
		t.Fatalf("Date tag broken")
	}
	if DateTime("2024-01-01 00:00:00").Tag() != TagDateTime {
		t.Fatalf("DateTime tag broken")
	}
	if SetLiteral("a,b").Str() != "a,b" || SetLiteral("a,b").Tag() != TagSetLiteral {
		t.Fatalf("SetLiteral broken")
	}
	if UserVariable("@id").Str() != "@id" || UserVariable("@id").Tag() != TagUserVariable {
		t.Fatalf("UserVariable broken")
	}
}

func TestFromAny(t *testing.T) {
	cases := []struct {
		in   any
		want Tag
	}{
		{nil, TagNull},
		{42, TagInt},
		{int32(1), TagInt},
		{int64(1), TagInt},
		{float32(1.5), TagFloat},
		{float64(1.5), TagFloat},
		{"s", TagString},
		{[]byte("b"), TagString},
		{true, TagInt},
		{false, TagInt},
		{3.14, TagFloat},
	}
	for _, c := range cases {
		got := FromAny(c.in)
		if got.Tag() != c.want {
			t.Errorf("FromAny(%v) tag = %v, want %v", c.in, got.Tag(), c.want)
		}
	}
	if FromAny(true).Int() != 1 || FromAny(false).Int() != 0 {
		t.Fatalf("bool->int mapping wrong")
	}
	// Wrapping an already-built Value must be a passthrough, not re-tagged.
	orig := Decimal("1.00")
	if FromAny(orig).Tag() != TagDecimal || FromAny(orig).Str() != "1.00" {
		t.Fatalf("FromAny(Value) should pass through unchanged")
	}
}

func TestFromAnyUnknownTypeStringifies(t *testing.T) {
	type custom struct{ X int }
	got := FromAny(custom{X: 3})
	if got.Tag() != TagString {
		t.Fatalf("expected fallback stringification, got tag %v", got.Tag())
	}
}

func TestIsUserVariableRef(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"@id", true},
		{"@last_insert_id", true},
		{"@A1_b2", true},
		{"@", false},
		{"", false},
		{"id", false},
		{"@na@me", false},
		{"@na me", false},
		{"@na-me", false},
	}
	for _, c := range cases {
		_, ok := IsUserVariableRef(c.in)
		if ok != c.want {
			t.Errorf("IsUserVariableRef(%q) = %v, want %v", c.in, ok, c.want)
		}
	}
}

func TestFormatDecimal(t *testing.T) {
	if got := FormatDecimal(1.5, 2); got != "1.50" {
		t.Fatalf("FormatDecimal(1.5, 2) = %q, want %q", got, "1.50")
	}
	if got := FormatDecimal(10, 0); got != "10" {
		t.Fatalf("FormatDecimal(10, 0) = %q, want %q", got, "10")
	}
}

func TestValueStringer(t *testing.T) {
	if Null().String() != "NULL" {
		t.Fatalf("Null().String() = %q", Null().String())
	}
	if Int(7).String() != "7" {
		t.Fatalf("Int(7).String() = %q", Int(7).String())
	}
	if String("hi").String() != "hi" {
		t.Fatalf("String(\"hi\").String() = %q", String("hi").String())
	}
}
