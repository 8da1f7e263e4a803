package expr

import (
	"errors"
	"testing"

	"github.com/Starlink/ORAC-DR-sub008/pkg/header"
)

func evalNum(t *testing.T, src string, env Env) float64 {
	t.Helper()
	node, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	v, err := node.Eval(env)
	if err != nil {
		t.Fatalf("Eval(%q): %v", src, err)
	}
	if !v.IsNum {
		t.Fatalf("Eval(%q) = %q, want number", src, v.Str)
	}
	return v.Num
}

func TestArithmeticAndPrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10 / 4", 2.5},
		{"-2 * 3", -6},
		{"abs(-3.5)", 3.5},
		{"abs(2 - 5) + 1", 4},
	}
	for _, tt := range tests {
		if got := evalNum(t, tt.src, Env{}); got != tt.want {
			t.Errorf("%q = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestComparisonsAndLogic(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"1 < 2", true},
		{"2 <= 2", true},
		{"3 > 4", false},
		{"1 == 1.0", true},
		{"1 != 2", true},
		{"'ARC' == 'ARC'", true},
		{"'ARC' == 'FLAT'", false},
		{"1 < 2 && 2 < 3", true},
		{"1 > 2 || 2 < 3", true},
		{"1 > 2 && 2 < 3", false},
		{"!(1 > 2)", true},
	}
	for _, tt := range tests {
		node, err := Parse(tt.src)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.src, err)
		}
		v, err := node.Eval(Env{})
		if err != nil {
			t.Fatalf("Eval(%q): %v", tt.src, err)
		}
		if v.Truthy() != tt.want {
			t.Errorf("%q = %v, want %v", tt.src, v.Truthy(), tt.want)
		}
	}
}

func TestHeaderResolution(t *testing.T) {
	env := Env{
		Reference: header.Set{"ROW_NUMBER": header.IntValue(50)},
		Candidate: header.Set{"ROW_NUMBER": header.IntValue(52)},
	}
	got := evalNum(t, "abs(ROW_NUMBER - $Hdr{ROW_NUMBER}) < 3", env)
	if got != 1 {
		t.Errorf("tolerance window should accept a 2-row offset")
	}
	env.Candidate["ROW_NUMBER"] = header.IntValue(60)
	got = evalNum(t, "abs(ROW_NUMBER - $Hdr{ROW_NUMBER}) < 3", env)
	if got != 0 {
		t.Errorf("tolerance window should reject a 10-row offset")
	}
}

func TestQuotedReferenceName(t *testing.T) {
	env := Env{Reference: header.Set{"ROW_NUMBER": header.IntValue(7)}}
	if got := evalNum(t, "$Hdr{'ROW_NUMBER'} + 1", env); got != 8 {
		t.Errorf("$Hdr{'ROW_NUMBER'} + 1 = %v, want 8", got)
	}
}

func TestMissingFieldError(t *testing.T) {
	node, err := Parse("GLAMBDA - $Hdr{GLAMBDA}")
	if err != nil {
		t.Fatal(err)
	}
	_, err = node.Eval(Env{Candidate: header.Set{"GLAMBDA": header.FloatValue(2.2)}})
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("missing reference field: got %v, want ErrMissingField", err)
	}
	_, err = node.Eval(Env{Reference: header.Set{"GLAMBDA": header.FloatValue(2.2)}})
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("missing candidate field: got %v, want ErrMissingField", err)
	}
}

func TestNotNumericError(t *testing.T) {
	node, err := Parse("VAL + 1")
	if err != nil {
		t.Fatal(err)
	}
	_, err = node.Eval(Env{Candidate: header.Set{"VAL": header.StringValue("10a")}})
	if !errors.Is(err, ErrNotNumeric) {
		t.Fatalf("got %v, want ErrNotNumeric", err)
	}
}

func TestParseErrors(t *testing.T) {
	bad := []string{
		"",
		"1 +",
		"(1 + 2",
		"abs(1",
		"foo(1)",
		"'unterminated",
		"$Hdr{",
		"$Hdr{} + 1",
		"1 2",
	}
	for _, src := range bad {
		if _, err := Parse(src); err == nil {
			t.Errorf("Parse(%q) should fail", src)
		}
	}
}

func TestShortCircuit(t *testing.T) {
	// The right side references a missing field but must never be
	// evaluated.
	node, err := Parse("1 > 2 && $Hdr{NOPE} == 1")
	if err != nil {
		t.Fatal(err)
	}
	v, err := node.Eval(Env{})
	if err != nil {
		t.Fatalf("short-circuited && should not error: %v", err)
	}
	if v.Truthy() {
		t.Fatal("1 > 2 && ... should be false")
	}
}
