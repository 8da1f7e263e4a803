package rules

import (
	"errors"
	"testing"

	"github.com/Starlink/ORAC-DR-sub008/pkg/header"
)

func mustParse(t *testing.T, text string) *RuleSet {
	t.Helper()
	rs, err := Parse("test", text)
	if err != nil {
		t.Fatal(err)
	}
	return rs
}

func TestPresenceOnly(t *testing.T) {
	rule := mustParse(t, "ORACTIME\n").Rules[0]

	ok, err := Evaluate(rule, header.Set{}, header.Set{"ORACTIME": header.FloatValue(1)})
	if err != nil || !ok {
		t.Fatalf("present field: got %v, %v", ok, err)
	}
	// Value is irrelevant, only existence counts.
	ok, err = Evaluate(rule, header.Set{}, header.Set{"ORACTIME": header.StringValue("")})
	if err != nil || !ok {
		t.Fatalf("empty value still present: got %v, %v", ok, err)
	}
	ok, err = Evaluate(rule, header.Set{}, header.Set{})
	if err != nil || ok {
		t.Fatalf("absent field: got %v, %v, want false without error", ok, err)
	}
}

func TestStringEquality(t *testing.T) {
	rule := mustParse(t, "OBSTYPE eq 'DARK'\n").Rules[0]
	cand := header.Set{"OBSTYPE": header.StringValue("DARK")}
	if ok, _ := Evaluate(rule, nil, cand); !ok {
		t.Error("literal eq should match")
	}
	cand["OBSTYPE"] = header.StringValue("FLAT")
	if ok, _ := Evaluate(rule, nil, cand); ok {
		t.Error("literal eq should not match FLAT")
	}

	refRule := mustParse(t, "MODE eq $Hdr{MODE}\n").Rules[0]
	ref := header.Set{"MODE": header.StringValue("ND_STARE")}
	cand = header.Set{"MODE": header.StringValue("ND_STARE")}
	if ok, _ := Evaluate(refRule, ref, cand); !ok {
		t.Error("reference eq should match")
	}

	_, err := Evaluate(refRule, header.Set{}, cand)
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("missing reference field: got %v, want ErrMissingField", err)
	}
	_, err = Evaluate(refRule, ref, header.Set{})
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("missing candidate field: got %v, want ErrMissingField", err)
	}
}

func TestNumericCoercion(t *testing.T) {
	rule := mustParse(t, "DEXPTIME == 10.0\n").Rules[0]

	// "10" as text must equal 10.0 numerically.
	ok, err := Evaluate(rule, nil, header.Set{"DEXPTIME": header.StringValue("10")})
	if err != nil || !ok {
		t.Fatalf("\"10\" == 10.0: got %v, %v", ok, err)
	}

	// "10a" must raise NotNumeric for this candidate only.
	_, err = Evaluate(rule, nil, header.Set{"DEXPTIME": header.StringValue("10a")})
	if !errors.Is(err, ErrNotNumeric) {
		t.Fatalf("\"10a\": got %v, want ErrNotNumeric", err)
	}
}

func TestNumericComparisons(t *testing.T) {
	ref := header.Set{"DETECXS": header.IntValue(100)}
	tests := []struct {
		rule string
		cand float64
		want bool
	}{
		{"DETECXS <= $Hdr{DETECXS}", 50, true},
		{"DETECXS <= $Hdr{DETECXS}", 100, true},
		{"DETECXS <= $Hdr{DETECXS}", 150, false},
		{"DETECXS >= $Hdr{DETECXS}", 150, true},
		{"DETECXS < $Hdr{DETECXS}", 100, false},
		{"DETECXS > $Hdr{DETECXS}", 101, true},
		{"DETECXS == $Hdr{DETECXS}", 100, true},
	}
	for _, tt := range tests {
		rule := mustParse(t, tt.rule+"\n").Rules[0]
		cand := header.Set{"DETECXS": header.FloatValue(tt.cand)}
		ok, err := Evaluate(rule, ref, cand)
		if err != nil {
			t.Fatalf("%s with %v: %v", tt.rule, tt.cand, err)
		}
		if ok != tt.want {
			t.Errorf("%s with %v = %v, want %v", tt.rule, tt.cand, ok, tt.want)
		}
	}
}

func TestExpressionRule(t *testing.T) {
	rule := mustParse(t, "ROW_NUMBER ; abs(ROW_NUMBER - $Hdr{ROW_NUMBER}) < 3\n").Rules[0]
	ref := header.Set{"ROW_NUMBER": header.IntValue(50)}

	ok, err := Evaluate(rule, ref, header.Set{"ROW_NUMBER": header.IntValue(52)})
	if err != nil || !ok {
		t.Fatalf("within window: got %v, %v", ok, err)
	}
	ok, err = Evaluate(rule, ref, header.Set{"ROW_NUMBER": header.IntValue(54)})
	if err != nil || ok {
		t.Fatalf("outside window: got %v, %v", ok, err)
	}
	_, err = Evaluate(rule, header.Set{}, header.Set{"ROW_NUMBER": header.IntValue(52)})
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("missing reference: got %v, want ErrMissingField", err)
	}
}

func TestMatchesConjunction(t *testing.T) {
	rs := mustParse(t, "OBSTYPE eq 'ARC'\nDETECXS <= $Hdr{DETECXS}\n")
	ref := header.Set{"DETECXS": header.IntValue(100)}

	ok, err := rs.Matches(ref, header.Set{
		"OBSTYPE": header.StringValue("ARC"),
		"DETECXS": header.IntValue(50),
	})
	if err != nil || !ok {
		t.Fatalf("both rules hold: got %v, %v", ok, err)
	}

	// One failing rule disqualifies; no early acceptance exists.
	ok, err = rs.Matches(ref, header.Set{
		"OBSTYPE": header.StringValue("FLAT"),
		"DETECXS": header.IntValue(50),
	})
	if err != nil || ok {
		t.Fatalf("failing first rule: got %v, %v", ok, err)
	}
}
