package calib

import (
	"testing"

	"github.com/Starlink/ORAC-DR-sub008/pkg/header"
	"github.com/Starlink/ORAC-DR-sub008/pkg/index"
	"github.com/Starlink/ORAC-DR-sub008/pkg/rules"
)

func darkRules(t *testing.T) *rules.RuleSet {
	t.Helper()
	rs, err := rules.Parse("test", "OBSTYPE eq 'DARK'\nORACTIME\n")
	if err != nil {
		t.Fatal(err)
	}
	return rs
}

func buildIndex(t *testing.T, times ...float64) *index.Index {
	t.Helper()
	ix := index.New()
	for _, ot := range times {
		_, err := ix.Append(header.Set{
			"OBSTYPE":  header.StringValue("DARK"),
			"ORACTIME": header.FloatValue(ot),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	return ix
}

func ref(oractime float64) header.Set {
	return header.Set{
		"OBSTYPE":  header.StringValue("OBJECT"),
		"ORACTIME": header.FloatValue(oractime),
	}
}

func TestSelectBestPolicies(t *testing.T) {
	tests := []struct {
		name    string
		times   []float64
		refTime float64
		policy  TimePolicy
		want    float64
		none    bool
	}{
		{"recency picks latest not after ref", []float64{90, 95, 110}, 100, RecencyBias, 95, false},
		{"nearest agrees here", []float64{90, 95, 110}, 100, AbsoluteNearest, 95, false},
		{"recency never looks forward", []float64{95, 101}, 100, RecencyBias, 95, false},
		{"nearest prefers the later frame", []float64{95, 101}, 100, AbsoluteNearest, 101, false},
		{"recency with all frames later", []float64{101, 102}, 100, RecencyBias, 0, true},
		{"nearest with all frames later", []float64{101, 102}, 100, AbsoluteNearest, 101, false},
		{"exact time match counts", []float64{90, 100}, 100, RecencyBias, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := &Selector{Index: buildIndex(t, tt.times...), Policy: tt.policy}
			rec, ok := sel.SelectBest(darkRules(t), ref(tt.refTime))
			if tt.none {
				if ok {
					t.Fatalf("expected no match, got record %d", rec.Seq)
				}
				return
			}
			if !ok {
				t.Fatal("expected a match")
			}
			got, err := rec.Time()
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("selected ORACTIME %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectBestNoCandidates(t *testing.T) {
	sel := &Selector{Index: index.New(), Policy: RecencyBias}
	if _, ok := sel.SelectBest(darkRules(t), ref(100)); ok {
		t.Fatal("empty index must yield no match")
	}
}

func TestTieBreakIsDeterministic(t *testing.T) {
	// Two candidates with identical ORACTIME: the later-appended one
	// wins, on every query.
	ix := buildIndex(t, 95, 95)
	sel := &Selector{Index: ix, Policy: RecencyBias}
	for i := 0; i < 10; i++ {
		rec, ok := sel.SelectBest(darkRules(t), ref(100))
		if !ok || rec.Seq != 1 {
			t.Fatalf("query %d selected seq %d, want 1", i, rec.Seq)
		}
	}

	sel.Policy = AbsoluteNearest
	rec, ok := sel.SelectBest(darkRules(t), ref(100))
	if !ok || rec.Seq != 1 {
		t.Fatalf("nearest policy selected seq %d, want 1", rec.Seq)
	}
}

func TestReferenceWithoutTimeFallsBack(t *testing.T) {
	ix := buildIndex(t, 90, 95)
	sel := &Selector{Index: ix, Policy: RecencyBias}
	rec, ok := sel.SelectBest(darkRules(t), header.Set{"OBSTYPE": header.StringValue("OBJECT")})
	if !ok || rec.Seq != 1 {
		t.Fatalf("expected latest-appended fallback, got %v %v", rec.Seq, ok)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy("nearest"); err != nil || p != AbsoluteNearest {
		t.Errorf("ParsePolicy(nearest) = %v, %v", p, err)
	}
	if p, err := ParsePolicy(""); err != nil || p != RecencyBias {
		t.Errorf("ParsePolicy(\"\") = %v, %v", p, err)
	}
	if _, err := ParsePolicy("sideways"); err == nil {
		t.Error("ParsePolicy(sideways) should fail")
	}
}
