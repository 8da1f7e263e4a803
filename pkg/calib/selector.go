// Package calib picks the single best calibration frame for a reduction
// step: it filters the index through a rule set and applies a per-type
// time policy to break ties.
package calib

import (
	"fmt"
	"math"
	"strings"

	"github.com/Starlink/ORAC-DR-sub008/pkg/header"
	"github.com/Starlink/ORAC-DR-sub008/pkg/index"
	"github.com/Starlink/ORAC-DR-sub008/pkg/rules"
)

// TimePolicy decides which of several rule-satisfying candidates wins.
type TimePolicy uint8

const (
	// RecencyBias prefers the record whose ORACTIME is closest to, and
	// not later than, the reference ORACTIME. A calibration measured
	// after the science frame is not yet known to be valid for it.
	RecencyBias TimePolicy = iota
	// AbsoluteNearest prefers the smallest absolute time difference,
	// for calibration types whose rules already encode closeness (for
	// example an arc matched by a ROW_NUMBER tolerance window).
	AbsoluteNearest
)

func (p TimePolicy) String() string {
	if p == AbsoluteNearest {
		return "nearest"
	}
	return "recency"
}

// ParsePolicy reads a policy name as written in config files.
func ParsePolicy(s string) (TimePolicy, error) {
	switch strings.ToLower(s) {
	case "recency", "":
		return RecencyBias, nil
	case "nearest":
		return AbsoluteNearest, nil
	}
	return RecencyBias, fmt.Errorf("unknown time policy %q", s)
}

// Selector runs rule-set queries against one calibration type's index.
type Selector struct {
	Index  *index.Index
	Policy TimePolicy
}

// SelectBest returns the single best matching record, or ok=false when no
// suitable calibration exists yet. No-match is a legitimate outcome early
// in a night's observing, not an error.
func (s *Selector) SelectBest(rs *rules.RuleSet, ref header.Set) (index.Record, bool) {
	matches := s.Index.Select(rs, ref)
	if len(matches) == 0 {
		return index.Record{}, false
	}

	refTime, err := referenceTime(ref)
	if err != nil {
		// Without a usable reference timestamp neither policy can rank
		// by time; fall back to the deterministic insertion tie-break.
		return matches[len(matches)-1], true
	}

	best := -1
	var bestKey float64
	for i, rec := range matches {
		t, err := rec.Time()
		if err != nil {
			continue
		}
		var key float64
		switch s.Policy {
		case AbsoluteNearest:
			key = math.Abs(t - refTime)
		default:
			if t > refTime {
				continue
			}
			key = refTime - t
		}
		// <= on equal keys keeps the later-appended record, because
		// matches are scanned in insertion order.
		if best < 0 || key <= bestKey {
			best = i
			bestKey = key
		}
	}
	if best < 0 {
		return index.Record{}, false
	}
	return matches[best], true
}

func referenceTime(ref header.Set) (float64, error) {
	v, ok := ref.Lookup(index.TimeField)
	if !ok {
		return 0, fmt.Errorf("reference has no %s", index.TimeField)
	}
	return v.Float()
}
