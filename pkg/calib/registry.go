package calib

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Starlink/ORAC-DR-sub008/pkg/rules"
)

// defaultPolicies maps calibration types to their time policy. Most types
// want the most recent calibration taken before the science frame; arcs
// are matched through a tolerance window on the slit row and carry no
// temporal-ordering requirement.
var defaultPolicies = map[string]TimePolicy{
	"arc": AbsoluteNearest,
}

// DefaultPolicy returns the built-in policy for a calibration type.
func DefaultPolicy(calType string) TimePolicy {
	if p, ok := defaultPolicies[calType]; ok {
		return p
	}
	return RecencyBias
}

// LoadRules reads the rule set for one instrument and calibration type
// from dir/<instrument>/rules.<type>.
func LoadRules(dir, instrument, calType string) (*rules.RuleSet, error) {
	path := filepath.Join(dir, instrument, "rules."+calType)
	rs, err := rules.ParseFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no %s rules for instrument %s (looked for %s)", calType, instrument, path)
		}
		return nil, err
	}
	return rs, nil
}

// Instruments lists the instrument directories under dir that carry at
// least one rule file.
func Instruments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		glob, err := filepath.Glob(filepath.Join(dir, e.Name(), "rules.*"))
		if err == nil && len(glob) > 0 {
			out = append(out, e.Name())
		}
	}
	return out, nil
}
