package rules

import (
	"fmt"

	"github.com/Starlink/ORAC-DR-sub008/pkg/header"
	"github.com/Starlink/ORAC-DR-sub008/pkg/rules/expr"
)

// Evaluation errors. Both are recoverable: they disqualify the candidate
// being tested and never abort the surrounding query.
var (
	ErrMissingField = expr.ErrMissingField
	ErrNotNumeric   = expr.ErrNotNumeric
)

// Evaluate tests one rule against a (reference, candidate) header pair.
// Evaluation is side-effect-free, so callers may evaluate rules in any
// order.
func Evaluate(r Rule, ref, cand header.Set) (bool, error) {
	switch r.Op {
	case OpPresence:
		_, ok := cand.Lookup(r.Field)
		return ok, nil

	case OpStrEq:
		cv, ok := cand.Lookup(r.Field)
		if !ok {
			return false, fmt.Errorf("%w: candidate %s", ErrMissingField, r.Field)
		}
		want, err := r.rhsText(ref)
		if err != nil {
			return false, err
		}
		return cv.Text() == want, nil

	case OpNumEq, OpLE, OpGE, OpLT, OpGT:
		cv, ok := cand.Lookup(r.Field)
		if !ok {
			return false, fmt.Errorf("%w: candidate %s", ErrMissingField, r.Field)
		}
		left, err := cv.Float()
		if err != nil {
			return false, fmt.Errorf("%w: candidate %s=%q", ErrNotNumeric, r.Field, cv.Text())
		}
		right, err := r.rhsFloat(ref)
		if err != nil {
			return false, err
		}
		switch r.Op {
		case OpNumEq:
			return left == right, nil
		case OpLE:
			return left <= right, nil
		case OpGE:
			return left >= right, nil
		case OpLT:
			return left < right, nil
		default:
			return left > right, nil
		}

	case OpExpr:
		v, err := r.Expr.Eval(expr.Env{Reference: ref, Candidate: cand})
		if err != nil {
			return false, err
		}
		return v.Truthy(), nil
	}
	return false, fmt.Errorf("rule %s: unknown operator", r.Field)
}

// Matches reports whether every rule in the set holds for the candidate.
// The conjunction short-circuits on the first failing rule; an evaluation
// error is returned alongside false so callers can tell a disqualifying
// error from a clean mismatch.
func (rs *RuleSet) Matches(ref, cand header.Set) (bool, error) {
	for _, r := range rs.Rules {
		ok, err := Evaluate(r, ref, cand)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// rhsText resolves the right-hand side to text for string comparison.
func (r Rule) rhsText(ref header.Set) (string, error) {
	switch r.RHS {
	case RHSReference:
		rv, ok := ref.Lookup(r.RefField)
		if !ok {
			return "", fmt.Errorf("%w: reference %s", ErrMissingField, r.RefField)
		}
		return rv.Text(), nil
	default:
		return r.Literal, nil
	}
}

// rhsFloat resolves the right-hand side to a number for numeric comparison.
func (r Rule) rhsFloat(ref header.Set) (float64, error) {
	switch r.RHS {
	case RHSReference:
		rv, ok := ref.Lookup(r.RefField)
		if !ok {
			return 0, fmt.Errorf("%w: reference %s", ErrMissingField, r.RefField)
		}
		f, err := rv.Float()
		if err != nil {
			return 0, fmt.Errorf("%w: reference %s=%q", ErrNotNumeric, r.RefField, rv.Text())
		}
		return f, nil
	default:
		f, err := header.StringValue(r.Literal).Float()
		if err != nil {
			return 0, fmt.Errorf("%w: literal %q", ErrNotNumeric, r.Literal)
		}
		return f, nil
	}
}
