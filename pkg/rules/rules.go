// Package rules implements the declarative rule language that matches a
// science frame's header against candidate calibration frames. A rule file
// holds one predicate per line; all predicates must hold for a candidate to
// qualify. Rules never cause early acceptance, only disqualification.
package rules

import (
	"strings"

	"github.com/Starlink/ORAC-DR-sub008/pkg/rules/expr"
)

// Op is a rule operator.
type Op uint8

const (
	// OpPresence requires the field to exist in the candidate, with no
	// value constraint. A bare field line parses to this.
	OpPresence Op = iota
	// OpStrEq compares candidate and right-hand side as text ("eq").
	OpStrEq
	// Numeric comparisons; both sides are coerced to float64.
	OpNumEq // ==
	OpLE    // <=
	OpGE    // >=
	OpLT    // <
	OpGT    // >
	// OpExpr evaluates a boolean expression (";" lines).
	OpExpr
)

func (op Op) String() string {
	switch op {
	case OpStrEq:
		return "eq"
	case OpNumEq:
		return "=="
	case OpLE:
		return "<="
	case OpGE:
		return ">="
	case OpLT:
		return "<"
	case OpGT:
		return ">"
	case OpExpr:
		return ";"
	default:
		return ""
	}
}

// RHSKind tags the right-hand-side variant of a rule.
type RHSKind uint8

const (
	RHSNone RHSKind = iota
	RHSLiteral
	RHSReference  // $Hdr{X}, resolved against the reference header
	RHSExpression // free-form boolean expression
)

// Rule is one parsed rule-file line.
type Rule struct {
	Field string
	Op    Op
	RHS   RHSKind

	Literal  string // RHSLiteral
	Quoted   bool   // literal was quoted in the source
	RefField string // RHSReference

	ExprText string    // RHSExpression, verbatim source text
	Expr     expr.Node // compiled form of ExprText

	Line int // 1-based line in the source file
}

// String renders the rule back into rule-file syntax.
func (r Rule) String() string {
	var b strings.Builder
	b.WriteString(r.Field)
	switch r.Op {
	case OpPresence:
		return b.String()
	case OpExpr:
		b.WriteString(" ; ")
		b.WriteString(r.ExprText)
		return b.String()
	}
	b.WriteByte(' ')
	b.WriteString(r.Op.String())
	b.WriteByte(' ')
	switch r.RHS {
	case RHSReference:
		b.WriteString("$Hdr{")
		b.WriteString(r.RefField)
		b.WriteByte('}')
	default:
		if r.Quoted {
			b.WriteByte('\'')
			b.WriteString(r.Literal)
			b.WriteByte('\'')
		} else {
			b.WriteString(r.Literal)
		}
	}
	return b.String()
}

// RuleSet is the ordered rule list for one calibration type. Order has no
// effect on matching (pure conjunction) but is preserved for diagnostics
// and serialization.
type RuleSet struct {
	File  string
	Rules []Rule
}

// Fields returns every field named on the left-hand side of a rule, in rule
// order without duplicates. This is the projection an index writer must
// capture for each record, which is why decorative presence-only lines like
// a bare ORACTIME exist at all.
func (rs *RuleSet) Fields() []string {
	seen := make(map[string]bool, len(rs.Rules))
	out := make([]string, 0, len(rs.Rules))
	for _, r := range rs.Rules {
		if !seen[r.Field] {
			seen[r.Field] = true
			out = append(out, r.Field)
		}
	}
	return out
}

// String renders the rule set back into rule-file text, one rule per line.
// Comments from the original file are not reproduced.
func (rs *RuleSet) String() string {
	lines := make([]string, len(rs.Rules))
	for i, r := range rs.Rules {
		lines[i] = r.String()
	}
	return strings.Join(lines, "\n") + "\n"
}
