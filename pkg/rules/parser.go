package rules

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/Starlink/ORAC-DR-sub008/pkg/rules/expr"
)

// ParseError reports a malformed rule line. Loading a rule set fails closed
// on the first bad line; a calibration type with a broken rule file cannot
// be used until the file is fixed.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("malformed rule at line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("%s:%d: malformed rule: %s", e.File, e.Line, e.Msg)
}

// refToken matches a whole-rhs reference token: $Hdr{X}, with optional
// quotes around the field name.
var refToken = regexp.MustCompile(`^\$Hdr\{\s*['"]?([A-Za-z0-9_.\-]+)['"]?\s*\}$`)

// ParseFile reads and parses one rule file.
func ParseFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, string(data))
}

// Parse parses rule-file text. The name is used in error messages only.
// Lines are trimmed, '#' starts a comment, blank lines are skipped, and
// both Unix and Windows line endings are accepted.
func Parse(name, text string) (*RuleSet, error) {
	rs := &RuleSet{File: name}
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSuffix(raw, "\r")
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rule, err := parseLine(line)
		if err != nil {
			return nil, &ParseError{File: name, Line: i + 1, Msg: err.Error()}
		}
		rule.Line = i + 1
		rs.Rules = append(rs.Rules, rule)
	}
	return rs, nil
}

func parseLine(line string) (Rule, error) {
	field, rest := splitField(line)
	if field == "" {
		return Rule{}, fmt.Errorf("missing field name")
	}
	if !validField(field) {
		return Rule{}, fmt.Errorf("bad field name %q", field)
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return Rule{Field: field, Op: OpPresence, RHS: RHSNone}, nil
	}

	// ";" introduces a free-form expression kept verbatim.
	if strings.HasPrefix(rest, ";") {
		text := strings.TrimSpace(rest[1:])
		if text == "" {
			return Rule{}, fmt.Errorf("empty expression after ';'")
		}
		node, err := expr.Parse(text)
		if err != nil {
			return Rule{}, fmt.Errorf("bad expression: %v", err)
		}
		return Rule{Field: field, Op: OpExpr, RHS: RHSExpression, ExprText: text, Expr: node}, nil
	}

	opText, rhs := splitField(rest)
	op, ok := lookupOp(opText)
	if !ok {
		return Rule{}, fmt.Errorf("unknown operator %q", opText)
	}
	rhs = strings.TrimSpace(rhs)
	if rhs == "" {
		return Rule{}, fmt.Errorf("operator %q with no right-hand side", opText)
	}

	rule := Rule{Field: field, Op: op}
	switch {
	case refToken.MatchString(rhs):
		rule.RHS = RHSReference
		rule.RefField = refToken.FindStringSubmatch(rhs)[1]
	case len(rhs) >= 2 && (rhs[0] == '\'' || rhs[0] == '"') && rhs[len(rhs)-1] == rhs[0]:
		rule.RHS = RHSLiteral
		rule.Literal = rhs[1 : len(rhs)-1]
		rule.Quoted = true
	default:
		if strings.ContainsAny(rhs, " \t") {
			return Rule{}, fmt.Errorf("unexpected text after right-hand side: %q", rhs)
		}
		rule.RHS = RHSLiteral
		rule.Literal = rhs
	}
	return rule, nil
}

// splitField cuts the leading whitespace-delimited token; a ';' also ends
// the token so `FIELD; expr` parses without a space.
func splitField(s string) (tok, rest string) {
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' || s[i] == ';' {
			return s[:i], s[i:]
		}
	}
	return s, ""
}

func lookupOp(s string) (Op, bool) {
	switch s {
	case "eq":
		return OpStrEq, true
	case "==":
		return OpNumEq, true
	case "<=":
		return OpLE, true
	case ">=":
		return OpGE, true
	case "<":
		return OpLT, true
	case ">":
		return OpGT, true
	}
	return OpPresence, false
}

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*$`)

func validField(s string) bool {
	return fieldName.MatchString(s)
}
