// Package expr implements the small arithmetic/boolean expression language
// used by tolerance-window rules such as
//
//	abs(ROW_NUMBER - $Hdr{ROW_NUMBER}) < 3
//
// It supports identifiers, numeric and quoted string literals, abs(),
// + - * /, comparison and equality operators, && and ||, and parentheses.
// $Hdr{X} tokens are compiled into reference-header nodes; bare identifiers
// resolve against the candidate header. Nothing else from the host language
// is reachable from a rule file.
package expr

import (
	"errors"
	"fmt"
	"math"

	"github.com/Starlink/ORAC-DR-sub008/pkg/header"
)

// Sentinel evaluation errors. Both disqualify a single candidate; neither
// aborts a query.
var (
	ErrMissingField = errors.New("header field missing")
	ErrNotNumeric   = errors.New("value is not numeric")
)

// Env supplies the two header sets an expression may read from.
type Env struct {
	Reference header.Set // $Hdr{X} nodes
	Candidate header.Set // bare identifiers
}

// Value is an expression result: either a number or a string.
type Value struct {
	Num   float64
	Str   string
	IsNum bool
}

func numberVal(f float64) Value { return Value{Num: f, IsNum: true} }
func stringVal(s string) Value  { return Value{Str: s} }

// fromHeader converts a header value, preferring the numeric reading.
func fromHeader(v header.Value) Value {
	if f, err := v.Float(); err == nil {
		return numberVal(f)
	}
	return stringVal(v.Text())
}

// Truthy reports whether the value counts as true: non-zero for numbers,
// non-empty and not "0" for strings.
func (v Value) Truthy() bool {
	if v.IsNum {
		return v.Num != 0
	}
	return v.Str != "" && v.Str != "0"
}

func (v Value) asFloat() (float64, error) {
	if !v.IsNum {
		return 0, fmt.Errorf("%w: %q", ErrNotNumeric, v.Str)
	}
	return v.Num, nil
}

// Node is a compiled expression node.
type Node interface {
	Eval(env Env) (Value, error)
	// String renders the node back into rule-file syntax.
	String() string
}

type numberNode struct {
	val float64
	raw string
}

func (n *numberNode) Eval(Env) (Value, error) { return numberVal(n.val), nil }
func (n *numberNode) String() string          { return n.raw }

type stringNode struct{ val string }

func (n *stringNode) Eval(Env) (Value, error) { return stringVal(n.val), nil }
func (n *stringNode) String() string          { return "'" + n.val + "'" }

// identNode reads a field from the candidate header.
type identNode struct{ name string }

func (n *identNode) Eval(env Env) (Value, error) {
	v, ok := env.Candidate.Lookup(n.name)
	if !ok {
		return Value{}, fmt.Errorf("%w: candidate %s", ErrMissingField, n.name)
	}
	return fromHeader(v), nil
}
func (n *identNode) String() string { return n.name }

// refNode reads a field from the reference header ($Hdr{X}).
type refNode struct{ name string }

func (n *refNode) Eval(env Env) (Value, error) {
	v, ok := env.Reference.Lookup(n.name)
	if !ok {
		return Value{}, fmt.Errorf("%w: reference %s", ErrMissingField, n.name)
	}
	return fromHeader(v), nil
}
func (n *refNode) String() string { return "$Hdr{" + n.name + "}" }

type unaryNode struct {
	op      string // "-" or "!"
	operand Node
}

func (n *unaryNode) Eval(env Env) (Value, error) {
	v, err := n.operand.Eval(env)
	if err != nil {
		return Value{}, err
	}
	switch n.op {
	case "-":
		f, err := v.asFloat()
		if err != nil {
			return Value{}, err
		}
		return numberVal(-f), nil
	default: // "!"
		if v.Truthy() {
			return numberVal(0), nil
		}
		return numberVal(1), nil
	}
}
func (n *unaryNode) String() string { return n.op + n.operand.String() }

type callNode struct {
	name string // only abs is defined
	arg  Node
}

func (n *callNode) Eval(env Env) (Value, error) {
	v, err := n.arg.Eval(env)
	if err != nil {
		return Value{}, err
	}
	f, err := v.asFloat()
	if err != nil {
		return Value{}, err
	}
	return numberVal(math.Abs(f)), nil
}
func (n *callNode) String() string { return n.name + "(" + n.arg.String() + ")" }

type binaryNode struct {
	op          string
	left, right Node
}

func (n *binaryNode) Eval(env Env) (Value, error) {
	// Short-circuit logical operators.
	switch n.op {
	case "&&":
		l, err := n.left.Eval(env)
		if err != nil {
			return Value{}, err
		}
		if !l.Truthy() {
			return numberVal(0), nil
		}
		r, err := n.right.Eval(env)
		if err != nil {
			return Value{}, err
		}
		return boolVal(r.Truthy()), nil
	case "||":
		l, err := n.left.Eval(env)
		if err != nil {
			return Value{}, err
		}
		if l.Truthy() {
			return numberVal(1), nil
		}
		r, err := n.right.Eval(env)
		if err != nil {
			return Value{}, err
		}
		return boolVal(r.Truthy()), nil
	}

	l, err := n.left.Eval(env)
	if err != nil {
		return Value{}, err
	}
	r, err := n.right.Eval(env)
	if err != nil {
		return Value{}, err
	}

	switch n.op {
	case "+", "-", "*", "/":
		lf, err := l.asFloat()
		if err != nil {
			return Value{}, err
		}
		rf, err := r.asFloat()
		if err != nil {
			return Value{}, err
		}
		switch n.op {
		case "+":
			return numberVal(lf + rf), nil
		case "-":
			return numberVal(lf - rf), nil
		case "*":
			return numberVal(lf * rf), nil
		default:
			if rf == 0 {
				return Value{}, fmt.Errorf("division by zero")
			}
			return numberVal(lf / rf), nil
		}
	case "==", "!=":
		eq, err := valuesEqual(l, r)
		if err != nil {
			return Value{}, err
		}
		if n.op == "!=" {
			eq = !eq
		}
		return boolVal(eq), nil
	case "<", "<=", ">", ">=":
		lf, err := l.asFloat()
		if err != nil {
			return Value{}, err
		}
		rf, err := r.asFloat()
		if err != nil {
			return Value{}, err
		}
		switch n.op {
		case "<":
			return boolVal(lf < rf), nil
		case "<=":
			return boolVal(lf <= rf), nil
		case ">":
			return boolVal(lf > rf), nil
		default:
			return boolVal(lf >= rf), nil
		}
	}
	return Value{}, fmt.Errorf("unknown operator %q", n.op)
}

func (n *binaryNode) String() string {
	return n.left.String() + " " + n.op + " " + n.right.String()
}

// valuesEqual compares numerically when both sides are numbers, otherwise
// as text.
func valuesEqual(l, r Value) (bool, error) {
	if l.IsNum && r.IsNum {
		return l.Num == r.Num, nil
	}
	return text(l) == text(r), nil
}

func text(v Value) string {
	if v.IsNum {
		return formatFloat(v.Num)
	}
	return v.Str
}

func boolVal(b bool) Value {
	if b {
		return numberVal(1)
	}
	return numberVal(0)
}
