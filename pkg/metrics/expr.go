package metrics

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strconv"
	"strings"

	"github.com/ojasjagtap/prompt-ide/pkg/core"
	"github.com/ojasjagtap/prompt-ide/pkg/errors"
	"github.com/ojasjagtap/prompt-ide/pkg/logging"
)

// Custom metrics are closed expressions over the two answer strings, not
// arbitrary code. The expression is parsed and checked against a fixed
// set of identifiers, operators and helper functions at build time, so a
// bad metric fails the job before any model call is made.
//
// The code must bind the expression to the fixed entry-point name:
//
//	metric_function(expected, predicted) = <expr>
//
// Available inside <expr>: the string variables `expected` and
// `predicted`; the helpers contains, equals, lower, upper, trim, len,
// startswith, endswith; comparison, boolean and arithmetic operators; and
// string, number and bool literals. A bool result scores 1 or 0; a
// numeric result is clamped to [0, 1].

var definitionRe = regexp.MustCompile(`(?s)^metric_function\s*\(\s*expected\s*,\s*predicted\s*\)\s*=\s*(.+)$`)

var allowedFuncs = map[string]int{
	"contains":   2,
	"equals":     2,
	"startswith": 2,
	"endswith":   2,
	"lower":      1,
	"upper":      1,
	"trim":       1,
	"len":        1,
}

var allowedOps = map[token.Token]bool{
	token.EQL: true, token.NEQ: true,
	token.LSS: true, token.LEQ: true,
	token.GTR: true, token.GEQ: true,
	token.LAND: true, token.LOR: true,
	token.ADD: true, token.SUB: true,
	token.MUL: true, token.QUO: true,
}

// compileCustomMetric validates and compiles a custom metric expression.
func compileCustomMetric(code string) (Metric, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New(errors.MetricCompileFailed, "custom metric requires a non-empty 'code' field")
	}

	m := definitionRe.FindStringSubmatch(code)
	if m == nil {
		return nil, errors.New(errors.MetricCompileFailed,
			"custom metric code must define 'metric_function(expected, predicted) = <expr>'")
	}
	code = strings.TrimSpace(m[1])

	expr, err := parser.ParseExpr(code)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.MetricCompileFailed, "failed to parse custom metric expression"),
			errors.Fields{
				"expression": code,
			})
	}

	if err := checkExpr(expr); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.MetricCompileFailed, "custom metric expression not allowed"),
			errors.Fields{
				"expression": code,
			})
	}

	return func(ctx context.Context, expected core.Example, prediction map[string]interface{}) float64 {
		env := map[string]exprValue{
			"expected":  {kind: kindString, str: strings.TrimSpace(expected.Answer())},
			"predicted": {kind: kindString, str: strings.TrimSpace(core.StringField(prediction, "answer"))},
		}
		v, err := evalExpr(expr, env)
		if err != nil {
			logging.GetLogger().Warn(ctx, "custom metric evaluation failed: %v", err)
			return 0.0
		}
		return v.score()
	}, nil
}

// checkExpr walks the parsed expression and rejects anything outside the
// closed namespace before the job is allowed to proceed.
func checkExpr(expr ast.Expr) error {
	switch e := expr.(type) {
	case *ast.BasicLit:
		switch e.Kind {
		case token.STRING, token.INT, token.FLOAT:
			return nil
		}
		return fmt.Errorf("literal kind %s not allowed", e.Kind)

	case *ast.Ident:
		switch e.Name {
		case "expected", "predicted", "true", "false":
			return nil
		}
		return fmt.Errorf("unknown identifier %q", e.Name)

	case *ast.ParenExpr:
		return checkExpr(e.X)

	case *ast.UnaryExpr:
		if e.Op != token.NOT && e.Op != token.SUB {
			return fmt.Errorf("unary operator %s not allowed", e.Op)
		}
		return checkExpr(e.X)

	case *ast.BinaryExpr:
		if !allowedOps[e.Op] {
			return fmt.Errorf("operator %s not allowed", e.Op)
		}
		if err := checkExpr(e.X); err != nil {
			return err
		}
		return checkExpr(e.Y)

	case *ast.CallExpr:
		ident, ok := e.Fun.(*ast.Ident)
		if !ok {
			return fmt.Errorf("only direct helper calls are allowed")
		}
		arity, ok := allowedFuncs[ident.Name]
		if !ok {
			return fmt.Errorf("unknown function %q", ident.Name)
		}
		if len(e.Args) != arity {
			return fmt.Errorf("%s expects %d argument(s), got %d", ident.Name, arity, len(e.Args))
		}
		for _, arg := range e.Args {
			if err := checkExpr(arg); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("expression node %T not allowed", expr)
	}
}

type valueKind int

const (
	kindString valueKind = iota
	kindNumber
	kindBool
)

type exprValue struct {
	kind valueKind
	str  string
	num  float64
	b    bool
}

func stringVal(s string) exprValue  { return exprValue{kind: kindString, str: s} }
func numberVal(f float64) exprValue { return exprValue{kind: kindNumber, num: f} }
func boolVal(b bool) exprValue      { return exprValue{kind: kindBool, b: b} }

func (v exprValue) score() float64 {
	switch v.kind {
	case kindBool:
		if v.b {
			return 1.0
		}
		return 0.0
	case kindNumber:
		if v.num < 0 {
			return 0.0
		}
		if v.num > 1 {
			return 1.0
		}
		return v.num
	default:
		return 0.0
	}
}

func evalExpr(expr ast.Expr, env map[string]exprValue) (exprValue, error) {
	switch e := expr.(type) {
	case *ast.BasicLit:
		switch e.Kind {
		case token.STRING:
			s, err := strconv.Unquote(e.Value)
			if err != nil {
				return exprValue{}, err
			}
			return stringVal(s), nil
		case token.INT, token.FLOAT:
			f, err := strconv.ParseFloat(e.Value, 64)
			if err != nil {
				return exprValue{}, err
			}
			return numberVal(f), nil
		}
		return exprValue{}, fmt.Errorf("unsupported literal %s", e.Value)

	case *ast.Ident:
		switch e.Name {
		case "true":
			return boolVal(true), nil
		case "false":
			return boolVal(false), nil
		}
		if v, ok := env[e.Name]; ok {
			return v, nil
		}
		return exprValue{}, fmt.Errorf("unknown identifier %q", e.Name)

	case *ast.ParenExpr:
		return evalExpr(e.X, env)

	case *ast.UnaryExpr:
		v, err := evalExpr(e.X, env)
		if err != nil {
			return exprValue{}, err
		}
		switch e.Op {
		case token.NOT:
			if v.kind != kindBool {
				return exprValue{}, fmt.Errorf("! requires a bool operand")
			}
			return boolVal(!v.b), nil
		case token.SUB:
			if v.kind != kindNumber {
				return exprValue{}, fmt.Errorf("unary - requires a numeric operand")
			}
			return numberVal(-v.num), nil
		}
		return exprValue{}, fmt.Errorf("unsupported unary operator %s", e.Op)

	case *ast.BinaryExpr:
		return evalBinary(e, env)

	case *ast.CallExpr:
		return evalCall(e, env)

	default:
		return exprValue{}, fmt.Errorf("unsupported expression node %T", expr)
	}
}

func evalBinary(e *ast.BinaryExpr, env map[string]exprValue) (exprValue, error) {
	// Short-circuit the boolean operators.
	if e.Op == token.LAND || e.Op == token.LOR {
		left, err := evalExpr(e.X, env)
		if err != nil {
			return exprValue{}, err
		}
		if left.kind != kindBool {
			return exprValue{}, fmt.Errorf("%s requires bool operands", e.Op)
		}
		if e.Op == token.LAND && !left.b {
			return boolVal(false), nil
		}
		if e.Op == token.LOR && left.b {
			return boolVal(true), nil
		}
		right, err := evalExpr(e.Y, env)
		if err != nil {
			return exprValue{}, err
		}
		if right.kind != kindBool {
			return exprValue{}, fmt.Errorf("%s requires bool operands", e.Op)
		}
		return boolVal(right.b), nil
	}

	left, err := evalExpr(e.X, env)
	if err != nil {
		return exprValue{}, err
	}
	right, err := evalExpr(e.Y, env)
	if err != nil {
		return exprValue{}, err
	}

	switch e.Op {
	case token.EQL, token.NEQ:
		eq, err := valuesEqual(left, right)
		if err != nil {
			return exprValue{}, err
		}
		if e.Op == token.NEQ {
			eq = !eq
		}
		return boolVal(eq), nil

	case token.LSS, token.LEQ, token.GTR, token.GEQ:
		if left.kind != kindNumber || right.kind != kindNumber {
			return exprValue{}, fmt.Errorf("%s requires numeric operands", e.Op)
		}
		switch e.Op {
		case token.LSS:
			return boolVal(left.num < right.num), nil
		case token.LEQ:
			return boolVal(left.num <= right.num), nil
		case token.GTR:
			return boolVal(left.num > right.num), nil
		default:
			return boolVal(left.num >= right.num), nil
		}

	case token.ADD:
		if left.kind == kindString && right.kind == kindString {
			return stringVal(left.str + right.str), nil
		}
		if left.kind == kindNumber && right.kind == kindNumber {
			return numberVal(left.num + right.num), nil
		}
		return exprValue{}, fmt.Errorf("+ requires two strings or two numbers")

	case token.SUB, token.MUL, token.QUO:
		if left.kind != kindNumber || right.kind != kindNumber {
			return exprValue{}, fmt.Errorf("%s requires numeric operands", e.Op)
		}
		switch e.Op {
		case token.SUB:
			return numberVal(left.num - right.num), nil
		case token.MUL:
			return numberVal(left.num * right.num), nil
		default:
			if right.num == 0 {
				return exprValue{}, fmt.Errorf("division by zero")
			}
			return numberVal(left.num / right.num), nil
		}
	}

	return exprValue{}, fmt.Errorf("unsupported operator %s", e.Op)
}

func valuesEqual(a, b exprValue) (bool, error) {
	if a.kind != b.kind {
		return false, fmt.Errorf("cannot compare %v and %v", a.kind, b.kind)
	}
	switch a.kind {
	case kindString:
		return a.str == b.str, nil
	case kindNumber:
		return a.num == b.num, nil
	default:
		return a.b == b.b, nil
	}
}

func evalCall(e *ast.CallExpr, env map[string]exprValue) (exprValue, error) {
	name := e.Fun.(*ast.Ident).Name

	args := make([]exprValue, len(e.Args))
	for i, arg := range e.Args {
		v, err := evalExpr(arg, env)
		if err != nil {
			return exprValue{}, err
		}
		args[i] = v
	}

	needStrings := func(n int) error {
		for i := 0; i < n; i++ {
			if args[i].kind != kindString {
				return fmt.Errorf("%s requires string argument(s)", name)
			}
		}
		return nil
	}

	switch name {
	case "contains":
		if err := needStrings(2); err != nil {
			return exprValue{}, err
		}
		return boolVal(strings.Contains(args[0].str, args[1].str)), nil
	case "equals":
		if err := needStrings(2); err != nil {
			return exprValue{}, err
		}
		return boolVal(args[0].str == args[1].str), nil
	case "startswith":
		if err := needStrings(2); err != nil {
			return exprValue{}, err
		}
		return boolVal(strings.HasPrefix(args[0].str, args[1].str)), nil
	case "endswith":
		if err := needStrings(2); err != nil {
			return exprValue{}, err
		}
		return boolVal(strings.HasSuffix(args[0].str, args[1].str)), nil
	case "lower":
		if err := needStrings(1); err != nil {
			return exprValue{}, err
		}
		return stringVal(strings.ToLower(args[0].str)), nil
	case "upper":
		if err := needStrings(1); err != nil {
			return exprValue{}, err
		}
		return stringVal(strings.ToUpper(args[0].str)), nil
	case "trim":
		if err := needStrings(1); err != nil {
			return exprValue{}, err
		}
		return stringVal(strings.TrimSpace(args[0].str)), nil
	case "len":
		if err := needStrings(1); err != nil {
			return exprValue{}, err
		}
		return numberVal(float64(len(args[0].str))), nil
	}

	return exprValue{}, fmt.Errorf("unknown function %q", name)
}
