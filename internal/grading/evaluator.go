package grading

import (
	"fmt"
	"math"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/operators"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/shopspring/decimal"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// allowedCalls is the operator whitelist for grading expressions.
var allowedCalls = map[string]bool{
	operators.Add:           true,
	operators.Subtract:      true,
	operators.Multiply:      true,
	operators.Divide:        true,
	operators.Negate:        true,
	operators.Equals:        true,
	operators.NotEquals:     true,
	operators.Less:          true,
	operators.LessEquals:    true,
	operators.Greater:       true,
	operators.GreaterEquals: true,
	operators.LogicalAnd:    true,
	operators.LogicalOr:     true,
	operators.LogicalNot:    true,
}

// Evaluator evaluates grading expressions. It is safe for concurrent use;
// compiled programs are cached per translated source.
type Evaluator struct {
	env *cel.Env

	mu       sync.Mutex
	programs map[string]cel.Program
}

// NewEvaluator returns an evaluator with an empty variable environment.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("grading environment: %w", err)
	}
	return &Evaluator{env: env, programs: make(map[string]cel.Program)}, nil
}

// Number evaluates an arithmetic expression.
func (e *Evaluator) Number(expr string) (decimal.Decimal, error) {
	val, err := e.eval(expr)
	if err != nil {
		return decimal.Zero, err
	}
	d, ok := val.(types.Double)
	if !ok {
		return decimal.Zero, &ExpressionError{Expr: expr, Message: fmt.Sprintf("want a number, got %s", val.Type().TypeName())}
	}
	f := float64(d)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, &ExpressionError{Expr: expr, Message: "result is not a finite number"}
	}
	return decimal.NewFromFloat(f), nil
}

// Bool evaluates a boolean expression.
func (e *Evaluator) Bool(expr string) (bool, error) {
	val, err := e.eval(expr)
	if err != nil {
		return false, err
	}
	b, ok := val.(types.Bool)
	if !ok {
		return false, &ExpressionError{Expr: expr, Message: fmt.Sprintf("want a boolean, got %s", val.Type().TypeName())}
	}
	return bool(b), nil
}

func (e *Evaluator) eval(expr string) (ref.Val, error) {
	src, err := translate(expr)
	if err != nil {
		return nil, err
	}
	prg, err := e.program(expr, src)
	if err != nil {
		return nil, err
	}
	val, _, err := prg.Eval(map[string]any{})
	if err != nil {
		return nil, &ExpressionError{Expr: expr, Message: "evaluation failed", Err: err}
	}
	return val, nil
}

func (e *Evaluator) program(expr, src string) (cel.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if prg, ok := e.programs[src]; ok {
		return prg, nil
	}

	parsed, issues := e.env.Parse(src)
	if issues != nil && issues.Err() != nil {
		return nil, &ExpressionError{Expr: expr, Message: "parse failed", Err: issues.Err()}
	}
	if err := checkRestricted(parsed.Expr()); err != nil { //nolint:staticcheck // exprpb is the traversable form
		return nil, &ExpressionError{Expr: expr, Message: "forbidden construct", Err: err}
	}

	checked, issues := e.env.Check(parsed)
	if issues != nil && issues.Err() != nil {
		return nil, &ExpressionError{Expr: expr, Message: "type check failed", Err: issues.Err()}
	}
	prg, err := e.env.Program(checked)
	if err != nil {
		return nil, &ExpressionError{Expr: expr, Message: "program construction failed", Err: err}
	}
	e.programs[src] = prg
	return prg, nil
}

// checkRestricted walks the parsed expression and rejects everything but
// double and bool literals combined by whitelisted operators.
func checkRestricted(ex *exprpb.Expr) error {
	if ex == nil {
		return nil
	}
	switch k := ex.ExprKind.(type) {
	case *exprpb.Expr_ConstExpr:
		switch k.ConstExpr.ConstantKind.(type) {
		case *exprpb.Constant_DoubleValue, *exprpb.Constant_BoolValue:
			return nil
		default:
			return fmt.Errorf("literal %v is not allowed", k.ConstExpr)
		}
	case *exprpb.Expr_CallExpr:
		call := k.CallExpr
		if call.Target != nil || !allowedCalls[call.Function] {
			return fmt.Errorf("call %s is not allowed", call.Function)
		}
		for _, arg := range call.Args {
			if err := checkRestricted(arg); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("expression kind %T is not allowed", k)
	}
}
