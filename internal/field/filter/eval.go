package filter

import (
	"cmp"
	"fmt"

	"github.com/louisbranch/solarfield/internal/field/projection"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Evaluate reports whether row satisfies e. A nil expression matches.
func Evaluate(e *expr.Expr, row projection.Row) (bool, error) {
	if e == nil {
		return true, nil
	}
	call, ok := e.ExprKind.(*expr.Expr_CallExpr)
	if !ok {
		return false, fmt.Errorf("unsupported expression type: %T", e.ExprKind)
	}
	fn := call.CallExpr.Function
	args := call.CallExpr.Args

	switch fn {
	case "AND", "_&&_":
		if len(args) != 2 {
			return false, fmt.Errorf("%s requires 2 arguments", fn)
		}
		left, err := Evaluate(args[0], row)
		if err != nil || !left {
			return false, err
		}
		return Evaluate(args[1], row)
	case "OR", "_||_":
		if len(args) != 2 {
			return false, fmt.Errorf("%s requires 2 arguments", fn)
		}
		left, err := Evaluate(args[0], row)
		if err != nil {
			return false, err
		}
		if left {
			return true, nil
		}
		return Evaluate(args[1], row)
	case "NOT", "!_":
		if len(args) != 1 {
			return false, fmt.Errorf("%s requires 1 argument", fn)
		}
		inner, err := Evaluate(args[0], row)
		return !inner && err == nil, err
	}

	op, ok := comparisons[fn]
	if !ok {
		return false, fmt.Errorf("unsupported function: %s", fn)
	}
	if len(args) != 2 {
		return false, fmt.Errorf("comparison requires 2 arguments")
	}
	ident, ok := args[0].ExprKind.(*expr.Expr_IdentExpr)
	if !ok {
		return false, fmt.Errorf("expected field name, got %T", args[0].ExprKind)
	}
	left, ok := resolve(row, ident.IdentExpr.Name)
	if !ok {
		return false, fmt.Errorf("unknown field: %s", ident.IdentExpr.Name)
	}
	constant, ok := args[1].ExprKind.(*expr.Expr_ConstExpr)
	if !ok {
		return false, fmt.Errorf("expected constant, got %T", args[1].ExprKind)
	}
	right, err := constantValue(constant.ConstExpr)
	if err != nil {
		return false, err
	}
	order, err := compare(left, right)
	if err != nil {
		return false, fmt.Errorf("field %s: %w", ident.IdentExpr.Name, err)
	}
	return op(order), nil
}

// validate walks every branch of e and rejects what Evaluate cannot handle,
// so a compiled predicate never fails on a row.
func validate(e *expr.Expr) error {
	call, ok := e.GetExprKind().(*expr.Expr_CallExpr)
	if !ok {
		return fmt.Errorf("unsupported expression type: %T", e.GetExprKind())
	}
	fn := call.CallExpr.Function
	args := call.CallExpr.Args

	switch fn {
	case "AND", "_&&_", "OR", "_||_":
		if len(args) != 2 {
			return fmt.Errorf("%s requires 2 arguments", fn)
		}
		if err := validate(args[0]); err != nil {
			return err
		}
		return validate(args[1])
	case "NOT", "!_":
		if len(args) != 1 {
			return fmt.Errorf("%s requires 1 argument", fn)
		}
		return validate(args[0])
	}

	if _, ok := comparisons[fn]; !ok {
		return fmt.Errorf("unsupported function: %s", fn)
	}
	if len(args) != 2 {
		return fmt.Errorf("comparison requires 2 arguments")
	}
	ident, ok := args[0].GetExprKind().(*expr.Expr_IdentExpr)
	if !ok {
		return fmt.Errorf("expected field name, got %T", args[0].GetExprKind())
	}
	kind, ok := fieldKinds[ident.IdentExpr.Name]
	if !ok {
		return fmt.Errorf("unknown field: %s", ident.IdentExpr.Name)
	}
	constant, ok := args[1].GetExprKind().(*expr.Expr_ConstExpr)
	if !ok {
		return fmt.Errorf("expected constant, got %T", args[1].GetExprKind())
	}
	value, err := constantValue(constant.ConstExpr)
	if err != nil {
		return err
	}
	if got := fmt.Sprintf("%T", value); got != kind {
		return fmt.Errorf("field %s: type mismatch: %s vs %s", ident.IdentExpr.Name, kind, got)
	}
	return nil
}

var comparisons = map[string]func(int) bool{
	"=":  func(c int) bool { return c == 0 },
	"!=": func(c int) bool { return c != 0 },
	"<":  func(c int) bool { return c < 0 },
	"<=": func(c int) bool { return c <= 0 },
	">":  func(c int) bool { return c > 0 },
	">=": func(c int) bool { return c >= 0 },

	"_==_": func(c int) bool { return c == 0 },
	"_!=_": func(c int) bool { return c != 0 },
	"_<_":  func(c int) bool { return c < 0 },
	"_<=_": func(c int) bool { return c <= 0 },
	"_>_":  func(c int) bool { return c > 0 },
	"_>=_": func(c int) bool { return c >= 0 },
}

func constantValue(c *expr.Constant) (any, error) {
	switch kind := c.GetConstantKind().(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_DoubleValue:
		return kind.DoubleValue, nil
	case *expr.Constant_Int64Value:
		return float64(kind.Int64Value), nil
	case *expr.Constant_Uint64Value:
		return float64(kind.Uint64Value), nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}

func compare(left, right any) (int, error) {
	switch l := left.(type) {
	case string:
		r, ok := right.(string)
		if !ok {
			return 0, fmt.Errorf("type mismatch: string vs %T", right)
		}
		return cmp.Compare(l, r), nil
	case float64:
		r, ok := right.(float64)
		if !ok {
			return 0, fmt.Errorf("type mismatch: float vs %T", right)
		}
		return cmp.Compare(l, r), nil
	default:
		return 0, fmt.Errorf("unsupported value type: %T", left)
	}
}
