// Package filter compiles AIP-160 filter strings into projection predicates.
//
// Filterable fields:
//
//	id     string
//	x,y,z  float (use float literals: x > 0.0)
//	state  string, "live" or "deleted"
//
// Example: state = "live" AND x > 1.0 AND z <= 4.5
package filter

import (
	"fmt"
	"strings"

	"github.com/louisbranch/solarfield/internal/field/projection"
	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Row states exposed through the state field.
const (
	StateLive    = "live"
	StateDeleted = "deleted"
)

// Live is the filter matching every panel that has not been deleted.
const Live = `state = "live"`

var declarations = mustDeclarations()

func mustDeclarations() *filtering.Declarations {
	decls, err := filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("id", filtering.TypeString),
		filtering.DeclareIdent("state", filtering.TypeString),
		filtering.DeclareIdent("x", filtering.TypeFloat),
		filtering.DeclareIdent("y", filtering.TypeFloat),
		filtering.DeclareIdent("z", filtering.TypeFloat),
	)
	if err != nil {
		panic(fmt.Sprintf("filter declarations: %v", err))
	}
	return decls
}

// Parse type-checks filterStr and returns its expression tree. An empty
// filter returns nil, which matches every row.
func Parse(filterStr string) (*expr.Expr, error) {
	if strings.TrimSpace(filterStr) == "" {
		return nil, nil
	}
	parsed, err := filtering.ParseFilterString(filterStr, declarations)
	if err != nil {
		return nil, fmt.Errorf("parse filter: %w", err)
	}
	return parsed.CheckedExpr.Expr, nil
}

// Compile parses filterStr into a predicate. Functions the evaluator does
// not support are rejected here rather than when rows are scanned.
func Compile(filterStr string) (projection.Predicate, error) {
	e, err := Parse(filterStr)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return projection.All, nil
	}
	if err := validate(e); err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}
	return func(row projection.Row) bool {
		ok, err := Evaluate(e, row)
		return err == nil && ok
	}, nil
}

// MustCompile is Compile for filters known at build time.
func MustCompile(filterStr string) projection.Predicate {
	pred, err := Compile(filterStr)
	if err != nil {
		panic(err)
	}
	return pred
}

// fieldKinds maps each filterable field to the Go type resolve returns.
var fieldKinds = map[string]string{
	"id":    "string",
	"state": "string",
	"x":     "float64",
	"y":     "float64",
	"z":     "float64",
}

func resolve(row projection.Row, name string) (any, bool) {
	switch name {
	case "id":
		return row.ID, true
	case "x":
		return row.X, true
	case "y":
		return row.Y, true
	case "z":
		return row.Z, true
	case "state":
		if row.Live() {
			return StateLive, true
		}
		return StateDeleted, true
	default:
		return nil, false
	}
}
