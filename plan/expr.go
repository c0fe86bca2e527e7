// Package plan implements the logical expression tree, the logical plan
// tree, the SQL-to-logical-plan translator, and the type system (get_type,
// supertype lattice, cast_to) that spec.md §4.1/§4.2 describe. The shape
// mirrors polarsignals-arcticdb's logicalplan.LogicalPlan from the
// retrieval pack: one tagged struct per node kind with a single non-nil
// payload selected by Kind, rather than an interface with one
// implementation per case.
package plan

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/golapdb/golap/golaperr"
	"github.com/golapdb/golap/sqltypes"
)

// ExprKind discriminates the variant carried by an Expr.
type ExprKind int

const (
	ColumnExpr ExprKind = iota
	LiteralExpr
	BinaryExprKind
	IsNullExprKind
	IsNotNullExprKind
	CastExprKind
	ScalarFunctionExprKind
	AggregateFunctionExprKind
	SortExprKind
)

// Expr is the logical scalar/aggregate expression tree. Every non-Sort
// subexpression has a derivable DataType under a given schema (GetType).
type Expr struct {
	Kind ExprKind

	// ColumnExpr
	ColumnIndex int

	// LiteralExpr
	Literal sqltypes.ScalarValue

	// BinaryExprKind
	Left  *Expr
	Op    sqltypes.Operator
	Right *Expr

	// IsNullExprKind / IsNotNullExprKind / CastExprKind / SortExprKind
	Inner *Expr

	// CastExprKind
	DataType arrow.DataType

	// ScalarFunctionExprKind / AggregateFunctionExprKind
	Name       string
	Args       []*Expr
	ReturnType arrow.DataType

	// SortExprKind
	Asc bool
}

// Column builds a Column(index) reference.
func Column(index int) *Expr { return &Expr{Kind: ColumnExpr, ColumnIndex: index} }

// Lit builds a Literal(value).
func Lit(v sqltypes.ScalarValue) *Expr { return &Expr{Kind: LiteralExpr, Literal: v} }

// Binary builds a BinaryExpr{left, op, right}.
func Binary(left *Expr, op sqltypes.Operator, right *Expr) *Expr {
	return &Expr{Kind: BinaryExprKind, Left: left, Op: op, Right: right}
}

// IsNull builds an IsNull(e).
func IsNull(e *Expr) *Expr { return &Expr{Kind: IsNullExprKind, Inner: e} }

// IsNotNull builds an IsNotNull(e).
func IsNotNull(e *Expr) *Expr { return &Expr{Kind: IsNotNullExprKind, Inner: e} }

// Cast builds a Cast{expr, data_type}.
func Cast(e *Expr, dt arrow.DataType) *Expr {
	return &Expr{Kind: CastExprKind, Inner: e, DataType: dt}
}

// ScalarFunction builds a ScalarFunction{name, args, return_type}.
func ScalarFunction(name string, args []*Expr, returnType arrow.DataType) *Expr {
	return &Expr{Kind: ScalarFunctionExprKind, Name: name, Args: args, ReturnType: returnType}
}

// AggregateFunction builds an AggregateFunction{name, args, return_type}.
func AggregateFunction(name string, args []*Expr, returnType arrow.DataType) *Expr {
	return &Expr{Kind: AggregateFunctionExprKind, Name: name, Args: args, ReturnType: returnType}
}

// SortKey builds a Sort{expr, asc}.
func SortKey(e *Expr, asc bool) *Expr { return &Expr{Kind: SortExprKind, Inner: e, Asc: asc} }

// GetType derives the DataType of e under schema, per spec.md §4.2.
func GetType(e *Expr, schema *arrow.Schema) (arrow.DataType, error) {
	switch e.Kind {
	case ColumnExpr:
		if e.ColumnIndex < 0 || e.ColumnIndex >= schema.NumFields() {
			return nil, golaperr.Newf(golaperr.General, "column index %d out of range for schema with %d fields", e.ColumnIndex, schema.NumFields())
		}
		return schema.Field(e.ColumnIndex).Type, nil
	case LiteralExpr:
		return e.Literal.Type, nil
	case BinaryExprKind:
		if e.Op.IsComparison() {
			return arrow.FixedWidthTypes.Boolean, nil
		}
		leftType, err := GetType(e.Left, schema)
		if err != nil {
			return nil, err
		}
		rightType, err := GetType(e.Right, schema)
		if err != nil {
			return nil, err
		}
		super, ok := Supertype(leftType, rightType)
		if !ok {
			return nil, golaperr.Newf(golaperr.General, "no common supertype found for binary operator %s with input types %s and %s", e.Op, leftType, rightType)
		}
		return super, nil
	case IsNullExprKind, IsNotNullExprKind:
		return arrow.FixedWidthTypes.Boolean, nil
	case CastExprKind:
		return e.DataType, nil
	case ScalarFunctionExprKind, AggregateFunctionExprKind:
		return e.ReturnType, nil
	case SortExprKind:
		return nil, golaperr.Newf(golaperr.General, "Sort has no derivable data type")
	default:
		return nil, golaperr.Newf(golaperr.General, "unknown expr kind %d", e.Kind)
	}
}

// ExprToField derives the output Field e produces under schema. A plain
// Column reference keeps the source field's name; everything else gets a
// synthesized name (scalar/aggregate functions use their own Name).
func ExprToField(e *Expr, schema *arrow.Schema) (arrow.Field, error) {
	if e.Kind == ColumnExpr {
		if e.ColumnIndex < 0 || e.ColumnIndex >= schema.NumFields() {
			return arrow.Field{}, golaperr.Newf(golaperr.General, "column index %d out of range for schema with %d fields", e.ColumnIndex, schema.NumFields())
		}
		return schema.Field(e.ColumnIndex), nil
	}
	dt, err := GetType(e, schema)
	if err != nil {
		return arrow.Field{}, err
	}
	name := "lit"
	switch e.Kind {
	case ScalarFunctionExprKind, AggregateFunctionExprKind:
		name = e.Name
	case CastExprKind:
		name = "cast"
	case BinaryExprKind:
		name = "binary_expr"
	case IsNullExprKind, IsNotNullExprKind:
		name = "binary_expr"
	}
	return arrow.Field{Name: name, Type: dt, Nullable: true}, nil
}

// ExprListToFields applies ExprToField across exprs, per exprlist_to_fields.
func ExprListToFields(exprs []*Expr, schema *arrow.Schema) ([]arrow.Field, error) {
	fields := make([]arrow.Field, len(exprs))
	for i, e := range exprs {
		f, err := ExprToField(e, schema)
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}
	return fields, nil
}

// CastTo wraps e in a Cast to dt, unless e is already of type dt (in which
// case e is returned unchanged — casts to identical type never add a
// node).
func CastTo(e *Expr, dt arrow.DataType, schema *arrow.Schema) (*Expr, error) {
	current, err := GetType(e, schema)
	if err != nil {
		return nil, err
	}
	if arrow.TypeEqual(current, dt) {
		return e, nil
	}
	return Cast(e, dt), nil
}

// ColumnsUsed recurses through e collecting every referenced Column index
// into accum. Literal is a base case and contributes nothing.
func ColumnsUsed(e *Expr, accum map[int]struct{}) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ColumnExpr:
		accum[e.ColumnIndex] = struct{}{}
	case LiteralExpr:
		// no columns
	case CastExprKind, IsNullExprKind, IsNotNullExprKind, SortExprKind:
		ColumnsUsed(e.Inner, accum)
	case BinaryExprKind:
		ColumnsUsed(e.Left, accum)
		ColumnsUsed(e.Right, accum)
	case AggregateFunctionExprKind, ScalarFunctionExprKind:
		for _, a := range e.Args {
			ColumnsUsed(a, accum)
		}
	}
}

// String renders e the way the distilled spec's worked examples print
// plans, e.g. "#4 Eq Utf8(\"CO\")".
func (e *Expr) String() string {
	switch e.Kind {
	case ColumnExpr:
		return fmt.Sprintf("#%d", e.ColumnIndex)
	case LiteralExpr:
		return e.Literal.String()
	case BinaryExprKind:
		return fmt.Sprintf("%s %s %s", e.Left, e.Op, e.Right)
	case IsNullExprKind:
		return fmt.Sprintf("%s IS NULL", e.Inner)
	case IsNotNullExprKind:
		return fmt.Sprintf("%s IS NOT NULL", e.Inner)
	case CastExprKind:
		return fmt.Sprintf("CAST(%s AS %s)", e.Inner, e.DataType)
	case ScalarFunctionExprKind, AggregateFunctionExprKind:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = a.String()
		}
		return fmt.Sprintf("%s(%s)", e.Name, strings.Join(args, ", "))
	case SortExprKind:
		dir := "ASC"
		if !e.Asc {
			dir = "DESC"
		}
		return fmt.Sprintf("%s %s", e.Inner, dir)
	default:
		return "?"
	}
}
