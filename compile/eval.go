// Package compile lowers logical plan.Expr trees against an input schema
// into RuntimeExpr closures that act on an arrow.Record, per spec.md §4's
// expression compiler stage. Aggregate compilation additionally produces
// an Accumulator factory (see aggregate.go).
package compile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/golapdb/golap/builtin"
	"github.com/golapdb/golap/golaperr"
	"github.com/golapdb/golap/plan"
	"github.com/golapdb/golap/sqltypes"
)

// RuntimeExpr is a compiled scalar expression: a name, its declared result
// type, and a function from a RecordBatch to the resulting column.
type RuntimeExpr struct {
	Name string
	Type arrow.DataType
	Eval func(rec arrow.Record) (arrow.Array, error)
}

// Compiler holds the allocator used to materialize evaluation results. The
// zero value is invalid; use NewCompiler.
type Compiler struct {
	mem memory.Allocator
}

// NewCompiler builds a Compiler backed by the given allocator.
func NewCompiler(mem memory.Allocator) *Compiler {
	return &Compiler{mem: mem}
}

// Compile lowers e (a scalar expression — not an AggregateFunction) against
// schema into a RuntimeExpr.
func (c *Compiler) Compile(e *plan.Expr, schema *arrow.Schema) (RuntimeExpr, error) {
	dt, err := plan.GetType(e, schema)
	if err != nil {
		return RuntimeExpr{}, err
	}
	name := exprName(e, schema)

	switch e.Kind {
	case plan.ColumnExpr:
		idx := e.ColumnIndex
		return RuntimeExpr{Name: name, Type: dt, Eval: func(rec arrow.Record) (arrow.Array, error) {
			arr := rec.Column(idx)
			arr.Retain()
			return arr, nil
		}}, nil

	case plan.LiteralExpr:
		lit := e.Literal
		return RuntimeExpr{Name: name, Type: dt, Eval: func(rec arrow.Record) (arrow.Array, error) {
			return c.literalArray(lit, int(rec.NumRows()))
		}}, nil

	case plan.CastExprKind:
		inner, err := c.Compile(e.Inner, schema)
		if err != nil {
			return RuntimeExpr{}, err
		}
		target := e.DataType
		return RuntimeExpr{Name: name, Type: dt, Eval: func(rec arrow.Record) (arrow.Array, error) {
			arr, err := inner.Eval(rec)
			if err != nil {
				return nil, err
			}
			defer arr.Release()
			return c.castArray(arr, target)
		}}, nil

	case plan.IsNullExprKind, plan.IsNotNullExprKind:
		inner, err := c.Compile(e.Inner, schema)
		if err != nil {
			return RuntimeExpr{}, err
		}
		wantNull := e.Kind == plan.IsNullExprKind
		return RuntimeExpr{Name: name, Type: dt, Eval: func(rec arrow.Record) (arrow.Array, error) {
			arr, err := inner.Eval(rec)
			if err != nil {
				return nil, err
			}
			defer arr.Release()
			b := array.NewBooleanBuilder(c.mem)
			defer b.Release()
			for i := 0; i < arr.Len(); i++ {
				isNull := arr.IsNull(i)
				b.Append(isNull == wantNull)
			}
			return b.NewArray(), nil
		}}, nil

	case plan.BinaryExprKind:
		return c.compileBinary(e, schema, name, dt)

	case plan.ScalarFunctionExprKind:
		return c.compileScalarFunction(e, schema, name, dt)

	case plan.AggregateFunctionExprKind:
		return RuntimeExpr{}, golaperr.Newf(golaperr.ExecutionError, "cannot evaluate an aggregate expression as a scalar expression")

	default:
		return RuntimeExpr{}, golaperr.Newf(golaperr.ExecutionError, "unsupported expression kind %d", e.Kind)
	}
}

func exprName(e *plan.Expr, schema *arrow.Schema) string {
	switch e.Kind {
	case plan.ColumnExpr:
		if e.ColumnIndex >= 0 && e.ColumnIndex < schema.NumFields() {
			return schema.Field(e.ColumnIndex).Name
		}
		return fmt.Sprintf("#%d", e.ColumnIndex)
	case plan.LiteralExpr:
		return e.Literal.String()
	case plan.ScalarFunctionExprKind, plan.AggregateFunctionExprKind:
		return e.Name
	case plan.CastExprKind:
		return "cast"
	case plan.BinaryExprKind:
		return "binary_expr"
	default:
		return e.String()
	}
}

func (c *Compiler) literalArray(lit sqltypes.ScalarValue, n int) (arrow.Array, error) {
	switch lit.Type.ID() {
	case arrow.BOOL:
		b := array.NewBooleanBuilder(c.mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			b.Append(lit.Bool)
		}
		return b.NewArray(), nil
	case arrow.STRING:
		b := array.NewStringBuilder(c.mem)
		defer b.Release()
		val := ""
		if lit.Str != nil {
			val = *lit.Str
		}
		for i := 0; i < n; i++ {
			b.Append(val)
		}
		return b.NewArray(), nil
	default:
		val := lit.AsFloat64()
		return buildNumericArray(c.mem, lit.Type, n, func(int) (float64, bool) { return val, false })
	}
}

func (c *Compiler) castArray(arr arrow.Array, target arrow.DataType) (arrow.Array, error) {
	if arrow.TypeEqual(arr.DataType(), target) {
		arr.Retain()
		return arr, nil
	}
	switch target.ID() {
	case arrow.STRING:
		b := array.NewStringBuilder(c.mem)
		defer b.Release()
		for i := 0; i < arr.Len(); i++ {
			if arr.IsNull(i) {
				b.AppendNull()
				continue
			}
			v, _ := float64At(arr, i)
			b.Append(strconv.FormatFloat(v, 'g', -1, 64))
		}
		return b.NewArray(), nil
	case arrow.BOOL:
		return nil, golaperr.Newf(golaperr.NotImplemented, "cast to Boolean is not implemented")
	default:
		if !isNumericType(target) {
			return nil, golaperr.Newf(golaperr.NotImplemented, "cast to %s is not implemented", target)
		}
		if s, ok := arr.(*array.String); ok {
			return buildNumericArray(c.mem, target, arr.Len(), func(i int) (float64, bool) {
				if s.IsNull(i) {
					return 0, true
				}
				v, err := strconv.ParseFloat(s.Value(i), 64)
				if err != nil {
					return 0, true
				}
				return v, false
			})
		}
		return buildNumericArray(c.mem, target, arr.Len(), func(i int) (float64, bool) {
			return float64At(arr, i)
		})
	}
}

func (c *Compiler) compileBinary(e *plan.Expr, schema *arrow.Schema, name string, dt arrow.DataType) (RuntimeExpr, error) {
	left, err := c.Compile(e.Left, schema)
	if err != nil {
		return RuntimeExpr{}, err
	}
	right, err := c.Compile(e.Right, schema)
	if err != nil {
		return RuntimeExpr{}, err
	}
	op := e.Op
	operandType := left.Type

	return RuntimeExpr{Name: name, Type: dt, Eval: func(rec arrow.Record) (arrow.Array, error) {
		la, err := left.Eval(rec)
		if err != nil {
			return nil, err
		}
		defer la.Release()
		ra, err := right.Eval(rec)
		if err != nil {
			return nil, err
		}
		defer ra.Release()
		return evalBinary(c.mem, op, operandType, la, ra)
	}}, nil
}

func evalBinary(mem memory.Allocator, op sqltypes.Operator, operandType arrow.DataType, la, ra arrow.Array) (arrow.Array, error) {
	n := la.Len()

	switch op {
	case sqltypes.Plus, sqltypes.Minus, sqltypes.Multiply, sqltypes.Divide, sqltypes.Modulus:
		return buildNumericArray(mem, operandType, n, func(i int) (float64, bool) {
			lv, ln := float64At(la, i)
			rv, rn := float64At(ra, i)
			if ln || rn {
				return 0, true
			}
			switch op {
			case sqltypes.Plus:
				return lv + rv, false
			case sqltypes.Minus:
				return lv - rv, false
			case sqltypes.Multiply:
				return lv * rv, false
			case sqltypes.Divide:
				if rv == 0 {
					return 0, true
				}
				return lv / rv, false
			default: // Modulus
				if rv == 0 {
					return 0, true
				}
				return float64(int64(lv) % int64(rv)), false
			}
		})

	case sqltypes.And, sqltypes.Or:
		lb, lok := la.(*array.Boolean)
		rb, rok := ra.(*array.Boolean)
		if !lok || !rok {
			return nil, golaperr.Newf(golaperr.ExecutionError, "%s requires Boolean operands", op)
		}
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			lNull, rNull := lb.IsNull(i), rb.IsNull(i)
			var lv, rv bool
			if !lNull {
				lv = lb.Value(i)
			}
			if !rNull {
				rv = rb.Value(i)
			}
			switch op {
			case sqltypes.And:
				if (!lNull && !lv) || (!rNull && !rv) {
					b.Append(false)
				} else if lNull || rNull {
					b.AppendNull()
				} else {
					b.Append(true)
				}
			default: // Or
				if (!lNull && lv) || (!rNull && rv) {
					b.Append(true)
				} else if lNull || rNull {
					b.AppendNull()
				} else {
					b.Append(false)
				}
			}
		}
		return b.NewArray(), nil

	case sqltypes.Like, sqltypes.NotLike:
		ls, lok := la.(*array.String)
		rs, rok := ra.(*array.String)
		if !lok || !rok {
			return nil, golaperr.Newf(golaperr.ExecutionError, "%s requires Utf8 operands", op)
		}
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			if ls.IsNull(i) || rs.IsNull(i) {
				b.AppendNull()
				continue
			}
			matched, err := likeMatch(ls.Value(i), rs.Value(i))
			if err != nil {
				return nil, err
			}
			if op == sqltypes.NotLike {
				matched = !matched
			}
			b.Append(matched)
		}
		return b.NewArray(), nil

	case sqltypes.Not:
		lb, ok := la.(*array.Boolean)
		if !ok {
			return nil, golaperr.Newf(golaperr.ExecutionError, "Not requires a Boolean operand")
		}
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			if lb.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(!lb.Value(i))
		}
		return b.NewArray(), nil

	default: // comparisons: Gt, GtEq, Lt, LtEq, Eq, NotEq
		return evalComparison(mem, op, operandType, la, ra)
	}
}

func evalComparison(mem memory.Allocator, op sqltypes.Operator, operandType arrow.DataType, la, ra arrow.Array) (arrow.Array, error) {
	b := array.NewBooleanBuilder(mem)
	defer b.Release()
	n := la.Len()

	if operandType.ID() == arrow.STRING {
		ls, _ := la.(*array.String)
		rs, _ := ra.(*array.String)
		for i := 0; i < n; i++ {
			if ls.IsNull(i) || rs.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(compareOrdered(strings.Compare(ls.Value(i), rs.Value(i)), op))
		}
		return b.NewArray(), nil
	}

	if operandType.ID() == arrow.BOOL {
		lb, _ := la.(*array.Boolean)
		rb, _ := ra.(*array.Boolean)
		for i := 0; i < n; i++ {
			if lb.IsNull(i) || rb.IsNull(i) {
				b.AppendNull()
				continue
			}
			eq := lb.Value(i) == rb.Value(i)
			switch op {
			case sqltypes.Eq:
				b.Append(eq)
			case sqltypes.NotEq:
				b.Append(!eq)
			default:
				return nil, golaperr.Newf(golaperr.ExecutionError, "operator %s is not defined for Boolean", op)
			}
		}
		return b.NewArray(), nil
	}

	for i := 0; i < n; i++ {
		lv, lnull := float64At(la, i)
		rv, rnull := float64At(ra, i)
		if lnull || rnull {
			b.AppendNull()
			continue
		}
		cmp := 0
		switch {
		case lv < rv:
			cmp = -1
		case lv > rv:
			cmp = 1
		}
		b.Append(compareOrdered(cmp, op))
	}
	return b.NewArray(), nil
}

func compareOrdered(cmp int, op sqltypes.Operator) bool {
	switch op {
	case sqltypes.Eq:
		return cmp == 0
	case sqltypes.NotEq:
		return cmp != 0
	case sqltypes.Lt:
		return cmp < 0
	case sqltypes.LtEq:
		return cmp <= 0
	case sqltypes.Gt:
		return cmp > 0
	case sqltypes.GtEq:
		return cmp >= 0
	default:
		return false
	}
}

var (
	likeRegexMu    sync.Mutex
	likeRegexCache = map[string]*regexp.Regexp{}
)

func likeMatch(value, pattern string) (bool, error) {
	likeRegexMu.Lock()
	defer likeRegexMu.Unlock()
	re, ok := likeRegexCache[pattern]
	if !ok {
		var sb strings.Builder
		sb.WriteString("^")
		for _, r := range pattern {
			switch r {
			case '%':
				sb.WriteString(".*")
			case '_':
				sb.WriteString(".")
			default:
				sb.WriteString(regexp.QuoteMeta(string(r)))
			}
		}
		sb.WriteString("$")
		var err error
		re, err = regexp.Compile(sb.String())
		if err != nil {
			return false, golaperr.Wrap(golaperr.ExecutionError, err, "invalid LIKE pattern")
		}
		likeRegexCache[pattern] = re
	}
	return re.MatchString(value), nil
}

func (c *Compiler) compileScalarFunction(e *plan.Expr, schema *arrow.Schema, name string, dt arrow.DataType) (RuntimeExpr, error) {
	fn, ok := builtin.Scalars[strings.ToLower(e.Name)]
	if !ok {
		return RuntimeExpr{}, golaperr.Newf(golaperr.General, "Invalid function '%s'", e.Name)
	}
	argExprs := make([]RuntimeExpr, len(e.Args))
	for i, a := range e.Args {
		compiled, err := c.Compile(a, schema)
		if err != nil {
			return RuntimeExpr{}, err
		}
		argExprs[i] = compiled
	}
	mem := c.mem
	return RuntimeExpr{Name: name, Type: dt, Eval: func(rec arrow.Record) (arrow.Array, error) {
		args := make([]arrow.Array, len(argExprs))
		for i, a := range argExprs {
			arr, err := a.Eval(rec)
			if err != nil {
				return nil, err
			}
			args[i] = arr
		}
		defer func() {
			for _, a := range args {
				a.Release()
			}
		}()
		return fn.Eval(mem, args)
	}}, nil
}
