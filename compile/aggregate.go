package compile

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/golapdb/golap/golaperr"
	"github.com/golapdb/golap/plan"
)

// Accumulator folds a stream of input batches into a single scalar value,
// per spec.md §4.4's aggregate operator. Update is called once per input
// batch with the already-evaluated argument column; Value is called once
// after the final batch.
type Accumulator interface {
	Update(arg arrow.Array) error
	Value() (arrow.Array, error)
}

// AggregateExpr is a compiled aggregate expression: its result name and
// type (for schema construction) plus the argument RuntimeExpr and an
// Accumulator factory the physical Aggregate operator instantiates once
// per group.
type AggregateExpr struct {
	Name   string
	Type   arrow.DataType
	Arg    RuntimeExpr
	NewAcc func() Accumulator
}

// CompileAggregate lowers an AggregateFunction expression against schema.
// e must have Kind == plan.AggregateFunctionExprKind with exactly one
// argument (COUNT(*) is represented by the planner as COUNT(#0), per
// SPEC_FULL.md's documented reproduction of the teacher's gap).
func (c *Compiler) CompileAggregate(e *plan.Expr, schema *arrow.Schema) (AggregateExpr, error) {
	if e.Kind != plan.AggregateFunctionExprKind {
		return AggregateExpr{}, golaperr.Newf(golaperr.ExecutionError, "expected an aggregate expression, got %s", e)
	}
	if len(e.Args) != 1 {
		return AggregateExpr{}, golaperr.Newf(golaperr.General, "aggregate function %s requires exactly one argument", e.Name)
	}
	argExpr, err := c.Compile(e.Args[0], schema)
	if err != nil {
		return AggregateExpr{}, err
	}

	fnName := strings.ToUpper(e.Name)
	resultType := e.ReturnType
	mem := c.mem

	var newAcc func() Accumulator
	switch fnName {
	case "MIN":
		newAcc = func() Accumulator { return &minMaxAccumulator{mem: mem, dtype: resultType, isMin: true} }
	case "MAX":
		newAcc = func() Accumulator { return &minMaxAccumulator{mem: mem, dtype: resultType, isMin: false} }
	case "SUM":
		newAcc = func() Accumulator { return &sumAccumulator{mem: mem, dtype: resultType} }
	case "AVG":
		newAcc = func() Accumulator { return &avgAccumulator{mem: mem} }
	case "COUNT":
		newAcc = func() Accumulator { return &countAccumulator{mem: mem} }
	default:
		return AggregateExpr{}, golaperr.Newf(golaperr.General, "Invalid aggregate function '%s'", e.Name)
	}

	return AggregateExpr{
		Name:   e.String(),
		Type:   resultType,
		Arg:    argExpr,
		NewAcc: newAcc,
	}, nil
}

// minMaxAccumulator implements MIN/MAX over any numeric, Utf8, or Boolean
// column, ignoring null inputs per SQL aggregate semantics.
type minMaxAccumulator struct {
	mem      memory.Allocator
	dtype    arrow.DataType
	isMin    bool
	hasValue bool
	numVal   float64
	strVal   string
	boolVal  bool
}

func (a *minMaxAccumulator) Update(arg arrow.Array) error {
	switch arg.DataType().ID() {
	case arrow.STRING:
		s := arg.(*array.String)
		for i := 0; i < s.Len(); i++ {
			if s.IsNull(i) {
				continue
			}
			v := s.Value(i)
			if !a.hasValue || (a.isMin && v < a.strVal) || (!a.isMin && v > a.strVal) {
				a.strVal = v
				a.hasValue = true
			}
		}
	case arrow.BOOL:
		b := arg.(*array.Boolean)
		for i := 0; i < b.Len(); i++ {
			if b.IsNull(i) {
				continue
			}
			v := b.Value(i)
			if !a.hasValue {
				a.boolVal = v
				a.hasValue = true
				continue
			}
			if a.isMin {
				a.boolVal = a.boolVal && v
			} else {
				a.boolVal = a.boolVal || v
			}
		}
	default:
		for i := 0; i < arg.Len(); i++ {
			v, isNull := float64At(arg, i)
			if isNull {
				continue
			}
			if !a.hasValue || (a.isMin && v < a.numVal) || (!a.isMin && v > a.numVal) {
				a.numVal = v
				a.hasValue = true
			}
		}
	}
	return nil
}

func (a *minMaxAccumulator) Value() (arrow.Array, error) {
	switch a.dtype.ID() {
	case arrow.STRING:
		b := array.NewStringBuilder(a.mem)
		defer b.Release()
		if a.hasValue {
			b.Append(a.strVal)
		} else {
			b.AppendNull()
		}
		return b.NewArray(), nil
	case arrow.BOOL:
		b := array.NewBooleanBuilder(a.mem)
		defer b.Release()
		if a.hasValue {
			b.Append(a.boolVal)
		} else {
			b.AppendNull()
		}
		return b.NewArray(), nil
	default:
		has := a.hasValue
		val := a.numVal
		return buildNumericArray(a.mem, a.dtype, 1, func(int) (float64, bool) { return val, !has })
	}
}

// sumAccumulator implements SUM, ignoring null inputs. SUM of an all-null
// group yields a null result, matching SQL semantics.
type sumAccumulator struct {
	mem      memory.Allocator
	dtype    arrow.DataType
	total    float64
	hasValue bool
}

func (a *sumAccumulator) Update(arg arrow.Array) error {
	for i := 0; i < arg.Len(); i++ {
		v, isNull := float64At(arg, i)
		if isNull {
			continue
		}
		a.total += v
		a.hasValue = true
	}
	return nil
}

func (a *sumAccumulator) Value() (arrow.Array, error) {
	has := a.hasValue
	total := a.total
	return buildNumericArray(a.mem, a.dtype, 1, func(int) (float64, bool) { return total, !has })
}

// avgAccumulator implements AVG as a running sum and count, always
// producing Float64, per spec.md §4.4's documented wide-type promotion.
type avgAccumulator struct {
	mem   memory.Allocator
	total float64
	count int64
}

func (a *avgAccumulator) Update(arg arrow.Array) error {
	for i := 0; i < arg.Len(); i++ {
		v, isNull := float64At(arg, i)
		if isNull {
			continue
		}
		a.total += v
		a.count++
	}
	return nil
}

func (a *avgAccumulator) Value() (arrow.Array, error) {
	b := array.NewFloat64Builder(a.mem)
	defer b.Release()
	if a.count == 0 {
		b.AppendNull()
	} else {
		b.Append(a.total / float64(a.count))
	}
	return b.NewArray(), nil
}

// countAccumulator implements COUNT, which counts non-null input rows
// (including COUNT(#0) standing in for COUNT(*), per SPEC_FULL.md) and
// always produces Int64.
type countAccumulator struct {
	mem   memory.Allocator
	count int64
}

func (a *countAccumulator) Update(arg arrow.Array) error {
	for i := 0; i < arg.Len(); i++ {
		if !arg.IsNull(i) {
			a.count++
		}
	}
	return nil
}

func (a *countAccumulator) Value() (arrow.Array, error) {
	b := array.NewInt64Builder(a.mem)
	defer b.Release()
	b.Append(a.count)
	return b.NewArray(), nil
}
