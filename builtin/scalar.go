// Package builtin holds the small set of built-in scalar functions the
// planner's catalog resolves by name (spec.md §4.1's function-catalog
// dispatch) and the expression compiler evaluates at runtime. Splitting
// the metadata (ArgTypes/ReturnType, consumed by the planner for casting)
// from the implementation (consumed by the compiler) into one shared
// table keeps both in lockstep.
package builtin

import (
	"math"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/golapdb/golap/golaperr"
)

// Impl evaluates a scalar function over already-cast argument arrays.
type Impl func(mem memory.Allocator, args []arrow.Array) (arrow.Array, error)

// Func bundles a scalar function's planning metadata with its runtime
// implementation.
type Func struct {
	Name       string
	ArgTypes   []arrow.DataType
	ReturnType arrow.DataType
	Eval       Impl
}

// Scalars is the built-in scalar function catalog, keyed by lower-cased
// name (function dispatch in spec.md §4.1 is case-insensitive).
var Scalars = map[string]*Func{
	"sqrt": {
		Name:       "sqrt",
		ArgTypes:   []arrow.DataType{arrow.PrimitiveTypes.Float64},
		ReturnType: arrow.PrimitiveTypes.Float64,
		Eval:       floatUnary(math.Sqrt),
	},
	"abs": {
		Name:       "abs",
		ArgTypes:   []arrow.DataType{arrow.PrimitiveTypes.Float64},
		ReturnType: arrow.PrimitiveTypes.Float64,
		Eval:       floatUnary(math.Abs),
	},
	"upper": {
		Name:       "upper",
		ArgTypes:   []arrow.DataType{arrow.BinaryTypes.String},
		ReturnType: arrow.BinaryTypes.String,
		Eval:       stringUnary(strings.ToUpper),
	},
	"lower": {
		Name:       "lower",
		ArgTypes:   []arrow.DataType{arrow.BinaryTypes.String},
		ReturnType: arrow.BinaryTypes.String,
		Eval:       stringUnary(strings.ToLower),
	},
}

func floatUnary(f func(float64) float64) Impl {
	return func(mem memory.Allocator, args []arrow.Array) (arrow.Array, error) {
		if len(args) != 1 {
			return nil, golaperr.Newf(golaperr.ExecutionError, "expected exactly one argument")
		}
		in, ok := args[0].(*array.Float64)
		if !ok {
			return nil, golaperr.Newf(golaperr.ExecutionError, "expected Float64 argument, got %T", args[0])
		}
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for i := 0; i < in.Len(); i++ {
			if in.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(f(in.Value(i)))
		}
		return b.NewArray(), nil
	}
}

func stringUnary(f func(string) string) Impl {
	return func(mem memory.Allocator, args []arrow.Array) (arrow.Array, error) {
		if len(args) != 1 {
			return nil, golaperr.Newf(golaperr.ExecutionError, "expected exactly one argument")
		}
		in, ok := args[0].(*array.String)
		if !ok {
			return nil, golaperr.Newf(golaperr.ExecutionError, "expected Utf8 argument, got %T", args[0])
		}
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for i := 0; i < in.Len(); i++ {
			if in.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(f(in.Value(i)))
		}
		return b.NewArray(), nil
	}
}
