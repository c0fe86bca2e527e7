package compile

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golapdb/golap/plan"
)

func TestCompileAggregateMinMax(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{{Name: "age", Type: arrow.PrimitiveTypes.Int32}}, nil)

	ageB := array.NewInt32Builder(mem)
	ageB.AppendValues([]int32{30, 18, 65, 40}, nil)
	ageArr := ageB.NewArray()
	ageB.Release()
	rec := array.NewRecord(schema, []arrow.Array{ageArr}, 4)
	ageArr.Release()
	defer rec.Release()

	c := NewCompiler(mem)
	minExpr := plan.AggregateFunction("MIN", []*plan.Expr{plan.Column(0)}, arrow.PrimitiveTypes.Int32)
	minAgg, err := c.CompileAggregate(minExpr, schema)
	require.NoError(t, err)

	acc := minAgg.NewAcc()
	arg, err := minAgg.Arg.Eval(rec)
	require.NoError(t, err)
	defer arg.Release()
	require.NoError(t, acc.Update(arg))

	val, err := acc.Value()
	require.NoError(t, err)
	defer val.Release()
	assert.Equal(t, int32(18), val.(*array.Int32).Value(0))
}

func TestCompileAggregateCountIgnoresNullsInArgument(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{{Name: "x", Type: arrow.PrimitiveTypes.Int64}}, nil)

	xB := array.NewInt64Builder(mem)
	xB.Append(1)
	xB.AppendNull()
	xB.Append(3)
	xArr := xB.NewArray()
	xB.Release()
	rec := array.NewRecord(schema, []arrow.Array{xArr}, 3)
	xArr.Release()
	defer rec.Release()

	c := NewCompiler(mem)
	countExpr := plan.AggregateFunction("COUNT", []*plan.Expr{plan.Column(0)}, arrow.PrimitiveTypes.Int64)
	ce, err := c.CompileAggregate(countExpr, schema)
	require.NoError(t, err)

	acc := ce.NewAcc()
	arg, err := ce.Arg.Eval(rec)
	require.NoError(t, err)
	defer arg.Release()
	require.NoError(t, acc.Update(arg))

	val, err := acc.Value()
	require.NoError(t, err)
	defer val.Release()
	assert.Equal(t, int64(2), val.(*array.Int64).Value(0))
}

func TestCompileAggregateAvgOverEmptyGroupIsNull(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{{Name: "x", Type: arrow.PrimitiveTypes.Int64}}, nil)

	c := NewCompiler(mem)
	avgExpr := plan.AggregateFunction("AVG", []*plan.Expr{plan.Column(0)}, arrow.PrimitiveTypes.Float64)
	ae, err := c.CompileAggregate(avgExpr, schema)
	require.NoError(t, err)

	acc := ae.NewAcc()
	val, err := acc.Value()
	require.NoError(t, err)
	defer val.Release()
	assert.True(t, val.IsNull(0))
}

func TestCompileAggregateUnknownFunctionErrors(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{{Name: "x", Type: arrow.PrimitiveTypes.Int64}}, nil)
	c := NewCompiler(mem)
	badExpr := plan.AggregateFunction("MEDIAN", []*plan.Expr{plan.Column(0)}, arrow.PrimitiveTypes.Int64)
	_, err := c.CompileAggregate(badExpr, schema)
	assert.Error(t, err)
}
