package physical

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golapdb/golap/compile"
	"github.com/golapdb/golap/plan"
)

func stateAgeSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "state", Type: arrow.BinaryTypes.String},
		{Name: "age", Type: arrow.PrimitiveTypes.Int32},
	}, nil)
}

func stateAgeRelation(t *testing.T, mem memory.Allocator, states []string, ages []int32) *singleBatchRelation {
	t.Helper()
	schema := stateAgeSchema()
	sb := array.NewStringBuilder(mem)
	sb.AppendValues(states, nil)
	sArr := sb.NewArray()
	sb.Release()
	ab := array.NewInt32Builder(mem)
	ab.AppendValues(ages, nil)
	aArr := ab.NewArray()
	ab.Release()
	rec := array.NewRecord(schema, []arrow.Array{sArr, aArr}, int64(len(states)))
	sArr.Release()
	aArr.Release()
	return &singleBatchRelation{schema: schema, rec: rec}
}

// TestAggregateRelationGroupsAndComputesMinMax mirrors spec.md §8
// scenario 5 at the physical level: GROUP BY state, MIN/MAX(age).
func TestAggregateRelationGroupsAndComputesMinMax(t *testing.T) {
	mem := memory.NewGoAllocator()
	input := stateAgeRelation(t, mem, []string{"CO", "NY", "CO", "NY"}, []int32{30, 18, 65, 40})
	defer input.rec.Release()

	schema := stateAgeSchema()
	c := compile.NewCompiler(mem)
	groupExpr, err := c.Compile(plan.Column(0), schema)
	require.NoError(t, err)

	minExpr, err := c.CompileAggregate(plan.AggregateFunction("MIN", []*plan.Expr{plan.Column(1)}, arrow.PrimitiveTypes.Int32), schema)
	require.NoError(t, err)
	maxExpr, err := c.CompileAggregate(plan.AggregateFunction("MAX", []*plan.Expr{plan.Column(1)}, arrow.PrimitiveTypes.Int32), schema)
	require.NoError(t, err)

	outSchema := arrow.NewSchema([]arrow.Field{
		{Name: "state", Type: arrow.BinaryTypes.String},
		{Name: "MIN(age)", Type: arrow.PrimitiveTypes.Int32},
		{Name: "MAX(age)", Type: arrow.PrimitiveTypes.Int32},
	}, nil)

	agg := NewAggregateRelation(mem, input, []compile.RuntimeExpr{groupExpr}, []compile.AggregateExpr{minExpr, maxExpr}, outSchema)

	rec, err := agg.Next()
	require.NoError(t, err)
	require.NotNil(t, rec)
	defer rec.Release()

	assert.Equal(t, int64(2), rec.NumRows())

	next, err := agg.Next()
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestAggregateRelationScalarAggregateProducesOneRow(t *testing.T) {
	mem := memory.NewGoAllocator()
	input := stateAgeRelation(t, mem, []string{"CO", "NY"}, []int32{21, 65})
	defer input.rec.Release()

	schema := stateAgeSchema()
	c := compile.NewCompiler(mem)
	countExpr, err := c.CompileAggregate(plan.AggregateFunction("COUNT", []*plan.Expr{plan.Column(1)}, arrow.PrimitiveTypes.Int64), schema)
	require.NoError(t, err)

	outSchema := arrow.NewSchema([]arrow.Field{{Name: "COUNT(age)", Type: arrow.PrimitiveTypes.Int64}}, nil)
	agg := NewAggregateRelation(mem, input, nil, []compile.AggregateExpr{countExpr}, outSchema)

	rec, err := agg.Next()
	require.NoError(t, err)
	require.NotNil(t, rec)
	defer rec.Release()

	assert.Equal(t, int64(1), rec.NumRows())
	assert.Equal(t, int64(2), rec.Column(0).(*array.Int64).Value(0))
}
