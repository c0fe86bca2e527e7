package plan

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golapdb/golap/sqltypes"
)

func testSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "amount", Type: arrow.PrimitiveTypes.Float64},
		{Name: "code", Type: arrow.BinaryTypes.String},
	}, nil)
}

func TestGetTypeColumn(t *testing.T) {
	schema := testSchema()
	dt, err := GetType(Column(1), schema)
	require.NoError(t, err)
	assert.True(t, arrow.TypeEqual(dt, arrow.PrimitiveTypes.Float64))
}

func TestGetTypeColumnOutOfRange(t *testing.T) {
	schema := testSchema()
	_, err := GetType(Column(10), schema)
	assert.Error(t, err)
}

func TestGetTypeComparisonIsAlwaysBoolean(t *testing.T) {
	schema := testSchema()
	e := Binary(Column(0), sqltypes.Gt, Lit(sqltypes.NewInt64(5)))
	dt, err := GetType(e, schema)
	require.NoError(t, err)
	assert.True(t, arrow.TypeEqual(dt, arrow.FixedWidthTypes.Boolean))
}

func TestGetTypeArithmeticUsesSupertype(t *testing.T) {
	schema := testSchema()
	e := Binary(Column(0), sqltypes.Plus, Column(1))
	dt, err := GetType(e, schema)
	require.NoError(t, err)
	assert.True(t, arrow.TypeEqual(dt, arrow.PrimitiveTypes.Float64))
}

func TestGetTypeArithmeticNoSupertypeErrors(t *testing.T) {
	schema := testSchema()
	e := Binary(Column(2), sqltypes.Plus, Column(0))
	_, err := GetType(e, schema)
	assert.Error(t, err)
}

func TestGetTypeSortHasNoType(t *testing.T) {
	schema := testSchema()
	_, err := GetType(SortKey(Column(0), true), schema)
	assert.Error(t, err)
}

func TestCastToNoopWhenSameType(t *testing.T) {
	schema := testSchema()
	e := Column(0)
	out, err := CastTo(e, arrow.PrimitiveTypes.Int64, schema)
	require.NoError(t, err)
	assert.Same(t, e, out)
}

func TestCastToWrapsWhenDifferentType(t *testing.T) {
	schema := testSchema()
	out, err := CastTo(Column(0), arrow.PrimitiveTypes.Float64, schema)
	require.NoError(t, err)
	assert.Equal(t, CastExprKind, out.Kind)
}

func TestColumnsUsedRecursesThroughBinaryAndFunctions(t *testing.T) {
	e := AggregateFunction("SUM", []*Expr{
		Binary(Column(0), sqltypes.Plus, Column(2)),
	}, arrow.PrimitiveTypes.Float64)

	used := map[int]struct{}{}
	ColumnsUsed(e, used)

	assert.Contains(t, used, 0)
	assert.Contains(t, used, 2)
	assert.Len(t, used, 2)
}

func TestExprStringRendersBinary(t *testing.T) {
	e := Binary(Column(4), sqltypes.Eq, Lit(sqltypes.NewUtf8("CO")))
	assert.Equal(t, `#4 Eq Utf8("CO")`, e.String())
}

func TestExprToFieldColumnPreservesSourceName(t *testing.T) {
	schema := testSchema()
	f, err := ExprToField(Column(0), schema)
	require.NoError(t, err)
	assert.Equal(t, "id", f.Name)
	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Int64, f.Type))
}

func TestExprToFieldAggregateUsesFunctionName(t *testing.T) {
	schema := testSchema()
	f, err := ExprToField(AggregateFunction("SUM", []*Expr{Column(1)}, arrow.PrimitiveTypes.Float64), schema)
	require.NoError(t, err)
	assert.Equal(t, "SUM", f.Name)
}

func TestExprToFieldCastUsesSynthesizedName(t *testing.T) {
	schema := testSchema()
	f, err := ExprToField(Cast(Column(0), arrow.PrimitiveTypes.Float64), schema)
	require.NoError(t, err)
	assert.Equal(t, "cast", f.Name)
	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Float64, f.Type))
}
