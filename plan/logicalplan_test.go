package plan

import (
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"

	"github.com/golapdb/golap/sqltypes"
)

func personSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "first_name", Type: arrow.BinaryTypes.String},
		{Name: "last_name", Type: arrow.BinaryTypes.String},
		{Name: "age", Type: arrow.PrimitiveTypes.Int32},
		{Name: "state", Type: arrow.BinaryTypes.String},
		{Name: "salary", Type: arrow.PrimitiveTypes.Float64},
	}, nil)
}

// TestScenario3ProjectionOverSelectionOverScan reproduces spec.md §8
// scenario 3's plan shape: a Projection of three columns over a
// Selection on state = 'CO' over an unprojected TableScan.
func TestScenario3ProjectionOverSelectionOverScan(t *testing.T) {
	schema := personSchema()
	scan := TableScan("", "person", schema, nil)
	sel := Selection(Binary(Column(4), sqltypes.Eq, Lit(sqltypes.NewUtf8("CO"))), scan)
	proj := Projection([]*Expr{Column(0), Column(1), Column(2)}, sel,
		arrow.NewSchema([]arrow.Field{schema.Field(0), schema.Field(1), schema.Field(2)}, nil))

	assert.Equal(t, ProjectionKind, proj.Kind)
	assert.Equal(t, SelectionKind, proj.Input.Kind)
	assert.Equal(t, TableScanKind, proj.Input.Input.Kind)
	assert.Nil(t, proj.Input.Input.Projection)

	rendered := proj.String()
	assert.True(t, strings.Contains(rendered, "Projection:"))
	assert.True(t, strings.Contains(rendered, "Selection:"))
	assert.True(t, strings.Contains(rendered, "TableScan:"))
}

// TestScenario5AggregateSchemaIsGroupPlusAggr reproduces spec.md §8
// scenario 5 and exercises SPEC_FULL.md's fix for the aggregate schema
// bug: the schema lists group columns before aggregate columns.
func TestScenario5AggregateSchemaIsGroupPlusAggr(t *testing.T) {
	schema := personSchema()
	scan := TableScan("", "person", schema, nil)
	groupExpr := []*Expr{Column(4)}
	aggrExpr := []*Expr{
		AggregateFunction("MIN", []*Expr{Column(3)}, arrow.PrimitiveTypes.Int32),
		AggregateFunction("MAX", []*Expr{Column(3)}, arrow.PrimitiveTypes.Int32),
	}
	outSchema := arrow.NewSchema([]arrow.Field{
		{Name: "state", Type: arrow.BinaryTypes.String},
		{Name: "MIN(age)", Type: arrow.PrimitiveTypes.Int32},
		{Name: "MAX(age)", Type: arrow.PrimitiveTypes.Int32},
	}, nil)
	agg := Aggregate(scan, groupExpr, aggrExpr, outSchema)

	assert.Equal(t, 3, agg.Schema.NumFields())
	assert.Equal(t, "state", agg.Schema.Field(0).Name)
	assert.True(t, arrow.TypeEqual(agg.Schema.Field(1).Type, arrow.PrimitiveTypes.Int32))
}

func TestLimitAndSortPreserveInputSchema(t *testing.T) {
	schema := personSchema()
	scan := TableScan("", "person", schema, nil)
	sorted := Sort([]*Expr{SortKey(Column(0), true)}, scan, schema)
	limited := Limit(Lit(sqltypes.NewInt64(10)), sorted, schema)

	assert.True(t, arrow.TypeEqual(limited.Schema.Field(0).Type, schema.Field(0).Type))
	assert.Equal(t, LimitKind, limited.Kind)
	assert.Equal(t, SortKind, limited.Input.Kind)
}
