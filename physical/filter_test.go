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
	"github.com/golapdb/golap/sqltypes"
)

// singleBatchRelation replays one pre-built record, then exhausts.
type singleBatchRelation struct {
	schema *arrow.Schema
	rec    arrow.Record
	served bool
	closed bool
}

func (s *singleBatchRelation) Schema() *arrow.Schema { return s.schema }
func (s *singleBatchRelation) Next() (arrow.Record, error) {
	if s.served {
		return nil, nil
	}
	s.served = true
	s.rec.Retain()
	return s.rec, nil
}
func (s *singleBatchRelation) Close() error {
	s.closed = true
	return nil
}

func ageSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{{Name: "age", Type: arrow.PrimitiveTypes.Int64}}, nil)
}

func ageRelation(t *testing.T, mem memory.Allocator, ages []int64) *singleBatchRelation {
	t.Helper()
	schema := ageSchema()
	b := array.NewInt64Builder(mem)
	b.AppendValues(ages, nil)
	arr := b.NewArray()
	b.Release()
	rec := array.NewRecord(schema, []arrow.Array{arr}, int64(len(ages)))
	arr.Release()
	return &singleBatchRelation{schema: schema, rec: rec}
}

func TestFilterRelationKeepsOnlyMatchingRows(t *testing.T) {
	mem := memory.NewGoAllocator()
	input := ageRelation(t, mem, []int64{18, 25, 40, 12})
	defer input.rec.Release()

	c := compile.NewCompiler(mem)
	pred, err := c.Compile(plan.Binary(plan.Column(0), sqltypes.Gt, plan.Lit(sqltypes.NewInt64(21))), ageSchema())
	require.NoError(t, err)

	f := NewFilterRelation(mem, input, pred)
	rec, err := f.Next()
	require.NoError(t, err)
	require.NotNil(t, rec)
	defer rec.Release()

	assert.Equal(t, int64(2), rec.NumRows())

	next, err := f.Next()
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestLimitRelationTruncatesFinalBatch(t *testing.T) {
	mem := memory.NewGoAllocator()
	input := ageRelation(t, mem, []int64{1, 2, 3, 4, 5})
	defer input.rec.Release()

	l := NewLimitRelation(mem, input, 3)
	rec, err := l.Next()
	require.NoError(t, err)
	require.NotNil(t, rec)
	defer rec.Release()
	assert.Equal(t, int64(3), rec.NumRows())

	next, err := l.Next()
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestLimitZeroExhaustsImmediately(t *testing.T) {
	mem := memory.NewGoAllocator()
	input := ageRelation(t, mem, []int64{1, 2, 3})
	defer input.rec.Release()

	l := NewLimitRelation(mem, input, 0)
	rec, err := l.Next()
	require.NoError(t, err)
	assert.Nil(t, rec)
}
