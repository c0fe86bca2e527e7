package sqltypes

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
)

func TestScalarValueStringFormatting(t *testing.T) {
	assert.Equal(t, "Boolean(true)", NewBool(true).String())
	assert.Equal(t, `Utf8("CO")`, NewUtf8("CO").String())
	assert.Equal(t, "Int64(21)", NewInt64(21).String())
	assert.Equal(t, "Float64(1.5)", NewFloat64(1.5).String())
}

func TestScalarValueAsFloat64AndAsInt64Widen(t *testing.T) {
	i := NewInt64(9)
	assert.Equal(t, 9.0, i.AsFloat64())
	assert.Equal(t, int64(9), i.AsInt64())

	f := NewFloat64(9.7)
	assert.Equal(t, 9.7, f.AsFloat64())
	assert.Equal(t, int64(9), f.AsInt64())
}

func TestOperatorStringAndIsComparison(t *testing.T) {
	assert.Equal(t, "Gt", Gt.String())
	assert.Equal(t, "Plus", Plus.String())
	assert.Equal(t, "Unknown", Operator(999).String())

	assert.True(t, Eq.IsComparison())
	assert.True(t, Like.IsComparison())
	assert.False(t, Plus.IsComparison())
	assert.False(t, Minus.IsComparison())
}

func TestNewUtf8DoesNotShareBackingArrayAcrossCalls(t *testing.T) {
	a := NewUtf8("x")
	b := NewUtf8("y")
	assert.Equal(t, "x", *a.Str)
	assert.Equal(t, "y", *b.Str)
}

func TestScalarValueTypeIsArrowDataType(t *testing.T) {
	v := NewInt64(1)
	assert.True(t, arrow.TypeEqual(v.Type, arrow.PrimitiveTypes.Int64))
}
