package builtin

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqrtPropagatesNullsAndComputesValue(t *testing.T) {
	mem := memory.NewGoAllocator()
	b := array.NewFloat64Builder(mem)
	b.Append(16)
	b.AppendNull()
	in := b.NewArray()
	b.Release()
	defer in.Release()

	out, err := Scalars["sqrt"].Eval(mem, []arrow.Array{in})
	require.NoError(t, err)
	defer out.Release()

	f := out.(*array.Float64)
	assert.Equal(t, 4.0, f.Value(0))
	assert.True(t, f.IsNull(1))
}

func TestAbsOnNegativeValues(t *testing.T) {
	mem := memory.NewGoAllocator()
	b := array.NewFloat64Builder(mem)
	b.Append(-3.5)
	in := b.NewArray()
	b.Release()
	defer in.Release()

	out, err := Scalars["abs"].Eval(mem, []arrow.Array{in})
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, 3.5, out.(*array.Float64).Value(0))
}

func TestUpperAndLower(t *testing.T) {
	mem := memory.NewGoAllocator()
	b := array.NewStringBuilder(mem)
	b.Append("Hello")
	in := b.NewArray()
	b.Release()
	defer in.Release()

	up, err := Scalars["upper"].Eval(mem, []arrow.Array{in})
	require.NoError(t, err)
	defer up.Release()
	assert.Equal(t, "HELLO", up.(*array.String).Value(0))

	low, err := Scalars["lower"].Eval(mem, []arrow.Array{in})
	require.NoError(t, err)
	defer low.Release()
	assert.Equal(t, "hello", low.(*array.String).Value(0))
}

func TestSqrtWrongArgTypeErrors(t *testing.T) {
	mem := memory.NewGoAllocator()
	b := array.NewStringBuilder(mem)
	b.Append("x")
	in := b.NewArray()
	b.Release()
	defer in.Release()

	_, err := Scalars["sqrt"].Eval(mem, []arrow.Array{in})
	assert.Error(t, err)
}
