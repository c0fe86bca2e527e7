package compile

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/golapdb/golap/golaperr"
)

// float64At widens whatever numeric value lives at index i in arr to
// float64, reporting null when the slot is unset. Used by arithmetic and
// comparison evaluation, which is always performed after the planner has
// already cast both operands to a common supertype.
func float64At(arr arrow.Array, i int) (float64, bool) {
	if arr.IsNull(i) {
		return 0, true
	}
	switch a := arr.(type) {
	case *array.Int8:
		return float64(a.Value(i)), false
	case *array.Int16:
		return float64(a.Value(i)), false
	case *array.Int32:
		return float64(a.Value(i)), false
	case *array.Int64:
		return float64(a.Value(i)), false
	case *array.Uint8:
		return float64(a.Value(i)), false
	case *array.Uint16:
		return float64(a.Value(i)), false
	case *array.Uint32:
		return float64(a.Value(i)), false
	case *array.Uint64:
		return float64(a.Value(i)), false
	case *array.Float32:
		return float64(a.Value(i)), false
	case *array.Float64:
		return a.Value(i), false
	default:
		return 0, true
	}
}

// buildNumericArray materializes an array of dtype with n elements, each
// produced by get(i). get returns (value, isNull).
func buildNumericArray(mem memory.Allocator, dtype arrow.DataType, n int, get func(i int) (float64, bool)) (arrow.Array, error) {
	switch dtype.ID() {
	case arrow.INT8:
		b := array.NewInt8Builder(mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			v, null := get(i)
			if null {
				b.AppendNull()
			} else {
				b.Append(int8(v))
			}
		}
		return b.NewArray(), nil
	case arrow.INT16:
		b := array.NewInt16Builder(mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			v, null := get(i)
			if null {
				b.AppendNull()
			} else {
				b.Append(int16(v))
			}
		}
		return b.NewArray(), nil
	case arrow.INT32:
		b := array.NewInt32Builder(mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			v, null := get(i)
			if null {
				b.AppendNull()
			} else {
				b.Append(int32(v))
			}
		}
		return b.NewArray(), nil
	case arrow.INT64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			v, null := get(i)
			if null {
				b.AppendNull()
			} else {
				b.Append(int64(v))
			}
		}
		return b.NewArray(), nil
	case arrow.UINT8:
		b := array.NewUint8Builder(mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			v, null := get(i)
			if null {
				b.AppendNull()
			} else {
				b.Append(uint8(v))
			}
		}
		return b.NewArray(), nil
	case arrow.UINT16:
		b := array.NewUint16Builder(mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			v, null := get(i)
			if null {
				b.AppendNull()
			} else {
				b.Append(uint16(v))
			}
		}
		return b.NewArray(), nil
	case arrow.UINT32:
		b := array.NewUint32Builder(mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			v, null := get(i)
			if null {
				b.AppendNull()
			} else {
				b.Append(uint32(v))
			}
		}
		return b.NewArray(), nil
	case arrow.UINT64:
		b := array.NewUint64Builder(mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			v, null := get(i)
			if null {
				b.AppendNull()
			} else {
				b.Append(uint64(v))
			}
		}
		return b.NewArray(), nil
	case arrow.FLOAT32:
		b := array.NewFloat32Builder(mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			v, null := get(i)
			if null {
				b.AppendNull()
			} else {
				b.Append(float32(v))
			}
		}
		return b.NewArray(), nil
	case arrow.FLOAT64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for i := 0; i < n; i++ {
			v, null := get(i)
			if null {
				b.AppendNull()
			} else {
				b.Append(v)
			}
		}
		return b.NewArray(), nil
	default:
		return nil, golaperr.Newf(golaperr.ExecutionError, "unsupported numeric data type %s", dtype)
	}
}

func isNumericType(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64:
		return true
	default:
		return false
	}
}
