package physical

import (
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/golapdb/golap/golaperr"
)

// appendValueAt appends arr's non-null value at index i onto b. Used by
// Filter and Limit, which copy a record's rows by index, and by Aggregate,
// which copies each accumulator's single result value into its output
// column.
func appendValueAt(b array.Builder, arr interface{ Len() int }, i int) error {
	switch a := arr.(type) {
	case *array.Boolean:
		b.(*array.BooleanBuilder).Append(a.Value(i))
	case *array.Int8:
		b.(*array.Int8Builder).Append(a.Value(i))
	case *array.Int16:
		b.(*array.Int16Builder).Append(a.Value(i))
	case *array.Int32:
		b.(*array.Int32Builder).Append(a.Value(i))
	case *array.Int64:
		b.(*array.Int64Builder).Append(a.Value(i))
	case *array.Uint8:
		b.(*array.Uint8Builder).Append(a.Value(i))
	case *array.Uint16:
		b.(*array.Uint16Builder).Append(a.Value(i))
	case *array.Uint32:
		b.(*array.Uint32Builder).Append(a.Value(i))
	case *array.Uint64:
		b.(*array.Uint64Builder).Append(a.Value(i))
	case *array.Float32:
		b.(*array.Float32Builder).Append(a.Value(i))
	case *array.Float64:
		b.(*array.Float64Builder).Append(a.Value(i))
	case *array.String:
		b.(*array.StringBuilder).Append(a.Value(i))
	default:
		return golaperr.Newf(golaperr.ExecutionError, "unsupported array type %T for row selection", arr)
	}
	return nil
}
