package physical

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/golapdb/golap/compile"
)

// FilterRelation implements WHERE by evaluating a compiled Boolean
// predicate against each input batch and slicing out the matching rows,
// per spec.md §4.4. Batches with zero matches are skipped entirely rather
// than returned empty.
type FilterRelation struct {
	mem       memory.Allocator
	input     Relation
	predicate compile.RuntimeExpr
}

// NewFilterRelation builds a FilterRelation. predicate must be Boolean-typed.
func NewFilterRelation(mem memory.Allocator, input Relation, predicate compile.RuntimeExpr) *FilterRelation {
	return &FilterRelation{mem: mem, input: input, predicate: predicate}
}

func (f *FilterRelation) Schema() *arrow.Schema { return f.input.Schema() }

func (f *FilterRelation) Next() (arrow.Record, error) {
	for {
		rec, err := f.input.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, nil
		}

		mask, err := f.predicate.Eval(rec)
		if err != nil {
			rec.Release()
			return nil, err
		}
		boolMask, ok := mask.(*array.Boolean)
		if !ok {
			mask.Release()
			rec.Release()
			continue
		}

		out, err := filterRecord(f.mem, rec, boolMask)
		mask.Release()
		rec.Release()
		if err != nil {
			return nil, err
		}
		if out.NumRows() == 0 {
			out.Release()
			continue
		}
		return out, nil
	}
}

func (f *FilterRelation) Close() error { return f.input.Close() }

// filterRecord builds a new record containing only the rows where mask is
// true (null mask entries are treated as false, per SQL WHERE semantics).
func filterRecord(mem memory.Allocator, rec arrow.Record, mask *array.Boolean) (arrow.Record, error) {
	keep := make([]int, 0, rec.NumRows())
	for i := 0; i < mask.Len(); i++ {
		if !mask.IsNull(i) && mask.Value(i) {
			keep = append(keep, i)
		}
	}

	cols := make([]arrow.Array, rec.NumCols())
	for c := 0; c < int(rec.NumCols()); c++ {
		col, err := selectIndices(mem, rec.Column(c), keep)
		if err != nil {
			return nil, err
		}
		cols[c] = col
	}
	out := array.NewRecord(rec.Schema(), cols, int64(len(keep)))
	for _, col := range cols {
		col.Release()
	}
	return out, nil
}

// selectIndices builds a new array containing arr's values at the given
// indices, preserving nulls.
func selectIndices(mem memory.Allocator, arr arrow.Array, indices []int) (arrow.Array, error) {
	b := array.NewBuilder(mem, arr.DataType())
	defer b.Release()
	for _, i := range indices {
		if arr.IsNull(i) {
			b.AppendNull()
			continue
		}
		if err := appendValueAt(b, arr, i); err != nil {
			return nil, err
		}
	}
	return b.NewArray(), nil
}
