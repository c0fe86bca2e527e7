package physical

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// LimitRelation caps the number of rows returned across all batches,
// truncating the final batch as needed. LIMIT 0 exhausts immediately.
type LimitRelation struct {
	mem     memory.Allocator
	input   Relation
	limit   int64
	emitted int64
	done    bool
}

// NewLimitRelation builds a LimitRelation stopping after limit rows.
func NewLimitRelation(mem memory.Allocator, input Relation, limit int64) *LimitRelation {
	return &LimitRelation{mem: mem, input: input, limit: limit}
}

func (l *LimitRelation) Schema() *arrow.Schema { return l.input.Schema() }

func (l *LimitRelation) Next() (arrow.Record, error) {
	if l.done || l.emitted >= l.limit {
		l.done = true
		return nil, nil
	}

	rec, err := l.input.Next()
	if err != nil {
		return nil, err
	}
	if rec == nil {
		l.done = true
		return nil, nil
	}
	defer rec.Release()

	remaining := l.limit - l.emitted
	if int64(rec.NumRows()) <= remaining {
		l.emitted += rec.NumRows()
		rec.Retain()
		return rec, nil
	}

	out, err := truncateRecord(l.mem, rec, int(remaining))
	if err != nil {
		return nil, err
	}
	l.emitted += remaining
	l.done = true
	return out, nil
}

func (l *LimitRelation) Close() error { return l.input.Close() }

func truncateRecord(mem memory.Allocator, rec arrow.Record, n int) (arrow.Record, error) {
	cols := make([]arrow.Array, rec.NumCols())
	for c := 0; c < int(rec.NumCols()); c++ {
		col := rec.Column(c)
		b := array.NewBuilder(mem, col.DataType())
		for i := 0; i < n; i++ {
			if col.IsNull(i) {
				b.AppendNull()
				continue
			}
			if err := appendValueAt(b, col, i); err != nil {
				b.Release()
				return nil, err
			}
		}
		cols[c] = b.NewArray()
		b.Release()
	}
	out := array.NewRecord(rec.Schema(), cols, int64(n))
	for _, c := range cols {
		c.Release()
	}
	return out, nil
}
