package physical

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/golapdb/golap/compile"
)

// AggregateRelation computes GROUP BY aggregates. Unlike the teacher's
// HashAggregateOp, which builds its output schema from only the aggregate
// columns (a documented bug reproduced nowhere here, per SPEC_FULL.md's
// resolution of spec.md §9 open question 2), the caller-supplied schema
// here must already describe group columns followed by aggregate columns,
// and AggregateRelation never derives its own.
//
// Aggregation runs eagerly on the first Next() call: every input batch is
// pulled and folded into per-group accumulators, then a single output
// batch (one row per distinct group) is emitted.
type AggregateRelation struct {
	mem        memory.Allocator
	input      Relation
	groupExprs []compile.RuntimeExpr
	aggrExprs  []compile.AggregateExpr
	schema     *arrow.Schema

	computed bool
	emitted  bool
}

// NewAggregateRelation builds an AggregateRelation. groupExprs may be empty
// (scalar aggregation, a single output row).
func NewAggregateRelation(mem memory.Allocator, input Relation, groupExprs []compile.RuntimeExpr, aggrExprs []compile.AggregateExpr, schema *arrow.Schema) *AggregateRelation {
	return &AggregateRelation{mem: mem, input: input, groupExprs: groupExprs, aggrExprs: aggrExprs, schema: schema}
}

func (a *AggregateRelation) Schema() *arrow.Schema { return a.schema }

type groupState struct {
	keyValues []cell
	accs      []compile.Accumulator
}

func (a *AggregateRelation) Next() (arrow.Record, error) {
	if a.emitted {
		return nil, nil
	}

	groups := make(map[string]*groupState)
	var order []string

	// A scalar aggregate (no GROUP BY) always produces exactly one row,
	// even over zero input rows (e.g. SELECT COUNT(*) FROM empty_table),
	// so the lone group must exist before the input is known to be empty.
	if len(a.groupExprs) == 0 {
		accs := make([]compile.Accumulator, len(a.aggrExprs))
		for i, ae := range a.aggrExprs {
			accs[i] = ae.NewAcc()
		}
		groups[""] = &groupState{accs: accs}
		order = append(order, "")
	}

	for {
		rec, err := a.input.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			break
		}

		groupCols := make([]arrow.Array, len(a.groupExprs))
		for i, ge := range a.groupExprs {
			col, err := ge.Eval(rec)
			if err != nil {
				rec.Release()
				return nil, err
			}
			groupCols[i] = col
		}
		argCols := make([]arrow.Array, len(a.aggrExprs))
		for i, ae := range a.aggrExprs {
			col, err := ae.Arg.Eval(rec)
			if err != nil {
				rec.Release()
				return nil, err
			}
			argCols[i] = col
		}

		n := int(rec.NumRows())
		for row := 0; row < n; row++ {
			key, keyValues := groupKey(groupCols, row)
			g, ok := groups[key]
			if !ok {
				accs := make([]compile.Accumulator, len(a.aggrExprs))
				for i, ae := range a.aggrExprs {
					accs[i] = ae.NewAcc()
				}
				g = &groupState{keyValues: keyValues, accs: accs}
				groups[key] = g
				order = append(order, key)
			}
			for i, col := range argCols {
				slice := array.NewSlice(col, int64(row), int64(row+1))
				err := g.accs[i].Update(slice)
				slice.Release()
				if err != nil {
					rec.Release()
					return nil, err
				}
			}
		}

		for _, c := range groupCols {
			c.Release()
		}
		for _, c := range argCols {
			c.Release()
		}
		rec.Release()
	}

	out, err := a.buildOutput(groups, order)
	a.emitted = true
	return out, err
}

func (a *AggregateRelation) buildOutput(groups map[string]*groupState, order []string) (arrow.Record, error) {
	numGroupCols := len(a.groupExprs)
	numCols := numGroupCols + len(a.aggrExprs)
	cols := make([]arrow.Array, numCols)

	for gi := 0; gi < numGroupCols; gi++ {
		fieldType := a.schema.Field(gi).Type
		b := array.NewBuilder(a.mem, fieldType)
		for _, key := range order {
			c := groups[key].keyValues[gi]
			if err := appendCell(b, c); err != nil {
				b.Release()
				return nil, err
			}
		}
		cols[gi] = b.NewArray()
		b.Release()
	}

	for ai := range a.aggrExprs {
		fieldType := a.schema.Field(numGroupCols + ai).Type
		b := array.NewBuilder(a.mem, fieldType)
		for _, key := range order {
			val, err := groups[key].accs[ai].Value()
			if err != nil {
				b.Release()
				return nil, err
			}
			if val.IsNull(0) {
				b.AppendNull()
			} else {
				if err := appendValueAt(b, val, 0); err != nil {
					val.Release()
					b.Release()
					return nil, err
				}
			}
			val.Release()
		}
		cols[numGroupCols+ai] = b.NewArray()
		b.Release()
	}

	out := array.NewRecord(a.schema, cols, int64(len(order)))
	for _, c := range cols {
		c.Release()
	}
	return out, nil
}

func (a *AggregateRelation) Close() error { return a.input.Close() }

// cell is a detached (array-independent) copy of a single cell's value,
// used as a GROUP BY key component once its source batch is released.
type cell struct {
	dtype  arrow.DataType
	isNull bool
	f64    float64
	str    string
	b      bool
}

func extractCell(arr arrow.Array, i int) cell {
	dt := arr.DataType()
	if arr.IsNull(i) {
		return cell{dtype: dt, isNull: true}
	}
	switch dt.ID() {
	case arrow.STRING:
		return cell{dtype: dt, str: arr.(*array.String).Value(i)}
	case arrow.BOOL:
		return cell{dtype: dt, b: arr.(*array.Boolean).Value(i)}
	default:
		return cell{dtype: dt, f64: numericAt(arr, i)}
	}
}

func numericAt(arr arrow.Array, i int) float64 {
	switch a := arr.(type) {
	case *array.Int8:
		return float64(a.Value(i))
	case *array.Int16:
		return float64(a.Value(i))
	case *array.Int32:
		return float64(a.Value(i))
	case *array.Int64:
		return float64(a.Value(i))
	case *array.Uint8:
		return float64(a.Value(i))
	case *array.Uint16:
		return float64(a.Value(i))
	case *array.Uint32:
		return float64(a.Value(i))
	case *array.Uint64:
		return float64(a.Value(i))
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	default:
		return 0
	}
}

func appendCell(b array.Builder, c cell) error {
	if c.isNull {
		b.AppendNull()
		return nil
	}
	switch c.dtype.ID() {
	case arrow.STRING:
		b.(*array.StringBuilder).Append(c.str)
		return nil
	case arrow.BOOL:
		b.(*array.BooleanBuilder).Append(c.b)
		return nil
	default:
		switch bb := b.(type) {
		case *array.Int8Builder:
			bb.Append(int8(c.f64))
		case *array.Int16Builder:
			bb.Append(int16(c.f64))
		case *array.Int32Builder:
			bb.Append(int32(c.f64))
		case *array.Int64Builder:
			bb.Append(int64(c.f64))
		case *array.Uint8Builder:
			bb.Append(uint8(c.f64))
		case *array.Uint16Builder:
			bb.Append(uint16(c.f64))
		case *array.Uint32Builder:
			bb.Append(uint32(c.f64))
		case *array.Uint64Builder:
			bb.Append(uint64(c.f64))
		case *array.Float32Builder:
			bb.Append(float32(c.f64))
		case *array.Float64Builder:
			bb.Append(c.f64)
		}
		return nil
	}
}

// groupKey builds the group's string key (matching the teacher's
// \x00-separated buildGroupKey) and detaches its constituent cells.
func groupKey(groupCols []arrow.Array, row int) (string, []cell) {
	if len(groupCols) == 0 {
		return "", nil
	}
	var sb strings.Builder
	cells := make([]cell, len(groupCols))
	for i, col := range groupCols {
		if i > 0 {
			sb.WriteByte(0)
		}
		c := extractCell(col, row)
		cells[i] = c
		if c.isNull {
			sb.WriteString("\x01NULL")
			continue
		}
		switch col.DataType().ID() {
		case arrow.STRING:
			sb.WriteString(c.str)
		case arrow.BOOL:
			fmt.Fprintf(&sb, "%v", c.b)
		default:
			fmt.Fprintf(&sb, "%v", c.f64)
		}
	}
	return sb.String(), cells
}
