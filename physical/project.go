package physical

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/golapdb/golap/compile"
)

// ProjectRelation evaluates a list of compiled expressions against each
// input batch, producing a batch with one output column per expression.
// Selecting raw columns (SELECT a, b) and computed expressions (SELECT
// a + b) are the same operation once compiled to RuntimeExpr.
type ProjectRelation struct {
	mem    memory.Allocator
	input  Relation
	exprs  []compile.RuntimeExpr
	schema *arrow.Schema
}

// NewProjectRelation builds a ProjectRelation. schema must describe the
// output of exprs, in order.
func NewProjectRelation(mem memory.Allocator, input Relation, exprs []compile.RuntimeExpr, schema *arrow.Schema) *ProjectRelation {
	return &ProjectRelation{mem: mem, input: input, exprs: exprs, schema: schema}
}

func (p *ProjectRelation) Schema() *arrow.Schema { return p.schema }

func (p *ProjectRelation) Next() (arrow.Record, error) {
	rec, err := p.input.Next()
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	defer rec.Release()

	cols := make([]arrow.Array, len(p.exprs))
	for i, e := range p.exprs {
		col, err := e.Eval(rec)
		if err != nil {
			for _, c := range cols[:i] {
				c.Release()
			}
			return nil, err
		}
		cols[i] = col
	}
	out := array.NewRecord(p.schema, cols, rec.NumRows())
	for _, c := range cols {
		c.Release()
	}
	return out, nil
}

func (p *ProjectRelation) Close() error { return p.input.Close() }
