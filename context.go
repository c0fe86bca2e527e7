// Package golap is an embeddable columnar SQL query engine: register CSV
// tables, then run SELECT queries that are parsed, planned, pushed down,
// compiled, and executed as a pull-based physical plan over Arrow record
// batches. See SPEC_FULL.md for the full module map.
package golap

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/sirupsen/logrus"
	"github.com/xwb1989/sqlparser"

	"github.com/golapdb/golap/catalog"
	"github.com/golapdb/golap/compile"
	"github.com/golapdb/golap/golaperr"
	"github.com/golapdb/golap/optimize"
	"github.com/golapdb/golap/physical"
	"github.com/golapdb/golap/plan"
)

// DefaultBatchSize is used when Sql is called without an explicit batch
// size and matches the teacher's own default chunking granularity.
const DefaultBatchSize = 1024

// Context is the top-level entry point: register tables against it, then
// run queries. A Context is safe for concurrent use once tables are
// registered; RegisterCSV and Sql may be called concurrently from
// separate goroutines (the underlying catalog.MemCatalog holds its own
// lock), but a returned physical.Relation must not be shared across
// goroutines.
type Context struct {
	cat *catalog.MemCatalog
	mem memory.Allocator
	log *logrus.Logger
}

// NewContext builds an empty Context backed by the default memory
// allocator and a logrus logger at Warn level, matching the teacher's
// quiet-by-default CLI.
func NewContext() *Context {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return &Context{cat: catalog.NewMemCatalog(), mem: memory.NewGoAllocator(), log: log}
}

// Logger returns the Context's logger so an embedding host can redirect
// or raise its verbosity.
func (c *Context) Logger() *logrus.Logger { return c.log }

// RegisterCSV registers path as a table named name, inferring its schema
// (and a pruning zone map) by reading it once in full.
func (c *Context) RegisterCSV(name, path string) error {
	p, err := catalog.NewCSVProvider(c.mem, path)
	if err != nil {
		return err
	}
	c.cat.RegisterTable(name, p)
	c.log.WithFields(logrus.Fields{"table": name, "path": path}).Debug("registered CSV table")
	return nil
}

// Sql parses, plans, optimizes, compiles, and begins executing text,
// returning a physical.Relation the caller pulls rows from via Next().
// batchSize controls how many rows each Relation.Next() call produces at
// the scan boundary; DefaultBatchSize is used if batchSize <= 0.
func (c *Context) Sql(ctx context.Context, text string, batchSize int) (physical.Relation, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	stmt, err := sqlparser.Parse(text)
	if err != nil {
		return nil, golaperr.Wrap(golaperr.Parse, err, "SQL parse error")
	}

	logicalPlan, err := plan.ToLogicalPlan(stmt, catalogAdapter{c.cat})
	if err != nil {
		return nil, err
	}
	c.log.WithField("plan", logicalPlan.String()).Debug("built logical plan")

	logicalPlan = optimize.PushDownProjection(logicalPlan)
	c.log.WithField("plan", logicalPlan.String()).Debug("optimized logical plan")

	compiler := compile.NewCompiler(c.mem)
	return c.execute(ctx, logicalPlan, compiler, batchSize)
}

// execute recursively realizes logicalPlan into a physical.Relation,
// mirroring the Rust execution/context.rs recursive executor this spec
// was distilled from.
func (c *Context) execute(ctx context.Context, p *plan.LogicalPlan, compiler *compile.Compiler, batchSize int) (physical.Relation, error) {
	switch p.Kind {
	case plan.EmptyRelationKind:
		return &emptyRelation{schema: p.Schema}, nil

	case plan.TableScanKind:
		provider, ok := c.cat.GetProvider(p.TableName)
		if !ok {
			return nil, golaperr.Newf(golaperr.General, "No table registered as '%s'", p.TableName)
		}
		return provider.Scan(ctx, p.Projection, batchSize)

	case plan.SelectionKind:
		input, err := c.execute(ctx, p.Input, compiler, batchSize)
		if err != nil {
			return nil, err
		}
		predicate, err := compiler.Compile(p.Expr, p.Input.Schema)
		if err != nil {
			input.Close()
			return nil, err
		}
		return physical.NewFilterRelation(c.mem, input, predicate), nil

	case plan.ProjectionKind:
		input, err := c.execute(ctx, p.Input, compiler, batchSize)
		if err != nil {
			return nil, err
		}
		exprs := make([]compile.RuntimeExpr, len(p.ProjectExprs))
		for i, e := range p.ProjectExprs {
			re, err := compiler.Compile(e, p.Input.Schema)
			if err != nil {
				input.Close()
				return nil, err
			}
			exprs[i] = re
		}
		return physical.NewProjectRelation(c.mem, input, exprs, p.Schema), nil

	case plan.AggregateKind:
		input, err := c.execute(ctx, p.Input, compiler, batchSize)
		if err != nil {
			return nil, err
		}
		groupExprs := make([]compile.RuntimeExpr, len(p.GroupExpr))
		for i, e := range p.GroupExpr {
			re, err := compiler.Compile(e, p.Input.Schema)
			if err != nil {
				input.Close()
				return nil, err
			}
			groupExprs[i] = re
		}
		aggrExprs := make([]compile.AggregateExpr, len(p.AggrExpr))
		for i, e := range p.AggrExpr {
			ae, err := compiler.CompileAggregate(e, p.Input.Schema)
			if err != nil {
				input.Close()
				return nil, err
			}
			aggrExprs[i] = ae
		}
		return physical.NewAggregateRelation(c.mem, input, groupExprs, aggrExprs, p.Schema), nil

	case plan.SortKind:
		input, err := c.execute(ctx, p.Input, compiler, batchSize)
		if err != nil {
			return nil, err
		}
		input.Close()
		return nil, golaperr.Newf(golaperr.NotImplemented, "ORDER BY execution is not implemented")

	case plan.LimitKind:
		input, err := c.execute(ctx, p.Input, compiler, batchSize)
		if err != nil {
			return nil, err
		}
		n := p.LimitExpr.Literal.AsInt64()
		return physical.NewLimitRelation(c.mem, input, n), nil

	default:
		return nil, golaperr.Newf(golaperr.ExecutionError, "unsupported logical plan node %d", p.Kind)
	}
}

// emptyRelation is the physical realization of EmptyRelation: a schema
// with no rows, exhausted on the first Next() call.
type emptyRelation struct {
	schema *arrow.Schema
	done   bool
}

func (e *emptyRelation) Schema() *arrow.Schema { return e.schema }
func (e *emptyRelation) Next() (arrow.Record, error) {
	e.done = true
	return nil, nil
}
func (e *emptyRelation) Close() error { return nil }

// catalogAdapter narrows catalog.MemCatalog's catalog.FunctionMeta
// results to plan.FunctionMeta, keeping the plan package free of a
// dependency on catalog (see plan.Catalog's doc comment).
type catalogAdapter struct {
	cat *catalog.MemCatalog
}

func (a catalogAdapter) GetTableMeta(name string) (*arrow.Schema, bool) {
	return a.cat.GetTableMeta(name)
}

func (a catalogAdapter) GetFunctionMeta(name string) (*plan.FunctionMeta, bool) {
	fm, ok := a.cat.GetFunctionMeta(name)
	if !ok {
		return nil, false
	}
	return &plan.FunctionMeta{Name: fm.Name, Args: fm.Args, ReturnType: fm.ReturnType}, true
}
