// Package catalog holds table and function metadata the planner
// resolves against (spec.md §4.1), plus the Provider abstraction a
// TableScan is ultimately executed against. The catalog is safe for
// concurrent metadata reads, mirroring the host-embeds-this-as-a-library
// stance spec.md §5 takes.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/golapdb/golap/builtin"
	"github.com/golapdb/golap/physical"
)

// FunctionMeta describes a scalar or aggregate function for planning
// purposes: the argument types the planner casts call-site arguments to,
// and the return type GetType reports for calls to it.
type FunctionMeta struct {
	Name       string
	Args       []arrow.Field
	ReturnType arrow.DataType
}

// Provider is a registered table's data source. Scan streams batches of
// at most batchSize rows; projection is a pruning hint only (see
// SPEC_FULL.md's resolution of spec.md §9 open question 6) — the
// returned relation's schema is always the provider's full schema, never
// narrowed, so column indices addressed against the original schema stay
// valid end to end.
type Provider interface {
	Schema() *arrow.Schema
	Scan(ctx context.Context, projection []int, batchSize int) (physical.Relation, error)
}

// Catalog resolves table and function metadata by name.
type Catalog interface {
	GetTableMeta(name string) (*arrow.Schema, bool)
	GetFunctionMeta(name string) (*FunctionMeta, bool)
}

// MemCatalog is an in-memory Catalog backed by registered Providers and a
// fixed built-in function table, guarded by a RWMutex since a long-lived
// embedding host may register tables from one goroutine while queries run
// concurrently on others.
type MemCatalog struct {
	mu        sync.RWMutex
	providers map[string]Provider
	functions map[string]*FunctionMeta
}

// NewMemCatalog builds a MemCatalog preloaded with the built-in scalar
// and aggregate function metadata.
func NewMemCatalog() *MemCatalog {
	c := &MemCatalog{
		providers: make(map[string]Provider),
		functions: make(map[string]*FunctionMeta),
	}
	registerBuiltinFunctions(c.functions)
	return c
}

// RegisterTable adds or replaces a named table's Provider.
func (c *MemCatalog) RegisterTable(name string, p Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[name] = p
}

// GetProvider returns the Provider registered for name, if any.
func (c *MemCatalog) GetProvider(name string) (Provider, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.providers[name]
	return p, ok
}

// GetTableMeta implements Catalog.
func (c *MemCatalog) GetTableMeta(name string) (*arrow.Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.providers[name]
	if !ok {
		return nil, false
	}
	return p.Schema(), true
}

// GetFunctionMeta implements Catalog.
func (c *MemCatalog) GetFunctionMeta(name string) (*FunctionMeta, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fm, ok := c.functions[name]
	return fm, ok
}

func registerBuiltinFunctions(functions map[string]*FunctionMeta) {
	f64 := arrow.PrimitiveTypes.Float64
	for key, fn := range builtin.Scalars {
		args := make([]arrow.Field, len(fn.ArgTypes))
		for i, t := range fn.ArgTypes {
			args[i] = arrow.Field{Name: fmt.Sprintf("arg%d", i), Type: t}
		}
		functions[key] = &FunctionMeta{Name: fn.Name, Args: args, ReturnType: fn.ReturnType}
	}

	functions["min"] = &FunctionMeta{Name: "min"}
	functions["max"] = &FunctionMeta{Name: "max"}
	functions["sum"] = &FunctionMeta{Name: "sum", ReturnType: f64}
	functions["avg"] = &FunctionMeta{Name: "avg", ReturnType: f64}
	functions["count"] = &FunctionMeta{Name: "count", ReturnType: arrow.PrimitiveTypes.Int64}
}
