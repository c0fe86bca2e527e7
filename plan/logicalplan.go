package plan

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// PlanKind discriminates the variant carried by a LogicalPlan node.
type PlanKind int

const (
	EmptyRelationKind PlanKind = iota
	TableScanKind
	SelectionKind
	ProjectionKind
	AggregateKind
	SortKind
	LimitKind
)

// LogicalPlan is the recursive logical plan tree described in spec.md §3.
// Schema always equals the schema this node's physical realization
// actually produces.
type LogicalPlan struct {
	Kind   PlanKind
	Schema *arrow.Schema
	Input  *LogicalPlan

	// TableScanKind
	SchemaName string
	TableName  string
	Projection []int // nil means "None"; populated only by the optimizer

	// SelectionKind
	Expr *Expr

	// ProjectionKind
	ProjectExprs []*Expr

	// AggregateKind
	GroupExpr []*Expr
	AggrExpr  []*Expr

	// SortKind
	SortExprs []*Expr

	// LimitKind
	LimitExpr *Expr
}

// EmptyRelation builds an EmptyRelation{schema}.
func EmptyRelation(schema *arrow.Schema) *LogicalPlan {
	return &LogicalPlan{Kind: EmptyRelationKind, Schema: schema}
}

// TableScan builds a TableScan{schema_name, table_name, schema,
// projection}. projection is nil until the optimizer populates it.
func TableScan(schemaName, tableName string, schema *arrow.Schema, projection []int) *LogicalPlan {
	return &LogicalPlan{
		Kind:       TableScanKind,
		Schema:     schema,
		SchemaName: schemaName,
		TableName:  tableName,
		Projection: projection,
	}
}

// Selection builds a Selection{expr, input}. Its schema equals the input's
// schema (a filter never changes shape).
func Selection(expr *Expr, input *LogicalPlan) *LogicalPlan {
	return &LogicalPlan{Kind: SelectionKind, Expr: expr, Input: input, Schema: input.Schema}
}

// Projection builds a Projection{expr, input, schema}.
func Projection(exprs []*Expr, input *LogicalPlan, schema *arrow.Schema) *LogicalPlan {
	return &LogicalPlan{Kind: ProjectionKind, ProjectExprs: exprs, Input: input, Schema: schema}
}

// Aggregate builds an Aggregate{input, group_expr, aggr_expr, schema}.
func Aggregate(input *LogicalPlan, groupExpr, aggrExpr []*Expr, schema *arrow.Schema) *LogicalPlan {
	return &LogicalPlan{Kind: AggregateKind, Input: input, GroupExpr: groupExpr, AggrExpr: aggrExpr, Schema: schema}
}

// Sort builds a Sort{expr, input, schema}.
func Sort(exprs []*Expr, input *LogicalPlan, schema *arrow.Schema) *LogicalPlan {
	return &LogicalPlan{Kind: SortKind, SortExprs: exprs, Input: input, Schema: schema}
}

// Limit builds a Limit{expr, input, schema}.
func Limit(expr *Expr, input *LogicalPlan, schema *arrow.Schema) *LogicalPlan {
	return &LogicalPlan{Kind: LimitKind, LimitExpr: expr, Input: input, Schema: schema}
}

// String renders the plan tree the way spec.md §8's worked examples do,
// e.g. "Projection: #0, #1, #2\n  Selection: ...\n    TableScan: ...".
func (p *LogicalPlan) String() string {
	return p.string(0)
}

func (p *LogicalPlan) string(indent int) string {
	line := strings.Repeat("  ", indent) + p.nodeString()
	if p.Input != nil {
		return line + "\n" + p.Input.string(indent+1)
	}
	return line
}

func (p *LogicalPlan) nodeString() string {
	switch p.Kind {
	case EmptyRelationKind:
		return "EmptyRelation"
	case TableScanKind:
		proj := "None"
		if p.Projection != nil {
			proj = fmt.Sprint(p.Projection)
		}
		return fmt.Sprintf("TableScan: %s projection=%s", p.TableName, proj)
	case SelectionKind:
		return fmt.Sprintf("Selection: %s", p.Expr)
	case ProjectionKind:
		return fmt.Sprintf("Projection: %s", joinExprs(p.ProjectExprs))
	case AggregateKind:
		return fmt.Sprintf("Aggregate: groupBy=%s, aggr=%s", exprListString(p.GroupExpr), exprListString(p.AggrExpr))
	case SortKind:
		return fmt.Sprintf("Sort: %s", joinExprs(p.SortExprs))
	case LimitKind:
		return fmt.Sprintf("Limit: %s", p.LimitExpr)
	default:
		return "Unknown"
	}
}

func joinExprs(exprs []*Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func exprListString(exprs []*Expr) string {
	return "[[" + joinExprs(exprs) + "]]"
}
