// Package optimize implements the projection pushdown pass described in
// spec.md §4.3: a single top-down rewrite that accumulates the set of
// columns actually referenced above a TableScan and records them as its
// Projection, so a Provider can avoid materializing unused columns.
//
// Accumulation stops at Projection, Sort, and Limit nodes reached by
// recursion rather than continuing to thread the outer column set past
// them — this reproduces the distilled spec's own documented limitation
// (spec.md §9 open question 3) rather than extending it, per SPEC_FULL.md.
// The root of the tree is an exception: if the plan's outermost node is
// itself a Projection, its own columns seed the set pushed into its input,
// matching spec.md §8 scenario 3.
package optimize

import (
	"github.com/golapdb/golap/plan"
)

// PushDownProjection returns a new plan tree with every TableScan's
// Projection field populated from the columns referenced above it. The
// input tree is not mutated. The pass is idempotent: running it again on
// its own output is a no-op.
func PushDownProjection(p *plan.LogicalPlan) *plan.LogicalPlan {
	if p != nil && p.Kind == plan.ProjectionKind {
		used := make(map[int]struct{})
		for _, e := range p.ProjectExprs {
			plan.ColumnsUsed(e, used)
		}
		cp := *p
		cp.Input = pushDown(p.Input, used)
		return &cp
	}
	return pushDown(p, nil)
}

// pushDown rewrites p given the column set accumulated by its ancestors.
// used is nil to mean "no projection constraint yet observed" (e.g. at
// the tree root, or below a Projection/Sort/Limit that resets tracking).
func pushDown(p *plan.LogicalPlan, used map[int]struct{}) *plan.LogicalPlan {
	if p == nil {
		return nil
	}

	switch p.Kind {
	case plan.TableScanKind:
		cp := *p
		if used != nil {
			cp.Projection = sortedKeys(used)
		}
		return &cp

	case plan.SelectionKind:
		merged := cloneUsed(used)
		plan.ColumnsUsed(p.Expr, merged)
		cp := *p
		cp.Input = pushDown(p.Input, merged)
		return &cp

	case plan.AggregateKind:
		merged := cloneUsed(used)
		for _, e := range p.GroupExpr {
			plan.ColumnsUsed(e, merged)
		}
		for _, e := range p.AggrExpr {
			plan.ColumnsUsed(e, merged)
		}
		cp := *p
		cp.Input = pushDown(p.Input, merged)
		return &cp

	case plan.ProjectionKind, plan.SortKind, plan.LimitKind:
		// Accumulation resets here: the exprs at this node are not folded
		// into the set pushed further down, matching the distilled spec's
		// stopping rule rather than DataFusion's full recursive version.
		cp := *p
		cp.Input = pushDown(p.Input, nil)
		return &cp

	default: // EmptyRelationKind and anything with no Input
		cp := *p
		return &cp
	}
}

func cloneUsed(used map[int]struct{}) map[int]struct{} {
	out := make(map[int]struct{}, len(used))
	for k := range used {
		out[k] = struct{}{}
	}
	return out
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
