package optimizer

import "colonnade/internal/plan"

// predicatePushdownRule pushes a Filter directly above a Scan by merging
// conjuncts that reference only scan columns into the scan's pushed-filter
// list; a Filter above a Join has its conjuncts split by which side's
// columns they reference and pushed below the join; whatever remains stays
// in a Filter above the join (the join's Residual field is not set).
type predicatePushdownRule struct{}

func (predicatePushdownRule) Name() string { return "predicate_pushdown" }

func (r predicatePushdownRule) Apply(n *plan.Node) (*plan.Node, bool) {
	changed := walkChildren(n, r.Apply)
	if n.Kind != plan.NodeFilter {
		return n, changed
	}

	conjuncts := splitConjuncts(n.Predicate, nil)

	switch child := n.Left; child.Kind {
	case plan.NodeScan:
		var remaining []*plan.Expr
		pushed := 0
		for _, c := range conjuncts {
			if referencesOnlyChild(c, 0) && isPushableFilter(c) && !c.WillFail {
				child.PushedFilters = append(child.PushedFilters, rebind(c, child.ProjectedCols))
				pushed++
			} else {
				remaining = append(remaining, c)
			}
		}
		if pushed == 0 {
			return n, changed
		}
		if len(remaining) == 0 {
			return child, true
		}
		n.Predicate = joinConjuncts(remaining)
		return n, true

	case plan.NodeJoin:
		var leftOnly, rightOnly, residual []*plan.Expr
		for _, c := range conjuncts {
			switch {
			case referencesOnlyChild(c, 0):
				leftOnly = append(leftOnly, c)
			case referencesOnlyChild(c, 1):
				rightOnly = append(rightOnly, c)
			default:
				residual = append(residual, c)
			}
		}
		if len(leftOnly) == 0 && len(rightOnly) == 0 {
			return n, changed
		}
		if len(leftOnly) > 0 {
			child.Left = plan.Filter(child.Left, joinConjuncts(leftOnly))
		}
		if len(rightOnly) > 0 && child.Right != nil {
			child.Right = plan.Filter(child.Right, joinConjuncts(rightOnly))
		}
		if len(residual) == 0 {
			return child, true
		}
		n.Predicate = joinConjuncts(residual)
		return n, true
	}

	return n, changed
}

// splitConjuncts flattens a tree of AND-connected expressions into a flat
// list of conjuncts.
func splitConjuncts(e *plan.Expr, out []*plan.Expr) []*plan.Expr {
	if e == nil {
		return out
	}
	if e.Kind == plan.ExprBinaryOp && e.BinOp == plan.OpAnd {
		out = splitConjuncts(e.Left, out)
		out = splitConjuncts(e.Right, out)
		return out
	}
	return append(out, e)
}

// joinConjuncts rebuilds a single AND-tree from a conjunct list.
func joinConjuncts(cs []*plan.Expr) *plan.Expr {
	if len(cs) == 0 {
		return nil
	}
	out := cs[0]
	for _, c := range cs[1:] {
		out = plan.Binary(plan.OpAnd, out, c)
	}
	return out
}

// isPushableFilter reports whether a conjunct has the one shape the
// storage layer's pushed-filter list evaluates: a plain column compared to
// a constant. Everything else stays in the Filter operator.
func isPushableFilter(e *plan.Expr) bool {
	if e.Kind != plan.ExprComparison {
		return false
	}
	l, r := e.Left, e.Right
	return (l.Kind == plan.ExprColumnRef && r.Kind == plan.ExprConstant) ||
		(l.Kind == plan.ExprConstant && r.Kind == plan.ExprColumnRef)
}

// referencesOnlyChild reports whether every column reference inside e binds
// to childIdx.
func referencesOnlyChild(e *plan.Expr, childIdx int) bool {
	for _, ref := range e.ColumnRefs(nil) {
		if ref.ChildIdx != childIdx {
			return false
		}
	}
	return true
}

// rebind rewrites a pushed conjunct's column bindings from scan-output
// indices to table-level column ids (through the scan's projection list).
// Pushed filters address row-group segments directly, so they survive any
// later projection pruning of the scan's own output unchanged.
func rebind(e *plan.Expr, projected []int) *plan.Expr {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Kind == plan.ExprColumnRef {
		clone.Ref.ChildIdx = 0
		if clone.Ref.ColIdx < len(projected) {
			clone.Ref.ColIdx = projected[clone.Ref.ColIdx]
		}
	}
	clone.Left = rebind(e.Left, projected)
	clone.Right = rebind(e.Right, projected)
	clone.CastInput = rebind(e.CastInput, projected)
	if e.Args != nil {
		clone.Args = make([]*plan.Expr, len(e.Args))
		for i, a := range e.Args {
			clone.Args[i] = rebind(a, projected)
		}
	}
	return &clone
}
