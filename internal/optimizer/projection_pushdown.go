package optimizer

import "colonnade/internal/plan"

// projectionPushdownRule retains, for each Scan, only the columns
// referenced by its ancestors, pruning unused columns. Runs top-down so a
// Scan sees the accumulated required set from everything above it; when a
// scan is pruned, the resulting column renumbering is propagated back up
// through pass-through ancestors (Filter, Sort, Limit) until the nearest
// numbering boundary (Project, Aggregate, Join, or the tree root), whose
// expressions are rewritten against the new numbering.
type projectionPushdownRule struct{}

func (projectionPushdownRule) Name() string { return "projection_pushdown" }

func (r projectionPushdownRule) Apply(n *plan.Node) (*plan.Node, bool) {
	// The root's own output is the query's output: everything is required.
	out, changed, _ := pruneScans(n, allColumns(n))
	return out, changed
}

// allColumns returns every output-column index of n, used as the
// "required" set wherever no ancestor constrains a child.
func allColumns(n *plan.Node) []int {
	idx := make([]int, len(n.Output))
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// pruneScans walks the tree, narrowing each Scan's ProjectedCols to the
// columns needed by everything above it. It returns the (possibly
// replaced) node, whether anything changed, and, when a pruned scan's
// renumbering is still visible at this node's output, the old-to-new
// column index remap the caller must apply to its own expressions.
func pruneScans(n *plan.Node, neededFromAbove []int) (*plan.Node, bool, map[int]int) {
	switch n.Kind {
	case plan.NodeScan:
		needed := dedupIndices(neededFromAbove)
		if len(needed) == 0 || len(needed) >= len(n.ProjectedCols) {
			return n, false, nil
		}
		remap := make(map[int]int, len(needed))
		for newIdx, oldIdx := range needed {
			remap[oldIdx] = newIdx
		}
		// PushedFilters carry table-level column ids (see predicate
		// pushdown's rebind), so pruning the scan's output never touches
		// them.
		n.ProjectedCols = selectIndices(n.ProjectedCols, needed)
		n.Output = selectOutput(n.Output, needed)
		return n, true, remap

	case plan.NodeFilter:
		childNeeded := unionRefs(neededFromAbove, n.Predicate.ColumnRefs(nil), 0)
		var changed bool
		var remap map[int]int
		n.Left, changed, remap = pruneScans(n.Left, childNeeded)
		if remap != nil {
			remapRefs(n.Predicate, remap)
			n.Output = n.Left.Output
		}
		return n, changed, remap

	case plan.NodeSort:
		var refs []plan.Binding
		for _, k := range n.SortKeys {
			refs = k.Expr.ColumnRefs(refs)
		}
		childNeeded := unionRefs(neededFromAbove, refs, 0)
		var changed bool
		var remap map[int]int
		n.Left, changed, remap = pruneScans(n.Left, childNeeded)
		if remap != nil {
			for _, k := range n.SortKeys {
				remapRefs(k.Expr, remap)
			}
			n.Output = n.Left.Output
		}
		return n, changed, remap

	case plan.NodeLimit:
		var changed bool
		var remap map[int]int
		n.Left, changed, remap = pruneScans(n.Left, neededFromAbove)
		if remap != nil {
			n.Output = n.Left.Output
		}
		return n, changed, remap

	case plan.NodeProject:
		var refs []plan.Binding
		for _, e := range n.Projections {
			refs = e.ColumnRefs(refs)
		}
		var changed bool
		var remap map[int]int
		n.Left, changed, remap = pruneScans(n.Left, refsToIndices(refs, 0))
		if remap != nil {
			for _, e := range n.Projections {
				remapRefs(e, remap)
			}
		}
		// A projection renumbers columns; the child's remap stops here.
		return n, changed, nil

	case plan.NodeAggregate:
		var refs []plan.Binding
		for _, k := range n.GroupKeys {
			refs = k.ColumnRefs(refs)
		}
		for _, a := range n.Aggregates {
			refs = a.Call.ColumnRefs(refs)
		}
		var changed bool
		var remap map[int]int
		n.Left, changed, remap = pruneScans(n.Left, refsToIndices(refs, 0))
		if remap != nil {
			for _, k := range n.GroupKeys {
				remapRefs(k, remap)
			}
			for _, a := range n.Aggregates {
				remapRefs(a.Call, remap)
			}
		}
		return n, changed, nil

	default:
		// Joins, unions, DDL/DML sinks: conservatively require every child
		// column rather than renumbering across a two-child namespace.
		changed := false
		if n.Left != nil {
			var c bool
			n.Left, c, _ = pruneScans(n.Left, allColumns(n.Left))
			changed = changed || c
		}
		if n.Right != nil {
			var c bool
			n.Right, c, _ = pruneScans(n.Right, allColumns(n.Right))
			changed = changed || c
		}
		return n, changed, nil
	}
}

// remapRefs rewrites every child-0 column reference inside e through
// remap, in place.
func remapRefs(e *plan.Expr, remap map[int]int) {
	if e == nil {
		return
	}
	if e.Kind == plan.ExprColumnRef && e.Ref.ChildIdx == 0 {
		if newIdx, ok := remap[e.Ref.ColIdx]; ok {
			e.Ref.ColIdx = newIdx
		}
	}
	remapRefs(e.Left, remap)
	remapRefs(e.Right, remap)
	remapRefs(e.CastInput, remap)
	for _, a := range e.Args {
		remapRefs(a, remap)
	}
	for _, b := range e.Branches {
		remapRefs(b.When, remap)
		remapRefs(b.Then, remap)
	}
	remapRefs(e.Else, remap)
	remapRefs(e.InTarget, remap)
	for _, v := range e.InList {
		remapRefs(v, remap)
	}
	remapRefs(e.LikeTarget, remap)
	remapRefs(e.LikePattern, remap)
}

func dedupIndices(in []int) []int {
	seen := map[int]bool{}
	out := make([]int, 0, len(in))
	for _, i := range in {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	return out
}

func selectIndices(cur []int, keep []int) []int {
	out := make([]int, 0, len(keep))
	for _, k := range keep {
		if k < len(cur) {
			out = append(out, cur[k])
		}
	}
	return out
}

func selectOutput(cur []plan.OutputColumn, keep []int) []plan.OutputColumn {
	out := make([]plan.OutputColumn, 0, len(keep))
	for _, k := range keep {
		if k < len(cur) {
			out = append(out, cur[k])
		}
	}
	return out
}

func refsToIndices(refs []plan.Binding, childIdx int) []int {
	seen := map[int]bool{}
	var out []int
	for _, r := range refs {
		if r.ChildIdx == childIdx && !seen[r.ColIdx] {
			seen[r.ColIdx] = true
			out = append(out, r.ColIdx)
		}
	}
	return out
}

func unionRefs(existing []int, refs []plan.Binding, childIdx int) []int {
	seen := map[int]bool{}
	var out []int
	for _, i := range existing {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	for _, r := range refs {
		if r.ChildIdx == childIdx && !seen[r.ColIdx] {
			seen[r.ColIdx] = true
			out = append(out, r.ColIdx)
		}
	}
	return out
}
