package optimizer

import "colonnade/internal/plan"

// limitPushdownRule pushes a Limit directly above a Scan (no intervening
// ordering/aggregation/join) down as "limit = k+offset" on the scan. A
// Limit above a Sort instead marks the sort as top-K eligible rather than
// rewriting the tree; physical lowering picks the bounded-heap operator.
type limitPushdownRule struct{}

func (limitPushdownRule) Name() string { return "limit_pushdown" }

func (r limitPushdownRule) Apply(n *plan.Node) (*plan.Node, bool) {
	changed := walkChildren(n, r.Apply)
	if n.Kind != plan.NodeLimit {
		return n, changed
	}

	switch child := n.Left; child.Kind {
	case plan.NodeScan:
		k := n.LimitCount + n.LimitOffset
		if child.PushedLimit < 0 || k < int64(child.PushedLimit) {
			child.PushedLimit = int(k)
			child.PushedOffset = int(n.LimitOffset)
			return n, true
		}
	case plan.NodeSort:
		if !child.TopKEligible {
			child.TopKEligible = true
			child.TopKSize = n.LimitCount + n.LimitOffset
			return n, true
		}
	}
	return n, changed
}
