package optimizer

import "colonnade/internal/plan"

// defaultSelectivity is applied per extra equi-join predicate when no
// cardinality estimate is available.
const defaultSelectivity = 0.1

// estimatedCardinality approximates row_count * selectivity_hint, defaulted
// to 0.1 per extra predicate. Leaf scans report their table's row count
// (via EstimatedRows, populated by planning); composite nodes degrade to
// the product of their children's estimates scaled by one default
// selectivity factor, since no cost model is in scope.
func estimatedCardinality(n *plan.Node) float64 {
	switch n.Kind {
	case plan.NodeScan:
		if n.EstimatedRows > 0 {
			return float64(n.EstimatedRows)
		}
		return 1000 // unknown table size fallback
	case plan.NodeFilter:
		return estimatedCardinality(n.Left) * defaultSelectivity
	case plan.NodeJoin, plan.NodeCrossProduct:
		left := estimatedCardinality(n.Left)
		right := float64(0)
		if n.Right != nil {
			right = estimatedCardinality(n.Right)
		}
		return left * right * defaultSelectivity
	default:
		if n.Left != nil {
			return estimatedCardinality(n.Left)
		}
		return 1000
	}
}

// joinOrderingRule reorders a chain of inner joins on equi-predicates by
// ascending estimated cardinality, breaking ties deterministically by the
// input's position in the original chain.
type joinOrderingRule struct{}

func (joinOrderingRule) Name() string { return "join_ordering" }

func (r joinOrderingRule) Apply(n *plan.Node) (*plan.Node, bool) {
	changed := walkChildren(n, r.Apply)
	if n.Kind != plan.NodeJoin || n.JoinKind != plan.JoinInner || n.JoinOn == nil {
		return n, changed
	}

	leaves := collectInnerJoinChain(n)
	if len(leaves) < 3 {
		return n, changed
	}

	type ranked struct {
		node  *plan.Node
		card  float64
		index int
	}
	ranked2 := make([]ranked, len(leaves))
	for i, l := range leaves {
		ranked2[i] = ranked{node: l, card: estimatedCardinality(l), index: i}
	}

	alreadySorted := true
	for i := 1; i < len(ranked2); i++ {
		if ranked2[i].card < ranked2[i-1].card {
			alreadySorted = false
			break
		}
	}
	if alreadySorted {
		return n, changed
	}

	for i := 0; i < len(ranked2); i++ {
		for j := i + 1; j < len(ranked2); j++ {
			if ranked2[j].card < ranked2[i].card ||
				(ranked2[j].card == ranked2[i].card && ranked2[j].index < ranked2[i].index) {
				ranked2[i], ranked2[j] = ranked2[j], ranked2[i]
			}
		}
	}

	rebuilt := ranked2[0].node
	for i, r := range ranked2[1:] {
		on := n.JoinOn
		if i < len(ranked2)-2 {
			on = nil // intermediate joins carry no predicate; it lives on the final join
		}
		rebuilt = plan.Join(plan.JoinInner, rebuilt, r.node, on, nil)
	}
	return rebuilt, true
}

// collectInnerJoinChain flattens a left-deep chain of inner joins into its
// leaf inputs; a node that is not an inner join yields a one-element slice
// holding it.
func collectInnerJoinChain(n *plan.Node) []*plan.Node {
	var leaves []*plan.Node
	var walk func(*plan.Node)
	walk = func(cur *plan.Node) {
		if cur.Kind == plan.NodeJoin && cur.JoinKind == plan.JoinInner {
			walk(cur.Left)
			leaves = append(leaves, cur.Right)
			return
		}
		leaves = append(leaves, cur)
	}
	walk(n)
	return leaves
}
