// Package optimizer rewrites a logical plan.Node tree in place through a
// fixed sequence of rules, applied to fixpoint or a pass limit (no cost
// model), then lowers the rewritten tree to a physical plan the execution
// engine can run. The rule driver applies a fixed-order rule list until
// nothing changes, the same single-pass shape as a migration planner
// walking its diff rules to fixpoint.
package optimizer

import "colonnade/internal/plan"

// DefaultMaxPasses bounds optimize() when rules keep reporting changes
// without reaching a fixpoint, guarding against an oscillating rule set.
const DefaultMaxPasses = 20

// Rule rewrites a node (and, transitively, its children) and reports
// whether it changed anything so the driver loop knows to keep iterating.
type Rule interface {
	Name() string
	Apply(n *plan.Node) (*plan.Node, bool)
}

// Rules is the fixed order rules are applied in.
var Rules = []Rule{
	cteInlineRule{},
	constantFoldingRule{},
	predicatePushdownRule{},
	projectionPushdownRule{},
	limitPushdownRule{},
	joinOrderingRule{},
	trivialRewriteRule{},
}

// Optimize repeatedly applies Rules, in order, until no rule changes the
// tree in a full pass or DefaultMaxPasses is reached, then returns the
// rewritten logical tree.
func Optimize(root *plan.Node) *plan.Node {
	for pass := 0; pass < DefaultMaxPasses; pass++ {
		changed := false
		for _, r := range Rules {
			var ruleChanged bool
			root, ruleChanged = r.Apply(root)
			changed = changed || ruleChanged
		}
		if !changed {
			break
		}
	}
	return root
}

// walkChildren applies fn to n's children in place, returning whether any
// child changed. Rules call this to recurse before or after their own
// node-local rewrite.
func walkChildren(n *plan.Node, fn func(*plan.Node) (*plan.Node, bool)) bool {
	changed := false
	if n.Left != nil {
		var c bool
		n.Left, c = fn(n.Left)
		changed = changed || c
	}
	if n.Right != nil {
		var c bool
		n.Right, c = fn(n.Right)
		changed = changed || c
	}
	return changed
}
