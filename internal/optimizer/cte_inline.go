package optimizer

import "colonnade/internal/plan"

// cteInlineRule replaces every CTERef leaf with a deep copy of its
// binding's definition and removes the CTEBinding node, so no CTE node
// survives to physical lowering. It runs first in the rule list: the
// remaining rules then see a plain relational tree and every reference
// gets the full pushdown treatment independently. A CTERef with no
// enclosing binding for its name is left in place and rejected by Lower.
type cteInlineRule struct{}

func (cteInlineRule) Name() string { return "cte_inline" }

func (r cteInlineRule) Apply(n *plan.Node) (*plan.Node, bool) {
	return inlineCTEs(n, nil)
}

func inlineCTEs(n *plan.Node, defs map[string]*plan.Node) (*plan.Node, bool) {
	switch n.Kind {
	case plan.NodeCTEBinding:
		// The definition may itself reference CTEs from an outer binding.
		def, _ := inlineCTEs(n.Left, defs)
		scoped := make(map[string]*plan.Node, len(defs)+1)
		for k, v := range defs {
			scoped[k] = v
		}
		scoped[n.CTEName] = def
		body, _ := inlineCTEs(n.Right, scoped)
		return body, true

	case plan.NodeCTERef:
		if def, ok := defs[n.CTEName]; ok {
			// Each reference gets its own copy: later rules mutate trees in
			// place, and two references must not alias one subtree.
			return def.Clone(), true
		}
		return n, false

	default:
		changed := walkChildren(n, func(c *plan.Node) (*plan.Node, bool) {
			return inlineCTEs(c, defs)
		})
		return n, changed
	}
}
