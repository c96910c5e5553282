package optimizer

import (
	"fmt"

	"colonnade/internal/plan"
)

// PhysicalKind is the single implementation chosen for a logical node: the
// optimizer's final step picks, for each logical operator, exactly one
// physical implementation.
type PhysicalKind int

const (
	PhysSeqScan PhysicalKind = iota
	PhysFilter
	PhysProject
	PhysHashJoin
	PhysNestedLoopJoin
	PhysHashAggregate
	PhysStreamingAggregate
	PhysSort
	PhysTopK
	PhysLimit
	PhysValues
	PhysUnion
	PhysInsert
	PhysCreateTable
	PhysDropTable
	PhysExplain
)

// PhysicalPlan pairs a logical node with the single physical operator kind
// chosen for it, recursively over its children. internal/exec builds the
// actual Operator tree from this.
type PhysicalPlan struct {
	Kind     PhysicalKind
	Logical  *plan.Node
	Children []*PhysicalPlan
}

// Lower chooses a physical implementation for every node of an already
// rule-optimized logical tree. A node with no physical implementation
// (an unresolved CTE reference, or a kind the lowering table does not
// know) is an error, never a silent fallback.
func Lower(n *plan.Node) (*PhysicalPlan, error) {
	children := make([]*PhysicalPlan, 0, 2)
	for _, c := range n.Children() {
		child, err := Lower(c)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	kind, err := choosePhysical(n)
	if err != nil {
		return nil, err
	}
	return &PhysicalPlan{Kind: kind, Logical: n, Children: children}, nil
}

func choosePhysical(n *plan.Node) (PhysicalKind, error) {
	switch n.Kind {
	case plan.NodeScan:
		return PhysSeqScan, nil
	case plan.NodeFilter:
		return PhysFilter, nil
	case plan.NodeProject:
		return PhysProject, nil
	case plan.NodeJoin:
		if n.JoinOn != nil || n.JoinUsing != nil {
			return PhysHashJoin, nil
		}
		return PhysNestedLoopJoin, nil
	case plan.NodeCrossProduct:
		return PhysNestedLoopJoin, nil
	case plan.NodeAggregate:
		if isStreamable(n) {
			return PhysStreamingAggregate, nil
		}
		return PhysHashAggregate, nil
	case plan.NodeSort:
		if n.TopKEligible {
			return PhysTopK, nil
		}
		return PhysSort, nil
	case plan.NodeLimit:
		return PhysLimit, nil
	case plan.NodeValues:
		return PhysValues, nil
	case plan.NodeUnion:
		return PhysUnion, nil
	case plan.NodeInsert:
		return PhysInsert, nil
	case plan.NodeCreateTable:
		return PhysCreateTable, nil
	case plan.NodeDropTable:
		return PhysDropTable, nil
	case plan.NodeExplain:
		return PhysExplain, nil
	case plan.NodeCTERef:
		return 0, fmt.Errorf("optimizer: unresolved CTE reference %q", n.CTEName)
	case plan.NodeCTEBinding:
		return 0, fmt.Errorf("optimizer: CTE binding %q survived rule rewriting", n.CTEName)
	default:
		return 0, fmt.Errorf("optimizer: no physical implementation for node kind %d", n.Kind)
	}
}

// isStreamable reports whether n's child already delivers rows ordered by
// n's group keys, making a single-pass streaming aggregate valid. Only the
// direct child-is-Sort-on-the-same-keys case is recognized; a scan's
// natural order is not assumed to match group-key order.
func isStreamable(n *plan.Node) bool {
	if n.Left == nil || n.Left.Kind != plan.NodeSort {
		return false
	}
	sortKeys := n.Left.SortKeys
	if len(sortKeys) < len(n.GroupKeys) {
		return false
	}
	for i, gk := range n.GroupKeys {
		if !sameExprShape(sortKeys[i].Expr, gk) {
			return false
		}
	}
	return true
}
