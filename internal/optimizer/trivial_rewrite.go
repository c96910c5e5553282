package optimizer

import (
	"colonnade/internal/plan"
	"colonnade/internal/types"
)

// trivialRewriteRule performs common subexpression elimination within a
// single node's expression list (via a simple structural-equality cache)
// plus the trivial identities x AND TRUE -> x, x OR FALSE -> x,
// NOT NOT x -> x, removal of a Filter whose predicate is a literal TRUE
// (such as the TRUE left behind once predicate pushdown has split
// x AND TRUE), and the three-valued-logic-safe x = x -> (x IS NOT NULL)
// OR TRUE rewrite (a bare x = x would evaluate to NULL, not TRUE, whenever
// x is NULL).
type trivialRewriteRule struct{}

func (trivialRewriteRule) Name() string { return "trivial_rewrite" }

func (r trivialRewriteRule) Apply(n *plan.Node) (*plan.Node, bool) {
	changed := walkChildren(n, r.Apply)

	rewrite := func(e *plan.Expr) (*plan.Expr, bool) { return rewriteTrivial(e) }

	if n.Predicate != nil {
		var c bool
		n.Predicate, c = rewrite(n.Predicate)
		changed = changed || c
		if n.Kind == plan.NodeFilter && isTrueConst(n.Predicate) && !n.Predicate.WillFail {
			return n.Left, true
		}
	}
	for i, e := range n.Projections {
		var c bool
		n.Projections[i], c = rewrite(e)
		changed = changed || c
	}
	dedup := eliminateCommonSubexprs(n.Projections)
	if dedup {
		changed = true
	}
	return n, changed
}

func rewriteTrivial(e *plan.Expr) (*plan.Expr, bool) {
	if e == nil {
		return nil, false
	}
	changed := false
	if e.Left != nil {
		var c bool
		e.Left, c = rewriteTrivial(e.Left)
		changed = changed || c
	}
	if e.Right != nil {
		var c bool
		e.Right, c = rewriteTrivial(e.Right)
		changed = changed || c
	}

	switch e.Kind {
	case plan.ExprBinaryOp:
		switch e.BinOp {
		case plan.OpAnd:
			if isTrueConst(e.Right) {
				return e.Left, true
			}
			if isTrueConst(e.Left) {
				return e.Right, true
			}
		case plan.OpOr:
			if isFalseConst(e.Right) {
				return e.Left, true
			}
			if isFalseConst(e.Left) {
				return e.Right, true
			}
		}
	case plan.ExprUnaryOp:
		if e.UnOp == plan.OpNot && e.Left.Kind == plan.ExprUnaryOp && e.Left.UnOp == plan.OpNot {
			return e.Left.Left, true
		}
	case plan.ExprComparison:
		if e.CompareOp == plan.CmpEq && sameExprShape(e.Left, e.Right) {
			notNull := plan.Unary(plan.OpIsNotNull, e.Left)
			rewritten := plan.Binary(plan.OpOr, notNull, plan.Constant(types.NewBoolean(true)))
			return rewritten, true
		}
	}
	return e, changed
}

func isTrueConst(e *plan.Expr) bool {
	return e.IsConstant() && !e.Value.IsNull() && e.Value.Type == types.Boolean && e.Value.AsBool()
}

func isFalseConst(e *plan.Expr) bool {
	return e.IsConstant() && !e.Value.IsNull() && e.Value.Type == types.Boolean && !e.Value.AsBool()
}

// sameExprShape reports whether two expressions are structurally identical
// column references (the only shape this rule cares about: literal x = x
// rather than two differently-computed but coincidentally-equal values).
func sameExprShape(a, b *plan.Expr) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != plan.ExprColumnRef || b.Kind != plan.ExprColumnRef {
		return false
	}
	return a.Ref == b.Ref
}

// eliminateCommonSubexprs replaces later occurrences of a structurally
// identical column-reference expression within exprs with a pointer to the
// first occurrence, a conservative form of CSE scoped to plain column
// references (richer subexpression hashing is unnecessary at this
// projection-list scale).
func eliminateCommonSubexprs(exprs []*plan.Expr) bool {
	changed := false
	seen := map[plan.Binding]*plan.Expr{}
	for i, e := range exprs {
		if e == nil || e.Kind != plan.ExprColumnRef {
			continue
		}
		if first, ok := seen[e.Ref]; ok {
			if first != e {
				exprs[i] = first
				changed = true
			}
		} else {
			seen[e.Ref] = e
		}
	}
	return changed
}
