package optimizer

import (
	"colonnade/internal/plan"
	"colonnade/internal/types"
)

// constantFoldingRule replaces an expression whose operands are all
// constants with its evaluated constant. Division/modulo by a literal
// zero is folded structurally but marked WillFail so pushdown does not
// discard the eventual runtime error.
type constantFoldingRule struct{}

func (constantFoldingRule) Name() string { return "constant_folding" }

func (r constantFoldingRule) Apply(n *plan.Node) (*plan.Node, bool) {
	changed := walkChildren(n, r.Apply)
	changed = foldNodeExprs(n) || changed
	return n, changed
}

func foldNodeExprs(n *plan.Node) bool {
	changed := false
	fold := func(e *plan.Expr) (*plan.Expr, bool) { return foldExpr(e) }

	if n.Predicate != nil {
		n.Predicate, changed = fold(n.Predicate)
	}
	for i, e := range n.Projections {
		var c bool
		n.Projections[i], c = fold(e)
		changed = changed || c
	}
	for i, e := range n.PushedFilters {
		var c bool
		n.PushedFilters[i], c = fold(e)
		changed = changed || c
	}
	if n.JoinOn != nil {
		var c bool
		n.JoinOn, c = fold(n.JoinOn)
		changed = changed || c
	}
	return changed
}

// foldExpr recursively folds e, returning the possibly-replaced expression
// and whether anything changed.
func foldExpr(e *plan.Expr) (*plan.Expr, bool) {
	if e == nil {
		return nil, false
	}
	changed := false

	if e.Left != nil {
		var c bool
		e.Left, c = foldExpr(e.Left)
		changed = changed || c
	}
	if e.Right != nil {
		var c bool
		e.Right, c = foldExpr(e.Right)
		changed = changed || c
	}
	for i, a := range e.Args {
		var c bool
		e.Args[i], c = foldExpr(a)
		changed = changed || c
	}

	switch e.Kind {
	case plan.ExprComparison:
		if e.Left.IsConstant() && e.Right.IsConstant() {
			result := evalComparison(e.CompareOp, e.Left.Value, e.Right.Value)
			out := plan.Constant(result)
			out.WillFail = e.Left.WillFail || e.Right.WillFail
			return out, true
		}
	case plan.ExprBinaryOp:
		if e.Left.IsConstant() && e.Right.IsConstant() {
			folded, willFail := evalBinary(e.BinOp, e.Left.Value, e.Right.Value)
			out := plan.Constant(folded)
			out.WillFail = willFail || e.Left.WillFail || e.Right.WillFail
			return out, true
		}
	case plan.ExprUnaryOp:
		if e.Left.IsConstant() {
			out := plan.Constant(evalUnary(e.UnOp, e.Left.Value))
			out.WillFail = e.Left.WillFail
			return out, true
		}
	}
	return e, changed
}

func evalComparison(op plan.CompareOp, a, b types.Value) types.Value {
	if a.IsNull() || b.IsNull() {
		return types.NewNull(types.Boolean)
	}
	var cmp int
	switch a.Type {
	case types.Varchar, types.Char, types.Text, types.Json, types.Blob:
		cmp = compareStrings(a.AsString(), b.AsString())
	case types.Float, types.Double:
		cmp = compareFloat(a.AsFloat64(), b.AsFloat64())
	default:
		cmp = compareInt(a.AsInt64(), b.AsInt64())
	}
	var result bool
	switch op {
	case plan.CmpEq:
		result = cmp == 0
	case plan.CmpNeq:
		result = cmp != 0
	case plan.CmpLt:
		result = cmp < 0
	case plan.CmpLte:
		result = cmp <= 0
	case plan.CmpGt:
		result = cmp > 0
	case plan.CmpGte:
		result = cmp >= 0
	}
	return types.NewBoolean(result)
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// evalBinary evaluates a constant binary op, reporting willFail for a
// statically-known division or modulo by a literal zero.
func evalBinary(op plan.BinaryOp, a, b types.Value) (types.Value, bool) {
	if a.IsNull() || b.IsNull() {
		return types.NewNull(a.Type), false
	}
	isFloat := a.Type == types.Float || a.Type == types.Double
	if isFloat {
		af, bf := a.AsFloat64(), b.AsFloat64()
		switch op {
		case plan.OpAnd:
			return types.NewBoolean(a.AsBool() && b.AsBool()), false
		case plan.OpOr:
			return types.NewBoolean(a.AsBool() || b.AsBool()), false
		case plan.OpAdd:
			return types.NewDouble(af + bf), false
		case plan.OpSub:
			return types.NewDouble(af - bf), false
		case plan.OpMul:
			return types.NewDouble(af * bf), false
		case plan.OpDiv:
			if bf == 0 {
				return types.NewDouble(0), true
			}
			return types.NewDouble(af / bf), false
		case plan.OpMod:
			if bf == 0 {
				return types.NewDouble(0), true
			}
			return types.NewDouble(float64(int64(af) % int64(bf))), false
		}
	}
	ai, bi := a.AsInt64(), b.AsInt64()
	switch op {
	case plan.OpAnd:
		return types.NewBoolean(a.AsBool() && b.AsBool()), false
	case plan.OpOr:
		return types.NewBoolean(a.AsBool() || b.AsBool()), false
	case plan.OpAdd:
		return types.NewBigInt(ai + bi), false
	case plan.OpSub:
		return types.NewBigInt(ai - bi), false
	case plan.OpMul:
		return types.NewBigInt(ai * bi), false
	case plan.OpDiv:
		if bi == 0 {
			return types.NewBigInt(0), true
		}
		return types.NewBigInt(ai / bi), false
	case plan.OpMod:
		if bi == 0 {
			return types.NewBigInt(0), true
		}
		return types.NewBigInt(ai % bi), false
	}
	return types.NewNull(a.Type), false
}

func evalUnary(op plan.UnaryOp, v types.Value) types.Value {
	switch op {
	case plan.OpNot:
		if v.IsNull() {
			return types.NewNull(types.Boolean)
		}
		return types.NewBoolean(!v.AsBool())
	case plan.OpNeg:
		if v.IsNull() {
			return types.NewNull(v.Type)
		}
		if v.Type == types.Float || v.Type == types.Double {
			return types.NewDouble(-v.AsFloat64())
		}
		return types.NewBigInt(-v.AsInt64())
	case plan.OpIsNull:
		return types.NewBoolean(v.IsNull())
	case plan.OpIsNotNull:
		return types.NewBoolean(!v.IsNull())
	}
	return v
}
