package exec

import (
	"errors"
	"fmt"

	"colonnade/internal/plan"
	"colonnade/internal/types"
)

// ErrDivisionByZero is wrapped by every runtime divide/modulo-by-zero
// failure so the engine boundary can classify it without string matching.
var ErrDivisionByZero = errors.New("division by zero")

// evalContext is the set of input chunks an expression resolves column
// references against. Most operators have exactly one input chunk (child
// index 0); a nested-loop join predicate spans two row positions and is
// evaluated by evalJoinRow in nestedloop.go rather than through this
// generic path.
type evalContext struct {
	chunks []*types.DataChunk
}

// evalRow evaluates e for row i, reading column references from
// ctx.chunks[binding.ChildIdx].
func evalRow(ctx *evalContext, e *plan.Expr, row int) (types.Value, error) {
	if e == nil {
		return types.Value{}, fmt.Errorf("exec: nil expression")
	}
	switch e.Kind {
	case plan.ExprColumnRef:
		chunk := ctx.chunks[e.Ref.ChildIdx]
		return chunk.GetVector(e.Ref.ColIdx).Get(row), nil

	case plan.ExprConstant:
		if e.WillFail {
			// Constant folding replaced a literal division/modulo by zero.
			return types.Value{}, fmt.Errorf("exec: %w", ErrDivisionByZero)
		}
		return e.Value, nil

	case plan.ExprCast:
		v, err := evalRow(ctx, e.CastInput, row)
		if err != nil {
			return types.Value{}, err
		}
		return castValue(v, e.TargetType)

	case plan.ExprComparison:
		l, err := evalRow(ctx, e.Left, row)
		if err != nil {
			return types.Value{}, err
		}
		r, err := evalRow(ctx, e.Right, row)
		if err != nil {
			return types.Value{}, err
		}
		return evalComparisonRuntime(e.CompareOp, l, r), nil

	case plan.ExprBinaryOp:
		l, err := evalRow(ctx, e.Left, row)
		if err != nil {
			return types.Value{}, err
		}
		r, err := evalRow(ctx, e.Right, row)
		if err != nil {
			return types.Value{}, err
		}
		return evalBinaryRuntime(e.BinOp, l, r, e.WillFail)

	case plan.ExprUnaryOp:
		v, err := evalRow(ctx, e.Left, row)
		if err != nil {
			return types.Value{}, err
		}
		return evalUnaryRuntime(e.UnOp, v), nil

	case plan.ExprCase:
		for _, b := range e.Branches {
			cond, err := evalRow(ctx, b.When, row)
			if err != nil {
				return types.Value{}, err
			}
			if !cond.IsNull() && cond.AsBool() {
				return evalRow(ctx, b.Then, row)
			}
		}
		if e.Else != nil {
			return evalRow(ctx, e.Else, row)
		}
		return types.NewNull(types.Varchar), nil

	case plan.ExprInList:
		target, err := evalRow(ctx, e.InTarget, row)
		if err != nil {
			return types.Value{}, err
		}
		if target.IsNull() {
			return types.NewNull(types.Boolean), nil
		}
		found := false
		sawNull := false
		for _, item := range e.InList {
			v, err := evalRow(ctx, item, row)
			if err != nil {
				return types.Value{}, err
			}
			if v.IsNull() {
				sawNull = true
				continue
			}
			if target.Equal(v) {
				found = true
				break
			}
		}
		if found {
			return types.NewBoolean(!e.InNegate), nil
		}
		if sawNull {
			return types.NewNull(types.Boolean), nil
		}
		return types.NewBoolean(e.InNegate), nil

	case plan.ExprLike:
		target, err := evalRow(ctx, e.LikeTarget, row)
		if err != nil {
			return types.Value{}, err
		}
		pattern, err := evalRow(ctx, e.LikePattern, row)
		if err != nil {
			return types.Value{}, err
		}
		if target.IsNull() || pattern.IsNull() {
			return types.NewNull(types.Boolean), nil
		}
		matched := likeMatch(target.AsString(), pattern.AsString())
		return types.NewBoolean(matched != e.LikeNegate), nil

	case plan.ExprFuncCall:
		return evalScalarFunc(ctx, e, row)

	default:
		return types.Value{}, fmt.Errorf("exec: expression kind %d not supported in this context", e.Kind)
	}
}

func castValue(v types.Value, target *types.TypeInfo) (types.Value, error) {
	if v.IsNull() {
		return types.NewNull(target.Kind), nil
	}
	switch target.Kind {
	case types.Varchar, types.Text, types.Char:
		return types.NewVarchar(v.String()), nil
	case types.Double:
		if v.Type == types.Varchar || v.Type == types.Text {
			var f float64
			if _, err := fmt.Sscanf(v.AsString(), "%g", &f); err != nil {
				return types.Value{}, fmt.Errorf("exec: cast %q to double: %w", v.AsString(), err)
			}
			return types.NewDouble(f), nil
		}
		return types.NewDouble(v.AsFloat64()), nil
	case types.BigInt:
		return types.NewBigInt(v.AsInt64()), nil
	case types.Integer:
		return types.NewInteger(int32(v.AsInt64())), nil
	case types.Boolean:
		return types.NewBoolean(v.AsBool()), nil
	default:
		return v, nil
	}
}

func evalComparisonRuntime(op plan.CompareOp, a, b types.Value) types.Value {
	if a.IsNull() || b.IsNull() {
		return types.NewNull(types.Boolean)
	}
	cmp := compareRuntime(a, b)
	switch op {
	case plan.CmpEq:
		return types.NewBoolean(cmp == 0)
	case plan.CmpNeq:
		return types.NewBoolean(cmp != 0)
	case plan.CmpLt:
		return types.NewBoolean(cmp < 0)
	case plan.CmpLte:
		return types.NewBoolean(cmp <= 0)
	case plan.CmpGt:
		return types.NewBoolean(cmp > 0)
	case plan.CmpGte:
		return types.NewBoolean(cmp >= 0)
	}
	return types.NewNull(types.Boolean)
}

func compareRuntime(a, b types.Value) int {
	switch a.Type {
	case types.Varchar, types.Char, types.Text, types.Json, types.Blob:
		as, bs := a.AsString(), b.AsString()
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	case types.Float, types.Double:
		af, bf := a.AsFloat64(), b.AsFloat64()
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	default:
		ai, bi := a.AsInt64(), b.AsInt64()
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
}

func evalBinaryRuntime(op plan.BinaryOp, a, b types.Value, willFail bool) (types.Value, error) {
	if a.IsNull() || b.IsNull() {
		return types.NewNull(a.Type), nil
	}
	isFloat := a.Type == types.Float || a.Type == types.Double
	switch op {
	case plan.OpAnd:
		return types.NewBoolean(a.AsBool() && b.AsBool()), nil
	case plan.OpOr:
		return types.NewBoolean(a.AsBool() || b.AsBool()), nil
	}
	if isFloat {
		af, bf := a.AsFloat64(), b.AsFloat64()
		switch op {
		case plan.OpAdd:
			return types.NewDouble(af + bf), nil
		case plan.OpSub:
			return types.NewDouble(af - bf), nil
		case plan.OpMul:
			return types.NewDouble(af * bf), nil
		case plan.OpDiv:
			if bf == 0 {
				return types.Value{}, fmt.Errorf("exec: %w", ErrDivisionByZero)
			}
			return types.NewDouble(af / bf), nil
		case plan.OpMod:
			if bf == 0 {
				return types.Value{}, fmt.Errorf("exec: modulo: %w", ErrDivisionByZero)
			}
			return types.NewDouble(float64(int64(af) % int64(bf))), nil
		}
	}
	ai, bi := a.AsInt64(), b.AsInt64()
	switch op {
	case plan.OpAdd:
		return types.NewBigInt(ai + bi), nil
	case plan.OpSub:
		return types.NewBigInt(ai - bi), nil
	case plan.OpMul:
		return types.NewBigInt(ai * bi), nil
	case plan.OpDiv:
		if bi == 0 {
			return types.Value{}, fmt.Errorf("exec: %w", ErrDivisionByZero)
		}
		return types.NewBigInt(ai / bi), nil
	case plan.OpMod:
		if bi == 0 {
			return types.Value{}, fmt.Errorf("exec: modulo: %w", ErrDivisionByZero)
		}
		return types.NewBigInt(ai % bi), nil
	}
	return types.Value{}, fmt.Errorf("exec: unsupported binary op %d", op)
}

func evalUnaryRuntime(op plan.UnaryOp, v types.Value) types.Value {
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

// likeMatch implements SQL LIKE with '%' (any run) and '_' (one char)
// wildcards via a small recursive matcher, the common textbook approach
// for pattern sizes this engine expects (no regex compilation cache
// needed at per-row scale).
func likeMatch(s, pattern string) bool {
	return likeMatchRunes([]rune(s), []rune(pattern))
}

func likeMatchRunes(s, p []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	switch p[0] {
	case '%':
		if likeMatchRunes(s, p[1:]) {
			return true
		}
		for i := 0; i < len(s); i++ {
			if likeMatchRunes(s[i+1:], p[1:]) {
				return true
			}
		}
		return false
	case '_':
		if len(s) == 0 {
			return false
		}
		return likeMatchRunes(s[1:], p[1:])
	default:
		if len(s) == 0 || s[0] != p[0] {
			return false
		}
		return likeMatchRunes(s[1:], p[1:])
	}
}
