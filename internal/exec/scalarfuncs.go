package exec

import (
	"fmt"
	"strings"

	"colonnade/internal/plan"
	"colonnade/internal/types"
)

// evalScalarFunc evaluates a FuncScalar call for one row. Aggregate and
// window calls never reach here: an Aggregate node's aggregates are
// computed by hashagg.go's hash or streaming aggregator and exposed to
// downstream expressions as plain column references, resolved by
// position rather than re-evaluated (plan/expr.go's Binding).
func evalScalarFunc(ctx *evalContext, e *plan.Expr, row int) (types.Value, error) {
	if e.FuncClass != plan.FuncScalar {
		return types.Value{}, fmt.Errorf("exec: %s is not a scalar function in this context", e.FuncName)
	}
	args := make([]types.Value, len(e.Args))
	for i, a := range e.Args {
		v, err := evalRow(ctx, a, row)
		if err != nil {
			return types.Value{}, err
		}
		args[i] = v
	}

	switch strings.ToUpper(e.FuncName) {
	case "UPPER":
		if args[0].IsNull() {
			return types.NewNull(types.Varchar), nil
		}
		return types.NewVarchar(strings.ToUpper(args[0].AsString())), nil

	case "LOWER":
		if args[0].IsNull() {
			return types.NewNull(types.Varchar), nil
		}
		return types.NewVarchar(strings.ToLower(args[0].AsString())), nil

	case "LENGTH", "CHAR_LENGTH":
		if args[0].IsNull() {
			return types.NewNull(types.BigInt), nil
		}
		return types.NewBigInt(int64(len([]rune(args[0].AsString())))), nil

	case "CONCAT":
		var sb strings.Builder
		for _, a := range args {
			if a.IsNull() {
				continue // SQL CONCAT treats NULL arguments as empty, not as a NULL result
			}
			sb.WriteString(a.AsString())
		}
		return types.NewVarchar(sb.String()), nil

	case "ABS":
		if args[0].IsNull() {
			return types.NewNull(args[0].Type), nil
		}
		if args[0].Type == types.Float || args[0].Type == types.Double {
			f := args[0].AsFloat64()
			if f < 0 {
				f = -f
			}
			return types.NewDouble(f), nil
		}
		i := args[0].AsInt64()
		if i < 0 {
			i = -i
		}
		return types.NewBigInt(i), nil

	case "COALESCE":
		for _, a := range args {
			if !a.IsNull() {
				return a, nil
			}
		}
		if len(args) > 0 {
			return types.NewNull(args[0].Type), nil
		}
		return types.NewNull(types.Varchar), nil

	case "TRIM":
		if args[0].IsNull() {
			return types.NewNull(types.Varchar), nil
		}
		return types.NewVarchar(strings.TrimSpace(args[0].AsString())), nil

	case "SUBSTRING", "SUBSTR":
		if args[0].IsNull() {
			return types.NewNull(types.Varchar), nil
		}
		s := []rune(args[0].AsString())
		start := int(args[1].AsInt64())
		if start < 1 {
			start = 1
		}
		end := len(s) + 1
		if len(args) > 2 {
			n := int(args[2].AsInt64())
			if start-1+n < end {
				end = start - 1 + n
			}
		}
		if start-1 >= len(s) || end <= start {
			return types.NewVarchar(""), nil
		}
		return types.NewVarchar(string(s[start-1 : end-1])), nil

	default:
		return types.Value{}, fmt.Errorf("exec: unsupported scalar function %q", e.FuncName)
	}
}
