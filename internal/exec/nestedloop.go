package exec

import (
	"context"
	"fmt"

	"colonnade/internal/exec/pool"
	"colonnade/internal/plan"
	"colonnade/internal/types"
)

// NestedLoopJoinOperator implements the fallback join strategy for
// predicates the hash join cannot use (non-equi comparisons, compound OR
// predicates) and for unconditional cross products: any join the
// optimizer does not lower to a hash join falls back to a blocking
// nested-loop join. predicate is nil for a cross product.
// The outer side is materialized once; the inner side's chunks are
// re-scanned per outer partition in parallel, since nested-loop join has
// no shared mutable build state to race on the way hash join's partition
// maps do.
type NestedLoopJoinOperator struct {
	outer     Operator
	inner     Operator
	predicate *plan.Expr
	kind      plan.JoinKind
	pool      *pool.Pool

	schema []types.ColumnSchema

	built      bool
	outerRows  []rowRef
	innerChunk []*types.DataChunk
	outChunks  []*types.DataChunk
	cursor     int
}

// NewNestedLoopJoinOperator builds a nested-loop join. predicate, when
// non-nil, is evaluated against a row built from the outer row's chunk
// followed by the inner row's chunk (child index 0 and 1 respectively);
// pass nil for an unconditional cross product.
func NewNestedLoopJoinOperator(outer, inner Operator, predicate *plan.Expr, kind plan.JoinKind, workers *pool.Pool) *NestedLoopJoinOperator {
	var schema []types.ColumnSchema
	schema = append(schema, outer.OutputSchema()...)
	if kind != plan.JoinSemi && kind != plan.JoinAnti {
		schema = append(schema, inner.OutputSchema()...)
	}
	return &NestedLoopJoinOperator{outer: outer, inner: inner, predicate: predicate, kind: kind, pool: workers, schema: schema}
}

func (n *NestedLoopJoinOperator) OutputSchema() []types.ColumnSchema { return n.schema }

func (n *NestedLoopJoinOperator) matches(outer rowRef, inner rowRef) (bool, error) {
	if n.predicate == nil {
		return true, nil
	}
	v, err := evalJoinRow(n.predicate, outer, inner)
	if err != nil {
		return false, err
	}
	return !v.IsNull() && v.AsBool(), nil
}

// evalJoinRow evaluates a join predicate that may reference both sides of
// a join at their own, independent row offsets (ChildIdx 0 -> outer.row,
// ChildIdx 1 -> inner.row). This is a separate walk from eval.go's evalRow,
// which assumes every referenced chunk is indexed by the same row number,
// true for every other operator, but not for a nested-loop join's cross
// product of two distinct row positions.
func evalJoinRow(e *plan.Expr, outer, inner rowRef) (types.Value, error) {
	if e == nil {
		return types.Value{}, fmt.Errorf("exec: nil expression")
	}
	switch e.Kind {
	case plan.ExprColumnRef:
		switch e.Ref.ChildIdx {
		case 0:
			return outer.chunk.GetVector(e.Ref.ColIdx).Get(outer.row), nil
		case 1:
			return inner.chunk.GetVector(e.Ref.ColIdx).Get(inner.row), nil
		default:
			return types.Value{}, fmt.Errorf("exec: nested loop join: column reference with child index %d", e.Ref.ChildIdx)
		}

	case plan.ExprConstant:
		if e.WillFail {
			return types.Value{}, fmt.Errorf("exec: %w", ErrDivisionByZero)
		}
		return e.Value, nil

	case plan.ExprCast:
		v, err := evalJoinRow(e.CastInput, outer, inner)
		if err != nil {
			return types.Value{}, err
		}
		return castValue(v, e.TargetType)

	case plan.ExprComparison:
		l, err := evalJoinRow(e.Left, outer, inner)
		if err != nil {
			return types.Value{}, err
		}
		r, err := evalJoinRow(e.Right, outer, inner)
		if err != nil {
			return types.Value{}, err
		}
		return evalComparisonRuntime(e.CompareOp, l, r), nil

	case plan.ExprBinaryOp:
		l, err := evalJoinRow(e.Left, outer, inner)
		if err != nil {
			return types.Value{}, err
		}
		r, err := evalJoinRow(e.Right, outer, inner)
		if err != nil {
			return types.Value{}, err
		}
		return evalBinaryRuntime(e.BinOp, l, r, e.WillFail)

	case plan.ExprUnaryOp:
		v, err := evalJoinRow(e.Left, outer, inner)
		if err != nil {
			return types.Value{}, err
		}
		return evalUnaryRuntime(e.UnOp, v), nil

	default:
		return types.Value{}, fmt.Errorf("exec: nested loop join: expression kind %d not supported in a join predicate", e.Kind)
	}
}

func (n *NestedLoopJoinOperator) run(ctx context.Context) error {
	for {
		c, err := n.outer.NextChunk(ctx, types.ChunkCapacity)
		if err != nil {
			return err
		}
		if c == nil {
			break
		}
		for row := 0; row < c.Len(); row++ {
			n.outerRows = append(n.outerRows, rowRef{chunk: c, row: row})
		}
	}
	for {
		c, err := n.inner.NextChunk(ctx, types.ChunkCapacity)
		if err != nil {
			return err
		}
		if c == nil {
			break
		}
		n.innerChunk = append(n.innerChunk, c)
	}

	ranges := pool.Partition(len(n.outerRows), n.pool.Size())
	matched := make([][]bool, len(ranges))
	paired := make([][][2]rowRef, len(ranges)) // (outer, inner) pairs for Inner/Left

	err := pool.Run(ctx, n.pool, rangeIndices(len(ranges)), func(_ context.Context, i int) error {
		r := ranges[i]
		localMatched := make([]bool, r[1]-r[0])
		var localPairs [][2]rowRef
		for oi := r[0]; oi < r[1]; oi++ {
			o := n.outerRows[oi]
			for _, ic := range n.innerChunk {
				for irow := 0; irow < ic.Len(); irow++ {
					ok, err := n.matches(o, rowRef{chunk: ic, row: irow})
					if err != nil {
						return err
					}
					if !ok {
						continue
					}
					localMatched[oi-r[0]] = true
					if n.kind == plan.JoinInner || n.kind == plan.JoinLeft {
						localPairs = append(localPairs, [2]rowRef{o, {chunk: ic, row: irow}})
					}
				}
			}
		}
		matched[i] = localMatched
		paired[i] = localPairs
		return nil
	})
	if err != nil {
		return err
	}

	switch n.kind {
	case plan.JoinInner, plan.JoinLeft:
		var pairs [][2]rowRef
		for i, r := range ranges {
			pairs = append(pairs, paired[i]...)
			if n.kind == plan.JoinLeft {
				for oi := r[0]; oi < r[1]; oi++ {
					if !matched[i][oi-r[0]] {
						pairs = append(pairs, [2]rowRef{n.outerRows[oi], {}})
					}
				}
			}
		}
		n.outChunks = n.materializeJoined(pairs)
	case plan.JoinSemi:
		var kept []rowRef
		for i, r := range ranges {
			for oi := r[0]; oi < r[1]; oi++ {
				if matched[i][oi-r[0]] {
					kept = append(kept, n.outerRows[oi])
				}
			}
		}
		n.outChunks = materializeRows(n.schema, kept)
	case plan.JoinAnti:
		var kept []rowRef
		for i, r := range ranges {
			for oi := r[0]; oi < r[1]; oi++ {
				if !matched[i][oi-r[0]] {
					kept = append(kept, n.outerRows[oi])
				}
			}
		}
		n.outChunks = materializeRows(n.schema, kept)
	default:
		return fmt.Errorf("exec: nested loop join: unsupported join kind %d", n.kind)
	}

	n.built = true
	return nil
}

func (n *NestedLoopJoinOperator) materializeJoined(pairs [][2]rowRef) []*types.DataChunk {
	var chunks []*types.DataChunk
	outerSchema := n.outer.OutputSchema()
	innerSchema := n.inner.OutputSchema()
	for start := 0; start < len(pairs); start += types.ChunkCapacity {
		end := start + types.ChunkCapacity
		if end > len(pairs) {
			end = len(pairs)
		}
		batch := pairs[start:end]
		out := types.WithRows(len(batch))
		col := 0
		for c := range outerSchema {
			vec := types.NewVector(outerSchema[c].Type, len(batch))
			for _, p := range batch {
				vec.Append(p[0].chunk.GetVector(c).Get(p[0].row))
			}
			out.SetVector(col, outerSchema[c].Name, vec)
			col++
		}
		for c := range innerSchema {
			vec := types.NewVector(innerSchema[c].Type, len(batch))
			for _, p := range batch {
				if p[1].chunk == nil {
					vec.Append(types.NewNull(innerSchema[c].Type.Kind))
					continue
				}
				vec.Append(p[1].chunk.GetVector(c).Get(p[1].row))
			}
			out.SetVector(col, innerSchema[c].Name, vec)
			col++
		}
		chunks = append(chunks, out)
	}
	return chunks
}

func (n *NestedLoopJoinOperator) NextChunk(ctx context.Context, maxRows int) (*types.DataChunk, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	if !n.built {
		if err := n.run(ctx); err != nil {
			return nil, err
		}
	}
	if n.cursor >= len(n.outChunks) {
		return nil, nil
	}
	out := n.outChunks[n.cursor]
	n.cursor++
	return out, nil
}

func (n *NestedLoopJoinOperator) Close() error {
	if err := n.outer.Close(); err != nil {
		return err
	}
	return n.inner.Close()
}
