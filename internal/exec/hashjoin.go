package exec

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"colonnade/internal/exec/pool"
	"colonnade/internal/plan"
	"colonnade/internal/types"
)

// hashJoinPartitions is the fixed partition count P: build rows are
// distributed by hash(join_keys) mod P, each partition gets its own hash
// table, and the probe phase reads those tables lock-free once building
// has finished.
const hashJoinPartitions = 256

type buildRow struct {
	chunk *types.DataChunk
	row   int
}

// partitionBuild holds one partition's accumulated build rows plus, once
// Index() has run, a lock-free lookup table from join-key hash to the row
// list sharing that key (collisions resolved by full key-tuple equality in
// Probe).
type partitionBuild struct {
	mu    sync.Mutex // held only during append
	rows  []buildRow
	index map[string][]buildRow
}

// HashJoinOperator implements the parallel partitioned hash join: a
// blocking build phase over the build input, followed by a non-blocking
// probe phase driven chunk-by-chunk from the probe input. Sides are not
// chosen by estimated size: the plan builder always builds on the join's
// right child and probes with its left child.
// It supports Inner, Left, Semi, and Anti.
type HashJoinOperator struct {
	build   Operator
	probe   Operator
	buildOn *plan.Expr // join key expression evaluated against the build side (child index 0)
	probeOn *plan.Expr // join key expression evaluated against the probe side (child index 0)
	kind    plan.JoinKind
	pool    *pool.Pool

	schema []types.ColumnSchema

	built      bool
	partitions [hashJoinPartitions]*partitionBuild

	probeBuf []*types.DataChunk // pending output chunks already materialized from the current probe input chunk
}

// NewHashJoinOperator builds a hash join. buildOn/probeOn must each
// reference only their respective side (child index 0 relative to that
// side's own output schema), which is how the optimizer's predicate split
// hands equi-join keys down.
func NewHashJoinOperator(build, probe Operator, buildOn, probeOn *plan.Expr, kind plan.JoinKind, workers *pool.Pool) *HashJoinOperator {
	var schema []types.ColumnSchema
	schema = append(schema, probe.OutputSchema()...)
	if kind != plan.JoinSemi && kind != plan.JoinAnti {
		schema = append(schema, build.OutputSchema()...)
	}
	return &HashJoinOperator{build: build, probe: probe, buildOn: buildOn, probeOn: probeOn, kind: kind, pool: workers, schema: schema}
}

func (h *HashJoinOperator) OutputSchema() []types.ColumnSchema { return h.schema }

func partitionOf(key string, p int) int {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(key))
	return int(hasher.Sum32()) % p
}

// buildPhase consumes the entire build side, partitioning rows by
// hash(join key) mod P, then indexes each partition in parallel.
func (h *HashJoinOperator) buildPhase(ctx context.Context) error {
	for i := range h.partitions {
		h.partitions[i] = &partitionBuild{}
	}

	for {
		chunk, err := h.build.NextChunk(ctx, types.ChunkCapacity)
		if err != nil {
			return err
		}
		if chunk == nil {
			break
		}
		ectx := &evalContext{chunks: []*types.DataChunk{chunk}}
		for row := 0; row < chunk.Len(); row++ {
			key, err := evalRow(ectx, h.buildOn, row)
			if err != nil {
				return fmt.Errorf("exec: hash join build: %w", err)
			}
			if key.IsNull() {
				continue // a null build key never matches any probe key
			}
			idx := partitionOf(fmt.Sprint(key.HashKey()), hashJoinPartitions)
			p := h.partitions[idx]
			p.mu.Lock()
			p.rows = append(p.rows, buildRow{chunk: chunk, row: row})
			p.mu.Unlock()
		}
	}

	indices := make([]int, hashJoinPartitions)
	for i := range indices {
		indices[i] = i
	}
	err := pool.Run(ctx, h.pool, indices, func(_ context.Context, i int) error {
		p := h.partitions[i]
		p.index = make(map[string][]buildRow, len(p.rows))
		ectx := &evalContext{}
		for _, r := range p.rows {
			ectx.chunks = []*types.DataChunk{r.chunk}
			key, err := evalRow(ectx, h.buildOn, r.row)
			if err != nil {
				return err
			}
			k := fmt.Sprint(key.HashKey())
			p.index[k] = append(p.index[k], r)
		}
		return nil
	})
	if err != nil {
		return err
	}
	h.built = true
	return nil
}

func (h *HashJoinOperator) NextChunk(ctx context.Context, maxRows int) (*types.DataChunk, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	if !h.built {
		if err := h.buildPhase(ctx); err != nil {
			return nil, err
		}
	}

	for len(h.probeBuf) == 0 {
		chunk, err := h.probe.NextChunk(ctx, maxRows)
		if err != nil {
			return nil, err
		}
		if chunk == nil {
			return nil, nil
		}
		produced, err := h.probeChunk(chunk)
		if err != nil {
			return nil, err
		}
		h.probeBuf = produced
	}
	out := h.probeBuf[0]
	h.probeBuf = h.probeBuf[1:]
	return out, nil
}

// probeChunk evaluates every row of one probe-side chunk against the
// built partitions and emits matches in probe-row order within the chunk,
// per join-kind semantics.
func (h *HashJoinOperator) probeChunk(chunk *types.DataChunk) ([]*types.DataChunk, error) {
	ectx := &evalContext{chunks: []*types.DataChunk{chunk}}

	probeIdx := make([]int, 0, chunk.Len())
	buildIdx := make([]buildRow, 0, chunk.Len())
	matchedAny := make([]bool, chunk.Len())

	for row := 0; row < chunk.Len(); row++ {
		key, err := evalRow(ectx, h.probeOn, row)
		if err != nil {
			return nil, fmt.Errorf("exec: hash join probe: %w", err)
		}
		if key.IsNull() {
			continue
		}
		idx := partitionOf(fmt.Sprint(key.HashKey()), hashJoinPartitions)
		p := h.partitions[idx]
		candidates := p.index[fmt.Sprint(key.HashKey())]
		for _, c := range candidates {
			bctx := &evalContext{chunks: []*types.DataChunk{c.chunk}}
			bkey, err := evalRow(bctx, h.buildOn, c.row)
			if err != nil {
				return nil, err
			}
			if !key.Equal(bkey) {
				continue // hash collision, not an actual key match
			}
			matchedAny[row] = true
			if h.kind == plan.JoinInner || h.kind == plan.JoinLeft {
				probeIdx = append(probeIdx, row)
				buildIdx = append(buildIdx, c)
			}
		}
	}

	switch h.kind {
	case plan.JoinSemi:
		var keep []int
		for row, m := range matchedAny {
			if m {
				keep = append(keep, row)
			}
		}
		if len(keep) == 0 {
			return nil, nil
		}
		return []*types.DataChunk{chunk.Select(types.SelectionFromIndices(keep))}, nil

	case plan.JoinAnti:
		var keep []int
		for row, m := range matchedAny {
			if !m {
				keep = append(keep, row)
			}
		}
		if len(keep) == 0 {
			return nil, nil
		}
		return []*types.DataChunk{chunk.Select(types.SelectionFromIndices(keep))}, nil

	case plan.JoinInner:
		if len(probeIdx) == 0 {
			return nil, nil
		}
		return []*types.DataChunk{h.combine(chunk, probeIdx, buildIdx, false)}, nil

	case plan.JoinLeft:
		for row, m := range matchedAny {
			if !m {
				probeIdx = append(probeIdx, row)
				buildIdx = append(buildIdx, buildRow{})
			}
		}
		if len(probeIdx) == 0 {
			return nil, nil
		}
		return []*types.DataChunk{h.combine(chunk, probeIdx, buildIdx, true)}, nil
	}
	return nil, fmt.Errorf("exec: hash join: unsupported join kind %d", h.kind)
}

// combine materializes the joined output chunk: probe columns followed by
// build columns, with an all-null build side for unmatched Left rows.
func (h *HashJoinOperator) combine(probeChunk *types.DataChunk, probeIdx []int, buildIdx []buildRow, nullableBuild bool) *types.DataChunk {
	n := len(probeIdx)
	out := types.WithRows(n)
	col := 0
	for c := 0; c < probeChunk.ColumnCount(); c++ {
		src := probeChunk.GetVector(c)
		vec := types.NewVector(src.Type(), n)
		for _, row := range probeIdx {
			vec.Append(src.Get(row))
		}
		out.SetVector(col, probeChunk.ColumnName(c), vec)
		col++
	}
	buildSchema := h.build.OutputSchema()
	for c := range buildSchema {
		vec := types.NewVector(buildSchema[c].Type, n)
		for _, b := range buildIdx {
			if b.chunk == nil {
				vec.Append(types.NewNull(buildSchema[c].Type.Kind))
				continue
			}
			vec.Append(b.chunk.GetVector(c).Get(b.row))
		}
		out.SetVector(col, buildSchema[c].Name, vec)
		col++
	}
	return out
}

func (h *HashJoinOperator) Close() error {
	if err := h.build.Close(); err != nil {
		return err
	}
	return h.probe.Close()
}
