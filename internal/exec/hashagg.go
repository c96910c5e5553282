package exec

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"colonnade/internal/exec/pool"
	"colonnade/internal/plan"
	"colonnade/internal/types"
)

// aggGroup is one GROUP BY bucket: the grouping-column values (for the
// emit phase's projection) plus one aggState per aggregate.
type aggGroup struct {
	keyVals []types.Value
	states  []aggState
}

func newAggGroup(keyVals []types.Value, specs []aggSpec) *aggGroup {
	states := make([]aggState, len(specs))
	for i, s := range specs {
		states[i] = newAggState(s)
	}
	return &aggGroup{keyVals: keyVals, states: states}
}

func (g *aggGroup) merge(other *aggGroup) {
	for i, s := range g.states {
		s.merge(other.states[i])
	}
}

// aggPlan is buildAggPlan's conversion of the logical Aggregate node's
// AggregateExpr list into aggSpecs, keeping the argument/separator
// expressions alongside for the caller to evaluate per row.
type aggPlan struct {
	specs     []aggSpec
	argExprs  []*plan.Expr // nil entry means COUNT(*)
	sepExprs  []*plan.Expr // non-nil only for STRING_AGG with an explicit separator arg
}

func buildAggPlan(aggs []plan.AggregateExpr) aggPlan {
	out := aggPlan{
		specs:    make([]aggSpec, len(aggs)),
		argExprs: make([]*plan.Expr, len(aggs)),
		sepExprs: make([]*plan.Expr, len(aggs)),
	}
	for i, a := range aggs {
		star := len(a.Call.Args) == 0
		out.specs[i] = aggSpec{name: a.Call.FuncName, star: star, outputType: a.Call.OutputType}
		if !star {
			out.argExprs[i] = a.Call.Args[0]
		}
		if strings.EqualFold(a.Call.FuncName, "STRING_AGG") && len(a.Call.Args) > 1 {
			out.sepExprs[i] = a.Call.Args[1]
		}
	}
	return out
}

// groupKeyString builds the composite hash-map key for one row's grouping
// columns, treating Null == Null as grouping-key equality (unlike the
// three-valued-logic comparisons used in Filter predicates).
func groupKeyString(keyVals []types.Value) string {
	var sb strings.Builder
	for _, v := range keyVals {
		fmt.Fprintf(&sb, "%v|", v.HashKey())
	}
	return sb.String()
}

func evalGroupRow(ectx *evalContext, groupKeys []*plan.Expr, aggPlan aggPlan, row int) ([]types.Value, []types.Value, []types.Value, error) {
	keyVals := make([]types.Value, len(groupKeys))
	for i, k := range groupKeys {
		v, err := evalRow(ectx, k, row)
		if err != nil {
			return nil, nil, nil, err
		}
		keyVals[i] = v
	}
	argVals := make([]types.Value, len(aggPlan.argExprs))
	for i, e := range aggPlan.argExprs {
		if e == nil {
			continue // COUNT(*)
		}
		v, err := evalRow(ectx, e, row)
		if err != nil {
			return nil, nil, nil, err
		}
		argVals[i] = v
	}
	sepVals := make([]types.Value, len(aggPlan.sepExprs))
	for i, e := range aggPlan.sepExprs {
		if e == nil {
			continue
		}
		v, err := evalRow(ectx, e, row)
		if err != nil {
			return nil, nil, nil, err
		}
		sepVals[i] = v
	}
	return keyVals, argVals, sepVals, nil
}

func applyAggRow(g *aggGroup, aggPlan aggPlan, argVals, sepVals []types.Value) {
	for i, state := range g.states {
		if sa, ok := state.(*stringAggState); ok && aggPlan.sepExprs[i] != nil && !sepVals[i].IsNull() {
			sa.separator = sepVals[i].AsString()
		}
		if aggPlan.argExprs[i] == nil {
			state.update(types.Value{}) // COUNT(*): value ignored, countState.star counts the row regardless
			continue
		}
		state.update(argVals[i])
	}
}

// materializeGroups assembles finalized groups into a sequence of output
// chunks of at most types.ChunkCapacity rows, group columns followed by
// aggregate columns (matching plan.Aggregate's Output order).
func materializeGroups(schema []types.ColumnSchema, numGroupCols int, groups []*aggGroup) []*types.DataChunk {
	var chunks []*types.DataChunk
	for start := 0; start < len(groups); start += types.ChunkCapacity {
		end := start + types.ChunkCapacity
		if end > len(groups) {
			end = len(groups)
		}
		batch := groups[start:end]
		out := types.WithRows(len(batch))
		for col := 0; col < numGroupCols; col++ {
			vec := types.NewVector(schema[col].Type, len(batch))
			for _, g := range batch {
				vec.Append(g.keyVals[col])
			}
			out.SetVector(col, schema[col].Name, vec)
		}
		for i := 0; i < len(schema)-numGroupCols; i++ {
			col := numGroupCols + i
			vec := types.NewVector(schema[col].Type, len(batch))
			for _, g := range batch {
				vec.Append(g.states[i].finalize())
			}
			out.SetVector(col, schema[col].Name, vec)
		}
		chunks = append(chunks, out)
	}
	return chunks
}

// HashAggregateOperator implements a two-phase hash aggregate: a parallel
// local phase over thread-local hash tables, a partitioned merge phase,
// then an emit phase. A blocking sink (it consumes its entire input
// before producing any output).
type HashAggregateOperator struct {
	child     Operator
	groupKeys []*plan.Expr
	aggPlan   aggPlan
	schema    []types.ColumnSchema
	pool      *pool.Pool

	built  bool
	chunks []*types.DataChunk
	cursor int
}

// NewHashAggregateOperator builds a two-phase hash aggregate over child.
func NewHashAggregateOperator(child Operator, groupKeys []*plan.Expr, aggs []plan.AggregateExpr, schema []types.ColumnSchema, workers *pool.Pool) *HashAggregateOperator {
	return &HashAggregateOperator{
		child:     child,
		groupKeys: groupKeys,
		aggPlan:   buildAggPlan(aggs),
		schema:    schema,
		pool:      workers,
	}
}

func (h *HashAggregateOperator) OutputSchema() []types.ColumnSchema { return h.schema }

const hashAggPartitions = 64

func (h *HashAggregateOperator) run(ctx context.Context) error {
	var inputChunks []*types.DataChunk
	for {
		c, err := h.child.NextChunk(ctx, types.ChunkCapacity)
		if err != nil {
			return err
		}
		if c == nil {
			break
		}
		inputChunks = append(inputChunks, c)
	}

	ranges := pool.Partition(len(inputChunks), h.pool.Size())
	localTables := make([]map[string]*aggGroup, len(ranges))
	err := pool.Run(ctx, h.pool, rangeIndices(len(ranges)), func(_ context.Context, i int) error {
		r := ranges[i]
		local := make(map[string]*aggGroup)
		localTables[i] = local
		for ci := r[0]; ci < r[1]; ci++ {
			chunk := inputChunks[ci]
			ectx := &evalContext{chunks: []*types.DataChunk{chunk}}
			for row := 0; row < chunk.Len(); row++ {
				keyVals, argVals, sepVals, err := evalGroupRow(ectx, h.groupKeys, h.aggPlan, row)
				if err != nil {
					return fmt.Errorf("exec: hash aggregate: %w", err)
				}
				key := groupKeyString(keyVals)
				g, ok := local[key]
				if !ok {
					g = newAggGroup(keyVals, h.aggPlan.specs)
					local[key] = g
				}
				applyAggRow(g, h.aggPlan, argVals, sepVals)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(h.groupKeys) == 0 {
		// No GROUP BY: the operator degenerates to a single global group
		// that is always emitted, even when no local table produced any rows.
		merged := newAggGroup(nil, h.aggPlan.specs)
		for _, t := range localTables {
			for _, g := range t {
				merged.merge(g)
			}
		}
		h.chunks = materializeGroups(h.schema, 0, []*aggGroup{merged})
		h.built = true
		return nil
	}

	partitions := make([]map[string]*aggGroup, hashAggPartitions)
	locks := make([]sync.Mutex, hashAggPartitions)
	for i := range partitions {
		partitions[i] = make(map[string]*aggGroup)
	}
	err = pool.Run(ctx, h.pool, rangeIndices(len(localTables)), func(_ context.Context, i int) error {
		for key, g := range localTables[i] {
			p := partitionOf(key, hashAggPartitions)
			locks[p].Lock()
			if existing, ok := partitions[p][key]; ok {
				existing.merge(g)
			} else {
				partitions[p][key] = g
			}
			locks[p].Unlock()
		}
		return nil
	})
	if err != nil {
		return err
	}

	var groups []*aggGroup
	for _, p := range partitions {
		for _, g := range p {
			groups = append(groups, g)
		}
	}
	h.chunks = materializeGroups(h.schema, len(h.groupKeys), groups)
	h.built = true
	return nil
}

func (h *HashAggregateOperator) NextChunk(ctx context.Context, maxRows int) (*types.DataChunk, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	if !h.built {
		if err := h.run(ctx); err != nil {
			return nil, err
		}
	}
	if h.cursor >= len(h.chunks) {
		return nil, nil
	}
	out := h.chunks[h.cursor]
	h.cursor++
	return out, nil
}

func (h *HashAggregateOperator) Close() error { return h.child.Close() }

func rangeIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// StreamingAggregateOperator implements a streaming variant: input already
// ordered by the group keys, so each group can be emitted the moment its
// key changes, in O(1) memory relative to group count.
type StreamingAggregateOperator struct {
	child     Operator
	groupKeys []*plan.Expr
	aggPlan   aggPlan
	schema    []types.ColumnSchema

	started   bool
	exhausted bool
	curKey    string
	curGroup  *aggGroup
	sawAny    bool
	pendingRows [][]types.Value
}

// NewStreamingAggregateOperator builds a single-pass streaming aggregate
// over child, which must already deliver rows ordered by groupKeys.
func NewStreamingAggregateOperator(child Operator, groupKeys []*plan.Expr, aggs []plan.AggregateExpr, schema []types.ColumnSchema) *StreamingAggregateOperator {
	return &StreamingAggregateOperator{
		child:     child,
		groupKeys: groupKeys,
		aggPlan:   buildAggPlan(aggs),
		schema:    schema,
	}
}

func (s *StreamingAggregateOperator) OutputSchema() []types.ColumnSchema { return s.schema }

func (s *StreamingAggregateOperator) emitRow(g *aggGroup) []types.Value {
	row := make([]types.Value, len(s.schema))
	copy(row, g.keyVals)
	for i, st := range g.states {
		row[len(g.keyVals)+i] = st.finalize()
	}
	return row
}

func (s *StreamingAggregateOperator) rowsToChunk(rows [][]types.Value) *types.DataChunk {
	out := types.WithRows(len(rows))
	for col := range s.schema {
		vec := types.NewVector(s.schema[col].Type, len(rows))
		for _, r := range rows {
			vec.Append(r[col])
		}
		out.SetVector(col, s.schema[col].Name, vec)
	}
	return out
}

func (s *StreamingAggregateOperator) NextChunk(ctx context.Context, maxRows int) (*types.DataChunk, error) {
	if len(s.pendingRows) >= maxRows && maxRows > 0 {
		out := s.rowsToChunk(s.pendingRows[:maxRows])
		s.pendingRows = s.pendingRows[maxRows:]
		return out, nil
	}
	if s.exhausted {
		if len(s.pendingRows) == 0 {
			return nil, nil
		}
		out := s.rowsToChunk(s.pendingRows)
		s.pendingRows = nil
		return out, nil
	}

	if !s.started && len(s.groupKeys) == 0 {
		// The degenerate global-group case is still emitted once even on
		// empty input, same as the hash variant.
		s.curGroup = newAggGroup(nil, s.aggPlan.specs)
		s.started = true
	}

	for {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		chunk, err := s.child.NextChunk(ctx, types.ChunkCapacity)
		if err != nil {
			return nil, err
		}
		if chunk == nil {
			s.exhausted = true
			if s.curGroup != nil {
				s.pendingRows = append(s.pendingRows, s.emitRow(s.curGroup))
				s.curGroup = nil
			}
			break
		}
		ectx := &evalContext{chunks: []*types.DataChunk{chunk}}
		for row := 0; row < chunk.Len(); row++ {
			keyVals, argVals, sepVals, err := evalGroupRow(ectx, s.groupKeys, s.aggPlan, row)
			if err != nil {
				return nil, fmt.Errorf("exec: streaming aggregate: %w", err)
			}
			key := groupKeyString(keyVals)
			if !s.started {
				s.curKey = key
				s.curGroup = newAggGroup(keyVals, s.aggPlan.specs)
				s.started = true
			} else if key != s.curKey {
				s.pendingRows = append(s.pendingRows, s.emitRow(s.curGroup))
				s.curKey = key
				s.curGroup = newAggGroup(keyVals, s.aggPlan.specs)
			}
			applyAggRow(s.curGroup, s.aggPlan, argVals, sepVals)
		}
		if len(s.pendingRows) > 0 {
			break
		}
	}

	if len(s.pendingRows) == 0 {
		return nil, nil
	}
	take := len(s.pendingRows)
	if maxRows > 0 && take > maxRows {
		take = maxRows
	}
	out := s.rowsToChunk(s.pendingRows[:take])
	s.pendingRows = s.pendingRows[take:]
	return out, nil
}

func (s *StreamingAggregateOperator) Close() error { return s.child.Close() }
