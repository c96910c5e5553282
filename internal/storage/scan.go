package storage

import (
	"context"

	"colonnade/internal/compression"
	"colonnade/internal/types"
)

// ChunkStream iterates the row groups of a Scan, producing chunks of at
// most types.ChunkCapacity rows. Next returns (nil, nil) at end of input,
// matching the pull-based Operator contract used by internal/exec.
type ChunkStream struct {
	table       *Table
	columnIDs   []int
	filters     []Filter
	limit       int // <0 means unlimited
	rowGroupIdx int

	pending    *types.DataChunk
	pendingOff int
	emitted    int
}

// Scan iterates row groups in order; for each group it decompresses (or
// selectively scans) the requested columns, applies pushed filters to
// produce a selection vector, then materializes output chunks of at most
// types.ChunkCapacity rows.
func (t *Table) Scan(columnIDs []int, filters []Filter, limit int) (*ChunkStream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.flushLocked(); err != nil {
		return nil, err
	}
	return &ChunkStream{table: t, columnIDs: columnIDs, filters: filters, limit: limit}, nil
}

// Next pulls the next chunk of at most maxRows rows, or (nil, nil) at EOF.
func (cs *ChunkStream) Next(ctx context.Context, maxRows int) (*types.DataChunk, error) {
	if maxRows <= 0 || maxRows > types.ChunkCapacity {
		maxRows = types.ChunkCapacity
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if cs.limit >= 0 && cs.emitted >= cs.limit {
			return nil, nil
		}
		if cs.pending == nil || cs.pendingOff >= cs.pending.Len() {
			chunk, err := cs.nextRowGroupChunk()
			if err != nil {
				return nil, err
			}
			if chunk == nil {
				return nil, nil
			}
			cs.pending = chunk
			cs.pendingOff = 0
		}
		remaining := cs.pending.Len() - cs.pendingOff
		take := remaining
		if take > maxRows {
			take = maxRows
		}
		if cs.limit >= 0 && cs.emitted+take > cs.limit {
			take = cs.limit - cs.emitted
		}
		if take <= 0 {
			cs.pendingOff = cs.pending.Len()
			continue
		}
		out := cs.pending.Slice(cs.pendingOff, cs.pendingOff+take)
		cs.pendingOff += take
		cs.emitted += take
		return out, nil
	}
}

// nextRowGroupChunk materializes the full filtered, projected chunk for the
// next row group with any remaining rows, or nil at end of table.
func (cs *ChunkStream) nextRowGroupChunk() (*types.DataChunk, error) {
	for cs.rowGroupIdx < len(cs.table.rowGroups) {
		rg := cs.table.rowGroups[cs.rowGroupIdx]
		idx := cs.rowGroupIdx
		cs.rowGroupIdx++
		sel, err := cs.evaluateFilters(idx, rg)
		if err != nil {
			return nil, err
		}
		if sel.Len() == 0 {
			continue
		}
		return cs.materialize(idx, rg, sel)
	}
	return nil, nil
}

func (cs *ChunkStream) decompressColumn(rowGroupIdx int, rg *RowGroup, col int) ([]types.Value, error) {
	if cached, ok := cs.table.cache.get(rowGroupIdx, col); ok {
		return cached, nil
	}
	vals, err := compression.Decompress(rg.Segment(col))
	if err != nil {
		return nil, err
	}
	cs.table.cache.set(rowGroupIdx, col, vals)
	return vals, nil
}

func (cs *ChunkStream) evaluateFilters(rowGroupIdx int, rg *RowGroup) (*types.SelectionVector, error) {
	n := rg.ValueCount()
	if len(cs.filters) == 0 {
		return types.AllSelection(n), nil
	}
	columnVals := map[int][]types.Value{}
	for _, f := range cs.filters {
		if _, ok := columnVals[f.Column]; ok {
			continue
		}
		vals, err := cs.decompressColumn(rowGroupIdx, rg, f.Column)
		if err != nil {
			return nil, err
		}
		columnVals[f.Column] = vals
	}
	var idx []int
	for row := 0; row < n; row++ {
		ok := true
		for _, f := range cs.filters {
			if !f.matches(columnVals[f.Column][row]) {
				ok = false
				break
			}
		}
		if ok {
			idx = append(idx, row)
		}
	}
	return types.SelectionFromIndices(idx), nil
}

func (cs *ChunkStream) materialize(rowGroupIdx int, rg *RowGroup, sel *types.SelectionVector) (*types.DataChunk, error) {
	schema := cs.table.schema.ChunkSchema(cs.columnIDs)
	vectors := make([]*types.Vector, len(cs.columnIDs))
	for i, col := range cs.columnIDs {
		vals, err := compression.Scan(rg.Segment(col), sel)
		if err != nil {
			return nil, err
		}
		vectors[i] = types.FromValues(cs.table.schema.Columns[col].Type, vals)
	}
	return types.NewChunk(schema, vectors)
}
