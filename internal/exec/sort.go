package exec

import (
	"container/heap"
	"context"
	"sort"

	"colonnade/internal/exec/pool"
	"colonnade/internal/plan"
	"colonnade/internal/types"
)

// rowRef is one logical row of the materialized sort input: a pointer into
// one of the buffered source chunks plus its row offset, a (key_tuple,
// payload_row_id) pair without separately materializing the key tuple (it
// is recomputed from the chunk on demand, which is cheap relative to the
// comparisons driving the sort).
type rowRef struct {
	chunk *types.DataChunk
	row   int
}

// sortComparator orders two rowRefs by a fixed list of sort keys, using
// three-valued-logic-aware comparisons collapsed to a total order by each
// key's null-position flag.
type sortComparator struct {
	keys []plan.SortKey
}

func effectiveNullsFirst(k plan.SortKey) bool {
	// Default is nulls-last for ascending, nulls-first for descending;
	// NullsFirst on the key already carries the resolved (possibly
	// defaulted) value from planning.
	return k.NullsFirst
}

func (c sortComparator) less(a, b rowRef) bool {
	for _, k := range c.keys {
		actx := &evalContext{chunks: []*types.DataChunk{a.chunk}}
		bctx := &evalContext{chunks: []*types.DataChunk{b.chunk}}
		av, _ := evalRow(actx, k.Expr, a.row)
		bv, _ := evalRow(bctx, k.Expr, b.row)

		if av.IsNull() || bv.IsNull() {
			if av.IsNull() && bv.IsNull() {
				continue
			}
			nullsFirst := effectiveNullsFirst(k)
			if av.IsNull() {
				return nullsFirst
			}
			return !nullsFirst
		}

		cmp := compareRuntime(av, bv)
		if cmp == 0 {
			continue
		}
		if !k.Ascending {
			cmp = -cmp
		}
		return cmp < 0
	}
	return false
}

// rowRefSlice adapts []rowRef to sort.Interface for a given comparator.
type rowRefSlice struct {
	refs []rowRef
	cmp  sortComparator
}

func (s rowRefSlice) Len() int           { return len(s.refs) }
func (s rowRefSlice) Less(i, j int) bool { return s.cmp.less(s.refs[i], s.refs[j]) }
func (s rowRefSlice) Swap(i, j int)      { s.refs[i], s.refs[j] = s.refs[j], s.refs[i] }

// materializeRows builds output chunks of at most types.ChunkCapacity rows
// from an ordered list of rowRefs.
func materializeRows(schema []types.ColumnSchema, refs []rowRef) []*types.DataChunk {
	var chunks []*types.DataChunk
	for start := 0; start < len(refs); start += types.ChunkCapacity {
		end := start + types.ChunkCapacity
		if end > len(refs) {
			end = len(refs)
		}
		batch := refs[start:end]
		out := types.WithRows(len(batch))
		for col := range schema {
			vec := types.NewVector(schema[col].Type, len(batch))
			for _, r := range batch {
				vec.Append(r.chunk.GetVector(col).Get(r.row))
			}
			out.SetVector(col, schema[col].Name, vec)
		}
		chunks = append(chunks, out)
	}
	return chunks
}

// SortOperator implements a parallel multi-key sort: a blocking sink that
// materializes its entire input, sorts disjoint segments concurrently,
// then merges them. Stable sort uses a parallel merge sort throughout
// (sort.Stable per segment, stable k-way merge); unstable sort uses
// sort.Sort (quicksort/introsort) per segment.
type SortOperator struct {
	child  Operator
	keys   []plan.SortKey
	stable bool
	schema []types.ColumnSchema
	pool   *pool.Pool

	built  bool
	chunks []*types.DataChunk
	cursor int
}

// NewSortOperator builds a parallel sort over child.
func NewSortOperator(child Operator, keys []plan.SortKey, stable bool, workers *pool.Pool) *SortOperator {
	return &SortOperator{child: child, keys: keys, stable: stable, schema: child.OutputSchema(), pool: workers}
}

func (s *SortOperator) OutputSchema() []types.ColumnSchema { return s.schema }

func (s *SortOperator) run(ctx context.Context) error {
	var refs []rowRef
	for {
		chunk, err := s.child.NextChunk(ctx, types.ChunkCapacity)
		if err != nil {
			return err
		}
		if chunk == nil {
			break
		}
		for row := 0; row < chunk.Len(); row++ {
			refs = append(refs, rowRef{chunk: chunk, row: row})
		}
	}

	if len(s.keys) == 0 {
		// Sort with zero keys is a no-op (identity).
		s.chunks = materializeRows(s.schema, refs)
		s.built = true
		return nil
	}

	cmp := sortComparator{keys: s.keys}
	segments := pool.Partition(len(refs), s.pool.Size())
	sorted := make([][]rowRef, len(segments))
	err := pool.Run(ctx, s.pool, rangeIndices(len(segments)), func(_ context.Context, i int) error {
		r := segments[i]
		seg := append([]rowRef(nil), refs[r[0]:r[1]]...)
		iface := rowRefSlice{refs: seg, cmp: cmp}
		if s.stable {
			sort.Stable(iface)
		} else {
			sort.Sort(iface)
		}
		sorted[i] = seg
		return nil
	})
	if err != nil {
		return err
	}

	merged := mergeSortedSegments(sorted, cmp)
	s.chunks = materializeRows(s.schema, merged)
	s.built = true
	return nil
}

// mergeSortedSegments performs a stable k-way merge of already-sorted
// segments, preserving input order among equal keys the way a parallel
// merge sort must when the caller asked for Stable.
func mergeSortedSegments(segments [][]rowRef, cmp sortComparator) []rowRef {
	total := 0
	idx := make([]int, len(segments))
	for i, seg := range segments {
		total += len(seg)
		idx[i] = 0
	}
	out := make([]rowRef, 0, total)
	for {
		best := -1
		for i, seg := range segments {
			if idx[i] >= len(seg) {
				continue
			}
			if best == -1 || cmp.less(seg[idx[i]], segments[best][idx[best]]) {
				best = i
			}
		}
		if best == -1 {
			break
		}
		out = append(out, segments[best][idx[best]])
		idx[best]++
	}
	return out
}

func (s *SortOperator) NextChunk(ctx context.Context, maxRows int) (*types.DataChunk, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	if !s.built {
		if err := s.run(ctx); err != nil {
			return nil, err
		}
	}
	if s.cursor >= len(s.chunks) {
		return nil, nil
	}
	out := s.chunks[s.cursor]
	s.cursor++
	return out, nil
}

func (s *SortOperator) Close() error { return s.child.Close() }

// topKHeap is a bounded max-heap (by the sort comparator's "worse than"
// relation) of at most K rowRefs, used by one worker to track its local
// K-best candidates in O(log K) per row.
type topKHeap struct {
	refs []rowRef
	cmp  sortComparator
	k    int
}

func (h *topKHeap) Len() int { return len(h.refs) }
func (h *topKHeap) Less(i, j int) bool {
	// A max-heap over "worseness": x is worse than y when y sorts before x.
	return h.cmp.less(h.refs[j], h.refs[i])
}
func (h *topKHeap) Swap(i, j int) { h.refs[i], h.refs[j] = h.refs[j], h.refs[i] }
func (h *topKHeap) Push(x any)    { h.refs = append(h.refs, x.(rowRef)) }
func (h *topKHeap) Pop() any {
	old := h.refs
	n := len(old)
	item := old[n-1]
	h.refs = old[:n-1]
	return item
}

func (h *topKHeap) offer(r rowRef) {
	if len(h.refs) < h.k {
		heap.Push(h, r)
		return
	}
	if len(h.refs) == 0 {
		return
	}
	worst := h.refs[0]
	if h.cmp.less(r, worst) {
		heap.Pop(h)
		heap.Push(h, r)
	}
}

// TopKOperator implements "LIMIT k" directly above a Sort: each worker
// keeps a bounded heap of its k best candidates across its share of input
// chunks; the per-worker heaps are merged and the final k taken, yielding
// O(N log k) instead of a full O(N log N) sort.
type TopKOperator struct {
	child  Operator
	keys   []plan.SortKey
	k      int64
	schema []types.ColumnSchema
	pool   *pool.Pool

	built  bool
	chunks []*types.DataChunk
	cursor int
}

// NewTopKOperator builds a bounded top-K operator over child.
func NewTopKOperator(child Operator, keys []plan.SortKey, k int64, workers *pool.Pool) *TopKOperator {
	return &TopKOperator{child: child, keys: keys, k: k, schema: child.OutputSchema(), pool: workers}
}

func (t *TopKOperator) OutputSchema() []types.ColumnSchema { return t.schema }

func (t *TopKOperator) run(ctx context.Context) error {
	if t.k <= 0 {
		t.chunks = nil
		t.built = true
		return nil
	}
	var chunks []*types.DataChunk
	for {
		c, err := t.child.NextChunk(ctx, types.ChunkCapacity)
		if err != nil {
			return err
		}
		if c == nil {
			break
		}
		chunks = append(chunks, c)
	}

	cmp := sortComparator{keys: t.keys}
	k := int(t.k)
	ranges := pool.Partition(len(chunks), t.pool.Size())
	heaps := make([]*topKHeap, len(ranges))
	err := pool.Run(ctx, t.pool, rangeIndices(len(ranges)), func(_ context.Context, i int) error {
		r := ranges[i]
		h := &topKHeap{cmp: cmp, k: k}
		heap.Init(h)
		for ci := r[0]; ci < r[1]; ci++ {
			chunk := chunks[ci]
			for row := 0; row < chunk.Len(); row++ {
				h.offer(rowRef{chunk: chunk, row: row})
			}
		}
		heaps[i] = h
		return nil
	})
	if err != nil {
		return err
	}

	var candidates []rowRef
	for _, h := range heaps {
		candidates = append(candidates, h.refs...)
	}
	iface := rowRefSlice{refs: candidates, cmp: cmp}
	sort.Sort(iface)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	t.chunks = materializeRows(t.schema, candidates)
	t.built = true
	return nil
}

func (t *TopKOperator) NextChunk(ctx context.Context, maxRows int) (*types.DataChunk, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	if !t.built {
		if err := t.run(ctx); err != nil {
			return nil, err
		}
	}
	if t.cursor >= len(t.chunks) {
		return nil, nil
	}
	out := t.chunks[t.cursor]
	t.cursor++
	return out, nil
}

func (t *TopKOperator) Close() error { return t.child.Close() }
