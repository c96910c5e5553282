package exec

import (
	"context"

	"colonnade/internal/types"
)

// LimitOperator is a stateless transform that caps total rows returned at
// Count, after skipping the first Offset rows across the whole stream.
type LimitOperator struct {
	child          Operator
	count, offset  int64
	skipped, taken int64
	done           bool
}

// NewLimitOperator wraps child, applying offset before count.
func NewLimitOperator(child Operator, count, offset int64) *LimitOperator {
	return &LimitOperator{child: child, count: count, offset: offset}
}

func (l *LimitOperator) OutputSchema() []types.ColumnSchema { return l.child.OutputSchema() }

func (l *LimitOperator) NextChunk(ctx context.Context, maxRows int) (*types.DataChunk, error) {
	if l.done || l.taken >= l.count {
		return nil, nil
	}
	for {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		chunk, err := l.child.NextChunk(ctx, maxRows)
		if err != nil {
			return nil, err
		}
		if chunk == nil {
			l.done = true
			return nil, nil
		}

		start := 0
		if l.skipped < l.offset {
			remaining := l.offset - l.skipped
			if remaining >= int64(chunk.Len()) {
				l.skipped += int64(chunk.Len())
				continue
			}
			start = int(remaining)
			l.skipped = l.offset
		}

		avail := int64(chunk.Len() - start)
		take := l.count - l.taken
		if take > avail {
			take = avail
		}
		if take <= 0 {
			l.done = true
			return nil, nil
		}
		end := start + int(take)
		l.taken += take
		if l.taken >= l.count {
			l.done = true
		}
		return chunk.Slice(start, end), nil
	}
}

func (l *LimitOperator) Close() error { return l.child.Close() }
