package exec

import (
	"context"
	"fmt"
	"strings"

	"colonnade/internal/types"
)

// UnionOperator implements UNION [ALL]: concatenate the left and right
// children's rows, deduplicating whole rows when UnionAll is false.
// Deduplication is a streaming set check against everything seen so far,
// not a separate distinct pass, since the operator is already pull-based
// chunk by chunk.
type UnionOperator struct {
	left, right Operator
	all         bool
	schema      []types.ColumnSchema

	onRight bool
	seen    map[string]struct{}
}

// NewUnionOperator builds a union over two operators sharing a schema
// (guaranteed by planning: a Union node's children are type-coerced to a
// common output before reaching this operator).
func NewUnionOperator(left, right Operator, all bool) *UnionOperator {
	u := &UnionOperator{left: left, right: right, all: all, schema: left.OutputSchema()}
	if !all {
		u.seen = make(map[string]struct{})
	}
	return u
}

func (u *UnionOperator) OutputSchema() []types.ColumnSchema { return u.schema }

// rowKey builds a dedup key for one row treating two NULLs in the same
// column as equal, matching groupKeyString's Null==Null grouping semantics
// in hashagg.go rather than SQL's three-valued NULL != NULL.
func rowKey(chunk *types.DataChunk, row int) string {
	var sb strings.Builder
	for c := 0; c < chunk.ColumnCount(); c++ {
		v := chunk.GetVector(c).Get(row)
		fmt.Fprint(&sb, v.HashKey())
		sb.WriteByte('\x1f')
	}
	return sb.String()
}

// dedupChunk filters chunk down to the rows not already present in
// u.seen, recording the ones it lets through.
func (u *UnionOperator) dedupChunk(chunk *types.DataChunk) *types.DataChunk {
	var keep []int
	for row := 0; row < chunk.Len(); row++ {
		k := rowKey(chunk, row)
		if _, ok := u.seen[k]; ok {
			continue
		}
		u.seen[k] = struct{}{}
		keep = append(keep, row)
	}
	if len(keep) == chunk.Len() {
		return chunk
	}
	if len(keep) == 0 {
		return nil
	}
	return chunk.Select(types.SelectionFromIndices(keep))
}

func (u *UnionOperator) NextChunk(ctx context.Context, maxRows int) (*types.DataChunk, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	for {
		var chunk *types.DataChunk
		var err error
		if !u.onRight {
			chunk, err = u.left.NextChunk(ctx, maxRows)
			if err != nil {
				return nil, err
			}
			if chunk == nil {
				u.onRight = true
				continue
			}
		} else {
			chunk, err = u.right.NextChunk(ctx, maxRows)
			if err != nil {
				return nil, err
			}
			if chunk == nil {
				return nil, nil
			}
		}
		if u.all {
			return chunk, nil
		}
		if out := u.dedupChunk(chunk); out != nil {
			return out, nil
		}
	}
}

func (u *UnionOperator) Close() error {
	if err := u.left.Close(); err != nil {
		return err
	}
	return u.right.Close()
}
