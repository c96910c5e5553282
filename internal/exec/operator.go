// Package exec implements the pull-based vectorized execution engine:
// physical operators exposing NextChunk, driven bottom-up by their
// consumer, built from an optimizer.PhysicalPlan. Parallel operators
// (hash join, hash aggregate, sort) live alongside their single-threaded
// counterparts and drive internal/exec/pool.
package exec

import (
	"context"
	"fmt"

	"colonnade/internal/types"
)

// Operator is implemented by every physical operator. NextChunk returns
// nil, nil to signal end-of-input: a typed nil rather than a sentinel
// error or an Option type, the Go idiom for an optional return.
type Operator interface {
	// NextChunk pulls up to maxRows rows from the operator. A returned
	// chunk may contain fewer rows than maxRows; callers must call again
	// until a nil chunk is returned.
	NextChunk(ctx context.Context, maxRows int) (*types.DataChunk, error)

	// OutputSchema describes the columns NextChunk's chunks carry.
	OutputSchema() []types.ColumnSchema

	// Close releases any resources (partition buffers, hash tables,
	// worker pools) the operator holds.
	Close() error
}

// AbortedError is returned by NextChunk when ctx is cancelled between
// chunks.
type AbortedError struct{ Cause error }

func (e *AbortedError) Error() string { return fmt.Sprintf("exec: aborted: %v", e.Cause) }
func (e *AbortedError) Unwrap() error { return e.Cause }

// checkCancelled is called by every operator between chunks.
func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return &AbortedError{Cause: ctx.Err()}
	default:
		return nil
	}
}
