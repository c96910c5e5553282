package engine

import (
	"fmt"

	"colonnade/internal/plan"
	"colonnade/internal/txn"
	"colonnade/internal/types"
)

// External collaborator contracts. These are the boundaries of the
// engine: the SQL parser, transaction manager, block manager, and
// external file-format readers are all substitutable adapters. The
// engine ships no production implementation of any of them beyond
// internal/minisql (a deliberately minimal Parser used by tests and the
// demo CLI) and internal/txn (an in-memory TransactionManager).

// Parser turns SQL text into a bound logical plan. A ParseError carries
// the source position; binding failures are ordinary Binding-kind errors.
type Parser interface {
	Parse(schema, sql string) (*plan.Node, error)
}

// ParseError is the parser contract's failure shape: parse(sql) ->
// Statement | ParseError{line, col, message}.
type ParseError struct {
	Line    int
	Col     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Col, e.Message)
}

// TransactionManager is the transaction context contract: monotonic
// transaction ids and per-transaction snapshots passed into every scan.
type TransactionManager interface {
	Begin() txn.TxnID
	Snapshot(id txn.TxnID) (txn.SnapshotID, error)
	Commit(id txn.TxnID) error
	Abort(id txn.TxnID) error
}

// BlockManager is the block-addressed persistent store contract. The
// file-backed database path is out of scope for the core; the engine only
// names the boundary.
type BlockManager interface {
	ReadBlock(id uint64) ([]byte, error)
	WriteBlock(id uint64, data []byte) error
	Sync() error
	TotalBlocks() (uint64, error)
}

// ExternalReader is the contract for file-format adapters (CSV, JSON,
// Parquet, SQLite-over-blob): raw bytes in, a schema and one chunk out.
type ExternalReader interface {
	Read(data []byte) ([]types.ColumnSchema, *types.DataChunk, error)
}
