// Package engine is the top-level façade of the database: it owns the
// catalog, the transaction manager, the worker pool, the configuration
// store, and optional metrics, and exposes Execute/ExecuteCollect over
// logical plans or SQL text (through a pluggable Parser). The engine is
// also the error boundary: lower-level failures are converted into a
// single EngineError taxonomy here, never by panicking.
package engine

import (
	"context"
	"errors"
	"fmt"

	"colonnade/internal/catalog"
	"colonnade/internal/compression"
	"colonnade/internal/exec"
	"colonnade/internal/types"
)

// Kind is the engine's closed error taxonomy.
type Kind int

const (
	KindUnknown Kind = iota
	KindParse
	KindBinding
	KindInvalidArgument
	KindType
	KindOutOfBounds
	KindDivisionByZero
	KindExecution
	KindCorruptedData
	KindInvalidMetadata
	KindIncompatible
	KindIo
	KindOutOfMemory
	KindAborted
	KindCatalog
	KindTransaction
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "Parse"
	case KindBinding:
		return "Binding"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindType:
		return "Type"
	case KindOutOfBounds:
		return "OutOfBounds"
	case KindDivisionByZero:
		return "DivisionByZero"
	case KindExecution:
		return "Execution"
	case KindCorruptedData:
		return "CorruptedData"
	case KindInvalidMetadata:
		return "InvalidMetadata"
	case KindIncompatible:
		return "Incompatible"
	case KindIo:
		return "Io"
	case KindOutOfMemory:
		return "OutOfMemory"
	case KindAborted:
		return "Aborted"
	case KindCatalog:
		return "Catalog"
	case KindTransaction:
		return "Transaction"
	default:
		return "Unknown"
	}
}

// EngineError is the single error type the engine surfaces to callers:
// a taxonomy kind, the operation that failed, and the wrapped cause.
type EngineError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Classify wraps err as an EngineError with the taxonomy kind inferred
// from its concrete type, the engine's one conversion point for
// lower-level failures. Already-classified errors pass through unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return err
	}
	return &EngineError{Kind: kindOf(err), Op: op, Err: err}
}

func kindOf(err error) Kind {
	var (
		typeMismatch *types.TypeMismatchError
		outOfBounds  *types.OutOfBoundsError
		notFound     *catalog.ErrNotFound
		exists       *catalog.ErrAlreadyExists
		corrupted    *compression.CorruptedDataError
		badMetadata  *compression.InvalidMetadataError
		incompatible *compression.IncompatibleError
		aborted      *exec.AbortedError
		parseErr     *ParseError
	)
	switch {
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &typeMismatch):
		return KindType
	case errors.As(err, &outOfBounds):
		return KindOutOfBounds
	case errors.As(err, &notFound), errors.As(err, &exists):
		return KindCatalog
	case errors.As(err, &corrupted):
		return KindCorruptedData
	case errors.As(err, &badMetadata):
		return KindInvalidMetadata
	case errors.As(err, &incompatible):
		return KindIncompatible
	case errors.As(err, &aborted),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return KindAborted
	case errors.Is(err, exec.ErrDivisionByZero):
		return KindDivisionByZero
	default:
		return KindExecution
	}
}

// KindOf reports the taxonomy kind of an error returned by the engine, or
// KindUnknown for errors the engine did not produce.
func KindOf(err error) Kind {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindUnknown
}
