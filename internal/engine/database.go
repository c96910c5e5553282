package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"colonnade/internal/catalog"
	"colonnade/internal/config"
	"colonnade/internal/exec"
	"colonnade/internal/exec/pool"
	"colonnade/internal/optimizer"
	"colonnade/internal/plan"
	"colonnade/internal/txn"
	"colonnade/internal/types"
)

// DefaultSchema is the schema unqualified table names resolve against.
const DefaultSchema = "main"

// Database is the engine façade: one catalog, one transaction manager,
// one configuration store, one worker pool, optional metrics, and an
// optional Parser for SQL text entry. All collaborators are injected at
// construction.
type Database struct {
	cat     *catalog.Catalog
	txns    TransactionManager
	store   *config.Store
	workers *pool.Pool
	metrics *Metrics
	parser  Parser
	logw    io.Writer

	registry *prometheus.Registry
}

// Option configures a Database at construction.
type Option func(*Database)

// WithParser attaches a SQL front end for Execute/ExecuteCollect over
// text. Without one, only ExecutePlan and ApplyDDL are available.
func WithParser(p Parser) Option { return func(db *Database) { db.parser = p } }

// WithLogger directs the engine's diagnostic lines to w.
func WithLogger(w io.Writer) Option { return func(db *Database) { db.logw = w } }

// WithMetricsRegistry registers the engine collectors on reg.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(db *Database) { db.registry = reg }
}

// WithConfig replaces the default configuration.
func WithConfig(cfg config.EngineConfig) Option {
	return func(db *Database) { db.store = config.NewStore(cfg) }
}

// WithTransactionManager substitutes the transaction manager contract.
func WithTransactionManager(tm TransactionManager) Option {
	return func(db *Database) { db.txns = tm }
}

// New builds an in-memory database with an empty default schema.
func New(opts ...Option) *Database {
	db := &Database{
		store: config.NewStore(config.Default()),
		logw:  io.Discard,
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.cat == nil {
		db.cat = catalog.New()
	}
	if db.txns == nil {
		db.txns = txn.NewManager()
	}
	db.workers = pool.New(db.store.Get().PoolSize)
	db.metrics = NewMetrics(db.registry)
	_ = db.cat.CreateSchema(DefaultSchema)
	return db
}

// SetParser attaches a SQL front end after construction, for front ends
// that need the catalog New creates (e.g. minisql binds against it).
func (db *Database) SetParser(p Parser) { db.parser = p }

// Catalog exposes the database's catalog for direct plan construction.
func (db *Database) Catalog() *catalog.Catalog { return db.cat }

// Config exposes the configuration store.
func (db *Database) Config() *config.Store { return db.store }

// Txns exposes the transaction manager contract.
func (db *Database) Txns() TransactionManager { return db.txns }

// Metrics exposes the engine collectors (for stats-by-hand callers).
func (db *Database) Metrics() *Metrics { return db.metrics }

// ApplyDDL parses and applies CREATE TABLE / DROP TABLE text against the
// default schema.
func (db *Database) ApplyDDL(sql string) error {
	return Classify("apply ddl", db.cat.ApplyDDL(DefaultSchema, sql))
}

// ExecStats summarizes one executed query.
type ExecStats struct {
	RowsScanned  int64
	RowsReturned int64
	Elapsed      time.Duration
}

// Stream is the pull side of an executing query: chunks flow out until
// Next returns (nil, nil). Errors are classified into the engine taxonomy
// and are fatal; the first error wins and later output is discarded.
type Stream struct {
	db     *Database
	op     exec.Operator
	schema []types.ColumnSchema

	start        time.Time
	rowsScanned  int64
	rowsReturned int64
	finished     bool
	failed       error
}

// Schema describes the columns of the stream's chunks.
func (s *Stream) Schema() []types.ColumnSchema { return s.schema }

// Next pulls the next chunk, or (nil, nil) at end of stream.
func (s *Stream) Next(ctx context.Context) (*types.DataChunk, error) {
	if s.failed != nil {
		return nil, s.failed
	}
	if s.finished {
		return nil, nil
	}
	chunk, err := s.op.NextChunk(ctx, types.ChunkCapacity)
	if err != nil {
		s.failed = Classify("execute", err)
		s.db.metrics.QueryFailures.Inc()
		return nil, s.failed
	}
	if chunk == nil {
		s.finished = true
		s.db.metrics.QuerySeconds.Observe(time.Since(s.start).Seconds())
		return nil, nil
	}
	s.rowsReturned += int64(chunk.Len())
	s.db.metrics.RowsReturned.Add(float64(chunk.Len()))
	s.db.metrics.ChunksEmitted.Inc()
	return chunk, nil
}

// Close releases operator resources. Safe after an error or end of
// stream.
func (s *Stream) Close() error {
	return Classify("close", s.op.Close())
}

// Stats reports the stream's counters so far.
func (s *Stream) Stats() ExecStats {
	return ExecStats{
		RowsScanned:  s.rowsScanned,
		RowsReturned: s.rowsReturned,
		Elapsed:      time.Since(s.start),
	}
}

// ExecutePlan optimizes, lowers, and opens a logical plan as a chunk
// stream. The snapshot travels with the query; the in-memory storage
// layer does not filter by it, but the transaction contract requires it
// to be threaded through.
func (db *Database) ExecutePlan(ctx context.Context, snapshot txn.SnapshotID, root *plan.Node) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, Classify("execute", err)
	}
	db.metrics.QueriesTotal.Inc()

	logical := optimizer.Optimize(root)
	phys, err := optimizer.Lower(logical)
	if err != nil {
		db.metrics.QueryFailures.Inc()
		return nil, &EngineError{Kind: KindBinding, Op: "lower plan", Err: err}
	}
	op, err := exec.Build(phys, db.cat, db.workers)
	if err != nil {
		db.metrics.QueryFailures.Inc()
		return nil, Classify("build plan", err)
	}

	scanned := db.scannedRowEstimate(logical)
	db.metrics.RowsScanned.Add(float64(scanned))
	fmt.Fprintf(db.logw, "query start snapshot=%d scan_rows=%d\n", snapshot, scanned)

	if logical.Kind == plan.NodeInsert {
		// Conservative staleness: the write is marked the moment the plan
		// opens, even if the caller never drains the insert's result row.
		db.cat.MarkStaleDependents(logical.TargetSchema, logical.TargetTable)
	}

	return &Stream{
		db:          db,
		op:          op,
		schema:      op.OutputSchema(),
		start:       time.Now(),
		rowsScanned: scanned,
	}, nil
}

// scannedRowEstimate sums the row counts of every table the plan scans,
// before pushed filters (the scan still visits those rows).
func (db *Database) scannedRowEstimate(n *plan.Node) int64 {
	if n == nil {
		return 0
	}
	var total int64
	if n.Kind == plan.NodeScan {
		if h, err := db.cat.Resolve(n.Schema, n.Table); err == nil {
			rows := int64(h.Table.RowCount())
			if n.PushedLimit >= 0 && int64(n.PushedLimit) < rows {
				rows = int64(n.PushedLimit)
			}
			total += rows
		}
	}
	for _, c := range n.Children() {
		total += db.scannedRowEstimate(c)
	}
	return total
}

// Execute parses sql with the configured Parser and opens it as a chunk
// stream under the given snapshot.
func (db *Database) Execute(ctx context.Context, sql string, snapshot txn.SnapshotID) (*Stream, error) {
	if db.parser == nil {
		return nil, &EngineError{Kind: KindInvalidArgument, Op: "execute", Err: fmt.Errorf("no SQL parser configured; use ExecutePlan or the WithParser option")}
	}
	root, err := db.parser.Parse(DefaultSchema, sql)
	if err != nil {
		db.metrics.QueryFailures.Inc()
		return nil, Classify("parse", err)
	}
	return db.ExecutePlan(ctx, snapshot, root)
}

// CollectedResult is the fully materialized form of one query's output.
type CollectedResult struct {
	ColumnNames []string
	Rows        [][]types.Value
	Stats       ExecStats
}

// ExecuteCollect runs sql inside its own transaction and materializes the
// whole result. The transaction commits on success and aborts on error.
func (db *Database) ExecuteCollect(ctx context.Context, sql string) (*CollectedResult, error) {
	id := db.txns.Begin()
	snapshot, err := db.txns.Snapshot(id)
	if err != nil {
		return nil, &EngineError{Kind: KindTransaction, Op: "execute", Err: err}
	}

	stream, err := db.Execute(ctx, sql, snapshot)
	if err != nil {
		_ = db.txns.Abort(id)
		return nil, err
	}
	defer stream.Close()

	out := &CollectedResult{}
	for _, col := range stream.Schema() {
		out.ColumnNames = append(out.ColumnNames, col.Name)
	}
	for {
		chunk, err := stream.Next(ctx)
		if err != nil {
			_ = db.txns.Abort(id)
			return nil, err
		}
		if chunk == nil {
			break
		}
		for r := 0; r < chunk.Len(); r++ {
			row := make([]types.Value, chunk.ColumnCount())
			for c := 0; c < chunk.ColumnCount(); c++ {
				row[c] = chunk.GetVector(c).Get(r)
			}
			out.Rows = append(out.Rows, row)
		}
	}
	if err := db.txns.Commit(id); err != nil {
		return nil, &EngineError{Kind: KindTransaction, Op: "execute", Err: err}
	}
	out.Stats = stream.Stats()
	fmt.Fprintf(db.logw, "query done rows=%d elapsed=%s\n", out.Stats.RowsReturned, out.Stats.Elapsed)
	return out, nil
}
