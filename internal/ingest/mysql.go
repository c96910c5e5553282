// Package ingest streams rows from a live MySQL table into engine
// storage, a concrete stand-in for the external-reader boundary: bytes in
// from somewhere else, AppendRows into a storage.Table.
package ingest

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"colonnade/internal/storage"
	"colonnade/internal/types"
)

// batchSize is how many rows accumulate before one AppendRows call.
const batchSize = 1024

// Connect opens and pings a MySQL connection.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("ingest: open connection: %w", err)
	}
	if pingErr := db.PingContext(ctx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("ingest: ping: %w; additionally failed to close connection: %w", pingErr, closeErr)
		}
		return nil, fmt.Errorf("ingest: ping: %w", pingErr)
	}
	return db, nil
}

// CopyQuery runs query against db and appends every result row into dest.
// The query's columns must line up positionally with dest's schema.
// Returns the number of rows copied.
func CopyQuery(ctx context.Context, db *sql.DB, query string, dest *storage.Table) (int64, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("ingest: query: %w", err)
	}
	defer rows.Close()

	cols := dest.Schema().Columns
	srcCols, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("ingest: reading result columns: %w", err)
	}
	if len(srcCols) != len(cols) {
		return 0, fmt.Errorf("ingest: query returns %d columns, table has %d", len(srcCols), len(cols))
	}

	var copied int64
	batch := make([]storage.Row, 0, batchSize)
	for rows.Next() {
		holders := scanHolders(cols)
		if err := rows.Scan(holders...); err != nil {
			return copied, fmt.Errorf("ingest: scanning row: %w", err)
		}
		row := make(storage.Row, len(cols))
		for i, c := range cols {
			v, err := holderValue(c.Type, holders[i])
			if err != nil {
				return copied, fmt.Errorf("ingest: column %q: %w", c.Name, err)
			}
			row[i] = v
		}
		batch = append(batch, row)
		if len(batch) >= batchSize {
			if err := dest.AppendRows(batch); err != nil {
				return copied, err
			}
			copied += int64(len(batch))
			batch = batch[:0]
		}
	}
	if err := rows.Err(); err != nil {
		return copied, fmt.Errorf("ingest: iterating rows: %w", err)
	}
	if len(batch) > 0 {
		if err := dest.AppendRows(batch); err != nil {
			return copied, err
		}
		copied += int64(len(batch))
	}
	if err := dest.Flush(); err != nil {
		return copied, err
	}
	return copied, nil
}

// scanHolders allocates one database/sql nullable holder per destination
// column, picked by the column's logical type.
func scanHolders(cols []storage.ColumnDef) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		switch c.Type.Kind {
		case types.Boolean:
			out[i] = new(sql.NullBool)
		case types.TinyInt, types.SmallInt, types.Integer, types.BigInt,
			types.Date, types.Time, types.Timestamp:
			out[i] = new(sql.NullInt64)
		case types.Float, types.Double:
			out[i] = new(sql.NullFloat64)
		default:
			out[i] = new(sql.NullString)
		}
	}
	return out
}

// holderValue converts a scanned holder into a typed engine value.
func holderValue(t *types.TypeInfo, holder any) (types.Value, error) {
	switch h := holder.(type) {
	case *sql.NullBool:
		if !h.Valid {
			return types.NewNull(t.Kind), nil
		}
		return types.NewBoolean(h.Bool), nil
	case *sql.NullInt64:
		if !h.Valid {
			return types.NewNull(t.Kind), nil
		}
		switch t.Kind {
		case types.TinyInt:
			return types.NewTinyInt(int8(h.Int64)), nil
		case types.SmallInt:
			return types.NewSmallInt(int16(h.Int64)), nil
		case types.Integer:
			return types.NewInteger(int32(h.Int64)), nil
		case types.BigInt:
			return types.NewBigInt(h.Int64), nil
		case types.Date:
			return types.NewDate(int32(h.Int64)), nil
		case types.Time:
			return types.NewTime(h.Int64), nil
		case types.Timestamp:
			return types.NewTimestamp(h.Int64), nil
		default:
			return types.Value{}, fmt.Errorf("integer result for %s column", t)
		}
	case *sql.NullFloat64:
		if !h.Valid {
			return types.NewNull(t.Kind), nil
		}
		return types.NewDouble(h.Float64), nil
	case *sql.NullString:
		if !h.Valid {
			return types.NewNull(t.Kind), nil
		}
		return types.NewStringValue(stringKind(t.Kind), h.String), nil
	default:
		return types.Value{}, fmt.Errorf("unsupported scan holder %T", holder)
	}
}

func stringKind(k types.LogicalType) types.LogicalType {
	switch k {
	case types.Varchar, types.Char, types.Text, types.Json, types.Blob:
		return k
	default:
		return types.Varchar
	}
}
