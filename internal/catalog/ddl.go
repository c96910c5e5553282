package catalog

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"colonnade/internal/storage"
	"colonnade/internal/types"
)

// ApplyDDL parses CREATE TABLE / DROP TABLE statements with TiDB's SQL
// parser and turns them into CreateTable/DropTable calls against schema.
// This is the one piece of SQL text the catalog touches directly; general
// query SQL stays behind the Parser contract in
// internal/engine/contracts.go.
func (c *Catalog) ApplyDDL(schema, sql string) error {
	p := parser.New()
	stmts, _, err := p.Parse(sql, "", "")
	if err != nil {
		return fmt.Errorf("catalog: parsing DDL: %w", err)
	}
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.CreateTableStmt:
			if err := c.applyCreateTable(schema, s); err != nil {
				return err
			}
		case *ast.DropTableStmt:
			for _, tbl := range s.Tables {
				if err := c.DropTable(schema, tbl.Name.O, s.IfExists); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("catalog: unsupported DDL statement %T", stmt)
		}
	}
	return nil
}

func (c *Catalog) applyCreateTable(schema string, stmt *ast.CreateTableStmt) error {
	cols := make([]storage.ColumnDef, 0, len(stmt.Cols))
	for _, colDef := range stmt.Cols {
		nullable := true
		for _, opt := range colDef.Options {
			switch opt.Tp {
			case ast.ColumnOptionNotNull, ast.ColumnOptionPrimaryKey:
				nullable = false
			}
		}
		cols = append(cols, storage.ColumnDef{
			Name:     colDef.Name.Name.O,
			Type:     NormalizeType(colDef.Tp.String()),
			Nullable: nullable,
		})
	}
	tbl := storage.NewTable(storage.Schema{Columns: cols})
	return c.CreateTable(schema, stmt.Table.Name.O, tbl, stmt.IfNotExists)
}

// NormalizeType maps a TiDB-rendered SQL type string (e.g. "varchar(255)",
// "int", "bigint unsigned") to a Colonnade LogicalType, collapsing dialect
// type spelling variance.
func NormalizeType(raw string) *types.TypeInfo {
	lower := strings.ToLower(raw)
	base := lower
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSpace(strings.Fields(base)[0])

	switch base {
	case "tinyint":
		if strings.Contains(lower, "(1)") {
			return types.Scalar(types.Boolean)
		}
		return types.Scalar(types.TinyInt)
	case "smallint":
		return types.Scalar(types.SmallInt)
	case "int", "integer", "mediumint":
		return types.Scalar(types.Integer)
	case "bigint":
		return types.Scalar(types.BigInt)
	case "float":
		return types.Scalar(types.Float)
	case "double", "real":
		return types.Scalar(types.Double)
	case "decimal", "numeric":
		return types.NewDecimal(decimalParams(lower))
	case "varchar":
		return types.Scalar(types.Varchar)
	case "char":
		return types.NewChar(charLength(lower))
	case "text", "mediumtext", "longtext", "tinytext":
		return types.Scalar(types.Text)
	case "date":
		return types.Scalar(types.Date)
	case "time":
		return types.Scalar(types.Time)
	case "datetime", "timestamp":
		return types.Scalar(types.Timestamp)
	case "blob", "binary", "varbinary", "longblob", "mediumblob", "tinyblob":
		return types.Scalar(types.Blob)
	case "json":
		return types.Scalar(types.Json)
	case "boolean", "bool":
		return types.Scalar(types.Boolean)
	default:
		return types.Scalar(types.Varchar)
	}
}

func decimalParams(lower string) (int, int) {
	i := strings.IndexByte(lower, '(')
	if i < 0 {
		return 10, 0
	}
	j := strings.IndexByte(lower, ')')
	if j < i {
		return 10, 0
	}
	parts := strings.Split(lower[i+1:j], ",")
	precision, scale := 10, 0
	fmt.Sscanf(strings.TrimSpace(parts[0]), "%d", &precision)
	if len(parts) > 1 {
		fmt.Sscanf(strings.TrimSpace(parts[1]), "%d", &scale)
	}
	return precision, scale
}

func charLength(lower string) int {
	i := strings.IndexByte(lower, '(')
	j := strings.IndexByte(lower, ')')
	if i < 0 || j < i {
		return 1
	}
	n := 1
	fmt.Sscanf(strings.TrimSpace(lower[i+1:j]), "%d", &n)
	return n
}
