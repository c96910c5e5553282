// Package minisql is a deliberately minimal SQL front end over the TiDB
// parser: single-table and two-table SELECT (equi-joins), WHERE, GROUP
// BY, ORDER BY, LIMIT, INSERT ... VALUES, CREATE/DROP TABLE, and EXPLAIN,
// bound against the catalog into logical plan trees. It exists so tests
// and the demo CLI can exercise the engine end-to-end; the production
// parser remains an external contract (internal/engine/contracts.go) and
// everything this package cannot express is simply a parse error.
package minisql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/opcode"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"colonnade/internal/catalog"
	"colonnade/internal/engine"
	"colonnade/internal/plan"
	"colonnade/internal/types"
)

// Parser binds parsed statements against a catalog.
type Parser struct {
	cat *catalog.Catalog
}

// New builds a Parser over cat.
func New(cat *catalog.Catalog) *Parser {
	return &Parser{cat: cat}
}

// Parse turns one SQL statement into a bound logical plan rooted at
// schema.
func (p *Parser) Parse(schema, sql string) (*plan.Node, error) {
	stmts, _, err := parser.New().Parse(sql, "", "")
	if err != nil {
		return nil, &engine.ParseError{Message: err.Error()}
	}
	if len(stmts) != 1 {
		return nil, &engine.ParseError{Message: fmt.Sprintf("expected one statement, got %d", len(stmts))}
	}
	return p.buildStatement(schema, stmts[0])
}

func (p *Parser) buildStatement(schema string, stmt ast.StmtNode) (*plan.Node, error) {
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		return p.buildSelect(schema, s)
	case *ast.InsertStmt:
		return p.buildInsert(schema, s)
	case *ast.CreateTableStmt:
		return buildCreateTable(schema, s)
	case *ast.DropTableStmt:
		if len(s.Tables) != 1 {
			return nil, &engine.ParseError{Message: "DROP TABLE supports exactly one table"}
		}
		return plan.DropTable(schema, s.Tables[0].Name.O, s.IfExists), nil
	case *ast.ExplainStmt:
		inner, ok := s.Stmt.(*ast.SelectStmt)
		if !ok {
			return nil, &engine.ParseError{Message: "EXPLAIN supports only SELECT"}
		}
		child, err := p.buildSelect(schema, inner)
		if err != nil {
			return nil, err
		}
		return plan.Explain(child), nil
	default:
		return nil, &engine.ParseError{Message: fmt.Sprintf("unsupported statement %T", stmt)}
	}
}

func buildCreateTable(schema string, stmt *ast.CreateTableStmt) (*plan.Node, error) {
	cols := make([]plan.OutputColumn, 0, len(stmt.Cols))
	for _, colDef := range stmt.Cols {
		cols = append(cols, plan.OutputColumn{
			Name: colDef.Name.Name.O,
			Type: catalog.NormalizeType(colDef.Tp.String()),
		})
	}
	return plan.CreateTable(schema, stmt.Table.Name.O, cols, stmt.IfNotExists), nil
}

// boundTable is one FROM-clause relation: its visible name, its columns,
// and the offset of its first column in the combined namespace.
type boundTable struct {
	name   string
	cols   []plan.OutputColumn
	offset int
}

type scope struct {
	tables []boundTable
	out    []plan.OutputColumn
}

// find resolves (tbl, col) to the owning relation index and the column's
// position both locally and in the combined namespace.
func (s *scope) find(tbl, col string) (rel, local, combined int, typ *types.TypeInfo, err error) {
	rel = -1
	for ti, t := range s.tables {
		if tbl != "" && !strings.EqualFold(tbl, t.name) {
			continue
		}
		for ci, c := range t.cols {
			if strings.EqualFold(c.Name, col) {
				if rel >= 0 {
					return 0, 0, 0, nil, fmt.Errorf("minisql: binding: column %q is ambiguous", col)
				}
				rel, local, combined, typ = ti, ci, t.offset+ci, c.Type
			}
		}
	}
	if rel < 0 {
		return 0, 0, 0, nil, fmt.Errorf("minisql: binding: column %q not found", qualify(tbl, col))
	}
	return rel, local, combined, typ, nil
}

func qualify(tbl, col string) string {
	if tbl == "" {
		return col
	}
	return tbl + "." + col
}

// resolver maps a (possibly qualified) column name to a bound reference.
type resolver func(tbl, col string) (*plan.Expr, error)

// combinedResolver binds every column against child index 0 of a node
// whose output is the scope's combined namespace (filter, sort, project).
func (s *scope) combinedResolver() resolver {
	return func(tbl, col string) (*plan.Expr, error) {
		_, _, combined, typ, err := s.find(tbl, col)
		if err != nil {
			return nil, err
		}
		return plan.ColumnRef(0, combined, col, typ), nil
	}
}

// sidedResolver binds columns against child 0 (left) or 1 (right) with
// relation-local indices, the shape join ON predicates carry.
func (s *scope) sidedResolver() resolver {
	return func(tbl, col string) (*plan.Expr, error) {
		rel, local, _, typ, err := s.find(tbl, col)
		if err != nil {
			return nil, err
		}
		return plan.ColumnRef(rel, local, col, typ), nil
	}
}

func (p *Parser) scanTable(schema string, name string) (*plan.Node, boundTable, error) {
	h, err := p.cat.Resolve(schema, name)
	if err != nil {
		return nil, boundTable{}, fmt.Errorf("minisql: binding: %w", err)
	}
	tblSchema := h.Table.Schema()
	cols := make([]plan.OutputColumn, len(tblSchema.Columns))
	projected := make([]int, len(tblSchema.Columns))
	for i, c := range tblSchema.Columns {
		cols[i] = plan.OutputColumn{Name: c.Name, Type: c.Type}
		projected[i] = i
	}
	node := plan.Scan(schema, name, cols, projected)
	node.EstimatedRows = int64(h.Table.RowCount())
	return node, boundTable{name: name, cols: cols}, nil
}

func tableSourceName(rs ast.ResultSetNode) (table, alias string, err error) {
	src, ok := rs.(*ast.TableSource)
	if !ok {
		return "", "", &engine.ParseError{Message: fmt.Sprintf("unsupported FROM clause item %T", rs)}
	}
	tn, ok := src.Source.(*ast.TableName)
	if !ok {
		return "", "", &engine.ParseError{Message: "subqueries in FROM are not supported"}
	}
	alias = src.AsName.O
	if alias == "" {
		alias = tn.Name.O
	}
	return tn.Name.O, alias, nil
}

// buildFrom lowers a FROM clause into a scan or a two-table join.
func (p *Parser) buildFrom(schema string, join *ast.Join) (*plan.Node, *scope, error) {
	if join.Right == nil {
		table, alias, err := tableSourceName(join.Left)
		if err != nil {
			return nil, nil, err
		}
		node, bound, err := p.scanTable(schema, table)
		if err != nil {
			return nil, nil, err
		}
		bound.name = alias
		sc := &scope{tables: []boundTable{bound}, out: node.Output}
		return node, sc, nil
	}

	leftTable, leftAlias, err := tableSourceName(join.Left)
	if err != nil {
		return nil, nil, err
	}
	rightTable, rightAlias, err := tableSourceName(join.Right)
	if err != nil {
		return nil, nil, err
	}
	leftNode, leftBound, err := p.scanTable(schema, leftTable)
	if err != nil {
		return nil, nil, err
	}
	rightNode, rightBound, err := p.scanTable(schema, rightTable)
	if err != nil {
		return nil, nil, err
	}
	leftBound.name = leftAlias
	rightBound.name = rightAlias
	rightBound.offset = len(leftBound.cols)
	sc := &scope{tables: []boundTable{leftBound, rightBound}}

	if join.On == nil {
		node := plan.CrossProduct(leftNode, rightNode)
		sc.out = node.Output
		return node, sc, nil
	}

	kind := plan.JoinInner
	switch join.Tp {
	case ast.LeftJoin:
		kind = plan.JoinLeft
	case ast.RightJoin:
		// Right outer would need its output columns reordered after a
		// side swap; rewrite the query with the tables flipped instead.
		return nil, nil, &engine.ParseError{Message: "RIGHT JOIN is not supported; flip the join"}
	}
	on, err := bindExpr(join.On.Expr, sc.sidedResolver())
	if err != nil {
		return nil, nil, err
	}
	node := plan.Join(kind, leftNode, rightNode, on, nil)
	sc.out = node.Output
	return node, sc, nil
}

func (p *Parser) buildSelect(schema string, stmt *ast.SelectStmt) (*plan.Node, error) {
	if stmt.With != nil {
		// The plan IR and optimizer support CTE bindings (plan.CTEBinding
		// is inlined by the optimizer); this front end does not bind them.
		// Inline the subquery, or build the tree through plan.CTEBinding.
		return nil, &engine.ParseError{Message: "WITH (common table expressions) is not supported by this front end"}
	}
	if stmt.From == nil {
		return buildSelectWithoutFrom(stmt)
	}
	node, sc, err := p.buildFrom(schema, stmt.From.TableRefs)
	if err != nil {
		return nil, err
	}

	if stmt.Where != nil {
		pred, err := bindExpr(stmt.Where, sc.combinedResolver())
		if err != nil {
			return nil, err
		}
		node = plan.Filter(node, pred)
	}

	if isAggregateQuery(stmt) {
		return buildAggregateSelect(stmt, node, sc)
	}
	return buildPlainSelect(stmt, node, sc)
}

// buildPlainSelect shapes a non-aggregate query as
// base -> [Sort] -> Project -> [Limit]: sorting runs before projection so
// ORDER BY may reference columns the SELECT list drops.
func buildPlainSelect(stmt *ast.SelectStmt, node *plan.Node, sc *scope) (*plan.Node, error) {
	var err error
	node, err = applyOrderBy(stmt.OrderBy, node, sc.combinedResolver())
	if err != nil {
		return nil, err
	}

	exprs, aliases, err := bindSelectFields(stmt.Fields, sc)
	if err != nil {
		return nil, err
	}
	node = plan.Project(node, exprs, aliases)
	return applyLimit(stmt.Limit, node)
}

func bindSelectFields(fields *ast.FieldList, sc *scope) ([]*plan.Expr, []string, error) {
	var exprs []*plan.Expr
	var aliases []string
	for _, f := range fields.Fields {
		if f.WildCard != nil {
			for i, c := range sc.out {
				exprs = append(exprs, plan.ColumnRef(0, i, c.Name, c.Type))
				aliases = append(aliases, c.Name)
			}
			continue
		}
		e, err := bindExpr(f.Expr, sc.combinedResolver())
		if err != nil {
			return nil, nil, err
		}
		exprs = append(exprs, e)
		aliases = append(aliases, fieldAlias(f, e))
	}
	return exprs, aliases, nil
}

func fieldAlias(f *ast.SelectField, bound *plan.Expr) string {
	if f.AsName.O != "" {
		return f.AsName.O
	}
	if bound.Kind == plan.ExprColumnRef {
		return bound.Ref.Name
	}
	if bound.Kind == plan.ExprFuncCall {
		return strings.ToLower(bound.FuncName)
	}
	return f.Text()
}

func isAggregateQuery(stmt *ast.SelectStmt) bool {
	if stmt.GroupBy != nil {
		return true
	}
	for _, f := range stmt.Fields.Fields {
		if _, ok := f.Expr.(*ast.AggregateFuncExpr); ok {
			return true
		}
	}
	return false
}

// buildAggregateSelect shapes an aggregate query as
// base -> Aggregate -> Project -> [Sort] -> [Limit]. The projection
// reorders the aggregate's (keys, aggs) output into SELECT-list order;
// ORDER BY binds against the projected names.
func buildAggregateSelect(stmt *ast.SelectStmt, node *plan.Node, sc *scope) (*plan.Node, error) {
	var groupKeys []*plan.Expr
	var groupNames []string
	if stmt.GroupBy != nil {
		for _, item := range stmt.GroupBy.Items {
			e, err := bindExpr(item.Expr, sc.combinedResolver())
			if err != nil {
				return nil, err
			}
			if e.Kind != plan.ExprColumnRef {
				return nil, &engine.ParseError{Message: "GROUP BY supports plain columns only"}
			}
			groupKeys = append(groupKeys, e)
			groupNames = append(groupNames, e.Ref.Name)
		}
	}

	// Each SELECT field is either an aggregate call or a grouping column;
	// record where each lands in the aggregate's (keys, aggs) output.
	var aggs []plan.AggregateExpr
	type fieldSlot struct {
		aggOutputIdx int
		alias        string
	}
	slots := make([]fieldSlot, 0, len(stmt.Fields.Fields))
	for _, f := range stmt.Fields.Fields {
		if call, ok := f.Expr.(*ast.AggregateFuncExpr); ok {
			bound, err := bindAggregateCall(call, sc)
			if err != nil {
				return nil, err
			}
			alias := f.AsName.O
			if alias == "" {
				alias = strings.ToLower(call.F)
			}
			aggs = append(aggs, plan.AggregateExpr{Call: bound, Alias: alias})
			slots = append(slots, fieldSlot{aggOutputIdx: len(groupKeys) + len(aggs) - 1, alias: alias})
			continue
		}
		e, err := bindExpr(f.Expr, sc.combinedResolver())
		if err != nil {
			return nil, err
		}
		if e.Kind != plan.ExprColumnRef {
			return nil, &engine.ParseError{Message: "non-aggregate SELECT fields must be grouping columns"}
		}
		keyIdx := -1
		for i, k := range groupKeys {
			if k.Ref.ColIdx == e.Ref.ColIdx {
				keyIdx = i
				break
			}
		}
		if keyIdx < 0 {
			return nil, fmt.Errorf("minisql: binding: column %q must appear in GROUP BY", e.Ref.Name)
		}
		slots = append(slots, fieldSlot{aggOutputIdx: keyIdx, alias: fieldAlias(f, e)})
	}

	node = plan.Aggregate(node, groupKeys, groupNames, aggs)

	projExprs := make([]*plan.Expr, len(slots))
	projAliases := make([]string, len(slots))
	for i, slot := range slots {
		out := node.Output[slot.aggOutputIdx]
		projExprs[i] = plan.ColumnRef(0, slot.aggOutputIdx, out.Name, out.Type)
		projAliases[i] = slot.alias
	}
	node = plan.Project(node, projExprs, projAliases)

	projScope := &scope{tables: []boundTable{{cols: node.Output}}, out: node.Output}
	var err error
	node, err = applyOrderBy(stmt.OrderBy, node, projScope.combinedResolver())
	if err != nil {
		return nil, err
	}
	return applyLimit(stmt.Limit, node)
}

func bindAggregateCall(call *ast.AggregateFuncExpr, sc *scope) (*plan.Expr, error) {
	name := strings.ToUpper(call.F)
	if name == "GROUP_CONCAT" {
		name = "STRING_AGG"
	}
	var args []*plan.Expr
	for _, a := range call.Args {
		bound, err := bindExpr(a, sc.combinedResolver())
		if err != nil {
			return nil, err
		}
		args = append(args, bound)
	}
	// COUNT(*) arrives from the TiDB parser as COUNT over the literal 1;
	// both count every row, so collapse to the argument-free form.
	if name == "COUNT" && len(args) == 1 && args[0].Kind == plan.ExprConstant {
		args = nil
	}
	outType := aggregateOutputType(name, args)
	return plan.FuncCall(plan.FuncAggregate, name, args, outType, call.Distinct), nil
}

func aggregateOutputType(name string, args []*plan.Expr) *types.TypeInfo {
	argType := types.Scalar(types.Double)
	if len(args) > 0 && args[0].OutputType != nil {
		argType = args[0].OutputType
	}
	switch name {
	case "COUNT", "APPROX_COUNT_DISTINCT":
		return types.Scalar(types.BigInt)
	case "SUM":
		if argType.Kind == types.Float || argType.Kind == types.Double {
			return types.Scalar(types.Double)
		}
		return types.Scalar(types.BigInt)
	case "AVG", "STDDEV", "VARIANCE", "MEDIAN":
		return types.Scalar(types.Double)
	case "STRING_AGG":
		return types.Scalar(types.Varchar)
	case "ARRAY_AGG":
		return types.NewList(argType)
	case "BOOL_AND", "BOOL_OR":
		return types.Scalar(types.Boolean)
	default: // MIN, MAX, FIRST, LAST, MODE keep the argument type
		return argType
	}
}

func applyOrderBy(clause *ast.OrderByClause, node *plan.Node, resolve resolver) (*plan.Node, error) {
	if clause == nil {
		return node, nil
	}
	keys := make([]plan.SortKey, 0, len(clause.Items))
	for _, item := range clause.Items {
		e, err := bindExpr(item.Expr, resolve)
		if err != nil {
			return nil, err
		}
		// Default NULL ordering: nulls-last ascending, nulls-first
		// descending.
		keys = append(keys, plan.SortKey{Expr: e, Ascending: !item.Desc, NullsFirst: item.Desc})
	}
	return plan.Sort(node, keys, false), nil
}

func applyLimit(limit *ast.Limit, node *plan.Node) (*plan.Node, error) {
	if limit == nil {
		return node, nil
	}
	count, err := limitLiteral(limit.Count)
	if err != nil {
		return nil, err
	}
	offset := int64(0)
	if limit.Offset != nil {
		if offset, err = limitLiteral(limit.Offset); err != nil {
			return nil, err
		}
	}
	return plan.Limit(node, count, offset), nil
}

func limitLiteral(e ast.ExprNode) (int64, error) {
	v, ok := e.(ast.ValueExpr)
	if !ok {
		return 0, &engine.ParseError{Message: "LIMIT requires a literal"}
	}
	switch n := v.GetValue().(type) {
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	default:
		return 0, &engine.ParseError{Message: "LIMIT requires an integer literal"}
	}
}

// buildSelectWithoutFrom handles constant queries such as SELECT 1+1.
func buildSelectWithoutFrom(stmt *ast.SelectStmt) (*plan.Node, error) {
	empty := &scope{}
	var row []*plan.Expr
	var out []plan.OutputColumn
	for _, f := range stmt.Fields.Fields {
		e, err := bindExpr(f.Expr, empty.combinedResolver())
		if err != nil {
			return nil, err
		}
		row = append(row, e)
		out = append(out, plan.OutputColumn{Name: fieldAlias(f, e), Type: e.OutputType})
	}
	return plan.Values(out, [][]*plan.Expr{row}), nil
}

func (p *Parser) buildInsert(schema string, stmt *ast.InsertStmt) (*plan.Node, error) {
	src, ok := stmt.Table.TableRefs.Left.(*ast.TableSource)
	if !ok {
		return nil, &engine.ParseError{Message: "unsupported INSERT target"}
	}
	tn, ok := src.Source.(*ast.TableName)
	if !ok {
		return nil, &engine.ParseError{Message: "unsupported INSERT target"}
	}
	h, err := p.cat.Resolve(schema, tn.Name.O)
	if err != nil {
		return nil, fmt.Errorf("minisql: binding: %w", err)
	}
	cols := h.Table.Schema().Columns
	if len(stmt.Columns) > 0 && len(stmt.Columns) != len(cols) {
		return nil, &engine.ParseError{Message: "INSERT must list all columns or none"}
	}
	if len(stmt.Lists) == 0 {
		return nil, &engine.ParseError{Message: "INSERT requires a VALUES list"}
	}

	output := make([]plan.OutputColumn, len(cols))
	for i, c := range cols {
		output[i] = plan.OutputColumn{Name: c.Name, Type: c.Type}
	}
	rows := make([][]*plan.Expr, 0, len(stmt.Lists))
	for _, list := range stmt.Lists {
		if len(list) != len(cols) {
			return nil, &engine.ParseError{Message: fmt.Sprintf("INSERT row has %d values, table has %d columns", len(list), len(cols))}
		}
		row := make([]*plan.Expr, len(list))
		for i, e := range list {
			lit, err := literalValue(e)
			if err != nil {
				return nil, err
			}
			coerced, err := coerce(lit, cols[i].Type)
			if err != nil {
				return nil, fmt.Errorf("minisql: binding: column %q: %w", cols[i].Name, err)
			}
			row[i] = plan.Constant(coerced)
		}
		rows = append(rows, row)
	}
	return plan.Insert(schema, tn.Name.O, plan.Values(output, rows)), nil
}

func literalValue(e ast.ExprNode) (types.Value, error) {
	switch n := e.(type) {
	case ast.ValueExpr:
		return goValue(n.GetValue())
	case *ast.UnaryOperationExpr:
		if n.Op != opcode.Minus {
			return types.Value{}, &engine.ParseError{Message: "INSERT values must be literals"}
		}
		v, err := literalValue(n.V)
		if err != nil {
			return types.Value{}, err
		}
		switch v.Type {
		case types.Double:
			return types.NewDouble(-v.AsFloat64()), nil
		default:
			return types.NewBigInt(-v.AsInt64()), nil
		}
	default:
		return types.Value{}, &engine.ParseError{Message: "INSERT values must be literals"}
	}
}

func goValue(raw any) (types.Value, error) {
	switch v := raw.(type) {
	case nil:
		return types.NewNull(types.Null), nil
	case int64:
		return types.NewBigInt(v), nil
	case uint64:
		return types.NewBigInt(int64(v)), nil
	case float64:
		return types.NewDouble(v), nil
	case float32:
		return types.NewDouble(float64(v)), nil
	case string:
		return types.NewVarchar(v), nil
	default:
		if s, ok := raw.(fmt.Stringer); ok {
			// Decimal literals arrive as the test driver's decimal type.
			f, err := strconv.ParseFloat(s.String(), 64)
			if err == nil {
				return types.NewDouble(f), nil
			}
		}
		return types.Value{}, &engine.ParseError{Message: fmt.Sprintf("unsupported literal %T", raw)}
	}
}

// coerce converts a parsed literal to the column's storage type; vectors
// null out values whose type tag does not match, so coercion has to
// happen at bind time.
func coerce(v types.Value, t *types.TypeInfo) (types.Value, error) {
	if v.Null {
		return types.NewNull(t.Kind), nil
	}
	switch t.Kind {
	case types.Boolean:
		return types.NewBoolean(v.AsInt64() != 0), nil
	case types.TinyInt:
		return types.NewTinyInt(int8(v.AsInt64())), nil
	case types.SmallInt:
		return types.NewSmallInt(int16(v.AsInt64())), nil
	case types.Integer:
		return types.NewInteger(int32(v.AsInt64())), nil
	case types.BigInt:
		return types.NewBigInt(v.AsInt64()), nil
	case types.Date:
		return types.NewDate(int32(v.AsInt64())), nil
	case types.Time:
		return types.NewTime(v.AsInt64()), nil
	case types.Timestamp:
		return types.NewTimestamp(v.AsInt64()), nil
	case types.Float, types.Double:
		if v.Type == types.Double || v.Type == types.Float {
			return types.NewDouble(v.AsFloat64()), nil
		}
		return types.NewDouble(float64(v.AsInt64())), nil
	case types.Varchar, types.Char, types.Text, types.Json, types.Blob:
		if v.Type == types.Varchar || v.Type == types.Text {
			return types.NewStringValue(t.Kind, v.AsString()), nil
		}
		return types.NewStringValue(t.Kind, v.String()), nil
	default:
		return types.Value{}, fmt.Errorf("cannot coerce %s literal to %s", v.Type, t)
	}
}

func bindExpr(e ast.ExprNode, resolve resolver) (*plan.Expr, error) {
	switch n := e.(type) {
	case *ast.ColumnNameExpr:
		return resolve(n.Name.Table.O, n.Name.Name.O)

	case ast.ValueExpr:
		v, err := goValue(n.GetValue())
		if err != nil {
			return nil, err
		}
		return plan.Constant(v), nil

	case *ast.ParenthesesExpr:
		return bindExpr(n.Expr, resolve)

	case *ast.BinaryOperationExpr:
		left, err := bindExpr(n.L, resolve)
		if err != nil {
			return nil, err
		}
		right, err := bindExpr(n.R, resolve)
		if err != nil {
			return nil, err
		}
		if cmp, ok := compareOpFor(n.Op); ok {
			return plan.Comparison(cmp, left, right), nil
		}
		if bin, ok := binaryOpFor(n.Op); ok {
			return plan.Binary(bin, left, right), nil
		}
		return nil, &engine.ParseError{Message: fmt.Sprintf("unsupported operator %s", n.Op)}

	case *ast.UnaryOperationExpr:
		operand, err := bindExpr(n.V, resolve)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case opcode.Minus:
			return plan.Unary(plan.OpNeg, operand), nil
		case opcode.Not, opcode.Not2:
			return plan.Unary(plan.OpNot, operand), nil
		default:
			return nil, &engine.ParseError{Message: fmt.Sprintf("unsupported unary operator %s", n.Op)}
		}

	case *ast.IsNullExpr:
		operand, err := bindExpr(n.Expr, resolve)
		if err != nil {
			return nil, err
		}
		if n.Not {
			return plan.Unary(plan.OpIsNotNull, operand), nil
		}
		return plan.Unary(plan.OpIsNull, operand), nil

	case *ast.PatternInExpr:
		target, err := bindExpr(n.Expr, resolve)
		if err != nil {
			return nil, err
		}
		list := make([]*plan.Expr, 0, len(n.List))
		for _, item := range n.List {
			bound, err := bindExpr(item, resolve)
			if err != nil {
				return nil, err
			}
			list = append(list, bound)
		}
		return &plan.Expr{
			Kind: plan.ExprInList, InTarget: target, InList: list, InNegate: n.Not,
			OutputType: types.Scalar(types.Boolean),
		}, nil

	case *ast.AggregateFuncExpr:
		return nil, &engine.ParseError{Message: "aggregate call is only valid in a SELECT list"}

	case *ast.FuncCallExpr:
		args := make([]*plan.Expr, 0, len(n.Args))
		for _, a := range n.Args {
			bound, err := bindExpr(a, resolve)
			if err != nil {
				return nil, err
			}
			args = append(args, bound)
		}
		outType := types.Scalar(types.Varchar)
		if len(args) > 0 && args[0].OutputType != nil {
			outType = args[0].OutputType
		}
		return plan.FuncCall(plan.FuncScalar, strings.ToUpper(n.FnName.O), args, outType, false), nil

	default:
		return nil, &engine.ParseError{Message: fmt.Sprintf("unsupported expression %T", e)}
	}
}

func compareOpFor(op opcode.Op) (plan.CompareOp, bool) {
	switch op {
	case opcode.EQ:
		return plan.CmpEq, true
	case opcode.NE:
		return plan.CmpNeq, true
	case opcode.LT:
		return plan.CmpLt, true
	case opcode.LE:
		return plan.CmpLte, true
	case opcode.GT:
		return plan.CmpGt, true
	case opcode.GE:
		return plan.CmpGte, true
	default:
		return 0, false
	}
}

func binaryOpFor(op opcode.Op) (plan.BinaryOp, bool) {
	switch op {
	case opcode.LogicAnd:
		return plan.OpAnd, true
	case opcode.LogicOr:
		return plan.OpOr, true
	case opcode.Plus:
		return plan.OpAdd, true
	case opcode.Minus:
		return plan.OpSub, true
	case opcode.Mul:
		return plan.OpMul, true
	case opcode.Div, opcode.IntDiv:
		return plan.OpDiv, true
	case opcode.Mod:
		return plan.OpMod, true
	default:
		return 0, false
	}
}
