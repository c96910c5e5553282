package exec

import (
	"fmt"
	"strings"

	"colonnade/internal/catalog"
	"colonnade/internal/exec/pool"
	"colonnade/internal/optimizer"
	"colonnade/internal/plan"
	"colonnade/internal/storage"
	"colonnade/internal/types"
)

// Build walks a PhysicalPlan tree (the optimizer's output) and constructs
// the corresponding Operator tree, resolving every
// Scan/Insert/CreateTable/DropTable node against cat. A single-dispatch
// switch drives the construction, generalized from a fixed pipeline shape
// to an arbitrary plan tree.
func Build(p *optimizer.PhysicalPlan, cat *catalog.Catalog, workers *pool.Pool) (Operator, error) {
	children := make([]Operator, 0, len(p.Children))
	for _, c := range p.Children {
		op, err := Build(c, cat, workers)
		if err != nil {
			return nil, err
		}
		children = append(children, op)
	}
	n := p.Logical

	switch p.Kind {
	case optimizer.PhysSeqScan:
		h, err := cat.Resolve(n.Schema, n.Table)
		if err != nil {
			return nil, fmt.Errorf("exec: build: %w", err)
		}
		filters, err := buildFilters(n.PushedFilters)
		if err != nil {
			return nil, fmt.Errorf("exec: build: scan %s.%s: %w", n.Schema, n.Table, err)
		}
		return NewScanOperator(h.Table, n.ProjectedCols, filters, n.PushedLimit)

	case optimizer.PhysFilter:
		return NewFilterOperator(children[0], n.Predicate), nil

	case optimizer.PhysProject:
		return NewProjectOperator(children[0], n.Projections, outputColumnsToSchema(n.Output)), nil

	case optimizer.PhysHashJoin:
		buildOn, probeOn, err := splitEquiJoinKeys(n)
		if err != nil {
			return nil, err
		}
		// Join's output schema is left-then-right (plan.Join), so the left
		// child must be the probe side and the right child the build side
		// for HashJoinOperator.combine's column ordering to line up.
		return NewHashJoinOperator(children[1], children[0], buildOn, probeOn, n.JoinKind, workers), nil

	case optimizer.PhysNestedLoopJoin:
		predicate := n.JoinOn
		if predicate == nil {
			predicate = n.Residual // NodeCrossProduct carries neither; predicate stays nil
		}
		return NewNestedLoopJoinOperator(children[0], children[1], predicate, n.JoinKind, workers), nil

	case optimizer.PhysHashAggregate:
		return NewHashAggregateOperator(children[0], n.GroupKeys, n.Aggregates, outputColumnsToSchema(n.Output), workers), nil

	case optimizer.PhysStreamingAggregate:
		return NewStreamingAggregateOperator(children[0], n.GroupKeys, n.Aggregates, outputColumnsToSchema(n.Output)), nil

	case optimizer.PhysSort:
		return NewSortOperator(children[0], n.SortKeys, n.Stable, workers), nil

	case optimizer.PhysTopK:
		return NewTopKOperator(children[0], n.SortKeys, n.TopKSize, workers), nil

	case optimizer.PhysLimit:
		return NewLimitOperator(children[0], n.LimitCount, n.LimitOffset), nil

	case optimizer.PhysValues:
		return NewValuesOperator(outputColumnsToSchema(n.Output), n.Rows), nil

	case optimizer.PhysUnion:
		return NewUnionOperator(children[0], children[1], n.UnionAll), nil

	case optimizer.PhysInsert:
		return NewInsertOperator(children[0], cat, n.TargetSchema, n.TargetTable)

	case optimizer.PhysCreateTable:
		return NewCreateTableOperator(cat, n.TargetSchema, n.TargetTable, outputColumnsToColumnDefs(n.NewColumns), n.IfNotExists), nil

	case optimizer.PhysDropTable:
		return NewDropTableOperator(cat, n.TargetSchema, n.TargetTable, n.IfExists), nil

	case optimizer.PhysExplain:
		return NewExplainOperator(Explain(p)), nil

	default:
		return nil, fmt.Errorf("exec: build: unhandled physical kind %d", p.Kind)
	}
}

// outputColumnsToSchema adapts a logical node's output column list to the
// ColumnSchema slice operators carry. Nullability is not tracked on
// OutputColumn (only on storage.ColumnDef, fixed at table-creation time),
// so computed/intermediate columns are conservatively reported nullable.
func outputColumnsToSchema(cols []plan.OutputColumn) []types.ColumnSchema {
	out := make([]types.ColumnSchema, len(cols))
	for i, c := range cols {
		out[i] = types.ColumnSchema{Name: c.Name, Type: c.Type, Nullable: true}
	}
	return out
}

// outputColumnsToColumnDefs adapts a CreateTable node's column list to the
// storage layer's schema representation. New columns default to nullable
// absent an explicit NOT NULL constraint, matching SQL's default.
func outputColumnsToColumnDefs(cols []plan.OutputColumn) []storage.ColumnDef {
	out := make([]storage.ColumnDef, len(cols))
	for i, c := range cols {
		out[i] = storage.ColumnDef{Name: c.Name, Type: c.Type, Nullable: true}
	}
	return out
}

// buildFilters translates a Scan node's pushed-down predicate conjuncts
// into storage.Filter values. Only "column compared to constant" conjuncts
// can be pushed this far; predicate pushdown (internal/optimizer) is
// responsible for only placing such conjuncts in PushedFilters in the
// first place, so any other shape here indicates a planning bug.
func buildFilters(exprs []*plan.Expr) ([]storage.Filter, error) {
	out := make([]storage.Filter, 0, len(exprs))
	for _, e := range exprs {
		f, err := toStorageFilter(e)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func toStorageFilter(e *plan.Expr) (storage.Filter, error) {
	if e.Kind != plan.ExprComparison {
		return storage.Filter{}, fmt.Errorf("pushed filter is not a comparison: kind %d", e.Kind)
	}
	switch {
	case e.Left.Kind == plan.ExprColumnRef && e.Right.Kind == plan.ExprConstant:
		return storage.Filter{Column: e.Left.Ref.ColIdx, Op: storage.FilterOp(e.CompareOp), Value: e.Right.Value}, nil
	case e.Right.Kind == plan.ExprColumnRef && e.Left.Kind == plan.ExprConstant:
		return storage.Filter{Column: e.Right.Ref.ColIdx, Op: flipCompareOp(e.CompareOp), Value: e.Left.Value}, nil
	default:
		return storage.Filter{}, fmt.Errorf("pushed filter is not column-vs-constant")
	}
}

// flipCompareOp reorders a comparison when the constant was the left
// operand (e.g. "5 < x" becomes "x > 5").
func flipCompareOp(op plan.CompareOp) storage.FilterOp {
	switch op {
	case plan.CmpLt:
		return storage.Gt
	case plan.CmpLte:
		return storage.Gte
	case plan.CmpGt:
		return storage.Lt
	case plan.CmpGte:
		return storage.Lte
	default:
		return storage.FilterOp(op) // Eq/Neq are symmetric
	}
}

// splitEquiJoinKeys extracts the single equi-join key expression for each
// side from a Join node's ON predicate. Only the "left.col = right.col"
// shape lowers to a hash join (optimizer.choosePhysical only picks
// PhysHashJoin for such nodes); anything else is a planning bug.
func splitEquiJoinKeys(n *plan.Node) (buildOn, probeOn *plan.Expr, err error) {
	on := n.JoinOn
	if on == nil && n.JoinUsing != nil {
		return nil, nil, fmt.Errorf("exec: build: USING-clause join lowering is not yet supported by the builder")
	}
	if on == nil || on.Kind != plan.ExprComparison || on.CompareOp != plan.CmpEq {
		return nil, nil, fmt.Errorf("exec: build: hash join requires a single equality ON predicate")
	}
	if on.Left.Kind != plan.ExprColumnRef || on.Right.Kind != plan.ExprColumnRef {
		return nil, nil, fmt.Errorf("exec: build: hash join ON predicate must compare two columns")
	}
	// Binding.ChildIdx 0 is the join's left (probe) child, 1 is its right
	// (build) child, per how the planner binds join predicates against
	// plan.Join's left-then-right output ordering.
	if on.Left.Ref.ChildIdx == 0 {
		return rebindToChild0(on.Right), rebindToChild0(on.Left), nil
	}
	return rebindToChild0(on.Left), rebindToChild0(on.Right), nil
}

// rebindToChild0 reinterprets a column reference bound to either side of a
// join predicate as a reference against that side's own output alone
// (child index 0), which is what HashJoinOperator's build/probe evaluation
// contexts expect (each side is evaluated in isolation, per hashjoin.go).
func rebindToChild0(e *plan.Expr) *plan.Expr {
	if e.Kind != plan.ExprColumnRef {
		return e
	}
	return plan.ColumnRef(0, e.Ref.ColIdx, e.Ref.Name, e.OutputType)
}

// Explain renders a physical plan tree as indented text for the Explain
// terminal operator.
func Explain(p *optimizer.PhysicalPlan) string {
	var sb strings.Builder
	explainNode(&sb, p, 0)
	return sb.String()
}

func explainNode(sb *strings.Builder, p *optimizer.PhysicalPlan, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(physicalKindName(p.Kind))
	sb.WriteByte('\n')
	for _, c := range p.Children {
		explainNode(sb, c, depth+1)
	}
}

func physicalKindName(k optimizer.PhysicalKind) string {
	switch k {
	case optimizer.PhysSeqScan:
		return "SeqScan"
	case optimizer.PhysFilter:
		return "Filter"
	case optimizer.PhysProject:
		return "Project"
	case optimizer.PhysHashJoin:
		return "HashJoin"
	case optimizer.PhysNestedLoopJoin:
		return "NestedLoopJoin"
	case optimizer.PhysHashAggregate:
		return "HashAggregate"
	case optimizer.PhysStreamingAggregate:
		return "StreamingAggregate"
	case optimizer.PhysSort:
		return "Sort"
	case optimizer.PhysTopK:
		return "TopK"
	case optimizer.PhysLimit:
		return "Limit"
	case optimizer.PhysValues:
		return "Values"
	case optimizer.PhysUnion:
		return "Union"
	case optimizer.PhysInsert:
		return "Insert"
	case optimizer.PhysCreateTable:
		return "CreateTable"
	case optimizer.PhysDropTable:
		return "DropTable"
	case optimizer.PhysExplain:
		return "Explain"
	default:
		return "Unknown"
	}
}
