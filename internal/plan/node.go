package plan

import "colonnade/internal/types"

// NodeKind discriminates the variant held in a Node.
type NodeKind int

const (
	NodeScan NodeKind = iota
	NodeFilter
	NodeProject
	NodeJoin
	NodeAggregate
	NodeSort
	NodeLimit
	NodeUnion
	NodeCrossProduct
	NodeValues
	NodeInsert
	NodeCreateTable
	NodeDropTable
	NodeExplain
	NodeCTEBinding
	NodeCTERef
)

// JoinKind enumerates supported join semantics.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinSemi
	JoinAnti
)

// OutputColumn is one entry in a node's output schema: a name paired with
// its logical type, in output order.
type OutputColumn struct {
	Name string
	Type *types.TypeInfo
}

// SortKey is one entry of a Sort node's key list.
type SortKey struct {
	Expr       *Expr
	Ascending  bool
	NullsFirst bool
}

// AggregateExpr is one aggregate projected by an Aggregate node.
type AggregateExpr struct {
	Call  *Expr // ExprFuncCall with FuncClass == FuncAggregate
	Alias string
}

// JoinUsing names columns present on both sides to equi-join when a USING
// clause (rather than an explicit ON predicate) was supplied.
type JoinUsing struct {
	Columns []string
}

// Node is one node of the logical plan tree. As with Expr, only the fields
// relevant to Kind are populated.
type Node struct {
	Kind   NodeKind
	Output []OutputColumn

	Left  *Node
	Right *Node

	// NodeScan
	Schema          string
	Table           string
	ProjectedCols   []int
	PushedFilters   []*Expr
	PushedLimit     int // -1 = none
	PushedOffset    int
	EstimatedRows   int64 // populated at plan-construction time from catalog/storage stats, used by join ordering

	// NodeFilter
	Predicate *Expr

	// NodeProject
	Projections []*Expr

	// NodeJoin
	JoinKind  JoinKind
	JoinOn    *Expr
	JoinUsing *JoinUsing
	Residual  *Expr

	// NodeAggregate
	GroupKeys  []*Expr
	Aggregates []AggregateExpr

	// NodeSort
	SortKeys     []SortKey
	Stable       bool
	TopKEligible bool  // set by the optimizer when a Limit sits directly above this Sort
	TopKSize     int64 // k+offset from that Limit, used to size the bounded heap

	// NodeLimit
	LimitCount  int64
	LimitOffset int64

	// NodeUnion
	UnionAll bool

	// NodeValues
	Rows [][]*Expr

	// NodeInsert / NodeCreateTable / NodeDropTable
	TargetSchema string
	TargetTable  string
	NewColumns   []OutputColumn
	IfNotExists  bool
	IfExists     bool

	// NodeCTEBinding / NodeCTERef
	CTEName string

	// Annotations set by the optimizer (physical-operator choice) are kept
	// out of this struct; internal/optimizer maps logical nodes to
	// physical operator constructors directly rather than mutating Node.
}

// Scan builds a Scan node with no pushed filters/limit yet.
func Scan(schema, table string, output []OutputColumn, projected []int) *Node {
	return &Node{Kind: NodeScan, Schema: schema, Table: table, Output: output, ProjectedCols: projected, PushedLimit: -1}
}

// Filter builds a Filter node over child.
func Filter(child *Node, predicate *Expr) *Node {
	return &Node{Kind: NodeFilter, Left: child, Output: child.Output, Predicate: predicate}
}

// Project builds a Project node, computing its output schema from the
// projected expressions' resolved output types and provided aliases.
func Project(child *Node, exprs []*Expr, aliases []string) *Node {
	out := make([]OutputColumn, len(exprs))
	for i, e := range exprs {
		out[i] = OutputColumn{Name: aliases[i], Type: e.OutputType}
	}
	return &Node{Kind: NodeProject, Left: child, Output: out, Projections: exprs}
}

// Join builds a Join node; Output is the left output followed by the right
// output (Right may be nil for Semi/Anti, whose output is left-only).
func Join(kind JoinKind, left, right *Node, on *Expr, using *JoinUsing) *Node {
	var out []OutputColumn
	out = append(out, left.Output...)
	if kind != JoinSemi && kind != JoinAnti {
		out = append(out, right.Output...)
	}
	return &Node{Kind: NodeJoin, Left: left, Right: right, Output: out, JoinKind: kind, JoinOn: on, JoinUsing: using}
}

// Aggregate builds an Aggregate node; output is the group keys followed by
// the aggregate results, in that order.
func Aggregate(child *Node, groupKeys []*Expr, groupNames []string, aggs []AggregateExpr) *Node {
	out := make([]OutputColumn, 0, len(groupKeys)+len(aggs))
	for i, k := range groupKeys {
		out = append(out, OutputColumn{Name: groupNames[i], Type: k.OutputType})
	}
	for _, a := range aggs {
		out = append(out, OutputColumn{Name: a.Alias, Type: a.Call.OutputType})
	}
	return &Node{Kind: NodeAggregate, Left: child, Output: out, GroupKeys: groupKeys, Aggregates: aggs}
}

// Sort builds a Sort node over child.
func Sort(child *Node, keys []SortKey, stable bool) *Node {
	return &Node{Kind: NodeSort, Left: child, Output: child.Output, SortKeys: keys, Stable: stable}
}

// Limit builds a Limit node over child.
func Limit(child *Node, count, offset int64) *Node {
	return &Node{Kind: NodeLimit, Left: child, Output: child.Output, LimitCount: count, LimitOffset: offset}
}

// CrossProduct builds an unconditional cross join.
func CrossProduct(left, right *Node) *Node {
	out := append(append([]OutputColumn{}, left.Output...), right.Output...)
	return &Node{Kind: NodeCrossProduct, Left: left, Right: right, Output: out}
}

// Values builds a Values node (a literal row source) with the given
// output schema and row expressions.
func Values(output []OutputColumn, rows [][]*Expr) *Node {
	return &Node{Kind: NodeValues, Output: output, Rows: rows}
}

// Insert builds an Insert node writing child's rows into (schema, table).
func Insert(schema, table string, child *Node) *Node {
	return &Node{Kind: NodeInsert, Left: child, TargetSchema: schema, TargetTable: table}
}

// CreateTable builds a CreateTable DDL node.
func CreateTable(schema, table string, cols []OutputColumn, ifNotExists bool) *Node {
	return &Node{Kind: NodeCreateTable, TargetSchema: schema, TargetTable: table, NewColumns: cols, IfNotExists: ifNotExists}
}

// DropTable builds a DropTable DDL node.
func DropTable(schema, table string, ifExists bool) *Node {
	return &Node{Kind: NodeDropTable, TargetSchema: schema, TargetTable: table, IfExists: ifExists}
}

// Explain wraps child for plan/profile inspection instead of execution.
func Explain(child *Node) *Node {
	return &Node{Kind: NodeExplain, Left: child, Output: []OutputColumn{{Name: "plan", Type: types.Scalar(types.Varchar)}}}
}

// CTEBinding introduces a named common table expression: definition is
// the bound subtree the name stands for, body is the query that may
// reference it through CTERef leaves. The node's output is the body's
// output; the optimizer inlines the definition and removes the binding
// before physical lowering.
func CTEBinding(name string, definition, body *Node) *Node {
	return &Node{Kind: NodeCTEBinding, CTEName: name, Left: definition, Right: body, Output: body.Output}
}

// CTERef is a leaf referencing a CTE introduced by an enclosing
// CTEBinding. A CTERef with no enclosing binding for its name is a
// planning error, rejected at physical lowering.
func CTERef(name string, output []OutputColumn) *Node {
	return &Node{Kind: NodeCTERef, CTEName: name, Output: output}
}

// Children returns the non-nil child nodes, in Left-then-Right order.
func (n *Node) Children() []*Node {
	var out []*Node
	if n.Left != nil {
		out = append(out, n.Left)
	}
	if n.Right != nil {
		out = append(out, n.Right)
	}
	return out
}
