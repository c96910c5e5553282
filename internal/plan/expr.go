// Package plan implements the logical plan IR: a tree of nodes carrying an
// output schema, zero-to-two children, and kind-specific payload, plus a
// separate expression tree. Node and Expr use a closed tagged-union style
// (a Kind enum plus a flat struct of optional fields) rather than one Go
// type per kind, carrying optional fields for a fixed set of variants
// instead of an interface-per-variant hierarchy, picked deliberately so
// the optimizer's rule dispatch (internal/optimizer) is one switch over
// Kind rather than open dispatch over this tree.
package plan

import "colonnade/internal/types"

// ExprKind discriminates the variant held in an Expr.
type ExprKind int

const (
	ExprColumnRef ExprKind = iota
	ExprConstant
	ExprCast
	ExprComparison
	ExprBinaryOp
	ExprUnaryOp
	ExprFuncCall
	ExprCase
	ExprInList
	ExprLike
	ExprExists
	ExprSubquery
)

// CompareOp enumerates comparison operators.
type CompareOp int

const (
	CmpEq CompareOp = iota
	CmpNeq
	CmpLt
	CmpLte
	CmpGt
	CmpGte
)

// BinaryOp enumerates logical/arithmetic binary operators.
type BinaryOp int

const (
	OpAnd BinaryOp = iota
	OpOr
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
)

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
	OpIsNull
	OpIsNotNull
)

// FuncClass distinguishes scalar, aggregate, and window function calls.
type FuncClass int

const (
	FuncScalar FuncClass = iota
	FuncAggregate
	FuncWindow
)

// Binding identifies a column by its position within a child's output
// schema, resolved by index rather than by re-parsing names at execution
// time.
type Binding struct {
	ChildIdx int
	ColIdx   int
	Name     string
}

// CaseBranch is one WHEN/THEN arm of a Case expression.
type CaseBranch struct {
	When *Expr
	Then *Expr
}

// Expr is a node in the expression tree. Exactly the fields relevant to
// Kind are populated; the rest are zero. WillFail is set by the optimizer's
// constant-folding pass for expressions statically known to fail at
// runtime (division/modulo by a literal zero) so that predicate pushdown
// does not silently discard that failure.
type Expr struct {
	Kind ExprKind

	// ExprColumnRef
	Ref Binding

	// ExprConstant
	Value types.Value

	// ExprCast
	TargetType *types.TypeInfo
	CastInput  *Expr

	// ExprComparison
	CompareOp CompareOp

	// ExprBinaryOp
	BinOp BinaryOp

	// ExprUnaryOp
	UnOp UnaryOp

	// ExprComparison / ExprBinaryOp / ExprUnaryOp
	Left  *Expr
	Right *Expr // unused for ExprUnaryOp

	// ExprFuncCall
	FuncName  string
	FuncClass FuncClass
	Args      []*Expr
	Distinct  bool // aggregate DISTINCT qualifier

	// ExprCase
	Branches []CaseBranch
	Else     *Expr

	// ExprInList
	InTarget *Expr
	InList   []*Expr
	InNegate bool

	// ExprLike
	LikeTarget  *Expr
	LikePattern *Expr
	LikeNegate  bool

	// ExprExists
	ExistsSubquery *Node
	ExistsNegate   bool

	// ExprSubquery
	Subquery *Node

	// OutputType is the expression's statically resolved type, set during
	// planning/binding rather than re-derived at optimize time.
	OutputType *types.TypeInfo

	// WillFail marks an expression the optimizer proved always errors
	// (e.g. literal divide-by-zero); folding still rewrites its shape but
	// preserves this marker so pushdown rules do not drop the failure.
	WillFail bool
}

// ColumnRef builds a column-reference expression.
func ColumnRef(childIdx, colIdx int, name string, t *types.TypeInfo) *Expr {
	return &Expr{Kind: ExprColumnRef, Ref: Binding{ChildIdx: childIdx, ColIdx: colIdx, Name: name}, OutputType: t}
}

// Constant builds a literal-value expression.
func Constant(v types.Value) *Expr {
	return &Expr{Kind: ExprConstant, Value: v, OutputType: types.Scalar(v.Type)}
}

// Comparison builds a comparison expression.
func Comparison(op CompareOp, left, right *Expr) *Expr {
	return &Expr{Kind: ExprComparison, CompareOp: op, Left: left, Right: right, OutputType: types.Scalar(types.Boolean)}
}

// Binary builds a logical/arithmetic binary-operator expression.
func Binary(op BinaryOp, left, right *Expr) *Expr {
	t := left.OutputType
	if op == OpAnd || op == OpOr {
		t = types.Scalar(types.Boolean)
	}
	return &Expr{Kind: ExprBinaryOp, BinOp: op, Left: left, Right: right, OutputType: t}
}

// Unary builds a unary-operator expression.
func Unary(op UnaryOp, operand *Expr) *Expr {
	t := operand.OutputType
	if op == OpIsNull || op == OpIsNotNull {
		t = types.Scalar(types.Boolean)
	}
	return &Expr{Kind: ExprUnaryOp, UnOp: op, Left: operand, OutputType: t}
}

// FuncCall builds a scalar/aggregate/window function-call expression.
func FuncCall(class FuncClass, name string, args []*Expr, outputType *types.TypeInfo, distinct bool) *Expr {
	return &Expr{Kind: ExprFuncCall, FuncClass: class, FuncName: name, Args: args, OutputType: outputType, Distinct: distinct}
}

// IsConstant reports whether e is a leaf constant (used by the optimizer's
// constant-folding pass to recognize already-folded subexpressions).
func (e *Expr) IsConstant() bool {
	return e != nil && e.Kind == ExprConstant
}

// ColumnRefs walks e and appends every column binding referenced, used by
// projection/predicate pushdown to compute required columns.
func (e *Expr) ColumnRefs(out []Binding) []Binding {
	if e == nil {
		return out
	}
	if e.Kind == ExprColumnRef {
		return append(out, e.Ref)
	}
	out = e.Left.ColumnRefs(out)
	out = e.Right.ColumnRefs(out)
	out = e.CastInput.ColumnRefs(out)
	for _, a := range e.Args {
		out = a.ColumnRefs(out)
	}
	for _, b := range e.Branches {
		out = b.When.ColumnRefs(out)
		out = b.Then.ColumnRefs(out)
	}
	out = e.Else.ColumnRefs(out)
	out = e.InTarget.ColumnRefs(out)
	for _, v := range e.InList {
		out = v.ColumnRefs(out)
	}
	out = e.LikeTarget.ColumnRefs(out)
	out = e.LikePattern.ColumnRefs(out)
	return out
}
