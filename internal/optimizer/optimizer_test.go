package optimizer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"colonnade/internal/plan"
	"colonnade/internal/types"
)

func idCol() plan.OutputColumn { return plan.OutputColumn{Name: "id", Type: types.Scalar(types.Integer)} }

func TestPredicatePushdownIntoScan(t *testing.T) {
	scan := plan.Scan("main", "t", []plan.OutputColumn{idCol()}, []int{0})
	pred := plan.Comparison(plan.CmpGt, plan.ColumnRef(0, 0, "id", types.Scalar(types.Integer)), plan.Constant(types.NewInteger(5)))
	root := plan.Filter(scan, pred)

	out := Optimize(root)

	require.Equal(t, plan.NodeScan, out.Kind)
	require.Len(t, out.PushedFilters, 1)
}

func TestConstantFoldingComparison(t *testing.T) {
	pred := plan.Comparison(plan.CmpEq, plan.Constant(types.NewInteger(1)), plan.Constant(types.NewInteger(1)))
	scan := plan.Scan("main", "t", []plan.OutputColumn{idCol()}, []int{0})
	root := plan.Filter(scan, pred)

	out := Optimize(root)
	require.NotNil(t, out)
}

func TestLimitPushdownIntoScan(t *testing.T) {
	scan := plan.Scan("main", "t", []plan.OutputColumn{idCol()}, []int{0})
	root := plan.Limit(scan, 10, 5)

	out := Optimize(root)
	require.Equal(t, plan.NodeLimit, out.Kind)
	require.Equal(t, 15, out.Left.PushedLimit)
}

func TestTrivialRewriteAndTrue(t *testing.T) {
	x := plan.ColumnRef(0, 0, "id", types.Scalar(types.Integer))
	pred := plan.Binary(plan.OpAnd, plan.Comparison(plan.CmpGt, x, plan.Constant(types.NewInteger(0))), plan.Constant(types.NewBoolean(true)))
	scan := plan.Scan("main", "t", []plan.OutputColumn{idCol()}, []int{0})
	root := plan.Filter(scan, pred)

	out := Optimize(root)
	require.Equal(t, plan.NodeScan, out.Kind)
}

// valueComparer lets cmp.Diff see through types.Value's unexported
// representation: null flags compare first, then raw value equality.
var valueComparer = cmp.Comparer(func(a, b types.Value) bool {
	if a.Null != b.Null {
		return false
	}
	return a.Null || a.Equal(b)
})

func TestOptimizeIsIdempotent(t *testing.T) {
	build := func() *plan.Node {
		scan := plan.Scan("main", "t", []plan.OutputColumn{idCol()}, []int{0})
		pred := plan.Binary(plan.OpAnd,
			plan.Comparison(plan.CmpGt, plan.ColumnRef(0, 0, "id", types.Scalar(types.Integer)), plan.Constant(types.NewInteger(1))),
			plan.Comparison(plan.CmpLt,
				plan.ColumnRef(0, 0, "id", types.Scalar(types.Integer)),
				plan.Binary(plan.OpAdd, plan.Constant(types.NewBigInt(5)), plan.Constant(types.NewBigInt(3)))))
		return plan.Limit(plan.Filter(scan, pred), 10, 0)
	}

	once := Optimize(build())
	twice := Optimize(Optimize(build()))
	if diff := cmp.Diff(once, twice, valueComparer); diff != "" {
		t.Errorf("optimize(optimize(L)) differs from optimize(L):\n%s", diff)
	}
}

func TestLowerChoosesHashJoinForEquiJoin(t *testing.T) {
	left := plan.Scan("main", "a", []plan.OutputColumn{idCol()}, []int{0})
	right := plan.Scan("main", "b", []plan.OutputColumn{idCol()}, []int{0})
	on := plan.Comparison(plan.CmpEq,
		plan.ColumnRef(0, 0, "id", types.Scalar(types.Integer)),
		plan.ColumnRef(1, 0, "id", types.Scalar(types.Integer)))
	join := plan.Join(plan.JoinInner, left, right, on, nil)

	phys, err := Lower(join)
	require.NoError(t, err)
	require.Equal(t, PhysHashJoin, phys.Kind)
	require.Len(t, phys.Children, 2)
}

func TestCTEBindingInlinesDefinitionPerReference(t *testing.T) {
	def := plan.Scan("main", "t", []plan.OutputColumn{idCol()}, []int{0})
	left := plan.CTERef("c", def.Output)
	right := plan.CTERef("c", def.Output)
	on := plan.Comparison(plan.CmpEq,
		plan.ColumnRef(0, 0, "id", types.Scalar(types.Integer)),
		plan.ColumnRef(1, 0, "id", types.Scalar(types.Integer)))
	root := plan.CTEBinding("c", def, plan.Join(plan.JoinInner, left, right, on, nil))

	out := Optimize(root)

	require.Equal(t, plan.NodeJoin, out.Kind)
	require.Equal(t, plan.NodeScan, out.Left.Kind)
	require.Equal(t, plan.NodeScan, out.Right.Kind)
	require.NotSame(t, out.Left, out.Right, "each reference gets its own copy of the definition")

	_, err := Lower(out)
	require.NoError(t, err)
}

func TestLowerRejectsUnresolvedCTERef(t *testing.T) {
	ref := plan.CTERef("nope", []plan.OutputColumn{idCol()})

	out := Optimize(ref)
	_, err := Lower(out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "nope")
}
