package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"colonnade/internal/types"
)

func TestProjectOutputSchema(t *testing.T) {
	scan := Scan("main", "t", []OutputColumn{
		{Name: "id", Type: types.Scalar(types.Integer)},
		{Name: "name", Type: types.Scalar(types.Varchar)},
	}, []int{0, 1})

	proj := Project(scan, []*Expr{
		ColumnRef(0, 1, "name", types.Scalar(types.Varchar)),
	}, []string{"name"})

	require.Len(t, proj.Output, 1)
	require.Equal(t, "name", proj.Output[0].Name)
}

func TestJoinOutputSchemaExcludesRightForSemiAnti(t *testing.T) {
	left := Scan("main", "a", []OutputColumn{{Name: "id", Type: types.Scalar(types.Integer)}}, []int{0})
	right := Scan("main", "b", []OutputColumn{{Name: "a_id", Type: types.Scalar(types.Integer)}}, []int{0})

	semi := Join(JoinSemi, left, right, nil, nil)
	require.Len(t, semi.Output, 1)

	inner := Join(JoinInner, left, right, nil, nil)
	require.Len(t, inner.Output, 2)
}

func TestColumnRefsCollectsNestedBindings(t *testing.T) {
	left := ColumnRef(0, 0, "a", types.Scalar(types.Integer))
	right := ColumnRef(0, 1, "b", types.Scalar(types.Integer))
	cmp := Comparison(CmpEq, left, right)

	refs := cmp.ColumnRefs(nil)
	require.Len(t, refs, 2)
}
