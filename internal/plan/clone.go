package plan

// Clone returns a deep copy of the expression tree. Shared nothing: the
// optimizer mutates expressions in place, so any consumer that keeps an
// expression across optimizer runs (CTE inlining, stored view
// definitions) must hand out copies.
func (e *Expr) Clone() *Expr {
	if e == nil {
		return nil
	}
	out := *e
	out.Left = e.Left.Clone()
	out.Right = e.Right.Clone()
	out.CastInput = e.CastInput.Clone()
	if e.Args != nil {
		out.Args = make([]*Expr, len(e.Args))
		for i, a := range e.Args {
			out.Args[i] = a.Clone()
		}
	}
	if e.Branches != nil {
		out.Branches = make([]CaseBranch, len(e.Branches))
		for i, b := range e.Branches {
			out.Branches[i] = CaseBranch{When: b.When.Clone(), Then: b.Then.Clone()}
		}
	}
	out.Else = e.Else.Clone()
	out.InTarget = e.InTarget.Clone()
	if e.InList != nil {
		out.InList = make([]*Expr, len(e.InList))
		for i, v := range e.InList {
			out.InList[i] = v.Clone()
		}
	}
	out.LikeTarget = e.LikeTarget.Clone()
	out.LikePattern = e.LikePattern.Clone()
	out.ExistsSubquery = e.ExistsSubquery.Clone()
	out.Subquery = e.Subquery.Clone()
	return &out
}

func cloneExprs(in []*Expr) []*Expr {
	if in == nil {
		return nil
	}
	out := make([]*Expr, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}

// Clone returns a deep copy of the plan tree, including every embedded
// expression.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	out.Left = n.Left.Clone()
	out.Right = n.Right.Clone()
	out.Output = append([]OutputColumn(nil), n.Output...)
	out.ProjectedCols = append([]int(nil), n.ProjectedCols...)
	out.PushedFilters = cloneExprs(n.PushedFilters)
	out.Predicate = n.Predicate.Clone()
	out.Projections = cloneExprs(n.Projections)
	out.JoinOn = n.JoinOn.Clone()
	out.Residual = n.Residual.Clone()
	if n.JoinUsing != nil {
		out.JoinUsing = &JoinUsing{Columns: append([]string(nil), n.JoinUsing.Columns...)}
	}
	out.GroupKeys = cloneExprs(n.GroupKeys)
	if n.Aggregates != nil {
		out.Aggregates = make([]AggregateExpr, len(n.Aggregates))
		for i, a := range n.Aggregates {
			out.Aggregates[i] = AggregateExpr{Call: a.Call.Clone(), Alias: a.Alias}
		}
	}
	if n.SortKeys != nil {
		out.SortKeys = make([]SortKey, len(n.SortKeys))
		for i, k := range n.SortKeys {
			out.SortKeys[i] = SortKey{Expr: k.Expr.Clone(), Ascending: k.Ascending, NullsFirst: k.NullsFirst}
		}
	}
	if n.Rows != nil {
		out.Rows = make([][]*Expr, len(n.Rows))
		for i, row := range n.Rows {
			out.Rows[i] = cloneExprs(row)
		}
	}
	out.NewColumns = append([]OutputColumn(nil), n.NewColumns...)
	return &out
}
