package exec

import (
	"math"
	"sort"
	"strings"

	"colonnade/internal/types"
)

// aggState accumulates one aggregate function's running state for one
// group. update receives every row's argument, Null included, and each
// concrete state decides whether to skip Nulls (ARRAY_AGG keeps them;
// COUNT(*) counts every row via aggSpec.star); finalize projects the
// accumulated state to the single output Value for that group.
type aggState interface {
	update(v types.Value)
	merge(other aggState)
	finalize() types.Value
}

// aggSpec describes one Aggregate node aggregate: its function name,
// whether it is COUNT(*), and the statically resolved output type from
// planning. The argument and separator expressions live in aggPlan.
type aggSpec struct {
	name       string
	star       bool
	outputType *types.TypeInfo
}

func newAggState(spec aggSpec) aggState {
	switch strings.ToUpper(spec.name) {
	case "COUNT":
		return &countState{star: spec.star}
	case "SUM":
		return &sumState{outputType: spec.outputType}
	case "AVG":
		return &avgState{}
	case "MIN":
		return &minMaxState{isMax: false}
	case "MAX":
		return &minMaxState{isMax: true}
	case "STDDEV":
		return &varianceState{sqrt: true}
	case "VARIANCE":
		return &varianceState{}
	case "MEDIAN":
		return &medianState{}
	case "MODE":
		return &modeState{counts: map[any]int{}}
	case "APPROX_COUNT_DISTINCT":
		return &approxDistinctState{seen: map[any]struct{}{}}
	case "FIRST":
		return &firstLastState{}
	case "LAST":
		return &firstLastState{keepLast: true}
	case "STRING_AGG":
		return &stringAggState{separator: ","}
	case "ARRAY_AGG":
		return &arrayAggState{}
	case "BOOL_AND":
		return &boolAggState{want: false, result: true}
	case "BOOL_OR":
		return &boolAggState{want: true, result: false}
	default:
		return &unsupportedState{name: spec.name}
	}
}

// unsupportedState stands in for an aggregate name with no state type
// here: it ignores its input and finalizes to a NULL Varchar, so such a
// plan yields NULL in that column; no error is raised and nothing panics.
type unsupportedState struct{ name string }

func (s *unsupportedState) update(types.Value)    {}
func (s *unsupportedState) merge(aggState)         {}
func (s *unsupportedState) finalize() types.Value {
	return types.NewNull(types.Varchar)
}

type countState struct {
	star bool
	n    int64
}

func (s *countState) update(v types.Value) {
	if s.star || !v.IsNull() {
		s.n++
	}
}
func (s *countState) merge(other aggState) { s.n += other.(*countState).n }
func (s *countState) finalize() types.Value { return types.NewBigInt(s.n) }

type sumState struct {
	outputType *types.TypeInfo
	sum        float64
	any        bool
}

func (s *sumState) update(v types.Value) {
	if v.IsNull() {
		return
	}
	s.any = true
	s.sum += numericOf(v)
}
func (s *sumState) merge(other aggState) {
	o := other.(*sumState)
	s.sum += o.sum
	s.any = s.any || o.any
}
func (s *sumState) finalize() types.Value {
	if !s.any {
		if s.outputType != nil {
			return types.NewNull(s.outputType.Kind)
		}
		return types.NewNull(types.Double)
	}
	if s.outputType != nil && isIntegerKind(s.outputType.Kind) {
		return types.NewBigInt(int64(s.sum))
	}
	return types.NewDouble(s.sum)
}

type avgState struct {
	sum   float64
	count int64
}

func (s *avgState) update(v types.Value) {
	if v.IsNull() {
		return
	}
	s.sum += numericOf(v)
	s.count++
}
func (s *avgState) merge(other aggState) {
	o := other.(*avgState)
	s.sum += o.sum
	s.count += o.count
}
func (s *avgState) finalize() types.Value {
	if s.count == 0 {
		return types.NewNull(types.Double)
	}
	return types.NewDouble(s.sum / float64(s.count))
}

type minMaxState struct {
	isMax bool
	val   types.Value
	any   bool
}

func (s *minMaxState) update(v types.Value) {
	if v.IsNull() {
		return
	}
	if !s.any {
		s.val, s.any = v, true
		return
	}
	cmp := compareRuntime(v, s.val)
	if (s.isMax && cmp > 0) || (!s.isMax && cmp < 0) {
		s.val = v
	}
}
func (s *minMaxState) merge(other aggState) {
	o := other.(*minMaxState)
	if !o.any {
		return
	}
	s.update(o.val)
}
func (s *minMaxState) finalize() types.Value {
	if !s.any {
		return types.NewNull(types.Double)
	}
	return s.val
}

// varianceState implements Welford's online algorithm, merged pairwise via
// Chan et al.'s parallel-variance formula so the two-phase local/merge
// split produces the same result as a single-threaded pass.
type varianceState struct {
	sqrt  bool
	n     int64
	mean  float64
	m2    float64
}

func (s *varianceState) update(v types.Value) {
	if v.IsNull() {
		return
	}
	x := numericOf(v)
	s.n++
	d := x - s.mean
	s.mean += d / float64(s.n)
	d2 := x - s.mean
	s.m2 += d * d2
}
func (s *varianceState) merge(other aggState) {
	o := other.(*varianceState)
	if o.n == 0 {
		return
	}
	if s.n == 0 {
		s.n, s.mean, s.m2 = o.n, o.mean, o.m2
		return
	}
	n := s.n + o.n
	delta := o.mean - s.mean
	mean := s.mean + delta*float64(o.n)/float64(n)
	m2 := s.m2 + o.m2 + delta*delta*float64(s.n)*float64(o.n)/float64(n)
	s.n, s.mean, s.m2 = n, mean, m2
}
func (s *varianceState) finalize() types.Value {
	if s.n < 2 {
		return types.NewNull(types.Double)
	}
	variance := s.m2 / float64(s.n-1)
	if s.sqrt {
		return types.NewDouble(math.Sqrt(variance))
	}
	return types.NewDouble(variance)
}

type medianState struct {
	values []float64
}

func (s *medianState) update(v types.Value) {
	if v.IsNull() {
		return
	}
	s.values = append(s.values, numericOf(v))
}
func (s *medianState) merge(other aggState) {
	s.values = append(s.values, other.(*medianState).values...)
}
func (s *medianState) finalize() types.Value {
	if len(s.values) == 0 {
		return types.NewNull(types.Double)
	}
	sorted := append([]float64(nil), s.values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return types.NewDouble(sorted[mid])
	}
	return types.NewDouble((sorted[mid-1] + sorted[mid]) / 2)
}

type modeState struct {
	counts map[any]int
	values map[any]types.Value
}

func (s *modeState) update(v types.Value) {
	if v.IsNull() {
		return
	}
	if s.values == nil {
		s.values = map[any]types.Value{}
	}
	k := v.HashKey()
	s.counts[k]++
	if _, ok := s.values[k]; !ok {
		s.values[k] = v
	}
}
func (s *modeState) merge(other aggState) {
	o := other.(*modeState)
	if s.values == nil {
		s.values = map[any]types.Value{}
	}
	for k, c := range o.counts {
		s.counts[k] += c
		if _, ok := s.values[k]; !ok {
			s.values[k] = o.values[k]
		}
	}
}
func (s *modeState) finalize() types.Value {
	var bestKey any
	best := -1
	for k, c := range s.counts {
		if c > best {
			best, bestKey = c, k
		}
	}
	if best < 0 {
		return types.NewNull(types.Double)
	}
	return s.values[bestKey]
}

// approxDistinctState is an exact distinct-value set rather than a
// probabilistic sketch (HyperLogLog); named APPROX_COUNT_DISTINCT for
// SQL-surface compatibility. A sketch can replace this struct without
// touching the operator.
type approxDistinctState struct {
	seen map[any]struct{}
}

func (s *approxDistinctState) update(v types.Value) {
	if v.IsNull() {
		return
	}
	s.seen[v.HashKey()] = struct{}{}
}
func (s *approxDistinctState) merge(other aggState) {
	for k := range other.(*approxDistinctState).seen {
		s.seen[k] = struct{}{}
	}
}
func (s *approxDistinctState) finalize() types.Value {
	return types.NewBigInt(int64(len(s.seen)))
}

// firstLastState keeps the first (or, with keepLast, most recently seen)
// non-null value within this state's local partition. Because the local
// phase processes chunks in whatever order its worker was handed them,
// FIRST/LAST are only well-defined here when combined with an explicit
// Sort upstream of the aggregate.
type firstLastState struct {
	keepLast bool
	val      types.Value
	any      bool
}

func (s *firstLastState) update(v types.Value) {
	if v.IsNull() {
		return
	}
	if !s.any || s.keepLast {
		s.val, s.any = v, true
	}
}
func (s *firstLastState) merge(other aggState) {
	o := other.(*firstLastState)
	if !o.any {
		return
	}
	if !s.any || s.keepLast {
		s.val = o.val
	}
	s.any = true
}
func (s *firstLastState) finalize() types.Value {
	if !s.any {
		return types.NewNull(types.Varchar)
	}
	return s.val
}

type stringAggState struct {
	separator string
	parts     []string
}

func (s *stringAggState) update(v types.Value) {
	if v.IsNull() {
		return
	}
	s.parts = append(s.parts, v.AsString())
}
func (s *stringAggState) merge(other aggState) {
	s.parts = append(s.parts, other.(*stringAggState).parts...)
}
func (s *stringAggState) finalize() types.Value {
	return types.NewVarchar(strings.Join(s.parts, s.separator))
}

type arrayAggState struct {
	vals []types.Value
}

func (s *arrayAggState) update(v types.Value) {
	s.vals = append(s.vals, v) // ARRAY_AGG keeps NULL elements, unlike the scalar aggregates
}
func (s *arrayAggState) merge(other aggState) {
	s.vals = append(s.vals, other.(*arrayAggState).vals...)
}
func (s *arrayAggState) finalize() types.Value { return types.NewList(s.vals) }

type boolAggState struct {
	want   bool // result latches to `want` once a value equal to it is seen: true for BOOL_OR, false for BOOL_AND
	result bool
	any    bool
}

func (s *boolAggState) update(v types.Value) {
	if v.IsNull() {
		return
	}
	s.any = true
	b := v.AsBool()
	if b == s.want {
		s.result = s.want
	}
}
func (s *boolAggState) merge(other aggState) {
	o := other.(*boolAggState)
	if !o.any {
		return
	}
	s.any = true
	if o.result == s.want {
		s.result = s.want
	}
}
func (s *boolAggState) finalize() types.Value {
	if !s.any {
		return types.NewNull(types.Boolean)
	}
	return types.NewBoolean(s.result)
}

func numericOf(v types.Value) float64 {
	if v.Type == types.Float || v.Type == types.Double {
		return v.AsFloat64()
	}
	return float64(v.AsInt64())
}

func isIntegerKind(k types.LogicalType) bool {
	switch k {
	case types.TinyInt, types.SmallInt, types.Integer, types.BigInt:
		return true
	default:
		return false
	}
}
