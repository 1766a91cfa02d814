package planner

import (
	"fmt"
	"math"
)

// InfiniteValue is the value reported for dead ends.
const InfiniteValue = math.MaxInt32

// EvaluationResult is the outcome of one evaluator on one state.
type EvaluationResult struct {
	Value   int
	DeadEnd bool
}

func (r EvaluationResult) String() string {
	if r.DeadEnd {
		return "infinity"
	}
	return fmt.Sprint(r.Value)
}

// EvaluationContext carries the state being evaluated and its g-value, and
// caches results so an open list can ask for dead-end status and insertion
// keys without computing a heuristic twice.
type EvaluationContext struct {
	state []int
	g     int
	// preferred is set when the state was reached by a preferred operator.
	preferred bool
	cache     map[Evaluator]EvaluationResult
	stats     *Statistics
}

// NewEvaluationContext creates a context for state with path cost g. stats
// may be nil; when set, every heuristic computation is counted.
func NewEvaluationContext(state []int, g int, stats *Statistics) *EvaluationContext {
	return &EvaluationContext{state: state, g: g, stats: stats}
}

func (c *EvaluationContext) State() []int      { return c.state }
func (c *EvaluationContext) G() int            { return c.g }
func (c *EvaluationContext) IsPreferred() bool { return c.preferred }

// SetPreferred marks the context as reached by a preferred operator.
func (c *EvaluationContext) SetPreferred(preferred bool) { c.preferred = preferred }

// Result returns the (cached) result of e on the context's state.
func (c *EvaluationContext) Result(e Evaluator) EvaluationResult {
	if r, ok := c.cache[e]; ok {
		return r
	}
	if c.cache == nil {
		c.cache = make(map[Evaluator]EvaluationResult, 2)
	}
	r := e.Compute(c)
	c.cache[e] = r
	if c.stats != nil {
		c.stats.Evaluations++
	}
	return r
}

// Value returns the value of e, InfiniteValue for dead ends.
func (c *EvaluationContext) Value(e Evaluator) int {
	r := c.Result(e)
	if r.DeadEnd {
		return InfiniteValue
	}
	return r.Value
}

// Evaluator scores states for an open list.
//
// Heuristics estimate the distance from the evaluated concrete state to a
// goal, which is a partial state: entries holding the unknown value are
// unconstrained. In front-to-front search the goal is moved to the best
// state of the opposite frontier with SetGoal before every evaluation
// batch.
type Evaluator interface {
	Compute(ctx *EvaluationContext) EvaluationResult
	SetGoal(goal []int)
	NotifyInitialState(state []int)
	NotifyStateTransition(parent []int, op int, child []int)
	IsPathDependent() bool
}

// compositeEvaluator is implemented by evaluators built from others.
type compositeEvaluator interface {
	Components() []Evaluator
}

// collectPathDependent appends every path-dependent evaluator reachable
// from e, skipping ones already present.
func collectPathDependent(e Evaluator, out []Evaluator) []Evaluator {
	if e.IsPathDependent() {
		found := false
		for _, o := range out {
			if o == e {
				found = true
				break
			}
		}
		if !found {
			out = append(out, e)
		}
	}
	if c, ok := e.(compositeEvaluator); ok {
		for _, sub := range c.Components() {
			out = collectPathDependent(sub, out)
		}
	}
	return out
}

// GEvaluator returns the path cost stored in the context.
type GEvaluator struct{}

func NewGEvaluator() *GEvaluator { return &GEvaluator{} }

func (*GEvaluator) Compute(ctx *EvaluationContext) EvaluationResult {
	return EvaluationResult{Value: ctx.G()}
}
func (*GEvaluator) SetGoal([]int)                          {}
func (*GEvaluator) NotifyInitialState([]int)               {}
func (*GEvaluator) NotifyStateTransition([]int, int, []int) {}
func (*GEvaluator) IsPathDependent() bool                  { return false }

// SumEvaluator adds up its parts. It is a dead end if any part is.
type SumEvaluator struct {
	parts []Evaluator
}

func NewSumEvaluator(parts ...Evaluator) *SumEvaluator {
	return &SumEvaluator{parts: parts}
}

func (s *SumEvaluator) Compute(ctx *EvaluationContext) EvaluationResult {
	total := 0
	for _, p := range s.parts {
		r := ctx.Result(p)
		if r.DeadEnd {
			return EvaluationResult{Value: InfiniteValue, DeadEnd: true}
		}
		total += r.Value
	}
	return EvaluationResult{Value: total}
}

func (s *SumEvaluator) SetGoal(goal []int) {
	for _, p := range s.parts {
		p.SetGoal(goal)
	}
}

func (s *SumEvaluator) NotifyInitialState(state []int) {
	for _, p := range s.parts {
		p.NotifyInitialState(state)
	}
}

func (s *SumEvaluator) NotifyStateTransition(parent []int, op int, child []int) {
	for _, p := range s.parts {
		p.NotifyStateTransition(parent, op, child)
	}
}

func (s *SumEvaluator) IsPathDependent() bool   { return false }
func (s *SumEvaluator) Components() []Evaluator { return s.parts }

// WeightedEvaluator multiplies another evaluator's value by a constant.
type WeightedEvaluator struct {
	inner  Evaluator
	weight int
}

func NewWeightedEvaluator(inner Evaluator, weight int) *WeightedEvaluator {
	return &WeightedEvaluator{inner: inner, weight: weight}
}

func (w *WeightedEvaluator) Compute(ctx *EvaluationContext) EvaluationResult {
	r := ctx.Result(w.inner)
	if r.DeadEnd {
		return r
	}
	return EvaluationResult{Value: r.Value * w.weight}
}

func (w *WeightedEvaluator) SetGoal(goal []int)             { w.inner.SetGoal(goal) }
func (w *WeightedEvaluator) NotifyInitialState(state []int) { w.inner.NotifyInitialState(state) }
func (w *WeightedEvaluator) NotifyStateTransition(parent []int, op int, child []int) {
	w.inner.NotifyStateTransition(parent, op, child)
}
func (w *WeightedEvaluator) IsPathDependent() bool   { return false }
func (w *WeightedEvaluator) Components() []Evaluator { return []Evaluator{w.inner} }
