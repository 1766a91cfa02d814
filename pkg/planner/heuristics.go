package planner

import (
	"container/heap"
)

// CostType selects how operator costs are seen by g-values and heuristics.
// Cost bounds always use the real cost.
type CostType int

const (
	NormalCost  CostType = iota // the operator's own cost
	OneCost                     // every operator costs 1
	PlusOneCost                 // cost + 1, so zero-cost operators still count
)

func (c CostType) String() string {
	switch c {
	case NormalCost:
		return "normal"
	case OneCost:
		return "one"
	case PlusOneCost:
		return "plusone"
	default:
		return "unknown"
	}
}

// Adjust returns cost as seen under c.
func (c CostType) Adjust(cost int) int {
	switch c {
	case OneCost:
		return 1
	case PlusOneCost:
		return cost + 1
	default:
		return cost
	}
}

// goalFacts lists the known entries of a partial goal. Values equal to the
// forward domain size are unknown and skipped.
func goalFacts(task Task, goal []int) []Fact {
	var facts []Fact
	for v, val := range goal {
		if val >= 0 && val < task.DomainSize(v) {
			facts = append(facts, Fact{Var: v, Value: val})
		}
	}
	return facts
}

// defaultGoal converts the task goal into a partial state.
func defaultGoal(task Task) []int {
	return NewPartialStateTask(task).GoalStateValues()
}

// GoalCountHeuristic counts the known goal entries the state violates.
type GoalCountHeuristic struct {
	task  Task
	goals []Fact
}

func NewGoalCountHeuristic(task Task) *GoalCountHeuristic {
	h := &GoalCountHeuristic{task: task}
	h.SetGoal(defaultGoal(task))
	return h
}

func (h *GoalCountHeuristic) Compute(ctx *EvaluationContext) EvaluationResult {
	state := ctx.State()
	n := 0
	for _, g := range h.goals {
		if state[g.Var] != g.Value {
			n++
		}
	}
	return EvaluationResult{Value: n}
}

func (h *GoalCountHeuristic) SetGoal(goal []int)                    { h.goals = goalFacts(h.task, goal) }
func (h *GoalCountHeuristic) NotifyInitialState([]int)               {}
func (h *GoalCountHeuristic) NotifyStateTransition([]int, int, []int) {}
func (h *GoalCountHeuristic) IsPathDependent() bool                  { return false }

// PreferredOperatorEvaluator is implemented by heuristics that can name
// the operators of their relaxed plan. The search favors states reached by
// these operators when preferred operators are enabled.
type PreferredOperatorEvaluator interface {
	Evaluator
	// PreferredOperators appends the preferred operators for the context's
	// state and the current goal. Nothing is appended for dead ends.
	PreferredOperators(ctx *EvaluationContext, out []int) []int
}

// unaryOperator is one effect of a forward operator, with all of the
// operator's preconditions.
type unaryOperator struct {
	op     int
	pre    []int
	effect int
	cost   int

	unsatisfied int
	// accumulated precondition cost, max or sum depending on the heuristic
	acc int
}

// relaxedExploration computes h^max or h^add with a generalized Dijkstra
// over the delete relaxation. Costs are per fact index.
type relaxedExploration struct {
	task     Task
	offsets  []int
	numFacts int
	ops      []unaryOperator
	// preOf[f] lists the unary operators with f among their preconditions.
	preOf [][]int
	// noPre lists unary operators without preconditions.
	noPre []int
	goals []int

	additive bool

	cost      []int
	supporter []int
	queue     factQueue

	// relaxed plan extraction, allocated on first use
	marked  []bool
	inPlan  []bool
	pending []int
}

func newRelaxedExploration(task Task, costType CostType, additive bool) *relaxedExploration {
	n := task.NumVariables()
	e := &relaxedExploration{task: task, offsets: make([]int, n+1), additive: additive}
	for v := 0; v < n; v++ {
		e.offsets[v+1] = e.offsets[v] + task.DomainSize(v)
	}
	e.numFacts = e.offsets[n]
	e.preOf = make([][]int, e.numFacts)
	e.cost = make([]int, e.numFacts)
	e.supporter = make([]int, e.numFacts)

	for i := 0; i < task.NumOperators(); i++ {
		op := task.Operator(i)
		pre := make([]int, 0, len(op.Preconditions))
		for _, f := range dedupFacts(append([]Fact(nil), op.Preconditions...)) {
			pre = append(pre, e.index(f))
		}
		for _, eff := range op.Effects {
			u := unaryOperator{op: i, pre: pre, effect: e.index(eff.Fact), cost: costType.Adjust(op.Cost)}
			id := len(e.ops)
			e.ops = append(e.ops, u)
			if len(pre) == 0 {
				e.noPre = append(e.noPre, id)
			}
			for _, p := range pre {
				e.preOf[p] = append(e.preOf[p], id)
			}
		}
	}
	e.setGoal(defaultGoal(task))
	return e
}

func (e *relaxedExploration) index(f Fact) int { return e.offsets[f.Var] + f.Value }

func (e *relaxedExploration) setGoal(goal []int) {
	e.goals = e.goals[:0]
	for _, f := range goalFacts(e.task, goal) {
		e.goals = append(e.goals, e.index(f))
	}
}

func (e *relaxedExploration) enqueue(f, cost, supporter int) {
	if cost < e.cost[f] {
		e.cost[f] = cost
		e.supporter[f] = supporter
		heap.Push(&e.queue, factEntry{fact: f, cost: cost})
	}
}

// explore fills cost with the relaxed cost of every fact reachable from
// state and returns false when a goal fact is unreachable.
func (e *relaxedExploration) explore(state []int) bool {
	for f := range e.cost {
		e.cost[f] = InfiniteValue
		e.supporter[f] = -1
	}
	for i := range e.ops {
		e.ops[i].unsatisfied = len(e.ops[i].pre)
		e.ops[i].acc = 0
	}
	e.queue = e.queue[:0]

	for v, val := range state {
		if val >= 0 && val < e.task.DomainSize(v) {
			e.enqueue(e.offsets[v]+val, 0, -1)
		}
	}
	for _, id := range e.noPre {
		e.enqueue(e.ops[id].effect, e.ops[id].cost, id)
	}

	for e.queue.Len() > 0 {
		top := heap.Pop(&e.queue).(factEntry)
		if top.cost > e.cost[top.fact] {
			continue
		}
		for _, id := range e.preOf[top.fact] {
			u := &e.ops[id]
			if e.additive {
				u.acc += top.cost
			} else if top.cost > u.acc {
				u.acc = top.cost
			}
			u.unsatisfied--
			if u.unsatisfied == 0 {
				e.enqueue(u.effect, u.acc+u.cost, id)
			}
		}
	}

	for _, g := range e.goals {
		if e.cost[g] == InfiniteValue {
			return false
		}
	}
	return true
}

func (e *relaxedExploration) goalValue() int {
	total := 0
	for _, g := range e.goals {
		if e.additive {
			total += e.cost[g]
		} else if e.cost[g] > total {
			total = e.cost[g]
		}
	}
	return total
}

// relaxedPlan marks the best-supporter plan of the last exploration in
// inPlan and returns its cost.
func (e *relaxedExploration) relaxedPlan() int {
	if e.inPlan == nil {
		e.marked = make([]bool, e.numFacts)
		e.inPlan = make([]bool, e.task.NumOperators())
	}
	clear(e.marked)
	clear(e.inPlan)

	total := 0
	e.pending = append(e.pending[:0], e.goals...)
	for len(e.pending) > 0 {
		f := e.pending[len(e.pending)-1]
		e.pending = e.pending[:len(e.pending)-1]
		if e.marked[f] {
			continue
		}
		e.marked[f] = true
		sup := e.supporter[f]
		if sup < 0 {
			continue
		}
		u := &e.ops[sup]
		if !e.inPlan[u.op] {
			e.inPlan[u.op] = true
			total += u.cost
		}
		e.pending = append(e.pending, u.pre...)
	}
	return total
}

// preferredOperators explores from state and appends the relaxed plan's
// operators in index order. Dead ends add nothing.
func (e *relaxedExploration) preferredOperators(state []int, out []int) []int {
	if !e.explore(state) {
		return out
	}
	e.relaxedPlan()
	for op, in := range e.inPlan {
		if in {
			out = append(out, op)
		}
	}
	return out
}

type factEntry struct {
	fact int
	cost int
}

// factQueue is a min-heap of facts by cost.
type factQueue []factEntry

func (q factQueue) Len() int            { return len(q) }
func (q factQueue) Less(i, j int) bool  { return q[i].cost < q[j].cost }
func (q factQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *factQueue) Push(x any)         { *q = append(*q, x.(factEntry)) }
func (q *factQueue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}

// MaxHeuristic is h^max: the cost of the most expensive goal fact in the
// delete relaxation. Admissible.
type MaxHeuristic struct {
	e *relaxedExploration
}

func NewMaxHeuristic(task Task, costType CostType) *MaxHeuristic {
	return &MaxHeuristic{e: newRelaxedExploration(task, costType, false)}
}

func (h *MaxHeuristic) Compute(ctx *EvaluationContext) EvaluationResult {
	if !h.e.explore(ctx.State()) {
		return EvaluationResult{Value: InfiniteValue, DeadEnd: true}
	}
	return EvaluationResult{Value: h.e.goalValue()}
}

func (h *MaxHeuristic) SetGoal(goal []int)                    { h.e.setGoal(goal) }
func (h *MaxHeuristic) NotifyInitialState([]int)               {}
func (h *MaxHeuristic) NotifyStateTransition([]int, int, []int) {}
func (h *MaxHeuristic) IsPathDependent() bool                  { return false }

// AdditiveHeuristic is h^add: the sum of relaxed goal fact costs, where
// every fact costs its cheapest achiever plus the sum of that achiever's
// precondition costs.
type AdditiveHeuristic struct {
	e *relaxedExploration
}

func NewAdditiveHeuristic(task Task, costType CostType) *AdditiveHeuristic {
	return &AdditiveHeuristic{e: newRelaxedExploration(task, costType, true)}
}

func (h *AdditiveHeuristic) Compute(ctx *EvaluationContext) EvaluationResult {
	if !h.e.explore(ctx.State()) {
		return EvaluationResult{Value: InfiniteValue, DeadEnd: true}
	}
	return EvaluationResult{Value: h.e.goalValue()}
}

// PreferredOperators appends the operators on the best-supporter chains of
// the goal facts.
func (h *AdditiveHeuristic) PreferredOperators(ctx *EvaluationContext, out []int) []int {
	return h.e.preferredOperators(ctx.State(), out)
}

func (h *AdditiveHeuristic) SetGoal(goal []int)                    { h.e.setGoal(goal) }
func (h *AdditiveHeuristic) NotifyInitialState([]int)               {}
func (h *AdditiveHeuristic) NotifyStateTransition([]int, int, []int) {}
func (h *AdditiveHeuristic) IsPathDependent() bool                  { return false }

// FFHeuristic extracts a relaxed plan from the h^add best supporters and
// returns its cost. Every forward operator is counted once.
type FFHeuristic struct {
	e *relaxedExploration
}

func NewFFHeuristic(task Task, costType CostType) *FFHeuristic {
	return &FFHeuristic{e: newRelaxedExploration(task, costType, true)}
}

func (h *FFHeuristic) Compute(ctx *EvaluationContext) EvaluationResult {
	if !h.e.explore(ctx.State()) {
		return EvaluationResult{Value: InfiniteValue, DeadEnd: true}
	}
	return EvaluationResult{Value: h.e.relaxedPlan()}
}

// PreferredOperators appends the operators of the relaxed plan.
func (h *FFHeuristic) PreferredOperators(ctx *EvaluationContext, out []int) []int {
	return h.e.preferredOperators(ctx.State(), out)
}

func (h *FFHeuristic) SetGoal(goal []int)                    { h.e.setGoal(goal) }
func (h *FFHeuristic) NotifyInitialState([]int)               {}
func (h *FFHeuristic) NotifyStateTransition([]int, int, []int) {}
func (h *FFHeuristic) IsPathDependent() bool                  { return false }
