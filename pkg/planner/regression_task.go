package planner

import (
	"sort"
)

// RegressionCondition is a precondition of a regression operator. A
// negative condition must not hold in the evaluated partial state: the
// variable has to be unknown or carry a different value.
type RegressionCondition struct {
	Fact     Fact
	Negative bool
}

// RegressionOperator is the inverse of the forward operator with the same
// index. Applying it to a (partial) successor state yields its predecessor.
type RegressionOperator struct {
	Name          string
	Cost          int
	Preconditions []RegressionCondition
	Effects       []Fact
}

// IsApplicable reports whether the operator can regress the partial state.
// Positive conditions match the value or unknown; negative conditions match
// anything but the value.
func (op *RegressionOperator) IsApplicable(p *PartialStateTask, state []int) bool {
	for _, c := range op.Preconditions {
		val := state[c.Fact.Var]
		if c.Negative {
			if val == c.Fact.Value {
				return false
			}
			continue
		}
		if val != c.Fact.Value && !p.IsUnknown(c.Fact.Var, val) {
			return false
		}
	}
	return true
}

// RegressionTask holds the materialized inverse of a forward task: the
// mutex table and one regression operator per forward operator. It is built
// once and immutable afterwards.
type RegressionTask struct {
	parent    Task
	partial   *PartialStateTask
	mutexes   MutexTable
	operators []RegressionOperator
}

// NewRegressionTask builds the regression view of task.
//
// Tasks with axioms or conditional effects are rejected: the inverse of a
// conditional effect is not well defined, and derived variables would need
// their own regression semantics.
func NewRegressionTask(task Task) (*RegressionTask, error) {
	if n := task.NumAxioms(); n > 0 {
		return nil, taskErrorf(ErrAxiomsUnsupported, "task has %d axioms", n)
	}
	for i := 0; i < task.NumOperators(); i++ {
		op := task.Operator(i)
		for _, eff := range op.Effects {
			if len(eff.Conditions) > 0 {
				return nil, taskErrorf(ErrConditionalEffects, "operator %q", op.Name)
			}
		}
	}

	rt := &RegressionTask{
		parent:  task,
		partial: NewPartialStateTask(task),
	}
	rt.mutexes = buildMutexTable(task)
	rt.reverseOperators()
	return rt, nil
}

func (rt *RegressionTask) reverseOperators() {
	n := rt.parent.NumVariables()
	effectValues := make([]int, n)
	preValues := make([]int, n)

	rt.operators = make([]RegressionOperator, rt.parent.NumOperators())
	for i := range rt.operators {
		op := rt.parent.Operator(i)
		for v := 0; v < n; v++ {
			effectValues[v] = -1
			preValues[v] = -1
		}

		var positive []Fact
		var negative []Fact
		var effects []Fact

		for _, eff := range op.Effects {
			f := eff.Fact
			effectValues[f.Var] = f.Value
			positive = append(positive, f)
			negative = append(negative, rt.mutexes.Mutexes(f)...)
		}

		for _, pre := range op.Preconditions {
			preValues[pre.Var] = pre.Value
			for _, m := range rt.mutexes.Mutexes(pre) {
				if effectValues[m.Var] != m.Value {
					negative = append(negative, m)
				}
			}
			if effectValues[pre.Var] == -1 || effectValues[pre.Var] == pre.Value {
				positive = append(positive, pre)
			}
			effects = append(effects, pre)
		}

		for v := 0; v < n; v++ {
			if effectValues[v] != -1 && preValues[v] == -1 {
				effects = append(effects, Fact{Var: v, Value: rt.partial.Unknown(v)})
			}
		}

		positive = dedupFacts(positive)
		negative = dedupFacts(negative)

		conds := make([]RegressionCondition, 0, len(positive)+len(negative))
		for _, f := range positive {
			conds = append(conds, RegressionCondition{Fact: f})
		}
		for _, f := range negative {
			conds = append(conds, RegressionCondition{Fact: f, Negative: true})
		}

		rt.operators[i] = RegressionOperator{
			Name:          op.Name,
			Cost:          op.Cost,
			Preconditions: conds,
			Effects:       effects,
		}
	}
}

// dedupFacts sorts facts and removes duplicates in place.
func dedupFacts(facts []Fact) []Fact {
	if len(facts) < 2 {
		return facts
	}
	sort.Slice(facts, func(i, j int) bool { return facts[i].Less(facts[j]) })
	out := facts[:1]
	for _, f := range facts[1:] {
		if f != out[len(out)-1] {
			out = append(out, f)
		}
	}
	return out
}

// Parent returns the forward task.
func (rt *RegressionTask) Parent() Task { return rt.parent }

// PartialTask returns the widened-domain view of the forward task.
func (rt *RegressionTask) PartialTask() *PartialStateTask { return rt.partial }

// Mutexes returns the mutex table.
func (rt *RegressionTask) Mutexes() MutexTable { return rt.mutexes }

// IsMutex reports whether two concrete facts are mutex.
func (rt *RegressionTask) IsMutex(a, b Fact) bool { return rt.mutexes.IsMutex(a, b) }

func (rt *RegressionTask) NumOperators() int { return len(rt.operators) }

// Operator returns the regression operator derived from forward operator i.
func (rt *RegressionTask) Operator(i int) *RegressionOperator { return &rt.operators[i] }

// Operators returns all regression operators, indexed like the forward ones.
func (rt *RegressionTask) Operators() []RegressionOperator { return rt.operators }

// GoalStateValues returns the backward seed, tightened by one pass of mutex
// propagation: every concrete goal fact removes its mutex partners from the
// candidate values of the other variables, and unknown variables left with a
// single candidate are pinned to it. No search over completions is done.
func (rt *RegressionTask) GoalStateValues() []int {
	values := rt.partial.GoalStateValues()
	return tightenPartialState(rt.partial, rt.mutexes, values)
}

// tightenPartialState pins unknown variables whose candidate set collapses
// to one value after removing everything mutex with the concrete entries.
// Inconsistent inputs are returned unchanged; GoalStateValues has no
// failure mode.
func tightenPartialState(p *PartialStateTask, mutexes MutexTable, values []int) []int {
	n := len(values)
	ranges := make([]valueSet, n)
	for v := 0; v < n; v++ {
		if p.IsUnknown(v, values[v]) {
			ranges[v] = newFullValueSet(p.Parent().DomainSize(v))
		}
	}
	for v, val := range values {
		if p.IsUnknown(v, val) {
			continue
		}
		for _, m := range mutexes.Mutexes(Fact{Var: v, Value: val}) {
			if p.IsUnknown(m.Var, values[m.Var]) {
				ranges[m.Var].remove(m.Value)
			}
		}
	}
	for v := 0; v < n; v++ {
		if p.IsUnknown(v, values[v]) && ranges[v].isSingleton() {
			values[v] = ranges[v].singletonValue()
		}
	}
	return values
}
