// Package planner implements a bidirectional heuristic state-space planner
// over multi-valued state variables and STRIPS-like operators.
//
// # Architecture Overview
//
// A forward Task (variables, operators, initial state, goal) is searched in
// two directions at once:
//
//	Forward  (progression): concrete states, forward operators, seeded
//	                        from the initial state.
//	Backward (regression):  partial states, regression operators derived
//	                        from the forward operators, seeded from the goal.
//
// Partial states extend every variable's domain with one extra "unknown"
// value. A partial state stands for the set of concrete states that agree
// with all of its known entries:
//
//	variables:     at   holding  door
//	partial:       B    ?        open     (? = unknown)
//	concretizes:   {B, none, open}, {B, ball, open}
//
// Regression through an operator yields the unique partial predecessor, with
// a mutex table used to rule out inconsistent predecessors and to pin
// variables whose candidate values collapse to a single one.
//
// The two frontiers share one StateRegistry and one SearchSpace. Every state
// remembers which direction reached it first; a successor generated by one
// direction that is already tagged by the other is a meeting, and the plan is
// stitched from the two parent chains:
//
//	init ──f1──> s ──op──> t <──b2── g'  <──b1── goal
//	plan = [f1, op, b2, b1]
//
// A BDD-backed SymbolicClosedList additionally detects meetings between a
// concrete forward state and a partial backward state that merely overlap.
package planner

import (
	"fmt"
)

// Fact is an assignment of a value to a variable.
type Fact struct {
	Var   int
	Value int
}

// Less orders facts by variable, then value.
func (f Fact) Less(other Fact) bool {
	if f.Var != other.Var {
		return f.Var < other.Var
	}
	return f.Value < other.Value
}

func (f Fact) String() string {
	return fmt.Sprintf("v%d=%d", f.Var, f.Value)
}

// Variable is a finite-domain state variable. Values holds one name per
// domain value; the domain size is len(Values).
type Variable struct {
	Name   string
	Values []string
}

// Effect sets Fact when every condition holds. Effects with conditions are
// conditional effects, which the regression machinery rejects.
type Effect struct {
	Fact       Fact
	Conditions []Fact
}

// Operator is a STRIPS-like action with multi-valued preconditions and
// effects.
type Operator struct {
	Name          string
	Cost          int
	Preconditions []Fact
	Effects       []Effect
}

// IsApplicable reports whether every precondition holds in the concrete
// state.
func (op *Operator) IsApplicable(state []int) bool {
	for _, pre := range op.Preconditions {
		if state[pre.Var] != pre.Value {
			return false
		}
	}
	return true
}

// Apply returns the successor of state. Conditional effects fire when their
// conditions hold in state. The input is not modified.
func (op *Operator) Apply(state []int) []int {
	succ := make([]int, len(state))
	copy(succ, state)
	for _, eff := range op.Effects {
		if conditionsHold(eff.Conditions, state) {
			succ[eff.Fact.Var] = eff.Fact.Value
		}
	}
	return succ
}

func conditionsHold(conds []Fact, state []int) bool {
	for _, c := range conds {
		if state[c.Var] != c.Value {
			return false
		}
	}
	return true
}

// Task is the forward planning task as seen by the search core.
//
// Implementations must be safe for concurrent reads; the planner never
// mutates a Task.
type Task interface {
	NumVariables() int
	DomainSize(v int) int
	VariableName(v int) string
	FactName(f Fact) string

	NumOperators() int
	Operator(i int) *Operator

	// NumAxioms reports derived-variable rules. The regression builder
	// refuses tasks with axioms.
	NumAxioms() int

	// AreFactsMutex reports whether two facts can never hold together in a
	// reachable state.
	AreFactsMutex(a, b Fact) bool

	Goals() []Fact
	InitialState() []int
}

// ExplicitTask is a Task held entirely in memory.
//
// Mutexes are declared as groups; every pair of facts inside one group is
// mutually exclusive. Facts on the same variable with different values are
// always mutex and need not be declared.
type ExplicitTask struct {
	Variables   []Variable
	Operators   []Operator
	Axioms      []Operator
	MutexGroups [][]Fact
	Initial     []int
	Goal        []Fact

	mutexPairs map[[2]Fact]struct{}
}

// NewExplicitTask validates the task and materializes the mutex pairs.
func NewExplicitTask(vars []Variable, ops []Operator, mutexGroups [][]Fact, initial []int, goal []Fact) (*ExplicitTask, error) {
	t := &ExplicitTask{
		Variables:   vars,
		Operators:   ops,
		MutexGroups: mutexGroups,
		Initial:     initial,
		Goal:        goal,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.indexMutexes()
	return t, nil
}

// Validate checks that every fact referenced by the task is in range.
func (t *ExplicitTask) Validate() error {
	if len(t.Initial) != len(t.Variables) {
		return taskErrorf(ErrInvalidTask, "initial state has %d values, want %d", len(t.Initial), len(t.Variables))
	}
	for v, val := range t.Initial {
		if err := t.checkFact(Fact{Var: v, Value: val}); err != nil {
			return fmt.Errorf("initial state: %w", err)
		}
	}
	for _, g := range t.Goal {
		if err := t.checkFact(g); err != nil {
			return fmt.Errorf("goal: %w", err)
		}
	}
	for i := range t.Operators {
		op := &t.Operators[i]
		if op.Cost < 0 {
			return taskErrorf(ErrInvalidTask, "operator %q has negative cost %d", op.Name, op.Cost)
		}
		for _, f := range op.Preconditions {
			if err := t.checkFact(f); err != nil {
				return fmt.Errorf("operator %q precondition: %w", op.Name, err)
			}
		}
		for _, eff := range op.Effects {
			if err := t.checkFact(eff.Fact); err != nil {
				return fmt.Errorf("operator %q effect: %w", op.Name, err)
			}
			for _, c := range eff.Conditions {
				if err := t.checkFact(c); err != nil {
					return fmt.Errorf("operator %q effect condition: %w", op.Name, err)
				}
			}
		}
	}
	for gi, group := range t.MutexGroups {
		for _, f := range group {
			if err := t.checkFact(f); err != nil {
				return fmt.Errorf("mutex group %d: %w", gi, err)
			}
		}
	}
	return nil
}

func (t *ExplicitTask) checkFact(f Fact) error {
	if f.Var < 0 || f.Var >= len(t.Variables) {
		return taskErrorf(ErrInvalidTask, "variable %d out of range", f.Var)
	}
	if f.Value < 0 || f.Value >= len(t.Variables[f.Var].Values) {
		return taskErrorf(ErrInvalidTask, "value %d out of domain of %q", f.Value, t.Variables[f.Var].Name)
	}
	return nil
}

func (t *ExplicitTask) indexMutexes() {
	t.mutexPairs = make(map[[2]Fact]struct{})
	for _, group := range t.MutexGroups {
		for i, a := range group {
			for _, b := range group[i+1:] {
				if a.Var == b.Var {
					continue
				}
				t.mutexPairs[[2]Fact{a, b}] = struct{}{}
				t.mutexPairs[[2]Fact{b, a}] = struct{}{}
			}
		}
	}
}

func (t *ExplicitTask) NumVariables() int { return len(t.Variables) }

func (t *ExplicitTask) DomainSize(v int) int { return len(t.Variables[v].Values) }

func (t *ExplicitTask) VariableName(v int) string { return t.Variables[v].Name }

func (t *ExplicitTask) FactName(f Fact) string {
	return t.Variables[f.Var].Name + "=" + t.Variables[f.Var].Values[f.Value]
}

func (t *ExplicitTask) NumOperators() int { return len(t.Operators) }

func (t *ExplicitTask) Operator(i int) *Operator { return &t.Operators[i] }

func (t *ExplicitTask) NumAxioms() int { return len(t.Axioms) }

func (t *ExplicitTask) AreFactsMutex(a, b Fact) bool {
	if a.Var == b.Var {
		return a.Value != b.Value
	}
	if t.mutexPairs == nil {
		return t.scanMutexGroups(a, b)
	}
	_, ok := t.mutexPairs[[2]Fact{a, b}]
	return ok
}

// scanMutexGroups serves tasks built as struct literals, which never ran
// indexMutexes.
func (t *ExplicitTask) scanMutexGroups(a, b Fact) bool {
	for _, group := range t.MutexGroups {
		hasA, hasB := false, false
		for _, f := range group {
			hasA = hasA || f == a
			hasB = hasB || f == b
		}
		if hasA && hasB {
			return true
		}
	}
	return false
}

func (t *ExplicitTask) Goals() []Fact { return t.Goal }

// InitialState returns a copy of the initial state values.
func (t *ExplicitTask) InitialState() []int {
	s := make([]int, len(t.Initial))
	copy(s, t.Initial)
	return s
}

// IsGoalState reports whether the concrete state satisfies every goal fact.
func IsGoalState(task Task, state []int) bool {
	for _, g := range task.Goals() {
		if state[g.Var] != g.Value {
			return false
		}
	}
	return true
}

// OperatorIndex returns the index of the operator with the given name, or -1.
func OperatorIndex(task Task, name string) int {
	for i := 0; i < task.NumOperators(); i++ {
		if task.Operator(i).Name == name {
			return i
		}
	}
	return -1
}
