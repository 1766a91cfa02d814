package planner

import (
	"fmt"
	"strings"
)

// Plan is a sequence of forward operator indices.
type Plan []int

// Names returns the operator names of the plan.
func (p Plan) Names(task Task) []string {
	names := make([]string, len(p))
	for i, op := range p {
		names[i] = task.Operator(op).Name
	}
	return names
}

// Cost returns the sum of the real operator costs.
func (p Plan) Cost(task Task) int {
	total := 0
	for _, op := range p {
		total += task.Operator(op).Cost
	}
	return total
}

// Validate replays the plan from the initial state and checks that every
// operator is applicable and the final state satisfies the goal.
func (p Plan) Validate(task Task) error {
	state := task.InitialState()
	for step, idx := range p {
		if idx < 0 || idx >= task.NumOperators() {
			return fmt.Errorf("%w: step %d: operator index %d out of range", ErrInvalidPlan, step, idx)
		}
		op := task.Operator(idx)
		if !op.IsApplicable(state) {
			return fmt.Errorf("%w: step %d: %s is not applicable", ErrInvalidPlan, step, op.Name)
		}
		state = op.Apply(state)
	}
	if !IsGoalState(task, state) {
		return fmt.Errorf("%w: final state does not satisfy the goal", ErrInvalidPlan)
	}
	return nil
}

// Format renders the plan in the usual plan file layout: one
// parenthesized operator per line followed by a cost comment.
func (p Plan) Format(task Task) string {
	var b strings.Builder
	for _, name := range p.Names(task) {
		fmt.Fprintf(&b, "(%s)\n", name)
	}
	fmt.Fprintf(&b, "; cost = %d (%s)\n", p.Cost(task), costKind(task))
	return b.String()
}

func costKind(task Task) string {
	for i := 0; i < task.NumOperators(); i++ {
		if task.Operator(i).Cost != 1 {
			return "general cost"
		}
	}
	return "unit cost"
}
