package planner

// UnknownFactName is the fact name of the extra "unknown" value every
// variable gets in the partial-state view.
const UnknownFactName = "<unknown>"

// PartialStateTask widens every variable domain of a forward task by one
// sentinel value meaning "unconstrained". Value DomainSize(v)-1 of the
// widened view, which equals the parent's domain size, is the unknown value.
//
// It is a view, not a new task: every query other than the domain size and
// the sentinel's fact name is answered by the parent.
type PartialStateTask struct {
	parent Task
}

// NewPartialStateTask wraps parent.
func NewPartialStateTask(parent Task) *PartialStateTask {
	return &PartialStateTask{parent: parent}
}

// Parent returns the wrapped forward task.
func (p *PartialStateTask) Parent() Task { return p.parent }

func (p *PartialStateTask) NumVariables() int { return p.parent.NumVariables() }

// DomainSize returns the parent's domain size plus one.
func (p *PartialStateTask) DomainSize(v int) int { return p.parent.DomainSize(v) + 1 }

// Unknown returns the sentinel value of variable v.
func (p *PartialStateTask) Unknown(v int) int { return p.parent.DomainSize(v) }

// IsUnknown reports whether value is the sentinel of variable v.
func (p *PartialStateTask) IsUnknown(v, value int) bool { return value == p.parent.DomainSize(v) }

func (p *PartialStateTask) FactName(f Fact) string {
	if p.IsUnknown(f.Var, f.Value) {
		return UnknownFactName
	}
	return p.parent.FactName(f)
}

// GoalStateValues returns the backward seed: every variable unknown except
// the ones constrained by the goal, which keep their goal value.
func (p *PartialStateTask) GoalStateValues() []int {
	n := p.NumVariables()
	values := make([]int, n)
	for v := 0; v < n; v++ {
		values[v] = p.Unknown(v)
	}
	for _, g := range p.parent.Goals() {
		values[g.Var] = g.Value
	}
	return values
}

// IsConcrete reports whether state has no unknown entries.
func (p *PartialStateTask) IsConcrete(state []int) bool {
	for v, val := range state {
		if p.IsUnknown(v, val) {
			return false
		}
	}
	return true
}

// Matches reports whether every known entry of partial equals the
// corresponding entry of state. Unknown entries match anything.
func (p *PartialStateTask) Matches(partial, state []int) bool {
	for v, val := range partial {
		if !p.IsUnknown(v, val) && state[v] != val {
			return false
		}
	}
	return true
}

// Format renders a (partial) state as "name=value" pairs, skipping unknowns.
func (p *PartialStateTask) Format(state []int) string {
	out := make([]byte, 0, 16*len(state))
	out = append(out, '{')
	first := true
	for v, val := range state {
		if p.IsUnknown(v, val) {
			continue
		}
		if !first {
			out = append(out, ", "...)
		}
		out = append(out, p.parent.FactName(Fact{Var: v, Value: val})...)
		first = false
	}
	out = append(out, '}')
	return string(out)
}
