package planner

import (
	"sort"
)

// SuccessorGenerator finds the operators applicable in a state without
// testing every operator. Operators are arranged in a decision tree keyed on
// their sorted preconditions:
//
//	switch v0=1 ── true ──> switch v2=0 ── true ──> leaf {op3}
//	           │                        └─ false ─> leaf {op7}   (v2 != 0)
//	           └─ false ─> leaf {op5}                            (v0 != 1)
//
// A false branch holds operators whose condition at that depth is negative
// (the variable must not carry the value). Forward operators only have
// positive conditions. In the regression tree an unknown value satisfies
// both branches, since a partial state stands for states on both sides.
type SuccessorGenerator struct {
	root generatorNode
}

type generatorCondition struct {
	fact     Fact
	negative bool
}

func (c generatorCondition) less(other generatorCondition) bool {
	if c.fact != other.fact {
		return c.fact.Less(other.fact)
	}
	return !c.negative && other.negative
}

type generatorOp struct {
	op    int
	conds []generatorCondition
}

type generatorNode interface {
	generate(state []int, ops []int) []int
}

type generatorLeaf struct {
	ops []int
}

func (l *generatorLeaf) generate(_ []int, ops []int) []int {
	return append(ops, l.ops...)
}

type generatorFork struct {
	children []generatorNode
}

func (f *generatorFork) generate(state []int, ops []int) []int {
	for _, c := range f.children {
		ops = c.generate(state, ops)
	}
	return ops
}

type generatorSwitch struct {
	v       int
	value   int
	unknown int
	onTrue  generatorNode
	onFalse generatorNode
}

func (s *generatorSwitch) generate(state []int, ops []int) []int {
	val := state[s.v]
	switch {
	case val == s.unknown:
		if s.onTrue != nil {
			ops = s.onTrue.generate(state, ops)
		}
		if s.onFalse != nil {
			ops = s.onFalse.generate(state, ops)
		}
	case val == s.value:
		if s.onTrue != nil {
			ops = s.onTrue.generate(state, ops)
		}
	default:
		if s.onFalse != nil {
			ops = s.onFalse.generate(state, ops)
		}
	}
	return ops
}

// NewForwardGenerator builds a generator over the forward operators of task.
func NewForwardGenerator(task Task) *SuccessorGenerator {
	infos := make([]generatorOp, task.NumOperators())
	for i := range infos {
		pre := append([]Fact(nil), task.Operator(i).Preconditions...)
		pre = dedupFacts(pre)
		conds := make([]generatorCondition, len(pre))
		for j, f := range pre {
			conds[j] = generatorCondition{fact: f}
		}
		infos[i] = generatorOp{op: i, conds: conds}
	}
	return newSuccessorGenerator(infos, func(int) int { return -1 })
}

// NewRegressionGenerator builds a generator over the regression operators
// of rt, evaluated on partial states.
func NewRegressionGenerator(rt *RegressionTask) *SuccessorGenerator {
	infos := make([]generatorOp, rt.NumOperators())
	for i := range infos {
		op := rt.Operator(i)
		conds := make([]generatorCondition, len(op.Preconditions))
		for j, c := range op.Preconditions {
			conds[j] = generatorCondition{fact: c.Fact, negative: c.Negative}
		}
		sort.Slice(conds, func(a, b int) bool { return conds[a].less(conds[b]) })
		infos[i] = generatorOp{op: i, conds: conds}
	}
	p := rt.PartialTask()
	return newSuccessorGenerator(infos, p.Unknown)
}

func newSuccessorGenerator(infos []generatorOp, unknown func(v int) int) *SuccessorGenerator {
	sort.SliceStable(infos, func(i, j int) bool {
		a, b := infos[i].conds, infos[j].conds
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k].less(b[k])
			}
		}
		return len(a) < len(b)
	})
	b := &generatorBuilder{infos: infos, unknown: unknown}
	return &SuccessorGenerator{root: b.build(0, 0, len(infos))}
}

type generatorBuilder struct {
	infos   []generatorOp
	unknown func(v int) int
}

// build constructs the subtree for infos[begin:end], all of which share
// their first depth conditions.
func (b *generatorBuilder) build(depth, begin, end int) generatorNode {
	var nodes []generatorNode
	i := begin
	for i < end {
		if len(b.infos[i].conds) == depth {
			j := i
			var ops []int
			for j < end && len(b.infos[j].conds) == depth {
				ops = append(ops, b.infos[j].op)
				j++
			}
			nodes = append(nodes, &generatorLeaf{ops: ops})
			i = j
			continue
		}

		fact := b.infos[i].conds[depth].fact
		j := i
		for j < end && len(b.infos[j].conds) > depth && b.infos[j].conds[depth].fact == fact {
			j++
		}
		// Within one fact group positive conditions sort before negative ones.
		split := i
		for split < j && !b.infos[split].conds[depth].negative {
			split++
		}
		sw := &generatorSwitch{v: fact.Var, value: fact.Value, unknown: b.unknown(fact.Var)}
		if split > i {
			sw.onTrue = b.build(depth+1, i, split)
		}
		if j > split {
			sw.onFalse = b.build(depth+1, split, j)
		}
		nodes = append(nodes, sw)
		i = j
	}

	if len(nodes) == 1 {
		return nodes[0]
	}
	return &generatorFork{children: nodes}
}

// ApplicableOps appends the indices of the operators applicable in state to
// ops and returns the extended slice.
func (g *SuccessorGenerator) ApplicableOps(state []int, ops []int) []int {
	if g.root == nil {
		return ops
	}
	return g.root.generate(state, ops)
}
