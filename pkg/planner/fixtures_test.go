package planner

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func boolVar(name string) Variable {
	return Variable{Name: name, Values: []string{"0", "1"}}
}

func eff(v, val int) Effect { return Effect{Fact: Fact{Var: v, Value: val}} }

// singleOpTask has one binary variable and one operator a: v=0 -> v=1.
func singleOpTask(t *testing.T) *ExplicitTask {
	t.Helper()
	task, err := NewExplicitTask(
		[]Variable{boolVar("v")},
		[]Operator{{Name: "a", Cost: 1, Preconditions: []Fact{{0, 0}}, Effects: []Effect{eff(0, 1)}}},
		nil,
		[]int{0},
		[]Fact{{0, 1}},
	)
	require.NoError(t, err)
	return task
}

// pinningTask has x=0 mutex y=0 and an operator that needs x=0 and z=0
// and sets z=1.
func pinningTask(t *testing.T) *ExplicitTask {
	t.Helper()
	task, err := NewExplicitTask(
		[]Variable{boolVar("x"), boolVar("y"), boolVar("z")},
		[]Operator{{
			Name:          "flip-z",
			Cost:          1,
			Preconditions: []Fact{{0, 0}, {2, 0}},
			Effects:       []Effect{eff(2, 1)},
		}},
		[][]Fact{{{0, 0}, {1, 0}}},
		[]int{0, 1, 0},
		[]Fact{{0, 0}, {2, 1}},
	)
	require.NoError(t, err)
	return task
}

// chainTask moves a counter from 0 to n-1 one step at a time.
func chainTask(t *testing.T, n int) *ExplicitTask {
	t.Helper()
	values := make([]string, n)
	var ops []Operator
	for i := 0; i < n; i++ {
		values[i] = fmt.Sprint(i)
		if i+1 < n {
			ops = append(ops, Operator{
				Name:          fmt.Sprintf("step-%d", i),
				Cost:          1,
				Preconditions: []Fact{{0, i}},
				Effects:       []Effect{eff(0, i+1)},
			})
		}
	}
	task, err := NewExplicitTask([]Variable{{Name: "c", Values: values}}, ops, nil, []int{0}, []Fact{{0, n - 1}})
	require.NoError(t, err)
	return task
}

// gripperTask is two rooms, two balls, one gripper.
//
//	robot: A B    ball1, ball2: A B G(ripper)    free: yes no
func gripperTask(t *testing.T) *ExplicitTask {
	t.Helper()
	vars := []Variable{
		{Name: "robot", Values: []string{"A", "B"}},
		{Name: "ball1", Values: []string{"A", "B", "G"}},
		{Name: "ball2", Values: []string{"A", "B", "G"}},
		{Name: "free", Values: []string{"yes", "no"}},
	}
	var ops []Operator
	rooms := []string{"A", "B"}
	for from := range rooms {
		to := 1 - from
		ops = append(ops, Operator{
			Name:          fmt.Sprintf("move %s %s", rooms[from], rooms[to]),
			Cost:          1,
			Preconditions: []Fact{{0, from}},
			Effects:       []Effect{eff(0, to)},
		})
	}
	for ball := 1; ball <= 2; ball++ {
		for room := range rooms {
			ops = append(ops, Operator{
				Name:          fmt.Sprintf("pick ball%d %s", ball, rooms[room]),
				Cost:          1,
				Preconditions: []Fact{{0, room}, {ball, room}, {3, 0}},
				Effects:       []Effect{eff(ball, 2), eff(3, 1)},
			})
			ops = append(ops, Operator{
				Name:          fmt.Sprintf("drop ball%d %s", ball, rooms[room]),
				Cost:          1,
				Preconditions: []Fact{{0, room}, {ball, 2}},
				Effects:       []Effect{eff(ball, room), eff(3, 0)},
			})
		}
	}
	mutexes := [][]Fact{
		{{1, 2}, {2, 2}, {3, 0}},
	}
	task, err := NewExplicitTask(vars, ops, mutexes, []int{0, 0, 0, 0}, []Fact{{1, 1}, {2, 1}})
	require.NoError(t, err)
	return task
}

// randomTask builds a small random task. Its mutex groups are inferred by
// exhaustive reachability, so they are sound.
func randomTask(t *testing.T, rng *rand.Rand) *ExplicitTask {
	t.Helper()
	numVars := 2 + rng.Intn(3)
	vars := make([]Variable, numVars)
	for v := range vars {
		size := 2 + rng.Intn(2)
		values := make([]string, size)
		for i := range values {
			values[i] = fmt.Sprint(i)
		}
		vars[v] = Variable{Name: fmt.Sprintf("v%d", v), Values: values}
	}
	randomFacts := func(max int) []Fact {
		perm := rng.Perm(numVars)
		n := 1 + rng.Intn(max)
		facts := make([]Fact, 0, n)
		for _, v := range perm[:n] {
			facts = append(facts, Fact{Var: v, Value: rng.Intn(len(vars[v].Values))})
		}
		return facts
	}

	numOps := 3 + rng.Intn(5)
	ops := make([]Operator, numOps)
	for i := range ops {
		pre := randomFacts(2)
		if rng.Intn(4) == 0 {
			pre = nil
		}
		var effs []Effect
		for _, f := range randomFacts(2) {
			effs = append(effs, Effect{Fact: f})
		}
		ops[i] = Operator{Name: fmt.Sprintf("op%d", i), Cost: 1 + rng.Intn(3), Preconditions: pre, Effects: effs}
	}
	initial := make([]int, numVars)
	for v := range initial {
		initial[v] = rng.Intn(len(vars[v].Values))
	}

	draft := &ExplicitTask{Variables: vars, Operators: ops, Initial: initial, Goal: randomFacts(2)}
	groups, err := InferMutexGroups(draft, 10000)
	require.NoError(t, err)

	task, err := NewExplicitTask(vars, ops, groups, initial, draft.Goal)
	require.NoError(t, err)
	return task
}

// reachableStates enumerates every state reachable from the initial state.
func reachableStates(task Task) [][]int {
	seen := map[string]bool{}
	init := task.InitialState()
	seen[fmt.Sprint(init)] = true
	queue := [][]int{init}
	var out [][]int
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		out = append(out, s)
		for i := 0; i < task.NumOperators(); i++ {
			op := task.Operator(i)
			if !op.IsApplicable(s) {
				continue
			}
			succ := op.Apply(s)
			if key := fmt.Sprint(succ); !seen[key] {
				seen[key] = true
				queue = append(queue, succ)
			}
		}
	}
	return out
}

func isSolvable(task Task) bool {
	for _, s := range reachableStates(task) {
		if IsGoalState(task, s) {
			return true
		}
	}
	return false
}

// allStates enumerates every vector with entries in [0, size(v)).
func allStates(sizes []int) [][]int {
	out := [][]int{{}}
	for _, size := range sizes {
		var next [][]int
		for _, prefix := range out {
			for val := 0; val < size; val++ {
				s := append(append([]int(nil), prefix...), val)
				next = append(next, s)
			}
		}
		out = next
	}
	return out
}

func domainSizes(task Task, widen bool) []int {
	sizes := make([]int, task.NumVariables())
	for v := range sizes {
		sizes[v] = task.DomainSize(v)
		if widen {
			sizes[v]++
		}
	}
	return sizes
}
