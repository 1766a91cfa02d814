package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoGoalTask: A sets a=1 for 2, B needs a=1 and sets b=1 for 3.
func twoGoalTask(t *testing.T) *ExplicitTask {
	t.Helper()
	task, err := NewExplicitTask(
		[]Variable{boolVar("a"), boolVar("b")},
		[]Operator{
			{Name: "A", Cost: 2, Effects: []Effect{eff(0, 1)}},
			{Name: "B", Cost: 3, Preconditions: []Fact{{0, 1}}, Effects: []Effect{eff(1, 1)}},
		},
		nil,
		[]int{0, 0},
		[]Fact{{0, 1}, {1, 1}},
	)
	require.NoError(t, err)
	return task
}

func evaluate(e Evaluator, state []int) EvaluationResult {
	return NewEvaluationContext(state, 0, nil).Result(e)
}

func TestHeuristics_Values(t *testing.T) {
	task := twoGoalTask(t)
	init := task.InitialState()

	tests := []struct {
		name     string
		costType CostType
		want     map[string]int
	}{
		{"normal", NormalCost, map[string]int{HeuristicMax: 5, HeuristicAdd: 7, HeuristicFF: 5, HeuristicGoalCount: 2}},
		{"one", OneCost, map[string]int{HeuristicMax: 2, HeuristicAdd: 3, HeuristicFF: 2, HeuristicGoalCount: 2}},
		{"plusone", PlusOneCost, map[string]int{HeuristicMax: 7, HeuristicAdd: 10, HeuristicFF: 7, HeuristicGoalCount: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for name, want := range tt.want {
				h, err := NewHeuristic(name, task, tt.costType)
				require.NoError(t, err)
				r := evaluate(h, init)
				assert.False(t, r.DeadEnd, name)
				assert.Equal(t, want, r.Value, name)

				assert.Equal(t, 0, evaluate(h, []int{1, 1}).Value, "%s on a goal state", name)
			}
		})
	}
}

func TestHeuristics_PartialGoal(t *testing.T) {
	task := twoGoalTask(t)
	// a unknown, b=1
	goal := []int{2, 1}

	for name, want := range map[string]int{HeuristicMax: 5, HeuristicAdd: 5, HeuristicFF: 5, HeuristicGoalCount: 1} {
		h, err := NewHeuristic(name, task, NormalCost)
		require.NoError(t, err)
		h.SetGoal(goal)
		assert.Equal(t, want, evaluate(h, []int{0, 0}).Value, name)
	}
}

func TestHeuristics_UnreachableGoalIsDeadEnd(t *testing.T) {
	task, err := NewExplicitTask(
		[]Variable{boolVar("a"), boolVar("b")},
		[]Operator{{Name: "A", Cost: 1, Effects: []Effect{eff(0, 1)}}},
		nil,
		[]int{0, 0},
		[]Fact{{1, 1}},
	)
	require.NoError(t, err)

	for _, name := range []string{HeuristicMax, HeuristicAdd, HeuristicFF} {
		h, err := NewHeuristic(name, task, NormalCost)
		require.NoError(t, err)
		r := evaluate(h, task.InitialState())
		assert.True(t, r.DeadEnd, name)
		assert.Equal(t, InfiniteValue, r.Value, name)
		assert.Equal(t, "infinity", r.String())
	}

	gc := NewGoalCountHeuristic(task)
	assert.False(t, evaluate(gc, task.InitialState()).DeadEnd, "goal count never detects dead ends")
}

func TestFFHeuristic_CountsSharedOperatorOnce(t *testing.T) {
	task, err := NewExplicitTask(
		[]Variable{boolVar("a"), boolVar("b")},
		[]Operator{{Name: "both", Cost: 4, Effects: []Effect{eff(0, 1), eff(1, 1)}}},
		nil,
		[]int{0, 0},
		[]Fact{{0, 1}, {1, 1}},
	)
	require.NoError(t, err)

	assert.Equal(t, 4, evaluate(NewFFHeuristic(task, NormalCost), task.InitialState()).Value)
	assert.Equal(t, 8, evaluate(NewAdditiveHeuristic(task, NormalCost), task.InitialState()).Value)
	assert.Equal(t, 4, evaluate(NewMaxHeuristic(task, NormalCost), task.InitialState()).Value)
}

func TestHeuristics_OnGripper(t *testing.T) {
	task := gripperTask(t)
	init := task.InitialState()

	// Each ball needs a pick, the move and a drop. Pick and move run in
	// parallel under h^max, and FF shares the move between the balls.
	assert.Equal(t, 2, evaluate(NewMaxHeuristic(task, NormalCost), init).Value)
	assert.Equal(t, 6, evaluate(NewAdditiveHeuristic(task, NormalCost), init).Value)
	assert.Equal(t, 5, evaluate(NewFFHeuristic(task, NormalCost), init).Value)
	assert.Equal(t, 2, evaluate(NewGoalCountHeuristic(task), init).Value)
}

func TestCostType_Adjust(t *testing.T) {
	assert.Equal(t, 0, NormalCost.Adjust(0))
	assert.Equal(t, 5, NormalCost.Adjust(5))
	assert.Equal(t, 1, OneCost.Adjust(5))
	assert.Equal(t, 1, PlusOneCost.Adjust(0))
	assert.Equal(t, "plusone", PlusOneCost.String())
	assert.Equal(t, "unknown", CostType(9).String())
}

func TestEvaluationContext_CachesResults(t *testing.T) {
	task := twoGoalTask(t)
	stats := &Statistics{}
	h := NewAdditiveHeuristic(task, NormalCost)
	ctx := NewEvaluationContext(task.InitialState(), 4, stats)

	assert.Equal(t, 7, ctx.Value(h))
	assert.Equal(t, 7, ctx.Value(h))
	assert.Equal(t, 1, stats.Evaluations)

	sum := NewSumEvaluator(NewGEvaluator(), h)
	assert.Equal(t, 11, ctx.Value(sum))
	assert.Equal(t, 3, stats.Evaluations, "sum and g are new, h is cached")

	assert.Equal(t, 14, ctx.Value(NewWeightedEvaluator(h, 2)))
}

func TestSumEvaluator_DeadEndPropagates(t *testing.T) {
	task, err := NewExplicitTask([]Variable{boolVar("a")}, nil, nil, []int{0}, []Fact{{0, 1}})
	require.NoError(t, err)

	h := NewMaxHeuristic(task, NormalCost)
	ctx := NewEvaluationContext(task.InitialState(), 0, nil)
	assert.True(t, ctx.Result(NewSumEvaluator(NewGEvaluator(), h)).DeadEnd)
	assert.True(t, ctx.Result(NewWeightedEvaluator(h, 3)).DeadEnd)
	assert.Equal(t, InfiniteValue, ctx.Value(h))
}

type pathDependentStub struct {
	GEvaluator
	transitions int
}

func (p *pathDependentStub) IsPathDependent() bool { return true }
func (p *pathDependentStub) NotifyStateTransition([]int, int, []int) {
	p.transitions++
}

func TestCollectPathDependent(t *testing.T) {
	pd := &pathDependentStub{}
	tree := NewSumEvaluator(NewGEvaluator(), NewWeightedEvaluator(pd, 2), pd)

	got := collectPathDependent(tree, nil)
	require.Len(t, got, 1)
	assert.Same(t, pd, got[0])

	tree.NotifyStateTransition(nil, 0, nil)
	assert.Equal(t, 2, pd.transitions)
}

func TestHeuristics_PreferredOperators(t *testing.T) {
	task := twoGoalTask(t)
	for _, h := range []PreferredOperatorEvaluator{
		NewFFHeuristic(task, NormalCost),
		NewAdditiveHeuristic(task, NormalCost),
	} {
		ctx := NewEvaluationContext(task.InitialState(), 0, nil)
		assert.Equal(t, []int{0, 1}, h.PreferredOperators(ctx, nil), "%T", h)

		ctx = NewEvaluationContext([]int{1, 0}, 0, nil)
		assert.Equal(t, []int{1}, h.PreferredOperators(ctx, nil), "%T: a=1 already holds", h)

		ctx = NewEvaluationContext([]int{1, 1}, 0, nil)
		assert.Empty(t, h.PreferredOperators(ctx, nil), "%T: goal state", h)

		out := h.PreferredOperators(NewEvaluationContext([]int{1, 0}, 0, nil), []int{7})
		assert.Equal(t, []int{7, 1}, out, "%T appends", h)
	}

	var e Evaluator = NewMaxHeuristic(task, NormalCost)
	_, ok := e.(PreferredOperatorEvaluator)
	assert.False(t, ok)
}

func TestHeuristics_PreferredOperatorsOnDeadEnd(t *testing.T) {
	task, err := NewExplicitTask(
		[]Variable{boolVar("a"), boolVar("b")},
		[]Operator{{Name: "set-a", Cost: 1, Effects: []Effect{eff(0, 1)}}},
		nil,
		[]int{0, 0},
		[]Fact{{1, 1}},
	)
	require.NoError(t, err)

	h := NewFFHeuristic(task, NormalCost)
	ctx := NewEvaluationContext(task.InitialState(), 0, nil)
	assert.True(t, ctx.Result(h).DeadEnd)
	assert.Empty(t, h.PreferredOperators(ctx, nil))
}
