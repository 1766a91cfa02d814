package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constEvaluator scores states by their first entry.
type constEvaluator struct {
	GEvaluator
	goal []int
}

func (c *constEvaluator) Compute(ctx *EvaluationContext) EvaluationResult {
	v := ctx.State()[0]
	if v < 0 {
		return EvaluationResult{Value: InfiniteValue, DeadEnd: true}
	}
	return EvaluationResult{Value: v}
}

func (c *constEvaluator) SetGoal(goal []int) { c.goal = goal }

func TestBestFirstOpenList_LexicographicWithFIFOTies(t *testing.T) {
	h := &constEvaluator{}
	l := NewBestFirstOpenList(h, NewGEvaluator())

	insert := func(h, g int, id StateID) {
		l.Insert(NewEvaluationContext([]int{h}, g, nil), id)
	}
	insert(3, 0, 0)
	insert(1, 5, 1)
	insert(1, 2, 2)
	insert(1, 2, 3)
	insert(0, 9, 4)

	key, id := l.MinValueAndEntry()
	assert.Equal(t, []int{0, 9}, key)
	assert.Equal(t, StateID(4), id)
	assert.Equal(t, 5, l.Len())

	var order []StateID
	for !l.Empty() {
		order = append(order, l.RemoveMin())
	}
	assert.Equal(t, []StateID{4, 2, 3, 1, 0}, order)

	key, id = l.MinValueAndEntry()
	assert.Nil(t, key)
	assert.Equal(t, NoState, id)
}

func TestBestFirstOpenList_DeadEndAndGoal(t *testing.T) {
	h := &constEvaluator{}
	l := NewBestFirstOpenList(h)

	assert.True(t, l.IsDeadEnd(NewEvaluationContext([]int{-1}, 0, nil)))
	assert.False(t, l.IsDeadEnd(NewEvaluationContext([]int{2}, 0, nil)))

	l.SetGoal([]int{7})
	assert.Equal(t, []int{7}, h.goal)

	l.Insert(NewEvaluationContext([]int{1}, 0, nil), 3)
	l.Clear()
	assert.True(t, l.Empty())
	assert.Empty(t, l.PathDependentEvaluators())
}

func TestNewBestFirstOpenList_PanicsWithoutEvaluators(t *testing.T) {
	assert.Panics(t, func() { NewBestFirstOpenList() })
}

func TestNamedOpenLists(t *testing.T) {
	task := twoGoalTask(t)
	ctx := func() *EvaluationContext { return NewEvaluationContext(task.InitialState(), 4, nil) }

	tests := []struct {
		kind   string
		weight int
		want   []int
	}{
		{KindGreedy, 1, []int{7, 4}},
		{KindAStar, 1, []int{11, 7}},
		{KindWAStar, 3, []int{25, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			factory, err := NamedOpenLists(HeuristicAdd, tt.kind, tt.weight)
			require.NoError(t, err)
			l, err := factory(task, NormalCost)
			require.NoError(t, err)

			l.Insert(ctx(), 0)
			key, id := l.MinValueAndEntry()
			assert.Equal(t, tt.want, key)
			assert.Equal(t, StateID(0), id)
		})
	}
}

func TestNamedOpenLists_Errors(t *testing.T) {
	_, err := NamedOpenLists("lmcut", KindGreedy, 1)
	assert.ErrorContains(t, err, "unknown heuristic")

	_, err = NamedOpenLists(HeuristicFF, "beam", 1)
	assert.ErrorContains(t, err, "unknown search kind")

	_, err = NamedOpenLists(HeuristicFF, KindWAStar, 0)
	assert.ErrorContains(t, err, "weight")

	_, err = NewHeuristic("blind", twoGoalTask(t), NormalCost)
	assert.Error(t, err)

	h, err := NewHeuristic("HAdd", twoGoalTask(t), NormalCost)
	require.NoError(t, err)
	assert.IsType(t, &AdditiveHeuristic{}, h)
}

func TestPreferredOnlyOpenList_DropsOtherEntries(t *testing.T) {
	l := NewPreferredOnlyOpenList(&constEvaluator{})
	assert.True(t, l.OnlyContainsPreferred())
	assert.False(t, NewBestFirstOpenList(&constEvaluator{}).OnlyContainsPreferred())

	l.Insert(NewEvaluationContext([]int{1}, 0, nil), 0)
	ctx := NewEvaluationContext([]int{2}, 0, nil)
	ctx.SetPreferred(true)
	l.Insert(ctx, 1)

	assert.Equal(t, 1, l.Len())
	assert.Equal(t, StateID(1), l.RemoveMin())
}

func alternationFixture(boost int) (*AlternationOpenList, *constEvaluator, *constEvaluator) {
	h, ph := &constEvaluator{}, &constEvaluator{}
	l := NewAlternationOpenList(boost, NewBestFirstOpenList(h), NewPreferredOnlyOpenList(ph))
	insert := func(v int, preferred bool, id StateID) {
		ctx := NewEvaluationContext([]int{v}, 0, nil)
		ctx.SetPreferred(preferred)
		l.Insert(ctx, id)
	}
	insert(5, false, 0)
	insert(3, true, 1)
	insert(1, false, 2)
	insert(4, true, 3)
	return l, h, ph
}

func drain(l OpenList) []StateID {
	var order []StateID
	for !l.Empty() {
		order = append(order, l.RemoveMin())
	}
	return order
}

func TestAlternationOpenList_TakesTurns(t *testing.T) {
	l, _, _ := alternationFixture(0)
	assert.Equal(t, 6, l.Len(), "preferred entries sit in both sublists")

	key, id := l.MinValueAndEntry()
	assert.Equal(t, []int{1}, key)
	assert.Equal(t, StateID(2), id)

	assert.Equal(t, []StateID{2, 1, 1, 3, 3, 0}, drain(l))
	key, id = l.MinValueAndEntry()
	assert.Nil(t, key)
	assert.Equal(t, NoState, id)
}

func TestAlternationOpenList_BoostServesPreferredFirst(t *testing.T) {
	l, _, _ := alternationFixture(100)
	l.BoostPreferred()
	assert.Equal(t, []StateID{1, 3, 2, 1, 3, 0}, drain(l))

	l, _, _ = alternationFixture(100)
	l.BoostPreferred()
	l.Clear()
	assert.True(t, l.Empty())
	l.Insert(NewEvaluationContext([]int{1}, 0, nil), 9)
	ctx := NewEvaluationContext([]int{2}, 0, nil)
	ctx.SetPreferred(true)
	l.Insert(ctx, 8)
	assert.Equal(t, []StateID{9, 8, 8}, drain(l), "Clear resets the boost")
}

func TestAlternationOpenList_DeadEndAndGoal(t *testing.T) {
	l, h, ph := alternationFixture(0)
	assert.True(t, l.IsDeadEnd(NewEvaluationContext([]int{-1}, 0, nil)))
	assert.False(t, l.IsDeadEnd(NewEvaluationContext([]int{2}, 0, nil)))

	mixed := NewAlternationOpenList(0, NewBestFirstOpenList(&constEvaluator{}), NewPreferredOnlyOpenList(&deadEndEvaluator{}))
	assert.False(t, mixed.IsDeadEnd(NewEvaluationContext([]int{2}, 0, nil)), "one sublist still ranks the state")

	l.SetGoal([]int{4})
	assert.Equal(t, []int{4}, h.goal)
	assert.Equal(t, []int{4}, ph.goal)
	assert.Empty(t, l.PathDependentEvaluators())

	assert.Panics(t, func() { NewAlternationOpenList(1) })
}
