package planner

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegressionTask_RejectsAxioms(t *testing.T) {
	task := singleOpTask(t)
	task.Axioms = []Operator{{Name: "derive", Effects: []Effect{eff(0, 1)}}}

	_, err := NewRegressionTask(task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAxiomsUnsupported))

	var taskErr *TaskError
	require.True(t, errors.As(err, &taskErr))
	assert.Equal(t, ErrAxiomsUnsupported, taskErr.Kind)

	_, err = NewBidirectionalSearch(task)
	assert.True(t, errors.Is(err, ErrAxiomsUnsupported), "search construction must fail before any step")
}

func TestNewRegressionTask_RejectsConditionalEffects(t *testing.T) {
	task := pinningTask(t)
	task.Operators[0].Effects = append(task.Operators[0].Effects, Effect{
		Fact:       Fact{Var: 1, Value: 1},
		Conditions: []Fact{{Var: 0, Value: 0}},
	})

	_, err := NewRegressionTask(task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConditionalEffects))
	assert.Contains(t, err.Error(), "flip-z")
}

func TestRegressionTask_MutexSymmetry(t *testing.T) {
	tasks := []*ExplicitTask{gripperTask(t), pinningTask(t)}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		tasks = append(tasks, randomTask(t, rng))
	}

	for _, task := range tasks {
		rt, err := NewRegressionTask(task)
		require.NoError(t, err)
		n := task.NumVariables()
		for v1 := 0; v1 < n; v1++ {
			for v2 := 0; v2 < n; v2++ {
				if v1 == v2 {
					continue
				}
				for a := 0; a < task.DomainSize(v1); a++ {
					for b := 0; b < task.DomainSize(v2); b++ {
						f1, f2 := Fact{v1, a}, Fact{v2, b}
						assert.Equal(t, rt.IsMutex(f1, f2), rt.IsMutex(f2, f1), "%v %v", f1, f2)
						assert.Equal(t, task.AreFactsMutex(f1, f2), rt.IsMutex(f1, f2), "%v %v", f1, f2)
					}
				}
			}
		}
		for v := 0; v < n; v++ {
			for val := 0; val < task.DomainSize(v); val++ {
				for _, m := range rt.Mutexes().Mutexes(Fact{v, val}) {
					assert.NotEqual(t, v, m.Var, "mutex table only relates different variables")
				}
			}
		}
	}
}

func TestRegressionTask_OperatorConstruction(t *testing.T) {
	rt, err := NewRegressionTask(pinningTask(t))
	require.NoError(t, err)
	require.Equal(t, 1, rt.NumOperators())

	op := rt.Operator(0)
	assert.Equal(t, "flip-z", op.Name)
	assert.Equal(t, 1, op.Cost)
	assert.Equal(t, []RegressionCondition{
		{Fact: Fact{0, 0}},
		{Fact: Fact{2, 1}},
		{Fact: Fact{1, 0}, Negative: true},
	}, op.Preconditions)
	assert.Equal(t, []Fact{{0, 0}, {2, 0}}, op.Effects)
}

func TestRegressionTask_EffectWithoutPreconditionResetsToUnknown(t *testing.T) {
	task := pinningTask(t)
	task.Operators = []Operator{{Name: "set-x", Cost: 2, Effects: []Effect{eff(0, 1)}}}
	rt, err := NewRegressionTask(task)
	require.NoError(t, err)

	op := rt.Operator(0)
	assert.Equal(t, []RegressionCondition{{Fact: Fact{0, 1}}}, op.Preconditions)
	assert.Equal(t, []Fact{{0, rt.PartialTask().Unknown(0)}}, op.Effects)
}

func TestRegressionOperator_IsApplicable(t *testing.T) {
	rt, err := NewRegressionTask(pinningTask(t))
	require.NoError(t, err)
	p := rt.PartialTask()
	op := rt.Operator(0)

	assert.True(t, op.IsApplicable(p, []int{0, 1, 1}))
	assert.True(t, op.IsApplicable(p, []int{2, 2, 2}), "unknown satisfies positive and negative conditions")
	assert.False(t, op.IsApplicable(p, []int{0, 0, 1}), "negative condition y=0")
	assert.False(t, op.IsApplicable(p, []int{1, 1, 1}), "positive condition x=0")
}

func TestRegressionTask_GoalStateValuesArePinned(t *testing.T) {
	rt, err := NewRegressionTask(pinningTask(t))
	require.NoError(t, err)

	// goal x=0, z=1; x=0 excludes y=0, leaving y=1 as the only candidate
	assert.Equal(t, []int{0, 1, 1}, rt.GoalStateValues())
	assert.Equal(t, []int{0, 2, 1}, rt.PartialTask().GoalStateValues(), "the plain view is not tightened")
}

// Regressing a forward transition s -op-> s' must give a predecessor whose
// known entries all agree with s.
func TestRegression_Soundness(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tasks := []*ExplicitTask{gripperTask(t), pinningTask(t), singleOpTask(t)}
	for i := 0; i < 40; i++ {
		tasks = append(tasks, randomTask(t, rng))
	}

	for ti, task := range tasks {
		rt, err := NewRegressionTask(task)
		require.NoError(t, err)
		p := rt.PartialTask()
		reg := NewStateRegistry(rt)

		for _, s := range reachableStates(task) {
			for i := 0; i < task.NumOperators(); i++ {
				fop := task.Operator(i)
				if !fop.IsApplicable(s) {
					continue
				}
				succ := fop.Apply(s)
				rop := rt.Operator(i)
				require.True(t, rop.IsApplicable(p, succ), "task %d: %s not regressable from %v", ti, fop.Name, succ)

				pre := reg.Predecessor(reg.Insert(succ), rop)
				require.NotEqual(t, NoState, pre, "task %d: %s from %v", ti, fop.Name, succ)
				assert.True(t, p.Matches(reg.Lookup(pre), s), "task %d: %s: %v does not cover %v", ti, fop.Name, reg.Lookup(pre), s)
			}
		}
	}
}
