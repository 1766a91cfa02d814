package taskfile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/gokanplan/pkg/planner"
)

func solve(t *testing.T, task planner.Task) planner.Plan {
	t.Helper()
	search, err := planner.NewBidirectionalSearch(task)
	require.NoError(t, err)
	plan, err := search.Search(context.Background())
	require.NoError(t, err)
	require.NoError(t, plan.Validate(task))
	return plan
}

func TestLoad_GripperYAML(t *testing.T) {
	task, doc, err := Load(filepath.Join("testdata", "gripper.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gripper", doc.Name)
	require.Equal(t, 4, task.NumVariables())
	assert.Equal(t, 10, task.NumOperators())
	assert.Equal(t, []int{0, 0, 0, 0}, task.InitialState())
	assert.Equal(t, []planner.Fact{{Var: 1, Value: 1}, {Var: 2, Value: 1}}, task.Goals())

	pick := task.Operator(2)
	assert.Equal(t, "pick ball1 A", pick.Name)
	assert.Equal(t, 1, pick.Cost)
	assert.Equal(t, []planner.Fact{{Var: 0, Value: 0}, {Var: 1, Value: 0}, {Var: 3, Value: 0}}, pick.Preconditions)
	assert.Equal(t, []planner.Effect{
		{Fact: planner.Fact{Var: 1, Value: 2}},
		{Fact: planner.Fact{Var: 3, Value: 1}},
	}, pick.Effects)

	assert.True(t, task.AreFactsMutex(planner.Fact{Var: 1, Value: 2}, planner.Fact{Var: 3, Value: 0}))
	assert.True(t, task.AreFactsMutex(planner.Fact{Var: 2, Value: 2}, planner.Fact{Var: 1, Value: 2}))
	assert.False(t, task.AreFactsMutex(planner.Fact{Var: 0, Value: 0}, planner.Fact{Var: 1, Value: 2}))

	plan := solve(t, task)
	assert.GreaterOrEqual(t, len(plan), 7)
}

func TestLoad_CounterJSON(t *testing.T) {
	task, doc, err := Load(filepath.Join("testdata", "counter.json"))
	require.NoError(t, err)
	assert.Equal(t, "counter", doc.Name)
	assert.Equal(t, 0, task.Operator(3).Cost, "explicit zero cost is kept")
	assert.Empty(t, task.Operator(3).Preconditions)

	plan := solve(t, task)
	assert.Equal(t, 6, plan.Cost(task))
}

func TestLoad_SwitchesTOML(t *testing.T) {
	task, _, err := Load(filepath.Join("testdata", "switches.toml"))
	require.NoError(t, err)
	assert.Equal(t, 3, task.Operator(1).Cost)
	assert.True(t, task.AreFactsMutex(planner.Fact{Var: 0, Value: 1}, planner.Fact{Var: 1, Value: 1}))

	plan := solve(t, task)
	assert.Equal(t, []string{"toggle-a", "swap"}, plan.Names(task))
}

func TestLoad_ConditionalEffectsReachPlanner(t *testing.T) {
	task, doc, err := Load(filepath.Join("testdata", "conditional.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "conditional", doc.Name, "name defaults to the file name")

	flip := task.Operator(0)
	require.Len(t, flip.Effects, 2)
	assert.Equal(t, []planner.Fact{{Var: 0, Value: 1}}, flip.Effects[1].Conditions)

	_, err = planner.NewBidirectionalSearch(task)
	assert.ErrorIs(t, err, planner.ErrConditionalEffects)
}

func TestParse_Axioms(t *testing.T) {
	doc, err := Parse([]byte(`
variables:
  - {name: a, values: ["0", "1"]}
  - {name: d, values: ["0", "1"]}
operators:
  - {name: set-a, eff: {a: "1"}}
axioms:
  - {name: derive, pre: {a: "1"}, eff: {d: "1"}}
init: {a: "0", d: "0"}
goal: {d: "1"}
`), FormatYAML)
	require.NoError(t, err)
	task, err := doc.Build()
	require.NoError(t, err)
	assert.Equal(t, 1, task.NumAxioms())

	_, err = planner.NewBidirectionalSearch(task)
	assert.ErrorIs(t, err, planner.ErrAxiomsUnsupported)
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown key", "variabels: []", "field variabels not found"},
		{"duplicate variable", `
variables: [{name: a, values: ["0"]}, {name: a, values: ["0"]}]`, `duplicate variable "a"`},
		{"empty domain", `variables: [{name: a, values: []}]`, "empty domain"},
		{"unknown value", `
variables: [{name: a, values: ["0"]}]
init: {a: "1"}`, `variable "a" has no value "1"`},
		{"missing init", `
variables: [{name: a, values: ["0"]}, {name: b, values: ["0"]}]
init: {a: "0"}`, `init: variable "b" has no value`},
		{"unknown variable in pre", `
variables: [{name: a, values: ["0"]}]
operators: [{name: o, pre: {b: "0"}, eff: {a: "0"}}]
init: {a: "0"}`, `operator "o" pre: unknown variable "b"`},
		{"no effects", `
variables: [{name: a, values: ["0"]}]
operators: [{name: o}]
init: {a: "0"}`, `operator "o" has no effects`},
		{"bad mutex", `
variables: [{name: a, values: ["0"]}]
mutex: [[a0]]
init: {a: "0"}`, "is not var=value"},
		{"negative cost", `
variables: [{name: a, values: ["0"]}]
operators: [{name: o, cost: -1, eff: {a: "0"}}]
init: {a: "0"}`, "negative cost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.doc), FormatYAML)
			if err == nil {
				_, err = doc.Build()
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuild_NegativeCostIsInvalidTask(t *testing.T) {
	doc := &Document{
		Variables: []VariableSpec{{Name: "a", Values: []string{"0"}}},
		Operators: []OperatorSpec{{Name: "o", Cost: new(int), Eff: map[string]string{"a": "0"}}},
		Init:      map[string]string{"a": "0"},
	}
	*doc.Operators[0].Cost = -2
	_, err := doc.Build()
	var taskErr *planner.TaskError
	require.True(t, errors.As(err, &taskErr))
	assert.ErrorIs(t, err, planner.ErrInvalidTask)
}

func TestParse_UnknownTOMLKey(t *testing.T) {
	_, err := Parse([]byte("nmae = \"x\"\n"), FormatTOML)
	assert.ErrorContains(t, err, `unknown toml key "nmae"`)
}

func TestFormatFromPath(t *testing.T) {
	for path, want := range map[string]Format{
		"a.yaml": FormatYAML, "b.YML": FormatYAML, "c.json": FormatJSON, "d.toml": FormatTOML,
	} {
		got, err := FormatFromPath(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := FormatFromPath("task.pddl")
	assert.ErrorContains(t, err, "unsupported")
	_, _, err = Load("task.pddl")
	assert.Error(t, err)
}
