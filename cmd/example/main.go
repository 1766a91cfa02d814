// Package main walks through the building blocks of the bidirectional
// planner on a small delivery task.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gitrdm/gokanplan/pkg/planner"
)

func main() {
	fmt.Println("=== gokanplan Examples ===")
	fmt.Println()

	task := delivery()

	partialStates(task)
	regressionOperators(task)
	predecessors(task)
	subsumption(task)
	bidirectionalSearch(task)
	configurationComparison(task)
}

// delivery: a truck moves between depot, city and port; the parcel starts
// at the depot and must reach the port.
func delivery() *planner.ExplicitTask {
	places := []string{"depot", "city", "port"}
	vars := []planner.Variable{
		{Name: "truck", Values: places},
		{Name: "parcel", Values: append(append([]string{}, places...), "truck")},
	}
	const truck, parcel, inTruck = 0, 1, 3

	var ops []planner.Operator
	for from := range places {
		for to := range places {
			if from == to {
				continue
			}
			ops = append(ops, planner.Operator{
				Name:          fmt.Sprintf("drive %s %s", places[from], places[to]),
				Cost:          2,
				Preconditions: []planner.Fact{{Var: truck, Value: from}},
				Effects:       []planner.Effect{{Fact: planner.Fact{Var: truck, Value: to}}},
			})
		}
		ops = append(ops,
			planner.Operator{
				Name:          "load " + places[from],
				Cost:          1,
				Preconditions: []planner.Fact{{Var: truck, Value: from}, {Var: parcel, Value: from}},
				Effects:       []planner.Effect{{Fact: planner.Fact{Var: parcel, Value: inTruck}}},
			},
			planner.Operator{
				Name:          "unload " + places[from],
				Cost:          1,
				Preconditions: []planner.Fact{{Var: truck, Value: from}, {Var: parcel, Value: inTruck}},
				Effects:       []planner.Effect{{Fact: planner.Fact{Var: parcel, Value: from}}},
			},
		)
	}

	task, err := planner.NewExplicitTask(vars, ops, nil, []int{0, 0}, []planner.Fact{{Var: parcel, Value: 2}})
	if err != nil {
		panic(err)
	}
	return task
}

func regression(task planner.Task) *planner.RegressionTask {
	rt, err := planner.NewRegressionTask(task)
	if err != nil {
		panic(err)
	}
	return rt
}

// partialStates shows the extra unknown value of every variable.
func partialStates(task *planner.ExplicitTask) {
	fmt.Println("1. Partial States:")

	p := planner.NewPartialStateTask(task)
	for v := 0; v < p.NumVariables(); v++ {
		fmt.Printf("   %s: %d values, unknown = %d\n", task.VariableName(v), p.DomainSize(v), p.Unknown(v))
	}

	goal := p.GoalStateValues()
	fmt.Printf("   goal as a partial state: %s\n", p.Format(goal))
	fmt.Printf("   matches truck=city, parcel=port: %v\n", p.Matches(goal, []int{1, 2}))
	fmt.Printf("   matches the initial state: %v\n", p.Matches(goal, task.InitialState()))
	fmt.Println()
}

// regressionOperators prints the inverse of a few operators.
func regressionOperators(task *planner.ExplicitTask) {
	fmt.Println("2. Regression Operators:")

	rt := regression(task)
	p := rt.PartialTask()
	for _, name := range []string{"drive depot city", "unload port"} {
		op := rt.Operator(planner.OperatorIndex(task, name))
		fmt.Printf("   %s\n", op.Name)
		for _, c := range op.Preconditions {
			sign := ""
			if c.Negative {
				sign = "not "
			}
			fmt.Printf("     requires %s%s\n", sign, p.FactName(c.Fact))
		}
		for _, f := range op.Effects {
			fmt.Printf("     sets %s\n", p.FactName(f))
		}
	}
	fmt.Println()
}

// predecessors regresses the goal twice through the registry.
func predecessors(task *planner.ExplicitTask) {
	fmt.Println("3. Regressing the Goal:")

	rt := regression(task)
	p := rt.PartialTask()
	registry := planner.NewStateRegistry(rt)
	gen := planner.NewRegressionGenerator(rt)

	goal := registry.Insert(rt.GoalStateValues())
	fmt.Printf("   goal %s\n", p.Format(registry.Lookup(goal)))
	for _, op := range gen.ApplicableOps(registry.Lookup(goal), nil) {
		pre := registry.Predecessor(goal, rt.Operator(op))
		if pre == planner.NoState {
			fmt.Printf("   <- %-18s inconsistent\n", rt.Operator(op).Name)
			continue
		}
		fmt.Printf("   <- %-18s %s\n", rt.Operator(op).Name, p.Format(registry.Lookup(pre)))
	}
	fmt.Printf("   %d states registered\n", registry.Size())
	fmt.Println()
}

// subsumption closes a partial state and queries concrete ones.
func subsumption(task *planner.ExplicitTask) {
	fmt.Println("4. Symbolic Closed List:")

	p := planner.NewPartialStateTask(task)
	closed, err := planner.NewSymbolicClosedList(p)
	if err != nil {
		panic(err)
	}

	truckAtPort := []int{2, p.Unknown(1)}
	closed.Close(truckAtPort)
	fmt.Printf("   closed %s\n", p.Format(truckAtPort))
	for _, s := range [][]int{{2, 0}, {2, 3}, {1, 0}, {p.Unknown(0), 0}} {
		fmt.Printf("   %-32s closed=%-5v subsumed=%v\n", p.Format(s), closed.IsClosed(s), closed.IsSubsumed(s))
	}
	fmt.Println()
}

// bidirectionalSearch solves the task with the default configuration.
func bidirectionalSearch(task *planner.ExplicitTask) {
	fmt.Println("5. Bidirectional Search:")

	search, err := planner.NewBidirectionalSearch(task)
	if err != nil {
		panic(err)
	}
	plan, err := search.Search(context.Background())
	if err != nil {
		fmt.Println("   no plan:", err)
		return
	}

	for _, name := range plan.Names(task) {
		fmt.Printf("   (%s)\n", name)
	}
	stats := search.Statistics()
	fmt.Printf("   cost %d, meeting %s, %d forward + %d backward steps\n",
		plan.Cost(task), stats.Meeting, stats.Forward.PlanSteps, stats.Backward.PlanSteps)
	fmt.Println()
}

// configurationComparison runs the same task under different settings.
func configurationComparison(task *planner.ExplicitTask) {
	fmt.Println("6. Configuration Comparison:")

	astar, err := planner.NamedOpenLists(planner.HeuristicMax, planner.KindAStar, 1)
	if err != nil {
		panic(err)
	}
	goalCount, err := planner.NamedOpenLists(planner.HeuristicGoalCount, planner.KindGreedy, 1)
	if err != nil {
		panic(err)
	}

	configs := []struct {
		name string
		opts []planner.Option
	}{
		{"default", nil},
		{"astar hmax", []planner.Option{planner.WithOpenListFactory(astar)}},
		{"balance steps", []planner.Option{planner.WithScheduling(planner.BalanceSteps)}},
		{"front-to-front", []planner.Option{planner.WithOpenListFactory(goalCount), planner.WithFrontToFront(true)}},
		{"unit cost", []planner.Option{planner.WithCostType(planner.OneCost)}},
		{"forward only", []planner.Option{planner.WithMode(planner.ModeForward)}},
		{"regression only", []planner.Option{planner.WithMode(planner.ModeRegression)}},
		{"preferred ff", []planner.Option{
			planner.WithPreferredOperators(planner.HeuristicFF), planner.WithPreferredBoost(1000)}},
		{"bgg", []planner.Option{planner.WithOpenListFactory(goalCount), planner.WithFrontierTarget(planner.TargetBGG)}},
	}

	for _, c := range configs {
		search, err := planner.NewBidirectionalSearch(task, c.opts...)
		if err != nil {
			panic(err)
		}
		start := time.Now()
		plan, err := search.Search(context.Background())
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("   %-15s %v\n", c.name, err)
			continue
		}
		stats := search.Statistics()
		fmt.Printf("   %-15s cost %2d, %2d expanded, meeting %-11s %v\n",
			c.name, plan.Cost(task), stats.Expanded(), stats.Meeting, elapsed.Round(time.Microsecond))
	}
	fmt.Println()
}
