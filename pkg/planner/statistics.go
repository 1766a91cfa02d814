package planner

import (
	"fmt"
	"time"
)

// MeetingKind says how the two frontiers were joined.
type MeetingKind int

const (
	MeetingNone MeetingKind = iota
	// MeetingDirect: a generated state was already reached by the other
	// direction.
	MeetingDirect
	// MeetingSubsumption: the symbolic closed list of the other direction
	// overlaps the generated state and a witness was found.
	MeetingSubsumption
	// MeetingFrontier: the expanded state matches the best state of the
	// opposite open list (front-to-front mode).
	MeetingFrontier
	// MeetingGoal: a forward state satisfies the goal.
	MeetingGoal
	// MeetingInitial: a backward state is compatible with the initial state.
	MeetingInitial
)

func (k MeetingKind) String() string {
	switch k {
	case MeetingDirect:
		return "direct"
	case MeetingSubsumption:
		return "subsumption"
	case MeetingFrontier:
		return "frontier"
	case MeetingGoal:
		return "goal"
	case MeetingInitial:
		return "initial"
	default:
		return "none"
	}
}

// DirectionStats holds the counters of one search direction.
type DirectionStats struct {
	Expanded  int // nodes removed from the open list and expanded
	Generated int // successors or predecessors produced
	Evaluated int // states put through the open list's evaluators
	DeadEnds  int // states rejected by an evaluator
	Reopened  int // closed nodes moved back to open
	Preferred int // generated nodes reached by a preferred operator
	// Pruned counts predecessors that were mutex-inconsistent or already
	// covered by the symbolic closed list.
	Pruned int

	InitialBranching int // applicable operators in the first expanded state, -1 if none
	SumBranching     int // applicable operators summed over every expansion
	// PlanSteps is the number of plan operators contributed by this side.
	PlanSteps int
}

// AverageBranching returns SumBranching / Expanded, or 0.
func (d DirectionStats) AverageBranching() float64 {
	if d.Expanded == 0 {
		return 0
	}
	return float64(d.SumBranching) / float64(d.Expanded)
}

// Statistics summarizes one search run.
type Statistics struct {
	Forward  DirectionStats
	Backward DirectionStats

	// Evaluations counts heuristic computations, cached lookups excluded.
	Evaluations int
	// Steps counts calls to Step that expanded a node.
	Steps int

	Meeting    MeetingKind
	PlanLength int
	PlanCost   int

	RegisteredStates int
	SearchTime       time.Duration
}

func (s *Statistics) direction(d Direction) *DirectionStats {
	if d == Backward {
		return &s.Backward
	}
	return &s.Forward
}

// Expanded returns the number of expansions in both directions.
func (s Statistics) Expanded() int { return s.Forward.Expanded + s.Backward.Expanded }

// Generated returns the number of generated states in both directions.
func (s Statistics) Generated() int { return s.Forward.Generated + s.Backward.Generated }

func (s Statistics) String() string {
	return fmt.Sprintf(
		"Search Statistics:\n"+
			"  Forward:  %d expanded, %d generated, %d evaluated, %d dead ends, %d reopened, %d preferred, branching %d initial / %.2f avg\n"+
			"  Backward: %d expanded, %d generated, %d evaluated, %d dead ends, %d reopened, %d preferred, %d pruned, branching %d initial / %.2f avg\n"+
			"  Search: %d steps, %d evaluations, %d registered states, %v time\n"+
			"  Plan: meeting %s, %d forward + %d backward actions, length %d, cost %d",
		s.Forward.Expanded, s.Forward.Generated, s.Forward.Evaluated, s.Forward.DeadEnds, s.Forward.Reopened,
		s.Forward.Preferred, s.Forward.InitialBranching, s.Forward.AverageBranching(),
		s.Backward.Expanded, s.Backward.Generated, s.Backward.Evaluated, s.Backward.DeadEnds, s.Backward.Reopened,
		s.Backward.Preferred, s.Backward.Pruned, s.Backward.InitialBranching, s.Backward.AverageBranching(),
		s.Steps, s.Evaluations, s.RegisteredStates, s.SearchTime,
		s.Meeting, s.Forward.PlanSteps, s.Backward.PlanSteps, s.PlanLength, s.PlanCost,
	)
}
