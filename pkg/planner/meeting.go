package planner

import "go.uber.org/zap"

// meet stitches the plan for a transition via op between the forward node
// fwdID and the backward node bwdID. dir is the direction that generated
// the transition; the operator is attributed to that side.
//
//	prefix = trace(fwdID)               init ... fwdID
//	suffix = reverse(trace(bwdID))      bwdID ... goal
//	plan   = prefix + [op] + suffix
func (s *BidirectionalSearch) meet(dir Direction, fwdID StateID, op int, bwdID StateID, kind MeetingKind) {
	prefix := s.space.TracePath(fwdID)
	suffix := s.space.TracePath(bwdID)
	reverseInts(suffix)

	plan := make(Plan, 0, len(prefix)+1+len(suffix))
	plan = append(plan, prefix...)
	plan = append(plan, op)
	plan = append(plan, suffix...)

	s.stats.Forward.PlanSteps = len(prefix)
	s.stats.Backward.PlanSteps = len(suffix)
	if dir == Forward {
		s.stats.Forward.PlanSteps++
	} else {
		s.stats.Backward.PlanSteps++
	}
	s.setPlan(plan, kind, fwdID, bwdID)
}

// checkGoal is the degenerate forward meeting: a forward state that
// satisfies the goal needs no backward suffix.
func (s *BidirectionalSearch) checkGoal(id StateID, state []int) bool {
	if !IsGoalState(s.task, state) {
		return false
	}
	plan := Plan(s.space.TracePath(id))
	s.stats.Forward.PlanSteps = len(plan)
	s.stats.Backward.PlanSteps = 0
	s.setPlan(plan, MeetingGoal, id, NoState)
	return true
}

// checkInitial is the degenerate backward meeting: a backward state whose
// known entries all agree with the initial state needs no forward prefix.
func (s *BidirectionalSearch) checkInitial(id StateID, state []int) bool {
	if !s.partial.Matches(state, s.initialValues) {
		return false
	}
	plan := Plan(s.space.TracePath(id))
	reverseInts(plan)
	s.stats.Forward.PlanSteps = 0
	s.stats.Backward.PlanSteps = len(plan)
	s.setPlan(plan, MeetingInitial, NoState, id)
	return true
}

// checkFrontierMeeting tests whether the backward state covers the forward
// one. Both are frontier states, so the plan has no connecting operator.
func (s *BidirectionalSearch) checkFrontierMeeting(fwdID StateID, fwd []int, bwdID StateID, bwd []int) bool {
	if !s.partial.Matches(bwd, fwd) {
		return false
	}
	prefix := s.space.TracePath(fwdID)
	suffix := s.space.TracePath(bwdID)
	reverseInts(suffix)
	s.stats.Forward.PlanSteps = len(prefix)
	s.stats.Backward.PlanSteps = len(suffix)
	s.setPlan(append(Plan(prefix), suffix...), MeetingFrontier, fwdID, bwdID)
	return true
}

// witness finds an expanded state of direction d that meets state: for the
// backward direction a partial state state concretizes, for the forward
// direction a concrete state matching the partial state. NoState if none.
func (s *BidirectionalSearch) witness(d Direction, state []int) StateID {
	buf := make([]int, s.task.NumVariables())
	for _, id := range s.frontier(d).expanded {
		if s.space.Node(id).Direction() != d {
			continue
		}
		s.registry.unpack(id, buf)
		if d == Backward && s.partial.Matches(buf, state) {
			return id
		}
		if d == Forward && s.partial.Matches(state, buf) {
			return id
		}
	}
	return NoState
}

// bggWitness finds a generated backward state that state concretizes.
// Only consulted under TargetBGG, where every opened backward state is
// kept, not just the expanded ones.
func (s *BidirectionalSearch) bggWitness(state []int) StateID {
	buf := make([]int, s.task.NumVariables())
	for _, id := range s.bggs {
		s.registry.unpack(id, buf)
		if s.partial.Matches(buf, state) {
			return id
		}
	}
	return NoState
}

func (s *BidirectionalSearch) setPlan(plan Plan, kind MeetingKind, fwdID, bwdID StateID) {
	s.plan = plan
	s.stats.Meeting = kind
	s.log.Debug("frontiers met",
		zap.String("kind", kind.String()),
		zap.Int32("forward_state", int32(fwdID)),
		zap.Int32("backward_state", int32(bwdID)),
		zap.Int("forward_actions", s.stats.Forward.PlanSteps),
		zap.Int("backward_actions", s.stats.Backward.PlanSteps),
	)
}
