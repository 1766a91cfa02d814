package planner

import (
	"fmt"

	"go.uber.org/zap"
)

// Step expands exactly one node of the direction picked by the scheduling
// policy and reports whether the search is still running.
//
// Stale open list entries (closed or dead-end nodes, backward states the
// symbolic closed list already covers) are discarded without counting as
// an expansion. In front-to-front mode a popped node whose stored pairing
// is outdated may be re-scored and put back instead of expanded, as the
// reevaluation policy dictates.
func (s *BidirectionalSearch) Step() SearchStatus {
	s.Initialize()
	if s.status != StatusInProgress {
		return s.status
	}

	id, node, ok := s.selectNode()
	if !ok {
		if s.err == nil {
			s.log.Debug("both open lists exhausted")
		}
		return s.finish(StatusFailed)
	}
	d := s.current
	state := s.registry.Lookup(id)

	// Close, tag, then index symbolically. The opposite direction relies
	// on all three being visible before its next step.
	node.Close()
	node.SetDirection(d)
	f := s.frontier(d)
	f.expanded = append(f.expanded, id)
	if f.closed != nil {
		f.closed.Close(state)
		if err := f.closed.Err(); err != nil {
			s.err = err
			return s.finish(StatusFailed)
		}
	}
	s.stats.Steps++
	s.stats.direction(d).Expanded++

	var status SearchStatus
	if d == Forward {
		status = s.forwardStep(node, state)
	} else {
		status = s.backwardStep(node, state)
	}
	if status != StatusInProgress {
		return s.finish(status)
	}
	if s.cfg.scheduling == Alternate {
		s.current = d.Opposite()
	}
	return StatusInProgress
}

// canExpand reports whether direction d has entries and is below its step
// cap.
func (s *BidirectionalSearch) canExpand(d Direction) bool {
	if s.frontier(d).open.Empty() {
		return false
	}
	return s.cfg.maxSteps == 0 || s.stats.direction(d).Expanded < s.cfg.maxSteps
}

// pickDirection applies the scheduling policy, falling back to whichever
// direction can still expand.
func (s *BidirectionalSearch) pickDirection() {
	if s.cfg.scheduling == BalanceSteps {
		if s.stats.Backward.Expanded < s.stats.Forward.Expanded {
			s.current = Backward
		} else {
			s.current = Forward
		}
	}
	if !s.canExpand(Forward) {
		s.current = Backward
	}
	if !s.canExpand(Backward) {
		s.current = Forward
	}
}

// selectNode pops open list entries until one is fit for expansion. When
// entries remain but both directions reached their step cap, it sets the
// search error.
func (s *BidirectionalSearch) selectNode() (StateID, SearchNode, bool) {
	for {
		fwd, bwd := s.frontier(Forward), s.frontier(Backward)
		if !s.canExpand(Forward) && !s.canExpand(Backward) {
			if !fwd.open.Empty() || !bwd.open.Empty() {
				s.err = fmt.Errorf("%w: %d steps per direction", ErrSearchLimitReached, s.cfg.maxSteps)
			}
			return NoState, SearchNode{}, false
		}
		s.pickDirection()
		d := s.current
		f := s.frontier(d)

		id := f.open.RemoveMin()
		node := s.space.Node(id)
		if node.IsClosed() || node.IsDeadEnd() {
			continue
		}
		if d == Backward && f.closed != nil && f.closed.IsClosed(s.registry.Lookup(id)) {
			continue
		}
		if s.reevaluate(d, id, node) {
			continue
		}
		return id, node, true
	}
}

// reevaluate re-scores a front-to-front node against the current best
// state of the opposite open list when its pairing is outdated. It reports
// whether the node was handled (reinserted or marked dead end).
func (s *BidirectionalSearch) reevaluate(d Direction, id StateID, node SearchNode) bool {
	if !s.cfg.frontToFront() || s.cfg.reevaluation == ReevalNever {
		return false
	}
	other := s.frontier(d.Opposite())
	if other.open.Empty() {
		return false
	}
	_, topID := other.open.MinValueAndEntry()
	pairID := node.Pair()
	if pairID == topID {
		return false
	}
	if s.cfg.reevaluation == ReevalNotParent && s.space.Node(topID).Parent() == pairID {
		return false
	}

	f := s.frontier(d)
	state := s.registry.Lookup(id)
	top := s.registry.Lookup(topID)
	var ctx *EvaluationContext
	if d == Forward {
		f.open.SetGoal(top)
		ctx = NewEvaluationContext(state, node.G(), &s.stats)
	} else {
		f.open.SetGoal(state)
		ctx = NewEvaluationContext(top, node.G(), &s.stats)
	}
	node.SetPair(topID)

	ds := s.stats.direction(d)
	ds.Evaluated++
	if f.open.IsDeadEnd(ctx) {
		node.MarkAsDeadEnd()
		ds.DeadEnds++
		return true
	}
	f.open.Insert(ctx, id)
	return true
}

func (s *BidirectionalSearch) recordBranching(ds *DirectionStats, n int) {
	if ds.InitialBranching == -1 {
		ds.InitialBranching = n
	}
	ds.SumBranching += n
}

// collectPreferred fills preferredMask with the operators f's preferred
// heuristics mark for ctx. The heuristics must already aim at the right
// goal.
func (s *BidirectionalSearch) collectPreferred(f *frontier, ctx *EvaluationContext) {
	for _, op := range s.preferredOps {
		s.preferredMask[op] = false
	}
	s.preferredOps = s.preferredOps[:0]
	for _, e := range f.preferred {
		s.preferredOps = e.PreferredOperators(ctx, s.preferredOps)
	}
	for _, op := range s.preferredOps {
		s.preferredMask[op] = true
	}
}

// newContext builds the evaluation context of a generated node, marked
// preferred when op is.
func (s *BidirectionalSearch) newContext(ds *DirectionStats, state []int, g, op int) *EvaluationContext {
	ctx := NewEvaluationContext(state, g, &s.stats)
	if s.preferredMask[op] {
		ctx.SetPreferred(true)
		ds.Preferred++
	}
	return ctx
}

// checkProgress records the preferred-heuristic values of ctx and reports
// whether one of them improved on the best value seen by f.
func (s *BidirectionalSearch) checkProgress(f *frontier, ctx *EvaluationContext) bool {
	improved := false
	for i, e := range f.preferred {
		if v := ctx.Value(e); v < f.bestPreferred[i] {
			f.bestPreferred[i] = v
			improved = true
		}
	}
	return improved
}

// rewardProgress boosts the preferred sublists of f after an improvement.
func (s *BidirectionalSearch) rewardProgress(f *frontier, ctx *EvaluationContext) {
	if s.cfg.boost != 0 && s.checkProgress(f, ctx) {
		f.open.BoostPreferred()
	}
}

// noteOpened keeps track of the deepest node f has opened.
func (s *BidirectionalSearch) noteOpened(f *frontier, node SearchNode) {
	if f.deepest == NoState || node.G() > f.deepestG {
		f.deepest = node.ID()
		f.deepestG = node.G()
	}
}

func (s *BidirectionalSearch) forwardStep(node SearchNode, state []int) SearchStatus {
	id := node.ID()
	if s.checkGoal(id, state) {
		return StatusSolved
	}

	fwd := s.frontier(Forward)
	frontierID := NoState
	switch s.cfg.target {
	case TargetTop:
		if other := s.frontier(Backward).open; !other.Empty() {
			_, topID := other.MinValueAndEntry()
			top := s.registry.Lookup(topID)
			if s.checkFrontierMeeting(id, state, topID, top) {
				return StatusSolved
			}
			frontierID = topID
			fwd.open.SetGoal(top)
		}
	case TargetBGG:
		if s.bggTarget != NoState {
			fwd.open.SetGoal(s.registry.Lookup(s.bggTarget))
		}
	case TargetMaxG:
		if deep := s.frontier(Backward).deepest; deep != NoState {
			target := s.registry.Lookup(deep)
			if s.checkFrontierMeeting(id, state, deep, target) {
				return StatusSolved
			}
			fwd.open.SetGoal(target)
		}
	}
	if len(fwd.preferred) > 0 {
		s.collectPreferred(fwd, NewEvaluationContext(state, node.G(), &s.stats))
	}

	s.opsBuf = s.forwardGen.ApplicableOps(state, s.opsBuf[:0])
	ds := &s.stats.Forward
	s.recordBranching(ds, len(s.opsBuf))

	for _, opIdx := range s.opsBuf {
		op := s.task.Operator(opIdx)
		if node.RealG()+op.Cost >= s.cfg.bound {
			continue
		}

		succID := s.registry.Successor(id, op)
		ds.Generated++
		succ := s.registry.Lookup(succID)
		succNode := s.space.Node(succID)

		for _, e := range fwd.pathDependent {
			e.NotifyStateTransition(state, opIdx, succ)
		}

		if succNode.Direction() == Backward && !succNode.IsNew() {
			s.meet(Forward, id, opIdx, succID, MeetingDirect)
			return StatusSolved
		}

		if bwdClosed := s.frontier(Backward).closed; bwdClosed != nil && bwdClosed.IsClosed(succ) {
			if w := s.witness(Backward, succ); w != NoState {
				s.meet(Forward, id, opIdx, w, MeetingSubsumption)
				return StatusSolved
			}
		}

		if s.cfg.target == TargetBGG {
			if b := s.bggWitness(succ); b != NoState {
				s.meet(Forward, id, opIdx, b, MeetingSubsumption)
				return StatusSolved
			}
		}

		if succNode.IsDeadEnd() {
			continue
		}

		adjusted := s.cfg.costType.Adjust(op.Cost)
		succG := node.G() + adjusted
		if succNode.IsNew() {
			ctx := s.newContext(ds, succ, succG, opIdx)
			ds.Evaluated++
			if fwd.open.IsDeadEnd(ctx) {
				succNode.MarkAsDeadEnd()
				ds.DeadEnds++
				continue
			}
			succNode.Open(node, opIdx, op.Cost, adjusted)
			succNode.SetDirection(Forward)
			if s.cfg.frontToFront() {
				succNode.SetPair(frontierID)
			}
			fwd.open.Insert(ctx, succID)
			s.noteOpened(fwd, succNode)
			s.rewardProgress(fwd, ctx)
		} else if succNode.G() > succG {
			if s.cfg.reopenClosed {
				if succNode.IsClosed() {
					ds.Reopened++
				}
				succNode.Reopen(node, opIdx, op.Cost, adjusted)
				ctx := s.newContext(ds, succ, succNode.G(), opIdx)
				if s.cfg.frontToFront() {
					succNode.SetPair(frontierID)
				}
				fwd.open.Insert(ctx, succID)
			} else {
				succNode.UpdateParent(node, opIdx, op.Cost, adjusted)
			}
		}
	}
	return StatusInProgress
}

func (s *BidirectionalSearch) backwardStep(node SearchNode, state []int) SearchStatus {
	id := node.ID()
	if s.checkInitial(id, state) {
		return StatusSolved
	}

	bwd := s.frontier(Backward)
	frontierState := s.initialValues
	frontierID := s.initialID
	switch s.cfg.target {
	case TargetTop:
		if other := s.frontier(Forward).open; !other.Empty() {
			_, topID := other.MinValueAndEntry()
			top := s.registry.Lookup(topID)
			if s.checkFrontierMeeting(topID, top, id, state) {
				return StatusSolved
			}
			frontierState, frontierID = top, topID
		}
	case TargetMaxG:
		if deep := s.frontier(Forward).deepest; deep != NoState {
			target := s.registry.Lookup(deep)
			if s.checkFrontierMeeting(deep, target, id, state) {
				return StatusSolved
			}
			frontierState, frontierID = target, deep
		}
	}
	if len(bwd.preferred) > 0 {
		bwd.open.SetGoal(state)
		s.collectPreferred(bwd, NewEvaluationContext(frontierState, node.G(), &s.stats))
	}

	s.opsBuf = s.regressionGen.ApplicableOps(state, s.opsBuf[:0])
	ds := &s.stats.Backward
	s.recordBranching(ds, len(s.opsBuf))

	pruneFirst := s.cfg.pruneGoal && s.firstBackward
	s.firstBackward = false

	for _, opIdx := range s.opsBuf {
		if pruneFirst && !s.addsGoalFact(opIdx) {
			continue
		}
		if !s.isRelevant(opIdx, state) {
			continue
		}
		op := s.regression.Operator(opIdx)
		if node.RealG()+op.Cost >= s.cfg.bound {
			continue
		}

		preID := s.registry.Predecessor(id, op)
		if preID == NoState {
			ds.Pruned++
			continue
		}
		ds.Generated++
		pre := s.registry.Lookup(preID)

		if s.cfg.pruneGoal && IsGoalState(s.task, pre) {
			continue
		}

		preNode := s.space.Node(preID)
		for _, e := range bwd.pathDependent {
			e.NotifyStateTransition(pre, opIdx, state)
		}

		if preNode.Direction() == Forward && !preNode.IsNew() {
			s.meet(Backward, preID, opIdx, id, MeetingDirect)
			return StatusSolved
		}

		if fwdClosed := s.frontier(Forward).closed; fwdClosed != nil && fwdClosed.IsSubsumed(pre) {
			if w := s.witness(Forward, pre); w != NoState {
				s.meet(Backward, w, opIdx, id, MeetingSubsumption)
				return StatusSolved
			}
		}

		if bwd.closed != nil && preNode.IsNew() && bwd.closed.IsClosed(pre) {
			preNode.Close()
			ds.Pruned++
			continue
		}

		if preNode.IsDeadEnd() {
			continue
		}

		adjusted := s.cfg.costType.Adjust(op.Cost)
		preG := node.G() + adjusted
		if preNode.IsNew() {
			bggValue := InfiniteValue
			if s.bggEval != nil {
				s.bggEval.SetGoal(pre)
				ds.Evaluated++
				r := NewEvaluationContext(s.initialValues, preG, &s.stats).Result(s.bggEval)
				if r.DeadEnd {
					continue
				}
				bggValue = r.Value
			}

			bwd.open.SetGoal(pre)
			ctx := s.newContext(ds, frontierState, preG, opIdx)
			ds.Evaluated++
			if bwd.open.IsDeadEnd(ctx) {
				preNode.MarkAsDeadEnd()
				ds.DeadEnds++
				continue
			}
			preNode.Open(node, opIdx, op.Cost, adjusted)
			preNode.SetDirection(Backward)
			if s.cfg.frontToFront() {
				preNode.SetPair(frontierID)
			}
			bwd.open.Insert(ctx, preID)
			s.noteOpened(bwd, preNode)
			s.rewardProgress(bwd, ctx)

			if s.bggEval != nil {
				s.bggs = append(s.bggs, preID)
				if bggValue < s.bggBest {
					s.bggBest = bggValue
					s.bggTarget = preID
				}
			}
		} else if preNode.G() > preG {
			if s.cfg.reopenClosed {
				if preNode.IsClosed() {
					ds.Reopened++
				}
				preNode.Reopen(node, opIdx, op.Cost, adjusted)
				bwd.open.SetGoal(pre)
				ctx := s.newContext(ds, frontierState, preNode.G(), opIdx)
				if s.cfg.frontToFront() {
					preNode.SetPair(frontierID)
				}
				bwd.open.Insert(ctx, preID)
			} else {
				preNode.UpdateParent(node, opIdx, op.Cost, adjusted)
			}
		}
	}

	if s.log.Core().Enabled(zap.DebugLevel) {
		s.log.Debug("backward expansion",
			zap.Int32("state", int32(id)),
			zap.String("values", s.partial.Format(state)),
			zap.Int("applicable", len(s.opsBuf)),
		)
	}
	return StatusInProgress
}

// isRelevant reports whether forward operator i achieves at least one
// concrete entry of the partial state. Operators that only touch unknown
// variables cannot lead to the state.
func (s *BidirectionalSearch) isRelevant(i int, state []int) bool {
	for _, eff := range s.task.Operator(i).Effects {
		if state[eff.Fact.Var] == eff.Fact.Value {
			return true
		}
	}
	return false
}

// addsGoalFact reports whether forward operator i achieves a fact of the
// backward seed.
func (s *BidirectionalSearch) addsGoalFact(i int) bool {
	for _, eff := range s.task.Operator(i).Effects {
		if s.goalValues[eff.Fact.Var] == eff.Fact.Value {
			return true
		}
	}
	return false
}
