package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SearchStatus is the outcome of one Step.
type SearchStatus int

const (
	StatusInProgress SearchStatus = iota
	StatusSolved
	StatusFailed
)

func (s SearchStatus) String() string {
	switch s {
	case StatusSolved:
		return "solved"
	case StatusFailed:
		return "failed"
	default:
		return "in progress"
	}
}

// frontier bundles everything one search direction owns.
type frontier struct {
	open OpenList
	// closed holds every state expanded in this direction, symbolically.
	// Nil when symbolic closed lists are disabled.
	closed *SymbolicClosedList
	// expanded lists the same states explicitly, in expansion order; it
	// is scanned for meeting witnesses.
	expanded      []StateID
	pathDependent []Evaluator

	// preferred holds the preferred-operator heuristics of the direction
	// and bestPreferred their lowest values seen so far.
	preferred     []PreferredOperatorEvaluator
	bestPreferred []int

	// deepest is the opened node with the largest g-value, the target of
	// the opposite direction under TargetMaxG.
	deepest  StateID
	deepestG int
}

// BidirectionalSearch runs a forward search from the initial state and a
// regression search from the goal, and stops when the two meet.
//
// The search is single-threaded and driven by Step, which performs exactly
// one expansion. Search loops Step until the run is decided.
//
// Both directions share one StateRegistry and one SearchSpace. A state's
// record carries the direction that opened it; a direction never opens a
// state tagged by the other one, it reports a meeting instead. After every
// expansion the node is closed, tagged and added to its direction's
// symbolic closed list, in that order, before control returns to the
// scheduler, so the next meeting test of the opposite direction sees it.
type BidirectionalSearch struct {
	cfg *searchConfig
	log *zap.Logger

	task       Task
	regression *RegressionTask
	partial    *PartialStateTask
	registry   *StateRegistry
	space      *SearchSpace

	forwardGen    *SuccessorGenerator
	regressionGen *SuccessorGenerator

	frontiers [2]frontier

	initialValues []int
	goalValues    []int
	initialID     StateID
	goalID        StateID

	// BGG bookkeeping: generated backward states, and the one the BGG
	// heuristic ranks closest to the initial state.
	bggEval   Evaluator
	bggs      []StateID
	bggBest   int
	bggTarget StateID

	current       Direction
	firstBackward bool
	initialized   bool

	status SearchStatus
	plan   Plan
	err    error
	stats  Statistics
	start  time.Time

	opsBuf        []int
	preferredOps  []int
	preferredMask []bool
}

// NewBidirectionalSearch builds the regression view of task and the
// machinery for both directions. It fails when task has axioms or
// conditional effects.
func NewBidirectionalSearch(task Task, opts ...Option) (*BidirectionalSearch, error) {
	cfg := defaultSearchConfig()
	for _, o := range opts {
		if o != nil {
			o(cfg)
		}
	}

	rt, err := NewRegressionTask(task)
	if err != nil {
		return nil, err
	}

	s := &BidirectionalSearch{
		cfg:           cfg,
		log:           cfg.logger,
		task:          task,
		regression:    rt,
		partial:       rt.PartialTask(),
		registry:      NewStateRegistry(rt),
		space:         NewSearchSpace(),
		forwardGen:    NewForwardGenerator(task),
		regressionGen: NewRegressionGenerator(rt),
		current:       Forward,
		firstBackward: true,
		initialID:     NoState,
		goalID:        NoState,
		bggTarget:     NoState,
		preferredMask: make([]bool, task.NumOperators()),
	}
	s.stats.Forward.InitialBranching = -1
	s.stats.Backward.InitialBranching = -1

	if err := s.buildFrontiers(); err != nil {
		return nil, err
	}
	if cfg.target == TargetBGG {
		if s.bggEval, err = NewHeuristic(cfg.bggHeuristic, task, cfg.costType); err != nil {
			return nil, fmt.Errorf("bgg heuristic: %w", err)
		}
	}
	return s, nil
}

func (s *BidirectionalSearch) buildFrontiers() error {
	fwd, bwd := s.cfg.forwardOpen, s.cfg.backwardOpen
	if fwd == nil || bwd == nil {
		factory := s.cfg.openListFactory
		if factory == nil {
			var err error
			factory, err = NamedOpenLists(HeuristicAdd, KindGreedy, 1)
			if err != nil {
				return err
			}
		}
		var err error
		if fwd == nil {
			if fwd, err = factory(s.task, s.cfg.costType); err != nil {
				return fmt.Errorf("forward open list: %w", err)
			}
		}
		if bwd == nil {
			if bwd, err = factory(s.task, s.cfg.costType); err != nil {
				return fmt.Errorf("backward open list: %w", err)
			}
		}
	}
	s.frontier(Forward).open = fwd
	s.frontier(Backward).open = bwd

	for _, d := range []Direction{Forward, Backward} {
		f := s.frontier(d)
		f.deepest = NoState
		if s.cfg.preferred != "" {
			if err := s.addPreferredSublist(d, f); err != nil {
				return err
			}
		}
		f.pathDependent = f.open.PathDependentEvaluators()
		// Both closed lists are only read while the backward direction runs.
		if s.cfg.symbolicClosed && s.cfg.mode.runs(Backward) {
			closed, err := NewSymbolicClosedList(s.partial)
			if err != nil {
				return fmt.Errorf("%s symbolic closed list: %w", d, err)
			}
			f.closed = closed
		}
	}
	return nil
}

// addPreferredSublist wraps the open list of d into an alternation with a
// preferred-only list ranked by the preferred-operator heuristic.
func (s *BidirectionalSearch) addPreferredSublist(d Direction, f *frontier) error {
	h, err := NewHeuristic(s.cfg.preferred, s.task, s.cfg.costType)
	if err != nil {
		return fmt.Errorf("%s preferred operators: %w", d, err)
	}
	p, ok := h.(PreferredOperatorEvaluator)
	if !ok {
		return fmt.Errorf("%s preferred operators: heuristic %q does not compute preferred operators", d, s.cfg.preferred)
	}
	f.open = NewAlternationOpenList(s.cfg.boost, f.open, NewPreferredOnlyOpenList(p, NewGEvaluator()))
	f.preferred = []PreferredOperatorEvaluator{p}
	f.bestPreferred = []int{InfiniteValue}
	return nil
}

func (s *BidirectionalSearch) frontier(d Direction) *frontier {
	if d == Backward {
		return &s.frontiers[1]
	}
	return &s.frontiers[0]
}

// Initialize registers and evaluates the two seeds: the initial state for
// the forward direction and the mutex-tightened partial goal state for the
// backward one. A seed its open list rejects as a dead end is not opened,
// and a direction the search mode excludes gets no seed. Step calls
// Initialize on first use; calling it again has no effect.
func (s *BidirectionalSearch) Initialize() {
	if s.initialized {
		return
	}
	s.initialized = true
	s.start = time.Now()

	s.log.Info("starting bidirectional search",
		zap.String("mode", s.cfg.mode.String()),
		zap.String("scheduling", s.cfg.scheduling.String()),
		zap.String("frontier_target", s.cfg.target.String()),
		zap.String("reevaluation", s.cfg.reevaluation.String()),
		zap.Bool("symbolic_closed", s.cfg.symbolicClosed),
		zap.Bool("reopen_closed", s.cfg.reopenClosed),
		zap.String("preferred", s.cfg.preferred),
		zap.Int("bound", s.cfg.bound),
		zap.Int("variables", s.task.NumVariables()),
		zap.Int("operators", s.task.NumOperators()),
	)

	s.initialValues = s.task.InitialState()
	s.initialID = s.registry.Insert(s.initialValues)
	s.goalValues = s.regression.GoalStateValues()
	s.goalID = s.registry.Insert(s.goalValues)

	fwd := s.frontier(Forward)
	for _, e := range fwd.pathDependent {
		e.NotifyInitialState(s.initialValues)
	}
	bwd := s.frontier(Backward)
	for _, e := range bwd.pathDependent {
		e.NotifyInitialState(s.initialValues)
	}

	// Seeds count as reached by a preferred operator.
	fwd.open.SetGoal(s.goalValues)
	if s.cfg.mode.runs(Forward) {
		ctx := NewEvaluationContext(s.initialValues, 0, &s.stats)
		ctx.SetPreferred(true)
		s.stats.Forward.Evaluated++
		if fwd.open.IsDeadEnd(ctx) {
			s.log.Info("initial state is a dead end")
		} else {
			node := s.space.Node(s.initialID)
			node.OpenInitial()
			node.SetDirection(Forward)
			if s.cfg.frontToFront() {
				node.SetPair(s.goalID)
			}
			fwd.open.Insert(ctx, s.initialID)
			s.noteOpened(fwd, node)
			s.checkProgress(fwd, ctx)
		}
	}

	// The backward heuristic measures the distance from the frontier
	// state, here the initial state, to the backward state as goal.
	bwd.open.SetGoal(s.goalValues)
	if s.cfg.mode.runs(Backward) {
		ctx := NewEvaluationContext(s.initialValues, 0, &s.stats)
		ctx.SetPreferred(true)
		s.stats.Backward.Evaluated++
		if bwd.open.IsDeadEnd(ctx) {
			s.log.Info("goal state is a dead end")
		} else {
			node := s.space.Node(s.goalID)
			node.OpenInitial()
			node.SetDirection(Backward)
			if s.cfg.frontToFront() {
				node.SetPair(s.initialID)
			}
			bwd.open.Insert(ctx, s.goalID)
			s.noteOpened(bwd, node)
			s.checkProgress(bwd, ctx)
		}

		if s.bggEval != nil {
			s.bggEval.SetGoal(s.goalValues)
			ctx := NewEvaluationContext(s.initialValues, 0, &s.stats)
			s.stats.Backward.Evaluated++
			s.bggBest = ctx.Value(s.bggEval)
			s.bggTarget = s.goalID
		}
	}

	s.log.Debug("seeds registered",
		zap.String("initial", s.partial.Format(s.initialValues)),
		zap.String("goal", s.partial.Format(s.goalValues)),
	)
}

// Search steps until a plan is found, both frontiers are exhausted, a
// limit is hit, or ctx is done. ctx is only checked between steps. A run
// stopped by a limit or by ctx is final: its statistics and metrics are
// recorded and later calls return the same error.
func (s *BidirectionalSearch) Search(ctx context.Context) (Plan, error) {
	if s.cfg.timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.timeLimit)
		defer cancel()
	}

	s.Initialize()
	for {
		if s.status == StatusInProgress {
			if err := ctx.Err(); err != nil {
				s.abort(err)
			} else if s.cfg.maxExpansions > 0 && s.stats.Expanded() >= s.cfg.maxExpansions {
				s.abort(fmt.Errorf("%w: %d expansions", ErrSearchLimitReached, s.stats.Expanded()))
			}
		}
		switch s.Step() {
		case StatusSolved:
			return s.Plan(), nil
		case StatusFailed:
			if s.err != nil {
				return nil, s.err
			}
			return nil, ErrNoSolution
		}
	}
}

// Status returns the current status.
func (s *BidirectionalSearch) Status() SearchStatus { return s.status }

// Plan returns a copy of the plan found, or nil.
func (s *BidirectionalSearch) Plan() Plan {
	if s.plan == nil {
		return nil
	}
	return append(Plan(nil), s.plan...)
}

// Statistics returns a snapshot of the counters.
func (s *BidirectionalSearch) Statistics() Statistics {
	st := s.stats
	st.RegisteredStates = s.registry.Size()
	if s.status == StatusInProgress && !s.start.IsZero() {
		st.SearchTime = time.Since(s.start)
	}
	return st
}

// Err returns the error that stopped the search early, if any.
func (s *BidirectionalSearch) Err() error { return s.err }

// RegressionTask returns the regression view the search was built on.
func (s *BidirectionalSearch) RegressionTask() *RegressionTask { return s.regression }

// Registry returns the shared state registry.
func (s *BidirectionalSearch) Registry() *StateRegistry { return s.registry }

// SearchSpace returns the shared search space.
func (s *BidirectionalSearch) SearchSpace() *SearchSpace { return s.space }

// abort ends the run early with err.
func (s *BidirectionalSearch) abort(err error) {
	s.err = err
	s.finish(StatusFailed)
}

func (s *BidirectionalSearch) finish(status SearchStatus) SearchStatus {
	s.status = status
	s.stats.SearchTime = time.Since(s.start)
	s.stats.RegisteredStates = s.registry.Size()
	if status == StatusSolved {
		s.stats.PlanLength = len(s.plan)
		s.stats.PlanCost = s.plan.Cost(s.task)
	}
	s.cfg.metrics.observe(&s.stats, status, s.err)

	switch status {
	case StatusSolved:
		s.log.Info("solution found",
			zap.String("meeting", s.stats.Meeting.String()),
			zap.Int("forward_actions", s.stats.Forward.PlanSteps),
			zap.Int("backward_actions", s.stats.Backward.PlanSteps),
			zap.Int("plan_length", s.stats.PlanLength),
			zap.Int("plan_cost", s.stats.PlanCost),
			zap.Float64("avg_forward_branching", s.stats.Forward.AverageBranching()),
			zap.Float64("avg_backward_branching", s.stats.Backward.AverageBranching()),
			zap.Int("expanded", s.stats.Expanded()),
		)
	case StatusFailed:
		if errors.Is(s.err, ErrSearchLimitReached) || errors.Is(s.err, context.Canceled) ||
			errors.Is(s.err, context.DeadlineExceeded) {
			s.log.Info("search stopped", zap.Error(s.err), zap.Int("expanded", s.stats.Expanded()))
		} else if s.err != nil {
			s.log.Error("search aborted", zap.Error(s.err))
		} else {
			s.log.Info("completely explored state space, no solution",
				zap.Int("expanded", s.stats.Expanded()))
		}
	}
	return status
}
