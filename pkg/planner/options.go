package planner

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Scheduling decides which frontier expands next.
type Scheduling int

const (
	// Alternate expands one node of each direction in turn, falling back
	// to the non-empty side when one open list runs dry.
	Alternate Scheduling = iota
	// BalanceSteps expands the direction that has expanded fewer nodes so
	// far; ties go forward.
	BalanceSteps
)

func (s Scheduling) String() string {
	if s == BalanceSteps {
		return "balance"
	}
	return "alternate"
}

// Reevaluation controls when a front-to-front node popped from an open
// list is re-scored against the current best state of the opposite
// frontier before expansion.
type Reevaluation int

const (
	// ReevalNever expands nodes with the value they were inserted with.
	ReevalNever Reevaluation = iota
	// ReevalNotParent re-scores when the opposite best state changed and is
	// not a child of the state the node was last scored against.
	ReevalNotParent
	// ReevalAlways re-scores whenever the opposite best state changed.
	ReevalAlways
)

func (r Reevaluation) String() string {
	switch r {
	case ReevalNotParent:
		return "not-parent"
	case ReevalAlways:
		return "always"
	default:
		return "never"
	}
}

// SearchMode selects the directions that take part in a search.
type SearchMode int

const (
	// ModeBidirectional runs both directions until they meet.
	ModeBidirectional SearchMode = iota
	// ModeForward only searches forward from the initial state.
	ModeForward
	// ModeRegression only regresses from the goal until a partial state
	// covers the initial state.
	ModeRegression
)

func (m SearchMode) String() string {
	switch m {
	case ModeForward:
		return "forward"
	case ModeRegression:
		return "regression"
	default:
		return "bidirectional"
	}
}

// ParseSearchMode maps "bidirectional", "forward" or "regression" to a
// SearchMode. The empty string selects ModeBidirectional.
func ParseSearchMode(s string) (SearchMode, error) {
	switch strings.ToLower(s) {
	case "bidirectional", "":
		return ModeBidirectional, nil
	case "forward":
		return ModeForward, nil
	case "regression", "backward":
		return ModeRegression, nil
	default:
		return 0, fmt.Errorf("unknown search mode %q", s)
	}
}

func (m SearchMode) runs(d Direction) bool {
	switch m {
	case ModeForward:
		return d == Forward
	case ModeRegression:
		return d == Backward
	default:
		return true
	}
}

// FrontierTarget selects the state a direction's heuristic measures the
// distance to.
type FrontierTarget int

const (
	// TargetEnd aims forward at the goal and backward at the initial state.
	TargetEnd FrontierTarget = iota
	// TargetTop aims at the best state of the opposite open list and
	// enables frontier meetings (front-to-front search).
	TargetTop
	// TargetBGG aims the forward direction at the generated backward state
	// closest to the initial state by the BGG heuristic, and lets forward
	// successors meet any generated backward state. The backward direction
	// keeps aiming at the initial state.
	TargetBGG
	// TargetMaxG aims each direction at the state with the largest g-value
	// opened by the opposite direction so far.
	TargetMaxG
)

func (t FrontierTarget) String() string {
	switch t {
	case TargetTop:
		return "top"
	case TargetBGG:
		return "bgg"
	case TargetMaxG:
		return "max-g"
	default:
		return "end"
	}
}

// ParseFrontierTarget maps "end", "top", "bgg" or "max-g" to a
// FrontierTarget. The empty string selects TargetEnd.
func ParseFrontierTarget(s string) (FrontierTarget, error) {
	switch strings.ToLower(s) {
	case "end", "":
		return TargetEnd, nil
	case "top", "f2f":
		return TargetTop, nil
	case "bgg":
		return TargetBGG, nil
	case "max-g", "max_g", "maxg":
		return TargetMaxG, nil
	default:
		return 0, fmt.Errorf("unknown frontier target %q", s)
	}
}

// Option configures a BidirectionalSearch.
// Use helpers like WithScheduling, WithFrontToFront, WithBound and
// WithLogger to customize the search.
type Option func(*searchConfig)

type searchConfig struct {
	mode           SearchMode
	scheduling     Scheduling
	target         FrontierTarget
	bggHeuristic   string
	reevaluation   Reevaluation
	symbolicClosed bool
	reopenClosed   bool
	pruneGoal      bool
	bound          int
	costType       CostType
	maxExpansions  int
	maxSteps       int
	timeLimit      time.Duration

	preferred string
	boost     int

	openListFactory OpenListFactory
	forwardOpen     OpenList
	backwardOpen    OpenList

	logger  *zap.Logger
	metrics *Metrics
}

func defaultSearchConfig() *searchConfig {
	return &searchConfig{
		scheduling:     Alternate,
		bggHeuristic:   HeuristicMax,
		symbolicClosed: true,
		reopenClosed:   true,
		bound:          math.MaxInt,
		costType:       NormalCost,
		logger:         zap.NewNop(),
	}
}

func (c *searchConfig) frontToFront() bool { return c.target == TargetTop }

// WithMode restricts the search to one direction or runs both. The
// default is ModeBidirectional.
func WithMode(m SearchMode) Option {
	return func(c *searchConfig) { c.mode = m }
}

// WithScheduling selects the direction scheduling policy.
func WithScheduling(s Scheduling) Option {
	return func(c *searchConfig) { c.scheduling = s }
}

// WithFrontToFront evaluates each direction against the best state of the
// opposite open list instead of the fixed endpoint, and enables frontier
// meetings. It is shorthand for WithFrontierTarget(TargetTop) and
// WithFrontierTarget(TargetEnd).
func WithFrontToFront(enabled bool) Option {
	return func(c *searchConfig) {
		if enabled {
			c.target = TargetTop
		} else {
			c.target = TargetEnd
		}
	}
}

// WithFrontierTarget selects what each direction's heuristic aims at.
func WithFrontierTarget(t FrontierTarget) Option {
	return func(c *searchConfig) { c.target = t }
}

// WithBGGHeuristic names the heuristic that ranks backward states under
// TargetBGG. The default is hmax.
func WithBGGHeuristic(name string) Option {
	return func(c *searchConfig) { c.bggHeuristic = name }
}

// WithPreferredOperators adds, for each direction, a sublist holding only
// states reached by operators the named heuristic marks as preferred. The
// open list then alternates between the configured list and the preferred
// one. The heuristic must compute preferred operators (hadd or ff).
func WithPreferredOperators(heuristic string) Option {
	return func(c *searchConfig) { c.preferred = heuristic }
}

// WithPreferredBoost sets how much priority the preferred sublists gain
// whenever a direction finds a state with a new best preferred-heuristic
// value. Zero disables boosting.
func WithPreferredBoost(n int) Option {
	return func(c *searchConfig) { c.boost = n }
}

// WithReevaluation sets the front-to-front reevaluation policy. It has no
// effect unless front-to-front mode is on.
func WithReevaluation(r Reevaluation) Option {
	return func(c *searchConfig) { c.reevaluation = r }
}

// WithSymbolicClosed toggles the BDD closed lists used for subsumption
// meetings and backward duplicate pruning. On by default.
func WithSymbolicClosed(enabled bool) Option {
	return func(c *searchConfig) { c.symbolicClosed = enabled }
}

// WithReopenClosed toggles reopening of closed nodes reached by a cheaper
// path. When off, only the parent pointer is rewritten; with an
// inconsistent heuristic the returned plan can then cost more than the
// g-value recorded for it. On by default.
func WithReopenClosed(enabled bool) Option {
	return func(c *searchConfig) { c.reopenClosed = enabled }
}

// WithPruneGoal restricts the first backward expansion to operators that
// add a goal fact and drops predecessors that already satisfy the goal.
func WithPruneGoal(enabled bool) Option {
	return func(c *searchConfig) { c.pruneGoal = enabled }
}

// WithBound skips every successor whose real path cost would reach bound.
func WithBound(bound int) Option {
	return func(c *searchConfig) { c.bound = bound }
}

// WithCostType sets how operator costs enter g-values and heuristics.
func WithCostType(ct CostType) Option {
	return func(c *searchConfig) { c.costType = ct }
}

// WithOpenListFactory builds both open lists from f.
func WithOpenListFactory(f OpenListFactory) Option {
	return func(c *searchConfig) { c.openListFactory = f }
}

// WithOpenLists supplies ready-made open lists. They must not be shared
// with another search.
func WithOpenLists(forward, backward OpenList) Option {
	return func(c *searchConfig) {
		c.forwardOpen = forward
		c.backwardOpen = backward
	}
}

// WithMaxExpansions stops Search with ErrSearchLimitReached after n
// expansions. Zero means no limit.
func WithMaxExpansions(n int) Option {
	return func(c *searchConfig) { c.maxExpansions = n }
}

// WithMaxSteps caps the expansions of each direction at n. A direction at
// its cap is no longer scheduled; when neither direction may expand, Search
// returns ErrSearchLimitReached. Zero means no limit.
func WithMaxSteps(n int) Option {
	return func(c *searchConfig) { c.maxSteps = n }
}

// WithTimeLimit bounds the wall-clock time of Search. When reached, Search
// returns context.DeadlineExceeded.
func WithTimeLimit(d time.Duration) Option {
	return func(c *searchConfig) { c.timeLimit = d }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *searchConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics reports the counters of every finished search to m.
func WithMetrics(m *Metrics) Option {
	return func(c *searchConfig) { c.metrics = m }
}
