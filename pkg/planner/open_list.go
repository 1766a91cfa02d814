package planner

import (
	"container/heap"
	"fmt"
	"strings"
)

// OpenList is the frontier of one search direction.
type OpenList interface {
	// Insert adds id with the evaluator values of ctx. Callers check
	// IsDeadEnd first.
	Insert(ctx *EvaluationContext, id StateID)
	// RemoveMin pops the best entry. The list must not be empty.
	RemoveMin() StateID
	// MinValueAndEntry peeks at the best entry and its key.
	MinValueAndEntry() ([]int, StateID)
	Empty() bool
	Len() int
	Clear()
	IsDeadEnd(ctx *EvaluationContext) bool
	// SetGoal retargets every evaluator of the list.
	SetGoal(goal []int)
	PathDependentEvaluators() []Evaluator
	// BoostPreferred raises the priority of sublists that only hold states
	// reached by preferred operators. Lists without such sublists ignore it.
	BoostPreferred()
}

type openEntry struct {
	key []int
	seq uint64
	id  StateID
}

type openHeap []openEntry

func (h openHeap) Len() int { return len(h) }
func (h openHeap) Less(i, j int) bool {
	a, b := h[i].key, h[j].key
	for k := range a {
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return h[i].seq < h[j].seq
}
func (h openHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *openHeap) Push(x any)   { *h = append(*h, x.(openEntry)) }
func (h *openHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// BestFirstOpenList orders entries lexicographically by the values of its
// evaluators, breaking remaining ties first-in first-out.
//
// Entries are never removed on reinsertion: a state inserted twice is
// popped twice, and the search skips stale copies by node status.
type BestFirstOpenList struct {
	evaluators    []Evaluator
	heap          openHeap
	seq           uint64
	preferredOnly bool
}

// NewBestFirstOpenList creates an open list ranked by evaluators, first
// evaluator most significant. At least one evaluator is required.
func NewBestFirstOpenList(evaluators ...Evaluator) *BestFirstOpenList {
	if len(evaluators) == 0 {
		panic("planner: open list needs at least one evaluator")
	}
	return &BestFirstOpenList{evaluators: evaluators}
}

// NewPreferredOnlyOpenList is like NewBestFirstOpenList but silently drops
// insertions whose context is not marked preferred.
func NewPreferredOnlyOpenList(evaluators ...Evaluator) *BestFirstOpenList {
	l := NewBestFirstOpenList(evaluators...)
	l.preferredOnly = true
	return l
}

func (l *BestFirstOpenList) Insert(ctx *EvaluationContext, id StateID) {
	if l.preferredOnly && !ctx.IsPreferred() {
		return
	}
	key := make([]int, len(l.evaluators))
	for i, e := range l.evaluators {
		key[i] = ctx.Value(e)
	}
	heap.Push(&l.heap, openEntry{key: key, seq: l.seq, id: id})
	l.seq++
}

func (l *BestFirstOpenList) RemoveMin() StateID {
	return heap.Pop(&l.heap).(openEntry).id
}

func (l *BestFirstOpenList) MinValueAndEntry() ([]int, StateID) {
	if len(l.heap) == 0 {
		return nil, NoState
	}
	top := l.heap[0]
	return top.key, top.id
}

func (l *BestFirstOpenList) Empty() bool { return len(l.heap) == 0 }
func (l *BestFirstOpenList) Len() int    { return len(l.heap) }

func (l *BestFirstOpenList) Clear() {
	l.heap = l.heap[:0]
	l.seq = 0
}

// IsDeadEnd reports whether any evaluator of the list rejects the state.
func (l *BestFirstOpenList) IsDeadEnd(ctx *EvaluationContext) bool {
	for _, e := range l.evaluators {
		if ctx.Result(e).DeadEnd {
			return true
		}
	}
	return false
}

func (l *BestFirstOpenList) SetGoal(goal []int) {
	for _, e := range l.evaluators {
		e.SetGoal(goal)
	}
}

func (l *BestFirstOpenList) PathDependentEvaluators() []Evaluator {
	var out []Evaluator
	for _, e := range l.evaluators {
		out = collectPathDependent(e, out)
	}
	return out
}

func (l *BestFirstOpenList) BoostPreferred() {}

// OnlyContainsPreferred reports whether the list keeps preferred entries
// only.
func (l *BestFirstOpenList) OnlyContainsPreferred() bool { return l.preferredOnly }

// AlternationOpenList inserts every entry into all of its sublists and
// serves removals from the non-empty sublist with the lowest priority
// counter. Each removal increments the counter of the serving sublist, so
// without boosts the sublists take turns.
type AlternationOpenList struct {
	sublists   []OpenList
	priorities []int
	boost      int
}

// NewAlternationOpenList alternates between sublists. boost is subtracted
// from the priority counter of every preferred-only sublist on
// BoostPreferred.
func NewAlternationOpenList(boost int, sublists ...OpenList) *AlternationOpenList {
	if len(sublists) == 0 {
		panic("planner: alternation open list needs at least one sublist")
	}
	return &AlternationOpenList{
		sublists:   sublists,
		priorities: make([]int, len(sublists)),
		boost:      boost,
	}
}

func (l *AlternationOpenList) Insert(ctx *EvaluationContext, id StateID) {
	for _, sub := range l.sublists {
		sub.Insert(ctx, id)
	}
}

func (l *AlternationOpenList) best() int {
	best := -1
	for i, sub := range l.sublists {
		if !sub.Empty() && (best == -1 || l.priorities[i] < l.priorities[best]) {
			best = i
		}
	}
	return best
}

func (l *AlternationOpenList) RemoveMin() StateID {
	best := l.best()
	l.priorities[best]++
	return l.sublists[best].RemoveMin()
}

func (l *AlternationOpenList) MinValueAndEntry() ([]int, StateID) {
	best := l.best()
	if best == -1 {
		return nil, NoState
	}
	return l.sublists[best].MinValueAndEntry()
}

func (l *AlternationOpenList) Empty() bool { return l.best() == -1 }

// Len returns the number of entries over all sublists. A state inserted
// into two sublists counts twice.
func (l *AlternationOpenList) Len() int {
	n := 0
	for _, sub := range l.sublists {
		n += sub.Len()
	}
	return n
}

func (l *AlternationOpenList) Clear() {
	for i, sub := range l.sublists {
		sub.Clear()
		l.priorities[i] = 0
	}
}

// IsDeadEnd reports a dead end only when every sublist agrees.
func (l *AlternationOpenList) IsDeadEnd(ctx *EvaluationContext) bool {
	for _, sub := range l.sublists {
		if !sub.IsDeadEnd(ctx) {
			return false
		}
	}
	return true
}

func (l *AlternationOpenList) SetGoal(goal []int) {
	for _, sub := range l.sublists {
		sub.SetGoal(goal)
	}
}

func (l *AlternationOpenList) PathDependentEvaluators() []Evaluator {
	var out []Evaluator
	for _, sub := range l.sublists {
		for _, e := range sub.PathDependentEvaluators() {
			out = collectPathDependent(e, out)
		}
	}
	return out
}

func (l *AlternationOpenList) BoostPreferred() {
	for i, sub := range l.sublists {
		if p, ok := sub.(interface{ OnlyContainsPreferred() bool }); ok && p.OnlyContainsPreferred() {
			l.priorities[i] -= l.boost
		}
	}
}

// OpenListFactory builds a fresh open list for one search direction. The
// search calls it once per direction so the two frontiers never share
// evaluator state.
type OpenListFactory func(task Task, costType CostType) (OpenList, error)

// Heuristic names accepted by NewHeuristic.
const (
	HeuristicGoalCount = "goalcount"
	HeuristicMax       = "hmax"
	HeuristicAdd       = "hadd"
	HeuristicFF        = "ff"
)

// Search kinds accepted by NamedOpenLists.
const (
	KindGreedy = "greedy" // h, ties by g
	KindAStar  = "astar"  // g+h, ties by h
	KindWAStar = "wastar" // g+w*h, ties by h
)

// NewHeuristic builds the heuristic called name.
func NewHeuristic(name string, task Task, costType CostType) (Evaluator, error) {
	switch strings.ToLower(name) {
	case HeuristicGoalCount:
		return NewGoalCountHeuristic(task), nil
	case HeuristicMax:
		return NewMaxHeuristic(task, costType), nil
	case HeuristicAdd:
		return NewAdditiveHeuristic(task, costType), nil
	case HeuristicFF:
		return NewFFHeuristic(task, costType), nil
	default:
		return nil, fmt.Errorf("unknown heuristic %q", name)
	}
}

// NamedOpenLists returns a factory building best-first open lists for the
// given heuristic and search kind. weight is used by wastar only.
func NamedOpenLists(heuristic, kind string, weight int) (OpenListFactory, error) {
	switch strings.ToLower(kind) {
	case KindGreedy, KindAStar, KindWAStar:
	default:
		return nil, fmt.Errorf("unknown search kind %q", kind)
	}
	if weight < 1 {
		return nil, fmt.Errorf("weight must be at least 1, got %d", weight)
	}
	switch strings.ToLower(heuristic) {
	case HeuristicGoalCount, HeuristicMax, HeuristicAdd, HeuristicFF:
	default:
		return nil, fmt.Errorf("unknown heuristic %q", heuristic)
	}

	return func(task Task, costType CostType) (OpenList, error) {
		h, err := NewHeuristic(heuristic, task, costType)
		if err != nil {
			return nil, err
		}
		g := NewGEvaluator()
		switch strings.ToLower(kind) {
		case KindAStar:
			return NewBestFirstOpenList(NewSumEvaluator(g, h), h), nil
		case KindWAStar:
			return NewBestFirstOpenList(NewSumEvaluator(g, NewWeightedEvaluator(h, weight)), h), nil
		default:
			return NewBestFirstOpenList(h, g), nil
		}
	}, nil
}
