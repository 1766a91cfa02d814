package planner

import "fmt"

// NodeStatus is the lifecycle position of a search node.
//
//	new ──open──> open ──close──> closed ──reopen──> open
//	 └──────────mark dead end──────> dead end
type NodeStatus uint8

const (
	NodeNew NodeStatus = iota
	NodeOpen
	NodeClosed
	NodeDeadEnd
)

func (s NodeStatus) String() string {
	switch s {
	case NodeNew:
		return "new"
	case NodeOpen:
		return "open"
	case NodeClosed:
		return "closed"
	case NodeDeadEnd:
		return "dead-end"
	default:
		return fmt.Sprintf("NodeStatus(%d)", uint8(s))
	}
}

// Direction tags the search direction that first reached a state.
type Direction uint8

const (
	DirectionNone Direction = iota
	Forward
	Backward
)

// Opposite returns the other search direction. DirectionNone maps to itself.
func (d Direction) Opposite() Direction {
	switch d {
	case Forward:
		return Backward
	case Backward:
		return Forward
	default:
		return DirectionNone
	}
}

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "none"
	}
}

// stateRecord co-locates everything the search knows about one state. It is
// indexed by StateID in SearchSpace.
type stateRecord struct {
	status    NodeStatus
	direction Direction
	parent    StateID
	op        int
	g         int
	realG     int
	// pair is the opposite-frontier state the node was last evaluated
	// against in front-to-front mode.
	pair StateID
}

// SearchSpace is an arena of state records shared by both directions.
// Records are created lazily on first reference.
type SearchSpace struct {
	records []stateRecord
}

// NewSearchSpace returns an empty search space.
func NewSearchSpace() *SearchSpace {
	return &SearchSpace{}
}

func (s *SearchSpace) record(id StateID) *stateRecord {
	for int(id) >= len(s.records) {
		s.records = append(s.records, stateRecord{parent: NoState, op: -1, pair: NoState})
	}
	return &s.records[id]
}

// Node returns a handle for state id, creating a new record if needed.
func (s *SearchSpace) Node(id StateID) SearchNode {
	s.record(id)
	return SearchNode{space: s, id: id}
}

// TracePath returns the operators on the parent chain from the seed of
// id's direction down to id, in the order they were applied by the search.
func (s *SearchSpace) TracePath(id StateID) []int {
	var path []int
	for cur := id; cur != NoState; {
		rec := s.record(cur)
		if rec.parent == NoState {
			break
		}
		path = append(path, rec.op)
		cur = rec.parent
	}
	reverseInts(path)
	return path
}

// Counts returns the number of records in every status.
func (s *SearchSpace) Counts() map[NodeStatus]int {
	out := make(map[NodeStatus]int)
	for i := range s.records {
		out[s.records[i].status]++
	}
	return out
}

func reverseInts(xs []int) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}

// SearchNode is a handle to one state record.
type SearchNode struct {
	space *SearchSpace
	id    StateID
}

func (n SearchNode) rec() *stateRecord { return &n.space.records[n.id] }

func (n SearchNode) ID() StateID            { return n.id }
func (n SearchNode) Status() NodeStatus     { return n.rec().status }
func (n SearchNode) IsNew() bool            { return n.rec().status == NodeNew }
func (n SearchNode) IsOpen() bool           { return n.rec().status == NodeOpen }
func (n SearchNode) IsClosed() bool         { return n.rec().status == NodeClosed }
func (n SearchNode) IsDeadEnd() bool        { return n.rec().status == NodeDeadEnd }
func (n SearchNode) G() int                 { return n.rec().g }
func (n SearchNode) RealG() int             { return n.rec().realG }
func (n SearchNode) Parent() StateID        { return n.rec().parent }
func (n SearchNode) CreatingOperator() int  { return n.rec().op }
func (n SearchNode) Direction() Direction   { return n.rec().direction }
func (n SearchNode) Pair() StateID          { return n.rec().pair }
func (n SearchNode) SetPair(pair StateID)   { n.rec().pair = pair }

// SetDirection tags the node. The first tag wins; later calls are ignored.
func (n SearchNode) SetDirection(d Direction) {
	if r := n.rec(); r.direction == DirectionNone {
		r.direction = d
	}
}

// OpenInitial opens a seed node with g = 0.
func (n SearchNode) OpenInitial() {
	r := n.rec()
	r.status = NodeOpen
	r.g = 0
	r.realG = 0
	r.parent = NoState
	r.op = -1
}

// Open opens a new node reached from parent via op.
func (n SearchNode) Open(parent SearchNode, op, realCost, adjustedCost int) {
	n.setParent(parent, op, realCost, adjustedCost)
	n.rec().status = NodeOpen
}

// Reopen moves a node back to open with a cheaper path.
func (n SearchNode) Reopen(parent SearchNode, op, realCost, adjustedCost int) {
	n.Open(parent, op, realCost, adjustedCost)
}

// UpdateParent rewrites the path to the node without reinserting it.
//
// When reopening is disabled this can leave the traced path and the
// recorded g-value of descendants inconsistent; plans built from such nodes
// may cost more than the g-value suggests.
func (n SearchNode) UpdateParent(parent SearchNode, op, realCost, adjustedCost int) {
	n.setParent(parent, op, realCost, adjustedCost)
}

func (n SearchNode) setParent(parent SearchNode, op, realCost, adjustedCost int) {
	r := n.rec()
	p := parent.rec()
	r.parent = parent.id
	r.op = op
	r.g = p.g + adjustedCost
	r.realG = p.realG + realCost
}

// Close marks an open node as expanded.
func (n SearchNode) Close() { n.rec().status = NodeClosed }

// MarkAsDeadEnd marks the node as unsolvable.
func (n SearchNode) MarkAsDeadEnd() { n.rec().status = NodeDeadEnd }
