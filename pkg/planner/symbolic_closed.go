package planner

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/dalzilio/rudd"
)

const (
	defaultBDDNodeSize  = 1 << 16
	defaultBDDCacheSize = 1 << 14
)

// SymbolicClosedList is a set of (partial) states stored as a binary
// decision diagram.
//
// Each variable with widened domain size d is encoded on ceil(log2(d))
// boolean BDD variables, least significant bit first. A concrete value is
// the conjunction of literals spelling its bits; the unknown value adds no
// constraint beyond ruling out spare bit patterns, so a partial state
// encodes the union of all its completions:
//
//	dom(x) = {0,1,2,?}  -> bits x0 x1
//	x=2      ->  !x0 & x1
//	x=?      ->  x=0 | x=1 | x=2
//	(x=2, y=?) -> !x0 & x1 & (y=0 | ...)
//
// Membership tests are then plain set algebra on the diagram, independent of
// how many states were closed.
type SymbolicClosedList struct {
	bdd      *rudd.BDD
	unknown  []int
	valueBDD [][]rudd.Node
	// domainBDD[v] is the disjunction of the concrete values of v. The
	// unknown value always has a bit pattern of its own.
	domainBDD []rudd.Node
	closed    rudd.Node
}

// NewSymbolicClosedList creates an empty closed list for the partial-state
// view p.
func NewSymbolicClosedList(p *PartialStateTask) (*SymbolicClosedList, error) {
	n := p.NumVariables()
	bitIndex := make([][]int, n)
	numBits := 0
	for v := 0; v < n; v++ {
		width := bits.Len(uint(p.DomainSize(v) - 1))
		for j := 0; j < width; j++ {
			bitIndex[v] = append(bitIndex[v], numBits)
			numBits++
		}
	}
	if numBits == 0 {
		numBits = 1
	}

	b, err := rudd.New(numBits, rudd.Nodesize(defaultBDDNodeSize), rudd.Cachesize(defaultBDDCacheSize))
	if err != nil {
		return nil, fmt.Errorf("create bdd with %d variables: %w", numBits, err)
	}

	s := &SymbolicClosedList{
		bdd:       b,
		unknown:   make([]int, n),
		valueBDD:  make([][]rudd.Node, n),
		domainBDD: make([]rudd.Node, n),
		closed:    b.False(),
	}
	for v := 0; v < n; v++ {
		s.unknown[v] = p.Unknown(v)
		s.valueBDD[v] = make([]rudd.Node, p.Unknown(v))
		for value := range s.valueBDD[v] {
			s.valueBDD[v][value] = s.encodeValue(bitIndex[v], value)
		}
		dom := b.False()
		for _, vb := range s.valueBDD[v] {
			dom = b.Or(dom, vb)
		}
		s.domainBDD[v] = dom
	}
	if b.Errored() {
		return nil, errors.New(b.Error())
	}
	return s, nil
}

func (s *SymbolicClosedList) encodeValue(bitVars []int, value int) rudd.Node {
	res := s.bdd.True()
	for _, bv := range bitVars {
		if value%2 == 1 {
			res = s.bdd.And(res, s.bdd.Ithvar(bv))
		} else {
			res = s.bdd.And(res, s.bdd.NIthvar(bv))
		}
		value /= 2
	}
	return res
}

// stateBDD encodes a (partial) state. Unknown entries only exclude the bit
// patterns that spell no concrete value.
func (s *SymbolicClosedList) stateBDD(state []int) rudd.Node {
	res := s.bdd.True()
	for v := len(state) - 1; v >= 0; v-- {
		if state[v] == s.unknown[v] {
			res = s.bdd.And(res, s.domainBDD[v])
			continue
		}
		res = s.bdd.And(res, s.valueBDD[v][state[v]])
	}
	return res
}

// Close adds every completion of state to the set. Closing twice has no
// further effect.
func (s *SymbolicClosedList) Close(state []int) {
	s.closed = s.bdd.Or(s.closed, s.stateBDD(state))
}

// IsClosed reports whether every completion of state is in the set. For a
// concrete state this is exact membership.
func (s *SymbolicClosedList) IsClosed(state []int) bool {
	sb := s.stateBDD(state)
	return s.bdd.Equal(s.bdd.And(sb, s.closed), sb)
}

// IsSubsumed reports whether at least one completion of state is in the set.
func (s *SymbolicClosedList) IsSubsumed(state []int) bool {
	sb := s.stateBDD(state)
	return !s.bdd.Equal(s.bdd.And(sb, s.closed), s.bdd.False())
}

// CloseIfNot closes state unless it is already fully contained, and reports
// whether the set changed.
func (s *SymbolicClosedList) CloseIfNot(state []int) bool {
	sb := s.stateBDD(state)
	if s.bdd.Equal(s.bdd.And(sb, s.closed), sb) {
		return false
	}
	s.closed = s.bdd.Or(s.closed, sb)
	return true
}

// Err returns the first error raised by the BDD engine, typically a node
// table that cannot grow further.
func (s *SymbolicClosedList) Err() error {
	if s.bdd.Errored() {
		return fmt.Errorf("symbolic closed list: %s", s.bdd.Error())
	}
	return nil
}
