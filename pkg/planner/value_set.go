package planner

import (
	"math/bits"
	"strconv"
	"strings"
)

// valueSet is a bitset over the concrete values [0, size) of one variable.
// It backs the candidate ranges used during mutex propagation.
//
// Unlike the immutable finite domains used elsewhere in constraint solvers,
// a valueSet is mutated in place: it lives only for the duration of a single
// predecessor computation.
type valueSet struct {
	size  int
	count int
	words []uint64
}

// newFullValueSet returns the set {0, ..., size-1}.
func newFullValueSet(size int) valueSet {
	numWords := (size + 63) / 64
	s := valueSet{size: size, count: size, words: make([]uint64, numWords)}
	for i := 0; i < numWords; i++ {
		s.words[i] = ^uint64(0)
	}
	if rem := size % 64; rem != 0 {
		s.words[numWords-1] = (uint64(1) << uint(rem)) - 1
	}
	return s
}

func (s *valueSet) has(value int) bool {
	if value < 0 || value >= s.size {
		return false
	}
	return s.words[value/64]&(uint64(1)<<uint(value%64)) != 0
}

// remove deletes value and reports whether it was present.
func (s *valueSet) remove(value int) bool {
	if !s.has(value) {
		return false
	}
	s.words[value/64] &^= uint64(1) << uint(value%64)
	s.count--
	return true
}

func (s *valueSet) empty() bool { return s.count == 0 }

func (s *valueSet) isSingleton() bool { return s.count == 1 }

// singletonValue returns the only member. Undefined unless isSingleton.
func (s *valueSet) singletonValue() int {
	for i, w := range s.words {
		if w != 0 {
			return i*64 + bits.TrailingZeros64(w)
		}
	}
	return -1
}

func (s *valueSet) String() string {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	for i, w := range s.words {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			if !first {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(i*64 + tz))
			first = false
			w &^= uint64(1) << uint(tz)
		}
	}
	b.WriteByte('}')
	return b.String()
}
