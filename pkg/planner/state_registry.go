package planner

// StateID identifies a registered state. IDs are dense and start at 0.
type StateID int32

// NoState is returned when no state exists, e.g. when regression produces a
// mutex-inconsistent predecessor.
const NoState StateID = -1

const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// StateRegistry deduplicates (partial) states and hands out dense IDs.
//
// Both search directions register their states here: forward states are
// concrete, backward states may carry unknown values. All states are packed
// into one flat int32 buffer with a fixed stride of NumVariables.
//
// The registry is not safe for concurrent use.
type StateRegistry struct {
	partial *PartialStateTask
	mutexes MutexTable
	numVars int

	data  []int32
	index map[uint64][]StateID

	buf []int
}

// NewStateRegistry creates an empty registry for the partial-state view of
// rt's forward task.
func NewStateRegistry(rt *RegressionTask) *StateRegistry {
	n := rt.PartialTask().NumVariables()
	return &StateRegistry{
		partial: rt.PartialTask(),
		mutexes: rt.Mutexes(),
		numVars: n,
		index:   make(map[uint64][]StateID),
		buf:     make([]int, n),
	}
}

// Size returns the number of registered states.
func (r *StateRegistry) Size() int {
	if r.numVars == 0 {
		if len(r.index) > 0 {
			return 1
		}
		return 0
	}
	return len(r.data) / r.numVars
}

// Insert registers values and returns its ID. Registering an equal state
// twice returns the same ID.
func (r *StateRegistry) Insert(values []int) StateID {
	h := hashValues(values)
	for _, id := range r.index[h] {
		if r.equals(id, values) {
			return id
		}
	}
	id := StateID(r.Size())
	for _, v := range values {
		r.data = append(r.data, int32(v))
	}
	r.index[h] = append(r.index[h], id)
	return id
}

// Lookup returns a copy of the values of state id.
func (r *StateRegistry) Lookup(id StateID) []int {
	out := make([]int, r.numVars)
	r.unpack(id, out)
	return out
}

// Value returns the value of variable v in state id.
func (r *StateRegistry) Value(id StateID, v int) int {
	return int(r.data[int(id)*r.numVars+v])
}

func (r *StateRegistry) unpack(id StateID, out []int) {
	base := int(id) * r.numVars
	for v := 0; v < r.numVars; v++ {
		out[v] = int(r.data[base+v])
	}
}

func (r *StateRegistry) equals(id StateID, values []int) bool {
	base := int(id) * r.numVars
	for v, val := range values {
		if int(r.data[base+v]) != val {
			return false
		}
	}
	return true
}

func hashValues(values []int) uint64 {
	h := uint64(fnvOffset64)
	for _, v := range values {
		x := uint32(v)
		for i := 0; i < 4; i++ {
			h ^= uint64(x & 0xff)
			h *= fnvPrime64
			x >>= 8
		}
	}
	return h
}

// Successor applies a forward operator to state id and registers the result.
func (r *StateRegistry) Successor(id StateID, op *Operator) StateID {
	r.unpack(id, r.buf)
	succ := op.Apply(r.buf)
	return r.Insert(succ)
}

// Predecessor regresses state id through op and registers the predecessor.
//
// The effects of op are applied to a copy of the successor. If the result
// holds a concrete fact that has mutex partners, mutex propagation runs over
// the candidate values of every unknown variable:
//
//	successor:  x=0  y=?        (x=0 mutex y=0, dom(y)={0,1})
//	candidates: y: {0,1} - {0} = {1}
//	result:     x=0  y=1        (pinned)
//
// NoState is returned when a candidate set becomes empty or when two
// concrete entries are mutually exclusive. Those predecessors are not
// reachable, so the caller skips the operator.
func (r *StateRegistry) Predecessor(id StateID, op *RegressionOperator) StateID {
	buf := r.buf
	r.unpack(id, buf)
	for _, eff := range op.Effects {
		buf[eff.Var] = eff.Value
	}

	needsPropagation := false
	for v, val := range buf {
		if !r.partial.IsUnknown(v, val) && len(r.mutexes[v][val]) > 0 {
			needsPropagation = true
			break
		}
	}
	if !needsPropagation {
		return r.Insert(buf)
	}

	if !r.propagateMutexes(buf) {
		return NoState
	}
	return r.Insert(buf)
}

// propagateMutexes prunes the candidate values of unknown variables, pins
// singletons in place, and reports false on inconsistency.
func (r *StateRegistry) propagateMutexes(buf []int) bool {
	ranges := make([]valueSet, r.numVars)
	for v, val := range buf {
		if r.partial.IsUnknown(v, val) {
			ranges[v] = newFullValueSet(val)
		}
	}

	for v, val := range buf {
		if r.partial.IsUnknown(v, val) {
			continue
		}
		for _, m := range r.mutexes[v][val] {
			other := buf[m.Var]
			if other == m.Value {
				return false
			}
			if !r.partial.IsUnknown(m.Var, other) {
				continue
			}
			ranges[m.Var].remove(m.Value)
			if ranges[m.Var].empty() {
				return false
			}
		}
	}

	for v, val := range buf {
		if r.partial.IsUnknown(v, val) && ranges[v].isSingleton() {
			buf[v] = ranges[v].singletonValue()
		}
	}
	return true
}

// Each calls fn for every registered state in ID order until fn returns
// false.
func (r *StateRegistry) Each(fn func(id StateID) bool) {
	for id, n := StateID(0), StateID(r.Size()); id < n; id++ {
		if !fn(id) {
			return
		}
	}
}
