package planner

import "slices"

// MutexTable maps every concrete fact to the facts of other variables that
// can never hold together with it. It is symmetric and never mentions an
// unknown value.
type MutexTable [][][]Fact

// Mutexes returns the facts mutex with f.
func (m MutexTable) Mutexes(f Fact) []Fact { return m[f.Var][f.Value] }

// IsMutex reports whether a and b are in the table.
func (m MutexTable) IsMutex(a, b Fact) bool {
	for _, f := range m[a.Var][a.Value] {
		if f == b {
			return true
		}
	}
	return false
}

// buildMutexTable queries the oracle for every pair of concrete facts on
// different variables. Quadratic in the number of facts; done once.
func buildMutexTable(task Task) MutexTable {
	n := task.NumVariables()
	table := make(MutexTable, n)
	for v := 0; v < n; v++ {
		table[v] = make([][]Fact, task.DomainSize(v))
	}
	for v1 := 0; v1 < n; v1++ {
		for val1 := 0; val1 < task.DomainSize(v1); val1++ {
			f1 := Fact{Var: v1, Value: val1}
			for v2 := v1 + 1; v2 < n; v2++ {
				for val2 := 0; val2 < task.DomainSize(v2); val2++ {
					f2 := Fact{Var: v2, Value: val2}
					if task.AreFactsMutex(f1, f2) {
						table[v1][val1] = append(table[v1][val1], f2)
						table[v2][val2] = append(table[v2][val2], f1)
					}
				}
			}
		}
	}
	return table
}

// InferMutexGroups derives mutex pairs by exhaustively enumerating the
// states reachable from the initial state: two facts on different
// variables are mutex when no reachable state holds both. Every pair is
// returned as a two-element group, ready for ExplicitTask.MutexGroups.
//
// The enumeration stops with ErrSearchLimitReached once more than
// maxStates states were visited. Use it on small tasks only.
func InferMutexGroups(task Task, maxStates int) ([][]Fact, error) {
	n := task.NumVariables()
	offsets := make([]int, n+1)
	for v := 0; v < n; v++ {
		offsets[v+1] = offsets[v] + task.DomainSize(v)
	}
	numFacts := offsets[n]
	together := make([]bool, numFacts*numFacts)

	seen := make(map[uint64][][]int)
	isNew := func(s []int) bool {
		h := hashValues(s)
		for _, other := range seen[h] {
			if slices.Equal(other, s) {
				return false
			}
		}
		seen[h] = append(seen[h], s)
		return true
	}

	init := task.InitialState()
	isNew(init)
	queue := [][]int{init}
	visited := 0
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		visited++
		if visited > maxStates {
			return nil, ErrSearchLimitReached
		}
		for v1 := 0; v1 < n; v1++ {
			i := offsets[v1] + s[v1]
			for v2 := v1 + 1; v2 < n; v2++ {
				j := offsets[v2] + s[v2]
				together[i*numFacts+j] = true
			}
		}
		for i := 0; i < task.NumOperators(); i++ {
			op := task.Operator(i)
			if !op.IsApplicable(s) {
				continue
			}
			succ := op.Apply(s)
			if isNew(succ) {
				queue = append(queue, succ)
			}
		}
	}

	var groups [][]Fact
	for v1 := 0; v1 < n; v1++ {
		for val1 := 0; val1 < task.DomainSize(v1); val1++ {
			for v2 := v1 + 1; v2 < n; v2++ {
				for val2 := 0; val2 < task.DomainSize(v2); val2++ {
					i, j := offsets[v1]+val1, offsets[v2]+val2
					if !together[i*numFacts+j] {
						groups = append(groups, []Fact{{Var: v1, Value: val1}, {Var: v2, Value: val2}})
					}
				}
			}
		}
	}
	return groups, nil
}
