package process

import "slices"

// PIDSet is an unordered set of process ids.
type PIDSet map[int]struct{}

// NewPIDSet returns a set holding pids.
func NewPIDSet(pids ...int) PIDSet {
	s := make(PIDSet, len(pids))
	for _, pid := range pids {
		s[pid] = struct{}{}
	}
	return s
}

// Add inserts pid into the set.
func (s PIDSet) Add(pid int) {
	s[pid] = struct{}{}
}

// Has reports whether pid is in the set.
func (s PIDSet) Has(pid int) bool {
	_, ok := s[pid]
	return ok
}

// Difference returns the pids in s that are not in other.
func (s PIDSet) Difference(other PIDSet) PIDSet {
	out := make(PIDSet)
	for pid := range s {
		if !other.Has(pid) {
			out[pid] = struct{}{}
		}
	}
	return out
}

// Sorted returns the pids in ascending order.
func (s PIDSet) Sorted() []int {
	pids := make([]int, 0, len(s))
	for pid := range s {
		pids = append(pids, pid)
	}
	slices.Sort(pids)
	return pids
}
