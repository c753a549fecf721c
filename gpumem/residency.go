package gpumem

import "sync"

// A ResidencyTracker marks allocations resident or evicted per execution
// context. Residency must be established, together with the content writes,
// before the submission that consumes the allocation. The tracker is shared
// across streams and safe for concurrent use.
type ResidencyTracker struct {
	sync.Mutex

	resident map[uint32]map[*Allocation]uint64
}

// NewResidencyTracker creates an empty residency tracker.
func NewResidencyTracker() *ResidencyTracker {
	return &ResidencyTracker{
		resident: make(map[uint32]map[*Allocation]uint64),
	}
}

// MakeResident pins the given allocations for the context, recording the
// task count of the submission that uses them.
func (t *ResidencyTracker) MakeResident(
	ctxID uint32,
	allocs []*Allocation,
	taskCount uint64,
) {
	t.Lock()
	defer t.Unlock()

	set, found := t.resident[ctxID]
	if !found {
		set = make(map[*Allocation]uint64)
		t.resident[ctxID] = set
	}

	for _, a := range allocs {
		set[a] = taskCount
	}
}

// Evict removes the given allocations from the context's resident set.
func (t *ResidencyTracker) Evict(ctxID uint32, allocs []*Allocation) {
	t.Lock()
	defer t.Unlock()

	set, found := t.resident[ctxID]
	if !found {
		return
	}

	for _, a := range allocs {
		delete(set, a)
	}
}

// IsResident reports whether the allocation is resident for the context.
func (t *ResidencyTracker) IsResident(ctxID uint32, a *Allocation) bool {
	t.Lock()
	defer t.Unlock()

	set, found := t.resident[ctxID]
	if !found {
		return false
	}

	_, found = set[a]

	return found
}

// TaskCount returns the task count recorded when the allocation was last
// made resident for the context.
func (t *ResidencyTracker) TaskCount(
	ctxID uint32,
	a *Allocation,
) (uint64, bool) {
	t.Lock()
	defer t.Unlock()

	set, found := t.resident[ctxID]
	if !found {
		return 0, false
	}

	count, found := set[a]

	return count, found
}

// NumResident returns the number of allocations resident for the context.
func (t *ResidencyTracker) NumResident(ctxID uint32) int {
	t.Lock()
	defer t.Unlock()

	return len(t.resident[ctxID])
}
