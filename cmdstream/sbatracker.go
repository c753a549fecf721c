package cmdstream

import "github.com/sarchlab/umd/hw"

// An SbaTracker holds the last-programmed base-address set of one submission
// stream. It is the single gate that decides whether a base-address
// reprogram, and the matching debug-record mirror, is needed in a flush.
type SbaTracker struct {
	committed bool
	last      hw.SbaAddresses
}

// IsAnyTrackedAddressChanged reports whether any of the six addresses, or a
// tracked size, differs from the last committed set. It is always true
// before the first commit. Pure comparison, no side effects.
func (t *SbaTracker) IsAnyTrackedAddressChanged(candidate hw.SbaAddresses) bool {
	if !t.committed {
		return true
	}

	return !t.last.Equal(candidate)
}

// Commit records the set that was just programmed.
func (t *SbaTracker) Commit(sba hw.SbaAddresses) {
	t.last = sba
	t.committed = true
}

// Last returns the last committed set. The bool is false before the first
// commit.
func (t *SbaTracker) Last() (hw.SbaAddresses, bool) {
	return t.last, t.committed
}
