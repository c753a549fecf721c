package cmdstream

// SamplerCacheFlushState is the 3-state machine that drives sampler cache
// flushing. Transitions are requested by submissions; the flush policy only
// reads the current state.
type SamplerCacheFlushState int

// Sampler cache flush states.
const (
	SamplerCacheFlushNotRequired SamplerCacheFlushState = iota
	SamplerCacheFlushBefore
	SamplerCacheFlushAfter
)

// PreemptionMode selects how the hardware may preempt a workload.
type PreemptionMode int

// Preemption modes, coarsest first.
const (
	PreemptionDisabled PreemptionMode = iota
	PreemptionMidBatch
	PreemptionThreadGroup
	PreemptionMidThread
)

// DirtyState records what has changed on one execution stream since the last
// flush. It is owned exclusively by the stream's flush engine and reset
// after each successful flush.
type DirtyState struct {
	// forceProgramming requests a full state reprogram regardless of what
	// the trackers report.
	forceProgramming bool

	instructionCacheFlushPending bool
	samplerCacheFlushState       SamplerCacheFlushState
	lastPreemptionMode           PreemptionMode
	preemptionModeSent           bool
}

// Reset clears the per-flush bits. The sampler cache state and the last
// preemption mode survive a flush: they are stream-lifetime state.
func (d *DirtyState) Reset() {
	d.forceProgramming = false
	d.instructionCacheFlushPending = false
}
