package cmdstream

import (
	"log"

	"github.com/sarchlab/umd/gpumem"
	"github.com/sarchlab/umd/hw"
)

// A Builder can build flush engines.
type Builder struct {
	ctxID         uint32
	descriptor    hw.Descriptor
	hasDescriptor bool
	allocator     gpumem.Allocator
	residency     *gpumem.ResidencyTracker
	submitter     Submitter
	listener      StateChangeListener
	flushListener FlushListener
	mode          DispatchMode
	ringChunkSize uint64

	generalStateBase    uint64
	instructionHeapBase uint64

	flushAllCaches         bool
	forceStallPriorToFlush bool
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		mode:          ImmediateDispatch,
		ringChunkSize: 16 * 1024,
	}
}

// WithContextID sets the hardware context the engine submits on.
func (b Builder) WithContextID(id uint32) Builder {
	b.ctxID = id
	return b
}

// WithHardware sets the hardware descriptor the engine programs for.
func (b Builder) WithHardware(d hw.Descriptor) Builder {
	b.descriptor = d
	b.hasDescriptor = true
	return b
}

// WithAllocator sets the allocator used for ring chunks.
func (b Builder) WithAllocator(a gpumem.Allocator) Builder {
	b.allocator = a
	return b
}

// WithResidencyTracker sets the residency tracker shared across streams.
func (b Builder) WithResidencyTracker(t *gpumem.ResidencyTracker) Builder {
	b.residency = t
	return b
}

// WithSubmitter sets the OS submission interface.
func (b Builder) WithSubmitter(s Submitter) Builder {
	b.submitter = s
	return b
}

// WithStateChangeListener sets the listener that mirrors committed base
// addresses into debugger-visible records.
func (b Builder) WithStateChangeListener(l StateChangeListener) Builder {
	b.listener = l
	return b
}

// WithFlushListener sets the audit-record listener.
func (b Builder) WithFlushListener(l FlushListener) Builder {
	b.flushListener = l
	return b
}

// WithDispatchMode selects immediate or batched dispatch.
func (b Builder) WithDispatchMode(m DispatchMode) Builder {
	b.mode = m
	return b
}

// WithRingChunkSize sets the size of ring chunks acquired by the engine.
func (b Builder) WithRingChunkSize(size uint64) Builder {
	b.ringChunkSize = size
	return b
}

// WithGeneralStateBase sets the general-state heap base address.
func (b Builder) WithGeneralStateBase(addr uint64) Builder {
	b.generalStateBase = addr
	return b
}

// WithInstructionHeapBase sets the instruction heap base address.
func (b Builder) WithInstructionHeapBase(addr uint64) Builder {
	b.instructionHeapBase = addr
	return b
}

// WithFlushAllCaches forces every barrier to flush and invalidate all the
// cache domains the tier supports. Debug override.
func (b Builder) WithFlushAllCaches(enabled bool) Builder {
	b.flushAllCaches = enabled
	return b
}

// WithForceStallPriorToFlush forces a stall-only barrier before the main
// barrier. Debug override.
func (b Builder) WithForceStallPriorToFlush(enabled bool) Builder {
	b.forceStallPriorToFlush = enabled
	return b
}

// Build builds a flush engine.
func (b Builder) Build(name string) *FlushEngine {
	if !b.hasDescriptor {
		log.Panic("flush engine needs a hardware descriptor")
	}

	if b.allocator == nil {
		log.Panic("flush engine needs an allocator")
	}

	if b.residency == nil {
		log.Panic("flush engine needs a residency tracker")
	}

	if b.submitter == nil {
		log.Panic("flush engine needs a submitter")
	}

	return &FlushEngine{
		name:    name,
		ctxID:   b.ctxID,
		encoder: b.descriptor.Encoder,
		policy: NewCacheFlushPolicy(
			b.descriptor.Workarounds, b.descriptor.Capabilities),
		allocator:              b.allocator,
		residency:              b.residency,
		submitter:              b.submitter,
		listener:               b.listener,
		flushListener:          b.flushListener,
		mode:                   b.mode,
		queue:                  NewSubmissionQueue(),
		generalStateBase:       b.generalStateBase,
		instructionHeapBase:    b.instructionHeapBase,
		flushAllCaches:         b.flushAllCaches,
		forceStallPriorToFlush: b.forceStallPriorToFlush,
		ringChunkSize:          b.ringChunkSize,
	}
}
