package cmdstream

import (
	"fmt"
	"os"

	"github.com/sarchlab/umd/gpumem"
	"github.com/sarchlab/umd/hw"
)

// DispatchMode selects when recorded commands reach the hardware.
type DispatchMode int

// Dispatch modes.
const (
	// ImmediateDispatch submits every flush directly.
	ImmediateDispatch DispatchMode = iota

	// BatchedDispatch records flushes and submits them on an explicit
	// drain, in FIFO order.
	BatchedDispatch
)

// Heap buffer sizes programmed with the base-address command, in pages.
const (
	generalStateSizePages = 0xfffff
	instructionSizePages  = 0x100000
)

// A StateChangeListener is notified whenever the engine commits a new
// base-address program, before the commands that use it are submitted.
type StateChangeListener interface {
	RecordStateChange(ctxID uint32, sba hw.SbaAddresses)
}

// A FlushTaskRecord is the audit record of one non-empty flush.
type FlushTaskRecord struct {
	Stream                string
	TaskCount             uint64
	TaskLevel             uint32
	EmittedBytes          int
	NumBarriers           int
	BaseAddressProgrammed bool
}

// A FlushListener receives an audit record for every flush that emits
// commands.
type FlushListener interface {
	FlushTaskRecorded(r FlushTaskRecord)
}

// A FlushEngine serializes all flushes of one execution stream. It decides,
// per submission, what hardware state must be reprogrammed, commits the
// state commands and barriers into its ring, and chains the caller's
// commands in. One engine owns one stream; callers wanting overlap use
// independent engines.
type FlushEngine struct {
	name      string
	ctxID     uint32
	encoder   hw.Encoder
	policy    *CacheFlushPolicy
	allocator gpumem.Allocator
	residency *gpumem.ResidencyTracker
	submitter Submitter

	listener      StateChangeListener
	flushListener FlushListener

	mode  DispatchMode
	queue *SubmissionQueue

	generalStateBase    uint64
	instructionHeapBase uint64

	flushAllCaches         bool
	forceStallPriorToFlush bool

	ringChunkSize uint64
	ring          *LinearStream

	tracker       SbaTracker
	dirty         DirtyState
	taskCount     uint64
	lastTaskLevel uint32
	flushStamp    uint64
}

// Name returns the name of the engine.
func (e *FlushEngine) Name() string { return e.name }

// ContextID returns the hardware context this engine submits on.
func (e *FlushEngine) ContextID() uint32 { return e.ctxID }

// RegisterInstructionCacheFlush requests an instruction cache invalidate
// with the next flush. The request is cleared once the barrier is emitted.
func (e *FlushEngine) RegisterInstructionCacheFlush() {
	e.dirty.instructionCacheFlushPending = true
}

// SetSamplerCacheFlushRequired moves the sampler cache flush state machine.
func (e *FlushEngine) SetSamplerCacheFlushRequired(s SamplerCacheFlushState) {
	e.dirty.samplerCacheFlushState = s
}

// SamplerCacheFlushState returns the current sampler cache flush state.
func (e *FlushEngine) SamplerCacheFlushState() SamplerCacheFlushState {
	return e.dirty.samplerCacheFlushState
}

// InitProgrammingFlags forces a full state reprogram with the next flush,
// regardless of what the trackers report.
func (e *FlushEngine) InitProgrammingFlags() {
	e.dirty.forceProgramming = true
}

// CmdSizeForEpilogue returns the number of bytes the caller must reserve at
// the end of its stream for the epilogue requested by the flags.
func (e *FlushEngine) CmdSizeForEpilogue(flags DispatchFlags) int {
	if !flags.EpilogueRequired {
		return 0
	}

	return hw.CacheLineSize
}

// RingUsed returns the bytes the engine has committed into its current ring
// chunk.
func (e *FlushEngine) RingUsed() int {
	if e.ring == nil {
		return 0
	}

	return e.ring.Used()
}

// CompletionStamp returns the stamp of the last flush.
func (e *FlushEngine) CompletionStamp() CompletionStamp {
	return CompletionStamp{
		TaskCount:  e.taskCount,
		TaskLevel:  e.lastTaskLevel,
		FlushStamp: e.flushStamp,
	}
}

// FlushTask commits one submission. It consults the base-address tracker and
// the cache flush policy, emits the minimal correct command sequence, and
// submits (or records, in batching mode) the result. When nothing is dirty,
// the task level is not advancing, and no blocking or epilogue flag is set,
// it emits zero bytes and returns the previous stamp unchanged.
//
// Once emission starts the flush runs to completion: space is ensured before
// any byte is appended, so the ring never holds a half-written command.
func (e *FlushEngine) FlushTask(
	taskStream *LinearStream,
	startOffset int,
	surfaceHeap, dynamicHeap, indirectHeap *gpumem.Allocation,
	taskLevel uint32,
	flags DispatchFlags,
) (CompletionStamp, error) {
	sba := e.buildSba(surfaceHeap, dynamicHeap, indirectHeap)
	sbaChanged := e.dirty.forceProgramming ||
		e.tracker.IsAnyTrackedAddressChanged(sba)
	levelAdvancing := taskLevel > e.lastTaskLevel
	preemptionChanged := !e.dirty.preemptionModeSent ||
		flags.PreemptionMode != e.dirty.lastPreemptionMode

	barriers := e.policy.Barriers(PolicyRequest{
		TaskLevelAdvancing:           levelAdvancing,
		BaseAddressChanged:           sbaChanged,
		InstructionCacheFlushPending: e.dirty.instructionCacheFlushPending,
		PreemptionModeChanged:        preemptionChanged,
		SamplerCacheFlushState:       e.dirty.samplerCacheFlushState,
		FlushAllCaches:               e.flushAllCaches,
		ForceStallPriorToFlush:       e.forceStallPriorToFlush,
	})

	if len(barriers) == 0 && !sbaChanged && !levelAdvancing &&
		!flags.Blocking && !flags.GuardCommandBufferWithBarrier &&
		!flags.EpilogueRequired {
		return e.CompletionStamp(), nil
	}

	emitted := 0

	stateBytes := len(barriers) * e.encoder.BarrierSize()
	if sbaChanged {
		stateBytes += e.encoder.BaseAddressStateSize()
	}
	if stateBytes > 0 {
		stateBytes += e.encoder.JumpSize()
	}

	ringBytes := stateBytes
	if flags.EpilogueRequired {
		ringBytes += hw.CacheLineSize
	}

	if ringBytes > 0 {
		if err := e.ensureRingSpace(ringBytes); err != nil {
			return e.CompletionStamp(), err
		}
	}

	batchStart := startOffset
	batchAlloc := taskStream.Allocation()

	if stateBytes > 0 {
		batchAlloc = e.ring.Allocation()
		batchStart = e.ring.Used()

		for _, b := range barriers {
			size := e.encoder.BarrierSize()
			emitted += e.encoder.EncodeBarrier(e.ring.Space(size), b)
		}

		if sbaChanged {
			size := e.encoder.BaseAddressStateSize()
			emitted += e.encoder.EncodeBaseAddressState(e.ring.Space(size), sba)

			e.tracker.Commit(sba)
			if e.listener != nil {
				e.listener.RecordStateChange(e.ctxID, sba)
			}
		}

		// Chain into the caller's commands.
		size := e.encoder.JumpSize()
		target := taskStream.GPUAddress() + uint64(startOffset)
		emitted += e.encoder.EncodeJump(e.ring.Space(size), target)
	}

	e.dirty.instructionCacheFlushPending = false
	e.dirty.lastPreemptionMode = flags.PreemptionMode
	e.dirty.preemptionModeSent = true

	if flags.Blocking || flags.GuardCommandBufferWithBarrier {
		// Guard barrier at the end of the caller's stream: prior writes
		// must be globally visible before the caller is signaled.
		size := e.encoder.BarrierSize()
		guard := hw.Barrier{Stall: true, Domains: hw.DCFlush}
		emitted += e.encoder.EncodeBarrier(taskStream.Space(size), guard)
	}

	if flags.EpilogueRequired {
		emitted += e.emitEpilogue(taskStream)
	}

	e.taskCount++
	if levelAdvancing {
		e.lastTaskLevel = taskLevel
	}

	surfaces := e.surfaceList(taskStream, surfaceHeap, dynamicHeap,
		indirectHeap, ringBytes > 0)

	batch := BatchBuffer{
		Allocation:        batchAlloc,
		StartOffset:       batchStart,
		RequiresCoherency: flags.RequiresCoherency,
		LowPriority:       flags.LowPriority,
	}

	// Residency and content writes happen before submission, never after.
	e.residency.MakeResident(e.ctxID, surfaces, e.taskCount)

	if e.mode == BatchedDispatch {
		e.queue.record(&recordedSubmission{
			batch:     batch,
			surfaces:  surfaces,
			taskCount: e.taskCount,
		})
	} else {
		if err := e.submitter.Submit(batch, surfaces); err != nil {
			return e.CompletionStamp(), err
		}
		e.flushStamp++
	}

	e.dirty.Reset()

	if e.flushListener != nil {
		e.flushListener.FlushTaskRecorded(FlushTaskRecord{
			Stream:                e.name,
			TaskCount:             e.taskCount,
			TaskLevel:             e.lastTaskLevel,
			EmittedBytes:          emitted,
			NumBarriers:           len(barriers),
			BaseAddressProgrammed: sbaChanged,
		})
	}

	return e.CompletionStamp(), nil
}

// DrainBatchedSubmissions submits every recorded flush in FIFO order. After
// a submission completes, its allocations are evicted again.
func (e *FlushEngine) DrainBatchedSubmissions() error {
	for !e.queue.IsEmpty() {
		s := e.queue.pop()

		// Recorded flushes share surfaces. Evicting behind an earlier
		// submission must not strip residency from a pending one, so
		// residency is re-established per submission before it is handed
		// to the submitter.
		e.residency.MakeResident(e.ctxID, s.surfaces, s.taskCount)

		if err := e.submitter.Submit(s.batch, s.surfaces); err != nil {
			return err
		}
		e.flushStamp++

		e.residency.Evict(e.ctxID, s.surfaces)
	}

	return nil
}

// SubmissionQueue exposes the engine's recorded submissions for inspection.
func (e *FlushEngine) SubmissionQueue() *SubmissionQueue {
	return e.queue
}

// PrintState dumps the engine's tracking state, for diagnostics only.
func (e *FlushEngine) PrintState() {
	last, committed := e.tracker.Last()
	fmt.Fprintf(os.Stderr,
		"engine %s: taskCount=%d taskLevel=%d flushStamp=%d committed=%t "+
			"ssba=%x dsba=%x\n",
		e.name, e.taskCount, e.lastTaskLevel, e.flushStamp, committed,
		last.SurfaceStateBaseAddress, last.DynamicStateBaseAddress)
}

func (e *FlushEngine) buildSba(
	surfaceHeap, dynamicHeap, indirectHeap *gpumem.Allocation,
) hw.SbaAddresses {
	sba := hw.SbaAddresses{
		GeneralStateBaseAddress:       e.generalStateBase,
		GeneralStateBaseAddressModify: true,
		GeneralStateBufferSize:        generalStateSizePages,
		InstructionBaseAddress:        e.instructionHeapBase,
		InstructionBaseAddressModify:  true,
		InstructionBufferSize:         instructionSizePages,
	}

	// Heaps that are not provided are not programmed.
	if surfaceHeap != nil {
		sba.SurfaceStateBaseAddress = surfaceHeap.GPUAddress()
		sba.SurfaceStateBaseAddressModify = true
		sba.BindlessSurfaceStateBaseAddress = surfaceHeap.GPUAddress()
		sba.BindlessSurfaceStateBaseAddressModify = true
		sba.BindlessSurfaceStateSize =
			uint32(surfaceHeap.Size() / gpumem.PageSize)
	}

	if dynamicHeap != nil {
		sba.DynamicStateBaseAddress = dynamicHeap.GPUAddress()
		sba.DynamicStateBaseAddressModify = true
	}

	if indirectHeap != nil {
		sba.IndirectObjectBaseAddress = indirectHeap.GPUAddress()
		sba.IndirectObjectBaseAddressModify = true
	}

	return sba
}

// emitEpilogue hands the caller's stream off to the engine ring: a jump at
// the end of the caller's stream targets an end command in the ring, so the
// caller's stream is chained rather than terminated.
func (e *FlushEngine) emitEpilogue(taskStream *LinearStream) int {
	emitted := 0

	endOffset := e.ring.Used()
	emitted += e.encoder.EncodeEnd(e.ring.Space(e.encoder.EndSize()))
	e.ring.PadTo(hw.CacheLineSize)

	target := e.ring.GPUAddress() + uint64(endOffset)
	emitted += e.encoder.EncodeJump(
		taskStream.Space(e.encoder.JumpSize()), target)
	taskStream.PadTo(hw.CacheLineSize)

	return emitted
}

func (e *FlushEngine) surfaceList(
	taskStream *LinearStream,
	surfaceHeap, dynamicHeap, indirectHeap *gpumem.Allocation,
	ringUsed bool,
) []*gpumem.Allocation {
	surfaces := []*gpumem.Allocation{taskStream.Allocation()}

	for _, heap := range []*gpumem.Allocation{
		surfaceHeap, dynamicHeap, indirectHeap,
	} {
		if heap != nil {
			surfaces = append(surfaces, heap)
		}
	}

	if ringUsed {
		surfaces = append(surfaces, e.ring.Allocation())
	}

	return surfaces
}

// ensureRingSpace makes sure the engine ring can take n more bytes,
// acquiring a fresh chunk before anything is appended. A chunk that is
// already referenced by recorded submissions stays alive through their
// surface lists.
func (e *FlushEngine) ensureRingSpace(n int) error {
	if e.ring != nil && e.ring.Available() >= n {
		return nil
	}

	size := e.ringChunkSize
	if uint64(n) > size {
		size = uint64(n)
	}

	alloc, err := e.allocator.Allocate(gpumem.PurposeCommandRing, size)
	if err != nil {
		return fmt.Errorf("cannot grow command ring: %w", err)
	}

	e.ring = NewLinearStream(alloc)

	return nil
}
