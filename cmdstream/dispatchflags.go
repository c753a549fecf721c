package cmdstream

// DispatchFlags carries the per-submission requests that shape one flush
// task.
type DispatchFlags struct {
	// Blocking asks for a trailing barrier that guarantees prior writes are
	// globally visible before the caller is signaled.
	Blocking bool

	// GuardCommandBufferWithBarrier asks for a guard barrier at the end of
	// the caller's command buffer.
	GuardCommandBufferWithBarrier bool

	// EpilogueRequired hands the stream off to the engine's own ring
	// instead of terminating it.
	EpilogueRequired bool

	// RequiresCoherency is carried through to the submission interface.
	RequiresCoherency bool

	// LowPriority is carried through to the submission interface.
	LowPriority bool

	PreemptionMode PreemptionMode
}

// A CompletionStamp identifies one flush for later wait or poll by the
// caller. This core never waits itself.
type CompletionStamp struct {
	TaskCount  uint64
	TaskLevel  uint32
	FlushStamp uint64
}
