package cmdstream

import (
	"log"

	"github.com/sarchlab/umd/gpumem"
)

// A BatchBuffer is one hardware submission: a command buffer allocation, the
// offset where execution starts, and the submission attributes.
type BatchBuffer struct {
	Allocation        *gpumem.Allocation
	StartOffset       int
	RequiresCoherency bool
	LowPriority       bool
}

// A Submitter hands finished batch buffers to the OS submission interface.
// Residency of the surface list is established before Submit is called.
type Submitter interface {
	Submit(batch BatchBuffer, surfaces []*gpumem.Allocation) error
}

// A recordedSubmission is one flush captured in batching mode, waiting for
// an explicit drain.
type recordedSubmission struct {
	batch     BatchBuffer
	surfaces  []*gpumem.Allocation
	taskCount uint64
}

// A SubmissionQueue buffers recorded submissions in FIFO order for deferred
// dispatch.
type SubmissionQueue struct {
	recorded []*recordedSubmission
}

// NewSubmissionQueue creates an empty submission queue.
func NewSubmissionQueue() *SubmissionQueue {
	return &SubmissionQueue{}
}

// IsEmpty reports whether any submission is pending.
func (q *SubmissionQueue) IsEmpty() bool {
	return len(q.recorded) == 0
}

// Size returns the number of pending submissions.
func (q *SubmissionQueue) Size() int {
	return len(q.recorded)
}

// Peek returns the oldest pending submission without removing it.
func (q *SubmissionQueue) Peek() *recordedSubmission {
	if len(q.recorded) == 0 {
		return nil
	}

	return q.recorded[0]
}

func (q *SubmissionQueue) record(s *recordedSubmission) {
	if s.batch.Allocation == nil {
		log.Panic("recording a submission without a command buffer")
	}

	q.recorded = append(q.recorded, s)
}

func (q *SubmissionQueue) pop() *recordedSubmission {
	if len(q.recorded) == 0 {
		return nil
	}

	s := q.recorded[0]
	q.recorded = q.recorded[1:]

	return s
}
