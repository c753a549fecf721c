// Package cmdstream implements the command-stream flush engine of the driver
// core: per-stream base-address tracking, cache flush policy, and the flush
// task that commits state programming and user commands into a ring buffer.
package cmdstream

import (
	"log"

	"github.com/sarchlab/umd/gpumem"
)

// A LinearStream is an append-only command buffer over one GPU allocation.
// The write position grows monotonically; it is never rewound except by an
// explicit Reset at stream destruction. Space must be ensured before any
// byte is appended, so a writer never leaves a half-written command behind.
type LinearStream struct {
	alloc *gpumem.Allocation
	used  int
}

// NewLinearStream wraps an allocation as a command stream.
func NewLinearStream(alloc *gpumem.Allocation) *LinearStream {
	if alloc == nil {
		log.Panic("linear stream needs a backing allocation")
	}

	return &LinearStream{alloc: alloc}
}

// Allocation returns the backing allocation, for residency lists.
func (s *LinearStream) Allocation() *gpumem.Allocation { return s.alloc }

// GPUAddress returns the GPU address of the stream start.
func (s *LinearStream) GPUAddress() uint64 { return s.alloc.GPUAddress() }

// Used returns the number of bytes appended so far.
func (s *LinearStream) Used() int { return s.used }

// Available returns the number of bytes that can still be appended.
func (s *LinearStream) Available() int {
	return len(s.alloc.Bytes()) - s.used
}

// Space reserves n bytes and returns the region to write into. Requesting
// more space than available is a programmer error: callers must check
// Available (and grow the stream) before appending.
func (s *LinearStream) Space(n int) []byte {
	if n > s.Available() {
		log.Panicf("linear stream overflow, %d bytes requested, %d available",
			n, s.Available())
	}

	region := s.alloc.Bytes()[s.used : s.used+n]
	s.used += n

	return region
}

// PadTo appends zero bytes until the write position is a multiple of the
// given alignment.
func (s *LinearStream) PadTo(alignment int) {
	rem := s.used % alignment
	if rem == 0 {
		return
	}

	pad := s.Space(alignment - rem)
	for i := range pad {
		pad[i] = 0
	}
}

// Reset rewinds the stream. Only valid at stream destruction or hand-back.
func (s *LinearStream) Reset() {
	s.used = 0
}
