package gpumem

import (
	"fmt"
	"log"
	"sync"
)

// A Purpose tags what an allocation backs. Allocators may use the tag to
// pick placement; the driver core uses it for introspection.
type Purpose int

// Allocation purposes.
const (
	PurposeUnknown Purpose = iota
	PurposeStateTracking
	PurposeModuleDebugArea
	PurposeCommandRing
	PurposeHeap
)

// Name returns the human-readable name of the purpose.
func (p Purpose) Name() string {
	switch p {
	case PurposeStateTracking:
		return "StateTracking"
	case PurposeModuleDebugArea:
		return "ModuleDebugArea"
	case PurposeCommandRing:
		return "CommandRing"
	case PurposeHeap:
		return "Heap"
	default:
		return "Unknown"
	}
}

// An Allocation is one GPU-reachable memory region with CPU-visible backing
// bytes. Allocations are exclusively owned; they are released through the
// allocator that produced them, exactly once.
type Allocation struct {
	purpose  Purpose
	gpuAddr  uint64
	data     []byte
	released bool

	// reservation is the address range the allocator reserved itself. It
	// has zero size for allocations placed at a caller-reserved address.
	reservation Reservation
}

// Purpose returns the purpose tag of the allocation.
func (a *Allocation) Purpose() Purpose { return a.purpose }

// GPUAddress returns the GPU virtual address of the allocation.
func (a *Allocation) GPUAddress() uint64 { return a.gpuAddr }

// Size returns the byte size of the allocation.
func (a *Allocation) Size() uint64 { return uint64(len(a.data)) }

// Bytes returns the CPU-visible backing of the allocation. Writing to the
// returned slice is what the GPU observes once the allocation is resident.
func (a *Allocation) Bytes() []byte {
	if a.released {
		log.Panic("access to a released allocation")
	}

	return a.data
}

// An Allocator produces fixed-size, purpose-tagged allocations backed by a
// shared address space. It is safe for concurrent use.
type Allocator interface {
	// Allocate creates an allocation at a fresh GPU address.
	Allocate(purpose Purpose, size uint64) (*Allocation, error)

	// AllocateAt creates an allocation at a caller-reserved GPU address.
	AllocateAt(purpose Purpose, size, gpuAddr uint64) (*Allocation, error)

	// Free releases an allocation. Freeing twice is a programmer error.
	Free(a *Allocation)
}

// NewAllocator creates an allocator on top of the given address space with a
// total capacity budget. Requests beyond the budget fail with an error so
// that constructors can unwind cleanly.
func NewAllocator(space AddressSpace, capacity uint64) Allocator {
	return &allocatorImpl{
		space:    space,
		capacity: capacity,
	}
}

type allocatorImpl struct {
	sync.Mutex

	space    AddressSpace
	capacity uint64
	used     uint64
}

func (m *allocatorImpl) Allocate(
	purpose Purpose,
	size uint64,
) (*Allocation, error) {
	r, err := m.space.Reserve(size)
	if err != nil {
		return nil, err
	}

	a, err := m.AllocateAt(purpose, size, r.Address)
	if err != nil {
		m.space.Free(r)
		return nil, err
	}
	a.reservation = r

	return a, nil
}

func (m *allocatorImpl) AllocateAt(
	purpose Purpose,
	size, gpuAddr uint64,
) (*Allocation, error) {
	m.Lock()
	defer m.Unlock()

	size = alignUp(size, PageSize)

	if m.used+size > m.capacity {
		return nil, fmt.Errorf(
			"allocator out of memory, %d bytes requested, %d available",
			size, m.capacity-m.used)
	}

	m.used += size

	return &Allocation{
		purpose: purpose,
		gpuAddr: gpuAddr,
		data:    make([]byte, size),
	}, nil
}

func (m *allocatorImpl) Free(a *Allocation) {
	m.Lock()
	defer m.Unlock()

	if a.released {
		log.Panic("allocation freed twice")
	}

	a.released = true
	m.used -= a.Size()

	// Caller-placed allocations do not own their address range.
	if a.reservation.Size != 0 {
		m.space.Free(a.reservation)
	}
}
