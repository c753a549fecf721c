// Package gpumem provides the GPU memory collaborators of the driver core:
// virtual-address reservation, purpose-tagged allocations with CPU-visible
// backing, and per-context residency tracking.
package gpumem

import (
	"fmt"
	"log"
	"sync"
)

// PageSize is the smallest GPU page granularity.
const PageSize = 4096

// PageSize64K is the large-page granularity used for the module debug area.
const PageSize64K = 65536

// A Reservation is one GPU virtual-address range handed out by an
// AddressSpace. The zero value is not a valid reservation.
type Reservation struct {
	Address uint64
	Size    uint64
}

// An AddressSpace reserves and frees GPU virtual-address ranges. It is
// shared across streams and safe for concurrent use.
type AddressSpace interface {
	Reserve(size uint64) (Reservation, error)
	Free(r Reservation)
}

// NewAddressSpace creates an address space covering [base, base+size).
func NewAddressSpace(base, size uint64) AddressSpace {
	if base%PageSize != 0 || size%PageSize != 0 {
		log.Panic("address space must be page aligned")
	}

	return &addressSpaceImpl{
		base:  base,
		limit: base + size,
		next:  base,
		freed: make(map[uint64]uint64),
	}
}

type addressSpaceImpl struct {
	sync.Mutex

	base  uint64
	limit uint64
	next  uint64
	freed map[uint64]uint64
}

func (s *addressSpaceImpl) Reserve(size uint64) (Reservation, error) {
	s.Lock()
	defer s.Unlock()

	size = alignUp(size, PageSize)

	for addr, freedSize := range s.freed {
		if freedSize == size {
			delete(s.freed, addr)
			return Reservation{Address: addr, Size: size}, nil
		}
	}

	if s.next+size > s.limit {
		return Reservation{},
			fmt.Errorf("gpu address space exhausted, %d bytes requested", size)
	}

	r := Reservation{Address: s.next, Size: size}
	s.next += size

	return r, nil
}

func (s *addressSpaceImpl) Free(r Reservation) {
	s.Lock()
	defer s.Unlock()

	if r.Address < s.base || r.Address >= s.limit {
		log.Panicf("freeing reservation 0x%x outside the address space",
			r.Address)
	}

	if _, found := s.freed[r.Address]; found {
		log.Panicf("reservation 0x%x freed twice", r.Address)
	}

	s.freed[r.Address] = r.Size
}

func alignUp(v, alignment uint64) uint64 {
	return (v + alignment - 1) / alignment * alignment
}
