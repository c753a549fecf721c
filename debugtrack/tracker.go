package debugtrack

import (
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/sarchlab/umd/gpumem"
	"github.com/sarchlab/umd/hw"
)

// A ContextTracker owns one GPU-readable tracked-address record per
// registered hardware context, plus the shared module debug area. The flush
// engine mirrors every committed base-address program into the records; an
// attached debugger reads them without stopping the GPU.
type ContextTracker struct {
	sync.Mutex

	allocator   gpumem.Allocator
	space       gpumem.AddressSpace
	residency   *gpumem.ResidencyTracker
	reservation gpumem.Reservation
	records     map[uint32]*gpumem.Allocation
	moduleArea  *ModuleDebugArea
	tornDown    bool
}

// NewContextTracker reserves and zero-initializes one record per context and
// sets up the module debug area. Either everything succeeds, or the partial
// construction is unwound and an error is returned. The records and the area
// are made resident for every context before any submission can consume
// them.
func NewContextTracker(
	allocator gpumem.Allocator,
	space gpumem.AddressSpace,
	residency *gpumem.ResidencyTracker,
	contextIDs []uint32,
	sharedArea bool,
) (*ContextTracker, error) {
	t := &ContextTracker{
		allocator: allocator,
		space:     space,
		residency: residency,
		records:   make(map[uint32]*gpumem.Allocation),
	}

	reservation, err := space.Reserve(uint64(len(contextIDs)) * RecordStride)
	if err != nil {
		return nil, fmt.Errorf("cannot reserve tracking addresses: %w", err)
	}
	t.reservation = reservation

	for i, ctxID := range contextIDs {
		gpuAddr := reservation.Address + uint64(i)*RecordStride

		record, err := allocator.AllocateAt(
			gpumem.PurposeStateTracking, RecordStride, gpuAddr)
		if err != nil {
			t.unwind()
			return nil, fmt.Errorf(
				"cannot allocate tracking record for context %d: %w",
				ctxID, err)
		}

		initRecord(record.Bytes())
		t.records[ctxID] = record
		residency.MakeResident(ctxID, []*gpumem.Allocation{record}, 0)
	}

	area, err := newModuleDebugArea(allocator, sharedArea)
	if err != nil {
		t.unwind()
		return nil, err
	}
	t.moduleArea = area

	for _, ctxID := range contextIDs {
		residency.MakeResident(ctxID, []*gpumem.Allocation{area.alloc}, 0)
	}

	return t, nil
}

// RecordStateChange overwrites the context's record with a newly committed
// base-address set. Each field is stored with one 8-byte atomic write, so a
// concurrent reader never sees a torn field. Tearing across the whole record
// is possible and left to the consumer protocol.
func (t *ContextTracker) RecordStateChange(ctxID uint32, sba hw.SbaAddresses) {
	record := t.record(ctxID)
	buf := record.Bytes()

	storeField(buf, recordGeneralStateOffset, sba.GeneralStateBaseAddress)
	storeField(buf, recordSurfaceStateOffset, sba.SurfaceStateBaseAddress)
	storeField(buf, recordDynamicStateOffset, sba.DynamicStateBaseAddress)
	storeField(buf, recordIndirectObjectOffset, sba.IndirectObjectBaseAddress)
	storeField(buf, recordInstructionOffset, sba.InstructionBaseAddress)
	storeField(buf, recordBindlessOffset, sba.BindlessSurfaceStateBaseAddress)
}

// TrackedAddresses returns the addresses currently visible in the context's
// record.
func (t *ContextTracker) TrackedAddresses(ctxID uint32) hw.SbaAddresses {
	record := t.record(ctxID)

	sba, err := decodeRecord(record.Bytes())
	if err != nil {
		log.Panic(err)
	}

	return sba
}

// ContextIDs returns the registered context IDs in ascending order.
func (t *ContextTracker) ContextIDs() []uint32 {
	t.Lock()
	defer t.Unlock()

	ids := make([]uint32, 0, len(t.records))
	for id := range t.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// ModuleArea returns the shared module debug area.
func (t *ContextTracker) ModuleArea() *ModuleDebugArea {
	return t.moduleArea
}

// PrintTrackedAddresses dumps one context's record, for diagnostics only.
func (t *ContextTracker) PrintTrackedAddresses(ctxID uint32) {
	sba := t.TrackedAddresses(ctxID)

	fmt.Fprintf(os.Stderr,
		"context %d: ssba=%#x gsba=%#x dsba=%#x ioba=%#x iba=%#x bsba=%#x\n",
		ctxID,
		sba.SurfaceStateBaseAddress, sba.GeneralStateBaseAddress,
		sba.DynamicStateBaseAddress, sba.IndirectObjectBaseAddress,
		sba.InstructionBaseAddress, sba.BindlessSurfaceStateBaseAddress)
}

// TearDown releases every per-context record, the address-space reservation
// backing them, and the module debug area.
func (t *ContextTracker) TearDown() {
	t.Lock()
	defer t.Unlock()

	if t.tornDown {
		log.Panic("context tracker torn down twice")
	}
	t.tornDown = true

	t.release()
}

func (t *ContextTracker) record(ctxID uint32) *gpumem.Allocation {
	t.Lock()
	defer t.Unlock()

	record, found := t.records[ctxID]
	if !found {
		log.Panicf("context %d is not registered for debug tracking", ctxID)
	}

	return record
}

func (t *ContextTracker) unwind() {
	t.release()
}

func (t *ContextTracker) release() {
	for ctxID, record := range t.records {
		t.residency.Evict(ctxID, []*gpumem.Allocation{record})
		t.allocator.Free(record)
	}
	t.records = map[uint32]*gpumem.Allocation{}

	if t.moduleArea != nil {
		t.allocator.Free(t.moduleArea.alloc)
		t.moduleArea = nil
	}

	if t.reservation.Size != 0 {
		t.space.Free(t.reservation)
		t.reservation = gpumem.Reservation{}
	}
}

// storeField writes one 8-byte record field atomically, in the record's
// little-endian layout regardless of host byte order. Allocation backings
// are at least 8-byte aligned and the record offsets are multiples of 8, so
// the cast is safe.
func storeField(buf []byte, offset int, v uint64) {
	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], v)

	word := *(*uint64)(unsafe.Pointer(&le[0]))
	atomic.StoreUint64((*uint64)(unsafe.Pointer(&buf[offset])), word)
}
