package debugtrack

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/umd/gpumem"
)

// DebugAreaSize is the size of the module debug area, one large page.
const DebugAreaSize = gpumem.PageSize64K

// DebugAreaHeaderSize is the byte size of the header at the start of the
// area. The scratch region spans [DebugAreaHeaderSize, DebugAreaSize -
// DebugAreaHeaderSize).
//
//	offset  0: magic "dbgarea\0"
//	offset  8: version (1 byte)
//	offset  9: page-size granularity indicator (1 byte)
//	offset 10: shared-vs-per-tile flag (1 byte), 1 reserved byte
//	offset 12: total region size (4 bytes)
//	offset 16: scratch begin offset (4 bytes)
//	offset 20: scratch end offset (4 bytes)
const DebugAreaHeaderSize = 24

const debugAreaVersion = 1

var debugAreaMagic = [8]byte{'d', 'b', 'g', 'a', 'r', 'e', 'a', 0}

// A DebugAreaHeader describes the layout of the module debug area to the
// GPU-side debug agent. It is written once at device init and read-only
// afterwards.
type DebugAreaHeader struct {
	Version      uint8
	PageGranule  uint8
	IsShared     bool
	TotalSize    uint32
	ScratchBegin uint32
	ScratchEnd   uint32
}

// A ModuleDebugArea is the single device-wide scratch region used by the
// GPU-side debug agent.
type ModuleDebugArea struct {
	alloc  *gpumem.Allocation
	header DebugAreaHeader
}

// Allocation returns the backing allocation of the area.
func (a *ModuleDebugArea) Allocation() *gpumem.Allocation { return a.alloc }

// Header returns the header as written at init.
func (a *ModuleDebugArea) Header() DebugAreaHeader { return a.header }

func newModuleDebugArea(
	allocator gpumem.Allocator,
	isShared bool,
) (*ModuleDebugArea, error) {
	alloc, err := allocator.Allocate(
		gpumem.PurposeModuleDebugArea, DebugAreaSize)
	if err != nil {
		return nil, fmt.Errorf("cannot allocate module debug area: %w", err)
	}

	header := DebugAreaHeader{
		Version:      debugAreaVersion,
		PageGranule:  1,
		IsShared:     isShared,
		TotalSize:    DebugAreaSize,
		ScratchBegin: DebugAreaHeaderSize,
		ScratchEnd:   DebugAreaSize - DebugAreaHeaderSize,
	}
	writeDebugAreaHeader(alloc.Bytes(), header)

	return &ModuleDebugArea{alloc: alloc, header: header}, nil
}

func writeDebugAreaHeader(buf []byte, h DebugAreaHeader) {
	le := binary.LittleEndian

	copy(buf[0:], debugAreaMagic[:])
	buf[8] = h.Version
	buf[9] = h.PageGranule
	buf[10] = 0
	if h.IsShared {
		buf[10] = 1
	}
	buf[11] = 0
	le.PutUint32(buf[12:], h.TotalSize)
	le.PutUint32(buf[16:], h.ScratchBegin)
	le.PutUint32(buf[20:], h.ScratchEnd)
}

// ReadDebugAreaHeader decodes a header from the start of an area.
func ReadDebugAreaHeader(buf []byte) (DebugAreaHeader, error) {
	if [8]byte(buf[0:8]) != debugAreaMagic {
		return DebugAreaHeader{}, fmt.Errorf("not a module debug area")
	}

	le := binary.LittleEndian

	return DebugAreaHeader{
		Version:      buf[8],
		PageGranule:  buf[9],
		IsShared:     buf[10] == 1,
		TotalSize:    le.Uint32(buf[12:]),
		ScratchBegin: le.Uint32(buf[16:]),
		ScratchEnd:   le.Uint32(buf[20:]),
	}, nil
}
