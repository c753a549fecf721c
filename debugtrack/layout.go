// Package debugtrack maintains the out-of-band, GPU-readable records that an
// external debugger uses to reconstruct execution context without stopping
// the GPU: per-context base-address records, the shared module debug area,
// and thread attention bitmasks.
package debugtrack

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/umd/hw"
)

// RecordStride is the distance between two consecutive per-context records.
// The layout below is consumed by an external debugger and must stay
// bit-exact: little-endian, 8-byte aligned fields, no extra padding.
//
//	offset  0: magic "sbaarea\0"
//	offset  8: version (1 byte), 7 reserved bytes
//	offset 16: GeneralStateBaseAddress
//	offset 24: SurfaceStateBaseAddress
//	offset 32: DynamicStateBaseAddress
//	offset 40: IndirectObjectBaseAddress
//	offset 48: InstructionBaseAddress
//	offset 56: BindlessSurfaceStateBaseAddress
const RecordStride = 64

// Field offsets of the tracked-address record.
const (
	recordMagicOffset          = 0
	recordVersionOffset        = 8
	recordGeneralStateOffset   = 16
	recordSurfaceStateOffset   = 24
	recordDynamicStateOffset   = 32
	recordIndirectObjectOffset = 40
	recordInstructionOffset    = 48
	recordBindlessOffset       = 56
)

// recordVersion is bumped whenever the record layout changes.
const recordVersion = 1

var recordMagic = [8]byte{'s', 'b', 'a', 'a', 'r', 'e', 'a', 0}

func initRecord(buf []byte) {
	copy(buf[recordMagicOffset:], recordMagic[:])
	buf[recordVersionOffset] = recordVersion
}

func decodeRecord(buf []byte) (hw.SbaAddresses, error) {
	if [8]byte(buf[recordMagicOffset:recordMagicOffset+8]) != recordMagic {
		return hw.SbaAddresses{}, fmt.Errorf("not a tracked-address record")
	}

	le := binary.LittleEndian

	return hw.SbaAddresses{
		GeneralStateBaseAddress:         le.Uint64(buf[recordGeneralStateOffset:]),
		SurfaceStateBaseAddress:         le.Uint64(buf[recordSurfaceStateOffset:]),
		DynamicStateBaseAddress:         le.Uint64(buf[recordDynamicStateOffset:]),
		IndirectObjectBaseAddress:       le.Uint64(buf[recordIndirectObjectOffset:]),
		InstructionBaseAddress:          le.Uint64(buf[recordInstructionOffset:]),
		BindlessSurfaceStateBaseAddress: le.Uint64(buf[recordBindlessOffset:]),
	}, nil
}
