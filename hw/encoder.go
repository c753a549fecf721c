package hw

import "encoding/binary"

// CacheLineSize is the command-stream alignment unit. Epilogues and stream
// hand-offs are padded to this size.
const CacheLineSize = 64

// An Encoder produces the hardware byte encoding of the commands that the
// flush engine emits. Sizing queries let callers reserve stream space before
// any byte is written. Encode calls write into the provided buffer, which
// must be at least the corresponding size, and return the bytes written.
type Encoder interface {
	BaseAddressStateSize() int
	EncodeBaseAddressState(buf []byte, sba SbaAddresses) int

	BarrierSize() int
	EncodeBarrier(buf []byte, b Barrier) int

	JumpSize() int
	EncodeJump(buf []byte, target uint64) int

	EndSize() int
	EncodeEnd(buf []byte) int
}

// Command opcodes shared by the generations below. The exact dword layouts
// differ per generation; the opcodes do not.
const (
	opcodeBaseAddressState uint32 = 0x61010000
	opcodeBarrier          uint32 = 0x7A000004
	opcodeJump             uint32 = 0x18800001
	opcodeEnd              uint32 = 0x05000000
)

type gen12Encoder struct{}

// NewGen12Encoder creates the command encoder for Gen12 hardware.
func NewGen12Encoder() Encoder {
	return gen12Encoder{}
}

func (gen12Encoder) BaseAddressStateSize() int { return 88 }

func (gen12Encoder) EncodeBaseAddressState(buf []byte, sba SbaAddresses) int {
	le := binary.LittleEndian

	le.PutUint32(buf[0:], opcodeBaseAddressState)
	le.PutUint32(buf[4:], sbaModifyBits(sba))
	le.PutUint64(buf[8:], sba.GeneralStateBaseAddress)
	le.PutUint64(buf[16:], sba.SurfaceStateBaseAddress)
	le.PutUint64(buf[24:], sba.DynamicStateBaseAddress)
	le.PutUint64(buf[32:], sba.IndirectObjectBaseAddress)
	le.PutUint64(buf[40:], sba.InstructionBaseAddress)
	le.PutUint64(buf[48:], sba.BindlessSurfaceStateBaseAddress)
	le.PutUint32(buf[56:], sba.GeneralStateBufferSize)
	le.PutUint32(buf[60:], sba.InstructionBufferSize)
	le.PutUint32(buf[64:], sba.BindlessSurfaceStateSize)
	le.PutUint32(buf[68:], 0)
	le.PutUint64(buf[72:], 0)
	le.PutUint64(buf[80:], 0)

	return 88
}

func (gen12Encoder) BarrierSize() int { return 24 }

func (gen12Encoder) EncodeBarrier(buf []byte, b Barrier) int {
	le := binary.LittleEndian

	control := uint32(b.Domains)
	if b.Stall {
		control |= 1 << 31
	}

	le.PutUint32(buf[0:], opcodeBarrier)
	le.PutUint32(buf[4:], control)
	le.PutUint64(buf[8:], 0)
	le.PutUint64(buf[16:], 0)

	return 24
}

func (gen12Encoder) JumpSize() int { return 16 }

func (gen12Encoder) EncodeJump(buf []byte, target uint64) int {
	le := binary.LittleEndian

	le.PutUint32(buf[0:], opcodeJump)
	le.PutUint32(buf[4:], 0)
	le.PutUint64(buf[8:], target)

	return 16
}

func (gen12Encoder) EndSize() int { return 4 }

func (gen12Encoder) EncodeEnd(buf []byte) int {
	binary.LittleEndian.PutUint32(buf[0:], opcodeEnd)
	return 4
}

// xeEncoder extends the Gen12 encoding with the wider barrier dword that
// carries the compression-control-surface flush bit.
type xeEncoder struct {
	gen12Encoder
}

// NewXeEncoder creates the command encoder for XeHP and XeHPC hardware.
func NewXeEncoder() Encoder {
	return xeEncoder{}
}

func (xeEncoder) BarrierSize() int { return 32 }

func (e xeEncoder) EncodeBarrier(buf []byte, b Barrier) int {
	e.gen12Encoder.EncodeBarrier(buf, b)

	le := binary.LittleEndian
	extended := uint32(0)
	if b.Has(CCSFlush) {
		extended |= 1
	}
	le.PutUint32(buf[24:], extended)
	le.PutUint32(buf[28:], 0)

	return 32
}

func sbaModifyBits(sba SbaAddresses) uint32 {
	bits := uint32(0)
	flags := []bool{
		sba.GeneralStateBaseAddressModify,
		sba.SurfaceStateBaseAddressModify,
		sba.DynamicStateBaseAddressModify,
		sba.IndirectObjectBaseAddressModify,
		sba.InstructionBaseAddressModify,
		sba.BindlessSurfaceStateBaseAddressModify,
	}

	for i, f := range flags {
		if f {
			bits |= 1 << i
		}
	}

	return bits
}
