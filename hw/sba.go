package hw

// SbaAddresses carries one snapshot of the six base addresses that the
// pipeline consults for every instruction, together with the buffer sizes and
// modify-enable flags that accompany them in the base-address command.
type SbaAddresses struct {
	GeneralStateBaseAddress         uint64
	SurfaceStateBaseAddress         uint64
	DynamicStateBaseAddress         uint64
	IndirectObjectBaseAddress       uint64
	InstructionBaseAddress          uint64
	BindlessSurfaceStateBaseAddress uint64

	GeneralStateBufferSize   uint32
	InstructionBufferSize    uint32
	BindlessSurfaceStateSize uint32

	GeneralStateBaseAddressModify         bool
	SurfaceStateBaseAddressModify         bool
	DynamicStateBaseAddressModify         bool
	IndirectObjectBaseAddressModify       bool
	InstructionBaseAddressModify          bool
	BindlessSurfaceStateBaseAddressModify bool
}

// Equal reports whether two snapshots program the same addresses and sizes.
// Modify-enable flags do not participate as they only describe which fields
// the command touches.
func (s SbaAddresses) Equal(o SbaAddresses) bool {
	return s.GeneralStateBaseAddress == o.GeneralStateBaseAddress &&
		s.SurfaceStateBaseAddress == o.SurfaceStateBaseAddress &&
		s.DynamicStateBaseAddress == o.DynamicStateBaseAddress &&
		s.IndirectObjectBaseAddress == o.IndirectObjectBaseAddress &&
		s.InstructionBaseAddress == o.InstructionBaseAddress &&
		s.BindlessSurfaceStateBaseAddress == o.BindlessSurfaceStateBaseAddress &&
		s.GeneralStateBufferSize == o.GeneralStateBufferSize &&
		s.InstructionBufferSize == o.InstructionBufferSize &&
		s.BindlessSurfaceStateSize == o.BindlessSurfaceStateSize
}
