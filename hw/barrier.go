package hw

// A FlushDomain is one cache domain that a barrier can flush or invalidate.
type FlushDomain uint32

// Cache domains that barriers can act on. CCSFlush only exists on tiers
// whose Capabilities report SupportsCCSFlush.
const (
	RenderTargetCacheFlush FlushDomain = 1 << iota
	InstructionCacheInvalidate
	TextureCacheInvalidate
	ConstantCacheInvalidate
	StateCacheInvalidate
	VFCacheInvalidate
	DCFlush
	DataPortFlush
	PipeFlush
	CCSFlush
)

// A Barrier describes one stall/flush command to emit into the command
// stream. A zero Domains value with Stall set is a stall-only barrier.
type Barrier struct {
	Stall   bool
	Domains FlushDomain
}

// AllDomains returns the union of every flush/invalidate domain that the
// given tier supports.
func AllDomains(caps Capabilities) FlushDomain {
	d := RenderTargetCacheFlush |
		InstructionCacheInvalidate |
		TextureCacheInvalidate |
		ConstantCacheInvalidate |
		StateCacheInvalidate |
		VFCacheInvalidate |
		DCFlush |
		DataPortFlush |
		PipeFlush
	if caps.SupportsCCSFlush {
		d |= CCSFlush
	}

	return d
}

// Has reports whether the barrier touches the given domain.
func (b Barrier) Has(d FlushDomain) bool {
	return b.Domains&d == d
}
