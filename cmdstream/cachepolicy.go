package cmdstream

import "github.com/sarchlab/umd/hw"

// A PolicyRequest describes one submission to the cache flush policy: what
// changed since the last flush and which overrides are in force.
type PolicyRequest struct {
	TaskLevelAdvancing           bool
	BaseAddressChanged           bool
	InstructionCacheFlushPending bool
	PreemptionModeChanged        bool
	SamplerCacheFlushState       SamplerCacheFlushState

	FlushAllCaches         bool
	ForceStallPriorToFlush bool
}

// CacheFlushPolicy derives the ordered barrier list that must accompany a
// submission. The policy is stateless: identical requests always produce
// identical barrier lists.
type CacheFlushPolicy struct {
	workarounds  hw.Workarounds
	capabilities hw.Capabilities
}

// NewCacheFlushPolicy creates a policy for one hardware tier.
func NewCacheFlushPolicy(
	wa hw.Workarounds,
	caps hw.Capabilities,
) *CacheFlushPolicy {
	return &CacheFlushPolicy{workarounds: wa, capabilities: caps}
}

// Barriers returns the barriers to emit before the submission's commands, in
// order. An empty list means no barrier is required.
func (p *CacheFlushPolicy) Barriers(req PolicyRequest) []hw.Barrier {
	domains := p.deriveDomains(req)

	if domains == 0 &&
		!req.TaskLevelAdvancing &&
		!req.FlushAllCaches {
		return nil
	}

	if req.FlushAllCaches {
		domains = hw.AllDomains(p.capabilities)
	}

	var barriers []hw.Barrier
	if req.ForceStallPriorToFlush {
		barriers = append(barriers, hw.Barrier{Stall: true})
	}

	barriers = append(barriers, hw.Barrier{Stall: true, Domains: domains})

	return barriers
}

func (p *CacheFlushPolicy) deriveDomains(req PolicyRequest) hw.FlushDomain {
	var domains hw.FlushDomain

	if req.BaseAddressChanged {
		// The reprogram must be preceded by a texture cache invalidate and
		// a pipeline/data-port flush so that nothing consumes descriptors
		// through the old bases.
		domains |= hw.TextureCacheInvalidate | hw.DataPortFlush | hw.DCFlush
	}

	if req.InstructionCacheFlushPending {
		domains |= hw.InstructionCacheInvalidate
	}

	if req.PreemptionModeChanged {
		domains |= hw.StateCacheInvalidate
	}

	if req.SamplerCacheFlushState != SamplerCacheFlushNotRequired &&
		p.workarounds.SamplerCacheFlushBetweenRedescribedSurfaceReads {
		domains |= hw.DataPortFlush
	}

	return domains
}
