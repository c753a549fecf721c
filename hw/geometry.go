package hw

// Geometry describes the execution-unit hierarchy of a hardware generation.
// A thread is the finest-grained schedulable unit within an EU.
type Geometry struct {
	MaxSlices            uint32
	MaxSubslicesPerSlice uint32
	MaxEUPerSubslice     uint32
	ThreadsPerEU         uint32
}

// BytesPerEU returns the number of bytes needed to hold one flag bit per
// thread of a single EU.
func (g Geometry) BytesPerEU() uint32 {
	return (g.ThreadsPerEU + 7) / 8
}

// Workarounds lists the hardware workaround flags that change how the driver
// programs the command stream.
type Workarounds struct {
	// SamplerCacheFlushBetweenRedescribedSurfaceReads gates the data-port
	// flush that accompanies a sampler-cache flush request. When false, the
	// request is ignored.
	SamplerCacheFlushBetweenRedescribedSurfaceReads bool
}

// Capabilities lists per-tier features that the flush policy consults.
type Capabilities struct {
	// SupportsCCSFlush reports whether the compression-control-surface
	// flush bit exists on this tier.
	SupportsCCSFlush bool
}
