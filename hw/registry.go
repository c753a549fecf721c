package hw

import "log"

// A Descriptor bundles everything the driver needs to know about one
// hardware generation.
type Descriptor struct {
	Generation   Generation
	Geometry     Geometry
	Workarounds  Workarounds
	Capabilities Capabilities
	Encoder      Encoder
}

// A Registry maps generation tags to their descriptors. It is built once at
// process start and passed by reference into the components that need it.
type Registry struct {
	descriptors map[Generation]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[Generation]Descriptor),
	}
}

// Register adds one generation to the registry. Registering the same
// generation twice is a programmer error.
func (r *Registry) Register(d Descriptor) {
	if _, found := r.descriptors[d.Generation]; found {
		log.Panicf("generation %s registered twice", d.Generation.Name())
	}

	if d.Encoder == nil {
		log.Panicf("generation %s registered without an encoder",
			d.Generation.Name())
	}

	r.descriptors[d.Generation] = d
}

// Descriptor returns the descriptor for the given generation. Looking up an
// unregistered generation is a programmer error.
func (r *Registry) Descriptor(g Generation) Descriptor {
	d, found := r.descriptors[g]
	if !found {
		log.Panicf("generation %s is not registered", g.Name())
	}

	return d
}

// DefaultRegistry builds a registry with all the generations that this
// driver core supports.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(Descriptor{
		Generation: Gen12,
		Geometry: Geometry{
			MaxSlices:            1,
			MaxSubslicesPerSlice: 6,
			MaxEUPerSubslice:     16,
			ThreadsPerEU:         7,
		},
		Workarounds: Workarounds{
			SamplerCacheFlushBetweenRedescribedSurfaceReads: true,
		},
		Capabilities: Capabilities{SupportsCCSFlush: false},
		Encoder:      NewGen12Encoder(),
	})

	r.Register(Descriptor{
		Generation: XeHP,
		Geometry: Geometry{
			MaxSlices:            4,
			MaxSubslicesPerSlice: 4,
			MaxEUPerSubslice:     16,
			ThreadsPerEU:         8,
		},
		Workarounds: Workarounds{
			SamplerCacheFlushBetweenRedescribedSurfaceReads: false,
		},
		Capabilities: Capabilities{SupportsCCSFlush: true},
		Encoder:      NewXeEncoder(),
	})

	r.Register(Descriptor{
		Generation: XeHPC,
		Geometry: Geometry{
			MaxSlices:            8,
			MaxSubslicesPerSlice: 8,
			MaxEUPerSubslice:     8,
			ThreadsPerEU:         8,
		},
		Workarounds: Workarounds{
			SamplerCacheFlushBetweenRedescribedSurfaceReads: false,
		},
		Capabilities: Capabilities{SupportsCCSFlush: true},
		Encoder:      NewXeEncoder(),
	})

	return r
}
