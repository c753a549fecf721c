package hw

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Registry", func() {
	It("should return what was registered", func() {
		r := NewRegistry()
		r.Register(Descriptor{
			Generation: Gen12,
			Encoder:    NewGen12Encoder(),
		})

		d := r.Descriptor(Gen12)

		Expect(d.Generation).To(Equal(Gen12))
		Expect(d.Encoder).ToNot(BeNil())
	})

	It("should panic on a duplicate registration", func() {
		r := NewRegistry()
		r.Register(Descriptor{
			Generation: Gen12,
			Encoder:    NewGen12Encoder(),
		})

		Expect(func() {
			r.Register(Descriptor{
				Generation: Gen12,
				Encoder:    NewGen12Encoder(),
			})
		}).To(Panic())
	})

	It("should panic on a descriptor without an encoder", func() {
		r := NewRegistry()

		Expect(func() {
			r.Register(Descriptor{Generation: XeHP})
		}).To(Panic())
	})

	It("should panic when an unknown generation is looked up", func() {
		r := NewRegistry()

		Expect(func() { r.Descriptor(XeHPC) }).To(Panic())
	})
})

var _ = Describe("DefaultRegistry", func() {
	It("should cover every supported generation", func() {
		r := DefaultRegistry()

		for _, g := range []Generation{Gen12, XeHP, XeHPC} {
			d := r.Descriptor(g)
			Expect(d.Generation).To(Equal(g))
			Expect(d.Encoder).ToNot(BeNil())
			Expect(d.Geometry.MaxSlices).To(BeNumerically(">", 0))
		}
	})

	It("should enable the sampler workaround only on Gen12", func() {
		r := DefaultRegistry()

		gen12 := r.Descriptor(Gen12)
		Expect(gen12.Workarounds.
			SamplerCacheFlushBetweenRedescribedSurfaceReads).To(BeTrue())
		Expect(gen12.Capabilities.SupportsCCSFlush).To(BeFalse())

		for _, g := range []Generation{XeHP, XeHPC} {
			d := r.Descriptor(g)
			Expect(d.Workarounds.
				SamplerCacheFlushBetweenRedescribedSurfaceReads).To(BeFalse())
			Expect(d.Capabilities.SupportsCCSFlush).To(BeTrue())
		}
	})
})
