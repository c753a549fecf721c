package hw

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AllDomains", func() {
	It("should exclude the CCS domain without the capability", func() {
		domains := AllDomains(Capabilities{})

		Expect(domains & CCSFlush).To(BeZero())
		Expect(domains & DCFlush).To(Equal(DCFlush))
		Expect(domains & InstructionCacheInvalidate).
			To(Equal(InstructionCacheInvalidate))
	})

	It("should include the CCS domain with the capability", func() {
		domains := AllDomains(Capabilities{SupportsCCSFlush: true})

		Expect(domains & CCSFlush).To(Equal(CCSFlush))
	})
})

var _ = Describe("Geometry", func() {
	It("should size the per-EU attention bytes by thread count", func() {
		Expect(Geometry{ThreadsPerEU: 7}.BytesPerEU()).To(Equal(uint32(1)))
		Expect(Geometry{ThreadsPerEU: 8}.BytesPerEU()).To(Equal(uint32(1)))
		Expect(Geometry{ThreadsPerEU: 9}.BytesPerEU()).To(Equal(uint32(2)))
	})
})

var _ = Describe("SbaAddresses", func() {
	It("should compare addresses and sizes but not modify flags", func() {
		a := SbaAddresses{SurfaceStateBaseAddress: 0x1000}
		b := a
		b.SurfaceStateBaseAddressModify = true

		Expect(a.Equal(b)).To(BeTrue())

		b.SurfaceStateBaseAddress = 0x2000
		Expect(a.Equal(b)).To(BeFalse())
	})
})
