package gpumem

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Allocator", func() {
	var (
		space     AddressSpace
		allocator Allocator
	)

	BeforeEach(func() {
		space = NewAddressSpace(0x10000000, 1<<20)
		allocator = NewAllocator(space, 4*PageSize)
	})

	It("should produce purpose-tagged, zeroed allocations", func() {
		a, err := allocator.Allocate(PurposeHeap, PageSize)

		Expect(err).ToNot(HaveOccurred())
		Expect(a.Purpose()).To(Equal(PurposeHeap))
		Expect(a.Size()).To(Equal(uint64(PageSize)))
		Expect(a.GPUAddress()).To(Equal(uint64(0x10000000)))
		for _, b := range a.Bytes() {
			Expect(b).To(Equal(byte(0)))
		}
	})

	It("should round allocation sizes up to full pages", func() {
		a, err := allocator.Allocate(PurposeHeap, 100)

		Expect(err).ToNot(HaveOccurred())
		Expect(a.Size()).To(Equal(uint64(PageSize)))
	})

	It("should place an allocation at a reserved address", func() {
		r, err := space.Reserve(PageSize)
		Expect(err).ToNot(HaveOccurred())

		a, err := allocator.AllocateAt(
			PurposeStateTracking, PageSize, r.Address)

		Expect(err).ToNot(HaveOccurred())
		Expect(a.GPUAddress()).To(Equal(r.Address))
	})

	It("should fail when the budget is exceeded", func() {
		_, err := allocator.Allocate(PurposeHeap, 4*PageSize)
		Expect(err).ToNot(HaveOccurred())

		_, err = allocator.Allocate(PurposeHeap, PageSize)
		Expect(err).To(HaveOccurred())
	})

	It("should reclaim budget on free", func() {
		a, err := allocator.Allocate(PurposeHeap, 4*PageSize)
		Expect(err).ToNot(HaveOccurred())

		allocator.Free(a)

		_, err = allocator.Allocate(PurposeHeap, 4*PageSize)
		Expect(err).ToNot(HaveOccurred())
	})

	It("should return the address range on free", func() {
		a, err := allocator.Allocate(PurposeHeap, PageSize)
		Expect(err).ToNot(HaveOccurred())
		addr := a.GPUAddress()

		allocator.Free(a)

		b, err := allocator.Allocate(PurposeHeap, PageSize)
		Expect(err).ToNot(HaveOccurred())
		Expect(b.GPUAddress()).To(Equal(addr))
	})

	It("should not exhaust the address space under allocate/free cycles",
		func() {
			smallSpace := NewAddressSpace(0x10000000, 4*PageSize)
			cycling := NewAllocator(smallSpace, 4*PageSize)

			for i := 0; i < 32; i++ {
				a, err := cycling.Allocate(PurposeHeap, 4*PageSize)
				Expect(err).ToNot(HaveOccurred())

				cycling.Free(a)
			}
		})

	It("should leave a caller-placed address range to the caller", func() {
		r, err := space.Reserve(PageSize)
		Expect(err).ToNot(HaveOccurred())

		a, err := allocator.AllocateAt(PurposeHeap, PageSize, r.Address)
		Expect(err).ToNot(HaveOccurred())

		allocator.Free(a)

		// The reservation is still the caller's to release.
		Expect(func() { space.Free(r) }).ToNot(Panic())
	})

	It("should panic on a double free", func() {
		a, err := allocator.Allocate(PurposeHeap, PageSize)
		Expect(err).ToNot(HaveOccurred())

		allocator.Free(a)

		Expect(func() { allocator.Free(a) }).To(Panic())
	})

	It("should refuse access to a released allocation", func() {
		a, err := allocator.Allocate(PurposeHeap, PageSize)
		Expect(err).ToNot(HaveOccurred())

		allocator.Free(a)

		Expect(func() { a.Bytes() }).To(Panic())
	})
})

var _ = Describe("Purpose", func() {
	It("should name every purpose", func() {
		Expect(PurposeStateTracking.Name()).To(Equal("StateTracking"))
		Expect(PurposeModuleDebugArea.Name()).To(Equal("ModuleDebugArea"))
		Expect(PurposeCommandRing.Name()).To(Equal("CommandRing"))
		Expect(PurposeHeap.Name()).To(Equal("Heap"))
		Expect(PurposeUnknown.Name()).To(Equal("Unknown"))
	})
})
