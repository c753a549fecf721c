package gpumem

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ResidencyTracker", func() {
	var (
		allocator Allocator
		tracker   *ResidencyTracker
		a, b      *Allocation
	)

	BeforeEach(func() {
		space := NewAddressSpace(0x10000000, 1<<20)
		allocator = NewAllocator(space, 1<<20)
		tracker = NewResidencyTracker()

		var err error
		a, err = allocator.Allocate(PurposeHeap, PageSize)
		Expect(err).ToNot(HaveOccurred())
		b, err = allocator.Allocate(PurposeHeap, PageSize)
		Expect(err).ToNot(HaveOccurred())
	})

	It("should track residency per context", func() {
		tracker.MakeResident(0, []*Allocation{a, b}, 1)

		Expect(tracker.IsResident(0, a)).To(BeTrue())
		Expect(tracker.IsResident(0, b)).To(BeTrue())
		Expect(tracker.IsResident(1, a)).To(BeFalse())
		Expect(tracker.NumResident(0)).To(Equal(2))
		Expect(tracker.NumResident(1)).To(Equal(0))
	})

	It("should remember the pinning task count", func() {
		tracker.MakeResident(0, []*Allocation{a}, 3)
		tracker.MakeResident(0, []*Allocation{a}, 5)

		count, found := tracker.TaskCount(0, a)
		Expect(found).To(BeTrue())
		Expect(count).To(Equal(uint64(5)))

		_, found = tracker.TaskCount(0, b)
		Expect(found).To(BeFalse())
	})

	It("should evict only what it is told to", func() {
		tracker.MakeResident(0, []*Allocation{a, b}, 1)

		tracker.Evict(0, []*Allocation{a})

		Expect(tracker.IsResident(0, a)).To(BeFalse())
		Expect(tracker.IsResident(0, b)).To(BeTrue())
	})

	It("should tolerate evicting from an unknown context", func() {
		tracker.Evict(9, []*Allocation{a})

		Expect(tracker.NumResident(9)).To(Equal(0))
	})
})
