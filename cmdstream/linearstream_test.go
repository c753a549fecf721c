package cmdstream

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/umd/gpumem"
)

var _ = Describe("LinearStream", func() {
	var (
		allocator gpumem.Allocator
		stream    *LinearStream
	)

	BeforeEach(func() {
		space := gpumem.NewAddressSpace(0x10000000, 1<<20)
		allocator = gpumem.NewAllocator(space, 1<<20)
		stream = NewLinearStream(mustAllocHeap(allocator, gpumem.PageSize))
	})

	It("should advance the write position monotonically", func() {
		Expect(stream.Used()).To(Equal(0))
		Expect(stream.Available()).To(Equal(gpumem.PageSize))

		region := stream.Space(16)
		Expect(region).To(HaveLen(16))
		Expect(stream.Used()).To(Equal(16))
		Expect(stream.Available()).To(Equal(gpumem.PageSize - 16))
	})

	It("should hand out non-overlapping regions", func() {
		first := stream.Space(8)
		second := stream.Space(8)

		first[0] = 0xAA
		second[0] = 0xBB

		Expect(stream.Allocation().Bytes()[0]).To(Equal(byte(0xAA)))
		Expect(stream.Allocation().Bytes()[8]).To(Equal(byte(0xBB)))
	})

	It("should panic on overflow", func() {
		stream.Space(gpumem.PageSize)

		Expect(func() { stream.Space(1) }).To(Panic())
	})

	It("should zero-pad to the requested alignment", func() {
		region := stream.Space(10)
		for i := range region {
			region[i] = 0xFF
		}

		stream.PadTo(64)

		Expect(stream.Used()).To(Equal(64))
		for _, b := range stream.Allocation().Bytes()[10:64] {
			Expect(b).To(Equal(byte(0)))
		}
	})

	It("should not pad an already aligned position", func() {
		stream.Space(64)

		stream.PadTo(64)

		Expect(stream.Used()).To(Equal(64))
	})

	It("should rewind on reset", func() {
		stream.Space(128)

		stream.Reset()

		Expect(stream.Used()).To(Equal(0))
		Expect(stream.Available()).To(Equal(gpumem.PageSize))
	})

	It("should refuse a nil allocation", func() {
		Expect(func() { NewLinearStream(nil) }).To(Panic())
	})
})
