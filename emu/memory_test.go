package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/n64sim/emu"
)

var _ = Describe("Memory", func() {
	var memory *emu.Memory

	BeforeEach(func() {
		memory = emu.NewMemoryWithSize(0x100)
	})

	It("should store values big-endian", func() {
		memory.Write32(0x10, 0x11223344)
		Expect(memory.Read8(0x10)).To(Equal(uint8(0x11)))
		Expect(memory.Read8(0x13)).To(Equal(uint8(0x44)))

		v, err := memory.ReadSingle(0x12, emu.Size16)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint64(0x3344)))
	})

	It("should truncate values to the transfer width", func() {
		Expect(memory.WriteSingle(0x20, emu.Size16, 0xAABBCCDD)).To(Succeed())
		Expect(memory.Read32(0x20)).To(Equal(uint32(0xCCDD0000)))
	})

	It("should read blocks of words", func() {
		memory.LoadWords(0x40, 1, 2, 3, 4)
		block := make([]uint32, 4)
		Expect(memory.ReadBlock(0x40, block)).To(Succeed())
		Expect(block).To(Equal([]uint32{1, 2, 3, 4}))
	})

	It("should report accesses past the end", func() {
		_, err := memory.ReadSingle(0xFC, emu.Size64)
		Expect(err).To(MatchError(emu.ErrUnmapped))

		Expect(memory.WriteSingle(0x100, emu.Size8, 0)).To(MatchError(emu.ErrUnmapped))
		Expect(memory.ReadBlock(0xF8, make([]uint32, 4))).To(MatchError(emu.ErrUnmapped))
		Expect(memory.LoadProgram(0xFF, []byte{1, 2})).To(MatchError(emu.ErrUnmapped))
	})

	It("should default to 4 MiB", func() {
		Expect(emu.NewMemory().Size()).To(Equal(emu.DefaultMemorySize))
	})

	DescribeTable("size masks",
		func(size emu.Size, bits int, mask uint64) {
			Expect(size.Bits()).To(Equal(bits))
			Expect(size.Mask()).To(Equal(mask))
		},
		Entry("byte", emu.Size8, 8, uint64(0xFF)),
		Entry("halfword", emu.Size16, 16, uint64(0xFFFF)),
		Entry("word", emu.Size32, 32, uint64(0xFFFF_FFFF)),
		Entry("doubleword", emu.Size64, 64, ^uint64(0)),
	)
})
