package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/n64sim/cop0"
	"github.com/sarchlab/n64sim/emu"
	"github.com/sarchlab/n64sim/timing/pipeline"
)

var _ = Describe("Coprocessor instructions", func() {
	var (
		memory *emu.Memory
		pipe   *pipeline.Pipeline
	)

	BeforeEach(func() {
		memory = emu.NewMemory()
	})

	load := func(words ...uint32) {
		memory.LoadWords(codePhys, words...)
		pipe = newPipeline(memory, codeBase)
	}

	Describe("TLB maintenance", func() {
		const (
			entryHi  = 0x0040_0000
			entryLo0 = 0x10<<6 | 3<<3 | 1<<2 | 1<<1
			entryLo1 = 0x11<<6 | 3<<3 | 1<<2 | 1<<1
		)

		BeforeEach(func() {
			memory.Write32(0x10000, 0x12345678)
			memory.Write32(0x11000, 0x0BADF00D)

			load(
				mtc0(t0, cop0.RegEntryHi),
				mtc0(t1, cop0.RegEntryLo0),
				mtc0(t2, cop0.RegEntryLo1),
				mtc0(t3, cop0.RegIndex),
				mtc0(zero, cop0.RegPageMask),
				tlbwi,
				mtc0(zero, cop0.RegEntryLo0),
				mtc0(zero, cop0.RegEntryLo1),
				tlbr,
				mfc0(s0, cop0.RegEntryHi),
				mfc0(s1, cop0.RegEntryLo0),
				mfc0(s2, cop0.RegEntryLo1),
				tlbp,
				mfc0(s3, cop0.RegIndex),
				memOp(opLW, s4, t0, 0),
				memOp(opLW, s5, t0, 0x1000),
				mtc0(a0, cop0.RegEntryHi),
				tlbp,
				mfc0(s6, cop0.RegIndex),
			)
			setReg(pipe, t0, entryHi)
			setReg(pipe, t1, entryLo0)
			setReg(pipe, t2, entryLo1)
			setReg(pipe, t3, 5)
			setReg(pipe, a0, 0x0080_0000)

			run(pipe, 60)
		})

		It("should read back the entry it wrote", func() {
			Expect(reg(pipe, s0)).To(Equal(uint64(entryHi)))
			Expect(reg(pipe, s1)).To(Equal(uint64(entryLo0)))
			Expect(reg(pipe, s2)).To(Equal(uint64(entryLo1)))

			e := pipe.CP0().TLB().ReadEntry(5)
			Expect(e.EntryHi).To(Equal(uint64(entryHi)))
		})

		It("should find the written entry with TLBP", func() {
			Expect(reg(pipe, s3)).To(Equal(uint64(5)))
		})

		It("should set the Index P bit for an unmapped address", func() {
			Expect(uint32(reg(pipe, s6)) >> 31).To(Equal(uint32(1)))
			Expect(reg(pipe, s6) & 0x3F).To(BeZero())
		})

		It("should translate both pages of the pair", func() {
			Expect(reg(pipe, s4)).To(Equal(uint64(0x12345678)))
			Expect(reg(pipe, s5)).To(Equal(uint64(0x0BADF00D)))
		})
	})

	Describe("CP1 register aliasing", func() {
		It("should pack odd singles into the even register when FR is clear", func() {
			load(
				mtc1(t0, 1),
				mtc1(t1, 0),
				mfc1(t2, 1),
				mfc1(t3, 0),
				dmfc1(s0, 0),
			)
			Expect(pipe.WriteCP0(cop0.RegStatus,
				uint64(cop0.StatusCU0|cop0.StatusCU1))).To(Succeed())
			setReg(pipe, t0, 0x11112222)
			setReg(pipe, t1, 0x33334444)

			run(pipe, 30)
			Expect(reg(pipe, t2)).To(Equal(uint64(0x11112222)))
			Expect(reg(pipe, t3)).To(Equal(uint64(0x33334444)))
			Expect(reg(pipe, s0)).To(Equal(uint64(0x1111222233334444)))

			Expect(pipe.WriteCP0(cop0.RegStatus, kernelStatus)).To(Succeed())
			Expect(pipe.CP1().FR()).To(BeTrue())
			Expect(pipe.CP1().ReadDword(0)).To(Equal(uint64(0x1111222233334444)))
		})

		It("should round-trip a single through odd register 5", func() {
			load(
				mtc1(t0, 5),
				mfc1(t1, 5),
			)
			Expect(pipe.WriteCP0(cop0.RegStatus,
				uint64(cop0.StatusCU0|cop0.StatusCU1))).To(Succeed())
			setReg(pipe, t0, uint64(f32(1.5)))

			run(pipe, 20)
			Expect(uint32(reg(pipe, t1))).To(Equal(f32(1.5)))
		})
	})

	Describe("FPU execution", func() {
		It("should compute, compare and branch on the condition", func() {
			load(
				fpuS(0x00, 1, 0, 2),
				fpuS(0x34, 1, 0, 0),
				bc1t(2),
				nop,
				addiu(t0, zero, 1),
				addiu(t1, zero, 1),
				mfc1(t2, 2),
			)
			pipe.CP1().WriteWord(0, f32(1.5))
			pipe.CP1().WriteWord(1, f32(2.25))

			run(pipe, 30)
			Expect(pipe.CP1().ReadWord(2)).To(Equal(f32(3.75)))
			Expect(pipe.CP1().Condition()).To(BeTrue())
			Expect(reg(pipe, t0)).To(BeZero())
			Expect(reg(pipe, t1)).To(Equal(uint64(1)))
			Expect(uint32(reg(pipe, t2))).To(Equal(f32(3.75)))
		})

		It("should move FCR31 with CTC1 and CFC1", func() {
			ctc1 := 0x11<<26 | 6<<21 | uint32(t0)<<16 | 31<<11
			cfc1 := func(rt, rd uint8) uint32 {
				return 0x11<<26 | 2<<21 | uint32(rt)<<16 | uint32(rd)<<11
			}
			load(
				ctc1,
				cfc1(t1, 31),
				cfc1(t2, 0),
			)
			setReg(pipe, t0, 3)

			run(pipe, 20)
			Expect(reg(pipe, t1)).To(Equal(uint64(3)))
			Expect(reg(pipe, t2)).To(Equal(uint64(0x0A00)))
		})

		It("should load and store through LWC1 and SWC1", func() {
			memory.Write32(0x3000, f32(2.5))
			load(
				memOp(opLWC1, 4, a0, 0),
				memOp(opSWC1, 4, a0, 4),
			)
			setReg(pipe, a0, 0xFFFF_FFFF_A000_3000)

			run(pipe, 20)
			Expect(pipe.CP1().ReadWord(4)).To(Equal(f32(2.5)))
			Expect(memory.Read32(0x3004)).To(Equal(f32(2.5)))
		})
	})

	DescribeTable("divide by zero",
		func(funct uint8, dividend uint64, hi, lo uint64) {
			load(
				special(t0, zero, 0, 0, funct),
				mfhi(s0),
				mflo(s1),
			)
			setReg(pipe, t0, dividend)

			run(pipe, 100)
			Expect(reg(pipe, s0)).To(Equal(hi))
			Expect(reg(pipe, s1)).To(Equal(lo))
		},
		Entry("DIV positive", uint8(0x1A), uint64(7), uint64(7), ^uint64(0)),
		Entry("DIV negative", uint8(0x1A), ^uint64(6), ^uint64(6), uint64(1)),
		Entry("DIVU", uint8(0x1B), uint64(0x8000_0000),
			uint64(0xFFFF_FFFF_8000_0000), ^uint64(0)),
		Entry("DDIV negative", uint8(0x1E), ^uint64(6), ^uint64(6), uint64(1)),
		Entry("DDIVU", uint8(0x1F), uint64(1)<<63, uint64(1)<<63, ^uint64(0)),
	)
})
