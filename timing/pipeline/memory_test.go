package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/n64sim/cop0"
	"github.com/sarchlab/n64sim/emu"
	"github.com/sarchlab/n64sim/timing/pipeline"
)

const (
	uncachedData uint64 = 0xFFFF_FFFF_A000_3000
	cachedData   uint64 = 0xFFFF_FFFF_8000_2000
)

var _ = Describe("Loads and stores", func() {
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
		setReg(pipe, a0, uncachedData)
	}

	It("should assemble an unaligned word with LWL/LWR", func() {
		memory.Write64(0x3000, 0x1122334455667788)
		load(
			memOp(opLWL, t0, a0, 1),
			memOp(opLWR, t0, a0, 4),
		)

		run(pipe, 10)
		Expect(reg(pipe, t0)).To(Equal(uint64(0x22334455)))
	})

	It("should sign-extend a full-word LWR", func() {
		memory.Write32(0x3008, 0x8899AABB)
		load(memOp(opLWR, t1, a0, 0xB))

		run(pipe, 10)
		Expect(reg(pipe, t1)).To(Equal(uint64(0xFFFF_FFFF_8899_AABB)))
	})

	It("should store an unaligned word with SWL/SWR", func() {
		memory.Write64(0x3010, 0x1122334455667788)
		load(
			memOp(opSWL, t1, a0, 0x11),
			memOp(opSWR, t1, a0, 0x14),
		)
		setReg(pipe, t1, 0xAABBCCDD)

		run(pipe, 10)
		Expect(memory.Read64(0x3010)).To(Equal(uint64(0x11AABBCCDD667788)))
	})

	It("should sign-extend LW and store only the low word with SW", func() {
		memory.Write32(0x3000, 0xFFFF0000)
		load(
			memOp(opLW, t0, a0, 0),
			memOp(opSW, t0, a0, 8),
		)

		run(pipe, 10)
		Expect(reg(pipe, t0)).To(Equal(uint64(0xFFFF_FFFF_FFFF_0000)))
		Expect(memory.Read32(0x3008)).To(Equal(uint32(0xFFFF0000)))
		Expect(memory.Read32(0x300C)).To(BeZero())
	})

	Describe("load-linked / store-conditional", func() {
		It("should succeed once after LL and fail without a reservation", func() {
			memory.Write32(0x3020, 41)
			load(
				memOp(opLL, t0, a0, 0x20),
				addiu(t0, t0, 1),
				memOp(opSC, t0, a0, 0x20),
				memOp(opSC, t1, a0, 0x24),
			)
			setReg(pipe, t1, 99)

			run(pipe, 20)
			Expect(memory.Read32(0x3020)).To(Equal(uint32(42)))
			Expect(reg(pipe, t0)).To(Equal(uint64(1)))
			Expect(reg(pipe, t1)).To(BeZero())
			Expect(memory.Read32(0x3024)).To(BeZero())
			Expect(pipe.CP0().LLBit).To(BeFalse())

			llAddr, err := pipe.ReadCP0(cop0.RegLLAddr)
			Expect(err).NotTo(HaveOccurred())
			Expect(llAddr).To(Equal(uint64(0x302)))
		})
	})

	Describe("data cache", func() {
		BeforeEach(func() {
			memory.Write32(0x2000, 0x11111111)
		})

		It("should keep stores in the cache until written back", func() {
			load(memOp(opSW, t1, a0, 0))
			setReg(pipe, a0, cachedData)
			setReg(pipe, t1, 0x12345678)

			run(pipe, 10)
			Expect(memory.Read32(0x2000)).To(Equal(uint32(0x11111111)))
			_, valid, dirty := pipe.DCache().IndexLoadTag(0x2000)
			Expect(valid).To(BeTrue())
			Expect(dirty).To(BeTrue())
		})

		It("should write a dirty line back on Hit_Write_Back", func() {
			load(
				memOp(opSW, t1, a0, 0),
				memOp(opCACHE, 0x19, a0, 0),
			)
			setReg(pipe, a0, cachedData)
			setReg(pipe, t1, 0x12345678)

			run(pipe, 10)
			Expect(memory.Read32(0x2000)).To(Equal(uint32(0x12345678)))
			_, valid, dirty := pipe.DCache().IndexLoadTag(0x2000)
			Expect(valid).To(BeTrue())
			Expect(dirty).To(BeFalse())
		})

		It("should miss after a tag store invalidates the line", func() {
			load(
				memOp(opLW, t0, a0, 0),
				memOp(opSW, t1, a1, 0),
				memOp(opLW, t2, a0, 0),
				mtc0(zero, cop0.RegTagLo),
				memOp(opCACHE, 0x09, a0, 0),
				memOp(opLW, t3, a0, 0),
			)
			setReg(pipe, a0, cachedData)
			setReg(pipe, a1, 0xFFFF_FFFF_A000_2000)
			setReg(pipe, t1, 0x22222222)

			run(pipe, 20)
			Expect(reg(pipe, t0)).To(Equal(uint64(0x11111111)))
			Expect(reg(pipe, t2)).To(Equal(uint64(0x11111111)))
			Expect(reg(pipe, t3)).To(Equal(uint64(0x22222222)))
			Expect(pipe.DCache().Stats().Fills).To(Equal(uint64(2)))
		})

		It("should hit with stale data after a tag store marks it valid", func() {
			memory.Write32(0x6000, 0xBBBB0000)
			load(
				memOp(opLW, t0, a0, 0),
				mtc0(t3, cop0.RegTagLo),
				memOp(opCACHE, 0x09, a0, 0),
				memOp(opLW, t2, a2, 0),
				mtc0(zero, cop0.RegTagLo),
				memOp(opCACHE, 0x05, a0, 0),
				mfc0(s0, cop0.RegTagLo),
			)
			setReg(pipe, a0, cachedData)
			setReg(pipe, a2, 0xFFFF_FFFF_8000_6000)
			setReg(pipe, t3, uint64(6<<cop0.TagLoPTagShft|cop0.TagLoValid))

			run(pipe, 25)
			Expect(reg(pipe, t2)).To(Equal(uint64(0x11111111)))
			Expect(reg(pipe, s0)).To(Equal(uint64(6<<cop0.TagLoPTagShft | cop0.TagLoValid)))
			Expect(pipe.DCache().Stats().Fills).To(Equal(uint64(1)))
		})

		It("should fault on an unmodeled cache operation", func() {
			load(memOp(opCACHE, 0x1D, a0, 0))
			setReg(pipe, a0, cachedData)

			var err error
			for i := 0; i < 10 && err == nil; i++ {
				err = pipe.Tick()
			}
			Expect(err).To(MatchError(emu.ErrUnsupportedInstruction))
		})
	})
})
