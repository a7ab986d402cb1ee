package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/n64sim/cop0"
	"github.com/sarchlab/n64sim/emu"
	"github.com/sarchlab/n64sim/timing/pipeline"
)

var _ = Describe("Exceptions", func() {
	var (
		memory *emu.Memory
		pipe   *pipeline.Pipeline
	)

	// skipHandler resumes at EPC+4.
	skipHandler := []uint32{
		mfc0(k0, cop0.RegEPC),
		addiu(k0, k0, 4),
		mtc0(k0, cop0.RegEPC),
		eret,
	}

	BeforeEach(func() {
		memory = emu.NewMemory()
		memory.LoadWords(handlerPhys, skipHandler...)
	})

	load := func(words ...uint32) {
		memory.LoadWords(codePhys, words...)
		pipe = newPipeline(memory, codeBase)
	}

	readCP0 := func(r uint8) uint64 {
		v, err := pipe.ReadCP0(r)
		Expect(err).NotTo(HaveOccurred())
		return v
	}

	It("should take a syscall and return past it with ERET", func() {
		load(
			syscall,
			addiu(t0, t0, 1),
		)

		run(pipe, 40)
		Expect(reg(pipe, t0)).To(Equal(uint64(1)))
		Expect(excCode(pipe)).To(Equal(uint32(8)))
		Expect(pipe.Stats().Exceptions).To(Equal(uint64(1)))
		Expect(pipe.CP0().Status() & cop0.StatusEXL).To(BeZero())
	})

	It("should raise Overflow without writing the destination", func() {
		load(
			addi(t0, t1, 1),
			addiu(t2, zero, 1),
		)
		setReg(pipe, t1, 0x7FFFFFFF)

		run(pipe, 40)
		Expect(reg(pipe, t0)).To(BeZero())
		Expect(reg(pipe, t2)).To(Equal(uint64(1)))
		Expect(excCode(pipe)).To(Equal(uint32(12)))
	})

	It("should trap when the condition holds", func() {
		load(special(t1, t1, 0, 0, 0x34))

		run(pipe, 20)
		Expect(excCode(pipe)).To(Equal(uint32(13)))
		Expect(readCP0(cop0.RegEPC)).To(Equal(codeBase + 4))
	})

	It("should point EPC at the branch for a delay-slot exception", func() {
		memory.LoadWords(handlerPhys, nop, nop, nop, nop)
		load(
			beq(zero, zero, 2),
			syscall,
		)

		run(pipe, 10)
		Expect(readCP0(cop0.RegEPC)).To(Equal(codeBase))
		Expect(uint32(readCP0(cop0.RegCause)) & cop0.CauseBD).NotTo(BeZero())
	})

	Describe("TLB misses", func() {
		BeforeEach(func() {
			memory.LoadWords(0, addiu(s7, zero, 1))
		})

		It("should dispatch a load miss to the refill vector", func() {
			load(memOp(opLW, t0, a1, 0))
			setReg(pipe, a1, 0x0050_0000)

			run(pipe, 20)
			Expect(reg(pipe, s7)).To(Equal(uint64(1)))
			Expect(excCode(pipe)).To(Equal(uint32(2)))
			Expect(readCP0(cop0.RegBadVAddr)).To(Equal(uint64(0x0050_0000)))
			Expect(readCP0(cop0.RegEntryHi) & 0xFFFF_E000).To(Equal(uint64(0x0050_0000)))
			Expect(readCP0(cop0.RegEPC)).To(Equal(codeBase))
		})

		It("should report a store miss with its own code", func() {
			load(memOp(opSW, t0, a1, 0))
			setReg(pipe, a1, 0x0050_0000)

			run(pipe, 20)
			Expect(excCode(pipe)).To(Equal(uint32(3)))
		})

		It("should discard the instruction behind a faulting load", func() {
			load(
				memOp(opLW, t0, a1, 0),
				addiu(t1, zero, 1),
			)
			setReg(pipe, a1, 0x0050_0000)

			run(pipe, 20)
			Expect(reg(pipe, t1)).To(BeZero())
		})
	})

	Describe("interrupts", func() {
		It("should interrupt a busy-wait loop", func() {
			memory.LoadWords(handlerPhys, addiu(s7, zero, 1), nop, nop, nop)
			load(beq(zero, zero, -1), nop)
			status := kernelStatus | uint64(cop0.StatusIE) | 1<<10
			Expect(pipe.WriteCP0(cop0.RegStatus, status)).To(Succeed())

			run(pipe, 10)
			Expect(pipe.BusyWait()).To(BeTrue())

			pipe.SetInterrupt(0, true)
			run(pipe, 10)

			Expect(reg(pipe, s7)).To(Equal(uint64(1)))
			Expect(excCode(pipe)).To(BeZero())
			Expect(readCP0(cop0.RegEPC)).To(Equal(codeBase))
			Expect(pipe.BusyWait()).To(BeFalse())
			Expect(pipe.Stats().Interrupts).To(Equal(uint64(1)))
		})

		It("should ignore a masked line", func() {
			load(beq(zero, zero, -1), nop)
			status := kernelStatus | uint64(cop0.StatusIE) | 1<<11
			Expect(pipe.WriteCP0(cop0.RegStatus, status)).To(Succeed())

			pipe.SetInterrupt(0, true)
			run(pipe, 20)
			Expect(pipe.Stats().Interrupts).To(BeZero())
		})
	})

	Describe("coprocessor usability", func() {
		It("should raise Coprocessor Unusable for COP1 with CU1 clear", func() {
			load(mfc1(t0, 0))
			Expect(pipe.WriteCP0(cop0.RegStatus, uint64(cop0.StatusCU0))).To(Succeed())

			run(pipe, 10)
			Expect(excCode(pipe)).To(Equal(uint32(11)))
			cause := uint32(readCP0(cop0.RegCause))
			Expect(cause & cop0.CauseCE >> cop0.CauseCEShift).To(Equal(uint32(1)))
		})
	})
})
