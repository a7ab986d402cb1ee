package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/n64sim/insts"
)

var _ = Describe("Disassemble", func() {
	It("should render a zero word as nop", func() {
		Expect(insts.Disassemble(0, 0)).To(Equal("nop"))
	})

	It("should use register names", func() {
		Expect(insts.Disassemble(0x00851021, 0)).To(Equal("addu v0, a0, a1"))
		Expect(insts.Disassemble(0x8FA80004, 0)).To(Equal("lw t0, 4(sp)"))
	})

	It("should resolve branch targets", func() {
		Expect(insts.Disassemble(0x1000FFFF, 0x80001000)).
			To(Equal("beq zero, zero, 0x80001000"))
	})

	It("should name CP0 registers", func() {
		Expect(insts.Disassemble(0x40886000, 0)).To(Equal("mtc0 t0, Status"))
	})

	It("should render FPU operations with their format", func() {
		Expect(insts.Disassemble(0x46041000, 0)).To(Equal("add.s f0, f2, f4"))
		Expect(insts.Disassemble(0x4624103C, 0)).To(Equal("c.lt.d f2, f4"))
		Expect(insts.Disassemble(0x46204184, 0)).To(Equal("sqrt.d f6, f8"))
	})

	It("should fall back to a data word", func() {
		Expect(insts.Disassemble(0x4C000000, 0)).To(Equal(".word 0x4C000000"))
	})
})
