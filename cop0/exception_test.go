package cop0_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/n64sim/cop0"
)

var _ = Describe("Exceptions", func() {
	var c *cop0.CP0

	BeforeEach(func() {
		c = cop0.New()
		Expect(c.Write(cop0.RegStatus, kernelStatus)).To(Succeed())
	})

	excCode := func() uint32 {
		return (c.Cause() & cop0.CauseExcCode) >> cop0.CauseExcCodeShift
	}

	It("should use the refill vector for a TLB miss", func() {
		exc := cop0.TLBException(cop0.TLBRefill, 0x00012345, false)
		vector := c.Raise(exc, 0xFFFFFFFF80001000, false)

		Expect(vector).To(Equal(uint64(0xFFFFFFFF80000000)))
		Expect(excCode()).To(Equal(uint32(2)))
		Expect(c.EPC()).To(Equal(uint64(0xFFFFFFFF80001000)))
		Expect(c.Status() & cop0.StatusEXL).NotTo(BeZero())
	})

	It("should record the faulting address", func() {
		exc := cop0.TLBException(cop0.TLBRefill, 0x00012345, true)
		c.Raise(exc, 0xFFFFFFFF80001000, false)

		Expect(excCode()).To(Equal(uint32(3)))
		Expect(mustRead(c, cop0.RegBadVAddr)).To(Equal(uint64(0x00012345)))
		Expect(mustRead(c, cop0.RegContext)).To(Equal(uint64(0x00012345>>13) << 4))
		Expect(mustRead(c, cop0.RegEntryHi) &^ cop0.EntryHiASID).To(Equal(uint64(0x00012000)))
		Expect(mustRead(c, cop0.RegXContext) & 0x7FFFFFFF).To(Equal(uint64(0x00012345>>13) << 4))
	})

	It("should use the general vector for invalid and modified pages", func() {
		exc := cop0.TLBException(cop0.TLBModified, 0x00013000, true)
		Expect(exc.Kind).To(Equal(cop0.ExcTLBModification))

		vector := c.Raise(exc, 0xFFFFFFFF80001000, false)
		Expect(vector).To(Equal(uint64(0xFFFFFFFF80000180)))
		Expect(excCode()).To(Equal(uint32(1)))
	})

	It("should use the general vector for a nested refill", func() {
		c.Raise(cop0.Exception{Kind: cop0.ExcSyscall}, 0xFFFFFFFF80001000, false)

		exc := cop0.TLBException(cop0.TLBRefill, 0x1000, false)
		vector := c.Raise(exc, 0xFFFFFFFF80000190, false)
		Expect(vector).To(Equal(uint64(0xFFFFFFFF80000180)))
		Expect(c.EPC()).To(Equal(uint64(0xFFFFFFFF80001000)))
	})

	It("should point EPC at the branch for a delay slot", func() {
		c.Raise(cop0.Exception{Kind: cop0.ExcBreakpoint}, 0xFFFFFFFF80001004, true)

		Expect(c.EPC()).To(Equal(uint64(0xFFFFFFFF80001000)))
		Expect(c.Cause() & cop0.CauseBD).NotTo(BeZero())
		Expect(excCode()).To(Equal(uint32(9)))
	})

	It("should use the bootstrap vectors while BEV is set", func() {
		Expect(c.Write(cop0.RegStatus, kernelStatus|uint64(cop0.StatusBEV))).To(Succeed())

		vector := c.Raise(cop0.Exception{Kind: cop0.ExcTrap}, 0xFFFFFFFFBFC00000, false)
		Expect(vector).To(Equal(uint64(0xFFFFFFFFBFC00380)))
	})

	It("should record the unit for coprocessor unusable", func() {
		c.Raise(cop0.Exception{Kind: cop0.ExcCoprocessorUnusable, Coprocessor: 1},
			0xFFFFFFFF80001000, false)

		Expect(excCode()).To(Equal(uint32(11)))
		Expect((c.Cause() & cop0.CauseCE) >> cop0.CauseCEShift).To(Equal(uint32(1)))
	})

	Describe("ERET", func() {
		It("should resume at EPC and clear EXL", func() {
			c.Raise(cop0.Exception{Kind: cop0.ExcSyscall}, 0xFFFFFFFF80001000, false)
			c.LLBit = true

			Expect(c.ReturnFromException()).To(Equal(uint64(0xFFFFFFFF80001000)))
			Expect(c.Status() & cop0.StatusEXL).To(BeZero())
			Expect(c.LLBit).To(BeFalse())
		})

		It("should prefer ErrorEPC while ERL is set", func() {
			c = cop0.New()
			Expect(c.Write(cop0.RegErrorEPC, 0xFFFFFFFF80000400)).To(Succeed())

			Expect(c.ReturnFromException()).To(Equal(uint64(0xFFFFFFFF80000400)))
			Expect(c.Status() & cop0.StatusERL).To(BeZero())
		})
	})
})
