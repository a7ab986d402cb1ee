package cop0_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/n64sim/cop0"
)

func entryLo(pfn uint64, c uint64, dirty, valid, global bool) uint64 {
	v := pfn<<cop0.EntryLoPFNShift | c<<cop0.EntryLoCShift
	if dirty {
		v |= cop0.EntryLoDirty
	}
	if valid {
		v |= cop0.EntryLoValid
	}
	if global {
		v |= cop0.EntryLoGlobal
	}
	return v
}

var _ = Describe("TLB", func() {
	var c *cop0.CP0

	writeEntry := func(index int, hi, lo0, lo1, mask uint64) {
		Expect(c.Write(cop0.RegIndex, uint64(index))).To(Succeed())
		Expect(c.Write(cop0.RegEntryHi, hi)).To(Succeed())
		Expect(c.Write(cop0.RegEntryLo0, lo0)).To(Succeed())
		Expect(c.Write(cop0.RegEntryLo1, lo1)).To(Succeed())
		Expect(c.Write(cop0.RegPageMask, mask)).To(Succeed())
		c.TLBWriteIndexed()
	}

	BeforeEach(func() {
		c = cop0.New()
		writeEntry(3, 0x00012000|5,
			entryLo(0x100, 3, true, true, false),
			entryLo(0x101, 3, false, true, false),
			0)
	})

	It("should read back what was written", func() {
		Expect(c.Write(cop0.RegEntryHi, 0)).To(Succeed())
		Expect(c.Write(cop0.RegEntryLo0, 0)).To(Succeed())
		Expect(c.Write(cop0.RegEntryLo1, 0)).To(Succeed())

		Expect(c.Write(cop0.RegIndex, 3)).To(Succeed())
		c.TLBRead()

		Expect(mustRead(c, cop0.RegEntryHi)).To(Equal(uint64(0x00012005)))
		Expect(mustRead(c, cop0.RegEntryLo0)).To(Equal(entryLo(0x100, 3, true, true, false)))
		Expect(mustRead(c, cop0.RegEntryLo1)).To(Equal(entryLo(0x101, 3, false, true, false)))
		Expect(mustRead(c, cop0.RegPageMask)).To(BeZero())
	})

	It("should clear the VPN2 bits covered by the page mask on read", func() {
		// 64 KiB pages: PageMask 0x1E000 hides VPN2 bits 16:13.
		writeEntry(7, 0x0012_6000|9,
			entryLo(0x200, 3, true, true, false),
			entryLo(0x210, 3, true, true, false),
			0x0001_E000)

		Expect(c.Write(cop0.RegIndex, 7)).To(Succeed())
		Expect(c.Write(cop0.RegPageMask, 0)).To(Succeed())
		c.TLBRead()

		Expect(mustRead(c, cop0.RegPageMask)).To(Equal(uint64(0x0001_E000)))
		Expect(mustRead(c, cop0.RegEntryHi)).To(Equal(uint64(0x0012_0009)))
	})

	It("should translate the even page", func() {
		Expect(c.Write(cop0.RegEntryHi, 5)).To(Succeed())
		t, r := c.Translate(0x00012345, false)
		Expect(r).To(Equal(cop0.TLBHit))
		Expect(t.PAddr).To(Equal(uint32(0x00100345)))
		Expect(t.Cached).To(BeTrue())
	})

	It("should translate the odd page", func() {
		Expect(c.Write(cop0.RegEntryHi, 5)).To(Succeed())
		t, r := c.Translate(0x00013010, false)
		Expect(r).To(Equal(cop0.TLBHit))
		Expect(t.PAddr).To(Equal(uint32(0x00101010)))
	})

	It("should refuse stores to a clean page", func() {
		Expect(c.Write(cop0.RegEntryHi, 5)).To(Succeed())
		_, r := c.Translate(0x00013010, true)
		Expect(r).To(Equal(cop0.TLBModified))
	})

	It("should miss on a different ASID", func() {
		Expect(c.Write(cop0.RegEntryHi, 6)).To(Succeed())
		_, r := c.Translate(0x00012345, false)
		Expect(r).To(Equal(cop0.TLBRefill))
	})

	It("should match global entries under any ASID", func() {
		writeEntry(4, 0x00040000,
			entryLo(0x200, 3, true, true, true),
			entryLo(0x201, 2, true, true, true),
			0)
		Expect(c.Write(cop0.RegEntryHi, 0x77)).To(Succeed())

		t, r := c.Translate(0x00041004, false)
		Expect(r).To(Equal(cop0.TLBHit))
		Expect(t.PAddr).To(Equal(uint32(0x00201004)))
		Expect(t.Cached).To(BeFalse())
	})

	It("should report invalid pages", func() {
		writeEntry(5, 0x00060000|5,
			entryLo(0x300, 3, true, false, false),
			entryLo(0x301, 3, true, true, false),
			0)
		Expect(c.Write(cop0.RegEntryHi, 5)).To(Succeed())
		_, r := c.Translate(0x00060000, false)
		Expect(r).To(Equal(cop0.TLBInvalid))
	})

	It("should honour large page masks", func() {
		// 16 KiB pages: the pair covers 32 KiB.
		writeEntry(6, 0x00100000|5,
			entryLo(0x400, 3, true, true, false),
			entryLo(0x404, 3, true, true, false),
			0x6000)
		Expect(c.Write(cop0.RegEntryHi, 5)).To(Succeed())

		t, r := c.Translate(0x00103ABC, false)
		Expect(r).To(Equal(cop0.TLBHit))
		Expect(t.PAddr).To(Equal(uint32(0x00403ABC)))

		t, r = c.Translate(0x00104ABC, false)
		Expect(r).To(Equal(cop0.TLBHit))
		Expect(t.PAddr).To(Equal(uint32(0x00404ABC)))
	})

	It("should write the entry chosen by Random", func() {
		Expect(c.Write(cop0.RegEntryHi, 0x00080000|5)).To(Succeed())
		c.TLBWriteRandom()

		e := c.TLB().ReadEntry(31)
		Expect(e.EntryHi).To(Equal(uint64(0x00080005)))
	})

	Describe("TLBP", func() {
		It("should find the matching index", func() {
			Expect(c.Write(cop0.RegEntryHi, 0x00012000|5)).To(Succeed())
			c.TLBProbe()
			Expect(mustRead(c, cop0.RegIndex)).To(Equal(uint64(3)))
		})

		It("should set the P bit on a miss", func() {
			Expect(c.Write(cop0.RegEntryHi, 0x00FF0000|5)).To(Succeed())
			c.TLBProbe()
			Expect(mustRead(c, cop0.RegIndex)).To(Equal(uint64(0xFFFF_FFFF_8000_0000)))
		})
	})
})

var _ = Describe("Segments", func() {
	var c *cop0.CP0

	BeforeEach(func() {
		c = cop0.New()
	})

	It("should classify addresses", func() {
		Expect(cop0.SegmentOf(0x00001000)).To(Equal(cop0.KUSEG))
		Expect(cop0.SegmentOf(0xFFFFFFFF80001000)).To(Equal(cop0.KSEG0))
		Expect(cop0.SegmentOf(0xA0001000)).To(Equal(cop0.KSEG1))
		Expect(cop0.SegmentOf(0xC0001000)).To(Equal(cop0.KSSEG))
		Expect(cop0.SegmentOf(0xE0001000)).To(Equal(cop0.KSEG3))
	})

	It("should map KSEG0 cached and KSEG1 uncached", func() {
		t, r := c.Translate(0xFFFFFFFF80001234, false)
		Expect(r).To(Equal(cop0.TLBHit))
		Expect(t).To(Equal(cop0.Translation{PAddr: 0x1234, Cached: true}))

		t, r = c.Translate(0xFFFFFFFFA0001234, true)
		Expect(r).To(Equal(cop0.TLBHit))
		Expect(t).To(Equal(cop0.Translation{PAddr: 0x1234, Cached: false}))
	})

	It("should miss in mapped segments with an empty TLB", func() {
		_, r := c.Translate(0xC0000000, false)
		Expect(r).To(Equal(cop0.TLBRefill))
	})
})
