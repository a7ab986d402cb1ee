package cop0

// Segment identifies a region of the 32-bit kernel address space.
type Segment uint8

// Address segments.
const (
	KUSEG Segment = iota
	KSEG0
	KSEG1
	KSSEG
	KSEG3
)

// String returns the segment name.
func (s Segment) String() string {
	return [...]string{"kuseg", "kseg0", "kseg1", "ksseg", "kseg3"}[s]
}

// SegmentOf returns the segment containing vaddr. Only the low 32 bits are
// decoded.
func SegmentOf(vaddr uint64) Segment {
	switch a := uint32(vaddr); {
	case a < 0x8000_0000:
		return KUSEG
	case a < 0xA000_0000:
		return KSEG0
	case a < 0xC000_0000:
		return KSEG1
	case a < 0xE000_0000:
		return KSSEG
	default:
		return KSEG3
	}
}

// Translation is the outcome of mapping a virtual address.
type Translation struct {
	PAddr  uint32
	Cached bool
}

// Translate maps vaddr to a physical address. KSEG0 and KSEG1 are direct
// mapped; every other segment goes through the TLB using the ASID in
// EntryHi. A result other than TLBHit should be raised with TLBException.
func (c *CP0) Translate(vaddr uint64, store bool) (Translation, TLBResult) {
	a := uint32(vaddr)
	switch SegmentOf(vaddr) {
	case KSEG0:
		return Translation{PAddr: a - 0x8000_0000, Cached: c.KSEG0Cached()}, TLBHit
	case KSEG1:
		return Translation{PAddr: a - 0xA000_0000}, TLBHit
	}

	paddr, cached, r := c.tlb.Translate(a, uint8(c.entryHi&EntryHiASID), store)
	return Translation{PAddr: paddr, Cached: cached}, r
}
