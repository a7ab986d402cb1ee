package cop0

// TLBEntry is one joint TLB entry: a virtual page pair with an even and an
// odd physical mapping.
type TLBEntry struct {
	PageMask uint64
	EntryHi  uint64
	EntryLo0 uint64
	EntryLo1 uint64
	Global   bool
}

// TLBResult classifies the outcome of a mapped translation.
type TLBResult uint8

// Translation outcomes.
const (
	TLBHit TLBResult = iota
	// TLBRefill means no entry matched the address.
	TLBRefill
	// TLBInvalid means an entry matched but its V bit is clear.
	TLBInvalid
	// TLBModified means a store hit a valid page whose D bit is clear.
	TLBModified
)

// String returns the outcome name.
func (r TLBResult) String() string {
	switch r {
	case TLBHit:
		return "hit"
	case TLBRefill:
		return "refill"
	case TLBInvalid:
		return "invalid"
	case TLBModified:
		return "modified"
	}
	return "unknown"
}

// TLB is the 32-entry fully associative translation buffer.
type TLB struct {
	entries [numTLBEntries]TLBEntry
}

// NumEntries returns the number of entries.
func (t *TLB) NumEntries() int {
	return numTLBEntries
}

// ReadEntry returns the entry at index i. Only the low five bits of i are
// used.
func (t *TLB) ReadEntry(i int) TLBEntry {
	return t.entries[i&(numTLBEntries-1)]
}

// WriteEntry stores e at index i. The VPN2 bits covered by the page mask are
// cleared and the global bit is the AND of both EntryLo G bits.
func (t *TLB) WriteEntry(i int, e TLBEntry) {
	mask := e.PageMask & pageMaskMask
	global := e.EntryLo0&e.EntryLo1&EntryLoGlobal != 0
	t.entries[i&(numTLBEntries-1)] = TLBEntry{
		PageMask: mask,
		EntryHi:  e.EntryHi & entryHiMask &^ mask,
		EntryLo0: e.EntryLo0 & entryLoMask &^ EntryLoGlobal,
		EntryLo1: e.EntryLo1 & entryLoMask &^ EntryLoGlobal,
		Global:   global,
	}
}

// vpnMask is the mask of the 32-bit virtual address bits compared against
// VPN2 for the given page mask.
func vpnMask(pageMask uint64) uint32 {
	return ^uint32(pageMask | 0x1FFF)
}

func (e *TLBEntry) matches(vaddr uint32, asid uint8) bool {
	mask := vpnMask(e.PageMask)
	if uint32(e.EntryHi)&mask != vaddr&mask {
		return false
	}
	return e.Global || uint8(e.EntryHi&EntryHiASID) == asid
}

// Probe returns the index of the entry matching entryHi's VPN2 and ASID.
func (t *TLB) Probe(entryHi uint64) (int, bool) {
	vaddr := uint32(entryHi)
	asid := uint8(entryHi & EntryHiASID)
	for i := range t.entries {
		if t.entries[i].matches(vaddr, asid) {
			return i, true
		}
	}
	return 0, false
}

// Translate maps a 32-bit virtual address through the TLB. It returns the
// physical address and whether the page is cacheable.
func (t *TLB) Translate(vaddr uint32, asid uint8, store bool) (uint32, bool, TLBResult) {
	for i := range t.entries {
		e := &t.entries[i]
		if !e.matches(vaddr, asid) {
			continue
		}

		oddBit := (uint32(e.PageMask|0x1FFF) >> 1) + 1
		offsetMask := oddBit - 1
		lo := e.EntryLo0
		if vaddr&oddBit != 0 {
			lo = e.EntryLo1
		}

		if lo&EntryLoValid == 0 {
			return 0, false, TLBInvalid
		}
		if store && lo&EntryLoDirty == 0 {
			return 0, false, TLBModified
		}

		pfn := uint32((lo & EntryLoPFN) >> EntryLoPFNShift)
		paddr := (pfn<<12)&^offsetMask | vaddr&offsetMask
		cached := uint32((lo&EntryLoC)>>EntryLoCShift) != ConfigK0Uncached
		return paddr, cached, TLBHit
	}
	return 0, false, TLBRefill
}
