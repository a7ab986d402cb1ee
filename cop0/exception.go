package cop0

// ExceptionKind identifies an architectural exception.
type ExceptionKind uint8

// Modeled exception kinds.
const (
	ExcInterrupt ExceptionKind = iota
	ExcTLBModification
	ExcTLBLoad
	ExcTLBStore
	ExcSyscall
	ExcBreakpoint
	ExcReservedInstruction
	ExcCoprocessorUnusable
	ExcOverflow
	ExcTrap
)

var excCodes = [...]uint32{
	ExcInterrupt:           0,
	ExcTLBModification:     1,
	ExcTLBLoad:             2,
	ExcTLBStore:            3,
	ExcSyscall:             8,
	ExcBreakpoint:          9,
	ExcReservedInstruction: 10,
	ExcCoprocessorUnusable: 11,
	ExcOverflow:            12,
	ExcTrap:                13,
}

var excNames = [...]string{
	ExcInterrupt:           "Int",
	ExcTLBModification:     "Mod",
	ExcTLBLoad:             "TLBL",
	ExcTLBStore:            "TLBS",
	ExcSyscall:             "Sys",
	ExcBreakpoint:          "Bp",
	ExcReservedInstruction: "RI",
	ExcCoprocessorUnusable: "CpU",
	ExcOverflow:            "Ov",
	ExcTrap:                "Tr",
}

// Code returns the Cause.ExcCode value.
func (k ExceptionKind) Code() uint32 {
	return excCodes[k]
}

// String returns the conventional mnemonic for the exception.
func (k ExceptionKind) String() string {
	if int(k) < len(excNames) {
		return excNames[k]
	}
	return "unknown"
}

// IsTLB reports whether the kind carries a faulting virtual address.
func (k ExceptionKind) IsTLB() bool {
	return k == ExcTLBModification || k == ExcTLBLoad || k == ExcTLBStore
}

// Exception describes an exception being raised.
type Exception struct {
	Kind ExceptionKind
	// BadVAddr is the faulting virtual address for TLB kinds.
	BadVAddr uint64
	// Refill is set for TLB misses where no entry matched; those use the
	// refill vector when EXL is clear.
	Refill bool
	// Coprocessor is the unit number for coprocessor-unusable exceptions.
	Coprocessor uint8
}

// TLBException builds the exception for a failed translation.
func TLBException(r TLBResult, vaddr uint64, store bool) Exception {
	e := Exception{BadVAddr: vaddr, Refill: r == TLBRefill}
	switch {
	case r == TLBModified:
		e.Kind = ExcTLBModification
	case store:
		e.Kind = ExcTLBStore
	default:
		e.Kind = ExcTLBLoad
	}
	return e
}

// Exception vectors.
const (
	vectorBase    uint64 = 0xFFFF_FFFF_8000_0000
	vectorBaseBEV uint64 = 0xFFFF_FFFF_BFC0_0200
	refillOffset  uint64 = 0x000
	generalOffset uint64 = 0x180
)

// Raise records exc in the CP0 state and returns the handler address.
// pc is the address of the excepting instruction and delay reports
// whether it sits in a branch delay slot, in which case EPC points at the
// branch and Cause.BD is set. EPC and BD are left alone if EXL is already
// set.
func (c *CP0) Raise(exc Exception, pc uint64, delay bool) uint64 {
	exl := c.status&StatusEXL != 0

	if !exl {
		if delay {
			c.epc = pc - 4
			c.cause |= CauseBD
		} else {
			c.epc = pc
			c.cause &^= CauseBD
		}
	}

	c.cause = c.cause&^(CauseExcCode|CauseCE) |
		exc.Kind.Code()<<CauseExcCodeShift |
		uint32(exc.Coprocessor&3)<<CauseCEShift

	if exc.Kind.IsTLB() {
		c.setBadVAddr(exc.BadVAddr)
	}

	offset := generalOffset
	if exc.Refill && !exl {
		offset = refillOffset
	}

	c.status |= StatusEXL

	base := vectorBase
	if c.status&StatusBEV != 0 {
		base = vectorBaseBEV
	}
	return base + offset
}

func (c *CP0) setBadVAddr(vaddr uint64) {
	c.badVAddr = vaddr
	vpn2 := vaddr >> 13
	c.context = c.context&contextPTE | (vpn2&0x7FFFF)<<4
	c.xcontext = c.xcontext&xcontextPTE |
		(vaddr>>62&3)<<31 | (vpn2&0x7FFFFFF)<<4
	c.entryHi = c.entryHi&EntryHiASID | vaddr&(EntryHiR|EntryHiVPN2)
}

// ReturnFromException implements ERET. It returns the resume address and
// clears ERL (resuming at ErrorEPC) or, if ERL is clear, EXL (resuming at
// EPC). The LL bit is always cleared.
func (c *CP0) ReturnFromException() uint64 {
	c.LLBit = false
	if c.status&StatusERL != 0 {
		c.status &^= StatusERL
		return c.errorEPC
	}
	c.status &^= StatusEXL
	return c.epc
}
