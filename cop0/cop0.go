package cop0

import (
	"github.com/sarchlab/n64sim/emu"
)

// CP0 holds the system control coprocessor state.
type CP0 struct {
	index    uint64
	random   uint64
	entryLo0 uint64
	entryLo1 uint64
	context  uint64
	pageMask uint64
	wired    uint64
	badVAddr uint64
	count    uint64
	entryHi  uint64
	compare  uint64
	status   uint32
	cause    uint32
	epc      uint64
	config   uint32
	llAddr   uint64
	watchLo  uint64
	watchHi  uint64
	xcontext uint64
	tagLo    uint32
	tagHi    uint32
	errorEPC uint64

	// LLBit is set by LL/LLD and cleared by ERET; SC/SCD only store while
	// it is set.
	LLBit bool

	// halfCycle toggles every Tick; Count advances on every other cycle.
	halfCycle bool

	// external holds the IP2-IP6 interrupt lines.
	external uint32

	tlb TLB
}

// New returns a CP0 in its cold-reset state.
func New() *CP0 {
	c := &CP0{}
	c.Reset()
	return c
}

// Reset restores the cold-reset state and invalidates the TLB.
func (c *CP0) Reset() {
	*c = CP0{}
	c.status = ResetStatus
	c.config = ResetConfig
	c.random = numTLBEntries - 1
}

// TLB exposes the translation buffer.
func (c *CP0) TLB() *TLB {
	return &c.tlb
}

// Status returns the Status register.
func (c *CP0) Status() uint32 { return c.status }

// Cause returns the Cause register.
func (c *CP0) Cause() uint32 { return c.cause }

// Config returns the Config register.
func (c *CP0) Config() uint32 { return c.config }

// EPC returns the exception program counter.
func (c *CP0) EPC() uint64 { return c.epc }

// TagLo returns the TagLo register.
func (c *CP0) TagLo() uint32 { return c.tagLo }

// SetTagLo stores a tag as produced by an Index_Load_Tag cache operation.
func (c *CP0) SetTagLo(v uint32) { c.tagLo = v &^ tagLoReserved }

// SetLLAddr records the physical address of the last LL/LLD.
func (c *CP0) SetLLAddr(paddr uint32) { c.llAddr = uint64(paddr >> 4) }

// FR reports whether the FPU exposes 32 independent 64-bit registers.
func (c *CP0) FR() bool { return c.status&StatusFR != 0 }

// CoprocessorUsable reports whether coprocessor n is enabled. CP0 is always
// usable in kernel mode.
func (c *CP0) CoprocessorUsable(n uint8) bool {
	if n == 0 {
		return true
	}
	return c.status&(StatusCU0<<n) != 0
}

// KSEG0Cached reports whether KSEG0 accesses go through the caches.
func (c *CP0) KSEG0Cached() bool {
	return c.config&ConfigK0 != ConfigK0Uncached
}

// Read returns the 64-bit value of a CP0 register. 32-bit registers are
// sign-extended.
func (c *CP0) Read(reg uint8) (uint64, error) {
	switch reg {
	case RegIndex:
		return signExtend32(uint32(c.index)), nil
	case RegRandom:
		return signExtend32(uint32(c.random)), nil
	case RegEntryLo0:
		return c.entryLo0, nil
	case RegEntryLo1:
		return c.entryLo1, nil
	case RegContext:
		return c.context, nil
	case RegPageMask:
		return signExtend32(uint32(c.pageMask)), nil
	case RegWired:
		return signExtend32(uint32(c.wired)), nil
	case RegBadVAddr:
		return c.badVAddr, nil
	case RegCount:
		return signExtend32(uint32(c.count)), nil
	case RegEntryHi:
		return c.entryHi, nil
	case RegCompare:
		return signExtend32(uint32(c.compare)), nil
	case RegStatus:
		return signExtend32(c.status), nil
	case RegCause:
		return signExtend32(c.cause), nil
	case RegEPC:
		return c.epc, nil
	case RegPRId:
		return PRIdValue, nil
	case RegConfig:
		return signExtend32(c.config), nil
	case RegLLAddr:
		return signExtend32(uint32(c.llAddr)), nil
	case RegWatchLo:
		return signExtend32(uint32(c.watchLo)), nil
	case RegWatchHi:
		return c.watchHi, nil
	case RegXContext:
		return c.xcontext, nil
	case RegTagLo:
		return signExtend32(c.tagLo), nil
	case RegTagHi:
		return signExtend32(c.tagHi), nil
	case RegErrorEPC:
		return c.errorEPC, nil
	}
	return 0, emu.NewFault(emu.ErrUnsupportedInstruction,
		"read of unmodeled CP0 register %d", reg)
}

// Write stores value into a CP0 register, applying the register's write
// mask. Read-only registers ignore writes. Writes that would enable an
// unmodeled operating mode are rejected.
func (c *CP0) Write(reg uint8, value uint64) error {
	switch reg {
	case RegIndex:
		c.index = c.index&(1<<31) | value&0x3F
	case RegRandom, RegBadVAddr, RegPRId:
	case RegEntryLo0:
		c.entryLo0 = value & entryLoMask
	case RegEntryLo1:
		c.entryLo1 = value & entryLoMask
	case RegContext:
		c.context = c.context&^contextPTE | value&contextPTE
	case RegPageMask:
		c.pageMask = value & pageMaskMask
	case RegWired:
		c.wired = value & 0x3F
		c.random = numTLBEntries - 1
	case RegCount:
		c.count = uint64(uint32(value))
	case RegEntryHi:
		c.entryHi = value & entryHiMask
	case RegCompare:
		c.compare = uint64(uint32(value))
		c.cause &^= CauseIPTimer
	case RegStatus:
		return c.writeStatus(uint32(value))
	case RegCause:
		c.cause = c.cause&^CauseIPSoftware | uint32(value)&CauseIPSoftware
	case RegEPC:
		c.epc = value
	case RegConfig:
		return c.writeConfig(uint32(value))
	case RegLLAddr:
		c.llAddr = uint64(uint32(value))
	case RegWatchLo:
		c.watchLo = value & watchLoMask
	case RegWatchHi:
		c.watchHi = value & watchHiMask
	case RegXContext:
		c.xcontext = c.xcontext&^xcontextPTE | value&xcontextPTE
	case RegTagLo:
		return c.writeTagLo(uint32(value))
	case RegTagHi:
		c.tagHi = uint32(value)
	case RegErrorEPC:
		c.errorEPC = value
	default:
		return emu.NewFault(emu.ErrUnsupportedInstruction,
			"write of unmodeled CP0 register %d", reg)
	}
	return nil
}

func (c *CP0) writeStatus(v uint32) error {
	switch {
	case v&StatusKSU != 0:
		return emu.NewFault(emu.ErrUnsupportedConfig,
			"Status 0x%08X selects supervisor/user mode", v)
	case v&(StatusKX|StatusSX|StatusUX) != 0:
		return emu.NewFault(emu.ErrUnsupportedConfig,
			"Status 0x%08X enables 64-bit addressing", v)
	case v&StatusRE != 0:
		return emu.NewFault(emu.ErrUnsupportedConfig,
			"Status 0x%08X enables reverse endianness", v)
	case v&StatusRP != 0:
		return emu.NewFault(emu.ErrUnsupportedConfig,
			"Status 0x%08X enables reduced power mode", v)
	}
	c.status = v
	return nil
}

func (c *CP0) writeConfig(v uint32) error {
	switch {
	case v&ConfigK0 == ConfigK0Uncached:
		return emu.NewFault(emu.ErrUnsupportedConfig,
			"Config 0x%08X makes KSEG0 uncached", v)
	case v&ConfigBE == 0:
		return emu.NewFault(emu.ErrUnsupportedConfig,
			"Config 0x%08X selects little-endian", v)
	case v&ConfigEP != 0:
		return emu.NewFault(emu.ErrUnsupportedConfig,
			"Config 0x%08X selects a non-default transfer pattern", v)
	}
	c.config = c.config&^configWritable | v&configWritable
	return nil
}

func (c *CP0) writeTagLo(v uint32) error {
	if v&tagLoReserved != 0 {
		return emu.NewFault(emu.ErrUnsupportedConfig,
			"TagLo 0x%08X sets reserved bits", v)
	}
	c.tagLo = v
	return nil
}

// Tick advances the free-running state by one pipeline cycle: Random counts
// down toward Wired and Count advances at half the pipeline clock.
func (c *CP0) Tick() {
	if c.random <= c.wired {
		c.random = numTLBEntries - 1
	} else {
		c.random--
	}

	c.halfCycle = !c.halfCycle
	if c.halfCycle {
		return
	}
	c.count = uint64(uint32(c.count + 1))
	if c.count == c.compare {
		c.cause |= CauseIPTimer
	}
}

// SetInterrupt drives external interrupt line n (0-4, mapped to IP2-IP6).
func (c *CP0) SetInterrupt(line int, asserted bool) {
	if line < 0 || line > 4 {
		return
	}
	bit := uint32(1) << (10 + line)
	if asserted {
		c.external |= bit
	} else {
		c.external &^= bit
	}
	c.cause = c.cause&^(0x1F<<10) | c.external
}

// InterruptPending reports whether an enabled, unmasked interrupt is
// waiting to be taken.
func (c *CP0) InterruptPending() bool {
	if c.status&StatusIE == 0 || c.status&(StatusEXL|StatusERL) != 0 {
		return false
	}
	return c.cause&CauseIP&c.status&StatusIM != 0
}

// TLBRead loads the entry selected by Index into PageMask, EntryHi and
// EntryLo0/1.
func (c *CP0) TLBRead() {
	e := c.tlb.ReadEntry(int(c.index & 0x1F))
	g := uint64(0)
	if e.Global {
		g = EntryLoGlobal
	}
	c.pageMask = e.PageMask
	c.entryHi = e.EntryHi &^ e.PageMask
	c.entryLo0 = e.EntryLo0 | g
	c.entryLo1 = e.EntryLo1 | g
}

// TLBWriteIndexed writes the staging registers to the entry selected by
// Index.
func (c *CP0) TLBWriteIndexed() {
	c.tlb.WriteEntry(int(c.index&0x1F), c.stagedEntry())
}

// TLBWriteRandom writes the staging registers to the entry selected by
// Random.
func (c *CP0) TLBWriteRandom() {
	c.tlb.WriteEntry(int(c.random&0x1F), c.stagedEntry())
}

// TLBProbe searches for EntryHi and stores the result in Index. The P bit
// is set when nothing matched.
func (c *CP0) TLBProbe() {
	if i, ok := c.tlb.Probe(c.entryHi); ok {
		c.index = uint64(i)
		return
	}
	c.index = 1 << 31
}

func (c *CP0) stagedEntry() TLBEntry {
	return TLBEntry{
		PageMask: c.pageMask,
		EntryHi:  c.entryHi,
		EntryLo0: c.entryLo0,
		EntryLo1: c.entryLo1,
	}
}

func signExtend32(v uint32) uint64 {
	return uint64(int64(int32(v)))
}
