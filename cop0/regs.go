// Package cop0 models the VR4300 system control coprocessor: the privileged
// register set, the TLB, address segmentation and exception dispatch.
//
// Only kernel mode with 32-bit addressing and big-endian byte order is
// modeled. Register writes that ask for anything else are rejected with
// emu.ErrUnsupportedConfig.
package cop0

// Register indices.
const (
	RegIndex    uint8 = 0
	RegRandom   uint8 = 1
	RegEntryLo0 uint8 = 2
	RegEntryLo1 uint8 = 3
	RegContext  uint8 = 4
	RegPageMask uint8 = 5
	RegWired    uint8 = 6
	RegBadVAddr uint8 = 8
	RegCount    uint8 = 9
	RegEntryHi  uint8 = 10
	RegCompare  uint8 = 11
	RegStatus   uint8 = 12
	RegCause    uint8 = 13
	RegEPC      uint8 = 14
	RegPRId     uint8 = 15
	RegConfig   uint8 = 16
	RegLLAddr   uint8 = 17
	RegWatchLo  uint8 = 18
	RegWatchHi  uint8 = 19
	RegXContext uint8 = 20
	RegTagLo    uint8 = 28
	RegTagHi    uint8 = 29
	RegErrorEPC uint8 = 30
)

// Status register bits.
const (
	StatusIE  uint32 = 1 << 0
	StatusEXL uint32 = 1 << 1
	StatusERL uint32 = 1 << 2
	StatusKSU uint32 = 3 << 3
	StatusUX  uint32 = 1 << 5
	StatusSX  uint32 = 1 << 6
	StatusKX  uint32 = 1 << 7
	StatusIM  uint32 = 0xFF << 8
	StatusDE  uint32 = 1 << 16
	StatusCE  uint32 = 1 << 17
	StatusCH  uint32 = 1 << 18
	StatusSR  uint32 = 1 << 20
	StatusTS  uint32 = 1 << 21
	StatusBEV uint32 = 1 << 22
	StatusITS uint32 = 1 << 24
	StatusRE  uint32 = 1 << 25
	StatusFR  uint32 = 1 << 26
	StatusRP  uint32 = 1 << 27
	StatusCU0 uint32 = 1 << 28
	StatusCU1 uint32 = 1 << 29
	StatusCU2 uint32 = 1 << 30
	StatusCU3 uint32 = 1 << 31
)

// Cause register fields.
const (
	CauseExcCodeShift        = 2
	CauseExcCode      uint32 = 0x1F << CauseExcCodeShift
	CauseIP           uint32 = 0xFF << 8
	CauseIPSoftware   uint32 = 0x3 << 8
	CauseIPTimer      uint32 = 1 << 15
	CauseCEShift             = 28
	CauseCE           uint32 = 3 << CauseCEShift
	CauseBD           uint32 = 1 << 31
)

// Config register fields.
const (
	ConfigK0       uint32 = 0x7
	ConfigCU       uint32 = 1 << 3
	ConfigBE       uint32 = 1 << 15
	ConfigEP       uint32 = 0xF << 24
	ConfigEC       uint32 = 0x7 << 28
	configWritable        = ConfigK0 | ConfigCU | ConfigBE | ConfigEP

	// ConfigK0Uncached is the KSEG0 coherency value for uncached access.
	ConfigK0Uncached uint32 = 2
)

// TagLo fields.
const (
	TagLoPTag     uint32 = 0x0FFFFF00
	TagLoPTagShft        = 8
	TagLoValid    uint32 = 1 << 7
	TagLoDirty    uint32 = 1 << 6
	tagLoReserved        = 0xF000003F
)

// EntryLo fields.
const (
	EntryLoGlobal   uint64 = 1 << 0
	EntryLoValid    uint64 = 1 << 1
	EntryLoDirty    uint64 = 1 << 2
	EntryLoCShift          = 3
	EntryLoC        uint64 = 7 << EntryLoCShift
	EntryLoPFNShift        = 6
	EntryLoPFN      uint64 = 0xFFFFF << EntryLoPFNShift
	entryLoMask            = EntryLoPFN | EntryLoC | EntryLoDirty | EntryLoValid | EntryLoGlobal
)

// EntryHi fields.
const (
	EntryHiASID uint64 = 0xFF
	EntryHiVPN2 uint64 = 0xFF_FFFF_E000
	EntryHiR    uint64 = 3 << 62
	entryHiMask        = EntryHiR | EntryHiVPN2 | EntryHiASID
)

// Reset and identification values.
const (
	// ResetStatus has CU0/CU1 usable, 32 FPU registers and BEV/ERL set, as
	// on a cold reset.
	ResetStatus uint32 = StatusCU1 | StatusCU0 | StatusFR | StatusBEV | StatusERL

	// ResetConfig is big-endian, cacheable KSEG0, default transfer pattern.
	ResetConfig uint32 = 0x7006E463

	// PRIdValue identifies a VR4300 rev 2.2.
	PRIdValue uint64 = 0x00000B22

	pageMaskMask uint64 = 0x01FFE000
	contextPTE   uint64 = ^uint64(0x7FFFFF)
	xcontextPTE  uint64 = ^uint64(0x1FFFFFFFF)
	watchLoMask  uint64 = 0xFFFFFFFB
	watchHiMask  uint64 = 0xF

	numTLBEntries = 32
)
