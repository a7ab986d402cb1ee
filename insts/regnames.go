package insts

// GPRNames are the conventional assembler names of the general-purpose
// registers.
var GPRNames = [32]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

// CP0Names are the names of the system control coprocessor registers.
// Reserved slots are named by their index.
var CP0Names = [32]string{
	"Index", "Random", "EntryLo0", "EntryLo1",
	"Context", "PageMask", "Wired", "r7",
	"BadVAddr", "Count", "EntryHi", "Compare",
	"Status", "Cause", "EPC", "PRId",
	"Config", "LLAddr", "WatchLo", "WatchHi",
	"XContext", "r21", "r22", "r23",
	"r24", "r25", "ParityError", "CacheError",
	"TagLo", "TagHi", "ErrorEPC", "r31",
}

// GPRName returns the assembler name of a general-purpose register.
func GPRName(reg uint8) string {
	return GPRNames[reg&0x1F]
}

// CP0Name returns the name of a CP0 register.
func CP0Name(reg uint8) string {
	return CP0Names[reg&0x1F]
}
