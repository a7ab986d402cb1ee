// Package insts provides VR4300 (MIPS III) instruction definitions and
// decoding.
//
// This package turns 32-bit instruction words into structured instruction
// records. It supports:
//   - the integer ALU, shift, multiply/divide and HI/LO families
//   - every load/store width including the unaligned left/right variants
//   - branches (plain, likely, linking), jumps and conditional traps
//   - the LL/SC atomic pair, CACHE and SYNC
//   - the system control coprocessor (COP0) and the FPU (COP1)
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x24420001) // ADDIU v0, v0, 1
//	fmt.Printf("Op: %v, Rt: %d, Rs: %d, Imm: %d\n", inst.Op, inst.Rt, inst.Rs, inst.Imm)
package insts

// Word is a raw 32-bit instruction word with field accessors.
type Word uint32

// Opcode returns the primary opcode, bits [31:26].
func (w Word) Opcode() uint8 { return uint8(w >> 26) }

// Rs returns bits [25:21]. For coprocessor instructions this is the
// sub-opcode or the floating-point format.
func (w Word) Rs() uint8 { return uint8(w>>21) & 0x1F }

// Rt returns bits [20:16].
func (w Word) Rt() uint8 { return uint8(w>>16) & 0x1F }

// Rd returns bits [15:11].
func (w Word) Rd() uint8 { return uint8(w>>11) & 0x1F }

// Sa returns the shift amount, bits [10:6].
func (w Word) Sa() uint8 { return uint8(w>>6) & 0x1F }

// Funct returns the function field, bits [5:0].
func (w Word) Funct() uint8 { return uint8(w) & 0x3F }

// Imm returns the 16-bit immediate, bits [15:0].
func (w Word) Imm() uint16 { return uint16(w) }

// SImm returns the 16-bit immediate sign-extended to 64 bits.
func (w Word) SImm() int64 { return int64(int16(w)) }

// Target returns the 26-bit jump target field.
func (w Word) Target() uint32 { return uint32(w) & 0x03FF_FFFF }

// Ft returns the FPU second source register field, bits [20:16].
func (w Word) Ft() uint8 { return w.Rt() }

// Fs returns the FPU source register field, bits [15:11].
func (w Word) Fs() uint8 { return w.Rd() }

// Fd returns the FPU destination register field, bits [10:6].
func (w Word) Fd() uint8 { return w.Sa() }

// FloatFormat is the fmt field of a COP1 arithmetic instruction.
type FloatFormat uint8

// FPU operand formats.
const (
	FmtS FloatFormat = 16 // single precision
	FmtD FloatFormat = 17 // double precision
	FmtW FloatFormat = 20 // 32-bit fixed point
	FmtL FloatFormat = 21 // 64-bit fixed point
)

// String returns the assembler suffix of the format.
func (f FloatFormat) String() string {
	switch f {
	case FmtS:
		return "s"
	case FmtD:
		return "d"
	case FmtW:
		return "w"
	case FmtL:
		return "l"
	default:
		return "?"
	}
}

// Is64 reports whether the format occupies a full 64-bit register.
func (f FloatFormat) Is64() bool {
	return f == FmtD || f == FmtL
}

// Format groups instructions by operand layout. It drives disassembly and
// the pipeline's stall lookup; execution dispatches on Op.
type Format uint8

// Instruction formats.
const (
	FormatUnknown   Format = iota
	FormatNone             // no operands (SYNC, ERET, TLB ops)
	FormatR3               // rd, rs, rt
	FormatShift            // rd, rt, sa
	FormatShiftV           // rd, rt, rs
	FormatImm              // rt, rs, imm
	FormatLUI              // rt, imm
	FormatLoadStore        // rt, imm(rs)
	FormatFPULoadStore     // ft, imm(rs)
	FormatBranch2          // rs, rt, offset
	FormatBranch1          // rs, offset
	FormatJump             // target
	FormatJumpReg          // rs / rd, rs
	FormatMulDiv           // rs, rt
	FormatHiLoFrom         // rd
	FormatHiLoTo           // rs
	FormatTrap             // rs, rt
	FormatTrapImm          // rs, imm
	FormatCode             // SYSCALL/BREAK code
	FormatCache            // op, imm(rs)
	FormatCopMove          // rt, rd
	FormatCopBranch        // offset
	FormatFPU3             // fd, fs, ft
	FormatFPU2             // fd, fs
	FormatFPUCompare       // fs, ft
)

// Op represents a decoded operation.
type Op uint16

// Operations.
const (
	OpUnknown Op = iota

	// Special (function field)
	OpSLL
	OpSRL
	OpSRA
	OpSLLV
	OpSRLV
	OpSRAV
	OpJR
	OpJALR
	OpSYSCALL
	OpBREAK
	OpSYNC
	OpMFHI
	OpMTHI
	OpMFLO
	OpMTLO
	OpDSLLV
	OpDSRLV
	OpDSRAV
	OpMULT
	OpMULTU
	OpDIV
	OpDIVU
	OpDMULT
	OpDMULTU
	OpDDIV
	OpDDIVU
	OpADD
	OpADDU
	OpSUB
	OpSUBU
	OpAND
	OpOR
	OpXOR
	OpNOR
	OpSLT
	OpSLTU
	OpDADD
	OpDADDU
	OpDSUB
	OpDSUBU
	OpTGE
	OpTGEU
	OpTLT
	OpTLTU
	OpTEQ
	OpTNE
	OpDSLL
	OpDSRL
	OpDSRA
	OpDSLL32
	OpDSRL32
	OpDSRA32

	// RegImm (rt field)
	OpBLTZ
	OpBGEZ
	OpBLTZL
	OpBGEZL
	OpTGEI
	OpTGEIU
	OpTLTI
	OpTLTIU
	OpTEQI
	OpTNEI
	OpBLTZAL
	OpBGEZAL
	OpBLTZALL
	OpBGEZALL

	// Primary opcode
	OpJ
	OpJAL
	OpBEQ
	OpBNE
	OpBLEZ
	OpBGTZ
	OpADDI
	OpADDIU
	OpSLTI
	OpSLTIU
	OpANDI
	OpORI
	OpXORI
	OpLUI
	OpBEQL
	OpBNEL
	OpBLEZL
	OpBGTZL
	OpDADDI
	OpDADDIU
	OpLDL
	OpLDR
	OpLB
	OpLH
	OpLWL
	OpLW
	OpLBU
	OpLHU
	OpLWR
	OpLWU
	OpSB
	OpSH
	OpSWL
	OpSW
	OpSDL
	OpSDR
	OpSWR
	OpCACHE
	OpLL
	OpLWC1
	OpLLD
	OpLDC1
	OpLD
	OpSC
	OpSWC1
	OpSCD
	OpSDC1
	OpSD

	// COP0
	OpMFC0
	OpDMFC0
	OpMTC0
	OpDMTC0
	OpTLBR
	OpTLBWI
	OpTLBWR
	OpTLBP
	OpERET

	// COP1 transfers and branches
	OpMFC1
	OpDMFC1
	OpCFC1
	OpMTC1
	OpDMTC1
	OpCTC1
	OpBC1F
	OpBC1T
	OpBC1FL
	OpBC1TL

	// COP1 arithmetic (format in Instruction.Fmt)
	OpFADD
	OpFSUB
	OpFMUL
	OpFDIV
	OpFSQRT
	OpFABS
	OpFMOV
	OpFNEG
	OpFROUNDL
	OpFTRUNCL
	OpFCEILL
	OpFFLOORL
	OpFROUNDW
	OpFTRUNCW
	OpFCEILW
	OpFFLOORW
	OpFCVTS
	OpFCVTD
	OpFCVTW
	OpFCVTL
	OpFCMP

	opCount
)

// String returns the mnemonic of the operation.
func (op Op) String() string {
	if op < opCount && opNames[op] != "" {
		return opNames[op]
	}
	return "unknown"
}

// Instruction represents a decoded VR4300 instruction.
type Instruction struct {
	Op     Op     // Operation
	Format Format // Operand layout
	Word   Word   // Raw instruction word

	// Register fields
	Rs uint8
	Rt uint8
	Rd uint8
	Sa uint8

	// Imm is the sign-extended 16-bit immediate.
	Imm int64
	// UImm is the zero-extended 16-bit immediate (logical ops, LUI).
	UImm uint64

	// Target is the 26-bit jump target field.
	Target uint32

	// Fmt is the operand format of COP1 arithmetic instructions.
	Fmt FloatFormat
	// Cond is the 4-bit predicate of C.cond.fmt.
	Cond uint8
}

// IsBranch reports whether the operation has a delay slot.
func (i *Instruction) IsBranch() bool {
	switch i.Format {
	case FormatBranch1, FormatBranch2, FormatJump, FormatJumpReg, FormatCopBranch:
		return true
	}
	return false
}

// IsLikely reports whether the operation is a branch-likely, whose delay
// slot is nullified when the branch is not taken.
func (i *Instruction) IsLikely() bool {
	switch i.Op {
	case OpBEQL, OpBNEL, OpBLEZL, OpBGTZL, OpBLTZL, OpBGEZL,
		OpBLTZALL, OpBGEZALL, OpBC1FL, OpBC1TL:
		return true
	}
	return false
}

var opNames = [opCount]string{
	OpSLL: "sll", OpSRL: "srl", OpSRA: "sra", OpSLLV: "sllv", OpSRLV: "srlv",
	OpSRAV: "srav", OpJR: "jr", OpJALR: "jalr", OpSYSCALL: "syscall",
	OpBREAK: "break", OpSYNC: "sync", OpMFHI: "mfhi", OpMTHI: "mthi",
	OpMFLO: "mflo", OpMTLO: "mtlo", OpDSLLV: "dsllv", OpDSRLV: "dsrlv",
	OpDSRAV: "dsrav", OpMULT: "mult", OpMULTU: "multu", OpDIV: "div",
	OpDIVU: "divu", OpDMULT: "dmult", OpDMULTU: "dmultu", OpDDIV: "ddiv",
	OpDDIVU: "ddivu", OpADD: "add", OpADDU: "addu", OpSUB: "sub",
	OpSUBU: "subu", OpAND: "and", OpOR: "or", OpXOR: "xor", OpNOR: "nor",
	OpSLT: "slt", OpSLTU: "sltu", OpDADD: "dadd", OpDADDU: "daddu",
	OpDSUB: "dsub", OpDSUBU: "dsubu", OpTGE: "tge", OpTGEU: "tgeu",
	OpTLT: "tlt", OpTLTU: "tltu", OpTEQ: "teq", OpTNE: "tne",
	OpDSLL: "dsll", OpDSRL: "dsrl", OpDSRA: "dsra", OpDSLL32: "dsll32",
	OpDSRL32: "dsrl32", OpDSRA32: "dsra32",

	OpBLTZ: "bltz", OpBGEZ: "bgez", OpBLTZL: "bltzl", OpBGEZL: "bgezl",
	OpTGEI: "tgei", OpTGEIU: "tgeiu", OpTLTI: "tlti", OpTLTIU: "tltiu",
	OpTEQI: "teqi", OpTNEI: "tnei", OpBLTZAL: "bltzal", OpBGEZAL: "bgezal",
	OpBLTZALL: "bltzall", OpBGEZALL: "bgezall",

	OpJ: "j", OpJAL: "jal", OpBEQ: "beq", OpBNE: "bne", OpBLEZ: "blez",
	OpBGTZ: "bgtz", OpADDI: "addi", OpADDIU: "addiu", OpSLTI: "slti",
	OpSLTIU: "sltiu", OpANDI: "andi", OpORI: "ori", OpXORI: "xori",
	OpLUI: "lui", OpBEQL: "beql", OpBNEL: "bnel", OpBLEZL: "blezl",
	OpBGTZL: "bgtzl", OpDADDI: "daddi", OpDADDIU: "daddiu", OpLDL: "ldl",
	OpLDR: "ldr", OpLB: "lb", OpLH: "lh", OpLWL: "lwl", OpLW: "lw",
	OpLBU: "lbu", OpLHU: "lhu", OpLWR: "lwr", OpLWU: "lwu", OpSB: "sb",
	OpSH: "sh", OpSWL: "swl", OpSW: "sw", OpSDL: "sdl", OpSDR: "sdr",
	OpSWR: "swr", OpCACHE: "cache", OpLL: "ll", OpLWC1: "lwc1",
	OpLLD: "lld", OpLDC1: "ldc1", OpLD: "ld", OpSC: "sc", OpSWC1: "swc1",
	OpSCD: "scd", OpSDC1: "sdc1", OpSD: "sd",

	OpMFC0: "mfc0", OpDMFC0: "dmfc0", OpMTC0: "mtc0", OpDMTC0: "dmtc0",
	OpTLBR: "tlbr", OpTLBWI: "tlbwi", OpTLBWR: "tlbwr", OpTLBP: "tlbp",
	OpERET: "eret",

	OpMFC1: "mfc1", OpDMFC1: "dmfc1", OpCFC1: "cfc1", OpMTC1: "mtc1",
	OpDMTC1: "dmtc1", OpCTC1: "ctc1", OpBC1F: "bc1f", OpBC1T: "bc1t",
	OpBC1FL: "bc1fl", OpBC1TL: "bc1tl",

	OpFADD: "add", OpFSUB: "sub", OpFMUL: "mul", OpFDIV: "div",
	OpFSQRT: "sqrt", OpFABS: "abs", OpFMOV: "mov", OpFNEG: "neg",
	OpFROUNDL: "round.l", OpFTRUNCL: "trunc.l", OpFCEILL: "ceil.l",
	OpFFLOORL: "floor.l", OpFROUNDW: "round.w", OpFTRUNCW: "trunc.w",
	OpFCEILW: "ceil.w", OpFFLOORW: "floor.w", OpFCVTS: "cvt.s",
	OpFCVTD: "cvt.d", OpFCVTW: "cvt.w", OpFCVTL: "cvt.l", OpFCMP: "c",
}
