package insts

// entry is one slot of a decode table.
type entry struct {
	op     Op
	format Format
}

// Primary opcode escapes.
const (
	opcodeSpecial = 0x00
	opcodeRegImm  = 0x01
	opcodeCop0    = 0x10
	opcodeCop1    = 0x11
)

// COP0/COP1 rs sub-opcodes.
const (
	copRsMF  = 0x00
	copRsDMF = 0x01
	copRsCF  = 0x02
	copRsMT  = 0x04
	copRsDMT = 0x05
	copRsCT  = 0x06
	copRsBC  = 0x08
	copRsCO  = 0x10
)

var primaryTable = [64]entry{
	0x02: {OpJ, FormatJump},
	0x03: {OpJAL, FormatJump},
	0x04: {OpBEQ, FormatBranch2},
	0x05: {OpBNE, FormatBranch2},
	0x06: {OpBLEZ, FormatBranch1},
	0x07: {OpBGTZ, FormatBranch1},
	0x08: {OpADDI, FormatImm},
	0x09: {OpADDIU, FormatImm},
	0x0A: {OpSLTI, FormatImm},
	0x0B: {OpSLTIU, FormatImm},
	0x0C: {OpANDI, FormatImm},
	0x0D: {OpORI, FormatImm},
	0x0E: {OpXORI, FormatImm},
	0x0F: {OpLUI, FormatLUI},
	0x14: {OpBEQL, FormatBranch2},
	0x15: {OpBNEL, FormatBranch2},
	0x16: {OpBLEZL, FormatBranch1},
	0x17: {OpBGTZL, FormatBranch1},
	0x18: {OpDADDI, FormatImm},
	0x19: {OpDADDIU, FormatImm},
	0x1A: {OpLDL, FormatLoadStore},
	0x1B: {OpLDR, FormatLoadStore},
	0x20: {OpLB, FormatLoadStore},
	0x21: {OpLH, FormatLoadStore},
	0x22: {OpLWL, FormatLoadStore},
	0x23: {OpLW, FormatLoadStore},
	0x24: {OpLBU, FormatLoadStore},
	0x25: {OpLHU, FormatLoadStore},
	0x26: {OpLWR, FormatLoadStore},
	0x27: {OpLWU, FormatLoadStore},
	0x28: {OpSB, FormatLoadStore},
	0x29: {OpSH, FormatLoadStore},
	0x2A: {OpSWL, FormatLoadStore},
	0x2B: {OpSW, FormatLoadStore},
	0x2C: {OpSDL, FormatLoadStore},
	0x2D: {OpSDR, FormatLoadStore},
	0x2E: {OpSWR, FormatLoadStore},
	0x2F: {OpCACHE, FormatCache},
	0x30: {OpLL, FormatLoadStore},
	0x31: {OpLWC1, FormatFPULoadStore},
	0x34: {OpLLD, FormatLoadStore},
	0x35: {OpLDC1, FormatFPULoadStore},
	0x37: {OpLD, FormatLoadStore},
	0x38: {OpSC, FormatLoadStore},
	0x39: {OpSWC1, FormatFPULoadStore},
	0x3C: {OpSCD, FormatLoadStore},
	0x3D: {OpSDC1, FormatFPULoadStore},
	0x3F: {OpSD, FormatLoadStore},
}

var specialTable = [64]entry{
	0x00: {OpSLL, FormatShift},
	0x02: {OpSRL, FormatShift},
	0x03: {OpSRA, FormatShift},
	0x04: {OpSLLV, FormatShiftV},
	0x06: {OpSRLV, FormatShiftV},
	0x07: {OpSRAV, FormatShiftV},
	0x08: {OpJR, FormatJumpReg},
	0x09: {OpJALR, FormatJumpReg},
	0x0C: {OpSYSCALL, FormatCode},
	0x0D: {OpBREAK, FormatCode},
	0x0F: {OpSYNC, FormatNone},
	0x10: {OpMFHI, FormatHiLoFrom},
	0x11: {OpMTHI, FormatHiLoTo},
	0x12: {OpMFLO, FormatHiLoFrom},
	0x13: {OpMTLO, FormatHiLoTo},
	0x14: {OpDSLLV, FormatShiftV},
	0x16: {OpDSRLV, FormatShiftV},
	0x17: {OpDSRAV, FormatShiftV},
	0x18: {OpMULT, FormatMulDiv},
	0x19: {OpMULTU, FormatMulDiv},
	0x1A: {OpDIV, FormatMulDiv},
	0x1B: {OpDIVU, FormatMulDiv},
	0x1C: {OpDMULT, FormatMulDiv},
	0x1D: {OpDMULTU, FormatMulDiv},
	0x1E: {OpDDIV, FormatMulDiv},
	0x1F: {OpDDIVU, FormatMulDiv},
	0x20: {OpADD, FormatR3},
	0x21: {OpADDU, FormatR3},
	0x22: {OpSUB, FormatR3},
	0x23: {OpSUBU, FormatR3},
	0x24: {OpAND, FormatR3},
	0x25: {OpOR, FormatR3},
	0x26: {OpXOR, FormatR3},
	0x27: {OpNOR, FormatR3},
	0x2A: {OpSLT, FormatR3},
	0x2B: {OpSLTU, FormatR3},
	0x2C: {OpDADD, FormatR3},
	0x2D: {OpDADDU, FormatR3},
	0x2E: {OpDSUB, FormatR3},
	0x2F: {OpDSUBU, FormatR3},
	0x30: {OpTGE, FormatTrap},
	0x31: {OpTGEU, FormatTrap},
	0x32: {OpTLT, FormatTrap},
	0x33: {OpTLTU, FormatTrap},
	0x34: {OpTEQ, FormatTrap},
	0x36: {OpTNE, FormatTrap},
	0x38: {OpDSLL, FormatShift},
	0x3A: {OpDSRL, FormatShift},
	0x3B: {OpDSRA, FormatShift},
	0x3C: {OpDSLL32, FormatShift},
	0x3E: {OpDSRL32, FormatShift},
	0x3F: {OpDSRA32, FormatShift},
}

var regImmTable = [32]entry{
	0x00: {OpBLTZ, FormatBranch1},
	0x01: {OpBGEZ, FormatBranch1},
	0x02: {OpBLTZL, FormatBranch1},
	0x03: {OpBGEZL, FormatBranch1},
	0x08: {OpTGEI, FormatTrapImm},
	0x09: {OpTGEIU, FormatTrapImm},
	0x0A: {OpTLTI, FormatTrapImm},
	0x0B: {OpTLTIU, FormatTrapImm},
	0x0C: {OpTEQI, FormatTrapImm},
	0x0E: {OpTNEI, FormatTrapImm},
	0x10: {OpBLTZAL, FormatBranch1},
	0x11: {OpBGEZAL, FormatBranch1},
	0x12: {OpBLTZALL, FormatBranch1},
	0x13: {OpBGEZALL, FormatBranch1},
}

var cop0Table = [32]entry{
	copRsMF:  {OpMFC0, FormatCopMove},
	copRsDMF: {OpDMFC0, FormatCopMove},
	copRsMT:  {OpMTC0, FormatCopMove},
	copRsDMT: {OpDMTC0, FormatCopMove},
}

var cop0FunctTable = [64]entry{
	0x01: {OpTLBR, FormatNone},
	0x02: {OpTLBWI, FormatNone},
	0x06: {OpTLBWR, FormatNone},
	0x08: {OpTLBP, FormatNone},
	0x18: {OpERET, FormatNone},
}

var cop1Table = [32]entry{
	copRsMF:  {OpMFC1, FormatCopMove},
	copRsDMF: {OpDMFC1, FormatCopMove},
	copRsCF:  {OpCFC1, FormatCopMove},
	copRsMT:  {OpMTC1, FormatCopMove},
	copRsDMT: {OpDMTC1, FormatCopMove},
	copRsCT:  {OpCTC1, FormatCopMove},
}

var cop1BranchTable = [4]entry{
	{OpBC1F, FormatCopBranch},
	{OpBC1T, FormatCopBranch},
	{OpBC1FL, FormatCopBranch},
	{OpBC1TL, FormatCopBranch},
}

// fpuTable is indexed by function field. The valid formats of each entry
// are checked separately by fpuFormatValid.
var fpuTable = [64]entry{
	0x00: {OpFADD, FormatFPU3},
	0x01: {OpFSUB, FormatFPU3},
	0x02: {OpFMUL, FormatFPU3},
	0x03: {OpFDIV, FormatFPU3},
	0x04: {OpFSQRT, FormatFPU2},
	0x05: {OpFABS, FormatFPU2},
	0x06: {OpFMOV, FormatFPU2},
	0x07: {OpFNEG, FormatFPU2},
	0x08: {OpFROUNDL, FormatFPU2},
	0x09: {OpFTRUNCL, FormatFPU2},
	0x0A: {OpFCEILL, FormatFPU2},
	0x0B: {OpFFLOORL, FormatFPU2},
	0x0C: {OpFROUNDW, FormatFPU2},
	0x0D: {OpFTRUNCW, FormatFPU2},
	0x0E: {OpFCEILW, FormatFPU2},
	0x0F: {OpFFLOORW, FormatFPU2},
	0x20: {OpFCVTS, FormatFPU2},
	0x21: {OpFCVTD, FormatFPU2},
	0x24: {OpFCVTW, FormatFPU2},
	0x25: {OpFCVTL, FormatFPU2},
}

// fpuFormatValid reports whether op accepts operands of format fmt.
// Fixed-point formats only convert to floating point; a float format
// cannot convert to itself.
func fpuFormatValid(op Op, fmt FloatFormat) bool {
	switch fmt {
	case FmtS:
		return op != OpFCVTS
	case FmtD:
		return op != OpFCVTD
	case FmtW, FmtL:
		return op == OpFCVTS || op == OpFCVTD
	default:
		return false
	}
}

// Decoder decodes VR4300 machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit instruction word. Words without a decode entry
// come back with Op == OpUnknown; it is the caller's job to fault on them.
func (d *Decoder) Decode(raw uint32) *Instruction {
	inst := &Instruction{}
	d.DecodeInto(raw, inst)
	return inst
}

// DecodeInto decodes raw into inst, reusing its storage.
func (d *Decoder) DecodeInto(raw uint32, inst *Instruction) {
	w := Word(raw)
	*inst = Instruction{
		Word:   w,
		Rs:     w.Rs(),
		Rt:     w.Rt(),
		Rd:     w.Rd(),
		Sa:     w.Sa(),
		Imm:    w.SImm(),
		UImm:   uint64(w.Imm()),
		Target: w.Target(),
	}

	var e entry
	switch w.Opcode() {
	case opcodeSpecial:
		e = specialTable[w.Funct()]
	case opcodeRegImm:
		e = regImmTable[w.Rt()]
	case opcodeCop0:
		e = d.decodeCop0(w)
	case opcodeCop1:
		e = d.decodeCop1(w, inst)
	default:
		e = primaryTable[w.Opcode()]
	}

	inst.Op = e.op
	inst.Format = e.format
	if e.op == OpUnknown {
		inst.Format = FormatUnknown
	}
}

func (d *Decoder) decodeCop0(w Word) entry {
	if w.Rs() >= copRsCO {
		return cop0FunctTable[w.Funct()]
	}
	return cop0Table[w.Rs()]
}

func (d *Decoder) decodeCop1(w Word, inst *Instruction) entry {
	rs := w.Rs()
	switch {
	case rs == copRsBC:
		if w.Rt() >= uint8(len(cop1BranchTable)) {
			return entry{}
		}
		return cop1BranchTable[w.Rt()]
	case rs >= copRsCO:
		fmt := FloatFormat(rs)
		inst.Fmt = fmt

		if w.Funct() >= 0x30 {
			if fmt != FmtS && fmt != FmtD {
				return entry{}
			}
			inst.Cond = w.Funct() & 0x0F
			return entry{OpFCMP, FormatFPUCompare}
		}

		e := fpuTable[w.Funct()]
		if e.op == OpUnknown || !fpuFormatValid(e.op, fmt) {
			return entry{}
		}
		return e
	default:
		return cop1Table[rs]
	}
}
