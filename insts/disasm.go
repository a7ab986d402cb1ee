package insts

import "fmt"

// Disassemble renders an instruction word in assembler syntax. It is used
// for fault messages and trace logging.
func Disassemble(raw uint32, pc uint64) string {
	if raw == 0 {
		return "nop"
	}
	return NewDecoder().Decode(raw).Disassemble(pc)
}

// Disassemble renders the instruction in assembler syntax. pc is the
// address of the instruction and is used to resolve branch targets.
func (i *Instruction) Disassemble(pc uint64) string {
	name := i.Op.String()
	rs, rt, rd := GPRName(i.Rs), GPRName(i.Rt), GPRName(i.Rd)
	branchTarget := uint32(pc + 4 + uint64(i.Imm<<2))

	switch i.Format {
	case FormatUnknown:
		return fmt.Sprintf(".word 0x%08X", uint32(i.Word))
	case FormatNone:
		return name
	case FormatR3:
		return fmt.Sprintf("%s %s, %s, %s", name, rd, rs, rt)
	case FormatShift:
		return fmt.Sprintf("%s %s, %s, %d", name, rd, rt, i.Sa)
	case FormatShiftV:
		return fmt.Sprintf("%s %s, %s, %s", name, rd, rt, rs)
	case FormatImm:
		return fmt.Sprintf("%s %s, %s, %d", name, rt, rs, i.Imm)
	case FormatLUI:
		return fmt.Sprintf("%s %s, 0x%04X", name, rt, i.UImm)
	case FormatLoadStore:
		return fmt.Sprintf("%s %s, %d(%s)", name, rt, i.Imm, rs)
	case FormatFPULoadStore:
		return fmt.Sprintf("%s f%d, %d(%s)", name, i.Rt, i.Imm, rs)
	case FormatCache:
		return fmt.Sprintf("%s 0x%02X, %d(%s)", name, i.Rt, i.Imm, rs)
	case FormatBranch2:
		return fmt.Sprintf("%s %s, %s, 0x%08X", name, rs, rt, branchTarget)
	case FormatBranch1:
		return fmt.Sprintf("%s %s, 0x%08X", name, rs, branchTarget)
	case FormatCopBranch:
		return fmt.Sprintf("%s 0x%08X", name, branchTarget)
	case FormatJump:
		target := uint32((pc+4)&0xF000_0000) | i.Target<<2
		return fmt.Sprintf("%s 0x%08X", name, target)
	case FormatJumpReg:
		if i.Op == OpJALR {
			return fmt.Sprintf("%s %s, %s", name, rd, rs)
		}
		return fmt.Sprintf("%s %s", name, rs)
	case FormatMulDiv, FormatTrap:
		return fmt.Sprintf("%s %s, %s", name, rs, rt)
	case FormatTrapImm:
		return fmt.Sprintf("%s %s, %d", name, rs, i.Imm)
	case FormatHiLoFrom:
		return fmt.Sprintf("%s %s", name, rd)
	case FormatHiLoTo:
		return fmt.Sprintf("%s %s", name, rs)
	case FormatCode:
		return fmt.Sprintf("%s 0x%X", name, (uint32(i.Word)>>6)&0xFFFFF)
	case FormatCopMove:
		if i.Op == OpMFC0 || i.Op == OpDMFC0 || i.Op == OpMTC0 || i.Op == OpDMTC0 {
			return fmt.Sprintf("%s %s, %s", name, rt, CP0Name(i.Rd))
		}
		return fmt.Sprintf("%s %s, f%d", name, rt, i.Rd)
	case FormatFPU3:
		return fmt.Sprintf("%s.%s f%d, f%d, f%d", name, i.Fmt, i.Word.Fd(), i.Word.Fs(), i.Word.Ft())
	case FormatFPU2:
		return fmt.Sprintf("%s.%s f%d, f%d", name, i.Fmt, i.Word.Fd(), i.Word.Fs())
	case FormatFPUCompare:
		return fmt.Sprintf("c.%s.%s f%d, f%d", CompareName(i.Cond), i.Fmt, i.Word.Fs(), i.Word.Ft())
	}
	return name
}

// CompareName returns the mnemonic of C.cond predicate cond.
func CompareName(cond uint8) string {
	return compareNames[cond&0xF]
}

var compareNames = [16]string{
	"f", "un", "eq", "ueq", "olt", "ult", "ole", "ule",
	"sf", "ngle", "seq", "ngl", "lt", "nge", "le", "ngt",
}
