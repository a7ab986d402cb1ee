package pipeline

import (
	"math"
	"math/bits"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/n64sim/cop0"
	"github.com/sarchlab/n64sim/emu"
	"github.com/sarchlab/n64sim/insts"
)

// execute is the EX stage. It runs the instruction at window[0] with the
// result DC just produced forwarded into the register file, and leaves
// the resulting micro-operation in p.dc.
func (p *Pipeline) execute() error {
	word, fault := p.exWord, p.exFault
	pc, delay := p.window[0], p.delay[0]
	p.exWord, p.exFault = 0, fetchFault{}

	if fault.valid {
		p.raise(fault.exc, pc, delay)
		return nil
	}
	if word == 0 {
		return nil
	}

	if p.cp0.InterruptPending() {
		p.raise(cop0.Exception{Kind: cop0.ExcInterrupt}, pc, delay)
		return nil
	}

	inst := &p.inst
	p.decoder.DecodeInto(word, inst)
	if inst.Op == insts.OpUnknown {
		return emu.AttachLocation(emu.NewFault(emu.ErrUnsupportedInstruction,
			"no decode entry for 0x%08X", word), pc, word)
	}

	saved := p.forward()
	op, exc, err := p.dispatch(inst, pc)
	p.restore(saved)
	if err != nil {
		return emu.AttachLocation(err, pc, word)
	}

	p.regFile.PC = pc
	p.stats.Instructions++

	if exc != nil {
		p.raise(*exc, pc, delay)
		return nil
	}

	p.dc = EXDCRegister{Op: op, PC: pc, InstructionWord: word, InDelaySlot: delay}
	p.stall += p.latencyTable.StallCycles(inst)
	return nil
}

// dispatch executes inst and returns the micro-operation for DC, or the
// exception it raised.
func (p *Pipeline) dispatch(inst *insts.Instruction, pc uint64) (DcOperation, *cop0.Exception, error) {
	switch inst.Format {
	case insts.FormatBranch1, insts.FormatBranch2, insts.FormatJump, insts.FormatJumpReg:
		return p.executeBranch(inst, pc), nil, nil
	case insts.FormatCopBranch:
		if !p.cp0.CoprocessorUsable(1) {
			return DcOperation{}, copUnusable(1), nil
		}
		return p.executeBranch(inst, pc), nil, nil
	case insts.FormatLoadStore, insts.FormatFPULoadStore, insts.FormatCache:
		p.busyWait = false
		return p.executeMemory(inst)
	case insts.FormatCopMove, insts.FormatFPU3, insts.FormatFPU2, insts.FormatFPUCompare:
		p.busyWait = false
		return p.executeCop(inst)
	}

	p.busyWait = false
	if inst.Op >= insts.OpMFC0 && inst.Op <= insts.OpERET {
		return p.executeCop(inst)
	}
	return p.executeInteger(inst)
}

func copUnusable(unit uint8) *cop0.Exception {
	return &cop0.Exception{Kind: cop0.ExcCoprocessorUnusable, Coprocessor: unit}
}

func writeReg(reg uint8, v uint64) DcOperation {
	return DcOperation{Kind: DcWriteReg, Reg: reg, Value: v}
}

func writeReg32(reg uint8, v uint32) DcOperation {
	return writeReg(reg, signExtend32(v))
}

// executeInteger handles the ALU, shift, multiply/divide, HI/LO, trap and
// system-call families.
func (p *Pipeline) executeInteger(inst *insts.Instruction) (DcOperation, *cop0.Exception, error) {
	rf := p.regFile
	rs, rt := rf.ReadRegU(inst.Rs), rf.ReadRegU(inst.Rt)
	sa := uint(inst.Sa)
	imm := uint64(inst.Imm)

	switch inst.Op {
	case insts.OpSLL:
		return writeReg32(inst.Rd, uint32(rt)<<sa), nil, nil
	case insts.OpSRL:
		return writeReg32(inst.Rd, uint32(rt)>>sa), nil, nil
	case insts.OpSRA:
		return writeReg32(inst.Rd, uint32(int64(rt)>>sa)), nil, nil
	case insts.OpSLLV:
		return writeReg32(inst.Rd, uint32(rt)<<(rs&31)), nil, nil
	case insts.OpSRLV:
		return writeReg32(inst.Rd, uint32(rt)>>(rs&31)), nil, nil
	case insts.OpSRAV:
		return writeReg32(inst.Rd, uint32(int64(rt)>>(rs&31))), nil, nil
	case insts.OpDSLLV:
		return writeReg(inst.Rd, rt<<(rs&63)), nil, nil
	case insts.OpDSRLV:
		return writeReg(inst.Rd, rt>>(rs&63)), nil, nil
	case insts.OpDSRAV:
		return writeReg(inst.Rd, uint64(int64(rt)>>(rs&63))), nil, nil
	case insts.OpDSLL:
		return writeReg(inst.Rd, rt<<sa), nil, nil
	case insts.OpDSRL:
		return writeReg(inst.Rd, rt>>sa), nil, nil
	case insts.OpDSRA:
		return writeReg(inst.Rd, uint64(int64(rt)>>sa)), nil, nil
	case insts.OpDSLL32:
		return writeReg(inst.Rd, rt<<(sa+32)), nil, nil
	case insts.OpDSRL32:
		return writeReg(inst.Rd, rt>>(sa+32)), nil, nil
	case insts.OpDSRA32:
		return writeReg(inst.Rd, uint64(int64(rt)>>(sa+32))), nil, nil

	case insts.OpADD:
		return add32(inst.Rd, rs, rt)
	case insts.OpADDU:
		return writeReg32(inst.Rd, uint32(rs)+uint32(rt)), nil, nil
	case insts.OpSUB:
		return sub32(inst.Rd, rs, rt)
	case insts.OpSUBU:
		return writeReg32(inst.Rd, uint32(rs)-uint32(rt)), nil, nil
	case insts.OpDADD:
		return add64(inst.Rd, rs, rt)
	case insts.OpDADDU:
		return writeReg(inst.Rd, rs+rt), nil, nil
	case insts.OpDSUB:
		return sub64(inst.Rd, rs, rt)
	case insts.OpDSUBU:
		return writeReg(inst.Rd, rs-rt), nil, nil
	case insts.OpAND:
		return writeReg(inst.Rd, rs&rt), nil, nil
	case insts.OpOR:
		return writeReg(inst.Rd, rs|rt), nil, nil
	case insts.OpXOR:
		return writeReg(inst.Rd, rs^rt), nil, nil
	case insts.OpNOR:
		return writeReg(inst.Rd, ^(rs | rt)), nil, nil
	case insts.OpSLT:
		return writeReg(inst.Rd, boolBit(int64(rs) < int64(rt))), nil, nil
	case insts.OpSLTU:
		return writeReg(inst.Rd, boolBit(rs < rt)), nil, nil

	case insts.OpADDI:
		return add32(inst.Rt, rs, imm)
	case insts.OpADDIU:
		return writeReg32(inst.Rt, uint32(rs)+uint32(imm)), nil, nil
	case insts.OpDADDI:
		return add64(inst.Rt, rs, imm)
	case insts.OpDADDIU:
		return writeReg(inst.Rt, rs+imm), nil, nil
	case insts.OpSLTI:
		return writeReg(inst.Rt, boolBit(int64(rs) < inst.Imm)), nil, nil
	case insts.OpSLTIU:
		return writeReg(inst.Rt, boolBit(rs < imm)), nil, nil
	case insts.OpANDI:
		return writeReg(inst.Rt, rs&inst.UImm), nil, nil
	case insts.OpORI:
		return writeReg(inst.Rt, rs|inst.UImm), nil, nil
	case insts.OpXORI:
		return writeReg(inst.Rt, rs^inst.UImm), nil, nil
	case insts.OpLUI:
		return writeReg32(inst.Rt, uint32(inst.UImm)<<16), nil, nil

	case insts.OpMULT, insts.OpMULTU, insts.OpDMULT, insts.OpDMULTU,
		insts.OpDIV, insts.OpDIVU, insts.OpDDIV, insts.OpDDIVU:
		p.mulDiv(inst.Op, rs, rt)
		return DcOperation{}, nil, nil
	case insts.OpMFHI:
		return writeReg(inst.Rd, uint64(rf.Hi)), nil, nil
	case insts.OpMFLO:
		return writeReg(inst.Rd, uint64(rf.Lo)), nil, nil
	case insts.OpMTHI:
		return DcOperation{Kind: DcWriteHi, Value: rs}, nil, nil
	case insts.OpMTLO:
		return DcOperation{Kind: DcWriteLo, Value: rs}, nil, nil

	case insts.OpTGE, insts.OpTGEU, insts.OpTLT, insts.OpTLTU, insts.OpTEQ, insts.OpTNE:
		return DcOperation{}, trapIf(trapCondition(inst.Op, rs, rt)), nil
	case insts.OpTGEI, insts.OpTGEIU, insts.OpTLTI, insts.OpTLTIU, insts.OpTEQI, insts.OpTNEI:
		return DcOperation{}, trapIf(trapCondition(inst.Op, rs, imm)), nil

	case insts.OpSYSCALL:
		return DcOperation{}, &cop0.Exception{Kind: cop0.ExcSyscall}, nil
	case insts.OpBREAK:
		return DcOperation{}, &cop0.Exception{Kind: cop0.ExcBreakpoint}, nil
	case insts.OpSYNC:
		return DcOperation{}, nil, nil
	}

	return DcOperation{}, nil, emu.NewFault(emu.ErrUnsupportedInstruction,
		"%v has no integer execution", inst.Op)
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

var overflow = &cop0.Exception{Kind: cop0.ExcOverflow}

func add32(rd uint8, a, b uint64) (DcOperation, *cop0.Exception, error) {
	sum := int64(int32(a)) + int64(int32(b))
	if sum != int64(int32(sum)) {
		return DcOperation{}, overflow, nil
	}
	return writeReg(rd, uint64(sum)), nil, nil
}

func sub32(rd uint8, a, b uint64) (DcOperation, *cop0.Exception, error) {
	diff := int64(int32(a)) - int64(int32(b))
	if diff != int64(int32(diff)) {
		return DcOperation{}, overflow, nil
	}
	return writeReg(rd, uint64(diff)), nil, nil
}

func add64(rd uint8, a, b uint64) (DcOperation, *cop0.Exception, error) {
	sum := a + b
	if (a^sum)&(b^sum)&(1<<63) != 0 {
		return DcOperation{}, overflow, nil
	}
	return writeReg(rd, sum), nil, nil
}

func sub64(rd uint8, a, b uint64) (DcOperation, *cop0.Exception, error) {
	diff := a - b
	if (a^b)&(a^diff)&(1<<63) != 0 {
		return DcOperation{}, overflow, nil
	}
	return writeReg(rd, diff), nil, nil
}

func trapCondition(op insts.Op, a, b uint64) bool {
	switch op {
	case insts.OpTGE, insts.OpTGEI:
		return int64(a) >= int64(b)
	case insts.OpTGEU, insts.OpTGEIU:
		return a >= b
	case insts.OpTLT, insts.OpTLTI:
		return int64(a) < int64(b)
	case insts.OpTLTU, insts.OpTLTIU:
		return a < b
	case insts.OpTEQ, insts.OpTEQI:
		return a == b
	default:
		return a != b
	}
}

func trapIf(cond bool) *cop0.Exception {
	if cond {
		return &cop0.Exception{Kind: cop0.ExcTrap}
	}
	return nil
}

// branchTaken evaluates the condition of a branch.
func (p *Pipeline) branchTaken(inst *insts.Instruction) bool {
	rs := p.regFile.ReadReg(inst.Rs)
	rt := p.regFile.ReadReg(inst.Rt)

	switch inst.Op {
	case insts.OpBEQ, insts.OpBEQL:
		return rs == rt
	case insts.OpBNE, insts.OpBNEL:
		return rs != rt
	case insts.OpBLEZ, insts.OpBLEZL:
		return rs <= 0
	case insts.OpBGTZ, insts.OpBGTZL:
		return rs > 0
	case insts.OpBLTZ, insts.OpBLTZL, insts.OpBLTZAL, insts.OpBLTZALL:
		return rs < 0
	case insts.OpBGEZ, insts.OpBGEZL, insts.OpBGEZAL, insts.OpBGEZALL:
		return rs >= 0
	case insts.OpBC1T, insts.OpBC1TL:
		return p.cp1.Condition()
	case insts.OpBC1F, insts.OpBC1FL:
		return !p.cp1.Condition()
	}
	return true
}

// executeBranch resolves a branch or jump. Taken transfers happen after
// the delay slot; a likely branch that falls through nullifies it.
func (p *Pipeline) executeBranch(inst *insts.Instruction, pc uint64) DcOperation {
	var op DcOperation
	link := pc + 8

	var target uint64
	taken := true

	switch inst.Op {
	case insts.OpJ, insts.OpJAL:
		target = (pc+4)&^0x0FFF_FFFF | uint64(inst.Target)<<2
		if inst.Op == insts.OpJAL {
			op = writeReg(31, link)
		}
	case insts.OpJR:
		target = p.regFile.ReadRegU(inst.Rs)
	case insts.OpJALR:
		target = p.regFile.ReadRegU(inst.Rs)
		op = writeReg(inst.Rd, link)
	default:
		target = pc + 4 + uint64(inst.Imm<<2)
		taken = p.branchTaken(inst)
		switch inst.Op {
		case insts.OpBLTZAL, insts.OpBGEZAL, insts.OpBLTZALL, insts.OpBGEZALL:
			op = writeReg(31, link)
		}
	}

	if !taken {
		p.busyWait = false
		if inst.IsLikely() {
			p.quashDelaySlot()
		}
		return op
	}

	if target == pc && p.rfWord == 0 && !p.rfFault.valid {
		if !p.busyWait {
			p.logger.WithFields(logrus.Fields{"pc": uint32(pc)}).Debug("busy-wait loop detected")
		}
		p.busyWait = true
	} else {
		p.busyWait = false
	}

	p.branch(target)
	return op
}

// mulDiv writes HI/LO for the multiply and divide family. Division by
// zero yields the values the VR4300 divider produces rather than a fault.
func (p *Pipeline) mulDiv(op insts.Op, rs, rt uint64) {
	rf := p.regFile

	switch op {
	case insts.OpMULT:
		prod := int64(int32(rs)) * int64(int32(rt))
		rf.Lo = int64(int32(prod))
		rf.Hi = int64(int32(prod >> 32))
	case insts.OpMULTU:
		prod := uint64(uint32(rs)) * uint64(uint32(rt))
		rf.Lo = int64(int32(uint32(prod)))
		rf.Hi = int64(int32(uint32(prod >> 32)))
	case insts.OpDMULT:
		hi, lo := mulSigned64(int64(rs), int64(rt))
		rf.Hi, rf.Lo = int64(hi), int64(lo)
	case insts.OpDMULTU:
		hi, lo := mulUnsigned64(rs, rt)
		rf.Hi, rf.Lo = int64(hi), int64(lo)

	case insts.OpDIV:
		a, b := int32(rs), int32(rt)
		switch {
		case b == 0:
			rf.Hi = int64(a)
			if a >= 0 {
				rf.Lo = -1
			} else {
				rf.Lo = 1
			}
		case a == math.MinInt32 && b == -1:
			rf.Lo, rf.Hi = math.MinInt32, 0
		default:
			rf.Lo, rf.Hi = int64(a/b), int64(a%b)
		}
	case insts.OpDIVU:
		a, b := uint32(rs), uint32(rt)
		if b == 0 {
			rf.Lo, rf.Hi = -1, int64(int32(a))
			return
		}
		rf.Lo, rf.Hi = int64(int32(a/b)), int64(int32(a%b))
	case insts.OpDDIV:
		a, b := int64(rs), int64(rt)
		switch {
		case b == 0:
			rf.Hi = a
			if a >= 0 {
				rf.Lo = -1
			} else {
				rf.Lo = 1
			}
		case a == math.MinInt64 && b == -1:
			rf.Lo, rf.Hi = math.MinInt64, 0
		default:
			rf.Lo, rf.Hi = a/b, a%b
		}
	case insts.OpDDIVU:
		if rt == 0 {
			rf.Lo, rf.Hi = -1, int64(rs)
			return
		}
		rf.Lo, rf.Hi = int64(rs/rt), int64(rs%rt)
	}
}

func mulUnsigned64(a, b uint64) (hi, lo uint64) {
	return bits.Mul64(a, b)
}

// mulSigned64 forms the 128-bit signed product from the unsigned one by
// correcting the high half for negative operands.
func mulSigned64(a, b int64) (hi, lo uint64) {
	hi, lo = bits.Mul64(uint64(a), uint64(b))
	if a < 0 {
		hi -= uint64(b)
	}
	if b < 0 {
		hi -= uint64(a)
	}
	return hi, lo
}
