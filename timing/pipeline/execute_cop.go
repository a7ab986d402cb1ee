package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/n64sim/cop0"
	"github.com/sarchlab/n64sim/emu"
	"github.com/sarchlab/n64sim/insts"
)

var memoryKinds = map[insts.Op]DcKind{
	insts.OpLB: DcLoadB, insts.OpLBU: DcLoadBU,
	insts.OpLH: DcLoadH, insts.OpLHU: DcLoadHU,
	insts.OpLW: DcLoadW, insts.OpLWU: DcLoadWU, insts.OpLD: DcLoadD,
	insts.OpLWL: DcLoadWL, insts.OpLWR: DcLoadWR,
	insts.OpLDL: DcLoadDL, insts.OpLDR: DcLoadDR,
	insts.OpLL: DcLoadLinkedW, insts.OpLLD: DcLoadLinkedD,
	insts.OpLWC1: DcLoadCop1W, insts.OpLDC1: DcLoadCop1D,

	insts.OpSB: DcStoreB, insts.OpSH: DcStoreH,
	insts.OpSW: DcStoreW, insts.OpSD: DcStoreD,
	insts.OpSWL: DcStoreWL, insts.OpSWR: DcStoreWR,
	insts.OpSDL: DcStoreDL, insts.OpSDR: DcStoreDR,
	insts.OpSC: DcStoreConditionalW, insts.OpSCD: DcStoreConditionalD,
	insts.OpSWC1: DcStoreCop1W, insts.OpSDC1: DcStoreCop1D,

	insts.OpCACHE: DcCache,
}

// executeMemory computes the effective address of a load, store or CACHE
// instruction and captures the register operand DC needs.
func (p *Pipeline) executeMemory(inst *insts.Instruction) (DcOperation, *cop0.Exception, error) {
	kind, ok := memoryKinds[inst.Op]
	if !ok {
		return DcOperation{}, nil, emu.NewFault(emu.ErrUnsupportedInstruction,
			"%v has no memory execution", inst.Op)
	}

	op := DcOperation{
		Kind: kind,
		Reg:  inst.Rt,
		Addr: p.regFile.ReadRegU(inst.Rs) + uint64(inst.Imm),
	}

	switch kind {
	case DcLoadCop1W, DcLoadCop1D, DcStoreCop1W, DcStoreCop1D:
		if !p.cp0.CoprocessorUsable(1) {
			return DcOperation{}, copUnusable(1), nil
		}
	}

	switch kind {
	case DcStoreCop1W:
		op.Value = uint64(p.cp1.ReadWord(inst.Rt))
	case DcStoreCop1D:
		op.Value = p.cp1.ReadDword(inst.Rt)
	case DcCache:
		op.CacheOp = inst.Rt
	default:
		op.Value = p.regFile.ReadRegU(inst.Rt)
	}
	return op, nil, nil
}

// executeCop handles the COP0 and COP1 instruction families.
func (p *Pipeline) executeCop(inst *insts.Instruction) (DcOperation, *cop0.Exception, error) {
	switch inst.Op {
	case insts.OpMFC0:
		v, err := p.cp0.Read(inst.Rd)
		if err != nil {
			return DcOperation{}, nil, err
		}
		return writeReg32(inst.Rt, uint32(v)), nil, nil
	case insts.OpDMFC0:
		v, err := p.cp0.Read(inst.Rd)
		if err != nil {
			return DcOperation{}, nil, err
		}
		return writeReg(inst.Rt, v), nil, nil
	case insts.OpMTC0:
		v := signExtend32(p.regFile.ReadReg32(inst.Rt))
		return DcOperation{Kind: DcWriteCop0, Reg: inst.Rd, Value: v}, nil, nil
	case insts.OpDMTC0:
		return DcOperation{Kind: DcWriteCop0, Reg: inst.Rd, Value: p.regFile.ReadRegU(inst.Rt)}, nil, nil
	case insts.OpTLBR:
		p.cp0.TLBRead()
		return DcOperation{}, nil, nil
	case insts.OpTLBWI, insts.OpTLBWR:
		p.tlbWrite(inst.Op)
		return DcOperation{}, nil, nil
	case insts.OpTLBP:
		p.cp0.TLBProbe()
		return DcOperation{}, nil, nil
	case insts.OpERET:
		target := p.cp0.ReturnFromException()
		p.redirect(target)
		p.logger.WithFields(logrus.Fields{"target": uint32(target)}).Debug("eret")
		return DcOperation{}, nil, nil
	}

	if !p.cp0.CoprocessorUsable(1) {
		return DcOperation{}, copUnusable(1), nil
	}

	fs := inst.Rd
	switch inst.Op {
	case insts.OpMFC1:
		return writeReg32(inst.Rt, p.cp1.ReadWord(fs)), nil, nil
	case insts.OpDMFC1:
		return writeReg(inst.Rt, p.cp1.ReadDword(fs)), nil, nil
	case insts.OpCFC1:
		v, err := p.cp1.ReadControl(fs)
		if err != nil {
			return DcOperation{}, nil, err
		}
		return writeReg32(inst.Rt, v), nil, nil
	case insts.OpMTC1:
		return DcOperation{Kind: DcWriteCop1, Reg: fs, Value: uint64(p.regFile.ReadReg32(inst.Rt))}, nil, nil
	case insts.OpDMTC1:
		return DcOperation{Kind: DcWriteCop1, Reg: fs, Value: p.regFile.ReadRegU(inst.Rt), Dword: true}, nil, nil
	case insts.OpCTC1:
		return DcOperation{}, nil, p.cp1.WriteControl(fs, p.regFile.ReadReg32(inst.Rt))
	}

	res, err := p.cp1.Execute(inst)
	if err != nil || !res.Write {
		return DcOperation{}, nil, err
	}
	return DcOperation{Kind: DcWriteCop1, Reg: inst.Sa, Value: res.Value, Dword: res.Dword}, nil, nil
}

// tlbWrite performs TLBWI or TLBWR and logs the entry it replaced.
func (p *Pipeline) tlbWrite(op insts.Op) {
	reg := uint8(cop0.RegIndex)
	if op == insts.OpTLBWR {
		reg = cop0.RegRandom
		p.cp0.TLBWriteRandom()
	} else {
		p.cp0.TLBWriteIndexed()
	}

	i, _ := p.cp0.Read(reg)
	e := p.cp0.TLB().ReadEntry(int(i & 0x1F))
	p.logger.WithFields(logrus.Fields{
		"index":    i & 0x1F,
		"entryhi":  e.EntryHi,
		"entrylo0": e.EntryLo0,
		"entrylo1": e.EntryLo1,
		"pagemask": e.PageMask,
	}).Debug("tlb write")
}
