package pipeline

import (
	"fmt"

	"github.com/sarchlab/n64sim/cop0"
	"github.com/sarchlab/n64sim/emu"
)

// commit is the WB stage: it applies the pending register write.
func (p *Pipeline) commit() {
	wb := p.wb
	p.wb = WbOperation{}

	switch wb.Kind {
	case WbReg:
		p.regFile.WriteReg(wb.Reg, int64(wb.Value))
	case WbCop1Word:
		p.cp1.WriteWord(wb.Reg, uint32(wb.Value))
	case WbCop1Dword:
		p.cp1.WriteDword(wb.Reg, wb.Value)
	}
	p.regFile.GPR[0] = 0
}

// forward applies the writeback DC just produced so EX observes it. The
// returned record restores the displaced value.
func (p *Pipeline) forward() forwardSave {
	wb := p.wb
	switch wb.Kind {
	case WbReg:
		if wb.Reg == 0 {
			return forwardSave{}
		}
		s := forwardSave{kind: WbReg, slot: int(wb.Reg), old: uint64(p.regFile.GPR[wb.Reg])}
		p.regFile.GPR[wb.Reg] = int64(wb.Value)
		return s
	case WbCop1Word, WbCop1Dword:
		slot := p.cp1.Slot(wb.Reg)
		s := forwardSave{kind: wb.Kind, slot: slot, old: p.cp1.Raw(slot)}
		if wb.Kind == WbCop1Word {
			p.cp1.WriteWord(wb.Reg, uint32(wb.Value))
		} else {
			p.cp1.WriteDword(wb.Reg, wb.Value)
		}
		return s
	}
	return forwardSave{}
}

func (p *Pipeline) restore(s forwardSave) {
	switch s.kind {
	case WbReg:
		p.regFile.GPR[s.slot] = int64(s.old)
	case WbCop1Word, WbCop1Dword:
		p.cp1.SetRaw(s.slot, s.old)
	}
}

// memoryAccess is the DC stage. It reports whether the operation raised
// an architectural exception, in which case the younger instructions have
// already been discarded.
func (p *Pipeline) memoryAccess() (bool, error) {
	op := &p.dc.Op

	switch op.Kind {
	case DcNop:
	case DcWriteReg:
		p.wb = WbOperation{Kind: WbReg, Reg: op.Reg, Value: op.Value}
	case DcWriteCop1:
		kind := WbCop1Word
		if op.Dword {
			kind = WbCop1Dword
		}
		p.wb = WbOperation{Kind: kind, Reg: op.Reg, Value: op.Value}
	case DcWriteCop0:
		if err := p.WriteCP0(op.Reg, op.Value); err != nil {
			return false, err
		}
	case DcWriteHi:
		p.regFile.Hi = int64(op.Value)
	case DcWriteLo:
		p.regFile.Lo = int64(op.Value)
	case DcCache:
		exc, err := p.cacheOp(op.CacheOp, op.Addr)
		if err != nil {
			return false, err
		}
		if exc != nil {
			return p.memoryException(*exc), nil
		}
	default:
		if !op.Kind.IsLoad() && !op.Kind.IsStore() {
			return false, emu.NewFault(emu.ErrUnsupportedInstruction,
				"no DC action for micro-operation %d", op.Kind)
		}
		exc, err := p.loadStore(op)
		if err != nil {
			return false, err
		}
		if exc != nil {
			return p.memoryException(*exc), nil
		}
	}

	p.dc = EXDCRegister{}
	return false, nil
}

// memoryException raises exc for the instruction in DC and discards the
// instruction waiting in EX.
func (p *Pipeline) memoryException(exc cop0.Exception) bool {
	pc, delay := p.dc.PC, p.dc.InDelaySlot
	p.dc = EXDCRegister{}
	p.exWord, p.exFault = 0, fetchFault{}
	p.raise(exc, pc, delay)
	return true
}

// fetch is the IC stage: it reads the word at window[1] into RF.
func (p *Pipeline) fetch() error {
	pc := p.window[1]
	if pc&3 != 0 {
		return emu.NewFault(emu.ErrAlignment, "instruction fetch from 0x%08X", uint32(pc))
	}

	tr, res := p.cp0.Translate(pc, false)
	if res != cop0.TLBHit {
		p.rfFault = fetchFault{valid: true, exc: cop0.TLBException(res, pc, false)}
		return nil
	}

	vaddr := uint32(pc)
	if !tr.Cached {
		v, err := p.bus.ReadSingle(tr.PAddr, emu.Size32)
		if err != nil {
			return fmt.Errorf("fetch at 0x%08X: %w", vaddr, err)
		}
		p.rfWord = uint32(v)
		return nil
	}

	if word, hit := p.icache.Read(vaddr, tr.PAddr); hit {
		p.rfWord = word
		return nil
	}

	line := p.lineBuf[:p.icache.LineWords()]
	if err := p.bus.ReadBlock(p.icache.LineAddr(tr.PAddr), line); err != nil {
		return fmt.Errorf("instruction cache refill at 0x%08X: %w", tr.PAddr, err)
	}
	p.rfWord = p.icache.InsertLine(vaddr, tr.PAddr, line)
	return nil
}
