package pipeline

import (
	"fmt"

	"github.com/sarchlab/n64sim/cop0"
	"github.com/sarchlab/n64sim/emu"
)

// accessSize returns the bus width and alignment of a load/store.
func accessSize(k DcKind) emu.Size {
	switch k {
	case DcLoadB, DcLoadBU, DcStoreB:
		return emu.Size8
	case DcLoadH, DcLoadHU, DcStoreH:
		return emu.Size16
	case DcLoadD, DcLoadDL, DcLoadDR, DcLoadLinkedD, DcLoadCop1D,
		DcStoreD, DcStoreDL, DcStoreDR, DcStoreConditionalD, DcStoreCop1D:
		return emu.Size64
	default:
		return emu.Size32
	}
}

// unaligned reports whether the operation is one of the left/right
// partial accesses, which ignore the low address bits.
func unaligned(k DcKind) bool {
	switch k {
	case DcLoadWL, DcLoadWR, DcLoadDL, DcLoadDR,
		DcStoreWL, DcStoreWR, DcStoreDL, DcStoreDR:
		return true
	}
	return false
}

// loadStore performs a memory micro-operation. A non-nil exception means
// address translation failed.
func (p *Pipeline) loadStore(op *DcOperation) (*cop0.Exception, error) {
	size := accessSize(op.Kind)
	store := op.Kind.IsStore()

	if !unaligned(op.Kind) && op.Addr&uint64(size-1) != 0 {
		return nil, emu.NewFault(emu.ErrAlignment,
			"%d-byte access at 0x%08X", size, uint32(op.Addr))
	}

	if op.Kind == DcStoreConditionalW || op.Kind == DcStoreConditionalD {
		if !p.cp0.LLBit {
			p.wb = WbOperation{Kind: WbReg, Reg: op.Reg, Value: 0}
			return nil, nil
		}
	}

	tr, res := p.cp0.Translate(op.Addr, store)
	if res != cop0.TLBHit {
		exc := cop0.TLBException(res, op.Addr, store)
		return &exc, nil
	}

	vaddr := uint32(op.Addr)
	if store {
		return nil, p.store(op, vaddr, tr, size)
	}
	return nil, p.load(op, vaddr, tr, size)
}

func (p *Pipeline) load(op *DcOperation, vaddr uint32, tr cop0.Translation, size emu.Size) error {
	aligned := vaddr &^ uint32(size-1)
	raw, err := p.readData(aligned, tr.PAddr&^uint32(size-1), tr.Cached, size)
	if err != nil {
		return err
	}

	shift := uint(vaddr&uint32(size-1)) * 8
	var v uint64
	wb := WbReg

	switch op.Kind {
	case DcLoadB:
		v = uint64(int64(int8(raw)))
	case DcLoadBU:
		v = raw & 0xFF
	case DcLoadH:
		v = uint64(int64(int16(raw)))
	case DcLoadHU:
		v = raw & 0xFFFF
	case DcLoadW, DcLoadLinkedW:
		v = signExtend32(uint32(raw))
	case DcLoadWU:
		v = raw & 0xFFFFFFFF
	case DcLoadD, DcLoadLinkedD:
		v = raw
	case DcLoadWL:
		merged := uint32(raw)<<shift | uint32(op.Value)&(1<<shift-1)
		v = signExtend32(merged)
	case DcLoadWR:
		rshift := 24 - shift
		mask := uint32(0xFFFFFFFF) >> rshift
		merged := uint32(raw)>>rshift | uint32(op.Value)&^mask
		if shift == 24 {
			v = signExtend32(merged)
		} else {
			v = op.Value&^0xFFFFFFFF | uint64(merged)
		}
	case DcLoadDL:
		v = raw<<shift | op.Value&(1<<shift-1)
	case DcLoadDR:
		rshift := 56 - shift
		mask := ^uint64(0) >> rshift
		v = raw>>rshift | op.Value&^mask
	case DcLoadCop1W:
		v, wb = raw&0xFFFFFFFF, WbCop1Word
	case DcLoadCop1D:
		v, wb = raw, WbCop1Dword
	}

	if op.Kind == DcLoadLinkedW || op.Kind == DcLoadLinkedD {
		p.cp0.LLBit = true
		p.cp0.SetLLAddr(tr.PAddr)
	}

	p.wb = WbOperation{Kind: wb, Reg: op.Reg, Value: v}
	return nil
}

func (p *Pipeline) store(op *DcOperation, vaddr uint32, tr cop0.Translation, size emu.Size) error {
	aligned := vaddr &^ uint32(size-1)
	paddr := tr.PAddr &^ uint32(size-1)
	shift := uint(vaddr&uint32(size-1)) * 8
	v := op.Value

	switch op.Kind {
	case DcStoreWL, DcStoreWR, DcStoreDL, DcStoreDR:
		old, err := p.readData(aligned, paddr, tr.Cached, size)
		if err != nil {
			return err
		}
		v = mergeStore(op.Kind, old, op.Value, shift)
	}

	if err := p.writeData(aligned, paddr, tr.Cached, size, v&size.Mask()); err != nil {
		return err
	}

	if op.Kind == DcStoreConditionalW || op.Kind == DcStoreConditionalD {
		p.cp0.LLBit = false
		p.wb = WbOperation{Kind: WbReg, Reg: op.Reg, Value: 1}
	}
	return nil
}

// mergeStore combines the register bytes selected by a left/right store
// with the memory bytes it leaves alone. Byte order is big-endian.
func mergeStore(k DcKind, old, reg uint64, shift uint) uint64 {
	switch k {
	case DcStoreWL:
		mask := uint32(0xFFFFFFFF) >> shift
		return uint64(uint32(old)&^mask | uint32(reg)>>shift)
	case DcStoreWR:
		lshift := 24 - shift
		mask := uint32(0xFFFFFFFF) << lshift
		return uint64(uint32(old)&^mask | uint32(reg)<<lshift)
	case DcStoreDL:
		mask := ^uint64(0) >> shift
		return old&^mask | reg>>shift
	default:
		lshift := 56 - shift
		mask := ^uint64(0) << lshift
		return old&^mask | reg<<lshift
	}
}

// readData reads through the data cache when the page is cacheable,
// refilling on a miss.
func (p *Pipeline) readData(vaddr, paddr uint32, cached bool, size emu.Size) (uint64, error) {
	if !cached {
		v, err := p.bus.ReadSingle(paddr, size)
		if err != nil {
			return 0, fmt.Errorf("uncached read at 0x%08X: %w", paddr, err)
		}
		return v, nil
	}

	if v, hit := p.dcache.Read(vaddr, paddr, size); hit {
		return v, nil
	}
	if err := p.refillData(vaddr, paddr); err != nil {
		return 0, err
	}
	v, _ := p.dcache.Read(vaddr, paddr, size)
	return v, nil
}

// writeData writes through the data cache when the page is cacheable.
// Misses allocate the line first.
func (p *Pipeline) writeData(vaddr, paddr uint32, cached bool, size emu.Size, v uint64) error {
	if !cached {
		if err := p.bus.WriteSingle(paddr, size, v); err != nil {
			return fmt.Errorf("uncached write at 0x%08X: %w", paddr, err)
		}
		return nil
	}

	if p.dcache.Write(vaddr, paddr, size, v) {
		return nil
	}
	if err := p.refillData(vaddr, paddr); err != nil {
		return err
	}
	p.dcache.Write(vaddr, paddr, size, v)
	return nil
}

func (p *Pipeline) refillData(vaddr, paddr uint32) error {
	line := p.lineBuf[:p.dcache.LineWords()]
	if err := p.bus.ReadBlock(p.dcache.LineAddr(paddr), line); err != nil {
		return fmt.Errorf("data cache refill at 0x%08X: %w", paddr, err)
	}
	return p.dcache.InsertLine(vaddr, paddr, line, p.writeBack)
}

// writeBack flushes a dirty data cache line to the bus.
func (p *Pipeline) writeBack(paddr uint32, data []uint32) error {
	for i, w := range data {
		addr := paddr + uint32(i*4)
		if err := p.bus.WriteSingle(addr, emu.Size32, uint64(w)); err != nil {
			return fmt.Errorf("data cache write-back at 0x%08X: %w", addr, err)
		}
	}
	return nil
}

func signExtend32(v uint32) uint64 {
	return uint64(int64(int32(v)))
}
