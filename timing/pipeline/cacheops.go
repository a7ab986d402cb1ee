package pipeline

import (
	"fmt"

	"github.com/sarchlab/n64sim/cop0"
	"github.com/sarchlab/n64sim/emu"
)

// CACHE instruction op fields (operation<<2 | cache).
const (
	cacheIIndexInvalidate      = 0x00
	cacheDIndexWBInvalidate    = 0x01
	cacheIIndexLoadTag         = 0x04
	cacheDIndexLoadTag         = 0x05
	cacheIIndexStoreTag        = 0x08
	cacheDIndexStoreTag        = 0x09
	cacheDCreateDirtyExclusive = 0x0D
	cacheIHitInvalidate        = 0x10
	cacheDHitInvalidate        = 0x11
	cacheIFill                 = 0x14
	cacheDHitWBInvalidate      = 0x15
	cacheIHitWriteBack         = 0x18
	cacheDHitWriteBack         = 0x19
)

// cacheOp executes a CACHE instruction. Index operations select the line
// from the virtual address alone; hit operations translate it first.
func (p *Pipeline) cacheOp(code uint8, addr uint64) (*cop0.Exception, error) {
	vaddr := uint32(addr)

	switch code {
	case cacheIIndexInvalidate:
		p.icache.IndexInvalidate(vaddr)
		return nil, nil
	case cacheDIndexWBInvalidate:
		return nil, p.dcache.IndexWriteBackInvalidate(vaddr, p.writeBack)
	case cacheIIndexLoadTag:
		ptag, valid, _ := p.icache.IndexLoadTag(vaddr)
		p.cp0.SetTagLo(tagLo(ptag, valid, false))
		return nil, nil
	case cacheDIndexLoadTag:
		ptag, valid, dirty := p.dcache.IndexLoadTag(vaddr)
		p.cp0.SetTagLo(tagLo(ptag, valid, dirty))
		return nil, nil
	case cacheIIndexStoreTag:
		ptag, valid, _ := splitTagLo(p.cp0.TagLo())
		p.icache.IndexStoreTag(vaddr, ptag, valid)
		return nil, nil
	case cacheDIndexStoreTag:
		ptag, valid, dirty := splitTagLo(p.cp0.TagLo())
		p.dcache.IndexStoreTag(vaddr, ptag, valid, dirty)
		return nil, nil
	case cacheDCreateDirtyExclusive, cacheIHitInvalidate, cacheDHitInvalidate,
		cacheIFill, cacheDHitWBInvalidate, cacheIHitWriteBack, cacheDHitWriteBack:
	default:
		return nil, emu.NewFault(emu.ErrUnsupportedInstruction,
			"cache operation 0x%02X", code)
	}

	tr, res := p.cp0.Translate(addr, false)
	if res != cop0.TLBHit {
		exc := cop0.TLBException(res, addr, false)
		return &exc, nil
	}
	paddr := tr.PAddr

	switch code {
	case cacheDCreateDirtyExclusive:
		return nil, p.dcache.CreateDirtyExclusive(vaddr, paddr, p.writeBack)
	case cacheIHitInvalidate:
		p.icache.HitInvalidate(vaddr, paddr)
	case cacheDHitInvalidate:
		p.dcache.HitInvalidate(vaddr, paddr)
	case cacheIFill:
		line := p.lineBuf[:p.icache.LineWords()]
		if err := p.bus.ReadBlock(p.icache.LineAddr(paddr), line); err != nil {
			return nil, fmt.Errorf("instruction cache fill at 0x%08X: %w", paddr, err)
		}
		p.icache.InsertLine(vaddr, paddr, line)
	case cacheDHitWBInvalidate:
		return nil, p.dcache.HitWriteBack(vaddr, paddr, true, p.writeBack)
	case cacheDHitWriteBack:
		return nil, p.dcache.HitWriteBack(vaddr, paddr, false, p.writeBack)
	case cacheIHitWriteBack:
		// Instruction cache lines are never modified, so memory already
		// holds their contents.
	}
	return nil, nil
}

func tagLo(ptag uint32, valid, dirty bool) uint32 {
	v := ptag << cop0.TagLoPTagShft & cop0.TagLoPTag
	if valid {
		v |= cop0.TagLoValid
	}
	if dirty {
		v |= cop0.TagLoDirty
	}
	return v
}

func splitTagLo(v uint32) (ptag uint32, valid, dirty bool) {
	return (v & cop0.TagLoPTag) >> cop0.TagLoPTagShft,
		v&cop0.TagLoValid != 0, v&cop0.TagLoDirty != 0
}
