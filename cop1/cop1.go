// Package cop1 models the VR4300 floating-point unit: its aliased register
// file, the FCR31 control/status register and the S/D/W/L arithmetic,
// conversion and compare operations.
package cop1

import (
	"github.com/sarchlab/n64sim/emu"
)

// FCR31 fields.
const (
	FCR31RM     uint32 = 0x3
	FCR31Flags  uint32 = 0x1F << 2
	FCR31Enable uint32 = 0x1F << 7
	FCR31Cause  uint32 = 0x3F << 12
	FCR31C      uint32 = 1 << 23
	FCR31FS     uint32 = 1 << 24
	fcr31Mask          = FCR31RM | FCR31Flags | FCR31Enable | FCR31Cause | FCR31C | FCR31FS
)

// Flag bit positions within the flag and cause groups.
const (
	flagInexact   uint32 = 1 << 0
	flagUnderflow uint32 = 1 << 1
	flagOverflow  uint32 = 1 << 2
	flagDivZero   uint32 = 1 << 3
	flagInvalid   uint32 = 1 << 4
)

// ImplementationRevision is the value of FCR0.
const ImplementationRevision uint32 = 0x0A00

// RoundingMode is the FCR31 RM field.
type RoundingMode uint8

// Rounding modes.
const (
	RoundNearest RoundingMode = iota
	RoundZero
	RoundPlusInf
	RoundMinusInf
)

// FPU is the floating-point coprocessor state.
//
// Storage is 32 64-bit slots. With FR set every register index names its
// own slot. With FR clear, 32-bit accesses to an odd index use the upper
// half of the slot below it and 64-bit accesses use the even slot.
type FPU struct {
	regs  [32]uint64
	fcr31 uint32
	fr    bool
}

// New returns a reset FPU.
func New() *FPU {
	return &FPU{fr: true}
}

// Reset clears the registers and FCR31.
func (f *FPU) Reset() {
	fr := f.fr
	*f = FPU{fr: fr}
}

// SetFR mirrors Status.FR into the FPU.
func (f *FPU) SetFR(fr bool) { f.fr = fr }

// FR reports the current register mode.
func (f *FPU) FR() bool { return f.fr }

// Slot returns the physical slot addressed by register index idx.
func (f *FPU) Slot(idx uint8) int {
	if f.fr {
		return int(idx & 31)
	}
	return int(idx & 30)
}

// Raw returns the contents of physical slot i.
func (f *FPU) Raw(i int) uint64 { return f.regs[i&31] }

// SetRaw overwrites physical slot i.
func (f *FPU) SetRaw(i int, v uint64) { f.regs[i&31] = v }

// ReadWord reads a 32-bit value (single or word format).
func (f *FPU) ReadWord(idx uint8) uint32 {
	v := f.regs[f.Slot(idx)]
	if !f.fr && idx&1 != 0 {
		return uint32(v >> 32)
	}
	return uint32(v)
}

// WriteWord writes a 32-bit value, leaving the other half of the slot
// untouched.
func (f *FPU) WriteWord(idx uint8, v uint32) {
	s := f.Slot(idx)
	if !f.fr && idx&1 != 0 {
		f.regs[s] = f.regs[s]&0xFFFFFFFF | uint64(v)<<32
		return
	}
	f.regs[s] = f.regs[s]&^0xFFFFFFFF | uint64(v)
}

// ReadDword reads a 64-bit value (double or long format).
func (f *FPU) ReadDword(idx uint8) uint64 {
	return f.regs[f.Slot(idx)]
}

// WriteDword writes a 64-bit value.
func (f *FPU) WriteDword(idx uint8, v uint64) {
	f.regs[f.Slot(idx)] = v
}

// FCR31 returns the control/status register.
func (f *FPU) FCR31() uint32 { return f.fcr31 }

// Condition returns the C bit tested by BC1F/BC1T.
func (f *FPU) Condition() bool { return f.fcr31&FCR31C != 0 }

// RoundingMode returns the active rounding mode.
func (f *FPU) RoundingMode() RoundingMode { return RoundingMode(f.fcr31 & FCR31RM) }

// ReadControl implements CFC1.
func (f *FPU) ReadControl(reg uint8) (uint32, error) {
	switch reg {
	case 0:
		return ImplementationRevision, nil
	case 31:
		return f.fcr31, nil
	}
	return 0, emu.NewFault(emu.ErrUnsupportedInstruction,
		"read of unmodeled FPU control register %d", reg)
}

// WriteControl implements CTC1. FCR0 is read-only.
func (f *FPU) WriteControl(reg uint8, v uint32) error {
	switch reg {
	case 0:
		return nil
	case 31:
		f.fcr31 = v & fcr31Mask
		return nil
	}
	return emu.NewFault(emu.ErrUnsupportedInstruction,
		"write of unmodeled FPU control register %d", reg)
}

func (f *FPU) setCondition(c bool) {
	if c {
		f.fcr31 |= FCR31C
	} else {
		f.fcr31 &^= FCR31C
	}
}

func (f *FPU) clearCause() {
	f.fcr31 &^= FCR31Cause
}

// raise sets both the cause and the sticky flag bits.
func (f *FPU) raise(flag uint32) {
	f.fcr31 |= flag<<12 | flag<<2
}
