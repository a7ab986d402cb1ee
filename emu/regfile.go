// Package emu provides the architectural state shared by the CPU pipeline:
// the general-purpose register file, the bus contract and the fault taxonomy.
package emu

// RegFile represents the VR4300 integer register file.
// It contains 32 general-purpose registers, the HI/LO multiply-divide
// accumulators and the program counter of the most recently retired
// instruction.
type RegFile struct {
	// GPR holds general-purpose registers r0-r31.
	// GPR[0] is hard-wired to zero; the pipeline re-zeroes it after every
	// commit.
	GPR [32]int64

	// Hi holds the high half of a multiply result or a divide remainder.
	Hi int64

	// Lo holds the low half of a multiply result or a divide quotient.
	Lo int64

	// PC is the program counter of the last instruction that passed
	// decode/execute.
	PC uint64
}

// ReadReg reads a register value. Register 0 returns 0.
func (r *RegFile) ReadReg(reg uint8) int64 {
	if reg == 0 || reg >= 32 {
		return 0
	}
	return r.GPR[reg]
}

// ReadRegU reads a register value as an unsigned 64-bit integer.
func (r *RegFile) ReadRegU(reg uint8) uint64 {
	return uint64(r.ReadReg(reg))
}

// WriteReg writes a value to a register. Writes to register 0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value int64) {
	if reg == 0 || reg >= 32 {
		return
	}
	r.GPR[reg] = value
}

// ReadReg32 reads the lower 32 bits of a register.
func (r *RegFile) ReadReg32(reg uint8) uint32 {
	return uint32(r.ReadReg(reg))
}

// WriteReg32 writes a 32-bit value and sign-extends it to 64 bits, which is
// how every 32-bit operation on the VR4300 deposits its result.
func (r *RegFile) WriteReg32(reg uint8, value uint32) {
	r.WriteReg(reg, int64(int32(value)))
}

// Reset clears all registers.
func (r *RegFile) Reset() {
	*r = RegFile{}
}
