// Package pipeline provides the cycle-stepped VR4300 pipeline.
//
// Each Tick advances the five stages once, oldest first: WB commits the
// pending register write, DC performs the pending memory micro-operation,
// EX decodes and executes one instruction, RF latches the fetched word and
// IC fetches the next one. Running the stages in reverse order lets every
// stage consume what its predecessor produced on the previous cycle.
package pipeline

import "github.com/sarchlab/n64sim/cop0"

// DcKind selects the action performed by the DC stage.
type DcKind uint8

// DC stage micro-operations.
const (
	DcNop DcKind = iota
	DcWriteReg
	DcWriteCop0
	DcWriteCop1
	DcWriteHi
	DcWriteLo

	DcLoadB
	DcLoadBU
	DcLoadH
	DcLoadHU
	DcLoadW
	DcLoadWU
	DcLoadD
	DcLoadWL
	DcLoadWR
	DcLoadDL
	DcLoadDR
	DcLoadLinkedW
	DcLoadLinkedD
	DcLoadCop1W
	DcLoadCop1D

	DcStoreB
	DcStoreH
	DcStoreW
	DcStoreD
	DcStoreWL
	DcStoreWR
	DcStoreDL
	DcStoreDR
	DcStoreConditionalW
	DcStoreConditionalD
	DcStoreCop1W
	DcStoreCop1D

	DcCache
)

// IsLoad reports whether the operation reads memory.
func (k DcKind) IsLoad() bool {
	return k >= DcLoadB && k <= DcLoadCop1D
}

// IsStore reports whether the operation writes memory.
func (k DcKind) IsStore() bool {
	return k >= DcStoreB && k <= DcStoreCop1D
}

// DcOperation is the micro-operation handed from EX to DC.
type DcOperation struct {
	Kind DcKind
	// Reg is the destination GPR, CP0 register or FPU register index.
	Reg uint8
	// Value is the result to write, the data to store, or for the
	// partial loads the register contents being merged into.
	Value uint64
	// Addr is the virtual address of a memory or cache operation.
	Addr uint64
	// Dword selects a 64-bit FPU register write.
	Dword bool
	// CacheOp is the CACHE instruction's op field.
	CacheOp uint8
}

// WbKind selects the register written at commit.
type WbKind uint8

// Writeback actions.
const (
	WbNone WbKind = iota
	WbReg
	WbCop1Word
	WbCop1Dword
)

// WbOperation is the pending register write produced by DC.
type WbOperation struct {
	Kind  WbKind
	Reg   uint8
	Value uint64
}

// EXDCRegister holds state between the Execute and Data Cache stages.
type EXDCRegister struct {
	// Op is the micro-operation DC performs.
	Op DcOperation

	// PC is the address of the instruction that produced Op.
	PC uint64

	// InstructionWord is the raw 32-bit instruction word, kept for
	// fault reports.
	InstructionWord uint32

	// InDelaySlot reports whether the instruction sits in a branch
	// delay slot, which selects the EPC on an exception.
	InDelaySlot bool
}

// fetchFault is a failed instruction fetch carried down the pipeline so
// the exception is raised in program order.
type fetchFault struct {
	valid bool
	exc   cop0.Exception
}

// forwardSave records a register value displaced by forwarding.
type forwardSave struct {
	kind WbKind
	slot int
	old  uint64
}
