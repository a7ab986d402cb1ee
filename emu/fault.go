package emu

import (
	"errors"
	"fmt"
)

// Fault kinds. A fault means the core reached a state it does not model;
// the pipeline stops rather than guess.
var (
	// ErrUnsupportedInstruction is returned for an opcode/function
	// combination with no decode entry, or an unmodeled CP0/CP1 register.
	ErrUnsupportedInstruction = errors.New("unsupported instruction")

	// ErrUnsupportedConfig is returned when a privileged register write
	// requests an operating mode that is not modeled.
	ErrUnsupportedConfig = errors.New("unsupported configuration")

	// ErrAlignment is returned for a load/store whose address violates
	// the natural alignment of its width.
	ErrAlignment = errors.New("misaligned access")

	// ErrFloatOrder is returned when a signaling floating-point compare
	// sees an unordered operand pair.
	ErrFloatOrder = errors.New("floating-point order fault")

	// ErrUnmapped is returned by Memory for addresses outside the RAM.
	ErrUnmapped = errors.New("unmapped physical address")
)

// Fault describes a fatal condition raised while executing an instruction.
type Fault struct {
	// Kind is one of the Err* sentinels above.
	Kind error
	// PC is the address of the faulting instruction.
	PC uint64
	// Word is the raw instruction word.
	Word uint32
	// Detail describes what was rejected.
	Detail string
}

// NewFault creates a fault with a formatted detail message. The PC and
// instruction word are filled in by the pipeline.
func NewFault(kind error, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Error implements error.
func (f *Fault) Error() string {
	return fmt.Sprintf("%v at PC=0x%08X (word 0x%08X): %s",
		f.Kind, uint32(f.PC), f.Word, f.Detail)
}

// Unwrap returns the fault kind so errors.Is matches the sentinels.
func (f *Fault) Unwrap() error {
	return f.Kind
}

// AttachLocation fills in the instruction location if err is a Fault that
// does not carry one yet. Other errors are returned unchanged.
func AttachLocation(err error, pc uint64, word uint32) error {
	var f *Fault
	if errors.As(err, &f) && f.PC == 0 && f.Word == 0 {
		f.PC = pc
		f.Word = word
	}
	return err
}
