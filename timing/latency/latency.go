// Package latency provides instruction timing for the cycle-stepped core.
//
// The pipeline issues one instruction per cycle; the operations listed in
// TimingConfig hold the pipeline for additional cycles. The values can be
// configured via TimingConfig.
package latency

import (
	"github.com/sarchlab/n64sim/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default VR4300 timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execution latency in cycles for the given instruction.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}

	switch inst.Op {
	case insts.OpMULT, insts.OpMULTU:
		return t.config.MultLatency
	case insts.OpDMULT, insts.OpDMULTU:
		return t.config.DMultLatency
	case insts.OpDIV, insts.OpDIVU:
		return t.config.DivLatency
	case insts.OpDDIV, insts.OpDDIVU:
		return t.config.DDivLatency

	case insts.OpMFC0, insts.OpDMFC0, insts.OpMTC0, insts.OpDMTC0,
		insts.OpMFC1, insts.OpDMFC1, insts.OpMTC1, insts.OpDMTC1,
		insts.OpCFC1, insts.OpCTC1:
		return t.config.CopTransferLatency

	case insts.OpFADD, insts.OpFSUB:
		return t.config.FloatAddLatency
	case insts.OpFMUL:
		if inst.Fmt == insts.FmtD {
			return t.config.FloatMulDoubleLatency
		}
		return t.config.FloatMulSingleLatency
	case insts.OpFDIV, insts.OpFSQRT:
		if inst.Fmt == insts.FmtD {
			return t.config.FloatDivDoubleLatency
		}
		return t.config.FloatDivSingleLatency
	case insts.OpFCVTS:
		if inst.Fmt == insts.FmtD {
			return t.config.FloatConvertFloatLatency
		}
		return t.config.FloatConvertLatency
	case insts.OpFCVTD:
		if inst.Fmt == insts.FmtS {
			return 1
		}
		return t.config.FloatConvertLatency
	case insts.OpFCVTW, insts.OpFCVTL,
		insts.OpFROUNDL, insts.OpFTRUNCL, insts.OpFCEILL, insts.OpFFLOORL,
		insts.OpFROUNDW, insts.OpFTRUNCW, insts.OpFCEILW, insts.OpFFLOORW:
		return t.config.FloatConvertLatency

	default:
		return 1
	}
}

// StallCycles returns how many cycles the pipeline must hold after the
// instruction issues.
func (t *Table) StallCycles(inst *insts.Instruction) uint64 {
	l := t.GetLatency(inst)
	if l == 0 {
		return 0
	}
	return l - 1
}

// IsMultiCycle returns true if the instruction holds the pipeline.
func (t *Table) IsMultiCycle(inst *insts.Instruction) bool {
	return t.GetLatency(inst) > 1
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
