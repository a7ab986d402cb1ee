package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/n64sim/cop0"
	"github.com/sarchlab/n64sim/cop1"
	"github.com/sarchlab/n64sim/emu"
	"github.com/sarchlab/n64sim/insts"
	"github.com/sarchlab/n64sim/timing/cache"
	"github.com/sarchlab/n64sim/timing/latency"
)

// DefaultResetVector is where execution starts after a cold reset.
const DefaultResetVector uint64 = 0xFFFF_FFFF_BFC0_0000

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of non-bubble instructions executed.
	Instructions uint64
	// Stalls is the number of cycles spent waiting on multi-cycle
	// operations.
	Stalls uint64
	// Exceptions is the number of architectural exceptions taken.
	Exceptions uint64
	// Interrupts is the number of those exceptions that were interrupts.
	Interrupts uint64
	// Quashed is the number of delay slots nullified by branch-likely.
	Quashed uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithLatencyTable sets a custom latency table for instruction timing.
func WithLatencyTable(table *latency.Table) PipelineOption {
	return func(p *Pipeline) {
		p.latencyTable = table
	}
}

// WithLogger sets the logger used for exception and fault reporting.
func WithLogger(logger logrus.FieldLogger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithICacheConfig sets the instruction cache geometry.
func WithICacheConfig(config cache.Config) PipelineOption {
	return func(p *Pipeline) {
		p.icache = cache.NewICache(config)
	}
}

// WithDCacheConfig sets the data cache geometry.
func WithDCacheConfig(config cache.Config) PipelineOption {
	return func(p *Pipeline) {
		p.dcache = cache.NewDCache(config)
	}
}

// WithResetVector sets the first fetch address.
func WithResetVector(pc uint64) PipelineOption {
	return func(p *Pipeline) {
		p.resetVector = pc
	}
}

// Pipeline is the VR4300 five-stage pipeline together with the state it
// owns: the register file, both coprocessors and both caches.
//
// The PC window holds three addresses: window[0] is the instruction in
// EX, window[1] the instruction latched in RF, and window[2] the next
// fetch address. A taken branch in EX writes window[2], so the delay slot
// already in RF still executes. delay[i] marks window[i] as a delay slot.
type Pipeline struct {
	bus     emu.Bus
	regFile *emu.RegFile
	cp0     *cop0.CP0
	cp1     *cop1.FPU
	icache  *cache.ICache
	dcache  *cache.DCache
	decoder *insts.Decoder

	latencyTable *latency.Table
	logger       logrus.FieldLogger

	window [3]uint64
	delay  [3]bool

	exWord  uint32
	exFault fetchFault
	rfWord  uint32
	rfFault fetchFault

	dc EXDCRegister
	wb WbOperation

	inst    insts.Instruction
	lineBuf []uint32

	stall       uint64
	busyWait    bool
	resetVector uint64
	err         error

	stats Statistics
}

// NewPipeline creates a pipeline attached to bus.
func NewPipeline(bus emu.Bus, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		bus:          bus,
		regFile:      &emu.RegFile{},
		cp0:          cop0.New(),
		cp1:          cop1.New(),
		icache:       cache.NewICache(cache.DefaultICacheConfig()),
		dcache:       cache.NewDCache(cache.DefaultDCacheConfig()),
		decoder:      insts.NewDecoder(),
		latencyTable: latency.NewTable(),
		logger:       logrus.StandardLogger(),
		resetVector:  DefaultResetVector,
	}

	for _, opt := range opts {
		opt(p)
	}

	words := p.icache.LineWords()
	if w := p.dcache.LineWords(); w > words {
		words = w
	}
	p.lineBuf = make([]uint32, words)

	p.Reset()
	return p
}

// Reset performs a cold reset: registers, coprocessors, caches and the
// pipeline latches are cleared and fetch restarts at the reset vector.
func (p *Pipeline) Reset() {
	p.regFile.Reset()
	p.cp0.Reset()
	p.cp1.Reset()
	p.cp1.SetFR(p.cp0.FR())
	p.icache.Reset()
	p.dcache.Reset()

	p.flush()
	p.dc = EXDCRegister{}
	p.wb = WbOperation{}
	p.stall = 0
	p.busyWait = false
	p.err = nil
	p.stats = Statistics{}
	p.window[2] = p.resetVector
}

// flush drops every instruction younger than DC.
func (p *Pipeline) flush() {
	p.window = [3]uint64{}
	p.delay = [3]bool{}
	p.exWord, p.rfWord = 0, 0
	p.exFault, p.rfFault = fetchFault{}, fetchFault{}
}

// Tick advances the pipeline by one cycle. Once a fault is returned the
// pipeline is halted and every later call returns the same error.
func (p *Pipeline) Tick() error {
	if p.err != nil {
		return p.err
	}

	p.stats.Cycles++
	p.cp0.Tick()

	if p.stall > 0 {
		p.stall--
		p.stats.Stalls++
		return nil
	}

	p.commit()

	excepted, err := p.memoryAccess()
	if err != nil {
		return p.fail(err, p.dc.PC, p.dc.InstructionWord)
	}

	if !excepted {
		if err := p.execute(); err != nil {
			return p.fail(err, p.window[0], p.exWord)
		}
	}

	p.latch()

	if err := p.fetch(); err != nil {
		return p.fail(err, p.window[1], 0)
	}
	return nil
}

// fail records a fatal fault and halts the pipeline.
func (p *Pipeline) fail(err error, pc uint64, word uint32) error {
	p.err = emu.AttachLocation(err, pc, word)
	p.logger.WithFields(logrus.Fields{
		"pc":   uint32(pc),
		"word": insts.Disassemble(word, pc),
	}).Errorf("pipeline halted: %v", p.err)
	return p.err
}

// latch shifts the PC window by one instruction.
func (p *Pipeline) latch() {
	p.window[0], p.delay[0] = p.window[1], p.delay[1]
	p.exWord, p.exFault = p.rfWord, p.rfFault

	p.window[1], p.delay[1] = p.window[2], p.delay[2]
	p.window[2], p.delay[2] = p.window[2]+4, false
	p.rfWord, p.rfFault = 0, fetchFault{}
}

// redirect abandons the instruction in RF and fetches from pc next.
func (p *Pipeline) redirect(pc uint64) {
	p.rfWord, p.rfFault = 0, fetchFault{}
	p.delay[1] = false
	p.window[2], p.delay[2] = pc, false
}

// branch makes target the fetch address after the delay slot in RF.
func (p *Pipeline) branch(target uint64) {
	p.delay[1] = true
	p.window[2] = target
}

// quashDelaySlot nullifies the delay slot of a branch-likely not taken.
func (p *Pipeline) quashDelaySlot() {
	p.rfWord, p.rfFault = 0, fetchFault{}
	p.stats.Quashed++
}

// raise takes an architectural exception for the instruction at pc.
func (p *Pipeline) raise(exc cop0.Exception, pc uint64, delay bool) {
	vector := p.cp0.Raise(exc, pc, delay)
	p.redirect(vector)
	p.busyWait = false

	p.stats.Exceptions++
	if exc.Kind == cop0.ExcInterrupt {
		p.stats.Interrupts++
	}

	fields := logrus.Fields{
		"kind":   exc.Kind.String(),
		"pc":     uint32(pc),
		"epc":    uint32(p.cp0.EPC()),
		"vector": uint32(vector),
	}
	if exc.Kind.IsTLB() {
		fields["badvaddr"] = uint32(exc.BadVAddr)
	}
	p.logger.WithFields(fields).Debug("exception")
}

// RegFile returns the register file.
func (p *Pipeline) RegFile() *emu.RegFile {
	return p.regFile
}

// CP0 returns the system control coprocessor.
func (p *Pipeline) CP0() *cop0.CP0 {
	return p.cp0
}

// CP1 returns the floating-point unit.
func (p *Pipeline) CP1() *cop1.FPU {
	return p.cp1
}

// ICache returns the instruction cache.
func (p *Pipeline) ICache() *cache.ICache {
	return p.icache
}

// DCache returns the data cache.
func (p *Pipeline) DCache() *cache.DCache {
	return p.dcache
}

// PC returns the address of the last instruction executed.
func (p *Pipeline) PC() uint64 {
	return p.regFile.PC
}

// FetchPC returns the address the fetch stage will read next.
func (p *Pipeline) FetchPC() uint64 {
	return p.window[2]
}

// SetPC discards every instruction not yet executed and restarts fetch
// at pc. Operations already in DC and WB still complete.
func (p *Pipeline) SetPC(pc uint64) {
	p.flush()
	p.window[2] = pc
	p.busyWait = false
}

// ReadCP0 reads a CP0 register.
func (p *Pipeline) ReadCP0(reg uint8) (uint64, error) {
	return p.cp0.Read(reg)
}

// WriteCP0 writes a CP0 register as MTC0 would.
func (p *Pipeline) WriteCP0(reg uint8, value uint64) error {
	if err := p.cp0.Write(reg, value); err != nil {
		return err
	}
	p.cp1.SetFR(p.cp0.FR())
	return nil
}

// SetInterrupt drives external interrupt line 0-4.
func (p *Pipeline) SetInterrupt(line int, asserted bool) {
	p.cp0.SetInterrupt(line, asserted)
}

// BusyWait reports whether the core is spinning in a branch-to-self loop
// with an empty delay slot.
func (p *Pipeline) BusyWait() bool {
	return p.busyWait
}

// Err returns the fault that halted the pipeline, if any.
func (p *Pipeline) Err() error {
	return p.err
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}
