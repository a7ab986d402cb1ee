// Package core provides the cycle-stepped VR4300 CPU core model.
// It wraps the pipeline implementation to provide the interface an
// embedding system (bus, RCP, debugger) drives the CPU through.
package core

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/n64sim/emu"
	"github.com/sarchlab/n64sim/timing/cache"
	"github.com/sarchlab/n64sim/timing/latency"
	"github.com/sarchlab/n64sim/timing/pipeline"
)

// DefaultFrequency is the VR4300 pipeline clock on the N64.
const DefaultFrequency = 93.75 * sim.MHz

// Config describes the core.
type Config struct {
	// Frequency is the pipeline clock, used to convert cycles to time.
	Frequency sim.Freq
	// ResetVector is the first fetch address after reset.
	ResetVector uint64
	// Timing holds the multi-cycle operation latencies.
	Timing *latency.TimingConfig
	ICache cache.Config
	DCache cache.Config
}

// DefaultConfig returns the configuration of an N64 CPU.
func DefaultConfig() Config {
	return Config{
		Frequency:   DefaultFrequency,
		ResetVector: pipeline.DefaultResetVector,
		Timing:      latency.DefaultTimingConfig(),
		ICache:      cache.DefaultICacheConfig(),
		DCache:      cache.DefaultDCacheConfig(),
	}
}

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions executed.
	Instructions uint64
	// Stalls is the number of stall cycles.
	Stalls uint64
	// Exceptions is the number of exceptions taken, interrupts included.
	Exceptions uint64
	// Interrupts is the number of interrupts taken.
	Interrupts uint64
}

// Core represents a cycle-stepped CPU core model.
// It wraps a 5-stage pipeline and provides a simple interface for simulation.
type Core struct {
	// Pipeline is the underlying 5-stage pipeline.
	Pipeline *pipeline.Pipeline

	config Config
}

// NewCore creates a core attached to bus. Extra pipeline options, such as
// a logger, are applied after the ones derived from config.
func NewCore(bus emu.Bus, config Config, opts ...pipeline.PipelineOption) *Core {
	base := []pipeline.PipelineOption{
		pipeline.WithResetVector(config.ResetVector),
		pipeline.WithICacheConfig(config.ICache),
		pipeline.WithDCacheConfig(config.DCache),
	}
	if config.Timing != nil {
		base = append(base, pipeline.WithLatencyTable(
			latency.NewTableWithConfig(config.Timing)))
	}

	return &Core{
		Pipeline: pipeline.NewPipeline(bus, append(base, opts...)...),
		config:   config,
	}
}

// Config returns the core configuration.
func (c *Core) Config() Config {
	return c.config
}

// Step advances the core by one pipeline cycle. A returned error is a
// fault; the core stays halted until Reset.
func (c *Core) Step() error {
	return c.Pipeline.Tick()
}

// RunCycles steps the core up to n cycles and returns how many cycles
// completed. It stops early on a fault.
func (c *Core) RunCycles(n uint64) (uint64, error) {
	for i := uint64(0); i < n; i++ {
		if err := c.Pipeline.Tick(); err != nil {
			return i, err
		}
	}
	return n, nil
}

// ReadCP0 reads a CP0 register.
func (c *Core) ReadCP0(reg uint8) (uint64, error) {
	return c.Pipeline.ReadCP0(reg)
}

// WriteCP0 writes a CP0 register with the same validation MTC0 applies.
func (c *Core) WriteCP0(reg uint8, value uint64) error {
	return c.Pipeline.WriteCP0(reg, value)
}

// RegFile returns the register file.
func (c *Core) RegFile() *emu.RegFile {
	return c.Pipeline.RegFile()
}

// PC returns the address of the last instruction executed.
func (c *Core) PC() uint64 {
	return c.Pipeline.PC()
}

// SetPC redirects fetch to pc.
func (c *Core) SetPC(pc uint64) {
	c.Pipeline.SetPC(pc)
}

// SetInterrupt drives one of the five external interrupt lines.
func (c *Core) SetInterrupt(line int, asserted bool) {
	c.Pipeline.SetInterrupt(line, asserted)
}

// BusyWait reports whether the core is idling in a branch-to-self loop.
// The embedder may skip ahead to its next event while this holds.
func (c *Core) BusyWait() bool {
	return c.Pipeline.BusyWait()
}

// Err returns the fault that halted the core, if any.
func (c *Core) Err() error {
	return c.Pipeline.Err()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	pipeStats := c.Pipeline.Stats()
	return Stats{
		Cycles:       pipeStats.Cycles,
		Instructions: pipeStats.Instructions,
		Stalls:       pipeStats.Stalls,
		Exceptions:   pipeStats.Exceptions,
		Interrupts:   pipeStats.Interrupts,
	}
}

// ElapsedSeconds returns the simulated time reached, assuming the core
// started at time zero.
func (c *Core) ElapsedSeconds() float64 {
	return float64(c.Pipeline.Stats().Cycles) / float64(c.config.Frequency)
}

// Now returns ElapsedSeconds as an Akita simulation time.
func (c *Core) Now() sim.VTimeInSec {
	return sim.VTimeInSec(c.ElapsedSeconds())
}

// Reset performs a cold reset.
func (c *Core) Reset() {
	c.Pipeline.Reset()
}
