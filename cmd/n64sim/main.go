// Package main provides the entry point for n64sim.
// n64sim runs a MIPS program on a cycle-stepped VR4300 core model.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/n64sim/emu"
	"github.com/sarchlab/n64sim/loader"
	"github.com/sarchlab/n64sim/timing/core"
	"github.com/sarchlab/n64sim/timing/latency"
	"github.com/sarchlab/n64sim/timing/pipeline"
)

var (
	configPath = flag.String("config", "", "Path to timing configuration JSON file")
	cycles     = flag.Uint64("cycles", 1_000_000, "Number of pipeline cycles to run")
	raw        = flag.Bool("raw", false, "Treat the program as a flat image instead of an ELF file")
	base       = flag.String("base", "0x1000", "Physical load address of a raw image")
	entry      = flag.String("entry", "", "Override the entry point (64-bit virtual address)")
	verbose    = flag.Bool("v", false, "Verbose output")
)

// options collects everything a run needs besides the logger.
type options struct {
	programPath string
	raw         bool
	base        uint32
	entry       *uint64
	cycles      uint64
	timing      *latency.TimingConfig
}

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: n64sim [options] <program>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	opts, err := parseOptions(flag.Arg(0))
	if err != nil {
		logger.WithError(err).Error("invalid options")
		os.Exit(1)
	}

	stats, err := run(opts, logger)
	fields := logrus.Fields{
		"program":      opts.programPath,
		"cycles":       stats.Cycles,
		"instructions": stats.Instructions,
		"stalls":       stats.Stalls,
		"exceptions":   stats.Exceptions,
		"interrupts":   stats.Interrupts,
	}
	if err != nil {
		logger.WithFields(fields).WithError(err).Error("core halted")
		os.Exit(1)
	}
	logger.WithFields(fields).Info("run complete")
}

func parseOptions(programPath string) (options, error) {
	opts := options{
		programPath: programPath,
		raw:         *raw,
		cycles:      *cycles,
		timing:      latency.DefaultTimingConfig(),
	}

	b, err := strconv.ParseUint(*base, 0, 32)
	if err != nil {
		return opts, fmt.Errorf("bad -base: %w", err)
	}
	opts.base = uint32(b)

	if *entry != "" {
		e, err := strconv.ParseUint(*entry, 0, 64)
		if err != nil {
			return opts, fmt.Errorf("bad -entry: %w", err)
		}
		opts.entry = &e
	}

	if *configPath != "" {
		opts.timing, err = latency.LoadConfig(*configPath)
		if err != nil {
			return opts, err
		}
	}

	return opts, opts.timing.Validate()
}

// run loads the program into a fresh memory and steps the core for the
// requested number of cycles.
func run(opts options, logger logrus.FieldLogger) (core.Stats, error) {
	prog, err := loadProgram(opts)
	if err != nil {
		return core.Stats{}, err
	}

	memory := emu.NewMemory()
	if err := prog.LoadInto(memory); err != nil {
		return core.Stats{}, err
	}

	logger.WithFields(logrus.Fields{
		"entry":    fmt.Sprintf("0x%016X", prog.EntryPoint),
		"segments": len(prog.Segments),
	}).Debug("program loaded")

	config := core.DefaultConfig()
	config.ResetVector = prog.EntryPoint
	config.Timing = opts.timing

	c := core.NewCore(memory, config, pipeline.WithLogger(logger))
	_, err = c.RunCycles(opts.cycles)

	logger.WithFields(logrus.Fields{
		"pc":      fmt.Sprintf("0x%016X", c.PC()),
		"elapsed": c.ElapsedSeconds(),
	}).Debug("core stopped")

	return c.Stats(), err
}

func loadProgram(opts options) (*loader.Program, error) {
	if opts.raw {
		vector := uint64(0xFFFF_FFFF_A000_0000) | uint64(opts.base)
		if opts.entry != nil {
			vector = *opts.entry
		}
		return loader.LoadRaw(opts.programPath, opts.base, vector)
	}

	prog, err := loader.Load(opts.programPath)
	if err != nil {
		return nil, err
	}
	if opts.entry != nil {
		prog.EntryPoint = *opts.entry
	}
	return prog, nil
}
