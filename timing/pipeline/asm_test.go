package pipeline_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/n64sim/cop0"
	"github.com/sarchlab/n64sim/emu"
	"github.com/sarchlab/n64sim/timing/pipeline"
)

// Register numbers used by the test programs.
const (
	zero = 0
	a0   = 4
	a1   = 5
	a2   = 6
	t0   = 8
	t1   = 9
	t2   = 10
	t3   = 11
	s0   = 16
	s1   = 17
	s2   = 18
	s3   = 19
	s4   = 20
	s5   = 21
	s6   = 22
	s7   = 23
	k0   = 26
	ra   = 31
)

const (
	// codeBase is the KSEG0 address test programs start at. It maps to
	// physical codePhys.
	codeBase uint64 = 0xFFFF_FFFF_8000_1000
	codePhys uint32 = 0x1000

	// handlerPhys is the physical address of the general exception
	// vector once BEV is clear.
	handlerPhys uint32 = 0x180

	kernelStatus = uint64(cop0.StatusCU0 | cop0.StatusCU1 | cop0.StatusFR)
)

func special(rs, rt, rd, sa, funct uint8) uint32 {
	return uint32(rs)<<21 | uint32(rt)<<16 | uint32(rd)<<11 | uint32(sa)<<6 | uint32(funct)
}

func immediate(op, rs, rt uint8, v int16) uint32 {
	return uint32(op)<<26 | uint32(rs)<<21 | uint32(rt)<<16 | uint32(uint16(v))
}

func addiu(rt, rs uint8, v int16) uint32 { return immediate(0x09, rs, rt, v) }
func addi(rt, rs uint8, v int16) uint32  { return immediate(0x08, rs, rt, v) }
func addu(rd, rs, rt uint8) uint32       { return special(rs, rt, rd, 0, 0x21) }
func mfhi(rd uint8) uint32               { return special(0, 0, rd, 0, 0x10) }
func mflo(rd uint8) uint32               { return special(0, 0, rd, 0, 0x12) }

const (
	nop     uint32 = 0
	syscall uint32 = 0x0000000C
	tlbr    uint32 = 0x42000001
	tlbwi   uint32 = 0x42000002
	tlbp    uint32 = 0x42000008
	eret    uint32 = 0x42000018
	unknown uint32 = 0x4C000000
)

func beq(rs, rt uint8, off int16) uint32  { return immediate(0x04, rs, rt, off) }
func beql(rs, rt uint8, off int16) uint32 { return immediate(0x14, rs, rt, off) }
func bnel(rs, rt uint8, off int16) uint32 { return immediate(0x15, rs, rt, off) }

func jal(target uint64) uint32 {
	return 0x03<<26 | uint32(target>>2)&0x03FF_FFFF
}

// memOp encodes a load, store or CACHE instruction: op rt, off(base).
func memOp(op, rt, base uint8, off int16) uint32 {
	return immediate(op, base, rt, off)
}

const (
	opLWL   = 0x22
	opLW    = 0x23
	opLWR   = 0x26
	opSWL   = 0x2A
	opSW    = 0x2B
	opSWR   = 0x2E
	opCACHE = 0x2F
	opLL    = 0x30
	opLWC1  = 0x31
	opSC    = 0x38
	opSWC1  = 0x39
)

func mfc0(rt, rd uint8) uint32 { return 0x10<<26 | uint32(rt)<<16 | uint32(rd)<<11 }
func mtc0(rt, rd uint8) uint32 { return 0x10<<26 | 4<<21 | uint32(rt)<<16 | uint32(rd)<<11 }
func mfc1(rt, fs uint8) uint32 { return 0x11<<26 | uint32(rt)<<16 | uint32(fs)<<11 }
func mtc1(rt, fs uint8) uint32 { return 0x11<<26 | 4<<21 | uint32(rt)<<16 | uint32(fs)<<11 }

func dmfc1(rt, fs uint8) uint32 {
	return 0x11<<26 | 1<<21 | uint32(rt)<<16 | uint32(fs)<<11
}

// fpuS encodes a single-precision COP1 computational instruction.
func fpuS(funct, ft, fs, fd uint8) uint32 {
	return 0x11<<26 | 16<<21 | uint32(ft)<<16 | uint32(fs)<<11 | uint32(fd)<<6 | uint32(funct)
}

func bc1t(off int16) uint32 { return 0x11<<26 | 8<<21 | 1<<16 | uint32(uint16(off)) }

func f32(v float32) uint32 { return math.Float32bits(v) }

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(GinkgoWriter)
	logger.SetLevel(logrus.DebugLevel)
	return logger
}

// newPipeline builds a pipeline over memory that starts fetching at
// vector in kernel mode with BEV and ERL clear.
func newPipeline(memory *emu.Memory, vector uint64) *pipeline.Pipeline {
	pipe := pipeline.NewPipeline(memory,
		pipeline.WithResetVector(vector),
		pipeline.WithLogger(testLogger()),
	)
	Expect(pipe.WriteCP0(cop0.RegStatus, kernelStatus)).To(Succeed())
	return pipe
}

func run(pipe *pipeline.Pipeline, cycles int) {
	for i := 0; i < cycles; i++ {
		Expect(pipe.Tick()).To(Succeed())
	}
}

func setReg(pipe *pipeline.Pipeline, reg uint8, v uint64) {
	pipe.RegFile().WriteReg(reg, int64(v))
}

func reg(pipe *pipeline.Pipeline, r uint8) uint64 {
	return pipe.RegFile().ReadRegU(r)
}

func excCode(pipe *pipeline.Pipeline) uint32 {
	cause, err := pipe.ReadCP0(cop0.RegCause)
	Expect(err).NotTo(HaveOccurred())
	return uint32(cause) & cop0.CauseExcCode >> cop0.CauseExcCodeShift
}
