package cop1

import (
	"math"
	"math/big"

	"github.com/sarchlab/n64sim/emu"
	"github.com/sarchlab/n64sim/insts"
)

// Result is the outcome of an FPU instruction: the value destined for fd.
// Compares produce no register write.
type Result struct {
	Value uint64
	Dword bool
	Write bool
}

func word(v uint32) Result  { return Result{Value: uint64(v), Write: true} }
func dword(v uint64) Result { return Result{Value: v, Dword: true, Write: true} }

// Execute evaluates a COP1 computational instruction against the current
// register contents. The destination register is not written; the caller
// commits Result to inst's fd through the pipeline. Compares update the
// condition bit directly.
func (f *FPU) Execute(inst *insts.Instruction) (Result, error) {
	fs, ft := inst.Rd, inst.Rt
	f.clearCause()

	switch inst.Op {
	case insts.OpFADD, insts.OpFSUB, insts.OpFMUL, insts.OpFDIV:
		return f.binary(inst.Op, inst.Fmt, fs, ft), nil
	case insts.OpFSQRT, insts.OpFABS, insts.OpFNEG:
		return f.unary(inst.Op, inst.Fmt, fs), nil
	case insts.OpFMOV:
		if inst.Fmt.Is64() {
			return dword(f.ReadDword(fs)), nil
		}
		return word(f.ReadWord(fs)), nil
	case insts.OpFROUNDL, insts.OpFROUNDW:
		return f.toFixed(inst, RoundNearest), nil
	case insts.OpFTRUNCL, insts.OpFTRUNCW:
		return f.toFixed(inst, RoundZero), nil
	case insts.OpFCEILL, insts.OpFCEILW:
		return f.toFixed(inst, RoundPlusInf), nil
	case insts.OpFFLOORL, insts.OpFFLOORW:
		return f.toFixed(inst, RoundMinusInf), nil
	case insts.OpFCVTW, insts.OpFCVTL:
		return f.toFixed(inst, f.RoundingMode()), nil
	case insts.OpFCVTS:
		return word(math.Float32bits(f.toSingle(inst.Fmt, fs))), nil
	case insts.OpFCVTD:
		return dword(math.Float64bits(f.toDouble(inst.Fmt, fs))), nil
	case insts.OpFCMP:
		return Result{}, f.compare(inst.Fmt, inst.Cond, fs, ft)
	}

	return Result{}, emu.NewFault(emu.ErrUnsupportedInstruction,
		"FPU operation %v.%v", inst.Op, inst.Fmt)
}

func (f *FPU) single(idx uint8) float32 {
	return math.Float32frombits(f.ReadWord(idx))
}

func (f *FPU) double(idx uint8) float64 {
	return math.Float64frombits(f.ReadDword(idx))
}

// source reads fs in format fmt and widens it to float64 for conversion.
func (f *FPU) source(fmt insts.FloatFormat, idx uint8) float64 {
	switch fmt {
	case insts.FmtS:
		return float64(f.single(idx))
	case insts.FmtD:
		return f.double(idx)
	case insts.FmtW:
		return float64(int32(f.ReadWord(idx)))
	default:
		return float64(int64(f.ReadDword(idx)))
	}
}

func (f *FPU) binary(op insts.Op, fmt insts.FloatFormat, fs, ft uint8) Result {
	mode := f.RoundingMode()

	if fmt == insts.FmtS {
		a, b := f.single(fs), f.single(ft)
		var r float32
		switch op {
		case insts.OpFADD:
			r = a + b
		case insts.OpFSUB:
			r = a - b
		case insts.OpFMUL:
			r = a * b
		default:
			f.checkDivide(float64(a), float64(b))
			r = a / b
		}
		f.checkOverflow(float64(a), float64(b), float64(r))
		if mode != RoundNearest {
			r = directed32(r, errorSign(op, float64(a), float64(b), float64(r)), mode)
		}
		return word(math.Float32bits(r))
	}

	a, b := f.double(fs), f.double(ft)
	var r float64
	switch op {
	case insts.OpFADD:
		r = a + b
	case insts.OpFSUB:
		r = a - b
	case insts.OpFMUL:
		r = a * b
	default:
		f.checkDivide(a, b)
		r = a / b
	}
	f.checkOverflow(a, b, r)
	if mode != RoundNearest {
		r = directed64(r, errorSign(op, a, b, r), mode)
	}
	return dword(math.Float64bits(r))
}

func (f *FPU) checkDivide(a, b float64) {
	switch {
	case b != 0:
	case a == 0 || math.IsNaN(a):
		f.raise(flagInvalid)
	default:
		f.raise(flagDivZero)
	}
}

func (f *FPU) checkOverflow(a, b, r float64) {
	if math.IsInf(r, 0) && !math.IsInf(a, 0) && !math.IsInf(b, 0) && b != 0 {
		f.raise(flagOverflow | flagInexact)
	}
}

func (f *FPU) unary(op insts.Op, fmt insts.FloatFormat, fs uint8) Result {
	mode := f.RoundingMode()

	if fmt == insts.FmtS {
		bits := f.ReadWord(fs)
		switch op {
		case insts.OpFABS:
			return word(bits &^ (1 << 31))
		case insts.OpFNEG:
			return word(bits ^ (1 << 31))
		}
		a := f.single(fs)
		if a < 0 {
			f.raise(flagInvalid)
		}
		r := float32(math.Sqrt(float64(a)))
		if mode != RoundNearest {
			r = directed32(r, errorSign(op, float64(a), 0, float64(r)), mode)
		}
		return word(math.Float32bits(r))
	}

	bits := f.ReadDword(fs)
	switch op {
	case insts.OpFABS:
		return dword(bits &^ (1 << 63))
	case insts.OpFNEG:
		return dword(bits ^ (1 << 63))
	}
	a := f.double(fs)
	if a < 0 {
		f.raise(flagInvalid)
	}
	r := math.Sqrt(a)
	if mode != RoundNearest {
		r = directed64(r, errorSign(op, a, 0, r), mode)
	}
	return dword(math.Float64bits(r))
}

// toSingle implements CVT.S. Integer sources convert in a single rounding
// step; going through float64 first would round wide longs twice.
func (f *FPU) toSingle(fmt insts.FloatFormat, idx uint8) float32 {
	var r float32
	dir := 0

	switch fmt {
	case insts.FmtW:
		v := int32(f.ReadWord(idx))
		r = float32(v)
		dir = diffSign(float64(v), float64(r))
	case insts.FmtL:
		v := int64(f.ReadDword(idx))
		r = float32(v)
		dir = compareInt(v, float64(r))
	case insts.FmtD:
		v := f.double(idx)
		r = float32(v)
		dir = diffSign(v, float64(r))
	default:
		return f.single(idx)
	}

	return directed32(r, dir, f.RoundingMode())
}

// toDouble implements CVT.D. Only longs can be inexact.
func (f *FPU) toDouble(fmt insts.FloatFormat, idx uint8) float64 {
	if fmt != insts.FmtL {
		return f.source(fmt, idx)
	}

	v := int64(f.ReadDword(idx))
	r := float64(v)
	return directed64(r, compareInt(v, r), f.RoundingMode())
}

// errorSign returns the sign of exact-r, where r is the round-to-nearest
// result of op on a and b (b is ignored for SQRT). Zero means r is exact
// or no directed adjustment applies (NaN, infinite operands, x/0).
func errorSign(op insts.Op, a, b, r float64) int {
	switch {
	case math.IsNaN(a) || math.IsNaN(b) || math.IsNaN(r):
		return 0
	case math.IsInf(a, 0) || math.IsInf(b, 0):
		return 0
	case op == insts.OpFDIV && b == 0:
		return 0
	case math.IsInf(r, 0):
		// Overflow: the exact result is finite.
		return -sign(r)
	}

	x, y, z := exactFloat(a), exactFloat(b), exactFloat(r)
	exact := new(big.Float).SetPrec(exactPrec)

	switch op {
	case insts.OpFADD:
		return exact.Add(x, y).Cmp(z)
	case insts.OpFSUB:
		return exact.Sub(x, y).Cmp(z)
	case insts.OpFMUL:
		return exact.Mul(x, y).Cmp(z)
	case insts.OpFDIV:
		// a/b - r has the sign of (a - r*b) * b.
		rb := new(big.Float).SetPrec(exactPrec).Mul(z, y)
		return exact.Sub(x, rb).Sign() * sign(b)
	case insts.OpFSQRT:
		rr := new(big.Float).SetPrec(exactPrec).Mul(z, z)
		return exact.Sub(x, rr).Sign()
	}
	return 0
}

// exactPrec covers the full float64 exponent span plus a double-width
// product, so sums and products of float64 values are exact.
const exactPrec = 4096

func exactFloat(v float64) *big.Float {
	return new(big.Float).SetFloat64(v)
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// diffSign returns the sign of exact-r for two float64 values.
func diffSign(exact, r float64) int {
	return sign(exact - r)
}

// compareInt returns the sign of v-r where r is an integral float.
func compareInt(v int64, r float64) int {
	if r >= 1<<63 {
		return -1
	}
	switch w := int64(r); {
	case v > w:
		return 1
	case v < w:
		return -1
	}
	return 0
}

// directed32 moves a round-to-nearest result r one ulp when mode and the
// sign of the rounding error call for it.
func directed32(r float32, dir int, mode RoundingMode) float32 {
	switch {
	case dir == 0:
	case mode == RoundZero && r != 0 && (r > 0) != (dir > 0):
		return math.Nextafter32(r, 0)
	case mode == RoundPlusInf && dir > 0:
		return math.Nextafter32(r, float32(math.Inf(1)))
	case mode == RoundMinusInf && dir < 0:
		return math.Nextafter32(r, float32(math.Inf(-1)))
	}
	return r
}

func directed64(r float64, dir int, mode RoundingMode) float64 {
	switch {
	case dir == 0:
	case mode == RoundZero && r != 0 && (r > 0) != (dir > 0):
		return math.Nextafter(r, 0)
	case mode == RoundPlusInf && dir > 0:
		return math.Nextafter(r, math.Inf(1))
	case mode == RoundMinusInf && dir < 0:
		return math.Nextafter(r, math.Inf(-1))
	}
	return r
}

func round(v float64, mode RoundingMode) float64 {
	switch mode {
	case RoundZero:
		return math.Trunc(v)
	case RoundPlusInf:
		return math.Ceil(v)
	case RoundMinusInf:
		return math.Floor(v)
	default:
		return math.RoundToEven(v)
	}
}

// toFixed converts fs to a word or long. Out-of-range and NaN inputs raise
// the invalid flag and produce the maximum positive integer.
func (f *FPU) toFixed(inst *insts.Instruction, mode RoundingMode) Result {
	v := f.source(inst.Fmt, inst.Rd)
	r := round(v, mode)
	if r != v {
		f.raise(flagInexact)
	}

	long := false
	switch inst.Op {
	case insts.OpFROUNDL, insts.OpFTRUNCL, insts.OpFCEILL, insts.OpFFLOORL, insts.OpFCVTL:
		long = true
	}

	if long {
		if math.IsNaN(r) || r >= 1<<63 || r < -(1<<63) {
			f.raise(flagInvalid)
			return dword(math.MaxInt64)
		}
		return dword(uint64(int64(r)))
	}

	if math.IsNaN(r) || r >= 1<<31 || r < -(1<<31) {
		f.raise(flagInvalid)
		return word(math.MaxInt32)
	}
	return word(uint32(int32(r)))
}

// compare evaluates C.cond.fmt. The low three bits of cond select the
// unordered, equal and less-than outcomes that make the predicate true;
// bit 3 makes the predicate signaling.
func (f *FPU) compare(fmt insts.FloatFormat, cond uint8, fs, ft uint8) error {
	var a, b float64
	if fmt == insts.FmtS {
		a, b = float64(f.single(fs)), float64(f.single(ft))
	} else {
		a, b = f.double(fs), f.double(ft)
	}

	unordered := math.IsNaN(a) || math.IsNaN(b)
	if unordered && cond&8 != 0 {
		f.raise(flagInvalid)
		return emu.NewFault(emu.ErrFloatOrder,
			"signaling compare c.%s.%v on unordered operands", insts.CompareName(cond), fmt)
	}

	c := (unordered && cond&1 != 0) ||
		(!unordered && a == b && cond&2 != 0) ||
		(!unordered && a < b && cond&4 != 0)
	f.setCondition(c)
	return nil
}
