package emu

// Size is the width of a single bus transfer.
type Size uint8

// Supported transfer widths.
const (
	Size8  Size = 1
	Size16 Size = 2
	Size32 Size = 4
	Size64 Size = 8
)

// Bits returns the transfer width in bits.
func (s Size) Bits() int {
	return int(s) * 8
}

// Mask returns a mask covering the low Bits() bits.
func (s Size) Mask() uint64 {
	if s == Size64 {
		return ^uint64(0)
	}
	return (uint64(1) << s.Bits()) - 1
}

// Bus is the memory-mapped bus seen by the CPU core.
//
// Addresses are always physical: segment decoding and TLB translation
// happen before the bus is consulted. The bus owns address decoding;
// an address that nothing responds to is reported as an error and is
// propagated unchanged by the core.
type Bus interface {
	// ReadSingle reads one value of the given width.
	ReadSingle(addr uint32, size Size) (uint64, error)
	// WriteSingle writes one value of the given width.
	WriteSingle(addr uint32, size Size, value uint64) error
	// ReadBlock fills data with consecutive 32-bit words starting at addr.
	ReadBlock(addr uint32, data []uint32) error
}
