// Package loader provides loading of big-endian MIPS ELF executables and
// raw memory images.
package loader

import (
	"debug/elf"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/n64sim/emu"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment represents a loadable segment.
type Segment struct {
	// VirtAddr is the 64-bit virtual address the segment is linked at.
	VirtAddr uint64
	// PhysAddr is where the segment is placed on the bus.
	PhysAddr uint32
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint64
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded image ready for execution.
type Program struct {
	// EntryPoint is the 64-bit virtual address execution starts at.
	EntryPoint uint64
	// Segments contains all loadable segments.
	Segments []Segment
}

// Load parses a big-endian MIPS ELF executable. Both ELF32 and ELF64 are
// accepted; 32-bit addresses are sign-extended.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Data != elf.ELFDATA2MSB {
		return nil, fmt.Errorf("not a big-endian ELF file")
	}
	if f.Machine != elf.EM_MIPS {
		return nil, fmt.Errorf("not a MIPS ELF file (machine type: %v)", f.Machine)
	}

	addr := func(v uint64) uint64 { return v }
	if f.Class == elf.ELFCLASS32 {
		addr = func(v uint64) uint64 { return uint64(int64(int32(v))) }
	}

	prog := &Program{
		EntryPoint: addr(f.Entry),
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		vaddr := addr(phdr.Vaddr)
		prog.Segments = append(prog.Segments, Segment{
			VirtAddr: vaddr,
			PhysAddr: physical(vaddr, phdr.Paddr),
			Data:     data,
			MemSize:  phdr.Memsz,
			Flags:    flags,
		})
	}

	return prog, nil
}

// LoadRaw reads a flat image to be placed at physical address base and
// entered at entry.
func LoadRaw(path string, base uint32, entry uint64) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	return &Program{
		EntryPoint: entry,
		Segments: []Segment{{
			VirtAddr: entry,
			PhysAddr: base,
			Data:     data,
			MemSize:  uint64(len(data)),
			Flags:    SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
		}},
	}, nil
}

// LoadInto copies every segment into memory and zero-fills the rest of
// each segment's memory size.
func (p *Program) LoadInto(memory *emu.Memory) error {
	for _, seg := range p.Segments {
		if err := memory.LoadProgram(seg.PhysAddr, seg.Data); err != nil {
			return fmt.Errorf("segment at 0x%x: %w", seg.VirtAddr, err)
		}

		if seg.MemSize > uint64(len(seg.Data)) {
			zeros := make([]byte, seg.MemSize-uint64(len(seg.Data)))
			addr := seg.PhysAddr + uint32(len(seg.Data))
			if err := memory.LoadProgram(addr, zeros); err != nil {
				return fmt.Errorf("bss of segment at 0x%x: %w", seg.VirtAddr, err)
			}
		}
	}
	return nil
}

// physical returns the bus address of a segment. KSEG0 and KSEG1
// addresses map directly; anything else uses the ELF physical address.
func physical(vaddr, paddr uint64) uint32 {
	switch v := uint32(vaddr); {
	case vaddr>>32 == 0xFFFF_FFFF && v >= 0x8000_0000 && v < 0xC000_0000:
		return v & 0x1FFF_FFFF
	default:
		return uint32(paddr)
	}
}
