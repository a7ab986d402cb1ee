package emu

import (
	"encoding/binary"
	"fmt"
)

// DefaultMemorySize is the size of the base RDRAM configuration (4 MiB).
const DefaultMemorySize = 4 * 1024 * 1024

// Memory is a flat, big-endian RAM starting at physical address 0.
// It implements Bus and is used by tests, the loader and the command-line
// runner in place of a full system bus.
type Memory struct {
	data []byte
}

// NewMemory creates a zero-filled memory of DefaultMemorySize bytes.
func NewMemory() *Memory {
	return NewMemoryWithSize(DefaultMemorySize)
}

// NewMemoryWithSize creates a zero-filled memory of the given size.
func NewMemoryWithSize(size int) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the memory size in bytes.
func (m *Memory) Size() int {
	return len(m.data)
}

func (m *Memory) check(addr uint32, n int) error {
	if uint64(addr)+uint64(n) > uint64(len(m.data)) {
		return fmt.Errorf("%w: 0x%08X (+%d)", ErrUnmapped, addr, n)
	}
	return nil
}

// ReadSingle reads one value of the given width.
func (m *Memory) ReadSingle(addr uint32, size Size) (uint64, error) {
	if err := m.check(addr, int(size)); err != nil {
		return 0, err
	}

	b := m.data[addr:]
	switch size {
	case Size8:
		return uint64(b[0]), nil
	case Size16:
		return uint64(binary.BigEndian.Uint16(b)), nil
	case Size32:
		return uint64(binary.BigEndian.Uint32(b)), nil
	default:
		return binary.BigEndian.Uint64(b), nil
	}
}

// WriteSingle writes one value of the given width.
func (m *Memory) WriteSingle(addr uint32, size Size, value uint64) error {
	if err := m.check(addr, int(size)); err != nil {
		return err
	}

	b := m.data[addr:]
	switch size {
	case Size8:
		b[0] = byte(value)
	case Size16:
		binary.BigEndian.PutUint16(b, uint16(value))
	case Size32:
		binary.BigEndian.PutUint32(b, uint32(value))
	default:
		binary.BigEndian.PutUint64(b, value)
	}
	return nil
}

// ReadBlock fills data with consecutive words starting at addr.
func (m *Memory) ReadBlock(addr uint32, data []uint32) error {
	if err := m.check(addr, len(data)*4); err != nil {
		return err
	}

	for i := range data {
		data[i] = binary.BigEndian.Uint32(m.data[addr+uint32(i*4):])
	}
	return nil
}

// Read32 reads a word, returning 0 for unmapped addresses.
func (m *Memory) Read32(addr uint32) uint32 {
	v, _ := m.ReadSingle(addr, Size32)
	return uint32(v)
}

// Read64 reads a doubleword, returning 0 for unmapped addresses.
func (m *Memory) Read64(addr uint32) uint64 {
	v, _ := m.ReadSingle(addr, Size64)
	return v
}

// Read8 reads a byte, returning 0 for unmapped addresses.
func (m *Memory) Read8(addr uint32) uint8 {
	v, _ := m.ReadSingle(addr, Size8)
	return uint8(v)
}

// Write32 writes a word. Writes to unmapped addresses are dropped.
func (m *Memory) Write32(addr uint32, value uint32) {
	_ = m.WriteSingle(addr, Size32, uint64(value))
}

// Write64 writes a doubleword. Writes to unmapped addresses are dropped.
func (m *Memory) Write64(addr uint32, value uint64) {
	_ = m.WriteSingle(addr, Size64, value)
}

// Write8 writes a byte. Writes to unmapped addresses are dropped.
func (m *Memory) Write8(addr uint32, value uint8) {
	_ = m.WriteSingle(addr, Size8, uint64(value))
}

// LoadProgram copies a program image into memory at addr.
func (m *Memory) LoadProgram(addr uint32, program []byte) error {
	if err := m.check(addr, len(program)); err != nil {
		return err
	}
	copy(m.data[addr:], program)
	return nil
}

// LoadWords stores a sequence of instruction words starting at addr.
func (m *Memory) LoadWords(addr uint32, words ...uint32) {
	for i, w := range words {
		m.Write32(addr+uint32(i*4), w)
	}
}
