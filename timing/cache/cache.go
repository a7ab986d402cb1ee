// Package cache models the VR4300 primary instruction and data caches using
// Akita cache directory components.
//
// Both caches are direct mapped. The line is selected by virtual address
// bits and checked against a physical tag, so the caller supplies both
// addresses on every access. A miss never touches the bus: refills and
// write-backs are driven by the caller.
package cache

import (
	"encoding/binary"
	"math/bits"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int
	// LineSize in bytes
	LineSize int
}

// DefaultICacheConfig returns the VR4300 instruction cache geometry:
// 16 KiB with 32-byte lines.
func DefaultICacheConfig() Config {
	return Config{
		Size:     16 * 1024,
		LineSize: 32,
	}
}

// DefaultDCacheConfig returns the VR4300 data cache geometry:
// 8 KiB with 16-byte lines.
func DefaultDCacheConfig() Config {
	return Config{
		Size:     8 * 1024,
		LineSize: 16,
	}
}

// NumLines returns the number of lines in the cache.
func (c Config) NumLines() int {
	return c.Size / c.LineSize
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Fills      uint64
	Writebacks uint64
}

// WriteBackFunc receives a dirty line being evicted from the data cache.
type WriteBackFunc func(paddr uint32, data []uint32) error

// PhysicalTagShift is the number of low physical address bits dropped from
// a cache tag. Tags hold physical address bits 31:12.
const PhysicalTagShift = 12

// storage is the state shared by both caches: the Akita directory holds
// tag/valid/dirty metadata and dataStore holds the line contents.
type storage struct {
	config    Config
	indexBits uint
	directory *akitacache.DirectoryImpl
	dataStore [][]byte
	stats     Statistics
}

func newStorage(config Config) storage {
	numLines := config.NumLines()
	dataStore := make([][]byte, numLines)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.LineSize)
	}

	return storage{
		config:    config,
		indexBits: uint(bits.TrailingZeros(uint(config.Size))),
		directory: akitacache.NewDirectory(
			numLines,
			1,
			config.LineSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
	}
}

// Config returns the cache configuration.
func (s *storage) Config() Config {
	return s.config
}

// Stats returns cache statistics.
func (s *storage) Stats() Statistics {
	return s.stats
}

// ResetStats clears cache statistics.
func (s *storage) ResetStats() {
	s.stats = Statistics{}
}

// Reset invalidates every line without write-back.
func (s *storage) Reset() {
	s.directory.Reset()
	s.stats = Statistics{}
}

// lineIndex selects the line from virtual address bits.
func (s *storage) lineIndex(vaddr uint32) int {
	return int(vaddr&uint32(s.config.Size-1)) / s.config.LineSize
}

// key combines the physical tag with the virtual index. The directory
// stores it as the block tag, so a tag match also implies an index match.
func (s *storage) key(vaddr uint32, ptag uint32) uint64 {
	index := uint64(vaddr) & uint64(s.config.Size-1) &^ uint64(s.config.LineSize-1)
	return uint64(ptag)<<s.indexBits | index
}

// block returns the line selected by the index bits of vaddr alone, as
// the Index_* cache operations address it.
func (s *storage) block(vaddr uint32) (*akitacache.Block, []byte) {
	index := s.lineIndex(vaddr)
	return s.directory.GetSets()[index].Blocks[0], s.dataStore[index]
}

// line returns the data of block.
func (s *storage) line(block *akitacache.Block) []byte {
	return s.dataStore[block.SetID*s.directory.NumWays+block.WayID]
}

// lookup searches the directory for (vaddr, paddr) and returns the line
// data on a hit.
func (s *storage) lookup(vaddr, paddr uint32) (*akitacache.Block, []byte, bool) {
	block := s.directory.Lookup(0, s.key(vaddr, paddr>>PhysicalTagShift))
	if block == nil {
		return nil, nil, false
	}
	s.directory.Visit(block)
	return block, s.line(block), true
}

// victim returns the line a refill of (vaddr, paddr) replaces.
func (s *storage) victim(vaddr, paddr uint32) (*akitacache.Block, []byte) {
	block := s.directory.FindVictim(s.key(vaddr, paddr>>PhysicalTagShift))
	return block, s.line(block)
}

// lineAddr returns the physical address of the line stored in block.
func (s *storage) lineAddr(block *akitacache.Block) uint32 {
	ptag := uint32(block.Tag >> s.indexBits)
	index := uint32(block.Tag) & uint32(s.config.Size-1)
	return ptag<<PhysicalTagShift | index&(1<<PhysicalTagShift-1)
}

// fill installs data as the line for (vaddr, paddr).
func (s *storage) fill(block *akitacache.Block, line []byte, vaddr, paddr uint32, data []uint32) {
	for i, w := range data {
		binary.BigEndian.PutUint32(line[i*4:], w)
	}
	block.Tag = s.key(vaddr, paddr>>PhysicalTagShift)
	block.IsValid = true
	block.IsDirty = false
	s.directory.Visit(block)
	s.stats.Fills++
}

// IndexLoadTag returns the tag and state of the line selected by vaddr.
func (s *storage) IndexLoadTag(vaddr uint32) (ptag uint32, valid, dirty bool) {
	block, _ := s.block(vaddr)
	return uint32(block.Tag >> s.indexBits), block.IsValid, block.IsDirty
}

// LineWords returns the number of 32-bit words in a line.
func (s *storage) LineWords() int {
	return s.config.LineSize / 4
}

// LineAddr aligns a physical address down to the start of its line.
func (s *storage) LineAddr(paddr uint32) uint32 {
	return paddr &^ uint32(s.config.LineSize-1)
}

func lineWords(line []byte) []uint32 {
	words := make([]uint32, len(line)/4)
	for i := range words {
		words[i] = binary.BigEndian.Uint32(line[i*4:])
	}
	return words
}
