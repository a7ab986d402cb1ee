package cache

import "encoding/binary"

// ICache is the primary instruction cache.
type ICache struct {
	storage
}

// NewICache creates an instruction cache with the given geometry.
func NewICache(config Config) *ICache {
	return &ICache{storage: newStorage(config)}
}

// Read returns the instruction word at (vaddr, paddr) on a hit. On a miss
// it returns false and the caller must refill the line with InsertLine.
func (c *ICache) Read(vaddr, paddr uint32) (uint32, bool) {
	c.stats.Reads++

	_, line, hit := c.lookup(vaddr, paddr)
	if !hit {
		c.stats.Misses++
		return 0, false
	}

	c.stats.Hits++
	return binary.BigEndian.Uint32(line[c.offset(vaddr):]), true
}

// InsertLine installs a freshly fetched line and returns the word at vaddr.
// data must hold LineWords() words starting at LineAddr(paddr).
func (c *ICache) InsertLine(vaddr, paddr uint32, data []uint32) uint32 {
	block, line := c.victim(vaddr, paddr)
	c.fill(block, line, vaddr, paddr, data)
	return binary.BigEndian.Uint32(line[c.offset(vaddr):])
}

// IndexStoreTag overwrites the tag and valid bit of the line selected by
// vaddr without transferring any data.
func (c *ICache) IndexStoreTag(vaddr, ptag uint32, valid bool) {
	block, _ := c.block(vaddr)
	block.Tag = c.key(vaddr, ptag)
	block.IsValid = valid
	block.IsDirty = false
}

// IndexInvalidate clears the valid bit of the line selected by vaddr.
func (c *ICache) IndexInvalidate(vaddr uint32) {
	block, _ := c.block(vaddr)
	block.IsValid = false
}

// HitInvalidate clears the valid bit if (vaddr, paddr) is cached.
func (c *ICache) HitInvalidate(vaddr, paddr uint32) {
	if block, _, hit := c.lookup(vaddr, paddr); hit {
		block.IsValid = false
	}
}

func (c *ICache) offset(vaddr uint32) uint32 {
	return vaddr & uint32(c.config.LineSize-1) &^ 3
}
