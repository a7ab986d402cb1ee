package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/n64sim/emu"
)

// DCache is the primary data cache. It is write-back: stores that hit mark
// the line dirty and dirty lines reach memory only when evicted or written
// back by a CACHE instruction.
type DCache struct {
	storage
}

// NewDCache creates a data cache with the given geometry.
func NewDCache(config Config) *DCache {
	return &DCache{storage: newStorage(config)}
}

// Read returns the value of the given width at (vaddr, paddr) on a hit.
func (c *DCache) Read(vaddr, paddr uint32, size emu.Size) (uint64, bool) {
	c.stats.Reads++

	_, line, hit := c.lookup(vaddr, paddr)
	if !hit {
		c.stats.Misses++
		return 0, false
	}

	c.stats.Hits++
	return extractData(line, c.offset(vaddr), size), true
}

// Write stores a value of the given width on a hit and marks the line
// dirty. It returns false on a miss; the caller refills and retries.
func (c *DCache) Write(vaddr, paddr uint32, size emu.Size, value uint64) bool {
	c.stats.Writes++

	block, line, hit := c.lookup(vaddr, paddr)
	if !hit {
		c.stats.Misses++
		return false
	}

	c.stats.Hits++
	storeData(line, c.offset(vaddr), size, value)
	block.IsDirty = true
	return true
}

// InsertLine installs a freshly fetched line. A dirty line occupying the
// slot is handed to writeBack first.
func (c *DCache) InsertLine(vaddr, paddr uint32, data []uint32, writeBack WriteBackFunc) error {
	block, line := c.victim(vaddr, paddr)
	if err := c.evict(block, writeBack); err != nil {
		return err
	}

	c.fill(block, line, vaddr, paddr, data)
	return nil
}

// IndexStoreTag overwrites the tag, valid and dirty bits of the line
// selected by vaddr without transferring any data.
func (c *DCache) IndexStoreTag(vaddr, ptag uint32, valid, dirty bool) {
	block, _ := c.block(vaddr)
	block.Tag = c.key(vaddr, ptag)
	block.IsValid = valid
	block.IsDirty = dirty
}

// IndexWriteBackInvalidate writes the selected line back if it is dirty
// and invalidates it.
func (c *DCache) IndexWriteBackInvalidate(vaddr uint32, writeBack WriteBackFunc) error {
	block, _ := c.block(vaddr)
	if err := c.evict(block, writeBack); err != nil {
		return err
	}

	block.IsValid = false
	return nil
}

// HitInvalidate invalidates the line if (vaddr, paddr) is cached. Dirty
// data is discarded.
func (c *DCache) HitInvalidate(vaddr, paddr uint32) {
	if block, _, hit := c.lookup(vaddr, paddr); hit {
		block.IsValid = false
		block.IsDirty = false
	}
}

// HitWriteBack writes the line back if (vaddr, paddr) is cached and dirty.
// With invalidate set the line is also invalidated.
func (c *DCache) HitWriteBack(vaddr, paddr uint32, invalidate bool, writeBack WriteBackFunc) error {
	block, _, hit := c.lookup(vaddr, paddr)
	if !hit {
		return nil
	}

	if err := c.evict(block, writeBack); err != nil {
		return err
	}
	if invalidate {
		block.IsValid = false
	}
	return nil
}

// CreateDirtyExclusive claims the line for (vaddr, paddr) as valid and
// dirty without reading memory. A different dirty line in the slot is
// written back first.
func (c *DCache) CreateDirtyExclusive(vaddr, paddr uint32, writeBack WriteBackFunc) error {
	block, _, hit := c.lookup(vaddr, paddr)
	if !hit {
		block, _ = c.victim(vaddr, paddr)
		if err := c.evict(block, writeBack); err != nil {
			return err
		}
	}

	block.Tag = c.key(vaddr, paddr>>PhysicalTagShift)
	block.IsValid = true
	block.IsDirty = true
	return nil
}

// evict hands a valid dirty line to writeBack and marks it clean.
func (c *DCache) evict(block *akitacache.Block, writeBack WriteBackFunc) error {
	if !block.IsValid || !block.IsDirty {
		return nil
	}

	line := c.line(block)
	if writeBack != nil {
		if err := writeBack(c.lineAddr(block), lineWords(line)); err != nil {
			return err
		}
	}

	block.IsDirty = false
	c.stats.Writebacks++
	return nil
}

func (c *DCache) offset(vaddr uint32) uint32 {
	return vaddr & uint32(c.config.LineSize-1)
}

// extractData reads a big-endian value of the given size from a line.
func extractData(data []byte, offset uint32, size emu.Size) uint64 {
	if int(offset)+int(size) > len(data) {
		return 0
	}

	var result uint64
	for i := 0; i < int(size); i++ {
		result = result<<8 | uint64(data[int(offset)+i])
	}
	return result
}

// storeData writes a big-endian value of the given size into a line.
func storeData(data []byte, offset uint32, size emu.Size, value uint64) {
	if int(offset)+int(size) > len(data) {
		return
	}

	for i := int(size) - 1; i >= 0; i-- {
		data[int(offset)+i] = byte(value)
		value >>= 8
	}
}
