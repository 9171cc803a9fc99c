package runtime

import (
	"errors"
	"fmt"

	"github.com/sbl8/tinysine/core"
)

// ErrArenaExhausted is returned when an allocation does not fit in the arena.
var ErrArenaExhausted = errors.New("tensor arena exhausted")

// ArenaRegion is a named allocation carved out of the Arena.
type ArenaRegion struct {
	Offset uintptr
	Size   uintptr
	Name   string
}

// Arena is a fixed-capacity bump allocator backing every non-constant tensor.
// Nothing is freed individually; Reset rewinds the whole arena.
// Not safe for concurrent use.
type Arena struct {
	buffer  []byte // The underlying raw memory buffer
	base    uintptr
	regions map[string]ArenaRegion
	offset  uintptr // Bump pointer, relative to buffer start
	peak    uintptr // High-water mark across resets
}

// NewArena allocates an arena of size bytes whose first byte sits on a
// core.TensorAlignment boundary.
func NewArena(size uintptr) (*Arena, error) {
	if size == 0 {
		return nil, fmt.Errorf("cannot create zero-size arena")
	}
	return NewArenaFromBuffer(core.AlignedBytes(int(size), core.TensorAlignment)), nil
}

// NewArenaFromBuffer wraps caller-provided storage. Allocations are aligned
// on absolute addresses, so an unaligned buffer loses a few bytes to padding.
func NewArenaFromBuffer(buf []byte) *Arena {
	return &Arena{
		buffer:  buf,
		base:    core.AddressOf(buf),
		regions: make(map[string]ArenaRegion),
	}
}

// Allocate carves size bytes aligned to alignment out of the free tail and
// records the allocation as a named region. The returned slice has its
// capacity clipped to size.
func (a *Arena) Allocate(name string, size, alignment uintptr) ([]byte, error) {
	if alignment == 0 {
		alignment = core.TensorAlignment
	}
	if _, dup := a.regions[name]; dup {
		return nil, fmt.Errorf("arena region %q already allocated", name)
	}

	start := core.AlignSize(a.base+a.offset, alignment) - a.base
	if start > uintptr(len(a.buffer)) || size > uintptr(len(a.buffer))-start {
		return nil, fmt.Errorf("%w: %q needs %d bytes at offset %d, arena holds %d", ErrArenaExhausted, name, size, start, len(a.buffer))
	}

	a.regions[name] = ArenaRegion{Offset: start, Size: size, Name: name}
	a.offset = start + size
	a.peak = max(a.peak, a.offset)
	return a.buffer[start : start+size : start+size], nil
}

// Reset releases every allocation. Memory contents are left as they are.
func (a *Arena) Reset() {
	a.offset = 0
	clear(a.regions)
}

// Buffer returns the raw byte buffer of the arena.
func (a *Arena) Buffer() []byte {
	return a.buffer
}

// Region returns the specified ArenaRegion.
func (a *Arena) Region(name string) (ArenaRegion, bool) {
	region, ok := a.regions[name]
	return region, ok
}

// Regions returns the number of live allocations.
func (a *Arena) Regions() int {
	return len(a.regions)
}

// TotalSize returns the total capacity of the arena's buffer.
func (a *Arena) TotalSize() uintptr {
	return uintptr(len(a.buffer))
}

// UsedSize returns the bytes committed so far, alignment padding included.
func (a *Arena) UsedSize() uintptr {
	return a.offset
}

// RemainingSize returns the size of the free tail.
func (a *Arena) RemainingSize() uintptr {
	return uintptr(len(a.buffer)) - a.offset
}

// HighWater returns the largest UsedSize observed since the arena was created.
func (a *Arena) HighWater() uintptr {
	return a.peak
}

// ZeroRegion sets all bytes in a given region to zero.
func (a *Arena) ZeroRegion(regionName string) error {
	region, ok := a.regions[regionName]
	if !ok {
		return fmt.Errorf("region %s not found", regionName)
	}
	clear(a.buffer[region.Offset : region.Offset+region.Size])
	return nil
}
