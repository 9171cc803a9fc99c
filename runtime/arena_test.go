package runtime

import (
	"errors"
	"testing"

	"github.com/sbl8/tinysine/core"
)

func TestNewArena(t *testing.T) {
	t.Parallel()
	arena, err := NewArena(8192)
	if err != nil {
		t.Fatalf("NewArena failed: %v", err)
	}

	if arena.TotalSize() != 8192 {
		t.Errorf("TotalSize() = %d, want 8192", arena.TotalSize())
	}
	if arena.UsedSize() != 0 || arena.RemainingSize() != 8192 {
		t.Errorf("fresh arena used %d, remaining %d", arena.UsedSize(), arena.RemainingSize())
	}
	if !core.IsAligned(core.AddressOf(arena.Buffer()), core.TensorAlignment) {
		t.Error("arena buffer is not aligned")
	}

	if _, err := NewArena(0); err == nil {
		t.Error("expected error for zero-size arena")
	}
}

func TestArenaMemoryLayout(t *testing.T) {
	t.Parallel()
	arena, err := NewArena(256)
	if err != nil {
		t.Fatalf("NewArena failed: %v", err)
	}

	names := []string{"a", "b", "c"}
	sizes := []uintptr{1, 17, 40}
	for i, name := range names {
		buf, err := arena.Allocate(name, sizes[i], core.TensorAlignment)
		if err != nil {
			t.Fatalf("Allocate(%s) failed: %v", name, err)
		}
		if uintptr(len(buf)) != sizes[i] || uintptr(cap(buf)) != sizes[i] {
			t.Errorf("Allocate(%s) len %d cap %d, want %d", name, len(buf), cap(buf), sizes[i])
		}
		if !core.IsAligned(core.AddressOf(buf), core.TensorAlignment) {
			t.Errorf("region %s is not aligned", name)
		}
	}

	// Verify regions don't overlap
	for i := 0; i < len(names)-1; i++ {
		cur, _ := arena.Region(names[i])
		next, _ := arena.Region(names[i+1])
		if cur.Offset+cur.Size > next.Offset {
			t.Errorf("Region %s overlaps with %s", names[i], names[i+1])
		}
	}

	if got, want := arena.UsedSize(), uintptr(48+40); got != want {
		t.Errorf("UsedSize() = %d, want %d", got, want)
	}
	if arena.Regions() != 3 {
		t.Errorf("Regions() = %d, want 3", arena.Regions())
	}
}

func TestArenaExhausted(t *testing.T) {
	t.Parallel()
	arena, err := NewArena(32)
	if err != nil {
		t.Fatalf("NewArena failed: %v", err)
	}

	if _, err := arena.Allocate("first", 20, 0); err != nil {
		t.Fatalf("first allocation failed: %v", err)
	}
	// 20 rounds up to 32, leaving nothing.
	if _, err := arena.Allocate("second", 1, 0); !errors.Is(err, ErrArenaExhausted) {
		t.Errorf("Allocate() error = %v, want %v", err, ErrArenaExhausted)
	}
	if _, err := arena.Allocate("first", 1, 1); err == nil {
		t.Error("expected error for duplicate region name")
	}
}

func TestArenaHugeAllocation(t *testing.T) {
	t.Parallel()
	arena, err := NewArena(64)
	if err != nil {
		t.Fatalf("NewArena failed: %v", err)
	}
	if _, err := arena.Allocate("head", 15, 1); err != nil {
		t.Fatalf("head allocation failed: %v", err)
	}

	// A size near the top of the address range must not wrap past the bound.
	if _, err := arena.Allocate("huge", ^uintptr(0)-8, 0); !errors.Is(err, ErrArenaExhausted) {
		t.Errorf("Allocate() error = %v, want %v", err, ErrArenaExhausted)
	}
	if got := arena.UsedSize(); got != 15 {
		t.Errorf("UsedSize() = %d after failed allocation, want 15", got)
	}
}

func TestArenaReset(t *testing.T) {
	t.Parallel()
	arena, err := NewArena(128)
	if err != nil {
		t.Fatalf("NewArena failed: %v", err)
	}

	buf, err := arena.Allocate("x", 64, 0)
	if err != nil {
		t.Fatal(err)
	}
	buf[0] = 0xAA
	if err := arena.ZeroRegion("x"); err != nil {
		t.Fatalf("ZeroRegion failed: %v", err)
	}
	if buf[0] != 0 {
		t.Error("ZeroRegion left data behind")
	}

	arena.Reset()
	if arena.UsedSize() != 0 || arena.Regions() != 0 {
		t.Errorf("after Reset used %d, regions %d", arena.UsedSize(), arena.Regions())
	}
	if arena.HighWater() != 64 {
		t.Errorf("HighWater() = %d, want 64", arena.HighWater())
	}
	if _, ok := arena.Region("x"); ok {
		t.Error("region survived Reset")
	}
	if err := arena.ZeroRegion("x"); err == nil {
		t.Error("expected error zeroing a released region")
	}
}

func TestArenaFromUnalignedBuffer(t *testing.T) {
	t.Parallel()
	backing := core.AlignedBytes(64, core.TensorAlignment)
	arena := NewArenaFromBuffer(backing[3:])

	buf, err := arena.Allocate("t", 8, core.TensorAlignment)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if !core.IsAligned(core.AddressOf(buf), core.TensorAlignment) {
		t.Error("allocation is not aligned")
	}
	if arena.UsedSize() != 13+8 {
		t.Errorf("UsedSize() = %d, want %d", arena.UsedSize(), 13+8)
	}
}
