package core

import "unsafe"

const (
	// TensorAlignment is the boundary every arena-backed tensor starts on.
	// Matches the 16-byte alignment the firmware arena is declared with.
	TensorAlignment = 16

	// CacheLineSize is a common cache line size, typically 64 bytes.
	CacheLineSize = 64
)

// AlignSize rounds size up to the specified power-of-two alignment.
func AlignSize(size, align uintptr) uintptr {
	return (size + align - 1) &^ (align - 1)
}

// IsAligned checks whether addr sits on an align boundary.
func IsAligned(addr, align uintptr) bool {
	return addr%align == 0
}

// AlignedBytes allocates a byte slice whose first element is aligned to align.
// This is the recommended way to get an aligned slice in Go.
func AlignedBytes(size int, align uintptr) []byte {
	if size == 0 {
		return nil
	}
	buf := make([]byte, size+int(align)-1)

	ptr := uintptr(unsafe.Pointer(&buf[0]))
	offset := uintptr(0)
	if mod := ptr % align; mod != 0 {
		offset = align - mod
	}
	return buf[offset : offset+uintptr(size) : offset+uintptr(size)]
}

// AddressOf returns the address of the first byte of b, or 0 for an empty slice.
func AddressOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
