package format

import (
	"encoding/binary"
	"fmt"
)

// Binary encoding utilities for little-endian integers.
//
// All NTFS on-disk structures are little-endian. Go's standard library
// binary.LittleEndian calls are inlined and optimized by the compiler, so no
// unsafe variants are used.

// PutU16 writes a uint16 value to the buffer at the specified offset in little-endian format.
func PutU16(b []byte, off int, v uint16) {
	binary.LittleEndian.PutUint16(b[off:off+2], v)
}

// PutU32 writes a uint32 value to the buffer at the specified offset in little-endian format.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// PutU64 writes a uint64 value to the buffer at the specified offset in little-endian format.
func PutU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// ReadU16 reads a uint16 value from the buffer at the specified offset in little-endian format.
func ReadU16(b []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(b[off : off+2])
}

// ReadU32 reads a uint32 value from the buffer at the specified offset in little-endian format.
func ReadU32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// ReadU64 reads a uint64 value from the buffer at the specified offset in little-endian format.
func ReadU64(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}

// ReadI64 reads an int64 value from the buffer at the specified offset in little-endian format.
func ReadI64(b []byte, off int) int64 {
	return int64(binary.LittleEndian.Uint64(b[off : off+8]))
}

// CheckedReadU16 reads a uint16, returning ErrTruncated when the buffer is
// too short. Use the checked variants when the offset comes from on-disk
// data rather than a validated layout constant.
func CheckedReadU16(b []byte, off int) (uint16, error) {
	if off < 0 || off+2 > len(b) {
		return 0, fmt.Errorf("read u16 at %d of %d: %w", off, len(b), ErrTruncated)
	}
	return binary.LittleEndian.Uint16(b[off : off+2]), nil
}

// CheckedReadU32 reads a uint32 with bounds checking.
func CheckedReadU32(b []byte, off int) (uint32, error) {
	if off < 0 || off+4 > len(b) {
		return 0, fmt.Errorf("read u32 at %d of %d: %w", off, len(b), ErrTruncated)
	}
	return binary.LittleEndian.Uint32(b[off : off+4]), nil
}

// CheckedReadU64 reads a uint64 with bounds checking.
func CheckedReadU64(b []byte, off int) (uint64, error) {
	if off < 0 || off+8 > len(b) {
		return 0, fmt.Errorf("read u64 at %d of %d: %w", off, len(b), ErrTruncated)
	}
	return binary.LittleEndian.Uint64(b[off : off+8]), nil
}
