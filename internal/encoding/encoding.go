// Package encoding converts between little-endian byte regions and int32
// column views.
//
// Int32View and Bytes reinterpret memory without copying and are only correct
// on little-endian architectures (amd64, arm64). PutInt32s and Int32s are the
// portable, copying counterparts.
package encoding

import (
	"encoding/binary"
	"unsafe"
)

// Int32View returns an []int32 aliasing b. len(b) must be a multiple of 4 and
// b must be 4-byte aligned; mmap'd regions at 4-aligned offsets satisfy both.
func Int32View(b []byte) []int32 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&b[0])), len(b)/4)
}

// Bytes returns the bytes backing col without copying.
func Bytes(col []int32) []byte {
	if len(col) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&col[0])), len(col)*4)
}

// PutInt32s writes src into dst as little-endian values.
// Precondition: len(dst) >= 4*len(src).
func PutInt32s(dst []byte, src []int32) {
	for i, v := range src {
		binary.LittleEndian.PutUint32(dst[i*4:], uint32(v))
	}
}

// Int32s decodes len(dst) little-endian values from src.
// Precondition: len(src) >= 4*len(dst).
func Int32s(dst []int32, src []byte) {
	for i := range dst {
		dst[i] = int32(binary.LittleEndian.Uint32(src[i*4:]))
	}
}

// PutRow writes row r of cols into dst as consecutive little-endian values and
// returns the number of bytes written.
// Precondition: len(dst) >= 4*len(cols).
func PutRow(dst []byte, cols [][]int32, r int) int {
	for c, col := range cols {
		binary.LittleEndian.PutUint32(dst[c*4:], uint32(col[r]))
	}
	return len(cols) * 4
}
