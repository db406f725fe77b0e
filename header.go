package kdsplit

import (
	"encoding/binary"
	"math"
	"math/bits"

	kderrors "github.com/tamirms/kdsplit/errors"
)

const (
	// magic number for dataset files
	// "KDSP" in little-endian
	magic = uint32(0x5053444B)

	// version is the current format version
	version = uint16(0x0001)

	// headerSize is the exact size of the serialized header (32 bytes)
	headerSize = 32

	// footerSize is the exact size of the serialized footer (16 bytes)
	footerSize = 16

	// maxColumns is the largest NumColumns a file may declare.
	maxColumns = 1 << 16

	// flagPartitioned is set once the columns have been partitioned in place.
	flagPartitioned = uint16(1 << 0)
)

// header is the 32-byte file header.
//
// Layout:
//
//	Offset  Size  Field       Type
//	0       4     Magic       0x5053444B ("KDSP")
//	4       2     Version     0x0001
//	6       2     Flags       uint16_le (bit 0 = partitioned)
//	8       4     NumColumns  uint32_le
//	12      8     NumRows     uint64_le
//	20      4     LeafSize    uint32_le (0 until partitioned)
//	24      8     Reserved    [8]byte (zero)
//
// Columns follow the header back to back, each NumRows int32_le values.
type header struct {
	Magic      uint32
	Version    uint16
	Flags      uint16
	NumColumns uint32
	NumRows    uint64
	LeafSize   uint32
	Reserved   [8]byte
}

// encodeTo serializes the header to an existing buffer.
func (h *header) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], h.Flags)
	binary.LittleEndian.PutUint32(buf[8:12], h.NumColumns)
	binary.LittleEndian.PutUint64(buf[12:20], h.NumRows)
	binary.LittleEndian.PutUint32(buf[20:24], h.LeafSize)
	copy(buf[24:32], h.Reserved[:])
}

// decodeHeader parses a 32-byte header.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, kderrors.ErrTruncatedFile
	}

	h := &header{
		Magic:      binary.LittleEndian.Uint32(buf[0:4]),
		Version:    binary.LittleEndian.Uint16(buf[4:6]),
		Flags:      binary.LittleEndian.Uint16(buf[6:8]),
		NumColumns: binary.LittleEndian.Uint32(buf[8:12]),
		NumRows:    binary.LittleEndian.Uint64(buf[12:20]),
		LeafSize:   binary.LittleEndian.Uint32(buf[20:24]),
	}
	copy(h.Reserved[:], buf[24:32])

	if h.Magic != magic {
		return nil, kderrors.ErrInvalidMagic
	}
	if h.Version != version {
		return nil, kderrors.ErrInvalidVersion
	}
	if h.NumColumns == 0 || h.NumColumns > maxColumns || h.NumRows > maxRows {
		return nil, kderrors.ErrCorruptedFile
	}
	if _, ok := sizeOf(h.NumColumns, h.NumRows); !ok {
		return nil, kderrors.ErrCorruptedFile
	}
	return h, nil
}

// sizeOf returns the column region size for the given shape. ok is false
// when the full file size would not fit in a uint64.
func sizeOf(numColumns uint32, numRows uint64) (n uint64, ok bool) {
	hi, lo := bits.Mul64(uint64(numColumns), numRows)
	if hi != 0 || lo > (math.MaxUint64-headerSize-footerSize)/4 {
		return 0, false
	}
	return lo * 4, true
}

// columnBytes returns the size of the column region. The header must have
// passed decodeHeader or come from CreateFile.
func (h *header) columnBytes() uint64 {
	n, _ := sizeOf(h.NumColumns, h.NumRows)
	return n
}

// fileSize returns the exact size of a file with this header.
func (h *header) fileSize() uint64 {
	return headerSize + h.columnBytes() + footerSize
}

// footer is the 16-byte file trailer.
//
//	Offset  Size  Field     Type
//	0       8     Checksum  uint64_le (xxHash64 of header + columns)
//	8       4     Magic     0x5053444B
//	12      4     Reserved  (zero)
type footer struct {
	Checksum uint64
	Magic    uint32
}

func (f *footer) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], f.Checksum)
	binary.LittleEndian.PutUint32(buf[8:12], f.Magic)
	clear(buf[12:16])
}

func decodeFooter(buf []byte) (*footer, error) {
	if len(buf) < footerSize {
		return nil, kderrors.ErrTruncatedFile
	}
	f := &footer{
		Checksum: binary.LittleEndian.Uint64(buf[0:8]),
		Magic:    binary.LittleEndian.Uint32(buf[8:12]),
	}
	if f.Magic != magic {
		return nil, kderrors.ErrCorruptedFile
	}
	return f, nil
}
