package kdsplit

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	kderrors "github.com/tamirms/kdsplit/errors"
	"github.com/tamirms/kdsplit/internal/encoding"
)

// File is a memory-mapped dataset file whose columns can be partitioned in
// place.
//
// Thread Safety:
// - Columns may be read concurrently while no Partition is running
// - Partition and Close are NOT safe to call concurrently with anything else
// - After Close returns, no methods may be called on the File
type File struct {
	mmap   mmap.MMap
	data   []byte
	header *header
	cols   [][]int32
	closed bool
}

// CreateFile writes cols to a new dataset file at path, replacing any
// existing file.
func CreateFile(path string, cols [][]int32) error {
	rows, err := numRows(cols)
	if err != nil {
		return err
	}
	if len(cols) > maxColumns {
		return fmt.Errorf("create dataset file: %d columns exceeds format limit of %d", len(cols), maxColumns)
	}

	h := header{
		Magic:      magic,
		Version:    version,
		NumColumns: uint32(len(cols)),
		NumRows:    uint64(rows),
	}
	size := h.fileSize()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset file: %w", err)
	}

	// Pre-allocate disk blocks to prevent SIGBUS on disk full
	if err := fallocateFile(file, int64(size)); err != nil {
		primaryErr := fmt.Errorf("allocate disk space: %w", err)
		return errors.Join(primaryErr, file.Close(), os.Remove(path))
	}

	mm, err := mmap.MapRegion(file, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		primaryErr := fmt.Errorf("mmap dataset file: %w", err)
		return errors.Join(primaryErr, file.Close(), os.Remove(path))
	}
	data := []byte(mm)
	prefaultRegion(data)

	h.encodeTo(data[:headerSize])
	off := uint64(headerSize)
	for _, col := range cols {
		encoding.PutInt32s(data[off:], col)
		off += uint64(len(col)) * 4
	}
	seal(data)

	if err := mm.Flush(); err != nil {
		primaryErr := fmt.Errorf("flush dataset file: %w", err)
		return errors.Join(primaryErr, mm.Unmap(), file.Close(), os.Remove(path))
	}
	return errors.Join(mm.Unmap(), file.Close())
}

// OpenFile memory-maps the dataset file at path for reading and in-place
// partitioning. The file descriptor is closed before OpenFile returns.
func OpenFile(path string) (*File, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open dataset file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat dataset file: %w", err)
	}
	fileSize := stat.Size()
	if fileSize < headerSize+footerSize {
		return nil, kderrors.ErrTruncatedFile
	}

	// The partitioner touches every page, so ask for readahead up front.
	fadviseWillNeed(int(file.Fd()), 0, fileSize)

	mm, err := mmap.Map(file, mmap.RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap dataset file: %w", err)
	}

	f := &File{
		mmap: mm,
		data: []byte(mm),
	}
	if err := f.initFromData(); err != nil {
		return nil, errors.Join(err, f.Close())
	}
	return f, nil
}

// initFromData parses the header and footer and builds the column views.
func (f *File) initFromData() error {
	h, err := decodeHeader(f.data[:headerSize])
	if err != nil {
		return err
	}
	size := uint64(len(f.data))
	switch want := h.fileSize(); {
	case size < want:
		return kderrors.ErrTruncatedFile
	case size > want:
		return fmt.Errorf("%w: %d trailing bytes", kderrors.ErrCorruptedFile, size-want)
	}
	if _, err := decodeFooter(f.data[size-footerSize:]); err != nil {
		return err
	}

	colBytes := h.NumRows * 4
	f.cols = make([][]int32, h.NumColumns)
	off := uint64(headerSize)
	for i := range f.cols {
		f.cols[i] = encoding.Int32View(f.data[off : off+colBytes])
		off += colBytes
	}
	f.header = h
	return nil
}

// Columns returns zero-copy views of the mapped columns. They are only valid
// until Close.
func (f *File) Columns() [][]int32 {
	return f.cols
}

// Rows returns the number of rows.
func (f *File) Rows() int {
	return int(f.header.NumRows)
}

// NumColumns returns the number of columns.
func (f *File) NumColumns() int {
	return int(f.header.NumColumns)
}

// Partitioned reports whether Partition has completed on this file and, if
// so, the leaf size it used.
func (f *File) Partitioned() (bool, int) {
	return f.header.Flags&flagPartitioned != 0, int(f.header.LeafSize)
}

// Verify recomputes the checksum over the header and columns.
func (f *File) Verify() error {
	if f.closed {
		return kderrors.ErrFileClosed
	}
	size := len(f.data)
	ft, err := decodeFooter(f.data[size-footerSize:])
	if err != nil {
		return err
	}
	if xxhash.Sum64(f.data[:size-footerSize]) != ft.Checksum {
		return kderrors.ErrChecksumFailed
	}
	return nil
}

// Partition partitions the mapped columns in place, then records the leaf
// size in the header, reseals the checksum and flushes the mapping.
//
// If the run fails the columns still hold a permutation of the original
// rows; the file is resealed as unpartitioned so it stays valid.
func (f *File) Partition(ctx context.Context, opts ...Option) (*Result, error) {
	if f.closed {
		return nil, kderrors.ErrFileClosed
	}
	res, runErr := Partition(ctx, f.cols, opts...)
	if runErr != nil {
		f.header.Flags &^= flagPartitioned
		f.header.LeafSize = 0
	} else {
		f.header.Flags |= flagPartitioned
		f.header.LeafSize = uint32(res.LeafSize)
	}
	f.header.encodeTo(f.data[:headerSize])
	seal(f.data)
	if err := f.mmap.Flush(); err != nil {
		return nil, errors.Join(runErr, fmt.Errorf("flush dataset file: %w", err))
	}
	if runErr != nil {
		return nil, runErr
	}
	return res, nil
}

// Close unmaps the file. Close is idempotent.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.cols = nil
	if f.mmap == nil {
		return nil
	}
	err := f.mmap.Unmap()
	f.mmap, f.data = nil, nil
	if err != nil {
		return fmt.Errorf("unmap dataset file: %w", err)
	}
	return nil
}

// seal writes the footer for the current header and column bytes.
func seal(data []byte) {
	body := len(data) - footerSize
	ft := footer{
		Checksum: xxhash.Sum64(data[:body]),
		Magic:    magic,
	}
	ft.encodeTo(data[body:])
}
