package dataset

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"unsafe"

	"github.com/hupe1980/metrigo/internal/mmap"
)

const (
	// matrixMagic identifies matrix files (ASCII: "MGM1").
	matrixMagic = 0x4D474D31

	// matrixFormatVersion is the current matrix file format version.
	matrixFormatVersion = uint16(1)

	// matrixHeaderSize is the size of the file header in bytes. It is a
	// multiple of 8 so the float64 payload stays aligned under mmap.
	matrixHeaderSize = 24
)

var (
	// ErrInvalidMagic is returned when a file has an invalid magic number.
	ErrInvalidMagic = errors.New("dataset: invalid matrix file magic")

	// ErrInvalidVersion is returned when a file has an unsupported version.
	ErrInvalidVersion = errors.New("dataset: unsupported matrix file version")

	// ErrTruncated is returned when a file is shorter than its header claims.
	ErrTruncated = errors.New("dataset: matrix file truncated")
)

// matrixHeader is the fixed-size header at the start of matrix files.
// All multi-byte fields are little-endian.
//
//	[0:4]   magic
//	[4:6]   version
//	[6:8]   flags (reserved)
//	[8:16]  row count
//	[16:20] dimension
//	[20:24] reserved
type matrixHeader struct {
	Rows uint64
	Dim  uint32
}

func writeMatrixHeader(w io.Writer, rows uint64, dim uint32) error {
	var hdr [matrixHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], matrixMagic)
	binary.LittleEndian.PutUint16(hdr[4:6], matrixFormatVersion)
	binary.LittleEndian.PutUint64(hdr[8:16], rows)
	binary.LittleEndian.PutUint32(hdr[16:20], dim)
	_, err := w.Write(hdr[:])
	return err
}

func readMatrixHeader(b []byte) (matrixHeader, error) {
	if len(b) < matrixHeaderSize {
		return matrixHeader{}, ErrTruncated
	}
	if binary.LittleEndian.Uint32(b[0:4]) != matrixMagic {
		return matrixHeader{}, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint16(b[4:6]); v != matrixFormatVersion {
		return matrixHeader{}, fmt.Errorf("%w: %d", ErrInvalidVersion, v)
	}
	return matrixHeader{
		Rows: binary.LittleEndian.Uint64(b[8:16]),
		Dim:  binary.LittleEndian.Uint32(b[16:20]),
	}, nil
}

// WriteMatrix writes m to w in the binary matrix format.
func WriteMatrix(w io.Writer, m *Matrix) error {
	bw := bufio.NewWriter(w)
	if err := writeMatrixHeader(bw, uint64(m.rows), uint32(m.dim)); err != nil {
		return err
	}
	var buf [8]byte
	for _, v := range m.data {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteMatrixFile writes m to path in the binary matrix format.
func WriteMatrixFile(path string, m *Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteMatrix(f, m); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// MatrixFile is a read-only, memory-mapped matrix dataset. Rows are
// served as zero-copy views into the mapping when the payload is 8-byte
// aligned (the header guarantees this for files written by WriteMatrix);
// otherwise the payload is copied once at open time.
type MatrixFile struct {
	mapping *mmap.Mapping
	data    []float64
	rows    int
	dim     int
}

// OpenMatrixFile maps the matrix file at path.
func OpenMatrixFile(path string) (*MatrixFile, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	b := m.Bytes()
	hdr, err := readMatrixHeader(b)
	if err != nil {
		m.Close()
		return nil, err
	}

	n := int(hdr.Rows) * int(hdr.Dim)
	payload := b[matrixHeaderSize:]
	if len(payload) < n*8 {
		m.Close()
		return nil, fmt.Errorf("%w: want %d payload bytes, have %d", ErrTruncated, n*8, len(payload))
	}

	mf := &MatrixFile{mapping: m, rows: int(hdr.Rows), dim: int(hdr.Dim)}
	if n == 0 {
		m.Close()
		return nil, ErrEmptyMatrix
	}

	if uintptr(unsafe.Pointer(&payload[0]))%8 == 0 {
		mf.data = unsafe.Slice((*float64)(unsafe.Pointer(&payload[0])), n) //nolint:gosec // zero-copy mmap access
	} else {
		data := make([]float64, n)
		for i := range data {
			data[i] = math.Float64frombits(binary.LittleEndian.Uint64(payload[i*8:]))
		}
		mf.data = data
	}

	_ = m.Advise(mmap.AccessRandom)

	return mf, nil
}

// Len returns the number of rows.
func (f *MatrixFile) Len() int { return f.rows }

// Dim returns the row dimension.
func (f *MatrixFile) Dim() int { return f.dim }

// At returns row i. The returned slice is valid only until Close and
// must be treated as read-only.
func (f *MatrixFile) At(i int) []float64 {
	start := i * f.dim
	return f.data[start : start+f.dim : start+f.dim]
}

// Close unmaps the file. Rows obtained from At must not be used after
// Close returns.
func (f *MatrixFile) Close() error {
	return f.mapping.Close()
}
