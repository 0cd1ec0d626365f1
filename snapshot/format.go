package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/metrigo/cluster"
)

const (
	// Magic identifies metrigo snapshot files (ASCII: "MGS1").
	Magic = 0x4D475331
	// Version is the current container format version.
	Version = 1
)

// Container layout, all fields little-endian:
//
//	header   (32 bytes)  magic, version, compression, codec name
//	sections (variable)  back to back, located via the directory
//	directory            one 24-byte entry per section
//	footer   (16 bytes)  directory offset, section count, magic echo
//
// The directory sits at the end so the container can be written to a plain
// io.Writer in one pass; readers need an io.ReaderAt, which both mmap and
// blob stores provide.
const (
	headerSize    = 32
	footerSize    = 16
	dirEntrySize  = 24
	codecNameSize = 16
)

// Section types. Readers skip types they do not know.
const (
	sectionItems       uint32 = 1
	sectionRecords     uint32 = 2
	sectionConfig      uint32 = 3
	sectionFingerprint uint32 = 4
)

func sectionName(typ uint32) string {
	switch typ {
	case sectionItems:
		return "items"
	case sectionRecords:
		return "records"
	case sectionConfig:
		return "config"
	case sectionFingerprint:
		return "fingerprint"
	default:
		return fmt.Sprintf("unknown(%d)", typ)
	}
}

type header struct {
	compression Compression
	codecName   string
}

func encodeHeader(c Compression, codecName string) []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:], Magic)
	binary.LittleEndian.PutUint32(buf[4:], Version)
	buf[8] = byte(c)
	// [9:12) padding
	copy(buf[12:12+codecNameSize], codecName)
	// [28:32) reserved

	return buf
}

func decodeHeader(buf []byte) (header, error) {
	if m := binary.LittleEndian.Uint32(buf[0:]); m != Magic {
		return header{}, fmt.Errorf("%w: bad magic 0x%08x", ErrCorrupt, m)
	}

	if v := binary.LittleEndian.Uint32(buf[4:]); v != Version {
		return header{}, fmt.Errorf("%w: %d", ErrVersion, v)
	}

	c := Compression(buf[8])
	if !c.valid() {
		return header{}, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, buf[8])
	}

	name := string(bytes.TrimRight(buf[12:12+codecNameSize], "\x00"))

	return header{compression: c, codecName: name}, nil
}

func encodeFooter(dirOffset uint64, count int) []byte {
	buf := make([]byte, footerSize)
	binary.LittleEndian.PutUint64(buf[0:], dirOffset)
	binary.LittleEndian.PutUint32(buf[8:], uint32(count))
	binary.LittleEndian.PutUint32(buf[12:], Magic)

	return buf
}

func decodeFooter(buf []byte) (dirOffset uint64, count uint32, err error) {
	if m := binary.LittleEndian.Uint32(buf[12:]); m != Magic {
		return 0, 0, fmt.Errorf("%w: bad footer magic 0x%08x", ErrCorrupt, m)
	}

	return binary.LittleEndian.Uint64(buf[0:]), binary.LittleEndian.Uint32(buf[8:]), nil
}

func encodeItems(items []int) []byte {
	buf := make([]byte, 8+4*len(items))
	binary.LittleEndian.PutUint64(buf, uint64(len(items)))

	for i, id := range items {
		binary.LittleEndian.PutUint32(buf[8+4*i:], uint32(id))
	}

	return buf
}

func decodeItems(data []byte) ([]int, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: items section too small", ErrCorrupt)
	}

	n := binary.LittleEndian.Uint64(data)
	if n > math.MaxUint32 || uint64(len(data)) != 8+4*n {
		return nil, fmt.Errorf("%w: items section length does not match its count", ErrCorrupt)
	}

	items := make([]int, n)
	for i := range items {
		items[i] = int(binary.LittleEndian.Uint32(data[8+4*i:]))
	}

	return items, nil
}

// recordSize is the fixed encoding of one cluster.NodeRecord: center,
// cardinality, radius bits, lfd bits, leaf flag.
const recordSize = 4 + 4 + 8 + 8 + 1

func encodeRecords(records []cluster.NodeRecord) []byte {
	buf := make([]byte, 8+recordSize*len(records))
	binary.LittleEndian.PutUint64(buf, uint64(len(records)))

	off := 8
	for _, rec := range records {
		binary.LittleEndian.PutUint32(buf[off:], uint32(rec.Center))
		binary.LittleEndian.PutUint32(buf[off+4:], uint32(rec.Cardinality))
		binary.LittleEndian.PutUint64(buf[off+8:], math.Float64bits(rec.Radius))
		binary.LittleEndian.PutUint64(buf[off+16:], math.Float64bits(rec.LFD))

		if rec.Leaf {
			buf[off+24] = 1
		}

		off += recordSize
	}

	return buf
}

func decodeRecords(data []byte) ([]cluster.NodeRecord, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: records section too small", ErrCorrupt)
	}

	n := binary.LittleEndian.Uint64(data)
	if n > math.MaxUint32 || uint64(len(data)) != 8+recordSize*n {
		return nil, fmt.Errorf("%w: records section length does not match its count", ErrCorrupt)
	}

	records := make([]cluster.NodeRecord, n)

	off := 8
	for i := range records {
		if flag := data[off+24]; flag > 1 {
			return nil, fmt.Errorf("%w: record %d has leaf flag %d", ErrCorrupt, i, flag)
		}

		records[i] = cluster.NodeRecord{
			Center:      int(binary.LittleEndian.Uint32(data[off:])),
			Cardinality: int(binary.LittleEndian.Uint32(data[off+4:])),
			Radius:      math.Float64frombits(binary.LittleEndian.Uint64(data[off+8:])),
			LFD:         math.Float64frombits(binary.LittleEndian.Uint64(data[off+16:])),
			Leaf:        data[off+24] == 1,
		}

		off += recordSize
	}

	return records, nil
}
