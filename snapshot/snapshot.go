package snapshot

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/hupe1980/metrigo/cluster"
	"github.com/hupe1980/metrigo/codec"
	"github.com/hupe1980/metrigo/resource"
	"github.com/hupe1980/metrigo/space"
)

// Snapshot is the persisted form of a cluster tree: everything needed to
// reassemble it over the same metric space without recomputing a single
// distance.
type Snapshot struct {
	Config      cluster.Config
	Fingerprint Fingerprint
	Items       []int
	Records     []cluster.NodeRecord
}

// Fingerprint identifies the space a snapshot was taken over. Restore
// refuses spaces whose metric or cardinality differ, since the persisted
// geometry would silently be wrong for them.
type Fingerprint struct {
	Metric      string `json:"metric"`
	Cardinality int    `json:"cardinality"`
}

// Options control how a snapshot is encoded.
type Options struct {
	// Compression is applied to every section.
	Compression Compression
	// Codec encodes the config and fingerprint sections. Its name is stored
	// in the header so readers pick the matching decoder.
	Codec codec.Codec
	// Controller, when set, throttles the encoded bytes against its IO
	// budget so bulk persistence cannot starve query traffic.
	Controller *resource.Controller
}

// DefaultOptions are the options used when callers override nothing.
var DefaultOptions = Options{
	Compression: CompressionZSTD,
	Codec:       codec.Default,
}

// Take captures a tree's geometry. The returned snapshot shares nothing
// with the tree and stays valid after the tree is released.
func Take[I any](t *cluster.Tree[I]) (*Snapshot, error) {
	if t == nil {
		return nil, ErrNilTree
	}

	items := make([]int, t.Cardinality())
	copy(items, t.Items())

	return &Snapshot{
		Config: t.Config(),
		Fingerprint: Fingerprint{
			Metric:      t.Space().Metric().Name(),
			Cardinality: t.Cardinality(),
		},
		Items:   items,
		Records: t.Records(),
	}, nil
}

// Write snapshots t and encodes it to w in one pass.
func Write[I any](w io.Writer, t *cluster.Tree[I], optFns ...func(o *Options)) error {
	snap, err := Take(t)
	if err != nil {
		return err
	}

	return Encode(w, snap, optFns...)
}

// Encode writes the container to w: header, sections, directory, footer.
// w sees a single forward pass, so it can be a network stream.
func Encode(w io.Writer, snap *Snapshot, optFns ...func(o *Options)) error {
	if snap == nil {
		return ErrNilSnapshot
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Codec == nil {
		opts.Codec = codec.Default
	}

	if !opts.Compression.valid() {
		return fmt.Errorf("snapshot: unknown compression %d", opts.Compression)
	}

	name := opts.Codec.Name()
	if len(name) > codecNameSize {
		return fmt.Errorf("snapshot: codec name %q exceeds %d bytes", name, codecNameSize)
	}

	w = resource.Writer(context.Background(), opts.Controller, w)

	cfgPayload, err := opts.Codec.Marshal(snap.Config)
	if err != nil {
		return fmt.Errorf("snapshot: encode config: %w", err)
	}

	fpPayload, err := opts.Codec.Marshal(snap.Fingerprint)
	if err != nil {
		return fmt.Errorf("snapshot: encode fingerprint: %w", err)
	}

	sections := []struct {
		typ     uint32
		payload []byte
	}{
		{sectionItems, encodeItems(snap.Items)},
		{sectionRecords, encodeRecords(snap.Records)},
		{sectionConfig, cfgPayload},
		{sectionFingerprint, fpPayload},
	}

	if _, err := w.Write(encodeHeader(opts.Compression, name)); err != nil {
		return err
	}

	offset := uint64(headerSize)
	dir := make([]byte, 0, len(sections)*dirEntrySize)

	for _, s := range sections {
		stored, err := compressSection(s.payload, opts.Compression)
		if err != nil {
			return err
		}

		if _, err := w.Write(stored); err != nil {
			return err
		}

		var entry [dirEntrySize]byte
		binary.LittleEndian.PutUint32(entry[0:], s.typ)
		binary.LittleEndian.PutUint32(entry[4:], crc32.ChecksumIEEE(stored))
		binary.LittleEndian.PutUint64(entry[8:], offset)
		binary.LittleEndian.PutUint64(entry[16:], uint64(len(stored)))
		dir = append(dir, entry[:]...)

		offset += uint64(len(stored))
	}

	if _, err := w.Write(dir); err != nil {
		return err
	}

	_, err = w.Write(encodeFooter(offset, len(sections)))

	return err
}

// Read decodes a container from r, verifying framing and per-section
// checksums. Unknown section types are skipped for forward compatibility.
func Read(r io.ReaderAt, size int64) (*Snapshot, error) {
	if size < headerSize+footerSize {
		return nil, fmt.Errorf("%w: %d bytes is smaller than the fixed framing", ErrCorrupt, size)
	}

	hdrBuf := make([]byte, headerSize)
	if _, err := r.ReadAt(hdrBuf, 0); err != nil {
		return nil, err
	}

	hdr, err := decodeHeader(hdrBuf)
	if err != nil {
		return nil, err
	}

	cdc, ok := codec.ByName(hdr.codecName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, hdr.codecName)
	}

	ftrBuf := make([]byte, footerSize)
	if _, err := r.ReadAt(ftrBuf, size-footerSize); err != nil {
		return nil, err
	}

	dirOffset, count, err := decodeFooter(ftrBuf)
	if err != nil {
		return nil, err
	}

	if dirOffset < headerSize || dirOffset > uint64(size-footerSize) {
		return nil, fmt.Errorf("%w: directory offset out of range", ErrCorrupt)
	}

	if uint64(count)*dirEntrySize != uint64(size-footerSize)-dirOffset {
		return nil, fmt.Errorf("%w: directory length does not match its section count", ErrCorrupt)
	}

	if count == 0 {
		return nil, fmt.Errorf("%w: no sections", ErrCorrupt)
	}

	dirBuf := make([]byte, int(count)*dirEntrySize)
	if _, err := r.ReadAt(dirBuf, int64(dirOffset)); err != nil {
		return nil, err
	}

	snap := &Snapshot{}

	var have uint8

	for i := 0; i < int(count); i++ {
		entry := dirBuf[i*dirEntrySize:]
		typ := binary.LittleEndian.Uint32(entry[0:])
		sum := binary.LittleEndian.Uint32(entry[4:])
		off := binary.LittleEndian.Uint64(entry[8:])
		length := binary.LittleEndian.Uint64(entry[16:])

		if off < headerSize || off+length < off || off+length > dirOffset {
			return nil, fmt.Errorf("%w: %s section outside the data area", ErrCorrupt, sectionName(typ))
		}

		stored := make([]byte, length)
		if _, err := r.ReadAt(stored, int64(off)); err != nil {
			return nil, err
		}

		if got := crc32.ChecksumIEEE(stored); got != sum {
			return nil, &ChecksumError{Section: sectionName(typ), Expected: sum, Actual: got}
		}

		payload, err := decompressSection(stored, hdr.compression)
		if err != nil {
			return nil, fmt.Errorf("%w: %s section: %w", ErrCorrupt, sectionName(typ), err)
		}

		switch typ {
		case sectionItems:
			snap.Items, err = decodeItems(payload)
			have |= 1 << 0
		case sectionRecords:
			snap.Records, err = decodeRecords(payload)
			have |= 1 << 1
		case sectionConfig:
			if err = cdc.Unmarshal(payload, &snap.Config); err != nil {
				err = fmt.Errorf("%w: decode config: %w", ErrCorrupt, err)
			}
			have |= 1 << 2
		case sectionFingerprint:
			if err = cdc.Unmarshal(payload, &snap.Fingerprint); err != nil {
				err = fmt.Errorf("%w: decode fingerprint: %w", ErrCorrupt, err)
			}
			have |= 1 << 3
		}

		if err != nil {
			return nil, err
		}
	}

	if have != 0b1111 {
		return nil, fmt.Errorf("%w: required sections missing", ErrCorrupt)
	}

	return snap, nil
}

// Restore reassembles the tree over s after verifying that s matches the
// snapshot's fingerprint. No distances are recomputed; use Tree.Validate
// to re-verify the geometry against untrusted data.
func Restore[I any](s *space.Space[I], snap *Snapshot) (*cluster.Tree[I], error) {
	if snap == nil {
		return nil, ErrNilSnapshot
	}

	if s == nil {
		return nil, cluster.ErrNilSpace
	}

	if name := s.Metric().Name(); name != snap.Fingerprint.Metric {
		return nil, fmt.Errorf("%w: snapshot metric %q, space metric %q", ErrMismatch, snap.Fingerprint.Metric, name)
	}

	if s.Len() != snap.Fingerprint.Cardinality {
		return nil, fmt.Errorf("%w: snapshot covers %d items, space has %d", ErrMismatch, snap.Fingerprint.Cardinality, s.Len())
	}

	return cluster.Reassemble(s, snap.Config, snap.Items, snap.Records)
}

// Load reads a container from r and restores the tree over s.
func Load[I any](r io.ReaderAt, size int64, s *space.Space[I]) (*cluster.Tree[I], error) {
	snap, err := Read(r, size)
	if err != nil {
		return nil, err
	}

	return Restore(s, snap)
}
