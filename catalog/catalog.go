// Package catalog tracks published snapshot generations in a directory.
//
// Every Publish writes a new MANIFEST-%06d file holding the full entry
// history and then atomically flips the CURRENT pointer to it, so readers
// always see either the previous generation or the new one, never a
// partial state. Snapshot files live in the same directory under the
// names the entries carry.
//
// For publishing to object storage with multiple writers, see
// blobstore/s3.CommitStore, which provides the same pointer semantics on
// DynamoDB.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hupe1980/metrigo/codec"
	"github.com/hupe1980/metrigo/internal/fs"
)

const (
	manifestPrefix = "MANIFEST"
	currentName    = "CURRENT"

	// manifestFormat is bumped when the manifest encoding changes.
	manifestFormat = 1
)

// ErrEmpty is returned by Current when nothing has been published yet.
var ErrEmpty = errors.New("catalog: no published snapshot")

// Entry describes one published snapshot generation.
type Entry struct {
	// Version is assigned by Publish, starting at 1.
	Version uint64 `json:"version"`

	// Snapshot is the snapshot file name, relative to the catalog
	// directory.
	Snapshot string `json:"snapshot"`

	// CreatedAt is when the entry was published.
	CreatedAt time.Time `json:"created_at"`

	// Summary carries the tree shape stats worth showing in listings.
	Summary Summary `json:"summary"`
}

// Summary is the slice of tree statistics a catalog listing shows.
type Summary struct {
	Metric      string  `json:"metric"`
	Cardinality int     `json:"cardinality"`
	Height      int     `json:"height"`
	NodeCount   int     `json:"node_count"`
	LeafCount   int     `json:"leaf_count"`
	RootRadius  float64 `json:"root_radius"`
}

// manifestFile is the on-disk layout of a MANIFEST file.
type manifestFile struct {
	Format  int     `json:"format"`
	Entries []Entry `json:"entries"`
}

// Store manages the manifest history and the CURRENT pointer of one
// catalog directory.
type Store struct {
	fsys  fs.FileSystem
	dir   string
	codec codec.Codec

	mu sync.Mutex
}

// Open opens the catalog in dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	return newStore(fs.Default, dir)
}

func newStore(fsys fs.FileSystem, dir string) (*Store, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}

	return &Store{
		fsys:  fsys,
		dir:   dir,
		codec: codec.Default,
	}, nil
}

// Dir returns the catalog directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute path of an entry's snapshot file.
func (s *Store) Path(e Entry) string {
	return filepath.Join(s.dir, e.Snapshot)
}

// Publish appends a new generation and flips CURRENT to it. The entry's
// Version is assigned here; CreatedAt is stamped when zero. The returned
// version is 1 for the first publish and increases by one from there.
func (s *Store) Publish(entry Entry) (uint64, error) {
	if entry.Snapshot == "" || entry.Snapshot != filepath.Base(entry.Snapshot) {
		return 0, fmt.Errorf("catalog: invalid snapshot name %q", entry.Snapshot)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return 0, err
	}

	entry.Version = uint64(len(m.Entries)) + 1
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	m.Format = manifestFormat
	m.Entries = append(m.Entries, entry)

	data, err := s.codec.Marshal(m)
	if err != nil {
		return 0, fmt.Errorf("encode manifest: %w", err)
	}

	name := fmt.Sprintf("%s-%06d.%s", manifestPrefix, entry.Version, s.codec.Name())
	if err := s.writeFileAtomic(name, data); err != nil {
		return 0, err
	}

	if err := s.writeFileAtomic(currentName, []byte(name)); err != nil {
		return 0, err
	}

	return entry.Version, nil
}

// Current returns the most recently published entry.
func (s *Store) Current() (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return Entry{}, err
	}

	if len(m.Entries) == 0 {
		return Entry{}, ErrEmpty
	}

	return m.Entries[len(m.Entries)-1], nil
}

// List returns all published entries in version order.
func (s *Store) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return nil, err
	}

	out := make([]Entry, len(m.Entries))
	copy(out, m.Entries)

	return out, nil
}

// load reads the manifest CURRENT points at. A missing CURRENT is an
// empty catalog, not an error.
func (s *Store) load() (*manifestFile, error) {
	current, err := s.readFile(filepath.Join(s.dir, currentName))
	if errors.Is(err, os.ErrNotExist) {
		return &manifestFile{Format: manifestFormat}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read %s: %w", currentName, err)
	}

	name := string(current)
	if name == "" || name != filepath.Base(name) {
		return nil, fmt.Errorf("catalog: %s points at invalid manifest %q", currentName, name)
	}

	data, err := s.readFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", name, err)
	}

	var m manifestFile
	if err := s.codec.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", name, err)
	}

	if m.Format != manifestFormat {
		return nil, fmt.Errorf("catalog: unsupported manifest format %d", m.Format)
	}

	return &m, nil
}

func (s *Store) readFile(path string) ([]byte, error) {
	f, err := s.fsys.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	return io.ReadAll(f)
}

// writeFileAtomic publishes data under name via temp file, fsync and
// rename, then syncs the directory so the rename is durable.
func (s *Store) writeFileAtomic(name string, data []byte) error {
	final := filepath.Join(s.dir, name)
	tmp := final + ".tmp"

	f, err := s.fsys.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = s.fsys.Remove(tmp)

		return fmt.Errorf("write %s: %w", name, err)
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = s.fsys.Remove(tmp)

		return fmt.Errorf("sync %s: %w", name, err)
	}

	if err := f.Close(); err != nil {
		_ = s.fsys.Remove(tmp)

		return fmt.Errorf("close %s: %w", name, err)
	}

	if err := s.fsys.Rename(tmp, final); err != nil {
		_ = s.fsys.Remove(tmp)

		return fmt.Errorf("rename %s: %w", name, err)
	}

	return fs.SyncDir(s.fsys, s.dir)
}
