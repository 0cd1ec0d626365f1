package cache

import (
	"container/list"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DiskConfig configures a disk-backed block cache.
type DiskConfig struct {
	// Dir is the directory cache files live in. It is created if missing.
	Dir string
	// MaxBytes caps the bytes kept on disk.
	MaxBytes int64
	// MaxPendingWrites bounds concurrent background fills. 0 defaults to 16.
	MaxPendingWrites int64
}

// Disk is a block cache backed by the local filesystem, for blobs whose
// backend is remote. Fills happen in the background; a fill that cannot
// get a write slot is dropped rather than queued. The on-disk layout is
// one directory per blob name, so the index can be rebuilt on startup and
// a whole blob invalidated with a single directory removal.
type Disk struct {
	mu        sync.Mutex
	dir       string
	maxBytes  int64
	bytes     int64
	items     map[Key]*list.Element
	evictList *list.List

	writeSem *semaphore.Weighted
	wg       sync.WaitGroup

	hits   atomic.Int64
	misses atomic.Int64
}

type diskEntry struct {
	key  Key
	path string
	size int64
}

// NewDisk creates a disk cache rooted at cfg.Dir and rebuilds the index
// from files already present.
func NewDisk(cfg DiskConfig) (*Disk, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}

	pending := cfg.MaxPendingWrites
	if pending <= 0 {
		pending = 16
	}

	c := &Disk{
		dir:       cfg.Dir,
		maxBytes:  cfg.MaxBytes,
		items:     make(map[Key]*list.Element),
		evictList: list.New(),
		writeSem:  semaphore.NewWeighted(pending),
	}

	c.scan()

	return c, nil
}

// scan rebuilds the index from the fixed two-level layout
// dir/<escaped name>/<block>.blk. Unparseable files are ignored.
func (c *Disk) scan() {
	dirs, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}

	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}

		name, err := url.PathUnescape(d.Name())
		if err != nil {
			continue
		}

		files, err := os.ReadDir(filepath.Join(c.dir, d.Name()))
		if err != nil {
			continue
		}

		for _, f := range files {
			block, ok := parseBlockFile(f.Name())
			if !ok {
				continue
			}

			info, err := f.Info()
			if err != nil {
				continue
			}

			path := filepath.Join(c.dir, d.Name(), f.Name())
			c.addLocked(Key{Name: name, Block: block}, path, info.Size())
		}
	}
}

func parseBlockFile(name string) (uint64, bool) {
	base, ok := strings.CutSuffix(name, ".blk")
	if !ok {
		return 0, false
	}

	block, err := strconv.ParseUint(base, 10, 64)
	if err != nil {
		return 0, false
	}

	return block, true
}

func (c *Disk) blockPath(key Key) string {
	return filepath.Join(c.dir, url.PathEscape(key.Name), fmt.Sprintf("%d.blk", key.Block))
}

// Get returns a cached block, reading it from disk. An entry whose file
// has vanished is dropped from the index.
func (c *Disk) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	ent, ok := c.items[key]
	if ok {
		c.evictList.MoveToFront(ent)
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	data, err := os.ReadFile(ent.Value.(*diskEntry).path)
	if err != nil {
		c.mu.Lock()
		if cur, still := c.items[key]; still && cur == ent {
			c.removeElement(cur)
		}
		c.mu.Unlock()

		c.misses.Add(1)

		return nil, false
	}

	c.hits.Add(1)

	return data, true
}

// Set schedules a background write of the block. Existing entries are
// only touched: blocks are immutable, so a rewrite would be wasted IO.
func (c *Disk) Set(key Key, b []byte) {
	c.mu.Lock()

	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		c.mu.Unlock()

		return
	}

	size := int64(len(b))
	if size > c.maxBytes {
		c.mu.Unlock()
		return
	}

	// Make room up front so concurrent fills cannot overshoot the budget
	// by more than the writes in flight.
	for c.bytes+size > c.maxBytes {
		tail := c.evictList.Back()
		if tail == nil {
			break
		}

		c.removeElement(tail)
	}

	c.mu.Unlock()

	if !c.writeSem.TryAcquire(1) {
		return
	}

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		defer c.writeSem.Release(1)

		path := c.blockPath(key)
		if err := writeFileAtomic(path, b); err != nil {
			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		if _, ok := c.items[key]; ok {
			return
		}

		for c.bytes+size > c.maxBytes {
			tail := c.evictList.Back()
			if tail == nil {
				break
			}

			c.removeElement(tail)
		}

		c.addLocked(key, path, size)
	}()
}

func writeFileAtomic(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "fill-*")
	if err != nil {
		return err
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	return nil
}

// InvalidateName drops every block belonging to the named blob and removes
// its directory in one call.
func (c *Disk) InvalidateName(name string) {
	c.mu.Lock()

	var stale []*list.Element

	for key, ent := range c.items {
		if key.Name == name {
			stale = append(stale, ent)
		}
	}

	for _, ent := range stale {
		c.evictList.Remove(ent)
		de := ent.Value.(*diskEntry)
		delete(c.items, de.key)
		c.bytes -= de.size
	}

	c.mu.Unlock()

	_ = os.RemoveAll(filepath.Join(c.dir, url.PathEscape(name)))
}

// Stats returns cache statistics.
func (c *Disk) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: len(c.items),
		Bytes:   c.bytes,
	}
}

// Close waits for in-flight background writes to finish.
func (c *Disk) Close() error {
	c.wg.Wait()
	return nil
}

// addLocked inserts an entry. Callers hold mu except during construction.
func (c *Disk) addLocked(key Key, path string, size int64) {
	c.items[key] = c.evictList.PushFront(&diskEntry{key: key, path: path, size: size})
	c.bytes += size
}

func (c *Disk) removeElement(e *list.Element) {
	c.evictList.Remove(e)

	de := e.Value.(*diskEntry)
	delete(c.items, de.key)
	c.bytes -= de.size

	_ = os.Remove(de.path)
}
