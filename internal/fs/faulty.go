package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrInjected is returned by a triggered fault whose rule carries no
// explicit error.
var ErrInjected = errors.New("fs: injected fault")

// Fault describes the failure behavior injected into matching files.
type Fault struct {
	// FailAfterBytes makes writes fail once this many bytes were written
	// through the handle. The byte at the limit is the first to fail, so
	// a partial prefix reaches the file. Zero disables the write fault.
	FailAfterBytes int64
	// FailOnSync makes Sync fail.
	FailOnSync bool
	// FailOnClose makes Close fail after closing the underlying file.
	FailOnClose bool
	// Err is the error a triggered fault returns. Nil means ErrInjected.
	Err error
}

func (f Fault) err() error {
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}

// FaultyFS wraps a FileSystem and injects faults into files whose name
// contains a registered substring. It exists for crash-safety tests of the
// snapshot and catalog writers.
type FaultyFS struct {
	FS FileSystem

	mu    sync.Mutex
	rules map[string]Fault
}

// NewFaultyFS wraps fsys, or Default when fsys is nil.
func NewFaultyFS(fsys FileSystem) *FaultyFS {
	if fsys == nil {
		fsys = Default
	}
	return &FaultyFS{FS: fsys, rules: make(map[string]Fault)}
}

// FailFile installs a fault for every file whose name contains pattern.
func (f *FaultyFS) FailFile(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[pattern] = fault
}

func (f *FaultyFS) lookup(name string) (Fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for pattern, fault := range f.rules {
		if strings.Contains(name, pattern) {
			return fault, true
		}
	}
	return Fault{}, false
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	if fault, ok := f.lookup(name); ok {
		return &faultyFile{File: file, fault: fault}, nil
	}
	return file, nil
}

func (f *FaultyFS) Remove(name string) error             { return f.FS.Remove(name) }
func (f *FaultyFS) Rename(oldpath, newpath string) error { return f.FS.Rename(oldpath, newpath) }

func (f *FaultyFS) Stat(name string) (os.FileInfo, error) { return f.FS.Stat(name) }

func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error {
	return f.FS.MkdirAll(path, perm)
}

func (f *FaultyFS) ReadDir(name string) ([]os.DirEntry, error) { return f.FS.ReadDir(name) }

type faultyFile struct {
	File
	fault   Fault
	written atomic.Int64
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	if ff.fault.FailAfterBytes <= 0 {
		return ff.File.Write(p)
	}

	remaining := ff.fault.FailAfterBytes - ff.written.Load()
	if remaining <= 0 {
		return 0, ff.fault.err()
	}
	if int64(len(p)) > remaining {
		n, err := ff.File.Write(p[:remaining])
		ff.written.Add(int64(n))
		if err != nil {
			return n, err
		}
		return n, ff.fault.err()
	}

	n, err := ff.File.Write(p)
	ff.written.Add(int64(n))
	return n, err
}

func (ff *faultyFile) Sync() error {
	if ff.fault.FailOnSync {
		return ff.fault.err()
	}
	return ff.File.Sync()
}

func (ff *faultyFile) Close() error {
	if ff.fault.FailOnClose {
		ff.File.Close()
		return ff.fault.err()
	}
	return ff.File.Close()
}
