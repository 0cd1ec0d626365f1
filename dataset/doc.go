// Package dataset defines indexed item access for metric spaces and
// provides the common implementations: in-memory slices, contiguous
// float64 matrices, and read-only memory-mapped matrix files for
// datasets that should not be copied onto the heap.
package dataset
