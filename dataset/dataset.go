package dataset

// Dataset provides indexed access to the items a metric space is built
// over. Identifiers are positions: stable for the dataset's lifetime and
// never reused. Implementations must be safe for concurrent readers; the
// engine never mutates a dataset.
type Dataset[I any] interface {
	// Len returns the number of items.
	Len() int
	// At returns the item with identifier i. It panics if i is out of
	// range, like a slice index.
	At(i int) I
}

// Slice adapts an in-memory slice into a Dataset. The slice must not be
// mutated while any tree built over it is in use.
type Slice[I any] []I

// Len returns the number of items.
func (s Slice[I]) Len() int { return len(s) }

// At returns the item at position i.
func (s Slice[I]) At(i int) I { return s[i] }
