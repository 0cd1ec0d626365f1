package search

import "github.com/RoaringBitmap/roaring/v2"

// Filter restricts a search to a subset of item ids. Allow is called before
// any distance to the item is computed, so rejected items cost nothing.
// Implementations must be safe for concurrent use when shared across batch
// queries.
type Filter interface {
	Allow(id int) bool
}

// FilterFunc adapts a plain function to the Filter interface.
type FilterFunc func(id int) bool

// Allow implements Filter.
func (f FilterFunc) Allow(id int) bool { return f(id) }

// BitmapFilter allows exactly the ids present in a roaring bitmap. The
// bitmap is shared, not copied; it must not be mutated while searches run.
type BitmapFilter struct {
	bm *roaring.Bitmap
}

// NewBitmapFilter wraps an id set as a Filter.
func NewBitmapFilter(bm *roaring.Bitmap) *BitmapFilter {
	return &BitmapFilter{bm: bm}
}

// Allow implements Filter.
func (f *BitmapFilter) Allow(id int) bool {
	return id >= 0 && f.bm.Contains(uint32(id))
}
