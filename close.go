package metrigo

// Close releases the engine's worker pool. It is safe to call on a nil
// receiver and more than once. After Close, every operation reports
// ErrClosed; in-flight queries drain before the pool shuts down.
func (mg *Metrigo[I]) Close() error {
	if mg == nil {
		return nil
	}
	if !mg.closed.CompareAndSwap(false, true) {
		return nil
	}
	if mg.pool != nil {
		mg.pool.Close()
	}
	return nil
}
