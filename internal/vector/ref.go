package vector

import "sync/atomic"

// Ref holds the currently published index. Readers load it lock-free;
// a rebuild publishes a replacement in one atomic swap so in-flight
// searches keep the index they started with.
type Ref struct {
	ptr atomic.Pointer[Index]
}

// Load returns the current index, or nil when none has been published.
func (r *Ref) Load() *Index { return r.ptr.Load() }

// Publish makes idx the current index.
func (r *Ref) Publish(idx *Index) { r.ptr.Store(idx) }
