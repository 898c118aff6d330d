package growable

import "github.com/peczenyj/xpool"

// Recycler hands idle Growables out of a generic object-pool framework
// instead of this package's own GrowablePool. It exists for callers already
// committed to such a framework; Growable's create/reset capability (empty
// construction plus the no-op Reset) is all the integration requires.
//
// Unlike GrowablePool, a Recycler is safe for concurrent use, but offers no
// capacity target, no overgrow policy, and no LIFO guarantee.
type Recycler struct {
	pool xpool.Pool[*Growable]
}

// NewRecycler returns a Recycler with an empty reservoir. Blocks are
// manufactured empty on demand and grow lazily as values are consumed into
// them.
func NewRecycler() *Recycler {
	return &Recycler{
		pool: xpool.New(func() *Growable {
			block := Empty()
			return &block
		}),
	}
}

// Get returns an idle block, manufacturing an empty one if none are held.
func (r *Recycler) Get() *Growable {
	return r.pool.Get()
}

// Put resets block and stores it for reuse. The block keeps its capacity;
// reset deliberately does not release memory.
func (r *Recycler) Put(block *Growable) {
	block.Reset()
	r.pool.Put(block)
}
