package growable

import (
	"math"
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"

	"github.com/shoujo/growable/memutil"
)

const (
	// DefaultBlockCapacity is the size in bytes of a freshly manufactured
	// idle block when the builder is not told otherwise.
	DefaultBlockCapacity = 8
	// DefaultBlockAlignment is the alignment of a freshly manufactured idle
	// block when the builder is not told otherwise.
	DefaultBlockAlignment uint = 8
)

// GrowablePoolBuilder configures and builds a GrowablePool.
type GrowablePoolBuilder struct {
	defaultCapacity  int
	defaultAlignment uint
	capacity         int
	overgrow         bool
	logger           *slog.Logger
	name             string
}

// NewPoolBuilder returns a builder with the default configuration: 8-byte
// blocks aligned to 8, no pre-populated idle blocks, overgrow permitted.
func NewPoolBuilder() *GrowablePoolBuilder {
	return &GrowablePoolBuilder{
		defaultCapacity:  DefaultBlockCapacity,
		defaultAlignment: DefaultBlockAlignment,
		overgrow:         true,
	}
}

// WithDefaultCapacity sets the size in bytes of freshly manufactured idle
// blocks.
func (b *GrowablePoolBuilder) WithDefaultCapacity(capacity int) *GrowablePoolBuilder {
	b.defaultCapacity = capacity
	return b
}

// WithDefaultAlignment sets the alignment of freshly manufactured idle
// blocks. It must be a power of two.
func (b *GrowablePoolBuilder) WithDefaultAlignment(alignment uint) *GrowablePoolBuilder {
	b.defaultAlignment = alignment
	return b
}

// WithCapacity sets the target number of idle blocks the pool maintains. The
// pool is pre-populated with this many blocks at build time.
func (b *GrowablePoolBuilder) WithCapacity(capacity int) *GrowablePoolBuilder {
	b.capacity = capacity
	return b
}

// WithOvergrow controls whether the idle count may exceed the target
// capacity. When false, freed blocks beyond the target are discarded rather
// than stored.
func (b *GrowablePoolBuilder) WithOvergrow(overgrow bool) *GrowablePoolBuilder {
	b.overgrow = overgrow
	return b
}

// WithLogger sets the logger the pool writes Debug entries to. Defaults to
// slog.Default().
func (b *GrowablePoolBuilder) WithLogger(logger *slog.Logger) *GrowablePoolBuilder {
	b.logger = logger
	return b
}

// WithName sets the name the pool reports in logs and stats dumps.
func (b *GrowablePoolBuilder) WithName(name string) *GrowablePoolBuilder {
	b.name = name
	return b
}

// Build allocates the configured number of idle blocks and returns the pool.
// A non-power-of-two alignment or a negative capacity is a programmer error
// and panics.
func (b *GrowablePoolBuilder) Build() *GrowablePool {
	if err := memutil.CheckPow2(b.defaultAlignment, "defaultAlignment"); err != nil {
		panic(err)
	}
	if b.defaultCapacity < 0 {
		panic(cerrors.Newf("growable: negative default block capacity %d", b.defaultCapacity))
	}
	if b.capacity < 0 {
		panic(cerrors.Newf("growable: negative pool capacity %d", b.capacity))
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	pool := &GrowablePool{
		logger:           logger,
		name:             b.name,
		defaultCapacity:  b.defaultCapacity,
		defaultAlignment: b.defaultAlignment,
		capacity:         b.capacity,
		overgrow:         b.overgrow,
	}
	pool.lifetime.allocationSizeMin = math.MaxInt
	pool.manufacture(b.capacity)
	return pool
}

// GrowablePool maintains a reservoir of idle Growables so that consuming a
// value rarely touches the system allocator. The most recently freed block
// is always the first one reused: a just-touched block is likely still warm
// in cache, and callers may rely on this LIFO order.
//
// The pool is not internally synchronized. Concurrent use of one pool from
// multiple goroutines requires external locking; independent goroutines
// should each own a pool.
type GrowablePool struct {
	logger *slog.Logger
	name   string

	defaultCapacity  int
	defaultAlignment uint
	capacity         int
	overgrow         bool

	// idle is a stack: the front of the pool is the end of the slice.
	idle []Growable

	lifetime poolCounters
}

type poolCounters struct {
	allocations       int
	allocationBytes   int
	allocationSizeMin int
	allocationSizeMax int
	frees             int
	discards          int
	manufactured      int
	idleHighWater     int
}

var _ memutil.Validatable = (*GrowablePool)(nil)

// Allocate takes an idle block from the front of the pool and consumes value
// into it, manufacturing a fresh batch of blocks first if the pool is
// exhausted.
func Allocate[T any](pool *GrowablePool, value T) *Reusable[T] {
	pool.logger.Debug("GrowablePool::Allocate")

	var t T
	pool.recordAllocation(int(unsafe.Sizeof(t)))
	return Consume(pool.take(), value)
}

// AllocateAs takes an idle block from the front of the pool and consumes
// value into it, narrowed to the interface type I as with ConsumeAs.
func AllocateAs[I any, T any](pool *GrowablePool, value T) *ReusableIface[I] {
	pool.logger.Debug("GrowablePool::AllocateAs")

	var t T
	pool.recordAllocation(int(unsafe.Sizeof(t)))
	return ConsumeAs[I](pool.take(), value)
}

// AllocateSlice takes an idle block from the front of the pool and consumes
// elems into it as with ConsumeSlice.
func AllocateSlice[E any](pool *GrowablePool, elems []E) *ReusableSlice[E] {
	pool.logger.Debug("GrowablePool::AllocateSlice")

	var e E
	pool.recordAllocation(int(unsafe.Sizeof(e)) * len(elems))
	return ConsumeSlice(pool.take(), elems)
}

// Free destroys the handle's value and reinserts the recovered block at the
// front of the pool. When overgrow is disabled and the pool already holds
// its target capacity, the block is discarded instead.
func (p *GrowablePool) Free(handle Freeable) {
	p.logger.Debug("GrowablePool::Free")

	block := handle.Free()
	p.lifetime.frees++

	if !p.overgrow && len(p.idle) >= p.capacity {
		block.Release()
		p.lifetime.discards++
		return
	}

	p.idle = append(p.idle, block)
	if len(p.idle) > p.lifetime.idleHighWater {
		p.lifetime.idleHighWater = len(p.idle)
	}
}

// Len reports the number of idle blocks currently held. Blocks checked out
// as handles are not counted.
func (p *GrowablePool) Len() int {
	return len(p.idle)
}

// IsEmpty reports whether the pool holds no idle blocks.
func (p *GrowablePool) IsEmpty() bool {
	return len(p.idle) == 0
}

// Clone builds a fresh pool from this pool's configuration. The current
// idle contents are not copied.
func (p *GrowablePool) Clone() *GrowablePool {
	p.logger.Debug("GrowablePool::Clone")

	builder := &GrowablePoolBuilder{
		defaultCapacity:  p.defaultCapacity,
		defaultAlignment: p.defaultAlignment,
		capacity:         p.capacity,
		overgrow:         p.overgrow,
		logger:           p.logger,
		name:             p.name,
	}
	return builder.Build()
}

// Destroy releases every idle block back to the system allocator and empties
// the pool. Handles still checked out remain valid; freeing them into a
// destroyed pool stores or discards their blocks per the overgrow policy.
func (p *GrowablePool) Destroy() {
	p.logger.Debug("GrowablePool::Destroy")

	for i := range p.idle {
		p.idle[i].Release()
	}
	p.idle = p.idle[:0]
}

// SetName sets the name the pool reports in logs and stats dumps.
func (p *GrowablePool) SetName(name string) {
	p.logger.Debug("GrowablePool::SetName")

	p.name = name
}

// Name returns the pool's name.
func (p *GrowablePool) Name() string {
	return p.name
}

func (p *GrowablePool) Validate() error {
	if err := memutil.CheckPow2(p.defaultAlignment, "defaultAlignment"); err != nil {
		return err
	}
	if !p.overgrow && len(p.idle) > p.capacity {
		return cerrors.Newf("pool holds %d idle blocks with overgrow disabled and a target of %d",
			len(p.idle), p.capacity)
	}
	for i := range p.idle {
		if err := p.idle[i].Validate(); err != nil {
			return cerrors.Wrapf(err, "idle block %d", i)
		}
	}
	return nil
}

// AddStatistics sums this pool's occupancy and lifetime counters into stats.
func (p *GrowablePool) AddStatistics(stats *memutil.Statistics) {
	for i := range p.idle {
		stats.BlockCount++
		stats.BlockBytes += p.idle[i].Len()
	}
	stats.AllocationCount += p.lifetime.allocations
	stats.AllocationBytes += p.lifetime.allocationBytes
}

// AddDetailedStatistics sums this pool's occupancy, lifetime counters, and
// size extremes into stats.
func (p *GrowablePool) AddDetailedStatistics(stats *memutil.DetailedStatistics) {
	for i := range p.idle {
		stats.AddBlock(p.idle[i].Len())
	}
	stats.AllocationCount += p.lifetime.allocations
	stats.AllocationBytes += p.lifetime.allocationBytes

	if p.lifetime.allocations > 0 {
		if p.lifetime.allocationSizeMin < stats.AllocationSizeMin {
			stats.AllocationSizeMin = p.lifetime.allocationSizeMin
		}
		if p.lifetime.allocationSizeMax > stats.AllocationSizeMax {
			stats.AllocationSizeMax = p.lifetime.allocationSizeMax
		}
	}
}

// take removes one idle block from the front of the pool, manufacturing a
// batch of max(capacity, 1) fresh blocks first if none are idle. The bulk
// top-up amortizes exhaustion across many subsequent allocations.
func (p *GrowablePool) take() Growable {
	if len(p.idle) == 0 {
		batch := p.capacity
		if batch < 1 {
			batch = 1
		}
		p.manufacture(batch)
	}

	block := p.idle[len(p.idle)-1]
	p.idle = p.idle[:len(p.idle)-1]
	return block
}

func (p *GrowablePool) manufacture(count int) {
	for i := 0; i < count; i++ {
		p.idle = append(p.idle, WithCapacity(p.defaultCapacity, p.defaultAlignment))
	}
	p.lifetime.manufactured += count
	if len(p.idle) > p.lifetime.idleHighWater {
		p.lifetime.idleHighWater = len(p.idle)
	}
}

func (p *GrowablePool) recordAllocation(size int) {
	p.lifetime.allocations++
	p.lifetime.allocationBytes += size
	if size < p.lifetime.allocationSizeMin {
		p.lifetime.allocationSizeMin = size
	}
	if size > p.lifetime.allocationSizeMax {
		p.lifetime.allocationSizeMax = size
	}
}
