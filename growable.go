package growable

import (
	"fmt"
	"math"
	"unsafe"

	cerrors "github.com/cockroachdb/errors"

	"github.com/shoujo/growable/internal/heap"
	"github.com/shoujo/growable/memutil"
)

// zeroBase backs every zero-length block and zero-sized value. It is never
// read or written; it only provides a stable non-nil address.
var zeroBase byte

// Growable is a chunk of raw heap memory with a known length and alignment
// and no type information. Until a value is consumed into it, it can be
// cloned, grown, and released. A Growable only ever gets bigger: across many
// consume/free rounds it converges to the high-water mark of the sizes it
// has held and stops reallocating.
//
// The zero value is an empty block, identical to Empty().
type Growable struct {
	len   int
	align uint
	ptr   unsafe.Pointer
}

var _ memutil.Validatable = Growable{}

// Empty returns a block with no backing allocation. Memory is only reserved
// once a value is consumed into it.
func Empty() Growable {
	return Growable{align: 1}
}

// WithCapacity returns a block backed by exactly length bytes aligned to
// alignment. alignment must be a power of two and length rounded up to
// alignment must not overflow; violating either is a programmer error and
// panics. A length of zero reserves nothing but still checks the alignment.
func WithCapacity(length int, alignment uint) Growable {
	if err := memutil.CheckPow2(alignment, "alignment"); err != nil {
		panic(err)
	}
	if length < 0 || length > math.MaxInt-int(alignment-1) {
		panic(cerrors.Newf("growable: capacity of %d bytes aligned to %d overflows", length, alignment))
	}
	if length == 0 {
		return Growable{align: alignment}
	}

	return Growable{
		len:   length,
		align: alignment,
		ptr:   heap.Allocate(length, alignment),
	}
}

// WithCapacityFor returns a block sized and aligned for a value of type T.
func WithCapacityFor[T any]() Growable {
	var t T
	return WithCapacity(int(unsafe.Sizeof(t)), uint(unsafe.Alignof(t)))
}

// Len returns the number of bytes this block has reserved.
func (g Growable) Len() int {
	return g.len
}

// Alignment returns the alignment of the block's backing memory.
func (g Growable) Alignment() uint {
	if g.align == 0 {
		return 1
	}
	return g.align
}

// Clone returns a fresh block with the same capacity and alignment as this
// one. The bytes themselves are never copied; a block carries capacity, not
// contents.
func (g Growable) Clone() Growable {
	return WithCapacity(g.len, g.Alignment())
}

// Release hands the backing allocation back to the system allocator and
// resets the block to empty. Releasing an empty block is a no-op. A block
// that was consumed into a handle must not be released; the handle owns the
// memory from that point on.
func (g *Growable) Release() {
	if g.len > 0 {
		heap.Deallocate(g.ptr, g.len, g.align)
	}
	*g = Empty()
}

// Reset implements the reset half of the create/reset capability expected by
// generic object-pool frameworks. It deliberately does nothing: retained
// capacity is the entire point of recycling a Growable.
func (g *Growable) Reset() {}

func (g Growable) Validate() error {
	if err := memutil.CheckPow2(g.Alignment(), "alignment"); err != nil {
		return err
	}
	if g.len == 0 && g.ptr != nil {
		return cerrors.New("empty block holds a backing allocation")
	}
	if g.len > 0 && g.ptr == nil {
		return cerrors.Newf("block claims %d bytes but has no backing allocation", g.len)
	}
	if g.len > 0 && uintptr(g.ptr)&uintptr(g.align-1) != 0 {
		return cerrors.Newf("block address %p is not aligned to %d", g.ptr, g.align)
	}
	return nil
}

func (g Growable) String() string {
	if g.len == 0 {
		return "Growable::None"
	}
	return fmt.Sprintf("Growable::Some { len: %d, align: %d, ptr: %p }", g.len, g.align, g.ptr)
}

// grow makes the block large and aligned enough for (minLen, minAlign). It
// never shrinks either attribute. When only the length is insufficient it
// asks the system allocator to extend the allocation in place; otherwise the
// old allocation is released and a fresh one reserved. The old bytes are not
// preserved: grow is only called immediately before the block is overwritten
// with a new value.
func (g *Growable) grow(minLen int, minAlign uint) {
	if err := memutil.CheckPow2(minAlign, "alignment"); err != nil {
		panic(err)
	}

	if g.len == 0 {
		*g = WithCapacity(minLen, maxAlign(g.Alignment(), minAlign))
		return
	}
	if g.len >= minLen && g.align >= minAlign {
		return
	}

	newLen := g.len
	if minLen > newLen {
		newLen = minLen
	}
	newAlign := maxAlign(g.align, minAlign)

	if newAlign == g.align && heap.GrowInPlace(g.ptr, newLen) {
		g.len = newLen
		return
	}

	heap.Deallocate(g.ptr, g.len, g.align)
	*g = WithCapacity(newLen, newAlign)
}

// data returns the address a value of size bytes should live at. Zero-sized
// values share a sentinel address and never touch the backing memory.
func (g Growable) data(size int) unsafe.Pointer {
	if size == 0 {
		return unsafe.Pointer(&zeroBase)
	}
	return g.ptr
}

func maxAlign(a, b uint) uint {
	if a > b {
		return a
	}
	return b
}
