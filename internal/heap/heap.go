// Package heap is the process-wide system allocator behind growable blocks.
//
// Go does not expose malloc/free, so aligned raw memory is carved out of
// ordinary []byte allocations: each request over-allocates by the alignment
// and shifts the start of the usable region up to the next aligned address.
// The backing slice for every live allocation is retained in a registry keyed
// by the aligned address, which keeps the memory reachable for the garbage
// collector until Deallocate drops it.
package heap

import (
	"context"
	"os"
	"sync"
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slog"

	"github.com/shoujo/growable/memutil"
)

type allocation struct {
	backing []byte
	offset  int
	size    int
	align   uint
}

var (
	mu   sync.Mutex
	live = swiss.NewMap[uintptr, *allocation](42)

	fatalHandler = defaultFatalHandler
)

// SetFatalHandler replaces the handler invoked when the allocator cannot
// satisfy a request. The handler must not return; if it does, the allocator
// panics. The previous handler is returned so tests can restore it.
func SetFatalHandler(handler func(size int, align uint)) func(size int, align uint) {
	mu.Lock()
	defer mu.Unlock()

	previous := fatalHandler
	fatalHandler = handler
	return previous
}

func defaultFatalHandler(size int, align uint) {
	slog.Default().LogAttrs(context.Background(), slog.LevelError,
		"growable: system allocator exhausted",
		slog.Int("size", size),
		slog.Uint64("align", uint64(align)),
	)
	os.Exit(2)
}

// OutOfMemory routes an unsatisfiable request through the fatal handler.
// It never returns.
func OutOfMemory(size int, align uint) {
	mu.Lock()
	handler := fatalHandler
	mu.Unlock()

	handler(size, align)
	panic(cerrors.Newf("growable: fatal out-of-memory handler returned for request of %d bytes", size))
}

// Allocate reserves size bytes aligned to align and returns the aligned
// address. size must be positive and align a power of two; both are the
// caller's contract. Exhaustion is fatal and never returns.
func Allocate(size int, align uint) unsafe.Pointer {
	buf := systemAlloc(size, align)

	base := unsafe.Pointer(unsafe.SliceData(buf))
	offset := memutil.AlignUp(int(uintptr(base)), align) - int(uintptr(base))

	a := &allocation{
		backing: buf,
		offset:  offset,
		size:    size,
		align:   align,
	}
	ptr := unsafe.Add(base, offset)

	mu.Lock()
	live.Put(uintptr(ptr), a)
	mu.Unlock()

	return ptr
}

// Deallocate releases the allocation at ptr. The size and align must be the
// values the allocation was last sized with; a mismatch or an unknown address
// is a double free or a stray pointer and panics.
func Deallocate(ptr unsafe.Pointer, size int, align uint) {
	mu.Lock()
	defer mu.Unlock()

	a, ok := live.Get(uintptr(ptr))
	if !ok {
		panic(cerrors.Newf("growable: deallocating unknown address %p (double free?)", ptr))
	}
	if a.size != size || a.align != align {
		panic(cerrors.Newf("growable: deallocating %p with layout (%d, %d), allocated with (%d, %d)",
			ptr, size, align, a.size, a.align))
	}

	live.Delete(uintptr(ptr))
}

// GrowInPlace extends the allocation at ptr to newSize bytes without moving
// it, returning true on success. It succeeds only when the backing region
// already has enough spare capacity past the aligned start.
func GrowInPlace(ptr unsafe.Pointer, newSize int) bool {
	mu.Lock()
	defer mu.Unlock()

	a, ok := live.Get(uintptr(ptr))
	if !ok {
		panic(cerrors.Newf("growable: growing unknown address %p", ptr))
	}

	if len(a.backing)-a.offset < newSize {
		return false
	}

	a.size = newSize
	return true
}

// LiveCount reports the number of live allocations in the registry.
func LiveCount() int {
	mu.Lock()
	defer mu.Unlock()

	return live.Count()
}

func systemAlloc(size int, align uint) (buf []byte) {
	defer func() {
		if r := recover(); r != nil {
			// makeslice rejected the request; treat as exhaustion.
			OutOfMemory(size, align)
		}
	}()
	return make([]byte, size+int(align-1))
}
