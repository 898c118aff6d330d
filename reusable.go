package growable

import (
	"reflect"
	"sync"
	"unsafe"

	cerrors "github.com/cockroachdb/errors"

	"github.com/shoujo/growable/memutil"
)

// Dropper is the destructor capability. When a consumed value's pointer type
// implements Dropper, Drop is invoked exactly once on every destruction path
// except FreeMove, which deliberately salvages the value instead.
type Dropper interface {
	Drop()
}

// Freeable is any handle that can destroy its value and hand the backing
// block back for reuse. All three handle shapes implement it; GrowablePool
// reclaims through it.
type Freeable interface {
	// Free destroys the contained value and returns a Growable describing
	// the same memory, ready for reuse. The handle is dead afterwards.
	Free() Growable
}

// leakTracked is implemented by every handle so the debug_growable build can
// attach a finalizer that reports handles dropped without Free or Release.
type leakTracked interface {
	reportLeak()
}

// Reusable is an owned, typed view over a Growable's contents. It behaves
// like a Box: the handle owns the value and the memory behind it. Unlike a
// Box it can be freed manually, fetching the Growable back so the same bytes
// can hold a different type on the next consume.
type Reusable[T any] struct {
	block Growable
	ptr   *T
	dead  bool
}

// Consume writes value into the block and returns the handle that owns it. A
// reallocation is only performed if the block is too small or its alignment
// is too weak for T; the requested length is rounded up to the next power of
// two so blocks converge quickly across consumes of different types.
//
// T must not contain Go pointers in its stored representation (pointers,
// maps, slices, strings, chans, funcs, interfaces): the garbage collector
// does not scan raw blocks. Violating this panics.
func Consume[T any](g Growable, value T) *Reusable[T] {
	size := int(unsafe.Sizeof(value))
	checkShape(reflect.TypeOf((*T)(nil)).Elem())

	g.grow(memutil.NextPow2(size), uint(unsafe.Alignof(value)))
	memutil.DebugValidate(g)

	ptr := (*T)(g.data(size))
	if size > 0 {
		*ptr = value
	}

	r := &Reusable[T]{block: g, ptr: ptr}
	armLeakCheck(r)
	return r
}

// Get returns the contained value for reading and writing. The pointer is
// only valid until the handle is freed.
func (r *Reusable[T]) Get() *T {
	r.mustBeLive()
	return r.ptr
}

// Free destroys the contained value and returns the backing block for reuse.
func (r *Reusable[T]) Free() Growable {
	r.mustBeLive()
	runDrop(r.ptr)
	return r.kill()
}

// FreeMove moves the value out of the handle without destroying it, and
// additionally returns the backing block for reuse.
func (r *Reusable[T]) FreeMove() (T, Growable) {
	r.mustBeLive()
	value := *r.ptr
	return value, r.kill()
}

// Release destroys the contained value and hands the backing allocation
// straight back to the system allocator. This is the scope-exit path: the
// block is not recovered for reuse.
func (r *Reusable[T]) Release() {
	block := r.Free()
	block.Release()
}

// Clone allocates a new block sized exactly for T and copies the value into
// it. The original block is left untouched. The copy is shallow, which is
// safe for the pointer-free shapes a block can hold.
func (r *Reusable[T]) Clone() *Reusable[T] {
	r.mustBeLive()

	g := WithCapacityFor[T]()
	ptr := (*T)(g.data(g.len))
	if g.len > 0 {
		*ptr = *r.ptr
	}

	clone := &Reusable[T]{block: g, ptr: ptr}
	armLeakCheck(clone)
	return clone
}

func (r *Reusable[T]) kill() Growable {
	block := r.block
	r.block = Growable{}
	r.ptr = nil
	r.dead = true
	disarmLeakCheck(r)
	return block
}

func (r *Reusable[T]) mustBeLive() {
	if r.dead {
		panic(cerrors.New("growable: handle used after free"))
	}
}

func (r *Reusable[T]) reportLeak() {
	reportLeakedHandle(r.block)
}

// ReusableIface is a handle whose contents are viewed through an interface
// the stored concrete type satisfies. The view is built once, when the value
// is consumed, and is immutable afterwards; method calls dispatch onto the
// bytes stored in the block.
type ReusableIface[I any] struct {
	block Growable
	view  I
	drop  func()
	dead  bool
}

// ConsumeAs writes value into the block, narrowed to the interface type I.
// *T must satisfy I; a shape that does not is a programmer error and panics.
// The same pointer-free constraint as Consume applies to T.
func ConsumeAs[I any, T any](g Growable, value T) *ReusableIface[I] {
	size := int(unsafe.Sizeof(value))
	checkShape(reflect.TypeOf((*T)(nil)).Elem())

	g.grow(memutil.NextPow2(size), uint(unsafe.Alignof(value)))
	memutil.DebugValidate(g)

	ptr := (*T)(g.data(size))
	if size > 0 {
		*ptr = value
	}

	view, ok := any(ptr).(I)
	if !ok {
		panic(cerrors.Newf("growable: %T does not satisfy the requested interface", ptr))
	}

	r := &ReusableIface[I]{
		block: g,
		view:  view,
		drop:  func() { runDrop(ptr) },
	}
	armLeakCheck(r)
	return r
}

// Get returns the narrowed view of the contained value.
func (r *ReusableIface[I]) Get() I {
	r.mustBeLive()
	return r.view
}

// Free destroys the contained value and returns the backing block for reuse.
func (r *ReusableIface[I]) Free() Growable {
	r.mustBeLive()
	r.drop()
	return r.kill()
}

// Release destroys the contained value and hands the backing allocation
// straight back to the system allocator.
func (r *ReusableIface[I]) Release() {
	block := r.Free()
	block.Release()
}

func (r *ReusableIface[I]) kill() Growable {
	block := r.block
	r.block = Growable{}
	var zero I
	r.view = zero
	r.drop = nil
	r.dead = true
	disarmLeakCheck(r)
	return block
}

func (r *ReusableIface[I]) mustBeLive() {
	if r.dead {
		panic(cerrors.New("growable: handle used after free"))
	}
}

func (r *ReusableIface[I]) reportLeak() {
	reportLeakedHandle(r.block)
}

// ReusableSlice is a handle whose contents are viewed as a slice of E. The
// element count is fixed when the elements are consumed.
type ReusableSlice[E any] struct {
	block Growable
	data  *E
	n     int
	dead  bool
}

// ConsumeSlice copies elems into the block and returns a handle viewing them
// as a slice. The same pointer-free constraint as Consume applies to E.
func ConsumeSlice[E any](g Growable, elems []E) *ReusableSlice[E] {
	var e E
	elemSize := int(unsafe.Sizeof(e))
	checkShape(reflect.TypeOf((*E)(nil)).Elem())

	size := elemSize * len(elems)
	if elemSize > 0 && size/elemSize != len(elems) {
		panic(cerrors.Newf("growable: slice of %d elements of size %d overflows", len(elems), elemSize))
	}

	g.grow(memutil.NextPow2(size), uint(unsafe.Alignof(e)))
	memutil.DebugValidate(g)

	data := (*E)(g.data(size))
	if size > 0 {
		copy(unsafe.Slice(data, len(elems)), elems)
	}

	r := &ReusableSlice[E]{block: g, data: data, n: len(elems)}
	armLeakCheck(r)
	return r
}

// Get returns the stored elements. The slice is only valid until the handle
// is freed.
func (r *ReusableSlice[E]) Get() []E {
	r.mustBeLive()
	if r.n == 0 {
		return nil
	}
	return unsafe.Slice(r.data, r.n)
}

// Len returns the element count fixed at consume time.
func (r *ReusableSlice[E]) Len() int {
	r.mustBeLive()
	return r.n
}

// Free destroys the contained elements in order and returns the backing
// block for reuse.
func (r *ReusableSlice[E]) Free() Growable {
	r.mustBeLive()
	if r.n > 0 {
		for i, elems := 0, unsafe.Slice(r.data, r.n); i < r.n; i++ {
			runDrop(&elems[i])
		}
	}
	return r.kill()
}

// Release destroys the contained elements and hands the backing allocation
// straight back to the system allocator.
func (r *ReusableSlice[E]) Release() {
	block := r.Free()
	block.Release()
}

func (r *ReusableSlice[E]) kill() Growable {
	block := r.block
	r.block = Growable{}
	r.data = nil
	r.n = 0
	r.dead = true
	disarmLeakCheck(r)
	return block
}

func (r *ReusableSlice[E]) mustBeLive() {
	if r.dead {
		panic(cerrors.New("growable: handle used after free"))
	}
}

func (r *ReusableSlice[E]) reportLeak() {
	reportLeakedHandle(r.block)
}

func runDrop[T any](ptr *T) {
	if d, ok := any(ptr).(Dropper); ok {
		d.Drop()
	}
}

// shapeCache maps reflect.Type to whether the type contains Go pointers.
var shapeCache sync.Map

func checkShape(t reflect.Type) {
	if shapeHasPointers(t) {
		panic(cerrors.Newf("growable: %s contains Go pointers and cannot be stored in a raw block", t))
	}
}

func shapeHasPointers(t reflect.Type) bool {
	if cached, ok := shapeCache.Load(t); ok {
		return cached.(bool)
	}
	has := typeHasPointers(t)
	shapeCache.Store(t, has)
	return has
}

func typeHasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return typeHasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if typeHasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
