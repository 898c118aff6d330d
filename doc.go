// Package growable provides a growable, reusable box: a typed handle backed
// by a raw memory block that can be taken back, stripped of its value, and
// reused to hold a different type without reallocating, provided the block
// is large enough and aligned strongly enough. A pool layer keeps a ready
// supply of idle blocks so steady-state allocation rarely touches the system
// allocator.
//
// The three pieces are Growable (the raw block), Reusable and its narrowed
// ReusableIface/ReusableSlice forms (the typed handles), and GrowablePool
// (the idle-block reservoir). Blocks only ever grow, so a block cycling
// through many consume/free rounds converges to the high-water mark of the
// sizes it has held.
//
// Values stored in a block must be pointer-free: the garbage collector does
// not scan raw block memory, so shapes containing Go pointers, maps, slices,
// strings, chans, funcs, or interfaces are rejected at consume time.
package growable
