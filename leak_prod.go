//go:build !debug_growable

package growable

// armLeakCheck attaches a finalizer that reports a handle collected without
// Free or Release. Only compiled in under the debug_growable build tag.
func armLeakCheck(handle leakTracked) {
}

func disarmLeakCheck(handle leakTracked) {
}

func reportLeakedHandle(block Growable) {
}
