//go:build debug_growable

package growable

import (
	"context"
	"runtime"

	"golang.org/x/exp/slog"
)

// armLeakCheck attaches a finalizer that reports a handle collected without
// Free or Release. Only compiled in under the debug_growable build tag.
func armLeakCheck(handle leakTracked) {
	runtime.SetFinalizer(handle, leakTracked.reportLeak)
}

func disarmLeakCheck(handle leakTracked) {
	runtime.SetFinalizer(handle, nil)
}

func reportLeakedHandle(block Growable) {
	slog.Default().LogAttrs(context.Background(), slog.LevelError,
		"[UNRELEASED MEMORY] handle dropped without Free or Release",
		slog.Int("len", block.Len()),
		slog.Uint64("align", uint64(block.Alignment())),
	)
}
