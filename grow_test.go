package growable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// A block whose backing was over-allocated for alignment has spare room past
// the aligned start, so growing the length alone extends the allocation in
// place and the block keeps its address.
func TestGrowWithinBackingKeepsAddress(t *testing.T) {
	g := WithCapacity(9, 8)
	defer g.Release()

	before := g.ptr
	g.grow(12, 8)

	require.Equal(t, before, g.ptr)
	require.Equal(t, 12, g.Len())
	require.Equal(t, uint(8), g.Alignment())
	require.NoError(t, g.Validate())
}

// Growth past the spare room reallocates to the new length; the alignment is
// carried over unchanged.
func TestGrowBeyondBackingReallocates(t *testing.T) {
	g := WithCapacity(9, 8)
	defer g.Release()

	g.grow(64, 8)

	require.Equal(t, 64, g.Len())
	require.Equal(t, uint(8), g.Alignment())
	require.NoError(t, g.Validate())
}
