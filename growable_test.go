package growable_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shoujo/growable"
	"github.com/shoujo/growable/internal/heap"
)

func TestEmptyBlock(t *testing.T) {
	block := growable.Empty()
	require.Equal(t, 0, block.Len())
	require.Equal(t, uint(1), block.Alignment())
	require.NoError(t, block.Validate())
}

func TestWithCapacity(t *testing.T) {
	block := growable.WithCapacity(24, 8)
	require.Equal(t, 24, block.Len())
	require.Equal(t, uint(8), block.Alignment())
	require.NoError(t, block.Validate())

	block.Release()
	require.Equal(t, 0, block.Len())
}

func TestWithCapacityZeroDoesNotAllocate(t *testing.T) {
	before := heap.LiveCount()

	block := growable.WithCapacity(0, 1)
	require.Equal(t, 0, block.Len())
	require.Equal(t, before, heap.LiveCount())

	block.Release()
	require.Equal(t, before, heap.LiveCount())
}

func TestWithCapacityRejectsBadAlignment(t *testing.T) {
	require.Panics(t, func() {
		growable.WithCapacity(16, 3)
	})
	require.Panics(t, func() {
		growable.WithCapacity(0, 3)
	})
	require.Panics(t, func() {
		growable.WithCapacity(16, 0)
	})
}

func TestWithCapacityRejectsNegativeLength(t *testing.T) {
	require.Panics(t, func() {
		growable.WithCapacity(-1, 8)
	})
}

func TestWithCapacityFor(t *testing.T) {
	block := growable.WithCapacityFor[int64]()
	require.Equal(t, 8, block.Len())
	require.Equal(t, uint(8), block.Alignment())
	block.Release()
}

func TestCloneCopiesCapacityNotBytes(t *testing.T) {
	handle := growable.Consume(growable.Empty(), [16]byte{1, 2, 3})
	block := handle.Free()

	clone := block.Clone()
	require.Equal(t, block.Len(), clone.Len())
	require.Equal(t, block.Alignment(), clone.Alignment())

	// Two distinct allocations must both be registered.
	require.NoError(t, clone.Validate())
	clone.Release()
	block.Release()
}

func TestCapacityMonotonicity(t *testing.T) {
	block := growable.Empty()
	maxSeen := 0

	grow := func(h growable.Freeable) {
		block = h.Free()
		if block.Len() > maxSeen {
			maxSeen = block.Len()
		}
	}

	grow(growable.Consume(block, [24]byte{}))
	require.Equal(t, 32, block.Len())

	grow(growable.Consume(block, int64(7)))
	require.Equal(t, 32, block.Len())

	grow(growable.Consume(block, [100]byte{}))
	require.Equal(t, 128, block.Len())

	grow(growable.Consume(block, byte(1)))
	require.Equal(t, 128, block.Len())
	require.GreaterOrEqual(t, block.Len(), maxSeen)

	block.Release()
}

func TestGrowKeepsStrongestAlignment(t *testing.T) {
	handle := growable.Consume(growable.Empty(), int64(1))
	block := handle.Free()
	require.Equal(t, uint(8), block.Alignment())

	// A weaker request must not reduce the alignment.
	handle2 := growable.Consume(block, byte(1))
	block = handle2.Free()
	require.Equal(t, uint(8), block.Alignment())

	block.Release()
}

func TestBlockString(t *testing.T) {
	block := growable.Empty()
	require.Equal(t, "Growable::None", block.String())

	block = growable.WithCapacity(8, 8)
	require.Contains(t, block.String(), "Growable::Some")
	block.Release()
}
