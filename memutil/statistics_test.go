package memutil_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shoujo/growable/memutil"
)

func TestDetailedStatistics(t *testing.T) {
	var stats memutil.DetailedStatistics
	stats.Clear()

	require.Equal(t, math.MaxInt, stats.BlockSizeMin)
	require.Equal(t, 0, stats.BlockSizeMax)

	stats.AddBlock(8)
	stats.AddBlock(64)
	stats.AddAllocation(24)
	stats.AddAllocation(4)

	require.Equal(t, memutil.DetailedStatistics{
		Statistics: memutil.Statistics{
			BlockCount:      2,
			BlockBytes:      72,
			AllocationCount: 2,
			AllocationBytes: 28,
		},
		BlockSizeMin:      8,
		BlockSizeMax:      64,
		AllocationSizeMin: 4,
		AllocationSizeMax: 24,
	}, stats)

	var other memutil.DetailedStatistics
	other.Clear()
	other.AddBlock(2)
	other.AddAllocation(128)

	stats.AddDetailedStatistics(&other)
	require.Equal(t, 3, stats.BlockCount)
	require.Equal(t, 2, stats.BlockSizeMin)
	require.Equal(t, 128, stats.AllocationSizeMax)
}
