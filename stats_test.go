package growable_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shoujo/growable"
	"github.com/shoujo/growable/memutil"
)

func TestPoolStatistics(t *testing.T) {
	pool := growable.NewPoolBuilder().
		WithDefaultCapacity(16).
		WithCapacity(2).
		Build()
	defer pool.Destroy()

	handle := growable.Allocate(pool, [24]byte{})
	pool.Free(handle)

	var stats memutil.DetailedStatistics
	stats.Clear()
	pool.AddDetailedStatistics(&stats)

	require.Equal(t, 2, stats.BlockCount)
	// One manufactured block still holds its initial 16 bytes; the block
	// that carried the 24-byte value grew to the next power of two.
	require.Equal(t, 48, stats.BlockBytes)
	require.Equal(t, 1, stats.AllocationCount)
	require.Equal(t, 24, stats.AllocationBytes)
	require.Equal(t, 24, stats.AllocationSizeMin)
	require.Equal(t, 24, stats.AllocationSizeMax)
	require.Equal(t, 16, stats.BlockSizeMin)
	require.Equal(t, 32, stats.BlockSizeMax)

	var flat memutil.Statistics
	flat.Clear()
	pool.AddStatistics(&flat)
	require.Equal(t, stats.Statistics, flat)
}

func TestBuildStatsString(t *testing.T) {
	pool := growable.NewPoolBuilder().
		WithCapacity(1).
		WithName("stats").
		Build()
	defer pool.Destroy()

	handle := growable.Allocate(pool, int64(3))
	pool.Free(handle)

	dump := pool.BuildStatsString()

	var parsed struct {
		Name   string
		Config struct {
			DefaultCapacity  int
			DefaultAlignment int
			Capacity         int
			Overgrow         bool
		}
		IdleBlocks []struct {
			Len       int
			Alignment int
		}
		Lifetime struct {
			Allocations        int
			AllocationBytes    int
			Frees              int
			Discards           int
			ManufacturedBlocks int
			IdleHighWater      int
		}
	}
	require.NoError(t, json.Unmarshal([]byte(dump), &parsed))

	require.Equal(t, "stats", parsed.Name)
	require.Equal(t, 8, parsed.Config.DefaultCapacity)
	require.True(t, parsed.Config.Overgrow)
	require.Len(t, parsed.IdleBlocks, 1)
	require.Equal(t, 8, parsed.IdleBlocks[0].Len)
	require.Equal(t, 1, parsed.Lifetime.Allocations)
	require.Equal(t, 1, parsed.Lifetime.Frees)
	require.Equal(t, 1, parsed.Lifetime.ManufacturedBlocks)
}
