package growable_test

import (
	"testing"

	"github.com/shoujo/growable"
)

// Shapes with the rough size spread of the original churn benchmark.
type benchSmall struct {
	value int64
}

type benchMedium struct {
	values [3]int64
}

type benchLarge struct {
	values [24]int32
}

func BenchmarkBoxedChurn(b *testing.B) {
	buffer := make([]any, 0, 1024)
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		for i := 0; i < 1024; i++ {
			switch i % 3 {
			case 0:
				buffer = append(buffer, &benchSmall{value: int64(i)})
			case 1:
				buffer = append(buffer, &benchMedium{})
			case 2:
				buffer = append(buffer, &benchLarge{})
			}
		}
		buffer = buffer[:0]
	}
}

func BenchmarkPoolChurn(b *testing.B) {
	pool := growable.NewPoolBuilder().
		WithDefaultCapacity(96).
		WithDefaultAlignment(8).
		WithCapacity(1024).
		Build()
	defer pool.Destroy()

	buffer := make([]growable.Freeable, 0, 1024)
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		for i := 0; i < 1024; i++ {
			switch i % 3 {
			case 0:
				buffer = append(buffer, growable.Allocate(pool, benchSmall{value: int64(i)}))
			case 1:
				buffer = append(buffer, growable.Allocate(pool, benchMedium{}))
			case 2:
				buffer = append(buffer, growable.Allocate(pool, benchLarge{}))
			}
		}
		for _, handle := range buffer {
			pool.Free(handle)
		}
		buffer = buffer[:0]
	}
}
