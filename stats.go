package growable

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// BuildStatsString returns a JSON dump of the pool's configuration, idle
// blocks, and lifetime counters. Intended for diagnostics; the layout is not
// a stable interface.
func (p *GrowablePool) BuildStatsString() string {
	writer := jwriter.NewWriter()

	obj := writer.Object()
	obj.Name("Name").String(p.name)

	config := obj.Name("Config").Object()
	config.Name("DefaultCapacity").Int(p.defaultCapacity)
	config.Name("DefaultAlignment").Int(int(p.defaultAlignment))
	config.Name("Capacity").Int(p.capacity)
	config.Name("Overgrow").Bool(p.overgrow)
	config.End()

	// Front of the pool first, so the dump reads in reuse order.
	blocks := obj.Name("IdleBlocks").Array()
	for i := len(p.idle) - 1; i >= 0; i-- {
		blockObj := blocks.Object()
		blockObj.Name("Len").Int(p.idle[i].Len())
		blockObj.Name("Alignment").Int(int(p.idle[i].Alignment()))
		blockObj.End()
	}
	blocks.End()

	counters := obj.Name("Lifetime").Object()
	counters.Name("Allocations").Int(p.lifetime.allocations)
	counters.Name("AllocationBytes").Int(p.lifetime.allocationBytes)
	counters.Name("Frees").Int(p.lifetime.frees)
	counters.Name("Discards").Int(p.lifetime.discards)
	counters.Name("ManufacturedBlocks").Int(p.lifetime.manufactured)
	counters.Name("IdleHighWater").Int(p.lifetime.idleHighWater)
	counters.End()

	obj.End()

	return string(writer.Bytes())
}
