// Package idgen generates unique int64 order/trade identifiers. Adapted
// from the teacher's matching/id_generator.go: the atomic-counter-only
// design (no timestamp component needed — the counter alone guarantees
// uniqueness) carries over unchanged, but the string-building/sync.Pool
// machinery is dropped since this repo's OrderCommand.OrderID is an int64,
// not a formatted "T123"-style trade ID string.
package idgen

import "sync/atomic"

// Generator produces a strictly increasing sequence of int64 IDs starting
// at 1, safe for concurrent use by any number of producer goroutines.
// Separate generators repeat each other's IDs; the synthetic workload driver
// runs one generator per worker and puts the worker's uid in the high 32
// bits of each order ID, so order IDs of different workers never collide.
type Generator struct {
	counter atomic.Int64
}

// New creates a Generator whose first Next() call returns 1.
func New() *Generator {
	return &Generator{}
}

// Next returns the next unique ID.
func (g *Generator) Next() int64 {
	return g.counter.Add(1)
}
