package qshard

import (
	"fmt"
	"math/cmplx"
	"time"

	"gonum.org/v1/gonum/cmplxs"
)

// Strategy names how a fused pass walks one data block.
type Strategy int

const (
	// StrategyWholeBlock runs the pass over a block that fits one tile.
	StrategyWholeBlock Strategy = iota
	// StrategyTiled runs the pass tile by tile; every fused bit is inside a tile.
	StrategyTiled
	// StrategyStreaming runs the pass in place; every fused bit is above a tile.
	StrategyStreaming
	// StrategyHybrid gathers the tiles a group spans into scratch, runs the
	// pass there and scatters the result back.
	StrategyHybrid
)

func (s Strategy) String() string {
	switch s {
	case StrategyWholeBlock:
		return "whole_block"
	case StrategyTiled:
		return "tiled"
	case StrategyStreaming:
		return "streaming"
	case StrategyHybrid:
		return "hybrid"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

/*
dispatcher executes fused plans against the data blocks of one rank. tile is
log2 of the amplitude count of one cache tile. scratch holds one staging
buffer per pool worker for the hybrid strategy; a worker only ever touches its
own slot.
*/
type dispatcher struct {
	tile    int
	pool    *Pool
	metrics *Metrics
	scratch [][]complex128
}

func newDispatcher(tile int, pool *Pool, metrics *Metrics) *dispatcher {
	return &dispatcher{
		tile:    tile,
		pool:    pool,
		metrics: metrics,
		scratch: make([][]complex128, pool.Size()),
	}
}

/*
execute runs every unit program of the plan against its data block of state,
then applies the program's scalar phase as one extra pass.
*/
func (d *dispatcher) execute(state []complex128, local int, plan *FusedPlan) {
	slots := plan.Slots()
	size := 1 << local

	for i := range plan.Programs {
		prog := &plan.Programs[i]
		block := state[prog.Unit*size : (prog.Unit+1)*size]

		if len(prog.Steps) > 0 {
			d.run(block, local, slots, prog.Steps)
		}
		if prog.HasPhase {
			d.phase(block, prog.Phase)
		}
	}
}

// strategy picks the traversal for a block of 2^local amplitudes.
func (d *dispatcher) strategy(local int, slots []int) Strategy {
	if local <= d.tile {
		return StrategyWholeBlock
	}

	below := 0
	for _, pos := range slots {
		if pos < d.tile {
			below++
		}
	}

	switch below {
	case len(slots):
		return StrategyTiled
	case 0:
		return StrategyStreaming
	default:
		return StrategyHybrid
	}
}

// run performs one fused pass over a single block.
func (d *dispatcher) run(block []complex128, local int, slots []int, steps []Step) {
	start := time.Now()
	strategy := d.strategy(local, slots)

	switch strategy {
	case StrategyWholeBlock, StrategyStreaming:
		a := newAddressing(slots)
		d.pool.Run(a.outer(len(block)), func(_, lo, hi int) {
			invoke(block, a, steps, lo, hi)
		})
	case StrategyTiled:
		d.tiled(block, slots, steps)
	case StrategyHybrid:
		d.hybrid(block, local, slots, steps)
	}

	d.metrics.recordPass(start, strategy)
}

func (d *dispatcher) tiled(block []complex128, slots []int, steps []Step) {
	tileSize := 1 << d.tile
	a := newAddressing(slots)
	groups := a.outer(tileSize)

	d.pool.Run(len(block)>>d.tile, func(_, lo, hi int) {
		for t := lo; t < hi; t++ {
			invoke(block[t*tileSize:(t+1)*tileSize], a, steps, 0, groups)
		}
	})
}

/*
hybrid handles plans that address bits on both sides of the tile boundary.
The h fused bits above the boundary select 2^h tiles; those tiles are copied
side by side into scratch, where fused bit i above the boundary becomes bit
tile+i, so the kernel sees a contiguous span of 2^(tile+h) amplitudes.
*/
func (d *dispatcher) hybrid(block []complex128, local int, slots []int, steps []Step) {
	tileSize := 1 << d.tile

	var high []int
	remapped := make([]int, len(slots))
	for s, pos := range slots {
		if pos < d.tile {
			remapped[s] = pos
			continue
		}
		remapped[s] = d.tile + len(high)
		high = append(high, pos-d.tile)
	}

	tiles := newAddressing(high)
	inner := newAddressing(remapped)
	span := tileSize << len(high)
	groups := inner.outer(span)

	d.pool.Run(tiles.outer(1<<(local-d.tile)), func(worker, lo, hi int) {
		if len(d.scratch[worker]) < span {
			d.scratch[worker] = make([]complex128, span)
		}
		buf := d.scratch[worker][:span]

		for x := lo; x < hi; x++ {
			base := tiles.base(x)
			for j, off := range tiles.offs {
				t := base + off
				copy(buf[j*tileSize:(j+1)*tileSize], block[t*tileSize:(t+1)*tileSize])
			}

			invoke(buf, inner, steps, 0, groups)

			for j, off := range tiles.offs {
				t := base + off
				copy(block[t*tileSize:(t+1)*tileSize], buf[j*tileSize:(j+1)*tileSize])
			}
		}
	})
}

// phase multiplies a whole block by e^(i*theta).
func (d *dispatcher) phase(block []complex128, theta float64) {
	cmplxs.Scale(cmplx.Exp(complex(0, theta)), block)
	d.metrics.recordPhasePass()
}
