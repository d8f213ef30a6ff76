package qshard

import (
	"context"
	"fmt"
)

/*
localize brings every qubit in need to a Local position. Free Local positions
are taken from the top down; a position is free when the batch does not
reference the qubit it holds. When none is left, a position held by a
referenced qubit that can live outside Local is given up instead.
*/
func (e *Engine) localize(ctx context.Context, need []int, referenced map[int]bool) error {
	if len(need) > e.layout.Local {
		return fmt.Errorf(
			"%w: %d qubits must be local, only %d local positions",
			ErrTooManyOperatedQubits, len(need), e.layout.Local,
		)
	}

	needed := make(map[int]bool, len(need))
	for _, q := range need {
		needed[q] = true
	}

	for _, q := range need {
		from := e.table.Lookup(q)
		if e.layout.Category(from) == CategoryLocal {
			continue
		}

		to := e.freeLocal(referenced, needed)
		if to < 0 {
			return fmt.Errorf("%w: no local position left for qubit %d", ErrTooManyOperatedQubits, q)
		}

		if err := e.interchange(ctx, to, from); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) freeLocal(referenced, needed map[int]bool) int {
	fallback := -1

	for pos := e.layout.Local - 1; pos >= 0; pos-- {
		owner := e.table.Owner(pos)
		if !referenced[owner] {
			return pos
		}
		if fallback < 0 && !needed[owner] {
			fallback = pos
		}
	}

	return fallback
}

/*
interchange swaps the contents of a Local position with a Unit or Global
position, moving the amplitudes so that the logical state is unchanged, and
then swaps the two owners in the table. Every rank must call it with the same
positions.
*/
func (e *Engine) interchange(ctx context.Context, local, other int) error {
	if e.cfg.Debug {
		e.table.mustValidate()
	}

	var (
		rounds, moved int
		category      = e.layout.Category(other)
	)

	switch category {
	case CategoryLocal:
		return nil
	case CategoryUnit:
		moved = e.swapUnit(local, other)
	case CategoryGlobal:
		var err error
		if rounds, moved, err = e.swapGlobal(ctx, local, other); err != nil {
			return err
		}
	}

	e.table.Swap(local, other)

	if e.cfg.Debug {
		e.table.mustValidate()
	}

	e.metrics.recordInterchange(category, rounds, moved)
	e.log.Debug().
		Str("category", category.String()).
		Int("local", local).
		Int("other", other).
		Int("rounds", rounds).
		Msg("interchange")

	return nil
}

// swapUnit exchanges two bit positions that both live inside this rank.
func (e *Engine) swapUnit(a, b int) int {
	addr := newAddressing([]int{a, b})
	n := addr.outer(len(e.state))

	e.pool.Run(n, func(_, lo, hi int) {
		for x := lo; x < hi; x++ {
			base := addr.base(x)
			i, j := base+addr.offs[1], base+addr.offs[2]
			e.state[i], e.state[j] = e.state[j], e.state[i]
		}
	})

	return 2 * n
}

/*
swapGlobal exchanges a Local position with a Global one. The Global bit is
constant on this rank, so the rank keeps the half of its storage whose Local
bit equals that constant and trades the other half with the peer that differs
only in the Global bit. The trade runs in rounds of half the exchange buffer:
one half stages outgoing amplitudes, the other receives the peer's.
*/
func (e *Engine) swapGlobal(ctx context.Context, local, global int) (int, int, error) {
	shift := global - e.layout.Local - e.layout.Unit
	rank := e.comm.Rank()
	peer := rank ^ (1 << shift)
	want := 1 - (rank>>shift)&1

	addr := newAddressing([]int{local})
	half := addr.outer(len(e.state))
	chunk := len(e.exchange) / 2
	send, recv := e.exchange[:chunk], e.exchange[chunk:2*chunk]
	bit := want << local

	rounds := 0
	for lo := 0; lo < half; lo += chunk {
		n := min(chunk, half-lo)

		for i := 0; i < n; i++ {
			send[i] = e.state[addr.base(lo+i)|bit]
		}

		if err := e.comm.SendRecv(ctx, peer, send[:n], recv[:n]); err != nil {
			return rounds, 0, fmt.Errorf("interchange with rank %d: %w", peer, err)
		}

		for i := 0; i < n; i++ {
			e.state[addr.base(lo+i)|bit] = recv[i]
		}
		rounds++
	}

	return rounds, half, nil
}
