package qshard

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/theapemachine/errnie"
	"gonum.org/v1/gonum/cmplxs"
)

/*
probabilityOne returns this rank's share of the probability that the qubit at
a bit position reads one. A Global position is constant across the rank.
*/
func (e *Engine) probabilityOne(position int) float64 {
	if e.layout.Category(position) == CategoryGlobal {
		if e.layout.ConstantBit(e.comm.Rank(), 0, position) == 0 {
			return 0
		}
		return e.norm2()
	}

	var p float64
	for i, amp := range e.state {
		if i>>position&1 == 1 {
			p += probability(amp)
		}
	}
	return p
}

/*
Measure samples logical qubit q in the computational basis, collapses the
register onto the outcome and renormalises it. The root draws the outcome from
its seeded generator and broadcasts it so every rank collapses the same way.
*/
func (e *Engine) Measure(ctx context.Context, q int) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := e.settled("measure"); err != nil {
		return 0, err
	}
	if q < 0 || q >= e.layout.Qubits {
		return 0, fmt.Errorf("%w: qubit %d outside register of %d", ErrInvalidQubit, q, e.layout.Qubits)
	}

	position := e.table.Lookup(q)

	p1, err := e.comm.AllReduceSum(ctx, e.probabilityOne(position))
	if err != nil {
		return 0, e.fail(err)
	}

	draw := 0.0
	if e.isRoot() && e.rng.Float64() < p1 {
		draw = 1
	}
	if draw, err = e.comm.Broadcast(ctx, e.cfg.Root, draw); err != nil {
		return 0, e.fail(err)
	}
	outcome := int(draw)

	p := p1
	if outcome == 0 {
		p = 1 - p1
	}

	e.collapse(position, outcome, p)
	e.metrics.recordMeasurement()

	if e.isRoot() {
		errnie.Info("measured qubit %d: %d (p=%.6f)", q, outcome, p)
	}
	return outcome, nil
}

// collapse zeroes every amplitude inconsistent with the outcome and rescales
// the rest by 1/sqrt(p).
func (e *Engine) collapse(position, outcome int, p float64) {
	if e.layout.Category(position) == CategoryGlobal {
		if e.layout.ConstantBit(e.comm.Rank(), 0, position) != outcome {
			clear(e.state)
			return
		}
	} else {
		for i := range e.state {
			if i>>position&1 != outcome {
				e.state[i] = 0
			}
		}
	}

	if p > 0 {
		cmplxs.Scale(complex(1/math.Sqrt(p), 0), e.state)
	}
}

// ExpectZ returns <Z> of logical qubit q, reduced across every rank.
func (e *Engine) ExpectZ(ctx context.Context, q int) (float64, error) {
	if e.failed != nil {
		return 0, fmt.Errorf("%w: %w", ErrEngineFailed, e.failed)
	}
	if err := e.settled("expectation"); err != nil {
		return 0, err
	}
	if q < 0 || q >= e.layout.Qubits {
		return 0, fmt.Errorf("%w: qubit %d outside register of %d", ErrInvalidQubit, q, e.layout.Qubits)
	}

	position := e.table.Lookup(q)
	local := e.norm2() - 2*e.probabilityOne(position)

	z, err := e.comm.AllReduceSum(ctx, local)
	if err != nil {
		return 0, e.fail(err)
	}

	if e.isRoot() {
		errnie.Info("<Z%d> = %.6f", q, z)
	}
	return z, nil
}

// TotalProbability returns the squared norm of the whole vector.
func (e *Engine) TotalProbability(ctx context.Context) (float64, error) {
	if e.failed != nil {
		return 0, fmt.Errorf("%w: %w", ErrEngineFailed, e.failed)
	}
	if err := e.settled("total probability"); err != nil {
		return 0, err
	}

	total, err := e.comm.AllReduceSum(ctx, e.norm2())
	if err != nil {
		return 0, e.fail(err)
	}
	return total, nil
}

func (e *Engine) norm2() float64 {
	n := cmplxs.Norm(e.state, 2)
	return n * n
}

// probability returns the squared modulus of one amplitude.
func probability(a complex128) float64 {
	m := cmplx.Abs(a)
	return m * m
}
