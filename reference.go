package qshard

import (
	"fmt"
	"math"
	"math/rand"
)

/*
Reference is a plain single-process state vector. It applies gates one by one
in logical bit order, without permutation, fusion or distribution, and is what
the engine's results are checked against.
*/
type Reference struct {
	Qubits int
	Vector []complex128
}

// NewReference returns an n-qubit register in |0...0>.
func NewReference(n int) *Reference {
	r := &Reference{Qubits: n, Vector: make([]complex128, 1<<n)}
	r.Vector[0] = 1
	return r
}

// Apply runs one unitary gate over the whole vector.
func (r *Reference) Apply(g Gate) error {
	if err := g.validate(r.Qubits); err != nil {
		return err
	}
	if !g.Kind.Unitary() {
		return fmt.Errorf("%w: reference applies unitary gates only, got %s", ErrInvalidGate, g.Kind)
	}

	ctrl := 0
	for _, q := range g.Controls {
		ctrl |= 1 << q
	}

	if g.Kind == KindSwap {
		a, b := 1<<g.Targets[0], 1<<g.Targets[1]
		for i := range r.Vector {
			if i&ctrl == ctrl && i&a != 0 && i&b == 0 {
				j := i ^ a ^ b
				r.Vector[i], r.Vector[j] = r.Vector[j], r.Vector[i]
			}
		}
		return nil
	}

	m := g.matrix()
	t := 1 << g.Targets[0]
	for i := range r.Vector {
		if i&ctrl != ctrl || i&t != 0 {
			continue
		}
		a0, a1 := r.Vector[i], r.Vector[i|t]
		r.Vector[i] = m[0]*a0 + m[1]*a1
		r.Vector[i|t] = m[2]*a0 + m[3]*a1
	}
	return nil
}

// Probabilities returns the normalised probability of every basis state.
func (r *Reference) Probabilities() []float64 {
	probs := make([]float64, len(r.Vector))
	total := 0.0
	for i, amplitude := range r.Vector {
		probs[i] = probability(amplitude)
		total += probs[i]
	}

	if total == 0 {
		return probs
	}
	for i := range probs {
		probs[i] /= total
	}
	return probs
}

/*
Measure samples qubit q with rng, collapses the vector onto the outcome and
renormalises it. A single draw against the probability of one keeps it in step
with the engine when both use the same seed.
*/
func (r *Reference) Measure(q int, rng *rand.Rand) int {
	t := 1 << q

	p1 := 0.0
	for i, p := range r.Probabilities() {
		if i&t != 0 {
			p1 += p
		}
	}

	outcome, p := 0, 1-p1
	if rng.Float64() < p1 {
		outcome, p = 1, p1
	}

	scale := complex(1/math.Sqrt(p), 0)
	for i := range r.Vector {
		if (i&t != 0) != (outcome == 1) {
			r.Vector[i] = 0
			continue
		}
		r.Vector[i] *= scale
	}

	return outcome
}
