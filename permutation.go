package qshard

import "fmt"

/*
Permutation maps every logical qubit to the bit position of the physical
amplitude address that currently holds it, and keeps the inverse map next to
it so both directions are O(1).

The table is only ever written by the interchange protocol (through Swap) or
by the declared initial assignment. Every rank holds an identical copy.
*/
type Permutation struct {
	positions []int // logical -> position
	owners    []int // position -> logical
}

/*
NewPermutation builds the table for n qubits. A nil or empty initial
assignment yields the identity mapping; otherwise initial[q] is the position of
logical qubit q and must be a bijection over [0, n).
*/
func NewPermutation(n int, initial []int) (*Permutation, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d qubits", ErrInvalidPermutation, n)
	}

	p := &Permutation{
		positions: make([]int, n),
		owners:    make([]int, n),
	}

	if len(initial) == 0 {
		for q := 0; q < n; q++ {
			p.positions[q] = q
			p.owners[q] = q
		}
		return p, nil
	}

	if len(initial) != n {
		return nil, fmt.Errorf(
			"%w: assignment has %d entries for %d qubits", ErrInvalidPermutation, len(initial), n,
		)
	}

	for q := range p.owners {
		p.owners[q] = -1
	}

	for q, pos := range initial {
		if pos < 0 || pos >= n {
			return nil, fmt.Errorf("%w: qubit %d mapped to position %d", ErrInvalidPermutation, q, pos)
		}
		if p.owners[pos] != -1 {
			return nil, fmt.Errorf(
				"%w: position %d claimed by qubits %d and %d", ErrInvalidPermutation, pos, p.owners[pos], q,
			)
		}
		p.positions[q] = pos
		p.owners[pos] = q
	}

	return p, nil
}

// Len returns the number of qubits in the table.
func (p *Permutation) Len() int {
	return len(p.positions)
}

// Lookup returns the bit position currently holding the logical qubit.
func (p *Permutation) Lookup(logical int) int {
	return p.positions[logical]
}

// Owner returns the logical qubit currently held at a bit position.
func (p *Permutation) Owner(position int) int {
	return p.owners[position]
}

// Swap exchanges the owners of two positions.
func (p *Permutation) Swap(a, b int) {
	qa, qb := p.owners[a], p.owners[b]
	p.owners[a], p.owners[b] = qb, qa
	p.positions[qa], p.positions[qb] = b, a
}

// Snapshot returns a copy of the logical -> position map.
func (p *Permutation) Snapshot() []int {
	out := make([]int, len(p.positions))
	copy(out, p.positions)
	return out
}

// Validate reports whether the forward and inverse maps agree.
func (p *Permutation) Validate() error {
	if len(p.positions) != len(p.owners) {
		return fmt.Errorf("%w: map sizes differ", ErrInvalidPermutation)
	}
	for q, pos := range p.positions {
		if pos < 0 || pos >= len(p.owners) || p.owners[pos] != q {
			return fmt.Errorf("%w: qubit %d and position %d disagree", ErrInvalidPermutation, q, pos)
		}
	}
	return nil
}

func (p *Permutation) mustValidate() {
	if err := p.Validate(); err != nil {
		panic(err)
	}
}
