package qshard

import (
	"fmt"
	"math/bits"
)

// Category classifies a bit position by how far touching it is from the
// current process.
type Category int

const (
	CategoryLocal Category = iota
	CategoryUnit
	CategoryGlobal
)

func (c Category) String() string {
	switch c {
	case CategoryLocal:
		return "local"
	case CategoryUnit:
		return "unit"
	case CategoryGlobal:
		return "global"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// minLocal is the Local width a Swap needs to run as a single gate.
const minLocal = 2

/*
Layout holds the three category widths of a topology. Local + Unit + Global
always equals the register size, and the widths are fixed for the lifetime of
an engine.

A physical amplitude index is laid out as

	rank << (Local+Unit) | unit << Local | offset

so a rank owns 2^(Local+Unit) contiguous amplitudes split into 2^Unit data
blocks of 2^Local each.
*/
type Layout struct {
	Qubits int
	Local  int
	Unit   int
	Global int
}

/*
NewLayout derives the category widths from the register size, the number of
participating processes and the number of data blocks per process. Both counts
must be powers of two and leave at least minLocal Local bits, so that a
two-target gate can always be brought into Local positions. A one-qubit
register is the only layout allowed a single Local bit.
*/
func NewLayout(qubits, processes, units int) (Layout, error) {
	if processes < 1 || units < 1 {
		return Layout{}, fmt.Errorf(
			"%w: %d processes with %d units each", ErrWrongTopologySize, processes, units,
		)
	}
	if processes&(processes-1) != 0 {
		return Layout{}, fmt.Errorf("%w: %d processes is not a power of two", ErrWrongTopologySize, processes)
	}
	if units&(units-1) != 0 {
		return Layout{}, fmt.Errorf("%w: %d units is not a power of two", ErrWrongTopologySize, units)
	}

	g := bits.TrailingZeros(uint(processes))
	u := bits.TrailingZeros(uint(units))
	l := qubits - g - u

	if l < 1 || (l < minLocal && qubits > 1) {
		return Layout{}, fmt.Errorf(
			"%w: %d qubits cannot be split over %d processes with %d units",
			ErrWrongTopologySize, qubits, processes, units,
		)
	}

	return Layout{Qubits: qubits, Local: l, Unit: u, Global: g}, nil
}

// Category returns which category a bit position falls in.
func (l Layout) Category(position int) Category {
	switch {
	case position < l.Local:
		return CategoryLocal
	case position < l.Local+l.Unit:
		return CategoryUnit
	default:
		return CategoryGlobal
	}
}

// Processes returns the number of ranks the layout spans.
func (l Layout) Processes() int { return 1 << l.Global }

// Units returns the number of data blocks per rank.
func (l Layout) Units() int { return 1 << l.Unit }

// BlockSize returns the amplitude count of one data block.
func (l Layout) BlockSize() int { return 1 << l.Local }

// RankSize returns the amplitude count owned by one rank.
func (l Layout) RankSize() int { return 1 << (l.Local + l.Unit) }

/*
ConstantBit returns the value a non-Local bit position takes for every
amplitude of the given rank and unit. It is only meaningful for Unit and
Global positions, which are constant across a data block.
*/
func (l Layout) ConstantBit(rank, unit, position int) int {
	if position < l.Local+l.Unit {
		return (unit >> (position - l.Local)) & 1
	}
	return (rank >> (position - l.Local - l.Unit)) & 1
}
