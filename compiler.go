package qshard

import (
	"fmt"
	"sort"
)

/*
UnitProgram is what one data block of the current rank runs for a fused
batch: the surviving steps, in submission order, followed by an optional scalar
phase for the whole block.
*/
type UnitProgram struct {
	Unit     int
	Steps    []Step
	Phase    float64
	HasPhase bool
}

/*
FusedPlan is the compiled form of a fused batch. Targets and Controls are the
sorted Local bit positions the batch still addresses after folding; a step's
operands are slot indices into Targets followed by Controls. Programs holds one
entry per data block of the rank, because Unit operands fold differently in
every block.
*/
type FusedPlan struct {
	Targets  []int
	Controls []int
	Programs []UnitProgram
}

// Slots returns the addressed positions in slot order.
func (p *FusedPlan) Slots() []int {
	out := make([]int, 0, len(p.Targets)+len(p.Controls))
	out = append(out, p.Targets...)
	return append(out, p.Controls...)
}

// compileStats counts what folding did to a batch, summed over data blocks.
type compileStats struct {
	applied int
	folded  int
	dropped int
}

// resolved is a gate re-expressed against bit positions for one data block.
type resolved struct {
	gate     Gate
	targets  []int
	controls []int
}

/*
mustLocal returns the logical qubits that a batch touches with a non-diagonal
operation. They are the only qubits that have to sit at Local positions before
the batch runs: a diagonal target and any control can be read as a constant
bit from a Unit or Global position.
*/
func mustLocal(gates []Gate) []int {
	var out []int
	seen := make(map[int]bool)

	for _, g := range gates {
		if g.Kind.Diagonal() {
			continue
		}
		for _, q := range g.Targets {
			if !seen[q] {
				seen[q] = true
				out = append(out, q)
			}
		}
	}
	return out
}

/*
compilePlan folds a batch against the current table for one rank and emits
the plan every data block of that rank runs. Every non-diagonal target must
already be Local.

For each block: a control held at a Unit or Global position is replaced by its
constant bit, so a zero drops the gate and a one erases the control. A
diagonal target at such a position reduces to the phase of its constant bit;
with no Local control left that phase joins the block's scalar phase,
otherwise it becomes a phase gate on the first remaining control.
*/
func compilePlan(layout Layout, table *Permutation, rank int, gates []Gate, ceiling int) (*FusedPlan, compileStats, error) {
	var stats compileStats

	positions := table.Snapshot()
	units := layout.Units()

	perUnit := make([][]resolved, units)
	phases := make([]float64, units)
	hasPhase := make([]bool, units)

	targetSet := make(map[int]bool)
	controlSet := make(map[int]bool)

	for u := 0; u < units; u++ {
	next:
		for _, g := range gates {
			var controls []int
			for _, q := range g.Controls {
				pos := positions[q]
				if layout.Category(pos) == CategoryLocal {
					controls = append(controls, pos)
					continue
				}
				if layout.ConstantBit(rank, u, pos) == 0 {
					stats.dropped++
					continue next
				}
			}

			targets := make([]int, len(g.Targets))
			for i, q := range g.Targets {
				targets[i] = positions[q]
			}

			for i, pos := range targets {
				if layout.Category(pos) != CategoryLocal && !g.Kind.Diagonal() {
					return nil, stats, fmt.Errorf(
						"%w: %s on qubit %d at non-local position %d",
						ErrInvalidQubit, g.Kind, g.Targets[i], pos,
					)
				}
			}

			if layout.Category(targets[0]) != CategoryLocal {
				a0, a1 := g.angles()
				angle := a0
				if layout.ConstantBit(rank, u, targets[0]) == 1 {
					angle = a1
				}

				switch {
				case angle == 0:
					stats.dropped++
				case len(controls) == 0:
					phases[u] += angle
					hasPhase[u] = true
					stats.folded++
				default:
					stats.folded++
					perUnit[u] = append(perUnit[u], resolved{
						gate:     Phase(table.Owner(controls[0]), angle),
						targets:  controls[:1],
						controls: controls[1:],
					})
					targetSet[controls[0]] = true
					for _, pos := range controls[1:] {
						controlSet[pos] = true
					}
				}
				continue
			}

			stats.applied++
			perUnit[u] = append(perUnit[u], resolved{gate: g, targets: targets, controls: controls})
			for _, pos := range targets {
				targetSet[pos] = true
			}
			for _, pos := range controls {
				controlSet[pos] = true
			}
		}
	}

	plan := &FusedPlan{}
	for pos := range targetSet {
		plan.Targets = append(plan.Targets, pos)
	}
	for pos := range controlSet {
		if !targetSet[pos] {
			plan.Controls = append(plan.Controls, pos)
		}
	}
	sort.Ints(plan.Targets)
	sort.Ints(plan.Controls)

	if k := len(plan.Targets) + len(plan.Controls); k > ceiling {
		return nil, stats, fmt.Errorf(
			"%w: batch addresses %d qubits, ceiling is %d", ErrTooManyOperatedQubits, k, ceiling,
		)
	}

	slot := make(map[int]int)
	for s, pos := range plan.Slots() {
		slot[pos] = s
	}

	for u := 0; u < units; u++ {
		if len(perUnit[u]) == 0 && !hasPhase[u] {
			continue
		}

		prog := UnitProgram{Unit: u, Phase: phases[u], HasPhase: hasPhase[u]}
		for _, r := range perUnit[u] {
			targets := make([]int, len(r.targets))
			for i, pos := range r.targets {
				targets[i] = slot[pos]
			}
			ctrl := 0
			for _, pos := range r.controls {
				ctrl |= 1 << slot[pos]
			}
			prog.Steps = append(prog.Steps, newStep(r.gate, targets, ctrl))
		}
		plan.Programs = append(plan.Programs, prog)
	}

	return plan, stats, nil
}
