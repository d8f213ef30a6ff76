package qshard

type stepShape uint8

const (
	shapeDense stepShape = iota
	shapeDiagonal
	shapeFlip
	shapeSwap
)

/*
Step is one surviving gate of a fused plan. Its operands are slots into the
plan's qubit list rather than logical qubits or bit positions, so the same
step runs unchanged against every address group the dispatcher builds.

Steps are plain values: the dispatcher walks a []Step and applyStep switches
on the shape, so the hot loop has no per-gate allocation or indirect call.
*/
type Step struct {
	Kind  GateKind
	shape stepShape
	m     [4]complex128
	t0    uint8
	t1    uint8
	ctrl  int
}

// targetMask returns the slot mask covered by the step's targets.
func (st *Step) targetMask() int {
	if st.shape == shapeSwap {
		return 1<<st.t0 | 1<<st.t1
	}
	return 1 << st.t0
}

func newStep(g Gate, targets []int, ctrl int) Step {
	st := Step{Kind: g.Kind, ctrl: ctrl, t0: uint8(targets[0])}

	switch {
	case g.Kind == KindSwap:
		st.shape = shapeSwap
		st.t1 = uint8(targets[1])
	case g.Kind == KindPauliX:
		st.shape = shapeFlip
	case g.Kind.Diagonal():
		st.shape = shapeDiagonal
		st.m = g.matrix()
	default:
		st.shape = shapeDense
		st.m = g.matrix()
	}

	return st
}

/*
applyStep runs one step over the address group rooted at base. offs[j] is the
offset of slot combination j, so the group spans len(offs) amplitudes.
Only combinations with every control slot set and every target slot clear are
visited as pair roots.
*/
func applyStep(amps []complex128, base int, offs []int, st *Step) {
	tmask := st.targetMask()
	free := (len(offs) - 1) &^ (tmask | st.ctrl)
	lo := 1 << st.t0

	for s := 0; ; s = (s - free) & free {
		j := s | st.ctrl

		switch st.shape {
		case shapeDense:
			i0, i1 := base+offs[j], base+offs[j|lo]
			a0, a1 := amps[i0], amps[i1]
			amps[i0] = st.m[0]*a0 + st.m[1]*a1
			amps[i1] = st.m[2]*a0 + st.m[3]*a1
		case shapeDiagonal:
			if st.m[0] != 1 {
				amps[base+offs[j]] *= st.m[0]
			}
			amps[base+offs[j|lo]] *= st.m[3]
		case shapeFlip:
			i0, i1 := base+offs[j], base+offs[j|lo]
			amps[i0], amps[i1] = amps[i1], amps[i0]
		case shapeSwap:
			i01, i10 := base+offs[j|lo], base+offs[j|1<<st.t1]
			amps[i01], amps[i10] = amps[i10], amps[i01]
		}

		if s == free {
			return
		}
	}
}
