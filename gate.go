package qshard

import (
	"fmt"
	"math"
	"math/cmplx"
)

// GateKind tags a gate operation.
type GateKind int

const (
	KindHadamard GateKind = iota
	KindPauliX
	KindPauliY
	KindPauliZ
	KindS
	KindSdg
	KindT
	KindTdg
	KindPhase
	KindRX
	KindRY
	KindRZ
	KindU3
	KindSwap
	KindMeasure
	KindExit
)

type gateInfo struct {
	name     string
	targets  int
	params   int
	diagonal bool
	unitary  bool
}

var gateTable = map[GateKind]gateInfo{
	KindHadamard: {name: "h", targets: 1, unitary: true},
	KindPauliX:   {name: "x", targets: 1, unitary: true},
	KindPauliY:   {name: "y", targets: 1, unitary: true},
	KindPauliZ:   {name: "z", targets: 1, diagonal: true, unitary: true},
	KindS:        {name: "s", targets: 1, diagonal: true, unitary: true},
	KindSdg:      {name: "sdg", targets: 1, diagonal: true, unitary: true},
	KindT:        {name: "t", targets: 1, diagonal: true, unitary: true},
	KindTdg:      {name: "tdg", targets: 1, diagonal: true, unitary: true},
	KindPhase:    {name: "p", targets: 1, params: 1, diagonal: true, unitary: true},
	KindRX:       {name: "rx", targets: 1, params: 1, unitary: true},
	KindRY:       {name: "ry", targets: 1, params: 1, unitary: true},
	KindRZ:       {name: "rz", targets: 1, params: 1, diagonal: true, unitary: true},
	KindU3:       {name: "u3", targets: 1, params: 3, unitary: true},
	KindSwap:     {name: "swap", targets: 2, unitary: true},
	KindMeasure:  {name: "measure", targets: 1},
	KindExit:     {name: "exit"},
}

func (k GateKind) String() string {
	if info, ok := gateTable[k]; ok {
		return info.name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Diagonal reports whether the gate only multiplies basis states by phases.
func (k GateKind) Diagonal() bool {
	return gateTable[k].diagonal
}

// Unitary reports whether the gate can be applied by the kernel and fused.
func (k GateKind) Unitary() bool {
	return gateTable[k].unitary
}

/*
Gate is one operation of a circuit, as emitted by the upstream parser. Targets
and Controls hold logical qubits. Controls are positive: the gate acts only on
the subspace where every control reads one.
*/
type Gate struct {
	Kind     GateKind
	Targets  []int
	Controls []int
	Params   []float64
}

// H is the Hadamard gate on q.
func H(q int) Gate { return Gate{Kind: KindHadamard, Targets: []int{q}} }

// X flips q.
func X(q int) Gate { return Gate{Kind: KindPauliX, Targets: []int{q}} }

// Y is the Pauli-Y gate on q.
func Y(q int) Gate { return Gate{Kind: KindPauliY, Targets: []int{q}} }

// Z negates amplitudes where q is set.
func Z(q int) Gate { return Gate{Kind: KindPauliZ, Targets: []int{q}} }

// S is a quarter-turn phase on q.
func S(q int) Gate { return Gate{Kind: KindS, Targets: []int{q}} }

// Sdg is the inverse of S.
func Sdg(q int) Gate { return Gate{Kind: KindSdg, Targets: []int{q}} }

// T is an eighth-turn phase on q.
func T(q int) Gate { return Gate{Kind: KindT, Targets: []int{q}} }

// Tdg is the inverse of T.
func Tdg(q int) Gate { return Gate{Kind: KindTdg, Targets: []int{q}} }

// Swap exchanges qubits a and b.
func Swap(a, b int) Gate { return Gate{Kind: KindSwap, Targets: []int{a, b}} }

// Measure collapses q and records the outcome.
func Measure(q int) Gate { return Gate{Kind: KindMeasure, Targets: []int{q}} }

// Exit ends the circuit.
func Exit() Gate { return Gate{Kind: KindExit} }

// Phase multiplies amplitudes where q is set by e^(i theta).
func Phase(q int, theta float64) Gate {
	return Gate{Kind: KindPhase, Targets: []int{q}, Params: []float64{theta}}
}

// RX rotates q about the X axis.
func RX(q int, theta float64) Gate {
	return Gate{Kind: KindRX, Targets: []int{q}, Params: []float64{theta}}
}

// RY rotates q about the Y axis.
func RY(q int, theta float64) Gate {
	return Gate{Kind: KindRY, Targets: []int{q}, Params: []float64{theta}}
}

// RZ rotates q about the Z axis.
func RZ(q int, theta float64) Gate {
	return Gate{Kind: KindRZ, Targets: []int{q}, Params: []float64{theta}}
}

// U3 is the general single-qubit rotation.
func U3(q int, theta, phi, lambda float64) Gate {
	return Gate{Kind: KindU3, Targets: []int{q}, Params: []float64{theta, phi, lambda}}
}

// CX flips target when control is set.
func CX(control, target int) Gate { return X(target).Controlled(control) }
// CZ negates amplitudes where both qubits are set.
func CZ(control, target int) Gate { return Z(target).Controlled(control) }

// CPhase is Phase on target, controlled by control.
func CPhase(control, target int, theta float64) Gate {
	return Phase(target, theta).Controlled(control)
}

// Toffoli flips target when c0 and c1 are both set.
func Toffoli(c0, c1, target int) Gate { return X(target).Controlled(c0, c1) }

// Controlled returns a copy of the gate with extra controls appended.
func (g Gate) Controlled(controls ...int) Gate {
	out := g.clone()
	out.Controls = append(out.Controls, controls...)
	return out
}

func (g Gate) clone() Gate {
	out := Gate{Kind: g.Kind}
	out.Targets = append([]int(nil), g.Targets...)
	out.Controls = append([]int(nil), g.Controls...)
	out.Params = append([]float64(nil), g.Params...)
	return out
}

func (g Gate) String() string {
	return fmt.Sprintf("%s t=%v c=%v p=%v", g.Kind, g.Targets, g.Controls, g.Params)
}

// validate checks arity and qubit ranges against a register of n qubits.
func (g Gate) validate(n int) error {
	info, ok := gateTable[g.Kind]
	if !ok {
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidGate, int(g.Kind))
	}
	if len(g.Targets) != info.targets {
		return fmt.Errorf("%w: %s takes %d targets, got %d", ErrInvalidGate, info.name, info.targets, len(g.Targets))
	}
	if len(g.Params) != info.params {
		return fmt.Errorf("%w: %s takes %d params, got %d", ErrInvalidGate, info.name, info.params, len(g.Params))
	}
	if !info.unitary && len(g.Controls) > 0 {
		return fmt.Errorf("%w: %s cannot be controlled", ErrInvalidGate, info.name)
	}

	var seen uint64
	for _, q := range append(append([]int(nil), g.Targets...), g.Controls...) {
		if q < 0 || q >= n {
			return fmt.Errorf("%w: qubit %d outside register of %d", ErrInvalidQubit, q, n)
		}
		if seen&(1<<uint(q)) != 0 {
			return fmt.Errorf("%w: qubit %d used twice in %s", ErrInvalidQubit, q, info.name)
		}
		seen |= 1 << uint(q)
	}
	return nil
}

/*
matrix returns the row-major 2x2 unitary of a single-target gate:
[m00 m01 m10 m11].
*/
func (g Gate) matrix() [4]complex128 {
	switch g.Kind {
	case KindHadamard:
		h := complex(1/math.Sqrt2, 0)
		return [4]complex128{h, h, h, -h}
	case KindPauliX:
		return [4]complex128{0, 1, 1, 0}
	case KindPauliY:
		return [4]complex128{0, -1i, 1i, 0}
	case KindPauliZ:
		return [4]complex128{1, 0, 0, -1}
	case KindS:
		return [4]complex128{1, 0, 0, 1i}
	case KindSdg:
		return [4]complex128{1, 0, 0, -1i}
	case KindRX:
		c, s := math.Cos(g.Params[0]/2), math.Sin(g.Params[0]/2)
		return [4]complex128{complex(c, 0), complex(0, -s), complex(0, -s), complex(c, 0)}
	case KindRY:
		c, s := math.Cos(g.Params[0]/2), math.Sin(g.Params[0]/2)
		return [4]complex128{complex(c, 0), complex(-s, 0), complex(s, 0), complex(c, 0)}
	case KindU3:
		theta, phi, lambda := g.Params[0], g.Params[1], g.Params[2]
		c, s := math.Cos(theta/2), math.Sin(theta/2)
		return [4]complex128{
			complex(c, 0),
			-cmplx.Exp(complex(0, lambda)) * complex(s, 0),
			cmplx.Exp(complex(0, phi)) * complex(s, 0),
			cmplx.Exp(complex(0, phi+lambda)) * complex(c, 0),
		}
	default:
		a0, a1 := g.angles()
		return [4]complex128{cmplx.Exp(complex(0, a0)), 0, 0, cmplx.Exp(complex(0, a1))}
	}
}

/*
angles returns the phases a diagonal gate applies to the |0> and |1> states of
its target. Folding a constant target bit b reduces the gate to the scalar
phase of angle b.
*/
func (g Gate) angles() (float64, float64) {
	switch g.Kind {
	case KindPauliZ:
		return 0, math.Pi
	case KindS:
		return 0, math.Pi / 2
	case KindSdg:
		return 0, -math.Pi / 2
	case KindT:
		return 0, math.Pi / 4
	case KindTdg:
		return 0, -math.Pi / 4
	case KindPhase:
		return 0, g.Params[0]
	case KindRZ:
		return -g.Params[0] / 2, g.Params[0] / 2
	default:
		return 0, 0
	}
}
