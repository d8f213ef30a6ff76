package qshard

import "errors"

var (
	// ErrInvalidPermutation is returned when an initial qubit assignment is not
	// a bijection over [0, N).
	ErrInvalidPermutation = errors.New("invalid qubit permutation")

	// ErrWrongTopologySize is returned at setup when the process or unit count
	// cannot be expressed as whole address bits of the declared register.
	ErrWrongTopologySize = errors.New("wrong topology size")

	// ErrTooManyOperatedQubits is returned when a gate or a fused batch needs
	// more simultaneously addressed qubits than the engine supports.
	ErrTooManyOperatedQubits = errors.New("too many operated qubits")

	ErrInvalidGate  = errors.New("invalid gate")
	ErrInvalidQubit = errors.New("invalid qubit")

	// ErrCircuitTerminated is returned for any submission after a terminal
	// operation.
	ErrCircuitTerminated = errors.New("circuit terminated")

	// ErrNotFusable is returned when a non-unitary operation is submitted
	// while a fusion bracket is open.
	ErrNotFusable = errors.New("operation cannot be fused")

	// ErrEngineFailed is returned after a transport failure left the
	// amplitude vector in an undefined state.
	ErrEngineFailed = errors.New("engine failed")

	// ErrFusionSequence is the panic value for out-of-sequence fusion calls.
	ErrFusionSequence = errors.New("fusion bracket used out of sequence")
)
