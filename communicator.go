package qshard

import (
	"context"
	"fmt"
)

/*
Communicator is the message-passing handle an engine is constructed with. Each
call is a collective or pairwise rendezvous: every participating rank must make
the matching call, in the same order, for any of them to return.

Errors returned by a communicator are transport failures and are fatal to the
engine that observes them.
*/
type Communicator interface {
	Rank() int
	Size() int

	// SendRecv hands send to peer and fills recv with the peer's send slice.
	// Both slices must have the same length on both sides. send is not read
	// after SendRecv returns.
	SendRecv(ctx context.Context, peer int, send, recv []complex128) error

	// AllReduceSum returns the sum of v over every rank.
	AllReduceSum(ctx context.Context, v float64) (float64, error)

	// Broadcast returns root's v on every rank.
	Broadcast(ctx context.Context, root int, v float64) (float64, error)

	// Gather returns the rank-ordered concatenation of every rank's send slice
	// on root and nil elsewhere.
	Gather(ctx context.Context, root int, send []complex128) ([]complex128, error)
}

type solo struct{}

// Solo returns the communicator of a single, undistributed process.
func Solo() Communicator {
	return solo{}
}

func (solo) Rank() int { return 0 }
func (solo) Size() int { return 1 }

func (solo) SendRecv(_ context.Context, peer int, _, _ []complex128) error {
	return fmt.Errorf("solo communicator has no peer %d", peer)
}

func (solo) AllReduceSum(_ context.Context, v float64) (float64, error) {
	return v, nil
}

func (solo) Broadcast(_ context.Context, _ int, v float64) (float64, error) {
	return v, nil
}

func (solo) Gather(_ context.Context, _ int, send []complex128) ([]complex128, error) {
	return append([]complex128(nil), send...), nil
}
