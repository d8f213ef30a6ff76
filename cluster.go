package qshard

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

/*
LocalCluster runs several ranks inside one OS process, one goroutine each,
and connects them with channels. It implements the same rendezvous semantics a
network communicator has, which makes it the transport for tests and for
machines that simply want more ranks than one address space would give.

Pairwise exchange uses a data link and an acknowledgement link per ordered
pair of ranks: a rank returns from SendRecv only after the peer has copied its
data out, so the sender may reuse its buffer immediately.
*/
type LocalCluster struct {
	size  int
	links [][]chan []complex128
	acks  [][]chan struct{}
	coll  *collective
}

func NewLocalCluster(size int) *LocalCluster {
	c := &LocalCluster{
		size:  size,
		links: make([][]chan []complex128, size),
		acks:  make([][]chan struct{}, size),
		coll:  newCollective(size),
	}

	for from := 0; from < size; from++ {
		c.links[from] = make([]chan []complex128, size)
		c.acks[from] = make([]chan struct{}, size)
		for to := 0; to < size; to++ {
			c.links[from][to] = make(chan []complex128, 1)
			c.acks[from][to] = make(chan struct{}, 1)
		}
	}

	return c
}

// Size returns the number of ranks.
func (c *LocalCluster) Size() int {
	return c.size
}

// Comm returns the communicator handle of one rank.
func (c *LocalCluster) Comm(rank int) Communicator {
	return &localComm{cluster: c, rank: rank}
}

/*
Run starts fn once per rank and waits for all of them. The first error cancels
the context every other rank is blocked on and is returned.
*/
func (c *LocalCluster) Run(ctx context.Context, fn func(ctx context.Context, comm Communicator) error) error {
	g, ctx := errgroup.WithContext(ctx)

	for rank := 0; rank < c.size; rank++ {
		comm := c.Comm(rank)
		g.Go(func() error {
			if err := fn(ctx, comm); err != nil {
				return fmt.Errorf("rank %d: %w", comm.Rank(), err)
			}
			return nil
		})
	}

	return g.Wait()
}

type localComm struct {
	cluster *LocalCluster
	rank    int
}

func (lc *localComm) Rank() int { return lc.rank }
func (lc *localComm) Size() int { return lc.cluster.size }

func (lc *localComm) SendRecv(ctx context.Context, peer int, send, recv []complex128) error {
	if peer < 0 || peer >= lc.cluster.size || peer == lc.rank {
		return fmt.Errorf("rank %d cannot exchange with peer %d", lc.rank, peer)
	}
	if len(send) != len(recv) {
		return fmt.Errorf("exchange size mismatch: send %d, recv %d", len(send), len(recv))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case lc.cluster.links[lc.rank][peer] <- send:
	case <-ctx.Done():
		return ctx.Err()
	}

	var in []complex128
	select {
	case in = <-lc.cluster.links[peer][lc.rank]:
	case <-ctx.Done():
		return ctx.Err()
	}

	if len(in) != len(recv) {
		return fmt.Errorf("exchange size mismatch with peer %d: got %d, want %d", peer, len(in), len(recv))
	}
	copy(recv, in)

	select {
	case lc.cluster.acks[lc.rank][peer] <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-lc.cluster.acks[peer][lc.rank]:
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (lc *localComm) AllReduceSum(ctx context.Context, v float64) (float64, error) {
	r, err := lc.cluster.coll.join(ctx, lc.rank, v, nil)
	if err != nil {
		return 0, err
	}

	var sum float64
	for _, f := range r.floats {
		sum += f
	}
	return sum, nil
}

func (lc *localComm) Broadcast(ctx context.Context, root int, v float64) (float64, error) {
	r, err := lc.cluster.coll.join(ctx, lc.rank, v, nil)
	if err != nil {
		return 0, err
	}
	return r.floats[root], nil
}

func (lc *localComm) Gather(ctx context.Context, root int, send []complex128) ([]complex128, error) {
	var own []complex128
	if lc.rank != root {
		own = append([]complex128(nil), send...)
	} else {
		own = send
	}

	r, err := lc.cluster.coll.join(ctx, lc.rank, 0, own)
	if err != nil {
		return nil, err
	}
	if lc.rank != root {
		return nil, nil
	}

	total := 0
	for _, v := range r.vecs {
		total += len(v)
	}
	out := make([]complex128, 0, total)
	for _, v := range r.vecs {
		out = append(out, v...)
	}
	return out, nil
}

/*
collective is a reusable all-ranks rendezvous. Each round collects one float
and one vector per rank; the round is released when the last rank arrives and
a fresh round takes its place, so a fast rank can never overwrite what a slow
rank is still reading.
*/
type collective struct {
	mu      sync.Mutex
	size    int
	arrived int
	current *round
}

type round struct {
	done   chan struct{}
	floats []float64
	vecs   [][]complex128
}

func newCollective(size int) *collective {
	return &collective{size: size, current: newRound(size)}
}

func newRound(size int) *round {
	return &round{
		done:   make(chan struct{}),
		floats: make([]float64, size),
		vecs:   make([][]complex128, size),
	}
}

func (c *collective) join(ctx context.Context, rank int, f float64, v []complex128) (*round, error) {
	c.mu.Lock()
	r := c.current
	r.floats[rank] = f
	r.vecs[rank] = v
	c.arrived++
	if c.arrived == c.size {
		c.arrived = 0
		c.current = newRound(c.size)
		close(r.done)
	}
	c.mu.Unlock()

	select {
	case <-r.done:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
