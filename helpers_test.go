package qshard

import (
	"context"
	"math/rand"

	"gonum.org/v1/gonum/cmplxs"
)

const tolerance = 1e-9

// testConfig keeps tiles and the exchange buffer tiny so small registers
// still exercise every traversal strategy and multi-round interchanges.
func testConfig() *Config {
	cfg := NewConfig()
	cfg.Workers = 2
	cfg.CacheTileQubits = 2
	cfg.ExchangeBufferSize = 4
	cfg.Debug = true
	return cfg
}

type simulation struct {
	vector []complex128
	tables [][]int
	ranks  []*Metrics
}

/*
simulate runs fn on every rank of an in-process cluster and gathers the final
vector in logical order.
*/
func simulate(cfg *Config, topo Topology, fn func(context.Context, *Engine) error) (simulation, error) {
	cluster := NewLocalCluster(topo.Processes)
	sim := simulation{
		tables: make([][]int, topo.Processes),
		ranks:  make([]*Metrics, topo.Processes),
	}

	err := cluster.Run(context.Background(), func(ctx context.Context, comm Communicator) error {
		e, err := New(cfg, comm, topo)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := fn(ctx, e); err != nil {
			return err
		}

		vector, err := e.Gather(ctx)
		if err != nil {
			return err
		}
		if vector != nil {
			sim.vector = vector
		}
		sim.tables[comm.Rank()] = e.Permutation()
		sim.ranks[comm.Rank()] = e.Metrics()
		return nil
	})

	return sim, err
}

func applyAll(gates []Gate) func(context.Context, *Engine) error {
	return func(ctx context.Context, e *Engine) error {
		for _, g := range gates {
			if err := e.Apply(ctx, g); err != nil {
				return err
			}
		}
		return nil
	}
}

func referenceVector(n int, gates []Gate) []complex128 {
	r := NewReference(n)
	for _, g := range gates {
		if err := r.Apply(g); err != nil {
			panic(err)
		}
	}
	return r.Vector
}

func sameVector(a, b []complex128) bool {
	return len(a) == len(b) && cmplxs.EqualApprox(a, b, tolerance)
}

var randomKinds = []GateKind{
	KindHadamard, KindPauliX, KindPauliY, KindPauliZ, KindS, KindSdg, KindT,
	KindTdg, KindPhase, KindRX, KindRY, KindRZ, KindU3, KindSwap,
}

// randomGate draws a gate over n qubits with up to two controls.
func randomGate(rng *rand.Rand, n int) Gate {
	kind := randomKinds[rng.Intn(len(randomKinds))]
	if kind == KindSwap && n < 2 {
		kind = KindHadamard
	}

	qubits := rng.Perm(n)
	g := Gate{Kind: kind}

	arity := gateTable[kind].targets
	g.Targets = append(g.Targets, qubits[:arity]...)
	for i := 0; i < gateTable[kind].params; i++ {
		g.Params = append(g.Params, rng.Float64()*2*3.14159)
	}

	controls := rng.Intn(3)
	if controls > n-arity {
		controls = n - arity
	}
	g.Controls = append(g.Controls, qubits[arity:arity+controls]...)

	return g
}

func randomCircuit(rng *rand.Rand, n, length int) []Gate {
	gates := make([]Gate, length)
	for i := range gates {
		gates[i] = randomGate(rng, n)
	}
	return gates
}
