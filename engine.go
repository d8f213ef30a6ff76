package qshard

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"math/rand"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/theapemachine/errnie"
)

// maxQubits bounds the register so every address fits a signed machine word.
const maxQubits = 62

/*
Topology declares how a register is distributed. Processes must equal the
communicator size; Units is the number of data blocks each process holds.
Initial optionally assigns logical qubit q to bit position Initial[q].
*/
type Topology struct {
	Qubits    int
	Processes int
	Units     int
	Initial   []int
}

/*
Engine owns one rank's share of a distributed amplitude vector together with
the exchange buffer and the permutation table that interpret it. The three are
only ever changed together, through the coarse operations below, so no part of
the aggregate can go stale relative to the others.

An Engine is driven by a single goroutine. Every rank of a run must submit the
same operations in the same order.
*/
type Engine struct {
	cfg    *Config
	comm   Communicator
	layout Layout
	table  *Permutation

	state    []complex128
	exchange []complex128

	pool     *Pool
	dispatch *dispatcher
	metrics  *Metrics
	log      zerolog.Logger
	rng      *rand.Rand

	fusion   *fusionQueue
	outcomes []int

	terminated bool
	failed     error
}

/*
New sets up one rank of a run. It fails with ErrWrongTopologySize when the
topology cannot be expressed as whole address bits or disagrees with the
communicator, and with ErrInvalidPermutation for a bad initial assignment.
The rank starts in |0...0>.
*/
func New(cfg *Config, comm Communicator, topo Topology) (*Engine, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if comm == nil {
		comm = Solo()
	}

	if topo.Units == 0 {
		topo.Units = 1
	}
	if topo.Qubits < 1 || topo.Qubits > maxQubits {
		return nil, fmt.Errorf("%w: %d qubits", ErrWrongTopologySize, topo.Qubits)
	}
	if comm.Size() != topo.Processes {
		return nil, fmt.Errorf(
			"%w: topology declares %d processes, communicator has %d",
			ErrWrongTopologySize, topo.Processes, comm.Size(),
		)
	}
	if cfg.Root < 0 || cfg.Root >= comm.Size() {
		return nil, fmt.Errorf("%w: root rank %d", ErrWrongTopologySize, cfg.Root)
	}

	layout, err := NewLayout(topo.Qubits, topo.Processes, topo.Units)
	if err != nil {
		return nil, err
	}

	table, err := NewPermutation(topo.Qubits, topo.Initial)
	if err != nil {
		return nil, err
	}

	exchange := min(cfg.ExchangeBufferSize, layout.RankSize()) &^ 1
	if exchange < 2 {
		exchange = 2
	}

	logger := cfg.Logger.With().
		Str("run", uuid.NewString()).
		Int("rank", comm.Rank()).
		Logger()

	e := &Engine{
		cfg:      cfg,
		comm:     comm,
		layout:   layout,
		table:    table,
		state:    make([]complex128, layout.RankSize()),
		exchange: make([]complex128, exchange),
		pool:     NewPool(context.Background(), cfg.Workers),
		metrics:  NewMetrics(),
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		fusion:   newFusionQueue(),
		log:      logger,
	}
	e.dispatch = newDispatcher(cfg.CacheTileQubits, e.pool, e.metrics)
	e.reset()

	if e.isRoot() {
		errnie.Info(
			"engine ready: %d qubits, local=%d unit=%d global=%d",
			layout.Qubits, layout.Local, layout.Unit, layout.Global,
		)
	}

	return e, nil
}

/*
Apply submits one operation. Inside a fusion bracket unitary gates are only
recorded. Outside, a gate runs immediately: its non-diagonal targets are
brought to Local positions and it is compiled and dispatched as a batch of
one, so eager and fused execution share one code path.
*/
func (e *Engine) Apply(ctx context.Context, g Gate) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := g.validate(e.layout.Qubits); err != nil {
		return err
	}

	switch g.Kind {
	case KindExit:
		return e.Exit()
	case KindMeasure:
		outcome, err := e.Measure(ctx, g.Targets[0])
		if err != nil {
			return err
		}
		e.outcomes = append(e.outcomes, outcome)
		return nil
	}

	if e.fusion.open {
		e.fusion.push(g)
		return nil
	}

	return e.run(ctx, []Gate{g})
}

// run localizes, compiles and dispatches a batch.
func (e *Engine) run(ctx context.Context, gates []Gate) error {
	plan, err := e.compile(ctx, gates)
	if err != nil {
		return err
	}

	e.dispatch.execute(e.state, e.layout.Local, plan)
	return nil
}

func (e *Engine) compile(ctx context.Context, gates []Gate) (*FusedPlan, error) {
	need := mustLocal(gates)
	if len(need) > e.cfg.MaxFusedQubits {
		return nil, fmt.Errorf(
			"%w: %d qubits need local addressing, ceiling is %d",
			ErrTooManyOperatedQubits, len(need), e.cfg.MaxFusedQubits,
		)
	}

	referenced := make(map[int]bool)
	for _, g := range gates {
		for _, q := range g.Targets {
			referenced[q] = true
		}
		for _, q := range g.Controls {
			referenced[q] = true
		}
	}

	if err := e.localize(ctx, need, referenced); err != nil {
		return nil, e.fail(err)
	}

	plan, stats, err := compilePlan(e.layout, e.table, e.comm.Rank(), gates, e.cfg.MaxFusedQubits)
	if err != nil {
		return nil, err
	}

	e.metrics.recordCompile(stats.applied, stats.folded, stats.dropped)
	e.log.Trace().
		Int("gates", len(gates)).
		Ints("targets", plan.Targets).
		Ints("controls", plan.Controls).
		Int("programs", len(plan.Programs)).
		Msg("compiled")

	return plan, nil
}

/*
fail records a transport failure. Capacity errors leave the vector intact and
pass through unchanged.
*/
func (e *Engine) fail(err error) error {
	if errors.Is(err, ErrTooManyOperatedQubits) {
		return err
	}

	e.failed = err
	e.log.Error().Err(err).Msg("engine failed")
	return fmt.Errorf("%w: %w", ErrEngineFailed, err)
}

func (e *Engine) ready() error {
	switch {
	case e.failed != nil:
		return fmt.Errorf("%w: %w", ErrEngineFailed, e.failed)
	case e.terminated:
		return ErrCircuitTerminated
	}
	return nil
}

/*
settled refuses an operation that reads or overwrites the vector while a
fusion bracket still holds queued gates, since those gates were submitted
first and have not run yet.
*/
func (e *Engine) settled(op string) error {
	if e.fusion.open {
		return fmt.Errorf("%w: %s inside a fusion bracket", ErrNotFusable, op)
	}
	return nil
}

func (e *Engine) isRoot() bool {
	return e.comm.Rank() == e.cfg.Root
}

// Exit ends the circuit; every later submission returns ErrCircuitTerminated.
func (e *Engine) Exit() error {
	if err := e.settled("exit"); err != nil {
		return err
	}
	if e.terminated {
		return nil
	}
	e.terminated = true

	if e.isRoot() {
		errnie.Info("circuit finished: %v", e.metrics.ExportMetrics())
	}
	return nil
}

// Close stops the dispatcher's workers.
func (e *Engine) Close() {
	e.pool.Close()
}

// Reset returns the register to |0...0> and forgets recorded outcomes.
func (e *Engine) Reset() error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.settled("reset"); err != nil {
		return err
	}
	e.reset()
	return nil
}

func (e *Engine) reset() {
	clear(e.state)
	if e.comm.Rank() == 0 {
		e.state[0] = 1
	}
	e.outcomes = nil
}

/*
SetBasisState puts the register into the computational basis state with the
given logical index, bit q of index being logical qubit q.
*/
func (e *Engine) SetBasisState(index uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.settled("set basis state"); err != nil {
		return err
	}
	if bits.Len64(index) > e.layout.Qubits {
		return fmt.Errorf("%w: basis index %d outside %d qubits", ErrInvalidQubit, index, e.layout.Qubits)
	}

	physical := 0
	for q := 0; q < e.layout.Qubits; q++ {
		if index&(1<<uint(q)) != 0 {
			physical |= 1 << e.table.Lookup(q)
		}
	}

	clear(e.state)
	if physical>>(e.layout.Local+e.layout.Unit) == e.comm.Rank() {
		e.state[physical&(e.layout.RankSize()-1)] = 1
	}
	return nil
}

/*
Gather collects the whole vector on the root in logical bit order; every
other rank receives nil.
*/
func (e *Engine) Gather(ctx context.Context) ([]complex128, error) {
	if e.failed != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineFailed, e.failed)
	}
	if err := e.settled("gather"); err != nil {
		return nil, err
	}

	physical, err := e.comm.Gather(ctx, e.cfg.Root, e.state)
	if err != nil {
		return nil, e.fail(err)
	}
	if physical == nil {
		return nil, nil
	}

	positions := e.table.Snapshot()
	out := make([]complex128, len(physical))
	for p, amp := range physical {
		logical := 0
		for q, pos := range positions {
			logical |= (p >> pos & 1) << q
		}
		out[logical] = amp
	}
	return out, nil
}

// Layout returns the category widths of the run.
func (e *Engine) Layout() Layout {
	return e.layout
}

// Permutation returns a copy of the logical -> bit position map.
func (e *Engine) Permutation() []int {
	return e.table.Snapshot()
}

// Metrics returns the live counters of this rank.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// Outcomes returns the results of measurements submitted through Apply.
func (e *Engine) Outcomes() []int {
	return append([]int(nil), e.outcomes...)
}
