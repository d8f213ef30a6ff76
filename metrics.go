package qshard

import (
	"slices"
	"sync"
	"time"
)

/*
passWindow keeps the most recent pass durations of one traversal strategy in
a ring, so percentiles describe current behaviour rather than the whole run.
*/
type passWindow struct {
	samples []time.Duration
	next    int
	total   time.Duration
	count   int64
}

func newPassWindow(size int) *passWindow {
	return &passWindow{samples: make([]time.Duration, 0, size)}
}

func (w *passWindow) add(d time.Duration) {
	w.total += d
	w.count++

	if len(w.samples) < cap(w.samples) {
		w.samples = append(w.samples, d)
		return
	}
	w.samples[w.next] = d
	w.next = (w.next + 1) % len(w.samples)
}

// PassLatency summarises the passes run with one strategy.
type PassLatency struct {
	Average time.Duration
	P95     time.Duration
	P99     time.Duration
}

func (w *passWindow) summary() PassLatency {
	if w.count == 0 {
		return PassLatency{}
	}

	sorted := slices.Clone(w.samples)
	slices.Sort(sorted)
	at := func(q float64) time.Duration {
		return sorted[min(int(float64(len(sorted))*q), len(sorted)-1)]
	}

	return PassLatency{
		Average: w.total / time.Duration(w.count),
		P95:     at(0.95),
		P99:     at(0.99),
	}
}

// Metrics counts what an engine did to its share of the amplitude vector.
type Metrics struct {
	mu sync.RWMutex

	GatesApplied int64
	GatesFolded  int64
	GatesDropped int64

	FusedPasses int64
	PhasePasses int64
	Strategies  map[Strategy]int64

	UnitInterchanges    int64
	GlobalInterchanges  int64
	ExchangeRounds      int64
	AmplitudesExchanged int64

	Measurements int64

	passes     map[Strategy]*passWindow
	windowSize int
}

func NewMetrics() *Metrics {
	return &Metrics{
		Strategies: make(map[Strategy]int64),
		passes:     make(map[Strategy]*passWindow),
		windowSize: 1000,
	}
}

func (m *Metrics) recordPass(startTime time.Time, strategy Strategy) {
	duration := time.Since(startTime)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.FusedPasses++
	m.Strategies[strategy]++

	w, ok := m.passes[strategy]
	if !ok {
		w = newPassWindow(m.windowSize)
		m.passes[strategy] = w
	}
	w.add(duration)
}

// Latency returns the pass latency summary of one strategy.
func (m *Metrics) Latency(strategy Strategy) PassLatency {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if w, ok := m.passes[strategy]; ok {
		return w.summary()
	}
	return PassLatency{}
}

func (m *Metrics) recordCompile(applied, folded, dropped int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GatesApplied += int64(applied)
	m.GatesFolded += int64(folded)
	m.GatesDropped += int64(dropped)
}

func (m *Metrics) recordInterchange(category Category, rounds, amplitudes int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if category == CategoryGlobal {
		m.GlobalInterchanges++
	} else {
		m.UnitInterchanges++
	}
	m.ExchangeRounds += int64(rounds)
	m.AmplitudesExchanged += int64(amplitudes)
}

func (m *Metrics) recordPhasePass() {
	m.mu.Lock()
	m.PhasePasses++
	m.mu.Unlock()
}

func (m *Metrics) recordMeasurement() {
	m.mu.Lock()
	m.Measurements++
	m.mu.Unlock()
}

// ExportMetrics returns a flat snapshot suitable for reporting.
func (m *Metrics) ExportMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := map[string]interface{}{
		"gates_applied":        m.GatesApplied,
		"gates_folded":         m.GatesFolded,
		"gates_dropped":        m.GatesDropped,
		"fused_passes":         m.FusedPasses,
		"phase_passes":         m.PhasePasses,
		"unit_interchanges":    m.UnitInterchanges,
		"global_interchanges":  m.GlobalInterchanges,
		"exchange_rounds":      m.ExchangeRounds,
		"amplitudes_exchanged": m.AmplitudesExchanged,
		"measurements":         m.Measurements,
	}
	for strategy, count := range m.Strategies {
		name := strategy.String()
		latency := m.passes[strategy].summary()

		out["strategy_"+name] = count
		out["avg_pass_latency_"+name] = latency.Average.Microseconds()
		out["p95_pass_latency_"+name] = latency.P95.Microseconds()
		out["p99_pass_latency_"+name] = latency.P99.Microseconds()
	}
	return out
}
