package qshard

import "context"

/*
fusionQueue records the gates submitted between BeginFusion and EndFusion.
Recording never touches the amplitude vector; the gates are cloned so the
caller may reuse its slices.
*/
type fusionQueue struct {
	open  bool
	gates []Gate
}

func newFusionQueue() *fusionQueue {
	return &fusionQueue{}
}

func (f *fusionQueue) push(g Gate) {
	f.gates = append(f.gates, g.clone())
}

// drain closes the bracket and hands back the recorded gates.
func (f *fusionQueue) drain() []Gate {
	gates := f.gates
	f.gates = nil
	f.open = false
	return gates
}

/*
BeginFusion opens a fusion bracket. Calling it while a bracket is already open
is a programming error and panics with ErrFusionSequence.
*/
func (e *Engine) BeginFusion() {
	if e.fusion.open {
		panic(ErrFusionSequence)
	}
	e.fusion.open = true
}

/*
EndFusion closes the bracket and runs the recorded gates as one fused pass per
data block. The queue is cleared whether or not compilation succeeds. Calling
it without an open bracket panics with ErrFusionSequence.
*/
func (e *Engine) EndFusion(ctx context.Context) error {
	if !e.fusion.open {
		panic(ErrFusionSequence)
	}

	gates := e.fusion.drain()
	if err := e.ready(); err != nil {
		return err
	}
	if len(gates) == 0 {
		return nil
	}

	e.log.Debug().Int("gates", len(gates)).Msg("end fusion")
	return e.run(ctx, gates)
}
