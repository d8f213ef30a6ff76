package qshard

import (
	"context"
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"gonum.org/v1/gonum/cmplxs"
)

func randomBlock(rng *rand.Rand, n int) []complex128 {
	v := make([]complex128, 1<<n)
	for i := range v {
		v[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	cmplxs.Scale(complex(1/cmplxs.Norm(v, 2), 0), v)
	return v
}

func TestDispatcher(t *testing.T) {
	Convey("Given a dispatcher with four amplitude tiles", t, func() {
		pool := NewPool(context.Background(), 3)
		metrics := NewMetrics()
		d := newDispatcher(2, pool, metrics)

		Reset(func() {
			pool.Close()
		})

		rng := rand.New(rand.NewSource(7))
		const local = 6

		cases := []struct {
			name     string
			slots    []int
			strategy Strategy
		}{
			{"tiled", []int{1, 0}, StrategyTiled},
			{"streaming", []int{5, 3}, StrategyStreaming},
			{"hybrid", []int{4, 1}, StrategyHybrid},
			{"hybrid with several high bits", []int{2, 5, 0, 3}, StrategyHybrid},
		}

		for _, tc := range cases {
			Convey("The "+tc.name+" traversal should match sequential application", func() {
				So(d.strategy(local, tc.slots), ShouldEqual, tc.strategy)

				block := randomBlock(rng, local)
				r := &Reference{Qubits: local, Vector: append([]complex128(nil), block...)}

				steps := []Step{
					newStep(H(0), []int{0}, 0),
					newStep(RY(0, 0.7), []int{1}, 1<<0),
					newStep(T(0), []int{0}, 0),
				}
				So(r.Apply(H(tc.slots[0])), ShouldBeNil)
				So(r.Apply(RY(tc.slots[1], 0.7).Controlled(tc.slots[0])), ShouldBeNil)
				So(r.Apply(T(tc.slots[0])), ShouldBeNil)

				d.run(block, local, tc.slots, steps)

				So(cmplxs.EqualApprox(block, r.Vector, tolerance), ShouldBeTrue)
				So(metrics.Strategies[tc.strategy], ShouldEqual, 1)
			})
		}

		Convey("A block that fits one tile should run whole", func() {
			So(d.strategy(2, []int{0, 1}), ShouldEqual, StrategyWholeBlock)

			block := randomBlock(rng, 2)
			r := &Reference{Qubits: 2, Vector: append([]complex128(nil), block...)}
			So(r.Apply(Swap(0, 1)), ShouldBeNil)

			d.run(block, 2, []int{0, 1}, []Step{newStep(Swap(0, 1), []int{0, 1}, 0)})
			So(cmplxs.EqualApprox(block, r.Vector, tolerance), ShouldBeTrue)
		})

		Convey("execute should apply each program to its own block", func() {
			state := randomBlock(rng, 4)
			orig := append([]complex128(nil), state...)

			plan := &FusedPlan{
				Targets: []int{0},
				Programs: []UnitProgram{
					{Unit: 1, Steps: []Step{newStep(X(0), []int{0}, 0)}, Phase: math.Pi / 3, HasPhase: true},
				},
			}
			d.execute(state, 3, plan)

			want := append([]complex128(nil), orig...)
			rot := cmplx.Exp(complex(0, math.Pi/3))
			for i := 8; i < 16; i++ {
				want[i] = rot * orig[i^1]
			}

			So(cmplxs.EqualApprox(state, want, tolerance), ShouldBeTrue)
			So(metrics.PhasePasses, ShouldEqual, 1)
		})
	})
}
