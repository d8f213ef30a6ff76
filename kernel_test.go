package qshard

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"gonum.org/v1/gonum/cmplxs"
)

func basis(n, index int) []complex128 {
	v := make([]complex128, 1<<n)
	v[index] = 1
	return v
}

func TestAddressing(t *testing.T) {
	Convey("Given an addressing over positions 3 and 1", t, func() {
		a := newAddressing([]int{3, 1})

		Convey("Offsets should follow slot order", func() {
			So(a.offs, ShouldResemble, []int{0, 8, 2, 10})
			So(a.k(), ShouldEqual, 2)
		})

		Convey("base should insert zeros at the addressed bits", func() {
			So(a.base(0), ShouldEqual, 0)
			So(a.base(1), ShouldEqual, 1)
			So(a.base(2), ShouldEqual, 4)
			So(a.base(3), ShouldEqual, 5)
			So(a.base(4), ShouldEqual, 16)
			So(a.outer(32), ShouldEqual, 8)
		})
	})
}

func TestApplyStep(t *testing.T) {
	Convey("Given a three qubit span", t, func() {
		a := newAddressing([]int{0, 1, 2})

		Convey("A flip should move the basis state", func() {
			v := basis(3, 0b000)
			st := newStep(X(0), []int{1}, 0)
			invoke(v, a, []Step{st}, 0, 1)
			So(v, ShouldResemble, basis(3, 0b010))
		})

		Convey("A controlled flip should only act where the control is set", func() {
			v := basis(3, 0b001)
			invoke(v, a, []Step{newStep(X(0), []int{2}, 1<<0)}, 0, 1)
			So(v, ShouldResemble, basis(3, 0b101))

			w := basis(3, 0b010)
			invoke(w, a, []Step{newStep(X(0), []int{2}, 1<<0)}, 0, 1)
			So(w, ShouldResemble, basis(3, 0b010))
		})

		Convey("A swap should exchange the two target bits", func() {
			v := basis(3, 0b001)
			invoke(v, a, []Step{newStep(Swap(0, 1), []int{0, 2}, 0)}, 0, 1)
			So(v, ShouldResemble, basis(3, 0b100))
		})

		Convey("A diagonal step should only rephase", func() {
			v := basis(3, 0b011)
			invoke(v, a, []Step{newStep(Z(0), []int{1}, 0)}, 0, 1)
			So(v[0b011], ShouldEqual, complex(-1, 0))
		})

		Convey("Steps should run in order", func() {
			v := basis(3, 0)
			steps := []Step{
				newStep(H(0), []int{0}, 0),
				newStep(X(0), []int{1}, 1<<0),
			}
			invoke(v, a, steps, 0, 1)

			h := complex(1/math.Sqrt2, 0)
			So(cmplxs.EqualApprox(v, []complex128{h, 0, 0, h, 0, 0, 0, 0}, tolerance), ShouldBeTrue)
		})
	})

	Convey("Given a span wider than the addressed bits", t, func() {
		Convey("Every outer group should receive the steps", func() {
			a := newAddressing([]int{2})
			v := make([]complex128, 8)
			for i := range v {
				v[i] = complex(float64(i), 0)
			}

			invoke(v, a, []Step{newStep(X(0), []int{0}, 0)}, 0, a.outer(len(v)))
			So(v, ShouldResemble, []complex128{4, 5, 6, 7, 0, 1, 2, 3})
		})
	})
}

func TestReference(t *testing.T) {
	Convey("Given the reference register", t, func() {
		r := NewReference(2)

		Convey("It should build a Bell pair", func() {
			So(r.Apply(H(0)), ShouldBeNil)
			So(r.Apply(CX(0, 1)), ShouldBeNil)

			p := r.Probabilities()
			So(p[0], ShouldAlmostEqual, 0.5)
			So(p[3], ShouldAlmostEqual, 0.5)
		})

		Convey("It should refuse non-unitary operations", func() {
			So(r.Apply(Measure(0)), ShouldWrap, ErrInvalidGate)
		})
	})
}
