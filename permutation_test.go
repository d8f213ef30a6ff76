package qshard

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPermutation(t *testing.T) {
	Convey("Given a permutation table", t, func() {
		Convey("It should default to the identity", func() {
			p, err := NewPermutation(4, nil)
			So(err, ShouldBeNil)
			So(p.Snapshot(), ShouldResemble, []int{0, 1, 2, 3})
			So(p.Owner(2), ShouldEqual, 2)
		})

		Convey("It should accept a bijective initial assignment", func() {
			p, err := NewPermutation(3, []int{2, 0, 1})
			So(err, ShouldBeNil)
			So(p.Lookup(0), ShouldEqual, 2)
			So(p.Owner(2), ShouldEqual, 0)
			So(p.Owner(0), ShouldEqual, 1)
			So(p.Validate(), ShouldBeNil)
		})

		Convey("It should reject assignments that are not bijections", func() {
			_, err := NewPermutation(3, []int{0, 0, 1})
			So(err, ShouldWrap, ErrInvalidPermutation)

			_, err = NewPermutation(3, []int{0, 1})
			So(err, ShouldWrap, ErrInvalidPermutation)

			_, err = NewPermutation(3, []int{0, 1, 3})
			So(err, ShouldWrap, ErrInvalidPermutation)

			_, err = NewPermutation(0, nil)
			So(err, ShouldWrap, ErrInvalidPermutation)
		})

		Convey("Swap should keep both directions consistent", func() {
			p, _ := NewPermutation(5, nil)
			p.Swap(1, 4)
			p.Swap(4, 0)

			So(p.Lookup(1), ShouldEqual, 0)
			So(p.Lookup(0), ShouldEqual, 4)
			So(p.Lookup(4), ShouldEqual, 1)
			So(p.Validate(), ShouldBeNil)
			So(func() { p.mustValidate() }, ShouldNotPanic)
		})

		Convey("mustValidate should panic on a broken table", func() {
			p, _ := NewPermutation(2, nil)
			p.owners[0] = 1
			So(p.Validate(), ShouldWrap, ErrInvalidPermutation)
			So(func() { p.mustValidate() }, ShouldPanic)
		})
	})
}

func TestLayout(t *testing.T) {
	Convey("Given a topology", t, func() {
		Convey("It should split the register into categories", func() {
			l, err := NewLayout(10, 4, 2)
			So(err, ShouldBeNil)
			So(l, ShouldResemble, Layout{Qubits: 10, Local: 7, Unit: 1, Global: 2})
			So(l.Processes(), ShouldEqual, 4)
			So(l.Units(), ShouldEqual, 2)
			So(l.BlockSize(), ShouldEqual, 128)
			So(l.RankSize(), ShouldEqual, 256)
		})

		Convey("It should classify every position", func() {
			l, _ := NewLayout(6, 2, 2)
			So(l.Category(0), ShouldEqual, CategoryLocal)
			So(l.Category(3), ShouldEqual, CategoryLocal)
			So(l.Category(4), ShouldEqual, CategoryUnit)
			So(l.Category(5), ShouldEqual, CategoryGlobal)
			So(CategoryGlobal.String(), ShouldEqual, "global")
		})

		Convey("It should read constant bits from rank and unit", func() {
			l, _ := NewLayout(6, 4, 2)
			So(l.ConstantBit(2, 1, 3), ShouldEqual, 1)
			So(l.ConstantBit(2, 0, 3), ShouldEqual, 0)
			So(l.ConstantBit(2, 1, 4), ShouldEqual, 0)
			So(l.ConstantBit(2, 1, 5), ShouldEqual, 1)
		})

		Convey("It should reject sizes that are not whole address bits", func() {
			_, err := NewLayout(4, 3, 1)
			So(err, ShouldWrap, ErrWrongTopologySize)

			_, err = NewLayout(4, 2, 6)
			So(err, ShouldWrap, ErrWrongTopologySize)

			_, err = NewLayout(3, 4, 2)
			So(err, ShouldWrap, ErrWrongTopologySize)

			_, err = NewLayout(3, 0, 1)
			So(err, ShouldWrap, ErrWrongTopologySize)
		})

		Convey("It should keep room for a two-target gate in Local", func() {
			_, err := NewLayout(4, 8, 1)
			So(err, ShouldWrap, ErrWrongTopologySize)

			_, err = NewLayout(5, 4, 4)
			So(err, ShouldWrap, ErrWrongTopologySize)

			l, err := NewLayout(4, 4, 1)
			So(err, ShouldBeNil)
			So(l.Local, ShouldEqual, 2)

			one, err := NewLayout(1, 1, 1)
			So(err, ShouldBeNil)
			So(one.Local, ShouldEqual, 1)
		})
	})
}
