package qshard

import "sort"

/*
addressing turns a list of bit positions into the offsets of every address
combination they span. slots keeps the plan's slot order (slot s is bit s of a
combination index); sorted is the same set ascending, which is what inserting
zero bits into an outer index needs.
*/
type addressing struct {
	slots  []int
	sorted []int
	offs   []int
}

func newAddressing(slots []int) addressing {
	a := addressing{
		slots:  append([]int(nil), slots...),
		sorted: append([]int(nil), slots...),
		offs:   make([]int, 1<<len(slots)),
	}
	sort.Ints(a.sorted)

	for j := range a.offs {
		off := 0
		for s, pos := range a.slots {
			if j&(1<<s) != 0 {
				off |= 1 << pos
			}
		}
		a.offs[j] = off
	}

	return a
}

// k returns the number of addressed bits.
func (a addressing) k() int {
	return len(a.slots)
}

// outer returns how many address groups a span of n amplitudes holds.
func (a addressing) outer(n int) int {
	return n >> len(a.slots)
}

// base expands an outer index into the address of its group's first element.
func (a addressing) base(x int) int {
	for _, pos := range a.sorted {
		low := x & (1<<pos - 1)
		x = (x^low)<<1 | low
	}
	return x
}

/*
invoke is the local kernel invoker: for every outer index in [lo, hi) it
rebuilds the 2^k address group inside span and runs each step over it in
order. It holds no state and touches nothing outside span.
*/
func invoke(span []complex128, a addressing, steps []Step, lo, hi int) {
	for x := lo; x < hi; x++ {
		base := a.base(x)
		for i := range steps {
			applyStep(span, base, a.offs, &steps[i])
		}
	}
}
