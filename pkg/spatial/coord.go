package spatial

import "github.com/ssargent/kdforest/pkg/kderrors"

// Coord is either a Scalar(s) or a closed Interval(lo, hi) with lo <= hi,
// per spec §3. The zero value is the scalar zero.
type Coord[S Number] struct {
	lo, hi   S
	interval bool
}

// NewScalar builds a point-valued Coord.
func NewScalar[S Number](v S) Coord[S] {
	return Coord[S]{lo: v, hi: v}
}

// NewInterval builds an interval-valued Coord. lo > hi fails with
// IntervalSides, matching §3's invalidity rule.
func NewInterval[S Number](dim int, lo, hi S) (Coord[S], error) {
	if lo > hi {
		return Coord[S]{}, &kderrors.IntervalSides{Dim: dim, Lo: float64(lo), Hi: float64(hi)}
	}
	return Coord[S]{lo: lo, hi: hi, interval: true}, nil
}

// MustInterval is NewInterval without a dimension index, for call sites
// (tests, CLI parsing) that already validated lo <= hi.
func MustInterval[S Number](lo, hi S) Coord[S] {
	c, err := NewInterval[S](0, lo, hi)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Coord[S]) IsInterval() bool { return c.interval }
func (c Coord[S]) Lo() S            { return c.lo }
func (c Coord[S]) Hi() S            { return c.hi }

// ProjectionLower is the axis-k projection using the lower selector
// (spec §4.E step 3): the scalar value, or an interval's lo endpoint.
func (c Coord[S]) ProjectionLower() S { return c.lo }

// ProjectionUpper is the axis-k projection using the upper selector:
// the scalar value, or an interval's hi endpoint.
func (c Coord[S]) ProjectionUpper() S { return c.hi }

// OverlapsPivot reports whether this coordinate straddles pivot p, per
// spec §8 invariant 5: "An interval overlaps a pivot iff lo <= pivot <= hi".
// A Scalar Coord overlaps a pivot only when they're equal.
func (c Coord[S]) OverlapsPivot(p S) bool {
	return c.lo <= p && p <= c.hi
}

// OverlapsRange reports whether this coordinate overlaps a bbox edge
// [lo,hi] on its axis, per spec §8 invariant 5.
func (c Coord[S]) OverlapsRange(lo, hi S) bool {
	return lo <= c.hi && c.lo <= hi
}

// Midpoint implements the reference's midpoint_upper: the pivot candidate
// for two boundary Coords is the average of their upper ("hi") sides.
func (c Coord[S]) Midpoint(other Coord[S]) S {
	return average(c.hi, other.hi)
}

// byteSize returns the on-disk size of this single Coord's scalar payload
// (the arity bit itself is stored once for the whole Point, not per-Coord).
func (c Coord[S]) byteSize() int {
	if c.interval {
		return 2 * scalarSize[S]()
	}
	return scalarSize[S]()
}

func (c Coord[S]) encode(dst []byte) int {
	n := encodeScalar(dst, c.lo)
	if c.interval {
		n += encodeScalar(dst[n:], c.hi)
	}
	return n
}

func decodeCoord[S Number](src []byte, interval bool) (int, Coord[S], error) {
	n, lo, err := decodeScalar[S](src)
	if err != nil {
		return 0, Coord[S]{}, err
	}
	if !interval {
		return n, Coord[S]{lo: lo, hi: lo}, nil
	}
	n2, hi, err := decodeScalar[S](src[n:])
	if err != nil {
		return 0, Coord[S]{}, err
	}
	return n + n2, Coord[S]{lo: lo, hi: hi, interval: true}, nil
}
