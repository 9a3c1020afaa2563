package spatial

import "github.com/ssargent/kdforest/pkg/kderrors"

// MaxDim is the largest dimension count a Point supports: the arity
// bitmask (spec §4.B) is a single byte, one bit per axis.
const MaxDim = 8

// Point is a D-tuple of Coord values, D in {2,...,8} (spec §3). D is fixed
// per database and carried at runtime rather than as a Go array length —
// see DESIGN.md for why a single generic type serves Tree2..Tree8 here.
type Point[S Number] []Coord[S]

// Dim returns the point's dimension.
func (p Point[S]) Dim() int { return len(p) }

// AxisLower is the level's axis-k projection using the lower selector.
func (p Point[S]) AxisLower(axis int) S { return p[axis].ProjectionLower() }

// AxisUpper is the level's axis-k projection using the upper selector.
func (p Point[S]) AxisUpper(axis int) S { return p[axis].ProjectionUpper() }

// arityMask computes the 1-byte bitmask of which axes are intervals.
func (p Point[S]) arityMask() byte {
	var mask byte
	for i, c := range p {
		if c.IsInterval() {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// CountBytes returns the encoded size of p: 1 arity byte plus one or two
// scalar values per axis (spec §4.B).
func (p Point[S]) CountBytes() int {
	n := 1
	for _, c := range p {
		n += c.byteSize()
	}
	return n
}

// Encode writes p to dst (which must be at least p.CountBytes() long) and
// returns the number of bytes written.
func (p Point[S]) Encode(dst []byte) int {
	dst[0] = p.arityMask()
	n := 1
	for _, c := range p {
		n += c.encode(dst[n:])
	}
	return n
}

// DecodePoint reads a dim-dimensional Point from the front of src.
func DecodePoint[S Number](dim int, src []byte) (int, Point[S], error) {
	if dim < 2 || dim > MaxDim {
		return 0, nil, kderrors.Codec("invalid dimension %d", dim)
	}
	if len(src) < 1 {
		return 0, nil, kderrors.Codec("buffer too small for point arity byte")
	}
	mask := src[0]
	n := 1
	p := make(Point[S], dim)
	for i := 0; i < dim; i++ {
		interval := mask&(1<<uint(i)) != 0
		cn, c, err := decodeCoord[S](src[n:], interval)
		if err != nil {
			return 0, nil, err
		}
		p[i] = c
		n += cn
	}
	return n, p, nil
}

// Overlaps reports whether p lies within bbox on every axis (spec §8
// invariant 3/4: query soundness and completeness both hinge on this).
func (p Point[S]) Overlaps(bbox Bounds[S]) bool {
	for i, c := range p {
		if !c.OverlapsRange(bbox.Lo[i], bbox.Hi[i]) {
			return false
		}
	}
	return true
}

// ToBounds converts p to a conservative Bounds, used when building a
// TreeRef's pruning box. Every Coord (Scalar or Interval) has well-defined
// lo/hi endpoints, so this never fails; RequireInterval below is the
// ScalarInBounds check spec §9 describes for call sites that need a true
// interval rather than a degenerate [v,v] box.
func (p Point[S]) ToBounds() Bounds[S] {
	lo := make([]S, len(p))
	hi := make([]S, len(p))
	for i, c := range p {
		lo[i], hi[i] = c.Lo(), c.Hi()
	}
	return Bounds[S]{Lo: lo, Hi: hi}
}

// RequireInterval returns ScalarInBounds if axis dim of p is a bare Scalar,
// per spec §9: "Scalar is rejected with ScalarInBounds when bounds are
// required".
func (p Point[S]) RequireInterval(dim int) error {
	if !p[dim].IsInterval() {
		return &kderrors.ScalarInBounds{Dim: dim}
	}
	return nil
}
