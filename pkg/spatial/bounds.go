package spatial

// Bounds is an axis-aligned box: a pair of Scalar tuples (spec §3).
type Bounds[S Number] struct {
	Lo, Hi []S
}

// Dim returns the bounds' dimension.
func (b Bounds[S]) Dim() int { return len(b.Lo) }

// Overlaps reports whether two bounds intersect on every axis.
func (b Bounds[S]) Overlaps(other Bounds[S]) bool {
	for i := range b.Lo {
		if b.Hi[i] < other.Lo[i] || other.Hi[i] < b.Lo[i] {
			return false
		}
	}
	return true
}

// Union returns the smallest Bounds covering both b and other, used when a
// tree's overall bounds (or a TreeRef's conservative box) is accumulated
// from its rows.
func (b Bounds[S]) Union(other Bounds[S]) Bounds[S] {
	lo := make([]S, len(b.Lo))
	hi := make([]S, len(b.Hi))
	for i := range b.Lo {
		lo[i] = minS(b.Lo[i], other.Lo[i])
		hi[i] = maxS(b.Hi[i], other.Hi[i])
	}
	return Bounds[S]{Lo: lo, Hi: hi}
}

// CountBytes returns the encoded size of a D-dimensional Bounds value: two
// fixed-width scalars per axis, no arity byte (a Bounds is never partially
// scalar — every axis has both a lo and a hi).
func (b Bounds[S]) CountBytes() int {
	return 2 * len(b.Lo) * scalarSize[S]()
}

// Encode writes b to dst and returns the number of bytes written.
func (b Bounds[S]) Encode(dst []byte) int {
	n := 0
	for i := range b.Lo {
		n += encodeScalar(dst[n:], b.Lo[i])
	}
	for i := range b.Hi {
		n += encodeScalar(dst[n:], b.Hi[i])
	}
	return n
}

// DecodeBounds reads a dim-dimensional Bounds from the front of src.
func DecodeBounds[S Number](dim int, src []byte) (int, Bounds[S], error) {
	lo := make([]S, dim)
	hi := make([]S, dim)
	n := 0
	for i := 0; i < dim; i++ {
		cn, v, err := decodeScalar[S](src[n:])
		if err != nil {
			return 0, Bounds[S]{}, err
		}
		lo[i] = v
		n += cn
	}
	for i := 0; i < dim; i++ {
		cn, v, err := decodeScalar[S](src[n:])
		if err != nil {
			return 0, Bounds[S]{}, err
		}
		hi[i] = v
		n += cn
	}
	return n, Bounds[S]{Lo: lo, Hi: hi}, nil
}

// BoundsOf computes the union Bounds covering every point in pts. Returns
// false if pts is empty.
func BoundsOf[S Number](pts []Point[S]) (Bounds[S], bool) {
	if len(pts) == 0 {
		return Bounds[S]{}, false
	}
	b := pts[0].ToBounds()
	for _, p := range pts[1:] {
		b = b.Union(p.ToBounds())
	}
	return b, true
}

func minS[S Number](a, b S) S {
	if a < b {
		return a
	}
	return b
}

func maxS[S Number](a, b S) S {
	if a > b {
		return a
	}
	return b
}
