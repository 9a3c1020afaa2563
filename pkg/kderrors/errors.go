// Package kderrors defines the closed set of error kinds used throughout
// kdforest, grounded on the teacher's pkg/store.KVError — plain structs
// implementing error, but enriched with backtraces via github.com/pkg/errors
// for the two kinds that cross an I/O or decode boundary.
package kderrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// MetaBitfieldInsufficientBytes is returned when the persisted Meta blob is
// truncated relative to the root bitmap it claims to have.
type MetaBitfieldInsufficientBytes struct {
	Have, Want int
}

func (e *MetaBitfieldInsufficientBytes) Error() string {
	return fmt.Sprintf("meta bitfield truncated: have %d bytes, need %d", e.Have, e.Want)
}

// ScalarInBounds is returned when a Bounds value is derived from a Coord
// that was a bare Scalar where an interval was required.
type ScalarInBounds struct {
	Dim int
}

func (e *ScalarInBounds) Error() string {
	return fmt.Sprintf("dimension %d: scalar coordinate cannot form bounds, an interval is required", e.Dim)
}

// IntervalSides is returned when an interval's lo side exceeds its hi side.
type IntervalSides struct {
	Dim    int
	Lo, Hi float64
}

func (e *IntervalSides) Error() string {
	return fmt.Sprintf("dimension %d: interval lo=%v > hi=%v", e.Dim, e.Lo, e.Hi)
}

// TreeRemoved is returned when a tree id previously tombstoned is loaded again.
type TreeRemoved struct {
	ID uint64
}

func (e *TreeRemoved) Error() string {
	return fmt.Sprintf("tree %d has been removed", e.ID)
}

// TreeEmpty is returned when a tree file referenced from Meta has zero length.
type TreeEmpty struct {
	ID   uint64
	File string
}

func (e *TreeEmpty) Error() string {
	return fmt.Sprintf("tree %d (file %s) is empty", e.ID, e.File)
}

// RemoveIdsMissing is returned when error_if_missing is set and one or more
// delete rows in a batch matched no live record once queries resolved them.
type RemoveIdsMissing struct {
	IDs []string
}

func (e *RemoveIdsMissing) Error() string {
	return fmt.Sprintf("%d delete id(s) matched no live record: %v", len(e.IDs), e.IDs)
}

// Codec wraps a varint/bounds/tree decode failure with a backtrace.
func Codec(format string, args ...interface{}) error {
	return errors.WithStack(fmt.Errorf("codec: "+format, args...))
}

// Io wraps an underlying block store error with context and a backtrace.
func Io(context string, err error) error {
	if err == nil {
		return nil
	}
	return errors.WithMessage(errors.WithStack(err), "io: "+context)
}

// IsNotFound reports whether err is a kind that indicates an absent tree/key
// rather than a structural or I/O failure.
func IsNotFound(err error) bool {
	var removed *TreeRemoved
	var empty *TreeEmpty
	return errors.As(err, &removed) || errors.As(err, &empty)
}
