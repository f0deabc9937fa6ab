// Package tensor provides the 2-D shape bookkeeping and elementwise helpers
// shared by the nn and optim packages.
//
// All matrices are gonum *mat.Dense values in feature-major layout:
// rows are units (or features), columns are samples of a batch.
package tensor

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Common errors.
var (
	ErrShapeMismatch = errors.New("tensor: shape mismatch")
	ErrInvalidShape  = errors.New("tensor: invalid shape")
)

// Shape represents the dimensions of a matrix.
type Shape struct {
	Rows int
	Cols int
}

// Of returns the shape of m.
func Of(m mat.Matrix) Shape {
	r, c := m.Dims()
	return Shape{Rows: r, Cols: c}
}

// NumElements returns the total number of elements.
func (s Shape) NumElements() int {
	return s.Rows * s.Cols
}

// Validate checks if the shape is valid (both dimensions > 0).
func (s Shape) Validate() error {
	if s.Rows <= 0 || s.Cols <= 0 {
		return fmt.Errorf("%w: %v (dimensions must be > 0)", ErrInvalidShape, s)
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	return s.Rows == other.Rows && s.Cols == other.Cols
}

// String formats the shape as [rows x cols].
func (s Shape) String() string {
	return fmt.Sprintf("[%d x %d]", s.Rows, s.Cols)
}

// SameShape returns ErrShapeMismatch (wrapped with both shapes) when a and b differ.
func SameShape(a, b mat.Matrix) error {
	sa, sb := Of(a), Of(b)
	if !sa.Equal(sb) {
		return fmt.Errorf("%w: %v vs %v", ErrShapeMismatch, sa, sb)
	}
	return nil
}

// Expect returns ErrShapeMismatch when m does not have the wanted shape.
func Expect(m mat.Matrix, want Shape) error {
	if got := Of(m); !got.Equal(want) {
		return fmt.Errorf("%w: expected %v, got %v", ErrShapeMismatch, want, got)
	}
	return nil
}
