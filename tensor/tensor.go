// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/ann/internal/tensor"
)

// Errors reported by shape checks.
var (
	ErrShapeMismatch = tensor.ErrShapeMismatch
	ErrInvalidShape  = tensor.ErrInvalidShape
)

// Shape is the [rows x cols] size of a matrix.
type Shape = tensor.Shape

// Of returns the shape of m.
func Of(m mat.Matrix) Shape {
	return tensor.Of(m)
}

// Expect returns an error wrapping ErrShapeMismatch unless m has shape want.
func Expect(m mat.Matrix, want Shape) error {
	return tensor.Expect(m, want)
}

// Zeros creates a zero matrix. Panics if shape is invalid.
func Zeros(shape Shape) *mat.Dense {
	return tensor.Zeros(shape)
}

// FromRows creates a matrix from equally long rows.
func FromRows(rows [][]float64) (*mat.Dense, error) {
	return tensor.FromRows(rows)
}
