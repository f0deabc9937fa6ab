package tensor

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Zeros creates a matrix filled with zeros.
//
// Panics if the shape is invalid; callers validate user supplied sizes first.
func Zeros(shape Shape) *mat.Dense {
	if err := shape.Validate(); err != nil {
		panic(err)
	}
	return mat.NewDense(shape.Rows, shape.Cols, nil)
}

// ZerosVec creates a vector of n zeros.
func ZerosVec(n int) *mat.VecDense {
	if n <= 0 {
		panic(fmt.Errorf("%w: vector length %d", ErrInvalidShape, n))
	}
	return mat.NewVecDense(n, nil)
}

// FromRows creates a matrix from a slice of equally long rows.
// The data is copied.
//
// Example:
//
//	x, err := tensor.FromRows([][]float64{
//	    {1, 2, 0},
//	    {0, 1, 1},
//	})
func FromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty rows", ErrInvalidShape)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d elements, expected %d", ErrShapeMismatch, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

// Randn creates a matrix with values drawn from N(0, std²).
//
// A nil src uses the global math/rand/v2 source.
func Randn(shape Shape, std float64, src rand.Source) *mat.Dense {
	dist := distuv.Normal{Mu: 0, Sigma: std, Src: src}
	m := Zeros(shape)
	data := m.RawMatrix().Data
	for i := range data {
		data[i] = dist.Rand()
	}
	return m
}

// Uniform creates a matrix with values drawn from U(-bound, bound).
//
// A nil src uses the global math/rand/v2 source.
func Uniform(shape Shape, bound float64, src rand.Source) *mat.Dense {
	dist := distuv.Uniform{Min: -bound, Max: bound, Src: src}
	m := Zeros(shape)
	data := m.RawMatrix().Data
	for i := range data {
		data[i] = dist.Rand()
	}
	return m
}
