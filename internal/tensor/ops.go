package tensor

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/ann/internal/parallel"
)

// Elementwise controls how Apply splits large matrices across goroutines.
var Elementwise = parallel.DefaultConfig()

// Apply returns a new matrix with f applied to every element of m.
// m is not modified. f may run concurrently on different elements.
func Apply(m mat.Matrix, f func(float64) float64) *mat.Dense {
	out := mat.DenseCopyOf(m)
	data := out.RawMatrix().Data
	parallel.ForChunks(len(data), func(start, end int) {
		for i := start; i < end; i++ {
			data[i] = f(data[i])
		}
	}, Elementwise)
	return out
}

// Diff returns yFit - y as a new matrix.
func Diff(y, yFit mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Sub(yFit, y)
	return &out
}

// Sign returns -1, 0 or 1 according to the sign of x.
// Sign(0) is 0; NaN propagates.
func Sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return x // 0, -0 or NaN
	}
}

// Clamp limits x to [lo, hi]. NaN is returned unchanged.
func Clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}

// RowSums returns the sum of every row of m as a vector of length rows.
//
// For a feature-major batch this is the per-unit sum over samples.
func RowSums(m *mat.Dense) *mat.VecDense {
	r, _ := m.Dims()
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		out.SetVec(i, floats.Sum(m.RawRowView(i)))
	}
	return out
}

// AddColumn adds v to every column of dst in place (bias broadcast over the batch).
//
// Returns ErrShapeMismatch if v's length differs from the row count of dst.
func AddColumn(dst *mat.Dense, v mat.Vector) error {
	r, _ := dst.Dims()
	if v.Len() != r {
		return ErrShapeMismatch
	}
	for i := 0; i < r; i++ {
		row := dst.RawRowView(i)
		floats.AddConst(v.AtVec(i), row)
	}
	return nil
}
