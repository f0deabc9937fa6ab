package nn

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/ann/internal/tensor"
)

// Initializer creates the initial [nodesOut x nodesIn] weight matrix of a layer.
//
// src may be nil, in which case the global math/rand/v2 source is used.
type Initializer func(nodesIn, nodesOut int, src rand.Source) *mat.Dense

// NormalInit draws weights from N(0, 1) scaled by 1/sqrt(nodesIn).
//
// This is the default initializer of NewLayer.
func NormalInit(nodesIn, nodesOut int, src rand.Source) *mat.Dense {
	std := 1 / math.Sqrt(float64(nodesIn))
	return tensor.Randn(tensor.Shape{Rows: nodesOut, Cols: nodesIn}, std, src)
}

// XavierInit (Glorot) draws weights from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
//
// This initialization helps maintain variance of activations across layers.
func XavierInit(nodesIn, nodesOut int, src rand.Source) *mat.Dense {
	bound := math.Sqrt(6.0 / float64(nodesIn+nodesOut))
	return tensor.Uniform(tensor.Shape{Rows: nodesOut, Cols: nodesIn}, bound, src)
}
