package nn

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Propagation selects which weights Backward uses for the error it returns.
type Propagation int

const (
	// PropagatePreUpdate returns Wᵀ · D with the weights as they were during
	// the forward pass. This is the gradient of the loss with respect to the
	// layer input, which is what the preceding layer needs.
	PropagatePreUpdate Propagation = iota

	// PropagatePostUpdate returns Wᵀ · D with the weights the optimizer just
	// produced. It mixes one step of the update into the upstream gradient
	// and exists to reproduce networks trained with that convention.
	PropagatePostUpdate
)

// String returns the mode name.
func (p Propagation) String() string {
	switch p {
	case PropagatePreUpdate:
		return "pre-update"
	case PropagatePostUpdate:
		return "post-update"
	default:
		return fmt.Sprintf("Propagation(%d)", int(p))
	}
}

// LayerOption configures a Layer at construction.
type LayerOption func(*layerOptions)

type layerOptions struct {
	weights     *mat.Dense
	bias        *mat.VecDense
	init        Initializer
	src         rand.Source
	propagation Propagation
}

func defaultLayerOptions() layerOptions {
	return layerOptions{
		init:        NormalInit,
		propagation: PropagatePreUpdate,
	}
}

// WithWeights injects the initial weights [nodesOut x nodesIn] and bias
// [nodesOut], bypassing random initialization. Both are copied.
// A nil bias starts at zero.
func WithWeights(w *mat.Dense, b *mat.VecDense) LayerOption {
	return func(o *layerOptions) {
		o.weights = w
		o.bias = b
	}
}

// WithInit replaces the default NormalInit weight initializer.
func WithInit(init Initializer) LayerOption {
	return func(o *layerOptions) {
		o.init = init
	}
}

// WithSource sets the random source used by the initializer.
//
// Example:
//
//	layer, err := nn.NewLayer(3, 2, act, opt, nn.WithSource(rand.NewPCG(1, 2)))
func WithSource(src rand.Source) LayerOption {
	return func(o *layerOptions) {
		o.src = src
	}
}

// WithPropagation selects the weights used for the propagated error.
// The default is PropagatePreUpdate.
func WithPropagation(p Propagation) LayerOption {
	return func(o *layerOptions) {
		o.propagation = p
	}
}
