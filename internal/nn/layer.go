package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/ann/internal/config"
	"github.com/born-ml/ann/internal/optim"
	"github.com/born-ml/ann/internal/tensor"
)

// layerState tracks the forward/backward alternation.
type layerState int

const (
	stateReady     layerState = iota // no cached forward pass
	stateForwarded                   // A_prev and Z hold the last forward pass
)

// Layer implements a fully connected (dense) layer with its own activation
// and optimizer.
//
// Performs the transformation: A = g(W · X + b)
// where:
//   - X is the input with shape [nodes_in, batch_size]
//   - W is the weight matrix with shape [nodes_out, nodes_in]
//   - b is the bias vector with shape [nodes_out], added to every column
//   - A is the output with shape [nodes_out, batch_size]
//
// Forward and Backward alternate: Backward consumes the input and
// pre-activation cached by the immediately preceding Forward, applies one
// optimizer step to W and b and returns the error for the previous layer.
// Calling Forward again before Backward discards the cached pass.
//
// A Layer is not safe for concurrent use. Each Layer must be driven by one
// goroutine at a time; parallel training needs one Layer per worker or
// external locking around each Forward/Backward pair.
//
// Example:
//
//	layer, err := nn.NewLayer(784, 128,
//	    config.Params{"type": "relu"},
//	    config.Params{"type": "adam", "learn_rate": 0.001},
//	)
//
//	out, err := layer.Forward(x)   // x: [784, 32] -> out: [128, 32]
//	prev, err := layer.Backward(e) // e: [128, 32] -> prev: [784, 32]
type Layer struct {
	nodesIn     int
	nodesOut    int
	w           *mat.Dense    // [nodes_out, nodes_in]
	b           *mat.VecDense // [nodes_out]
	act         Activation
	opt         optim.Optimizer
	propagation Propagation

	state layerState
	aPrev *mat.Dense // [nodes_in, batch_size]
	z     *mat.Dense // [nodes_out, batch_size]
}

// NewLayer creates a new Layer.
//
// Weights are initialized with NormalInit (N(0, 1) / sqrt(nodesIn)) unless
// WithWeights or WithInit is given. Biases are initialized to zeros. The
// optimizer is built from the initial W and b so its state buffers match.
//
// Parameters:
//   - nodesIn: Number of input units (rows of the input batch)
//   - nodesOut: Number of output units
//   - activation: Options for NewActivation (requires "type")
//   - optimizer: Options for optim.New (requires "type")
//
// Returns ErrConfiguration for non-positive sizes or invalid options, and
// the factory errors (ErrUnknownActivationType, optim.ErrUnknownOptimizerType)
// for unrecognized types.
func NewLayer(nodesIn, nodesOut int, activation, optimizer config.Params, opts ...LayerOption) (*Layer, error) {
	l, err := newLayer(nodesIn, nodesOut, opts)
	if err != nil {
		return nil, err
	}

	l.act, err = NewActivation(activation)
	if err != nil {
		return nil, err
	}
	l.opt, err = optim.New(l.w, l.b, optimizer)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// NewLayerWith creates a new Layer around an existing activation and
// optimizer. The Layer takes exclusive ownership of both; the optimizer
// must have been sized for a [nodesOut, nodesIn] layer.
func NewLayerWith(nodesIn, nodesOut int, act Activation, opt optim.Optimizer, opts ...LayerOption) (*Layer, error) {
	if act == nil || opt == nil {
		return nil, fmt.Errorf("%w: activation and optimizer are required", ErrConfiguration)
	}
	l, err := newLayer(nodesIn, nodesOut, opts)
	if err != nil {
		return nil, err
	}
	l.act = act
	l.opt = opt
	return l, nil
}

func newLayer(nodesIn, nodesOut int, opts []LayerOption) (*Layer, error) {
	if nodesIn <= 0 || nodesOut <= 0 {
		return nil, fmt.Errorf("%w: layer sizes must be > 0, got nodes_in=%d nodes_out=%d",
			ErrConfiguration, nodesIn, nodesOut)
	}

	o := defaultLayerOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.propagation != PropagatePreUpdate && o.propagation != PropagatePostUpdate {
		return nil, fmt.Errorf("%w: unknown propagation mode %v", ErrConfiguration, o.propagation)
	}

	l := &Layer{
		nodesIn:     nodesIn,
		nodesOut:    nodesOut,
		propagation: o.propagation,
		state:       stateReady,
	}

	switch {
	case o.weights != nil:
		if err := tensor.Expect(o.weights, tensor.Shape{Rows: nodesOut, Cols: nodesIn}); err != nil {
			return nil, fmt.Errorf("nn: initial weights: %w", err)
		}
		l.w = mat.DenseCopyOf(o.weights)
	case o.init != nil:
		l.w = o.init(nodesIn, nodesOut, o.src)
		if err := tensor.Expect(l.w, tensor.Shape{Rows: nodesOut, Cols: nodesIn}); err != nil {
			return nil, fmt.Errorf("nn: initializer: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: nil initializer", ErrConfiguration)
	}

	if o.bias != nil {
		if o.bias.Len() != nodesOut {
			return nil, fmt.Errorf("nn: initial bias: %w: expected length %d, got %d",
				ErrShapeMismatch, nodesOut, o.bias.Len())
		}
		l.b = mat.VecDenseCopyOf(o.bias)
	} else {
		l.b = tensor.ZerosVec(nodesOut)
	}
	return l, nil
}

// Forward computes the output of the layer.
//
// Performs: A = g(W · X + b)
//
// Input shape: [nodes_in, batch_size]
// Output shape: [nodes_out, batch_size]
//
// The input is copied into the layer's cache together with the
// pre-activation, replacing any earlier forward pass.
func (l *Layer) Forward(x mat.Matrix) (*mat.Dense, error) {
	r, c := x.Dims()
	if r != l.nodesIn || c == 0 {
		return nil, fmt.Errorf("nn: forward: %w: expected input with %d rows and at least one column, got %v",
			ErrShapeMismatch, l.nodesIn, tensor.Of(x))
	}

	aPrev := mat.DenseCopyOf(x)

	// Z = W · X, then broadcast b over the batch
	var z mat.Dense
	z.Mul(l.w, aPrev)
	if err := tensor.AddColumn(&z, l.b); err != nil {
		return nil, fmt.Errorf("nn: forward: bias: %w", err)
	}

	a := l.act.Eval(&z)
	if err := tensor.Expect(a, tensor.Of(&z)); err != nil {
		return nil, fmt.Errorf("nn: forward: activation output: %w", err)
	}

	l.aPrev = aPrev
	l.z = &z
	l.state = stateForwarded
	return a, nil
}

// Backward propagates the error e through the layer and updates W and b.
//
// e is the gradient of the loss with respect to this layer's output, with
// shape [nodes_out, batch_size] matching the preceding Forward.
//
//	D = e ⊙ g'(Z)
//	W = optimizer.UpdateW(W, D, A_prev)
//	b = optimizer.UpdateB(b, D)
//
// Returns Wᵀ · D [nodes_in, batch_size], the error for the previous layer,
// using the pre-update W unless the layer was built with
// WithPropagation(PropagatePostUpdate).
//
// Returns ErrOrdering when there is no cached forward pass and
// ErrShapeMismatch when e does not match it or the activation gradient has
// the wrong shape; in these cases the layer is left unchanged.
//
// ErrShapeMismatch is also returned when the optimizer produces W or b of
// the wrong shape. The layer keeps its parameters and cached pass, but the
// optimizer's own state (momentum, Adam timestep) may already have advanced.
func (l *Layer) Backward(e mat.Matrix) (*mat.Dense, error) {
	if l.state != stateForwarded {
		return nil, fmt.Errorf("nn: backward: %w", ErrOrdering)
	}
	if err := tensor.Expect(e, tensor.Of(l.z)); err != nil {
		return nil, fmt.Errorf("nn: backward: error signal: %w", err)
	}

	g := l.act.Grad(l.z)
	if err := tensor.Expect(g, tensor.Of(l.z)); err != nil {
		return nil, fmt.Errorf("nn: backward: activation gradient: %w", err)
	}
	var d mat.Dense
	d.MulElem(e, g)

	var prop mat.Dense
	if l.propagation == PropagatePreUpdate {
		prop.Mul(l.w.T(), &d)
	}

	newW := l.opt.UpdateW(l.w, &d, l.aPrev)
	newB := l.opt.UpdateB(l.b, &d)
	if newW == nil || newB == nil {
		return nil, fmt.Errorf("nn: backward: %w: optimizer returned nil parameters", ErrShapeMismatch)
	}
	if err := tensor.Expect(newW, tensor.Of(l.w)); err != nil {
		return nil, fmt.Errorf("nn: backward: optimizer weights: %w", err)
	}
	if newB.Len() != l.nodesOut {
		return nil, fmt.Errorf("nn: backward: optimizer bias: %w: expected length %d, got %d",
			ErrShapeMismatch, l.nodesOut, newB.Len())
	}
	l.w, l.b = newW, newB

	if l.propagation == PropagatePostUpdate {
		prop.Mul(l.w.T(), &d)
	}

	l.reset()
	return &prop, nil
}

// reset drops the cached forward pass.
func (l *Layer) reset() {
	l.aPrev, l.z = nil, nil
	l.state = stateReady
}

// Ready reports whether the layer is waiting for a Forward call (true) or
// holds a cached pass waiting for Backward (false).
func (l *Layer) Ready() bool {
	return l.state == stateReady
}

// NodesIn returns the number of input units.
func (l *Layer) NodesIn() int {
	return l.nodesIn
}

// NodesOut returns the number of output units.
func (l *Layer) NodesOut() int {
	return l.nodesOut
}

// Weights returns a copy of the weight matrix [nodes_out, nodes_in].
func (l *Layer) Weights() *mat.Dense {
	return mat.DenseCopyOf(l.w)
}

// Bias returns a copy of the bias vector [nodes_out].
func (l *Layer) Bias() *mat.VecDense {
	return mat.VecDenseCopyOf(l.b)
}

// Propagation returns the propagation mode of Backward.
func (l *Layer) Propagation() Propagation {
	return l.propagation
}

// String returns a short description of the layer.
func (l *Layer) String() string {
	return fmt.Sprintf("Layer[%d -> %d, %T, %T, %v]", l.nodesIn, l.nodesOut, l.act, l.opt, l.propagation)
}
