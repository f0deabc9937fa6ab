package nn

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/ann/internal/config"
	"github.com/born-ml/ann/internal/parallel"
	"github.com/born-ml/ann/internal/tensor"
)

// Activation is the elementwise nonlinearity of a layer.
//
// Both methods receive the pre-activation Z [nodes_out x batch_size] and
// return a new matrix of the same shape; Z is never modified.
//   - Eval: g(Z)
//   - Grad: g'(Z), evaluated at the same pre-activation
type Activation interface {
	Eval(z *mat.Dense) *mat.Dense
	Grad(z *mat.Dense) *mat.Dense
}

// Linear is the identity activation: f(x) = x.
type Linear struct{}

// NewLinear creates a new identity activation.
func NewLinear() *Linear {
	return &Linear{}
}

// Eval returns a copy of z.
func (a *Linear) Eval(z *mat.Dense) *mat.Dense {
	return mat.DenseCopyOf(z)
}

// Grad returns ones.
func (a *Linear) Grad(z *mat.Dense) *mat.Dense {
	return tensor.Apply(z, func(float64) float64 { return 1 })
}

// Tanh applies the hyperbolic tangent: f(x) = tanh(x).
type Tanh struct{}

// NewTanh creates a new Tanh activation.
func NewTanh() *Tanh {
	return &Tanh{}
}

// Eval applies tanh.
func (a *Tanh) Eval(z *mat.Dense) *mat.Dense {
	return tensor.Apply(z, math.Tanh)
}

// Grad returns 1 - tanh²(z).
func (a *Tanh) Grad(z *mat.Dense) *mat.Dense {
	return tensor.Apply(z, func(x float64) float64 {
		t := math.Tanh(x)
		return 1 - t*t
	})
}

// Sigmoid applies σ(x) = 1 / (1 + exp(-x)).
type Sigmoid struct{}

// NewSigmoid creates a new Sigmoid activation.
func NewSigmoid() *Sigmoid {
	return &Sigmoid{}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Eval applies σ.
func (a *Sigmoid) Eval(z *mat.Dense) *mat.Dense {
	return tensor.Apply(z, sigmoid)
}

// Grad returns σ(z)(1 - σ(z)).
func (a *Sigmoid) Grad(z *mat.Dense) *mat.Dense {
	return tensor.Apply(z, func(x float64) float64 {
		s := sigmoid(x)
		return s * (1 - s)
	})
}

// ReLU applies f(x) = max(0, x). The derivative at 0 is taken as 0.
type ReLU struct{}

// NewReLU creates a new ReLU activation.
func NewReLU() *ReLU {
	return &ReLU{}
}

// Eval applies max(0, x).
func (a *ReLU) Eval(z *mat.Dense) *mat.Dense {
	return tensor.Apply(z, func(x float64) float64 { return math.Max(0, x) })
}

// Grad returns 1 where z > 0, else 0.
func (a *ReLU) Grad(z *mat.Dense) *mat.Dense {
	return tensor.Apply(z, func(x float64) float64 {
		if x > 0 {
			return 1
		}
		return 0
	})
}

// Ramp clamps to [0, 1]: f(x) = min(max(x, 0), 1).
type Ramp struct{}

// NewRamp creates a new Ramp activation.
func NewRamp() *Ramp {
	return &Ramp{}
}

// Eval clamps z to [0, 1].
func (a *Ramp) Eval(z *mat.Dense) *mat.Dense {
	return tensor.Apply(z, func(x float64) float64 { return tensor.Clamp(x, 0, 1) })
}

// Grad returns 1 inside (0, 1), else 0.
func (a *Ramp) Grad(z *mat.Dense) *mat.Dense {
	return tensor.Apply(z, func(x float64) float64 {
		if x > 0 && x < 1 {
			return 1
		}
		return 0
	})
}

// Step is the Heaviside function: 1 for x > 0, else 0. Its gradient is 0
// everywhere, so a Step layer does not learn through backpropagation.
type Step struct{}

// NewStep creates a new Step activation.
func NewStep() *Step {
	return &Step{}
}

// Eval applies the Heaviside step.
func (a *Step) Eval(z *mat.Dense) *mat.Dense {
	return tensor.Apply(z, func(x float64) float64 {
		if x > 0 {
			return 1
		}
		return 0
	})
}

// Grad returns zeros.
func (a *Step) Grad(z *mat.Dense) *mat.Dense {
	return tensor.Apply(z, func(float64) float64 { return 0 })
}

// Softmax normalizes every column (sample) into a probability vector.
//
// Uses the max-subtraction trick for numerical stability.
//
// Grad returns ones: Softmax is meant to be paired with LogLoss, whose
// gradient yFit - y is already the gradient of cross-entropy with respect
// to the softmax input.
type Softmax struct{}

// NewSoftmax creates a new Softmax activation.
func NewSoftmax() *Softmax {
	return &Softmax{}
}

// Eval applies the column-wise softmax. Columns are independent and may be
// normalized concurrently under tensor.Elementwise.
func (a *Softmax) Eval(z *mat.Dense) *mat.Dense {
	r, c := z.Dims()
	out := mat.NewDense(r, c, nil)
	parallel.For(c, func(j int) {
		col := mat.Col(nil, j, z)
		maxVal := floats.Max(col)
		for i := range col {
			col[i] = math.Exp(col[i] - maxVal)
		}
		floats.Scale(1/floats.Sum(col), col)
		out.SetCol(j, col)
	}, tensor.Elementwise)
	return out
}

// Grad returns ones.
func (a *Softmax) Grad(z *mat.Dense) *mat.Dense {
	return tensor.Apply(z, func(float64) float64 { return 1 })
}

var activationRegistry = map[string]func() Activation{
	"linear":  func() Activation { return NewLinear() },
	"tanh":    func() Activation { return NewTanh() },
	"sigmoid": func() Activation { return NewSigmoid() },
	"relu":    func() Activation { return NewReLU() },
	"ramp":    func() Activation { return NewRamp() },
	"step":    func() Activation { return NewStep() },
	"softmax": func() Activation { return NewSoftmax() },
}

// NewActivation creates the activation selected by params["type"].
//
// Recognized types: linear, tanh, sigmoid, relu, ramp, step, softmax.
func NewActivation(params config.Params) (Activation, error) {
	typ, err := params.Type()
	if err != nil {
		return nil, fmt.Errorf("nn: activation: %w", err)
	}
	ctor, ok := activationRegistry[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownActivationType, typ, ActivationTypes())
	}
	return ctor(), nil
}

// ActivationTypes returns the recognized activation names in sorted order.
func ActivationTypes() []string {
	names := make([]string, 0, len(activationRegistry))
	for name := range activationRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
