package optim

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// RMSprop scales each step by a running average of squared gradients.
//
// Update rule:
//
//	s = decay * s + (1 - decay) * gradient²
//	param = param - lr * gradient / (sqrt(s) + eps)
type RMSprop struct {
	lr    float64
	decay float64
	eps   float64
	reg   Regularization
	sW    *mat.Dense
	sB    *mat.VecDense
}

// RMSpropConfig holds configuration for RMSprop optimizer.
//
// A zero field selects its default, so a decay of exactly 0 cannot be
// requested here; pass "decay": 0 to New instead.
type RMSpropConfig struct {
	LR    float64 // Learning rate (default: 0.001)
	Decay float64 // Averaging factor (default: 0.9, range: [0, 1))
	Eps   float64 // Term for numerical stability (default: 1e-8)
	Regularization
}

// NewRMSprop creates a new RMSprop optimizer for parameters shaped like w and b.
func NewRMSprop(w *mat.Dense, b *mat.VecDense, config RMSpropConfig) (*RMSprop, error) {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Decay == 0 {
		config.Decay = 0.9
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	if err := checkLR(config.LR); err != nil {
		return nil, err
	}
	if err := checkRange("decay", config.Decay, 0, 1); err != nil {
		return nil, err
	}
	if err := checkRange("epsilon", config.Eps, math.SmallestNonzeroFloat64, 1); err != nil {
		return nil, err
	}
	if err := config.Regularization.validate(); err != nil {
		return nil, err
	}

	r, c := w.Dims()
	return &RMSprop{
		lr:    config.LR,
		decay: config.Decay,
		eps:   config.Eps,
		reg:   config.Regularization,
		sW:    mat.NewDense(r, c, nil),
		sB:    mat.NewVecDense(b.Len(), nil),
	}, nil
}

// step updates the running average s in place and returns param - lr * g / (sqrt(s) + eps).
func (o *RMSprop) step(param, g, s []float64) []float64 {
	out := make([]float64, len(param))
	for i := range param {
		s[i] = o.decay*s[i] + (1-o.decay)*g[i]*g[i]
		out[i] = param[i] - o.lr*g[i]/(math.Sqrt(s[i])+o.eps)
	}
	return out
}

// UpdateW applies one step to the weights.
func (o *RMSprop) UpdateW(w, d, aPrev *mat.Dense) *mat.Dense {
	g := weightGrad(w, d, aPrev, o.reg)
	r, c := w.Dims()
	wc := mat.DenseCopyOf(w)
	data := o.step(wc.RawMatrix().Data, g.RawMatrix().Data, o.sW.RawMatrix().Data)
	return mat.NewDense(r, c, data)
}

// UpdateB applies one step to the bias.
func (o *RMSprop) UpdateB(b *mat.VecDense, d *mat.Dense) *mat.VecDense {
	g := biasGrad(d)
	bc := mat.VecDenseCopyOf(b)
	data := o.step(bc.RawVector().Data, g.RawVector().Data, o.sB.RawVector().Data)
	return mat.NewVecDense(len(data), data)
}

// GetLR returns the current learning rate.
func (o *RMSprop) GetLR() float64 {
	return o.lr
}

// SetLR updates the learning rate.
func (o *RMSprop) SetLR(lr float64) {
	o.lr = lr
}
