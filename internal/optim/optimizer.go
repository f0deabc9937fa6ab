// Package optim implements the parameter update rules of a dense layer.
//
// This package provides:
//   - Optimizer interface: the contract a Layer delegates parameter updates to
//   - SGD: gradient descent with optional momentum
//   - RMSprop: per-element adaptive learning rate
//   - Adam: adaptive moment estimation with bias correction
//   - New: factory selecting an optimizer from config.Params
//
// Every optimizer owns the state (velocities, moments) of exactly one
// layer; its buffers are sized from the layer's initial W and b.
//
// Example usage:
//
//	opt, err := optim.New(w, b, config.Params{
//	    "type":       "adam",
//	    "learn_rate": 0.001,
//	})
//
//	// inside Layer.Backward
//	w = opt.UpdateW(w, d, aPrev)
//	b = opt.UpdateB(b, d)
package optim

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/ann/internal/config"
	"github.com/born-ml/ann/internal/tensor"
)

// ErrUnknownOptimizerType is returned by New for an unrecognized "type".
var ErrUnknownOptimizerType = errors.New("optim: unknown optimizer type")

// Optimizer updates the weights and bias of one layer.
//
// Both methods receive the local error signal d [nodes_out x batch_size]
// computed by the layer's backward pass and return the updated parameter
// as a new value; the arguments are not modified.
//
// The gradients are:
//
//	dW = d · aPrevᵀ   [nodes_out x nodes_in]
//	db = rowsums(d)   [nodes_out]
type Optimizer interface {
	// UpdateW returns the new weight matrix given the current weights,
	// the local error signal and the layer input cached by forward.
	UpdateW(w, d, aPrev *mat.Dense) *mat.Dense

	// UpdateB returns the new bias vector.
	UpdateB(b *mat.VecDense, d *mat.Dense) *mat.VecDense
}

// Regularization adds L1 and L2 penalties to the weight gradient:
//
//	dW += L1 * sign(W) + L2 * W
//
// The bias is never regularized.
type Regularization struct {
	L1 float64
	L2 float64
}

func (r Regularization) validate() error {
	if r.L1 < 0 || r.L2 < 0 {
		return fmt.Errorf("%w: L1 and L2 must be >= 0, got %g and %g", config.ErrConfiguration, r.L1, r.L2)
	}
	return nil
}

// weightGrad computes d · aPrevᵀ plus the regularization terms.
func weightGrad(w, d, aPrev *mat.Dense, reg Regularization) *mat.Dense {
	var g mat.Dense
	g.Mul(d, aPrev.T())
	if reg.L1 != 0 {
		var l1 mat.Dense
		l1.Scale(reg.L1, tensor.Apply(w, tensor.Sign))
		g.Add(&g, &l1)
	}
	if reg.L2 != 0 {
		var l2 mat.Dense
		l2.Scale(reg.L2, w)
		g.Add(&g, &l2)
	}
	return &g
}

// biasGrad sums d over the batch.
func biasGrad(d *mat.Dense) *mat.VecDense {
	return tensor.RowSums(d)
}

func checkRange(name string, v, lo, hi float64) error {
	if v < lo || v >= hi {
		return fmt.Errorf("%w: %s must be in [%g, %g), got %g", config.ErrConfiguration, name, lo, hi, v)
	}
	return nil
}

func checkLR(lr float64) error {
	if lr < 0 {
		return fmt.Errorf("%w: learn_rate must be >= 0, got %g", config.ErrConfiguration, lr)
	}
	return nil
}

// Option keys read by New.
const (
	KeyLearnRate = "learn_rate"
	KeyMomentum  = "momentum"
	KeyDecay     = "decay"
	KeyBeta1     = "beta1"
	KeyBeta2     = "beta2"
	KeyEpsilon   = "epsilon"
	KeyL1        = "L1"
	KeyL2        = "L2"
)

// reader collects the first error while reading optional numeric options.
type reader struct {
	p   config.Params
	err error
}

func (r *reader) float(key string) float64 {
	if r.err != nil {
		return 0
	}
	v, err := r.p.FloatOr(key, 0)
	r.err = err
	return v
}

// zero reports whether key is present and explicitly 0. The constructors
// read a zero field as "use the default", so New applies such values after
// construction.
func (r *reader) zero(key string) bool {
	if _, ok := r.p[key]; !ok {
		return false
	}
	v, err := r.p.Float(key)
	return err == nil && v == 0
}

func (r *reader) regularization() Regularization {
	return Regularization{L1: r.float(KeyL1), L2: r.float(KeyL2)}
}

var registry = map[string]func(w *mat.Dense, b *mat.VecDense, p config.Params) (Optimizer, error){
	"sgd": func(w *mat.Dense, b *mat.VecDense, p config.Params) (Optimizer, error) {
		r := &reader{p: p}
		cfg := SGDConfig{
			LR:             r.float(KeyLearnRate),
			Momentum:       r.float(KeyMomentum),
			Regularization: r.regularization(),
		}
		if r.err != nil {
			return nil, r.err
		}
		o, err := NewSGD(w, b, cfg)
		if err != nil {
			return nil, err
		}
		if r.zero(KeyLearnRate) {
			o.lr = 0
		}
		return o, nil
	},
	"rmsprop": func(w *mat.Dense, b *mat.VecDense, p config.Params) (Optimizer, error) {
		r := &reader{p: p}
		cfg := RMSpropConfig{
			LR:             r.float(KeyLearnRate),
			Decay:          r.float(KeyDecay),
			Eps:            r.float(KeyEpsilon),
			Regularization: r.regularization(),
		}
		if r.err != nil {
			return nil, r.err
		}
		o, err := NewRMSprop(w, b, cfg)
		if err != nil {
			return nil, err
		}
		if r.zero(KeyLearnRate) {
			o.lr = 0
		}
		if r.zero(KeyDecay) {
			o.decay = 0
		}
		return o, nil
	},
	"adam": func(w *mat.Dense, b *mat.VecDense, p config.Params) (Optimizer, error) {
		r := &reader{p: p}
		cfg := AdamConfig{
			LR:             r.float(KeyLearnRate),
			Betas:          [2]float64{r.float(KeyBeta1), r.float(KeyBeta2)},
			Eps:            r.float(KeyEpsilon),
			Regularization: r.regularization(),
		}
		if r.err != nil {
			return nil, r.err
		}
		o, err := NewAdam(w, b, cfg)
		if err != nil {
			return nil, err
		}
		if r.zero(KeyLearnRate) {
			o.lr = 0
		}
		if r.zero(KeyBeta1) {
			o.beta1 = 0
		}
		if r.zero(KeyBeta2) {
			o.beta2 = 0
		}
		return o, nil
	},
}

// New creates the optimizer selected by params["type"] for a layer whose
// initial parameters are w and b.
//
// Recognized types and options (absent options take the constructor defaults;
// an explicit 0 for learn_rate, decay, beta1 or beta2 is kept as 0):
//   - sgd:     learn_rate, momentum, L1, L2
//   - rmsprop: learn_rate, decay, epsilon, L1, L2
//   - adam:    learn_rate, beta1, beta2, epsilon, L1, L2
func New(w *mat.Dense, b *mat.VecDense, params config.Params) (Optimizer, error) {
	typ, err := params.Type()
	if err != nil {
		return nil, fmt.Errorf("optim: %w", err)
	}
	ctor, ok := registry[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownOptimizerType, typ, Types())
	}
	o, err := ctor(w, b, params)
	if err != nil {
		return nil, fmt.Errorf("optim: %s: %w", typ, err)
	}
	return o, nil
}

// Types returns the recognized optimizer names in sorted order.
func Types() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
