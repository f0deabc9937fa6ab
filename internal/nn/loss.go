package nn

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/ann/internal/config"
	"github.com/born-ml/ann/internal/tensor"
)

// Loss scores predictions against targets and differentiates the score.
//
// y and yFit are feature-major batches of identical shape
// [label_dim x batch_size]. Eval returns the summed per-element loss
// divided by the batch size (the number of columns). Grad returns the
// gradient with respect to yFit, with the shape of yFit; it is consumed
// directly as the error signal of the last layer's Backward.
//
// Losses are immutable after construction and safe for concurrent use.
type Loss interface {
	Eval(y, yFit mat.Matrix) (float64, error)
	Grad(y, yFit mat.Matrix) (*mat.Dense, error)
}

// minNormalFloat64 is the smallest positive normal float64 (DBL_MIN).
var minNormalFloat64 = math.Float64frombits(0x0010000000000000)

func batchSize(m mat.Matrix) float64 {
	_, c := m.Dims()
	return float64(c)
}

// meanOver applies term to every element of yFit - y and returns the sum
// divided by the batch size.
func meanOver(y, yFit mat.Matrix, term func(e float64) float64) (float64, error) {
	if err := tensor.SameShape(y, yFit); err != nil {
		return 0, err
	}
	l := tensor.Apply(tensor.Diff(y, yFit), term)
	return mat.Sum(l) / batchSize(y), nil
}

// gradOver applies g to every element of yFit - y.
func gradOver(y, yFit mat.Matrix, g func(e float64) float64) (*mat.Dense, error) {
	if err := tensor.SameShape(y, yFit); err != nil {
		return nil, err
	}
	return tensor.Apply(tensor.Diff(y, yFit), g), nil
}

// LogLoss is the cross-entropy loss for indicator (one-hot) targets.
//
// Only the entries of yFit whose matching target equals 1 contribute:
//
//	Loss = sum(clamp(-log(yFit[y == 1]), DBL_MIN, DBL_MAX)) / batch_size
//
// The clamp keeps -log(0) finite and also floors each selected term at
// DBL_MIN, so a perfect prediction scores a tiny positive value rather
// than exactly zero.
//
// Grad returns yFit - y, the combined gradient of cross-entropy with a
// softmax (or sigmoid) output activation.
type LogLoss struct{}

// NewLogLoss creates a new log loss.
func NewLogLoss() *LogLoss {
	return &LogLoss{}
}

// Eval computes the clamped log loss.
func (l *LogLoss) Eval(y, yFit mat.Matrix) (float64, error) {
	if err := tensor.SameShape(y, yFit); err != nil {
		return 0, err
	}
	r, c := y.Dims()
	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if y.At(i, j) != 1 {
				continue
			}
			sum += tensor.Clamp(-math.Log(yFit.At(i, j)), minNormalFloat64, math.MaxFloat64)
		}
	}
	return sum / batchSize(y), nil
}

// Grad returns yFit - y.
func (l *LogLoss) Grad(y, yFit mat.Matrix) (*mat.Dense, error) {
	return gradOver(y, yFit, func(e float64) float64 { return e })
}

// SquaredLoss computes the squared error.
//
//	Loss = sum((yFit - y)²) / batch_size
//	Grad = 2 (yFit - y)
type SquaredLoss struct{}

// NewSquaredLoss creates a new squared loss.
func NewSquaredLoss() *SquaredLoss {
	return &SquaredLoss{}
}

// Eval computes the squared loss.
func (l *SquaredLoss) Eval(y, yFit mat.Matrix) (float64, error) {
	return meanOver(y, yFit, func(e float64) float64 { return e * e })
}

// Grad returns 2 (yFit - y).
func (l *SquaredLoss) Grad(y, yFit mat.Matrix) (*mat.Dense, error) {
	return gradOver(y, yFit, func(e float64) float64 { return 2 * e })
}

// AbsoluteLoss computes the absolute error.
//
//	Loss = sum(|yFit - y|) / batch_size
//	Grad = sign(yFit - y)
//
// The gradient is 0 where predictions equal targets exactly.
type AbsoluteLoss struct{}

// NewAbsoluteLoss creates a new absolute loss.
func NewAbsoluteLoss() *AbsoluteLoss {
	return &AbsoluteLoss{}
}

// Eval computes the absolute loss.
func (l *AbsoluteLoss) Eval(y, yFit mat.Matrix) (float64, error) {
	return meanOver(y, yFit, math.Abs)
}

// Grad returns sign(yFit - y).
func (l *AbsoluteLoss) Grad(y, yFit mat.Matrix) (*mat.Dense, error) {
	return gradOver(y, yFit, tensor.Sign)
}

// HuberLoss is quadratic for small errors and linear for large ones.
//
// With E = |yFit - y| and delta = dHuber:
//
//	term = E²/2                  if E <= delta
//	term = delta (E - delta/2)   otherwise
//
// The gradient is yFit - y inside the quadratic zone and
// delta·sign(yFit - y) outside it; both branches agree at E == delta.
type HuberLoss struct {
	delta float64
}

// NewHuberLoss creates a Huber loss. delta must be > 0.
func NewHuberLoss(delta float64) (*HuberLoss, error) {
	if err := validateDelta(delta); err != nil {
		return nil, err
	}
	return &HuberLoss{delta: delta}, nil
}

// Delta returns the transition point dHuber.
func (l *HuberLoss) Delta() float64 {
	return l.delta
}

// Eval computes the Huber loss.
func (l *HuberLoss) Eval(y, yFit mat.Matrix) (float64, error) {
	d := l.delta
	return meanOver(y, yFit, func(e float64) float64 {
		e = math.Abs(e)
		if e <= d {
			return e * e / 2
		}
		return d * (e - d/2)
	})
}

// Grad computes the Huber gradient.
func (l *HuberLoss) Grad(y, yFit mat.Matrix) (*mat.Dense, error) {
	d := l.delta
	return gradOver(y, yFit, func(e float64) float64 {
		if math.Abs(e) <= d {
			return e
		}
		return d * tensor.Sign(e)
	})
}

// PseudoHuberLoss is a smooth approximation of the Huber loss.
//
//	term = sqrt(1 + (e/delta)²) - 1
//	grad = e / sqrt(1 + (e/delta)²)
//
// where e = yFit - y.
type PseudoHuberLoss struct {
	delta float64
}

// NewPseudoHuberLoss creates a pseudo-Huber loss. delta must be > 0.
func NewPseudoHuberLoss(delta float64) (*PseudoHuberLoss, error) {
	if err := validateDelta(delta); err != nil {
		return nil, err
	}
	return &PseudoHuberLoss{delta: delta}, nil
}

// Delta returns the scale parameter dHuber.
func (l *PseudoHuberLoss) Delta() float64 {
	return l.delta
}

// Eval computes the pseudo-Huber loss.
func (l *PseudoHuberLoss) Eval(y, yFit mat.Matrix) (float64, error) {
	d := l.delta
	return meanOver(y, yFit, func(e float64) float64 {
		r := e / d
		return math.Sqrt(1+r*r) - 1
	})
}

// Grad computes the pseudo-Huber gradient.
func (l *PseudoHuberLoss) Grad(y, yFit mat.Matrix) (*mat.Dense, error) {
	d := l.delta
	return gradOver(y, yFit, func(e float64) float64 {
		r := e / d
		return e / math.Sqrt(1+r*r)
	})
}

func validateDelta(delta float64) error {
	if !(delta > 0) || math.IsInf(delta, 1) {
		return fmt.Errorf("%w: dHuber must be a finite number > 0, got %g", ErrConfiguration, delta)
	}
	return nil
}

// DeltaKey is the hyperparameter read by the Huber family.
const DeltaKey = "dHuber"

// lossRegistry maps a "type" name to its constructor.
var lossRegistry = map[string]func(config.Params) (Loss, error){
	"log":      func(config.Params) (Loss, error) { return NewLogLoss(), nil },
	"squared":  func(config.Params) (Loss, error) { return NewSquaredLoss(), nil },
	"absolute": func(config.Params) (Loss, error) { return NewAbsoluteLoss(), nil },
	"huber": func(p config.Params) (Loss, error) {
		d, err := p.Positive(DeltaKey)
		if err != nil {
			return nil, err
		}
		return NewHuberLoss(d)
	},
	"pseudoHuber": func(p config.Params) (Loss, error) {
		d, err := p.Positive(DeltaKey)
		if err != nil {
			return nil, err
		}
		return NewPseudoHuberLoss(d)
	},
}

// NewLoss creates the loss selected by params["type"].
//
// Recognized types: log, squared, absolute, huber, pseudoHuber. The Huber
// family additionally requires a positive "dHuber".
//
// Example:
//
//	loss, err := nn.NewLoss(config.Params{"type": "squared"})
//	if err != nil {
//	    return err
//	}
//	l, _ := loss.Eval(y, yFit)
func NewLoss(params config.Params) (Loss, error) {
	typ, err := params.Type()
	if err != nil {
		return nil, fmt.Errorf("nn: loss: %w", err)
	}
	ctor, ok := lossRegistry[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownLossType, typ, LossTypes())
	}
	l, err := ctor(params)
	if err != nil {
		return nil, fmt.Errorf("nn: %s loss: %w", typ, err)
	}
	return l, nil
}

// LossTypes returns the recognized loss type names in sorted order.
func LossTypes() []string {
	names := make([]string, 0, len(lossRegistry))
	for name := range lossRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
