package optim

import (
	"gonum.org/v1/gonum/mat"
)

// SGD implements gradient descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
//
// Example:
//
//	opt, err := optim.NewSGD(w, b, optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
type SGD struct {
	lr       float64
	momentum float64
	reg      Regularization
	vW       *mat.Dense    // weight velocity, [nodes_out x nodes_in]
	vB       *mat.VecDense // bias velocity, [nodes_out]
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01; 0 selects the default)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
	Regularization
}

// NewSGD creates a new SGD optimizer for parameters shaped like w and b.
func NewSGD(w *mat.Dense, b *mat.VecDense, config SGDConfig) (*SGD, error) {
	if config.LR == 0 {
		config.LR = 0.01
	}
	if err := checkLR(config.LR); err != nil {
		return nil, err
	}
	if err := checkRange("momentum", config.Momentum, 0, 1); err != nil {
		return nil, err
	}
	if err := config.Regularization.validate(); err != nil {
		return nil, err
	}

	r, c := w.Dims()
	return &SGD{
		lr:       config.LR,
		momentum: config.Momentum,
		reg:      config.Regularization,
		vW:       mat.NewDense(r, c, nil),
		vB:       mat.NewVecDense(b.Len(), nil),
	}, nil
}

// UpdateW applies one step to the weights.
func (s *SGD) UpdateW(w, d, aPrev *mat.Dense) *mat.Dense {
	g := weightGrad(w, d, aPrev, s.reg)
	if s.momentum != 0 {
		// velocity = momentum * velocity + grad
		s.vW.Scale(s.momentum, s.vW)
		s.vW.Add(s.vW, g)
		g = s.vW
	}

	// param -= lr * step
	var out mat.Dense
	out.Scale(-s.lr, g)
	out.Add(w, &out)
	return &out
}

// UpdateB applies one step to the bias.
func (s *SGD) UpdateB(b *mat.VecDense, d *mat.Dense) *mat.VecDense {
	g := biasGrad(d)
	if s.momentum != 0 {
		s.vB.ScaleVec(s.momentum, s.vB)
		s.vB.AddVec(s.vB, g)
		g = s.vB
	}

	var out mat.VecDense
	out.AddScaledVec(b, -s.lr, g)
	return &out
}

// GetLR returns the current learning rate.
func (s *SGD) GetLR() float64 {
	return s.lr
}

// SetLR updates the learning rate.
//
// Useful for learning rate scheduling during training.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}
