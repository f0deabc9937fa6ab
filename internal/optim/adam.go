package optim

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)  // Parameter update
//
// Weights and bias keep separate timesteps, so each advances once per
// backward pass regardless of call order.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	reg   Regularization

	w moments
	b moments
}

type moments struct {
	t int       // Timestep for bias correction
	m []float64 // First moment estimates
	v []float64 // Second moment estimates
}

// AdamConfig holds configuration for Adam optimizer.
//
// A zero field selects its default, so betas of exactly 0 cannot be
// requested here; pass "beta1": 0 or "beta2": 0 to New instead.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float64    // Term for numerical stability (default: 1e-8)
	Regularization
}

// NewAdam creates a new Adam optimizer for parameters shaped like w and b.
//
// Default hyperparameters:
//   - LR: 0.001
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Eps: 1e-8
func NewAdam(w *mat.Dense, b *mat.VecDense, config AdamConfig) (*Adam, error) {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	if err := checkLR(config.LR); err != nil {
		return nil, err
	}
	if err := checkRange("beta1", config.Betas[0], 0, 1); err != nil {
		return nil, err
	}
	if err := checkRange("beta2", config.Betas[1], 0, 1); err != nil {
		return nil, err
	}
	if err := checkRange("epsilon", config.Eps, math.SmallestNonzeroFloat64, 1); err != nil {
		return nil, err
	}
	if err := config.Regularization.validate(); err != nil {
		return nil, err
	}

	r, c := w.Dims()
	return &Adam{
		lr:    config.LR,
		beta1: config.Betas[0],
		beta2: config.Betas[1],
		eps:   config.Eps,
		reg:   config.Regularization,
		w:     moments{m: make([]float64, r*c), v: make([]float64, r*c)},
		b:     moments{m: make([]float64, b.Len()), v: make([]float64, b.Len())},
	}, nil
}

// step advances st and returns the updated copy of param.
func (a *Adam) step(st *moments, param, grad []float64) []float64 {
	st.t++
	biasCorrection1 := 1.0 - math.Pow(a.beta1, float64(st.t))
	biasCorrection2 := 1.0 - math.Pow(a.beta2, float64(st.t))

	out := make([]float64, len(param))
	for i, g := range grad {
		st.m[i] = a.beta1*st.m[i] + (1.0-a.beta1)*g
		st.v[i] = a.beta2*st.v[i] + (1.0-a.beta2)*g*g

		mHat := st.m[i] / biasCorrection1
		vHat := st.v[i] / biasCorrection2

		out[i] = param[i] - a.lr*mHat/(math.Sqrt(vHat)+a.eps)
	}
	return out
}

// UpdateW applies one step to the weights.
func (a *Adam) UpdateW(w, d, aPrev *mat.Dense) *mat.Dense {
	g := weightGrad(w, d, aPrev, a.reg)
	r, c := w.Dims()
	wc := mat.DenseCopyOf(w)
	return mat.NewDense(r, c, a.step(&a.w, wc.RawMatrix().Data, g.RawMatrix().Data))
}

// UpdateB applies one step to the bias.
func (a *Adam) UpdateB(b *mat.VecDense, d *mat.Dense) *mat.VecDense {
	g := biasGrad(d)
	bc := mat.VecDenseCopyOf(b)
	data := a.step(&a.b, bc.RawVector().Data, g.RawVector().Data)
	return mat.NewVecDense(len(data), data)
}

// GetLR returns the current learning rate.
func (a *Adam) GetLR() float64 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *Adam) SetLR(lr float64) {
	a.lr = lr
}

// GetTimestep returns the number of weight updates applied so far.
func (a *Adam) GetTimestep() int {
	return a.w.t
}
