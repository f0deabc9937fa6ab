package nn

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/ann/internal/config"
	"github.com/born-ml/ann/internal/optim"
	"github.com/born-ml/ann/internal/tensor"
)

var (
	identity = config.Params{"type": "linear"}
	sgd01    = config.Params{"type": "sgd", "learn_rate": 0.1}
)

// scenario is a 3 -> 2 layer with hand-picked parameters and a batch of 4.
//
//	W = [1 0 -1]    b = [ 0.5]
//	    [2 1  0]        [-1  ]
//
//	X = [1 2 0 1]   E = [1 0 -1  2]
//	    [0 1 1 2]       [0 1  1 -1]
//	    [1 0 2 1]
func scenario(t *testing.T) (w *mat.Dense, b *mat.VecDense, x, e *mat.Dense) {
	t.Helper()
	var err error
	w, err = tensor.FromRows([][]float64{
		{1, 0, -1},
		{2, 1, 0},
	})
	require.NoError(t, err)
	b = mat.NewVecDense(2, []float64{0.5, -1})
	x, err = tensor.FromRows([][]float64{
		{1, 2, 0, 1},
		{0, 1, 1, 2},
		{1, 0, 2, 1},
	})
	require.NoError(t, err)
	e, err = tensor.FromRows([][]float64{
		{1, 0, -1, 2},
		{0, 1, 1, -1},
	})
	require.NoError(t, err)
	return w, b, x, e
}

func TestLayer_EndToEnd(t *testing.T) {
	w, b, x, e := scenario(t)
	layer, err := NewLayer(3, 2, identity, sgd01, WithWeights(w, b))
	require.NoError(t, err)
	require.True(t, layer.Ready())

	// Z = W·X + b
	// row 0: x0 - x2 + 0.5    = [0.5 2.5 -1.5 0.5]
	// row 1: 2 x0 + x1 - 1    = [1   4    0   3  ]
	out, err := layer.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, []float64{
		0.5, 2.5, -1.5, 0.5,
		1, 4, 0, 3,
	}, out.RawMatrix().Data)
	assert.False(t, layer.Ready())

	// D = E (identity derivative is 1)
	// dW = D·Xᵀ = [3 3 1; 1 0 1], db = [2 1]
	// W' = W - 0.1 dW = [0.7 -0.3 -1.1; 1.9 1 -0.1]
	// b' = b - 0.1 db = [0.3 -1.1]
	// prev = Wᵀ·D with the pre-update W:
	//   row 0: D0 + 2 D1 = [ 1 2 1  0]
	//   row 1: D1        = [ 0 1 1 -1]
	//   row 2: -D0       = [-1 0 1 -2]
	prev, err := layer.Backward(e)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{
		1, 2, 1, 0,
		0, 1, 1, -1,
		-1, 0, 1, -2,
	}, prev.RawMatrix().Data, 1e-12)

	assert.InDeltaSlice(t, []float64{
		0.7, -0.3, -1.1,
		1.9, 1, -0.1,
	}, layer.Weights().RawMatrix().Data, 1e-12)
	assert.InDeltaSlice(t, []float64{0.3, -1.1}, layer.Bias().RawVector().Data, 1e-12)
	assert.True(t, layer.Ready())

	// Injected parameters are copied, not aliased.
	assert.Equal(t, 1.0, w.At(0, 0))
	assert.Equal(t, 0.5, b.AtVec(0))
}

// TestLayer_PostUpdatePropagation reproduces the convention where the
// returned error uses the weights after the optimizer step.
func TestLayer_PostUpdatePropagation(t *testing.T) {
	w, b, x, e := scenario(t)
	layer, err := NewLayer(3, 2, identity, sgd01,
		WithWeights(w, b), WithPropagation(PropagatePostUpdate))
	require.NoError(t, err)
	assert.Equal(t, PropagatePostUpdate, layer.Propagation())

	_, err = layer.Forward(x)
	require.NoError(t, err)
	prev, err := layer.Backward(e)
	require.NoError(t, err)

	// W'ᵀ·D with W' = [0.7 -0.3 -1.1; 1.9 1 -0.1]
	assert.InDeltaSlice(t, []float64{
		0.7, 1.9, 1.2, -0.5,
		-0.3, 1, 1.3, -1.6,
		-1.1, -0.1, 1.0, -2.1,
	}, prev.RawMatrix().Data, 1e-12)
}

// TestLayer_PreUpdateIsTrueInputGradient checks the returned error against
// the numerical gradient of f(X) = sum(E ⊙ layer(X)) for a tanh layer.
// With a zero learning rate both propagation modes must agree with it;
// with a real step only the pre-update mode does.
func TestLayer_PreUpdateIsTrueInputGradient(t *testing.T) {
	w, b, x, e := scenario(t)

	f := func(v []float64) float64 {
		var z mat.Dense
		z.Mul(w, mat.NewDense(3, 4, v))
		require.NoError(t, tensor.AddColumn(&z, b))
		a := NewTanh().Eval(&z)
		var prod mat.Dense
		prod.MulElem(e, a)
		return mat.Sum(&prod)
	}
	want := fd.Gradient(nil, f, mat.DenseCopyOf(x).RawMatrix().Data, &fd.Settings{Formula: fd.Central})

	run := func(p Propagation) []float64 {
		layer, err := NewLayer(3, 2, config.Params{"type": "tanh"},
			config.Params{"type": "sgd", "learn_rate": 0.5},
			WithWeights(w, b), WithPropagation(p))
		require.NoError(t, err)
		_, err = layer.Forward(x)
		require.NoError(t, err)
		prev, err := layer.Backward(e)
		require.NoError(t, err)
		return prev.RawMatrix().Data
	}

	assert.InDeltaSlice(t, want, run(PropagatePreUpdate), 1e-6)

	post := run(PropagatePostUpdate)
	var maxDiff float64
	for i := range post {
		if d := post[i] - want[i]; d > maxDiff || -d > maxDiff {
			maxDiff = max(d, -d)
		}
	}
	assert.Greater(t, maxDiff, 1e-3, "post-update propagation differs from the true input gradient")
}

func TestLayer_ForwardShape(t *testing.T) {
	rng := rand.New(rand.NewPCG(21, 22))
	for _, tc := range []struct{ in, out, batch int }{
		{1, 1, 1}, {3, 2, 4}, {5, 7, 2}, {8, 3, 16},
	} {
		layer, err := NewLayer(tc.in, tc.out, config.Params{"type": "sigmoid"},
			config.Params{"type": "adam"}, WithSource(rand.NewPCG(1, 1)))
		require.NoError(t, err)

		x := randMatrix(rng, tc.in, tc.batch)
		out, err := layer.Forward(x)
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{Rows: tc.out, Cols: tc.batch}, tensor.Of(out))

		prev, err := layer.Backward(randMatrix(rng, tc.out, tc.batch))
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{Rows: tc.in, Cols: tc.batch}, tensor.Of(prev))
	}
}

func TestLayer_BackwardBeforeForward(t *testing.T) {
	layer, err := NewLayer(3, 2, identity, sgd01)
	require.NoError(t, err)

	_, err = layer.Backward(mat.NewDense(2, 4, nil))
	assert.ErrorIs(t, err, ErrOrdering)
}

func TestLayer_BackwardTwice(t *testing.T) {
	w, b, x, e := scenario(t)
	layer, err := NewLayer(3, 2, identity, sgd01, WithWeights(w, b))
	require.NoError(t, err)

	_, err = layer.Forward(x)
	require.NoError(t, err)
	_, err = layer.Backward(e)
	require.NoError(t, err)

	before := layer.Weights()
	_, err = layer.Backward(e)
	assert.ErrorIs(t, err, ErrOrdering)
	assert.True(t, mat.Equal(before, layer.Weights()), "failed backward must not update weights")
}

// TestLayer_ForwardOverwritesCache checks that a second forward replaces
// the cached pass, so backward uses the latest input.
func TestLayer_ForwardOverwritesCache(t *testing.T) {
	w, b, x, e := scenario(t)

	direct, err := NewLayer(3, 2, identity, sgd01, WithWeights(w, b))
	require.NoError(t, err)
	_, err = direct.Forward(x)
	require.NoError(t, err)
	_, err = direct.Backward(e)
	require.NoError(t, err)

	twice, err := NewLayer(3, 2, identity, sgd01, WithWeights(w, b))
	require.NoError(t, err)
	_, err = twice.Forward(mat.NewDense(3, 2, []float64{9, 9, 9, 9, 9, 9}))
	require.NoError(t, err)
	_, err = twice.Forward(x)
	require.NoError(t, err)
	_, err = twice.Backward(e)
	require.NoError(t, err)

	assert.True(t, mat.EqualApprox(direct.Weights(), twice.Weights(), 1e-12))
}

// TestLayer_ForwardInputIsCopied checks mutating the caller's input after
// forward does not change the gradient.
func TestLayer_ForwardInputIsCopied(t *testing.T) {
	w, b, x, e := scenario(t)
	layer, err := NewLayer(3, 2, identity, sgd01, WithWeights(w, b))
	require.NoError(t, err)

	_, err = layer.Forward(x)
	require.NoError(t, err)
	x.Zero()
	_, err = layer.Backward(e)
	require.NoError(t, err)

	assert.InDelta(t, 0.7, layer.Weights().At(0, 0), 1e-12)
}

func TestLayer_ShapeMismatch(t *testing.T) {
	w, b, x, _ := scenario(t)
	layer, err := NewLayer(3, 2, identity, sgd01, WithWeights(w, b))
	require.NoError(t, err)

	_, err = layer.Forward(mat.NewDense(2, 4, nil))
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.True(t, layer.Ready(), "rejected forward must not cache")

	_, err = layer.Forward(x)
	require.NoError(t, err)

	// Wrong batch size, then wrong unit count.
	_, err = layer.Backward(mat.NewDense(2, 3, nil))
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = layer.Backward(mat.NewDense(3, 4, nil))
	assert.ErrorIs(t, err, ErrShapeMismatch)

	// The cached pass survives a rejected backward.
	assert.False(t, layer.Ready())
	_, err = layer.Backward(mat.NewDense(2, 4, nil))
	assert.NoError(t, err)
}

func TestNewLayer_Configuration(t *testing.T) {
	tests := []struct {
		name     string
		in, out  int
		act, opt config.Params
		opts     []LayerOption
		want     error
	}{
		{"zero in", 0, 2, identity, sgd01, nil, ErrConfiguration},
		{"negative out", 3, -1, identity, sgd01, nil, ErrConfiguration},
		{"unknown activation", 3, 2, config.Params{"type": "gelu"}, sgd01, nil, ErrUnknownActivationType},
		{"unknown optimizer", 3, 2, identity, config.Params{"type": "lbfgs"}, nil, optim.ErrUnknownOptimizerType},
		{"missing optimizer type", 3, 2, identity, config.Params{}, nil, ErrConfiguration},
		{"bad weights", 3, 2, identity, sgd01, []LayerOption{WithWeights(mat.NewDense(3, 2, nil), nil)}, ErrShapeMismatch},
		{"bad bias", 3, 2, identity, sgd01, []LayerOption{WithWeights(mat.NewDense(2, 3, nil), mat.NewVecDense(3, nil))}, ErrShapeMismatch},
		{"nil init", 3, 2, identity, sgd01, []LayerOption{WithInit(nil)}, ErrConfiguration},
		{"bad propagation", 3, 2, identity, sgd01, []LayerOption{WithPropagation(Propagation(7))}, ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLayer(tt.in, tt.out, tt.act, tt.opt, tt.opts...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewLayer_Initialization(t *testing.T) {
	a, err := NewLayer(4, 3, identity, sgd01, WithSource(rand.NewPCG(5, 5)))
	require.NoError(t, err)
	b, err := NewLayer(4, 3, identity, sgd01, WithSource(rand.NewPCG(5, 5)))
	require.NoError(t, err)

	assert.Equal(t, 4, a.NodesIn())
	assert.Equal(t, 3, a.NodesOut())
	assert.True(t, mat.Equal(a.Weights(), b.Weights()), "same source gives same weights")
	assert.Equal(t, 0.0, mat.Norm(a.Bias(), 1), "bias starts at zero")

	x, err := NewLayer(4, 3, identity, sgd01, WithInit(XavierInit), WithSource(rand.NewPCG(5, 5)))
	require.NoError(t, err)
	bound := 0.9258200997725514 // sqrt(6/7)
	assert.LessOrEqual(t, mat.Max(x.Weights()), bound)
	assert.GreaterOrEqual(t, mat.Min(x.Weights()), -bound)
}

// stubOptimizer returns fixed parameters and records its inputs.
type stubOptimizer struct {
	w     *mat.Dense
	b     *mat.VecDense
	gotD  *mat.Dense
	gotIn *mat.Dense
}

func (s *stubOptimizer) UpdateW(_, d, aPrev *mat.Dense) *mat.Dense {
	s.gotD = mat.DenseCopyOf(d)
	s.gotIn = mat.DenseCopyOf(aPrev)
	return s.w
}

func (s *stubOptimizer) UpdateB(_ *mat.VecDense, _ *mat.Dense) *mat.VecDense {
	return s.b
}

func TestNewLayerWith_DelegatesToCollaborators(t *testing.T) {
	w, b, x, e := scenario(t)
	stub := &stubOptimizer{
		w: mat.NewDense(2, 3, []float64{1, 1, 1, 1, 1, 1}),
		b: mat.NewVecDense(2, []float64{7, 8}),
	}
	layer, err := NewLayerWith(3, 2, NewReLU(), stub, WithWeights(w, b))
	require.NoError(t, err)

	_, err = layer.Forward(x)
	require.NoError(t, err)
	_, err = layer.Backward(e)
	require.NoError(t, err)

	// Z row 0 = [0.5 2.5 -1.5 0.5], row 1 = [1 4 0 3]; ReLU' zeroes Z <= 0.
	assert.Equal(t, []float64{
		1, 0, 0, 2,
		0, 1, 0, -1,
	}, stub.gotD.RawMatrix().Data)
	assert.True(t, mat.Equal(x, stub.gotIn))
	assert.True(t, mat.Equal(stub.w, layer.Weights()))
	assert.Equal(t, []float64{7, 8}, layer.Bias().RawVector().Data)

	_, err = NewLayerWith(3, 2, nil, stub)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestNewLayerWith_RejectsBadOptimizerOutput(t *testing.T) {
	w, b, x, e := scenario(t)
	stub := &stubOptimizer{w: mat.NewDense(3, 3, nil), b: mat.NewVecDense(2, nil)}
	layer, err := NewLayerWith(3, 2, NewLinear(), stub, WithWeights(w, b))
	require.NoError(t, err)

	_, err = layer.Forward(x)
	require.NoError(t, err)
	_, err = layer.Backward(e)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.True(t, mat.Equal(w, layer.Weights()))
}

// TestNewLayerWith_RejectsBadBiasAfterGoodWeights checks that both optimizer
// results are validated before either is committed.
func TestNewLayerWith_RejectsBadBiasAfterGoodWeights(t *testing.T) {
	w, b, x, e := scenario(t)
	stub := &stubOptimizer{w: mat.NewDense(2, 3, []float64{9, 9, 9, 9, 9, 9}), b: mat.NewVecDense(3, nil)}
	layer, err := NewLayerWith(3, 2, NewLinear(), stub, WithWeights(w, b))
	require.NoError(t, err)

	_, err = layer.Forward(x)
	require.NoError(t, err)
	_, err = layer.Backward(e)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.True(t, mat.Equal(w, layer.Weights()))
	assert.True(t, mat.Equal(b, layer.Bias()))
	assert.False(t, layer.Ready(), "cached pass is kept after a rejected step")

	stub.w, stub.b = nil, nil
	_, err = layer.Backward(e)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

// squashedGrad is an activation whose derivative has the wrong shape.
type squashedGrad struct{ *Linear }

func (squashedGrad) Grad(*mat.Dense) *mat.Dense { return mat.NewDense(1, 1, []float64{1}) }

func TestLayer_RejectsBadActivationGradient(t *testing.T) {
	w, b, x, e := scenario(t)
	stub := &stubOptimizer{w: mat.NewDense(2, 3, nil), b: mat.NewVecDense(2, nil)}
	layer, err := NewLayerWith(3, 2, squashedGrad{NewLinear()}, stub, WithWeights(w, b))
	require.NoError(t, err)

	_, err = layer.Forward(x)
	require.NoError(t, err)
	_, err = layer.Backward(e)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.Nil(t, stub.gotD, "optimizer must not be called")
	assert.True(t, mat.Equal(w, layer.Weights()))
	assert.False(t, layer.Ready())
}

func TestPropagation_String(t *testing.T) {
	assert.Equal(t, "pre-update", PropagatePreUpdate.String())
	assert.Equal(t, "post-update", PropagatePostUpdate.String())
	assert.Equal(t, "Propagation(9)", Propagation(9).String())
}
