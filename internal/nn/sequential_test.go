package nn

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/ann/internal/config"
	"github.com/born-ml/ann/internal/tensor"
)

const xorConfig = `
inputs: 2
loss:
  type: squared
layers:
  - nodes: 4
    activation: {type: tanh}
    optimizer: {type: adam, learn_rate: 0.05}
  - nodes: 1
    activation: {type: sigmoid}
    optimizer: {type: adam, learn_rate: 0.05}
`

func xorData() (x, y *mat.Dense) {
	// One sample per column.
	x = mat.NewDense(2, 4, []float64{
		0, 0, 1, 1,
		0, 1, 0, 1,
	})
	y = mat.NewDense(1, 4, []float64{0, 1, 1, 0})
	return x, y
}

func TestSequential_FromFileTrainsXOR(t *testing.T) {
	f, err := config.Parse([]byte(xorConfig))
	require.NoError(t, err)

	model, loss, err := FromFile(f, WithSource(rand.NewPCG(7, 11)))
	require.NoError(t, err)
	require.Equal(t, 2, model.Len())
	assert.Equal(t, 4, model.Layer(0).NodesOut())
	assert.IsType(t, &SquaredLoss{}, loss)

	x, y := xorData()
	first, err := model.TrainStep(x, y, loss)
	require.NoError(t, err)

	last := first
	for range 1500 {
		last, err = model.TrainStep(x, y, loss)
		require.NoError(t, err)
	}
	assert.Less(t, last, first)

	for i := range model.Len() {
		assert.True(t, model.Layer(i).Ready())
	}
}

// TestSequential_MatchesManualChaining checks the container against the
// same layers driven by hand.
func TestSequential_MatchesManualChaining(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 9))
	w1, w2 := randMatrix(rng, 4, 3), randMatrix(rng, 2, 4)
	b1, b2 := mat.NewVecDense(4, []float64{0.1, -0.2, 0.3, 0}), mat.NewVecDense(2, []float64{1, -1})
	x, e := randMatrix(rng, 3, 5), randMatrix(rng, 2, 5)

	build := func() (*Layer, *Layer) {
		h, err := NewLayer(3, 4, config.Params{"type": "tanh"}, sgd01, WithWeights(w1, b1))
		require.NoError(t, err)
		o, err := NewLayer(4, 2, identity, sgd01, WithWeights(w2, b2))
		require.NoError(t, err)
		return h, o
	}

	h, o := build()
	ha, err := h.Forward(x)
	require.NoError(t, err)
	wantOut, err := o.Forward(ha)
	require.NoError(t, err)
	eh, err := o.Backward(e)
	require.NoError(t, err)
	wantPrev, err := h.Backward(eh)
	require.NoError(t, err)

	h2, o2 := build()
	model, err := NewSequential(h2, o2)
	require.NoError(t, err)
	out, err := model.Forward(x)
	require.NoError(t, err)
	prev, err := model.Backward(e)
	require.NoError(t, err)

	assert.True(t, mat.EqualApprox(wantOut, out, 1e-12))
	assert.True(t, mat.EqualApprox(wantPrev, prev, 1e-12))
	assert.True(t, mat.EqualApprox(h.Weights(), h2.Weights(), 1e-12))
	assert.True(t, mat.EqualApprox(o.Weights(), o2.Weights(), 1e-12))
}

func TestSequential_Errors(t *testing.T) {
	a, err := NewLayer(3, 4, identity, sgd01)
	require.NoError(t, err)
	b, err := NewLayer(5, 1, identity, sgd01)
	require.NoError(t, err)

	_, err = NewSequential(a, b)
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = NewSequential(a, nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	empty, err := NewSequential()
	require.NoError(t, err)
	_, err = empty.Forward(mat.NewDense(1, 1, nil))
	assert.ErrorIs(t, err, ErrConfiguration)

	model, err := NewSequential(a)
	require.NoError(t, err)
	_, err = model.Backward(mat.NewDense(4, 2, nil))
	assert.ErrorIs(t, err, ErrOrdering)

	_, err = model.Forward(mat.NewDense(2, 2, nil))
	assert.ErrorIs(t, err, ErrShapeMismatch)

	assert.Panics(t, func() { model.Layer(1) })
}

func TestSequential_StateDict(t *testing.T) {
	f, err := config.Parse([]byte(xorConfig))
	require.NoError(t, err)
	src, _, err := FromFile(f, WithSource(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	dst, _, err := FromFile(f, WithSource(rand.NewPCG(2, 2)))
	require.NoError(t, err)

	dict := src.StateDict()
	require.Len(t, dict, 4)
	assert.Equal(t, tensor.Shape{Rows: 4, Cols: 2}, tensor.Of(dict["0.weight"]))
	assert.Equal(t, tensor.Shape{Rows: 1, Cols: 1}, tensor.Of(dict["1.bias"]))

	require.NoError(t, dst.LoadStateDict(dict))

	x, _ := xorData()
	want, err := src.Forward(x)
	require.NoError(t, err)
	got, err := dst.Forward(x)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))

	// The loaded parameters are copies.
	dict["0.weight"].Set(0, 0, 100)
	assert.NotEqual(t, 100.0, dst.Layer(0).Weights().At(0, 0))
}

func TestSequential_LoadStateDictRejects(t *testing.T) {
	f, err := config.Parse([]byte(xorConfig))
	require.NoError(t, err)
	model, _, err := FromFile(f)
	require.NoError(t, err)
	before := model.Layer(0).Weights()

	dict := model.StateDict()
	dict["2.weight"] = mat.NewDense(1, 1, nil)
	assert.ErrorIs(t, model.LoadStateDict(dict), ErrConfiguration)

	dict = model.StateDict()
	delete(dict, "1.bias")
	assert.ErrorIs(t, model.LoadStateDict(dict), ErrConfiguration)

	dict = model.StateDict()
	dict["0.weight"] = mat.NewDense(2, 4, nil)
	dict["1.weight"] = mat.NewDense(1, 3, nil)
	assert.ErrorIs(t, model.LoadStateDict(dict), ErrShapeMismatch)

	assert.True(t, mat.Equal(before, model.Layer(0).Weights()))
}

func TestFromFile_Errors(t *testing.T) {
	f, err := config.Parse([]byte(xorConfig))
	require.NoError(t, err)

	bad := *f
	bad.Loss = config.Params{"type": "hinge"}
	_, _, err = FromFile(&bad)
	assert.ErrorIs(t, err, ErrUnknownLossType)

	bad = *f
	bad.Layers = []config.LayerConfig{{Nodes: 3, Activation: config.Params{"type": "cube"}, Optimizer: sgd01}}
	_, _, err = FromFile(&bad)
	assert.ErrorIs(t, err, ErrUnknownActivationType)
}

// TestSequential_LoadStateDictDropsCachedPass checks that a pass computed
// with the old weights cannot be backpropagated after a load.
func TestSequential_LoadStateDictDropsCachedPass(t *testing.T) {
	f, err := config.Parse([]byte(xorConfig))
	require.NoError(t, err)
	model, _, err := FromFile(f, WithSource(rand.NewPCG(5, 6)))
	require.NoError(t, err)
	other, _, err := FromFile(f, WithSource(rand.NewPCG(7, 8)))
	require.NoError(t, err)

	x, _ := xorData()
	_, err = model.Forward(x)
	require.NoError(t, err)

	require.NoError(t, model.LoadStateDict(other.StateDict()))
	for i := range model.Len() {
		assert.True(t, model.Layer(i).Ready(), "layer %d", i)
	}
	_, err = model.Backward(mat.NewDense(1, 4, nil))
	assert.ErrorIs(t, err, ErrOrdering)
	assert.True(t, mat.Equal(other.Layer(0).Weights(), model.Layer(0).Weights()))
}
