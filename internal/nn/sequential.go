package nn

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/ann/internal/config"
	"github.com/born-ml/ann/internal/tensor"
)

// Sequential chains layers so that each layer's output is the next
// layer's input.
//
// Example:
//
//	model, err := nn.NewSequential(hidden, output)
//
//	out, err := model.Forward(x)   // x: [hidden.NodesIn(), batch]
//	prev, err := model.Backward(e) // e: [output.NodesOut(), batch]
//
// This is equivalent to:
//
//	h, _ := hidden.Forward(x)
//	out, _ := output.Forward(h)
//	eh, _ := output.Backward(e)
//	prev, _ := hidden.Backward(eh)
type Sequential struct {
	layers []*Layer
}

// NewSequential creates a new Sequential container.
//
// Returns ErrConfiguration if a layer is nil or if the output size of a
// layer differs from the input size of the next one.
func NewSequential(layers ...*Layer) (*Sequential, error) {
	s := &Sequential{}
	for _, l := range layers {
		if err := s.Add(l); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// FromFile builds the layers and the loss described by f.
//
// opts are applied to every layer, so a shared WithSource gives a
// reproducible network.
func FromFile(f *config.File, opts ...LayerOption) (*Sequential, Loss, error) {
	if err := f.Validate(); err != nil {
		return nil, nil, err
	}
	loss, err := NewLoss(f.Loss)
	if err != nil {
		return nil, nil, fmt.Errorf("loss: %w", err)
	}

	s := &Sequential{}
	for i, size := range f.Sizes() {
		lc := f.Layers[i]
		l, err := NewLayer(size[0], size[1], lc.Activation, lc.Optimizer, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if err := s.Add(l); err != nil {
			return nil, nil, err
		}
	}
	return s, loss, nil
}

// Add appends a layer to the sequence.
func (s *Sequential) Add(l *Layer) error {
	if l == nil {
		return fmt.Errorf("%w: nil layer at position %d", ErrConfiguration, len(s.layers))
	}
	if n := len(s.layers); n > 0 && s.layers[n-1].NodesOut() != l.NodesIn() {
		return fmt.Errorf("%w: layer %d expects %d inputs, previous layer produces %d",
			ErrConfiguration, n, l.NodesIn(), s.layers[n-1].NodesOut())
	}
	s.layers = append(s.layers, l)
	return nil
}

// Len returns the number of layers.
func (s *Sequential) Len() int {
	return len(s.layers)
}

// Layer returns the layer at the given index.
//
// Panics if index is out of bounds.
func (s *Sequential) Layer(index int) *Layer {
	if index < 0 || index >= len(s.layers) {
		panic("Sequential.Layer: index out of bounds")
	}
	return s.layers[index]
}

// Forward applies all layers in order.
func (s *Sequential) Forward(x mat.Matrix) (*mat.Dense, error) {
	if len(s.layers) == 0 {
		return nil, fmt.Errorf("%w: empty sequence", ErrConfiguration)
	}
	out := x
	var a *mat.Dense
	for i, l := range s.layers {
		var err error
		if a, err = l.Forward(out); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		out = a
	}
	return a, nil
}

// Backward propagates e from the last layer to the first, updating every
// layer on the way, and returns the error with respect to the input.
func (s *Sequential) Backward(e mat.Matrix) (*mat.Dense, error) {
	if len(s.layers) == 0 {
		return nil, fmt.Errorf("%w: empty sequence", ErrConfiguration)
	}
	// Check every layer first so a failure leaves no layer half-updated.
	for i, l := range s.layers {
		if l.Ready() {
			return nil, fmt.Errorf("layer %d: nn: backward: %w", i, ErrOrdering)
		}
	}
	sig := e
	var prev *mat.Dense
	for i := len(s.layers) - 1; i >= 0; i-- {
		var err error
		if prev, err = s.layers[i].Backward(sig); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		sig = prev
	}
	return prev, nil
}

// TrainStep runs one forward pass on x, evaluates loss against y and
// backpropagates its gradient. It returns the loss of the forward pass,
// measured before the update.
func (s *Sequential) TrainStep(x, y mat.Matrix, loss Loss) (float64, error) {
	out, err := s.Forward(x)
	if err != nil {
		return 0, err
	}
	value, err := loss.Eval(y, out)
	if err != nil {
		return 0, err
	}
	grad, err := loss.Grad(y, out)
	if err != nil {
		return 0, err
	}
	if _, err := s.Backward(grad); err != nil {
		return 0, err
	}
	return value, nil
}

// StateDict returns copies of all parameters keyed by layer index:
// "0.weight" [nodes_out, nodes_in] and "0.bias" [nodes_out, 1].
func (s *Sequential) StateDict() map[string]*mat.Dense {
	dict := make(map[string]*mat.Dense, 2*len(s.layers))
	for i, l := range s.layers {
		b := l.Bias()
		dict[fmt.Sprintf("%d.weight", i)] = l.Weights()
		dict[fmt.Sprintf("%d.bias", i)] = mat.NewDense(b.Len(), 1, b.RawVector().Data)
	}
	return dict
}

// LoadStateDict replaces the parameters of every layer with the entries
// of dict. Optimizer state is kept. Missing or unknown keys and any shape
// mismatch are reported before a layer is modified.
//
// A successful load drops every cached forward pass, since it was computed
// with the old weights; the next Backward without a new Forward returns
// ErrOrdering.
func (s *Sequential) LoadStateDict(dict map[string]*mat.Dense) error {
	for key := range dict {
		idx, name, ok := strings.Cut(key, ".")
		i, err := strconv.Atoi(idx)
		if !ok || err != nil || i < 0 || i >= len(s.layers) || (name != "weight" && name != "bias") {
			return fmt.Errorf("%w: unexpected state key %q", ErrConfiguration, key)
		}
	}

	type params struct {
		w *mat.Dense
		b *mat.VecDense
	}
	loaded := make([]params, len(s.layers))
	for i, l := range s.layers {
		w, okW := dict[fmt.Sprintf("%d.weight", i)]
		b, okB := dict[fmt.Sprintf("%d.bias", i)]
		if !okW || !okB {
			return fmt.Errorf("%w: missing parameters for layer %d", ErrConfiguration, i)
		}
		if err := tensor.Expect(w, tensor.Shape{Rows: l.NodesOut(), Cols: l.NodesIn()}); err != nil {
			return fmt.Errorf("layer %d weight: %w", i, err)
		}
		if err := tensor.Expect(b, tensor.Shape{Rows: l.NodesOut(), Cols: 1}); err != nil {
			return fmt.Errorf("layer %d bias: %w", i, err)
		}
		loaded[i] = params{w: mat.DenseCopyOf(w), b: mat.VecDenseCopyOf(b.ColView(0))}
	}

	for i, l := range s.layers {
		l.w, l.b = loaded[i].w, loaded[i].b
		l.reset()
	}
	return nil
}
