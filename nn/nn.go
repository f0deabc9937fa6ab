// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/ann/internal/config"
	"github.com/born-ml/ann/internal/nn"
	"github.com/born-ml/ann/internal/optim"
)

// Errors reported by this package. Match them with errors.Is.
var (
	ErrUnknownLossType       = nn.ErrUnknownLossType
	ErrUnknownActivationType = nn.ErrUnknownActivationType
	ErrOrdering              = nn.ErrOrdering
	ErrShapeMismatch         = nn.ErrShapeMismatch
	ErrConfiguration         = nn.ErrConfiguration
)

// Configuration

// Params holds the options of a loss, activation or optimizer. The "type"
// key selects the variant.
type Params = config.Params

// Config describes a loss and a stack of layers.
type Config = config.File

// LayerConfig configures one layer of a Config.
type LayerConfig = config.LayerConfig

// LoadConfig reads and validates a YAML network description.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// ParseConfig decodes and validates a YAML network description.
func ParseConfig(data []byte) (*Config, error) {
	return config.Parse(data)
}

// Losses

// Loss scores predictions against targets.
type Loss = nn.Loss

// LogLoss is the cross-entropy over one-hot targets: the sum over entries
// with y == 1 of clamp(-log(yFit), DBL_MIN, DBL_MAX), divided by the batch
// size. The clamp keeps -log(0) finite and a perfect prediction above zero.
type LogLoss = nn.LogLoss

// SquaredLoss is Σ (yFit - y)² / batch.
type SquaredLoss = nn.SquaredLoss

// AbsoluteLoss is Σ |yFit - y| / batch.
type AbsoluteLoss = nn.AbsoluteLoss

// HuberLoss is quadratic within delta of the target and linear beyond.
type HuberLoss = nn.HuberLoss

// PseudoHuberLoss is the smooth approximation of HuberLoss.
type PseudoHuberLoss = nn.PseudoHuberLoss

// NewLoss creates the loss named by params["type"].
//
// Example:
//
//	loss, err := nn.NewLoss(nn.Params{"type": "huber", "dHuber": 0.5})
func NewLoss(params Params) (Loss, error) {
	return nn.NewLoss(params)
}

// LossTypes returns the recognized loss names.
func LossTypes() []string {
	return nn.LossTypes()
}

// NewHuberLoss creates a Huber loss with the given threshold.
func NewHuberLoss(delta float64) (*HuberLoss, error) {
	return nn.NewHuberLoss(delta)
}

// NewPseudoHuberLoss creates a pseudo-Huber loss with the given scale.
func NewPseudoHuberLoss(delta float64) (*PseudoHuberLoss, error) {
	return nn.NewPseudoHuberLoss(delta)
}

// Activations

// Activation is an elementwise (or column-wise) function and its derivative.
type Activation = nn.Activation

// NewActivation creates the activation named by params["type"].
//
// Example:
//
//	act, err := nn.NewActivation(nn.Params{"type": "tanh"})
func NewActivation(params Params) (Activation, error) {
	return nn.NewActivation(params)
}

// ActivationTypes returns the recognized activation names.
func ActivationTypes() []string {
	return nn.ActivationTypes()
}

// Layers

// Layer represents a fully connected (dense) layer.
type Layer = nn.Layer

// LayerOption configures a Layer at construction.
type LayerOption = nn.LayerOption

// Propagation selects which weights Backward uses for the returned error.
type Propagation = nn.Propagation

// Propagation modes.
const (
	PropagatePreUpdate  = nn.PropagatePreUpdate
	PropagatePostUpdate = nn.PropagatePostUpdate
)

// Initializer creates the initial weight matrix of a layer.
type Initializer = nn.Initializer

// NewLayer creates a new dense layer.
//
// Example:
//
//	layer, err := nn.NewLayer(784, 128,
//	    nn.Params{"type": "relu"},
//	    nn.Params{"type": "adam", "learn_rate": 0.001},
//	)
func NewLayer(nodesIn, nodesOut int, activation, optimizer Params, opts ...LayerOption) (*Layer, error) {
	return nn.NewLayer(nodesIn, nodesOut, activation, optimizer, opts...)
}

// NewLayerWith creates a new dense layer around an existing activation and
// optimizer.
func NewLayerWith(nodesIn, nodesOut int, act Activation, opt optim.Optimizer, opts ...LayerOption) (*Layer, error) {
	return nn.NewLayerWith(nodesIn, nodesOut, act, opt, opts...)
}

// WithWeights injects the initial weights and bias.
func WithWeights(w *mat.Dense, b *mat.VecDense) LayerOption {
	return nn.WithWeights(w, b)
}

// WithInit replaces the default weight initializer.
func WithInit(init Initializer) LayerOption {
	return nn.WithInit(init)
}

// WithSource sets the random source used by the initializer.
func WithSource(src rand.Source) LayerOption {
	return nn.WithSource(src)
}

// WithPropagation selects the propagation mode of Backward.
func WithPropagation(p Propagation) LayerOption {
	return nn.WithPropagation(p)
}

// NormalInit draws weights from N(0, 1/nodesIn). This is the default.
func NormalInit(nodesIn, nodesOut int, src rand.Source) *mat.Dense {
	return nn.NormalInit(nodesIn, nodesOut, src)
}

// XavierInit draws weights from the Glorot uniform distribution.
func XavierInit(nodesIn, nodesOut int, src rand.Source) *mat.Dense {
	return nn.XavierInit(nodesIn, nodesOut, src)
}

// Containers

// Sequential chains layers.
type Sequential = nn.Sequential

// NewSequential creates a new Sequential container.
func NewSequential(layers ...*Layer) (*Sequential, error) {
	return nn.NewSequential(layers...)
}

// FromFile builds the layers and the loss described by a Config.
func FromFile(f *Config, opts ...LayerOption) (*Sequential, Loss, error) {
	return nn.FromFile(f, opts...)
}
