// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/ann/internal/config"
	"github.com/born-ml/ann/internal/optim"
)

// ErrUnknownOptimizerType is returned by New for an unrecognized "type".
var ErrUnknownOptimizerType = optim.ErrUnknownOptimizerType

// Optimizer interface defines the common interface for all optimizers.
type Optimizer = optim.Optimizer

// Regularization adds L1 and L2 penalties to the weight gradient.
type Regularization = optim.Regularization

// New creates the optimizer named by params["type"] for parameters shaped
// like w and b.
func New(w *mat.Dense, b *mat.VecDense, params config.Params) (Optimizer, error) {
	return optim.New(w, b, params)
}

// Types returns the recognized optimizer names.
func Types() []string {
	return optim.Types()
}

// SGD (Stochastic Gradient Descent)

// SGD represents the SGD optimizer with optional momentum.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
//
// Example:
//
//	optimizer, err := optim.NewSGD(w, b, optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
func NewSGD(w *mat.Dense, b *mat.VecDense, config SGDConfig) (*SGD, error) {
	return optim.NewSGD(w, b, config)
}

// RMSprop

// RMSprop represents the RMSprop optimizer.
type RMSprop = optim.RMSprop

// RMSpropConfig contains configuration for RMSprop optimizer.
type RMSpropConfig = optim.RMSpropConfig

// NewRMSprop creates a new RMSprop optimizer.
func NewRMSprop(w *mat.Dense, b *mat.VecDense, config RMSpropConfig) (*RMSprop, error) {
	return optim.NewRMSprop(w, b, config)
}

// Adam (Adaptive Moment Estimation)

// Adam represents the Adam optimizer.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer with bias correction.
//
// Example:
//
//	optimizer, err := optim.NewAdam(w, b, optim.AdamConfig{
//	    LR:    0.001,
//	    Betas: [2]float64{0.9, 0.999},
//	})
func NewAdam(w *mat.Dense, b *mat.VecDense, config AdamConfig) (*Adam, error) {
	return optim.NewAdam(w, b, config)
}
