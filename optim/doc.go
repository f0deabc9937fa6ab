// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimization algorithms for dense layers.
//
// # Overview
//
// This package contains:
//   - SGD: Stochastic Gradient Descent with momentum
//   - RMSprop: running average of squared gradients
//   - Adam: Adaptive Moment Estimation with bias correction
//   - Optimizer interface for custom optimizers
//
// Every optimizer belongs to exactly one layer. It keeps state buffers
// shaped like that layer's weights and bias and returns updated copies of
// them on each step.
//
// # Basic Usage
//
// Most code selects an optimizer by name when building a layer:
//
//	layer, err := nn.NewLayer(784, 10,
//	    nn.Params{"type": "softmax"},
//	    nn.Params{"type": "adam", "learn_rate": 0.001},
//	)
//
// Optimizers can also be built directly and injected:
//
//	opt, err := optim.NewSGD(w, b, optim.SGDConfig{LR: 0.01, Momentum: 0.9})
//	layer, err := nn.NewLayerWith(784, 10, act, opt, nn.WithWeights(w, b))
//
// # Options
//
// The "type"-keyed form accepts these keys:
//
//	sgd:     learn_rate, momentum, L1, L2
//	rmsprop: learn_rate, decay, epsilon, L1, L2
//	adam:    learn_rate, beta1, beta2, epsilon, L1, L2
package optim
