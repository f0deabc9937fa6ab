// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides dense layers, activations and loss functions.
//
// # Overview
//
// This package contains:
//   - Layer: fully connected layer A = g(W · X + b) with its own optimizer
//   - Sequential: container for stacking layers
//   - Activations: linear, tanh, sigmoid, relu, ramp, step, softmax
//   - Loss functions: log, squared, absolute, huber, pseudoHuber
//   - Factories: NewLoss, NewActivation and FromFile build everything from
//     "type"-keyed options
//
// Matrices are gonum *mat.Dense values laid out feature-major: one row per
// unit and one column per sample.
//
// # Basic Usage
//
//	layer, err := nn.NewLayer(2, 1,
//	    nn.Params{"type": "sigmoid"},
//	    nn.Params{"type": "sgd", "learn_rate": 0.1},
//	)
//	loss, err := nn.NewLoss(nn.Params{"type": "squared"})
//
//	out, err := layer.Forward(x)      // x: [2, batch]
//	value, err := loss.Eval(y, out)
//	grad, err := loss.Grad(y, out)
//	_, err = layer.Backward(grad)     // updates W and b
//
// # Ordering
//
// Backward must follow a Forward on the same layer. A second Backward, or
// a Backward on a fresh layer, returns ErrOrdering:
//
//	if errors.Is(err, nn.ErrOrdering) { ... }
//
// # Configuration Files
//
// A network and its loss can be described in YAML and built with FromFile:
//
//	f, err := nn.LoadConfig("net.yaml")
//	model, loss, err := nn.FromFile(f)
//	for range epochs {
//	    value, err := model.TrainStep(x, y, loss)
//	}
package nn
