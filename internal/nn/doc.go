// Package nn implements dense layers, activations and losses over gonum
// matrices.
//
// All matrices are feature-major: rows are units, columns are samples.
// A layer with nodes_in inputs takes a [nodes_in, batch] input and
// produces a [nodes_out, batch] output.
//
// This package provides:
//   - Layer: fully connected layer with its own activation and optimizer
//   - Sequential: container chaining layers
//   - Activations: linear, tanh, sigmoid, relu, ramp, step, softmax
//   - Losses: log, squared, absolute, huber, pseudoHuber
//   - Factories: NewLoss and NewActivation build variants from config.Params
package nn
