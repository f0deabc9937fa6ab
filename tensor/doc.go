// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides shape checks and matrix helpers for gonum
// matrices laid out feature-major (rows are units, columns are samples).
//
// # Basic Usage
//
//	x, err := tensor.FromRows([][]float64{
//	    {0, 0, 1, 1},
//	    {0, 1, 0, 1},
//	})
//	fmt.Println(tensor.Of(x)) // [2 x 4]
//
// Shape errors wrap ErrShapeMismatch:
//
//	if errors.Is(err, tensor.ErrShapeMismatch) { ... }
package tensor
