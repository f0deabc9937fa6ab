// Package serialization saves and loads named float64 matrices in the
// SafeTensors format.
//
//	Format Structure:
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON object, one entry per tensor plus "__metadata__"]
//	  [Tensor data: F64 little-endian, row-major, in name order]
//
// Every file written by this package records the SHA-256 of its data
// section under the "sha256" metadata key. Readers verify it when present.
//
// Example usage:
//
//	// Save a model
//	if err := serialization.SaveFile("xor.safetensors", model.StateDict(), nil); err != nil {
//	    return err
//	}
//
//	// Load a model
//	dict, meta, err := serialization.LoadFile("xor.safetensors")
//	if err != nil {
//	    return err
//	}
//	err = model.LoadStateDict(dict)
package serialization
