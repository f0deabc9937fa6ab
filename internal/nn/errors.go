package nn

import (
	"errors"

	"github.com/born-ml/ann/internal/config"
	"github.com/born-ml/ann/internal/tensor"
)

// Common errors.
var (
	ErrUnknownLossType       = errors.New("nn: unknown loss type")
	ErrUnknownActivationType = errors.New("nn: unknown activation type")
	ErrOrdering              = errors.New("nn: backward called without a preceding forward")

	// ErrShapeMismatch and ErrConfiguration alias the sentinels of the
	// packages that detect them, so errors.Is works with either name.
	ErrShapeMismatch = tensor.ErrShapeMismatch
	ErrConfiguration = config.ErrConfiguration
)
