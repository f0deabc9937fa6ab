package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File describes a loss and a stack of layers.
//
// Example document:
//
//	inputs: 2
//	loss:
//	  type: squared
//	layers:
//	  - nodes: 4
//	    activation: {type: tanh}
//	    optimizer: {type: adam, learn_rate: 0.01}
//	  - nodes: 1
//	    activation: {type: sigmoid}
//	    optimizer: {type: adam, learn_rate: 0.01}
type File struct {
	Inputs int           `yaml:"inputs"`
	Loss   Params        `yaml:"loss"`
	Layers []LayerConfig `yaml:"layers"`
}

// LayerConfig configures one layer: its output size and the options passed
// to the activation and optimizer factories.
type LayerConfig struct {
	Nodes      int    `yaml:"nodes"`
	Activation Params `yaml:"activation"`
	Optimizer  Params `yaml:"optimizer"`
}

// Parse decodes and validates a YAML document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads and parses the YAML file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Validate checks the structural rules of the file. Variant names and
// hyperparameter values are checked later by the factories.
func (f *File) Validate() error {
	if f.Inputs <= 0 {
		return fmt.Errorf("%w: inputs must be > 0, got %d", ErrConfiguration, f.Inputs)
	}
	if _, err := f.Loss.Type(); err != nil {
		return fmt.Errorf("loss: %w", err)
	}
	if len(f.Layers) == 0 {
		return fmt.Errorf("%w: at least one layer is required", ErrConfiguration)
	}
	for i, l := range f.Layers {
		if l.Nodes <= 0 {
			return fmt.Errorf("%w: layer %d: nodes must be > 0, got %d", ErrConfiguration, i, l.Nodes)
		}
		if _, err := l.Activation.Type(); err != nil {
			return fmt.Errorf("layer %d activation: %w", i, err)
		}
		if _, err := l.Optimizer.Type(); err != nil {
			return fmt.Errorf("layer %d optimizer: %w", i, err)
		}
	}
	return nil
}

// Sizes returns the (nodesIn, nodesOut) pair of every layer in order.
func (f *File) Sizes() [][2]int {
	sizes := make([][2]int, len(f.Layers))
	in := f.Inputs
	for i, l := range f.Layers {
		sizes[i] = [2]int{in, l.Nodes}
		in = l.Nodes
	}
	return sizes
}
