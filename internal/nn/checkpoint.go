package nn

import (
	"fmt"
	"strconv"

	"github.com/born-ml/ann/internal/serialization"
)

// Metadata keys written by Save.
const (
	metaFormat = "format"
	metaLayers = "layers"

	checkpointFormat = "ann-sequential"
)

// Save writes the parameters of every layer to a SafeTensors file.
// Optimizer state is not saved.
func (s *Sequential) Save(path string) error {
	meta := map[string]string{
		metaFormat: checkpointFormat,
		metaLayers: strconv.Itoa(len(s.layers)),
	}
	if err := serialization.SaveFile(path, s.StateDict(), meta); err != nil {
		return fmt.Errorf("nn: save %s: %w", path, err)
	}
	return nil
}

// Load replaces the parameters of every layer with those stored at path.
// The file must describe a network with the same layer sizes.
func (s *Sequential) Load(path string) error {
	dict, meta, err := serialization.LoadFile(path)
	if err != nil {
		return fmt.Errorf("nn: load %s: %w", path, err)
	}
	if meta[metaFormat] != checkpointFormat {
		return fmt.Errorf("nn: load %s: %w: format %q", path, ErrConfiguration, meta[metaFormat])
	}
	if n := meta[metaLayers]; n != strconv.Itoa(len(s.layers)) {
		return fmt.Errorf("nn: load %s: %w: file has %s layers, network has %d",
			path, ErrConfiguration, n, len(s.layers))
	}
	if err := s.LoadStateDict(dict); err != nil {
		return fmt.Errorf("nn: load %s: %w", path, err)
	}
	return nil
}
