package nn

import (
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/ann/internal/config"
	"github.com/born-ml/ann/internal/serialization"
)

func TestSequential_SaveLoad(t *testing.T) {
	f, err := config.Parse([]byte(xorConfig))
	require.NoError(t, err)
	trained, loss, err := FromFile(f, WithSource(rand.NewPCG(4, 4)))
	require.NoError(t, err)

	x, y := xorData()
	for range 50 {
		_, err := trained.TrainStep(x, y, loss)
		require.NoError(t, err)
	}

	path := filepath.Join(t.TempDir(), "xor.safetensors")
	require.NoError(t, trained.Save(path))

	fresh, _, err := FromFile(f, WithSource(rand.NewPCG(9, 9)))
	require.NoError(t, err)
	require.NoError(t, fresh.Load(path))

	want, err := trained.Forward(x)
	require.NoError(t, err)
	got, err := fresh.Forward(x)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}

func TestSequential_LoadRejectsOtherNetworks(t *testing.T) {
	f, err := config.Parse([]byte(xorConfig))
	require.NoError(t, err)
	model, _, err := FromFile(f)
	require.NoError(t, err)
	dir := t.TempDir()

	// Same tensors, different producer.
	foreign := filepath.Join(dir, "foreign.safetensors")
	require.NoError(t, serialization.SaveFile(foreign, model.StateDict(), nil))
	assert.ErrorIs(t, model.Load(foreign), ErrConfiguration)

	// One layer only.
	single, err := NewLayer(2, 4, identity, sgd01)
	require.NoError(t, err)
	small, err := NewSequential(single)
	require.NoError(t, err)
	path := filepath.Join(dir, "small.safetensors")
	require.NoError(t, small.Save(path))
	assert.ErrorIs(t, model.Load(path), ErrConfiguration)

	assert.Error(t, model.Load(filepath.Join(dir, "missing.safetensors")))
}
