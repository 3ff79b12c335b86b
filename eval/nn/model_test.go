package nn

import (
	"path/filepath"
	"testing"

	"github.com/patrikeh/go-deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newNet() *deep.Neural {
	return deep.NewNeural(&deep.Config{
		Inputs:     3,
		Layout:     []int{4, 1},
		Activation: deep.ActivationReLU,
		Mode:       deep.ModeBinary,
		Weight:     deep.NewUniform(1.0, 0.0),
		Bias:       true,
	})
}

func TestDecisionFunctionIsProbability(t *testing.T) {
	m := NewModel(newNet())
	X := mat.NewDense(2, 3, []float64{1, 2, 3, -1, 0, 4})
	scores, err := m.DecisionFunction(X)
	require.NoError(t, err)
	for _, s := range scores {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
	labels, err := m.Predict(X)
	require.NoError(t, err)
	for i, s := range scores {
		if s > 0.5 {
			assert.Equal(t, 1.0, labels[i])

		} else {
			assert.Equal(t, 0.0, labels[i])
		}
	}
}

func TestNormalization(t *testing.T) {
	m := NewModel(newNet())
	m.DataRanges = []FeatureStats{{Min: 0, Max: 10}, {Min: 5, Max: 5}}
	v := []float64{5, 7, 100}
	m.normalizeNNFeats(v)
	assert.Equal(t, []float64{0.5, 0, 100}, v)
}

func TestSaveAndLoad(t *testing.T) {
	m := NewModel(newNet())
	m.ClassThreshold = 0.3
	path := filepath.Join(t.TempDir(), "model.nn.json")
	require.NoError(t, m.SaveToFile(path))

	m2, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.3, m2.DecisionThreshold())

	X := mat.NewDense(2, 3, []float64{0.5, 0.1, -2, 3, 3, 3})
	s1, err := m.DecisionFunction(X)
	require.NoError(t, err)
	s2, err := m2.DecisionFunction(X)
	require.NoError(t, err)
	assert.InDeltaSlice(t, s1, s2, 1e-12)
}

func TestWrongNumberOfFeatures(t *testing.T) {
	m := NewModel(newNet())
	_, err := m.DecisionFunction(mat.NewDense(1, 2, nil))
	assert.Error(t, err)
}
