// Copyright 2025 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2025 Department of Linguistics,
// Faculty of Arts, Charles University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package linear

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestDecisionFunction(t *testing.T) {
	m := &Model{Coef: []float64{1, -2}, Intercept: 0.5}
	X := mat.NewDense(3, 2, []float64{
		1, 1,
		0, 0,
		-1, 0,
	})
	scores, err := m.DecisionFunction(X)
	assert.NoError(t, err)
	assert.Equal(t, []float64{-0.5, 0.5, -0.5}, scores)

	labels, err := m.Predict(X)
	assert.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0}, labels)
}

func TestDecisionFunctionWrongShape(t *testing.T) {
	m := &Model{Coef: []float64{1, -2}}
	_, err := m.DecisionFunction(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linear.json")
	m := &Model{Coef: []float64{0.3, -0.1}, Intercept: -1, FeatureNames: []string{"Age", "GCS"}}
	require.NoError(t, m.SaveToFile(path))

	m2, err := LoadFromFile(path)
	assert.NoError(t, err)
	coef, names := m2.Coefficients()
	assert.Equal(t, []float64{0.3, -0.1}, coef)
	assert.Equal(t, []string{"Age", "GCS"}, names)
	assert.Equal(t, -1.0, m2.Intercept)
}

func TestLoadInconsistentNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linear.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"coef":[1,2],"featureNames":["a"]}`), 0644))
	_, err := LoadFromFile(path)
	assert.Error(t, err)
}
