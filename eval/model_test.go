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

package eval

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/icueval/icueval/eval/linear"
	"github.com/icueval/icueval/eval/ym"
	"github.com/icueval/icueval/eval/zero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestAsDecisionScorer(t *testing.T) {
	_, ok := AsDecisionScorer(&linear.Model{Coef: []float64{1}})
	assert.True(t, ok)
	_, ok = AsDecisionScorer(&ym.Model{})
	assert.False(t, ok)
	_, ok = AsDecisionScorer(&zero.ZeroModel{})
	assert.False(t, ok)
}

func TestPipelineReportsInnerCapability(t *testing.T) {
	withScores := NewPipeline(PipelineConf{}, &linear.Model{Coef: []float64{1}})
	_, ok := AsDecisionScorer(withScores)
	assert.True(t, ok)

	labelsOnly := NewPipeline(PipelineConf{}, &ym.Model{})
	_, ok = AsDecisionScorer(labelsOnly)
	assert.False(t, ok)
	_, err := labelsOnly.DecisionFunction(mat.NewDense(1, 1, nil))
	assert.ErrorIs(t, err, ErrNoDecisionFunction)
}

func TestPipelineTransform(t *testing.T) {
	p := NewPipeline(
		PipelineConf{
			Imputer: &MeanImputer{Statistics: []float64{10, 20}},
			Scaler:  &StandardScaler{Mean: []float64{10, 0}, Scale: []float64{2, 0}},
		},
		&linear.Model{Coef: []float64{1, 1}},
	)
	X := mat.NewDense(2, 2, []float64{
		math.NaN(), 4,
		14, math.NaN(),
	})
	tX, err := p.Transform(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 4}, tX.RawRowView(0))
	assert.Equal(t, []float64{2, 20}, tX.RawRowView(1))
	assert.True(t, math.IsNaN(X.At(0, 0)), "input must not be modified")

	scores, err := p.DecisionFunction(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 22}, scores)
}

func TestPipelineShapeMismatch(t *testing.T) {
	p := NewPipeline(
		PipelineConf{Imputer: &MeanImputer{Statistics: []float64{1}}},
		&ym.Model{},
	)
	_, err := p.Predict(mat.NewDense(1, 2, nil))
	assert.Error(t, err)
}

func TestLoadClassifierWithPipeline(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "LinearSVM.json")
	require.NoError(t, (&linear.Model{Coef: []float64{2}, Intercept: -1}).SaveToFile(modelPath))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "LinearSVM.pipeline.json"),
		[]byte(`{"scaler": {"mean": [1], "scale": [0.5]}}`),
		0644,
	))
	clf, err := LoadClassifier("linear", modelPath)
	require.NoError(t, err)
	_, isPipeline := clf.(*Pipeline)
	assert.True(t, isPipeline)
	_, isLinear := Unwrap(clf).(*linear.Model)
	assert.True(t, isLinear)

	ds, ok := AsDecisionScorer(clf)
	require.True(t, ok)
	scores, err := ds.DecisionFunction(mat.NewDense(1, 1, []float64{2}))
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, scores)
}

func TestLoadClassifierUnknown(t *testing.T) {
	_, err := LoadClassifier("svm-rbf", "")
	assert.ErrorIs(t, err, ErrNoSuchModel)
}

func TestLoadDummyWithoutFile(t *testing.T) {
	clf, err := LoadClassifier("zero", "")
	require.NoError(t, err)
	labels, err := clf.Predict(mat.NewDense(3, 1, nil))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, labels)
}
