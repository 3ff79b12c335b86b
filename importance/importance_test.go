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

package importance

import (
	"testing"

	"github.com/icueval/icueval/eval/linear"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(ff []Feature) []string {
	ans := make([]string, len(ff))
	for i, f := range ff {
		ans[i] = f.Name
	}
	return ans
}

func TestRank(t *testing.T) {
	ranked, err := Rank(
		[]float64{0.3, -1.2, 2.5, 0, -0.1},
		[]string{"Age", "GCS", "Lactate", "Weight", "Urine"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"GCS", "Urine", "Weight", "Age", "Lactate"}, names(ranked))
	for i, f := range ranked {
		assert.Equal(t, i, f.Rank)
	}
}

func TestRankTiesKeepOrder(t *testing.T) {
	ranked, err := Rank([]float64{1, 0, 1, 0}, []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d", "a", "c"}, names(ranked))
}

func TestRankDoesNotModifyInput(t *testing.T) {
	coef := []float64{3, 1, 2}
	_, err := Rank(coef, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 2}, coef)
}

func TestRankErrors(t *testing.T) {
	_, err := Rank(nil, nil)
	assert.ErrorIs(t, err, ErrNoCoefficients)
	_, err = Rank([]float64{1, 2}, []string{"a"})
	assert.Error(t, err)
}

func TestTop(t *testing.T) {
	coef := []float64{0.9, -0.5, 0.1, -2.0, 1.5, 0.3, -0.05}
	fnames := []string{"f0", "f1", "f2", "f3", "f4", "f5", "f6"}
	ranked, err := Rank(coef, fnames)
	require.NoError(t, err)
	top := Top(ranked, 2)
	assert.Equal(t, []string{"f4", "f0"}, names(top.IncreasedRisk))
	assert.Equal(t, []string{"f3", "f1"}, names(top.DecreasedRisk))
	assert.Equal(t, 1.5, top.IncreasedRisk[0].Coefficient)
	assert.Equal(t, -2.0, top.DecreasedRisk[0].Coefficient)

	top = Top(ranked, 100)
	assert.Len(t, top.IncreasedRisk, 7)
	assert.Len(t, top.DecreasedRisk, 7)
}

func TestAnalyzeLinearModel(t *testing.T) {
	model := &linear.Model{
		Coef:         []float64{0.2, -0.7, 1.1},
		FeatureNames: []string{"HR", "GCS", "BUN"},
	}
	summary, err := Analyze(model, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"BUN"}, names(summary.IncreasedRisk))
	assert.Equal(t, []string{"GCS"}, names(summary.DecreasedRisk))
}
