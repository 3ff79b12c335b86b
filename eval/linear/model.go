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
	"encoding/json"
	"fmt"
	"os"

	"github.com/icueval/icueval/eval/modutils"
	"gonum.org/v1/gonum/mat"
)

// Model is a linear classifier (typically a linear SVM or a logistic
// regression) with decision function w.x + b.
type Model struct {
	Coef         []float64 `json:"coef"`
	Intercept    float64   `json:"intercept"`
	FeatureNames []string  `json:"featureNames,omitempty"`
	Comment      string    `json:"comment,omitempty"`
}

func (m *Model) GetInfo() string {
	return fmt.Sprintf("linear model, num. features: %d", len(m.Coef))
}

func (m *Model) DecisionThreshold() float64 {
	return 0
}

func (m *Model) DecisionFunction(X mat.Matrix) ([]float64, error) {
	if err := modutils.CheckNumFeatures(X, len(m.Coef)); err != nil {
		return nil, fmt.Errorf("failed to evaluate linear model: %w", err)
	}
	r, _ := X.Dims()
	var out mat.VecDense
	out.MulVec(X, mat.NewVecDense(len(m.Coef), m.Coef))
	ans := make([]float64, r)
	for i := range ans {
		ans[i] = out.AtVec(i) + m.Intercept
	}
	return ans, nil
}

func (m *Model) Predict(X mat.Matrix) ([]float64, error) {
	scores, err := m.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	return modutils.ScoresToLabels(scores, m.DecisionThreshold()), nil
}

// Coefficients returns model weights along with names of respective features.
// If the model file does not contain feature names, the returned names are nil.
func (m *Model) Coefficients() ([]float64, []string) {
	return m.Coef, m.FeatureNames
}

func (m *Model) SaveToFile(filePath string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to save linear model to a file: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to save linear model to a file: %w", err)
	}
	return nil
}

func LoadFromFile(filePath string) (*Model, error) {
	data, err := modutils.ReadModelFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load linear model from file %s: %w", filePath, err)
	}
	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to load linear model from file %s: %w", filePath, err)
	}
	if len(model.Coef) == 0 {
		return nil, fmt.Errorf("failed to load linear model from file %s: no coefficients", filePath)
	}
	if len(model.FeatureNames) > 0 && len(model.FeatureNames) != len(model.Coef) {
		return nil, fmt.Errorf(
			"failed to load linear model from file %s: feature names do not match coefficients", filePath)
	}
	return &model, nil
}
