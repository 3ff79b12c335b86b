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

package rf

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/icueval/icueval/eval/modutils"
	randomforest "github.com/malaschitz/randomForest"
	"gonum.org/v1/gonum/mat"
)

const dfltVotingThreshold = 0.5

type jsonizedRFModel struct {
	Forest          json.RawMessage `json:"forest"`
	Comment         string          `json:"comment"`
	VotingThreshold float64         `json:"votingThreshold"`
}

// Model wraps a Random Forest classifier. Its decision function
// is the share of trees voting for the positive class.
type Model struct {
	Forest          *randomforest.Forest
	NumTrees        int
	VotingThreshold float64
	Comment         string
}

func (m *Model) GetInfo() string {
	return fmt.Sprintf("RF model, num. trees: %d, voting threshold: %.2f", m.NumTrees, m.VotingThreshold)
}

func (m *Model) DecisionThreshold() float64 {
	return m.VotingThreshold
}

func (m *Model) DecisionFunction(X mat.Matrix) ([]float64, error) {
	if err := modutils.CheckNumFeatures(X, m.Forest.Features); err != nil {
		return nil, fmt.Errorf("failed to evaluate RF model: %w", err)
	}
	r, _ := X.Dims()
	ans := make([]float64, r)
	for i := 0; i < r; i++ {
		votes := m.Forest.Vote(modutils.Row(X, i))
		if len(votes) > 1 {
			ans[i] = votes[1]
		}
	}
	return ans, nil
}

func (m *Model) Predict(X mat.Matrix) ([]float64, error) {
	scores, err := m.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	return modutils.ScoresToLabels(scores, m.VotingThreshold), nil
}

// SaveToFile saves the RF model to a file
func (m *Model) SaveToFile(filePath string) error {
	tmpModel := jsonizedRFModel{
		Comment:         m.Comment,
		VotingThreshold: m.VotingThreshold,
	}
	bytes, err := json.Marshal(m.Forest)
	if err != nil {
		return fmt.Errorf("failed to save RF model to a file: %w", err)
	}
	tmpModel.Forest = bytes
	bytes, err = json.Marshal(tmpModel)
	if err != nil {
		return fmt.Errorf("failed to save RF model to a file: %w", err)
	}
	if err := os.WriteFile(filePath, bytes, 0644); err != nil {
		return fmt.Errorf("failed to save RF model to a file: %w", err)
	}
	return nil
}

// LoadFromFile loads a forest stored by SaveToFile (optionally gzipped)
func LoadFromFile(filePath string) (*Model, error) {
	data, err := modutils.ReadModelFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load Random Forest model from file: %w", err)
	}
	var tmpModel jsonizedRFModel
	if err := json.Unmarshal(data, &tmpModel); err != nil {
		return nil, fmt.Errorf("failed to load Random Forest model from file: %w", err)
	}
	var forest randomforest.Forest
	if err := json.Unmarshal(tmpModel.Forest, &forest); err != nil {
		return nil, fmt.Errorf("failed to load Random Forest model from file: %w", err)
	}
	model := NewModel(&forest, tmpModel.VotingThreshold)
	model.Comment = tmpModel.Comment
	return model, nil
}

// NewModel wraps an already trained forest. A zero votingThreshold
// is replaced by the default 0.5.
func NewModel(forest *randomforest.Forest, votingThreshold float64) *Model {
	if votingThreshold == 0 {
		votingThreshold = dfltVotingThreshold
	}
	return &Model{
		Forest:          forest,
		NumTrees:        forest.NTrees,
		VotingThreshold: votingThreshold,
	}
}
