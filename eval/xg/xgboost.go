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

package xg

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/czcorpus/cnc-gokit/fs"
	"github.com/dmitryikh/leaves"
	"github.com/icueval/icueval/eval/modutils"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

const (
	FormatLightGBM = "lightgbm"
	FormatXGBoost  = "xgboost"
)

type metadata struct {
	Format         string    `json:"format"`
	Objective      string    `json:"objective"`
	Metric         [2]string `json:"metric"`
	ScalePosWeight float64   `json:"scale_pos_weight"`
	MaxDepth       int       `json:"max_depth"`
	LearningRate   float64   `json:"learning_rate"`
	NumLeaves      int       `json:"num_leaves"`
	RandomState    int       `json:"random_state"`
}

// Model is an inference-only gradient boosted trees ensemble
// trained by LightGBM or XGBoost. The ensemble is loaded without
// the output transformation so its decision function is the raw
// margin (log-odds) and the class threshold is 0.
type Model struct {
	ensemble *leaves.Ensemble
	metadata metadata
}

func (m *Model) DecisionThreshold() float64 {
	return 0
}

func (m *Model) DecisionFunction(X mat.Matrix) ([]float64, error) {
	if err := modutils.CheckNumFeatures(X, m.ensemble.NFeatures()); err != nil {
		return nil, fmt.Errorf("failed to evaluate XG model: %w", err)
	}
	r, _ := X.Dims()
	ans := make([]float64, r)
	for i := 0; i < r; i++ {
		ans[i] = m.ensemble.PredictSingle(modutils.Row(X, i), 0)
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

func (m *Model) GetInfo() string {
	return fmt.Sprintf(
		"XGBoost model (%s), num. trees: %d, NL: %d, SPV: %.2f, LR: %.2f",
		m.metadata.Format,
		m.ensemble.NEstimators(),
		m.metadata.NumLeaves,
		m.metadata.ScalePosWeight,
		m.metadata.LearningRate,
	)
}

func loadMetadata(modelPath string) (metadata, error) {
	mt := metadata{Format: FormatLightGBM}
	metadataFilePath := modutils.SidecarPath(modelPath, ".metadata.json")
	isFile, err := fs.IsFile(metadataFilePath)
	if err != nil {
		return mt, fmt.Errorf("failed to load XG model metadata: %w", err)
	}
	if !isFile {
		log.Warn().
			Str("path", metadataFilePath).
			Msg("Cannot load XG model metadata - no file found, assuming LightGBM text format")
		return mt, nil
	}
	data, err := os.ReadFile(metadataFilePath)
	if err != nil {
		return mt, fmt.Errorf("failed to load XG model metadata: %w", err)
	}
	if err := json.Unmarshal(data, &mt); err != nil {
		return mt, fmt.Errorf("failed to load XG model metadata: %w", err)
	}
	if mt.Format == "" {
		mt.Format = FormatLightGBM
	}
	return mt, nil
}

func LoadFromFile(filePath string) (*Model, error) {
	metadata, err := loadMetadata(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load XG model: %w", err)
	}
	reader, err := modutils.OpenModelFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load XG model: %w", err)
	}
	defer reader.Close()

	var ensemble *leaves.Ensemble
	switch metadata.Format {
	case FormatLightGBM:
		ensemble, err = leaves.LGEnsembleFromReader(bufio.NewReader(reader), false)
	case FormatXGBoost:
		ensemble, err = leaves.XGEnsembleFromReader(bufio.NewReader(reader), false)
	default:
		err = fmt.Errorf("unknown model format %s", metadata.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load XG model: %w", err)
	}
	if ensemble.NOutputGroups() != 1 {
		return nil, fmt.Errorf(
			"failed to load XG model: expected a binary classifier, found %d output groups",
			ensemble.NOutputGroups())
	}
	return &Model{ensemble: ensemble, metadata: metadata}, nil
}
