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
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var ErrNoDecisionFunction = errors.New("classifier does not provide a decision function")

// MeanImputer replaces missing values (NaN) with per-feature
// statistics fitted on the training data.
type MeanImputer struct {
	Statistics []float64 `json:"statistics"`
}

// StandardScaler centers and scales features using
// training data mean and standard deviation.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// PipelineConf describes preprocessing steps which were fitted along
// with a classifier. It is typically stored next to a model file.
type PipelineConf struct {
	Imputer *MeanImputer    `json:"imputer,omitempty"`
	Scaler  *StandardScaler `json:"scaler,omitempty"`
}

func (conf *PipelineConf) validate(numFeatures int) error {
	if conf.Imputer != nil && len(conf.Imputer.Statistics) != numFeatures {
		return fmt.Errorf(
			"imputer expects %d features, got %d", len(conf.Imputer.Statistics), numFeatures)
	}
	if conf.Scaler != nil {
		if len(conf.Scaler.Mean) != len(conf.Scaler.Scale) {
			return fmt.Errorf("scaler mean and scale differ in length")
		}
		if len(conf.Scaler.Mean) != numFeatures {
			return fmt.Errorf(
				"scaler expects %d features, got %d", len(conf.Scaler.Mean), numFeatures)
		}
	}
	return nil
}

func LoadPipelineConf(path string) (*PipelineConf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline configuration: %w", err)
	}
	var conf PipelineConf
	if err := json.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("failed to load pipeline configuration: %w", err)
	}
	return &conf, nil
}

// ----------------------------

// Pipeline chains preprocessing steps with a final classifier
type Pipeline struct {
	conf PipelineConf
	Clf  Classifier
}

// Transform applies imputation and scaling to a copy of X
func (p *Pipeline) Transform(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if err := p.conf.validate(c); err != nil {
		return nil, fmt.Errorf("failed to transform features: %w", err)
	}
	ans := mat.DenseCopyOf(X)
	for i := 0; i < r; i++ {
		row := ans.RawRowView(i)
		for j := 0; j < c; j++ {
			if p.conf.Imputer != nil && math.IsNaN(row[j]) {
				row[j] = p.conf.Imputer.Statistics[j]
			}
			if p.conf.Scaler != nil {
				scale := p.conf.Scaler.Scale[j]
				if scale == 0 {
					scale = 1
				}
				row[j] = (row[j] - p.conf.Scaler.Mean[j]) / scale
			}
		}
	}
	return ans, nil
}

func (p *Pipeline) Predict(X mat.Matrix) ([]float64, error) {
	tX, err := p.Transform(X)
	if err != nil {
		return nil, err
	}
	return p.Clf.Predict(tX)
}

func (p *Pipeline) HasDecisionFunction() bool {
	_, ok := AsDecisionScorer(p.Clf)
	return ok
}

func (p *Pipeline) DecisionFunction(X mat.Matrix) ([]float64, error) {
	ds, ok := AsDecisionScorer(p.Clf)
	if !ok {
		return nil, ErrNoDecisionFunction
	}
	tX, err := p.Transform(X)
	if err != nil {
		return nil, err
	}
	return ds.DecisionFunction(tX)
}

func (p *Pipeline) DecisionThreshold() float64 {
	if ds, ok := AsDecisionScorer(p.Clf); ok {
		return ds.DecisionThreshold()
	}
	return 0.5
}

func (p *Pipeline) GetInfo() string {
	steps := make([]string, 0, 3)
	if p.conf.Imputer != nil {
		steps = append(steps, "mean imputer")
	}
	if p.conf.Scaler != nil {
		steps = append(steps, "standard scaler")
	}
	steps = append(steps, p.Clf.GetInfo())
	return strings.Join(steps, " -> ")
}

// Unwrap returns the final classifier of the pipeline
func (p *Pipeline) Unwrap() Classifier {
	return p.Clf
}

func NewPipeline(conf PipelineConf, clf Classifier) *Pipeline {
	return &Pipeline{conf: conf, Clf: clf}
}
