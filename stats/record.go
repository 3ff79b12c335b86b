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

package stats

import (
	"github.com/icueval/icueval/bootstrap"
)

// Run is a single evaluation of one or more classifiers on a test set
type Run struct {
	ID string `json:"id"`

	// Datetime is a UNIX timestamp of the run
	Datetime int64 `json:"datetime"`

	NumBootstraps int     `json:"numBootstraps"`
	Seed          uint64  `json:"seed"`
	Confidence    float64 `json:"confidence"`

	// NumRecords is the size of the test set
	NumRecords int `json:"numRecords"`

	// NumPositive is the number of in-hospital deaths in the test set
	NumPositive int `json:"numPositive"`

	TestFeaturesPath string `json:"testFeaturesPath"`
}

// ClassifierResult holds evaluation of a single classifier within a run
type ClassifierResult struct {
	Classifier string                    `json:"classifier"`
	ModelType  string                    `json:"modelType"`
	Mode       bootstrap.ScoringMode     `json:"mode"`
	Summary    []bootstrap.SummaryRecord `json:"summary"`

	// Results contains bootstrap distributions. It is filled in
	// only when explicitly requested as it can be quite large.
	Results *bootstrap.Results `json:"results,omitempty"`
}

// RunDetail is a run along with its per-classifier results
type RunDetail struct {
	Run
	Classifiers []ClassifierResult `json:"classifiers"`
}
