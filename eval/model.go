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
	"gonum.org/v1/gonum/mat"
)

// Classifier is a generalization of an already fitted binary classifier
// predicting in-hospital death (1) or survival (0) of a patient.
type Classifier interface {

	// Predict returns predicted labels (0/1), one per row of X.
	Predict(X mat.Matrix) ([]float64, error)

	GetInfo() string
}

// DecisionScorer is an optional capability of a Classifier providing
// continuous scores proportional to the confidence that a sample
// is positive.
type DecisionScorer interface {
	DecisionFunction(X mat.Matrix) ([]float64, error)

	// DecisionThreshold is the score above which the classifier
	// predicts the positive class (0 for margins, 0.5 for probabilities).
	DecisionThreshold() float64
}

// capabilityReporter is implemented by wrappers (e.g. Pipeline) which
// have a DecisionFunction method but can provide actual scores only if
// the wrapped model can.
type capabilityReporter interface {
	HasDecisionFunction() bool
}

// AsDecisionScorer tests whether the classifier is able to produce
// continuous decision scores.
func AsDecisionScorer(clf Classifier) (DecisionScorer, bool) {
	ds, ok := clf.(DecisionScorer)
	if !ok {
		return nil, false
	}
	if cr, ok := clf.(capabilityReporter); ok && !cr.HasDecisionFunction() {
		return nil, false
	}
	return ds, true
}
