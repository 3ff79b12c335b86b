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

package metrics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrUndefined is returned when a metric cannot be computed
	// for the provided labels (e.g. AUROC with a single class present).
	ErrUndefined = errors.New("metric undefined for provided labels")
)

// Metric identifies a binary classification performance measure
type Metric string

const (
	Accuracy    Metric = "accuracy"
	AUROC       Metric = "auroc"
	F1Score     Metric = "f1_score"
	Precision   Metric = "precision"
	Sensitivity Metric = "sensitivity"
	Specificity Metric = "specificity"
)

// All lists all the supported metrics in their canonical order.
var All = []Metric{Accuracy, AUROC, F1Score, Precision, Sensitivity, Specificity}

func (m Metric) String() string {
	return string(m)
}

// Validate tests whether the metric belongs to the supported set.
func (m Metric) Validate() error {
	for _, v := range All {
		if v == m {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownMetric, string(m))
}

// ThresholdFree specifies whether the metric works with raw scores
// instead of labels derived from them.
func (m Metric) ThresholdFree() bool {
	return m == AUROC
}

// Range returns a closed interval of valid metric values
func (m Metric) Range() (float64, float64) {
	return 0, 1
}

func Parse(name string) (Metric, error) {
	m := Metric(name)
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
}

// ParseList parses a list of metric names, keeping their order
// and removing duplicates.
func ParseList(names []string) ([]Metric, error) {
	ans := make([]Metric, 0, len(names))
	used := make(map[Metric]bool)
	for _, name := range names {
		m, err := Parse(name)
		if err != nil {
			return nil, err
		}
		if used[m] {
			continue
		}
		used[m] = true
		ans = append(ans, m)
	}
	return ans, nil
}

// ----------------------------

type confusion struct {
	tp, fp, tn, fn float64
}

func (c confusion) total() float64 {
	return c.tp + c.fp + c.tn + c.fn
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func newConfusion(yTrue, yScore []float64, threshold float64) confusion {
	var ans confusion
	for i, truth := range yTrue {
		predicted := yScore[i] > threshold
		positive := truth == 1
		switch {
		case predicted && positive:
			ans.tp++
		case predicted && !positive:
			ans.fp++
		case !predicted && positive:
			ans.fn++
		default:
			ans.tn++
		}
	}
	return ans
}

// auroc calculates the area under ROC curve. Tied scores
// are resolved by the ROC itself (a diagonal segment) so the result
// equals the probability that a random positive example is ranked
// above a random negative one (ties counting 1/2).
func auroc(yTrue, yScore []float64) (float64, error) {
	var numPos int
	for _, v := range yTrue {
		if v == 1 {
			numPos++
		}
	}
	if numPos == 0 || numPos == len(yTrue) {
		return math.NaN(), ErrUndefined
	}
	sorted := make([]float64, len(yScore))
	copy(sorted, yScore)
	inds := make([]int, len(sorted))
	floats.Argsort(sorted, inds)
	classes := make([]bool, len(sorted))
	for i, idx := range inds {
		classes[i] = yTrue[idx] == 1
	}
	tpr, fpr, _ := stat.ROC(nil, sorted, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

// Score calculates a metric value for true labels (0/1) and predicted
// scores. For label-based metrics, a score is considered positive
// if it is strictly greater than `threshold`. Predicted labels (0/1) can
// be passed directly with threshold 0.5.
func Score(yTrue, yScore []float64, threshold float64, m Metric) (float64, error) {
	if len(yTrue) != len(yScore) {
		return math.NaN(), fmt.Errorf(
			"failed to score %s: labels and predictions differ in length (%d vs. %d)",
			m, len(yTrue), len(yScore))
	}
	if len(yTrue) == 0 {
		return math.NaN(), fmt.Errorf("failed to score %s: %w", m, ErrUndefined)
	}
	if m == AUROC {
		return auroc(yTrue, yScore)
	}
	cm := newConfusion(yTrue, yScore, threshold)
	switch m {
	case Accuracy:
		return safeDiv(cm.tp+cm.tn, cm.total()), nil
	case Precision:
		return safeDiv(cm.tp, cm.tp+cm.fp), nil
	case Sensitivity:
		return safeDiv(cm.tp, cm.tp+cm.fn), nil
	case Specificity:
		return safeDiv(cm.tn, cm.tn+cm.fp), nil
	case F1Score:
		return safeDiv(2*cm.tp, 2*cm.tp+cm.fp+cm.fn), nil
	}
	return math.NaN(), fmt.Errorf("%w: %s", ErrUnknownMetric, string(m))
}
