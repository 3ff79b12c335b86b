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

package bootstrap

import (
	"fmt"
	"math"
	"slices"

	"github.com/icueval/icueval/metrics"
)

const DefaultConfidence = 0.95

// SummaryRecord is a percentile confidence interval of a metric
type SummaryRecord struct {
	Metric        metrics.Metric `json:"metric"`
	Point         float64        `json:"point"`
	Lower         float64        `json:"lower"`
	Upper         float64        `json:"upper"`
	Confidence    float64        `json:"confidence"`
	NumSamples    int            `json:"numSamples"`
	NumDegenerate int            `json:"numDegenerate"`
}

func (sr SummaryRecord) String() string {
	return fmt.Sprintf(
		"%s: %.4f [%.4f, %.4f] (%.0f%% CI, n = %d)",
		sr.Metric, sr.Point, sr.Lower, sr.Upper, sr.Confidence*100, sr.NumSamples)
}

// Percentile returns q-th percentile (q in [0, 100]) of values using
// linear interpolation between the closest order statistics.
// The values are not modified.
func Percentile(values []float64, q float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: cannot calculate percentile of an empty sequence", ErrInvalidInput)
	}
	if q < 0 || q > 100 || math.IsNaN(q) {
		return 0, fmt.Errorf("%w: percentile must be in [0, 100], got %v", ErrInvalidInput, q)
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return percentileOfSorted(sorted, q), nil
}

func percentileOfSorted(sorted []float64, q float64) float64 {
	h := float64(len(sorted)-1) * q / 100
	lo := math.Floor(h)
	loIdx := int(lo)
	if loIdx >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[loIdx] + (h-lo)*(sorted[loIdx+1]-sorted[loIdx])
}

// Summarize calculates a two-sided percentile confidence interval of
// the bootstrap distribution stored in rec. Degenerate (NaN) samples
// are not included. With a small number of samples the interval
// is rather coarse (a single sample produces Lower == Upper).
func Summarize(rec *ResultRecord, confidence float64) (SummaryRecord, error) {
	if !(confidence > 0 && confidence < 1) {
		return SummaryRecord{}, fmt.Errorf(
			"%w: confidence must be in (0, 1), got %v", ErrInvalidInput, confidence)
	}
	valid := rec.Samples.Valid()
	if len(valid) == 0 {
		return SummaryRecord{}, fmt.Errorf(
			"%w: no valid bootstrap samples for %s", ErrDegenerateMetric, rec.Metric)
	}
	slices.Sort(valid)
	alpha := (1 - confidence) / 2
	return SummaryRecord{
		Metric:        rec.Metric,
		Point:         rec.Point,
		Lower:         percentileOfSorted(valid, alpha*100),
		Upper:         percentileOfSorted(valid, (1-alpha)*100),
		Confidence:    confidence,
		NumSamples:    len(valid),
		NumDegenerate: len(rec.Samples) - len(valid),
	}, nil
}

// SummarizeAll summarizes all the records of res in their order
func SummarizeAll(res Results, confidence float64) ([]SummaryRecord, error) {
	ans := make([]SummaryRecord, 0, len(res.Records))
	for _, rec := range res.Records {
		sr, err := Summarize(rec, confidence)
		if err != nil {
			return nil, err
		}
		ans = append(ans, sr)
	}
	return ans, nil
}
