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
	"encoding/json"
	"fmt"
	"math"

	"github.com/icueval/icueval/metrics"
)

const bootKeySuffix = "_boot"

// Samples is a sequence of bootstrap scores. Index i always belongs
// to the i-th resample, degenerate resamples are stored as NaN
// (encoded as null in JSON).
type Samples []float64

func (s Samples) MarshalJSON() ([]byte, error) {
	tmp := make([]*float64, len(s))
	for i := range s {
		if !math.IsNaN(s[i]) {
			tmp[i] = &s[i]
		}
	}
	return json.Marshal(tmp)
}

func (s *Samples) UnmarshalJSON(data []byte) error {
	var tmp []*float64
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*s = make(Samples, len(tmp))
	for i, v := range tmp {
		if v == nil {
			(*s)[i] = math.NaN()

		} else {
			(*s)[i] = *v
		}
	}
	return nil
}

// Valid returns a copy of samples without NaN values
func (s Samples) Valid() []float64 {
	ans := make([]float64, 0, len(s))
	for _, v := range s {
		if !math.IsNaN(v) {
			ans = append(ans, v)
		}
	}
	return ans
}

// ---------------------------

// ResultRecord holds evaluation of a single metric - its value on
// the full test set and the bootstrap distribution.
type ResultRecord struct {
	Metric        metrics.Metric `json:"metric" msgpack:"metric"`
	Point         float64        `json:"point" msgpack:"point"`
	Samples       Samples        `json:"samples" msgpack:"samples"`
	NumDegenerate int            `json:"numDegenerate" msgpack:"numDegenerate"`
}

func (rec *ResultRecord) BootKey() string {
	return string(rec.Metric) + bootKeySuffix
}

// ---------------------------

// Results contains result records of all the evaluated
// metrics in the order they were requested.
type Results struct {
	Mode    ScoringMode     `json:"mode" msgpack:"mode"`
	Records []*ResultRecord `json:"records" msgpack:"records"`
}

func (res Results) Get(m metrics.Metric) (*ResultRecord, bool) {
	for _, rec := range res.Records {
		if rec.Metric == m {
			return rec, true
		}
	}
	return nil, false
}

func (res Results) Metrics() []metrics.Metric {
	ans := make([]metrics.Metric, len(res.Records))
	for i, rec := range res.Records {
		ans[i] = rec.Metric
	}
	return ans
}

// Flatten creates a mapping metric => point estimate and
// "{metric}_boot" => bootstrap samples.
func (res Results) Flatten() map[string]any {
	ans := make(map[string]any)
	for _, rec := range res.Records {
		ans[string(rec.Metric)] = rec.Point
		ans[rec.BootKey()] = rec.Samples
	}
	return ans
}

func (res Results) String() string {
	return fmt.Sprintf("Results{mode: %s, metrics: %v}", res.Mode, res.Metrics())
}
