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
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

const DefaultTopN = 5

var ErrNoCoefficients = errors.New("model provides no coefficients")

// CoefficientProvider is a linear model exposing its weights
type CoefficientProvider interface {
	Coefficients() ([]float64, []string)
}

// Feature is a model input along with its weight. With a linear model
// predicting death, a positive coefficient means increased risk.
type Feature struct {
	Rank        int     `json:"rank"`
	Name        string  `json:"name"`
	Coefficient float64 `json:"coefficient"`
}

// Rank sorts features by their coefficients in ascending order
// (i.e. the first item is the one most associated with survival).
// Ties keep the original feature order.
func Rank(coef []float64, names []string) ([]Feature, error) {
	if len(coef) == 0 {
		return []Feature{}, ErrNoCoefficients
	}
	if len(names) == 0 {
		names = make([]string, len(coef))
		for i := range names {
			names[i] = fmt.Sprintf("feature_%d", i)
		}

	} else if len(names) != len(coef) {
		return []Feature{}, fmt.Errorf(
			"number of feature names (%d) does not match number of coefficients (%d)",
			len(names), len(coef))
	}
	sorted := make([]float64, len(coef))
	copy(sorted, coef)
	inds := make([]int, len(coef))
	floats.Argsort(sorted, inds)
	stabilize(sorted, inds)

	ans := make([]Feature, len(coef))
	for i, idx := range inds {
		ans[i] = Feature{Rank: i, Name: names[idx], Coefficient: coef[idx]}
	}
	return ans, nil
}

// stabilize sorts original indices within runs of equal values
// as floats.Argsort does not guarantee stability.
func stabilize(sorted []float64, inds []int) {
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		run := inds[i:j]
		for a := 1; a < len(run); a++ {
			for b := a; b > 0 && run[b] < run[b-1]; b-- {
				run[b], run[b-1] = run[b-1], run[b]
			}
		}
		i = j
	}
}

// Summary contains the features with the strongest effect
// in both directions.
type Summary struct {
	IncreasedRisk []Feature `json:"increasedRisk"`
	DecreasedRisk []Feature `json:"decreasedRisk"`
}

// Top selects k features with the largest positive coefficients
// (increased risk, strongest first) and k features with the most
// negative ones (decreased risk, strongest first). With fewer than 2k
// features the two lists overlap.
func Top(ranked []Feature, k int) Summary {
	k = min(k, len(ranked))
	ans := Summary{
		IncreasedRisk: make([]Feature, 0, k),
		DecreasedRisk: make([]Feature, 0, k),
	}
	for i := 0; i < k; i++ {
		ans.IncreasedRisk = append(ans.IncreasedRisk, ranked[len(ranked)-1-i])
		ans.DecreasedRisk = append(ans.DecreasedRisk, ranked[i])
	}
	return ans
}

// Analyze ranks coefficients of a model and returns top k features
func Analyze(model CoefficientProvider, k int) (Summary, error) {
	coef, names := model.Coefficients()
	ranked, err := Rank(coef, names)
	if err != nil {
		return Summary{}, err
	}
	return Top(ranked, k), nil
}
