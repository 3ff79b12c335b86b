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

package ym

import (
	"gonum.org/v1/gonum/mat"
)

// Model is a constant classifier model which predicts in-hospital death
// for any patient (ym = yes-man). It is a sanity baseline - any useful model
// should beat its precision and specificity.
type Model struct{}

func (ym *Model) Predict(X mat.Matrix) ([]float64, error) {
	r, _ := X.Dims()
	ans := make([]float64, r)
	for i := range ans {
		ans[i] = 1
	}
	return ans, nil
}

func (ym *Model) GetInfo() string {
	return "Constant classifier model (always 1)"
}
