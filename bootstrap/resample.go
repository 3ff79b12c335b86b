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
	"math/rand/v2"
)

// pcgStream is the second PCG seed word. It is fixed so that
// the generated index sets depend only on the seed.
const pcgStream = 0x9e3779b97f4a7c15

// ResampleIndices draws n indices from [0, n) with replacement.
// The same seed always produces the same sequence.
func ResampleIndices(n int, seed uint64) []int {
	ans := make([]int, n)
	fillIndices(ans, seed)
	return ans
}

func fillIndices(dst []int, seed uint64) {
	rng := rand.New(rand.NewPCG(seed, pcgStream))
	n := len(dst)
	for i := range dst {
		dst[i] = rng.IntN(n)
	}
}

// Resample returns same-length resamples (with replacement) of a and b.
// Both sequences are resampled using identical indices.
func Resample(a, b []float64, seed uint64) ([]float64, []float64, error) {
	if len(a) != len(b) {
		return nil, nil, fmt.Errorf(
			"%w: cannot resample sequences of different length (%d vs. %d)",
			ErrInvalidInput, len(a), len(b))
	}
	ra := make([]float64, len(a))
	rb := make([]float64, len(b))
	for i, idx := range ResampleIndices(len(a), seed) {
		ra[i] = a[idx]
		rb[i] = b[idx]
	}
	return ra, rb, nil
}
