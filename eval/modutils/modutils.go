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

package modutils

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
)

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (gf gzipFile) Close() error {
	gf.Reader.Close()
	return gf.file.Close()
}

func isGzipped(filePath string) bool {
	return strings.HasSuffix(filePath, ".gz") || strings.HasSuffix(filePath, ".gzip")
}

// OpenModelFile opens a model file for reading. Files with
// the .gz/.gzip suffix are transparently decompressed.
func OpenModelFile(filePath string) (io.ReadCloser, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	if !isGzipped(filePath) {
		return file, nil
	}
	gzReader, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	return gzipFile{Reader: gzReader, file: file}, nil
}

// ReadModelFile reads whole (possibly gzipped) model file
func ReadModelFile(filePath string) ([]byte, error) {
	r, err := OpenModelFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// SidecarPath derives a path of an auxiliary file stored along
// with a model (e.g. `lgbm.txt.gz` + `.pipeline.json` => `lgbm.pipeline.json`).
func SidecarPath(modelPath, suffix string) string {
	if isGzipped(modelPath) {
		modelPath = modelPath[:len(modelPath)-len(filepath.Ext(modelPath))]
	}
	ext := filepath.Ext(modelPath)
	return modelPath[:len(modelPath)-len(ext)] + suffix
}

// Row returns a copy of the i-th row of X
func Row(X mat.Matrix, i int) []float64 {
	return mat.Row(nil, i, X)
}

// ScoresToLabels converts decision scores to 0/1 labels using
// the rule "positive if score > threshold".
func ScoresToLabels(scores []float64, threshold float64) []float64 {
	ans := make([]float64, len(scores))
	for i, v := range scores {
		if v > threshold {
			ans[i] = 1
		}
	}
	return ans
}

// CheckNumFeatures verifies that X has exactly the expected number of columns.
// A non-positive expected value disables the check.
func CheckNumFeatures(X mat.Matrix, expected int) error {
	_, c := X.Dims()
	if expected > 0 && c != expected {
		return fmt.Errorf("invalid number of features: expected %d, got %d", expected, c)
	}
	return nil
}
