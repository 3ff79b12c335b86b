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

package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultIDColumn    = "RecordID"
	DefaultLabelColumn = "In-hospital_death"

	msgpackSuffix = ".msgpack"
)

var (
	ErrMissingColumn = errors.New("missing column")
	ErrMisaligned    = errors.New("feature and label tables are not aligned")
)

// Table is a numeric feature table. Missing values are stored as NaN.
type Table struct {
	IDs          []string  `msgpack:"ids"`
	FeatureNames []string  `msgpack:"featureNames"`
	Data         []float64 `msgpack:"data"`
}

func (t *Table) NumRows() int {
	if len(t.FeatureNames) == 0 {
		return 0
	}
	return len(t.Data) / len(t.FeatureNames)
}

func (t *Table) NumFeatures() int {
	return len(t.FeatureNames)
}

func (t *Table) HasIDs() bool {
	return len(t.IDs) > 0
}

// Matrix returns the table data as a dense matrix sharing
// the underlying slice with the table.
func (t *Table) Matrix() *mat.Dense {
	if t.NumRows() == 0 {
		return nil
	}
	return mat.NewDense(t.NumRows(), t.NumFeatures(), t.Data)
}

func (t *Table) validate() error {
	if len(t.FeatureNames) == 0 {
		return fmt.Errorf("table has no features")
	}
	if len(t.Data)%len(t.FeatureNames) != 0 {
		return fmt.Errorf(
			"table data size %d is not a multiple of number of features %d",
			len(t.Data), len(t.FeatureNames))
	}
	if t.HasIDs() && len(t.IDs) != t.NumRows() {
		return fmt.Errorf("table has %d ids but %d rows", len(t.IDs), t.NumRows())
	}
	return nil
}

// SaveMsgpack stores the table in a binary form which loads
// much faster than CSV.
func (t *Table) SaveMsgpack(path string) error {
	srz, err := msgpack.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to serialize feature table: %w", err)
	}
	if err := os.WriteFile(path, srz, 0644); err != nil {
		return fmt.Errorf("failed to save feature table: %w", err)
	}
	return nil
}

func LoadMsgpack(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load feature table: %w", err)
	}
	var ans Table
	if err := msgpack.Unmarshal(data, &ans); err != nil {
		return nil, fmt.Errorf("failed to deserialize feature table %s: %w", path, err)
	}
	if err := ans.validate(); err != nil {
		return nil, fmt.Errorf("invalid feature table %s: %w", path, err)
	}
	return &ans, nil
}

// LoadFeatures loads a feature table either from a CSV file
// or from a msgpack dump (by file suffix).
func LoadFeatures(path, idColumn string) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), msgpackSuffix) {
		return LoadMsgpack(path)
	}
	return LoadFeaturesCSV(path, idColumn)
}

// ---------------------------

// TestSet is a feature matrix along with ground truth labels
type TestSet struct {
	Features *Table
	Labels   []float64
}

func (ts *TestSet) X() *mat.Dense {
	return ts.Features.Matrix()
}

func (ts *TestSet) NumPositive() int {
	var ans int
	for _, v := range ts.Labels {
		if v == 1 {
			ans++
		}
	}
	return ans
}

// Align orders labels to match rows of the feature table. If both sides
// carry record identifiers, rows are paired by them. Otherwise they are
// paired by position.
func Align(features *Table, labels *Labels) (*TestSet, error) {
	if features.NumRows() != len(labels.Values) {
		return nil, fmt.Errorf(
			"%w: %d feature rows vs. %d labels", ErrMisaligned, features.NumRows(), len(labels.Values))
	}
	if !features.HasIDs() || !labels.HasIDs() {
		log.Debug().Msg("record ids not available in both tables, aligning by position")
		return &TestSet{Features: features, Labels: labels.Values}, nil
	}
	byID := make(map[string]float64, len(labels.IDs))
	for i, id := range labels.IDs {
		if _, ok := byID[id]; ok {
			return nil, fmt.Errorf("%w: duplicate label record %s", ErrMisaligned, id)
		}
		byID[id] = labels.Values[i]
	}
	ans := &TestSet{Features: features, Labels: make([]float64, len(features.IDs))}
	for i, id := range features.IDs {
		v, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: no label for record %s", ErrMisaligned, id)
		}
		ans.Labels[i] = v
	}
	return ans, nil
}

// LoadTestSet loads test features and labels and aligns them
func LoadTestSet(featuresPath, labelsPath, idColumn, labelColumn string) (*TestSet, error) {
	features, err := LoadFeatures(featuresPath, idColumn)
	if err != nil {
		return nil, err
	}
	labels, err := LoadLabelsCSV(labelsPath, idColumn, labelColumn)
	if err != nil {
		return nil, err
	}
	ans, err := Align(features, labels)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("features", featuresPath).
		Str("labels", labelsPath).
		Int("numRecords", len(ans.Labels)).
		Int("numFeatures", features.NumFeatures()).
		Int("numPositive", ans.NumPositive()).
		Msg("loaded test set")
	return ans, nil
}
