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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Labels is a ground truth column, optionally with record ids
type Labels struct {
	IDs    []string
	Values []float64
}

func (l *Labels) HasIDs() bool {
	return len(l.IDs) > 0
}

func parseCell(v string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "nan") || strings.EqualFold(v, "na") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(v, 64)
}

func openCSV(path string) (*os.File, *csv.Reader, []string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	reader := csv.NewReader(file)
	reader.ReuseRecord = true
	header, err := reader.Read()
	if err != nil {
		file.Close()
		return nil, nil, nil, fmt.Errorf("failed to read CSV header of %s: %w", path, err)
	}
	return file, reader, append([]string{}, header...), nil
}

func columnIndex(header []string, name string) int {
	for i, col := range header {
		if strings.TrimSpace(col) == name {
			return i
		}
	}
	return -1
}

// LoadFeaturesCSV reads a feature table from a CSV file with a header.
// The idColumn (if present) provides record ids, all the other
// columns must be numeric. Empty cells and "NaN" are read as NaN.
func LoadFeaturesCSV(path, idColumn string) (*Table, error) {
	file, reader, header, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	idIdx := columnIndex(header, idColumn)
	ans := &Table{FeatureNames: make([]string, 0, len(header))}
	for i, col := range header {
		if i != idIdx {
			ans.FeatureNames = append(ans.FeatureNames, strings.TrimSpace(col))
		}
	}
	if len(ans.FeatureNames) == 0 {
		return nil, fmt.Errorf("no feature columns found in %s", path)
	}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		for i, cell := range record {
			if i == idIdx {
				ans.IDs = append(ans.IDs, strings.TrimSpace(cell))
				continue
			}
			v, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf(
					"invalid value of %s at %s:%d: %w", header[i], path, line, err)
			}
			ans.Data = append(ans.Data, v)
		}
	}
	if ans.NumRows() == 0 {
		return nil, fmt.Errorf("no records found in %s", path)
	}
	return ans, nil
}

// LoadLabelsCSV reads a binary label column from a CSV file.
func LoadLabelsCSV(path, idColumn, labelColumn string) (*Labels, error) {
	file, reader, header, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	labelIdx := columnIndex(header, labelColumn)
	if labelIdx < 0 {
		return nil, fmt.Errorf("%w: %s not found in %s", ErrMissingColumn, labelColumn, path)
	}
	idIdx := columnIndex(header, idColumn)
	ans := &Labels{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[labelIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid label at %s:%d: %w", path, line, err)
		}
		// some label files use -1 for the negative class
		if v == -1 {
			v = 0
		}
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("invalid label at %s:%d: %v is not a binary value", path, line, v)
		}
		ans.Values = append(ans.Values, v)
		if idIdx >= 0 {
			ans.IDs = append(ans.IDs, strings.TrimSpace(record[idIdx]))
		}
	}
	if len(ans.Values) == 0 {
		return nil, fmt.Errorf("no labels found in %s", path)
	}
	return ans, nil
}
