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

package prediction

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/icueval/icueval/bootstrap"
	"github.com/icueval/icueval/cnf"
	"github.com/icueval/icueval/eval/linear"
	"github.com/icueval/icueval/metrics"
	"github.com/icueval/icueval/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tstFeatures = `RecordID,Age,GCS
1,0.9,3
2,0.1,15
3,0.8,5
4,0.2,14
5,0.7,6
6,0.3,13
7,0.6,8
8,0.4,12
`
	tstLabels = `RecordID,In-hospital_death
8,0
7,1
6,0
5,1
4,0
3,1
2,0
1,1
`
)

func prepareConf(t *testing.T) *cnf.Conf {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "X_test.csv"), []byte(tstFeatures), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "y_test.csv"), []byte(tstLabels), 0644))
	model := &linear.Model{Coef: []float64{1, -0.01}, Intercept: -0.45}
	require.NoError(t, model.SaveToFile(filepath.Join(dir, "LinearSVM.json")))

	conf := &cnf.Conf{
		TestFeaturesPath: filepath.Join(dir, "X_test.csv"),
		TestLabelsPath:   filepath.Join(dir, "y_test.csv"),
		NumBootstraps:    20,
		Metrics:          []string{"accuracy", "sensitivity", "auroc"},
		RandomSeed:       1,
		Classifiers: []cnf.ClassifierConf{
			{Name: "LinearSVM", ModelType: "linear", ModelPath: filepath.Join(dir, "LinearSVM.json")},
			{Name: "Dummy", ModelType: "zero"},
			{Name: "Disabled", ModelType: "ym", Disabled: true},
		},
		Importance:    cnf.ImportanceConf{ModelPath: filepath.Join(dir, "LinearSVM.json"), TopN: 1},
		WorkingDBPath: filepath.Join(dir, "runs.sqlite"),
	}
	require.NoError(t, conf.Validate())
	return conf
}

func TestEvaluateAll(t *testing.T) {
	conf := prepareConf(t)
	db, err := stats.NewDatabase(conf.WorkingDBPath)
	require.NoError(t, err)
	require.NoError(t, db.Init())
	defer db.Close()

	var numIter atomic.Int64
	eng := NewEngine(conf, db)
	eng.OnIteration = func(classifier string, i int) {
		numIter.Add(1)
	}
	detail, err := eng.EvaluateAll(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, detail.ID)
	assert.Equal(t, int64(40), numIter.Load())
	assert.Equal(t, 8, detail.NumRecords)
	assert.Equal(t, 4, detail.NumPositive)
	require.Len(t, detail.Classifiers, 2)

	svm := detail.Classifiers[0]
	assert.Equal(t, "LinearSVM", svm.Classifier)
	assert.Equal(t, bootstrap.ModeDecisionFunction, svm.Mode)
	require.Len(t, svm.Summary, 3)
	assert.Equal(t, metrics.Accuracy, svm.Summary[0].Metric)
	assert.Equal(t, 1.0, svm.Summary[0].Point)

	dummy := detail.Classifiers[1]
	assert.Equal(t, bootstrap.ModeLabels, dummy.Mode)
	assert.Equal(t, 0.5, dummy.Summary[0].Point)
	assert.Equal(t, 0.0, dummy.Summary[1].Point)

	stored, err := db.GetRun(detail.ID, false)
	require.NoError(t, err)
	assert.Equal(t, svm.Summary, stored.Classifiers[0].Summary)
}

func TestEvaluateAllCancelled(t *testing.T) {
	conf := prepareConf(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine(conf, nil).EvaluateAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluateNoClassifiers(t *testing.T) {
	conf := prepareConf(t)
	conf.Classifiers = nil
	_, err := NewEngine(conf, nil).EvaluateAll(context.Background())
	assert.ErrorIs(t, err, ErrNoClassifiers)
}

func TestFeatureImportanceNamesFromTestSet(t *testing.T) {
	conf := prepareConf(t)
	summary, err := NewEngine(conf, nil).FeatureImportance()
	require.NoError(t, err)
	require.Len(t, summary.IncreasedRisk, 1)
	assert.Equal(t, "Age", summary.IncreasedRisk[0].Name)
	assert.Equal(t, "GCS", summary.DecreasedRisk[0].Name)
}
