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

package stats

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/icueval/icueval/bootstrap"
	"github.com/icueval/icueval/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestingDB(t *testing.T) *Database {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "testing.sqlite"))
	require.NoError(t, err)
	require.NoError(t, db.Init())
	t.Cleanup(func() { db.Close() })
	return db
}

func testingResult(name string) ClassifierResult {
	res := &bootstrap.Results{
		Mode: bootstrap.ModeDecisionFunction,
		Records: []*bootstrap.ResultRecord{
			{Metric: metrics.Accuracy, Point: 0.8, Samples: bootstrap.Samples{0.75, 0.85}},
			{Metric: metrics.AUROC, Point: 0.9, Samples: bootstrap.Samples{0.88, math.NaN()}, NumDegenerate: 1},
		},
	}
	return ClassifierResult{
		Classifier: name,
		ModelType:  "linear",
		Mode:       bootstrap.ModeDecisionFunction,
		Summary: []bootstrap.SummaryRecord{
			{Metric: metrics.Accuracy, Point: 0.8, Lower: 0.75, Upper: 0.85, Confidence: 0.95, NumSamples: 2},
			{Metric: metrics.AUROC, Point: 0.9, Lower: 0.88, Upper: 0.88, Confidence: 0.95, NumSamples: 1, NumDegenerate: 1},
		},
		Results: res,
	}
}

func TestInitIsIdempotent(t *testing.T) {
	db := openTestingDB(t)
	assert.NoError(t, db.Init())
}

func TestAddAndGetRun(t *testing.T) {
	db := openTestingDB(t)
	id, err := db.AddRun(
		Run{NumBootstraps: 2, Seed: 42, Confidence: 0.95, NumRecords: 4, NumPositive: 2},
		[]ClassifierResult{testingResult("LinearSVM"), testingResult("Dummy")},
	)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	detail, err := db.GetRun(id, false)
	require.NoError(t, err)
	assert.Equal(t, id, detail.ID)
	assert.Equal(t, uint64(42), detail.Seed)
	assert.NotZero(t, detail.Datetime)
	require.Len(t, detail.Classifiers, 2)
	assert.Equal(t, "LinearSVM", detail.Classifiers[0].Classifier)
	assert.Equal(t, "Dummy", detail.Classifiers[1].Classifier)
	assert.Equal(t, bootstrap.ModeDecisionFunction, detail.Classifiers[0].Mode)
	assert.Equal(t, testingResult("x").Summary, detail.Classifiers[0].Summary)
	assert.Nil(t, detail.Classifiers[0].Results)

	detail, err = db.GetRun(id, true)
	require.NoError(t, err)
	require.NotNil(t, detail.Classifiers[0].Results)
	auroc, ok := detail.Classifiers[0].Results.Get(metrics.AUROC)
	require.True(t, ok)
	assert.Equal(t, 0.88, auroc.Samples[0])
	assert.True(t, math.IsNaN(auroc.Samples[1]))
	assert.Equal(t, 1, auroc.NumDegenerate)
}

func TestGetRunNotFound(t *testing.T) {
	db := openTestingDB(t)
	_, err := db.GetRun("foo", false)
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = db.GetLatestRunID()
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns(t *testing.T) {
	db := openTestingDB(t)
	id1, err := db.AddRun(Run{Datetime: 1000, NumBootstraps: 2, Confidence: 0.95},
		[]ClassifierResult{testingResult("LinearSVM")})
	require.NoError(t, err)
	id2, err := db.AddRun(Run{Datetime: 2000, NumBootstraps: 2, Confidence: 0.95},
		[]ClassifierResult{testingResult("RBFSVM")})
	require.NoError(t, err)

	runs, err := db.ListRuns(ListFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, id2, runs[0].ID)
	assert.Equal(t, id1, runs[1].ID)

	runs, err = db.ListRuns(ListFilter{}.SetClassifier("LinearSVM"))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id1, runs[0].ID)

	runs, err = db.ListRuns(ListFilter{}.SetLimit(1))
	require.NoError(t, err)
	require.Len(t, runs, 1)

	latest, err := db.GetLatestRunID()
	require.NoError(t, err)
	assert.Equal(t, id2, latest)

	require.NoError(t, db.DeleteRun(id2))
	runs, err = db.ListRuns(ListFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.ErrorIs(t, db.DeleteRun(id2), ErrRunNotFound)
}
