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

package cnf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/icueval/icueval/bootstrap"
	"github.com/icueval/icueval/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigAndDefaults(t *testing.T) {
	dir := t.TempDir()
	confPath := filepath.Join(dir, "conf.json")
	require.NoError(t, os.WriteFile(confPath, []byte(`{
		"testFeaturesPath": "data/X_test.csv",
		"testLabelsPath": "/data/y_test.csv",
		"classifiers": [
			{"modelType": "linear", "modelPath": "models/LinearSVM.json"},
			{"name": "Dummy", "modelType": "zero", "disabled": true}
		]
	}`), 0644))

	conf := LoadConfig(confPath)
	require.NoError(t, conf.Validate())
	assert.Equal(t, confPath, conf.GetSrcPath())
	assert.Equal(t, 100, conf.NumBootstraps)
	assert.Equal(t, 0.95, conf.Confidence)
	assert.Equal(t, "In-hospital_death", conf.LabelColumn)
	assert.Equal(t, "RecordID", conf.IDColumn)
	assert.Equal(t, filepath.Join(dir, "data/X_test.csv"), conf.TestFeaturesPath)
	assert.Equal(t, "/data/y_test.csv", conf.TestLabelsPath)
	assert.Equal(t, 5, conf.Importance.TopN)

	active := conf.ActiveClassifiers()
	require.Len(t, active, 1)
	assert.Equal(t, "LinearSVM", active[0].Name)
	assert.Equal(t, filepath.Join(dir, "models/LinearSVM.json"), active[0].ModelPath)

	opts := conf.BootstrapOptions()
	assert.Equal(t, 100, opts.NumBootstraps)
	assert.Equal(t, metrics.All, opts.Metrics)
	assert.Equal(t, bootstrap.PolicySkip, opts.DegeneratePolicy)
	assert.Equal(t, 1, opts.Workers)
}

func TestValidateInvalidValues(t *testing.T) {
	conf := &Conf{Metrics: []string{"accuracy", "foo"}}
	assert.ErrorIs(t, conf.Validate(), metrics.ErrUnknownMetric)

	conf = &Conf{Confidence: 1.5}
	assert.Error(t, conf.Validate())

	conf = &Conf{DegeneratePolicy: "ignore"}
	assert.ErrorIs(t, conf.Validate(), bootstrap.ErrInvalidInput)

	conf = &Conf{Classifiers: []ClassifierConf{{Name: "x"}}}
	assert.Error(t, conf.Validate())
}

func TestMetricsOrderKept(t *testing.T) {
	conf := &Conf{Metrics: []string{"auroc", "accuracy", "auroc"}}
	require.NoError(t, conf.Validate())
	assert.Equal(
		t,
		[]metrics.Metric{metrics.AUROC, metrics.Accuracy},
		conf.BootstrapOptions().Metrics,
	)
}
