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

package apiserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/icueval/icueval/cnf"
	"github.com/icueval/icueval/eval/linear"
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
`
	tstLabels = `RecordID,In-hospital_death
1,1
2,0
3,1
4,0
5,1
6,0
`
)

func prepareServer(t *testing.T) (*apiServer, *gin.Engine) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "X_test.csv"), []byte(tstFeatures), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "y_test.csv"), []byte(tstLabels), 0644))
	model := &linear.Model{Coef: []float64{1, -0.01}, Intercept: -0.45}
	require.NoError(t, model.SaveToFile(filepath.Join(dir, "linear.json")))

	conf := &cnf.Conf{
		TestFeaturesPath: filepath.Join(dir, "X_test.csv"),
		TestLabelsPath:   filepath.Join(dir, "y_test.csv"),
		NumBootstraps:    10,
		Metrics:          []string{"accuracy", "auroc"},
		Classifiers: []cnf.ClassifierConf{
			{Name: "LinearSVM", ModelType: "linear", ModelPath: filepath.Join(dir, "linear.json")},
		},
		Importance:    cnf.ImportanceConf{ModelPath: filepath.Join(dir, "linear.json")},
		WorkingDBPath: filepath.Join(dir, "runs.sqlite"),
	}
	require.NoError(t, conf.Validate())

	db, err := stats.NewDatabase(conf.WorkingDBPath)
	require.NoError(t, err)
	require.NoError(t, db.Init())
	t.Cleanup(func() { db.Close() })

	api := newAPIServer(conf, db, cnf.VersionInfo{Version: "0.1.0"})
	return api, api.router()
}

func doRequest(router *gin.Engine, method, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestVersion(t *testing.T) {
	_, router := prepareServer(t)
	w := doRequest(router, http.MethodGet, "/version")
	require.Equal(t, http.StatusOK, w.Code)
	var ver cnf.VersionInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ver))
	assert.Equal(t, "0.1.0", ver.Version)
}

func TestRunLifecycle(t *testing.T) {
	_, router := prepareServer(t)

	w := doRequest(router, http.MethodGet, "/runs/latest")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodPost, "/runs")
	require.Equal(t, http.StatusOK, w.Code)
	var created stats.RunDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	require.Len(t, created.Classifiers, 1)
	assert.Nil(t, created.Classifiers[0].Results)
	assert.Len(t, created.Classifiers[0].Summary, 2)

	w = doRequest(router, http.MethodGet, "/runs")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.ID)

	w = doRequest(router, http.MethodGet, "/runs/latest?samples=1")
	require.Equal(t, http.StatusOK, w.Code)
	var stored stats.RunDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stored))
	assert.Equal(t, created.ID, stored.ID)
	require.NotNil(t, stored.Classifiers[0].Results)
	assert.Len(t, stored.Classifiers[0].Results.Records[0].Samples, 10)

	w = doRequest(router, http.MethodDelete, "/runs/"+created.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/runs/"+created.ID)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doRequest(router, http.MethodDelete, "/runs/"+created.ID)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRunsInvalidLimit(t *testing.T) {
	_, router := prepareServer(t)
	w := doRequest(router, http.MethodGet, "/runs?limit=foo")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRunConflict(t *testing.T) {
	api, router := prepareServer(t)
	api.evalLock.Lock()
	defer api.evalLock.Unlock()
	w := doRequest(router, http.MethodPost, "/runs")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestImportance(t *testing.T) {
	_, router := prepareServer(t)
	w := doRequest(router, http.MethodGet, "/importance")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Age")
	assert.Contains(t, w.Body.String(), "GCS")
}

func TestImportanceNotConfigured(t *testing.T) {
	api, router := prepareServer(t)
	api.conf.Importance.ModelPath = ""
	w := doRequest(router, http.MethodGet, "/importance")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	_, router := prepareServer(t)
	doRequest(router, http.MethodPost, "/runs")
	w := doRequest(router, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "icueval_")
}
