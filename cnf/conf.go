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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/icueval/icueval/bootstrap"
	"github.com/icueval/icueval/dataset"
	"github.com/icueval/icueval/importance"
	"github.com/icueval/icueval/metrics"
	"github.com/rs/zerolog/log"
)

const (
	dfltServerWriteTimeoutSecs = 120
	dfltServerReadTimeoutSecs  = 10
	dfltListenAddress          = "127.0.0.1"
	dfltListenPort             = 8090
	dfltNumBootstraps          = 100
	dfltNumWorkers             = 1
	dfltWorkingDBPath          = "icueval.db"
)

// ClassifierConf describes a single fitted classifier to be evaluated
type ClassifierConf struct {

	// Name is used in reports (e.g. "LinearSVM", "RBFSVM")
	Name string `json:"name"`

	// ModelType is one of linear, rf, xg, nn, zero, ym
	ModelType string `json:"modelType"`
	ModelPath string `json:"modelPath"`
	Disabled  bool   `json:"disabled"`
}

type ImportanceConf struct {
	ModelPath string `json:"modelPath"`
	TopN      int    `json:"topN"`
}

type Conf struct {
	srcPath                string
	Logging                logging.LoggingConf `json:"logging"`
	ListenAddress          string              `json:"listenAddress"`
	PublicURL              string              `json:"publicUrl"`
	ListenPort             int                 `json:"listenPort"`
	ServerReadTimeoutSecs  int                 `json:"serverReadTimeoutSecs"`
	ServerWriteTimeoutSecs int                 `json:"serverWriteTimeoutSecs"`
	CorsAllowedOrigins     []string            `json:"corsAllowedOrigins"`

	TestFeaturesPath string `json:"testFeaturesPath"`
	TestLabelsPath   string `json:"testLabelsPath"`
	IDColumn         string `json:"idColumn"`
	LabelColumn      string `json:"labelColumn"`

	NumBootstraps    int      `json:"numBootstraps"`
	Metrics          []string `json:"metrics"`
	Confidence       float64  `json:"confidence"`
	RandomSeed       uint64   `json:"randomSeed"`
	NumWorkers       int      `json:"numWorkers"`
	DegeneratePolicy string   `json:"degeneratePolicy"`

	Classifiers []ClassifierConf `json:"classifiers"`
	Importance  ImportanceConf   `json:"importance"`

	// WorkingDBPath is a path to an SQLite database storing evaluation runs
	WorkingDBPath string `json:"workingDbPath"`

	// ReportDir is a directory where chart data and result dumps are written.
	// If empty, no files are written.
	ReportDir string `json:"reportDir"`

	// ChartScriptPath is an optional Python script rendering the chart
	// from the CSV data passed via stdin.
	ChartScriptPath string `json:"chartScriptPath"`

	parsedMetrics []metrics.Metric
}

func (conf *Conf) GetSrcPath() string {
	return conf.srcPath
}

// ActiveClassifiers returns all classifiers not disabled in configuration
func (conf *Conf) ActiveClassifiers() []ClassifierConf {
	ans := make([]ClassifierConf, 0, len(conf.Classifiers))
	for _, c := range conf.Classifiers {
		if !c.Disabled {
			ans = append(ans, c)
		}
	}
	return ans
}

// BootstrapOptions creates evaluation options based on the configuration.
// ValidateAndDefaults must be called first.
func (conf *Conf) BootstrapOptions() bootstrap.Options {
	return bootstrap.Options{
		NumBootstraps:    conf.NumBootstraps,
		Metrics:          conf.parsedMetrics,
		Seed:             conf.RandomSeed,
		Workers:          conf.NumWorkers,
		DegeneratePolicy: bootstrap.DegeneratePolicy(conf.DegeneratePolicy),
	}
}

func LoadConfig(path string) *Conf {
	if path == "" {
		log.Fatal().Msg("Cannot load config - path not specified")
	}
	rawData, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot load config")
	}
	var conf Conf
	conf.srcPath = path
	err = json.Unmarshal(rawData, &conf)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot load config")
	}
	return &conf
}

func (conf *Conf) resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || conf.srcPath == "" {
		return p
	}
	return filepath.Join(filepath.Dir(conf.srcPath), p)
}

// Validate checks the configuration and fills in default values
// where needed. It returns an error on invalid values.
func (conf *Conf) Validate() error {
	if conf.ServerWriteTimeoutSecs == 0 {
		conf.ServerWriteTimeoutSecs = dfltServerWriteTimeoutSecs
		log.Warn().Msgf(
			"serverWriteTimeoutSecs not specified, using default: %d",
			dfltServerWriteTimeoutSecs,
		)
	}
	if conf.ServerReadTimeoutSecs == 0 {
		conf.ServerReadTimeoutSecs = dfltServerReadTimeoutSecs
		log.Warn().Msgf(
			"serverReadTimeoutSecs not specified, using default: %d",
			dfltServerReadTimeoutSecs,
		)
	}
	if conf.ListenAddress == "" {
		conf.ListenAddress = dfltListenAddress
		log.Warn().Str("address", dfltListenAddress).Msg("listenAddress not set, using default")
	}
	if conf.ListenPort == 0 {
		conf.ListenPort = dfltListenPort
		log.Warn().Int("port", dfltListenPort).Msg("listenPort not set, using default")
	}
	if conf.PublicURL == "" {
		conf.PublicURL = fmt.Sprintf("http://%s:%d", conf.ListenAddress, conf.ListenPort)
		log.Warn().Str("address", conf.PublicURL).Msg("publicUrl not set, using listenAddress")
	}

	if conf.IDColumn == "" {
		conf.IDColumn = dataset.DefaultIDColumn
	}
	if conf.LabelColumn == "" {
		conf.LabelColumn = dataset.DefaultLabelColumn
		log.Warn().Str("column", conf.LabelColumn).Msg("labelColumn not set, using default")
	}
	conf.TestFeaturesPath = conf.resolvePath(conf.TestFeaturesPath)
	conf.TestLabelsPath = conf.resolvePath(conf.TestLabelsPath)

	if conf.NumBootstraps == 0 {
		conf.NumBootstraps = dfltNumBootstraps
		log.Warn().Int("value", dfltNumBootstraps).Msg("numBootstraps not set, using default")

	} else if conf.NumBootstraps < 0 {
		return fmt.Errorf("invalid numBootstraps: %d", conf.NumBootstraps)
	}
	if len(conf.Metrics) == 0 {
		conf.Metrics = make([]string, len(metrics.All))
		for i, m := range metrics.All {
			conf.Metrics[i] = m.String()
		}
		log.Warn().Strs("metrics", conf.Metrics).Msg("metrics not set, using all")
	}
	var err error
	conf.parsedMetrics, err = metrics.ParseList(conf.Metrics)
	if err != nil {
		return fmt.Errorf("invalid metrics configuration: %w", err)
	}
	if conf.Confidence == 0 {
		conf.Confidence = bootstrap.DefaultConfidence
		log.Warn().Float64("value", conf.Confidence).Msg("confidence not set, using default")

	} else if conf.Confidence <= 0 || conf.Confidence >= 1 {
		return fmt.Errorf("invalid confidence %v, must be in (0, 1)", conf.Confidence)
	}
	if conf.NumWorkers <= 0 {
		conf.NumWorkers = dfltNumWorkers
	}
	if conf.DegeneratePolicy == "" {
		conf.DegeneratePolicy = string(bootstrap.PolicySkip)

	} else if err := bootstrap.DegeneratePolicy(conf.DegeneratePolicy).Validate(); err != nil {
		return err
	}

	for i, c := range conf.Classifiers {
		if c.ModelType == "" {
			return fmt.Errorf("classifier %d (%s): missing modelType", i, c.Name)
		}
		if c.Name == "" {
			conf.Classifiers[i].Name = strings.TrimSuffix(filepath.Base(c.ModelPath), filepath.Ext(c.ModelPath))
			if conf.Classifiers[i].Name == "" || conf.Classifiers[i].Name == "." {
				conf.Classifiers[i].Name = c.ModelType
			}
		}
		conf.Classifiers[i].ModelPath = conf.resolvePath(c.ModelPath)
	}
	conf.Importance.ModelPath = conf.resolvePath(conf.Importance.ModelPath)
	if conf.Importance.TopN == 0 {
		conf.Importance.TopN = importance.DefaultTopN
	}

	if conf.WorkingDBPath == "" {
		conf.WorkingDBPath = dfltWorkingDBPath
		log.Warn().Str("path", dfltWorkingDBPath).Msg("workingDbPath not set, using default")
	}
	conf.WorkingDBPath = conf.resolvePath(conf.WorkingDBPath)
	conf.ReportDir = conf.resolvePath(conf.ReportDir)
	conf.ChartScriptPath = conf.resolvePath(conf.ChartScriptPath)
	return nil
}

func ValidateAndDefaults(conf *Conf) {
	if err := conf.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
}

// VersionInfo provides a detailed information about the actual build
type VersionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"buildDate"`
	GitCommit string `json:"gitCommit"`
}
