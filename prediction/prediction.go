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
	"errors"
	"fmt"
	"time"

	"github.com/icueval/icueval/bootstrap"
	"github.com/icueval/icueval/cnf"
	"github.com/icueval/icueval/dataset"
	"github.com/icueval/icueval/eval"
	"github.com/icueval/icueval/eval/linear"
	"github.com/icueval/icueval/importance"
	"github.com/icueval/icueval/monitoring"
	"github.com/icueval/icueval/stats"
	"github.com/rs/zerolog/log"
)

var ErrNoClassifiers = errors.New("no classifiers configured")

// Engine evaluates all the configured classifiers on the configured
// test set and (optionally) stores the results.
type Engine struct {
	conf    *cnf.Conf
	statsDB *stats.Database
	metrics *monitoring.Metrics

	// OnIteration is called after each bootstrap iteration of each
	// classifier. With more workers configured, it must be safe
	// for concurrent use.
	OnIteration func(classifier string, i int)
}

// SetMonitoring attaches Prometheus collectors to the engine
func (eng *Engine) SetMonitoring(m *monitoring.Metrics) {
	eng.metrics = m
}

func (eng *Engine) evaluateClassifier(
	clfConf cnf.ClassifierConf,
	ts *dataset.TestSet,
) (stats.ClassifierResult, error) {
	clf, err := eval.LoadClassifier(clfConf.ModelType, clfConf.ModelPath)
	if err != nil {
		return stats.ClassifierResult{}, fmt.Errorf("failed to load classifier %s: %w", clfConf.Name, err)
	}
	opts := eng.conf.BootstrapOptions()
	opts.OnIteration = func(i int) {
		if eng.OnIteration != nil {
			eng.OnIteration(clfConf.Name, i)
		}
		if eng.metrics != nil {
			eng.metrics.BootstrapIterations.Inc()
		}
	}
	res, err := bootstrap.Evaluate(clf, ts.X(), ts.Labels, opts)
	if err != nil {
		return stats.ClassifierResult{}, fmt.Errorf("failed to evaluate classifier %s: %w", clfConf.Name, err)
	}
	summary, err := bootstrap.SummarizeAll(res, eng.conf.Confidence)
	if err != nil {
		return stats.ClassifierResult{}, fmt.Errorf("failed to summarize results of %s: %w", clfConf.Name, err)
	}
	if eng.metrics != nil {
		eng.metrics.ObserveClassifier(clfConf.Name, summary)
	}
	log.Info().
		Str("classifier", clfConf.Name).
		Str("info", clf.GetInfo()).
		Str("mode", string(res.Mode)).
		Msg("classifier evaluated")
	return stats.ClassifierResult{
		Classifier: clfConf.Name,
		ModelType:  clfConf.ModelType,
		Mode:       res.Mode,
		Summary:    summary,
		Results:    &res,
	}, nil
}

// EvaluateAll runs bootstrap evaluation of all the active classifiers.
// If the engine has a database attached, the run is stored there
// and its ID is filled in the returned value.
func (eng *Engine) EvaluateAll(ctx context.Context) (*stats.RunDetail, error) {
	t0 := time.Now()
	ans, err := eng.evaluateAll(ctx)
	if eng.metrics != nil {
		eng.metrics.ObserveRun(time.Since(t0), err)
	}
	return ans, err
}

func (eng *Engine) evaluateAll(ctx context.Context) (*stats.RunDetail, error) {
	classifiers := eng.conf.ActiveClassifiers()
	if len(classifiers) == 0 {
		return nil, ErrNoClassifiers
	}
	ts, err := dataset.LoadTestSet(
		eng.conf.TestFeaturesPath,
		eng.conf.TestLabelsPath,
		eng.conf.IDColumn,
		eng.conf.LabelColumn,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load test set: %w", err)
	}
	ans := &stats.RunDetail{
		Run: stats.Run{
			Datetime:         time.Now().Unix(),
			NumBootstraps:    eng.conf.NumBootstraps,
			Seed:             eng.conf.RandomSeed,
			Confidence:       eng.conf.Confidence,
			NumRecords:       len(ts.Labels),
			NumPositive:      ts.NumPositive(),
			TestFeaturesPath: eng.conf.TestFeaturesPath,
		},
		Classifiers: make([]stats.ClassifierResult, 0, len(classifiers)),
	}
	for _, clfConf := range classifiers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := eng.evaluateClassifier(clfConf, ts)
		if err != nil {
			return nil, err
		}
		ans.Classifiers = append(ans.Classifiers, res)
	}
	if eng.statsDB != nil {
		ans.ID, err = eng.statsDB.AddRun(ans.Run, ans.Classifiers)
		if err != nil {
			return nil, fmt.Errorf("failed to store evaluation run: %w", err)
		}
		log.Info().Str("runId", ans.ID).Msg("stored evaluation run")
	}
	return ans, nil
}

// FeatureImportance ranks features of the configured linear model.
// If the model file does not contain feature names, they are taken
// from the test feature table.
func (eng *Engine) FeatureImportance() (importance.Summary, error) {
	model, err := linear.LoadFromFile(eng.conf.Importance.ModelPath)
	if err != nil {
		return importance.Summary{}, fmt.Errorf("failed to load linear model: %w", err)
	}
	if len(model.FeatureNames) == 0 {
		feats, err := dataset.LoadFeatures(eng.conf.TestFeaturesPath, eng.conf.IDColumn)
		if err != nil {
			return importance.Summary{}, fmt.Errorf("failed to determine feature names: %w", err)
		}
		model.FeatureNames = feats.FeatureNames
	}
	return importance.Analyze(model, eng.conf.Importance.TopN)
}

func NewEngine(conf *cnf.Conf, statsDB *stats.Database) *Engine {
	return &Engine{
		conf:    conf,
		statsDB: statsDB,
	}
}
