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
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/icueval/icueval/eval"
	"github.com/icueval/icueval/metrics"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrDegenerateMetric = errors.New("degenerate metric")
)

// ScoringMode specifies what kind of classifier output was evaluated
type ScoringMode string

const (
	ModeDecisionFunction ScoringMode = "decision_function"
	ModeLabels           ScoringMode = "labels"
)

// DegeneratePolicy specifies what to do when a metric is undefined
// for a resampled test set (e.g. AUROC of a single-class resample).
type DegeneratePolicy string

const (
	// PolicySkip stores NaN at the respective sample index and
	// continues. The summary excludes such samples.
	PolicySkip DegeneratePolicy = "skip"

	// PolicyFail stops the evaluation with ErrDegenerateMetric
	PolicyFail DegeneratePolicy = "fail"
)

func (p DegeneratePolicy) Validate() error {
	if p != PolicySkip && p != PolicyFail {
		return fmt.Errorf("%w: unknown degenerate policy '%s'", ErrInvalidInput, p)
	}
	return nil
}

// Options configures bootstrap evaluation
type Options struct {
	NumBootstraps int
	Metrics       []metrics.Metric

	// Seed is the base seed; i-th resample uses Seed + i
	Seed uint64

	// Workers sets number of goroutines processing bootstrap
	// iterations. Values < 2 mean sequential processing.
	// The result does not depend on this value.
	Workers int

	// DegeneratePolicy defaults to PolicySkip
	DegeneratePolicy DegeneratePolicy

	// OnIteration is called after each finished bootstrap
	// iteration. With Workers > 1 it is called concurrently.
	OnIteration func(i int)
}

func (opts Options) policy() DegeneratePolicy {
	if opts.DegeneratePolicy == "" {
		return PolicySkip
	}
	return opts.DegeneratePolicy
}

func (opts Options) validate() error {
	if opts.NumBootstraps < 1 {
		return fmt.Errorf("%w: number of bootstraps must be >= 1, got %d", ErrInvalidInput, opts.NumBootstraps)
	}
	if len(opts.Metrics) == 0 {
		return fmt.Errorf("%w: no metrics specified", ErrInvalidInput)
	}
	for _, m := range opts.Metrics {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidInput, err)
		}
	}
	return opts.policy().Validate()
}

// ---------------------------

// Predictions is an output of a classifier on a test set along with
// a threshold separating the positive class.
type Predictions struct {
	Scores    []float64
	Threshold float64
	Mode      ScoringMode
}

// PredictionsFor obtains predictions from a classifier. Continuous decision
// scores are used if the classifier supports them, predicted labels otherwise.
func PredictionsFor(clf eval.Classifier, X mat.Matrix) (Predictions, error) {
	if ds, ok := eval.AsDecisionScorer(clf); ok {
		scores, err := ds.DecisionFunction(X)
		if err != nil {
			return Predictions{}, fmt.Errorf("failed to get decision scores: %w", err)
		}
		return Predictions{Scores: scores, Threshold: ds.DecisionThreshold(), Mode: ModeDecisionFunction}, nil
	}
	labels, err := clf.Predict(X)
	if err != nil {
		return Predictions{}, fmt.Errorf("failed to predict labels: %w", err)
	}
	return Predictions{Scores: labels, Threshold: 0.5, Mode: ModeLabels}, nil
}

// ---------------------------

func validateLabels(y []float64) error {
	for i, v := range y {
		if v != 0 && v != 1 {
			return fmt.Errorf("%w: label at position %d is not binary (%v)", ErrInvalidInput, i, v)
		}
	}
	return nil
}

// Evaluate estimates performance of a fitted classifier on a test set (X, y).
// For each metric it calculates a point estimate on the full test set and
// opts.NumBootstraps scores on resampled test sets. All the metrics share
// the resampled indices of the respective iteration (paired bootstrap).
func Evaluate(clf eval.Classifier, X mat.Matrix, y []float64, opts Options) (Results, error) {
	if err := opts.validate(); err != nil {
		return Results{}, err
	}
	r, _ := X.Dims()
	if r != len(y) {
		return Results{}, fmt.Errorf(
			"%w: number of samples (%d) does not match number of labels (%d)", ErrInvalidInput, r, len(y))
	}
	pred, err := PredictionsFor(clf, X)
	if err != nil {
		return Results{}, err
	}
	return EvaluatePredictions(pred, y, opts)
}

// EvaluatePredictions is like Evaluate but it works with already obtained
// classifier output.
func EvaluatePredictions(pred Predictions, y []float64, opts Options) (Results, error) {
	if err := opts.validate(); err != nil {
		return Results{}, err
	}
	if len(pred.Scores) != len(y) {
		return Results{}, fmt.Errorf(
			"%w: number of predictions (%d) does not match number of labels (%d)",
			ErrInvalidInput, len(pred.Scores), len(y))
	}
	if len(y) == 0 {
		return Results{}, fmt.Errorf("%w: empty test set", ErrInvalidInput)
	}
	if err := validateLabels(y); err != nil {
		return Results{}, err
	}

	ans := Results{
		Mode:    pred.Mode,
		Records: make([]*ResultRecord, len(opts.Metrics)),
	}
	for mi, m := range opts.Metrics {
		point, err := metrics.Score(y, pred.Scores, pred.Threshold, m)
		if err != nil {
			if errors.Is(err, metrics.ErrUndefined) {
				return Results{}, fmt.Errorf("%w: %s on the full test set", ErrDegenerateMetric, m)
			}
			return Results{}, err
		}
		ans.Records[mi] = &ResultRecord{
			Metric:  m,
			Point:   point,
			Samples: make(Samples, opts.NumBootstraps),
		}
	}

	run := &iterationRunner{pred: pred, y: y, opts: opts, records: ans.Records}
	if err := run.all(); err != nil {
		return Results{}, err
	}
	for _, rec := range ans.Records {
		for _, v := range rec.Samples {
			if math.IsNaN(v) {
				rec.NumDegenerate++
			}
		}
	}
	return ans, nil
}

// ---------------------------

type iterationRunner struct {
	pred    Predictions
	y       []float64
	opts    Options
	records []*ResultRecord
}

type iterationBuffers struct {
	indices []int
	scores  []float64
	labels  []float64
}

func (run *iterationRunner) newBuffers() *iterationBuffers {
	n := len(run.y)
	return &iterationBuffers{
		indices: make([]int, n),
		scores:  make([]float64, n),
		labels:  make([]float64, n),
	}
}

// iteration computes i-th bootstrap sample of all the metrics
// from a single resampled index set.
func (run *iterationRunner) iteration(i int, buf *iterationBuffers) error {
	fillIndices(buf.indices, run.opts.Seed+uint64(i))
	for j, idx := range buf.indices {
		buf.scores[j] = run.pred.Scores[idx]
		buf.labels[j] = run.y[idx]
	}
	for _, rec := range run.records {
		v, err := metrics.Score(buf.labels, buf.scores, run.pred.Threshold, rec.Metric)
		if errors.Is(err, metrics.ErrUndefined) {
			if run.opts.policy() == PolicyFail {
				return fmt.Errorf("%w: %s in bootstrap iteration %d", ErrDegenerateMetric, rec.Metric, i)
			}
			v = math.NaN()

		} else if err != nil {
			return fmt.Errorf("failed to evaluate bootstrap iteration %d: %w", i, err)
		}
		rec.Samples[i] = v
	}
	if run.opts.OnIteration != nil {
		run.opts.OnIteration(i)
	}
	return nil
}

func (run *iterationRunner) all() error {
	if run.opts.Workers < 2 {
		buf := run.newBuffers()
		for i := 0; i < run.opts.NumBootstraps; i++ {
			if err := run.iteration(i, buf); err != nil {
				return err
			}
		}
		return nil
	}

	// each iteration writes only to its own sample index
	errs := make([]error, run.opts.NumBootstraps)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < run.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := run.newBuffers()
			for i := range jobs {
				errs[i] = run.iteration(i, buf)
			}
		}()
	}
	for i := 0; i < run.opts.NumBootstraps; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
