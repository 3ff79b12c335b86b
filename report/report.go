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

package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/czcorpus/cnc-gokit/collections"
	"github.com/fatih/color"
	"github.com/icueval/icueval/bootstrap"
	"github.com/icueval/icueval/importance"
	"github.com/icueval/icueval/stats"
)

const (
	chartDataFile = "chart.csv"
	chartFile     = "chart.png"
	resultsFile   = "results.json"
)

// ScoresMap converts a summary into a flat mapping with keys
// `metric`, `lower_metric` and `upper_metric`.
func ScoresMap(summary []bootstrap.SummaryRecord) map[string]float64 {
	ans := make(map[string]float64)
	for _, sr := range summary {
		ans[sr.Metric.String()] = sr.Point
		ans["lower_"+sr.Metric.String()] = sr.Lower
		ans["upper_"+sr.Metric.String()] = sr.Upper
	}
	return ans
}

func sortedByMetric(summary []bootstrap.SummaryRecord) []bootstrap.SummaryRecord {
	ans := slices.Clone(summary)
	slices.SortFunc(ans, func(a, b bootstrap.SummaryRecord) int {
		return strings.Compare(a.Metric.String(), b.Metric.String())
	})
	return ans
}

// ---------------------------

type Reporter struct {

	// ChartScript is a source code of a Python script reading chart
	// data (CSV) from stdin. If empty, no chart is rendered.
	ChartScript string

	// OutDir is a directory for chart data, chart images and result dumps
	OutDir string

	// Out is a writer for human readable output (os.Stdout if nil)
	Out io.Writer
}

func (reporter *Reporter) out() io.Writer {
	if reporter.Out == nil {
		return os.Stdout
	}
	return reporter.Out
}

// PrintSummary writes a table with point estimates and confidence
// intervals of all the evaluated classifiers.
func (reporter *Reporter) PrintSummary(detail *stats.RunDetail) {
	w := reporter.out()
	titleColor := color.New(color.FgHiMagenta).SprintFunc()
	metricColor := color.New(color.FgGreen).SprintFunc()
	warnColor := color.New(color.FgYellow).SprintFunc()

	if detail.ID != "" {
		fmt.Fprintf(w, "run %s\n", detail.ID)
	}
	fmt.Fprintf(
		w, "test records: %d (positive: %d), bootstraps: %d, seed: %d\n",
		detail.NumRecords, detail.NumPositive, detail.NumBootstraps, detail.Seed)
	for _, clf := range detail.Classifiers {
		fmt.Fprintf(w, "\n%s (%s, %s)\n", titleColor(clf.Classifier), clf.ModelType, clf.Mode)
		for _, sr := range clf.Summary {
			fmt.Fprintf(
				w, "  %-22s %.4f  [%.4f, %.4f]",
				metricColor(sr.Metric), sr.Point, sr.Lower, sr.Upper)
			if sr.NumDegenerate > 0 {
				fmt.Fprint(w, warnColor(fmt.Sprintf("  (%d undefined samples)", sr.NumDegenerate)))
			}
			fmt.Fprintln(w)
		}
	}
}

// PrintImportance writes features with the strongest effect on predicted risk
func (reporter *Reporter) PrintImportance(summary importance.Summary) {
	w := reporter.out()
	titleColor := color.New(color.FgHiMagenta).SprintFunc()
	fmt.Fprintln(w, titleColor("increased risk"))
	for i, f := range summary.IncreasedRisk {
		fmt.Fprintf(w, "  %d. %-20s %+.6f\n", i+1, f.Name, f.Coefficient)
	}
	fmt.Fprintln(w, titleColor("decreased risk"))
	for i, f := range summary.DecreasedRisk {
		fmt.Fprintf(w, "  %d. %-20s %+.6f\n", i+1, f.Name, f.Coefficient)
	}
}

// PrintRuns writes a list of stored evaluation runs, one per line
func (reporter *Reporter) PrintRuns(runs []stats.Run) {
	w := reporter.out()
	idColor := color.New(color.FgHiCyan).SprintFunc()
	for _, run := range runs {
		fmt.Fprintf(
			w, "%s  %s  bootstraps: %d, seed: %d, records: %d\n",
			idColor(run.ID),
			time.Unix(run.Datetime, 0).Format(time.DateTime),
			run.NumBootstraps, run.Seed, run.NumRecords,
		)
	}
}

// ChartData creates CSV data for a grouped bar chart with metrics
// (sorted by name) along the x axis and classifiers as groups.
func ChartData(detail *stats.RunDetail) (string, error) {
	var buff bytes.Buffer
	w := csv.NewWriter(&buff)
	if err := w.Write([]string{"classifier", "metric", "score", "lower", "upper"}); err != nil {
		return "", err
	}
	fmtFloat := func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	for _, clf := range detail.Classifiers {
		for _, sr := range sortedByMetric(clf.Summary) {
			err := w.Write([]string{
				clf.Classifier,
				sr.Metric.String(),
				fmtFloat(sr.Point),
				fmtFloat(sr.Lower),
				fmtFloat(sr.Upper),
			})
			if err != nil {
				return "", err
			}
		}
	}
	w.Flush()
	return buff.String(), w.Error()
}

// PlotChart creates a chart from CSV data using a Python plotting script.
func (reporter *Reporter) PlotChart(data, chartLabel, chartFilePath string) error {
	cmd := exec.Command("python3", "-c", reporter.ChartScript, "-o", chartFilePath, "-t", chartLabel)
	cmd.Stdin = bytes.NewBufferString(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		return fmt.Errorf("failed to execute plotting script: %w\nStderr: %s", err, stderr.String())
	}
	return nil
}

type classifierDump struct {
	Mode    bootstrap.ScoringMode `json:"mode"`
	Scores  map[string]float64    `json:"scores"`
	Results *bootstrap.Results    `json:"results,omitempty"`
}

type runDump struct {
	stats.Run
	Classifiers []collections.MapEntry[string, classifierDump] `json:"classifiers"`
}

// SaveJSON writes the run along with all bootstrap distributions
// to a JSON file.
func SaveJSON(detail *stats.RunDetail, path string) error {
	tmp := make(map[string]classifierDump)
	for _, clf := range detail.Classifiers {
		tmp[clf.Classifier] = classifierDump{
			Mode:    clf.Mode,
			Scores:  ScoresMap(clf.Summary),
			Results: clf.Results,
		}
	}
	dump := runDump{
		Run: detail.Run,
		Classifiers: collections.MapToEntriesSorted(
			tmp,
			func(a, b collections.MapEntry[string, classifierDump]) int {
				return strings.Compare(a.K, b.K)
			},
		),
	}
	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize results: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	return nil
}

// WriteAll writes chart data and a result dump to OutDir and renders
// the chart if a plotting script is available.
func (reporter *Reporter) WriteAll(detail *stats.RunDetail) error {
	if reporter.OutDir == "" {
		return nil
	}
	if err := os.MkdirAll(reporter.OutDir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	data, err := ChartData(detail)
	if err != nil {
		return fmt.Errorf("failed to create chart data: %w", err)
	}
	if err := os.WriteFile(filepath.Join(reporter.OutDir, chartDataFile), []byte(data), 0644); err != nil {
		return fmt.Errorf("failed to save chart data: %w", err)
	}
	if err := SaveJSON(detail, filepath.Join(reporter.OutDir, resultsFile)); err != nil {
		return err
	}
	if reporter.ChartScript != "" {
		return reporter.PlotChart(data, "Test Performance", filepath.Join(reporter.OutDir, chartFile))
	}
	return nil
}
