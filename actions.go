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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/icueval/icueval/apiserver"
	"github.com/icueval/icueval/cnf"
	"github.com/icueval/icueval/prediction"
	"github.com/icueval/icueval/report"
	"github.com/icueval/icueval/stats"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

const (
	errColor = color.FgHiRed
)

func openStatsDB(conf *cnf.Conf) *stats.Database {
	db, err := stats.NewDatabase(conf.WorkingDBPath)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	err = db.Init()
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return db
}

func newReporter(conf *cnf.Conf) *report.Reporter {
	reporter := &report.Reporter{
		ChartScript: chartScript,
		OutDir:      conf.ReportDir,
	}
	if conf.ChartScriptPath != "" {
		src, err := os.ReadFile(conf.ChartScriptPath)
		if err != nil {
			log.Warn().Err(err).Msg("failed to read chart script, using the built-in one")

		} else {
			reporter.ChartScript = string(src)
		}
	}
	return reporter
}

func runActionEvaluate(conf *cnf.Conf, store bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var statsDB *stats.Database
	if store {
		statsDB = openStatsDB(conf)
		defer statsDB.Close()
	}

	eng := prediction.NewEngine(conf, statsDB)
	bar := progressbar.Default(
		int64(conf.NumBootstraps*len(conf.ActiveClassifiers())), "bootstrapping")
	eng.OnIteration = func(classifier string, i int) {
		bar.Add(1)
	}
	detail, err := eng.EvaluateAll(ctx)
	bar.Finish()
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	reporter := newReporter(conf)
	fmt.Println()
	reporter.PrintSummary(detail)
	if err := reporter.WriteAll(detail); err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runActionImportance(conf *cnf.Conf) {
	eng := prediction.NewEngine(conf, nil)
	summary, err := eng.FeatureImportance()
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	newReporter(conf).PrintImportance(summary)
}

func runActionListRuns(conf *cnf.Conf, limit int, classifier string) {
	statsDB := openStatsDB(conf)
	defer statsDB.Close()

	filter := stats.ListFilter{}.SetLimit(limit)
	if classifier != "" {
		filter = filter.SetClassifier(classifier)
	}
	runs, err := statsDB.ListRuns(filter)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	newReporter(conf).PrintRuns(runs)
}

func runActionShowRun(conf *cnf.Conf, runID string, withSamples bool) {
	statsDB := openStatsDB(conf)
	defer statsDB.Close()

	var err error
	if runID == "latest" {
		log.Warn().Msg("no run ID provided, going to use the latest one")
		runID, err = statsDB.GetLatestRunID()
		if err != nil {
			color.New(errColor).Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	detail, err := statsDB.GetRun(runID, withSamples)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if withSamples {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(detail); err != nil {
			color.New(errColor).Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	newReporter(conf).PrintSummary(detail)
}

func runActionAPIServer(conf *cnf.Conf, version cnf.VersionInfo) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	statsDB := openStatsDB(conf)
	defer statsDB.Close()
	apiserver.Run(ctx, conf, statsDB, version)
}

func runActionVersion(ver cnf.VersionInfo) {
	fmt.Fprintf(os.Stderr, "ICUEval version: %s (build date: %s, last commit: %s)\n",
		ver.Version, ver.BuildDate, ver.GitCommit)
}
