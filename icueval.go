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
	_ "embed"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/icueval/icueval/cnf"
)

const (
	actionEvaluate   = "evaluate"
	actionImportance = "importance"
	actionRuns       = "runs"
	actionAPIServer  = "api-server"
	actionVersion    = "version"
	actionHelp       = "help"
)

var (
	version   string
	buildDate string
	gitCommit string
)

//go:embed scripts/ci_chart.py
var chartScript string

func topLevelUsage() {
	fmt.Fprintf(os.Stderr, "ICUEVAL - bootstrap evaluation of in-hospital mortality classifiers\n")
	fmt.Fprintf(os.Stderr, "-----------------------------\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "\t%s\t\t\tshow version info\n", actionVersion)
	fmt.Fprintf(os.Stderr, "\t%s\t\tevaluate configured classifiers with bootstrap confidence intervals\n", actionEvaluate)
	fmt.Fprintf(os.Stderr, "\t%s\t\tshow features with the strongest effect on predicted risk\n", actionImportance)
	fmt.Fprintf(os.Stderr, "\t%s\t\t\tlist or show stored evaluation runs\n", actionRuns)
	fmt.Fprintf(os.Stderr, "\t%s\t\trun HTTP API server\n", actionAPIServer)
	fmt.Fprintf(os.Stderr, "\nUse `icueval help ACTION` for information about a specific action\n\n")
}

func setup(confPath string) *cnf.Conf {
	conf := cnf.LoadConfig(confPath)
	if conf.Logging.Level == "" {
		conf.Logging.Level = "info"
	}
	logging.SetupLogging(conf.Logging)
	cnf.ValidateAndDefaults(conf)
	return conf
}

func cleanVersionInfo(v string) string {
	return strings.TrimLeft(strings.Trim(v, "'"), "v")
}

func flagIsSet(fs *flag.FlagSet, name string) bool {
	var found bool
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func main() {
	version := cnf.VersionInfo{
		Version:   cleanVersionInfo(version),
		BuildDate: cleanVersionInfo(buildDate),
		GitCommit: cleanVersionInfo(gitCommit),
	}

	cmdEvaluate := flag.NewFlagSet(actionEvaluate, flag.ExitOnError)
	numBootstraps := cmdEvaluate.Int("num-bootstraps", 0, "number of bootstrap iterations (overrides config)")
	seed := cmdEvaluate.Uint64("seed", 0, "base random seed (overrides config)")
	numWorkers := cmdEvaluate.Int("workers", 0, "number of parallel workers (overrides config)")
	noStore := cmdEvaluate.Bool("no-store", false, "do not store results in the working database")
	reportDir := cmdEvaluate.String("report-dir", "", "directory for chart data and result dumps (overrides config)")
	cmdEvaluate.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s [options] config.json\n\t",
			filepath.Base(os.Args[0]), actionEvaluate)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		cmdEvaluate.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEvaluate all the configured classifiers on the test set\n")
	}

	cmdImportance := flag.NewFlagSet(actionImportance, flag.ExitOnError)
	topN := cmdImportance.Int("top", 0, "number of features listed in each direction (overrides config)")
	cmdImportance.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s [options] config.json\n\t",
			filepath.Base(os.Args[0]), actionImportance)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		cmdImportance.PrintDefaults()
	}

	cmdRuns := flag.NewFlagSet(actionRuns, flag.ExitOnError)
	listLimit := cmdRuns.Int("limit", 20, "max. number of listed runs")
	classifier := cmdRuns.String("classifier", "", "list only runs evaluating the classifier")
	showSamples := cmdRuns.Bool("samples", false, "when showing a run, dump full bootstrap distributions as JSON")
	cmdRuns.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s [options] config.json [runID|latest]\n\t",
			filepath.Base(os.Args[0]), actionRuns)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		cmdRuns.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nWithout runID, stored runs are listed\n")
	}

	cmdAPIServer := flag.NewFlagSet(actionAPIServer, flag.ExitOnError)
	cmdAPIServer.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s [options] config.json\n\t",
			filepath.Base(os.Args[0]), actionAPIServer)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		cmdAPIServer.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nRun ICUEval as an HTTP API server\n")
	}

	cmdVersion := flag.NewFlagSet(actionVersion, flag.ExitOnError)
	cmdHelp := flag.NewFlagSet(actionHelp, flag.ExitOnError)

	action := actionHelp
	if len(os.Args) > 1 {
		action = os.Args[1]
	}

	switch action {
	case actionHelp:
		var subj string
		if len(os.Args) > 2 {
			cmdHelp.Parse(os.Args[2:])
			subj = cmdHelp.Arg(0)
		}
		switch subj {
		case actionEvaluate:
			cmdEvaluate.Usage()
		case actionImportance:
			cmdImportance.Usage()
		case actionRuns:
			cmdRuns.Usage()
		case actionAPIServer:
			cmdAPIServer.Usage()
		default:
			topLevelUsage()
		}
	case actionVersion:
		cmdVersion.Parse(os.Args[2:])
		runActionVersion(version)
	case actionEvaluate:
		cmdEvaluate.Parse(os.Args[2:])
		conf := setup(cmdEvaluate.Arg(0))
		if *numBootstraps > 0 {
			conf.NumBootstraps = *numBootstraps
		}
		if flagIsSet(cmdEvaluate, "seed") {
			conf.RandomSeed = *seed
		}
		if *numWorkers > 0 {
			conf.NumWorkers = *numWorkers
		}
		if *reportDir != "" {
			conf.ReportDir = *reportDir
		}
		runActionEvaluate(conf, !*noStore)
	case actionImportance:
		cmdImportance.Parse(os.Args[2:])
		conf := setup(cmdImportance.Arg(0))
		if *topN > 0 {
			conf.Importance.TopN = *topN
		}
		runActionImportance(conf)
	case actionRuns:
		cmdRuns.Parse(os.Args[2:])
		conf := setup(cmdRuns.Arg(0))
		if runID := cmdRuns.Arg(1); runID != "" {
			runActionShowRun(conf, runID, *showSamples)

		} else {
			runActionListRuns(conf, *listLimit, *classifier)
		}
	case actionAPIServer:
		cmdAPIServer.Parse(os.Args[2:])
		conf := setup(cmdAPIServer.Arg(0))
		runActionAPIServer(conf, version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown action, please use 'help' to get more information\n")
		os.Exit(1)
	}
}
