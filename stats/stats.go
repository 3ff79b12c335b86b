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
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/icueval/icueval/bootstrap"
	"github.com/icueval/icueval/metrics"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

var ErrRunNotFound = errors.New("evaluation run not found")

type Database struct {
	db *sql.DB
}

func (database *Database) createRunTable() error {
	_, err := database.db.Exec(
		"CREATE TABLE eval_run (" +
			"id TEXT PRIMARY KEY NOT NULL, " +
			"datetime INTEGER NOT NULL, " +
			"num_bootstraps INTEGER NOT NULL, " +
			"seed INTEGER NOT NULL, " +
			"confidence FLOAT NOT NULL, " +
			"num_records INTEGER NOT NULL, " +
			"num_positive INTEGER NOT NULL, " +
			"test_features TEXT" +
			")",
	)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	log.Info().Msg("created table `eval_run`")
	return nil
}

func (database *Database) createResultTable() error {
	_, err := database.db.Exec(
		"CREATE TABLE eval_result (" +
			"run_id TEXT NOT NULL REFERENCES eval_run(id) ON DELETE CASCADE, " +
			"classifier TEXT NOT NULL, " +
			"model_type TEXT NOT NULL, " +
			"mode TEXT NOT NULL, " +
			"idx INTEGER NOT NULL, " +
			"metric TEXT NOT NULL, " +
			"point FLOAT NOT NULL, " +
			"lower FLOAT NOT NULL, " +
			"upper FLOAT NOT NULL, " +
			"num_samples INTEGER NOT NULL, " +
			"num_degenerate INTEGER NOT NULL DEFAULT 0, " +
			"samples BLOB, " +
			"PRIMARY KEY(run_id, classifier, metric)" +
			")",
	)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	log.Info().Msg("created table `eval_result`")
	return nil
}

func (database *Database) tableExists(tn string) (bool, error) {
	ans := database.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", tn)
	var nm sql.NullString
	err := ans.Scan(&nm)
	if err == sql.ErrNoRows {
		return false, nil

	} else if err != nil {
		return false, fmt.Errorf("failed to determine existence of table %s: %w", tn, err)
	}
	return true, nil
}

func (database *Database) Init() error {
	tables := []struct {
		name   string
		create func() error
	}{
		{"eval_run", database.createRunTable},
		{"eval_result", database.createResultTable},
	}
	for _, tbl := range tables {
		ex, err := database.tableExists(tbl.name)
		if err != nil {
			return fmt.Errorf("failed to init table %s: %w", tbl.name, err)
		}
		if ex {
			log.Debug().Str("table", tbl.name).Msg("table already exists")
			continue
		}
		if err := tbl.create(); err != nil {
			return fmt.Errorf("failed to create table %s: %w", tbl.name, err)
		}
	}
	return nil
}

// AddRun stores a new evaluation run along with results of all
// its classifiers. If run.ID is empty, a new one is generated.
// The function returns ID of the stored run.
func (database *Database) AddRun(run Run, results []ClassifierResult) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Datetime == 0 {
		run.Datetime = time.Now().Unix()
	}
	tx, err := database.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to add run: %w", err)
	}
	_, err = tx.Exec(
		"INSERT INTO eval_run (id, datetime, num_bootstraps, seed, confidence, "+
			"num_records, num_positive, test_features) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		run.ID,
		run.Datetime,
		run.NumBootstraps,
		int64(run.Seed),
		run.Confidence,
		run.NumRecords,
		run.NumPositive,
		run.TestFeaturesPath,
	)
	if err != nil {
		tx.Rollback()
		return "", fmt.Errorf("failed to add run: %w", err)
	}
	for _, res := range results {
		if err := addClassifierResult(tx, run.ID, res); err != nil {
			tx.Rollback()
			return "", fmt.Errorf("failed to add run: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return "", fmt.Errorf("failed to add run: %w", err)
	}
	return run.ID, nil
}

func addClassifierResult(tx *sql.Tx, runID string, res ClassifierResult) error {
	for i, sr := range res.Summary {
		var samples []byte
		if res.Results != nil {
			if rec, ok := res.Results.Get(sr.Metric); ok {
				var err error
				samples, err = msgpack.Marshal(rec)
				if err != nil {
					return fmt.Errorf("failed to serialize bootstrap samples: %w", err)
				}
			}
		}
		_, err := tx.Exec(
			"INSERT INTO eval_result (run_id, classifier, model_type, mode, idx, metric, "+
				"point, lower, upper, num_samples, num_degenerate, samples) "+
				"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			runID,
			res.Classifier,
			res.ModelType,
			string(res.Mode),
			i,
			string(sr.Metric),
			sr.Point,
			sr.Lower,
			sr.Upper,
			sr.NumSamples,
			sr.NumDegenerate,
			samples,
		)
		if err != nil {
			return fmt.Errorf("failed to insert result of %s: %w", res.Classifier, err)
		}
	}
	return nil
}

// ListRuns returns stored runs, newest first
func (database *Database) ListRuns(filter ListFilter) ([]Run, error) {
	query := "SELECT id, datetime, num_bootstraps, seed, confidence, num_records, " +
		"num_positive, test_features FROM eval_run WHERE %s ORDER BY datetime DESC, id"
	whereChunks := make([]string, 0, 3)
	whereChunks = append(whereChunks, "1 = 1")
	args := make([]any, 0, 3)
	if filter.Since != nil {
		whereChunks = append(whereChunks, "datetime >= ?")
		args = append(args, filter.Since.Unix())
	}
	if filter.Classifier != nil {
		whereChunks = append(
			whereChunks,
			"EXISTS (SELECT 1 FROM eval_result AS r WHERE r.run_id = eval_run.id AND r.classifier = ?)",
		)
		args = append(args, *filter.Classifier)
	}
	query = fmt.Sprintf(query, strings.Join(whereChunks, " AND "))
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := database.db.Query(query, args...)
	if err != nil {
		return []Run{}, fmt.Errorf("failed to fetch runs: %w", err)
	}
	defer rows.Close()
	ans := make([]Run, 0, 50)
	for rows.Next() {
		var run Run
		var seed int64
		var featsPath sql.NullString
		err := rows.Scan(
			&run.ID,
			&run.Datetime,
			&run.NumBootstraps,
			&seed,
			&run.Confidence,
			&run.NumRecords,
			&run.NumPositive,
			&featsPath,
		)
		if err != nil {
			return []Run{}, fmt.Errorf("failed to fetch runs: %w", err)
		}
		run.Seed = uint64(seed)
		run.TestFeaturesPath = featsPath.String
		ans = append(ans, run)
	}
	return ans, rows.Err()
}

// GetLatestRunID returns ID of the most recent run
func (database *Database) GetLatestRunID() (string, error) {
	runs, err := database.ListRuns(ListFilter{}.SetLimit(1))
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", ErrRunNotFound
	}
	return runs[0].ID, nil
}

// GetRun loads a run with its results. With withSamples set, also
// the bootstrap distributions are loaded.
func (database *Database) GetRun(id string, withSamples bool) (*RunDetail, error) {
	run, err := database.getRunRow(id)
	if err != nil {
		return nil, err
	}
	ans := &RunDetail{Run: run}
	rows, err := database.db.Query(
		"SELECT classifier, model_type, mode, metric, point, lower, upper, "+
			"num_samples, num_degenerate, samples "+
			"FROM eval_result WHERE run_id = ? ORDER BY rowid, idx",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch run results: %w", err)
	}
	defer rows.Close()
	var curr *ClassifierResult
	for rows.Next() {
		var clf, modelType, mode, metric string
		var samples []byte
		sr := bootstrap.SummaryRecord{Confidence: ans.Confidence}
		err := rows.Scan(
			&clf,
			&modelType,
			&mode,
			&metric,
			&sr.Point,
			&sr.Lower,
			&sr.Upper,
			&sr.NumSamples,
			&sr.NumDegenerate,
			&samples,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch run results: %w", err)
		}
		sr.Metric = metrics.Metric(metric)
		if curr == nil || curr.Classifier != clf {
			ans.Classifiers = append(ans.Classifiers, ClassifierResult{
				Classifier: clf,
				ModelType:  modelType,
				Mode:       bootstrap.ScoringMode(mode),
			})
			curr = &ans.Classifiers[len(ans.Classifiers)-1]
		}
		curr.Summary = append(curr.Summary, sr)
		if withSamples && len(samples) > 0 {
			var rec bootstrap.ResultRecord
			if err := msgpack.Unmarshal(samples, &rec); err != nil {
				return nil, fmt.Errorf("failed to deserialize bootstrap samples of %s: %w", clf, err)
			}
			if curr.Results == nil {
				curr.Results = &bootstrap.Results{Mode: curr.Mode}
			}
			curr.Results.Records = append(curr.Results.Records, &rec)
		}
	}
	return ans, rows.Err()
}

func (database *Database) getRunRow(id string) (Run, error) {
	row := database.db.QueryRow(
		"SELECT id, datetime, num_bootstraps, seed, confidence, num_records, "+
			"num_positive, test_features FROM eval_run WHERE id = ?",
		id,
	)
	var run Run
	var seed int64
	var featsPath sql.NullString
	err := row.Scan(
		&run.ID,
		&run.Datetime,
		&run.NumBootstraps,
		&seed,
		&run.Confidence,
		&run.NumRecords,
		&run.NumPositive,
		&featsPath,
	)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)

	} else if err != nil {
		return Run{}, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	run.Seed = uint64(seed)
	run.TestFeaturesPath = featsPath.String
	return run, nil
}

// DeleteRun removes a run and all its results
func (database *Database) DeleteRun(id string) error {
	tx, err := database.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM eval_result WHERE run_id = ?", id); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete run: %w", err)
	}
	res, err := tx.Exec("DELETE FROM eval_run WHERE id = ?", id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		tx.Rollback()
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return tx.Commit()
}

func (database *Database) Close() error {
	return database.db.Close()
}

func NewDatabase(path string) (*Database, error) {
	dbConn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}
	return &Database{
		db: dbConn,
	}, nil
}
