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

package eval

import (
	"errors"
	"fmt"

	"github.com/czcorpus/cnc-gokit/fs"
	"github.com/icueval/icueval/eval/linear"
	"github.com/icueval/icueval/eval/modutils"
	"github.com/icueval/icueval/eval/nn"
	"github.com/icueval/icueval/eval/rf"
	"github.com/icueval/icueval/eval/xg"
	"github.com/icueval/icueval/eval/ym"
	"github.com/icueval/icueval/eval/zero"
	"github.com/rs/zerolog/log"
)

const PipelineSidecarSuffix = ".pipeline.json"

var ErrNoSuchModel = errors.New("no such model")

func getClassifier(modelType, modelPath string) (Classifier, error) {
	var clf Classifier
	var err error

	switch modelType {
	case "linear":
		clf, err = linear.LoadFromFile(modelPath)
	case "rf":
		clf, err = rf.LoadFromFile(modelPath)
	case "nn":
		clf, err = nn.LoadFromFile(modelPath)
	case "xg":
		clf, err = xg.LoadFromFile(modelPath)
	case "zero":
		clf, err = zero.LoadFromFile(modelPath)
	case "ym":
		clf = &ym.Model{}
	default:
		err = fmt.Errorf("%w: %s", ErrNoSuchModel, modelType)
	}
	return clf, err
}

// LoadClassifier loads a fitted classifier of a specified type. If a file
// `<model base>.pipeline.json` exists next to the model file, the classifier
// is wrapped in a Pipeline applying the stored preprocessing steps.
func LoadClassifier(modelType, modelPath string) (Classifier, error) {
	clf, err := getClassifier(modelType, modelPath)
	if err != nil {
		return nil, err
	}
	if modelPath == "" {
		return clf, nil
	}
	pipelinePath := modutils.SidecarPath(modelPath, PipelineSidecarSuffix)
	isFile, err := fs.IsFile(pipelinePath)
	if err != nil {
		return nil, fmt.Errorf("failed to look for pipeline configuration: %w", err)
	}
	if !isFile {
		return clf, nil
	}
	pConf, err := LoadPipelineConf(pipelinePath)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("modelType", modelType).
		Str("pipeline", pipelinePath).
		Msg("wrapping classifier in a preprocessing pipeline")
	return NewPipeline(*pConf, clf), nil
}

// Unwrap returns the final estimator of possibly nested pipelines
func Unwrap(clf Classifier) Classifier {
	for {
		p, ok := clf.(*Pipeline)
		if !ok {
			return clf
		}
		clf = p.Unwrap()
	}
}
