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
	"errors"
	"fmt"
	"net/http"

	"github.com/czcorpus/cnc-gokit/unireq"
	"github.com/czcorpus/cnc-gokit/uniresp"
	"github.com/gin-gonic/gin"
	"github.com/icueval/icueval/stats"
	"github.com/rs/zerolog/log"
)

const (
	dfltListLimit = 50
	latestRunID   = "latest"
)

func (api *apiServer) handleVersion(ctx *gin.Context) {
	uniresp.WriteJSONResponse(ctx.Writer, api.version)
}

func (api *apiServer) handleListRuns(ctx *gin.Context) {
	limit, ok := unireq.GetURLIntArgOrFail(ctx, "limit", dfltListLimit)
	if !ok {
		return
	}
	filter := stats.ListFilter{}.SetLimit(limit)
	if clf := ctx.Query("classifier"); clf != "" {
		filter = filter.SetClassifier(clf)
	}
	runs, err := api.statsDB.ListRuns(filter)
	if err != nil {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusInternalServerError)
		return
	}
	uniresp.WriteJSONResponse(ctx.Writer, map[string]any{"runs": runs})
}

func (api *apiServer) resolveRunID(ctx *gin.Context) (string, bool) {
	runID := ctx.Param("runId")
	if runID != latestRunID {
		return runID, true
	}
	runID, err := api.statsDB.GetLatestRunID()
	if errors.Is(err, stats.ErrRunNotFound) {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusNotFound)
		return "", false

	} else if err != nil {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusInternalServerError)
		return "", false
	}
	return runID, true
}

func (api *apiServer) handleGetRun(ctx *gin.Context) {
	runID, ok := api.resolveRunID(ctx)
	if !ok {
		return
	}
	withSamples := ctx.Query("samples") == "1"
	detail, err := api.statsDB.GetRun(runID, withSamples)
	if errors.Is(err, stats.ErrRunNotFound) {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusNotFound)
		return

	} else if err != nil {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusInternalServerError)
		return
	}
	uniresp.WriteJSONResponse(ctx.Writer, detail)
}

func (api *apiServer) handleDeleteRun(ctx *gin.Context) {
	runID := ctx.Param("runId")
	err := api.statsDB.DeleteRun(runID)
	if errors.Is(err, stats.ErrRunNotFound) {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusNotFound)
		return

	} else if err != nil {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusInternalServerError)
		return
	}
	uniresp.WriteJSONResponse(ctx.Writer, map[string]any{"ok": true})
}

// handleCreateRun evaluates all the configured classifiers. Only one
// evaluation may run at a time, concurrent requests are rejected.
func (api *apiServer) handleCreateRun(ctx *gin.Context) {
	if !api.evalLock.TryLock() {
		uniresp.RespondWithErrorJSON(
			ctx, fmt.Errorf("another evaluation is in progress"), http.StatusConflict)
		return
	}
	defer api.evalLock.Unlock()

	detail, err := api.engine.EvaluateAll(ctx.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to evaluate classifiers")
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusInternalServerError)
		return
	}
	// distributions are available via GET /runs/:runId?samples=1
	for i := range detail.Classifiers {
		detail.Classifiers[i].Results = nil
	}
	uniresp.WriteJSONResponse(ctx.Writer, detail)
}

func (api *apiServer) handleImportance(ctx *gin.Context) {
	if api.conf.Importance.ModelPath == "" {
		uniresp.RespondWithErrorJSON(
			ctx, fmt.Errorf("no linear model configured for feature importance"), http.StatusNotFound)
		return
	}
	summary, err := api.engine.FeatureImportance()
	if err != nil {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusInternalServerError)
		return
	}
	uniresp.WriteJSONResponse(ctx.Writer, summary)
}
