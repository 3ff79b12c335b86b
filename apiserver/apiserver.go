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
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/czcorpus/cnc-gokit/uniresp"
	"github.com/gin-gonic/gin"
	"github.com/icueval/icueval/cnf"
	"github.com/icueval/icueval/monitoring"
	"github.com/icueval/icueval/prediction"
	"github.com/icueval/icueval/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type apiServer struct {
	conf     *cnf.Conf
	version  cnf.VersionInfo
	server   *http.Server
	statsDB  *stats.Database
	engine   *prediction.Engine
	registry *prometheus.Registry

	// evalLock allows only one evaluation run at a time
	evalLock sync.Mutex
}

func (api *apiServer) router() *gin.Engine {
	if !api.conf.Logging.Level.IsDebugMode() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logging.GinMiddleware())
	engine.Use(uniresp.AlwaysJSONContentType())
	engine.Use(corsMiddleware(api.conf))
	engine.NoMethod(uniresp.NoMethodHandler)
	engine.NoRoute(uniresp.NotFoundHandler)

	engine.GET("/version", api.handleVersion)
	engine.GET("/runs", api.handleListRuns)
	engine.POST("/runs", api.handleCreateRun)
	engine.GET("/runs/:runId", api.handleGetRun)
	engine.DELETE("/runs/:runId", api.handleDeleteRun)
	engine.GET("/importance", api.handleImportance)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(api.registry, promhttp.HandlerOpts{})))
	return engine
}

func (api *apiServer) Start(ctx context.Context) {
	log.Info().Msgf("starting to listen at %s:%d", api.conf.ListenAddress, api.conf.ListenPort)
	api.server = &http.Server{
		Handler:      api.router(),
		Addr:         fmt.Sprintf("%s:%d", api.conf.ListenAddress, api.conf.ListenPort),
		WriteTimeout: time.Duration(api.conf.ServerWriteTimeoutSecs) * time.Second,
		ReadTimeout:  time.Duration(api.conf.ServerReadTimeoutSecs) * time.Second,
	}
	go func() {
		if err := api.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()
}

func (api *apiServer) Stop(ctx context.Context) error {
	log.Warn().Msg("shutting down ICUEval HTTP API server")
	return api.server.Shutdown(ctx)
}

func newAPIServer(conf *cnf.Conf, statsDB *stats.Database, version cnf.VersionInfo) *apiServer {
	registry := prometheus.NewRegistry()
	engine := prediction.NewEngine(conf, statsDB)
	engine.SetMonitoring(monitoring.NewWithRegistry(registry))
	return &apiServer{
		conf:     conf,
		version:  version,
		statsDB:  statsDB,
		engine:   engine,
		registry: registry,
	}
}

// -------------------------

// Run starts the HTTP API server and blocks until ctx is cancelled.
func Run(
	ctx context.Context,
	conf *cnf.Conf,
	statsDB *stats.Database,
	version cnf.VersionInfo,
) {
	server := newAPIServer(conf, statsDB, version)
	services := []service{server}
	for _, m := range services {
		m.Start(ctx)
	}
	<-ctx.Done()
	log.Warn().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for _, s := range services {
		wg.Add(1)
		go func(srv service) {
			defer wg.Done()
			if err := srv.Stop(shutdownCtx); err != nil {
				log.Error().Err(err).Type("service", srv).Msg("Error shutting down service")
			}
		}(s)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("Graceful shutdown completed")
	case <-shutdownCtx.Done():
		log.Warn().Msg("Shutdown timed out")
	}
}
