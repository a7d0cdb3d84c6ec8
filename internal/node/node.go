// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/govern"
	"github.com/blinklabs-io/govern/internal/config"
	"github.com/blinklabs-io/govern/internal/fixedpoint"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NodeConfig converts the loaded configuration into node options
func NodeConfig(cfg *config.Config, logger *slog.Logger) (govern.Config, error) {
	fee, err := fixedpoint.ParseInteger(cfg.ProposalFee)
	if err != nil {
		return govern.Config{}, fmt.Errorf("invalid proposal fee: %w", err)
	}
	if !common.IsHexAddress(cfg.EngineAddress) {
		return govern.Config{}, fmt.Errorf(
			"invalid engine address: %q",
			cfg.EngineAddress,
		)
	}
	var owner common.Address
	if cfg.OwnerAddress != "" {
		if !common.IsHexAddress(cfg.OwnerAddress) {
			return govern.Config{}, fmt.Errorf(
				"invalid owner address: %q",
				cfg.OwnerAddress,
			)
		}
		owner = common.HexToAddress(cfg.OwnerAddress)
	}
	taskInterval, err := cfg.ParsedTaskInterval()
	if err != nil {
		return govern.Config{}, err
	}
	shutdownTimeout, err := cfg.ParsedShutdownTimeout()
	if err != nil {
		return govern.Config{}, err
	}
	return govern.NewConfig(
		govern.WithLogger(logger),
		govern.WithDatabasePath(cfg.DatabasePath),
		govern.WithBlobPlugin(cfg.BlobPlugin),
		govern.WithMetadataPlugin(cfg.MetadataPlugin),
		govern.WithProposalFee(fee),
		govern.WithEngineAddress(common.HexToAddress(cfg.EngineAddress)),
		govern.WithOwnerAddress(owner),
		govern.WithApiListenAddress(cfg.ApiListenAddress),
		govern.WithApiTlsCertFilePath(cfg.TlsCertFilePath),
		govern.WithApiTlsKeyFilePath(cfg.TlsKeyFilePath),
		govern.WithDevMode(cfg.DevMode),
		govern.WithTemplatesFile(cfg.TemplatesFile),
		govern.WithStakeGenesisFile(cfg.StakeGenesis),
		govern.WithEventJournal(cfg.EventJournal),
		govern.WithTaskRunner(taskInterval, cfg.TaskBatchSize),
		govern.WithContractCacheSize(cfg.ContractCacheSize),
		govern.WithShutdownTimeout(shutdownTimeout),
		// Enable metrics with default prometheus registry
		govern.WithPrometheusRegistry(prometheus.DefaultRegisterer),
		govern.WithTracing(cfg.Tracing),
		govern.WithTracingStdout(cfg.TracingStdout),
	), nil
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	nodeCfg, err := NodeConfig(cfg, logger)
	if err != nil {
		return err
	}
	shutdownTimeout, err := cfg.ParsedShutdownTimeout()
	if err != nil {
		return err
	}
	n, err := govern.New(nodeCfg)
	if err != nil {
		return err
	}
	// Metrics and debug listener
	var metricsServer *http.Server
	if cfg.MetricsPort > 0 {
		http.Handle("/metrics", promhttp.Handler())
		metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
		logger.Info(
			"serving prometheus metrics on "+metricsAddr,
			"component", "node",
		)
		metricsServer = &http.Server{
			Addr:              metricsAddr,
			ReadHeaderTimeout: 60 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				logger.Error(
					fmt.Sprintf("failed to start metrics listener: %s", err),
					"component", "node",
				)
			}
		}()
	}
	shutdownMetrics := func() {
		if metricsServer == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	runErr := n.Run(signalCtx)
	if runErr != nil {
		logger.Error("node error", "error", runErr)
	} else {
		logger.Info("signal received, initiating graceful shutdown")
	}
	shutdownMetrics()
	if err := n.Stop(); err != nil {
		logger.Error("shutdown errors occurred", "error", err)
		return errors.Join(runErr, err)
	}
	if runErr != nil {
		return runErr
	}
	logger.Info("shutdown complete")
	return nil
}
