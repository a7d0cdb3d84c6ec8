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
package governance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/raulk/clock"
)

const (
	DefaultTaskBatchSize = 100
)

type TaskRunnerConfig struct {
	Engine    *Engine
	Logger    *slog.Logger
	Clock     clock.Clock
	Interval  time.Duration
	BatchSize uint64
}

// TaskRunner periodically handles pending finalization tasks. It goes through
// HandlePendingTasks like any external caller
type TaskRunner struct {
	config TaskRunnerConfig
	logger *slog.Logger
	cancel context.CancelFunc
	doneCh chan struct{}
	mutex  sync.Mutex
}

func NewTaskRunner(cfg TaskRunnerConfig) (*TaskRunner, error) {
	if cfg.Engine == nil {
		return nil, errors.New("no engine provided")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("task runner interval must be positive")
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultTaskBatchSize
	}
	return &TaskRunner{
		config: cfg,
		logger: cfg.Logger,
	}, nil
}

// Start begins polling in the background. Calling Start on a running runner
// does nothing
func (r *TaskRunner) Start() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.doneCh = make(chan struct{})
	ticker := r.config.Clock.Ticker(r.config.Interval)
	go r.run(ctx, ticker, r.doneCh)
	r.logger.Info(
		"task runner started",
		"component", "governance",
		"interval", r.config.Interval.String(),
	)
}

// Stop ends polling and waits for an in-progress pass to finish
func (r *TaskRunner) Stop() {
	r.mutex.Lock()
	cancel := r.cancel
	doneCh := r.doneCh
	r.cancel = nil
	r.mutex.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-doneCh
}

func (r *TaskRunner) run(
	ctx context.Context,
	ticker *clock.Ticker,
	doneCh chan struct{},
) {
	defer close(doneCh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single pass
func (r *TaskRunner) RunOnce(ctx context.Context) (int, error) {
	handled, err := r.config.Engine.HandlePendingTasks(ctx, r.config.BatchSize)
	if err != nil {
		r.config.Engine.metrics.taskRunErrors.Inc()
		r.logger.Error(
			"task runner pass failed",
			"component", "governance",
			"error", err,
		)
		return 0, err
	}
	if handled > 0 {
		r.logger.Debug(
			"task runner pass",
			"component", "governance",
			"handled", handled,
		)
	}
	return handled, nil
}
