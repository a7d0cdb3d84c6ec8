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

// Package governance implements the proposal lifecycle: creation against a
// template, stake-weighted graded voting, deferred finalization through the
// task queue and dispatch of the winning option to the proposal contract
package governance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/blinklabs-io/govern/database"
	"github.com/blinklabs-io/govern/event"
	"github.com/blinklabs-io/govern/params"
	"github.com/blinklabs-io/govern/proposal"
	"github.com/blinklabs-io/govern/stake"
	"github.com/blinklabs-io/govern/template"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/raulk/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/blinklabs-io/govern/governance"

type EngineConfig struct {
	Database     *database.Database
	Directory    *proposal.Directory
	Templates    *template.Registry
	Params       *params.Registry
	Stake        stake.Ledger
	EventBus     *event.EventBus
	Logger       *slog.Logger
	Clock        clock.Clock
	PromRegistry prometheus.Registerer
	// ProposalFee is the exact fee CreateProposal requires
	ProposalFee *big.Int
	// Address is the identity the engine executes and applies intents as
	Address common.Address
}

// Engine is the governance engine. Every entry point is serialized and runs
// in a single storage transaction
type Engine struct {
	config      EngineConfig
	db          *database.Database
	logger      *slog.Logger
	clock       clock.Clock
	tracer      trace.Tracer
	metrics     *engineMetrics
	mutex       sync.Mutex
	dispatching atomic.Bool
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Database == nil {
		return nil, errors.New("no database provided")
	}
	if cfg.Directory == nil {
		return nil, errors.New("no contract directory provided")
	}
	if cfg.Templates == nil {
		return nil, errors.New("no template registry provided")
	}
	if cfg.Params == nil {
		return nil, errors.New("no parameter registry provided")
	}
	if cfg.Stake == nil {
		return nil, errors.New("no stake ledger provided")
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.PromRegistry == nil {
		cfg.PromRegistry = prometheus.NewRegistry()
	}
	if cfg.ProposalFee == nil {
		cfg.ProposalFee = new(big.Int)
	} else {
		cfg.ProposalFee = new(big.Int).Set(cfg.ProposalFee)
	}
	if cfg.ProposalFee.Sign() < 0 {
		return nil, errors.New("proposal fee must not be negative")
	}
	if !cfg.Params.Authorized(cfg.Address) {
		return nil, errors.New(
			"engine address is not authorized to change network parameters",
		)
	}
	e := &Engine{
		config:  cfg,
		db:      cfg.Database,
		logger:  cfg.Logger,
		clock:   cfg.Clock,
		tracer:  otel.Tracer(tracerName),
		metrics: &engineMetrics{},
	}
	e.metrics.init(cfg.PromRegistry)
	return e, nil
}

// Address returns the engine's identity
func (e *Engine) Address() common.Address {
	return e.config.Address
}

// ProposalFee returns the fee CreateProposal requires
func (e *Engine) ProposalFee() *big.Int {
	return new(big.Int).Set(e.config.ProposalFee)
}

func (e *Engine) Templates() *template.Registry {
	return e.config.Templates
}

func (e *Engine) Directory() *proposal.Directory {
	return e.config.Directory
}

func (e *Engine) Params() *params.Registry {
	return e.config.Params
}

// enter serializes an entry point. It fails with ErrReentrantCall while a
// proposal's execution hook is running
func (e *Engine) enter() (func(), error) {
	if e.dispatching.Load() {
		return nil, ErrReentrantCall
	}
	e.mutex.Lock()
	return e.mutex.Unlock, nil
}

func (e *Engine) now() uint64 {
	return uint64(e.clock.Now().Unix()) //nolint:gosec
}

func (e *Engine) publish(evts []event.Event) {
	if e.config.EventBus == nil {
		return
	}
	for _, evt := range evts {
		e.config.EventBus.Publish(evt.Type, evt)
	}
}

// AddTemplate registers a proposal template
func (e *Engine) AddTemplate(ctx context.Context, tmpl template.Template) error {
	ctx, span := e.tracer.Start(ctx, "governance.AddTemplate")
	defer span.End()
	release, err := e.enter()
	if err != nil {
		return err
	}
	defer release()
	err = e.db.Transaction(true).Do(func(txn *database.Txn) error {
		return e.config.Templates.AddTemplate(ctx, txn, tmpl)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// SetParameter changes a network parameter on behalf of caller, which must be
// the parameter owner or the engine itself
func (e *Engine) SetParameter(
	ctx context.Context,
	caller common.Address,
	name string,
	value *big.Int,
) error {
	ctx, span := e.tracer.Start(ctx, "governance.SetParameter")
	defer span.End()
	release, err := e.enter()
	if err != nil {
		return err
	}
	defer release()
	err = e.db.Transaction(true).Do(func(txn *database.Txn) error {
		return e.config.Params.Set(ctx, txn, caller, name, value)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	e.publish([]event.Event{
		event.NewEvent(
			event.ParameterChangedEventType,
			event.ParameterChangedEvent{
				Name:      name,
				Value:     value.String(),
				UpdatedBy: caller.Hex(),
			},
		),
	})
	return nil
}
