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

package govern

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/blinklabs-io/govern/api"
	"github.com/blinklabs-io/govern/database"
	"github.com/blinklabs-io/govern/event"
	"github.com/blinklabs-io/govern/governance"
	"github.com/blinklabs-io/govern/params"
	"github.com/blinklabs-io/govern/proposal"
	"github.com/blinklabs-io/govern/stake"
	"github.com/blinklabs-io/govern/template"
)

type Node struct {
	eventBus      *event.EventBus
	db            *database.Database
	directory     *proposal.Directory
	templates     *template.Registry
	params        *params.Registry
	ledger        *stake.MemoryLedger
	engine        *governance.Engine
	taskRunner    *governance.TaskRunner
	api           *api.Api
	journal       *event.Journal
	shutdownFuncs []func(context.Context) error
	config        Config
	ready         chan struct{}
	done          chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	n := &Node{
		config:   cfg,
		eventBus: event.NewEventBus(cfg.promRegistry, cfg.logger),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
	return n, nil
}

// Run starts every component and blocks until ctx is cancelled or Stop is
// called. The caller is responsible for calling Stop afterward
func (n *Node) Run(ctx context.Context) error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(ctx); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir:        n.config.dataDir,
		Logger:         n.config.logger,
		PromRegistry:   n.config.promRegistry,
		BlobPlugin:     n.config.blobPlugin,
		MetadataPlugin: n.config.metadataPlugin,
	})
	if db != nil {
		n.db = db
	}
	if err != nil {
		var dbErr database.CommitTimestampError
		if errors.As(err, &dbErr) {
			return fmt.Errorf(
				"database is inconsistent and needs to be restored from backup: %w",
				err,
			)
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := n.loadComponents(ctx); err != nil {
		return err
	}
	// Event journal
	if n.config.eventJournalPath != "" {
		f, err := os.OpenFile(
			n.config.eventJournalPath,
			os.O_CREATE|os.O_APPEND|os.O_WRONLY,
			0o600,
		)
		if err != nil {
			return fmt.Errorf("failed to open event journal: %w", err)
		}
		n.journal = event.NewJournal(f)
		n.journal.Attach(n.eventBus, event.GovernanceEventTypes()...)
	}
	// Task runner
	if n.config.taskInterval > 0 {
		runner, err := governance.NewTaskRunner(governance.TaskRunnerConfig{
			Engine:    n.engine,
			Logger:    n.config.logger,
			Clock:     n.config.clock,
			Interval:  n.config.taskInterval,
			BatchSize: n.config.taskBatchSize,
		})
		if err != nil {
			return fmt.Errorf("failed to create task runner: %w", err)
		}
		n.taskRunner = runner
		n.taskRunner.Start()
	}
	// HTTP API
	if n.config.apiListenAddress != "" {
		n.api, err = api.New(api.ApiConfig{
			Logger:          n.config.logger,
			Engine:          n.engine,
			Stake:           n.ledger,
			ListenAddress:   n.config.apiListenAddress,
			TlsCertFilePath: n.config.tlsCertFilePath,
			TlsKeyFilePath:  n.config.tlsKeyFilePath,
			DevMode:         n.config.devMode,
		})
		if err != nil {
			return fmt.Errorf("failed to create API server: %w", err)
		}
		if err := n.api.Start(ctx); err != nil {
			return err
		}
	}
	close(n.ready)
	n.config.logger.Info(
		"governance node started",
		"component", "node",
		"engine", n.config.engineAddress.Hex(),
		"proposal_fee", n.config.proposalFee.String(),
	)

	// Wait for shutdown
	select {
	case <-ctx.Done():
	case <-n.done:
	}
	return nil
}

func (n *Node) loadComponents(ctx context.Context) error {
	var err error
	n.directory, err = proposal.NewDirectory(proposal.DirectoryConfig{
		Database:  n.db,
		Logger:    n.config.logger,
		Clock:     n.config.clock,
		CacheSize: n.config.contractCacheSize,
	})
	if err != nil {
		return fmt.Errorf("failed to load contract directory: %w", err)
	}
	n.templates, err = template.NewRegistry(template.RegistryConfig{
		Database:  n.db,
		Directory: n.directory,
		Logger:    n.config.logger,
		Clock:     n.config.clock,
	})
	if err != nil {
		return fmt.Errorf("failed to load template registry: %w", err)
	}
	if err := registerBuiltins(
		n.directory,
		n.templates.Verifiers(),
		n.config.ownerAddress,
	); err != nil {
		return err
	}
	n.params, err = params.NewRegistry(params.RegistryConfig{
		Database:   n.db,
		Logger:     n.config.logger,
		Clock:      n.config.clock,
		Owner:      n.config.ownerAddress,
		Governance: n.config.engineAddress,
	})
	if err != nil {
		return fmt.Errorf("failed to load network parameters: %w", err)
	}
	n.ledger = stake.NewMemoryLedger(n.config.logger)
	if n.config.stakeGenesisFile != "" {
		if err := n.ledger.LoadGenesis(n.config.stakeGenesisFile); err != nil {
			return err
		}
	}
	n.engine, err = governance.NewEngine(governance.EngineConfig{
		Database:     n.db,
		Directory:    n.directory,
		Templates:    n.templates,
		Params:       n.params,
		Stake:        n.ledger,
		EventBus:     n.eventBus,
		Logger:       n.config.logger,
		Clock:        n.config.clock,
		PromRegistry: n.config.promRegistry,
		ProposalFee:  n.config.proposalFee,
		Address:      n.config.engineAddress,
	})
	if err != nil {
		return fmt.Errorf("failed to load governance engine: %w", err)
	}
	if n.config.templatesFile != "" {
		file, err := template.LoadFile(n.config.templatesFile)
		if err != nil {
			return fmt.Errorf("failed to load templates: %w", err)
		}
		var added int
		err = n.db.Transaction(true).Do(func(txn *database.Txn) error {
			var err error
			added, err = n.templates.Bootstrap(ctx, txn, file)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to register templates: %w", err)
		}
		n.config.logger.Info(
			fmt.Sprintf("registered %d templates from %s", added, n.config.templatesFile),
			"component", "node",
		)
	}
	return nil
}

// Ready is closed once every component has started
func (n *Node) Ready() <-chan struct{} {
	return n.ready
}

// Engine returns the governance engine. It is nil until the node is ready
func (n *Node) Engine() *governance.Engine {
	return n.engine
}

// Ledger returns the stake ledger. It is nil until the node is ready
func (n *Node) Ledger() *stake.MemoryLedger {
	return n.ledger
}

// ApiAddr returns the bound API address, or nil when the API is disabled
func (n *Node) ApiAddr() net.Addr {
	if n.api == nil {
		return nil
	}
	return n.api.Addr()
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	ctx, cancel := context.WithTimeout(
		context.Background(),
		n.config.shutdownTimeout,
	)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping new work")

	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}
	if n.taskRunner != nil {
		n.taskRunner.Stop()
	}

	// Phase 2: Deliver pending events
	n.config.logger.Debug("shutdown phase 2: flushing events")

	if n.eventBus != nil {
		n.eventBus.Stop()
	}
	if n.journal != nil {
		n.journal.Close()
	}

	// Phase 3: Close database
	n.config.logger.Debug("shutdown phase 3: closing database")

	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 4: Cleanup resources
	n.config.logger.Debug("shutdown phase 4: cleanup resources")

	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}
