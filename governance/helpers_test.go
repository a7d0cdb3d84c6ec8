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
package governance_test

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/blinklabs-io/govern/database"
	"github.com/blinklabs-io/govern/event"
	"github.com/blinklabs-io/govern/governance"
	"github.com/blinklabs-io/govern/params"
	"github.com/blinklabs-io/govern/proposal"
	"github.com/blinklabs-io/govern/proposal/execlogging"
	"github.com/blinklabs-io/govern/proposal/netparam"
	"github.com/blinklabs-io/govern/proposal/plaintext"
	"github.com/blinklabs-io/govern/stake"
	"github.com/blinklabs-io/govern/template"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/raulk/clock"
	"github.com/stretchr/testify/require"
)

const (
	tmplPlaintext uint64 = iota + 1
	tmplCall
	tmplDelegate
	tmplNetparam
	tmplOpen
	tmplEarly
)

var (
	engineAddr = common.HexToAddress("0x00000000000000000000000000000000000000e0")
	ownerAddr  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	voterA     = common.HexToAddress("0x000000000000000000000000000000000000a001")
	voterB     = common.HexToAddress("0x000000000000000000000000000000000000a002")
	voterC     = common.HexToAddress("0x000000000000000000000000000000000000a003")
	testFee    = big.NewInt(100)
)

type harness struct {
	db        *database.Database
	directory *proposal.Directory
	templates *template.Registry
	params    *params.Registry
	ledger    *stake.MemoryLedger
	engine    *governance.Engine
	clock     *clock.Mock
	bus       *event.EventBus
	registry  *prometheus.Registry
}

// deployParams covers the parameters of every built-in kind
type deployParams struct {
	proposal.BaseParams
	ExecType      string `json:"execType,omitempty"`
	Parameter     string `json:"parameter,omitempty"`
	FailOnExecute bool   `json:"failOnExecute,omitempty"`
}

func baseParams(templateID uint64, options ...string) proposal.BaseParams {
	return proposal.BaseParams{
		Name:              "test proposal",
		TemplateID:        templateID,
		Options:           options,
		MinVotes:          "0.5",
		MinAgreement:      "0.6",
		MinVotingDuration: 60,
		MaxVotingDuration: 120,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	mockClock := clock.NewMock()
	mockClock.Add(24 * time.Hour)
	bus := event.NewEventBus(nil, nil)
	t.Cleanup(bus.Stop)
	dir, err := proposal.NewDirectory(
		proposal.DirectoryConfig{Database: db, Clock: mockClock},
	)
	require.NoError(t, err)
	dir.RegisterKind(plaintext.Kind, plaintext.New)
	dir.RegisterKind(execlogging.Kind, execlogging.New)
	dir.RegisterKind(netparam.Kind, netparam.New)
	templates, err := template.NewRegistry(template.RegistryConfig{
		Database:  db,
		Directory: dir,
		Clock:     mockClock,
	})
	require.NoError(t, err)
	paramRegistry, err := params.NewRegistry(params.RegistryConfig{
		Database:   db,
		Clock:      mockClock,
		Owner:      ownerAddr,
		Governance: engineAddr,
	})
	require.NoError(t, err)
	ledger := stake.NewMemoryLedger(nil)
	registry := prometheus.NewRegistry()
	engine, err := governance.NewEngine(governance.EngineConfig{
		Database:     db,
		Directory:    dir,
		Templates:    templates,
		Params:       paramRegistry,
		Stake:        ledger,
		EventBus:     bus,
		Clock:        mockClock,
		ProposalFee:  testFee,
		Address:      engineAddr,
		PromRegistry: registry,
	})
	require.NoError(t, err)
	h := &harness{
		db:        db,
		directory: dir,
		templates: templates,
		params:    paramRegistry,
		ledger:    ledger,
		engine:    engine,
		clock:     mockClock,
		bus:       bus,
		registry:  registry,
	}
	h.addTemplates(t)
	return h
}

func mustReference(t *testing.T, factory proposal.Factory, params string) proposal.Proposal {
	t.Helper()
	ret, err := factory(json.RawMessage(params))
	require.NoError(t, err)
	return ret
}

func (h *harness) addTemplates(t *testing.T) {
	t.Helper()
	verifiers := h.templates.Verifiers()
	plaintextVerifier := verifiers.Register(
		"plaintext",
		template.NewTypeMatcher(mustReference(t, plaintext.New, `{}`)),
	)
	execloggingVerifier := verifiers.Register(
		"execlogging",
		template.NewTypeMatcher(mustReference(t, execlogging.New, `{}`)),
	)
	netparamVerifier := verifiers.Register(
		"netparam",
		template.NewTypeMatcher(mustReference(t, netparam.New, `{"parameter":"x"}`)),
	)
	base := template.Template{
		MinVotes:          ratio(t, "0.5"),
		MinAgreement:      ratio(t, "0.6"),
		OpinionScales:     []uint64{0, 1, 2, 3, 4},
		MinVotingDuration: 60,
		MaxVotingDuration: 3600,
		MaxStartDelay:     600,
	}
	tmpls := []struct {
		id       uint64
		name     string
		verifier common.Address
		kind     proposal.ExecType
		early    bool
	}{
		{tmplPlaintext, "plaintext", plaintextVerifier, proposal.ExecTypeNonExecutable, false},
		{tmplCall, "call", execloggingVerifier, proposal.ExecTypeCall, false},
		{tmplDelegate, "delegate", execloggingVerifier, proposal.ExecTypeDelegatecall, false},
		{tmplNetparam, "netparam", netparamVerifier, proposal.ExecTypeDelegatecall, false},
		{tmplOpen, "open", common.Address{}, proposal.ExecTypeCall, false},
		{tmplEarly, "early", plaintextVerifier, proposal.ExecTypeNonExecutable, true},
	}
	for _, tmpl := range tmpls {
		entry := base
		entry.ID = tmpl.id
		entry.Name = tmpl.name
		entry.Verifier = tmpl.verifier
		entry.ExecutableKind = tmpl.kind
		entry.AllowEarlyResolution = tmpl.early
		require.NoError(t, h.engine.AddTemplate(context.Background(), entry))
	}
}

func (h *harness) deploy(t *testing.T, kind string, p deployParams) common.Address {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	addr, err := h.engine.DeployContract(
		context.Background(),
		ownerAddr,
		kind,
		raw,
		false,
	)
	require.NoError(t, err)
	return addr
}

func (h *harness) create(t *testing.T, addr common.Address) uint64 {
	t.Helper()
	id, err := h.engine.CreateProposal(context.Background(), ownerAddr, addr, testFee)
	require.NoError(t, err)
	return id
}

func (h *harness) createPlaintext(t *testing.T, options ...string) uint64 {
	t.Helper()
	addr := h.deploy(
		t,
		plaintext.Kind,
		deployParams{BaseParams: baseParams(tmplPlaintext, options...)},
	)
	return h.create(t, addr)
}

func (h *harness) setStake(t *testing.T, addr common.Address, amount int64) {
	t.Helper()
	require.NoError(t, h.ledger.SetStake(addr, big.NewInt(amount)))
}

func (h *harness) vote(t *testing.T, voter common.Address, id uint64, choices ...uint64) {
	t.Helper()
	require.NoError(t, h.engine.Vote(context.Background(), voter, id, choices))
}

func (h *harness) state(t *testing.T, id uint64) *governance.ProposalState {
	t.Helper()
	state, err := h.engine.ProposalState(context.Background(), id)
	require.NoError(t, err)
	return state
}

func (h *harness) counters(t *testing.T) *governance.Counters {
	t.Helper()
	counters, err := h.engine.Counters(context.Background())
	require.NoError(t, err)
	return counters
}

// boundProposal is an in-process proposal with a custom execution hook
type boundProposal struct {
	proposal.Base
	execute func(ctx context.Context, env proposal.ExecEnv, winner uint64) error
}

func (p *boundProposal) ExecutableType() proposal.ExecType {
	return proposal.ExecTypeCall
}

func (p *boundProposal) Execute(
	ctx context.Context,
	env proposal.ExecEnv,
	winner uint64,
) error {
	return p.execute(ctx, env, winner)
}

func (h *harness) bind(
	t *testing.T,
	addr common.Address,
	execute func(ctx context.Context, env proposal.ExecEnv, winner uint64) error,
) uint64 {
	t.Helper()
	base, err := proposal.NewBase(baseParams(tmplOpen, "yes", "no"))
	require.NoError(t, err)
	h.directory.Bind(addr, &boundProposal{Base: base, execute: execute})
	return h.create(t, addr)
}

// subscribe collects events of one type without ever blocking the bus
func (h *harness) subscribe(eventType event.EventType) <-chan event.Event {
	ch := make(chan event.Event, 16)
	h.bus.SubscribeFunc(eventType, func(evt event.Event) {
		select {
		case ch <- evt:
		default:
		}
	})
	return ch
}
