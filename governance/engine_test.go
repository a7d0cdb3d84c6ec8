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
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/govern/database/models"
	"github.com/blinklabs-io/govern/event"
	"github.com/blinklabs-io/govern/governance"
	"github.com/blinklabs-io/govern/proposal"
	"github.com/blinklabs-io/govern/proposal/execlogging"
	"github.com/blinklabs-io/govern/proposal/netparam"
	"github.com/blinklabs-io/govern/proposal/plaintext"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestCreateProposalValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	empty := h.deploy(t, plaintext.Kind, deployParams{BaseParams: baseParams(tmplPlaintext)})
	tooMany := h.deploy(
		t,
		plaintext.Kind,
		deployParams{
			BaseParams: baseParams(
				tmplPlaintext,
				"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11",
			),
		},
	)
	maxOptions := h.deploy(
		t,
		plaintext.Kind,
		deployParams{
			BaseParams: baseParams(
				tmplPlaintext,
				"1", "2", "3", "4", "5", "6", "7", "8", "9", "10",
			),
		},
	)
	good := h.deploy(t, plaintext.Kind, deployParams{BaseParams: baseParams(tmplPlaintext, "a")})
	wrongImpl := h.deploy(
		t,
		execlogging.Kind,
		deployParams{BaseParams: baseParams(tmplPlaintext, "a")},
	)
	lowAgreement := baseParams(tmplPlaintext, "a")
	lowAgreement.MinAgreement = "0.5"
	badParams := h.deploy(t, plaintext.Kind, deployParams{BaseParams: lowAgreement})
	unknownTemplate := h.deploy(t, plaintext.Kind, deployParams{BaseParams: baseParams(99, "a")})

	testDefs := []struct {
		name string
		addr common.Address
		fee  *big.Int
		err  error
		msg  string
	}{
		{
			name: "empty options",
			addr: empty,
			fee:  big.NewInt(0),
			err:  governance.ErrEmptyOptions,
			msg:  "proposal options are empty - nothing to vote for",
		},
		{name: "too many options", addr: tooMany, fee: testFee, err: governance.ErrTooManyOptions, msg: "too many options"},
		{name: "underpaid fee", addr: good, fee: big.NewInt(99), err: governance.ErrWrongFee, msg: "paid proposal fee is wrong"},
		{name: "overpaid fee", addr: good, fee: big.NewInt(101), err: governance.ErrWrongFee},
		{name: "missing fee", addr: good, fee: nil, err: governance.ErrWrongFee},
		{
			name: "wrong implementation",
			addr: wrongImpl,
			fee:  testFee,
			err:  governance.ErrVerificationFailed,
			msg:  "proposal contract failed verification",
		},
		{name: "unknown template", addr: unknownTemplate, fee: testFee, err: governance.ErrVerificationFailed},
		{
			name: "parameters out of range",
			addr: badParams,
			fee:  testFee,
			err:  governance.ErrParamsVerificationFailed,
			msg:  "proposal parameters failed verification",
		},
		{name: "unknown contract", addr: common.HexToAddress("0x1234"), fee: testFee, err: proposal.ErrContractNotFound},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := h.engine.CreateProposal(ctx, ownerAddr, testDef.addr, testDef.fee)
			require.ErrorIs(t, err, testDef.err)
			if testDef.msg != "" {
				assert.Equal(t, testDef.msg, err.Error())
			}
			assert.True(
				t,
				governance.IsValidationError(err) ||
					errors.Is(err, proposal.ErrContractNotFound),
			)
		})
	}
	// Rejected submissions leave no trace
	counters := h.counters(t)
	assert.Equal(t, uint64(0), counters.LastProposalID)
	assert.Equal(t, uint64(0), counters.ActiveProposals)
	assert.Equal(t, uint64(0), counters.TaskCount)
	assert.Equal(t, "0", counters.CollectedFees.String())
	_, err := h.engine.ProposalState(ctx, 1)
	require.ErrorIs(t, err, governance.ErrProposalNotFound)
	// The maximum number of options is accepted
	id := h.create(t, maxOptions)
	assert.Equal(t, uint64(1), id)
}

func TestCreateProposalTimes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := baseParams(tmplPlaintext, "yes", "no")
	p.StartDelay = 30
	p.MinVotingDuration = 90
	p.MaxVotingDuration = 300
	addr := h.deploy(t, plaintext.Kind, deployParams{BaseParams: p})
	created := h.subscribe(event.ProposalCreatedEventType)
	now := uint64(h.clock.Now().Unix())
	id := h.create(t, addr)
	assert.Equal(t, uint64(1), id)
	params, err := h.engine.ProposalParams(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, now+30, params.VotingStartTime)
	assert.Equal(t, params.VotingStartTime+90, params.VotingMinEndTime)
	assert.Equal(t, params.VotingStartTime+300, params.VotingMaxEndTime)
	assert.Equal(t, [][]byte{[]byte("yes"), []byte("no")}, params.Options)
	assert.Equal(t, addr, params.Contract)
	assert.Equal(t, ownerAddr, params.Proposer)
	assert.Equal(t, uint64(tmplPlaintext), params.TemplateID)
	assert.Equal(t, "600000000000000000", params.MinAgreement.String())
	state := h.state(t, id)
	assert.Equal(t, models.ProposalStatusInitial, state.Status)
	assert.Equal(t, governance.NoWinner, state.WinnerOptionID)
	assert.Equal(t, "0", state.Votes.String())
	task, err := h.engine.Task(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, id, task.ProposalID)
	assert.Equal(t, params.VotingMinEndTime, task.NotBefore)
	assert.False(t, task.Consumed)
	_, err = h.engine.Task(ctx, 1)
	require.ErrorIs(t, err, governance.ErrTaskNotFound)
	counters := h.counters(t)
	assert.Equal(t, uint64(1), counters.LastProposalID)
	assert.Equal(t, uint64(1), counters.ActiveProposals)
	assert.Equal(t, uint64(1), counters.TaskCount)
	assert.Equal(t, "100", counters.CollectedFees.String())
	select {
	case evt := <-created:
		data, ok := evt.Data.(event.ProposalCreatedEvent)
		require.True(t, ok)
		assert.Equal(t, id, data.ProposalID)
		assert.Equal(t, 2, data.OptionCount)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for proposal created event")
	}
}

func TestVoteValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setStake(t, voterA, 10)
	p := baseParams(tmplPlaintext, "yes", "no")
	p.StartDelay = 30
	id := h.create(t, h.deploy(t, plaintext.Kind, deployParams{BaseParams: p}))
	err := h.engine.Vote(ctx, voterA, id, []uint64{4, 0})
	require.ErrorIs(t, err, governance.ErrVotingNotBegun)
	assert.Equal(t, "proposal voting hasn't begun", err.Error())
	h.clock.Add(30 * time.Second)
	require.ErrorIs(
		t,
		h.engine.Vote(ctx, voterA, id, []uint64{4}),
		governance.ErrWrongChoiceCount,
	)
	require.ErrorIs(
		t,
		h.engine.Vote(ctx, voterA, id, []uint64{4, 5}),
		governance.ErrWrongOpinionScale,
	)
	require.ErrorIs(
		t,
		h.engine.Vote(ctx, voterC, id, []uint64{4, 0}),
		governance.ErrZeroWeight,
	)
	require.ErrorIs(
		t,
		h.engine.Vote(ctx, voterA, id+1, []uint64{4, 0}),
		governance.ErrProposalNotFound,
	)
	h.vote(t, voterA, id, 4, 0)
	// The window closes at votingMaxEndTime, exclusive
	h.clock.Add(120 * time.Second)
	err = h.engine.Vote(ctx, voterA, id, []uint64{4, 0})
	require.ErrorIs(t, err, governance.ErrVotingEnded)
	assert.Equal(t, "proposal voting has ended", err.Error())
}

func TestRevoteReplaces(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setStake(t, voterA, 10)
	h.setStake(t, voterB, 30)
	id := h.createPlaintext(t, "yes", "no")
	h.vote(t, voterA, id, 4, 0)
	h.vote(t, voterA, id, 1, 2)
	state := h.state(t, id)
	assert.Equal(t, "10", state.Votes.String())
	option, err := h.engine.OptionState(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, "10", option.Votes.String())
	assert.Equal(t, ratio(t, "0.25").String(), option.Score.String())
	option, err = h.engine.OptionState(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, ratio(t, "0.5").String(), option.Score.String())
	_, err = h.engine.OptionState(ctx, id, 2)
	require.ErrorIs(t, err, governance.ErrOptionOutOfRange)
	// Weight is read live on every vote
	h.setStake(t, voterA, 15)
	h.vote(t, voterA, id, 4, 4)
	h.vote(t, voterB, id, 4, 0)
	state = h.state(t, id)
	assert.Equal(t, "45", state.Votes.String())
	vote, err := h.engine.GetVote(ctx, voterA, id)
	require.NoError(t, err)
	assert.Equal(t, []uint64{4, 4}, vote.Choices)
	assert.Equal(t, "15", vote.Weight.String())
	tally, err := h.engine.VotingTally(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "45", tally.Options[0].Votes.String())
	assert.Equal(t, "45", tally.Options[1].Votes.String())
	assert.Equal(t, uint64(0), tally.Winner)
}

func TestCancelVote(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setStake(t, voterA, 10)
	h.setStake(t, voterB, 10)
	id := h.createPlaintext(t, "yes")
	require.ErrorIs(
		t,
		h.engine.CancelVote(ctx, voterA, id),
		governance.ErrVoteNotFound,
	)
	h.vote(t, voterA, id, 4)
	h.vote(t, voterB, id, 2)
	require.NoError(t, h.engine.CancelVote(ctx, voterA, id))
	state := h.state(t, id)
	assert.Equal(t, "10", state.Votes.String())
	_, err := h.engine.GetVote(ctx, voterA, id)
	require.ErrorIs(t, err, governance.ErrVoteNotFound)
	option, err := h.engine.OptionState(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, ratio(t, "0.5").String(), option.Score.String())
	h.clock.Add(120 * time.Second)
	require.ErrorIs(
		t,
		h.engine.CancelVote(ctx, voterB, id),
		governance.ErrVotingEnded,
	)
}

func TestScenarioTwoVoters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setStake(t, voterA, 10)
	h.setStake(t, voterB, 10)
	id := h.createPlaintext(t, "yes", "no")
	h.vote(t, voterA, id, 4, 0)
	h.vote(t, voterB, id, 4, 0)
	resolved := h.subscribe(event.ProposalResolvedEventType)
	h.clock.Add(60 * time.Second)
	handled, err := h.engine.HandleTasks(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	state := h.state(t, id)
	assert.Equal(t, models.ProposalStatusResolved, state.Status)
	assert.Equal(t, uint64(0), state.WinnerOptionID)
	assert.Equal(t, models.ExecutionStatusNone, state.ExecutionStatus)
	select {
	case evt := <-resolved:
		data, ok := evt.Data.(event.ProposalFinalizedEvent)
		require.True(t, ok)
		assert.Equal(t, id, data.ProposalID)
		assert.Equal(t, uint64(0), data.Winner)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for proposal resolved event")
	}
	// Finalized proposals no longer accept votes
	require.ErrorIs(
		t,
		h.engine.Vote(ctx, voterA, id, []uint64{0, 4}),
		governance.ErrProposalNotActive,
	)
	// Handling the task again is a no-op
	handled, err = h.engine.HandleTasks(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, handled)
}

func TestScenarioSingleVoterInclusiveQuorum(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setStake(t, voterA, 10)
	h.setStake(t, voterB, 10)
	id := h.createPlaintext(t, "yes", "no")
	h.vote(t, voterA, id, 4, 0)
	h.clock.Add(60 * time.Second)
	handled, err := h.engine.HandleTasks(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	state := h.state(t, id)
	assert.Equal(t, models.ProposalStatusResolved, state.Status)
	assert.Equal(t, uint64(0), state.WinnerOptionID)
}

func TestBelowQuorumFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setStake(t, voterA, 10)
	require.NoError(t, h.ledger.SetTotalEffectiveStake(big.NewInt(100)))
	id := h.createPlaintext(t, "yes", "no")
	h.vote(t, voterA, id, 4, 4)
	failed := h.subscribe(event.ProposalFailedEventType)
	h.clock.Add(60 * time.Second)
	handled, err := h.engine.HandleTasks(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	state := h.state(t, id)
	assert.Equal(t, models.ProposalStatusFailed, state.Status)
	assert.Equal(t, governance.NoWinner, state.WinnerOptionID)
	select {
	case <-failed:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for proposal failed event")
	}
}

func TestQuorumUsesStakeAtFinalization(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setStake(t, voterA, 10)
	h.setStake(t, voterB, 10)
	raised := h.createPlaintext(t, "yes", "no")
	lowered := h.createPlaintext(t, "yes", "no")
	h.vote(t, voterA, raised, 4, 0)
	h.vote(t, voterB, raised, 4, 0)
	h.vote(t, voterA, lowered, 4, 0)
	h.clock.Add(60 * time.Second)

	// 20 of 100 is below the 0.5 quorum
	require.NoError(t, h.ledger.SetTotalEffectiveStake(big.NewInt(100)))
	handled, err := h.engine.HandleTasks(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	state := h.state(t, raised)
	assert.Equal(t, models.ProposalStatusFailed, state.Status)
	assert.Equal(t, governance.NoWinner, state.WinnerOptionID)

	// 10 of 100 would fail, 10 of 10 passes
	require.NoError(t, h.ledger.SetTotalEffectiveStake(big.NewInt(10)))
	handled, err = h.engine.HandleTasks(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	state = h.state(t, lowered)
	assert.Equal(t, models.ProposalStatusResolved, state.Status)
	assert.Equal(t, uint64(0), state.WinnerOptionID)
}

func TestHandleTasksRange(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.engine.HandleTasks(ctx, 0, 1)
	require.ErrorIs(t, err, governance.ErrTaskIndexOutOfRange)
	h.setStake(t, voterA, 10)
	first := h.createPlaintext(t, "yes")
	h.vote(t, voterA, first, 4)
	// Not due yet
	handled, err := h.engine.HandleTasks(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, handled)
	task, err := h.engine.Task(ctx, 0)
	require.NoError(t, err)
	assert.False(t, task.Consumed)
	h.clock.Add(30 * time.Second)
	second := h.createPlaintext(t, "yes")
	h.vote(t, voterA, second, 4)
	h.clock.Add(30 * time.Second)
	// The range is truncated to the queue length and the second task is
	// still skipped
	handled, err = h.engine.HandleTasks(ctx, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	active, err := h.engine.ActiveProposals(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), active)
	_, err = h.engine.HandleTasks(ctx, 2, 1)
	require.ErrorIs(t, err, governance.ErrTaskIndexOutOfRange)
	h.clock.Add(30 * time.Second)
	handled, err = h.engine.HandleTasks(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	active, err = h.engine.ActiveProposals(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), active)
	taskCount, err := h.engine.TaskCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), taskCount)
	lastID, err := h.engine.LastProposalID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), lastID)
	fees, err := h.engine.CollectedFees(ctx)
	require.NoError(t, err)
	assert.Equal(t, "200", fees.String())
}

func TestEarlyResolution(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setStake(t, voterA, 10)
	h.setStake(t, voterB, 10)
	early := h.create(
		t,
		h.deploy(t, plaintext.Kind, deployParams{BaseParams: baseParams(tmplEarly, "yes")}),
	)
	regular := h.createPlaintext(t, "yes")
	h.vote(t, voterA, early, 4)
	h.vote(t, voterA, regular, 4)
	h.vote(t, voterB, regular, 4)
	handled, err := h.engine.HandleTasks(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	assert.Equal(t, models.ProposalStatusResolved, h.state(t, early).Status)
	assert.Equal(t, models.ProposalStatusInitial, h.state(t, regular).Status)
}

func TestCallFailureIsRecorded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setStake(t, voterA, 10)
	addr := h.deploy(
		t,
		execlogging.Kind,
		deployParams{
			BaseParams:    baseParams(tmplCall, "a", "b"),
			ExecType:      "call",
			FailOnExecute: true,
		},
	)
	id := h.create(t, addr)
	h.vote(t, voterA, id, 0, 4)
	h.clock.Add(60 * time.Second)
	handled, err := h.engine.HandleTasks(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	state := h.state(t, id)
	assert.Equal(t, models.ProposalStatusResolved, state.Status)
	assert.Equal(t, uint64(1), state.WinnerOptionID)
	assert.Equal(t, models.ExecutionStatusFailed, state.ExecutionStatus)
	receipt, err := h.engine.ExecutionReceipt(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.False(t, receipt.Success)
	assert.Contains(t, receipt.Error, execlogging.ErrExecutionFailed.Error())
	require.Len(t, receipt.Notes, 1)
	assert.Contains(t, receipt.Notes[0], "executed option 1 (b)")
	assert.Contains(t, receipt.Notes[0], addr.Hex())
	task, err := h.engine.Task(ctx, 0)
	require.NoError(t, err)
	assert.True(t, task.Consumed)
}

func TestCallPanicIsRecorded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setStake(t, voterA, 10)
	id := h.bind(
		t,
		common.HexToAddress("0xb0b0"),
		func(context.Context, proposal.ExecEnv, uint64) error {
			panic("boom")
		},
	)
	h.vote(t, voterA, id, 4, 0)
	h.clock.Add(60 * time.Second)
	handled, err := h.engine.HandleTasks(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	state := h.state(t, id)
	assert.Equal(t, models.ProposalStatusResolved, state.Status)
	assert.Equal(t, models.ExecutionStatusFailed, state.ExecutionStatus)
	receipt, err := h.engine.ExecutionReceipt(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Contains(t, receipt.Error, "boom")
}

func TestCallCannotEmitIntents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setStake(t, voterA, 10)
	contract := common.HexToAddress("0xc0c0")
	var executingAs common.Address
	id := h.bind(
		t,
		contract,
		func(ctx context.Context, env proposal.ExecEnv, _ uint64) error {
			executingAs = env.ExecutingAs()
			return env.Emit(
				ctx,
				proposal.SetParameter{Name: "minSelfStake", Value: big.NewInt(1)},
			)
		},
	)
	h.vote(t, voterA, id, 4, 0)
	h.clock.Add(60 * time.Second)
	_, err := h.engine.HandleTasks(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, contract, executingAs)
	assert.Equal(t, models.ExecutionStatusFailed, h.state(t, id).ExecutionStatus)
	receipt, err := h.engine.ExecutionReceipt(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, receipt.Error, proposal.ErrIntentNotAllowed.Error())
	value, err := h.params.Get(ctx, nil, "minSelfStake")
	require.NoError(t, err)
	assert.True(t, value.IsDefault)
}

func TestDelegatecallFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setStake(t, voterA, 10)
	first := h.createPlaintext(t, "yes")
	failing := h.create(
		t,
		h.deploy(
			t,
			execlogging.Kind,
			deployParams{
				BaseParams:    baseParams(tmplDelegate, "a"),
				ExecType:      "delegatecall",
				FailOnExecute: true,
			},
		),
	)
	h.vote(t, voterA, first, 4)
	h.vote(t, voterA, failing, 4)
	h.clock.Add(60 * time.Second)
	_, err := h.engine.HandleTasks(ctx, 0, 2)
	require.ErrorIs(t, err, governance.ErrExecutionFailed)
	require.ErrorIs(t, err, execlogging.ErrExecutionFailed)
	for i := range uint64(2) {
		task, err := h.engine.Task(ctx, i)
		require.NoError(t, err)
		assert.False(t, task.Consumed, "task %d", i)
	}
	assert.Equal(t, models.ProposalStatusInitial, h.state(t, first).Status)
	assert.Equal(t, models.ProposalStatusInitial, h.state(t, failing).Status)
	assert.Equal(t, uint64(2), h.counters(t).ActiveProposals)
	receipt, err := h.engine.ExecutionReceipt(ctx, failing)
	require.NoError(t, err)
	assert.Nil(t, receipt)
	// Tasks outside the failing one can still be handled
	handled, err := h.engine.HandleTasks(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	_, err = h.engine.HandleTasks(ctx, 1, 1)
	require.ErrorIs(t, err, governance.ErrExecutionFailed)
	assert.Equal(t, uint64(1), h.counters(t).ActiveProposals)
}

func TestDelegatecallChangesParameter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setStake(t, voterA, 10)
	addr := h.deploy(
		t,
		netparam.Kind,
		deployParams{
			BaseParams: baseParams(tmplNetparam, "20e18", "24e18"),
			Parameter:  "maxDelegatedRatio",
		},
	)
	id := h.create(t, addr)
	h.vote(t, voterA, id, 0, 4)
	changed := h.subscribe(event.ParameterChangedEventType)
	h.clock.Add(60 * time.Second)
	handled, err := h.engine.HandleTasks(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	state := h.state(t, id)
	assert.Equal(t, uint64(1), state.WinnerOptionID)
	assert.Equal(t, models.ExecutionStatusExecuted, state.ExecutionStatus)
	value, err := h.params.Get(ctx, nil, "maxDelegatedRatio")
	require.NoError(t, err)
	assert.Equal(t, "24000000000000000000", value.Value.String())
	assert.Equal(t, engineAddr, value.UpdatedBy)
	receipt, err := h.engine.ExecutionReceipt(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.True(t, receipt.Success)
	require.Len(t, receipt.Intents, 1)
	assert.True(t, strings.HasSuffix(receipt.Intents[0], "maxDelegatedRatio=24000000000000000000"))
	select {
	case evt := <-changed:
		data, ok := evt.Data.(event.ParameterChangedEvent)
		require.True(t, ok)
		assert.Equal(t, "maxDelegatedRatio", data.Name)
		assert.Equal(t, id, data.ProposalID)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for parameter changed event")
	}
}

func TestReentrantCallsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setStake(t, voterA, 10)
	var voteErr, handleErr, viewErr error
	id := h.bind(
		t,
		common.HexToAddress("0xd0d0"),
		func(ctx context.Context, _ proposal.ExecEnv, _ uint64) error {
			voteErr = h.engine.Vote(ctx, voterA, 1, []uint64{0, 4})
			_, handleErr = h.engine.HandleTasks(ctx, 0, 1)
			_, viewErr = h.engine.ProposalState(ctx, 1)
			return nil
		},
	)
	h.vote(t, voterA, id, 4, 0)
	h.clock.Add(60 * time.Second)
	handled, err := h.engine.HandleTasks(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	require.ErrorIs(t, voteErr, governance.ErrReentrantCall)
	require.ErrorIs(t, handleErr, governance.ErrReentrantCall)
	require.ErrorIs(t, viewErr, governance.ErrReentrantCall)
	assert.Equal(t, models.ExecutionStatusExecuted, h.state(t, id).ExecutionStatus)
	// The guard is released after dispatch
	_, err = h.engine.ProposalState(ctx, id)
	require.NoError(t, err)
}

func TestActiveCounter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := range 3 {
		h.createPlaintext(t, "yes")
		assert.Equal(t, uint64(i+1), h.counters(t).ActiveProposals)
	}
	h.clock.Add(60 * time.Second)
	handled, err := h.engine.HandleTasks(ctx, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, handled)
	assert.Equal(t, uint64(0), h.counters(t).ActiveProposals)
	// Repeated handling never decrements again
	handled, err = h.engine.HandleTasks(ctx, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, handled)
	assert.Equal(t, uint64(0), h.counters(t).ActiveProposals)
	proposals, err := h.engine.Proposals(ctx, models.ProposalStatusFailed)
	require.NoError(t, err)
	assert.Len(t, proposals, 3)
}

func TestDeployContractVerify(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	raw := []byte(`{"templateId":1,"options":["a"]}`)
	_, err := h.engine.DeployContract(ctx, ownerAddr, execlogging.Kind, raw, true)
	require.ErrorIs(t, err, governance.ErrVerificationFailed)
	addr, err := h.engine.DeployContract(ctx, ownerAddr, plaintext.Kind, raw, true)
	require.NoError(t, err)
	// The failed deployment was rolled back, so its nonce is reused
	assert.Equal(t, crypto.CreateAddress(ownerAddr, 0), addr)
	other, err := h.engine.DeployContract(ctx, ownerAddr, plaintext.Kind, raw, false)
	require.NoError(t, err)
	assert.Equal(t, crypto.CreateAddress(ownerAddr, 1), other)
	p, err := h.directory.Resolve(ctx, nil, addr)
	require.NoError(t, err)
	_, ok := p.(*plaintext.Proposal)
	assert.True(t, ok)
	record, err := h.directory.Record(ctx, nil, addr)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, plaintext.Kind, record.Kind)
}

func TestTaskRunner(t *testing.T) {
	h := newHarness(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	h.setStake(t, voterA, 10)
	id := h.createPlaintext(t, "yes")
	h.vote(t, voterA, id, 4)
	runner, err := governance.NewTaskRunner(governance.TaskRunnerConfig{
		Engine:   h.engine,
		Clock:    h.clock,
		Interval: 10 * time.Second,
	})
	require.NoError(t, err)
	runner.Start()
	h.clock.Add(70 * time.Second)
	require.Eventually(
		t,
		func() bool {
			state, err := h.engine.ProposalState(context.Background(), id)
			return err == nil && state.Status == models.ProposalStatusResolved
		},
		5*time.Second,
		10*time.Millisecond,
	)
	runner.Stop()
	// Stop is idempotent
	runner.Stop()
}

func TestPendingTasksSkipFailedExecution(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setStake(t, voterA, 10)
	failing := h.create(
		t,
		h.deploy(
			t,
			execlogging.Kind,
			deployParams{
				BaseParams:    baseParams(tmplDelegate, "a"),
				ExecType:      "delegatecall",
				FailOnExecute: true,
			},
		),
	)
	healthy := h.createPlaintext(t, "yes")
	h.vote(t, voterA, failing, 4)
	h.vote(t, voterA, healthy, 4)
	h.clock.Add(60 * time.Second)

	runner, err := governance.NewTaskRunner(governance.TaskRunnerConfig{
		Engine:    h.engine,
		Clock:     h.clock,
		Interval:  10 * time.Second,
		BatchSize: 100,
	})
	require.NoError(t, err)
	handled, err := runner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	assert.Equal(t, models.ProposalStatusInitial, h.state(t, failing).Status)
	assert.Equal(t, models.ProposalStatusResolved, h.state(t, healthy).Status)
	first, err := h.engine.Task(ctx, 0)
	require.NoError(t, err)
	assert.False(t, first.Consumed)
	second, err := h.engine.Task(ctx, 1)
	require.NoError(t, err)
	assert.True(t, second.Consumed)
	assert.Equal(t, uint64(1), h.counters(t).ActiveProposals)

	// The failing task stays pending on every later pass
	for range 3 {
		handled, err = h.engine.HandlePendingTasks(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, 0, handled)
	}
	first, err = h.engine.Task(ctx, 0)
	require.NoError(t, err)
	assert.False(t, first.Consumed)
}

func TestPendingTasksBatchLimit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	handled, err := h.engine.HandlePendingTasks(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, handled)
	h.setStake(t, voterA, 10)
	ids := []uint64{
		h.createPlaintext(t, "yes"),
		h.createPlaintext(t, "yes"),
		h.createPlaintext(t, "yes"),
	}
	for _, id := range ids {
		h.vote(t, voterA, id, 4)
	}
	h.clock.Add(60 * time.Second)
	handled, err = h.engine.HandlePendingTasks(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, handled)
	assert.Equal(t, models.ProposalStatusInitial, h.state(t, ids[2]).Status)
	handled, err = h.engine.HandlePendingTasks(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	assert.Equal(t, models.ProposalStatusResolved, h.state(t, ids[2]).Status)
}

func TestFinalizeMetricsFollowCommit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.setStake(t, voterA, 10)
	call := h.create(
		t,
		h.deploy(
			t,
			execlogging.Kind,
			deployParams{
				BaseParams: baseParams(tmplCall, "a"),
				ExecType:   "call",
			},
		),
	)
	failing := h.create(
		t,
		h.deploy(
			t,
			execlogging.Kind,
			deployParams{
				BaseParams:    baseParams(tmplDelegate, "a"),
				ExecType:      "delegatecall",
				FailOnExecute: true,
			},
		),
	)
	h.vote(t, voterA, call, 4)
	h.vote(t, voterA, failing, 4)
	h.clock.Add(60 * time.Second)

	_, err := h.engine.HandleTasks(ctx, 0, 2)
	require.ErrorIs(t, err, governance.ErrExecutionFailed)
	count, err := testutil.GatherAndCount(h.registry, "governance_proposals_finalized_total")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	// Only the failed delegated attempt is counted
	count, err = testutil.GatherAndCount(h.registry, "governance_executions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	handled, err := h.engine.HandleTasks(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	count, err = testutil.GatherAndCount(h.registry, "governance_proposals_finalized_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = testutil.GatherAndCount(h.registry, "governance_executions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
