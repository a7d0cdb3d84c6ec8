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
	"fmt"
	"math/big"
	"time"

	"github.com/blinklabs-io/govern/database"
	"github.com/blinklabs-io/govern/database/models"
	"github.com/blinklabs-io/govern/database/types"
	"github.com/blinklabs-io/govern/event"
	"github.com/blinklabs-io/govern/proposal"
	"github.com/blinklabs-io/govern/template"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CreateProposal submits the proposal contract at addr. The paid fee must
// equal the configured fee exactly and is retained by the engine. On any
// failure nothing is stored
func (e *Engine) CreateProposal(
	ctx context.Context,
	proposer common.Address,
	addr common.Address,
	paidFee *big.Int,
) (uint64, error) {
	ctx, span := e.tracer.Start(
		ctx,
		"governance.CreateProposal",
		trace.WithAttributes(attribute.String("contract", addr.Hex())),
	)
	defer span.End()
	release, err := e.enter()
	if err != nil {
		return 0, err
	}
	defer release()
	var created *models.Proposal
	var task *models.ProposalTask
	var state *models.GovernanceState
	err = e.db.Transaction(true).Do(func(txn *database.Txn) error {
		var err error
		created, task, state, err = e.createProposal(
			ctx,
			txn,
			proposer,
			addr,
			paidFee,
		)
		return err
	})
	if err != nil {
		e.metrics.proposalsRejected.Inc()
		span.RecordError(err)
		e.logger.DebugContext(
			ctx,
			"proposal rejected",
			"component", "governance",
			"contract", addr.Hex(),
			"error", err,
		)
		return 0, err
	}
	e.metrics.proposalsCreated.Inc()
	e.metrics.activeProposals.Set(float64(state.ActiveProposals))
	e.metrics.lastProposalID.Set(float64(state.LastProposalID))
	span.SetAttributes(attribute.Int64("proposal_id", int64(created.ProposalID))) //nolint:gosec
	e.logger.InfoContext(
		ctx,
		"proposal created",
		"component", "governance",
		"proposal_id", created.ProposalID,
		"template_id", created.TemplateID,
		"contract", addr.Hex(),
		"voting_start", created.VotingStartTime,
		"voting_min_end", created.VotingMinEndTime,
		"voting_max_end", created.VotingMaxEndTime,
	)
	e.publish([]event.Event{
		event.NewEvent(
			event.ProposalCreatedEventType,
			event.ProposalCreatedEvent{
				ProposalID:       created.ProposalID,
				TemplateID:       created.TemplateID,
				Contract:         addr.Hex(),
				Proposer:         proposer.Hex(),
				Fee:              created.Fee.String(),
				OptionCount:      int(created.OptionCount),
				TaskIndex:        task.TaskIndex,
				VotingStartTime:  unixTime(created.VotingStartTime),
				VotingMinEndTime: unixTime(created.VotingMinEndTime),
				VotingMaxEndTime: unixTime(created.VotingMaxEndTime),
			},
		),
	})
	return created.ProposalID, nil
}

func (e *Engine) createProposal(
	ctx context.Context,
	txn *database.Txn,
	proposer common.Address,
	addr common.Address,
	paidFee *big.Int,
) (*models.Proposal, *models.ProposalTask, *models.GovernanceState, error) {
	p, err := e.config.Directory.Resolve(ctx, txn, addr)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("resolve proposal contract: %w", err)
	}
	// Fixed parameters are read once
	templateID := p.Type()
	options := p.Options()
	declared := template.ParamsOf(p)
	if len(options) == 0 {
		return nil, nil, nil, ErrEmptyOptions
	}
	if len(options) > proposal.MaxOptions {
		return nil, nil, nil, ErrTooManyOptions
	}
	if paidFee == nil || paidFee.Cmp(e.config.ProposalFee) != 0 {
		return nil, nil, nil, ErrWrongFee
	}
	ok, err := e.config.Templates.Verify(ctx, txn, templateID, addr)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}
	if !ok {
		return nil, nil, nil, ErrVerificationFailed
	}
	ok, err = e.config.Templates.CheckParams(ctx, txn, templateID, declared)
	if err != nil {
		return nil, nil, nil, err
	}
	if !ok {
		return nil, nil, nil, ErrParamsVerificationFailed
	}
	now := e.now()
	start, ok1 := addTime(now, declared.StartDelay)
	minEnd, ok2 := addTime(start, declared.MinVotingDuration)
	maxEnd, ok3 := addTime(start, declared.MaxVotingDuration)
	if !ok1 || !ok2 || !ok3 {
		return nil, nil, nil, ErrParamsVerificationFailed
	}
	state, err := e.db.GetGovernanceState(txn)
	if err != nil {
		return nil, nil, nil, err
	}
	proposalID := state.LastProposalID + 1
	created := &models.Proposal{
		ProposalID:       proposalID,
		TemplateID:       templateID,
		Contract:         addr.Bytes(),
		Proposer:         proposer.Bytes(),
		ExecutableKind:   uint8(declared.ExecutableKind),
		OptionCount:      uint32(len(options)), //nolint:gosec
		MinVotes:         types.NewBigInt(declared.MinVotes),
		MinAgreement:     types.NewBigInt(declared.MinAgreement),
		VotingStartTime:  start,
		VotingMinEndTime: minEnd,
		VotingMaxEndTime: maxEnd,
		Status:           models.ProposalStatusInitial,
		WinnerOptionID:   types.Uint64(NoWinner),
		Votes:            types.NewBigInt(nil),
		ExecutionStatus:  models.ExecutionStatusNone,
		Fee:              types.NewBigInt(paidFee),
		CreatedAt:        now,
	}
	if err := e.db.SetProposal(created, txn); err != nil {
		return nil, nil, nil, err
	}
	if err := e.db.SetProposalOptions(proposalID, options, txn); err != nil {
		return nil, nil, nil, err
	}
	task := &models.ProposalTask{
		TaskIndex:  state.TaskCount,
		ProposalID: proposalID,
		NotBefore:  minEnd,
	}
	if err := e.db.AddTask(task, txn); err != nil {
		return nil, nil, nil, err
	}
	state.LastProposalID = proposalID
	state.ActiveProposals++
	state.TaskCount++
	fees := state.CollectedFees.Big()
	fees.Add(fees, paidFee)
	state.CollectedFees = types.NewBigInt(fees)
	if err := e.db.SetGovernanceState(state, txn); err != nil {
		return nil, nil, nil, err
	}
	return created, task, state, nil
}

// addTime adds a duration in seconds and reports false on overflow
func addTime(base uint64, delta uint64) (uint64, bool) {
	ret := base + delta
	return ret, ret >= base
}

func unixTime(secs uint64) time.Time {
	return time.Unix(int64(secs), 0) //nolint:gosec
}
