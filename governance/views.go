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

	"github.com/blinklabs-io/govern/database"
	"github.com/blinklabs-io/govern/database/models"
	"github.com/blinklabs-io/govern/proposal"
	"github.com/ethereum/go-ethereum/common"
)

// ProposalParams are the fixed parameters of a proposal
type ProposalParams struct {
	MinVotes         *big.Int
	MinAgreement     *big.Int
	Fee              *big.Int
	Options          [][]byte
	ID               uint64
	TemplateID       uint64
	VotingStartTime  uint64
	VotingMinEndTime uint64
	VotingMaxEndTime uint64
	CreatedAt        uint64
	Contract         common.Address
	Proposer         common.Address
	ExecutableKind   proposal.ExecType
}

// ProposalState is the mutable state of a proposal
type ProposalState struct {
	Votes           *big.Int
	WinnerOptionID  uint64
	ResolvedAt      uint64
	Status          uint8
	ExecutionStatus uint8
}

// Counters are the engine-wide counters
type Counters struct {
	CollectedFees   *big.Int
	ProposalFee     *big.Int
	LastProposalID  uint64
	ActiveProposals uint64
	TaskCount       uint64
}

// Task is an entry of the finalization queue
type Task struct {
	Index      uint64
	ProposalID uint64
	NotBefore  uint64
	Consumed   bool
}

// view runs fn in a read-only transaction under the engine lock
func (e *Engine) view(fn func(txn *database.Txn) error) error {
	release, err := e.enter()
	if err != nil {
		return err
	}
	defer release()
	txn := e.db.Transaction(false)
	defer txn.Release()
	return fn(txn)
}

func (e *Engine) getProposal(
	txn *database.Txn,
	proposalID uint64,
) (*models.Proposal, error) {
	prop, err := e.db.GetProposal(proposalID, txn)
	if err != nil {
		return nil, err
	}
	if prop == nil {
		return nil, fmt.Errorf("%w: %d", ErrProposalNotFound, proposalID)
	}
	return prop, nil
}

func (e *Engine) ProposalParams(
	_ context.Context,
	proposalID uint64,
) (*ProposalParams, error) {
	var ret *ProposalParams
	err := e.view(func(txn *database.Txn) error {
		prop, err := e.getProposal(txn, proposalID)
		if err != nil {
			return err
		}
		options, err := e.db.GetProposalOptions(proposalID, txn)
		if err != nil {
			return err
		}
		ret = &ProposalParams{
			ID:               prop.ProposalID,
			TemplateID:       prop.TemplateID,
			Contract:         common.BytesToAddress(prop.Contract),
			Proposer:         common.BytesToAddress(prop.Proposer),
			Options:          options,
			ExecutableKind:   proposal.ExecType(prop.ExecutableKind),
			MinVotes:         prop.MinVotes.Big(),
			MinAgreement:     prop.MinAgreement.Big(),
			VotingStartTime:  prop.VotingStartTime,
			VotingMinEndTime: prop.VotingMinEndTime,
			VotingMaxEndTime: prop.VotingMaxEndTime,
			Fee:              prop.Fee.Big(),
			CreatedAt:        prop.CreatedAt,
		}
		return nil
	})
	return ret, err
}

func (e *Engine) ProposalState(
	_ context.Context,
	proposalID uint64,
) (*ProposalState, error) {
	var ret *ProposalState
	err := e.view(func(txn *database.Txn) error {
		prop, err := e.getProposal(txn, proposalID)
		if err != nil {
			return err
		}
		ret = stateOf(prop)
		return nil
	})
	return ret, err
}

func stateOf(prop *models.Proposal) *ProposalState {
	return &ProposalState{
		WinnerOptionID:  uint64(prop.WinnerOptionID),
		Votes:           prop.Votes.Big(),
		Status:          prop.Status,
		ExecutionStatus: prop.ExecutionStatus,
		ResolvedAt:      prop.ResolvedAt,
	}
}

// Proposals returns the IDs and states of all proposals with the given status
func (e *Engine) Proposals(
	_ context.Context,
	status uint8,
) (map[uint64]*ProposalState, error) {
	ret := make(map[uint64]*ProposalState)
	err := e.view(func(txn *database.Txn) error {
		props, err := e.db.GetProposalsByStatus(status, txn)
		if err != nil {
			return err
		}
		for i := range props {
			ret[props[i].ProposalID] = stateOf(&props[i])
		}
		return nil
	})
	return ret, err
}

func (e *Engine) Counters(_ context.Context) (*Counters, error) {
	var ret *Counters
	err := e.view(func(txn *database.Txn) error {
		state, err := e.db.GetGovernanceState(txn)
		if err != nil {
			return err
		}
		ret = &Counters{
			LastProposalID:  state.LastProposalID,
			ActiveProposals: state.ActiveProposals,
			TaskCount:       state.TaskCount,
			CollectedFees:   state.CollectedFees.Big(),
			ProposalFee:     e.ProposalFee(),
		}
		return nil
	})
	return ret, err
}

func (e *Engine) LastProposalID(ctx context.Context) (uint64, error) {
	counters, err := e.Counters(ctx)
	if err != nil {
		return 0, err
	}
	return counters.LastProposalID, nil
}

func (e *Engine) ActiveProposals(ctx context.Context) (uint64, error) {
	counters, err := e.Counters(ctx)
	if err != nil {
		return 0, err
	}
	return counters.ActiveProposals, nil
}

func (e *Engine) CollectedFees(ctx context.Context) (*big.Int, error) {
	counters, err := e.Counters(ctx)
	if err != nil {
		return nil, err
	}
	return counters.CollectedFees, nil
}

func (e *Engine) TaskCount(ctx context.Context) (uint64, error) {
	counters, err := e.Counters(ctx)
	if err != nil {
		return 0, err
	}
	return counters.TaskCount, nil
}

// Task returns the task at index i
func (e *Engine) Task(_ context.Context, i uint64) (*Task, error) {
	var ret *Task
	err := e.view(func(txn *database.Txn) error {
		task, err := e.db.GetTask(i, txn)
		if err != nil {
			return err
		}
		if task == nil {
			return fmt.Errorf("%w: %d", ErrTaskNotFound, i)
		}
		ret = &Task{
			Index:      task.TaskIndex,
			ProposalID: task.ProposalID,
			NotBefore:  task.NotBefore,
			Consumed:   task.Consumed,
		}
		return nil
	})
	return ret, err
}

// VotingTally evaluates the current votes of a proposal against the live
// total stake. It does not change any state
func (e *Engine) VotingTally(
	ctx context.Context,
	proposalID uint64,
) (*TallyResult, error) {
	var ret *TallyResult
	err := e.view(func(txn *database.Txn) error {
		prop, err := e.getProposal(txn, proposalID)
		if err != nil {
			return err
		}
		tmpl, err := e.config.Templates.Get(ctx, txn, prop.TemplateID)
		if err != nil {
			return err
		}
		rows, err := e.db.GetTallyBuckets(proposalID, txn)
		if err != nil {
			return err
		}
		totalStake, err := e.config.Stake.TotalEffectiveStake(ctx)
		if err != nil {
			return fmt.Errorf("read total stake: %w", err)
		}
		result := ComputeTally(
			bucketsFromModels(rows),
			TallyParams{
				OptionCount:  int(prop.OptionCount),
				MaxScale:     tmpl.MaxScale(),
				TotalStake:   totalStake,
				MinVotes:     prop.MinVotes.Big(),
				MinAgreement: prop.MinAgreement.Big(),
			},
		)
		ret = &result
		return nil
	})
	return ret, err
}

// OptionState returns the current tally of a single option
func (e *Engine) OptionState(
	ctx context.Context,
	proposalID uint64,
	option uint64,
) (*OptionResult, error) {
	result, err := e.VotingTally(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if option >= uint64(len(result.Options)) {
		return nil, fmt.Errorf("%w: %d", ErrOptionOutOfRange, option)
	}
	ret := result.Options[option]
	return &ret, nil
}

// ExecutionReceipt returns the execution receipt of a proposal, or nil when
// it was never executed
func (e *Engine) ExecutionReceipt(
	_ context.Context,
	proposalID uint64,
) (*database.ExecutionReceipt, error) {
	var ret *database.ExecutionReceipt
	err := e.view(func(txn *database.Txn) error {
		if _, err := e.getProposal(txn, proposalID); err != nil {
			return err
		}
		var err error
		ret, err = e.db.GetExecutionReceipt(proposalID, txn)
		return err
	})
	return ret, err
}
