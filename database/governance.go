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
package database

import (
	"fmt"
	"math/big"

	"github.com/blinklabs-io/govern/database/models"
)

// withTxn runs fn in the provided transaction, or in a new transaction owned
// by this call when txn is nil
func (d *Database) withTxn(txn *Txn, readWrite bool, fn func(*Txn) error) error {
	if txn != nil {
		return fn(txn)
	}
	return d.Transaction(readWrite).Do(fn)
}

// GetTemplate returns a template by ID, or nil if it does not exist
func (d *Database) GetTemplate(
	templateId uint64,
	txn *Txn,
) (*models.ProposalTemplate, error) {
	var ret *models.ProposalTemplate
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetTemplate(templateId, txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get template %d: %w", templateId, err)
	}
	return ret, nil
}

// GetTemplates returns all templates
func (d *Database) GetTemplates(txn *Txn) ([]models.ProposalTemplate, error) {
	var ret []models.ProposalTemplate
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetTemplates(txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get templates: %w", err)
	}
	return ret, nil
}

// AddTemplate stores a new template
func (d *Database) AddTemplate(
	tmpl *models.ProposalTemplate,
	txn *Txn,
) error {
	err := d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.AddTemplate(tmpl, txn.Metadata())
	})
	if err != nil {
		return fmt.Errorf("add template %d: %w", tmpl.TemplateID, err)
	}
	return nil
}

// GetProposal returns a proposal by ID, or nil if it does not exist
func (d *Database) GetProposal(
	proposalId uint64,
	txn *Txn,
) (*models.Proposal, error) {
	var ret *models.Proposal
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetProposal(proposalId, txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get proposal %d: %w", proposalId, err)
	}
	return ret, nil
}

// GetProposalsByStatus returns all proposals with the given status
func (d *Database) GetProposalsByStatus(
	status uint8,
	txn *Txn,
) ([]models.Proposal, error) {
	var ret []models.Proposal
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetProposalsByStatus(status, txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get proposals with status %d: %w", status, err)
	}
	return ret, nil
}

// SetProposal inserts or updates a proposal
func (d *Database) SetProposal(proposal *models.Proposal, txn *Txn) error {
	err := d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.SetProposal(proposal, txn.Metadata())
	})
	if err != nil {
		return fmt.Errorf("set proposal %d: %w", proposal.ProposalID, err)
	}
	return nil
}

// GetVote returns the current vote of a voter, or nil if there is none
func (d *Database) GetVote(
	proposalId uint64,
	voter []byte,
	txn *Txn,
) (*models.ProposalVote, error) {
	var ret *models.ProposalVote
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetVote(proposalId, voter, txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get vote on proposal %d: %w", proposalId, err)
	}
	return ret, nil
}

// GetVotes returns all current votes on a proposal
func (d *Database) GetVotes(
	proposalId uint64,
	txn *Txn,
) ([]models.ProposalVote, error) {
	var ret []models.ProposalVote
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetVotes(proposalId, txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get votes on proposal %d: %w", proposalId, err)
	}
	return ret, nil
}

// SetVote records a vote, replacing any previous vote by the same voter
func (d *Database) SetVote(vote *models.ProposalVote, txn *Txn) error {
	err := d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.SetVote(vote, txn.Metadata())
	})
	if err != nil {
		return fmt.Errorf("set vote on proposal %d: %w", vote.ProposalID, err)
	}
	return nil
}

// DeleteVote removes the vote of a voter on a proposal
func (d *Database) DeleteVote(
	proposalId uint64,
	voter []byte,
	txn *Txn,
) error {
	err := d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.DeleteVote(proposalId, voter, txn.Metadata())
	})
	if err != nil {
		return fmt.Errorf("delete vote on proposal %d: %w", proposalId, err)
	}
	return nil
}

// GetTallyBuckets returns the tally buckets of a proposal
func (d *Database) GetTallyBuckets(
	proposalId uint64,
	txn *Txn,
) ([]models.TallyBucket, error) {
	var ret []models.TallyBucket
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetTallyBuckets(proposalId, txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get tally for proposal %d: %w", proposalId, err)
	}
	return ret, nil
}

// AddTallyWeight adjusts a tally bucket by delta, which may be negative
func (d *Database) AddTallyWeight(
	proposalId uint64,
	optionIndex uint32,
	scale uint64,
	delta *big.Int,
	txn *Txn,
) error {
	err := d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.AddTallyWeight(
			proposalId,
			optionIndex,
			scale,
			delta,
			txn.Metadata(),
		)
	})
	if err != nil {
		return fmt.Errorf(
			"update tally for proposal %d option %d: %w",
			proposalId,
			optionIndex,
			err,
		)
	}
	return nil
}

// AddTask appends a task to the queue
func (d *Database) AddTask(task *models.ProposalTask, txn *Txn) error {
	err := d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.AddTask(task, txn.Metadata())
	})
	if err != nil {
		return fmt.Errorf("add task %d: %w", task.TaskIndex, err)
	}
	return nil
}

// GetTask returns the task at the given index, or nil if it does not exist
func (d *Database) GetTask(
	taskIndex uint64,
	txn *Txn,
) (*models.ProposalTask, error) {
	var ret *models.ProposalTask
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetTask(taskIndex, txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", taskIndex, err)
	}
	return ret, nil
}

// GetTaskRange returns the tasks with indexes in [start, end)
func (d *Database) GetTaskRange(
	start uint64,
	end uint64,
	txn *Txn,
) ([]models.ProposalTask, error) {
	var ret []models.ProposalTask
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetTaskRange(start, end, txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get tasks %d-%d: %w", start, end, err)
	}
	return ret, nil
}

// GetFirstPendingTask returns the lowest-indexed unconsumed task, or nil
func (d *Database) GetFirstPendingTask(txn *Txn) (*models.ProposalTask, error) {
	var ret *models.ProposalTask
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetFirstPendingTask(txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get first pending task: %w", err)
	}
	return ret, nil
}

// SetTaskConsumed marks a task as consumed
func (d *Database) SetTaskConsumed(taskIndex uint64, txn *Txn) error {
	err := d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.SetTaskConsumed(taskIndex, txn.Metadata())
	})
	if err != nil {
		return fmt.Errorf("consume task %d: %w", taskIndex, err)
	}
	return nil
}

// GetGovernanceState returns the engine counters
func (d *Database) GetGovernanceState(txn *Txn) (*models.GovernanceState, error) {
	var ret *models.GovernanceState
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetGovernanceState(txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get governance state: %w", err)
	}
	return ret, nil
}

// SetGovernanceState stores the engine counters
func (d *Database) SetGovernanceState(
	state *models.GovernanceState,
	txn *Txn,
) error {
	err := d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.SetGovernanceState(state, txn.Metadata())
	})
	if err != nil {
		return fmt.Errorf("set governance state: %w", err)
	}
	return nil
}

// GetNetworkParameter returns a stored parameter, or nil if it was never set
func (d *Database) GetNetworkParameter(
	name string,
	txn *Txn,
) (*models.NetworkParameter, error) {
	var ret *models.NetworkParameter
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetNetworkParameter(name, txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get network parameter %s: %w", name, err)
	}
	return ret, nil
}

// GetNetworkParameters returns all stored parameters
func (d *Database) GetNetworkParameters(
	txn *Txn,
) ([]models.NetworkParameter, error) {
	var ret []models.NetworkParameter
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetNetworkParameters(txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get network parameters: %w", err)
	}
	return ret, nil
}

// SetNetworkParameter stores a parameter value
func (d *Database) SetNetworkParameter(
	param *models.NetworkParameter,
	txn *Txn,
) error {
	err := d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.SetNetworkParameter(param, txn.Metadata())
	})
	if err != nil {
		return fmt.Errorf("set network parameter %s: %w", param.Name, err)
	}
	return nil
}
