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
package metadata

import (
	"fmt"
	"math/big"

	"github.com/blinklabs-io/govern/database/models"
	"github.com/blinklabs-io/govern/database/plugin"
	"github.com/blinklabs-io/govern/database/types"
	"gorm.io/gorm"
)

type MetadataStore interface {
	plugin.Plugin

	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Templates
	AddTemplate(*models.ProposalTemplate, types.Txn) error
	GetTemplate(uint64, types.Txn) (*models.ProposalTemplate, error)
	GetTemplates(types.Txn) ([]models.ProposalTemplate, error)

	// Proposals
	GetProposal(uint64, types.Txn) (*models.Proposal, error)
	GetProposalsByStatus(uint8, types.Txn) ([]models.Proposal, error)
	SetProposal(*models.Proposal, types.Txn) error

	// Votes and tallies
	GetVote(
		uint64, // proposalId
		[]byte, // voter
		types.Txn,
	) (*models.ProposalVote, error)
	GetVotes(uint64, types.Txn) ([]models.ProposalVote, error)
	SetVote(*models.ProposalVote, types.Txn) error
	DeleteVote(uint64, []byte, types.Txn) error
	GetTallyBuckets(uint64, types.Txn) ([]models.TallyBucket, error)
	AddTallyWeight(
		uint64, // proposalId
		uint32, // optionIndex
		uint64, // scale
		*big.Int, // delta
		types.Txn,
	) error

	// Tasks
	AddTask(*models.ProposalTask, types.Txn) error
	GetTask(uint64, types.Txn) (*models.ProposalTask, error)
	GetTaskRange(uint64, uint64, types.Txn) ([]models.ProposalTask, error)
	GetFirstPendingTask(types.Txn) (*models.ProposalTask, error)
	SetTaskConsumed(uint64, types.Txn) error

	// Engine state and network parameters
	GetGovernanceState(types.Txn) (*models.GovernanceState, error)
	SetGovernanceState(*models.GovernanceState, types.Txn) error
	GetNetworkParameter(string, types.Txn) (*models.NetworkParameter, error)
	GetNetworkParameters(types.Txn) ([]models.NetworkParameter, error)
	SetNetworkParameter(*models.NetworkParameter, types.Txn) error
}

// New returns a started metadata store from the named plugin
func New(pluginName string) (MetadataStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName)
	if err != nil {
		return nil, err
	}
	ret, ok := p.(MetadataStore)
	if !ok {
		_ = p.Stop()
		return nil, fmt.Errorf(
			"plugin '%s' is not a metadata store",
			pluginName,
		)
	}
	return ret, nil
}
