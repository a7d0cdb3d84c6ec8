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

package models

import "github.com/blinklabs-io/govern/database/types"

// Proposal status values
const (
	ProposalStatusInitial  uint8 = 0
	ProposalStatusResolved uint8 = 1
	ProposalStatusFailed   uint8 = 2
)

// Proposal execution status values
const (
	ExecutionStatusNone     uint8 = 0
	ExecutionStatusExecuted uint8 = 1
	ExecutionStatusFailed   uint8 = 2
)

// Proposal is a submitted proposal and its voting state. Proposals are never deleted
type Proposal struct {
	ID               uint         `gorm:"primarykey"`
	ProposalID       uint64       `gorm:"uniqueIndex;not null"`
	TemplateID       uint64       `gorm:"index;not null"`
	Contract         []byte       `gorm:"index;size:20;not null"`
	Proposer         []byte       `gorm:"size:20"`
	ExecutableKind   uint8        `gorm:"not null"`
	OptionCount      uint32       `gorm:"not null"`
	MinVotes         types.BigInt `gorm:"not null"`
	MinAgreement     types.BigInt `gorm:"not null"`
	VotingStartTime  uint64       `gorm:"not null"`
	VotingMinEndTime uint64       `gorm:"not null"`
	VotingMaxEndTime uint64       `gorm:"not null"`
	Status           uint8        `gorm:"index;not null"`
	WinnerOptionID   types.Uint64 `gorm:"not null"`
	Votes            types.BigInt `gorm:"not null"`
	ExecutionStatus  uint8        `gorm:"not null"`
	Fee              types.BigInt
	CreatedAt        uint64
	ResolvedAt       uint64
}

func (Proposal) TableName() string {
	return "proposal"
}
