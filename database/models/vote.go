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

// ProposalVote is the current vote of a voter on a proposal. A revote
// replaces the existing row
type ProposalVote struct {
	ID         uint             `gorm:"primarykey"`
	ProposalID uint64           `gorm:"uniqueIndex:idx_proposal_vote_unique,priority:1;not null"`
	Voter      []byte           `gorm:"uniqueIndex:idx_proposal_vote_unique,priority:2;index;size:20;not null"`
	Choices    types.Uint64List `gorm:"not null"`
	Weight     types.BigInt     `gorm:"not null"`
	CastAt     uint64
}

func (ProposalVote) TableName() string {
	return "proposal_vote"
}

// TallyBucket holds the summed weight of all voters that picked a given
// scale value for a given option
type TallyBucket struct {
	ID          uint         `gorm:"primarykey"`
	ProposalID  uint64       `gorm:"uniqueIndex:idx_tally_bucket_unique,priority:1;not null"`
	OptionIndex uint32       `gorm:"uniqueIndex:idx_tally_bucket_unique,priority:2;not null"`
	Scale       uint64       `gorm:"uniqueIndex:idx_tally_bucket_unique,priority:3;not null"`
	Weight      types.BigInt `gorm:"not null"`
}

func (TallyBucket) TableName() string {
	return "tally_bucket"
}
