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

// ProposalTemplate is a registered template that proposals are checked against
type ProposalTemplate struct {
	ID                   uint             `gorm:"primarykey"`
	TemplateID           uint64           `gorm:"uniqueIndex;not null"`
	Name                 string           `gorm:"size:128;not null"`
	Verifier             []byte           `gorm:"size:20"`
	ExecutableKind       uint8            `gorm:"not null"`
	MinVotes             types.BigInt     `gorm:"not null"`
	MinAgreement         types.BigInt     `gorm:"not null"`
	OpinionScales        types.Uint64List `gorm:"not null"`
	MinVotingDuration    uint64
	MaxVotingDuration    uint64
	MinStartDelay        uint64
	MaxStartDelay        uint64
	AllowEarlyResolution bool
	AddedAt              uint64
}

func (ProposalTemplate) TableName() string {
	return "proposal_template"
}
