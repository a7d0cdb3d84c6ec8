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

// GovernanceState holds the engine-wide counters. There is a single row
type GovernanceState struct {
	ID              uint         `gorm:"primarykey"`
	LastProposalID  uint64       `gorm:"not null"`
	ActiveProposals uint64       `gorm:"not null"`
	TaskCount       uint64       `gorm:"not null"`
	CollectedFees   types.BigInt `gorm:"not null"`
}

func (GovernanceState) TableName() string {
	return "governance_state"
}

// NetworkParameter is a governable protocol parameter value
type NetworkParameter struct {
	ID        uint         `gorm:"primarykey"`
	Name      string       `gorm:"uniqueIndex;size:64;not null"`
	Value     types.BigInt `gorm:"not null"`
	UpdatedBy []byte       `gorm:"size:20"`
	UpdatedAt uint64
}

func (NetworkParameter) TableName() string {
	return "network_parameter"
}
